//go:build unix

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ivoronin/biggrep/internal/config"
	"github.com/ivoronin/biggrep/internal/job"
	"github.com/ivoronin/biggrep/internal/orchestrator"
	"github.com/ivoronin/biggrep/internal/progress"
	"github.com/ivoronin/biggrep/internal/term"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "/etc/biggrep/biggrep.conf"

// searchOptions holds CLI flags for the search command.
type searchOptions struct {
	asciiTerms   []string
	binaryTerms  []string
	unicodeTerms []string

	directories []string
	recursive   bool
	noMetadata  bool

	verify   bool
	yaraFile string

	limit      int
	filters    []string
	numprocs   int
	throttle   int
	indexOrder string

	banner  string
	metrics bool
	verbose bool
	debug   bool
	syslog  string

	bgparsePath  string
	bgverifyPath string
	yaraPath     string
	configPath   string
}

func newSearchCmd() *cobra.Command {
	opts := &searchOptions{
		limit:        15000,
		numprocs:     12,
		throttle:     10000,
		indexOrder:   "undefined",
		bgparsePath:  "bgparse",
		bgverifyPath: "bgverify",
		yaraPath:     "yara",
		configPath:   defaultConfigPath,
	}

	cmd := &cobra.Command{
		Use:   "search [terms...]",
		Short: "Search byte-n-gram indices for one or more terms",
		RunE: func(_ *cobra.Command, args []string) error {
			return runSearch(args, opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.asciiTerms, "ascii", "a", nil, "Search term interpreted as ASCII bytes (repeatable)")
	f.StringArrayVarP(&opts.binaryTerms, "binary", "b", nil, "Search term interpreted as a hex string (repeatable)")
	f.StringArrayVarP(&opts.unicodeTerms, "unicode", "u", nil, "Search term interpreted as Unicode/UTF-16LE (repeatable)")
	f.StringArrayVarP(&opts.directories, "directory", "d", nil, "Directory containing .bgi index files (repeatable)")
	f.BoolVarP(&opts.recursive, "recursive", "r", false, "Recurse into index directories")
	f.BoolVarP(&opts.noMetadata, "no-metadata", "M", false, "Do not print candidate metadata")
	f.BoolVarP(&opts.verify, "verify", "v", false, "Enable verification of candidates")
	f.StringVarP(&opts.yaraFile, "yara", "y", "", "YARA rules file; selects the YARA verifier")
	f.IntVarP(&opts.limit, "limit", "l", opts.limit, "Candidate count limit")
	f.StringArrayVarP(&opts.filters, "filter", "f", nil, "Metadata filter expression (repeatable)")
	f.IntVarP(&opts.numprocs, "numprocs", "n", opts.numprocs, "Number of parallel search/verify workers")
	f.IntVarP(&opts.throttle, "throttle", "t", opts.throttle, "Verify backlog threshold for search/verify throttling")
	f.StringVarP(&opts.indexOrder, "index-order", "i", opts.indexOrder, "Index visiting order: shuffle|alpha|undefined")
	f.StringVar(&opts.banner, "banner", "", "Path to a banner file printed before searching")
	f.BoolVar(&opts.metrics, "metrics", false, "Print a machine-readable status line to stderr")
	f.BoolVarP(&opts.verbose, "verbose", "V", false, "Verbose logging")
	f.BoolVarP(&opts.debug, "debug", "D", false, "Debug logging")
	f.StringVar(&opts.syslog, "syslog", "", "Forward logs to syslog: facility[@address]")
	f.StringVar(&opts.configPath, "config", opts.configPath, "Config file path")

	return cmd
}

func runSearch(args []string, opts *searchOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	mergeConfig(opts, cfg)

	logger, err := newLogger(opts.verbose, opts.debug, opts.syslog)
	if err != nil {
		return err
	}

	if err := printBanner(opts.banner); err != nil {
		return err
	}

	typed := make([]typedTerm, 0, len(opts.asciiTerms)+len(opts.binaryTerms)+len(opts.unicodeTerms)+len(args))
	for _, t := range opts.asciiTerms {
		typed = append(typed, typedTerm{t, term.Ascii})
	}
	for _, t := range opts.binaryTerms {
		typed = append(typed, typedTerm{t, term.Hex})
	}
	for _, t := range opts.unicodeTerms {
		typed = append(typed, typedTerm{t, term.Unicode})
	}
	for _, t := range args {
		typed = append(typed, typedTerm{t, term.Auto})
	}

	terms, err := buildTerms(typed, logger)
	if err != nil {
		logger.Error().Err(err).Msg("no usable search terms")
		return exitCodeError{code: orchestrator.ExitFailure, err: err}
	}

	indexFiles, err := enumerateIndexFiles(opts.directories, opts.recursive, opts.indexOrder)
	if err != nil {
		logger.Error().Err(err).Msg("failed to enumerate index files")
		return exitCodeError{code: orchestrator.ExitFailure, err: err}
	}

	if opts.yaraFile != "" {
		if err := validateYaraRules(opts.yaraPath, opts.yaraFile); err != nil {
			logger.Error().Err(err).Msg("yara rules file validation failed")
			return exitCodeError{code: orchestrator.ExitFailure, err: err}
		}
	}

	filters := make([]job.FilterPredicate, 0, len(opts.filters))
	for _, expr := range opts.filters {
		p, err := job.ParseFilter(expr)
		if err != nil {
			logger.Error().Err(err).Str("filter", expr).Msg("malformed filter expression")
			return exitCodeError{code: orchestrator.ExitFailure, err: err}
		}
		filters = append(filters, p)
	}

	status := progress.NewStatusLine(os.Stderr, opts.metrics)
	spinner := progress.NewSpinner(!opts.metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT)
	defer stop()

	var lastStatus orchestrator.Status
	code, err := orchestrator.Search(ctx, orchestrator.Options{
		Terms:          terms,
		IndexFiles:     indexFiles,
		Verify:         opts.verify,
		Filters:        filters,
		Workers:        opts.numprocs,
		CandidateLimit: opts.limit,
		Throttle:       opts.throttle,
		BgparsePath:    opts.bgparsePath,
		BgverifyPath:   opts.bgverifyPath,
		YaraPath:       opts.yaraPath,
		YaraRulesFile:  opts.yaraFile,
		Debug:          opts.debug,
		ResultCallback: func(path, metadata string) {
			// --no-metadata is a display-time filter: bgparse always
			// returns metadata, so it is suppressed here rather than
			// forwarded to the parser subprocess.
			if opts.noMetadata {
				fmt.Fprintf(os.Stdout, "%s\n", path)
				return
			}
			fmt.Fprintf(os.Stdout, "%s%s\n", path, metadata)
		},
		StatusCallback: func(s orchestrator.Status) {
			status.Write(s.CandidateCount, s.VerifiedCount, s.VerifyCheckedCount, s.TotalIndexFiles, s.SearchedCount)
			spinner.Describe(searchSummary(s))
			lastStatus = s
		},
		Logger: logger,
	})
	spinner.Finish(searchSummary(lastStatus))

	if err != nil && code == orchestrator.ExitFailure {
		logger.Error().Err(err).Msg("search failed")
	}
	if code != orchestrator.ExitOK {
		return exitCodeError{code: code, err: err}
	}
	return nil
}

// searchSummary renders the short human-readable line the spinner
// describes itself with while searching.
type searchSummary orchestrator.Status

func (s searchSummary) String() string {
	return fmt.Sprintf("%d candidates, %d verified", s.CandidateCount, s.VerifiedCount)
}

// mergeConfig applies biggrep.conf values as defaults, honoring the
// precedence rules in spec.md §6: the config file is parsed first,
// then CLI flags override it. Directory lists concatenate, except
// that any command-line -d replaces the config's directory list
// entirely.
func mergeConfig(opts *searchOptions, cfg *config.File) {
	if len(opts.directories) == 0 {
		opts.directories = cfg.StringSlice("directory")
	}
	if !opts.recursive {
		opts.recursive = cfg.Bool("recursive")
	}
	if !opts.verify {
		opts.verify = cfg.Bool("verify")
	}
	if !opts.noMetadata {
		opts.noMetadata = cfg.Bool("no-metadata")
	}
	if opts.yaraFile == "" {
		opts.yaraFile = cfg.String("yara")
	}
	if v := cfg.String("bgparse-path"); v != "" {
		opts.bgparsePath = v
	}
	if v := cfg.String("bgverify-path"); v != "" {
		opts.bgverifyPath = v
	}
	if v := cfg.String("yara-path"); v != "" {
		opts.yaraPath = v
	}
}
