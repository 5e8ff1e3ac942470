//go:build unix

package main

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ivoronin/biggrep/internal/term"
	"github.com/rs/zerolog"
)

// typedTerm pairs a raw user-supplied term with the normalization mode
// its originating flag implies.
type typedTerm struct {
	raw  string
	mode term.Mode
}

// buildTerms normalizes every typed/positional term into its canonical
// hex form, logging (but not failing on) warnings along the way.
func buildTerms(typed []typedTerm, logger zerolog.Logger) ([]string, error) {
	if len(typed) == 0 {
		return nil, fmt.Errorf("no search terms given")
	}

	hexTerms := make([]string, 0, len(typed))
	for _, t := range typed {
		hex, warning, err := term.Normalize(t.raw, t.mode)
		if err != nil {
			logger.Error().Err(err).Str("term", t.raw).Msg("invalid search term")
			return nil, fmt.Errorf("normalize term %q: %w", t.raw, err)
		}
		if warning != "" {
			logger.Warn().Str("term", t.raw).Msg(warning)
		}
		hexTerms = append(hexTerms, hex)
	}
	return hexTerms, nil
}

// enumerateIndexFiles walks the given directories (recursively if
// requested) collecting every *.bgi file, then orders them per mode.
func enumerateIndexFiles(dirs []string, recursive bool, mode string) ([]string, error) {
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no index directories given")
	}

	var files []string
	for _, dir := range dirs {
		if recursive {
			err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && strings.HasSuffix(path, ".bgi") {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("walk %s: %w", dir, err)
			}
			continue
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".bgi") {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no index files found")
	}

	switch mode {
	case "alpha":
		sort.Slice(files, func(i, j int) bool {
			return filepath.Base(files[i]) < filepath.Base(files[j])
		})
	case "shuffle":
		shuffleSeed1(files)
	case "undefined", "":
		// no ordering guarantee required
	default:
		return nil, fmt.Errorf("unknown --index-order %q", mode)
	}

	return files, nil
}

// shuffleSeed1 deterministically shuffles files in place using a fixed
// seed, per spec.md §5's reproducibility allowance ("shuffle uses
// seed=1"). A small linear congruential generator avoids pulling in
// math/rand's global state for a one-shot deterministic permutation.
func shuffleSeed1(files []string) {
	state := uint64(1)
	next := func() uint64 {
		state = state*6364136223846793005 + 1442695040888963407
		return state
	}
	for i := len(files) - 1; i > 0; i-- {
		j := int(next() % uint64(i+1))
		files[i], files[j] = files[j], files[i]
	}
}

// newLogger builds the injected structured logger, wiring an optional
// syslog sink alongside stderr.
func newLogger(verbose, debug bool, syslogTarget string) (zerolog.Logger, error) {
	level := zerolog.WarnLevel
	switch {
	case debug:
		level = zerolog.DebugLevel
	case verbose:
		level = zerolog.InfoLevel
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}

	if syslogTarget != "" {
		w, err := dialSyslog(syslogTarget)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("connect to syslog: %w", err)
		}
		writers = append(writers, zerolog.SyslogLevelWriter(w))
	}

	logger := zerolog.New(io.MultiWriter(writers...)).Level(level).With().Timestamp().Logger()
	return logger, nil
}

// dialSyslog parses "facility[@address]" and connects to either the
// local syslog daemon or a remote one over UDP.
func dialSyslog(target string) (*syslog.Writer, error) {
	facilityName, address, _ := strings.Cut(target, "@")
	facility, ok := syslogFacilities[strings.ToLower(facilityName)]
	if !ok {
		return nil, fmt.Errorf("unknown syslog facility %q", facilityName)
	}

	if address == "" {
		return syslog.New(facility|syslog.LOG_INFO, "biggrep")
	}
	return syslog.Dial("udp", address, facility|syslog.LOG_INFO, "biggrep")
}

var syslogFacilities = map[string]syslog.Priority{
	"kern":     syslog.LOG_KERN,
	"user":     syslog.LOG_USER,
	"mail":     syslog.LOG_MAIL,
	"daemon":   syslog.LOG_DAEMON,
	"auth":     syslog.LOG_AUTH,
	"syslog":   syslog.LOG_SYSLOG,
	"lpr":      syslog.LOG_LPR,
	"news":     syslog.LOG_NEWS,
	"uucp":     syslog.LOG_UUCP,
	"cron":     syslog.LOG_CRON,
	"authpriv": syslog.LOG_AUTHPRIV,
	"ftp":      syslog.LOG_FTP,
	"local0":   syslog.LOG_LOCAL0,
	"local1":   syslog.LOG_LOCAL1,
	"local2":   syslog.LOG_LOCAL2,
	"local3":   syslog.LOG_LOCAL3,
	"local4":   syslog.LOG_LOCAL4,
	"local5":   syslog.LOG_LOCAL5,
	"local6":   syslog.LOG_LOCAL6,
	"local7":   syslog.LOG_LOCAL7,
}

// validateYaraRules fails fast on a malformed YARA rules file by
// running it against os.DevNull before any search work starts,
// instead of only surfacing a compile error the first time a verify
// engine invokes it.
func validateYaraRules(yaraPath, rulesFile string) error {
	cmd := exec.Command(yaraPath, rulesFile, os.DevNull)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("yara rules file %s failed to compile: %w: %s", rulesFile, err, out)
	}
	return nil
}

// printBanner writes the contents of a banner file to stderr before
// the search begins, if one was given.
func printBanner(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read banner %s: %w", path, err)
	}
	_, err = os.Stderr.Write(data)
	return err
}
