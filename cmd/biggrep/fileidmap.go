//go:build unix

package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/ivoronin/biggrep/internal/bgiedit"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type fileidmapOptions struct {
	extract bool
	replace bool
	verbose bool
	debug   bool
}

func newFileidmapCmd() *cobra.Command {
	opts := &fileidmapOptions{extract: true}

	cmd := &cobra.Command{
		Use:   "fileidmap [bgi...]",
		Short: "Extract or replace the file-id map region of .bgi index files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runFileidmap(args, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.extract, "extract", "x", opts.extract, "Extract the file-id map to a sidecar file (default)")
	f.BoolVarP(&opts.replace, "replace", "r", false, "Overwrite the file-id map from its sidecar file")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")
	f.BoolVarP(&opts.debug, "debug", "d", false, "Debug logging")

	return cmd
}

func runFileidmap(paths []string, opts *fileidmapOptions) error {
	level := zerolog.WarnLevel
	switch {
	case opts.debug:
		level = zerolog.DebugLevel
	case opts.verbose:
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	var failed bool
	for _, path := range paths {
		var err error
		if opts.replace {
			err = bgiedit.Replace(path)
		} else {
			err = bgiedit.Extract(path)
		}
		if err != nil {
			logger.Error().Err(err).Str("file", path).Msg("file-id map operation failed")
			failed = true
			continue
		}

		size := "unknown size"
		if info, statErr := os.Stat(path); statErr == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}
		logger.Info().Str("file", path).Str("size", size).Msg("file-id map operation succeeded")
	}

	if failed {
		return fmt.Errorf("one or more files failed")
	}
	return nil
}
