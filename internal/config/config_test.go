package config

import (
	"strings"
	"testing"
)

func TestParseValuesAndFlags(t *testing.T) {
	src := `
# a comment
directory=/data/corpus1
directory=/data/corpus2
recursive
numprocs=24

verify=true
`
	cfg, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	dirs := cfg.StringSlice("directory")
	if len(dirs) != 2 || dirs[0] != "/data/corpus1" || dirs[1] != "/data/corpus2" {
		t.Fatalf("directory = %v", dirs)
	}
	if !cfg.Bool("recursive") {
		t.Error("expected recursive to be a set flag")
	}
	if cfg.String("numprocs") != "24" {
		t.Fatalf("numprocs = %q", cfg.String("numprocs"))
	}
	if !cfg.Bool("verify") {
		t.Error("expected verify=true to read as a bool flag")
	}
	if cfg.Bool("undeclared") {
		t.Error("expected an unset key to read as false")
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load("/nonexistent/biggrep.conf")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Values) != 0 || len(cfg.Flags) != 0 {
		t.Fatal("expected an empty File for a missing config path")
	}
}
