// Package config reads biggrep.conf, a bespoke line-oriented format:
// "key=value" or a bare "key" (boolean flag), with "#" comments and
// blank lines ignored. No third-party format (YAML, TOML, INI) matches
// this shape, so this is a small hand-rolled scanner, the same way the
// teacher hand-rolls its own bespoke-format parsers.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// File is the parsed form of a biggrep.conf file: each key mapped to its
// values in file order, plus a set of bare boolean flags. Repeated keys
// (notably "directory") accumulate in Values rather than overwrite.
type File struct {
	Values map[string][]string
	Flags  map[string]bool
}

func newFile() *File {
	return &File{
		Values: make(map[string][]string),
		Flags:  make(map[string]bool),
	}
}

// Load reads and parses the config file at path. A missing file is not
// an error; it returns an empty File, matching the CLI's "config file
// is optional" contract.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newFile(), nil
		}
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a config stream in the biggrep.conf format.
func Parse(r io.Reader) (*File, error) {
	cfg := newFile()
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, hasValue := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}

		if !hasValue {
			cfg.Flags[key] = true
			continue
		}

		value = strings.TrimSpace(value)
		cfg.Values[key] = append(cfg.Values[key], value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return cfg, nil
}

// String returns the last value bound to key, or "" if unset.
func (f *File) String(key string) string {
	vs := f.Values[key]
	if len(vs) == 0 {
		return ""
	}
	return vs[len(vs)-1]
}

// StringSlice returns every value bound to key, in file order.
func (f *File) StringSlice(key string) []string {
	return append([]string(nil), f.Values[key]...)
}

// Bool reports whether key is set as a bare flag, or "true"/"false" in
// a key=value form.
func (f *File) Bool(key string) bool {
	if f.Flags[key] {
		return true
	}
	return f.String(key) == "true"
}
