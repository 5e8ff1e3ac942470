package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestStatusLineFormat(t *testing.T) {
	var buf bytes.Buffer
	s := NewStatusLine(&buf, true)
	s.Write(100, 25, 50, 10, 5)

	got := buf.String()
	if !strings.HasPrefix(got, "\r") {
		t.Fatalf("expected leading carriage return, got %q", got)
	}
	want := "\rSearch:100 50% Verify:25/100 50%"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStatusLinePadsOverPreviousLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewStatusLine(&buf, true)
	s.Write(1000, 500, 1000, 10, 10)
	buf.Reset()
	s.Write(5, 0, 0, 10, 0)

	got := buf.String()
	if len(got) <= len("\rSearch:5 0% Verify:0/5 0%") {
		t.Fatalf("expected padding to overwrite the longer previous line, got %q", got)
	}
}

func TestStatusLineDisabledIsNoop(t *testing.T) {
	var buf bytes.Buffer
	s := NewStatusLine(&buf, false)
	s.Write(1, 1, 1, 1, 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output when disabled, got %q", buf.String())
	}
}
