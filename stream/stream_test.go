package stream

import (
	"bytes"
	"testing"
)

func TestReadLine(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		lines []string
	}{
		{
			name:  "LF terminated",
			input: "one\ntwo\nthree",
			lines: []string{"one", "two", "three"},
		},
		{
			name:  "CRLF terminated",
			input: "one\r\ntwo\r\n",
			lines: []string{"one", "two"},
		},
		{
			name:  "bare CR terminated",
			input: "one\rtwo\r",
			lines: []string{"one", "two"},
		},
		{
			name:  "mixed terminators",
			input: "a\r\nb\nc\rd",
			lines: []string{"a", "b", "c", "d"},
		},
		{
			name:  "empty lines",
			input: "a\n\nb\n",
			lines: []string{"a", "", "b"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := New([]byte(tc.input))
			var got []string
			for {
				line, ok := s.ReadLine()
				if !ok {
					break
				}
				got = append(got, string(line))
			}
			if len(got) != len(tc.lines) {
				t.Fatalf("expected %d lines, got %d: %q", len(tc.lines), len(got), got)
			}
			for i := range got {
				if got[i] != tc.lines[i] {
					t.Errorf("line %d: expected %q, got %q", i, tc.lines[i], got[i])
				}
			}
		})
	}
}

func TestReadLogicalLine(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "unfolded",
			input:    "Subject: hello\n",
			expected: "Subject: hello",
		},
		{
			name:     "single fold",
			input:    "Subject: a long line\n that continues\n",
			expected: "Subject: a long line that continues",
		},
		{
			name:     "tab continuation",
			input:    "Subject: a\n\tb\n",
			expected: "Subject: a b",
		},
		{
			name:     "multiple folds",
			input:    "Subject: one\n two\n three\n",
			expected: "Subject: one two three",
		},
		{
			name:     "deep fold indent collapses",
			input:    "Subject: one\n     two\n",
			expected: "Subject: one two",
		},
		{
			name:     "inner whitespace preserved",
			input:    "Subject: a  b\n c\n",
			expected: "Subject: a  b c",
		},
		{
			name:     "whitespace-only line ends the logical line",
			input:    "Subject: a\n \nnext",
			expected: "Subject: a",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := New([]byte(tc.input))
			line, ok := s.ReadLogicalLine()
			if !ok {
				t.Fatal("expected a line")
			}
			if string(line) != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, string(line))
			}
		})
	}
}

func TestReadLogicalLineZeroCopy(t *testing.T) {
	buf := []byte("Subject: plain\nX-Next: y\n")
	s := New(buf)
	line, ok := s.ReadLogicalLine()
	if !ok {
		t.Fatal("expected a line")
	}
	if &line[0] != &buf[0] {
		t.Error("unfolded logical line should alias the input buffer")
	}
}

func TestMarkRewind(t *testing.T) {
	s := New([]byte("abc\ndef\n"))
	m := s.Mark()
	first, _ := s.ReadLine()
	s.Rewind(m)
	again, _ := s.ReadLine()
	if !bytes.Equal(first, again) {
		t.Errorf("rewind should replay the same line: %q vs %q", first, again)
	}
}

func TestSkipEmptyLine(t *testing.T) {
	s := New([]byte("\r\nbody"))
	if !s.SkipEmptyLine() {
		t.Fatal("expected to skip the empty line")
	}
	rest, _ := s.ReadLine()
	if string(rest) != "body" {
		t.Errorf("expected body, got %q", rest)
	}
	if s.SkipEmptyLine() {
		t.Error("no empty line left to skip")
	}
}

func TestIndexLine(t *testing.T) {
	buf := []byte("preamble\r\n--bnd\r\ncontent --bnd inline\n--bnd--\n")

	match, lineEnd := IndexLine(buf, 0, len(buf), []byte("--bnd"))
	if match < 0 {
		t.Fatal("expected a match")
	}
	if string(buf[match:match+5]) != "--bnd" {
		t.Errorf("bad match offset %d", match)
	}
	if lineEnd != match-2 {
		t.Errorf("expected terminator start %d, got %d", match-2, lineEnd)
	}

	// The inline occurrence must be skipped, the closing delimiter found.
	match2, _ := IndexLine(buf, match+5, len(buf), []byte("--bnd"))
	if match2 < 0 {
		t.Fatal("expected the closing delimiter")
	}
	if string(buf[match2:match2+7]) != "--bnd--" {
		t.Errorf("expected the line-anchored occurrence, got offset %d", match2)
	}
}

func TestIndexLineAtRegionStart(t *testing.T) {
	buf := []byte("--bnd\ncontent\n")
	match, lineEnd := IndexLine(buf, 0, len(buf), []byte("--bnd"))
	if match != 0 || lineEnd != 0 {
		t.Errorf("delimiter at region start: got match=%d lineEnd=%d", match, lineEnd)
	}
}
