package header

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expected      string // RFC3339 of Time(), "" means nil
		indeterminate bool
	}{
		{
			name:     "full form",
			input:    "Fri, 21 Nov 1997 09:55:06 -0600",
			expected: "1997-11-21T09:55:06-06:00",
		},
		{
			name:     "no day of week",
			input:    "21 Nov 1997 09:55:06 -0600",
			expected: "1997-11-21T09:55:06-06:00",
		},
		{
			name:     "no seconds",
			input:    "Tue, 1 Jul 2003 10:52 +0200",
			expected: "2003-07-01T10:52:00+02:00",
		},
		{
			name:     "GMT zone",
			input:    "Mon, 23 Nov 2024 10:30:00 GMT",
			expected: "2024-11-23T10:30:00Z",
		},
		{
			name:     "UT zone",
			input:    "23 Nov 2024 10:30:00 UT",
			expected: "2024-11-23T10:30:00Z",
		},
		{
			name:     "named zone EST",
			input:    "26 Aug 1976 14:29:00 EST",
			expected: "1976-08-26T14:29:00-05:00",
		},
		{
			name:          "military letter is indeterminate",
			input:         "21 Nov 1997 09:55:06 K",
			expected:      "1997-11-21T09:55:06Z",
			indeterminate: true,
		},
		{
			name:          "minus zero zone is indeterminate",
			input:         "21 Nov 1997 09:55:06 -0000",
			expected:      "1997-11-21T09:55:06Z",
			indeterminate: true,
		},
		{
			name:     "two digit year below 50",
			input:    "21 Nov 03 09:55:06 +0000",
			expected: "2003-11-21T09:55:06Z",
		},
		{
			name:     "two digit year 50 and above",
			input:    "21 Nov 97 09:55:06 +0000",
			expected: "1997-11-21T09:55:06Z",
		},
		{
			name:     "comment tolerated",
			input:    "21 Nov 1997 09:55:06 GMT (Friday morning)",
			expected: "1997-11-21T09:55:06Z",
		},
		{
			name:     "lowercase month",
			input:    "21 nov 1997 09:55:06 +0000",
			expected: "1997-11-21T09:55:06Z",
		},
		{name: "garbage", input: "not a date", expected: ""},
		{name: "empty", input: "", expected: ""},
		{name: "month out of range", input: "21 Foo 1997 09:55:06 +0000", expected: ""},
		{name: "missing clock", input: "21 Nov 1997", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := ParseDate([]byte(tc.input))
			if tc.expected == "" {
				if d != nil {
					t.Fatalf("expected nil, got %+v", d)
				}
				return
			}
			if d == nil {
				t.Fatal("expected a date, got nil")
			}
			if got := d.Time().Format(time.RFC3339); got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
			if d.Indeterminate != tc.indeterminate {
				t.Errorf("indeterminate: expected %t, got %t", tc.indeterminate, d.Indeterminate)
			}
		})
	}
}

func TestParseReceived(t *testing.T) {
	input := "from mail.example.org (mail.example.org [203.0.113.7]) " +
		"by mx.example.com with ESMTPS id q7si13117r " +
		"for <user@example.com>; Fri, 21 Nov 1997 09:55:06 -0600"

	r := ParseReceived([]byte(input))
	if r.From != "mail.example.org" {
		t.Errorf("from: got %q", r.From)
	}
	if r.By != "mx.example.com" {
		t.Errorf("by: got %q", r.By)
	}
	if r.With != "ESMTPS" {
		t.Errorf("with: got %q", r.With)
	}
	if r.ID != "q7si13117r" {
		t.Errorf("id: got %q", r.ID)
	}
	if r.For != "<user@example.com>" {
		t.Errorf("for: got %q", r.For)
	}
	if r.Date == nil || r.Date.Year != 1997 || r.Date.Hour != 9 {
		t.Errorf("date: got %+v", r.Date)
	}
}

func TestParseReceivedNoDate(t *testing.T) {
	r := ParseReceived([]byte("by localhost with local"))
	if r.By != "localhost" || r.With != "local" || r.Date != nil {
		t.Errorf("got %+v", r)
	}
}
