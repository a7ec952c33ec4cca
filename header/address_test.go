package header

import (
	"testing"

	"github.com/geoffreyhinton/mailparse_go/rfc2047"
)

func parseAddrs(t *testing.T, value string) AddressList {
	t.Helper()
	tk := NewTokenizer([]byte(value), &rfc2047.Decoder{}, true)
	return ParseAddressList(tk)
}

func TestParseSimpleAddresses(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []Addr
	}{
		{
			name:     "name-addr",
			input:    "John Doe <jdoe@machine.example>",
			expected: []Addr{{Name: "John Doe", Address: "jdoe@machine.example"}},
		},
		{
			name:     "bare addr-spec",
			input:    "jdoe@machine.example",
			expected: []Addr{{Address: "jdoe@machine.example"}},
		},
		{
			name:  "list of mailboxes",
			input: "Alice <alice@example.com>, bob@example.com, \"Carol\" <carol@example.com>",
			expected: []Addr{
				{Name: "Alice", Address: "alice@example.com"},
				{Address: "bob@example.com"},
				{Name: "Carol", Address: "carol@example.com"},
			},
		},
		{
			name:     "quoted display name with specials",
			input:    "\"Doe, John\" <jdoe@machine.example>",
			expected: []Addr{{Name: "Doe, John", Address: "jdoe@machine.example"}},
		},
		{
			name:     "dotted display name",
			input:    "John Q. Public <jqp@example.com>",
			expected: []Addr{{Name: "John Q. Public", Address: "jqp@example.com"}},
		},
		{
			name:     "comment becomes name of bare address",
			input:    "pete@silly.test (Pete's mailbox)",
			expected: []Addr{{Name: "Pete's mailbox", Address: "pete@silly.test"}},
		},
		{
			name:     "comment appended to display name",
			input:    "John <jdoe@one.test> (my dear friend)",
			expected: []Addr{{Name: "John (my dear friend)", Address: "jdoe@one.test"}},
		},
		{
			name:     "comment inside addr-spec",
			input:    "c@(Chris's host.)public.example",
			expected: []Addr{{Name: "Chris's host.", Address: "c@public.example"}},
		},
		{
			name:     "domain literal",
			input:    "jdoe@[192.168.0.1]",
			expected: []Addr{{Address: "jdoe@[192.168.0.1]"}},
		},
		{
			name:     "empty elements skipped",
			input:    "a@b.c,, ,d@e.f",
			expected: []Addr{{Address: "a@b.c"}, {Address: "d@e.f"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			list := parseAddrs(t, tc.input)
			if list.IsGroups() {
				t.Fatalf("expected plain addresses, got groups: %+v", list.Groups)
			}
			if len(list.Addresses) != len(tc.expected) {
				t.Fatalf("expected %d addresses, got %d: %+v", len(tc.expected), len(list.Addresses), list.Addresses)
			}
			for i, a := range list.Addresses {
				if a != tc.expected[i] {
					t.Errorf("address %d: expected %+v, got %+v", i, tc.expected[i], a)
				}
			}
		})
	}
}

func TestParseGroupWithCommentsAndTrailer(t *testing.T) {
	// Malformed group name carrying a comment, a commented host inside an
	// angle-addr, and a trailing comment after the terminated group.
	input := "A Group(Some people) :Chris Jones <c@(Chris's host.)public.example>, " +
		"joe@example.org, John <jdoe@one.test> (my dear friend); (the end of the group)"

	list := parseAddrs(t, input)
	if !list.IsGroups() {
		t.Fatalf("expected groups, got %+v", list.Addresses)
	}
	if len(list.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d: %+v", len(list.Groups), list.Groups)
	}

	g := list.Groups[0]
	if g.Name != "A Group (Some people)" {
		t.Errorf("group name: got %q", g.Name)
	}
	expected := []Addr{
		{Name: "Chris Jones (Chris's host.)", Address: "c@public.example"},
		{Address: "joe@example.org"},
		{Name: "John (my dear friend)", Address: "jdoe@one.test"},
	}
	if len(g.Addresses) != len(expected) {
		t.Fatalf("expected %d members, got %d: %+v", len(expected), len(g.Addresses), g.Addresses)
	}
	for i, a := range g.Addresses {
		if a != expected[i] {
			t.Errorf("member %d: expected %+v, got %+v", i, expected[i], a)
		}
	}

	trailer := list.Groups[1]
	if trailer.Name != "" {
		t.Errorf("trailing pseudo-group should be anonymous, got %q", trailer.Name)
	}
	if len(trailer.Addresses) != 1 || trailer.Addresses[0].Address != "" ||
		trailer.Addresses[0].Name != "the end of the group" {
		t.Errorf("trailing comment entry: got %+v", trailer.Addresses)
	}
}

func TestParseGroups(t *testing.T) {
	t.Run("empty group", func(t *testing.T) {
		list := parseAddrs(t, "Undisclosed recipients:;")
		if !list.IsGroups() || len(list.Groups) != 1 {
			t.Fatalf("expected one group, got %+v", list)
		}
		g := list.Groups[0]
		if g.Name != "Undisclosed recipients" || len(g.Addresses) != 0 {
			t.Errorf("got %+v", g)
		}
	})

	t.Run("loose address wrapped in pseudo-group", func(t *testing.T) {
		list := parseAddrs(t, "solo@example.com, Team:a@x.y, b@x.y;")
		if !list.IsGroups() || len(list.Groups) != 2 {
			t.Fatalf("expected 2 groups, got %+v", list)
		}
		if list.Groups[0].Name != "" || len(list.Groups[0].Addresses) != 1 ||
			list.Groups[0].Addresses[0].Address != "solo@example.com" {
			t.Errorf("pseudo-group: got %+v", list.Groups[0])
		}
		if list.Groups[1].Name != "Team" || len(list.Groups[1].Addresses) != 2 {
			t.Errorf("named group: got %+v", list.Groups[1])
		}
	})

	t.Run("stray address after group", func(t *testing.T) {
		list := parseAddrs(t, "Team:a@x.y;, stray@example.com")
		if !list.IsGroups() || len(list.Groups) != 2 {
			t.Fatalf("expected 2 groups, got %+v", list)
		}
		if list.Groups[1].Name != "" || list.Groups[1].Addresses[0].Address != "stray@example.com" {
			t.Errorf("stray run: got %+v", list.Groups[1])
		}
	})

	t.Run("quoted group name", func(t *testing.T) {
		list := parseAddrs(t, "\"My: Friends\": a@x.y;")
		if !list.IsGroups() || list.Groups[0].Name != "My: Friends" {
			t.Fatalf("got %+v", list)
		}
	})
}

func TestEncodedWordsInPhrases(t *testing.T) {
	t.Run("adjacent words concatenate", func(t *testing.T) {
		list := parseAddrs(t, "=?ISO-8859-1?Q?a?= =?ISO-8859-1?Q?b?= <test@test.com>")
		if list.IsGroups() || len(list.Addresses) != 1 {
			t.Fatalf("got %+v", list)
		}
		a := list.Addresses[0]
		if a.Name != "ab" || a.Address != "test@test.com" {
			t.Errorf("got %+v", a)
		}
	})

	t.Run("word next to plain word", func(t *testing.T) {
		list := parseAddrs(t, "=?ISO-8859-1?Q?Andr=E9?= Pirard <PIRARD@vm1.ulg.ac.be>")
		a := list.Addresses[0]
		if a.Name != "André Pirard" || a.Address != "PIRARD@vm1.ulg.ac.be" {
			t.Errorf("got %+v", a)
		}
	})

	t.Run("encoded word inside quoted string", func(t *testing.T) {
		list := parseAddrs(t, "\"=?utf-8?B?aGVsbG8=?=\" <q@example.com>")
		a := list.Addresses[0]
		if a.Name != "hello" {
			t.Errorf("got %+v", a)
		}
	})
}

func TestQuotedAddrSpecDuplicated(t *testing.T) {
	// A quoted display-name that looks like an addr-spec and has no angle
	// form populates both fields identically.
	list := parseAddrs(t, "\"foo@bar.com\"")
	if list.IsGroups() || len(list.Addresses) != 1 {
		t.Fatalf("got %+v", list)
	}
	a := list.Addresses[0]
	if a.Name != "foo@bar.com" || a.Address != "foo@bar.com" {
		t.Errorf("both fields should carry the addr-spec, got %+v", a)
	}
}

func TestAddressRoundTrip(t *testing.T) {
	lists := []string{
		"John Doe <jdoe@machine.example>",
		"a@b.c, \"Doe, John\" <d@e.f>",
		"Team: one@x.y, Two <two@x.y>;",
		"Undisclosed recipients:;",
	}
	for _, input := range lists {
		first := parseAddrs(t, input)
		second := parseAddrs(t, first.String())
		if first.String() != second.String() {
			t.Errorf("round trip diverged for %q: %q vs %q", input, first.String(), second.String())
		}
	}
}
