package charset

import "testing"

func TestNormalize(t *testing.T) {
	testCases := []struct {
		label    string
		expected string
	}{
		{"UTF-8", "utf8"},
		{"utf_8", "utf8"},
		{"UTF_8", "utf8"},
		{"ISO-8859-1", "iso88591"},
		{"iso 8859 1", "iso88591"},
		{"Shift_JIS", "shiftjis"},
	}
	for _, tc := range testCases {
		if got := Normalize(tc.label); got != tc.expected {
			t.Errorf("Normalize(%q): expected %q, got %q", tc.label, tc.expected, got)
		}
	}
}

func TestDecodeBuiltins(t *testing.T) {
	testCases := []struct {
		name     string
		label    string
		input    []byte
		expected string
	}{
		{"utf-8 passthrough", "utf-8", []byte("héllo"), "héllo"},
		{"utf-8 invalid byte replaced", "UTF8", []byte{'a', 0xff, 'b'}, "a�b"},
		{"us-ascii", "us-ascii", []byte("plain"), "plain"},
		{"us-ascii high byte replaced", "US-ASCII", []byte{'a', 0xe9}, "a�"},
		{"latin-1", "ISO-8859-1", []byte{0xe9, 0xe8}, "éè"},
		{"latin1 alias", "latin1", []byte{0xfc}, "ü"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Decode(tc.label, tc.input)
			if !ok {
				t.Fatalf("label %q should be known", tc.label)
			}
			if got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestDecodeExtended(t *testing.T) {
	testCases := []struct {
		name     string
		label    string
		input    []byte
		expected string
	}{
		{"windows-1252 euro", "windows-1252", []byte{0x80}, "€"},
		{"shift_jis", "Shift_JIS", []byte{0x83, 0x65, 0x83, 0x58, 0x83, 0x67}, "テスト"},
		{"iso-8859-15 euro", "iso-8859-15", []byte{0xa4}, "€"},
		{"koi8-r", "KOI8-R", []byte{0xf0}, "П"},
		{"utf-16le", "utf-16le", []byte{'H', 0, 'i', 0}, "Hi"},
		{"utf-16be", "UTF-16BE", []byte{0, 'H', 0, 'i'}, "Hi"},
		{"utf-16 with BOM", "utf-16", []byte{0xff, 0xfe, 'H', 0, 'i', 0}, "Hi"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Decode(tc.label, tc.input)
			if !ok {
				t.Fatalf("label %q should be known", tc.label)
			}
			if got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestDecodeUnknownFallsBackToLatin1(t *testing.T) {
	got, ok := Decode("x-no-such-charset", []byte{0xe9})
	if ok {
		t.Error("unknown label should report ok=false")
	}
	if got != "é" {
		t.Errorf("expected Latin-1 fallback é, got %q", got)
	}
}

func TestCustomDecoder(t *testing.T) {
	r := &Registry{
		Custom: func(label string, b []byte) (string, bool) {
			if label == "x-rot-none" {
				return string(b), true
			}
			return "", false
		},
	}

	got, ok := r.Decode("x-rot-none", []byte("data"))
	if !ok || got != "data" {
		t.Errorf("custom decoder should serve its label, got %q ok=%t", got, ok)
	}

	// The hook never shadows built-ins.
	got, ok = r.Decode("utf-8", []byte("é"))
	if !ok || got != "é" {
		t.Errorf("built-in should bypass the hook, got %q ok=%t", got, ok)
	}
}

func TestKnown(t *testing.T) {
	for _, label := range []string{"utf-8", "US-ASCII", "iso-8859-5", "GB18030"} {
		if !Default.Known(label) {
			t.Errorf("%q should be known", label)
		}
	}
	if Default.Known("x-made-up") {
		t.Error("x-made-up should not be known")
	}
}
