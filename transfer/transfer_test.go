package transfer

import (
	"bytes"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		label    string
		expected Encoding
	}{
		{"base64", Base64},
		{"BASE64", Base64},
		{"Base64", Base64},
		{"quoted-printable", QuotedPrintable},
		{"Quoted-Printable", QuotedPrintable},
		{"7bit", Identity},
		{"8bit", Identity},
		{"binary", Identity},
		{"x-uuencode", Identity},
		{"", Identity},
	}
	for _, tc := range testCases {
		if got := Parse(tc.label); got != tc.expected {
			t.Errorf("Parse(%q): expected %v, got %v", tc.label, tc.expected, got)
		}
	}
}

func TestDecodeBase64(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "aGVsbG8=", "hello"},
		{"no padding", "aGVsbG8", "hello"},
		{"two sextets", "aGk=", "hi"},
		{"two sextets no padding", "aGk", "hi"},
		{"line broken", "aGVs\r\nbG8=\r\n", "hello"},
		{"foreign bytes ignored", "a G V s b G 8 =", "hello"},
		{"interior padding ignored", "aGVs=bG8=", "hello"},
		{"empty", "", ""},
		{"all garbage", "!!!", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := DecodeBase64([]byte(tc.input))
			if string(got) != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, string(got))
			}
		})
	}
}

func TestDecodeQuotedPrintable(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "hello world", "hello world"},
		{"hex escape", "caf=C3=A9", "caf\xc3\xa9"},
		{"lowercase hex", "=e9", "\xe9"},
		{"soft break", "foo=\r\nbar", "foobar"},
		{"soft break LF", "foo=\nbar", "foobar"},
		{"soft break with transit whitespace", "foo= \t\r\nbar", "foobar"},
		{"soft break at EOF", "foo=", "foo"},
		{"invalid escape passes through", "100% =ok", "100% =ok"},
		{"short escape passes through", "x=4", "x=4"},
		{"trailing whitespace stripped", "line   \r\nnext", "line\r\nnext"},
		{"interior whitespace kept", "a  b", "a  b"},
		{"equals sign data", "a=3Db", "a=b"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := DecodeQuotedPrintable([]byte(tc.input))
			if string(got) != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, string(got))
			}
		})
	}
}

func TestDecodeInPlace(t *testing.T) {
	buf := []byte("aGVsbG8gd29ybGQ=")
	got := DecodeInPlace(Base64, buf)
	if string(got) != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", string(got))
	}
	if &got[0] != &buf[0] {
		t.Error("in-place decode should write into the caller's buffer")
	}

	qp := []byte("caf=C3=A9 au lait")
	got = DecodeInPlace(QuotedPrintable, qp)
	if string(got) != "café au lait" {
		t.Fatalf("expected %q, got %q", "café au lait", string(got))
	}
	if &got[0] != &qp[0] {
		t.Error("in-place decode should write into the caller's buffer")
	}
}

func TestDecodeIdentityReturnsInput(t *testing.T) {
	buf := []byte("as-is")
	got := Decode(Identity, buf)
	if !bytes.Equal(got, buf) || &got[0] != &buf[0] {
		t.Error("identity decode should return the input slice unchanged")
	}
}

func BenchmarkDecodeBase64(b *testing.B) {
	src := bytes.Repeat([]byte("VGhpcyBpcyBhIGxpbmUgb2YgdGV4dC4=\r\n"), 64)
	b.SetBytes(int64(len(src)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DecodeBase64(src)
	}
}

func BenchmarkDecodeQuotedPrintable(b *testing.B) {
	src := bytes.Repeat([]byte("This is =C3=A9ncoded text with a soft=\r\n break.\r\n"), 64)
	b.SetBytes(int64(len(src)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DecodeQuotedPrintable(src)
	}
}
