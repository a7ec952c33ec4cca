package message

import (
	"github.com/go-logr/logr"

	"github.com/geoffreyhinton/mailparse_go/charset"
)

// Options controls parsing behavior. The zero value is not useful; start
// from DefaultOptions.
type Options struct {
	// MaxDepth caps MIME nesting. Parts below the cap degrade to opaque
	// binary attachments instead of failing the parse.
	MaxDepth int

	// DecodeCommentEncodedWords enables RFC 2047 decoding inside
	// parenthesized comments.
	DecodeCommentEncodedWords bool

	// HTMLToTextInline enables the lazy HTML-to-text conversion used when
	// BodyText is asked for a body that only exists as HTML.
	HTMLToTextInline bool

	// TolerateEightBitHeaders reads raw non-ASCII header bytes as UTF-8
	// per RFC 6532; when off they are read as Latin-1.
	TolerateEightBitHeaders bool

	// LazyNestedMessages defers parsing of message/rfc822 parts until
	// first access.
	LazyNestedMessages bool

	// Charset supplies charset decoding; nil uses the package default
	// registry.
	Charset *charset.Registry

	// Logger receives parse diagnostics. Defaults to logr.Discard; the
	// parser never writes anywhere else.
	Logger logr.Logger
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxDepth:                  16,
		DecodeCommentEncodedWords: true,
		HTMLToTextInline:          true,
		TolerateEightBitHeaders:   true,
		LazyNestedMessages:        true,
		Logger:                    logr.Discard(),
	}
}
