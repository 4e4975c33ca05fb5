// Package sniffer decides the definitive content type of fetched bytes.
//
// Declared types that are absent or generic trigger signature detection and text heuristics.
// XML and text declarations are verified against the leading bytes. Everything else is trusted.
package sniffer

import (
	"bytes"
	"strings"
)

const (
	TypeOctetStream = "application/octet-stream"
	TypeHTML        = "text/html"
	TypePlain       = "text/plain"
	TypeMarkdown    = "text/markdown"
	TypeXML         = "text/xml"
	TypeSVG         = "image/svg+xml"
	TypeGIF         = "image/gif"
	TypeJPEG        = "image/jpeg"
	TypePNG         = "image/png"
)

var genericTypes = map[string]struct{}{
	"":                           {},
	TypeOctetStream:              {},
	"application/unknown":        {},
	"application/x-unknown":      {},
	"unknown/unknown":            {},
	"content/unknown":            {},
	"application/x-octet-stream": {},
	"*/*":                        {},
}

var xmlFamily = []string{"text/xml", "application/xml"}

// Sniff returns the definitive type for data given the declared one. Sniff(Sniff(t, d), d) == Sniff(t, d).
func Sniff(declared string, data []byte) string {
	declared = baseType(declared)

	if len(data) == 0 {
		if declared == "" {
			return TypeOctetStream
		}
		return declared
	}

	if _, ok := genericTypes[declared]; ok {
		return sniffUnknown(data)
	}

	for _, prefix := range xmlFamily {
		if strings.HasPrefix(declared, prefix) {
			return sniffXML(declared, data)
		}
	}

	if strings.HasPrefix(declared, "text/") {
		return sniffText(declared, data)
	}

	return declared
}

func sniffUnknown(data []byte) string {
	if t, ok := matchSignature(data); ok {
		return t
	}

	rest := skipLeading(data)
	if t, ok := matchMarkup(rest); ok {
		return t
	}

	if hasXMLDeclaration(rest) {
		return TypeXML
	}

	if IsPlainText(data) {
		return TypePlain
	}

	return TypeOctetStream
}

// Bytes failing XML or text verification get the type octet-stream would sniff to, so Sniff stays idempotent.
func sniffXML(declared string, data []byte) string {
	rest := skipLeading(data)
	if hasXMLDeclaration(rest) || IsPlainText(rest) {
		return declared
	}
	return sniffUnknown(data)
}

func sniffText(declared string, data []byte) string {
	rest := skipLeading(data)
	if t, ok := matchMarkup(rest); ok {
		return t
	}

	if isMarkdown(declared) {
		return declared
	}

	if IsPlainText(data) {
		return declared
	}

	return sniffUnknown(data)
}

// matchMarkup recognises HTML and SVG openings. rest must already have leading NULs and whitespace removed.
func matchMarkup(rest []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(rest, []byte("<!--")):
		return TypeHTML, true
	case hasPrefixFold(rest, "<html"):
		return TypeHTML, true
	case hasPrefixFold(rest, "<!doctype"):
		end := bytes.IndexByte(rest, '>')
		if end < 0 {
			end = len(rest)
		}
		if bytes.Contains(bytes.ToLower(rest[:end]), []byte("html")) {
			return TypeHTML, true
		}
	case hasXMLDeclaration(rest):
		if bytes.Contains(bytes.ToLower(rest), []byte("<svg")) {
			return TypeSVG, true
		}
	case hasPrefixFold(rest, "<svg"):
		return TypeSVG, true
	}
	return "", false
}

func isMarkdown(declared string) bool {
	return declared == TypeMarkdown || declared == "text/x-markdown"
}

// IsPlainText reports whether every byte after leading NULs is printable or whitespace.
// Bytes above 0x7F count as printable so UTF-8 and Latin-1 text both pass.
func IsPlainText(data []byte) bool {
	for len(data) > 0 && data[0] == 0 {
		data = data[1:]
	}

	for _, b := range data {
		switch {
		case b == '\t', b == '\n', b == '\r', b == '\f', b == '\v':
		case b < 0x20, b == 0x7f:
			return false
		}
	}
	return true
}

func skipLeading(data []byte) []byte {
	for len(data) > 0 {
		switch data[0] {
		case 0, ' ', '\t', '\n', '\r', '\f', '\v':
			data = data[1:]
		default:
			return data
		}
	}
	return data
}

func hasXMLDeclaration(rest []byte) bool {
	return bytes.HasPrefix(rest, []byte("<?xml"))
}

func hasPrefixFold(data []byte, prefix string) bool {
	return len(data) >= len(prefix) && strings.EqualFold(string(data[:len(prefix)]), prefix)
}

// baseType lowercases the type and drops parameters such as charset.
func baseType(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.ToLower(strings.TrimSpace(t))
}
