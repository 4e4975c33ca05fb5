package sniffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestSniff(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		data     []byte
		want     string
	}{
		{name: "png under octet-stream", declared: TypeOctetStream, data: pngHeader, want: TypePNG},
		{name: "gif87a without declaration", declared: "", data: []byte("GIF87a\x01\x00"), want: TypeGIF},
		{name: "gif89a", declared: "application/unknown", data: []byte("GIF89a\x01\x00"), want: TypeGIF},
		{name: "jpeg soi at start", declared: "", data: []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10}, want: TypeJPEG},
		{name: "jpeg marker after junk", declared: "", data: append(bytes.Repeat([]byte{1}, 500), 0xff, 0xe1), want: TypeJPEG},
		{name: "jpeg marker past scan limit", declared: "", data: append(bytes.Repeat([]byte{1}, 1100), 0xff, 0xd8), want: TypeOctetStream},
		{name: "unknown html", declared: "", data: []byte("\n\n<HTML><body>x</body></HTML>"), want: TypeHTML},
		{name: "unknown plain", declared: "", data: []byte("just some words\r\n"), want: TypePlain},
		{name: "unknown xml", declared: "", data: []byte("<?xml version=\"1.0\"?><feed/>"), want: TypeXML},
		{name: "unknown binary", declared: "", data: []byte{0, 1, 2, 3, 4}, want: TypeOctetStream},
		{name: "empty unknown", declared: "", data: nil, want: TypeOctetStream},
		{name: "xml with declaration", declared: "application/xml", data: []byte("\x00 <?xml version=\"1.0\"?><a/>"), want: "application/xml"},
		{name: "xml as text", declared: "text/xml", data: []byte("<a>b</a>"), want: "text/xml"},
		{name: "xml binary", declared: "text/xml", data: []byte{'<', 0x01, 0x02}, want: TypeOctetStream},
		{name: "text comment", declared: "text/plain", data: []byte("  <!-- hi -->"), want: TypeHTML},
		{name: "text doctype", declared: "text/plain", data: []byte("<!DOCTYPE html PUBLIC \"x\">"), want: TypeHTML},
		{name: "text doctype not html", declared: "text/plain", data: []byte("<!DOCTYPE note>"), want: "text/plain"},
		{name: "text xml svg", declared: "text/plain", data: []byte("<?xml version=\"1.0\"?>\n<svg xmlns=\"x\"/>"), want: TypeSVG},
		{name: "text bare svg", declared: "text/html", data: []byte("<SVG></SVG>"), want: TypeSVG},
		{name: "text markdown kept", declared: "text/markdown", data: []byte("# Title\n\x01"), want: TypeMarkdown},
		{name: "text plain kept", declared: "text/css; charset=utf-8", data: []byte("body { color: red }"), want: "text/css"},
		{name: "text but binary", declared: "text/plain", data: []byte{'a', 0x02, 'b'}, want: TypeOctetStream},
		{name: "text but png", declared: "text/plain", data: pngHeader, want: TypePNG},
		{name: "utf8 text", declared: "text/plain", data: []byte("caf\xc3\xa9"), want: "text/plain"},
		{name: "trusted image", declared: "image/png", data: []byte("not a png"), want: "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sniff(tt.declared, tt.data))
		})
	}
}

func TestSniff_Idempotent(t *testing.T) {
	samples := [][]byte{
		pngHeader,
		[]byte("<html></html>"),
		[]byte("<?xml version=\"1.0\"?><svg/>"),
		[]byte("<?xml version=\"1.0\"?><a/>"),
		[]byte("<?xml version=\"1.0\"?><a>\x01</a>"),
		[]byte("plain text"),
		[]byte{0xff, 0xe0, 0x00, 0x01},
		[]byte{'t', 'x', 0x02},
		[]byte("<!--\x01"),
		nil,
	}
	declared := []string{"", TypeOctetStream, "text/plain", "text/html", "text/xml", "application/xml", "text/markdown", "image/gif"}

	for _, d := range declared {
		for _, data := range samples {
			once := Sniff(d, data)
			assert.Equal(t, once, Sniff(once, data), "declared %q data %q", d, data)
		}
	}
}

func TestSniff_FailedVerificationMatchesGenericResult(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		data     []byte
		want     string
	}{
		{name: "text holding png", declared: "text/plain", data: pngHeader, want: TypePNG},
		{name: "xml holding gif", declared: "text/xml", data: []byte("GIF89a\x01\x00"), want: TypeGIF},
		{name: "text holding xml with control byte", declared: "text/plain", data: []byte("<?xml version=\"1.0\"?><a>\x01</a>"), want: TypeXML},
		{name: "xml holding html with control byte", declared: "application/xml", data: []byte("<html>\x01"), want: TypeHTML},
		{name: "text holding binary", declared: "text/plain", data: []byte{'a', 0x02}, want: TypeOctetStream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sniff(tt.declared, tt.data)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, Sniff(TypeOctetStream, tt.data), got)
			assert.Equal(t, got, Sniff(got, tt.data))
		})
	}
}

func TestIsPlainText(t *testing.T) {
	assert.True(t, IsPlainText([]byte("\x00\x00hello\tworld\r\n")))
	assert.True(t, IsPlainText(nil))
	assert.False(t, IsPlainText([]byte("hello\x00world")))
	assert.False(t, IsPlainText([]byte("bell\x07")))
	assert.False(t, IsPlainText([]byte("del\x7f")))
}
