package gopher

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var icons = map[byte]string{
	TypeText:      "text",
	TypeDirectory: "folder",
	'4':           "binhex",
	'5':           "archive",
	'6':           "uuencoded",
	TypeIndex:     "index",
	TypeBinary:    "binary",
	TypeGIF:       "image",
	TypeImage:     "image",
}

// Item is one parsed directory record.
type Item struct {
	Type     byte
	Display  string
	Selector string
	Host     string
	Port     int
}

// parseItem parses a tab-delimited record without its line terminator.
func parseItem(line []byte) (Item, bool) {
	if len(line) == 0 {
		return Item{}, false
	}

	fields := strings.Split(string(line[1:]), "\t")
	if len(fields) < 4 {
		return Item{}, false
	}

	port, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil || port <= 0 || port > 65535 {
		port = DefaultPort
	}

	return Item{
		Type:     line[0],
		Display:  fields[0],
		Selector: fields[1],
		Host:     fields[2],
		Port:     port,
	}, true
}

// directoryRenderer turns a gopher menu into HTML. Incoming bytes are appended to pending and records are
// consumed only once their line terminator has arrived. An unterminated record may not grow past maxRecord.
type directoryRenderer struct {
	logger     *zap.SugaredLogger
	out        *lineBuffer
	iconPrefix string
	scheme     string
	maxRecord  int

	pending    []byte
	scanned    int
	terminated bool
}

func newDirectoryRenderer(logger *zap.SugaredLogger, out *lineBuffer, addr *Address, iconPrefix string, maxRecord int) *directoryRenderer {
	scheme := "gopher"
	if addr.Secure {
		scheme = "gophers"
	}

	d := &directoryRenderer{
		logger:     logger,
		out:        out,
		iconPrefix: iconPrefix,
		scheme:     scheme,
		maxRecord:  maxRecord,
	}

	title := html.EscapeString(addr.Host + " " + addr.Selector)
	d.out.WriteString("<html><head><title>Gopher: " + title + "</title></head><body>\n<h1>" + title + "</h1>\n<pre>\n")

	return d
}

// Write consumes every complete record. Scanning resumes where the previous call stopped.
func (d *directoryRenderer) Write(chunk []byte) error {
	if d.terminated {
		return nil
	}
	d.pending = append(d.pending, chunk...)

	consumed := 0
	for !d.terminated {
		i := bytes.IndexByte(d.pending[d.scanned:], '\n')
		if i < 0 {
			d.scanned = len(d.pending)
			break
		}

		end := d.scanned + i
		line := d.pending[consumed:end]
		consumed = end + 1
		d.scanned = consumed
		d.handleLine(bytes.TrimSuffix(line, []byte{'\r'}))
	}

	if d.terminated {
		d.pending, d.scanned = d.pending[:0], 0
		return nil
	}

	d.pending = append(d.pending[:0], d.pending[consumed:]...)
	d.scanned -= consumed

	if d.maxRecord > 0 && len(d.pending) > d.maxRecord {
		return fmt.Errorf("%w: %d bytes without a line end", ErrRecordTooLong, len(d.pending))
	}
	return nil
}

func (d *directoryRenderer) Close() {
	if !d.terminated && len(d.pending) > 0 {
		d.handleLine(bytes.TrimSuffix(d.pending, []byte{'\r'}))
	}
	d.pending = nil

	d.out.WriteString("</pre>\n</body></html>\n")
}

func (d *directoryRenderer) handleLine(line []byte) {
	if len(line) == 1 && line[0] == '.' {
		d.terminated = true
		return
	}

	item, ok := parseItem(line)
	if !ok {
		d.logger.Debugw("Dropping short gopher record", "record", string(line))
		return
	}

	icon, known := icons[item.Type]
	if !known {
		return
	}

	d.out.WriteString(fmt.Sprintf(
		"<img src=\"%s\" alt=\"[%s]\" width=\"16\" height=\"16\"> <a href=\"%s\">%s</a>\n",
		html.EscapeString(d.iconPrefix+icon+".png"),
		icon,
		html.EscapeString(itemURL(d.scheme, item.Host, item.Port, item.Type, item.Selector)),
		html.EscapeString(item.Display),
	))
}

// searchPage is the local prompt shown for an index item without a query. Submitting it appends ?query.
func searchPage(addr *Address) string {
	target := html.EscapeString(addr.URL())

	return "<html><head><title>Gopher search</title></head><body>\n" +
		"<h1>" + html.EscapeString(addr.Host+" "+addr.Selector) + "</h1>\n" +
		"<isindex action=\"" + target + "\" prompt=\"Search: \">\n" +
		"</body></html>\n"
}
