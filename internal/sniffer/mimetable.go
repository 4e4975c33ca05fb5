package sniffer

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"content-fetch/internal/fetcherr"

	"gopkg.in/yaml.v3"
)

// Entry binds a content type to its file extensions.
type Entry struct {
	Type       string   `yaml:"type"`
	Extensions []string `yaml:"extensions"`
}

// Table maps extensions to content types. Entries are keyed by type: adding a type again replaces it.
type Table struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewTable() *Table {
	t := &Table{}
	t.Add(TypeHTML, "html", "htm")
	t.Add(TypePlain, "txt")
	t.Add(TypeMarkdown, "md", "markdown")
	return t
}

// LoadTableFile reads extra entries from a YAML list of {type, extensions}.
func LoadTableFile(t *Table, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read mime table: %w", err)
	}

	var entries []Entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parse mime table %s: %w", path, err)
	}

	for _, e := range entries {
		if e.Type == "" {
			return fmt.Errorf("parse mime table %s: entry without type", path)
		}
		t.Add(e.Type, e.Extensions...)
	}
	return nil
}

func (t *Table) Add(contentType string, extensions ...string) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			exts = append(exts, ext)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.removeLocked(contentType)
	t.entries = append(t.entries, Entry{Type: contentType, Extensions: exts})
}

func (t *Table) Remove(contentType string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.removeLocked(strings.ToLower(contentType))
}

func (t *Table) removeLocked(contentType string) {
	for i, e := range t.entries {
		if e.Type == contentType {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

// TypeFromExtension maps the extension of the last path segment, before any query or fragment,
// to a registered type.
func (t *Table) TypeFromExtension(path string) (string, error) {
	ext, ok := extensionOf(path)
	if !ok {
		return "", fmt.Errorf("%w: no extension in %q", fetcherr.ErrNotFound, path)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, e := range t.entries {
		for _, candidate := range e.Extensions {
			if candidate == ext {
				return e.Type, nil
			}
		}
	}
	return "", fmt.Errorf("%w: extension %q", fetcherr.ErrNotFound, ext)
}

// Lookup finds the entry for a content type. A subtype with a leading "x-" also matches the entry
// without it (text/x-markdown finds text/markdown); this is a compatibility shim.
func (t *Table) Lookup(contentType string) (Entry, bool) {
	contentType = baseType(contentType)

	t.mu.RLock()
	defer t.mu.RUnlock()

	if e, ok := t.findLocked(contentType); ok {
		return e, true
	}

	if major, minor, ok := strings.Cut(contentType, "/"); ok && strings.HasPrefix(minor, "x-") {
		return t.findLocked(major + "/" + strings.TrimPrefix(minor, "x-"))
	}
	return Entry{}, false
}

func (t *Table) findLocked(contentType string) (Entry, bool) {
	for _, e := range t.entries {
		if e.Type == contentType {
			return Entry{Type: e.Type, Extensions: append([]string(nil), e.Extensions...)}, true
		}
	}
	return Entry{}, false
}

func extensionOf(path string) (string, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}

	dot := strings.LastIndexByte(path, '.')
	if dot < 0 || dot == len(path)-1 {
		return "", false
	}
	return strings.ToLower(path[dot+1:]), true
}

// Classify resolves the type of content fetched from path. A generic declaration is first replaced by
// the extension mapping, a registered alias is canonicalised, then the bytes are sniffed.
func (t *Table) Classify(declared, path string, data []byte) string {
	declared = baseType(declared)

	if _, generic := genericTypes[declared]; generic {
		if byExt, err := t.TypeFromExtension(path); err == nil {
			declared = byExt
		}
	}

	if e, ok := t.Lookup(declared); ok {
		declared = e.Type
	}

	return Sniff(declared, data)
}
