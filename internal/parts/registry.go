// Package parts keeps decoded content blobs addressable by (scope, id) for the lifetime of their document.
package parts

import (
	"fmt"
	"strings"
	"sync"

	"content-fetch/internal/fetcherr"

	"go.uber.org/zap"
)

const (
	// DataPrefix marks ids that are full inline-data locators. Such parts live outside any scope.
	DataPrefix = "data:"

	DefaultContentType = "application/octet-stream"
)

// Part is a registered blob. Data belongs to the registry: callers must not modify it.
type Part struct {
	Scope       string
	ID          string
	ContentType string
	Data        []byte
}

// Registry stores parts in registration order. Every operation holds the lock for its full duration.
type Registry struct {
	logger *zap.SugaredLogger

	mu    sync.Mutex
	parts []*Part
}

func NewRegistry(logger *zap.SugaredLogger) *Registry {
	return &Registry{logger: logger}
}

// Register stores data under (scope, id) and takes ownership of it. An existing part with the same key
// is replaced in place, so Find always sees the latest registration.
func (r *Registry) Register(scope, id, contentType string, data []byte) error {
	if id == "" || len(data) == 0 {
		return ErrRejected
	}

	if scope == "" && !IsDataLocator(id) {
		return fmt.Errorf("%w: scope-less id %q is not an inline-data locator", ErrRejected, id)
	}

	part := &Part{Scope: scope, ID: id, ContentType: contentType, Data: data}

	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.index(scope, id); i >= 0 {
		r.parts[i] = part
		return nil
	}

	r.parts = append(r.parts, part)
	return nil
}

// Find returns the part matching (scope, id). Inline-data ids match regardless of scope; other ids need
// a case-insensitive scope match and compare with enclosing angle brackets stripped.
// The returned part always carries a content type.
func (r *Registry) Find(scope, id string) (Part, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(scope, id)
	if i < 0 {
		return Part{}, fmt.Errorf("%w: part %q in %q", fetcherr.ErrNotFound, id, scope)
	}

	part := *r.parts[i]
	if part.ContentType == "" {
		part.ContentType = DefaultContentType
	}
	return part, nil
}

// Purge drops every part registered under scope.
func (r *Registry) Purge(scope string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.parts[:0]
	removed := 0
	for _, p := range r.parts {
		if strings.EqualFold(p.Scope, scope) {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	clear(r.parts[len(kept):])
	r.parts = kept

	if removed > 0 {
		r.logger.Debugw("Purged parts", "scope", scope, "count", removed)
	}
	return removed
}

// Shutdown drops all parts.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debugw("Registry shutdown", "count", len(r.parts))
	clear(r.parts)
	r.parts = nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.parts)
}

func (r *Registry) index(scope, id string) int {
	if IsDataLocator(id) {
		for i, p := range r.parts {
			if p.ID == id {
				return i
			}
		}
		return -1
	}

	want := stripBrackets(id)
	for i, p := range r.parts {
		if strings.EqualFold(p.Scope, scope) && stripBrackets(p.ID) == want {
			return i
		}
	}
	return -1
}

func IsDataLocator(id string) bool {
	return len(id) >= len(DataPrefix) && strings.EqualFold(id[:len(DataPrefix)], DataPrefix)
}

func stripBrackets(id string) string {
	id = strings.TrimPrefix(id, "<")
	return strings.TrimSuffix(id, ">")
}
