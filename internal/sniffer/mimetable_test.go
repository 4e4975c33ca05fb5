package sniffer

import (
	"os"
	"path/filepath"
	"testing"

	"content-fetch/internal/fetcherr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_TypeFromExtension(t *testing.T) {
	table := NewTable()

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "html", path: "/docs/index.html", want: TypeHTML},
		{name: "htm upper", path: "/docs/INDEX.HTM", want: TypeHTML},
		{name: "txt with query", path: "/a/readme.txt?x=1", want: TypePlain},
		{name: "markdown with fragment", path: "notes.markdown#top", want: TypeMarkdown},
		{name: "md", path: "gopher://host/0/notes.md", want: TypeMarkdown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.TypeFromExtension(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTable_TypeFromExtensionNotFound(t *testing.T) {
	table := NewTable()

	for _, path := range []string{
		"/dir/file",
		"/dir/file?name=a.txt",
		"/dir/file#part.html",
		"/dir.html/file",
		"/dir/file.",
		"/dir/file.unknownext",
		"",
	} {
		_, err := table.TypeFromExtension(path)
		assert.ErrorIs(t, err, fetcherr.ErrNotFound, path)
	}
}

func TestTable_AddReplacesType(t *testing.T) {
	table := NewTable()

	table.Add(TypePlain, "text", ".log")

	_, err := table.TypeFromExtension("a.txt")
	assert.ErrorIs(t, err, fetcherr.ErrNotFound)

	got, err := table.TypeFromExtension("server.LOG")
	require.NoError(t, err)
	assert.Equal(t, TypePlain, got)

	table.Remove(TypePlain)
	_, err = table.TypeFromExtension("server.log")
	assert.ErrorIs(t, err, fetcherr.ErrNotFound)
}

func TestTable_LookupStripsXPrefix(t *testing.T) {
	table := NewTable()

	e, ok := table.Lookup("text/x-markdown; charset=utf-8")
	require.True(t, ok)
	assert.Equal(t, TypeMarkdown, e.Type)
	assert.Equal(t, []string{"md", "markdown"}, e.Extensions)

	_, ok = table.Lookup("text/x-unknown")
	assert.False(t, ok)
}

func TestTable_Classify(t *testing.T) {
	table := NewTable()

	assert.Equal(t, TypeHTML, table.Classify("", "/index.html", []byte("hello")))
	assert.Equal(t, TypeMarkdown, table.Classify("text/x-markdown", "/x", []byte("# t\x01")))
	assert.Equal(t, TypePNG, table.Classify(TypeOctetStream, "/pic", pngHeader))
	assert.Equal(t, TypePlain, table.Classify("", "/file", []byte("words")))
}

func TestLoadTableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mime.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- type: image/webp\n  extensions: [webp]\n- type: text/html\n  extensions: [xhtml]\n"), 0o600))

	table := NewTable()
	require.NoError(t, LoadTableFile(table, path))

	got, err := table.TypeFromExtension("a.webp")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", got)

	_, err = table.TypeFromExtension("a.html")
	assert.ErrorIs(t, err, fetcherr.ErrNotFound)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- extensions: [x]\n"), 0o600))
	assert.Error(t, LoadTableFile(NewTable(), bad))
}
