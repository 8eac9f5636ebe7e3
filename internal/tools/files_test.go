package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"forge/internal/vfs"
)

func newTestRegistry(t *testing.T) (*Registry, *vfs.Store) {
	t.Helper()
	store := vfs.NewStore(vfs.NewSeedTree())
	return NewDefaultRegistry(store), store
}

func invoke(t *testing.T, r *Registry, name string, input map[string]any) Result {
	t.Helper()
	res, ok := r.Invoke(context.Background(), name, input)
	require.True(t, ok, "tool %s not registered", name)
	return res
}

func TestReadFile(t *testing.T) {
	r, store := newTestRegistry(t)
	want := store.Tree().LookupByPath("./src/App.jsx").Text()

	tests := []struct {
		name   string
		input  map[string]any
		ok     bool
		expect string
	}{
		{"relative path", map[string]any{"path": "./src/App.jsx"}, true, want},
		{"bare name falls back to search", map[string]any{"path": "App.jsx"}, true, want},
		{"missing file", map[string]any{"path": "./src/Nope.jsx"}, false, "File not found"},
		{"folder", map[string]any{"path": "./src"}, false, "is not a file"},
		{"no path", map[string]any{}, false, "path is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := invoke(t, r, "read_file", tt.input)
			require.Equal(t, tt.ok, res.OK)
			if tt.ok {
				require.Equal(t, tt.expect, res.String())
				return
			}
			require.True(t, strings.HasPrefix(res.String(), FailureMarker))
			require.Contains(t, res.String(), tt.expect)
		})
	}
}

func TestReadFileEmptyContent(t *testing.T) {
	r, store := newTestRegistry(t)
	_, err := store.CreateFile("/project", "empty.txt")
	require.NoError(t, err)

	res := invoke(t, r, "read_file", map[string]any{"path": "./empty.txt"})
	require.True(t, res.OK)
	require.Equal(t, "", res.String())
}

func TestListFiles(t *testing.T) {
	r, _ := newTestRegistry(t)

	res := invoke(t, r, "list_files", map[string]any{"path": "./src"})
	require.True(t, res.OK)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(res.String()), &names))
	require.Equal(t, []string{"App.jsx", "index.jsx", "styles.css"}, names)

	res = invoke(t, r, "list_files", map[string]any{})
	require.True(t, res.OK)
	require.NoError(t, json.Unmarshal([]byte(res.String()), &names))
	require.Equal(t, []string{"src/", "package.json"}, names)

	res = invoke(t, r, "list_files", map[string]any{"path": "src"})
	require.True(t, res.OK)

	res = invoke(t, r, "list_files", map[string]any{"path": "./package.json"})
	require.False(t, res.OK)
	require.Contains(t, res.String(), "is not a directory")

	res = invoke(t, r, "list_files", map[string]any{"path": "./ghost"})
	require.False(t, res.OK)
	require.Contains(t, res.String(), "Directory not found")
}

func TestEditFileRejectsEqualStrings(t *testing.T) {
	for _, content := range []string{"", "abc", "abcabc"} {
		r, store := newTestRegistry(t)
		id := store.Tree().LookupByPath("./src/App.jsx").ID
		require.NoError(t, store.SetContent(id, content))
		before := store.Tree()

		for _, s := range []string{"", "abc", "zzz"} {
			res := invoke(t, r, "edit_file", map[string]any{"path": "./src/App.jsx", "old_str": s, "new_str": s})
			require.False(t, res.OK)
			require.Equal(t, FailureMarker+"Invalid input parameters.", res.String())
		}
		require.Same(t, before, store.Tree())
		require.Equal(t, content, store.Tree().LookupByID(id).Text())
	}
}

func TestEditFileMissingSubstringLeavesContent(t *testing.T) {
	r, store := newTestRegistry(t)
	before := store.Tree().LookupByPath("./src/App.jsx").Text()

	for _, old := range []string{"Goodbye", "hello znet!", "\t\t"} {
		res := invoke(t, r, "edit_file", map[string]any{"path": "./src/App.jsx", "old_str": old, "new_str": "x"})
		require.False(t, res.OK)
		require.True(t, strings.HasPrefix(res.String(), FailureMarker))
		require.Contains(t, res.String(), "old_str not found")
		require.Equal(t, before, store.Tree().LookupByPath("./src/App.jsx").Text())
	}
}

func TestEditFileReplacesEveryOccurrence(t *testing.T) {
	r, store := newTestRegistry(t)
	id := store.Tree().LookupByPath("./src/styles.css").ID
	require.NoError(t, store.SetContent(id, "a.b a.b (a.b)"))

	res := invoke(t, r, "edit_file", map[string]any{"path": "./src/styles.css", "old_str": "a.b", "new_str": "c"})
	require.True(t, res.OK, res.String())
	require.True(t, strings.HasPrefix(res.String(), SuccessMarker))
	require.Equal(t, "c c (c)", store.Tree().LookupByID(id).Text())
}

func TestEditFileCreatesWhenOldStrEmpty(t *testing.T) {
	r, store := newTestRegistry(t)

	res := invoke(t, r, "edit_file", map[string]any{"path": "./src/New.jsx", "old_str": "", "new_str": "export {}"})
	require.True(t, res.OK, res.String())
	require.Equal(t, "export {}", store.Tree().LookupByPath("./src/New.jsx").Text())

	res = invoke(t, r, "edit_file", map[string]any{"path": "./ghost/New.jsx", "old_str": "", "new_str": "x"})
	require.False(t, res.OK)
	require.Contains(t, res.String(), "Parent directory")

	res = invoke(t, r, "edit_file", map[string]any{"path": "./src/Other.jsx", "old_str": "a", "new_str": "b"})
	require.False(t, res.OK)
	require.Nil(t, store.Tree().LookupByPath("./src/Other.jsx"))
}

func TestEditFileEmptyOldStrOnExistingFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ok      bool
		want    string
	}{
		{name: "empty file takes new_str", content: "", ok: true, want: "X"},
		{name: "non-empty file is left alone", content: "abc", ok: false, want: "abc"},
		{name: "whitespace counts as content", content: "\n", ok: false, want: "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newTestRegistry(t)
			id := store.Tree().LookupByPath("./src/App.jsx").ID
			require.NoError(t, store.SetContent(id, tt.content))

			res := invoke(t, r, "edit_file", map[string]any{"path": "./src/App.jsx", "old_str": "", "new_str": "X"})
			require.Equal(t, tt.ok, res.OK, res.String())
			if tt.ok {
				require.Equal(t, SuccessMarker+"File edited successfully.", res.String())
			} else {
				require.True(t, strings.HasPrefix(res.String(), FailureMarker))
				require.Contains(t, res.String(), "old_str must not be empty")
			}
			require.Equal(t, tt.want, store.Tree().LookupByID(id).Text())
		})
	}
}

func TestEditFileOnFolderFails(t *testing.T) {
	r, _ := newTestRegistry(t)
	res := invoke(t, r, "edit_file", map[string]any{"path": "./src", "old_str": "a", "new_str": "b"})
	require.False(t, res.OK)
	require.Contains(t, res.String(), "is not a file")
}

func TestCreateFileOverwrites(t *testing.T) {
	r, _ := newTestRegistry(t)

	res := invoke(t, r, "create_file", map[string]any{"path": "./src/Note.md", "content": "first"})
	require.True(t, res.OK, res.String())
	res = invoke(t, r, "create_file", map[string]any{"path": "./src/Note.md", "content": "second"})
	require.True(t, res.OK, res.String())
	require.Contains(t, res.String(), "Updated existing file")

	read := invoke(t, r, "read_file", map[string]any{"path": "./src/Note.md"})
	require.Equal(t, "second", read.String())
}

func TestCreateFileFailures(t *testing.T) {
	r, store := newTestRegistry(t)
	before := store.Tree()

	tests := []struct {
		name   string
		input  map[string]any
		expect string
	}{
		{"folder at target", map[string]any{"path": "./src", "content": "x"}, "is a directory"},
		{"missing parent", map[string]any{"path": "./lib/util.js", "content": "x"}, "Parent directory"},
		{"parent is file", map[string]any{"path": "./package.json/x", "content": "x"}, "Parent directory"},
		{"missing content", map[string]any{"path": "./a.js"}, "Invalid input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := invoke(t, r, "create_file", tt.input)
			require.False(t, res.OK)
			require.Contains(t, res.String(), tt.expect)
		})
	}
	require.Same(t, before, store.Tree())
}

func TestRegistry(t *testing.T) {
	r, store := newTestRegistry(t)

	require.Equal(t, []string{"read_file", "list_files", "edit_file", "create_file"}, r.Names())
	require.Error(t, r.Register(NewReadFileTool(store)))
	require.Error(t, r.Register(nil))

	_, ok := r.Invoke(context.Background(), "delete_everything", nil)
	require.False(t, ok)

	desc := r.Describe()
	require.Contains(t, desc, "edit_file\n   • Description: ")
	require.Contains(t, desc, `"required":["path","old_str","new_str"]`)
}

func TestSummarize(t *testing.T) {
	require.Equal(t, "READ App.jsx (2 lines)", Summarize("read_file", map[string]any{"path": "./src/App.jsx"}, Output("a\nb")))
	require.Equal(t, "LIST src (2 entries)", Summarize("list_files", map[string]any{"path": "./src"}, Output(`["a","b/"]`)))
	require.Equal(t, "EDIT App.jsx (failed)", Summarize("edit_file", map[string]any{"path": "./src/App.jsx"}, Fail("nope")))
	require.Equal(t, "CREATE x.js (1 lines)", Summarize("create_file", map[string]any{"path": "x.js", "content": "y"}, Succeed("ok")))
}
