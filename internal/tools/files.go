package tools

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"forge/internal/vfs"
)

// resolve looks p up as a path and, for a separator-free argument, falls
// back to a name search across the whole tree.
func resolve(t *vfs.Tree, p string) *vfs.Node {
	if n := t.LookupByPath(p); n != nil {
		return n
	}
	if p != "" && p != "." && !strings.Contains(p, "/") {
		return t.LookupByName(p)
	}
	return nil
}

// NewDefaultRegistry registers read_file, list_files, edit_file and
// create_file against store.
func NewDefaultRegistry(store *vfs.Store) *Registry {
	r := NewRegistry()
	for _, t := range []Tool{
		NewReadFileTool(store),
		NewListFilesTool(store),
		NewEditFileTool(store),
		NewCreateFileTool(store),
	} {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

type ReadFileTool struct{ store *vfs.Store }

func NewReadFileTool(store *vfs.Store) *ReadFileTool { return &ReadFileTool{store: store} }

func (t *ReadFileTool) Definition() Definition {
	return Definition{
		Name:        "read_file",
		Description: "Reads the contents of a file at a given relative path. Only use for text files.",
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"path": {Type: "string", Description: "Relative path, e.g. './src/App.jsx'"},
			},
			Required: []string{"path"},
		},
	}
}

func (t *ReadFileTool) Invoke(_ context.Context, input map[string]any) Result {
	p, ok := stringArg(input, "path")
	if !ok || p == "" {
		return Fail("Error reading file: path is required")
	}
	node := resolve(t.store.Tree(), p)
	if node == nil {
		return Fail("Error reading file: File not found at path %s", p)
	}
	if !node.IsFile() {
		return Fail("Error reading file: %s is not a file", p)
	}
	return Output(node.Text())
}

type ListFilesTool struct{ store *vfs.Store }

func NewListFilesTool(store *vfs.Store) *ListFilesTool { return &ListFilesTool{store: store} }

func (t *ListFilesTool) Definition() Definition {
	return Definition{
		Name:        "list_files",
		Description: "Lists files and directories at a given path. Defaults to '.' if no path provided.",
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"path": {Type: "string", Description: "Optional path to list contents from."},
			},
			Required: []string{},
		},
	}
}

func (t *ListFilesTool) Invoke(_ context.Context, input map[string]any) Result {
	p, ok := stringArg(input, "path")
	if !ok || p == "" {
		p = "."
	}
	dir := resolve(t.store.Tree(), p)
	if dir == nil {
		return Fail("Error listing files: Directory not found at path %s", p)
	}
	if !dir.IsFolder() {
		return Fail("Error listing files: %s is not a directory", p)
	}

	names := make([]string, 0, len(dir.Children))
	for _, c := range dir.Children {
		if c.IsFolder() {
			names = append(names, c.Name+"/")
		} else {
			names = append(names, c.Name)
		}
	}
	b, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return Fail("Error listing files: %v", err)
	}
	return Output(string(b))
}

type EditFileTool struct{ store *vfs.Store }

func NewEditFileTool(store *vfs.Store) *EditFileTool { return &EditFileTool{store: store} }

func (t *EditFileTool) Definition() Definition {
	return Definition{
		Name: "edit_file",
		Description: "Make edits to a text file.\n" +
			"Replaces 'old_str' with 'new_str' in the given file. 'old_str' and 'new_str' MUST be different from each other.\n" +
			"If the file specified with path doesn't exist and 'old_str' is empty, it will be created with 'new_str' as content.\n" +
			"An empty 'old_str' on an existing file is only accepted when the file is empty.",
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"path":    {Type: "string", Description: "Path to the file"},
				"old_str": {Type: "string", Description: "Text to search for"},
				"new_str": {Type: "string", Description: "Text to replace old_str with"},
			},
			Required: []string{"path", "old_str", "new_str"},
		},
	}
}

func (t *EditFileTool) Invoke(_ context.Context, input map[string]any) Result {
	p, _ := stringArg(input, "path")
	oldStr, hasOld := stringArg(input, "old_str")
	newStr, hasNew := stringArg(input, "new_str")
	if p == "" || !hasOld || !hasNew || oldStr == newStr {
		return Fail("Invalid input parameters.")
	}

	var res Result
	_ = t.store.Update(func(tree *vfs.Tree) (*vfs.Tree, error) {
		file := resolve(tree, p)
		if file == nil {
			if oldStr != "" {
				res = Fail("Error editing file: File not found at path %s", p)
				return tree, nil
			}
			next, r := createWithContent(tree, vfs.Normalize(p), newStr)
			if r.OK {
				r = Succeed("Created new file at %s", p)
			}
			res = r
			return next, nil
		}
		if !file.IsFile() {
			res = Fail("Error editing file: %s is not a file", p)
			return tree, nil
		}

		content := file.Text()
		if oldStr == "" {
			if content != "" {
				res = Fail("old_str must not be empty when editing a non-empty file. Use create_file to replace the whole file.")
				return tree, nil
			}
			next, err := tree.SetContent(file.ID, newStr)
			if err != nil {
				res = Fail("Error editing file: %v", err)
				return tree, nil
			}
			res = Succeed("File edited successfully.")
			return next, nil
		}
		if !strings.Contains(content, oldStr) {
			res = Fail("old_str not found in file.")
			return tree, nil
		}
		next, err := tree.SetContent(file.ID, strings.ReplaceAll(content, oldStr, newStr))
		if err != nil {
			res = Fail("Error editing file: %v", err)
			return tree, nil
		}
		res = Succeed("File edited successfully.")
		return next, nil
	})
	return res
}

type CreateFileTool struct{ store *vfs.Store }

func NewCreateFileTool(store *vfs.Store) *CreateFileTool { return &CreateFileTool{store: store} }

func (t *CreateFileTool) Definition() Definition {
	return Definition{
		Name:        "create_file",
		Description: "Creates a new file with the given content. Overwrites the file if it already exists. The parent directory must exist.",
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"path":    {Type: "string", Description: "Path of the new file, e.g. './src/NewFile.js'"},
				"content": {Type: "string", Description: "Full content of the file"},
			},
			Required: []string{"path", "content"},
		},
	}
}

func (t *CreateFileTool) Invoke(_ context.Context, input map[string]any) Result {
	p, _ := stringArg(input, "path")
	content, hasContent := stringArg(input, "content")
	if p == "" || !hasContent {
		return Fail("Invalid input parameters.")
	}
	target := vfs.Normalize(p)

	var res Result
	_ = t.store.Update(func(tree *vfs.Tree) (*vfs.Tree, error) {
		if existing := tree.LookupByPath(target); existing != nil {
			if existing.IsFolder() {
				res = Fail("Failed to create file: %s is a directory", p)
				return tree, nil
			}
			next, err := tree.SetContent(existing.ID, content)
			if err != nil {
				res = Fail("Failed to create file: %v", err)
				return tree, nil
			}
			res = Succeed("Updated existing file at %s", p)
			return next, nil
		}
		next, r := createWithContent(tree, target, content)
		if r.OK {
			r = Succeed("Created new file at %s", p)
		}
		res = r
		return next, nil
	})
	return res
}

// createWithContent adds a file at the normalized path target and fills it.
func createWithContent(tree *vfs.Tree, target, content string) (*vfs.Tree, Result) {
	parentPath, name := path.Dir(target), path.Base(target)
	parent := tree.LookupByPath(parentPath)
	if parent == nil || !parent.IsFolder() {
		return tree, Fail("Failed to create file: Parent directory %s not found", parentPath)
	}
	next, err := tree.CreateFile(parent.Path, name)
	if err != nil {
		return tree, Fail("Failed to create file: %v", err)
	}
	created := next.LookupByPath(parent.Path + "/" + name)
	if created == nil || !created.IsFile() {
		return tree, Fail("Failed to create file")
	}
	next, err = next.SetContent(created.ID, content)
	if err != nil {
		return tree, Fail("Failed to create file: %v", err)
	}
	return next, Succeed("created")
}
