// Package vfs is the in-memory virtual file tree shared by the editor, the
// preview and the agent tools.
package vfs

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// RootPath is the path of the workspace root folder.
const RootPath = "/project"

type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

func (k Kind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "file"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "file":
		*k = KindFile
	case "folder":
		*k = KindFolder
	default:
		return fmt.Errorf("unknown node kind %q", string(b))
	}
	return nil
}

// Node is a file or folder. Nodes reachable from a Tree are shared between
// tree versions and must be treated as read-only.
type Node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Kind     Kind    `json:"kind"`
	Path     string  `json:"path"`
	Content  *string `json:"content,omitempty"`
	Children []*Node `json:"children,omitempty"`
	Expanded bool    `json:"expanded,omitempty"`
}

func (n *Node) IsFile() bool   { return n != nil && n.Kind == KindFile }
func (n *Node) IsFolder() bool { return n != nil && n.Kind == KindFolder }

// Text returns the file content, or "" when unset.
func (n *Node) Text() string {
	if n == nil || n.Content == nil {
		return ""
	}
	return *n.Content
}

func (n *Node) shallow() *Node {
	cp := *n
	return &cp
}

// SortedChildren returns the children in display order: folders before
// files, each group alphabetical. The canonical order is left untouched.
func SortedChildren(n *Node) []*Node {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	out := make([]*Node, len(n.Children))
	copy(out, n.Children)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == KindFolder
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Normalize turns a user or model supplied path into an absolute,
// root-qualified path without a trailing separator. Every relative path is
// taken against RootPath, so "project/x" names /project/project/x.
// Normalize is idempotent.
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return RootPath
	}
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	return path.Clean(RootPath + "/" + p)
}

// ValidName reports whether name can be used as a leaf name.
func ValidName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, "/")
}

func childPath(parentPath, name string) string {
	if parentPath == "/" {
		return "/" + name
	}
	return parentPath + "/" + name
}
