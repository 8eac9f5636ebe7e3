package vfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("node not found")
	ErrNotFolder    = errors.New("not a folder")
	ErrNotFile      = errors.New("not a file")
	ErrInvalidName  = errors.New("invalid name")
	ErrNameConflict = errors.New("name already exists")
	ErrRootLocked   = errors.New("root folder cannot be changed")

	ErrInvalidSnapshot = errors.New("invalid workspace snapshot")
)

// Tree is an immutable snapshot of the workspace. Every mutator returns a
// new Tree that shares untouched subtrees with the receiver; on failure the
// receiver itself is returned together with the error.
type Tree struct {
	root *Node
}

// NewTree returns a tree holding only an empty, expanded root folder.
func NewTree() *Tree {
	return &Tree{root: &Node{
		ID:       newID(KindFolder),
		Name:     strings.TrimPrefix(RootPath, "/"),
		Kind:     KindFolder,
		Path:     RootPath,
		Expanded: true,
	}}
}

func newID(kind Kind) string {
	return kind.String() + "-" + uuid.NewString()
}

func (t *Tree) Root() *Node { return t.root }

// Walk visits every node depth-first in canonical order. Returning false
// from fn stops the walk.
func (t *Tree) Walk(fn func(*Node) bool) {
	walk(t.root, fn)
}

func walk(n *Node, fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !walk(child, fn) {
			return false
		}
	}
	return true
}

func (t *Tree) find(match func(*Node) bool) *Node {
	var found *Node
	t.Walk(func(n *Node) bool {
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// LookupByPath resolves p after normalization. An exact match wins over a
// case-insensitive one. Returns nil when absent.
func (t *Tree) LookupByPath(p string) *Node {
	target := Normalize(p)
	if n := t.find(func(n *Node) bool { return n.Path == target }); n != nil {
		return n
	}
	return t.find(func(n *Node) bool { return strings.EqualFold(n.Path, target) })
}

// LookupByName returns the first node whose leaf name matches
// case-insensitively. Each level is scanned before descending.
func (t *Tree) LookupByName(name string) *Node {
	if name == "" {
		return nil
	}
	return findByName([]*Node{t.root}, name)
}

func findByName(nodes []*Node, name string) *Node {
	for _, n := range nodes {
		if strings.EqualFold(n.Name, name) {
			return n
		}
	}
	for _, n := range nodes {
		if found := findByName(n.Children, name); found != nil {
			return found
		}
	}
	return nil
}

func (t *Tree) LookupByID(id string) *Node {
	return t.find(func(n *Node) bool { return n.ID == id })
}

func (t *Tree) parentOf(id string) *Node {
	return t.find(func(n *Node) bool {
		for _, c := range n.Children {
			if c.ID == id {
				return true
			}
		}
		return false
	})
}

// rewrite copies the spine from n down to the node identified by id and
// replaces that node with fn's result; a nil result removes it.
func rewrite(n *Node, id string, fn func(*Node) *Node) (*Node, bool) {
	if n.ID == id {
		return fn(n), true
	}
	for i, child := range n.Children {
		replaced, ok := rewrite(child, id, fn)
		if !ok {
			continue
		}
		cp := n.shallow()
		cp.Children = make([]*Node, 0, len(n.Children))
		cp.Children = append(cp.Children, n.Children[:i]...)
		if replaced != nil {
			cp.Children = append(cp.Children, replaced)
		}
		cp.Children = append(cp.Children, n.Children[i+1:]...)
		return cp, true
	}
	return n, false
}

func (t *Tree) apply(id string, fn func(*Node) *Node) (*Tree, bool) {
	root, ok := rewrite(t.root, id, fn)
	if !ok {
		return t, false
	}
	return &Tree{root: root}, true
}

func (t *Tree) CreateFile(parentPath, name string) (*Tree, error) {
	return t.create(parentPath, name, KindFile)
}

func (t *Tree) CreateFolder(parentPath, name string) (*Tree, error) {
	return t.create(parentPath, name, KindFolder)
}

func (t *Tree) create(parentPath, name string, kind Kind) (*Tree, error) {
	if !ValidName(name) {
		return t, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	parent := t.LookupByPath(parentPath)
	if parent == nil {
		return t, fmt.Errorf("parent %s: %w", parentPath, ErrNotFound)
	}
	if !parent.IsFolder() {
		return t, fmt.Errorf("parent %s: %w", parentPath, ErrNotFolder)
	}
	for _, c := range parent.Children {
		if c.Name == name {
			return t, fmt.Errorf("%s: %w", childPath(parent.Path, name), ErrNameConflict)
		}
	}

	node := &Node{
		ID:   newID(kind),
		Name: name,
		Kind: kind,
		Path: childPath(parent.Path, name),
	}
	if kind == KindFile {
		empty := ""
		node.Content = &empty
	}

	next, _ := t.apply(parent.ID, func(p *Node) *Node {
		cp := p.shallow()
		cp.Expanded = true
		cp.Children = append(append(make([]*Node, 0, len(p.Children)+1), p.Children...), node)
		return cp
	})
	return next, nil
}

// Rename changes a node's name and recomputes the path of the node and of
// every descendant.
func (t *Tree) Rename(id, newName string) (*Tree, error) {
	if id == t.root.ID {
		return t, ErrRootLocked
	}
	if !ValidName(newName) {
		return t, fmt.Errorf("%w: %q", ErrInvalidName, newName)
	}
	parent := t.parentOf(id)
	if parent == nil {
		return t, fmt.Errorf("id %s: %w", id, ErrNotFound)
	}
	for _, c := range parent.Children {
		if c.ID != id && c.Name == newName {
			return t, fmt.Errorf("%s: %w", childPath(parent.Path, newName), ErrNameConflict)
		}
	}

	next, _ := t.apply(id, func(n *Node) *Node {
		cp := n.shallow()
		cp.Name = newName
		return withPath(cp, childPath(parent.Path, newName))
	})
	return next, nil
}

func withPath(n *Node, p string) *Node {
	cp := n.shallow()
	cp.Path = p
	if len(n.Children) > 0 {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = withPath(c, childPath(p, c.Name))
		}
	}
	return cp
}

// Delete removes the node and its descendants. The removed ids are returned
// so callers can drop selections and tabs that point at them.
func (t *Tree) Delete(id string) (*Tree, []string, error) {
	if id == t.root.ID {
		return t, nil, ErrRootLocked
	}
	target := t.LookupByID(id)
	if target == nil {
		return t, nil, fmt.Errorf("id %s: %w", id, ErrNotFound)
	}
	var removed []string
	walk(target, func(n *Node) bool {
		removed = append(removed, n.ID)
		return true
	})
	next, _ := t.apply(id, func(*Node) *Node { return nil })
	return next, removed, nil
}

// SetContent replaces a file's content. Folders are left untouched.
func (t *Tree) SetContent(id, content string) (*Tree, error) {
	target := t.LookupByID(id)
	if target == nil {
		return t, fmt.Errorf("id %s: %w", id, ErrNotFound)
	}
	if !target.IsFile() {
		return t, fmt.Errorf("%s: %w", target.Path, ErrNotFile)
	}
	next, _ := t.apply(id, func(n *Node) *Node {
		cp := n.shallow()
		c := content
		cp.Content = &c
		return cp
	})
	return next, nil
}

func (t *Tree) ToggleExpand(id string) (*Tree, error) {
	target := t.LookupByID(id)
	if target == nil {
		return t, fmt.Errorf("id %s: %w", id, ErrNotFound)
	}
	if !target.IsFolder() {
		return t, fmt.Errorf("%s: %w", target.Path, ErrNotFolder)
	}
	next, _ := t.apply(id, func(n *Node) *Node {
		cp := n.shallow()
		cp.Expanded = !n.Expanded
		return cp
	})
	return next, nil
}

func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.root)
}

// UnmarshalJSON restores a snapshot written by MarshalJSON. Stored paths
// are ignored and rebuilt from the names under RootPath; a snapshot whose
// shape could not have come from the tree operations is rejected.
func (t *Tree) UnmarshalJSON(b []byte) error {
	var root Node
	if err := json.Unmarshal(b, &root); err != nil {
		return err
	}
	if root.Kind != KindFolder {
		return fmt.Errorf("%w: root: %w", ErrInvalidSnapshot, ErrNotFolder)
	}
	root.Name = strings.TrimPrefix(RootPath, "/")
	restored, err := restoreNode(&root, RootPath, map[string]bool{})
	if err != nil {
		return err
	}
	t.root = restored
	return nil
}

func restoreNode(n *Node, p string, seen map[string]bool) (*Node, error) {
	if n.ID == "" {
		return nil, fmt.Errorf("%w: %s: missing id", ErrInvalidSnapshot, p)
	}
	if seen[n.ID] {
		return nil, fmt.Errorf("%w: %s: duplicate id %s", ErrInvalidSnapshot, p, n.ID)
	}
	seen[n.ID] = true

	cp := n.shallow()
	cp.Path = p
	if n.Kind == KindFile {
		if len(n.Children) > 0 {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSnapshot, p, ErrNotFolder)
		}
		if cp.Content == nil {
			empty := ""
			cp.Content = &empty
		}
		return cp, nil
	}

	if n.Content != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSnapshot, p, ErrNotFile)
	}
	if len(n.Children) == 0 {
		cp.Children = nil
		return cp, nil
	}
	names := make(map[string]bool, len(n.Children))
	cp.Children = make([]*Node, len(n.Children))
	for i, c := range n.Children {
		if c == nil || !ValidName(c.Name) {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSnapshot, p, ErrInvalidName)
		}
		if names[c.Name] {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSnapshot, childPath(p, c.Name), ErrNameConflict)
		}
		names[c.Name] = true
		child, err := restoreNode(c, childPath(p, c.Name), seen)
		if err != nil {
			return nil, err
		}
		cp.Children[i] = child
	}
	return cp, nil
}
