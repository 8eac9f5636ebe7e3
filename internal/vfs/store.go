package vfs

import "sync"

// Store owns the current Tree and the active selection. Editor edits and
// tool invocations both go through it so mutations are serialized.
type Store struct {
	mu       sync.Mutex
	tree     *Tree
	activeID string

	onChange []func(*Tree)
	onDelete []func(ids []string)
}

func NewStore(t *Tree) *Store {
	if t == nil {
		t = NewTree()
	}
	return &Store{tree: t}
}

// Tree returns the current snapshot.
func (s *Store) Tree() *Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree
}

// Replace swaps in a whole tree, e.g. a restored workspace snapshot.
func (s *Store) Replace(t *Tree) {
	s.mu.Lock()
	s.tree = t
	if s.activeID != "" && t.LookupByID(s.activeID) == nil {
		s.activeID = ""
	}
	s.mu.Unlock()
	s.notifyChange(t)
}

func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns the selected node, or nil.
func (s *Store) Active() *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == "" {
		return nil
	}
	return s.tree.LookupByID(s.activeID)
}

func (s *Store) SetActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
}

// OnChange registers fn to run after every successful mutation.
func (s *Store) OnChange(fn func(*Tree)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// OnDelete registers fn to receive the ids removed by Delete.
func (s *Store) OnDelete(fn func(ids []string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = append(s.onDelete, fn)
}

// Update runs fn against the current tree under the store lock and installs
// the tree it returns. fn must not call back into the Store.
func (s *Store) Update(fn func(*Tree) (*Tree, error)) error {
	s.mu.Lock()
	next, err := fn(s.tree)
	if err != nil || next == nil || next == s.tree {
		s.mu.Unlock()
		return err
	}
	s.tree = next
	s.mu.Unlock()
	s.notifyChange(next)
	return nil
}

func (s *Store) CreateFile(parentPath, name string) (*Node, error) {
	return s.create(parentPath, name, KindFile)
}

func (s *Store) CreateFolder(parentPath, name string) (*Node, error) {
	return s.create(parentPath, name, KindFolder)
}

func (s *Store) create(parentPath, name string, kind Kind) (*Node, error) {
	var created *Node
	err := s.Update(func(t *Tree) (*Tree, error) {
		next, err := t.create(parentPath, name, kind)
		if err != nil {
			return t, err
		}
		parent := next.LookupByPath(parentPath)
		created = next.LookupByPath(childPath(parent.Path, name))
		return next, nil
	})
	return created, err
}

func (s *Store) Rename(id, newName string) (*Node, error) {
	var renamed *Node
	err := s.Update(func(t *Tree) (*Tree, error) {
		next, err := t.Rename(id, newName)
		if err != nil {
			return t, err
		}
		renamed = next.LookupByID(id)
		return next, nil
	})
	return renamed, err
}

// Delete removes a node and its descendants, clears the active selection
// when it was removed and notifies OnDelete hooks.
func (s *Store) Delete(id string) ([]string, error) {
	s.mu.Lock()
	next, removed, err := s.tree.Delete(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.tree = next
	for _, r := range removed {
		if r == s.activeID {
			s.activeID = ""
			break
		}
	}
	hooks := append([]func([]string){}, s.onDelete...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(removed)
	}
	s.notifyChange(next)
	return removed, nil
}

func (s *Store) SetContent(id, content string) error {
	return s.Update(func(t *Tree) (*Tree, error) { return t.SetContent(id, content) })
}

func (s *Store) ToggleExpand(id string) error {
	return s.Update(func(t *Tree) (*Tree, error) { return t.ToggleExpand(id) })
}

func (s *Store) notifyChange(t *Tree) {
	s.mu.Lock()
	hooks := append([]func(*Tree){}, s.onChange...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(t)
	}
}
