package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
)

// treeChild is one entry in a TreeObject's overlay: either a loaded Blob,
// a loaded Tree, or an unresolved ObjectId not yet read from the store.
type treeChild struct {
	blob *BlobObject
	tree *TreeObject
	id   *grit.ObjectId
}

// TreeObject is an in-memory overlay over a (possibly not-yet-loaded) grit
// Tree: each child is either a loaded BlobObject, another TreeObject, or an
// unresolved ObjectId resolved lazily on first access (spec.md §4.2).
type TreeObject struct {
	store gritstore.Store

	names    []string
	children map[string]*treeChild

	dirty     bool
	persisted bool
	id        grit.ObjectId
}

// NewTree creates a new, empty, not-yet-persisted TreeObject.
func NewTree(store gritstore.Store) *TreeObject {
	return &TreeObject{
		store:    store,
		children: make(map[string]*treeChild),
		dirty:    true,
	}
}

// NewTreeFromObject wraps an already-stored grit.Tree. Its children are left
// unresolved until accessed.
func NewTreeFromObject(store gritstore.Store, id grit.ObjectId, t grit.Tree) *TreeObject {
	children := make(map[string]*treeChild, len(t.Entries))
	names := make([]string, 0, len(t.Entries))

	for _, e := range t.Entries {
		entryId := e.Id
		children[e.Name] = &treeChild{id: &entryId}
		names = append(names, e.Name)
	}

	return &TreeObject{
		store:     store,
		names:     names,
		children:  children,
		persisted: true,
		id:        id,
	}
}

// Store returns the gritstore.Store this tree resolves unloaded children
// against.
func (t *TreeObject) Store() gritstore.Store {
	return t.store
}

// Dirty reports whether this tree (not counting its children) has unpersisted
// structural changes.
func (t *TreeObject) Dirty() bool {
	return t.dirty || !t.persisted
}

// Id returns the tree's content id, valid only after Persist has been called
// at least once since the last structural mutation.
func (t *TreeObject) Id() grit.ObjectId {
	return t.id
}

// Names returns the child names in tree (insertion) order.
func (t *TreeObject) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// resolve loads an unresolved child by name, caching the result.
func (t *TreeObject) resolve(ctx context.Context, name string) (*treeChild, error) {
	c, ok := t.children[name]
	if !ok {
		return nil, nil
	}
	if c.blob != nil || c.tree != nil {
		return c, nil
	}

	obj, err := t.store.Get(ctx, *c.id)
	if err != nil {
		return nil, fmt.Errorf("core: resolving %q: %w", name, err)
	}

	switch v := obj.(type) {
	case grit.Blob:
		c.blob = NewBlobFromObject(*c.id, v)
	case grit.Tree:
		c.tree = NewTreeFromObject(t.store, *c.id, v)
	default:
		return nil, fmt.Errorf("core: %q is neither a blob nor a tree", name)
	}
	return c, nil
}

// Get returns the child at name: a *BlobObject, a *TreeObject, or nil if
// absent.
func (t *TreeObject) Get(ctx context.Context, name string) (any, error) {
	c, err := t.resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	if c.blob != nil {
		return c.blob, nil
	}
	return c.tree, nil
}

// GetBlob is a convenience wrapper over Get that requires the child to be a
// blob (or absent).
func (t *TreeObject) GetBlob(ctx context.Context, name string) (*BlobObject, error) {
	v, err := t.Get(ctx, name)
	if err != nil || v == nil {
		return nil, err
	}
	b, ok := v.(*BlobObject)
	if !ok {
		return nil, fmt.Errorf("core: %q is a tree, not a blob", name)
	}
	return b, nil
}

// GetTree is a convenience wrapper over Get that requires the child to be a
// tree (or absent).
func (t *TreeObject) GetTree(ctx context.Context, name string) (*TreeObject, error) {
	v, err := t.Get(ctx, name)
	if err != nil || v == nil {
		return nil, err
	}
	sub, ok := v.(*TreeObject)
	if !ok {
		return nil, fmt.Errorf("core: %q is a blob, not a tree", name)
	}
	return sub, nil
}

// GetPath traverses a slash-separated path ("a/b/c") starting at t.
func (t *TreeObject) GetPath(ctx context.Context, path string) (any, error) {
	if path == "" {
		return t, nil
	}

	parts := strings.Split(path, "/")
	cur := any(t)

	for i, part := range parts {
		sub, ok := cur.(*TreeObject)
		if !ok {
			return nil, fmt.Errorf(
				"core: path segment %d (%q) addresses into a blob", i, part,
			)
		}

		v, err := sub.Get(ctx, part)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		cur = v
	}
	return cur, nil
}

func (t *TreeObject) setChild(name string, c *treeChild) {
	if _, exists := t.children[name]; !exists {
		t.names = append(t.names, name)
	}
	t.children[name] = c
	t.dirty = true
}

// MakeTree returns the existing sub-tree at name, or creates and inserts a
// new empty one. It fails if name already names a blob.
func (t *TreeObject) MakeTree(ctx context.Context, name string) (*TreeObject, error) {
	existing, err := t.GetTree(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	sub := NewTree(t.store)
	t.setChild(name, &treeChild{tree: sub})
	return sub, nil
}

// MakeBlob returns the existing blob at name, or creates and inserts a new
// empty one. It fails if name already names a tree.
func (t *TreeObject) MakeBlob(ctx context.Context, name string) (*BlobObject, error) {
	existing, err := t.GetBlob(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	b := NewBlob(nil)
	t.setChild(name, &treeChild{blob: b})
	return b, nil
}

// Merge recursively overlays other onto t: where both t and other have a
// sub-tree at the same name, they are merged recursively; otherwise other's
// entry replaces t's.
func (t *TreeObject) Merge(ctx context.Context, other *TreeObject) error {
	for _, name := range other.names {
		otherChild, err := other.resolve(ctx, name)
		if err != nil {
			return err
		}

		if otherChild.tree != nil {
			if existing, err := t.GetTree(ctx, name); err != nil {
				return err
			} else if existing != nil {
				if err := existing.Merge(ctx, otherChild.tree); err != nil {
					return err
				}
				continue
			}
		}

		t.setChild(name, &treeChild{blob: otherChild.blob, tree: otherChild.tree})
	}
	return nil
}

// WalkEntry is one node visited by Walk.
type WalkEntry struct {
	Path string
	Blob *BlobObject
	Tree *TreeObject
}

// Walk performs a lazy pre-order traversal of t, visiting every tree and
// blob reachable from it.
func (t *TreeObject) Walk(ctx context.Context) ([]WalkEntry, error) {
	var out []WalkEntry
	if err := t.walk(ctx, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *TreeObject) walk(ctx context.Context, prefix string, out *[]WalkEntry) error {
	names := make([]string, len(t.names))
	copy(names, t.names)
	sort.Strings(names)

	for _, name := range names {
		c, err := t.resolve(ctx, name)
		if err != nil {
			return err
		}

		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}

		if c.blob != nil {
			*out = append(*out, WalkEntry{Path: path, Blob: c.blob})
			continue
		}

		*out = append(*out, WalkEntry{Path: path, Tree: c.tree})
		if err := c.tree.walk(ctx, path, out); err != nil {
			return err
		}
	}
	return nil
}

// Persist stores t post-order (children first, then t itself) iff it or any
// descendant is dirty, returning t's (possibly cached) content id.
func (t *TreeObject) Persist(ctx context.Context, store gritstore.Store) (grit.ObjectId, error) {
	entries := make([]grit.TreeEntry, 0, len(t.names))
	anyChildDirty := false

	for _, name := range t.names {
		c, err := t.resolve(ctx, name)
		if err != nil {
			return grit.ObjectId{}, err
		}

		var id grit.ObjectId
		switch {
		case c.blob != nil:
			if c.blob.Dirty() {
				anyChildDirty = true
			}
			id, err = c.blob.Persist(ctx, store)
		case c.tree != nil:
			if c.tree.Dirty() {
				anyChildDirty = true
			}
			id, err = c.tree.Persist(ctx, store)
		default:
			id = *c.id
		}
		if err != nil {
			return grit.ObjectId{}, err
		}

		entries = append(entries, grit.TreeEntry{Name: name, Id: id})
	}

	if !t.Dirty() && !anyChildDirty {
		return t.id, nil
	}

	id, err := store.Put(ctx, grit.Tree{Entries: entries})
	if err != nil {
		return grit.ObjectId{}, fmt.Errorf("core: persisting tree: %w", err)
	}

	t.id = id
	t.dirty = false
	t.persisted = true
	return id, nil
}
