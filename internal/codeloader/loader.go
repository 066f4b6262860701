package codeloader

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/core"
)

// initBlobName is the conventional key marking a tree as a regular package
// whose init code runs on first load, as opposed to a namespace package
// that is purely a search location.
const initBlobName = "__init__"

// Loader resolves fully-qualified module names (<hex tree id>[.<sub>...])
// against a code tree, caching compiled modules and maintaining the
// per-loader executing-context stack that lets sibling code resolve bare
// imports (spec.md §4.5).
type Loader struct {
	mu        sync.Mutex
	factories map[string]Factory
	cache     map[string]*Module
	fqnTrees  map[string]*core.TreeObject

	stackMu sync.Mutex
	stack   []string
}

// New creates an empty Loader.
func New() *Loader {
	return &Loader{
		factories: make(map[string]Factory),
		cache:     make(map[string]*Module),
		fqnTrees:  make(map[string]*core.TreeObject),
	}
}

// Register associates a Factory with the exact init-blob content string
// that selects it. A host registers one Factory per code shape it knows how
// to run.
func (l *Loader) Register(initContent string, f Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[initContent] = f
}

// Load resolves path (dot-separated sub-parts, possibly empty) against
// root, returning the cached Module if root's fully-qualified name has
// already been compiled.
func (l *Loader) Load(ctx context.Context, root *core.TreeObject, path string) (*Module, error) {
	fqn := root.Id().String()
	if path != "" {
		fqn += "." + path
	}

	if m, ok := l.cached(fqn); ok {
		return m, nil
	}

	node, err := navigate(ctx, root, path)
	if err != nil {
		return nil, err
	}

	l.pushContext(fqn)
	defer l.popContext()

	var m *Module
	switch v := node.(type) {
	case *core.TreeObject:
		l.registerTree(fqn, v)
		m, err = l.loadPackage(ctx, fqn, v)
	case *core.BlobObject:
		m, err = l.loadBlobModule(ctx, fqn, v)
	default:
		return nil, fmt.Errorf("%w: %q is neither a tree nor a blob", ErrImport, path)
	}
	if err != nil {
		return nil, err
	}

	l.store(fqn, m)
	return m, nil
}

// ResolveBareImport resolves a bare (tree-id-less) module name against the
// loader's current executing-context stack, trying the innermost context
// first.
func (l *Loader) ResolveBareImport(ctx context.Context, name string) (*Module, error) {
	l.stackMu.Lock()
	contexts := make([]string, len(l.stack))
	copy(contexts, l.stack)
	l.stackMu.Unlock()

	var lastErr error
	for i := len(contexts) - 1; i >= 0; i-- {
		tree, ok := l.fqnTreeFor(contexts[i])
		if !ok {
			continue
		}
		m, err := l.Load(ctx, tree, name)
		if err == nil {
			return m, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: bare import %q: no executing context", ErrImport, name)
}

func navigate(ctx context.Context, root *core.TreeObject, path string) (any, error) {
	if path == "" {
		return root, nil
	}

	var cur any = root
	for _, seg := range strings.Split(path, ".") {
		tree, ok := cur.(*core.TreeObject)
		if !ok {
			return nil, fmt.Errorf("%w: path segment %q addresses into a non-tree", ErrImport, seg)
		}

		v, err := tree.Get(ctx, seg)
		if err != nil {
			return nil, fmt.Errorf("%w: resolving %q: %v", ErrImport, seg, err)
		}
		if v == nil {
			return nil, fmt.Errorf("%w: %q not found", ErrImport, seg)
		}
		cur = v
	}
	return cur, nil
}

func (l *Loader) loadPackage(ctx context.Context, fqn string, t *core.TreeObject) (*Module, error) {
	init, err := findInitBlob(ctx, t)
	if err != nil {
		return nil, err
	}
	if init == nil {
		// Namespace package: a search location, no code to run.
		return &Module{Name: fqn, attrs: make(map[string]any)}, nil
	}
	return l.runInit(ctx, fqn, init)
}

func (l *Loader) loadBlobModule(ctx context.Context, fqn string, b *core.BlobObject) (*Module, error) {
	return l.runInit(ctx, fqn, b)
}

func (l *Loader) runInit(ctx context.Context, fqn string, init *core.BlobObject) (*Module, error) {
	content, err := init.AsStr(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading init blob of %q: %v", ErrImport, fqn, err)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: %q has an empty init blob", ErrImport, fqn)
	}

	l.mu.Lock()
	factory, ok := l.factories[content]
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: no factory registered for init %q", ErrImport, content)
	}

	attrs, err := factory(ctx, fqn)
	if err != nil {
		return nil, fmt.Errorf("%w: initializing %q: %v", ErrImport, fqn, err)
	}
	return &Module{Name: fqn, attrs: attrs}, nil
}

// findInitBlob returns t's __init__ blob (with or without a language
// extension), or nil if t is a namespace package.
func findInitBlob(ctx context.Context, t *core.TreeObject) (*core.BlobObject, error) {
	for _, name := range t.Names() {
		if name != initBlobName && !strings.HasPrefix(name, initBlobName+".") {
			continue
		}
		return t.GetBlob(ctx, name)
	}
	return nil, nil
}

func (l *Loader) cached(fqn string) (*Module, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.cache[fqn]
	return m, ok
}

func (l *Loader) store(fqn string, m *Module) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[fqn] = m
}

func (l *Loader) registerTree(fqn string, t *core.TreeObject) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fqnTrees[fqn] = t
}

func (l *Loader) fqnTreeFor(fqn string) (*core.TreeObject, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.fqnTrees[fqn]
	return t, ok
}

func (l *Loader) pushContext(fqn string) {
	l.stackMu.Lock()
	defer l.stackMu.Unlock()
	l.stack = append(l.stack, fqn)
}

func (l *Loader) popContext() {
	l.stackMu.Lock()
	defer l.stackMu.Unlock()
	if len(l.stack) > 0 {
		l.stack = l.stack[:len(l.stack)-1]
	}
}
