// Package resolver implements spec.md §4.4: turning a core's wit /
// wit_query / wit_update node into a callable handler, either through a
// host-registered external function or through the in-core code loader
// (internal/codeloader).
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/codeloader"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/core"
)

// Handler is the callable shape every resolved node produces. Its argument
// and result are deliberately untyped here: the message/query routers in
// internal/wit own the concrete parameter-injection and result-conversion
// contract (spec.md §4.11) built on top of this package.
type Handler func(ctx context.Context, args any) (any, error)

// ErrInvalidCore is returned when a core's required wit node is missing or
// empty.
var ErrInvalidCore = errors.New("resolver: invalid core: missing wit")

// ErrUnresolved is returned when a node's DSL content cannot be resolved to
// a handler.
var ErrUnresolved = errors.New("resolver: could not resolve handler")

// Registry is the host-side function table consulted for "external:" DSL
// entries.
type Registry interface {
	Lookup(name string) (Handler, bool)
}

// MapRegistry is the common case: a static, pre-registered name → Handler
// table.
type MapRegistry map[string]Handler

func (m MapRegistry) Lookup(name string) (Handler, bool) {
	h, ok := m[name]
	return h, ok
}

type cacheKey struct {
	coreId  string
	content string
}

// Resolver resolves wit/wit_query/wit_update nodes, caching results keyed
// by (core id, node content) — unchanged cores never re-resolve their DSL,
// and a changed tree naturally misses the cache because its core id changes
// along with it.
type Resolver struct {
	registry Registry
	loader   *codeloader.Loader

	mu    sync.Mutex
	cache map[cacheKey]Handler
}

// New creates a Resolver backed by registry (for "external:" entries) and
// loader (for "/<tree-path>:..." entries).
func New(registry Registry, loader *codeloader.Loader) *Resolver {
	return &Resolver{
		registry: registry,
		loader:   loader,
		cache:    make(map[cacheKey]Handler),
	}
}

// Resolve resolves one of node ∈ {wit, wit_query, wit_update} against c. A
// missing wit is a hard ErrInvalidCore failure; a missing wit_query/
// wit_update returns (nil, nil) since those are optional.
func (r *Resolver) Resolve(ctx context.Context, c *core.Core, node string) (Handler, error) {
	blob, err := c.GetBlob(ctx, node)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return r.missing(node)
	}

	content, err := blob.AsStr(ctx)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return r.missing(node)
	}

	key := cacheKey{coreId: c.Id().String(), content: content}

	r.mu.Lock()
	h, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return h, nil
	}

	h, err = r.resolveDSL(ctx, c, content)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[key] = h
	r.mu.Unlock()
	return h, nil
}

func (r *Resolver) missing(node string) (Handler, error) {
	if node == core.NodeWit {
		return nil, ErrInvalidCore
	}
	return nil, nil
}

func (r *Resolver) resolveDSL(ctx context.Context, c *core.Core, content string) (Handler, error) {
	switch {
	case strings.HasPrefix(content, "external:"):
		return r.resolveExternal(content)
	case strings.HasPrefix(content, "/"):
		return r.resolveInCore(ctx, c, content)
	default:
		return nil, fmt.Errorf("%w: inline source not supported in v1: %q", ErrUnresolved, content)
	}
}

func (r *Resolver) resolveExternal(content string) (Handler, error) {
	name := strings.TrimPrefix(content, "external:")
	h, ok := r.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: external %q not registered", ErrUnresolved, name)
	}
	return h, nil
}

// resolveInCore resolves "/<tree-path>:<module>:<function>": <module> is
// loaded from the tree at <tree-path> inside c using the in-core loader,
// then attribute <function> is taken from it.
func (r *Resolver) resolveInCore(ctx context.Context, c *core.Core, content string) (Handler, error) {
	rest := strings.TrimPrefix(content, "/")
	segs := strings.SplitN(rest, ":", 3)
	if len(segs) != 3 {
		return nil, fmt.Errorf("%w: malformed path DSL %q", ErrUnresolved, content)
	}
	treePath, moduleName, funcName := segs[0], segs[1], segs[2]

	var root *core.TreeObject
	if treePath == "" {
		root = c.TreeObject
	} else {
		v, err := c.GetPath(ctx, treePath)
		if err != nil {
			return nil, err
		}
		t, ok := v.(*core.TreeObject)
		if !ok || t == nil {
			return nil, fmt.Errorf("%w: tree path %q not found", ErrUnresolved, treePath)
		}
		root = t
	}

	mod, err := r.loader.Load(ctx, root, moduleName)
	if err != nil {
		return nil, err
	}

	attr, ok := mod.Attr(funcName)
	if !ok {
		return nil, fmt.Errorf("%w: module %q has no attribute %q", ErrUnresolved, moduleName, funcName)
	}
	h, ok := attr.(Handler)
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q is not a handler", ErrUnresolved, funcName)
	}
	return h, nil
}
