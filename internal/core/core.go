package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
)

// Conventional sub-node names under a Core tree (spec.md §4.2).
const (
	NodeWit       = "wit"
	NodeWitQuery  = "wit_query"
	NodeWitUpdate = "wit_update"
	NodeCode      = "code"
	NodeState     = "state"
	NodeArgs      = "args"
)

// ErrMalformedCore is returned by CheckWellFormed when a core tree violates
// the executable-core convention.
var ErrMalformedCore = errors.New("core: malformed core")

// Core is a TreeObject rooted at a step's core, carrying the conventional
// wit/wit_query/wit_update/code/state/args sub-nodes an executor reads to
// run an actor's behavior (spec.md §4.2, §4.6).
type Core struct {
	*TreeObject
}

// NewCore wraps a freshly created, empty TreeObject as a Core.
func NewCore(store gritstore.Store) *Core {
	return &Core{TreeObject: NewTree(store)}
}

// NewCoreFromObject wraps an already-stored grit.Tree as a Core.
func NewCoreFromObject(store gritstore.Store, id grit.TreeId, t grit.Tree) *Core {
	return &Core{TreeObject: NewTreeFromObject(store, id, t)}
}

// NewCoreFromTree promotes an already-built TreeObject to a Core, e.g. after
// GetTree/MakeTree traversal reaches a step's core node.
func NewCoreFromTree(t *TreeObject) *Core {
	return &Core{TreeObject: t}
}

// Wit returns the core's wit handler name, the empty string if absent.
func (c *Core) Wit(ctx context.Context) (string, error) {
	return c.strNode(ctx, NodeWit)
}

// WitQuery returns the core's wit_query handler name, the empty string if
// absent.
func (c *Core) WitQuery(ctx context.Context) (string, error) {
	return c.strNode(ctx, NodeWitQuery)
}

// WitUpdate returns the core's wit_update handler name, the empty string if
// absent.
func (c *Core) WitUpdate(ctx context.Context) (string, error) {
	return c.strNode(ctx, NodeWitUpdate)
}

func (c *Core) strNode(ctx context.Context, name string) (string, error) {
	b, err := c.GetBlob(ctx, name)
	if err != nil {
		return "", err
	}
	if b == nil {
		return "", nil
	}
	return b.AsStr(ctx)
}

// Code returns the core's code sub-tree (the loaded module's source/assets),
// or nil if absent.
func (c *Core) Code(ctx context.Context) (*TreeObject, error) {
	return c.GetTree(ctx, NodeCode)
}

// State returns the core's state blob (the wit handler's serialized
// mutable state), or nil if absent.
func (c *Core) State(ctx context.Context) (*BlobObject, error) {
	return c.GetBlob(ctx, NodeState)
}

// Args returns the core's args node, which may be a tree or a blob
// depending on the handler's calling convention, or nil if absent.
func (c *Core) Args(ctx context.Context) (any, error) {
	return c.Get(ctx, NodeArgs)
}

// IsExecutable reports whether this core names a wit handler and is
// therefore eligible to run (as opposed to a plain data core holding only
// state/args for inspection).
func (c *Core) IsExecutable(ctx context.Context) (bool, error) {
	wit, err := c.Wit(ctx)
	if err != nil {
		return false, err
	}
	return wit != "", nil
}

// CheckWellFormed validates the invariant spec.md §4.2 places on a core: it
// must be a tree, and if it names a wit handler, that name must be a
// non-empty string blob.
func (c *Core) CheckWellFormed(ctx context.Context) error {
	b, err := c.GetBlob(ctx, NodeWit)
	if err != nil {
		return fmt.Errorf("%w: wit node: %v", ErrMalformedCore, err)
	}
	if b == nil {
		return nil
	}

	s, err := b.AsStr(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading wit node: %v", ErrMalformedCore, err)
	}
	if s == "" {
		return fmt.Errorf("%w: wit node is present but empty", ErrMalformedCore)
	}
	return nil
}
