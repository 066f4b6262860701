// Package query implements spec.md §4.9: stateless reads against an actor's
// HEAD step, independent of the executor's mutating step loop.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/core"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/resolver"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/wit"
)

// ErrGenesisNotReady is returned when actor has no heads/<actor> entry yet —
// it has not completed genesis, so there is no HEAD step to query.
var ErrGenesisNotReady = errors.New("query: actor has not completed genesis")

// ErrNoQueryHandler is returned when the actor's core has no wit_query node.
var ErrNoQueryHandler = errors.New("query: actor has no wit_query handler")

// Config configures an Executor.
type Config struct {
	Store         gritstore.Store
	Resolver      *resolver.Resolver
	Collaborators map[string]any
}

// Executor runs stateless queries against actors' HEAD steps.
type Executor struct {
	cfg Config
}

// New creates a query Executor.
func New(cfg Config) *Executor {
	return &Executor{cfg: cfg}
}

// Run executes spec.md §4.9 steps 1-3: resolve actorId's HEAD step, resolve
// wit_query from its core, and invoke it with the query name and context
// blob. The result is whatever the handler returned — a *core.TreeObject, a
// *core.BlobObject, or some other record the caller/handler agreed on.
func (e *Executor) Run(
	ctx context.Context, actorId grit.ActorId, queryName string, contextBlob *core.BlobObject,
) (any, error) {
	stepId, err := e.cfg.Store.GetRef(ctx, grit.HeadRef(actorId))
	if errors.Is(err, gritstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrGenesisNotReady, actorId)
	}
	if err != nil {
		return nil, fmt.Errorf("query: loading head for %s: %w", actorId, err)
	}

	stepObj, err := e.cfg.Store.Get(ctx, stepId)
	if err != nil {
		return nil, fmt.Errorf("query: loading step %s: %w", stepId, err)
	}
	step, ok := stepObj.(grit.Step)
	if !ok {
		return nil, fmt.Errorf("query: %s is not a step", stepId)
	}

	coreObj, err := e.cfg.Store.Get(ctx, step.Core)
	if err != nil {
		return nil, fmt.Errorf("query: loading core %s: %w", step.Core, err)
	}
	tree, ok := coreObj.(grit.Tree)
	if !ok {
		return nil, fmt.Errorf("query: core %s is not a tree", step.Core)
	}
	activeCore := core.NewCoreFromObject(e.cfg.Store, step.Core, tree)

	handler, err := e.cfg.Resolver.Resolve(ctx, activeCore, core.NodeWitQuery)
	if err != nil {
		return nil, fmt.Errorf("query: resolving wit_query: %w", err)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoQueryHandler, actorId)
	}

	if contextBlob == nil {
		contextBlob = core.NewBlob(nil)
	}

	args := &wit.QueryArgs{
		HeadStep:  stepId,
		ActorId:   actorId,
		QueryName: queryName,
		Context:   contextBlob,
		Core:      activeCore,
		Store:     e.cfg.Store,
		Extra:     e.cfg.Collaborators,
	}
	return handler(ctx, args)
}

// DescendPath walks a query result along a slash-separated path — spec.md
// §6's "query path descent" (GET …/query/<name>/a returns the blob at "a";
// GET …/query/<name> returns the whole result). A *core.TreeObject result
// supports arbitrary descent via its own GetPath; any other result only
// supports the empty path.
func DescendPath(ctx context.Context, result any, path string) (any, error) {
	if path == "" {
		return result, nil
	}
	tree, ok := result.(*core.TreeObject)
	if !ok {
		return nil, fmt.Errorf("query: result is not a tree, cannot descend into %q", path)
	}
	return tree.GetPath(ctx, path)
}
