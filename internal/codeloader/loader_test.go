package codeloader

import (
	"context"
	"testing"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/core"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/stretchr/testify/require"
)

func TestLoadRegularPackage(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	root := core.NewTree(store)
	init, err := root.MakeBlob(ctx, initBlobName)
	require.NoError(t, err)
	init.SetStr("greeter_v1")

	l := New()
	l.Register("greeter_v1", func(ctx context.Context, fqn string) (map[string]any, error) {
		return map[string]any{
			"greet": "hello from " + fqn,
		}, nil
	})

	m, err := l.Load(ctx, root, "")
	require.NoError(t, err)

	attr, ok := m.Attr("greet")
	require.True(t, ok)
	require.Contains(t, attr.(string), "hello from")
}

func TestLoadNamespacePackage(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	root := core.NewTree(store)
	_, err := root.MakeTree(ctx, "sub")
	require.NoError(t, err)

	l := New()
	m, err := l.Load(ctx, root, "")
	require.NoError(t, err)
	_, ok := m.Attr("anything")
	require.False(t, ok)
}

func TestLoadCachesByFQN(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	root := core.NewTree(store)
	init, err := root.MakeBlob(ctx, initBlobName)
	require.NoError(t, err)
	init.SetStr("counted")

	calls := 0
	l := New()
	l.Register("counted", func(ctx context.Context, fqn string) (map[string]any, error) {
		calls++
		return map[string]any{}, nil
	})

	_, err = l.Load(ctx, root, "")
	require.NoError(t, err)
	_, err = l.Load(ctx, root, "")
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestLoadSubModule(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	root := core.NewTree(store)
	sub, err := root.MakeTree(ctx, "helpers")
	require.NoError(t, err)
	init, err := sub.MakeBlob(ctx, initBlobName)
	require.NoError(t, err)
	init.SetStr("helper_mod")

	l := New()
	l.Register("helper_mod", func(ctx context.Context, fqn string) (map[string]any, error) {
		return map[string]any{"fqn": fqn}, nil
	})

	m, err := l.Load(ctx, root, "helpers")
	require.NoError(t, err)
	attr, ok := m.Attr("fqn")
	require.True(t, ok)
	require.Contains(t, attr.(string), ".helpers")
}

func TestLoadUnresolvedPath(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()
	root := core.NewTree(store)

	l := New()
	_, err := l.Load(ctx, root, "missing")
	require.ErrorIs(t, err, ErrImport)
}

func TestResolveBareImport(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	root := core.NewTree(store)
	init, err := root.MakeBlob(ctx, initBlobName)
	require.NoError(t, err)
	init.SetStr("with_sibling")

	sibling, err := root.MakeTree(ctx, "sibling")
	require.NoError(t, err)
	siblingInit, err := sibling.MakeBlob(ctx, initBlobName)
	require.NoError(t, err)
	siblingInit.SetStr("sibling_mod")

	l := New()
	l.Register("sibling_mod", func(ctx context.Context, fqn string) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})
	l.Register("with_sibling", func(ctx context.Context, fqn string) (map[string]any, error) {
		m, err := l.ResolveBareImport(ctx, "sibling")
		if err != nil {
			return nil, err
		}
		return map[string]any{"sibling": m}, nil
	})

	_, err = l.Load(ctx, root, "")
	require.NoError(t, err)
}
