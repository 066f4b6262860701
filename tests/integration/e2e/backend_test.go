// Package e2e_test drives a grit store, a live runtime.Runtime, and the
// internal/web HTTP face together over a real httptest server, the way the
// teacher's tests/integration/e2e package drives its own backend services
// against a real sqlite database instead of calling package functions
// directly (SPEC_FULL §8's scenario coverage: genesis, echo, recovery,
// query-path descent).
package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/core"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/mailbox"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/query"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/resolver"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/runtime"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/web"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/wit"
)

// echoReplyHandler resolves the "echo-reply" wit: every peer's new inbox
// messages are sent straight back to them. Grounded on
// internal/runtime/runtime_test.go's own echo handler.
func echoReplyHandler(ctx context.Context, a any) (any, error) {
	args := a.(*wit.MessageArgs)
	for _, peer := range args.Inbox.Peers() {
		msgs, err := args.Inbox.ReadNew(ctx, peer, 0)
		if err != nil {
			return nil, err
		}
		for _, msg := range msgs {
			if _, err := mailbox.Send(ctx, args.Store, args.Outbox, peer, msg.Headers, msg.Content); err != nil {
				return nil, err
			}
		}
	}
	return args.Core.Id(), nil
}

// testEnv bundles a store, a running Runtime, and an httptest-backed web
// server so a test can drive an agent purely through HTTP.
type testEnv struct {
	t       *testing.T
	store   gritstore.Store
	rt      *runtime.Runtime
	srv     *httptest.Server
	cancel  context.CancelFunc
	runDone chan error
}

func awaitRoot(t *testing.T, rt *runtime.Runtime) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for rt.Root() == nil {
		select {
		case <-deadline:
			t.Fatal("root executor never started")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// newTestEnv bootstraps a fresh Runtime over a fresh store and fronts it
// with a real httptest.Server running internal/web's handlers.
func newTestEnv(t *testing.T, point grit.Point, reg resolver.MapRegistry) *testEnv {
	t.Helper()
	return attachTestEnv(t, gritstore.NewMemoryStore(), point, reg)
}

// attachTestEnv wires a Runtime (and its web face) over an existing store,
// used to simulate a daemon restart against durable state (SPEC_FULL §8's
// recovery scenario).
func attachTestEnv(t *testing.T, store gritstore.Store, point grit.Point, reg resolver.MapRegistry) *testEnv {
	t.Helper()

	res := resolver.New(reg, nil)
	rt := runtime.New(runtime.Config{Store: store, Resolver: res, Point: point})

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- rt.Run(ctx) }()
	awaitRoot(t, rt)

	queryExec := query.New(query.Config{Store: store, Resolver: res})
	webServer := web.NewServer(web.Config{Store: store, Query: queryExec, Root: rt.Root()})
	srv := httptest.NewServer(webServer.Mux())

	env := &testEnv{t: t, store: store, rt: rt, srv: srv, cancel: cancel, runDone: runDone}
	t.Cleanup(env.cleanup)
	return env
}

func (e *testEnv) cleanup() {
	e.srv.Close()
	e.cancel()
	<-e.runDone
}

func (e *testEnv) getJSON(path string, out any) {
	e.t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
}

func (e *testEnv) putObject(obj grit.Object) string {
	e.t.Helper()
	resp, err := http.Post(e.srv.URL+"/objects", "application/octet-stream", bytes.NewReader(grit.Encode(obj)))
	require.NoError(e.t, err)
	defer resp.Body.Close()
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	var out struct {
		Id string `json:"id"`
	}
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Id
}

func (e *testEnv) inject(peer grit.ActorId, headers map[string]string, content string) {
	e.t.Helper()
	body, err := json.Marshal(map[string]any{"headers": headers, "content": content})
	require.NoError(e.t, err)
	resp, err := http.Post(
		fmt.Sprintf("%s/actors/%s/inject", e.srv.URL, peer), "application/json", bytes.NewReader(body),
	)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	require.Equal(e.t, http.StatusAccepted, resp.StatusCode)
}

// TestGenesisBootstrapsDiscoverableAgent drives SPEC_FULL §8's genesis
// scenario purely through HTTP: the bootstrapped agent's HEAD is visible
// under refs, and fetching it resolves to a step whose core is a tree.
func TestGenesisBootstrapsDiscoverableAgent(t *testing.T) {
	env := newTestEnv(t, grit.Point(42), resolver.MapRegistry{})

	var refs map[string]string
	env.getJSON("/refs?prefix=heads/", &refs)
	require.NotEmpty(t, refs)

	rootId := env.rt.RootId()
	headRef := grit.HeadRef(rootId)
	stepId, ok := refs[headRef]
	require.True(t, ok, "expected %s in refs listing, got %v", headRef, refs)

	var stepView struct {
		Kind string    `json:"kind"`
		Step grit.Step `json:"step"`
	}
	env.getJSON("/objects/"+stepId, &stepView)
	require.Equal(t, "step", stepView.Kind)

	var coreView struct {
		Kind string           `json:"kind"`
		Tree []grit.TreeEntry `json:"tree"`
	}
	env.getJSON("/objects/"+stepView.Step.Core.String(), &coreView)
	require.Equal(t, "tree", coreView.Kind)
}

// bootstrapEchoActor persists an actor whose wit is "echo-reply" and seeds
// its HEAD directly, the way a pre-existing (non-root) actor would already
// exist in the store before a daemon starts.
func bootstrapEchoActor(t *testing.T, ctx context.Context, store gritstore.Store) grit.ActorId {
	t.Helper()
	c := core.NewCore(store)
	wb, err := c.MakeBlob(ctx, core.NodeWit)
	require.NoError(t, err)
	wb.SetStr("external:echo-reply")
	coreId, err := c.Persist(ctx, store)
	require.NoError(t, err)
	step := grit.Step{Actor: coreId, Core: coreId}
	stepId, err := store.Put(ctx, step)
	require.NoError(t, err)
	require.NoError(t, store.SetRef(ctx, grit.HeadRef(coreId), stepId))
	return grit.ActorId(coreId)
}

// TestInjectedMessageIsEchoedBack drives SPEC_FULL §8's echo scenario
// through HTTP: a message POSTed to /actors/{id}/inject for an actor whose
// wit is "echo-reply" is sent straight back to the injecting peer,
// observable on the root executor's event stream.
func TestInjectedMessageIsEchoedBack(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()
	echoActor := bootstrapEchoActor(t, ctx, store)

	env := attachTestEnv(t, store, grit.Point(43), resolver.MapRegistry{"echo-reply": echoReplyHandler})

	subCtx, subCancel := context.WithCancel(ctx)
	defer subCancel()
	events := env.rt.Root().Subscribe(subCtx)

	content := env.putObject(grit.Blob{Data: []byte("ping")})
	env.inject(echoActor, map[string]string{grit.MessageType: "ping"}, content)

	select {
	case ev := <-events:
		require.Equal(t, echoActor, ev.Sender)
		require.Equal(t, "ping", ev.Message.Headers[grit.MessageType])
	case <-time.After(2 * time.Second):
		t.Fatal("never observed echoed reply")
	}
}

// TestRuntimeRecoversActorStateAcrossRestart drives SPEC_FULL §8's recovery
// scenario: a fresh Runtime attached to a store an earlier Runtime already
// bootstrapped adopts the existing agent rather than re-running genesis,
// and the HTTP face still serves its HEAD.
func TestRuntimeRecoversActorStateAcrossRestart(t *testing.T) {
	store := gritstore.NewMemoryStore()

	first := attachTestEnv(t, store, grit.Point(44), resolver.MapRegistry{})
	firstRootId := first.rt.RootId()
	first.cleanup()

	second := attachTestEnv(t, store, grit.Point(44), resolver.MapRegistry{})
	require.Equal(t, firstRootId, second.rt.RootId())

	var refs map[string]string
	second.getJSON("/refs?prefix=heads/", &refs)
	_, ok := refs[grit.HeadRef(second.rt.RootId())]
	require.True(t, ok)
}

// TestQueryDescendsResultPath drives SPEC_FULL §8's query-path-descent
// scenario through HTTP: a wit_query that returns a tree can be narrowed to
// one of its blob children via the ?path= parameter.
func TestQueryDescendsResultPath(t *testing.T) {
	ctx := context.Background()
	store := gritstore.NewMemoryStore()

	c := core.NewCore(store)
	wb, err := c.MakeBlob(ctx, core.NodeWit)
	require.NoError(t, err)
	wb.SetStr("external:noop")
	qb, err := c.MakeBlob(ctx, core.NodeWitQuery)
	require.NoError(t, err)
	qb.SetStr("external:greeting")
	coreId, err := c.Persist(ctx, store)
	require.NoError(t, err)
	step := grit.Step{Actor: coreId, Core: coreId}
	stepId, err := store.Put(ctx, step)
	require.NoError(t, err)
	require.NoError(t, store.SetRef(ctx, grit.HeadRef(coreId), stepId))
	actorId := grit.ActorId(coreId)

	reg := resolver.MapRegistry{
		"noop": func(ctx context.Context, a any) (any, error) {
			args := a.(*wit.MessageArgs)
			return args.Core.Id(), nil
		},
		"greeting": func(ctx context.Context, a any) (any, error) {
			args := a.(*wit.QueryArgs)
			result := core.NewTree(args.Store)
			blob, err := result.MakeBlob(ctx, "message")
			if err != nil {
				return nil, err
			}
			blob.SetStr("hello, world")
			return result, nil
		},
	}

	env := attachTestEnv(t, store, grit.Point(45), reg)

	var out struct {
		Result string `json:"result"`
	}
	env.getJSON(fmt.Sprintf("/actors/%s/query/greeting?path=message", actorId), &out)
	require.Equal(t, "hello, world", out.Result)
}
