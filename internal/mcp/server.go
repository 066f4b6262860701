// Package mcp exposes a grit store and its running agent as Model Context
// Protocol tools, so an LLM client can inspect and drive an agent the same
// way internal/web's HTTP face lets a human do it (spec.md §6, SPEC_FULL.md
// §4.12).
package mcp

import (
	"context"
	"errors"

	gosdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/query"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/rootexec"
)

var (
	errQueryDisabled  = errors.New("mcp: no query executor configured")
	errInjectDisabled = errors.New("mcp: no root executor configured")
)

// Config configures a Server.
type Config struct {
	Store gritstore.Store

	// Query runs wit_query handlers for the run_query tool. Nil disables it.
	Query *query.Executor

	// Root lets the inject_message tool deliver into a running agent. Nil
	// disables it.
	Root *rootexec.RootExecutor
}

// Server wraps an MCP server with grit store/runtime dependencies.
type Server struct {
	server *gosdkmcp.Server
	cfg    Config
}

// NewServer creates an MCP server with every grit tool registered.
func NewServer(cfg Config) *Server {
	mcpServer := gosdkmcp.NewServer(&gosdkmcp.Implementation{
		Name:    "grit",
		Version: "0.1.0",
	}, nil)

	s := &Server{server: mcpServer, cfg: cfg}
	s.registerTools()
	return s
}

// Run starts the MCP server on the given transport, blocking until ctx is
// cancelled or the transport closes.
func (s *Server) Run(ctx context.Context, transport gosdkmcp.Transport) error {
	return s.server.Run(ctx, transport)
}

func (s *Server) registerTools() {
	gosdkmcp.AddTool(s.server, &gosdkmcp.Tool{
		Name:        "get_object",
		Description: "Fetch a grit object by its content id and render its body",
	}, s.handleGetObject)

	gosdkmcp.AddTool(s.server, &gosdkmcp.Tool{
		Name:        "get_refs",
		Description: "List every reference under a prefix (e.g. heads/, actors/)",
	}, s.handleGetRefs)

	gosdkmcp.AddTool(s.server, &gosdkmcp.Tool{
		Name:        "run_query",
		Description: "Run a stateless wit_query against an actor's current HEAD, optionally descending a result path",
	}, s.handleRunQuery)

	gosdkmcp.AddTool(s.server, &gosdkmcp.Tool{
		Name:        "inject_message",
		Description: "Deliver a message into a running agent's root executor, to be routed to the named peer",
	}, s.handleInjectMessage)
}
