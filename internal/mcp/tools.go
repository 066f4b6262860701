package mcp

import (
	"context"
	"fmt"

	gosdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/core"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/query"
)

// GetObjectArgs are the arguments for the get_object tool.
type GetObjectArgs struct {
	Id string `json:"id" jsonschema:"hex content id of the object to fetch"`
}

// GetObjectResult is the result of the get_object tool.
type GetObjectResult struct {
	Kind string            `json:"kind"`
	Text string            `json:"text,omitempty"`
	Tree []grit.TreeEntry  `json:"tree,omitempty"`
	Step *grit.Step        `json:"step,omitempty"`
	Raw  map[string]string `json:"headers,omitempty"`
}

func (s *Server) handleGetObject(ctx context.Context,
	req *gosdkmcp.CallToolRequest, args GetObjectArgs) (*gosdkmcp.CallToolResult, GetObjectResult, error) {

	id, err := grit.ParseObjectId(args.Id)
	if err != nil {
		return nil, GetObjectResult{}, fmt.Errorf("parsing id: %w", err)
	}
	obj, err := s.cfg.Store.Get(ctx, id)
	if err != nil {
		return nil, GetObjectResult{}, err
	}

	result := GetObjectResult{Kind: string(obj.Kind())}
	switch o := obj.(type) {
	case grit.Blob:
		result.Text = string(o.Data)
		result.Raw = o.Headers
	case grit.Tree:
		result.Tree = o.Entries
	case grit.Step:
		result.Step = &o
	}
	return nil, result, nil
}

// GetRefsArgs are the arguments for the get_refs tool.
type GetRefsArgs struct {
	Prefix string `json:"prefix,omitempty" jsonschema:"only list references with this prefix, e.g. heads/"`
}

// GetRefsResult is the result of the get_refs tool.
type GetRefsResult struct {
	Refs map[string]string `json:"refs"`
}

func (s *Server) handleGetRefs(ctx context.Context,
	req *gosdkmcp.CallToolRequest, args GetRefsArgs) (*gosdkmcp.CallToolResult, GetRefsResult, error) {

	refs, err := s.cfg.Store.GetRefs(ctx, args.Prefix)
	if err != nil {
		return nil, GetRefsResult{}, err
	}
	out := make(map[string]string, len(refs))
	for name, id := range refs {
		out[name] = id.String()
	}
	return nil, GetRefsResult{Refs: out}, nil
}

// RunQueryArgs are the arguments for the run_query tool.
type RunQueryArgs struct {
	ActorId   string `json:"actor_id" jsonschema:"hex id of the actor to query"`
	QueryName string `json:"query_name" jsonschema:"name passed to the actor's wit_query handler"`
	Context   string `json:"context,omitempty" jsonschema:"optional text blob passed as the query's context argument"`
	Path      string `json:"path,omitempty" jsonschema:"slash-separated path to descend into the query result"`
}

// RunQueryResult is the result of the run_query tool.
type RunQueryResult struct {
	Result string `json:"result"`
}

func (s *Server) handleRunQuery(ctx context.Context,
	req *gosdkmcp.CallToolRequest, args RunQueryArgs) (*gosdkmcp.CallToolResult, RunQueryResult, error) {

	if s.cfg.Query == nil {
		return nil, RunQueryResult{}, errQueryDisabled
	}
	actorId, err := grit.ParseObjectId(args.ActorId)
	if err != nil {
		return nil, RunQueryResult{}, fmt.Errorf("parsing actor id: %w", err)
	}

	var contextBlob *core.BlobObject
	if args.Context != "" {
		contextBlob = core.NewBlob([]byte(args.Context))
	}

	result, err := s.cfg.Query.Run(ctx, actorId, args.QueryName, contextBlob)
	if err != nil {
		return nil, RunQueryResult{}, err
	}
	if args.Path != "" {
		result, err = query.DescendPath(ctx, result, args.Path)
		if err != nil {
			return nil, RunQueryResult{}, err
		}
	}

	return nil, RunQueryResult{Result: renderQueryResult(ctx, result)}, nil
}

// renderQueryResult stringifies a query result for an LLM-consumable tool
// reply: blob leaves render as text, everything else as its object kind.
func renderQueryResult(ctx context.Context, result any) string {
	switch v := result.(type) {
	case *core.BlobObject:
		if text, err := v.AsStr(ctx); err == nil {
			return text
		}
		return fmt.Sprintf("<blob %s>", v.Id())
	case *core.TreeObject:
		return fmt.Sprintf("<tree %s>", v.Id())
	default:
		return fmt.Sprintf("%v", v)
	}
}

// InjectMessageArgs are the arguments for the inject_message tool.
type InjectMessageArgs struct {
	Peer    string            `json:"peer" jsonschema:"hex actor id of the message recipient"`
	Headers map[string]string `json:"headers,omitempty" jsonschema:"message headers, e.g. {\"mt\": \"update\"}"`
	Content string            `json:"content" jsonschema:"hex content id of the blob/tree carried as the message body"`
}

// InjectMessageResult is the result of the inject_message tool.
type InjectMessageResult struct {
	Accepted bool `json:"accepted"`
}

func (s *Server) handleInjectMessage(ctx context.Context,
	req *gosdkmcp.CallToolRequest, args InjectMessageArgs) (*gosdkmcp.CallToolResult, InjectMessageResult, error) {

	if s.cfg.Root == nil {
		return nil, InjectMessageResult{}, errInjectDisabled
	}
	peer, err := grit.ParseObjectId(args.Peer)
	if err != nil {
		return nil, InjectMessageResult{}, fmt.Errorf("parsing peer id: %w", err)
	}
	content, err := grit.ParseObjectId(args.Content)
	if err != nil {
		return nil, InjectMessageResult{}, fmt.Errorf("parsing content id: %w", err)
	}

	s.cfg.Root.Inject(peer, args.Headers, content)
	return nil, InjectMessageResult{Accepted: true}, nil
}
