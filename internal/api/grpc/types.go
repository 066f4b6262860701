package gritrpc

import "google.golang.org/protobuf/types/known/timestamppb"

// PutRequest carries one object's canonical encoding (grit.Encode's output)
// for storage. The store face re-derives its id from content, so no id
// travels on the request.
type PutRequest struct {
	Encoded []byte `json:"encoded"`
}

// PutResponse returns the persisted object's content id.
type PutResponse struct {
	Id string `json:"id"`
}

// GetRequest asks for an object by its content id.
type GetRequest struct {
	Id string `json:"id"`
}

// GetResponse carries the requested object's canonical encoding.
type GetResponse struct {
	Encoded []byte `json:"encoded"`
}

// SetRefRequest mutates a named reference.
type SetRefRequest struct {
	Ref string `json:"ref"`
	Id  string `json:"id"`
}

// SetRefResponse echoes back the mutation's timestamp, matching spec.md §6's
// "timestamppb timestamps on ref mutations."
type SetRefResponse struct {
	UpdatedAt *timestamppb.Timestamp `json:"updated_at"`
}

// GetRefRequest reads one named reference.
type GetRefRequest struct {
	Ref string `json:"ref"`
}

// GetRefResponse returns the id a reference currently points to.
type GetRefResponse struct {
	Id string `json:"id"`
}

// GetRefsRequest lists every reference under a prefix.
type GetRefsRequest struct {
	Prefix string `json:"prefix"`
}

// GetRefsResponse maps reference name to the id it points to.
type GetRefsResponse struct {
	Refs map[string]string `json:"refs"`
}

// DeleteRefRequest removes a named reference.
type DeleteRefRequest struct {
	Ref string `json:"ref"`
}

// DeleteRefResponse is empty; absence of the ref is not an error.
type DeleteRefResponse struct{}

// StartAgentRequest bootstraps (or reattaches to) an agent under a runtime
// keyed by name.
type StartAgentRequest struct {
	Name  string `json:"name"`
	Point uint64 `json:"point"`
}

// StartAgentResponse returns the agent's AgentId (== its root actor's id).
type StartAgentResponse struct {
	AgentId string `json:"agent_id"`
}

// StopAgentRequest cancels a running agent's runtime.
type StopAgentRequest struct {
	Name string `json:"name"`
}

// StopAgentResponse is empty; stopping an unknown agent is an error.
type StopAgentResponse struct{}

// GetRunningAgentsRequest takes no parameters.
type GetRunningAgentsRequest struct{}

// GetRunningAgentsResponse lists every currently-running agent's name and id.
type GetRunningAgentsResponse struct {
	Agents map[string]string `json:"agents"`
}
