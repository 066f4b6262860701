package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/core"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/query"
)

var (
	errQueryDisabled  = errors.New("web: no query executor configured")
	errInjectDisabled = errors.New("web: no root executor configured")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// objectView is the JSON rendering of a stored object: its kind plus a
// kind-specific body, with blob text rendered as markdown-to-HTML unless its
// content-type header marks it as raw bytes.
type objectView struct {
	Id   string `json:"id"`
	Kind string `json:"kind"`
	Blob *struct {
		Headers map[string]string `json:"headers,omitempty"`
		Text    string            `json:"text,omitempty"`
		HTML    string            `json:"html,omitempty"`
		Bytes   []byte            `json:"bytes,omitempty"`
	} `json:"blob,omitempty"`
	Tree    []grit.TreeEntry    `json:"tree,omitempty"`
	Message *grit.Message       `json:"message,omitempty"`
	Mailbox []grit.MailboxEntry `json:"mailbox,omitempty"`
	Step    *grit.Step          `json:"step,omitempty"`
}

func renderObject(id grit.ObjectId, obj grit.Object) objectView {
	view := objectView{Id: id.String(), Kind: string(obj.Kind())}
	switch o := obj.(type) {
	case grit.Blob:
		blobView := struct {
			Headers map[string]string `json:"headers,omitempty"`
			Text    string            `json:"text,omitempty"`
			HTML    string            `json:"html,omitempty"`
			Bytes   []byte            `json:"bytes,omitempty"`
		}{Headers: o.Headers}
		if o.Headers["ct"] == grit.CTBytes {
			blobView.Bytes = o.Data
		} else {
			text := string(o.Data)
			blobView.Text = text
			blobView.HTML = markdownToHTML(text)
		}
		view.Blob = &blobView
	case grit.Tree:
		view.Tree = o.Entries
	case grit.Message:
		view.Message = &o
	case grit.Mailbox:
		view.Mailbox = o.Entries
	case grit.Step:
		view.Step = &o
	}
	return view
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	id, err := grit.ParseObjectId(r.PathValue("id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	obj, err := s.cfg.Store.Get(r.Context(), id)
	if err != nil {
		if err == gritstore.ErrNotFound {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, renderObject(id, obj))
}

func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	encoded, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	obj, err := grit.Decode(encoded)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.cfg.Store.Put(r.Context(), obj)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}

func (s *Server) handleListRefs(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	refs, err := s.cfg.Store.GetRefs(r.Context(), prefix)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	out := make(map[string]string, len(refs))
	for name, id := range refs {
		out[name] = id.String()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRef(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	id, err := s.cfg.Store.GetRef(r.Context(), name)
	if err != nil {
		if err == gritstore.ErrNotFound {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}

func (s *Server) handleSetRef(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var body struct {
		Id string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	id, err := grit.ParseObjectId(body.Id)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if err := s.cfg.Store.SetRef(r.Context(), name, id); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ref": name, "id": id.String()})
}

func (s *Server) handleDeleteRef(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.cfg.Store.DeleteRef(r.Context(), name); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Query == nil {
		writeErr(w, http.StatusServiceUnavailable, errQueryDisabled)
		return
	}
	actorId, err := grit.ParseObjectId(r.PathValue("id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	queryName := r.PathValue("name")

	var contextBlob *core.BlobObject
	if raw := r.URL.Query().Get("context"); raw != "" {
		contextBlob = core.NewBlob([]byte(raw))
	}

	result, err := s.cfg.Query.Run(r.Context(), actorId, queryName, contextBlob)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	if path := r.URL.Query().Get("path"); path != "" {
		result, err = query.DescendPath(r.Context(), result, path)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": renderQueryResult(r.Context(), result)})
}

// renderQueryResult turns a query handler's return value into something
// encoding/json can actually render: core.BlobObject and core.TreeObject
// carry only unexported fields, so json.Marshal on them directly produces
// "{}" rather than their content.
func renderQueryResult(ctx context.Context, result any) any {
	switch v := result.(type) {
	case *core.BlobObject:
		if text, err := v.AsStr(ctx); err == nil {
			return text
		}
		return v.Id().String()
	case *core.TreeObject:
		return v.Names()
	default:
		return v
	}
}

func (s *Server) handleInject(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Root == nil {
		writeErr(w, http.StatusServiceUnavailable, errInjectDisabled)
		return
	}
	peer, err := grit.ParseObjectId(r.PathValue("id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	var body struct {
		Headers map[string]string `json:"headers"`
		Content string             `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	content, err := grit.ParseObjectId(body.Content)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	s.cfg.Root.Inject(peer, body.Headers, content)
	w.WriteHeader(http.StatusAccepted)
}
