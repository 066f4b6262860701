package wit

import (
	"context"
	"fmt"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/core"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/mailbox"
)

// Prototype sub-node names (spec.md §4.11).
const (
	NodePrototype = "prototype"
	NodeCreated   = "created"
)

// CreateArgs carries the create message's optional arguments tree, merged
// over the stored prototype core when birthing a child.
type CreateArgs struct {
	Name string
	Args *core.TreeObject
}

// BuildChildCore combines the actor's stored prototype core with optional
// create-time arguments into a fresh, not-yet-persisted core for the child.
func BuildChildCore(ctx context.Context, self *core.Core, create CreateArgs) (*core.Core, error) {
	proto, err := self.GetTree(ctx, NodePrototype)
	if err != nil {
		return nil, err
	}
	if proto == nil {
		return nil, fmt.Errorf("wit: prototype: core has no %q sub-tree", NodePrototype)
	}

	child := core.NewCore(proto.Store())
	if err := child.Merge(ctx, proto); err != nil {
		return nil, err
	}
	if create.Args != nil {
		argsNode, err := child.MakeTree(ctx, core.NodeArgs)
		if err != nil {
			return nil, err
		}
		if err := argsNode.Merge(ctx, create.Args); err != nil {
			return nil, err
		}
	}
	return child, nil
}

// RecordCreated appends (name, child) to self's created sub-tree so a later
// update can be forwarded to every child the prototype has birthed.
func RecordCreated(
	ctx context.Context, self *core.Core, name string, child grit.ActorId,
) error {

	created, err := self.MakeTree(ctx, NodeCreated)
	if err != nil {
		return err
	}
	b, err := created.MakeBlob(ctx, name)
	if err != nil {
		return err
	}
	b.SetStr(child.String())
	return nil
}

// CreatedChildren lists every (name, actor id) pair previously recorded by
// RecordCreated.
func CreatedChildren(ctx context.Context, self *core.Core) (map[string]grit.ActorId, error) {
	created, err := self.GetTree(ctx, NodeCreated)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, nil
	}

	out := make(map[string]grit.ActorId)
	for _, name := range created.Names() {
		b, err := created.GetBlob(ctx, name)
		if err != nil {
			return nil, err
		}
		if b == nil {
			continue
		}
		s, err := b.AsStr(ctx)
		if err != nil {
			return nil, err
		}
		id, err := grit.ParseObjectId(s)
		if err != nil {
			return nil, fmt.Errorf("wit: prototype: decoding created child %q: %w", name, err)
		}
		out[name] = id
	}
	return out, nil
}

// SendGenesis enqueues the genesis message that births childCore: it
// persists childCore (whose resulting TreeId is, by definition, the
// child's ActorId) and sends a message to that actor whose content is its
// own id and whose previous is null — the one a brand-new executor's
// genesis scan (spec.md §4.6 step 3) is looking for. The runtime creates
// an executor for the recipient the first time it sees a delta addressed
// to an unknown actor (spec.md §4.8 step 4), so no separate bookkeeping is
// needed here beyond queuing the message.
func SendGenesis(ctx context.Context, store gritstore.Store, outbox *mailbox.Builder, childCore *core.Core) (grit.ActorId, error) {
	childId, err := childCore.Persist(ctx, store)
	if err != nil {
		return grit.ActorId{}, err
	}

	headers := map[string]string{grit.MessageType: MTGenesis}
	if _, err := mailbox.Send(ctx, store, outbox, childId, headers, childId); err != nil {
		return grit.ActorId{}, err
	}
	return childId, nil
}

// NewPrototypeMessageRouter builds the standard Prototype message router
// (spec.md §4.11): "create" builds a child core from the stored prototype
// and births it by queuing its genesis message on the outbox; "update"
// optionally forwards the new core to every recorded child as an "update"
// message. forwardUpdate lets a host override what gets sent to a child;
// nil forwards args.Content unchanged, the common case of "the same update
// applies to every child."
func NewPrototypeMessageRouter(
	forwardUpdate func(ctx context.Context, args *MessageArgs, child grit.ActorId) (grit.ObjectId, map[string]string, error),
) *MessageRouter {

	r := NewMessageRouter()

	r.On("create", func(ctx context.Context, args *MessageArgs) (grit.TreeId, error) {
		name, _ := args.Headers["name"]

		var createArgsTree *core.TreeObject
		if !args.Content.IsZero() {
			obj, err := args.Store.Get(ctx, args.Content)
			if err == nil {
				if t, ok := obj.(grit.Tree); ok {
					createArgsTree = core.NewTreeFromObject(args.Store, args.Content, t)
				}
			}
		}

		childCore, err := BuildChildCore(ctx, args.Core, CreateArgs{Name: name, Args: createArgsTree})
		if err != nil {
			return grit.ObjectId{}, err
		}

		childId, err := SendGenesis(ctx, args.Store, args.Outbox, childCore)
		if err != nil {
			return grit.ObjectId{}, err
		}

		if err := RecordCreated(ctx, args.Core, name, childId); err != nil {
			return grit.ObjectId{}, err
		}

		return args.Core.Persist(ctx, args.Store)
	})

	r.OnUpdate(func(ctx context.Context, args *MessageArgs) (grit.TreeId, error) {
		children, err := CreatedChildren(ctx, args.Core)
		if err != nil {
			return grit.ObjectId{}, err
		}
		for _, child := range children {
			content, headers := args.Content, map[string]string{grit.MessageType: MTUpdate}
			if forwardUpdate != nil {
				content, headers, err = forwardUpdate(ctx, args, child)
				if err != nil {
					return grit.ObjectId{}, err
				}
			}
			if _, err := mailbox.Send(ctx, args.Store, args.Outbox, child, headers, content); err != nil {
				return grit.ObjectId{}, err
			}
		}
		return args.Core.Persist(ctx, args.Store)
	})

	return r
}
