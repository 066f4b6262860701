package grit

// Kind tags which of the five object variants a canonical encoding carries.
type Kind string

const (
	KindBlob    Kind = "blob"
	KindTree    Kind = "tree"
	KindMessage Kind = "message"
	KindMailbox Kind = "mailbox"
	KindStep    Kind = "step"
)

// Object is the sum type over the five immutable object variants. Every
// concrete type below implements it; there are no other implementations,
// mirroring the tagged union spec.md §9 calls for in place of the source's
// duck-typed dict shapes.
type Object interface {
	// Kind identifies which variant this object is.
	Kind() Kind

	// encodeBody renders the variant-specific body (everything after the
	// "<type> <len>\x00" header).
	encodeBody() []byte
}

// Blob carries opaque bytes plus small string headers (MIME hints, short
// content-type codes).
type Blob struct {
	// Headers carries MIME hints (Content-Type) and short codes, e.g.
	// "ct" in {"b","s","j"} for bytes/string/json. Nil and empty are
	// equivalent.
	Headers map[string]string
	Data    []byte
}

func (Blob) Kind() Kind { return KindBlob }

// Content-type short codes used in Blob.Headers["ct"].
const (
	CTBytes  = "b"
	CTString = "s"
	CTJSON   = "j"
)

// TreeEntry is one name/id pair in a Tree, in encoding order.
type TreeEntry struct {
	Name string
	Id   ObjectId
}

// Tree is an ordered mapping from ASCII names, unique within the tree, to
// object ids. Order is insertion order, not sorted (spec.md §8 invariant 6).
type Tree struct {
	Entries []TreeEntry
}

func (Tree) Kind() Kind { return KindTree }

// Get returns the id for name and whether it was present.
func (t Tree) Get(name string) (ObjectId, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e.Id, true
		}
	}
	return ObjectId{}, false
}

// Message is one link in a per-sender/per-recipient chain. A message with a
// nil Previous is a signal: it may be superseded and is delivered at most
// once, with coarsening allowed. A non-nil Previous means an ordered
// sequence the receiver must not skip across.
type Message struct {
	Previous *MessageId
	Headers  map[string]string
	Content  ObjectId
}

func (Message) Kind() Kind { return KindMessage }

// MessageType is the conventional header key classifying a message (spec.md
// §3: "genesis", "update", or a user-defined type).
const MessageType = "mt"

const (
	MTGenesis = "genesis"
	MTUpdate  = "update"
)

// HeaderReplyTo is the conventional header key a reply uses to correlate
// with the message it answers when a direct `previous` link doesn't apply —
// e.g. a reply sent to a different peer than the one that produced the
// original message (spec.md §4.10).
const HeaderReplyTo = "reply_to"

// IsSignal reports whether m has no Previous, meaning it may be superseded
// before being read.
func (m Message) IsSignal() bool {
	return m.Previous == nil
}

// MailboxEntry is one peer/message pair in a Mailbox, in encoding order.
type MailboxEntry struct {
	Peer    ActorId
	Message MessageId
}

// Mailbox maps a peer actor (the sender, for an inbox; the recipient, for
// an outbox) to the latest-known message id from/to that peer.
type Mailbox struct {
	Entries []MailboxEntry
}

func (Mailbox) Kind() Kind { return KindMailbox }

// Get returns the message id for peer and whether it was present.
func (m Mailbox) Get(peer ActorId) (MessageId, bool) {
	for _, e := range m.Entries {
		if e.Peer == peer {
			return e.Message, true
		}
	}
	return MessageId{}, false
}

// Step is one advancement of one actor, linking to its predecessor.
type Step struct {
	Previous *StepId
	Actor    ActorId
	Inbox    *MailboxId
	Outbox   *MailboxId
	Core     TreeId
}

func (Step) Kind() Kind { return KindStep }
