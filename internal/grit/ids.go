// Package grit implements the content-addressed object model: the five
// object variants, their canonical byte encoding, content-hash identity, and
// the handful of identifier types derived from that encoding.
package grit

import "encoding/hex"

// idSize is the width of every identifier in this package: a SHA-256 digest.
const idSize = 32

// ObjectId is the content hash of an object's canonical encoding. Every
// other id type in this package is a named alias of ObjectId distinguishing
// the role an id plays, not its representation.
type ObjectId [idSize]byte

// String renders an id as lowercase hex, matching the `heads/<hex>` /
// `GET /objects/<hex>` conventions.
func (id ObjectId) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether id is the all-zero sentinel used to mean "null" in
// the canonical encoding (a previous/inbox/outbox field that isn't set).
func (id ObjectId) IsZero() bool {
	return id == ObjectId{}
}

// ParseObjectId decodes a hex string into an ObjectId.
func ParseObjectId(s string) (ObjectId, error) {
	var id ObjectId
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != idSize {
		return id, ErrInvalidObjectId
	}
	copy(id[:], b)
	return id, nil
}

// The following are all ObjectId in disguise: the id of the object that
// plays that particular role in the graph. Keeping them distinct types
// would buy nothing (every one of them is produced and consumed as a plain
// content hash) so they're plain aliases, matching how the teacher treats
// its own role-specific id wrappers as thin type aliases over a byte array.
type (
	// ActorId identifies an actor: the TreeId of its genesis core.
	ActorId = ObjectId

	// AgentId identifies an agent: the ActorId of its root actor.
	AgentId = ObjectId

	// TreeId identifies a Tree object.
	TreeId = ObjectId

	// MessageId identifies a Message object.
	MessageId = ObjectId

	// MailboxId identifies a Mailbox object.
	MailboxId = ObjectId

	// StepId identifies a Step object.
	StepId = ObjectId
)

// Point is the small non-negative integer an AgentId can be deterministically
// derived from (spec §3, §6), letting a client bootstrap an agent without
// any coordination with a running store.
type Point uint64
