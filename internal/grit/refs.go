package grit

import "strings"

// Reference name prefixes (spec.md §6). "root" may not be used as an actor
// name under actors/ or prototypes/.
const (
	RefHeadsPrefix      = "heads/"
	RefActorsPrefix     = "actors/"
	RefPrototypesPrefix = "prototypes/"
	RefRuntimeAgent     = "runtime/agent"

	// ReservedActorName is the one actor name reserved for the root actor
	// itself; it may not be registered under actors/ or prototypes/.
	ReservedActorName = "root"
)

// HeadRef returns the heads/<hex> reference name for actor.
func HeadRef(actor ActorId) string {
	return RefHeadsPrefix + actor.String()
}

// ActorRef returns the actors/<name> reference name for a named actor.
func ActorRef(name string) string {
	return RefActorsPrefix + name
}

// PrototypeRef returns the prototypes/<name> reference name for a named
// prototype.
func PrototypeRef(name string) string {
	return RefPrototypesPrefix + name
}

// IsReservedActorName reports whether name is reserved and may not be used
// under actors/ or prototypes/.
func IsReservedActorName(name string) bool {
	return name == ReservedActorName
}

// ActorFromHeadRef extracts the actor id from a heads/<hex> reference name.
func ActorFromHeadRef(ref string) (ActorId, bool) {
	hex, ok := strings.CutPrefix(ref, RefHeadsPrefix)
	if !ok {
		return ActorId{}, false
	}
	id, err := ParseObjectId(hex)
	if err != nil {
		return ActorId{}, false
	}
	return id, true
}
