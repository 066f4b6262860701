package actor

import gritlog "github.com/smartcomputer-ai/agent-os-sub000/internal/log"

// log is the package-wide logger used by the actor runtime. It defaults to a
// disabled logger so unit tests stay quiet; callers embedding this package in
// a daemon can swap it via SetLogger during startup.
var log = gritlog.Disabled()

// SetLogger overrides the package-wide logger. Call once during process
// startup, before any ActorSystem is created.
func SetLogger(l gritlog.Logger) {
	log = l
}
