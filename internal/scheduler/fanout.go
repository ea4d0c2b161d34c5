package scheduler

// FanOut combines several Broadcasters into one: a single snapshot built
// under the World lock is sent to every wired sink (cmd/server wires the
// native publish transport and, when enabled, the spectator WebSocket
// bridge) without the Scheduler needing to know how many there are.
type FanOut []Broadcaster

// Broadcast forwards frames to every wired Broadcaster in order. Callers
// must only append sinks that actually exist: a spectator bridge built
// with Config.Enabled false is a nil *spectator.Server with no Hub, and a
// nil concrete type boxed in the Broadcaster interface is not itself nil,
// so Broadcast would call it rather than skip it.
func (f FanOut) Broadcast(frames ...[]byte) {
	for _, b := range f {
		b.Broadcast(frames...)
	}
}
