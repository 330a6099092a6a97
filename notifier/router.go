package notifier

import "go.uber.org/zap"

// Publisher fans domain events out to the sessions joined to a room. Delivery
// is fire-and-forget and at-most-once: a room with no sessions is not an
// error, and a disconnected client simply misses the event (clients poll the
// REST surface to catch up).
type Publisher interface {
	Publish(room, event string, payload interface{})
	Broadcast(event string, payload interface{})
}

// Router delivers events to whatever the Registry says is in the room at
// publish time. Delivery within one room follows publish order.
type Router struct {
	reg Registry
}

// NewRouter creates a router over the given registry
func NewRouter(reg Registry) *Router {
	return &Router{reg: reg}
}

// Publish emits the event to every session currently joined to room
func (r *Router) Publish(room, event string, payload interface{}) {
	sessions := r.reg.Sessions(room)
	for _, s := range sessions {
		s.Emit(event, payload)
	}
	zap.S().Debugw("published event",
		"room", room,
		"event", event,
		"sessions", len(sessions),
	)
}

// Broadcast emits the event to every connected session
func (r *Router) Broadcast(event string, payload interface{}) {
	r.reg.Each(func(s Session) {
		s.Emit(event, payload)
	})
	zap.S().Debugw("broadcast event", "event", event)
}
