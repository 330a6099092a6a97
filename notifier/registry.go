package notifier

import "sync"

// Session is one connected real-time client able to receive events
type Session interface {
	ID() string
	Emit(event string, payload interface{})
}

// Registry tracks which sessions are connected and which rooms each has
// joined. It is injected into the Router so delivery can be tested without a
// real transport. The registry trusts the room names it is given; join
// authorization happens at the transport boundary.
type Registry interface {
	Connect(s Session)
	Disconnect(s Session)
	Join(room string, s Session)
	Leave(room string, s Session)
	Sessions(room string) []Session
	Each(fn func(s Session))
}

type memoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]Session
	rooms    map[string]map[string]Session
	joined   map[string]map[string]struct{}
}

// NewRegistry returns an in-memory room registry
func NewRegistry() Registry {
	return &memoryRegistry{
		sessions: map[string]Session{},
		rooms:    map[string]map[string]Session{},
		joined:   map[string]map[string]struct{}{},
	}
}

func (m *memoryRegistry) Connect(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
}

func (m *memoryRegistry) Disconnect(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for room := range m.joined[s.ID()] {
		delete(m.rooms[room], s.ID())
		if len(m.rooms[room]) == 0 {
			delete(m.rooms, room)
		}
	}
	delete(m.joined, s.ID())
	delete(m.sessions, s.ID())
}

func (m *memoryRegistry) Join(room string, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
	if m.rooms[room] == nil {
		m.rooms[room] = map[string]Session{}
	}
	m.rooms[room][s.ID()] = s
	if m.joined[s.ID()] == nil {
		m.joined[s.ID()] = map[string]struct{}{}
	}
	m.joined[s.ID()][room] = struct{}{}
}

func (m *memoryRegistry) Leave(room string, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms[room], s.ID())
	if len(m.rooms[room]) == 0 {
		delete(m.rooms, room)
	}
	delete(m.joined[s.ID()], room)
}

func (m *memoryRegistry) Sessions(room string) []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Session, 0, len(m.rooms[room]))
	for _, s := range m.rooms[room] {
		out = append(out, s)
	}
	return out
}

func (m *memoryRegistry) Each(fn func(s Session)) {
	m.mu.RLock()
	snapshot := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshot = append(snapshot, s)
	}
	m.mu.RUnlock()
	for _, s := range snapshot {
		fn(s)
	}
}
