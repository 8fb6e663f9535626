package signaling

// Registry owns the process-wide room map. It is an explicit dependency of
// the hub rather than ambient package state, and like Room it relies on the
// hub's single event loop for serialization. State lives for the process
// lifetime only; nothing is persisted.
type Registry struct {
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Get returns the room with the given id, or nil.
func (reg *Registry) Get(id string) *Room {
	return reg.rooms[id]
}

// GetOrCreate returns the room with the given id, creating it if absent.
// The second result reports whether the room was created by this call.
func (reg *Registry) GetOrCreate(id string) (*Room, bool) {
	if room, ok := reg.rooms[id]; ok {
		return room, false
	}
	room := NewRoom(id)
	reg.rooms[id] = room
	return room, true
}

func (reg *Registry) Delete(id string) {
	delete(reg.rooms, id)
}

// Rooms returns a snapshot of all rooms. Callers may mutate membership while
// iterating the snapshot.
func (reg *Registry) Rooms() []*Room {
	out := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		out = append(out, room)
	}
	return out
}

func (reg *Registry) Len() int {
	return len(reg.rooms)
}
