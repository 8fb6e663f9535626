package signaling

import "time"

// PendingJoin is a join request waiting for the host's decision. At most one
// exists per (room, requester).
type PendingJoin struct {
	RequesterID string
	DisplayName string
	RequestedAt time.Time
}

// Room groups the participants of one signaling scope. Member order is
// insertion order; the first member is the host. Rooms are created on first
// join and destroyed when the member list empties.
//
// Room is not safe for concurrent use. The hub's event loop is the only
// writer, which serializes all access.
type Room struct {
	ID      string
	members []*Client
	pending map[string]*PendingJoin
}

func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		pending: make(map[string]*PendingJoin),
	}
}

// Host returns the earliest-joined member still present, or nil for an empty
// room. There is no explicit host transfer: when the host leaves, approval
// authority falls to the next member in insertion order.
func (r *Room) Host() *Client {
	if len(r.members) == 0 {
		return nil
	}
	return r.members[0]
}

// AddMember appends c to the member list. Adding an existing member is a
// no-op, keeping join-room idempotent.
func (r *Room) AddMember(c *Client) {
	if r.IsMember(c.ID) {
		return
	}
	r.members = append(r.members, c)
}

// RemoveMember removes the member with the given id, preserving the order of
// the rest. Reports whether the id was a member.
func (r *Room) RemoveMember(id string) bool {
	for i, m := range r.members {
		if m.ID == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) IsMember(id string) bool {
	for _, m := range r.members {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Members returns the member list in insertion order.
func (r *Room) Members() []*Client {
	return r.members
}

// Others returns every member except the one with the given id.
func (r *Room) Others(exceptID string) []*Client {
	out := make([]*Client, 0, len(r.members))
	for _, m := range r.members {
		if m.ID != exceptID {
			out = append(out, m)
		}
	}
	return out
}

func (r *Room) Empty() bool {
	return len(r.members) == 0
}

// AddPending records a join request. Reports false if the requester already
// has one pending, so duplicate requests never create a second entry.
func (r *Room) AddPending(p *PendingJoin) bool {
	if _, ok := r.pending[p.RequesterID]; ok {
		return false
	}
	r.pending[p.RequesterID] = p
	return true
}

// TakePending removes and returns the pending request for requesterID, or
// nil if none exists.
func (r *Room) TakePending(requesterID string) *PendingJoin {
	p, ok := r.pending[requesterID]
	if !ok {
		return nil
	}
	delete(r.pending, requesterID)
	return p
}

func (r *Room) PendingCount() int {
	return len(r.pending)
}
