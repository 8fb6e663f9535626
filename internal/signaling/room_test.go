package signaling

import (
	"testing"
	"time"
)

func member(id string) *Client {
	return &Client{ID: id}
}

func TestRoomHostFollowsInsertionOrder(t *testing.T) {
	r := NewRoom("garden")

	if r.Host() != nil {
		t.Fatal("empty room has a host")
	}

	r.AddMember(member("a"))
	r.AddMember(member("b"))
	r.AddMember(member("c"))

	if got := r.Host().ID; got != "a" {
		t.Errorf("host = %q, want %q", got, "a")
	}

	r.RemoveMember("a")
	if got := r.Host().ID; got != "b" {
		t.Errorf("host after departure = %q, want %q", got, "b")
	}

	// Removing from the middle keeps the order of the rest.
	r.AddMember(member("d"))
	r.RemoveMember("c")
	if got := r.Host().ID; got != "b" {
		t.Errorf("host after middle removal = %q, want %q", got, "b")
	}
	if ms := r.Members(); len(ms) != 2 || ms[0].ID != "b" || ms[1].ID != "d" {
		t.Errorf("members out of order: %v", ms)
	}
}

func TestRoomAddMemberIdempotent(t *testing.T) {
	r := NewRoom("garden")
	r.AddMember(member("a"))
	r.AddMember(member("a"))

	if got := len(r.Members()); got != 1 {
		t.Errorf("member count = %d, want 1", got)
	}
}

func TestRoomRemoveMemberReportsPresence(t *testing.T) {
	r := NewRoom("garden")
	r.AddMember(member("a"))

	if !r.RemoveMember("a") {
		t.Error("RemoveMember(a) = false, want true")
	}
	if r.RemoveMember("a") {
		t.Error("second RemoveMember(a) = true, want false")
	}
	if !r.Empty() {
		t.Error("room not empty after removing sole member")
	}
}

func TestRoomPendingDedup(t *testing.T) {
	r := NewRoom("garden")
	p := &PendingJoin{RequesterID: "guest", DisplayName: "Bob", RequestedAt: time.Now()}

	if !r.AddPending(p) {
		t.Fatal("first AddPending = false, want true")
	}
	if r.AddPending(&PendingJoin{RequesterID: "guest", DisplayName: "Bob again"}) {
		t.Error("duplicate AddPending = true, want false")
	}
	if got := r.PendingCount(); got != 1 {
		t.Errorf("pending count = %d, want 1", got)
	}

	taken := r.TakePending("guest")
	if taken == nil || taken.DisplayName != "Bob" {
		t.Fatalf("TakePending = %+v, want the original request", taken)
	}
	if r.TakePending("guest") != nil {
		t.Error("second TakePending returned a request")
	}
}

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry()

	room, created := reg.GetOrCreate("garden")
	if !created || room == nil {
		t.Fatal("first GetOrCreate did not create")
	}
	if _, created := reg.GetOrCreate("garden"); created {
		t.Error("second GetOrCreate reported created")
	}
	if reg.Len() != 1 {
		t.Errorf("Len = %d, want 1", reg.Len())
	}

	reg.Delete("garden")
	if reg.Get("garden") != nil {
		t.Error("deleted room still resolvable")
	}
}
