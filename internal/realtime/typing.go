package realtime

import (
	"sort"
	"sync"
)

// TypingRegistry tracks which users are currently typing in which room.
// State is entirely volatile: it lives for the duration of the process and
// is bounded by garbage-collecting room entries whose sets drain empty.
//
// Both operations are total: an unknown room behaves as an empty set.
// A single mutex serializes all mutations, which is plenty for a state
// whose entries are a handful of user ids per active room.
type TypingRegistry struct {
	mu    sync.Mutex
	rooms map[string]map[string]struct{}
}

// NewTypingRegistry constructs an empty registry.
func NewTypingRegistry() *TypingRegistry {
	return &TypingRegistry{rooms: make(map[string]map[string]struct{})}
}

// Start marks userID as typing in roomKey and returns the room's full
// typing set, sorted. Re-adding an already-typing user is a no-op.
func (r *TypingRegistry) Start(roomKey, userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.rooms[roomKey]
	if set == nil {
		set = make(map[string]struct{})
		r.rooms[roomKey] = set
	}
	set[userID] = struct{}{}
	return sortedKeys(set)
}

// Stop removes userID from the room's typing set and returns what remains,
// sorted (possibly empty). When the set drains, the room entry itself is
// removed so the registry never grows past the set of active rooms.
func (r *TypingRegistry) Stop(roomKey, userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.rooms[roomKey]
	if set == nil {
		return []string{}
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(r.rooms, roomKey)
		return []string{}
	}
	return sortedKeys(set)
}

// Typing returns the current typing set of a room, sorted. Unknown rooms
// yield an empty slice.
func (r *TypingRegistry) Typing(roomKey string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.rooms[roomKey])
}

// Rooms reports how many rooms currently hold a non-empty typing set.
func (r *TypingRegistry) Rooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
