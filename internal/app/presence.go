package app

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/minhtq/quizchat/internal/domain"
	"github.com/minhtq/quizchat/internal/protocol"
)

type presenceEntry struct {
	name     string
	sessions int
}

// Presence tracks which users currently hold at least one open connection to
// a room. Multiple sessions of the same user collapse to one entry; the entry
// is removed only when the last session leaves.
type Presence struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]map[domain.UserID]*presenceEntry
}

func NewPresence() *Presence {
	return &Presence{rooms: make(map[domain.RoomID]map[domain.UserID]*presenceEntry)}
}

func (p *Presence) Join(room domain.RoomID, uid domain.UserID, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	users, ok := p.rooms[room]
	if !ok {
		users = make(map[domain.UserID]*presenceEntry)
		p.rooms[room] = users
	}
	if e, ok := users[uid]; ok {
		e.sessions++
		e.name = name
		return
	}
	users[uid] = &presenceEntry{name: name, sessions: 1}
	log.Info().Str("module", "app.presence").Str("room", string(room)).Str("user", string(uid)).Msg("user online")
}

// Leave drops one session reference and reports whether the user went
// offline in that room. Leaving a room the user was not in is a no-op.
func (p *Presence) Leave(room domain.RoomID, uid domain.UserID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	users, ok := p.rooms[room]
	if !ok {
		return false
	}
	e, ok := users[uid]
	if !ok {
		return false
	}
	e.sessions--
	if e.sessions > 0 {
		return false
	}
	delete(users, uid)
	if len(users) == 0 {
		delete(p.rooms, room)
	}
	log.Info().Str("module", "app.presence").Str("room", string(room)).Str("user", string(uid)).Msg("user offline")
	return true
}

// Snapshot returns the room's online list, ordered by user id so two
// snapshots of the same state compare equal.
func (p *Presence) Snapshot(room domain.RoomID) []protocol.UserRef {
	p.mu.RLock()
	defer p.mu.RUnlock()
	users := p.rooms[room]
	out := make([]protocol.UserRef, 0, len(users))
	for uid, e := range users {
		out = append(out, protocol.UserRef{ID: uid, Name: e.name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
