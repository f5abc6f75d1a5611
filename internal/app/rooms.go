package app

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/minhtq/quizchat/internal/domain"
)

type SessionID string

// Subscriber is the outbound half of a connection session. TrySend must not
// block; a full send buffer is an error, not a stall.
type Subscriber interface {
	TrySend(data []byte) error
}

type subscriber struct {
	user domain.UserID
	sub  Subscriber
}

// Rooms maps room ids to their current subscriber sets and fans frames out to
// them. A single mutex serializes publishes, so delivery order within a room
// matches publish-call order.
type Rooms struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]map[SessionID]subscriber
}

func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[domain.RoomID]map[SessionID]subscriber)}
}

func (r *Rooms) Subscribe(room domain.RoomID, sid SessionID, uid domain.UserID, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.rooms[room]
	if !ok {
		subs = make(map[SessionID]subscriber)
		r.rooms[room] = subs
	}
	subs[sid] = subscriber{user: uid, sub: sub}
	log.Info().Str("module", "app.rooms").Str("room", string(room)).Str("sid", string(sid)).Msg("subscribed")
}

func (r *Rooms) Unsubscribe(room domain.RoomID, sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(subs, sid)
	if len(subs) == 0 {
		delete(r.rooms, room)
	}
	log.Info().Str("module", "app.rooms").Str("room", string(room)).Str("sid", string(sid)).Msg("unsubscribed")
}

// Publish delivers v to every current subscriber of the room and returns the
// delivered count. A failed send drops that subscriber's copy and never
// affects the others.
func (r *Rooms) Publish(room domain.RoomID, v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.rooms").Msg("publish marshal")
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sent := 0
	for sid, s := range r.rooms[room] {
		if err := s.sub.TrySend(data); err != nil {
			log.Warn().Err(err).Str("module", "app.rooms").Str("room", string(room)).Str("sid", string(sid)).Msg("dropped frame")
			continue
		}
		sent++
	}
	return sent
}

// PublishToUser delivers v to every session a user holds in the room.
// Used for private addressing, which targets a user rather than a room.
func (r *Rooms) PublishToUser(room domain.RoomID, uid domain.UserID, v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.rooms").Msg("publish marshal")
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sent := 0
	for sid, s := range r.rooms[room] {
		if s.user != uid {
			continue
		}
		if err := s.sub.TrySend(data); err != nil {
			log.Warn().Err(err).Str("module", "app.rooms").Str("room", string(room)).Str("sid", string(sid)).Msg("dropped frame")
			continue
		}
		sent++
	}
	return sent
}
