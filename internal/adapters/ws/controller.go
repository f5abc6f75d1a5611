// Package ws owns connection sessions: handshake, frame dispatch, and
// teardown for the community chat and quiz discussion endpoints.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/minhtq/quizchat/internal/app"
	"github.com/minhtq/quizchat/internal/auth"
	"github.com/minhtq/quizchat/internal/config"
	"github.com/minhtq/quizchat/internal/domain"
	"github.com/minhtq/quizchat/internal/protocol"
	"github.com/minhtq/quizchat/internal/storage"
)

// Close codes sent on a refused handshake.
const (
	CloseAuthRejected = 4001
	CloseUnknownRoom  = 4004
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	cfg      *config.Config
	auth     *auth.Verifier
	store    storage.Store
	presence *app.Presence
	rooms    *app.Rooms
	limiter  *app.MessageLimiter
}

func NewController(cfg *config.Config, verifier *auth.Verifier, store storage.Store, presence *app.Presence, rooms *app.Rooms, limiter *app.MessageLimiter) *Controller {
	return &Controller{
		cfg:      cfg,
		auth:     verifier,
		store:    store,
		presence: presence,
		rooms:    rooms,
		limiter:  limiter,
	}
}

// session is the per-connection routing context. quizID is empty on the
// global endpoint; allowPrivate is true only there.
type session struct {
	room         domain.RoomID
	quizID       string
	allowPrivate bool
}

// HandleChat serves GET /ws/chat?token=...: the global room plus private
// addressing.
func (ctl *Controller) HandleChat(ctx context.Context, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}
	user, err := ctl.auth.Authenticate(c.Request.Context(), c.Query("token"))
	if err != nil {
		closeWith(conn, CloseAuthRejected, "invalid token")
		return
	}
	ctl.serve(ctx, conn, user, &session{room: domain.RoomGlobal, allowPrivate: true})
}

// HandleDiscussion serves GET /ws/discussion/:quizId?token=... and refuses
// the connection when the quiz was never opened for discussion.
func (ctl *Controller) HandleDiscussion(ctx context.Context, c *gin.Context) {
	quizID := c.Param("quizId")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}
	user, err := ctl.auth.Authenticate(c.Request.Context(), c.Query("token"))
	if err != nil {
		closeWith(conn, CloseAuthRejected, "invalid token")
		return
	}
	if _, err := ctl.store.GetDiscussion(c.Request.Context(), quizID); err != nil {
		closeWith(conn, CloseUnknownRoom, "discussion not found")
		return
	}
	ctl.serve(ctx, conn, user, &session{room: domain.DiscussionRoom(quizID), quizID: quizID})
}

func (ctl *Controller) serve(ctx context.Context, conn *websocket.Conn, user *domain.User, s *session) {
	sid := app.SessionID(uuid.NewString())
	cl := newClient(sid, user, conn, ctl.cfg.SendBuffer)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info().Str("module", "ws").Str("sid", string(sid)).Str("user", string(user.ID)).Str("room", string(s.room)).Msg("session opened")

	ctl.rooms.Subscribe(s.room, sid, user.ID, cl)
	ctl.presence.Join(s.room, user.ID, user.Name)
	defer func() {
		ctl.rooms.Unsubscribe(s.room, sid)
		if ctl.presence.Leave(s.room, user.ID) {
			ctl.limiter.Forget(user.ID)
		}
		cl.Close()
		ctl.broadcastPresence(s.room)
		log.Info().Str("module", "ws").Str("sid", string(sid)).Msg("session closed")
	}()

	go ctl.writePump(ctx, cl)

	// The snapshot goes to the whole room, which also covers the caller's
	// initial online_users frame since it is already subscribed.
	ctl.broadcastPresence(s.room)

	ctl.readLoop(ctx, cl, s)
}

func (ctl *Controller) handleFrame(ctx context.Context, cl *client, s *session, data []byte) {
	if !ctl.limiter.Allow(cl.user.ID) {
		ctl.sendJSON(cl, protocol.NewErrorFrame("too many messages, slow down"))
		return
	}

	in, err := protocol.Decode(data, ctl.cfg.MaxMessageLen, s.allowPrivate)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("sid", string(cl.sid)).Msg("rejected frame")
		ctl.sendJSON(cl, protocol.NewErrorFrame(err.Error()))
		return
	}

	switch in.Type {
	case protocol.KindMessage:
		ctl.handleMessage(ctx, cl, s, in)
	case protocol.KindPrivate:
		ctl.handlePrivate(ctx, cl, in)
	}
}

func (ctl *Controller) handleMessage(ctx context.Context, cl *client, s *session, in *protocol.Inbound) {
	now := time.Now()
	var id string
	var err error
	if s.quizID != "" {
		msg := &storage.DiscussionMessage{
			QuizID:    s.quizID,
			UserID:    cl.user.ID,
			UserName:  cl.user.Name,
			Content:   in.Content,
			Timestamp: now,
		}
		err = ctl.store.AppendDiscussionMessage(ctx, msg)
		id = msg.ID
	} else {
		msg := &storage.ChatMessage{
			UserID:    cl.user.ID,
			UserName:  cl.user.Name,
			Content:   in.Content,
			Timestamp: now,
		}
		err = ctl.store.AppendChat(ctx, msg)
		id = msg.ID
	}
	if err != nil {
		// Nothing is fanned out for an unpersisted message.
		log.Error().Err(err).Str("module", "ws").Str("sid", string(cl.sid)).Msg("append failed")
		ctl.sendJSON(cl, protocol.NewErrorFrame("message could not be saved"))
		return
	}
	ctl.rooms.Publish(s.room, protocol.NewChatMessage(id, cl.user, in.Content, now))
}

func (ctl *Controller) handlePrivate(ctx context.Context, cl *client, in *protocol.Inbound) {
	to := domain.UserID(in.To)
	if _, err := ctl.store.GetUser(ctx, to); err != nil {
		ctl.sendJSON(cl, protocol.NewErrorFrame("unknown recipient"))
		return
	}
	msg := &storage.PrivateMessage{
		FromUserID:   cl.user.ID,
		FromUserName: cl.user.Name,
		ToUserID:     to,
		Content:      in.Content,
		Timestamp:    time.Now(),
	}
	if err := ctl.store.AppendPrivate(ctx, msg); err != nil {
		log.Error().Err(err).Str("module", "ws").Str("sid", string(cl.sid)).Msg("append failed")
		ctl.sendJSON(cl, protocol.NewErrorFrame("message could not be saved"))
		return
	}
	// Delivery is best-effort when the recipient is offline; history keeps
	// the message either way.
	ctl.rooms.PublishToUser(domain.RoomGlobal, to, protocol.NewPrivateMessage(cl.user, in.Content, msg.Timestamp))
	ctl.sendJSON(cl, protocol.NewPrivateSent(to, in.Content, msg.Timestamp))
}

func (ctl *Controller) broadcastPresence(room domain.RoomID) {
	ctl.rooms.Publish(room, protocol.NewOnlineUsers(ctl.presence.Snapshot(room)))
}

func (ctl *Controller) sendJSON(c *client, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}
