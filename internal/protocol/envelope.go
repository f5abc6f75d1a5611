// Package protocol defines the wire schema for chat frames in both
// directions. Everything crossing a websocket is built or validated here.
package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/minhtq/quizchat/internal/domain"
)

const (
	KindMessage = "message"
	KindPrivate = "private"
)

var (
	ErrBadPayload       = errors.New("bad payload")
	ErrUnknownType      = errors.New("unknown frame type")
	ErrTypeNotAllowed   = errors.New("frame type not allowed on this endpoint")
	ErrEmptyContent     = errors.New("empty content")
	ErrContentTooLong   = errors.New("content too long")
	ErrMissingRecipient = errors.New("missing recipient")
)

// Inbound is a single client frame. Content is trimmed during Decode.
type Inbound struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	To      string `json:"to,omitempty"`
}

// Decode parses and validates a raw frame. allowPrivate is false on the
// discussion endpoint, where only plain messages are legal. The To field is
// ignored unless the frame type is "private".
func Decode(data []byte, maxContent int, allowPrivate bool) (*Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, ErrBadPayload
	}
	switch in.Type {
	case KindMessage:
		in.To = ""
	case KindPrivate:
		if !allowPrivate {
			return nil, ErrTypeNotAllowed
		}
		if in.To == "" {
			return nil, ErrMissingRecipient
		}
	default:
		return nil, ErrUnknownType
	}
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return nil, ErrEmptyContent
	}
	if len(in.Content) > maxContent {
		return nil, ErrContentTooLong
	}
	return &in, nil
}

// UserRef is the {id,name} pair used in presence lists and private frames.
type UserRef struct {
	ID   domain.UserID `json:"id"`
	Name string        `json:"name"`
}

type ChatMessage struct {
	Type      string        `json:"type"`
	ID        string        `json:"id"`
	UserID    domain.UserID `json:"userId"`
	UserName  string        `json:"userName"`
	Content   string        `json:"content"`
	Timestamp string        `json:"timestamp"`
}

type PrivateMessage struct {
	Type      string  `json:"type"`
	From      UserRef `json:"from"`
	Content   string  `json:"content"`
	Timestamp string  `json:"timestamp"`
}

type PrivateSent struct {
	Type      string        `json:"type"`
	To        domain.UserID `json:"to"`
	Content   string        `json:"content"`
	Timestamp string        `json:"timestamp"`
}

type OnlineUsers struct {
	Type  string    `json:"type"`
	Users []UserRef `json:"users"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func NewChatMessage(id string, user *domain.User, content string, ts time.Time) ChatMessage {
	return ChatMessage{
		Type:      KindMessage,
		ID:        id,
		UserID:    user.ID,
		UserName:  user.Name,
		Content:   content,
		Timestamp: FormatTime(ts),
	}
}

func NewPrivateMessage(from *domain.User, content string, ts time.Time) PrivateMessage {
	return PrivateMessage{
		Type:      "private_message",
		From:      UserRef{ID: from.ID, Name: from.Name},
		Content:   content,
		Timestamp: FormatTime(ts),
	}
}

func NewPrivateSent(to domain.UserID, content string, ts time.Time) PrivateSent {
	return PrivateSent{
		Type:      "private_sent",
		To:        to,
		Content:   content,
		Timestamp: FormatTime(ts),
	}
}

func NewOnlineUsers(users []UserRef) OnlineUsers {
	if users == nil {
		users = []UserRef{}
	}
	return OnlineUsers{Type: "online_users", Users: users}
}

func NewErrorFrame(reason string) ErrorFrame {
	return ErrorFrame{Type: "error", Content: reason}
}

// FormatTime renders timestamps the way the REST surface does, so a frame and
// its backfilled copy compare equal.
func FormatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
