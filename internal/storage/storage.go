// Package storage defines the persistence contract for chat history, the
// discussion registry, and the user/quiz read models owned by the rest of
// the platform.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/minhtq/quizchat/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// ChatMessage is a persisted community chat record.
type ChatMessage struct {
	ID        string
	UserID    domain.UserID
	UserName  string
	Content   string
	Timestamp time.Time
}

// PrivateMessage belongs to the unordered {from,to} pair.
type PrivateMessage struct {
	ID           string
	FromUserID   domain.UserID
	FromUserName string
	ToUserID     domain.UserID
	Content      string
	Timestamp    time.Time
}

type DiscussionMessage struct {
	ID        string
	QuizID    string
	UserID    domain.UserID
	UserName  string
	Content   string
	Timestamp time.Time
}

// DiscussionEntry marks a quiz as open for discussion. Quiz title and
// description are denormalized at add time for listing.
type DiscussionEntry struct {
	ID              string
	QuizID          string
	QuizTitle       string
	QuizDescription string
	AddedBy         domain.UserID
	AddedByName     string
	AddedAt         time.Time
	MessageCount    int64
}

type DiscussionPage struct {
	Items []DiscussionEntry
	Total int64
	Page  int
	Size  int
	Pages int
}

// Quiz is the read model this service needs from the quiz catalog.
type Quiz struct {
	ID          string
	Title       string
	Description string
}

// Store defines persistence operations used by the server. Appends assign the
// record's ID and Timestamp when unset and complete before any fan-out, so
// history never misses a delivered message. Deletes are hard removes.
type Store interface {
	Close() error
	Migrate(ctx context.Context) error

	AppendChat(ctx context.Context, msg *ChatMessage) error
	ListChat(ctx context.Context, limit int) ([]ChatMessage, error)
	DeleteChatMessage(ctx context.Context, id string) error
	DeleteAllChat(ctx context.Context) (int64, error)

	AppendPrivate(ctx context.Context, msg *PrivateMessage) error
	ListPrivateThread(ctx context.Context, a, b domain.UserID, limit int) ([]PrivateMessage, error)
	DeletePrivateThread(ctx context.Context, a, b domain.UserID) (int64, error)

	AddDiscussion(ctx context.Context, quizID string, addedBy domain.UserID) (*DiscussionEntry, error)
	GetDiscussion(ctx context.Context, quizID string) (*DiscussionEntry, error)
	ListDiscussions(ctx context.Context, page, size int) (*DiscussionPage, error)
	RemoveDiscussion(ctx context.Context, quizID string) error

	AppendDiscussionMessage(ctx context.Context, msg *DiscussionMessage) error
	ListDiscussionMessages(ctx context.Context, quizID string, limit int) ([]DiscussionMessage, error)

	GetUser(ctx context.Context, id domain.UserID) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	GetQuiz(ctx context.Context, id string) (*Quiz, error)
	CreateQuiz(ctx context.Context, quiz *Quiz) error
}
