package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/minhtq/quizchat/internal/domain"
	"github.com/minhtq/quizchat/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return s
}

func seedUsers(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, u := range []*domain.User{
		{ID: "u1", Name: "Alice"},
		{ID: "u2", Name: "Bob"},
		{ID: "admin", Name: "Root", Role: domain.RoleAdmin},
	} {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("seeding user: %v", err)
		}
	}
}

func TestAppendChatAssignsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	msg := &storage.ChatMessage{UserID: "u1", UserName: "Alice", Content: "hi"}
	if err := s.AppendChat(context.Background(), msg); err != nil {
		t.Fatalf("append: %v", err)
	}
	if msg.ID == "" {
		t.Error("append should assign an id")
	}
	if msg.Timestamp.IsZero() {
		t.Error("append should assign a timestamp")
	}
}

func TestListChatOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		msg := &storage.ChatMessage{UserID: "u1", UserName: "Alice", Content: fmt.Sprintf("msg-%d", i)}
		if err := s.AppendChat(ctx, msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.ListChat(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	// The 3 most recent, oldest first.
	for i, want := range []string{"msg-7", "msg-8", "msg-9"} {
		if got[i].Content != want {
			t.Errorf("position %d: expected %q, got %q", i, want, got[i].Content)
		}
	}
}

func TestDeleteChatMessage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	msg := &storage.ChatMessage{UserID: "u1", UserName: "Alice", Content: "hi"}
	if err := s.AppendChat(ctx, msg); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteChatMessage(ctx, msg.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteChatMessage(ctx, msg.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete should report ErrNotFound, got %v", err)
	}
	got, _ := s.ListChat(ctx, 10)
	if len(got) != 0 {
		t.Errorf("deleted message still listed")
	}
}

func TestDeleteAllChat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.AppendChat(ctx, &storage.ChatMessage{UserID: "u1", UserName: "Alice", Content: "x"})
	}
	deleted, err := s.DeleteAllChat(ctx)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if deleted != 5 {
		t.Errorf("expected 5 deleted rows, got %d", deleted)
	}
}

func TestPrivateThreadIsUnordered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.AppendPrivate(ctx, &storage.PrivateMessage{FromUserID: "u1", FromUserName: "Alice", ToUserID: "u2", Content: "hi bob"})
	s.AppendPrivate(ctx, &storage.PrivateMessage{FromUserID: "u2", FromUserName: "Bob", ToUserID: "u1", Content: "hi alice"})
	s.AppendPrivate(ctx, &storage.PrivateMessage{FromUserID: "u1", FromUserName: "Alice", ToUserID: "u3", Content: "other thread"})

	got, err := s.ListPrivateThread(ctx, "u2", "u1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages in the thread, got %d", len(got))
	}
	if got[0].Content != "hi bob" || got[1].Content != "hi alice" {
		t.Errorf("thread out of order: %+v", got)
	}
}

func TestDeletePrivateThreadIsFinal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.AppendPrivate(ctx, &storage.PrivateMessage{FromUserID: "u1", FromUserName: "Alice", ToUserID: "u2", Content: "a"})
	s.AppendPrivate(ctx, &storage.PrivateMessage{FromUserID: "u2", FromUserName: "Bob", ToUserID: "u1", Content: "b"})
	s.AppendPrivate(ctx, &storage.PrivateMessage{FromUserID: "u1", FromUserName: "Alice", ToUserID: "u3", Content: "keep"})

	deleted, err := s.DeletePrivateThread(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted rows, got %d", deleted)
	}
	got, _ := s.ListPrivateThread(ctx, "u1", "u2", 10)
	if len(got) != 0 {
		t.Errorf("thread should be empty after deletion, got %d", len(got))
	}
	kept, _ := s.ListPrivateThread(ctx, "u1", "u3", 10)
	if len(kept) != 1 {
		t.Errorf("unrelated thread must survive, got %d", len(kept))
	}
}

func TestAddDiscussion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUsers(t, s)
	s.CreateQuiz(ctx, &storage.Quiz{ID: "q1", Title: "TCP basics", Description: "handshake"})

	entry, err := s.AddDiscussion(ctx, "q1", "u1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if entry.QuizTitle != "TCP basics" || entry.AddedByName != "Alice" {
		t.Errorf("denormalized fields wrong: %+v", entry)
	}

	if _, err := s.AddDiscussion(ctx, "q1", "u2"); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Errorf("re-add should report ErrAlreadyExists, got %v", err)
	}
	if _, err := s.AddDiscussion(ctx, "missing", "u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown quiz should report ErrNotFound, got %v", err)
	}
}

func TestRemoveDiscussionCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUsers(t, s)
	s.CreateQuiz(ctx, &storage.Quiz{ID: "q1", Title: "TCP"})
	if _, err := s.AddDiscussion(ctx, "q1", "u1"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		s.AppendDiscussionMessage(ctx, &storage.DiscussionMessage{QuizID: "q1", UserID: "u1", UserName: "Alice", Content: "x"})
	}

	if err := s.RemoveDiscussion(ctx, "q1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.GetDiscussion(ctx, "q1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("entry should be gone, got %v", err)
	}
	msgs, _ := s.ListDiscussionMessages(ctx, "q1", 10)
	if len(msgs) != 0 {
		t.Errorf("messages should cascade away, got %d", len(msgs))
	}
	if err := s.RemoveDiscussion(ctx, "q1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second remove should report ErrNotFound, got %v", err)
	}
}

func TestDiscussionMessageCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUsers(t, s)
	s.CreateQuiz(ctx, &storage.Quiz{ID: "q1", Title: "TCP"})
	s.AddDiscussion(ctx, "q1", "u1")
	for i := 0; i < 4; i++ {
		s.AppendDiscussionMessage(ctx, &storage.DiscussionMessage{QuizID: "q1", UserID: "u1", UserName: "Alice", Content: "x"})
	}

	entry, err := s.GetDiscussion(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if entry.MessageCount != 4 {
		t.Errorf("expected message count 4, got %d", entry.MessageCount)
	}
}

func TestListDiscussionsPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUsers(t, s)
	for i := 0; i < 5; i++ {
		quizID := fmt.Sprintf("q%d", i)
		s.CreateQuiz(ctx, &storage.Quiz{ID: quizID, Title: quizID})
		if _, err := s.AddDiscussion(ctx, quizID, "u1"); err != nil {
			t.Fatal(err)
		}
	}

	page, err := s.ListDiscussions(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 5 || page.Pages != 3 || len(page.Items) != 2 {
		t.Errorf("bad pagination: total=%d pages=%d items=%d", page.Total, page.Pages, len(page.Items))
	}
}

func TestGetUser(t *testing.T) {
	s := newTestStore(t)
	seedUsers(t, s)
	user, err := s.GetUser(context.Background(), "admin")
	if err != nil {
		t.Fatal(err)
	}
	if !user.IsAdmin() {
		t.Error("admin role lost")
	}
	if _, err := s.GetUser(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
