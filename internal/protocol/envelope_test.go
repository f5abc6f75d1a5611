package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/minhtq/quizchat/internal/domain"
)

func TestDecodeMessage(t *testing.T) {
	in, err := Decode([]byte(`{"type":"message","content":"  hello  "}`), 100, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Type != KindMessage {
		t.Errorf("expected type message, got %q", in.Type)
	}
	if in.Content != "hello" {
		t.Errorf("content not trimmed, got %q", in.Content)
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	if _, err := Decode([]byte(`{not json`), 100, true); !errors.Is(err, ErrBadPayload) {
		t.Errorf("expected ErrBadPayload, got %v", err)
	}
}

func TestDecodeRejectsEmptyContent(t *testing.T) {
	for _, raw := range []string{
		`{"type":"message","content":""}`,
		`{"type":"message","content":"   "}`,
		`{"type":"message"}`,
	} {
		if _, err := Decode([]byte(raw), 100, true); !errors.Is(err, ErrEmptyContent) {
			t.Errorf("Decode(%s): expected ErrEmptyContent, got %v", raw, err)
		}
	}
}

func TestDecodeRejectsOversizedContent(t *testing.T) {
	raw := `{"type":"message","content":"` + strings.Repeat("a", 101) + `"}`
	if _, err := Decode([]byte(raw), 100, true); !errors.Is(err, ErrContentTooLong) {
		t.Errorf("expected ErrContentTooLong, got %v", err)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"shout","content":"hi"}`), 100, true); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestDecodePrivateRequiresRecipient(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"private","content":"hi"}`), 100, true); !errors.Is(err, ErrMissingRecipient) {
		t.Errorf("expected ErrMissingRecipient, got %v", err)
	}
}

func TestDecodePrivateNotAllowedOnDiscussion(t *testing.T) {
	raw := `{"type":"private","content":"hi","to":"u2"}`
	if _, err := Decode([]byte(raw), 100, false); !errors.Is(err, ErrTypeNotAllowed) {
		t.Errorf("expected ErrTypeNotAllowed, got %v", err)
	}
}

func TestDecodeIgnoresToOnPlainMessage(t *testing.T) {
	in, err := Decode([]byte(`{"type":"message","content":"hi","to":"u2"}`), 100, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.To != "" {
		t.Errorf("to should be cleared on plain messages, got %q", in.To)
	}
}

func TestOutboundFrameShapes(t *testing.T) {
	user := &domain.User{ID: "u1", Name: "Alice"}
	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	b, err := json.Marshal(NewChatMessage("m1", user, "hi", ts))
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["type"] != "message" || decoded["userId"] != "u1" || decoded["userName"] != "Alice" {
		t.Errorf("bad message frame: %s", b)
	}
	if decoded["timestamp"] != "2026-02-03T04:05:06Z" {
		t.Errorf("expected RFC3339 timestamp, got %v", decoded["timestamp"])
	}

	b, _ = json.Marshal(NewPrivateMessage(user, "psst", ts))
	if !strings.Contains(string(b), `"from":{"id":"u1","name":"Alice"}`) {
		t.Errorf("bad private_message frame: %s", b)
	}

	b, _ = json.Marshal(NewOnlineUsers(nil))
	if string(b) != `{"type":"online_users","users":[]}` {
		t.Errorf("empty snapshot should serialize an empty array, got %s", b)
	}

	b, _ = json.Marshal(NewErrorFrame("nope"))
	if string(b) != `{"type":"error","content":"nope"}` {
		t.Errorf("bad error frame: %s", b)
	}
}
