package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/minhtq/quizchat/internal/app"
	"github.com/minhtq/quizchat/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// client owns one websocket connection and its authenticated identity.
// Created on a successful handshake, destroyed on disconnect. Never persisted.
type client struct {
	sid  app.SessionID
	user *domain.User
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newClient(sid app.SessionID, user *domain.User, conn *websocket.Conn, buffer int) *client {
	return &client{
		sid:  sid,
		user: user,
		conn: conn,
		send: make(chan []byte, buffer),
	}
}

// TrySend queues a frame without blocking. A full buffer means this session
// is too slow and loses the frame.
func (c *client) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
