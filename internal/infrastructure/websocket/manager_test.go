package websocket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSendEventDeliversToConnectedUser(t *testing.T) {
	m := NewManager()
	client := &Client{UserID: "u1", Send: make(chan []byte, 1)}
	m.clients["u1"] = client

	m.SendEvent("u1", Event{Type: "new_message", Payload: map[string]string{"id": "m1"}})

	select {
	case data := <-client.Send:
		assert.Contains(t, string(data), "new_message")
	default:
		t.Fatal("expected an event on the client channel")
	}
}

func TestSendToUserIgnoresDisconnectedUsers(t *testing.T) {
	m := NewManager()
	m.SendToUser("nobody", []byte("hello"))
	assert.False(t, m.IsConnected("nobody"))
}

// Many request goroutines fanning out to the same backlogged connection must
// drop it exactly once; a second drop used to panic on the closed channel.
func TestConcurrentFanoutToSlowConsumer(t *testing.T) {
	for round := 0; round < 200; round++ {
		m := NewManager()
		client := &Client{UserID: "u1", Send: make(chan []byte)} // no reader
		m.clients["u1"] = client

		var start, done sync.WaitGroup
		start.Add(1)
		for i := 0; i < 16; i++ {
			done.Add(1)
			go func() {
				defer done.Done()
				start.Wait()
				m.SendToUser("u1", []byte("hi"))
			}()
		}
		start.Done()
		done.Wait()

		assert.False(t, m.IsConnected("u1"), "slow consumer must be dropped")
	}
}

func TestReconnectSurvivesStaleUnregister(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	first := &Client{UserID: "u1", Send: make(chan []byte, 1)}
	second := &Client{UserID: "u1", Send: make(chan []byte, 1)}
	m.Register <- first
	m.Register <- second

	select {
	case _, open := <-first.Send:
		assert.False(t, open, "replaced connection's channel must be closed")
	case <-time.After(time.Second):
		t.Fatal("previous connection was not closed on reconnect")
	}

	// The old connection's read pump unregisters after the replacement; the
	// trailing register forces the loop to finish processing it.
	m.Unregister <- first
	m.Register <- &Client{UserID: "u2", Send: make(chan []byte, 1)}

	assert.True(t, m.IsConnected("u1"), "stale unregister must not drop the new connection")
}
