package ws

import (
	"context"
	"errors"
	"testing"
	"time"

	"parley/internal/models"
)

type mockWS struct {
	readCh      chan models.ClientFrame
	writeCh     chan any
	closeCh     chan struct{}
	closed      bool
	errToReturn error
}

func newMockWS() *mockWS {
	return &mockWS{
		readCh:  make(chan models.ClientFrame, 10),
		writeCh: make(chan any, 10),
		closeCh: make(chan struct{}),
	}
}

func (m *mockWS) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.closeCh)
	return nil
}

func (m *mockWS) WriteJSON(v any) error {
	if m.errToReturn != nil {
		return m.errToReturn
	}
	m.writeCh <- v
	return nil
}

func (m *mockWS) ReadJSON(v any) error {
	if m.errToReturn != nil {
		return m.errToReturn
	}
	select {
	case frame, ok := <-m.readCh:
		if !ok {
			return errors.New("closed")
		}
		if ptr, ok := v.(*models.ClientFrame); ok {
			*ptr = frame
		}
		return nil
	case <-m.closeCh:
		return errors.New("connection closed")
	}
}

type mockAppender struct {
	appendCh chan models.ClientFrame
}

func (m *mockAppender) Append(conversationID, senderID, body string, attachments []models.Attachment) (models.EnrichedMessage, error) {
	m.appendCh <- models.ClientFrame{ConversationID: conversationID, Content: body, Attachments: attachments}
	return models.EnrichedMessage{SenderID: senderID, Content: body, IsSelf: true}, nil
}

func TestConnection_Lifecycle(t *testing.T) {
	hub := NewHub()
	ws := newMockWS()
	store := &mockAppender{appendCh: make(chan models.ClientFrame, 10)}
	userID := "user1"

	conn := NewConnection(hub, store, ws, userID)
	if conn == nil {
		t.Fatal("NewConnection returned nil")
	}
	if !hub.IsOnline(userID) {
		t.Error("connection not attached to hub")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error)
	go func() {
		done <- conn.Handle(ctx)
	}()

	// 1. Subscribe to a room via a client frame.
	ws.readCh <- models.ClientFrame{
		Type:           models.ClientFrameTypeSubscribe,
		ConversationID: "conv1",
	}

	// 2. Send a message; it must reach the store.
	ws.readCh <- models.ClientFrame{
		Type:           models.ClientFrameTypeSend,
		ConversationID: "conv1",
		Content:        "hello",
	}
	select {
	case received := <-store.appendCh:
		if received.Content != "hello" || received.ConversationID != "conv1" {
			t.Errorf("store received wrong append: %+v", received)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("store did not receive the message")
	}

	// 3. A publish to the subscribed room reaches the websocket. The
	// subscribe frame was processed before the send frame above, so the
	// subscription is in place by now.
	hub.Publish("conv1", models.EnrichedMessage{SenderID: "user2", Content: "hi back"})
	select {
	case received := <-ws.writeCh:
		frame, ok := received.(models.ServerFrame)
		if !ok {
			t.Fatalf("WS received wrong type: %T", received)
		}
		if frame.Message == nil || frame.Message.Content != "hi back" {
			t.Errorf("WS received wrong content: %+v", frame)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("WS did not receive the published frame")
	}

	// 4. Stop.
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Handle returned error: %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Handle did not return after cancel")
	}

	if hub.IsOnline(userID) {
		t.Error("connection not dropped from hub")
	}
	if !ws.closed {
		t.Error("WS Close not called")
	}
}

func TestConnection_WSError(t *testing.T) {
	hub := NewHub()
	ws := newMockWS()
	store := &mockAppender{appendCh: make(chan models.ClientFrame, 10)}

	conn := NewConnection(hub, store, ws, "user2")

	ws.errToReturn = errors.New("read error")

	done := make(chan error)
	go func() {
		done <- conn.Handle(context.Background())
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error from Handle, got nil")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Handle did not return on error")
	}

	if !ws.closed {
		t.Error("WS Close not called")
	}
	if hub.IsOnline("user2") {
		t.Error("connection not dropped after error")
	}
}
