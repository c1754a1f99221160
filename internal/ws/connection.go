package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"parley/internal/models"
)

type wsConnection interface {
	Close() error
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
}

type broadcaster interface {
	Attach(sub *Subscriber)
	Subscribe(sub *Subscriber, conversationID string) error
	Unsubscribe(sub *Subscriber, conversationID string)
	Drop(sub *Subscriber)
}

type appender interface {
	Append(conversationID, senderID, body string, attachments []models.Attachment) (models.EnrichedMessage, error)
}

// Connection pumps frames between one websocket client and the hub. A send
// frame goes through the conversation store, whose append callback fans the
// message back out to every room subscriber, including this connection.
type Connection struct {
	ws         wsConnection
	hub        broadcaster
	store      appender
	sub        *Subscriber
	fromClient chan models.ClientFrame
	errorCh    chan error
}

func NewConnection(hub broadcaster, store appender, ws wsConnection, userID string) *Connection {
	sub := NewSubscriber(userID)
	hub.Attach(sub)
	return &Connection{
		ws:         ws,
		hub:        hub,
		store:      store,
		sub:        sub,
		fromClient: make(chan models.ClientFrame),
		errorCh:    make(chan error, 2),
	}
}

func (c *Connection) Handle(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		close(c.fromClient)
		close(c.errorCh)
		c.hub.Drop(c.sub)
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		c.errorCh <- c.pumpFrames(ctx)
		cancel()
	})

	wg.Go(func() {
		c.errorCh <- c.mainLoop(ctx)
		cancel()
	})

	var err error
	select {
	case err = <-c.errorCh:
	case <-ctx.Done():
	}
	c.ws.Close()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (c *Connection) pumpFrames(ctx context.Context) error {
	for {
		var frame models.ClientFrame
		if err := c.ws.ReadJSON(&frame); err != nil {
			return err
		}
		select {
		case c.fromClient <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Connection) mainLoop(ctx context.Context) error {
	for {
		select {
		case frame := <-c.fromClient:
			c.processClientFrame(frame)
		case frame := <-c.sub.C:
			if err := c.ws.WriteJSON(frame); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// processClientFrame handles one inbound frame. Failures are logged and do
// not terminate the connection; the client learns about a rejected send via
// the absence of the echoed message.
func (c *Connection) processClientFrame(frame models.ClientFrame) {
	switch frame.Type {
	case models.ClientFrameTypeSubscribe:
		if err := c.hub.Subscribe(c.sub, frame.ConversationID); err != nil {
			slog.Warn("subscribe rejected", "user_id", c.sub.UserID, "conversation_id", frame.ConversationID, "error", err)
		}
	case models.ClientFrameTypeUnsubscribe:
		c.hub.Unsubscribe(c.sub, frame.ConversationID)
	case models.ClientFrameTypeSend:
		if _, err := c.store.Append(frame.ConversationID, c.sub.UserID, frame.Content, frame.Attachments); err != nil {
			slog.Warn("send rejected", "user_id", c.sub.UserID, "conversation_id", frame.ConversationID, "error", err)
		}
	}
}
