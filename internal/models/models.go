package models

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusBusy    Status = "busy"
	StatusOffline Status = "offline"
)

// ValidStatus reports whether s is one of the known presence values.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// Identity represents a registered user. ID is immutable; the remaining
// fields change only through profile updates.
type Identity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Status    Status `json:"status"`
}

type ConversationKind string

const (
	KindDirect ConversationKind = "direct"
	KindGroup  ConversationKind = "group"
)

// Message is a single log entry. Immutable once appended; Content is stored
// exactly as submitted after whitespace trimming.
type Message struct {
	SenderID    string       `json:"senderId"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	SentAt      int64        `json:"sentAt"` // Unix timestamp (seconds)
}

// EnrichedMessage is a Message joined with the sender's current identity
// record at read time. Sender metadata is never cached on the stored message,
// so a display-name change reflows all past history on the next read.
type EnrichedMessage struct {
	SenderID     string       `json:"senderId"`
	SenderName   string       `json:"senderName"`
	AvatarURL    string       `json:"avatarUrl"`
	Content      string       `json:"content"`
	RenderedHTML string       `json:"renderedHtml"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	SentAt       int64        `json:"sentAt"`
	IsSelf       bool         `json:"isSelf"`
}

// ConversationSummary is the header view of a conversation for one requester.
// For direct conversations Name/AvatarURL/Status mirror the other
// participant; for groups Status holds a "N members" string.
type ConversationSummary struct {
	ID        string           `json:"id"`
	Kind      ConversationKind `json:"kind"`
	Name      string           `json:"name"`
	AvatarURL string           `json:"avatarUrl"`
	Status    string           `json:"status"`
}

// SidebarItem is one row in the requester's conversation list.
type SidebarItem struct {
	ConversationID string           `json:"conversationId"`
	Kind           ConversationKind `json:"kind"`
	Name           string           `json:"name"`
	AvatarURL      string           `json:"avatarUrl"`
	Status         string           `json:"status"`
	LastMessage    string           `json:"lastMessage"`
}

type AttachmentType string

const (
	AttachmentTypeImage AttachmentType = "image"
	AttachmentTypeFile  AttachmentType = "file"
)

type Attachment struct {
	Type     AttachmentType `json:"type"`
	Name     string         `json:"name"`
	MimeType string         `json:"mimeType"`
	FileID   string         `json:"fileId"`
}

// ClientFrame is a message sent by the client over the realtime channel.
type ClientFrame struct {
	Type           ClientFrameType `json:"type"`
	ConversationID string          `json:"conversationId"`
	Content        string          `json:"content"`
	Attachments    []Attachment    `json:"attachments,omitempty"`
}

// ServerFrame is a message pushed to the client over the realtime channel.
type ServerFrame struct {
	Type           ServerFrameType  `json:"type"`
	ConversationID string           `json:"conversationId,omitempty"`
	Message        *EnrichedMessage `json:"message,omitempty"`
}

type ClientFrameType string

const (
	ClientFrameTypeSubscribe   ClientFrameType = "subscribe"
	ClientFrameTypeUnsubscribe ClientFrameType = "unsubscribe"
	ClientFrameTypeSend        ClientFrameType = "send"
)

type ServerFrameType string

const (
	ServerFrameTypeMessage ServerFrameType = "message"
)
