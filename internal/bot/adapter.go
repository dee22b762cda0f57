// Package bot routes chat messages from group conversations to the
// condominium workflows (parcels, laundry) and owns the shared plumbing they
// use: the transport contract, the dialogue session table and the daemon loop.
package bot

import (
	"context"
	"time"
)

// Adapter is the interface the messaging transport must satisfy. It handles
// the connection to the chat network and message delivery.
type Adapter interface {
	// Connect establishes (or verifies) the connection to the chat network.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages. The channel is closed
	// when the adapter is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter.
	Close() error
}

// GroupInfoer is implemented by adapters that can resolve a group's display
// name.
type GroupInfoer interface {
	GroupSubject(ctx context.Context, groupID string) (string, error)
}

// Engine handles the messages of one workflow. Implementations reply
// through the adapter they were built with.
type Engine interface {
	Handle(ctx context.Context, msg InboundMessage) error
}

// Kind distinguishes chat text from group membership changes.
type Kind int

const (
	KindText  Kind = iota // participant sent a message
	KindJoin              // participant was added to the group
	KindLeave             // participant left or was removed
)

// InboundMessage is a message received from the chat network.
type InboundMessage struct {
	Kind           Kind
	ConversationID string    // group or direct-chat identity
	ParticipantID  string    // sender; equals ConversationID in direct chats
	PushName       string    // sender display name, may be empty
	Text           string    // plain text or a selected list-menu row id
	FromMe         bool      // echo of a message the bot itself sent
	Timestamp      time.Time // when the message was received
}

// OutboundMessage is a message to send. With Sections set it is rendered as
// an interactive list menu; Mentions tag participants in the text.
type OutboundMessage struct {
	ConversationID string
	Text           string
	Footer         string
	ButtonLabel    string
	Sections       []Section
	Mentions       []string
}

// Section groups the rows of a list menu.
type Section struct {
	Title string
	Rows  []Row
}

// Row is one selectable list-menu entry. Selecting it sends RowID as text.
type Row struct {
	Title string
	RowID string
}

// IsList reports whether the message is an interactive list menu.
func (m OutboundMessage) IsList() bool {
	return len(m.Sections) > 0
}

// Text builds a plain text message.
func Text(conversationID, text string) OutboundMessage {
	return OutboundMessage{ConversationID: conversationID, Text: text}
}

// Mention builds a text message that tags the given participants.
func Mention(conversationID, text string, participants ...string) OutboundMessage {
	return OutboundMessage{ConversationID: conversationID, Text: text, Mentions: participants}
}
