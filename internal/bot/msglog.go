package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/zulandar/condobot/internal/store"
)

// logTimeLayout matches the pt-BR locale rendering used by the log sheet.
const logTimeLayout = "02/01/2006, 15:04:05"

// Origins recorded in the message log.
const (
	OriginUser = "usuário"
	OriginBot  = "bot"
)

// MessageLog appends user and bot messages to a record store collection.
// Append failures are logged and never block message handling. A nil
// *MessageLog is a valid no-op log.
type MessageLog struct {
	store      store.Recorder
	collection string
	loc        *time.Location
	clock      Clock
}

// MessageLogOpts holds parameters for creating a MessageLog.
type MessageLogOpts struct {
	Store      store.Recorder
	Collection string
	Location   *time.Location // timestamps are rendered in this zone; defaults to UTC
	Clock      Clock          // defaults to SystemClock
}

// NewMessageLog creates a MessageLog.
func NewMessageLog(opts MessageLogOpts) (*MessageLog, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("bot: message log: store is required")
	}
	if opts.Collection == "" {
		return nil, fmt.Errorf("bot: message log: collection is required")
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &MessageLog{store: opts.Store, collection: opts.Collection, loc: loc, clock: clock}, nil
}

// Inbound records a message received from a participant.
func (l *MessageLog) Inbound(ctx context.Context, msg InboundMessage) {
	if l == nil || msg.Text == "" {
		return
	}
	user := msg.PushName
	if user == "" {
		user = "Desconhecido"
	}
	l.append(ctx, user, msg.Text, OriginUser)
}

// Outbound records a message sent by the bot.
func (l *MessageLog) Outbound(ctx context.Context, msg OutboundMessage) {
	if l == nil {
		return
	}
	l.append(ctx, "BOT", msg.Text, OriginBot)
}

func (l *MessageLog) append(ctx context.Context, user, text, origin string) {
	rec := store.Record{
		"id":       uuid.NewString(),
		"usuario":  user,
		"mensagem": text,
		"origem":   origin,
		"dataHora": l.clock.Now().In(l.loc).Format(logTimeLayout),
	}
	if err := l.store.Append(ctx, l.collection, rec); err != nil {
		log.Printf("bot: message log: append %s message: %v", origin, err)
	}
}

// Wrap returns an Adapter that records every successfully sent message in
// the log. A nil log returns the adapter unchanged.
func (l *MessageLog) Wrap(a Adapter) Adapter {
	if l == nil {
		return a
	}
	return &loggingAdapter{Adapter: a, log: l}
}

type loggingAdapter struct {
	Adapter
	log *MessageLog
}

func (a *loggingAdapter) Send(ctx context.Context, msg OutboundMessage) error {
	if err := a.Adapter.Send(ctx, msg); err != nil {
		return err
	}
	a.log.Outbound(ctx, msg)
	return nil
}
