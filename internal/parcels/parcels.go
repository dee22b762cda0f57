// Package parcels implements the parcel tracking dialogue: residents register
// expected deliveries, list them, confirm pickups and browse the pickup
// history. Records live in the spreadsheet store.
package parcels

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/condobot/internal/bot"
	"github.com/zulandar/condobot/internal/store"
)

// historyBatch is the number of history entries per message.
const historyBatch = 5

// receivedAtLayout renders pickup timestamps in the history sheet.
const receivedAtLayout = "02/01/2006 15:04:05"

// step is the dialogue position of one participant. Each variant carries
// exactly the input collected so far.
type step interface{ isStep() }

type (
	awaitingChoice          struct{}
	collectingName          struct{}
	collectingDate          struct{ name string }
	collectingLocation      struct{ name, date string }
	collectingReceiverViaID struct{}
	collectingReceiverName  struct{ parcel store.Record }
)

func (awaitingChoice) isStep()          {}
func (collectingName) isStep()          {}
func (collectingDate) isStep()          {}
func (collectingLocation) isStep()      {}
func (collectingReceiverViaID) isStep() {}
func (collectingReceiverName) isStep()  {}

// Engine is the parcels workflow. It implements bot.Engine.
type Engine struct {
	adapter  bot.Adapter
	store    store.Recorder
	sessions *bot.Sessions[step]
	parcels  string // parcels collection
	history  string // pickup history collection
	clock    bot.Clock
	loc      *time.Location
}

// EngineOpts holds parameters for creating an Engine.
type EngineOpts struct {
	Adapter           bot.Adapter
	Store             store.Recorder
	ParcelsCollection string
	HistoryCollection string         // optional; pickups are not archived without it
	Clock             bot.Clock      // defaults to bot.SystemClock
	IdleTimeout       time.Duration  // defaults to bot.DefaultIdleTimeout
	Location          *time.Location // pickup timestamps; defaults to UTC
}

// NewEngine creates a parcels Engine with an empty session table.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("parcels: engine: adapter is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("parcels: engine: store is required")
	}
	if opts.ParcelsCollection == "" {
		return nil, fmt.Errorf("parcels: engine: parcels collection is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = bot.SystemClock{}
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		adapter: opts.Adapter,
		store:   opts.Store,
		sessions: bot.NewSessions[step](bot.SessionsOpts{
			Name:        "parcels",
			Clock:       clock,
			IdleTimeout: opts.IdleTimeout,
		}),
		parcels: opts.ParcelsCollection,
		history: opts.HistoryCollection,
		clock:   clock,
		loc:     loc,
	}, nil
}

// ActiveSessions returns the number of open dialogues.
func (e *Engine) ActiveSessions() int {
	return e.sessions.Len()
}

// Handle advances the sender's dialogue by one message. Messages from
// participants without an open session are ignored unless they open the
// menu.
func (e *Engine) Handle(ctx context.Context, msg bot.InboundMessage) error {
	if msg.Kind != bot.KindText {
		return nil
	}
	input := strings.TrimSpace(msg.Text)
	cmd := strings.ToLower(input)
	conv := msg.ConversationID
	key := bot.SessionKey(conv, msg.ParticipantID)

	switch cmd {
	case "0":
		return e.say(ctx, conv, msgMenuMoved)
	case "menu":
		e.sessions.Remove(key)
		e.sessions.GetOrCreate(key, awaitingChoice{})
		e.sessions.Touch(key)
		if err := e.say(ctx, conv, msgIntro); err != nil {
			return err
		}
		return e.say(ctx, conv, msgMenu)
	}

	sess, ok := e.sessions.Get(key)
	if !ok {
		return nil
	}
	e.sessions.Touch(key)

	switch st := sess.State.(type) {
	case awaitingChoice:
		return e.handleChoice(ctx, conv, key, cmd)

	case collectingName:
		if input == "" {
			return e.say(ctx, conv, msgAskName)
		}
		e.sessions.Update(key, collectingDate{name: input})
		return e.say(ctx, conv, msgAskDate)

	case collectingDate:
		date, err := ParseDate(cmd)
		if errors.Is(err, ErrDateFormat) {
			return e.say(ctx, conv, msgDateFormat)
		}
		if err != nil {
			return e.say(ctx, conv, msgDateInvalid)
		}
		e.sessions.Update(key, collectingLocation{name: st.name, date: date})
		return e.say(ctx, conv, msgAskLocation)

	case collectingLocation:
		if input == "" {
			return e.say(ctx, conv, msgAskLocation)
		}
		return e.register(ctx, conv, key, st.name, st.date, input)

	case collectingReceiverViaID:
		return e.selectParcel(ctx, conv, key, cmd)

	case collectingReceiverName:
		return e.confirmPickup(ctx, conv, key, st.parcel, input)

	default:
		e.sessions.Remove(key)
		return e.say(ctx, conv, msgUnknownStep)
	}
}

func (e *Engine) handleChoice(ctx context.Context, conv, key, cmd string) error {
	choice, err := strconv.Atoi(cmd)
	if err != nil {
		choice = 0
	}
	switch choice {
	case 1:
		e.sessions.Update(key, collectingName{})
		return e.say(ctx, conv, msgAskName)
	case 2:
		return e.listParcels(ctx, conv, key)
	case 3:
		e.sessions.Update(key, collectingReceiverViaID{})
		return e.say(ctx, conv, msgAskID)
	case 4:
		return e.listHistory(ctx, conv, key)
	default:
		return e.say(ctx, conv, msgInvalidChoice)
	}
}

// listParcels sends every parcel grouped by owner, then closes the session.
func (e *Engine) listParcels(ctx context.Context, conv, key string) error {
	records, err := e.store.List(ctx, e.parcels)
	if err != nil {
		return e.storeFailure(ctx, conv, fmt.Errorf("parcels: list parcels: %w", err))
	}
	defer e.sessions.Remove(key)
	if len(records) == 0 {
		return e.say(ctx, conv, msgNoParcels)
	}

	var order []string
	groups := make(map[string][]store.Record)
	for _, r := range records {
		owner := strings.ToLower(strings.TrimSpace(r[FieldName]))
		if owner == "" {
			owner = "desconhecido"
		}
		if _, ok := groups[owner]; !ok {
			order = append(order, owner)
		}
		groups[owner] = append(groups[owner], r)
	}

	var b strings.Builder
	b.WriteString(msgListHeader)
	for _, owner := range order {
		fmt.Fprintf(&b, "👤 %s\n", owner)
		for _, r := range groups[owner] {
			fmt.Fprintf(&b, "🆔 %s 🛒 %s — %s\n📍 Status: %s", r[FieldID], r[FieldLocation], r[FieldDate], r[FieldStatus])
			if by := r[FieldReceivedBy]; by != "" {
				fmt.Fprintf(&b, "\n📬 Recebido por: %s", by)
			}
			b.WriteString("\n\n")
		}
	}
	return e.say(ctx, conv, strings.TrimSpace(b.String()))
}

// listHistory sends the pickup history in batches, then closes the session.
func (e *Engine) listHistory(ctx context.Context, conv, key string) error {
	if e.history == "" {
		e.sessions.Remove(key)
		return e.say(ctx, conv, msgHistoryEmpty)
	}
	records, err := e.store.List(ctx, e.history)
	if err != nil {
		return e.storeFailure(ctx, conv, fmt.Errorf("parcels: list history: %w", err))
	}
	defer e.sessions.Remove(key)
	if len(records) == 0 {
		return e.say(ctx, conv, msgHistoryEmpty)
	}

	for start := 0; start < len(records); start += historyBatch {
		end := start + historyBatch
		if end > len(records) {
			end = len(records)
		}
		var b strings.Builder
		b.WriteString(msgHistoryHeader)
		for _, r := range records[start:end] {
			fmt.Fprintf(&b, "🆔 %s 🛒 %s — %s\n👤 %s\n📍 Status: %s",
				r[FieldID], r[FieldLocation], r[FieldDate], r[FieldName], r[FieldStatus])
			if by := r[FieldReceivedBy]; by != "" {
				fmt.Fprintf(&b, "\n📬 Recebido por: %s", by)
			}
			b.WriteString("\n\n")
		}
		if err := e.say(ctx, conv, strings.TrimSpace(b.String())); err != nil {
			return err
		}
	}
	return nil
}

// register stores a new parcel under the next free id and closes the session.
func (e *Engine) register(ctx context.Context, conv, key, name, date, location string) error {
	existing, err := e.store.List(ctx, e.parcels)
	if err != nil {
		return e.storeFailure(ctx, conv, fmt.Errorf("parcels: list parcels: %w", err))
	}
	id := NextID(existing)
	rec := store.Record{
		FieldID:       id,
		FieldName:     name,
		FieldDate:     date,
		FieldLocation: location,
		FieldStatus:   StatusAwaiting,
	}
	if err := e.store.Append(ctx, e.parcels, rec); err != nil {
		return e.storeFailure(ctx, conv, fmt.Errorf("parcels: register %s: %w", id, err))
	}
	e.sessions.Remove(key)
	return e.say(ctx, conv, fmt.Sprintf(
		"✅ *Encomenda registrada com sucesso!*\n\n🧾 ID: %s\n👤 Nome: %s\n🗓️ Chegada: %s\n🛒 Loja: %s",
		id, name, date, location))
}

// selectParcel looks up the parcel to confirm. Unknown or already received
// ids end the dialogue.
func (e *Engine) selectParcel(ctx context.Context, conv, key, id string) error {
	records, err := e.store.List(ctx, e.parcels)
	if err != nil {
		return e.storeFailure(ctx, conv, fmt.Errorf("parcels: list parcels: %w", err))
	}
	for _, r := range records {
		if r[FieldID] != id {
			continue
		}
		if r[FieldStatus] != StatusAwaiting {
			break
		}
		e.sessions.Update(key, collectingReceiverName{parcel: r})
		return e.say(ctx, conv, msgAskReceiver)
	}
	e.sessions.Remove(key)
	return e.say(ctx, conv, msgInvalidID)
}

// confirmPickup marks the parcel received, archives it in the history and
// closes the session.
func (e *Engine) confirmPickup(ctx context.Context, conv, key string, parcel store.Record, receiver string) error {
	id := parcel[FieldID]
	patch := store.Record{FieldStatus: StatusReceived, FieldReceivedBy: receiver}
	if err := e.store.Update(ctx, e.parcels, FieldID, id, patch); err != nil {
		return e.storeFailure(ctx, conv, fmt.Errorf("parcels: confirm %s: %w", id, err))
	}
	e.sessions.Remove(key)

	if e.history != "" {
		entry := make(store.Record, len(parcel)+3)
		for k, v := range parcel {
			entry[k] = v
		}
		for k, v := range patch {
			entry[k] = v
		}
		entry[FieldReceivedAt] = e.clock.Now().In(e.loc).Format(receivedAtLayout)
		if err := e.store.Append(ctx, e.history, entry); err != nil {
			log.Printf("parcels: archive %s: %v", id, err)
		}
	}

	return e.say(ctx, conv, fmt.Sprintf(
		"📬 *Recebimento confirmado!*\n\n🆔 %s\n👤 %s\n🛒 %s\n📅 %s\n📬 Recebido por: %s",
		id, parcel[FieldName], parcel[FieldLocation], parcel[FieldDate], receiver))
}

// storeFailure tells the conversation the store is unavailable and returns
// cause. The session keeps its current step so the user can retry.
func (e *Engine) storeFailure(ctx context.Context, conv string, cause error) error {
	if err := e.say(ctx, conv, msgStoreFailure); err != nil {
		log.Printf("parcels: send failure notice: %v", err)
	}
	return cause
}

func (e *Engine) say(ctx context.Context, conv, text string) error {
	if err := e.adapter.Send(ctx, bot.Text(conv, text)); err != nil {
		return fmt.Errorf("parcels: send: %w", err)
	}
	return nil
}
