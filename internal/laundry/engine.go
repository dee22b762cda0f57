// Package laundry runs the shared washing machine: single-turn commands for
// the laundry groups, the reservation with its wait queue, and the
// informational texts (tips, hours, weather, trash collection).
package laundry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/zulandar/condobot/internal/bot"
)

// DefaultInfoDelay separates the machine info pages.
const DefaultInfoDelay = 10 * time.Second

const timeLayout = "02/01/2006 15:04:05"

// command is one entry of the dispatch table. Text matches when it equals
// one of exact or contains one of keywords.
type command struct {
	name     string
	exact    []string
	keywords []string
	run      func(e *Engine, ctx context.Context, msg bot.InboundMessage) error
}

// commands is checked in order; the first match wins.
var commands = []command{
	{name: "menu", exact: []string{"menu", "!ajuda"}, run: (*Engine).menu},
	{name: "ping", exact: []string{"!ping"}, run: (*Engine).ping},
	{name: "tips", exact: []string{"1"}, keywords: []string{"dicas"}, run: (*Engine).tips},
	{name: "info", exact: []string{"2"}, run: (*Engine).info},
	{name: "start", exact: []string{"3"}, keywords: []string{"iniciar"}, run: (*Engine).start},
	{name: "finish", exact: []string{"4"}, keywords: []string{"finalizar"}, run: (*Engine).finish},
	{name: "enqueue", exact: []string{"5"}, keywords: []string{"entrar na fila"}, run: (*Engine).enqueue},
	{name: "dequeue", exact: []string{"6"}, keywords: []string{"sair da fila"}, run: (*Engine).dequeue},
	{name: "sample", exact: []string{"7"}, run: (*Engine).sample},
	{name: "hours", exact: []string{"8"}, keywords: []string{"horário", "horario"}, run: (*Engine).hours},
	{name: "weather", exact: []string{"9"}, keywords: []string{"previsão", "previsao", "tempo"}, run: (*Engine).weather},
	{name: "trash", exact: []string{"10"}, keywords: []string{"lixo", "coleta"}, run: (*Engine).trash},
}

func (c command) matches(text string) bool {
	for _, x := range c.exact {
		if text == x {
			return true
		}
	}
	for _, k := range c.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Engine is the laundry workflow. It implements bot.Engine and is the
// Notifier of its Manager.
type Engine struct {
	adapter  bot.Adapter
	groups   bot.GroupInfoer
	manager  *Manager
	pacer    *bot.Pacer
	sampler  *Sampler
	forecast Forecaster
	clock    bot.Clock
	loc      *time.Location

	background sync.WaitGroup
}

// EngineOpts holds parameters for creating an Engine.
type EngineOpts struct {
	Adapter      bot.Adapter
	Groups       bot.GroupInfoer // optional; resolves group names for welcomes
	StateStore   StateStore      // optional
	Weather      Forecaster      // optional; weather requests get an apology without it
	Clock        bot.Clock       // defaults to bot.SystemClock
	Location     *time.Location  // defaults to UTC
	WashDuration time.Duration   // defaults to DefaultWashDuration
	WarningLead  time.Duration   // defaults to DefaultWarningLead
	InfoDelay    time.Duration   // defaults to DefaultInfoDelay; negative sends at once
	MaxLoadKg    float64         // defaults to DefaultMaxLoadKg
	Rand         *rand.Rand      // sampler source; random when nil
}

// NewEngine creates a laundry Engine and its Manager. Call Restore before
// serving to load persisted state.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("laundry: engine: adapter is required")
	}
	if opts.Clock == nil {
		opts.Clock = bot.SystemClock{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	switch {
	case opts.InfoDelay == 0:
		opts.InfoDelay = DefaultInfoDelay
	case opts.InfoDelay < 0:
		opts.InfoDelay = 0
	}

	e := &Engine{
		adapter:  opts.Adapter,
		groups:   opts.Groups,
		pacer:    bot.NewPacer(opts.Adapter, opts.InfoDelay),
		sampler:  NewSampler(opts.Rand, opts.MaxLoadKg),
		forecast: opts.Weather,
		clock:    opts.Clock,
		loc:      opts.Location,
	}
	m, err := NewManager(ManagerOpts{
		Notifier:    e,
		Store:       opts.StateStore,
		Clock:       opts.Clock,
		Duration:    opts.WashDuration,
		WarningLead: opts.WarningLead,
	})
	if err != nil {
		return nil, fmt.Errorf("laundry: engine: %w", err)
	}
	e.manager = m
	return e, nil
}

// Manager returns the engine's reservation manager.
func (e *Engine) Manager() *Manager { return e.manager }

// Restore loads persisted state and re-arms reservation timers.
func (e *Engine) Restore(ctx context.Context) error {
	return e.manager.Restore(ctx)
}

// Wait blocks until background sends (paced info pages) have finished.
func (e *Engine) Wait() {
	e.background.Wait()
}

// Close stops reservation timers and waits for background sends.
func (e *Engine) Close() {
	e.manager.Close()
	e.background.Wait()
}

// Handle runs the command in msg, if any. Unrecognized text is ignored.
func (e *Engine) Handle(ctx context.Context, msg bot.InboundMessage) error {
	switch msg.Kind {
	case bot.KindJoin:
		return e.welcome(ctx, msg)
	case bot.KindLeave:
		return e.farewell(ctx, msg)
	}

	text := strings.ToLower(strings.TrimSpace(msg.Text))
	if text == "" {
		return nil
	}
	for _, c := range commands {
		if !c.matches(text) {
			continue
		}
		if err := c.run(e, ctx, msg); err != nil {
			if serr := e.adapter.Send(ctx, bot.Text(msg.ConversationID, msgError)); serr != nil {
				log.Printf("laundry: send error notice: %v", serr)
			}
			return fmt.Errorf("laundry: %s: %w", c.name, err)
		}
		return nil
	}
	return nil
}

func (e *Engine) menu(ctx context.Context, msg bot.InboundMessage) error {
	list := listMenu
	list.ConversationID = msg.ConversationID
	if err := e.adapter.Send(ctx, list); err != nil {
		log.Printf("laundry: list menu: %v", err)
	}
	return e.adapter.Send(ctx, bot.Text(msg.ConversationID, msgMenu))
}

func (e *Engine) ping(ctx context.Context, msg bot.InboundMessage) error {
	status := msgPongFree
	var mentions []string
	if r := e.manager.Snapshot().Reservation; r != nil {
		status = fmt.Sprintf(msgPongBusy, number(r.Holder), r.End.In(e.loc).Format("15:04"))
		mentions = []string{r.Holder}
	}
	return e.adapter.Send(ctx, bot.Mention(msg.ConversationID, fmt.Sprintf(msgPong, status), mentions...))
}

func (e *Engine) tips(ctx context.Context, msg bot.InboundMessage) error {
	return e.adapter.Send(ctx, bot.Text(msg.ConversationID, msgTips))
}

// info sends the machine data sheet in the background so the paced pages
// do not hold up other conversations.
func (e *Engine) info(ctx context.Context, msg bot.InboundMessage) error {
	pages := make([]bot.OutboundMessage, len(machineInfo))
	for i, p := range machineInfo {
		pages[i] = bot.Text(msg.ConversationID, p)
	}
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		if err := e.pacer.SendAll(ctx, pages); err != nil {
			log.Printf("laundry: machine info: %v", err)
		}
	}()
	return nil
}

func (e *Engine) start(ctx context.Context, msg bot.InboundMessage) error {
	conv, who := msg.ConversationID, msg.ParticipantID
	r, err := e.manager.Start(ctx, who, conv)
	var reserved *ReservedError
	if errors.As(err, &reserved) {
		holder := reserved.Current.Holder
		return e.adapter.Send(ctx, bot.Mention(conv, fmt.Sprintf(msgInUse, number(holder)), holder))
	}
	if err != nil {
		return err
	}
	text := fmt.Sprintf(msgStarted, e.greeting(), number(who), e.format(r.Start), e.format(r.End))
	return e.adapter.Send(ctx, bot.Mention(conv, text, who))
}

// finish releases the caller's reservation. The confirmation is sent by
// WashFinished.
func (e *Engine) finish(ctx context.Context, msg bot.InboundMessage) error {
	conv := msg.ConversationID
	rel, err := e.manager.Finish(ctx, msg.ParticipantID)
	switch {
	case errors.Is(err, ErrNotReserved):
		return e.adapter.Send(ctx, bot.Text(conv, msgNoActive))
	case errors.Is(err, ErrNotHolder):
		holder := rel.Reservation.Holder
		return e.adapter.Send(ctx, bot.Mention(conv, fmt.Sprintf(msgOnlyHolder, number(holder)), holder))
	}
	return err
}

func (e *Engine) enqueue(ctx context.Context, msg bot.InboundMessage) error {
	conv, who := msg.ConversationID, msg.ParticipantID
	queue, err := e.manager.Enqueue(ctx, who, conv)
	switch {
	case errors.Is(err, ErrMachineFree):
		return e.adapter.Send(ctx, bot.Text(conv, msgMachineFree))
	case errors.Is(err, ErrAlreadyQueued):
		return e.adapter.Send(ctx, bot.Mention(conv, fmt.Sprintf(msgAlreadyQueued, number(who)), who))
	case err != nil:
		return err
	}
	lines := make([]string, len(queue))
	for i, q := range queue {
		lines[i] = fmt.Sprintf("%d. @%s", i+1, number(q.Participant))
	}
	text := fmt.Sprintf(msgQueued, number(who), len(queue), strings.Join(lines, "\n"))
	return e.adapter.Send(ctx, bot.Mention(conv, text, who))
}

func (e *Engine) dequeue(ctx context.Context, msg bot.InboundMessage) error {
	conv, who := msg.ConversationID, msg.ParticipantID
	err := e.manager.Dequeue(ctx, who)
	if errors.Is(err, ErrNotQueued) {
		return e.adapter.Send(ctx, bot.Text(conv, msgNotQueued))
	}
	if err != nil {
		return err
	}
	return e.adapter.Send(ctx, bot.Mention(conv, fmt.Sprintf(msgLeftQueue, number(who)), who))
}

func (e *Engine) sample(ctx context.Context, msg bot.InboundMessage) error {
	load := e.sampler.Draw()
	text := fmt.Sprintf(msgSampled, e.sampler.MaxKg(), load.Format(), load.Total)
	return e.adapter.Send(ctx, bot.Text(msg.ConversationID, text))
}

func (e *Engine) hours(ctx context.Context, msg bot.InboundMessage) error {
	return e.adapter.Send(ctx, bot.Text(msg.ConversationID, msgHours))
}

func (e *Engine) weather(ctx context.Context, msg bot.InboundMessage) error {
	text := msgWeatherUnavailable
	if e.forecast != nil {
		f, err := e.forecast.Forecast(ctx)
		if err != nil {
			log.Printf("laundry: weather: %v", err)
		} else {
			text = formatForecast(f)
		}
	}
	return e.adapter.Send(ctx, bot.Text(msg.ConversationID, text))
}

func (e *Engine) trash(ctx context.Context, msg bot.InboundMessage) error {
	today := weekdays[e.clock.Now().In(e.loc).Weekday()]
	return e.adapter.Send(ctx, bot.Text(msg.ConversationID, fmt.Sprintf(msgTrash, today)))
}

// welcome greets a participant added to the group, naming the group when
// the transport can resolve it.
func (e *Engine) welcome(ctx context.Context, msg bot.InboundMessage) error {
	conv, who := msg.ConversationID, msg.ParticipantID
	text := fmt.Sprintf(msgWelcomeShort, number(who))
	if e.groups != nil {
		subject, err := e.groups.GroupSubject(ctx, conv)
		if err != nil {
			log.Printf("laundry: welcome: group subject: %v", err)
		} else if subject != "" {
			text = fmt.Sprintf(msgWelcome, e.greeting(), number(who), subject)
		}
	}
	return e.adapter.Send(ctx, bot.Mention(conv, text, who))
}

func (e *Engine) farewell(ctx context.Context, msg bot.InboundMessage) error {
	who := msg.ParticipantID
	return e.adapter.Send(ctx, bot.Mention(msg.ConversationID, fmt.Sprintf(msgFarewell, number(who)), who))
}

// WarnHolder implements Notifier.
func (e *Engine) WarnHolder(ctx context.Context, r Reservation, remaining time.Duration) {
	text := fmt.Sprintf(msgWarning, number(r.Holder), int(remaining/time.Minute))
	e.notify(ctx, bot.Mention(r.Conversation, text, r.Holder))
}

// WashFinished implements Notifier.
func (e *Engine) WashFinished(ctx context.Context, rel Release) {
	r := rel.Reservation
	tail := msgAvailable
	mentions := []string{r.Holder}
	if rel.Next != nil {
		tail = fmt.Sprintf(msgNextInLine, number(rel.Next.Participant))
		mentions = append(mentions, rel.Next.Participant)
	}
	text := fmt.Sprintf(msgFinished, number(r.Holder), int(rel.Elapsed/time.Minute), tail)
	e.notify(ctx, bot.Mention(r.Conversation, text, mentions...))
}

// WashEnded implements Notifier.
func (e *Engine) WashEnded(ctx context.Context, r Reservation) {
	e.notify(ctx, bot.Mention(r.Conversation, fmt.Sprintf(msgWashEnded, number(r.Holder)), r.Holder))
}

// NextInQueue implements Notifier.
func (e *Engine) NextInQueue(ctx context.Context, next QueueEntry) {
	text := fmt.Sprintf(msgYourTurn, number(next.Participant))
	e.notify(ctx, bot.Mention(next.Conversation, text, next.Participant))
}

func (e *Engine) notify(ctx context.Context, msg bot.OutboundMessage) {
	if err := e.adapter.Send(ctx, msg); err != nil {
		log.Printf("laundry: notify %s: %v", msg.ConversationID, err)
	}
}

func (e *Engine) greeting() string {
	h := e.clock.Now().In(e.loc).Hour()
	switch {
	case h >= 6 && h < 12:
		return "Bom dia"
	case h >= 12 && h < 18:
		return "Boa tarde"
	default:
		return "Boa noite"
	}
}

func (e *Engine) format(t time.Time) string {
	return t.In(e.loc).Format(timeLayout)
}

// number returns the phone-number part of a participant id.
func number(participant string) string {
	n, _, _ := strings.Cut(participant, "@")
	return n
}
