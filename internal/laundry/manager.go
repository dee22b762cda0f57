package laundry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zulandar/condobot/internal/bot"
	"github.com/zulandar/condobot/internal/metrics"
)

// Defaults for a wash cycle.
const (
	DefaultWashDuration = 2 * time.Hour
	DefaultWarningLead  = 10 * time.Minute
)

// notifyTimeout bounds notifications sent from timer callbacks.
const notifyTimeout = 30 * time.Second

// Reservation precondition failures.
var (
	ErrAlreadyReserved = errors.New("laundry: machine already reserved")
	ErrNotReserved     = errors.New("laundry: no active reservation")
	ErrNotHolder       = errors.New("laundry: not the reservation holder")
	ErrAlreadyQueued   = errors.New("laundry: already in the queue")
	ErrNotQueued       = errors.New("laundry: not in the queue")
	ErrMachineFree     = errors.New("laundry: machine is free")
)

// ReservedError is returned by Start when the machine is taken. It matches
// ErrAlreadyReserved.
type ReservedError struct {
	Current Reservation
}

func (e *ReservedError) Error() string {
	return fmt.Sprintf("laundry: machine in use by %s until %s", e.Current.Holder, e.Current.End.Format(time.RFC3339))
}

// Is reports whether target is ErrAlreadyReserved.
func (e *ReservedError) Is(target error) bool {
	return target == ErrAlreadyReserved
}

// Reservation is the exclusive claim on the washing machine.
type Reservation struct {
	Holder       string    `json:"jid"`
	Conversation string    `json:"grupo"`
	Start        time.Time `json:"inicio"`
	End          time.Time `json:"fim"`
}

// QueueEntry is a participant waiting for the machine, with the
// conversation to notify them in.
type QueueEntry struct {
	Participant  string `json:"jid"`
	Conversation string `json:"grupo"`
}

// State is the persisted snapshot of the machine.
type State struct {
	Reservation *Reservation `json:"lavagemAtiva"`
	Queue       []QueueEntry `json:"filaDeEspera"`
}

func (s State) clone() State {
	out := State{Queue: append([]QueueEntry(nil), s.Queue...)}
	if s.Reservation != nil {
		r := *s.Reservation
		out.Reservation = &r
	}
	return out
}

// Release describes a reservation that ended, manually or by expiry.
type Release struct {
	Reservation Reservation
	Elapsed     time.Duration
	Next        *QueueEntry // queue head that was handed the machine
}

// Notifier delivers the messages the manager emits. On release the
// finish or expiry notice always precedes the hand-off to the queue head.
type Notifier interface {
	WarnHolder(ctx context.Context, r Reservation, remaining time.Duration)
	WashFinished(ctx context.Context, rel Release)
	WashEnded(ctx context.Context, r Reservation)
	NextInQueue(ctx context.Context, next QueueEntry)
}

// StateStore persists the machine state across restarts.
type StateStore interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

// Manager owns the reservation and the wait queue. All mutations hold mu,
// including the ones made by timer callbacks.
type Manager struct {
	mu       sync.Mutex
	clock    bot.Clock
	duration time.Duration
	lead     time.Duration
	store    StateStore
	notifier Notifier

	state     State
	gen       uint64 // bumped whenever the reservation changes
	warnTimer bot.Timer
	endTimer  bot.Timer
}

// ManagerOpts holds parameters for creating a Manager.
type ManagerOpts struct {
	Notifier    Notifier
	Store       StateStore    // optional; state is memory-only without it
	Clock       bot.Clock     // defaults to bot.SystemClock
	Duration    time.Duration // defaults to DefaultWashDuration
	WarningLead time.Duration // defaults to DefaultWarningLead
}

// NewManager creates a Manager with a free machine and an empty queue.
// Call Restore to load persisted state.
func NewManager(opts ManagerOpts) (*Manager, error) {
	if opts.Notifier == nil {
		return nil, fmt.Errorf("laundry: manager: notifier is required")
	}
	if opts.Clock == nil {
		opts.Clock = bot.SystemClock{}
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultWashDuration
	}
	if opts.WarningLead <= 0 {
		opts.WarningLead = DefaultWarningLead
	}
	if opts.WarningLead >= opts.Duration {
		return nil, fmt.Errorf("laundry: manager: warning lead %v must be shorter than duration %v", opts.WarningLead, opts.Duration)
	}
	return &Manager{
		clock:    opts.Clock,
		duration: opts.Duration,
		lead:     opts.WarningLead,
		store:    opts.Store,
		notifier: opts.Notifier,
	}, nil
}

// Duration returns the length of a wash cycle.
func (m *Manager) Duration() time.Duration { return m.duration }

// WarningLead returns how long before the end the holder is warned.
func (m *Manager) WarningLead() time.Duration { return m.lead }

// Start reserves the machine for participant. It fails with a
// *ReservedError when the machine is taken.
func (m *Manager) Start(ctx context.Context, participant, conversation string) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur := m.state.Reservation; cur != nil {
		return Reservation{}, &ReservedError{Current: *cur}
	}
	now := m.clock.Now()
	r := Reservation{
		Holder:       participant,
		Conversation: conversation,
		Start:        now,
		End:          now.Add(m.duration),
	}
	m.state.Reservation = &r
	m.armLocked(r, now)
	m.saveLocked(ctx)
	metrics.RecordReservationEvent("started")
	log.Printf("laundry: manager: %s started, ends %s", participant, r.End.Format(time.RFC3339))
	return r, nil
}

// Finish ends participant's reservation and hands the machine to the head
// of the queue.
func (m *Manager) Finish(ctx context.Context, participant string) (Release, error) {
	m.mu.Lock()
	cur := m.state.Reservation
	if cur == nil {
		m.mu.Unlock()
		return Release{}, ErrNotReserved
	}
	if cur.Holder != participant {
		m.mu.Unlock()
		return Release{Reservation: *cur}, ErrNotHolder
	}
	rel := m.releaseLocked(ctx)
	m.mu.Unlock()

	metrics.RecordReservationEvent("finished")
	log.Printf("laundry: manager: %s finished after %s", participant, rel.Elapsed.Round(time.Minute))
	m.notifier.WashFinished(ctx, rel)
	m.handOff(ctx, rel)
	return rel, nil
}

// Expire ends the current reservation regardless of holder, notifying the
// holder that the wash ended. It is the path taken by the expiry timer.
func (m *Manager) Expire(ctx context.Context) (Release, error) {
	m.mu.Lock()
	if m.state.Reservation == nil {
		m.mu.Unlock()
		return Release{}, ErrNotReserved
	}
	rel := m.releaseLocked(ctx)
	m.mu.Unlock()

	m.afterExpire(ctx, rel)
	return rel, nil
}

// Enqueue appends participant to the wait queue and returns the queue after
// the change. Queueing requires a busy machine and is idempotent in
// membership.
func (m *Manager) Enqueue(ctx context.Context, participant, conversation string) ([]QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Reservation == nil {
		return nil, ErrMachineFree
	}
	if m.indexLocked(participant) >= 0 {
		return m.state.clone().Queue, ErrAlreadyQueued
	}
	m.state.Queue = append(m.state.Queue, QueueEntry{Participant: participant, Conversation: conversation})
	m.saveLocked(ctx)
	return m.state.clone().Queue, nil
}

// Dequeue removes participant from the wait queue, preserving the order of
// the others.
func (m *Manager) Dequeue(ctx context.Context, participant string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(participant)
	if i < 0 {
		return ErrNotQueued
	}
	m.state.Queue = append(m.state.Queue[:i], m.state.Queue[i+1:]...)
	m.saveLocked(ctx)
	return nil
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Restore loads the persisted state and re-arms the reservation timers from
// the stored end time. A reservation already past its end is cleared and the
// queue head is handed the machine without a wash-ended message. A warning
// whose moment has passed is not sent.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	st, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("laundry: restore: %w", err)
	}

	m.mu.Lock()
	m.stopTimersLocked()
	m.gen++
	m.state = st.clone()
	r := m.state.Reservation
	if r == nil {
		m.mu.Unlock()
		log.Printf("laundry: manager: restored free machine, %d queued", len(st.Queue))
		return nil
	}
	now := m.clock.Now()
	if !now.Before(r.End) {
		rel := m.releaseLocked(ctx)
		m.mu.Unlock()
		log.Printf("laundry: manager: reservation of %s ended while offline", rel.Reservation.Holder)
		metrics.RecordReservationEvent("expired")
		m.handOff(ctx, rel)
		return nil
	}
	m.armLocked(*r, now)
	m.mu.Unlock()
	log.Printf("laundry: manager: restored reservation of %s, ends in %s", r.Holder, r.End.Sub(now).Round(time.Second))
	return nil
}

// Close stops pending timers.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimersLocked()
	m.gen++
}

// armLocked schedules the warning and expiry timers for r.
func (m *Manager) armLocked(r Reservation, now time.Time) {
	m.stopTimersLocked()
	m.gen++
	gen := m.gen

	if untilWarn := r.End.Add(-m.lead).Sub(now); untilWarn > 0 {
		m.warnTimer = m.clock.AfterFunc(untilWarn, func() { m.warn(gen) })
	}
	untilEnd := r.End.Sub(now)
	if untilEnd < 0 {
		untilEnd = 0
	}
	m.endTimer = m.clock.AfterFunc(untilEnd, func() { m.expire(gen) })
}

func (m *Manager) stopTimersLocked() {
	if m.warnTimer != nil {
		m.warnTimer.Stop()
		m.warnTimer = nil
	}
	if m.endTimer != nil {
		m.endTimer.Stop()
		m.endTimer = nil
	}
}

// releaseLocked frees the machine and pops the queue head.
func (m *Manager) releaseLocked(ctx context.Context) Release {
	m.stopTimersLocked()
	m.gen++

	r := *m.state.Reservation
	m.state.Reservation = nil
	rel := Release{Reservation: r, Elapsed: m.clock.Now().Sub(r.Start)}
	if len(m.state.Queue) > 0 {
		next := m.state.Queue[0]
		rel.Next = &next
		m.state.Queue = m.state.Queue[1:]
	}
	m.saveLocked(ctx)
	return rel
}

func (m *Manager) warn(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state.Reservation == nil {
		m.mu.Unlock()
		return
	}
	r := *m.state.Reservation
	m.warnTimer = nil
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	m.notifier.WarnHolder(ctx, r, r.End.Sub(m.clock.Now()).Round(time.Minute))
}

func (m *Manager) expire(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	m.mu.Lock()
	if gen != m.gen || m.state.Reservation == nil {
		m.mu.Unlock()
		return
	}
	m.endTimer = nil
	rel := m.releaseLocked(ctx)
	m.mu.Unlock()

	m.afterExpire(ctx, rel)
}

func (m *Manager) afterExpire(ctx context.Context, rel Release) {
	metrics.RecordReservationEvent("expired")
	log.Printf("laundry: manager: reservation of %s expired", rel.Reservation.Holder)
	m.notifier.WashEnded(ctx, rel.Reservation)
	m.handOff(ctx, rel)
}

func (m *Manager) handOff(ctx context.Context, rel Release) {
	if rel.Next == nil {
		return
	}
	metrics.RecordReservationEvent("handed_off")
	m.notifier.NextInQueue(ctx, *rel.Next)
}

func (m *Manager) indexLocked(participant string) int {
	for i, e := range m.state.Queue {
		if e.Participant == participant {
			return i
		}
	}
	return -1
}

// saveLocked persists the state. The in-memory state stays authoritative
// when the store fails.
func (m *Manager) saveLocked(ctx context.Context) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(ctx, m.state.clone()); err != nil {
		log.Printf("laundry: manager: save state: %v", err)
	}
}
