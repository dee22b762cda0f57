package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the duration
// from now until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string, now time.Time) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	d := sched.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Announcement is a message posted to a set of conversations on a cron
// schedule, e.g. the trash collection reminder.
type Announcement struct {
	Cron          string
	Conversations []string
	Text          string
}

// Announcer posts scheduled announcements through the adapter.
type Announcer struct {
	adapter Adapter
	items   []Announcement
	cron    *cron.Cron
	out     io.Writer
}

// AnnouncerOpts holds parameters for creating an Announcer.
type AnnouncerOpts struct {
	Adapter       Adapter
	Announcements []Announcement
	Location      *time.Location // schedule time zone; defaults to time.Local
	Out           io.Writer      // defaults to os.Stdout
}

// NewAnnouncer creates an Announcer. Every cron expression is validated up
// front so a typo fails startup instead of silently never firing.
func NewAnnouncer(opts AnnouncerOpts) (*Announcer, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bot: announcer: adapter is required")
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	a := &Announcer{
		adapter: opts.Adapter,
		items:   opts.Announcements,
		cron:    cron.New(cron.WithParser(cronParser), cron.WithLocation(loc)),
		out:     out,
	}
	for i, item := range opts.Announcements {
		item := item
		if _, err := a.cron.AddFunc(item.Cron, func() { a.post(context.Background(), item) }); err != nil {
			return nil, fmt.Errorf("bot: announcer: announcement %d: %w", i, err)
		}
	}
	return a, nil
}

// Start begins firing announcements in the background until ctx is
// cancelled or Stop is called.
func (a *Announcer) Start(ctx context.Context) {
	if len(a.items) == 0 {
		return
	}
	now := time.Now()
	for _, item := range a.items {
		fmt.Fprintf(a.out, "bot: announcer: %q next in %s\n",
			truncate(item.Text, 40), nextCronDuration(item.Cron, now).Round(time.Second))
	}
	a.cron.Start()
	go func() {
		<-ctx.Done()
		a.Stop()
	}()
}

// Stop halts the scheduler and waits for running posts to finish.
func (a *Announcer) Stop() {
	<-a.cron.Stop().Done()
}

// post sends one announcement to each of its conversations.
func (a *Announcer) post(ctx context.Context, item Announcement) {
	for _, conv := range item.Conversations {
		if err := a.adapter.Send(ctx, Text(conv, item.Text)); err != nil {
			log.Printf("bot: announcer: send to %s: %v", conv, err)
		}
	}
}
