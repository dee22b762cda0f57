package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
)

// Daemon is the main bot process. It connects to the chat network via an
// Adapter and pumps inbound messages, one at a time, to the Router.
type Daemon struct {
	adapter   Adapter
	router    *Router
	announcer *Announcer
	onConnect func(ctx context.Context) error
	out       io.Writer
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	Adapter   Adapter
	Router    *Router
	Announcer *Announcer                      // optional
	OnConnect func(ctx context.Context) error // optional; runs after Connect, before routing
	Out       io.Writer                       // defaults to os.Stdout
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bot: adapter is required")
	}
	if opts.Router == nil {
		return nil, fmt.Errorf("bot: router is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Daemon{
		adapter:   opts.Adapter,
		router:    opts.Router,
		announcer: opts.Announcer,
		onConnect: opts.OnConnect,
		out:       out,
	}, nil
}

// Run connects the adapter, runs the OnConnect hook, starts the announcement
// scheduler and blocks routing inbound messages until the context is
// cancelled or the adapter closes its inbound channel. Startup work that
// sends messages belongs in OnConnect, since the adapter refuses sends before
// Connect. On shutdown it closes the adapter.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "condobot connecting...\n")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("bot: connect: %w", err)
	}

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bot: listen: %w", err)
	}

	if d.onConnect != nil {
		if err := d.onConnect(ctx); err != nil {
			d.adapter.Close()
			return fmt.Errorf("bot: startup: %w", err)
		}
	}

	if d.announcer != nil {
		d.announcer.Start(ctx)
	}

	fmt.Fprintf(d.out, "condobot online\n")

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "condobot shutting down...\n")
			if d.announcer != nil {
				d.announcer.Stop()
			}
			if err := d.adapter.Close(); err != nil {
				log.Printf("bot: close adapter: %v", err)
			}
			fmt.Fprintf(d.out, "condobot stopped\n")
			return nil

		case msg, ok := <-inbound:
			if !ok {
				fmt.Fprintf(d.out, "condobot inbound channel closed\n")
				return nil
			}
			d.router.Handle(ctx, msg)
		}
	}
}
