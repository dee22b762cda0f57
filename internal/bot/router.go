package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/zulandar/condobot/internal/metrics"
)

// Workflow binds a set of allowlisted conversations to the engine that
// serves them.
type Workflow struct {
	Name          string
	Conversations []string
	Engine        Engine
}

// Router maps an inbound message's conversation to its workflow engine and
// forwards it. Messages from conversations outside the allowlist and echoes
// of the bot's own messages are dropped.
type Router struct {
	routes map[string]Workflow // conversation ID -> workflow
	log    *MessageLog
	out    io.Writer
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	Workflows []Workflow
	Log       *MessageLog // optional inbound message log
	Out       io.Writer   // defaults to os.Stdout
}

// NewRouter creates a Router. A conversation may belong to one workflow only.
func NewRouter(opts RouterOpts) (*Router, error) {
	if len(opts.Workflows) == 0 {
		return nil, fmt.Errorf("bot: router: at least one workflow is required")
	}
	routes := make(map[string]Workflow)
	for _, wf := range opts.Workflows {
		if wf.Name == "" {
			return nil, fmt.Errorf("bot: router: workflow name is required")
		}
		if wf.Engine == nil {
			return nil, fmt.Errorf("bot: router: workflow %s: engine is required", wf.Name)
		}
		for _, conv := range wf.Conversations {
			if prev, ok := routes[conv]; ok {
				return nil, fmt.Errorf("bot: router: conversation %s assigned to both %s and %s", conv, prev.Name, wf.Name)
			}
			routes[conv] = wf
		}
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Router{routes: routes, log: opts.Log, out: out}, nil
}

// Workflow returns the workflow name serving a conversation, or "" when the
// conversation is not allowlisted.
func (r *Router) Workflow(conversationID string) string {
	return r.routes[conversationID].Name
}

// Handle routes a single inbound message. It never returns an error or
// panics: engine failures are logged and counted so one conversation cannot
// stop the daemon.
func (r *Router) Handle(ctx context.Context, msg InboundMessage) {
	if msg.FromMe {
		return
	}
	wf, ok := r.routes[msg.ConversationID]
	if !ok {
		return
	}

	text := strings.TrimSpace(msg.Text)
	fmt.Fprintf(r.out, "bot: router: recv [%s conv=%s from=%s] %q\n",
		wf.Name, msg.ConversationID, msg.ParticipantID, truncate(text, 80))
	metrics.RecordInbound(wf.Name)
	r.log.Inbound(ctx, msg)

	if err := r.dispatch(ctx, wf, msg); err != nil {
		metrics.RecordHandlerError(wf.Name)
		log.Printf("bot: router: %s: %v", wf.Name, err)
	}
}

// dispatch invokes the engine, converting a panic into an error.
func (r *Router) dispatch(ctx context.Context, wf Workflow, msg InboundMessage) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return wf.Engine.Handle(ctx, msg)
}

// truncate returns s truncated to maxLen with "..." appended if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
