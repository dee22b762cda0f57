package bot

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/zulandar/condobot/internal/store"
)

// recordingEngine records the messages it handles and optionally fails.
type recordingEngine struct {
	mu    sync.Mutex
	got   []InboundMessage
	err   error
	panic string
}

func (e *recordingEngine) Handle(ctx context.Context, msg InboundMessage) error {
	e.mu.Lock()
	e.got = append(e.got, msg)
	e.mu.Unlock()
	if e.panic != "" {
		panic(e.panic)
	}
	return e.err
}

func (e *recordingEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.got)
}

func setupRouter(t *testing.T) (*Router, *recordingEngine, *recordingEngine, *bytes.Buffer) {
	t.Helper()
	parcels := &recordingEngine{}
	laundry := &recordingEngine{}
	var out bytes.Buffer
	r, err := NewRouter(RouterOpts{
		Workflows: []Workflow{
			{Name: "parcels", Conversations: []string{"parcels@g.us"}, Engine: parcels},
			{Name: "laundry", Conversations: []string{"laundry@g.us", "laundry2@g.us"}, Engine: laundry},
		},
		Out: &out,
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return r, parcels, laundry, &out
}

// --- NewRouter tests ---

func TestNewRouter_NoWorkflows(t *testing.T) {
	_, err := NewRouter(RouterOpts{})
	if err == nil {
		t.Fatal("expected error for empty workflow list")
	}
}

func TestNewRouter_NilEngine(t *testing.T) {
	_, err := NewRouter(RouterOpts{Workflows: []Workflow{{Name: "parcels", Conversations: []string{"a"}}}})
	if err == nil {
		t.Fatal("expected error for nil engine")
	}
	if !strings.Contains(err.Error(), "engine is required") {
		t.Errorf("error = %q, want engine is required", err)
	}
}

func TestNewRouter_MissingName(t *testing.T) {
	_, err := NewRouter(RouterOpts{Workflows: []Workflow{{Engine: &recordingEngine{}}}})
	if err == nil {
		t.Fatal("expected error for missing workflow name")
	}
}

func TestNewRouter_DuplicateConversation(t *testing.T) {
	_, err := NewRouter(RouterOpts{Workflows: []Workflow{
		{Name: "parcels", Conversations: []string{"g"}, Engine: &recordingEngine{}},
		{Name: "laundry", Conversations: []string{"g"}, Engine: &recordingEngine{}},
	}})
	if err == nil {
		t.Fatal("expected error for conversation in two workflows")
	}
}

// --- Handle tests ---

func TestRouter_RoutesByConversation(t *testing.T) {
	r, parcels, laundry, _ := setupRouter(t)
	ctx := context.Background()

	r.Handle(ctx, InboundMessage{ConversationID: "parcels@g.us", ParticipantID: "u1", Text: "menu"})
	r.Handle(ctx, InboundMessage{ConversationID: "laundry2@g.us", ParticipantID: "u2", Text: "3"})

	if parcels.count() != 1 {
		t.Errorf("parcels handled %d, want 1", parcels.count())
	}
	if laundry.count() != 1 {
		t.Errorf("laundry handled %d, want 1", laundry.count())
	}
	if laundry.got[0].Text != "3" {
		t.Errorf("laundry text = %q, want %q", laundry.got[0].Text, "3")
	}
}

func TestRouter_IgnoresOwnEcho(t *testing.T) {
	r, parcels, _, _ := setupRouter(t)
	r.Handle(context.Background(), InboundMessage{ConversationID: "parcels@g.us", Text: "menu", FromMe: true})
	if parcels.count() != 0 {
		t.Errorf("echo was routed to the engine")
	}
}

func TestRouter_IgnoresUnknownConversation(t *testing.T) {
	r, parcels, laundry, out := setupRouter(t)
	r.Handle(context.Background(), InboundMessage{ConversationID: "stranger@s.whatsapp.net", Text: "menu"})
	if parcels.count()+laundry.count() != 0 {
		t.Error("message from a non-allowlisted conversation was routed")
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output for ignored message: %q", out.String())
	}
}

func TestRouter_EngineErrorIsContained(t *testing.T) {
	r, parcels, _, _ := setupRouter(t)
	parcels.err = errors.New("store down")

	r.Handle(context.Background(), InboundMessage{ConversationID: "parcels@g.us", Text: "2"})
	r.Handle(context.Background(), InboundMessage{ConversationID: "parcels@g.us", Text: "menu"})

	if parcels.count() != 2 {
		t.Errorf("handled %d, want 2 (router keeps serving after an error)", parcels.count())
	}
}

func TestRouter_EnginePanicIsRecovered(t *testing.T) {
	r, _, laundry, _ := setupRouter(t)
	laundry.panic = "boom"

	r.Handle(context.Background(), InboundMessage{ConversationID: "laundry@g.us", Text: "3"})
	r.Handle(context.Background(), InboundMessage{ConversationID: "laundry@g.us", Text: "4"})

	if laundry.count() != 2 {
		t.Errorf("handled %d, want 2", laundry.count())
	}
}

func TestRouter_Workflow(t *testing.T) {
	r, _, _, _ := setupRouter(t)
	if got := r.Workflow("laundry@g.us"); got != "laundry" {
		t.Errorf("Workflow = %q, want laundry", got)
	}
	if got := r.Workflow("nope"); got != "" {
		t.Errorf("Workflow = %q, want empty", got)
	}
}

func TestRouter_LogsReceivedMessage(t *testing.T) {
	r, _, _, out := setupRouter(t)
	r.Handle(context.Background(), InboundMessage{ConversationID: "parcels@g.us", ParticipantID: "u1", Text: "  menu  "})
	if !strings.Contains(out.String(), `"menu"`) {
		t.Errorf("output = %q, want trimmed text", out.String())
	}
}

func TestRouter_AppendsToMessageLog(t *testing.T) {
	mem := store.NewMemoryStore()
	ml, err := NewMessageLog(MessageLogOpts{Store: mem, Collection: "log"})
	if err != nil {
		t.Fatalf("new message log: %v", err)
	}
	engine := &recordingEngine{}
	r, err := NewRouter(RouterOpts{
		Workflows: []Workflow{{Name: "parcels", Conversations: []string{"g"}, Engine: engine}},
		Log:       ml,
		Out:       &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}

	r.Handle(context.Background(), InboundMessage{ConversationID: "g", PushName: "Alice", Text: "menu"})
	r.Handle(context.Background(), InboundMessage{ConversationID: "other", PushName: "Bob", Text: "menu"})

	recs, _ := mem.List(context.Background(), "log")
	if len(recs) != 1 {
		t.Fatalf("log records = %d, want 1", len(recs))
	}
	if recs[0]["usuario"] != "Alice" || recs[0]["origem"] != OriginUser {
		t.Errorf("record = %v", recs[0])
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("ab", 3); got != "ab" {
		t.Errorf("truncate = %q", got)
	}
}
