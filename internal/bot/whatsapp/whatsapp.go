// Package whatsapp implements the bot Adapter for WhatsApp through an
// Evolution API instance. Outbound messages are HTTP calls to the instance;
// inbound messages arrive as webhook events handed to Deliver.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zulandar/condobot/internal/bot"
	"github.com/zulandar/condobot/internal/metrics"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// defaultTimeout bounds every call to the Evolution API.
	defaultTimeout = 15 * time.Second
	// inboundBuffer is the capacity of the inbound message channel.
	inboundBuffer = 100
)

// Adapter implements bot.Adapter for the Evolution API.
type Adapter struct {
	baseURL  string
	instance string
	apiKey   string
	client   *http.Client

	mu        sync.Mutex
	connected bool
	closed    bool

	// inMu guards the inbound channel against close while Deliver sends.
	inMu    sync.RWMutex
	inbound chan bot.InboundMessage
	done    chan struct{}

	now     func() time.Time
	backoff time.Duration // base wait for 429 retries without Retry-After
}

// AdapterOpts holds parameters for creating an Adapter.
type AdapterOpts struct {
	URL        string // Evolution API base URL
	Instance   string // instance name
	APIKey     string // sent as the apikey header
	HTTPClient *http.Client
	Timeout    time.Duration // defaults to 15s
}

// New creates an Evolution API Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("whatsapp: url is required")
	}
	if opts.Instance == "" {
		return nil, fmt.Errorf("whatsapp: instance is required")
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Adapter{
		baseURL:  strings.TrimRight(opts.URL, "/"),
		instance: opts.Instance,
		apiKey:   opts.APIKey,
		client:   client,
		inbound:  make(chan bot.InboundMessage, inboundBuffer),
		done:     make(chan struct{}),
		now:      time.Now,
		backoff:  time.Second,
	}, nil
}

// Connect verifies the instance is reachable and reports its connection
// state. A disconnected instance is logged, not fatal: the phone may be
// re-paired while the bot keeps running.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return fmt.Errorf("whatsapp: adapter already closed")
	}
	if a.connected {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	body, err := a.do(ctx, http.MethodGet, a.endpoint("instance/connectionState"), nil)
	if err != nil {
		return fmt.Errorf("whatsapp: connection state: %w", err)
	}
	var resp struct {
		Instance struct {
			State string `json:"state"`
		} `json:"instance"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Instance.State != "" && resp.Instance.State != "open" {
		log.Printf("whatsapp: instance %s state is %q", a.instance, resp.Instance.State)
	}

	a.mu.Lock()
	a.connected = true
	a.mu.Unlock()
	return nil
}

// Listen returns the channel fed by Deliver. Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan bot.InboundMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("whatsapp: not connected")
	}
	return a.inbound, nil
}

// Send delivers a message. List menus go to sendList; plain text and
// mentions go to sendText.
func (a *Adapter) Send(ctx context.Context, msg bot.OutboundMessage) error {
	err := a.send(ctx, msg)
	metrics.RecordSend(err)
	return err
}

func (a *Adapter) send(ctx context.Context, msg bot.OutboundMessage) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("whatsapp: not connected")
	}
	a.mu.Unlock()

	if msg.ConversationID == "" {
		return fmt.Errorf("whatsapp: no conversation specified")
	}

	target, payload := a.buildPayload(msg)
	err := a.retryOnRateLimit(ctx, func() error {
		_, err := a.do(ctx, http.MethodPost, target, payload)
		return err
	})
	if err != nil {
		return fmt.Errorf("whatsapp: send to %s: %w", msg.ConversationID, err)
	}
	return nil
}

// GroupSubject resolves a group's display name.
func (a *Adapter) GroupSubject(ctx context.Context, groupID string) (string, error) {
	target := a.endpoint("group/findGroupInfos") + "?groupJid=" + url.QueryEscape(groupID)
	body, err := a.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("whatsapp: group info %s: %w", groupID, err)
	}
	var info struct {
		Subject string `json:"subject"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("whatsapp: decode group info: %w", err)
	}
	return info.Subject, nil
}

// Close shuts down the adapter and closes the inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.connected = false
	close(a.done)
	a.mu.Unlock()

	a.inMu.Lock()
	close(a.inbound)
	a.inMu.Unlock()
	return nil
}

// Deliver parses a webhook payload and queues the messages it carries. The
// event name comes from the URL path when the webhook is configured "by
// events", otherwise from the payload. Unhandled events are logged and
// dropped. It returns an error only for a malformed payload.
func (a *Adapter) Deliver(ctx context.Context, event string, payload []byte) error {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("whatsapp: decode webhook: %w", err)
	}
	if event == "" {
		event = p.Event
	}
	event = NormalizeEvent(event)

	var msgs []bot.InboundMessage
	switch event {
	case "messages.upsert":
		msg, ok := a.parseMessage(p.Data)
		if !ok {
			return nil
		}
		msgs = append(msgs, msg)
	case "group.participants.update":
		msgs = a.parseParticipants(p.Data)
	default:
		log.Printf("whatsapp: ignoring event %q", event)
		return nil
	}

	a.inMu.RLock()
	defer a.inMu.RUnlock()
	for _, msg := range msgs {
		select {
		case <-a.done:
			return nil
		default:
		}
		select {
		case a.inbound <- msg:
		case <-a.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// NormalizeEvent maps the event spellings Evolution uses ("MESSAGES_UPSERT",
// "messages-upsert", "messages.upsert") to the dotted lowercase form.
func NormalizeEvent(event string) string {
	e := strings.ToLower(strings.TrimSpace(event))
	e = strings.ReplaceAll(e, "-", ".")
	return strings.ReplaceAll(e, "_", ".")
}

// --- webhook payloads ---

type webhookPayload struct {
	Event    string          `json:"event"`
	Instance string          `json:"instance"`
	Data     json.RawMessage `json:"data"`
}

type messageKey struct {
	RemoteJID   string `json:"remoteJid"`
	Participant string `json:"participant"`
	FromMe      bool   `json:"fromMe"`
	ID          string `json:"id"`
}

type messageContent struct {
	Conversation        string `json:"conversation"`
	ExtendedTextMessage *struct {
		Text string `json:"text"`
	} `json:"extendedTextMessage"`
	ListResponseMessage *struct {
		SingleSelectReply struct {
			SelectedRowID string `json:"selectedRowId"`
		} `json:"singleSelectReply"`
	} `json:"listResponseMessage"`
}

// text returns the first non-empty of the plain, extended and list-reply
// texts.
func (c *messageContent) text() string {
	if c == nil {
		return ""
	}
	if c.Conversation != "" {
		return c.Conversation
	}
	if c.ExtendedTextMessage != nil && c.ExtendedTextMessage.Text != "" {
		return c.ExtendedTextMessage.Text
	}
	if c.ListResponseMessage != nil {
		return c.ListResponseMessage.SingleSelectReply.SelectedRowID
	}
	return ""
}

type webhookMessage struct {
	Key              *messageKey     `json:"key"`
	PushName         string          `json:"pushName"`
	Message          *messageContent `json:"message"`
	MessageStubType  json.RawMessage `json:"messageStubType"`
	MessageTimestamp json.RawMessage `json:"messageTimestamp"`
}

// locateMessage finds the message object inside an upsert's data: the first
// element of data.messages, data itself, or data.message, whichever carries
// a key.
func locateMessage(data json.RawMessage) (*webhookMessage, bool) {
	var envelope struct {
		Messages []webhookMessage `json:"messages"`
		Message  json.RawMessage  `json:"message"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, false
	}
	if len(envelope.Messages) > 0 && envelope.Messages[0].Key != nil {
		return &envelope.Messages[0], true
	}
	var direct webhookMessage
	if err := json.Unmarshal(data, &direct); err == nil && direct.Key != nil {
		return &direct, true
	}
	if len(envelope.Message) > 0 {
		var nested webhookMessage
		if err := json.Unmarshal(envelope.Message, &nested); err == nil && nested.Key != nil {
			return &nested, true
		}
	}
	return nil, false
}

func (a *Adapter) parseMessage(data json.RawMessage) (bot.InboundMessage, bool) {
	m, ok := locateMessage(data)
	if !ok || m.Key.RemoteJID == "" {
		return bot.InboundMessage{}, false
	}
	if m.Message == nil || isStub(m.MessageStubType) {
		return bot.InboundMessage{}, false
	}
	participant := m.Key.Participant
	if participant == "" {
		participant = m.Key.RemoteJID
	}
	return bot.InboundMessage{
		Kind:           bot.KindText,
		ConversationID: m.Key.RemoteJID,
		ParticipantID:  participant,
		PushName:       m.PushName,
		Text:           m.Message.text(),
		FromMe:         m.Key.FromMe,
		Timestamp:      a.parseTimestamp(m.MessageTimestamp),
	}, true
}

// isStub reports whether a messageStubType field marks a protocol stub
// (group notices, deletions) rather than a user message.
func isStub(raw json.RawMessage) bool {
	s := strings.Trim(string(raw), `"`)
	return s != "" && s != "null" && s != "0"
}

// parseTimestamp accepts unix seconds as a number or a string; anything else
// yields the receive time.
func (a *Adapter) parseTimestamp(raw json.RawMessage) time.Time {
	s := strings.Trim(string(raw), `"`)
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil && sec > 0 {
		return time.Unix(sec, 0)
	}
	return a.now()
}

func (a *Adapter) parseParticipants(data json.RawMessage) []bot.InboundMessage {
	var upd struct {
		ID           string          `json:"id"`
		Participants json.RawMessage `json:"participants"`
		Action       string          `json:"action"`
	}
	if err := json.Unmarshal(data, &upd); err != nil || upd.ID == "" {
		return nil
	}
	var kind bot.Kind
	switch upd.Action {
	case "add":
		kind = bot.KindJoin
	case "remove", "leave":
		kind = bot.KindLeave
	default:
		return nil
	}
	var out []bot.InboundMessage
	for _, p := range decodeParticipants(upd.Participants) {
		out = append(out, bot.InboundMessage{
			Kind:           kind,
			ConversationID: upd.ID,
			ParticipantID:  p,
			Timestamp:      a.now(),
		})
	}
	return out
}

// decodeParticipants accepts a list of JIDs or of objects with an id.
func decodeParticipants(raw json.RawMessage) []string {
	var ids []string
	if err := json.Unmarshal(raw, &ids); err == nil {
		return ids
	}
	var objs []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &objs); err != nil {
		return nil
	}
	for _, o := range objs {
		if o.ID != "" {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// --- outbound ---

type listRow struct {
	Title string `json:"title"`
	RowID string `json:"rowId"`
}

type listSection struct {
	Title string    `json:"title"`
	Rows  []listRow `json:"rows"`
}

type sendListRequest struct {
	Number     string        `json:"number"`
	Text       string        `json:"text"`
	Footer     string        `json:"footer,omitempty"`
	ButtonText string        `json:"buttonText,omitempty"`
	Sections   []listSection `json:"sections"`
}

type sendTextRequest struct {
	Number   string   `json:"number"`
	Text     string   `json:"text"`
	Mentions []string `json:"mentions,omitempty"`
}

// buildPayload translates an OutboundMessage into the endpoint and body of
// the matching Evolution send call.
func (a *Adapter) buildPayload(msg bot.OutboundMessage) (string, interface{}) {
	if msg.IsList() {
		req := sendListRequest{
			Number:     msg.ConversationID,
			Text:       msg.Text,
			Footer:     msg.Footer,
			ButtonText: msg.ButtonLabel,
		}
		for _, s := range msg.Sections {
			sec := listSection{Title: s.Title}
			for _, r := range s.Rows {
				sec.Rows = append(sec.Rows, listRow{Title: r.Title, RowID: r.RowID})
			}
			req.Sections = append(req.Sections, sec)
		}
		return a.endpoint("message/sendList"), req
	}
	return a.endpoint("message/sendText"), sendTextRequest{
		Number:   msg.ConversationID,
		Text:     msg.Text,
		Mentions: msg.Mentions,
	}
}

func (a *Adapter) endpoint(path string) string {
	return a.baseURL + "/" + path + "/" + url.PathEscape(a.instance)
}

// statusError is a non-2xx response from the Evolution API.
type statusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

func (a *Adapter) do(ctx context.Context, method, target string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.apiKey != "" {
		req.Header.Set("apikey", a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &statusError{Code: resp.StatusCode, Body: truncate(string(data), 200)}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			se.RetryAfter = time.Duration(secs) * time.Second
		}
		return nil, se
	}
	return data, nil
}

// retryOnRateLimit calls fn and retries with backoff on HTTP 429 responses.
// It respects context cancellation and the Retry-After header.
func (a *Adapter) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		se, ok := err.(*statusError)
		if !ok || se.Code != http.StatusTooManyRequests || attempt == maxRetries {
			return err
		}

		wait := se.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * a.backoff
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
