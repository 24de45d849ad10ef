package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tjchat/api"
	"tjchat/events"
)

// API is the part of the backend the controller talks to. *api.Client
// implements it.
type API interface {
	ListChats(ctx context.Context) ([]api.Chat, error)
	ListMessages(ctx context.Context, chatID string, limit int) ([]api.HistoryMessage, error)
	NewChat(ctx context.Context) (string, error)
	SendMessage(ctx context.Context, content, chatID string) (*api.SendResponse, error)
}

// Controller owns the chat list, the active chat and its messages.
//
// Methods are safe for concurrent use. The lock is never held across a
// network call, so a chat switch may happen while a send is in flight. Each
// send remembers the selection it was made in, and a reply that resolves
// after the selection changed is not attached to the new active chat.
type Controller struct {
	api          API
	logger       *zap.Logger
	events       events.Publisher
	now          func() time.Time
	newID        func() string
	historyLimit int

	mu         sync.Mutex
	chats      []Chat
	activeID   string
	messages   []Message
	phase      Phase
	generation uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithPublisher sets where state changes are announced.
func WithPublisher(p events.Publisher) Option {
	return func(c *Controller) { c.events = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator replaces the generator of local message ids.
func WithIDGenerator(gen func() string) Option {
	return func(c *Controller) { c.newID = gen }
}

// WithHistoryLimit sets how many messages SelectChat fetches.
func WithHistoryLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// NewController creates a controller with an empty state.
func NewController(backend API, opts ...Option) *Controller {
	c := &Controller{
		api:          backend,
		logger:       zap.NewNop(),
		events:       events.Nop{},
		now:          time.Now,
		newID:        uuid.NewString,
		historyLimit: HistoryLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		Chats:        append([]Chat(nil), c.chats...),
		ActiveChatID: c.activeID,
		Messages:     append([]Message(nil), c.messages...),
		Pending:      c.phase == PhaseSending,
		Phase:        c.phase,
	}
}

// Phase returns the send state.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// LoadChats replaces the chat list with the server's. Chats created locally
// that the server did not return yet stay at the top. On failure the list
// is emptied and the error returned; callers treat it as non-fatal.
func (c *Controller) LoadChats(ctx context.Context) error {
	items, err := c.api.ListChats(ctx)
	if err != nil {
		c.logger.Warn("failed to load chats", zap.Error(err))
		c.mu.Lock()
		c.chats = nil
		c.mu.Unlock()
		c.events.Emit(events.ChatsLoaded, 0)
		return err
	}

	chats := make([]Chat, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = DefaultChatTitle
		}
		chats = append(chats, Chat{
			ID:      item.ID.String(),
			Title:   title,
			Created: parseTime(item.Created),
			Updated: parseTime(item.Updated),
		})
	}

	c.mu.Lock()
	c.chats = mergeLocal(chats, c.chats)
	c.mu.Unlock()

	c.logger.Debug("chats loaded", zap.Int("count", len(chats)))
	c.events.Emit(events.ChatsLoaded, len(chats))
	return nil
}

// SelectChat makes id the active chat and loads its recent history. The
// previous messages are cleared before the request is made. A failed or
// superseded load leaves the message list empty. Selecting the active chat
// while a send is in flight does nothing.
func (c *Controller) SelectChat(ctx context.Context, id string) error {
	c.mu.Lock()
	if id == c.activeID && c.phase == PhaseSending {
		// The chat is unchanged; its pending question and reply stay.
		c.mu.Unlock()
		return nil
	}
	c.generation++
	gen := c.generation
	c.activeID = id
	c.messages = nil
	if c.phase == PhaseErrorDisplayed {
		c.phase = PhaseIdle
	}
	c.mu.Unlock()
	c.events.Emit(events.ChatSelected, id)

	items, err := c.api.ListMessages(ctx, id, c.historyLimit)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.logger.Debug("discarding stale history", zap.String("chat_id", id))
		return nil
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("failed to load history", zap.String("chat_id", id), zap.Error(err))
		c.events.Emit(events.HistoryLoaded, id)
		return err
	}

	messages := make([]Message, 0, len(items))
	for _, item := range items {
		msgID := item.MessageID.String()
		if msgID == "" {
			msgID = c.newID()
		}
		messages = append(messages, Message{
			ID:        msgID,
			Role:      roleFrom(item.Role),
			Text:      item.Content,
			Timestamp: parseTime(item.Created),
		})
	}
	c.messages = messages
	c.mu.Unlock()

	c.events.Emit(events.HistoryLoaded, id)
	return nil
}

// CreateChat opens a chat on the server, puts it first in the list with the
// default title and selects it. On failure nothing changes.
func (c *Controller) CreateChat(ctx context.Context) (string, error) {
	id, err := c.api.NewChat(ctx)
	if err != nil {
		c.logger.Warn("failed to create chat", zap.Error(err))
		c.events.Emit(events.SystemError, api.Message(err))
		return "", err
	}

	now := c.now()
	c.mu.Lock()
	c.chats = prependChat(c.chats, Chat{ID: id, Title: DefaultChatTitle, Created: now, Updated: now})
	c.mu.Unlock()
	c.events.Emit(events.ChatCreated, id)

	// A failed history load of a fresh chat is logged by SelectChat and
	// leaves an empty conversation, which is what a new chat shows anyway.
	_ = c.SelectChat(ctx, id)
	return id, nil
}

// Outbound is a send between BeginSend and FinishSend.
type Outbound struct {
	Content    string
	ChatID     string // empty when the send starts a new chat
	MessageID  string // id of the optimistic user message
	generation uint64
}

// BeginSend appends the optimistic user message and enters Sending. It
// reports false, and does nothing, for blank content or while another send
// is in flight.
func (c *Controller) BeginSend(content string) (*Outbound, bool) {
	if strings.TrimSpace(content) == "" {
		return nil, false
	}

	c.mu.Lock()
	if c.phase == PhaseSending {
		c.mu.Unlock()
		return nil, false
	}

	out := &Outbound{
		Content:    content,
		ChatID:     c.activeID,
		MessageID:  c.newID(),
		generation: c.generation,
	}
	msg := Message{
		ID:        out.MessageID,
		Role:      RoleUser,
		Text:      content,
		Timestamp: c.now().UTC(),
	}
	c.messages = append(c.messages, msg)
	c.phase = PhaseSending
	c.mu.Unlock()

	c.events.Emit(events.MessageAppended, msg)
	c.events.Emit(events.SendStarted, out.ChatID)
	return out, true
}

// FinishSend posts the message and records the outcome. The controller
// leaves Sending whatever happens.
func (c *Controller) FinishSend(ctx context.Context, out *Outbound) {
	if out == nil {
		return
	}

	resp, err := c.api.SendMessage(ctx, out.Content, out.ChatID)
	if err == nil && resp == nil {
		err = &api.Error{Kind: api.KindInvalid, Op: "send message", Detail: "empty response"}
	}

	var appended *Message
	var created, dropped string
	failed := err != nil

	c.mu.Lock()
	defer func() {
		if failed {
			c.phase = PhaseErrorDisplayed
		} else {
			c.phase = PhaseIdle
		}
		c.mu.Unlock()

		if created != "" {
			c.events.Emit(events.ChatCreated, created)
		}
		if appended != nil {
			c.events.Emit(events.MessageAppended, *appended)
		}
		if dropped != "" {
			c.events.Emit(events.ReplyDropped, dropped)
		}
		c.events.Emit(events.SendFinished, out.ChatID)
	}()

	stale := c.generation != out.generation

	if err != nil {
		c.logger.Warn("send failed",
			zap.String("chat_id", out.ChatID),
			zap.Bool("stale", stale),
			zap.Error(err))
		if stale {
			failed = false
			return
		}
		msg := Message{
			ID:        c.newID(),
			Role:      RoleAssistant,
			Text:      api.Message(err),
			Timestamp: c.now().UTC(),
			IsError:   true,
		}
		c.messages = append(c.messages, msg)
		appended = &msg
		return
	}

	replyChat := out.ChatID
	if out.ChatID == "" && resp.ChatID != "" {
		replyChat = resp.ChatID.String()
		if c.indexOf(replyChat) < 0 {
			now := c.now()
			c.chats = prependChat(c.chats, Chat{ID: replyChat, Title: titleFrom(out.Content), Created: now, Updated: now})
			created = replyChat
		}
	}

	if stale {
		c.logger.Info("reply arrived after the chat changed; not shown",
			zap.String("chat_id", replyChat),
			zap.String("message_id", resp.MessageID.String()))
		dropped = replyChat
		if dropped == "" {
			dropped = "-"
		}
		return
	}

	if out.ChatID == "" && replyChat != "" {
		c.activeID = replyChat
	}

	msgID := resp.MessageID.String()
	if msgID == "" {
		msgID = c.newID()
	}
	ts := parseTime(resp.Timestamp)
	if ts.IsZero() {
		ts = c.now().UTC()
	}
	msg := Message{
		ID:        msgID,
		Role:      RoleAssistant,
		Text:      resp.Content,
		Timestamp: ts,
	}
	c.messages = append(c.messages, msg)
	appended = &msg
}

// SendMessage is BeginSend followed by FinishSend. It reports whether a
// send took place.
func (c *Controller) SendMessage(ctx context.Context, content string) bool {
	out, ok := c.BeginSend(content)
	if !ok {
		return false
	}
	c.FinishSend(ctx, out)
	return true
}

// RenameChat sets a chat's title locally.
func (c *Controller) RenameChat(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return ErrChatNotFound
	}
	c.chats[i].Title = title
	c.chats[i].Updated = c.now()
	c.mu.Unlock()

	c.events.Emit(events.ChatRenamed, id)
	return nil
}

// DeleteChat removes a chat from the local list. Deleting the active chat
// selects the first remaining one, or leaves no chat active.
func (c *Controller) DeleteChat(ctx context.Context, id string) error {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return ErrChatNotFound
	}
	c.chats = append(c.chats[:i:i], c.chats[i+1:]...)

	wasActive := c.activeID == id
	next := ""
	if wasActive {
		c.generation++
		c.activeID = ""
		c.messages = nil
		if c.phase == PhaseErrorDisplayed {
			c.phase = PhaseIdle
		}
		if len(c.chats) > 0 {
			next = c.chats[0].ID
		}
	}
	c.mu.Unlock()

	c.events.Emit(events.ChatDeleted, id)

	if next != "" {
		return c.SelectChat(ctx, next)
	}
	return nil
}

// indexOf must be called with mu held.
func (c *Controller) indexOf(id string) int {
	for i, ch := range c.chats {
		if ch.ID == id {
			return i
		}
	}
	return -1
}

// mergeLocal puts the chats of local that are missing from loaded in front
// of loaded, keeping their order.
func mergeLocal(loaded, local []Chat) []Chat {
	known := make(map[string]bool, len(loaded))
	for _, ch := range loaded {
		known[ch.ID] = true
	}

	var out []Chat
	for _, ch := range local {
		if !known[ch.ID] {
			out = append(out, ch)
		}
	}
	if len(out) == 0 {
		return loaded
	}
	return append(out, loaded...)
}

func prependChat(chats []Chat, ch Chat) []Chat {
	out := make([]Chat, 0, len(chats)+1)
	out = append(out, ch)
	return append(out, chats...)
}
