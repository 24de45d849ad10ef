package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tjchat/api"
	"tjchat/chat"
	"tjchat/markdown"
)

type fakeBackend struct {
	mu      sync.Mutex
	chats   []api.Chat
	history map[string][]api.HistoryMessage
	reply   string
	sendErr error
	sent    []string
}

func (f *fakeBackend) ListChats(ctx context.Context) ([]api.Chat, error) {
	return f.chats, nil
}

func (f *fakeBackend) ListMessages(ctx context.Context, chatID string, limit int) ([]api.HistoryMessage, error) {
	return f.history[chatID], nil
}

func (f *fakeBackend) NewChat(ctx context.Context) (string, error) {
	return "new", nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, content, chatID string) (*api.SendResponse, error) {
	f.mu.Lock()
	f.sent = append(f.sent, content)
	f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &api.SendResponse{MessageID: "r1", Content: f.reply, ChatID: "c1"}, nil
}

type harness struct {
	m       *model
	backend *fakeBackend
	opened  []string
	copied  []string
}

func newHarness(t *testing.T, backend *fakeBackend) *harness {
	t.Helper()
	h := &harness{backend: backend}
	ctrl := chat.NewController(backend)
	h.m = newModel(context.Background(), Options{
		Controller: ctrl,
		Email:      "user@mail.test",
		OpenURL: func(u string) error {
			h.opened = append(h.opened, u)
			return nil
		},
		Copy: func(s string) { h.copied = append(h.copied, s) },
	})
	h.update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

// update feeds msg to the model and runs the resulting commands until none
// are left, skipping the ones that only animate.
func (h *harness) update(msg tea.Msg) tea.Cmd {
	_, cmd := h.m.Update(msg)
	h.drain(cmd)
	return cmd
}

func (h *harness) drain(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			h.drain(c)
		}
	case tea.QuitMsg, nil:
	default:
		if isAnimation(msg) {
			return
		}
		_, next := h.m.Update(msg)
		h.drain(next)
	}
}

func isAnimation(msg tea.Msg) bool {
	switch msg.(type) {
	case chatsLoadedMsg, historyLoadedMsg, chatCreatedMsg, chatDeletedMsg, sendFinishedMsg, eventMsg:
		return false
	}
	return true
}

func (h *harness) typeText(s string) {
	h.m.input.SetValue(s)
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case "ctrl+b":
		return tea.KeyMsg{Type: tea.KeyCtrlB}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"\x1b[31mred\x1b[0m", "red"},
		{"a\x07b\x00c", "abc"},
		{"line1\nline2\tx", "line1\nline2\tx"},
		{"\x1b]8;;http://evil\x07click\x1b]8;;\x07", "click"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Sanitize(tt.input), "%q", tt.input)
	}
}

func TestSafeLink(t *testing.T) {
	assert.True(t, SafeLink("https://journal.tinkoff.ru/a"))
	assert.True(t, SafeLink("http://x.test"))
	assert.False(t, SafeLink("javascript:alert(1)"))
	assert.False(t, SafeLink("file:///etc/passwd"))
	assert.False(t, SafeLink("/relative"))
	assert.False(t, SafeLink(""))
	assert.False(t, SafeLink("https://x.test/\u009b31m"))
	assert.False(t, SafeLink("https://x.test/a\u009c"))
	assert.False(t, SafeLink("https://x.test/\x1b]8;;"))
}

func TestRendererLinks(t *testing.T) {
	nodes := markdown.Parse("[Читать](https://x.test/a) и [плохо](javascript:alert(1))")

	linked := Renderer{Width: 80, Hyperlinks: true}.Nodes(nodes)
	assert.Contains(t, linked, "\x1b]8;;https://x.test/a")
	assert.NotContains(t, linked, "javascript:")

	plain := ansi.Strip(Renderer{Width: 80}.Nodes(nodes))
	assert.Contains(t, plain, "Читать (https://x.test/a)")
	assert.NotContains(t, plain, "javascript:")
}

func TestRendererDropsHrefWithControlCharacters(t *testing.T) {
	nodes := []markdown.Node{markdown.Paragraph{Runs: []markdown.Run{
		markdown.LinkRun{Label: "ссылка", Href: "https://x.test/\u009b2J"},
	}}}

	out := Renderer{Width: 40, Hyperlinks: true}.Nodes(nodes)
	assert.Contains(t, ansi.Strip(out), "ссылка")
	assert.NotContains(t, out, "\u009b")
	assert.NotContains(t, out, "\x1b]8;;")
}

func TestRendererMessage(t *testing.T) {
	r := Renderer{Width: 60}

	reply := ansi.Strip(r.Message(chat.Message{Role: chat.RoleAssistant, Text: "## Шаги\n- **Одобрение** банка\n- Сделка"}))
	assert.Contains(t, reply, "Ассистент")
	assert.Contains(t, reply, "Шаги")
	assert.Contains(t, reply, "• Одобрение банка")
	assert.Contains(t, reply, "• Сделка")
	assert.NotContains(t, reply, "**")

	user := ansi.Strip(r.Message(chat.Message{Role: chat.RoleUser, Text: "**не жирный**"}))
	assert.Contains(t, user, "Вы")
	assert.Contains(t, user, "**не жирный**", "user text is shown verbatim")

	failed := ansi.Strip(r.Message(chat.Message{Role: chat.RoleAssistant, Text: "Server error (502): bad", IsError: true}))
	assert.Contains(t, failed, "Server error (502): bad")
}

func TestRenderPlain(t *testing.T) {
	out := RenderPlain("## Итог\n**Важно**\n- пункт\nсм. [a](https://x.test)\nтекст [сноска]", 0)

	assert.Equal(t, "Итог\nВажно\n• пункт\nсм. a <https://x.test>\nтекст [сноска]", out)

	wrapped := RenderPlain("one two three four", 9)
	assert.Equal(t, "one two\nthree\nfour", wrapped)
}

func TestChatItemTitleIsTruncated(t *testing.T) {
	item := chatItem{chat: chat.Chat{Title: "Как экономить на путешествиях каждый год"}, width: 12}
	assert.LessOrEqual(t, ansi.StringWidth(item.Title()), 12)
	assert.True(t, strings.HasSuffix(item.Title(), "…"))
	assert.Equal(t, "Как экономить на путешествиях каждый год", item.FilterValue())
}

func TestWelcomeSuggestionSends(t *testing.T) {
	h := newHarness(t, &fakeBackend{reply: "Ответ"})

	assert.True(t, h.m.welcomeVisible())
	assert.Contains(t, ansi.Strip(h.m.View()), "Как взять ипотеку?")

	h.update(keyMsg("2"))
	assert.Empty(t, h.backend.sent, "a digit alone only types")
	assert.Equal(t, "2", h.m.input.Value())

	h.update(keyMsg("enter"))

	state := h.m.ctrl.State()
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "Налоги для самозанятых", state.Messages[0].Text)
	assert.Equal(t, "Ответ", state.Messages[1].Text)
	assert.Equal(t, "c1", state.ActiveChatID)
	assert.Equal(t, []string{"Налоги для самозанятых"}, h.backend.sent)
	assert.False(t, h.m.welcomeVisible())
}

func TestWelcomeQuestionStartingWithDigit(t *testing.T) {
	h := newHarness(t, &fakeBackend{reply: "Ответ"})

	h.update(keyMsg("1"))
	h.update(keyMsg("0"))
	h.update(keyMsg("0"))
	assert.Empty(t, h.backend.sent)
	assert.Equal(t, "100", h.m.input.Value())

	h.typeText("100 рублей в день: как копить?")
	h.update(keyMsg("enter"))

	assert.Equal(t, []string{"100 рублей в день: как копить?"}, h.backend.sent)
}

func TestDigitsAreTextOutsideWelcome(t *testing.T) {
	h := newHarness(t, &fakeBackend{reply: "Ответ"})
	h.typeText("1")
	h.update(keyMsg("enter"))
	require.Equal(t, []string{suggestions[0]}, h.backend.sent)

	h.typeText("3")
	h.update(keyMsg("enter"))

	assert.Equal(t, []string{suggestions[0], "3"}, h.backend.sent)
}

func TestEnterSendsInput(t *testing.T) {
	h := newHarness(t, &fakeBackend{reply: "## Ответ"})

	h.typeText("Как экономить?")
	h.update(keyMsg("enter"))

	assert.Equal(t, []string{"Как экономить?"}, h.backend.sent)
	assert.Empty(t, h.m.input.Value())
	assert.Contains(t, ansi.Strip(h.m.View()), "Ответ")
}

func TestBlankInputIsNotSent(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	h.typeText("   ")
	h.update(keyMsg("enter"))

	assert.Empty(t, h.backend.sent)
}

func TestFailedSendShowsError(t *testing.T) {
	h := newHarness(t, &fakeBackend{sendErr: &api.Error{Kind: api.KindTransport, Op: "send message", Err: errors.New("refused")}})

	h.typeText("вопрос")
	h.update(keyMsg("enter"))

	view := ansi.Strip(h.m.View())
	assert.Contains(t, view, "вопрос")
	assert.Contains(t, view, "Could not reach the server")
	assert.False(t, h.m.state.Pending)
}

func TestSidebarSelectRenameDelete(t *testing.T) {
	backend := &fakeBackend{
		chats: []api.Chat{{ID: "1", Title: "Первый"}, {ID: "2", Title: "Второй"}},
		history: map[string][]api.HistoryMessage{
			"1": {{MessageID: "10", Role: "USER", Content: "из первого"}},
			"2": {{MessageID: "20", Role: "USER", Content: "из второго"}},
		},
	}
	h := newHarness(t, backend)
	h.drain(h.m.loadChats())
	require.Len(t, h.m.state.Chats, 2)

	h.update(keyMsg("tab"))
	assert.Equal(t, focusSidebar, h.m.focus)

	h.update(keyMsg("enter"))
	assert.Equal(t, "1", h.m.state.ActiveChatID)
	assert.Equal(t, focusInput, h.m.focus)

	h.update(keyMsg("tab"))
	h.update(keyMsg("r"))
	assert.Equal(t, "1", h.m.renameID)
	assert.Equal(t, "Первый", h.m.input.Value())
	h.typeText("Ипотека")
	h.update(keyMsg("enter"))
	assert.Empty(t, h.m.renameID)
	assert.Equal(t, "Ипотека", h.m.state.Chats[0].Title)

	h.update(keyMsg("tab"))
	h.update(keyMsg("d"))
	assert.Equal(t, "2", h.m.state.ActiveChatID)
	require.Len(t, h.m.state.Messages, 1)
	assert.Equal(t, "из второго", h.m.state.Messages[0].Text)
}

func TestRenameCanBeCancelled(t *testing.T) {
	h := newHarness(t, &fakeBackend{chats: []api.Chat{{ID: "1", Title: "Первый"}}})
	h.drain(h.m.loadChats())

	h.update(keyMsg("tab"))
	h.update(keyMsg("r"))
	h.update(keyMsg("esc"))

	assert.Empty(t, h.m.renameID)
	assert.Empty(t, h.m.input.Value())
	assert.Equal(t, "Первый", h.m.ctrl.State().Chats[0].Title)
}

func TestNewChatKey(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	h.update(keyMsg("ctrl+n"))

	assert.Equal(t, "new", h.m.state.ActiveChatID)
	require.Len(t, h.m.state.Chats, 1)
	assert.Equal(t, chat.DefaultChatTitle, h.m.state.Chats[0].Title)
}

func TestSlashCommands(t *testing.T) {
	h := newHarness(t, &fakeBackend{reply: "Смотрите [статью](https://x.test/a) и [вторую](https://x.test/b)"})
	h.typeText("вопрос")
	h.update(keyMsg("enter"))

	h.typeText("/open 2")
	h.update(keyMsg("enter"))
	assert.Equal(t, []string{"https://x.test/b"}, h.opened)

	h.typeText("/open")
	h.update(keyMsg("enter"))
	assert.Equal(t, []string{"https://x.test/b", "https://x.test/a"}, h.opened)

	h.typeText("/open 9")
	h.update(keyMsg("enter"))
	assert.Len(t, h.opened, 2)
	assert.True(t, h.m.noticeError)

	h.typeText("/copy")
	h.update(keyMsg("enter"))
	require.Len(t, h.copied, 1)
	assert.Contains(t, h.copied[0], "[статью](https://x.test/a)")

	h.typeText("/rename Путешествия")
	h.update(keyMsg("enter"))
	assert.Equal(t, "Путешествия", h.m.state.Chats[0].Title)

	h.typeText("/help")
	h.update(keyMsg("enter"))
	assert.Contains(t, h.m.notice, "/open [N]")

	h.typeText("/bogus")
	h.update(keyMsg("enter"))
	assert.Contains(t, h.m.notice, "Unknown command /bogus")
	assert.Empty(t, h.backend.sent[1:], "commands are never sent to the assistant")

	h.typeText("/delete")
	h.update(keyMsg("enter"))
	assert.Empty(t, h.m.state.ActiveChatID)
	assert.True(t, h.m.welcomeVisible())
}

func TestOpenRefusesUnsafeLinks(t *testing.T) {
	h := newHarness(t, &fakeBackend{reply: "[тут](file:///etc/passwd)"})
	h.typeText("вопрос")
	h.update(keyMsg("enter"))

	h.typeText("/open 1")
	h.update(keyMsg("enter"))

	assert.Empty(t, h.opened)
	assert.True(t, h.m.noticeError)
}

func TestQuit(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	_, cmd := h.m.Update(keyMsg("ctrl+c"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	h.typeText("/quit")
	_, cmd = h.m.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestSidebarToggle(t *testing.T) {
	h := newHarness(t, &fakeBackend{})
	wide := h.m.viewport.Width

	h.update(keyMsg("ctrl+b"))

	assert.False(t, h.m.showSidebar)
	assert.Greater(t, h.m.viewport.Width, wide)
}
