package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"tjchat/api"
	"tjchat/chat"
	"tjchat/events"
)

const (
	appTitle         = "Ассистент Т-Ж"
	inputPlaceholder = "Спросите что-нибудь… (/help: команды)"
	renamePrompt     = "Новое название чата"
	inputHeight      = 3
)

// suggestions are offered on the welcome screen; 1-4 and Enter send them.
var suggestions = []string{
	"Как взять ипотеку?",
	"Налоги для самозанятых",
	"Как экономить на путешествиях?",
	"Страхование автомобиля",
}

type focus int

const (
	focusInput focus = iota
	focusSidebar
)

type chatsLoadedMsg struct{ err error }

type historyLoadedMsg struct {
	id  string
	err error
}

type chatCreatedMsg struct {
	id  string
	err error
}

type chatDeletedMsg struct{ err error }

type sendFinishedMsg struct{}

type eventMsg struct{ event events.Event }

type model struct {
	ctx      context.Context
	ctrl     *chat.Controller
	logger   *zap.Logger
	email    string
	renderer Renderer
	openURL  func(string) error
	copy     func(string)

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	chats    list.Model

	state       chat.State
	focus       focus
	renameID    string
	showSidebar bool
	notice      string
	noticeError bool
	width       int
	height      int
	rendered    string
}

func newModel(ctx context.Context, opts Options) *model {
	input := textarea.New()
	input.Placeholder = inputPlaceholder
	input.ShowLineNumbers = false
	input.Prompt = ""
	input.CharLimit = 0
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	input.Focus()
	input.Cursor.SetMode(cursor.CursorStatic)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &model{
		ctx:         ctx,
		ctrl:        opts.Controller,
		logger:      logger,
		email:       opts.Email,
		renderer:    Renderer{Width: 80, Hyperlinks: opts.Hyperlinks},
		openURL:     opts.OpenURL,
		copy:        opts.Copy,
		input:       input,
		viewport:    viewport.New(80, 20),
		spinner:     sp,
		chats:       newChatList(),
		showSidebar: true,
	}
	m.refresh()
	return m
}

func (m *model) Init() tea.Cmd {
	return m.loadChats()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case chatsLoadedMsg:
		// A failed list load shows the empty state; the controller logged it.
		m.refresh()
		return m, nil

	case historyLoadedMsg:
		m.refresh()
		return m, nil

	case chatCreatedMsg:
		if msg.err != nil {
			m.setNotice(api.Message(msg.err), true)
		}
		m.refresh()
		return m, nil

	case chatDeletedMsg:
		m.refresh()
		return m, nil

	case sendFinishedMsg:
		m.refresh()
		return m, nil

	case eventMsg:
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.state.Pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+n":
		return m, m.createChat()
	case "ctrl+b":
		m.showSidebar = !m.showSidebar
		if !m.showSidebar {
			m.setFocus(focusInput)
		}
		m.layout()
		m.refresh()
		return m, nil
	case "tab":
		if m.showSidebar && m.renameID == "" {
			if m.focus == focusInput {
				m.setFocus(focusSidebar)
			} else {
				m.setFocus(focusInput)
			}
		}
		return m, nil
	case "esc":
		if m.renameID != "" {
			m.endRename()
		}
		m.notice = ""
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}

	if msg.Type == tea.KeyEnter {
		return m, m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	selected, _ := m.chats.SelectedItem().(chatItem)

	switch msg.String() {
	case "enter":
		if selected.chat.ID == "" {
			return m, nil
		}
		m.setFocus(focusInput)
		return m, m.selectChat(selected.chat.ID)
	case "r":
		if selected.chat.ID != "" {
			m.beginRename(selected.chat)
		}
		return m, nil
	case "d":
		if selected.chat.ID != "" {
			return m, m.deleteChat(selected.chat.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.chats, cmd = m.chats.Update(msg)
	return m, cmd
}

// suggestionIndex maps input that is exactly one of "1".."4" to a
// suggestion.
func suggestionIndex(text string) int {
	text = strings.TrimSpace(text)
	if len(text) != 1 || text[0] < '1' || text[0] > '0'+byte(len(suggestions)) {
		return -1
	}
	return int(text[0] - '1')
}

// submit handles Enter in the input: a rename, a slash command or a message.
func (m *model) submit() tea.Cmd {
	text := m.input.Value()

	if m.renameID != "" {
		if err := m.ctrl.RenameChat(m.renameID, text); err != nil {
			m.setNotice(err.Error(), true)
			return nil
		}
		m.endRename()
		m.refresh()
		return nil
	}

	if trimmed := strings.TrimSpace(text); strings.HasPrefix(trimmed, "/") {
		m.input.Reset()
		return m.runCommand(trimmed)
	}

	if m.welcomeVisible() {
		if i := suggestionIndex(text); i >= 0 {
			return m.send(suggestions[i])
		}
	}
	return m.send(text)
}

func (m *model) send(text string) tea.Cmd {
	out, ok := m.ctrl.BeginSend(text)
	if !ok {
		return nil
	}
	m.input.Reset()
	m.notice = ""
	m.refresh()

	ctx, ctrl := m.ctx, m.ctrl
	return tea.Batch(
		func() tea.Msg {
			ctrl.FinishSend(ctx, out)
			return sendFinishedMsg{}
		},
		m.spinner.Tick,
	)
}

func (m *model) loadChats() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return chatsLoadedMsg{err: ctrl.LoadChats(ctx)}
	}
}

func (m *model) selectChat(id string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return historyLoadedMsg{id: id, err: ctrl.SelectChat(ctx, id)}
	}
}

func (m *model) createChat() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		id, err := ctrl.CreateChat(ctx)
		return chatCreatedMsg{id: id, err: err}
	}
}

func (m *model) deleteChat(id string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return chatDeletedMsg{err: ctrl.DeleteChat(ctx, id)}
	}
}

func (m *model) beginRename(c chat.Chat) {
	m.renameID = c.ID
	m.setFocus(focusInput)
	m.input.SetValue(c.Title)
	m.input.Placeholder = renamePrompt
}

func (m *model) endRename() {
	m.renameID = ""
	m.input.Reset()
	m.input.Placeholder = inputPlaceholder
}

func (m *model) setFocus(f focus) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *model) setNotice(text string, isError bool) {
	m.notice = text
	m.noticeError = isError
}

func (m *model) welcomeVisible() bool {
	return m.state.ActiveChatID == "" && len(m.state.Messages) == 0
}

// refresh pulls the controller state into the widgets.
func (m *model) refresh() {
	m.state = m.ctrl.State()

	m.chats.SetItems(chatItems(m.state.Chats, sidebarWidth-4))
	for i, c := range m.state.Chats {
		if c.ID == m.state.ActiveChatID {
			m.chats.Select(i)
			break
		}
	}

	parts := make([]string, 0, len(m.state.Messages))
	for _, msg := range m.state.Messages {
		parts = append(parts, m.renderer.Message(msg))
	}
	content := strings.Join(parts, "\n\n")
	if content != m.rendered {
		m.rendered = content
		m.viewport.SetContent(content)
		m.viewport.GotoBottom()
	}
}

func (m *model) layout() {
	mainWidth := m.width
	if m.showSidebar {
		mainWidth -= sidebarWidth + 1
	}
	if mainWidth < 20 {
		mainWidth = 20
	}

	bodyHeight := m.height - 1 - 1 - (inputHeight + 2)
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	m.viewport.Width = mainWidth
	m.viewport.Height = bodyHeight
	m.chats.SetSize(sidebarWidth, bodyHeight)
	m.input.SetWidth(mainWidth - 4)
	m.renderer.Width = mainWidth - 2
	// Width changed, so the cached rendering is stale.
	m.rendered = ""
}

func (m *model) View() string {
	mainWidth := m.viewport.Width

	var body string
	if m.welcomeVisible() {
		body = lipgloss.Place(mainWidth, m.viewport.Height, lipgloss.Center, lipgloss.Center, m.welcomeView())
	} else {
		body = m.viewport.View()
	}
	if m.showSidebar {
		style := sidebarStyle
		if m.focus == focusSidebar {
			style = sidebarFocusedStyle
		}
		sidebar := style.Height(m.viewport.Height).Render(m.chats.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, body)
	}

	box := inputStyle
	if m.focus == focusInput {
		box = inputFocusedStyle
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		body,
		m.statusView(),
		box.Render(m.input.View()),
	)
}

func (m *model) headerView() string {
	title := titleStyle.Render(appTitle)

	var info []string
	if c, ok := m.state.ActiveChat(); ok {
		info = append(info, Sanitize(c.Title))
	}
	if m.email != "" {
		info = append(info, m.email)
	}
	text := strings.Join(info, " · ")

	room := m.width - lipgloss.Width(title) - 2
	if room < 0 {
		room = 0
	}
	return title + headerInfoStyle.Render(runewidth.Truncate(text, room, "…"))
}

func (m *model) statusView() string {
	switch {
	case m.state.Pending:
		return m.spinner.View() + statusStyle.Render(" Ассистент печатает…")
	case m.renameID != "":
		return statusStyle.Render("Enter: save title · Esc: cancel")
	case m.notice != "":
		if m.noticeError {
			return noticeStyle.Render(m.notice)
		}
		return statusStyle.Render(m.notice)
	case m.focus == focusSidebar:
		return statusStyle.Render("↑/↓: move · Enter: open · r: rename · d: delete · Tab: back")
	default:
		return statusStyle.Render("Enter: send · Ctrl+N: new chat · Tab: chats · Ctrl+B: sidebar · Ctrl+C: quit")
	}
}

func (m *model) welcomeView() string {
	lines := []string{
		welcomeTitleStyle.Render(appTitle),
		"Задайте вопрос о деньгах, налогах, путешествиях и не только.",
		"Или введите номер вопроса и нажмите Enter:",
		"",
	}
	for i, s := range suggestions {
		lines = append(lines, suggestionStyle.Render(fmt.Sprintf("%d  %s", i+1, s)))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}
