package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"tjchat/chat"
	"tjchat/markdown"
)

type slashCommand struct {
	name        string
	usage       string
	description string
}

var slashCommands = []slashCommand{
	{name: "/new", description: "Start a new chat"},
	{name: "/rename", usage: "TITLE", description: "Rename the active chat"},
	{name: "/delete", description: "Delete the active chat"},
	{name: "/open", usage: "[N]", description: "Open link N of the last reply in the browser"},
	{name: "/copy", description: "Copy the last reply to the clipboard"},
	{name: "/help", description: "Show this help"},
	{name: "/quit", description: "Exit"},
}

func helpText() string {
	parts := make([]string, 0, len(slashCommands))
	for _, c := range slashCommands {
		name := c.name
		if c.usage != "" {
			name += " " + c.usage
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, " · ")
}

// runCommand executes a slash command line.
func (m *model) runCommand(line string) tea.Cmd {
	fields := strings.Fields(line)
	name, args := fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch name {
	case "/new":
		return m.createChat()

	case "/rename":
		id := m.state.ActiveChatID
		if id == "" {
			m.setNotice("No active chat to rename", true)
			return nil
		}
		if args == "" {
			if c, ok := m.state.ActiveChat(); ok {
				m.beginRename(c)
			}
			return nil
		}
		if err := m.ctrl.RenameChat(id, args); err != nil {
			m.setNotice(err.Error(), true)
			return nil
		}
		m.refresh()
		return nil

	case "/delete":
		id := m.state.ActiveChatID
		if id == "" {
			m.setNotice("No active chat to delete", true)
			return nil
		}
		return m.deleteChat(id)

	case "/open":
		m.openLink(args)
		return nil

	case "/copy":
		reply, ok := lastReply(m.state.Messages)
		if !ok {
			m.setNotice("Nothing to copy yet", true)
			return nil
		}
		if m.copy != nil {
			m.copy(reply.Text)
		}
		m.setNotice("Copied the last reply", false)
		return nil

	case "/help":
		m.setNotice(helpText(), false)
		return nil

	case "/quit", "/exit":
		return tea.Quit

	default:
		m.setNotice(fmt.Sprintf("Unknown command %s. Type /help for the list.", name), true)
		return nil
	}
}

func (m *model) openLink(arg string) {
	reply, ok := lastReply(m.state.Messages)
	if !ok {
		m.setNotice("No reply with links yet", true)
		return
	}
	links := markdown.Links(markdown.Parse(reply.Text))
	if len(links) == 0 {
		m.setNotice("The last reply has no links", true)
		return
	}

	n := 1
	if arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 1 || v > len(links) {
			m.setNotice(fmt.Sprintf("Pick a link between 1 and %d", len(links)), true)
			return
		}
		n = v
	}

	link := links[n-1]
	if !SafeLink(link.Href) {
		m.logger.Warn("refusing to open link", zap.String("href", link.Href))
		m.setNotice("Only http and https links can be opened", true)
		return
	}
	if m.openURL == nil {
		m.setNotice(link.Href, false)
		return
	}
	if err := m.openURL(link.Href); err != nil {
		m.logger.Warn("failed to open browser", zap.String("href", link.Href), zap.Error(err))
		m.setNotice("Could not open the browser: "+link.Href, true)
		return
	}
	m.setNotice("Opened "+Sanitize(link.Label), false)
}

// lastReply returns the newest assistant message that is not an error.
func lastReply(messages []chat.Message) (chat.Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleAssistant && !messages[i].IsError {
			return messages[i], true
		}
	}
	return chat.Message{}, false
}
