package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/mattn/go-runewidth"

	"tjchat/chat"
)

const sidebarWidth = 30

// chatItem is a chat in the sidebar.
type chatItem struct {
	chat  chat.Chat
	width int
}

func (i chatItem) Title() string {
	return runewidth.Truncate(Sanitize(i.chat.Title), i.width, "…")
}

func (i chatItem) Description() string {
	if i.chat.Updated.IsZero() {
		return ""
	}
	return i.chat.Updated.Local().Format("02.01.2006 15:04")
}

func (i chatItem) FilterValue() string { return i.chat.Title }

func newChatList() list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, sidebarWidth, 10)
	l.Title = "Чаты"
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = titleStyle
	return l
}

// chatItems converts chats for a sidebar whose text area is width cells wide.
func chatItems(chats []chat.Chat, width int) []list.Item {
	items := make([]list.Item, 0, len(chats))
	for _, c := range chats {
		items = append(items, chatItem{chat: c, width: width})
	}
	return items
}
