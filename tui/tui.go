// Package tui is the interactive terminal client.
package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/pkg/browser"
	"go.uber.org/zap"

	"tjchat/chat"
	"tjchat/events"
)

// Options configures the interactive client.
type Options struct {
	Controller *chat.Controller
	Bus        *events.EventBus // controller events are forwarded into the program
	Email      string
	Hyperlinks bool
	Theme      string
	Logger     *zap.Logger

	// OpenURL and Copy default to the system browser and OSC 52.
	OpenURL func(string) error
	Copy    func(string)
}

// StartTUI runs the client until the user quits.
func StartTUI(ctx context.Context, opts Options) error {
	applyTheme(opts.Theme)

	if opts.OpenURL == nil {
		// The launched browser must not write over the UI.
		browser.Stdout = io.Discard
		browser.Stderr = io.Discard
		opts.OpenURL = browser.OpenURL
	}
	if opts.Copy == nil {
		opts.Copy = termenv.Copy
	}

	m := newModel(ctx, opts)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	if opts.Bus != nil {
		opts.Bus.SubscribeAll(func(e events.Event) {
			p.Send(eventMsg{event: e})
		})
	}

	_, err := p.Run()
	return err
}
