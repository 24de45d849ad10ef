package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tjchat/api"
	"tjchat/chat"
	"tjchat/config"
	"tjchat/events"
	"tjchat/logging"
	"tjchat/paths"
	"tjchat/session"
	"tjchat/tui"
)

// app is what every command runs against. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	baseURL string
	verbose bool

	paths   *paths.Paths
	config  *config.Config
	logger  *zap.Logger
	store   *session.Store
	session *session.Context
	client  *api.Client
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "tjchat",
		Short: "tjchat is a terminal client for the Т-Ж assistant",
		Long: `tjchat is a terminal client for the Т-Ж assistant, which answers questions
from the journal's articles. Run it without arguments to open the chat.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractive(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "API root, e.g. http://localhost:8000/api")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newVerifyCmd(a),
		newWhoamiCmd(a),
		newChatsCmd(a),
		newAskCmd(a),
		newExportCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

func (a *app) setup() error {
	p, err := paths.New()
	if err != nil {
		return err
	}
	if err := p.Ensure(); err != nil {
		return err
	}
	a.paths = p

	cfg, err := config.LoadConfig(p.ConfigPath())
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if a.baseURL != "" {
		if err := cfg.Set("base_url", a.baseURL); err != nil {
			return fmt.Errorf("invalid --base-url: %w", err)
		}
	}
	a.config = cfg

	logger, err := logging.New(logging.Options{
		Path:    p.LogPath(),
		Level:   cfg.LogLevel,
		Verbose: a.verbose,
	})
	if err != nil {
		return err
	}
	a.logger = logger

	a.store = session.NewStore(p.SessionPath())
	sess, err := a.store.Load()
	switch {
	case errors.Is(err, session.ErrNotLoggedIn):
	case err != nil:
		// A damaged session file only means logging in again.
		a.logger.Warn("ignoring unreadable session", zap.Error(err))
	default:
		a.session = sess
	}

	a.client = a.newClient()
	return nil
}

func (a *app) newClient() *api.Client {
	return api.NewClient(a.config.BaseURL,
		api.WithTimeout(time.Duration(a.config.HTTPTimeout)*time.Second),
		api.WithTokenSource(a.session),
		api.WithLogger(a.logger.Named("api")),
	)
}

// requireSession fails unless a user is logged in.
func (a *app) requireSession() error {
	if !a.session.Authenticated() {
		return session.ErrNotLoggedIn
	}
	return nil
}

func (a *app) authenticator() *session.Authenticator {
	return session.NewAuthenticator(a.client, a.store, a.logger.Named("auth"))
}

func (a *app) controller(opts ...chat.Option) *chat.Controller {
	base := []chat.Option{
		chat.WithLogger(a.logger.Named("chat")),
		chat.WithHistoryLimit(a.config.HistoryLimit),
	}
	return chat.NewController(a.client, append(base, opts...)...)
}

func (a *app) runInteractive(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}

	bus := events.NewEventBus(a.logger.Named("events"))
	defer bus.Close()

	a.logger.Info("starting chat", zap.String("base_url", a.config.BaseURL))
	err := tui.StartTUI(ctx, tui.Options{
		Controller: a.controller(chat.WithPublisher(bus)),
		Bus:        bus,
		Email:      a.session.Email,
		Hyperlinks: a.config.Hyperlinks,
		Theme:      a.config.Theme,
		Logger:     a.logger.Named("tui"),
	})
	if err != nil {
		return fmt.Errorf("error starting TUI: %w", err)
	}
	return nil
}

// userError carries the line shown to the user while keeping the cause
// reachable through errors.Is and errors.As.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

func describe(prefix string, err error) error {
	return &userError{msg: prefix + ": " + api.Message(err), err: err}
}
