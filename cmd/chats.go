package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/reflow/truncate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"tjchat/chat"
	"tjchat/tui"
)

const titleWidth = 40

func newChatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List your chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}

			ctrl := a.controller()
			if err := ctrl.LoadChats(cmd.Context()); err != nil {
				return describe("error listing chats", err)
			}

			out := cmd.OutOrStdout()
			chats := ctrl.State().Chats
			if len(chats) == 0 {
				fmt.Fprintln(out, "No chats yet.")
				fmt.Fprintln(out, "Start one with: tjchat ask QUESTION")
				return nil
			}

			for _, c := range chats {
				title := truncate.StringWithTail(tui.Sanitize(c.Title), uint(titleWidth), "…")
				updated := ""
				if !c.Updated.IsZero() {
					updated = c.Updated.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(out, "%-12s %-*s %s\n", c.ID, titleWidth, title, updated)
			}
			return nil
		},
	}
}

func newAskCmd(a *app) *cobra.Command {
	var chatID string

	cmd := &cobra.Command{
		Use:   "ask [--chat ID] QUESTION",
		Short: "Ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}

			ctx := cmd.Context()
			ctrl := a.controller()
			if chatID != "" {
				if err := ctrl.SelectChat(ctx, chatID); err != nil {
					a.logger.Debug("history unavailable for ask", zap.String("chat_id", chatID), zap.Error(err))
				}
			}

			question := strings.Join(args, " ")
			if !ctrl.SendMessage(ctx, question) {
				return fmt.Errorf("nothing to send")
			}

			state := ctrl.State()
			reply := state.Messages[len(state.Messages)-1]
			if reply.IsError {
				return fmt.Errorf("%s", reply.Text)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, tui.RenderPlain(reply.Text, outputWidth(out)))
			if chatID == "" && state.ActiveChatID != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nchat: %s\n", state.ActiveChatID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&chatID, "chat", "", "Continue the chat with this id")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every chat with its history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			f, err := chat.ParseFormat(format)
			if err != nil {
				return err
			}

			transcripts, err := chat.Export(cmd.Context(), a.client, a.config.HistoryLimit)
			if err != nil {
				return describe("export failed", err)
			}

			if output == "" || output == "-" {
				return chat.WriteTranscripts(cmd.OutOrStdout(), f, transcripts)
			}

			file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := chat.WriteTranscripts(file, f, transcripts); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d chats to %s\n", len(transcripts), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(chat.FormatMarkdown), "json, yaml or md")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output file (default stdout)")
	return cmd
}

// outputWidth is the terminal width when out is one, 0 (no wrapping)
// otherwise.
func outputWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}
