package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const exportConcurrency = 4

// Transcript is a chat together with its recent history.
type Transcript struct {
	Chat     Chat      `json:"chat" yaml:"chat"`
	Messages []Message `json:"messages" yaml:"messages"`
}

// Export fetches every chat and up to limit messages of each, keeping the
// server's chat order. Unlike the interactive view, any failure aborts.
func Export(ctx context.Context, backend API, limit int) ([]Transcript, error) {
	if limit <= 0 {
		limit = HistoryLimit
	}

	items, err := backend.ListChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	kept := items[:0:0]
	for _, item := range items {
		if item.ID != "" {
			kept = append(kept, item)
		}
	}
	items = kept

	transcripts := make([]Transcript, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(exportConcurrency)

	for i, item := range items {
		i, item := i, item
		transcripts[i].Chat = Chat{
			ID:      item.ID.String(),
			Title:   item.Title,
			Created: parseTime(item.Created),
			Updated: parseTime(item.Updated),
		}
		if transcripts[i].Chat.Title == "" {
			transcripts[i].Chat.Title = DefaultChatTitle
		}

		g.Go(func() error {
			history, err := backend.ListMessages(ctx, item.ID.String(), limit)
			if err != nil {
				return fmt.Errorf("failed to load chat %s: %w", item.ID, err)
			}

			messages := make([]Message, 0, len(history))
			for _, h := range history {
				messages = append(messages, Message{
					ID:        h.MessageID.String(),
					Role:      roleFrom(h.Role),
					Text:      h.Content,
					Timestamp: parseTime(h.Created),
				})
			}

			transcripts[i].Messages = messages
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return transcripts, nil
}

// Format is an export encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "md"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatJSON, FormatYAML, FormatMarkdown:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json, yaml or md)", name)
	}
}

// WriteTranscripts encodes transcripts to w.
func WriteTranscripts(w io.Writer, format Format, transcripts []Transcript) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(transcripts)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(transcripts); err != nil {
			return err
		}
		return enc.Close()
	case FormatMarkdown:
		return writeMarkdown(w, transcripts)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// writeMarkdown emits the same dialect the assistant answers in, so an
// exported reply reads as it did in the client.
func writeMarkdown(w io.Writer, transcripts []Transcript) error {
	var b strings.Builder
	for i, t := range transcripts {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n\n", t.Chat.Title)
		for _, m := range t.Messages {
			author := "Ассистент"
			if m.Role == RoleUser {
				author = "Вы"
			}
			if m.Timestamp.IsZero() {
				fmt.Fprintf(&b, "**%s**\n", author)
			} else {
				fmt.Fprintf(&b, "**%s** %s\n", author, m.Timestamp.Format("2006-01-02 15:04"))
			}
			b.WriteString(strings.TrimSpace(m.Text))
			b.WriteString("\n\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
