package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"

	"tjchat/api"
)

func exportFixture() *fakeAPI {
	return &fakeAPI{
		chats: []api.Chat{
			{ID: "2", Title: "Ипотека", Created: "2025-01-02T10:00:00Z"},
			{ID: "1", Title: ""},
		},
		history: map[string][]api.HistoryMessage{
			"2": {
				{MessageID: "10", Role: "USER", Content: "Как взять ипотеку?", Created: "2025-01-02T10:00:00Z"},
				{MessageID: "11", Role: "ASSISTANT", Content: "## Шаги\n- **Одобрение** банка"},
			},
			"1": {},
		},
	}
}

func TestExport(t *testing.T) {
	defer goleak.VerifyNone(t)

	transcripts, err := Export(context.Background(), exportFixture(), 0)

	require.NoError(t, err)
	require.Len(t, transcripts, 2)
	assert.Equal(t, "2", transcripts[0].Chat.ID)
	assert.Equal(t, "Ипотека", transcripts[0].Chat.Title)
	assert.Equal(t, DefaultChatTitle, transcripts[1].Chat.Title)
	require.Len(t, transcripts[0].Messages, 2)
	assert.Equal(t, RoleUser, transcripts[0].Messages[0].Role)
	assert.Equal(t, RoleAssistant, transcripts[0].Messages[1].Role)
	assert.Empty(t, transcripts[1].Messages)
}

func TestExportFailsOnAnyError(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := exportFixture()
	f.historyErr = errors.New("down")
	_, err := Export(context.Background(), f, 10)
	assert.Error(t, err)

	f = exportFixture()
	f.chatsErr = errors.New("down")
	_, err = Export(context.Background(), f, 10)
	assert.Error(t, err)
}

func TestExportSkipsChatsWithoutID(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := exportFixture()
	f.chats = append(f.chats, api.Chat{ID: "", Title: "битый"})
	f.history[""] = nil
	f.historyEnter = make(chan string, 8)

	transcripts, err := Export(context.Background(), f, 0)

	require.NoError(t, err)
	require.Len(t, transcripts, 2)
	assert.Equal(t, "2", transcripts[0].Chat.ID)
	assert.Equal(t, "1", transcripts[1].Chat.ID)
	close(f.historyEnter)
	for id := range f.historyEnter {
		assert.NotEmpty(t, id, "history requested for an empty id")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"json", FormatJSON},
		{"YAML", FormatYAML},
		{"yml", FormatYAML},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

func TestWriteTranscripts(t *testing.T) {
	transcripts, err := Export(context.Background(), exportFixture(), 0)
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteTranscripts(&buf, FormatJSON, transcripts))

		var decoded []Transcript
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, transcripts[0].Messages[1].Text, decoded[0].Messages[1].Text)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteTranscripts(&buf, FormatYAML, transcripts))

		var decoded []map[string]interface{}
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		require.Len(t, decoded, 2)
		chat := decoded[0]["chat"].(map[string]interface{})
		assert.Equal(t, "Ипотека", chat["title"])
	})

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteTranscripts(&buf, FormatMarkdown, transcripts))

		out := buf.String()
		assert.Contains(t, out, "## Ипотека\n")
		assert.Contains(t, out, "**Вы** 2025-01-02 10:00\nКак взять ипотеку?\n")
		assert.Contains(t, out, "**Ассистент**\n## Шаги\n- **Одобрение** банка\n")
		assert.Contains(t, out, "## "+DefaultChatTitle+"\n")
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, WriteTranscripts(&bytes.Buffer{}, Format("csv"), transcripts))
	})
}
