package api

import (
	"encoding/json"
	"fmt"
)

// ID is an identifier the backend may send either as a JSON string or as a
// number.
type ID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s", data)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Chat is an entry of GET /chats.
type Chat struct {
	ID      ID     `json:"id"`
	Title   string `json:"title"`
	Created string `json:"created"`
	Updated string `json:"updated"`
}

type chatList struct {
	Items []Chat `json:"items"`
}

// HistoryMessage is an entry of GET /chat/{id}/messages.
type HistoryMessage struct {
	MessageID ID     `json:"message_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Created   string `json:"created"`
}

type history struct {
	Items []HistoryMessage `json:"items"`
}

type newChatResponse struct {
	ChatID ID `json:"chat_id"`
}

// SendRequest is the body of POST /chat. ChatID is omitted for the first
// message of a new conversation.
type SendRequest struct {
	Content string `json:"content"`
	ChatID  string `json:"chat_id,omitempty"`
}

// SendResponse is the reply to POST /chat.
type SendResponse struct {
	MessageID   ID     `json:"message_id"`
	Content     string `json:"content"`
	Timestamp   string `json:"timestamp"`
	ChatID      ID     `json:"chat_id"`
	ChatCreated bool   `json:"chat_created"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
