package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/muesli/reflow/truncate"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindTransport means no response was received.
	KindTransport Kind = iota + 1
	// KindStatus is a non-success status with a structured {detail} body.
	KindStatus
	// KindStatusText is a non-success status with an unstructured body.
	KindStatusText
	// KindInvalid is a success status whose payload is unusable.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindStatusText:
		return "status_text"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error is returned by every Client method that fails.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message turns any error into the single line shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.Canceled) {
		return "The request was cancelled."
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch apiErr.Kind {
	case KindTransport:
		return "Could not reach the server. Check your connection and try again."
	case KindStatus:
		return apiErr.Detail
	case KindStatusText:
		if apiErr.Detail == "" {
			return fmt.Sprintf("Server error (%d).", apiErr.Status)
		}
		return fmt.Sprintf("Server error (%d): %s", apiErr.Status, apiErr.Detail)
	case KindInvalid:
		return "Unexpected response from the server: " + apiErr.Detail
	default:
		return err.Error()
	}
}

// statusError builds the error for a non-2xx response. FastAPI sends detail
// either as a string or as a list of validation errors.
func statusError(op string, status int, body []byte) *Error {
	var structured struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &structured); err == nil && len(structured.Detail) > 0 {
		if detail := decodeDetail(structured.Detail); detail != "" {
			return &Error{Kind: KindStatus, Op: op, Status: status, Detail: detail}
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(status)
	}
	text = truncate.StringWithTail(text, 300, "...")
	return &Error{Kind: KindStatusText, Op: op, Status: status, Detail: text}
}

func decodeDetail(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		var msgs []string
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
