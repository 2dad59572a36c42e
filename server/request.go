package server

import (
	"strings"

	"github.com/ManupaDev/multi-agent-travel-planner/graph"
	"github.com/ManupaDev/multi-agent-travel-planner/travel"
)

// UIPart is one part of a UI message. Only text parts carry user input.
type UIPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// UIMessage is one message of the chat history sent by the UI
type UIMessage struct {
	ID    string   `json:"id,omitempty"`
	Role  string   `json:"role"`
	Parts []UIPart `json:"parts,omitempty"`
	// Content is the plain text form used by older clients
	Content string `json:"content,omitempty"`
}

// ChatRequest is the body of the streaming chat endpoints
type ChatRequest struct {
	// ID is the conversation id, used as the thread id unless ThreadID is set
	ID       string      `json:"id"`
	Messages []UIMessage `json:"messages"`
	Trigger  string      `json:"trigger,omitempty"`
	ThreadID string      `json:"thread_id,omitempty"`
	// Resume delivers the user text as the answer to a pending question
	Resume bool `json:"resume,omitempty"`
}

// Thread returns the thread id of the request
func (r ChatRequest) Thread() string {
	if r.ThreadID != "" {
		return r.ThreadID
	}
	return r.ID
}

// UserText returns the text of the last user message
func (r ChatRequest) UserText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		m := r.Messages[i]
		if m.Role != "user" {
			continue
		}
		var texts []string
		for _, p := range m.Parts {
			if p.Type == "text" && p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		if len(texts) == 0 {
			return strings.TrimSpace(m.Content)
		}
		return strings.TrimSpace(strings.Join(texts, "\n"))
	}
	return ""
}

// SyncRequest is the body of the chat-sync endpoints
type SyncRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
	Resume   bool   `json:"resume"`
}

// RequirementsResponse answers /requirements/chat-sync
type RequirementsResponse struct {
	Message      string               `json:"message"`
	IsInterrupt  bool                 `json:"is_interrupt"`
	Requirements *travel.Requirements `json:"requirements"`
}

// TravelSystemResponse answers /travel-system/chat-sync
type TravelSystemResponse struct {
	Message      string               `json:"message"`
	IsInterrupt  bool                 `json:"is_interrupt"`
	Requirements *travel.Requirements `json:"requirements"`
	Itinerary    *travel.Itinerary    `json:"itinerary"`
	Bookings     *travel.Bookings     `json:"bookings"`
}

// input starts a run with message as the first user entry, or resumes the
// thread with message as the answer
func input(message string, resume bool) graph.Input {
	if resume {
		return graph.ResumeWith(message)
	}
	return graph.Start(graph.NewState(graph.UserEntry(message)))
}

// reply is the text a sync caller sees: the pending question of a suspended
// run or the last agent message
func reply(out graph.Outcome) string {
	if out.IsSuspended() {
		return out.Suspension.Text()
	}
	if e, ok := out.State.LastEntryOf(graph.RoleAgent); ok {
		return e.Text
	}
	return ""
}

func field[T any](s graph.State, name string) (*T, error) {
	var v T
	ok, err := s.FieldAs(name, &v)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}
