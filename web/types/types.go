package types

import (
	"kydx-console/chat"
	"kydx-console/session"
)

// MessageRequest is the body of POST /api/messages.
type MessageRequest struct {
	Text string `json:"text" form:"text"`
}

// AffordanceView is one offered action with its display label.
type AffordanceView struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// WizardView describes the active wizard for the client.
type WizardView struct {
	Kind      string `json:"kind"`
	Prompt    string `json:"prompt"`
	Remaining int    `json:"remaining"`
}

// SessionResponse is the client-facing copy of a session snapshot.
type SessionResponse struct {
	ID          string           `json:"id"`
	Messages    []chat.Message   `json:"messages"`
	Affordances []AffordanceView `json:"affordances"`
	Wizard      *WizardView      `json:"wizard,omitempty"`
	Busy        bool             `json:"busy"`
}

// ActionResponse reports what a submit or action appended, plus the
// refreshed session.
type ActionResponse struct {
	Messages []chat.Message       `json:"messages"`
	View     *session.ViewRequest `json:"view,omitempty"`
	Session  SessionResponse      `json:"session"`
}
