// Package wizard collects answers to an ordered list of questions, one user
// turn at a time. It never touches the session log: every call returns the
// next state and the bot message the caller should append.
package wizard

import (
	"errors"
	"strings"

	"kydx-console/chat"
	apperrors "kydx-console/errors"
)

// Kind names the flow a wizard belongs to.
type Kind string

const (
	Visualization Kind = "visualization"
	Infograph     Kind = "infograph"
)

var (
	// ErrEmptyQuestionSet is returned by Start when there is nothing to ask.
	ErrEmptyQuestionSet = apperrors.WrapError(apperrors.ErrEmptyResult, "empty question set")
	// ErrInactive is returned when answering a wizard that is not collecting input.
	ErrInactive = errors.New("wizard not active")
)

// State is a value; Start and SubmitAnswer never mutate their input.
//
// Invariants: 0 <= Cursor <= len(Questions), and len(Answers) == Cursor.
type State struct {
	Kind      Kind     `json:"kind"`
	Questions []string `json:"questions"`
	// Seed holds values supplied implicitly, ahead of the user's answers.
	Seed    []string `json:"seed,omitempty"`
	Answers []string `json:"answers"`
	Cursor  int      `json:"cursor"`
	Active  bool     `json:"active"`
}

// Step is the result of one submitted answer.
type Step struct {
	Next State
	// Emit is the next question as a bot message, nil when Done.
	Emit *chat.Message
	Done bool
}

// Start begins a wizard. Blank questions are dropped.
func Start(kind Kind, questions []string, seed []string) (State, error) {
	qs := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			qs = append(qs, q)
		}
	}
	if len(qs) == 0 {
		return State{}, ErrEmptyQuestionSet
	}

	var sd []string
	for _, s := range seed {
		if s != "" {
			sd = append(sd, s)
		}
	}

	return State{
		Kind:      kind,
		Questions: qs,
		Seed:      sd,
		Answers:   []string{},
		Active:    true,
	}, nil
}

// Current returns the question awaiting an answer.
func (s State) Current() (string, bool) {
	if !s.Active || s.Cursor >= len(s.Questions) {
		return "", false
	}
	return s.Questions[s.Cursor], true
}

// Prompt is the current question as a bot message.
func (s State) Prompt() (chat.Message, bool) {
	q, ok := s.Current()
	if !ok {
		return chat.Message{}, false
	}
	return chat.BotText(q), true
}

// Remaining is the number of questions still unanswered.
func (s State) Remaining() int {
	return len(s.Questions) - s.Cursor
}

// AllAnswers returns the seed values followed by the user's answers, the
// sequence handed to the completion action.
func (s State) AllAnswers() []string {
	out := make([]string, 0, len(s.Seed)+len(s.Answers))
	out = append(out, s.Seed...)
	return append(out, s.Answers...)
}

// SubmitAnswer records answer and advances the cursor by exactly one.
func SubmitAnswer(s State, answer string) (Step, error) {
	if !s.Active || s.Cursor >= len(s.Questions) {
		return Step{Next: s}, ErrInactive
	}

	next := s
	next.Answers = append(append(make([]string, 0, len(s.Answers)+1), s.Answers...), answer)
	next.Cursor = s.Cursor + 1

	if next.Cursor < len(next.Questions) {
		msg := chat.BotText(next.Questions[next.Cursor])
		return Step{Next: next, Emit: &msg}, nil
	}

	next.Active = false
	return Step{Next: next, Done: true}, nil
}
