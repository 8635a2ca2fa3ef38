package backend

import "kydx-console/chat"

// HistoryEntry is one log message in the shape the backend reads.
type HistoryEntry struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Image  string `json:"image,omitempty"`
}

// History converts a log into wire entries.
func History(log []chat.Message) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(log))
	for _, m := range log {
		entry := HistoryEntry{Sender: string(m.Sender), Text: m.Text}
		if m.Media != nil {
			entry.Image = m.Media.URL
		}
		out = append(out, entry)
	}
	return out
}

type introResponse struct {
	Message string `json:"message"`
}

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type historyRequest struct {
	History []HistoryEntry `json:"history"`
}

type questionsResponse struct {
	Questions []string `json:"questions"`
}

type completeRequest struct {
	History []HistoryEntry `json:"history"`
	Answers []string       `json:"answers"`
}

type vizCompleteResponse struct {
	ChartURL *string `json:"chart_url"`
}

type infographCompleteResponse struct {
	ImageURL *string `json:"image_url"`
}

type summarizeRequest struct {
	History []HistoryEntry `json:"history"`
	Visuals []string       `json:"visuals"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// MyData is the data overview: a summary plus an entity-relationship diagram.
type MyData struct {
	Summary string `json:"summary"`
	ERDURL  string `json:"erd_url"`
	ERDDesc string `json:"erd_desc"`
}

type directorsCutResponse struct {
	VideoURL *string `json:"video_url"`
}

type dbInfoResponse struct {
	Size int64 `json:"size"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}
