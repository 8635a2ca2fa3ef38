package chat

import (
	"path"
	"strings"
)

// Sender identifies who authored a log entry.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Render tells the view how to lay out a message's text.
type Render string

const (
	RenderPlain     Render = "plain"
	RenderMultiline Render = "multiline" // line breaks preserved verbatim
)

// MediaKind is derived from a locator's shape.
type MediaKind string

const (
	MediaTableImage   MediaKind = "table-image"
	MediaChartImage   MediaKind = "chart-image"
	MediaDiagramImage MediaKind = "diagram-image"
	MediaVideo        MediaKind = "video"
)

// DataExtension is the extension of the raw tabular text backing a table image.
const DataExtension = ".txt"

// MediaRef is an opaque locator plus its derived kind.
type MediaRef struct {
	URL  string    `json:"url"`
	Kind MediaKind `json:"kind"`
}

// Message is one dialogue entry. Text is always set, possibly empty, so the
// log renders as plain text when media cannot be shown.
type Message struct {
	ID     string    `json:"id"`
	Sender Sender    `json:"sender"`
	Text   string    `json:"text"`
	Render Render    `json:"render"`
	Media  *MediaRef `json:"media,omitempty"`
	// Aux is a companion locator; for table images it points at the raw table text.
	Aux string `json:"aux,omitempty"`
}

// IsUser reports whether the message was authored by the user.
func (m Message) IsUser() bool {
	return m.Sender == SenderUser
}

// HasMedia reports whether the message carries media of the given kind.
func (m Message) HasMedia(kind MediaKind) bool {
	return m.Media != nil && m.Media.Kind == kind
}

// UserText builds a user-authored message.
func UserText(text string) Message {
	return Message{Sender: SenderUser, Text: text, Render: renderFor(text)}
}

// BotText builds a bot message, flagging multi-line text for verbatim rendering.
func BotText(text string) Message {
	return Message{Sender: SenderBot, Text: text, Render: renderFor(text)}
}

// BotMedia builds a bot message carrying a locator whose kind is derived from its shape.
func BotMedia(text, url string) Message {
	msg := BotText(text)
	msg.Media = &MediaRef{URL: url, Kind: KindOf(url)}
	return msg
}

// BotMediaOf builds a bot message whose media kind is known from context.
func BotMediaOf(text, url string, kind MediaKind) Message {
	msg := BotText(text)
	msg.Media = &MediaRef{URL: url, Kind: kind}
	return msg
}

// TableImage builds the message for a server-rendered table image.
func TableImage(imageURL string) Message {
	return Message{
		Sender: SenderBot,
		Text:   "Table: " + imageURL,
		Render: RenderPlain,
		Media:  &MediaRef{URL: imageURL, Kind: MediaTableImage},
		Aux:    DataLocator(imageURL),
	}
}

func renderFor(text string) Render {
	if strings.Contains(text, "\n") {
		return RenderMultiline
	}
	return RenderPlain
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mov":  true,
}

// KindOf derives a media kind from a locator.
func KindOf(url string) MediaKind {
	p := stripQuery(url)
	base := strings.ToLower(path.Base(p))
	if videoExtensions[strings.ToLower(path.Ext(base))] {
		return MediaVideo
	}
	if strings.HasPrefix(base, "table") || strings.Contains(strings.ToLower(p), "/tables/") {
		return MediaTableImage
	}
	if strings.Contains(base, "erd") {
		return MediaDiagramImage
	}
	return MediaChartImage
}

// DataLocator swaps the image extension for the table text extension.
// A locator without an extension gets one appended.
func DataLocator(imageURL string) string {
	p := stripQuery(imageURL)
	ext := path.Ext(p)
	if ext == "" {
		return p + DataExtension
	}
	return strings.TrimSuffix(p, ext) + DataExtension
}

func stripQuery(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}
