package chat

import "strings"

// TablePrefix marks a reply whose first line is a pre-rendered table image locator.
const TablePrefix = "TABLE:"

// Classified is the outcome of classifying one raw backend reply.
type Classified struct {
	Messages []Message
	// Table is set when the reply used the table convention.
	Table *MediaRef
	// DataRef is the companion raw-table locator of Table.
	DataRef string
}

// IsTable reports whether the reply carried a rendered table.
func (c Classified) IsTable() bool {
	return c.Table != nil
}

// Classify decides how a raw reply must be rendered. It is pure: the same
// input always yields the same messages, without IDs.
//
// Rules, in priority order: the TABLE: prefix, then any line break
// (multiline block, rendered verbatim), then a single plain line.
func Classify(raw string) Classified {
	if rest, ok := strings.CutPrefix(raw, TablePrefix); ok {
		locator, caption, _ := strings.Cut(rest, "\n")
		locator = strings.TrimSpace(locator)
		caption = strings.TrimSpace(caption)
		if locator != "" {
			table := TableImage(locator)
			out := Classified{
				Messages: []Message{table},
				Table:    table.Media,
				DataRef:  table.Aux,
			}
			if caption != "" {
				out.Messages = append(out.Messages, BotText(caption))
			}
			return out
		}
		// No locator: nothing to show as an image, keep the text.
		raw = caption
	}

	if strings.Contains(raw, "\n") {
		return Classified{Messages: []Message{{Sender: SenderBot, Text: raw, Render: RenderMultiline}}}
	}
	return Classified{Messages: []Message{{Sender: SenderBot, Text: raw, Render: RenderPlain}}}
}
