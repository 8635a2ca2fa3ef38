package format

import (
	"strings"

	"kydx-console/session"
)

// CompactWidth is the viewport width, in CSS pixels or terminal columns,
// below which affordance labels are shortened.
const CompactWidth = 480

var compactLabels = map[session.Affordance]string{
	session.MyData:       "Data",
	session.Visualize:    "Chart",
	session.Infograph:    "Info",
	session.Summarize:    "Sum",
	session.DirectorsCut: "Cut",
}

// AffordanceLabel picks the label for a at the given viewport width. A
// non-positive width means unknown and gets the full label.
func AffordanceLabel(a session.Affordance, width int) string {
	if width > 0 && width < CompactWidth {
		if l, ok := compactLabels[a]; ok {
			return l
		}
	}
	return a.Label()
}

// AffordanceLabels maps every offered action in as to its label.
func AffordanceLabels(as session.Affordances, width int) map[session.Affordance]string {
	out := make(map[session.Affordance]string)
	for _, a := range as.List() {
		out[a] = AffordanceLabel(a, width)
	}
	return out
}

var quoteReplacer = strings.NewReplacer(
	"“", "\"",
	"”", "\"",
	"‘", "'",
	"’", "'",
)

// PreprocessBotText normalizes curly quotes in backend prose.
func PreprocessBotText(text string) string {
	if text == "" {
		return text
	}
	return quoteReplacer.Replace(text)
}
