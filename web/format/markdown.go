package format

import (
	"regexp"
	"strings"

	"kydx-console/utils"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var numberedItem = regexp.MustCompile(`^\d+\.\s`)

// TextToHTML renders plain bot text as markdown. Raw HTML in the input is
// dropped.
func TextToHTML(text string) string {
	text = normalizeMarkdownLists(PreprocessBotText(text))

	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML | html.Safelink})
	r.IsSafeURLOverride = isSafeLink
	return string(markdown.ToHTML([]byte(text), p, r))
}

// isSafeLink admits web links, mail links, anchors and relative paths;
// anything else is printed as plain text.
func isSafeLink(dest []byte) bool {
	link := string(dest)
	switch {
	case strings.HasPrefix(link, "#"):
		return len(link) > 1
	case strings.HasPrefix(strings.ToLower(link), "mailto:"):
		return len(link) > len("mailto:")
	case strings.HasPrefix(link, "/") && !strings.HasPrefix(link, "//"):
		return !strings.Contains(link, "..")
	}
	return utils.SafeMediaURL(link, utils.ChartsPrefix)
}

func isListItem(line string) bool {
	return strings.HasPrefix(line, "- ") ||
		strings.HasPrefix(line, "* ") ||
		strings.HasPrefix(line, "+ ") ||
		numberedItem.MatchString(line)
}

// normalizeMarkdownLists inserts the blank line markdown needs before a list
// that directly follows a paragraph.
func normalizeMarkdownLists(text string) string {
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if i > 0 && isListItem(trimmed) {
			prev := strings.TrimSpace(lines[i-1])
			if prev != "" && !isListItem(prev) {
				result = append(result, "")
			}
		}
		result = append(result, line)
	}

	return strings.Join(result, "\n")
}
