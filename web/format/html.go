package format

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"kydx-console/chat"
	"kydx-console/session"
	"kydx-console/utils"

	"github.com/a-h/templ"
)

// errWriter keeps the first write error so components can write freely and
// check once.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// MessageBubble renders one log entry.
func MessageBubble(m chat.Message) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<div class="msg %s" id="msg-%s">`, m.Sender, templ.EscapeString(m.ID))

		switch {
		case m.Media != nil:
			writeMedia(ew, m)
		case m.IsUser():
			ew.printf(`<p>%s</p>`, templ.EscapeString(m.Text))
		case m.Render == chat.RenderMultiline:
			ew.printf(`<div style="white-space: pre-wrap">%s</div>`, templ.EscapeString(PreprocessBotText(m.Text)))
		default:
			ew.printf(`%s`, TextToHTML(m.Text))
		}

		ew.printf(`</div>`)
		return ew.err
	})
}

func writeMedia(ew *errWriter, m chat.Message) {
	if !utils.SafeMediaURL(m.Media.URL, utils.ChartsPrefix) {
		text := m.Text
		if text == "" {
			text = "[media unavailable]"
		}
		ew.printf(`<p>%s</p>`, templ.EscapeString(text))
		return
	}
	url := templ.EscapeString(m.Media.URL)
	if m.Media.Kind == chat.MediaVideo {
		ew.printf(`<video controls src="%s"></video>`, url)
	} else {
		ew.printf(`<a href="%s" target="_blank"><img src="%s" alt="%s"></a>`, url, url, m.Media.Kind)
	}
	if m.Media.Kind == chat.MediaTableImage && utils.SafeMediaURL(m.Aux, utils.ChartsPrefix) {
		ew.printf(`<a class="data" href="%s" download>data</a>`, templ.EscapeString(m.Aux))
	}
	if m.Text != "" && m.Media.Kind != chat.MediaTableImage {
		ew.printf(`<p class="caption">%s</p>`, templ.EscapeString(m.Text))
	}
}

// Log renders every message in order.
func Log(log []chat.Message) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, m := range log {
			if err := MessageBubble(m).Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// AffordanceBar renders one button per offered action.
func AffordanceBar(as session.Affordances, width int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<div id="affordances">`)
		for _, a := range as.List() {
			ew.printf(`<button type="button" data-action="%s">%s</button>`, a, templ.EscapeString(AffordanceLabel(a, width)))
		}
		ew.printf(`</div>`)
		return ew.err
	})
}

const pageScript = `<script>
async function post(url, body) {
  const r = await fetch(url, {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body || {})});
  if (!r.ok) { const e = await r.json().catch(() => ({})); alert(e.error || r.statusText); return; }
  const data = await r.json();
  if (data.view) window.open(data.view.url, "_blank");
  location.reload();
}
document.querySelectorAll("#affordances button").forEach(b =>
  b.addEventListener("click", () => post("/api/actions/" + b.dataset.action)));
document.getElementById("composer").addEventListener("submit", e => {
  e.preventDefault();
  const input = e.target.elements.text;
  post("/api/messages", {text: input.value});
});
</script>`

// Page is the full chat page for a session snapshot.
func Page(snap session.Snapshot, width int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>KYDxBot</title></head><body>`)
		ew.printf(`<div id="log">`)
		if ew.err != nil {
			return ew.err
		}
		if err := Log(snap.Log).Render(ctx, w); err != nil {
			return err
		}
		ew.printf(`</div>`)
		if ew.err != nil {
			return ew.err
		}
		if err := AffordanceBar(snap.Affordances, width).Render(ctx, w); err != nil {
			return err
		}

		placeholder := "Ask about your data"
		if snap.Wizarding() {
			placeholder = "Answer the question above"
		}
		disabled := ""
		if snap.Busy {
			disabled = " disabled"
		}
		ew.printf(`<form id="composer"><input name="text" placeholder="%s" autocomplete="off"%s><button type="submit"%s>Send</button></form>`,
			placeholder, disabled, disabled)
		ew.printf(`%s</body></html>`, pageScript)
		return ew.err
	})
}

// RenderLog renders the log to an HTML fragment.
func RenderLog(ctx context.Context, log []chat.Message) (string, error) {
	var buf bytes.Buffer
	if err := Log(log).Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("failed to render log: %w", err)
	}
	return buf.String(), nil
}
