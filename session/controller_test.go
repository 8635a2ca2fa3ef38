package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"kydx-console/backend"
	"kydx-console/chat"
	apperrors "kydx-console/errors"
	"kydx-console/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.RequestTimeout = time.Second
	opts.StillWorkingDelay = 20 * time.Millisecond
	return opts
}

func newStarted(t *testing.T, fb *fakeBackend) *Controller {
	t.Helper()
	c := New(fb, testOptions(), zap.NewNop())
	_, err := c.Start(context.Background())
	require.NoError(t, err)
	return c
}

func texts(log []chat.Message) []string {
	out := make([]string, 0, len(log))
	for _, m := range log {
		out = append(out, fmt.Sprintf("%s:%s", m.Sender, m.Text))
	}
	return out
}

func TestStartIntro(t *testing.T) {
	fb := &fakeBackend{intro: func(context.Context) (string, error) { return "Hi", nil }}
	c := New(fb, testOptions(), zap.NewNop())

	before := c.Snapshot()
	assert.Empty(t, before.Log)
	assert.False(t, before.AffordancesVisible)
	assert.False(t, before.Busy)

	res, err := c.Start(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)

	snap := c.Snapshot()
	assert.Equal(t, []string{"bot:Hi"}, texts(snap.Log))
	assert.NotEmpty(t, snap.Log[0].ID)
	assert.True(t, snap.AffordancesVisible)
	assert.Equal(t, []Affordance{MyData}, snap.Affordances.List())
	assert.Nil(t, snap.Wizard)
	assert.False(t, snap.Busy)
	assert.Equal(t, 1, fb.count("clear_history"))
}

func TestStartSurvivesBackendFailures(t *testing.T) {
	fb := &fakeBackend{
		clearHistory: func(context.Context) error { return apperrors.ErrTransport },
		intro:        func(context.Context) (string, error) { return "", apperrors.ErrTransport },
	}
	c := newStarted(t, fb)

	snap := c.Snapshot()
	assert.Empty(t, snap.Log)
	assert.True(t, snap.Affordances.MyData)
}

func TestSubmitTableReply(t *testing.T) {
	fb := &fakeBackend{
		intro: func(context.Context) (string, error) { return "Hi", nil },
		chat: func(_ context.Context, q string) (string, error) {
			assert.Equal(t, "show sales", q)
			return "TABLE:/charts/a.png", nil
		},
	}
	c := newStarted(t, fb)

	res, err := c.Submit(context.Background(), "  show sales ")
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)

	snap := c.Snapshot()
	require.Len(t, snap.Log, 3)
	assert.Equal(t, chat.SenderUser, snap.Log[1].Sender)
	assert.Equal(t, "show sales", snap.Log[1].Text)

	table := snap.Log[2]
	require.True(t, table.HasMedia(chat.MediaTableImage))
	assert.Equal(t, "/charts/a.png", table.Media.URL)
	assert.Equal(t, "/charts/a.txt", table.Aux)

	assert.Equal(t, "/charts/a.txt", snap.LastTableDataRef)
	assert.True(t, snap.DirectorsCutAvailable)
	assert.Equal(t, []Affordance{MyData, Visualize, Infograph, Summarize, DirectorsCut}, snap.Affordances.List())
}

func TestDirectorsCutFollowsLatestReply(t *testing.T) {
	replies := []string{"TABLE:/charts/a.png\ncaption", "plain answer", "TABLE:/charts/b.png"}
	i := 0
	fb := &fakeBackend{chat: func(context.Context, string) (string, error) {
		r := replies[i]
		i++
		return r, nil
	}}
	c := newStarted(t, fb)

	_, err := c.Submit(context.Background(), "one")
	require.NoError(t, err)
	assert.True(t, c.Snapshot().Affordances.DirectorsCut)

	_, err = c.Submit(context.Background(), "two")
	require.NoError(t, err)
	snap := c.Snapshot()
	assert.False(t, snap.Affordances.DirectorsCut)
	assert.Equal(t, "/charts/a.txt", snap.LastTableDataRef, "table ref survives for the visualize seed")

	_, err = c.Submit(context.Background(), "three")
	require.NoError(t, err)
	snap = c.Snapshot()
	assert.True(t, snap.Affordances.DirectorsCut)
	assert.Equal(t, "/charts/b.txt", snap.LastTableDataRef)
}

func TestSubmitMultilineReply(t *testing.T) {
	fb := &fakeBackend{chat: func(context.Context, string) (string, error) { return "1. A\n2. B", nil }}
	c := newStarted(t, fb)

	res, err := c.Submit(context.Background(), "list")
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, chat.RenderMultiline, res.Messages[1].Render)
	assert.Equal(t, "1. A\n2. B", res.Messages[1].Text)
}

func TestSubmitTransportFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "generic",
			err:  fmt.Errorf("%w: connection refused", apperrors.ErrTransport),
			want: MsgSomethingWrong,
		},
		{
			name: "backend_detail_preferred",
			err:  &backend.StatusError{Code: 400, Status: "400 Bad Request", Detail: "Query cannot be empty"},
			want: "Query cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackend{chat: func(context.Context, string) (string, error) { return "", tt.err }}
			c := newStarted(t, fb)

			_, err := c.Submit(context.Background(), "hello")
			require.NoError(t, err)

			snap := c.Snapshot()
			assert.Equal(t, []string{"user:hello", "bot:" + tt.want}, texts(snap.Log))
			assert.False(t, snap.Busy)
			assert.True(t, snap.AffordancesVisible)
		})
	}
}

func TestSubmitTimeoutClearsBusy(t *testing.T) {
	fb := &fakeBackend{chat: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", fmt.Errorf("%w: %v", apperrors.ErrTransport, ctx.Err())
	}}
	c := New(fb, Options{RequestTimeout: 20 * time.Millisecond, DirectorsCutCacheSize: 1}, zap.NewNop())
	_, err := c.Start(context.Background())
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), "slow question")
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.False(t, snap.Busy)
	assert.Equal(t, "bot:"+MsgSomethingWrong, texts(snap.Log)[1])
	assert.True(t, snap.AffordancesVisible)
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"blank", "   ", utils.ErrEmptyInput},
		{"too_long", strings.Repeat("a", utils.MaxInputRunes+1), utils.ErrInputTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackend{}
			c := newStarted(t, fb)

			_, err := c.Submit(context.Background(), tt.text)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, apperrors.IsInvalidInput(err))
			assert.Empty(t, c.Snapshot().Log, "rejected input is never logged or truncated")
			assert.Equal(t, 0, fb.count("chat"))
		})
	}
}

func TestSingleFlightGuard(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	fb := &fakeBackend{chat: func(context.Context, string) (string, error) {
		close(entered)
		<-release
		return "done", nil
	}}
	c := newStarted(t, fb)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Submit(context.Background(), "first")
		assert.NoError(t, err)
	}()
	<-entered

	snap := c.Snapshot()
	assert.True(t, snap.Busy)
	assert.False(t, snap.AffordancesVisible)

	_, err := c.Submit(context.Background(), "second")
	assert.True(t, apperrors.IsBusy(err))
	_, err = c.Trigger(context.Background(), MyData)
	assert.True(t, apperrors.IsBusy(err))

	close(release)
	wg.Wait()

	snap = c.Snapshot()
	assert.False(t, snap.Busy)
	assert.Equal(t, []string{"user:first", "bot:done"}, texts(snap.Log))
	assert.Equal(t, 1, fb.count("chat"))
}

func TestLogNeverShrinks(t *testing.T) {
	replies := []string{"a", "TABLE:/charts/t.png\nnote", "b\nc"}
	i := 0
	fb := &fakeBackend{
		intro: func(context.Context) (string, error) { return "Hi", nil },
		chat: func(context.Context, string) (string, error) {
			r := replies[i%len(replies)]
			i++
			return r, nil
		},
		visualizeQuestions: func(context.Context, []chat.Message) ([]string, error) {
			return []string{"Which metric?"}, nil
		},
		visualizeComplete: func(context.Context, []chat.Message, []string) (string, error) {
			return "/charts/bar.png", nil
		},
	}
	c := newStarted(t, fb)

	prev := len(c.Snapshot().Log)
	step := func(f func() error) {
		require.NoError(t, f())
		n := len(c.Snapshot().Log)
		require.GreaterOrEqual(t, n, prev)
		prev = n
	}
	for _, q := range []string{"q1", "q2", "q3"} {
		step(func() error { _, err := c.Submit(context.Background(), q); return err })
	}
	step(func() error { _, err := c.Trigger(context.Background(), Visualize); return err })
	step(func() error { _, err := c.Submit(context.Background(), "revenue"); return err })
	step(func() error { _, err := c.Trigger(context.Background(), MyData); return err })
}

func TestTriggerRequiresAffordance(t *testing.T) {
	fb := &fakeBackend{}
	c := New(fb, testOptions(), zap.NewNop())

	_, err := c.Trigger(context.Background(), MyData)
	assert.True(t, apperrors.IsUnavailable(err), "my data needs the intro step")

	_, err = c.Start(context.Background())
	require.NoError(t, err)

	for _, a := range []Affordance{Visualize, Infograph, Summarize, DirectorsCut} {
		_, err = c.Trigger(context.Background(), a)
		assert.True(t, apperrors.IsUnavailable(err), "%s needs a user message", a)
	}
	assert.Equal(t, 0, fb.count("visualize_questions"))
	assert.False(t, c.Snapshot().Busy)
}

func TestParseAffordance(t *testing.T) {
	a, ok := ParseAffordance("directors_cut")
	assert.True(t, ok)
	assert.Equal(t, DirectorsCut, a)
	assert.Equal(t, "Director's Cut", a.Label())

	_, ok = ParseAffordance("dance")
	assert.False(t, ok)
}
