package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kydx-console/backend"
	"kydx-console/chat"
	"kydx-console/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// introBackend greets and counts how often it was asked to.
type introBackend struct {
	intros atomic.Int32
}

func (b *introBackend) ClearHistory(context.Context) error { return nil }
func (b *introBackend) Intro(context.Context) (string, error) {
	b.intros.Add(1)
	return "Hello", nil
}
func (b *introBackend) Chat(context.Context, string) (string, error) { return "ok", nil }
func (b *introBackend) VisualizeQuestions(context.Context, []chat.Message) ([]string, error) {
	return nil, nil
}
func (b *introBackend) VisualizeComplete(context.Context, []chat.Message, []string) (string, error) {
	return "", nil
}
func (b *introBackend) InfographQuestions(context.Context, []chat.Message) ([]string, error) {
	return nil, nil
}
func (b *introBackend) InfographComplete(context.Context, []chat.Message, []string) (string, error) {
	return "", nil
}
func (b *introBackend) Summarize(context.Context, []chat.Message, []string) (string, error) {
	return "", nil
}
func (b *introBackend) MyData(context.Context) (backend.MyData, error) { return backend.MyData{}, nil }
func (b *introBackend) DirectorsCut(context.Context, []chat.Message) (string, error) {
	return "", nil
}
func (b *introBackend) DatasetSize(context.Context) (int64, error) { return 0, nil }

func newService(t *testing.T, max int) (*SessionService, *introBackend) {
	t.Helper()
	b := &introBackend{}
	ss, err := NewSessionService(b, session.DefaultOptions(), max, zap.NewNop())
	require.NoError(t, err)
	return ss, b
}

func TestGetCreatesAndStartsOnce(t *testing.T) {
	ss, b := newService(t, 4)
	id := uuid.New()

	var wg sync.WaitGroup
	ctrls := make([]*session.Controller, 8)
	for i := range ctrls {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctrls[i] = ss.Get(context.Background(), id)
		}(i)
	}
	wg.Wait()

	for _, c := range ctrls {
		assert.Same(t, ctrls[0], c)
	}
	assert.Equal(t, int32(1), b.intros.Load())
	assert.Len(t, ctrls[0].Snapshot().Log, 1)
}

func TestResetReplacesController(t *testing.T) {
	ss, b := newService(t, 4)
	id := uuid.New()

	first := ss.Get(context.Background(), id)
	_, err := first.Submit(context.Background(), "hi")
	require.NoError(t, err)

	second := ss.Reset(context.Background(), id)
	assert.NotSame(t, first, second)
	assert.Len(t, second.Snapshot().Log, 1)
	assert.Equal(t, int32(2), b.intros.Load())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	ss, _ := newService(t, 2)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	first := ss.Get(context.Background(), a)
	ss.Get(context.Background(), b)
	ss.Get(context.Background(), a)
	ss.Get(context.Background(), c)

	assert.Equal(t, 2, ss.Len())
	assert.Same(t, first, ss.Get(context.Background(), a))
}

func TestStaleSessions(t *testing.T) {
	ss, _ := newService(t, 4)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	old, fresh := uuid.New(), uuid.New()
	ss.now = func() time.Time { return base }
	ss.Get(context.Background(), old)
	ss.now = func() time.Time { return base.Add(time.Hour) }
	ss.Get(context.Background(), fresh)

	assert.Equal(t, []uuid.UUID{old}, ss.StaleSessions(base.Add(30*time.Minute)))
}
