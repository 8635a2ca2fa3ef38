package session

import (
	"context"
	"sync"

	"kydx-console/backend"
	"kydx-console/chat"
)

// fakeBackend records calls and answers from per-endpoint hooks. A nil hook
// answers with the zero value.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	intro              func(ctx context.Context) (string, error)
	chat               func(ctx context.Context, query string) (string, error)
	visualizeQuestions func(ctx context.Context, log []chat.Message) ([]string, error)
	visualizeComplete  func(ctx context.Context, log []chat.Message, answers []string) (string, error)
	infographQuestions func(ctx context.Context, log []chat.Message) ([]string, error)
	infographComplete  func(ctx context.Context, log []chat.Message, answers []string) (string, error)
	summarize          func(ctx context.Context, log []chat.Message, visuals []string) (string, error)
	myData             func(ctx context.Context) (backend.MyData, error)
	directorsCut       func(ctx context.Context, log []chat.Message) (string, error)
	datasetSize        func(ctx context.Context) (int64, error)
	clearHistory       func(ctx context.Context) error
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) ClearHistory(ctx context.Context) error {
	f.record("clear_history")
	if f.clearHistory != nil {
		return f.clearHistory(ctx)
	}
	return nil
}

func (f *fakeBackend) Intro(ctx context.Context) (string, error) {
	f.record("intro")
	if f.intro != nil {
		return f.intro(ctx)
	}
	return "", nil
}

func (f *fakeBackend) Chat(ctx context.Context, query string) (string, error) {
	f.record("chat")
	if f.chat != nil {
		return f.chat(ctx, query)
	}
	return "", nil
}

func (f *fakeBackend) VisualizeQuestions(ctx context.Context, log []chat.Message) ([]string, error) {
	f.record("visualize_questions")
	if f.visualizeQuestions != nil {
		return f.visualizeQuestions(ctx, log)
	}
	return nil, nil
}

func (f *fakeBackend) VisualizeComplete(ctx context.Context, log []chat.Message, answers []string) (string, error) {
	f.record("visualize_complete")
	if f.visualizeComplete != nil {
		return f.visualizeComplete(ctx, log, answers)
	}
	return "", nil
}

func (f *fakeBackend) InfographQuestions(ctx context.Context, log []chat.Message) ([]string, error) {
	f.record("infograph_questions")
	if f.infographQuestions != nil {
		return f.infographQuestions(ctx, log)
	}
	return nil, nil
}

func (f *fakeBackend) InfographComplete(ctx context.Context, log []chat.Message, answers []string) (string, error) {
	f.record("infograph_complete")
	if f.infographComplete != nil {
		return f.infographComplete(ctx, log, answers)
	}
	return "", nil
}

func (f *fakeBackend) Summarize(ctx context.Context, log []chat.Message, visuals []string) (string, error) {
	f.record("summarize")
	if f.summarize != nil {
		return f.summarize(ctx, log, visuals)
	}
	return "", nil
}

func (f *fakeBackend) MyData(ctx context.Context) (backend.MyData, error) {
	f.record("my_data")
	if f.myData != nil {
		return f.myData(ctx)
	}
	return backend.MyData{}, nil
}

func (f *fakeBackend) DirectorsCut(ctx context.Context, log []chat.Message) (string, error) {
	f.record("directors_cut")
	if f.directorsCut != nil {
		return f.directorsCut(ctx, log)
	}
	return "", nil
}

func (f *fakeBackend) DatasetSize(ctx context.Context) (int64, error) {
	f.record("db_info")
	if f.datasetSize != nil {
		return f.datasetSize(ctx)
	}
	return 0, nil
}
