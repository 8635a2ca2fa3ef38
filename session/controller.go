// Package session owns one conversation with the analysis backend: the
// ordered message log, the active wizard (if any), and which actions the
// view may offer. All mutation goes through Controller.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"kydx-console/backend"
	"kydx-console/chat"
	"kydx-console/config"
	apperrors "kydx-console/errors"
	"kydx-console/utils"
	"kydx-console/wizard"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Fixed user-facing replies for failed backend calls.
const (
	MsgSomethingWrong   = "Sorry, something went wrong."
	MsgChartFailed      = "Sorry, I couldn't create that chart."
	MsgInfographFailed  = "Sorry, I couldn't create that infographic."
	MsgDirectorsFailed  = "Sorry, I couldn't create the Director's Cut."
	MsgMyDataFailed     = "Sorry, I couldn't load an overview of your data."
	MsgStillWorking     = "Still working on it. Your dataset is large, so this may take a moment."
	DirectorsCutCaption = "Director's Cut"
)

// Backend is the analysis service the controller talks to.
type Backend interface {
	ClearHistory(ctx context.Context) error
	Intro(ctx context.Context) (string, error)
	Chat(ctx context.Context, query string) (string, error)
	VisualizeQuestions(ctx context.Context, log []chat.Message) ([]string, error)
	VisualizeComplete(ctx context.Context, log []chat.Message, answers []string) (string, error)
	InfographQuestions(ctx context.Context, log []chat.Message) ([]string, error)
	InfographComplete(ctx context.Context, log []chat.Message, answers []string) (string, error)
	Summarize(ctx context.Context, log []chat.Message, visuals []string) (string, error)
	MyData(ctx context.Context) (backend.MyData, error)
	DirectorsCut(ctx context.Context, log []chat.Message) (string, error)
	DatasetSize(ctx context.Context) (int64, error)
}

// Options tune timeouts and thresholds.
type Options struct {
	// RequestTimeout bounds every backend call; zero disables the bound.
	RequestTimeout time.Duration
	// LargeDatasetBytes is the size above which My Data queues a still-working notice.
	LargeDatasetBytes int64
	// StillWorkingDelay is how long My Data waits before posting that notice.
	StillWorkingDelay time.Duration
	// DirectorsCutCacheSize is how many produced videos are remembered.
	DirectorsCutCacheSize int
}

// DefaultOptions mirrors config.Default.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig extracts controller options from the app config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RequestTimeout:        cfg.RequestTimeout,
		LargeDatasetBytes:     cfg.LargeDatasetBytes,
		StillWorkingDelay:     cfg.StillWorkingDelay,
		DirectorsCutCacheSize: cfg.DirectorsCutCacheSize,
	}
}

// ViewRequest asks the view to open media in an enlarged viewer.
type ViewRequest struct {
	URL     string         `json:"url"`
	Kind    chat.MediaKind `json:"kind"`
	Caption string         `json:"caption,omitempty"`
}

// Result reports what one operation did: the messages it appended and
// media the view should open.
type Result struct {
	Messages []chat.Message `json:"messages"`
	View     *ViewRequest   `json:"view,omitempty"`
}

// Snapshot is an immutable copy of the session state.
type Snapshot struct {
	ID                    string         `json:"id"`
	Log                   []chat.Message `json:"log"`
	Wizard                *wizard.State  `json:"wizard,omitempty"`
	AffordancesVisible    bool           `json:"affordances_visible"`
	Affordances           Affordances    `json:"affordances"`
	Busy                  bool           `json:"busy"`
	LastTableDataRef      string         `json:"last_table_data_ref,omitempty"`
	DirectorsCutAvailable bool           `json:"directors_cut_available"`
}

// Wizarding reports whether user input is currently routed to a wizard.
func (s Snapshot) Wizarding() bool {
	return s.Wizard != nil && s.Wizard.Active
}

type state struct {
	log                   []chat.Message
	wizard                *wizard.State
	introDone             bool
	busy                  bool
	lastTableDataRef      string
	directorsCutAvailable bool
	// My Data
	dataFetched bool
	erdRef      string
	erdCaption  string
}

type Controller struct {
	id      string
	backend Backend
	opts    Options
	logger  *zap.Logger

	// guard admits one backend-bound operation at a time.
	guard *semaphore.Weighted
	// videos maps a table data locator to the Director's Cut produced from it.
	videos *lru.Cache

	mu    sync.Mutex
	state state
}

// New creates an idle controller with an empty log. Call Start to begin.
func New(b Backend, opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	size := opts.DirectorsCutCacheSize
	if size < 1 {
		size = 1
	}
	videos, err := lru.New(size)
	if err != nil {
		// lru.New only fails for a non-positive size
		panic(err)
	}
	id := uuid.NewString()
	return &Controller{
		id:      id,
		backend: b,
		opts:    opts,
		logger:  logger.With(zap.String("session_id", id)),
		guard:   semaphore.NewWeighted(1),
		videos:  videos,
	}
}

// ID identifies the session in logs.
func (c *Controller) ID() string {
	return c.id
}

// Snapshot copies the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		ID:                    c.id,
		Log:                   append([]chat.Message(nil), c.state.log...),
		Busy:                  c.state.busy,
		LastTableDataRef:      c.state.lastTableDataRef,
		DirectorsCutAvailable: c.state.directorsCutAvailable,
		Affordances:           c.state.visible(),
	}
	snap.AffordancesVisible = snap.Affordances.Any()
	if c.state.wizard != nil {
		w := *c.state.wizard
		w.Questions = append([]string(nil), w.Questions...)
		w.Seed = append([]string(nil), w.Seed...)
		w.Answers = append([]string(nil), w.Answers...)
		snap.Wizard = &w
	}
	return snap
}

// Start resets the backend conversation and fetches the greeting. The reset
// is awaited before the intro fetch so the greeting never races it.
func (c *Controller) Start(ctx context.Context) (Result, error) {
	if err := c.acquire(); err != nil {
		return Result{}, err
	}
	defer c.release()

	c.mu.Lock()
	c.state = state{busy: true}
	c.mu.Unlock()
	c.videos.Purge()

	rctx, cancel := c.bounded(ctx)
	if err := c.backend.ClearHistory(rctx); err != nil {
		c.logger.Warn("Failed to clear backend history, continuing", zap.Error(err))
	}
	cancel()

	rctx, cancel = c.bounded(ctx)
	intro, err := c.backend.Intro(rctx)
	cancel()
	if err != nil {
		c.logger.Error("Failed to fetch intro message", zap.Error(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	mark := len(c.state.log)
	if strings.TrimSpace(intro) != "" {
		c.appendLocked(chat.BotText(intro))
	}
	c.state.introDone = true
	c.logger.Info("Session started")
	return Result{Messages: c.sinceLocked(mark)}, nil
}

// Submit routes user input: to the active wizard as an answer, otherwise to
// the backend as a free-form query.
func (c *Controller) Submit(ctx context.Context, text string) (Result, error) {
	text, err := utils.ValidateInput(text)
	if err != nil {
		return Result{}, err
	}
	if err := c.acquire(); err != nil {
		return Result{}, err
	}
	defer c.release()

	c.mu.Lock()
	mark := len(c.state.log)
	c.appendLocked(chat.UserText(text))
	active := c.state.wizard != nil
	c.mu.Unlock()

	var view *ViewRequest
	if active {
		view = c.answerWizard(ctx, text)
	} else {
		c.query(ctx, text)
	}

	return c.result(mark, view), nil
}

// Trigger runs the named action.
func (c *Controller) Trigger(ctx context.Context, a Affordance) (Result, error) {
	if err := c.acquire(); err != nil {
		return Result{}, err
	}
	defer c.release()

	c.mu.Lock()
	wizarding := c.state.wizard != nil
	allowed := c.state.permitted().Has(a)
	mark := len(c.state.log)
	c.mu.Unlock()

	if wizarding {
		return Result{}, apperrors.ErrWizardActive
	}
	if !allowed {
		return Result{}, apperrors.WrapErrorf(apperrors.ErrUnavailable, "%s", a)
	}

	var view *ViewRequest
	switch a {
	case MyData:
		view = c.myData(ctx)
	case Visualize:
		c.startWizard(ctx, wizard.Visualization)
	case Infograph:
		c.startWizard(ctx, wizard.Infograph)
	case Summarize:
		c.summarize(ctx)
	case DirectorsCut:
		view = c.directorsCut(ctx)
	}
	return c.result(mark, view), nil
}

// InvalidateData forgets cached data artifacts after new data is loaded so
// the next My Data fetches again.
func (c *Controller) InvalidateData() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.dataFetched = false
	c.state.erdRef = ""
	c.state.erdCaption = ""
}

// query sends free-form text and classifies the reply.
func (c *Controller) query(ctx context.Context, text string) {
	rctx, cancel := c.bounded(ctx)
	defer cancel()

	raw, err := c.backend.Chat(rctx, text)
	if err != nil {
		c.appendFailure(err, MsgSomethingWrong)
		return
	}
	c.applyReply(raw)
}

// applyReply classifies a /chat or /summarize reply and updates the table
// bookkeeping that gates Director's Cut.
func (c *Controller) applyReply(raw string) {
	classified := chat.Classify(raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range classified.Messages {
		c.appendLocked(m)
	}
	if classified.IsTable() {
		c.state.lastTableDataRef = classified.DataRef
		c.state.directorsCutAvailable = true
	} else {
		c.state.directorsCutAvailable = false
	}
}

func (c *Controller) acquire() error {
	if !c.guard.TryAcquire(1) {
		return apperrors.ErrBusy
	}
	c.mu.Lock()
	c.state.busy = true
	c.mu.Unlock()
	return nil
}

// release clears busy and frees the guard on every path.
func (c *Controller) release() {
	c.mu.Lock()
	c.state.busy = false
	c.mu.Unlock()
	c.guard.Release(1)
}

func (c *Controller) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.RequestTimeout > 0 {
		return context.WithTimeout(ctx, c.opts.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

func (c *Controller) logCopy() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Message(nil), c.state.log...)
}

func (c *Controller) appendMessages(msgs ...chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range msgs {
		c.appendLocked(m)
	}
}

// appendLocked is the only place the log grows. Callers hold c.mu.
func (c *Controller) appendLocked(m chat.Message) {
	if m.ID == "" {
		m.ID = utils.GenerateMessageID()
	}
	c.state.log = append(c.state.log, m)
}

// appendFailure posts the backend's detail when it sent one, else fallback.
func (c *Controller) appendFailure(err error, fallback string) {
	text := fallback
	if detail, ok := backend.Detail(err); ok {
		text = detail
	}
	if apperrors.IsEmptyResult(err) {
		c.logger.Warn("Backend action returned nothing", zap.Error(err))
	} else {
		c.logger.Error("Backend action failed", zap.Error(err))
	}
	c.appendMessages(chat.BotText(text))
}

func (c *Controller) sinceLocked(mark int) []chat.Message {
	return append([]chat.Message(nil), c.state.log[mark:]...)
}

func (c *Controller) result(mark int, view *ViewRequest) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Result{Messages: c.sinceLocked(mark), View: view}
}
