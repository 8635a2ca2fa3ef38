package session

import (
	"context"
	"strings"
	"time"

	"kydx-console/chat"
	apperrors "kydx-console/errors"
	"kydx-console/wizard"

	"go.uber.org/zap"
)

// startWizard fetches the question set and enters Wizarding. An empty set
// leaves the session idle without a message.
func (c *Controller) startWizard(ctx context.Context, kind wizard.Kind) {
	log := c.logCopy()

	rctx, cancel := c.bounded(ctx)
	var questions []string
	var err error
	if kind == wizard.Visualization {
		questions, err = c.backend.VisualizeQuestions(rctx, log)
	} else {
		questions, err = c.backend.InfographQuestions(rctx, log)
	}
	cancel()
	if err != nil {
		c.appendFailure(err, MsgSomethingWrong)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var seed []string
	if kind == wizard.Visualization && c.state.lastTableDataRef != "" {
		seed = []string{c.state.lastTableDataRef}
	}
	st, err := wizard.Start(kind, questions, seed)
	if err != nil {
		// TODO: confirm with product whether an empty set should tell the user.
		c.logger.Warn("Backend returned no wizard questions, staying idle",
			zap.String("wizard", string(kind)), zap.Error(err))
		return
	}

	c.state.wizard = &st
	prompt, _ := st.Prompt()
	c.appendLocked(prompt)
}

// answerWizard feeds one answer to the active wizard and, on the last one,
// runs the wizard's completion.
func (c *Controller) answerWizard(ctx context.Context, answer string) *ViewRequest {
	c.mu.Lock()
	current := *c.state.wizard
	step, err := wizard.SubmitAnswer(current, answer)
	if err != nil {
		// An inactive wizard never stays installed; drop it and recover to Idle.
		c.logger.Error("Wizard rejected answer", zap.Error(err))
		c.state.wizard = nil
		c.mu.Unlock()
		return nil
	}
	if !step.Done {
		c.state.wizard = &step.Next
		c.appendLocked(*step.Emit)
		c.mu.Unlock()
		return nil
	}
	c.state.wizard = nil
	c.mu.Unlock()

	answers := step.Next.AllAnswers()
	c.logger.Info("Wizard complete", zap.String("wizard", string(step.Next.Kind)), zap.Int("answers", len(answers)))

	if step.Next.Kind == wizard.Visualization {
		return c.completeVisualization(ctx, answers)
	}
	return c.completeInfograph(ctx, answers)
}

func (c *Controller) completeVisualization(ctx context.Context, answers []string) *ViewRequest {
	rctx, cancel := c.bounded(ctx)
	defer cancel()

	url, err := requireLocator(c.backend.VisualizeComplete(rctx, c.logCopy(), answers))
	if err != nil {
		c.appendFailure(err, MsgChartFailed)
		return nil
	}
	c.appendMessages(chat.BotMediaOf("", url, chat.MediaChartImage))
	return &ViewRequest{URL: url, Kind: chat.MediaChartImage}
}

func (c *Controller) completeInfograph(ctx context.Context, answers []string) *ViewRequest {
	rctx, cancel := c.bounded(ctx)
	defer cancel()

	url, err := requireLocator(c.backend.InfographComplete(rctx, c.logCopy(), answers))
	if err != nil {
		c.appendFailure(err, MsgInfographFailed)
		return nil
	}
	msg := chat.BotMedia("", url)
	c.appendMessages(msg)
	return &ViewRequest{URL: url, Kind: msg.Media.Kind}
}

// requireLocator turns a successful call that produced no locator into an
// empty result.
func requireLocator(url string, err error) (string, error) {
	if err == nil && strings.TrimSpace(url) == "" {
		return "", apperrors.WrapError(apperrors.ErrEmptyResult, "backend returned no locator")
	}
	return url, err
}

// summarize sends the log plus every image produced so far. The reply obeys
// the same table convention as chat.
func (c *Controller) summarize(ctx context.Context) {
	log := c.logCopy()

	rctx, cancel := c.bounded(ctx)
	defer cancel()

	raw, err := c.backend.Summarize(rctx, log, Visuals(log))
	if err != nil {
		c.appendFailure(err, MsgSomethingWrong)
		return
	}
	c.applyReply(raw)
}

// Visuals lists the image locators in log, oldest first.
func Visuals(log []chat.Message) []string {
	visuals := []string{}
	for _, m := range log {
		if m.Media != nil && m.Media.Kind != chat.MediaVideo {
			visuals = append(visuals, m.Media.URL)
		}
	}
	return visuals
}

// directorsCut reopens the cached video for the current table or asks the
// backend to produce one.
func (c *Controller) directorsCut(ctx context.Context) *ViewRequest {
	c.mu.Lock()
	tableRef := c.state.lastTableDataRef
	c.mu.Unlock()

	if cached, ok := c.videos.Get(tableRef); ok {
		c.logger.Debug("Reopening cached Director's Cut", zap.String("table", tableRef))
		return &ViewRequest{URL: cached.(string), Kind: chat.MediaVideo, Caption: DirectorsCutCaption}
	}

	rctx, cancel := c.bounded(ctx)
	defer cancel()

	url, err := requireLocator(c.backend.DirectorsCut(rctx, c.logCopy()))
	if err != nil {
		c.appendFailure(err, MsgDirectorsFailed)
		return nil
	}

	c.videos.Add(tableRef, url)
	c.appendMessages(chat.BotMediaOf(DirectorsCutCaption, url, chat.MediaVideo))
	return &ViewRequest{URL: url, Kind: chat.MediaVideo, Caption: DirectorsCutCaption}
}

// myData shows the data overview. The diagram is fetched once and reopened
// on later calls; a missing diagram triggers a refetch.
func (c *Controller) myData(ctx context.Context) *ViewRequest {
	c.mu.Lock()
	erdRef, erdCaption, fetched := c.state.erdRef, c.state.erdCaption, c.state.dataFetched
	c.mu.Unlock()

	if erdRef != "" {
		return &ViewRequest{URL: erdRef, Kind: chat.MediaDiagramImage, Caption: erdCaption}
	}

	var notice *stillWorking
	if !fetched {
		notice = c.noticeIfLarge(ctx)
	}

	rctx, cancel := c.bounded(ctx)
	data, err := c.backend.MyData(rctx)
	cancel()
	notice.cancel()

	c.mu.Lock()
	c.state.dataFetched = true
	c.mu.Unlock()

	if err != nil {
		c.appendFailure(err, MsgMyDataFailed)
		return nil
	}

	var msgs []chat.Message
	if strings.TrimSpace(data.Summary) != "" {
		msgs = append(msgs, chat.Classify(data.Summary).Messages...)
	}
	var view *ViewRequest
	if data.ERDURL != "" {
		msgs = append(msgs, chat.BotMediaOf(data.ERDDesc, data.ERDURL, chat.MediaDiagramImage))
		view = &ViewRequest{URL: data.ERDURL, Kind: chat.MediaDiagramImage, Caption: data.ERDDesc}
	}
	if len(msgs) == 0 {
		c.logger.Warn("My Data returned nothing to show", zap.Error(apperrors.ErrEmptyResult))
		msgs = append(msgs, chat.BotText(MsgMyDataFailed))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range msgs {
		c.appendLocked(m)
	}
	if data.ERDURL != "" {
		c.state.erdRef = data.ERDURL
		c.state.erdCaption = data.ERDDesc
	}
	return view
}

// noticeIfLarge probes the dataset size and, above the threshold, queues the
// still-working notice. A failed probe queues nothing.
func (c *Controller) noticeIfLarge(ctx context.Context) *stillWorking {
	rctx, cancel := c.bounded(ctx)
	size, err := c.backend.DatasetSize(rctx)
	cancel()
	if err != nil {
		c.logger.Debug("Dataset size probe failed", zap.Error(err))
		return nil
	}
	if size <= c.opts.LargeDatasetBytes {
		return nil
	}
	c.logger.Info("Large dataset, queueing still-working notice", zap.Int64("size_bytes", size))
	return c.scheduleNotice(c.opts.StillWorkingDelay, MsgStillWorking)
}

// stillWorking is a bot notice posted after a delay unless cancelled first.
type stillWorking struct {
	timer     *time.Timer
	cancelled bool // guarded by the controller's mu
	c         *Controller
}

func (c *Controller) scheduleNotice(delay time.Duration, text string) *stillWorking {
	n := &stillWorking{c: c}
	n.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if n.cancelled {
			return
		}
		n.cancelled = true
		c.appendLocked(chat.BotText(text))
	})
	return n
}

// cancel stops the notice if it has not been posted. Safe on nil.
func (n *stillWorking) cancel() {
	if n == nil {
		return
	}
	n.timer.Stop()
	n.c.mu.Lock()
	n.cancelled = true
	n.c.mu.Unlock()
}
