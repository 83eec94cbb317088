package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"deskcore/internal/async"
	"deskcore/internal/attachment"
	"deskcore/internal/core"
	"deskcore/pkg/domain"

	"go.uber.org/zap"
)

// Result is delivered once per submitted request.
type Result struct {
	Insight *domain.Insight
	Err     error
}

// Runner executes requests in the background and stores answers whose scope
// is still current.
type Runner struct {
	svc      *core.Service
	tracker  *async.Tracker
	analyzer Analyzer
	files    *attachment.Uploader
	logger   *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) RunnerOption { return func(r *Runner) { r.timeout = d } }

// WithAttachments stores request attachments through u. Without it they are
// kept inline as data URLs.
func WithAttachments(u *attachment.Uploader) RunnerOption {
	return func(r *Runner) {
		if u != nil {
			r.files = u
		}
	}
}

// NewRunner wires analyzer results into svc.
func NewRunner(svc *core.Service, tracker *async.Tracker, analyzer Analyzer, opts ...RunnerOption) *Runner {
	r := &Runner{svc: svc, tracker: tracker, analyzer: analyzer, logger: zap.NewNop(), timeout: 2 * time.Minute}
	for _, opt := range opts {
		opt(r)
	}
	if r.files == nil {
		r.files = attachment.NewUploader(svc, tracker, attachment.WithLogger(r.logger))
	}
	return r
}

// Submit starts req under scope, superseding earlier requests in the same
// scope. The returned channel yields exactly one Result.
func (r *Runner) Submit(ctx context.Context, scope string, req Request) <-chan Result {
	out := make(chan Result, 1)
	if err := req.validate(); err != nil {
		out <- Result{Err: err}
		close(out)
		return out
	}
	tok := r.tracker.Begin(scope)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(out)
		out <- r.run(ctx, tok, req)
	}()
	return out
}

func (r *Runner) run(ctx context.Context, tok async.Token, req Request) Result {
	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	started := time.Now()
	text, err := r.analyzer.Analyze(callCtx, req)
	if err != nil {
		r.logger.Warn("analysis failed", zap.String("scope", tok.Scope), zap.Error(err))
		return Result{Err: err}
	}
	insight := &domain.Insight{Prompt: req.Prompt, Result: text, Model: r.analyzer.Model()}
	if req.Attachment != nil {
		a := req.Attachment
		ref, err := r.files.Stash(ctx, domain.EntityInsight, a.Name, a.ContentType, a.Data)
		if err != nil {
			return Result{Err: err}
		}
		insight.Attachment = ref
	}
	var stored *domain.Insight
	err = r.tracker.Commit(tok, func() error {
		var addErr error
		stored, addErr = core.Add(ctx, r.svc, insight)
		return addErr
	})
	if err != nil && insight.Attachment != "" {
		r.files.Discard(context.WithoutCancel(ctx), insight.Attachment)
	}
	switch {
	case errors.Is(err, async.ErrStale):
		r.logger.Debug("discarded stale analysis", zap.String("scope", tok.Scope))
		return Result{Err: err}
	case err != nil:
		return Result{Err: err}
	}
	r.logger.Info("analysis stored",
		zap.String("id", stored.ID),
		zap.String("model", stored.Model),
		zap.Duration("elapsed", time.Since(started)),
	)
	return Result{Insight: stored}
}

// Cancel discards any in-flight result for scope.
func (r *Runner) Cancel(scope string) { r.tracker.Cancel(scope) }

// Wait blocks until every submitted request has finished.
func (r *Runner) Wait() { r.wg.Wait() }
