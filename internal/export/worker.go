package export

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"deskcore/internal/blob"
	"deskcore/internal/core"
	"deskcore/internal/query"
	"deskcore/pkg/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status describes the lifecycle stage of an export job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrQueueFull is returned when the worker cannot accept more jobs.
var ErrQueueFull = errors.New("export queue full")

// Artifact is one rendered file.
type Artifact struct {
	Key         string    `json:"key"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	// Payload holds the bytes when no blob store is configured.
	Payload []byte `json:"-"`
}

// Job tracks an export request and its artifacts.
type Job struct {
	ID          string      `json:"id"`
	Entity      string      `json:"entity"`
	Query       query.Query `json:"-"`
	Formats     []Format    `json:"formats"`
	Status      Status      `json:"status"`
	Error       string      `json:"error,omitempty"`
	Rows        int         `json:"rows"`
	Artifacts   []Artifact  `json:"artifacts,omitempty"`
	RequestedBy string      `json:"requested_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Done reports whether the job reached a terminal status.
func (j Job) Done() bool { return j.Status == StatusSucceeded || j.Status == StatusFailed }

func (j Job) copy() Job {
	j.Formats = slices.Clone(j.Formats)
	j.Artifacts = slices.Clone(j.Artifacts)
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		j.CompletedAt = &t
	}
	return j
}

// Input is an enqueue request. Entity accepts an entity type or collection
// key. Formats default to JSON and CSV.
type Input struct {
	Entity      string
	Query       query.Query
	Formats     []Format
	RequestedBy string
}

type entry struct {
	job Job
	// seq orders jobs enqueued within the same clock tick.
	seq  uint64
	done chan struct{}
}

// Worker executes exports asynchronously against a service snapshot.
type Worker struct {
	svc    *core.Service
	blobs  blob.Store
	logger *zap.Logger

	queue chan string
	mu    sync.RWMutex
	jobs  map[string]*entry
	seq   uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// Option configures a Worker.
type Option func(*Worker)

// WithBlobStore stores artifacts in s; without one artifacts keep their payload.
func WithBlobStore(s blob.Store) Option { return func(w *Worker) { w.blobs = s } }

// WithLogger sets the worker logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithQueueSize bounds the number of pending jobs.
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan string, n)
		}
	}
}

// NewWorker constructs a stopped worker.
func NewWorker(svc *core.Service, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		svc:    svc,
		logger: zap.NewNop(),
		queue:  make(chan string, 16),
		jobs:   make(map[string]*entry),
		ctx:    ctx,
		cancel: cancel,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing queued jobs.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop halts the worker and waits for the loop to exit or ctx to end.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// Enqueue validates input and schedules a job.
func (w *Worker) Enqueue(_ context.Context, in Input) (Job, error) {
	d, err := w.svc.Catalog().Resolve(in.Entity)
	if err != nil {
		return Job{}, err
	}
	if err := in.Query.Validate(d); err != nil {
		return Job{}, err
	}
	formats := in.Formats
	if len(formats) == 0 {
		formats = Formats
	}
	uniq := make([]Format, 0, len(formats))
	for _, f := range formats {
		if _, err := ParseFormat(string(f)); err != nil {
			return Job{}, err
		}
		if !slices.Contains(uniq, f) {
			uniq = append(uniq, f)
		}
	}

	now := w.now()
	job := Job{
		ID:          uuid.NewString(),
		Entity:      d.Key(),
		Query:       in.Query,
		Formats:     uniq,
		Status:      StatusQueued,
		RequestedBy: in.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	w.mu.Lock()
	w.seq++
	w.jobs[job.ID] = &entry{job: job, seq: w.seq, done: make(chan struct{})}
	w.mu.Unlock()

	select {
	case w.queue <- job.ID:
	default:
		w.mu.Lock()
		delete(w.jobs, job.ID)
		w.mu.Unlock()
		return Job{}, ErrQueueFull
	}
	w.logger.Debug("export queued", zap.String("job", job.ID), zap.String("entity", job.Entity))
	return job.copy(), nil
}

// Get returns a snapshot of job id.
func (w *Worker) Get(id string) (Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return e.job.copy(), true
}

// Jobs returns every known job ordered by creation.
func (w *Worker) Jobs() []Job {
	type ordered struct {
		job Job
		seq uint64
	}
	w.mu.RLock()
	all := make([]ordered, 0, len(w.jobs))
	for _, e := range w.jobs {
		all = append(all, ordered{job: e.job.copy(), seq: e.seq})
	}
	w.mu.RUnlock()
	slices.SortStableFunc(all, func(a, b ordered) int {
		if c := a.job.CreatedAt.Compare(b.job.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	out := make([]Job, len(all))
	for i, o := range all {
		out[i] = o.job
	}
	return out
}

// Await blocks until job id finishes or ctx ends.
func (w *Worker) Await(ctx context.Context, id string) (Job, error) {
	w.mu.RLock()
	e, ok := w.jobs[id]
	w.mu.RUnlock()
	if !ok {
		return Job{}, fmt.Errorf("export %s: %w", id, domain.ErrNotFound)
	}
	select {
	case <-e.done:
		job, _ := w.Get(id)
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

func (w *Worker) process(id string) {
	job, ok := w.Get(id)
	if !ok {
		return
	}
	w.update(id, func(j *Job) { j.Status = StatusRunning })

	d, err := w.svc.Catalog().Resolve(job.Entity)
	if err != nil {
		w.finish(id, nil, 0, err)
		return
	}
	records, err := query.Run(w.svc.Store().List(d.Entity()), d, job.Query)
	if err != nil {
		w.finish(id, nil, 0, err)
		return
	}

	artifacts := make([]Artifact, 0, len(job.Formats))
	for _, f := range job.Formats {
		payload, err := Render(f, d, records)
		if err != nil {
			w.discard(artifacts)
			w.finish(id, nil, 0, fmt.Errorf("render %s: %w", f, err))
			return
		}
		art, err := w.store(job, d, f, payload)
		if err != nil {
			w.discard(artifacts)
			w.finish(id, nil, 0, err)
			return
		}
		artifacts = append(artifacts, art)
	}
	w.finish(id, artifacts, len(records), nil)
}

func (w *Worker) store(job Job, d domain.Descriptor, f Format, payload []byte) (Artifact, error) {
	art := Artifact{
		Key:         fmt.Sprintf("exports/%s/%s.%s", job.ID, d.Key(), f),
		Format:      f,
		ContentType: f.ContentType(),
		SizeBytes:   int64(len(payload)),
		CreatedAt:   w.now(),
	}
	if w.blobs == nil {
		art.Payload = payload
		return art, nil
	}
	info, err := w.blobs.Put(w.ctx, art.Key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: art.ContentType,
		Metadata:    map[string]string{"job": job.ID, "entity": job.Entity},
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("store artifact %s: %w", art.Key, err)
	}
	art.URL = info.URL
	if url, err := w.blobs.PresignURL(w.ctx, art.Key, blob.SignedURLOptions{}); err == nil {
		art.URL = url
	}
	return art, nil
}

// discard removes artifacts a failed job already uploaded.
func (w *Worker) discard(artifacts []Artifact) {
	if w.blobs == nil {
		return
	}
	ctx := context.WithoutCancel(w.ctx)
	for _, art := range artifacts {
		if _, err := w.blobs.Delete(ctx, art.Key); err != nil {
			w.logger.Warn("orphaned export artifact", zap.String("key", art.Key), zap.Error(err))
		}
	}
}

func (w *Worker) update(id string, fn func(*Job)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.jobs[id]; ok {
		fn(&e.job)
		e.job.UpdatedAt = w.now()
	}
}

func (w *Worker) finish(id string, artifacts []Artifact, rows int, err error) {
	now := w.now()
	w.mu.Lock()
	e, ok := w.jobs[id]
	if ok {
		e.job.UpdatedAt = now
		e.job.CompletedAt = &now
		if err != nil {
			e.job.Status = StatusFailed
			e.job.Error = err.Error()
		} else {
			e.job.Status = StatusSucceeded
			e.job.Artifacts = artifacts
			e.job.Rows = rows
		}
		close(e.done)
	}
	w.mu.Unlock()
	if err != nil {
		w.logger.Warn("export failed", zap.String("job", id), zap.Error(err))
		return
	}
	w.logger.Info("export succeeded", zap.String("job", id), zap.Int("rows", rows), zap.Int("artifacts", len(artifacts)))
}
