package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"deskcore/internal/infra/persistence/memory"
	"deskcore/internal/kv"
	"deskcore/internal/persistence"
	"deskcore/pkg/domain"

	"go.uber.org/zap"
)

// ErrWatchUnsupported is returned by Watch when the configured storage cannot
// report external changes.
var ErrWatchUnsupported = errors.New("storage does not support watching")

// ActionKind names a dispatchable command.
type ActionKind string

// Dispatchable commands.
const (
	ActionAdd    ActionKind = "add"
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
)

// Action is a command applied to the store in one transaction.
type Action struct {
	Kind   ActionKind
	Entity EntityType
	ID     string
	// Record is the new record for ActionAdd.
	Record Record
	// Mutate edits a copy of the stored record for ActionUpdate.
	Mutate func(Record) error
}

// AddAction creates rec.
func AddAction(rec Record) Action {
	return Action{Kind: ActionAdd, Entity: rec.EntityType(), Record: rec}
}

// UpdateAction applies mutate to the record entity/id.
func UpdateAction(entity EntityType, id string, mutate func(Record) error) Action {
	return Action{Kind: ActionUpdate, Entity: entity, ID: id, Mutate: mutate}
}

// DeleteAction removes entity/id and its cascade dependents.
func DeleteAction(entity EntityType, id string) Action {
	return Action{Kind: ActionDelete, Entity: entity, ID: id}
}

func (a Action) validate() error {
	switch a.Kind {
	case ActionAdd:
		if a.Record == nil {
			return fmt.Errorf("%w: add requires a record", domain.ErrValidation)
		}
	case ActionUpdate:
		if a.ID == "" || a.Mutate == nil {
			return fmt.Errorf("%w: update requires an id and a mutator", domain.ErrValidation)
		}
	case ActionDelete:
		if a.ID == "" {
			return fmt.Errorf("%w: delete requires an id", domain.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", domain.ErrValidation, a.Kind)
	}
	return nil
}

// Outcome reports what a dispatched action did.
type Outcome struct {
	// Record is the created or updated record; nil for deletes.
	Record  Record
	Changes []Change
	Result  Result
}

// Event is delivered to subscribers after state changes.
type Event struct {
	Changes  []Change
	Reloaded []EntityType
}

// Entities lists the collections touched by the event in first-seen order.
func (e Event) Entities() []EntityType {
	out := slices.Clone(e.Reloaded)
	for _, c := range e.Changes {
		if !slices.Contains(out, c.Entity) {
			out = append(out, c.Entity)
		}
	}
	return out
}

// Listener receives state change events.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsRecorder records one observation per operation.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer wraps every operation in a span.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAdapter writes touched collections through a to storage.
func WithAdapter(a *persistence.Adapter) Option {
	return func(s *Service) { s.adapter = a }
}

// WithRulesEngine replaces the default rules engine.
func WithRulesEngine(e *RulesEngine) Option {
	return func(s *Service) { s.engine = e }
}

// WithStoreOptions forwards options to the in-memory store.
func WithStoreOptions(opts ...memory.Option) Option {
	return func(s *Service) { s.storeOpts = append(s.storeOpts, opts...) }
}

// Service is the observable state container of one application: commands go
// in through Dispatch, subscribers are told what changed.
type Service struct {
	store   *memory.Store
	adapter *persistence.Adapter
	engine  *RulesEngine
	logger  *zap.Logger
	metrics MetricsRecorder
	tracer  Tracer

	storeOpts []memory.Option

	// mu orders commit and write-through so storage sees transactions in commit order.
	mu sync.Mutex

	subMu   sync.Mutex
	subs    []subscription
	nextSub int
}

// NewService constructs a service over an empty store for catalog.
func NewService(catalog *Catalog, opts ...Option) *Service {
	s := &Service{
		logger:  zap.NewNop(),
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = NewDefaultRulesEngine(catalog)
	}
	s.store = memory.NewStore(catalog, s.engine, s.storeOpts...)
	s.logger = s.logger.With(zap.String("app", catalog.App()))
	return s
}

// Store returns the underlying in-memory store.
func (s *Service) Store() *memory.Store { return s.store }

// Catalog returns the schemas served by the service.
func (s *Service) Catalog() *Catalog { return s.store.Catalog() }

// Adapter returns the persistence adapter, or nil when the service is ephemeral.
func (s *Service) Adapter() *persistence.Adapter { return s.adapter }

// GetState returns a deep copy of every collection.
func (s *Service) GetState() Snapshot { return s.store.ExportState() }

// Subscribe registers fn for change events and returns a function removing it.
func (s *Service) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscription) bool { return sub.id == id })
	}
}

func (s *Service) notify(ev Event) {
	s.subMu.Lock()
	subs := slices.Clone(s.subs)
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.fn(ev)
	}
}

func (s *Service) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	err := fn(ctx)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	span.End(err)
	return err
}

// Load replaces the store state with the stored collections, seeding the
// missing ones. Without an adapter it is a no-op.
func (s *Service) Load(ctx context.Context) error {
	return s.observe(ctx, "load", func(ctx context.Context) error {
		if s.adapter == nil {
			return nil
		}
		snapshot, err := s.adapter.Hydrate(ctx)
		if err != nil {
			return fmt.Errorf("hydrate: %w", err)
		}
		s.mu.Lock()
		s.store.ImportState(snapshot)
		s.mu.Unlock()
		s.logger.Info("state loaded", zap.Int("collections", len(snapshot)))
		return nil
	})
}

// Reload re-reads the collections stored under keys, or all collections when
// keys is empty. Unknown keys are ignored. Subscribers receive the reloaded
// entity types.
func (s *Service) Reload(ctx context.Context, keys ...string) error {
	return s.observe(ctx, "reload", func(ctx context.Context) error {
		if s.adapter == nil {
			return nil
		}
		entities := s.Catalog().Entities()
		if len(keys) > 0 {
			entities = nil
			for _, key := range keys {
				d, ok := s.Catalog().ByKey(key)
				if !ok {
					s.logger.Debug("ignoring change to unknown key", zap.String("key", key))
					continue
				}
				entities = append(entities, d.Entity())
			}
		}
		if len(entities) == 0 {
			return nil
		}
		snapshot, err := s.adapter.Load(ctx, entities...)
		if err != nil {
			return fmt.Errorf("reload: %w", err)
		}
		s.mu.Lock()
		err = s.store.ReplaceCollections(snapshot, entities...)
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("reload: %w", err)
		}
		s.logger.Info("collections reloaded", zap.Any("entities", entities))
		s.notify(Event{Reloaded: entities})
		return nil
	})
}

// Dispatch applies action in one transaction, writes the touched collections
// through to storage and notifies subscribers. Rule warnings are logged and
// returned in the outcome; blocking violations abort the action.
func (s *Service) Dispatch(ctx context.Context, action Action) (Outcome, error) {
	var out Outcome
	err := s.observe(ctx, "dispatch_"+string(action.Kind), func(ctx context.Context) error {
		var err error
		out, err = s.dispatch(ctx, action)
		return err
	})
	if err != nil {
		s.logger.Warn("dispatch failed",
			zap.String("action", string(action.Kind)),
			zap.String("entity", string(action.Entity)),
			zap.String("id", action.ID),
			zap.Error(err),
		)
	}
	return out, err
}

func (s *Service) dispatch(ctx context.Context, action Action) (Outcome, error) {
	if err := action.validate(); err != nil {
		return Outcome{}, err
	}
	s.mu.Lock()
	var rec Record
	res, changes, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		switch action.Kind {
		case ActionAdd:
			rec, err = tx.Create(action.Record)
		case ActionUpdate:
			rec, err = tx.Update(action.Entity, action.ID, action.Mutate)
		case ActionDelete:
			err = tx.Delete(action.Entity, action.ID)
		}
		return err
	})
	if err != nil {
		s.mu.Unlock()
		return Outcome{Result: res}, err
	}
	out := Outcome{Record: rec, Changes: changes, Result: res}
	ev := Event{Changes: changes}
	persistErr := s.persist(ctx, ev.Entities())
	s.mu.Unlock()

	s.logViolations(res)
	s.logger.Debug("action applied",
		zap.String("action", string(action.Kind)),
		zap.String("entity", string(action.Entity)),
		zap.Int("changes", len(changes)),
	)
	s.notify(ev)
	return out, persistErr
}

func (s *Service) persist(ctx context.Context, entities []EntityType) error {
	if s.adapter == nil || len(entities) == 0 {
		return nil
	}
	snapshot := make(Snapshot, len(entities))
	for _, entity := range entities {
		snapshot[entity] = s.store.List(entity)
	}
	if err := s.adapter.Persist(ctx, snapshot, entities...); err != nil {
		return fmt.Errorf("write through: %w", err)
	}
	return nil
}

func (s *Service) logViolations(res Result) {
	for _, v := range res.Violations {
		fields := []zap.Field{
			zap.String("rule", v.Rule),
			zap.String("entity", string(v.Entity)),
			zap.String("id", v.EntityID),
		}
		switch v.Severity {
		case SeverityWarn:
			s.logger.Warn(v.Message, fields...)
		default:
			s.logger.Info(v.Message, fields...)
		}
	}
}

// Watch reloads collections changed by other writers until ctx is done.
func (s *Service) Watch(ctx context.Context) error {
	if s.adapter == nil {
		return ErrWatchUnsupported
	}
	watcher, ok := s.adapter.Store().(kv.Watcher)
	if !ok {
		return ErrWatchUnsupported
	}
	events, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	for ev := range events {
		if err := s.Reload(ctx, ev.Key); err != nil {
			s.logger.Error("reload after external change failed", zap.String("key", ev.Key), zap.Error(err))
		}
	}
	return nil
}
