package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Backend is the subset of the profile API the wizard needs.
type Backend interface {
	WizardProfile(ctx context.Context) (RawProfile, error)
	WizardLists(ctx context.Context) (Lists, error)
	SaveSection(ctx context.Context, key SectionKey, payload json.RawMessage) error
	CreateRecord(ctx context.Context, key SectionKey, payload json.RawMessage) error
	UpdateRecord(ctx context.Context, key SectionKey, id string, payload json.RawMessage) error
	DeleteRecord(ctx context.Context, key SectionKey, id string) error
	MarkNoFormalEducation(ctx context.Context) error
	MarkFresher(ctx context.Context) error
}

// SaveError reports a failed section write. The wizard state is left as it
// was before the write.
type SaveError struct {
	Section SectionKey
	Err     error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Section, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Service runs wizard loads and writes against the backend and keeps the
// engine in step. Each write is awaited before the state is recomputed from
// freshly fetched sub-resources.
type Service struct {
	backend Backend
	points  Points
	engine  *Engine
	logger  *slog.Logger

	// mu serialises loads and writes so a recompute can only be applied
	// after every earlier write of the session has landed.
	mu sync.Mutex
}

// NewService builds a wizard service for one session.
func NewService(backend Backend, points Points, logger *slog.Logger) *Service {
	if points == nil {
		points = DefaultPoints()
	}
	return &Service{
		backend: backend,
		points:  points,
		engine:  NewEngine(),
		logger:  logger.With("component", "wizard"),
	}
}

// Load starts a new wizard view load.
func (s *Service) Load(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Begin()
	return s.recompute(ctx)
}

// SaveSection writes a profile document section.
func (s *Service) SaveSection(ctx context.Context, key SectionKey, payload json.RawMessage) (View, error) {
	if !key.Valid() || key.ListBacked() {
		return s.engine.Current(), ErrUnknownSection
	}
	return s.mutate(ctx, key, func(ctx context.Context) error {
		return s.backend.SaveSection(ctx, key, payload)
	})
}

// AddRecord creates a record in a list-backed section.
func (s *Service) AddRecord(ctx context.Context, key SectionKey, payload json.RawMessage) (View, error) {
	if !key.ListBacked() {
		return s.engine.Current(), ErrUnknownSection
	}
	return s.mutate(ctx, key, func(ctx context.Context) error {
		return s.backend.CreateRecord(ctx, key, payload)
	})
}

// UpdateRecord updates a record in a list-backed section.
func (s *Service) UpdateRecord(ctx context.Context, key SectionKey, id string, payload json.RawMessage) (View, error) {
	if !key.ListBacked() {
		return s.engine.Current(), ErrUnknownSection
	}
	return s.mutate(ctx, key, func(ctx context.Context) error {
		return s.backend.UpdateRecord(ctx, key, id, payload)
	})
}

// RemoveRecord deletes a record from a list-backed section.
func (s *Service) RemoveRecord(ctx context.Context, key SectionKey, id string) (View, error) {
	if !key.ListBacked() {
		return s.engine.Current(), ErrUnknownSection
	}
	return s.mutate(ctx, key, func(ctx context.Context) error {
		return s.backend.DeleteRecord(ctx, key, id)
	})
}

// MarkNoFormalEducation records the explicit "no formal education" choice.
func (s *Service) MarkNoFormalEducation(ctx context.Context) (View, error) {
	return s.mutate(ctx, SectionEducation, s.backend.MarkNoFormalEducation)
}

// MarkFresher records the explicit "fresher" choice for experience.
func (s *Service) MarkFresher(ctx context.Context) (View, error) {
	return s.mutate(ctx, SectionExperience, s.backend.MarkFresher)
}

// Open expands a section on user request.
func (s *Service) Open(key SectionKey) (View, error) {
	return s.engine.Open(key)
}

// Current returns the last computed view without contacting the backend.
func (s *Service) Current() View {
	return s.engine.Current()
}

func (s *Service) mutate(ctx context.Context, key SectionKey, write func(context.Context) error) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := write(ctx); err != nil {
		s.logger.Warn("section save failed", slog.String("section", string(key)), slog.Any("error", err))
		return s.engine.Current(), &SaveError{Section: key, Err: err}
	}
	return s.recompute(ctx)
}

// recompute always reads the lists again; a cached completion flag could be
// stale after writes from another tab or a server-side correction.
func (s *Service) recompute(ctx context.Context) (View, error) {
	raw, err := s.backend.WizardProfile(ctx)
	if err != nil {
		return s.engine.Current(), fmt.Errorf("load wizard profile: %w", err)
	}
	lists, err := s.backend.WizardLists(ctx)
	if err != nil {
		return s.engine.Current(), fmt.Errorf("load wizard lists: %w", err)
	}
	return s.engine.Apply(Compute(s.points, raw, lists)), nil
}
