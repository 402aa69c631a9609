package wizard

import (
	"errors"
	"math"
	"sync"
)

var (
	// ErrUnknownSection is returned for keys outside the wizard.
	ErrUnknownSection = errors.New("unknown wizard section")
	// ErrSectionLocked is returned when opening a section whose predecessor
	// is not completed.
	ErrSectionLocked = errors.New("wizard section is locked")
)

// SectionState is the derived state of one section card.
type SectionState struct {
	Key       SectionKey `json:"key"`
	Completed bool       `json:"completed"`
	Optional  bool       `json:"optional"`
	Locked    bool       `json:"locked"`
	Points    int        `json:"points"`
}

// Summary aggregates completion across sections.
type Summary struct {
	EarnedPoints           int  `json:"earnedPoints"`
	MaxPoints              int  `json:"maxPoints"`
	CompletionPercentage   int  `json:"completionPercentage"`
	CompletedRequiredCount int  `json:"completedRequiredCount"`
	TotalRequiredCount     int  `json:"totalRequiredCount"`
	IsProfileComplete      bool `json:"isProfileComplete"`
}

// State is the wizard view derived from the backend sub-resources. It holds
// no identity of its own and is rebuilt from scratch on every load and save.
type State struct {
	Sections map[SectionKey]SectionState `json:"sections"`
	Summary  Summary                     `json:"summary"`
	// FirstIncomplete is the first required section, in order, that is not
	// completed. Empty when all required sections are done.
	FirstIncomplete SectionKey `json:"firstIncomplete,omitempty"`
}

// Section returns the state of key.
func (s State) Section(key SectionKey) SectionState {
	return s.Sections[key]
}

// Compute derives the wizard state. It is total and deterministic.
func Compute(points Points, raw RawProfile, lists Lists) State {
	st := State{Sections: make(map[SectionKey]SectionState, len(RequiredSections)+len(BonusSections))}

	prevCompleted := true
	for _, key := range RequiredSections {
		done := completed(key, raw, lists)
		st.Sections[key] = SectionState{
			Key:       key,
			Completed: done,
			Locked:    !prevCompleted,
			Points:    points[key],
		}
		if done {
			st.Summary.CompletedRequiredCount++
			st.Summary.EarnedPoints += points[key]
		} else if st.FirstIncomplete == "" {
			st.FirstIncomplete = key
		}
		prevCompleted = done
	}

	for _, key := range BonusSections {
		done := completed(key, raw, lists)
		st.Sections[key] = SectionState{
			Key:       key,
			Completed: done,
			Optional:  true,
			Points:    points[key],
		}
		if done {
			st.Summary.EarnedPoints += points[key]
		}
	}

	st.Summary.MaxPoints = points.Max()
	st.Summary.TotalRequiredCount = len(RequiredSections)
	st.Summary.IsProfileComplete = st.Summary.CompletedRequiredCount == st.Summary.TotalRequiredCount
	st.Summary.CompletionPercentage = int(math.Round(
		float64(st.Summary.CompletedRequiredCount) * 100 / float64(st.Summary.TotalRequiredCount),
	))

	return st
}

// View is the state plus the currently expanded section.
type View struct {
	State
	Expanded SectionKey `json:"expanded,omitempty"`
}

// Engine owns the one piece of wizard state that is not derived: which
// section is expanded, and whether the automatic expansion already happened
// for the current load.
type Engine struct {
	mu                  sync.Mutex
	hasAutoExpandedOnce bool
	expanded            SectionKey
	state               State
	loaded              bool
}

// NewEngine returns an engine with no load in progress.
func NewEngine() *Engine {
	return &Engine{}
}

// Begin starts a new load of the wizard view, re-arming auto expansion.
func (e *Engine) Begin() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hasAutoExpandedOnce = false
	e.expanded = ""
}

// Apply replaces the derived state. The first application after Begin
// expands the first incomplete required section; later ones keep whatever
// the user has open.
func (e *Engine) Apply(st State) View {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = st
	e.loaded = true
	if !e.hasAutoExpandedOnce {
		e.expanded = st.FirstIncomplete
		e.hasAutoExpandedOnce = true
	}
	return View{State: e.state, Expanded: e.expanded}
}

// Open expands key on user request.
func (e *Engine) Open(key SectionKey) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !key.Valid() {
		return View{State: e.state, Expanded: e.expanded}, ErrUnknownSection
	}
	if e.loaded && e.state.Sections[key].Locked {
		return View{State: e.state, Expanded: e.expanded}, ErrSectionLocked
	}
	e.expanded = key
	e.hasAutoExpandedOnce = true
	return View{State: e.state, Expanded: e.expanded}, nil
}

// Current returns the last applied view.
func (e *Engine) Current() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return View{State: e.state, Expanded: e.expanded}
}
