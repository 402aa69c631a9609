package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend keeps wizard data in memory. Writes can be made to fail.
type fakeBackend struct {
	mu       sync.Mutex
	raw      RawProfile
	lists    Lists
	nextID   int
	failNext error
}

func (f *fakeBackend) WizardProfile(context.Context) (RawProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.raw, nil
}

func (f *fakeBackend) WizardLists(context.Context) (Lists, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Lists{
		Education:  append([]Education(nil), f.lists.Education...),
		Experience: append([]Experience(nil), f.lists.Experience...),
		Skills:     append([]Skill(nil), f.lists.Skills...),
		Interests:  append([]Interest(nil), f.lists.Interests...),
	}, nil
}

func (f *fakeBackend) fail() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeBackend) SaveSection(_ context.Context, key SectionKey, payload json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	switch key {
	case SectionPersonal:
		f.raw.Personal = new(PersonalInfo)
		return json.Unmarshal(payload, f.raw.Personal)
	case SectionAddress:
		f.raw.Address = new(Address)
		return json.Unmarshal(payload, f.raw.Address)
	case SectionCommunity:
		f.raw.Community = new(Community)
		return json.Unmarshal(payload, f.raw.Community)
	}
	return nil
}

func (f *fakeBackend) CreateRecord(_ context.Context, key SectionKey, _ json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.nextID++
	id := fmt.Sprintf("r%d", f.nextID)
	switch key {
	case SectionEducation:
		f.lists.Education = append(f.lists.Education, Education{ID: id})
	case SectionSkills:
		f.lists.Skills = append(f.lists.Skills, Skill{ID: id})
	case SectionExperience:
		f.lists.Experience = append(f.lists.Experience, Experience{ID: id})
	case SectionInterests:
		f.lists.Interests = append(f.lists.Interests, Interest{ID: id})
	}
	return nil
}

func (f *fakeBackend) UpdateRecord(context.Context, SectionKey, string, json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail()
}

func (f *fakeBackend) DeleteRecord(_ context.Context, key SectionKey, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	if key == SectionEducation {
		out := f.lists.Education[:0]
		for _, e := range f.lists.Education {
			if e.ID != id {
				out = append(out, e)
			}
		}
		f.lists.Education = out
	}
	return nil
}

func (f *fakeBackend) MarkNoFormalEducation(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.raw.HasNoFormalEducation = true
	return nil
}

func (f *fakeBackend) MarkFresher(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.raw.IsFresher = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServiceWalkthrough(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	svc := NewService(backend, nil, discardLogger())

	view, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, SectionPersonal, view.Expanded)

	view, err = svc.SaveSection(ctx, SectionPersonal, json.RawMessage(`{"firstName":"Asha","lastName":"Rao","dateOfBirth":"1998-02-11","gender":"female"}`))
	require.NoError(t, err)
	assert.True(t, view.Section(SectionPersonal).Completed)
	assert.False(t, view.Section(SectionAddress).Locked)
	assert.Equal(t, SectionPersonal, view.Expanded, "saves must not move the open section")

	_, err = svc.SaveSection(ctx, SectionAddress, json.RawMessage(`{"line1":"1 Main","city":"Pune","state":"MH","postalCode":"411001","country":"IN"}`))
	require.NoError(t, err)

	view, err = svc.MarkNoFormalEducation(ctx)
	require.NoError(t, err)
	assert.True(t, view.Section(SectionEducation).Completed)
	assert.False(t, view.Section(SectionSkills).Locked)

	_, err = svc.AddRecord(ctx, SectionSkills, json.RawMessage(`{"name":"Welding"}`))
	require.NoError(t, err)
	view, err = svc.MarkFresher(ctx)
	require.NoError(t, err)
	assert.True(t, view.Summary.IsProfileComplete)
	assert.Equal(t, 100, view.Summary.CompletionPercentage)
}

func TestServiceSaveFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	svc := NewService(backend, nil, discardLogger())

	before, err := svc.Load(ctx)
	require.NoError(t, err)

	boom := errors.New("backend unavailable")
	backend.failNext = boom
	after, err := svc.SaveSection(ctx, SectionCommunity, json.RawMessage(`{"consent":true}`))

	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, SectionCommunity, saveErr.Section)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, after)
	assert.False(t, after.Section(SectionCommunity).Completed)
}

func TestServiceRecomputesFromListsAfterRemoval(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{raw: RawProfile{Personal: completePersonal(), Address: completeAddress()}}
	svc := NewService(backend, nil, discardLogger())

	view, err := svc.AddRecord(ctx, SectionEducation, json.RawMessage(`{"institution":"COEP"}`))
	require.NoError(t, err)
	require.True(t, view.Section(SectionEducation).Completed)

	// Another tab removes the record; the next recompute must see it.
	backend.mu.Lock()
	backend.lists.Education = nil
	backend.mu.Unlock()

	view, err = svc.AddRecord(ctx, SectionInterests, json.RawMessage(`{"name":"Chess"}`))
	require.NoError(t, err)
	assert.False(t, view.Section(SectionEducation).Completed)
	assert.True(t, view.Section(SectionSkills).Locked)

	_, err = svc.AddRecord(ctx, SectionEducation, nil)
	require.NoError(t, err)
	view, err = svc.RemoveRecord(ctx, SectionEducation, "r3")
	require.NoError(t, err)
	assert.False(t, view.Section(SectionEducation).Completed)
}

func TestServiceRejectsWrongSectionKinds(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&fakeBackend{}, nil, discardLogger())

	_, err := svc.SaveSection(ctx, SectionSkills, nil)
	assert.ErrorIs(t, err, ErrUnknownSection)

	_, err = svc.AddRecord(ctx, SectionAddress, nil)
	assert.ErrorIs(t, err, ErrUnknownSection)

	_, err = svc.RemoveRecord(ctx, "hobbies", "x")
	assert.ErrorIs(t, err, ErrUnknownSection)
}

// stallingBackend parks the first lists read after stall is armed until
// release is closed.
type stallingBackend struct {
	*fakeBackend
	stall   chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *stallingBackend) WizardLists(ctx context.Context) (Lists, error) {
	lists, err := b.fakeBackend.WizardLists(ctx)
	parked := false
	b.once.Do(func() { parked = true })
	if parked {
		close(b.stall)
		<-b.release
	}
	return lists, err
}

func TestServiceConcurrentSavesNeverApplyStaleLists(t *testing.T) {
	ctx := context.Background()
	backend := &stallingBackend{
		fakeBackend: &fakeBackend{},
		stall:       make(chan struct{}),
		release:     make(chan struct{}),
	}
	svc := NewService(backend, DefaultPoints(), discardLogger())

	first := make(chan error, 1)
	go func() {
		_, err := svc.AddRecord(ctx, SectionSkills, json.RawMessage(`{"name":"Go"}`))
		first <- err
	}()
	<-backend.stall

	second := make(chan error, 1)
	go func() {
		_, err := svc.AddRecord(ctx, SectionInterests, json.RawMessage(`{"name":"Chess"}`))
		second <- err
	}()

	// Give the second save the chance to overtake the parked one.
	time.Sleep(50 * time.Millisecond)
	close(backend.release)

	require.NoError(t, <-first)
	require.NoError(t, <-second)

	view := svc.Current()
	assert.True(t, view.Section(SectionSkills).Completed)
	assert.True(t, view.Section(SectionInterests).Completed)
}
