package devapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirehub/portal/internal/wizard"
)

func TestAddingRecordsClearsOptOuts(t *testing.T) {
	s := NewProfileStore()
	s.MarkNoFormalEducation("u1")
	s.MarkFresher("u1")

	raw, _ := s.Snapshot("u1")
	require.True(t, raw.HasNoFormalEducation)
	require.True(t, raw.IsFresher)

	_, err := s.AddRecord("u1", wizard.SectionEducation, []byte(`{"institution":"MIT"}`))
	require.NoError(t, err)
	_, err = s.AddRecord("u1", wizard.SectionExperience, []byte(`{"companyName":"Acme","jobTitle":"Dev"}`))
	require.NoError(t, err)

	raw, lists := s.Snapshot("u1")
	assert.False(t, raw.HasNoFormalEducation)
	assert.False(t, raw.IsFresher)
	assert.Len(t, lists.Education, 1)
	assert.Len(t, lists.Experience, 1)
}

func TestRecordValidationAndLifecycle(t *testing.T) {
	s := NewProfileStore()

	_, err := s.AddRecord("u1", wizard.SectionSkills, []byte(`{"name":"  "}`))
	assert.ErrorIs(t, err, ErrInvalidRecord)
	_, err = s.AddRecord("u1", wizard.SectionSkills, []byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidRecord)
	_, err = s.AddRecord("u1", wizard.SectionPersonal, []byte(`{}`))
	assert.ErrorIs(t, err, wizard.ErrUnknownSection)

	id, err := s.AddRecord("u1", wizard.SectionSkills, []byte(`{"name":"Go"}`))
	require.NoError(t, err)

	require.NoError(t, s.UpdateRecord("u1", wizard.SectionSkills, id, []byte(`{"id":"spoofed","name":"Rust"}`)))
	_, lists := s.Snapshot("u1")
	require.Len(t, lists.Skills, 1)
	assert.Equal(t, id, lists.Skills[0].ID)
	assert.Equal(t, "Rust", lists.Skills[0].Name)

	assert.ErrorIs(t, s.UpdateRecord("u1", wizard.SectionSkills, "missing", []byte(`{}`)), ErrRecordNotFound)
	require.NoError(t, s.DeleteRecord("u1", wizard.SectionSkills, id))
	assert.ErrorIs(t, s.DeleteRecord("u1", wizard.SectionSkills, id), ErrRecordNotFound)
}

func TestSnapshotIsACopyAndAccountsAreIsolated(t *testing.T) {
	s := NewProfileStore()
	_, err := s.AddRecord("u1", wizard.SectionInterests, []byte(`{"name":"Chess"}`))
	require.NoError(t, err)

	_, lists := s.Snapshot("u1")
	lists.Interests[0].Name = "changed"
	_, again := s.Snapshot("u1")
	assert.Equal(t, "Chess", again.Interests[0].Name)

	_, other := s.Snapshot("u2")
	assert.Empty(t, other.Interests)
}

func TestCommunityRecordsSaveTime(t *testing.T) {
	s := NewProfileStore()
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	require.NoError(t, s.SaveSection("u1", wizard.SectionCommunity, []byte(`{"consent":true}`)))
	raw, _ := s.Snapshot("u1")
	require.NotNil(t, raw.Community)
	require.NotNil(t, raw.Community.SavedAt)
	assert.True(t, raw.Community.SavedAt.Equal(at))

	assert.ErrorIs(t, s.SaveSection("u1", wizard.SectionSkills, []byte(`{}`)), wizard.ErrUnknownSection)
}
