package devapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hirehub/portal/internal/wizard"
)

var (
	// ErrRecordNotFound is returned for unknown list record ids.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidRecord is returned when a payload misses required fields.
	ErrInvalidRecord = errors.New("invalid record")
)

type profile struct {
	raw   wizard.RawProfile
	lists wizard.Lists
}

// ProfileStore keeps wizard sub-resources per account in memory.
type ProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*profile
	now      func() time.Time
}

// NewProfileStore builds an empty store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]*profile), now: time.Now}
}

func (s *ProfileStore) get(accountID string) *profile {
	p, ok := s.profiles[accountID]
	if !ok {
		p = &profile{lists: emptyLists()}
		s.profiles[accountID] = p
	}
	return p
}

func emptyLists() wizard.Lists {
	return wizard.Lists{
		Education:  []wizard.Education{},
		Experience: []wizard.Experience{},
		Skills:     []wizard.Skill{},
		Interests:  []wizard.Interest{},
	}
}

// Snapshot returns copies of the profile documents and lists.
func (s *ProfileStore) Snapshot(accountID string) (wizard.RawProfile, wizard.Lists) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.get(accountID)
	lists := wizard.Lists{
		Education:  append([]wizard.Education{}, p.lists.Education...),
		Experience: append([]wizard.Experience{}, p.lists.Experience...),
		Skills:     append([]wizard.Skill{}, p.lists.Skills...),
		Interests:  append([]wizard.Interest{}, p.lists.Interests...),
	}
	return p.raw, lists
}

// SaveSection replaces one profile document.
func (s *ProfileStore) SaveSection(accountID string, key wizard.SectionKey, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.get(accountID)
	switch key {
	case wizard.SectionPersonal:
		return decodeInto(payload, &p.raw.Personal)
	case wizard.SectionAddress:
		return decodeInto(payload, &p.raw.Address)
	case wizard.SectionFamily:
		return decodeInto(payload, &p.raw.Family)
	case wizard.SectionSocioEconomic:
		return decodeInto(payload, &p.raw.SocioEconomic)
	case wizard.SectionCommunity:
		if err := decodeInto(payload, &p.raw.Community); err != nil {
			return err
		}
		now := s.now().UTC()
		p.raw.Community.SavedAt = &now
		return nil
	}
	return fmt.Errorf("%w: %s", wizard.ErrUnknownSection, key)
}

func decodeInto[T any](payload []byte, dst **T) error {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	*dst = &v
	return nil
}

// AddRecord appends a record to a list and returns its id. Adding the first
// education or experience record replaces the explicit opt-out.
func (s *ProfileStore) AddRecord(accountID string, key wizard.SectionKey, payload []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.get(accountID)
	id := uuid.NewString()
	var err error
	switch key {
	case wizard.SectionEducation:
		p.lists.Education, err = add(p.lists.Education, payload, func(r *wizard.Education) bool {
			r.ID = id
			return strings.TrimSpace(r.Institution) != ""
		})
		if err == nil {
			p.raw.HasNoFormalEducation = false
		}
	case wizard.SectionExperience:
		p.lists.Experience, err = add(p.lists.Experience, payload, func(r *wizard.Experience) bool {
			r.ID = id
			return strings.TrimSpace(r.CompanyName) != "" && strings.TrimSpace(r.JobTitle) != ""
		})
		if err == nil {
			p.raw.IsFresher = false
		}
	case wizard.SectionSkills:
		p.lists.Skills, err = add(p.lists.Skills, payload, func(r *wizard.Skill) bool {
			r.ID = id
			return strings.TrimSpace(r.Name) != ""
		})
	case wizard.SectionInterests:
		p.lists.Interests, err = add(p.lists.Interests, payload, func(r *wizard.Interest) bool {
			r.ID = id
			return strings.TrimSpace(r.Name) != ""
		})
	default:
		err = fmt.Errorf("%w: %s", wizard.ErrUnknownSection, key)
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func add[T any](list []T, payload []byte, prepare func(*T) bool) ([]T, error) {
	var rec T
	if err := json.Unmarshal(payload, &rec); err != nil {
		return list, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if !prepare(&rec) {
		return list, ErrInvalidRecord
	}
	return append(list, rec), nil
}

// UpdateRecord replaces a record, keeping its id.
func (s *ProfileStore) UpdateRecord(accountID string, key wizard.SectionKey, id string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.get(accountID)
	switch key {
	case wizard.SectionEducation:
		return replace(p.lists.Education, id, payload, func(r *wizard.Education) *string { return &r.ID })
	case wizard.SectionExperience:
		return replace(p.lists.Experience, id, payload, func(r *wizard.Experience) *string { return &r.ID })
	case wizard.SectionSkills:
		return replace(p.lists.Skills, id, payload, func(r *wizard.Skill) *string { return &r.ID })
	case wizard.SectionInterests:
		return replace(p.lists.Interests, id, payload, func(r *wizard.Interest) *string { return &r.ID })
	}
	return fmt.Errorf("%w: %s", wizard.ErrUnknownSection, key)
}

func replace[T any](list []T, id string, payload []byte, idOf func(*T) *string) error {
	for i := range list {
		if *idOf(&list[i]) != id {
			continue
		}
		var rec T
		if err := json.Unmarshal(payload, &rec); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		*idOf(&rec) = id
		list[i] = rec
		return nil
	}
	return ErrRecordNotFound
}

// DeleteRecord removes a record.
func (s *ProfileStore) DeleteRecord(accountID string, key wizard.SectionKey, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.get(accountID)
	var err error
	switch key {
	case wizard.SectionEducation:
		p.lists.Education, err = remove(p.lists.Education, id, func(r wizard.Education) string { return r.ID })
	case wizard.SectionExperience:
		p.lists.Experience, err = remove(p.lists.Experience, id, func(r wizard.Experience) string { return r.ID })
	case wizard.SectionSkills:
		p.lists.Skills, err = remove(p.lists.Skills, id, func(r wizard.Skill) string { return r.ID })
	case wizard.SectionInterests:
		p.lists.Interests, err = remove(p.lists.Interests, id, func(r wizard.Interest) string { return r.ID })
	default:
		err = fmt.Errorf("%w: %s", wizard.ErrUnknownSection, key)
	}
	return err
}

func remove[T any](list []T, id string, idOf func(T) string) ([]T, error) {
	for i := range list {
		if idOf(list[i]) == id {
			return append(list[:i:i], list[i+1:]...), nil
		}
	}
	return list, ErrRecordNotFound
}

// MarkNoFormalEducation sets the education opt-out.
func (s *ProfileStore) MarkNoFormalEducation(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(accountID).raw.HasNoFormalEducation = true
}

// MarkFresher sets the experience opt-out.
func (s *ProfileStore) MarkFresher(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(accountID).raw.IsFresher = true
}
