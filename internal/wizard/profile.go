package wizard

import (
	"strings"
	"time"
)

// PersonalInfo is the personal profile sub-document.
type PersonalInfo struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	Biography   string `json:"biography,omitempty"`
}

// Address is the address sub-document.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Family is a bonus sub-document.
type Family struct {
	MaritalStatus string `json:"maritalStatus"`
	Dependents    *int   `json:"dependents,omitempty"`
}

// SocioEconomic is a bonus sub-document.
type SocioEconomic struct {
	IncomeBracket string `json:"incomeBracket"`
	Category      string `json:"category,omitempty"`
}

// Community has no required fields. It only counts once saved with consent.
type Community struct {
	Affiliations []string   `json:"affiliations,omitempty"`
	Consent      bool       `json:"consent"`
	SavedAt      *time.Time `json:"savedAt,omitempty"`
}

// RawProfile is the profile documents part of the backend wizard status.
type RawProfile struct {
	Personal             *PersonalInfo  `json:"personal,omitempty"`
	Address              *Address       `json:"address,omitempty"`
	Family               *Family        `json:"family,omitempty"`
	SocioEconomic        *SocioEconomic `json:"socioEconomic,omitempty"`
	Community            *Community     `json:"community,omitempty"`
	HasNoFormalEducation bool           `json:"hasNoFormalEducation"`
	IsFresher            bool           `json:"isFresher"`
}

// Education is one education record.
type Education struct {
	ID          string `json:"id"`
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	StartYear   int    `json:"startYear,omitempty"`
	EndYear     int    `json:"endYear,omitempty"`
	InProgress  bool   `json:"inProgress"`
}

// Experience is one work experience record.
type Experience struct {
	ID          string `json:"id"`
	CompanyName string `json:"companyName"`
	JobTitle    string `json:"jobTitle"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Current     bool   `json:"current"`
	Description string `json:"description,omitempty"`
}

// Skill is one skill record.
type Skill struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level string `json:"level,omitempty"`
}

// Interest is one interest record.
type Interest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Lists carries the list-backed sub-resources as fetched from the backend.
type Lists struct {
	Education  []Education  `json:"education"`
	Experience []Experience `json:"experience"`
	Skills     []Skill      `json:"skills"`
	Interests  []Interest   `json:"interests"`
}

func filled(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// completed applies the per-section presence rules.
func completed(key SectionKey, raw RawProfile, lists Lists) bool {
	switch key {
	case SectionPersonal:
		p := raw.Personal
		return p != nil && filled(p.FirstName, p.LastName, p.DateOfBirth, p.Gender)
	case SectionAddress:
		a := raw.Address
		return a != nil && filled(a.Line1, a.City, a.State, a.PostalCode, a.Country)
	case SectionEducation:
		// "No formal education" is a completed state of its own.
		return len(lists.Education) > 0 || raw.HasNoFormalEducation
	case SectionSkills:
		return len(lists.Skills) > 0
	case SectionExperience:
		return len(lists.Experience) > 0 || raw.IsFresher
	case SectionFamily:
		return raw.Family != nil && filled(raw.Family.MaritalStatus)
	case SectionSocioEconomic:
		return raw.SocioEconomic != nil && filled(raw.SocioEconomic.IncomeBracket)
	case SectionCommunity:
		return raw.Community != nil && raw.Community.Consent
	case SectionInterests:
		return len(lists.Interests) > 0
	}
	return false
}
