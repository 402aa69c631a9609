package wizard

// SectionKey identifies one editable unit of the profile wizard.
type SectionKey string

const (
	SectionPersonal      SectionKey = "personal"
	SectionAddress       SectionKey = "address"
	SectionEducation     SectionKey = "education"
	SectionSkills        SectionKey = "skills"
	SectionExperience    SectionKey = "experience"
	SectionFamily        SectionKey = "family"
	SectionSocioEconomic SectionKey = "socioEconomic"
	SectionCommunity     SectionKey = "community"
	SectionInterests     SectionKey = "interests"
)

// RequiredSections is the fixed unlock order. Section i is unlocked only when
// section i-1 is completed.
var RequiredSections = []SectionKey{
	SectionPersonal,
	SectionAddress,
	SectionEducation,
	SectionSkills,
	SectionExperience,
}

// BonusSections never lock and never affect profile completeness.
var BonusSections = []SectionKey{
	SectionFamily,
	SectionSocioEconomic,
	SectionCommunity,
	SectionInterests,
}

// Valid reports whether k names a wizard section.
func (k SectionKey) Valid() bool {
	return k.requiredIndex() >= 0 || k.Optional()
}

// Optional reports whether k is a bonus section.
func (k SectionKey) Optional() bool {
	for _, b := range BonusSections {
		if b == k {
			return true
		}
	}
	return false
}

// ListBacked reports whether the section is backed by a record list rather
// than a single profile document.
func (k SectionKey) ListBacked() bool {
	switch k {
	case SectionEducation, SectionSkills, SectionExperience, SectionInterests:
		return true
	}
	return false
}

func (k SectionKey) requiredIndex() int {
	for i, r := range RequiredSections {
		if r == k {
			return i
		}
	}
	return -1
}

// Points holds the per-section point values. They are product tuning, so
// they come from configuration.
type Points map[SectionKey]int

// DefaultPoints returns the stock point table.
func DefaultPoints() Points {
	return Points{
		SectionPersonal:      20,
		SectionAddress:       15,
		SectionEducation:     15,
		SectionSkills:        15,
		SectionExperience:    15,
		SectionFamily:        5,
		SectionSocioEconomic: 5,
		SectionCommunity:     5,
		SectionInterests:     5,
	}
}

// Max sums every section's points.
func (p Points) Max() int {
	total := 0
	for _, k := range allSections() {
		total += p[k]
	}
	return total
}

func allSections() []SectionKey {
	out := make([]SectionKey, 0, len(RequiredSections)+len(BonusSections))
	out = append(out, RequiredSections...)
	return append(out, BonusSections...)
}
