package ai

import (
	"strconv"
	"strings"
)

// CandidateProfile describes the candidate both prompts are written for.
type CandidateProfile struct {
	ExperienceYears float64 `mapstructure:"experience-years" json:"experience_years"`
	Role            string  `mapstructure:"role" json:"role"`
	TargetLevel     string  `mapstructure:"target-level" json:"target_level"`
	// ScorerRole is the shorter role label the scoring prompt uses.
	ScorerRole string `mapstructure:"scorer-role" json:"scorer_role"`
}

func DefaultProfile() CandidateProfile {
	return CandidateProfile{
		ExperienceYears: 1.5,
		Role:            "DevOps / Platform Engineering",
		TargetLevel:     "PE2 / Mid-level",
		ScorerRole:      "Dev / DevOps",
	}
}

// WithDefaults fills empty fields from DefaultProfile.
func (p CandidateProfile) WithDefaults() CandidateProfile {
	def := DefaultProfile()
	if p.ExperienceYears <= 0 {
		p.ExperienceYears = def.ExperienceYears
	}
	if strings.TrimSpace(p.Role) == "" {
		p.Role = def.Role
	}
	if strings.TrimSpace(p.TargetLevel) == "" {
		p.TargetLevel = def.TargetLevel
	}
	if strings.TrimSpace(p.ScorerRole) == "" {
		p.ScorerRole = def.ScorerRole
	}
	return p
}

// Experience formats the years without trailing zeros: 1.5, 2, 3.25.
func (p CandidateProfile) Experience() string {
	return strconv.FormatFloat(p.ExperienceYears, 'f', -1, 64)
}

// Placeholders returns the template replacements shared by every prompt.
func (p CandidateProfile) Placeholders() map[string]string {
	return map[string]string{
		"{{EXPERIENCE}}":   p.Experience(),
		"{{ROLE}}":         strings.TrimSpace(p.Role),
		"{{TARGET_LEVEL}}": strings.TrimSpace(p.TargetLevel),
		"{{SCORER_ROLE}}":  strings.TrimSpace(p.ScorerRole),
	}
}

// Render replaces every placeholder in template. Values are inserted verbatim.
func Render(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, key, value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
