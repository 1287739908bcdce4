package scorer

// Rule is one auto-apply condition. Zero bounds are unset; every set bound must be met.
type Rule struct {
	SkillMatch  int `mapstructure:"skill-match" json:"skill_match,omitempty"`
	RoleStretch int `mapstructure:"role-stretch" json:"role_stretch,omitempty"`
	RiskReward  int `mapstructure:"risk-reward" json:"risk_reward,omitempty"`
}

// Thresholds is satisfied when any of its rules is.
type Thresholds []Rule

// DefaultThresholds leans toward applying: a decent skill match, or a cheap shot, is enough.
func DefaultThresholds() Thresholds {
	return Thresholds{
		{SkillMatch: 70, RoleStretch: 65},
		{SkillMatch: 75},
		{RiskReward: 70},
	}
}

func (t Thresholds) ShouldAutoApply(result *Result) bool {
	if result == nil {
		return false
	}
	for _, rule := range t {
		if rule.matches(result) {
			return true
		}
	}
	return false
}

func (r Rule) matches(result *Result) bool {
	set := false

	if r.SkillMatch > 0 {
		set = true
		if result.SkillMatch < r.SkillMatch {
			return false
		}
	}
	if r.RoleStretch > 0 {
		set = true
		if result.RoleStretch < r.RoleStretch {
			return false
		}
	}
	if r.RiskReward > 0 {
		set = true
		if result.RiskReward < r.RiskReward {
			return false
		}
	}

	return set
}

// Decide records the threshold decision on result.
func (t Thresholds) Decide(result *Result) {
	if result == nil {
		return
	}
	decision := t.ShouldAutoApply(result)
	result.AutoApply = &decision
}
