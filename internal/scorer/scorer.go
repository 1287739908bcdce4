package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/job-scorer/internal/ai"
	"github.com/spigell/job-scorer/internal/utils"
)

var (
	//go:embed system.md
	systemPrompt string
	//go:embed prompt.md
	promptTemplate string
)

const (
	Temperature = 0.1
	MaxTokens   = 1000

	// ErrParseFailed and ErrScoringFailed are the "error" values of a failure record.
	ErrParseFailed   = "Failed to parse AI response"
	ErrScoringFailed = "Scoring failed"

	// MaxRawResponseLength caps the provider text echoed back in a parse failure.
	MaxRawResponseLength = 500

	defaultMaxLogLength = 200
)

var responseSchema = ai.MustSchema("skill_match", "role_stretch", "risk_reward", "apply_recommendation")

// Request pairs a résumé with the job it is scored against.
type Request struct {
	// Resume is kept raw so key order survives into the prompt.
	Resume         json.RawMessage
	JobDescription string
}

// DecodeResume checks that payload is valid JSON and returns it unchanged.
func DecodeResume(payload string) (json.RawMessage, error) {
	var resume any
	if err := json.Unmarshal([]byte(payload), &resume); err != nil {
		return nil, fmt.Errorf("decode resume: %w", err)
	}
	return json.RawMessage(payload), nil
}

// Result is a successful score.
type Result struct {
	SkillMatch          int            `json:"skill_match"`
	RoleStretch         int            `json:"role_stretch"`
	RiskReward          int            `json:"risk_reward"`
	MissingSkills       []string       `json:"missing_skills"`
	ApplyRecommendation Recommendation `json:"apply_recommendation"`
	Reason              string         `json:"reason"`
	// AutoApply is only set when the caller asked for a threshold decision.
	AutoApply *bool `json:"auto_apply,omitempty"`
}

// ErrorRecord is printed instead of a Result when scoring fails.
type ErrorRecord struct {
	Error       string `json:"error"`
	Details     string `json:"details"`
	// RawResponse is set, possibly to "", for every parse failure and nil otherwise.
	RawResponse *string `json:"raw_response,omitempty"`
}

// Outcome holds exactly one of Result or Failure.
type Outcome struct {
	Result  *Result
	Failure *ErrorRecord
}

func (o *Outcome) Failed() bool { return o.Failure != nil }

func (o *Outcome) MarshalJSON() ([]byte, error) {
	if o.Failure != nil {
		return json.Marshal(o.Failure)
	}
	return json.Marshal(o.Result)
}

// Degraded is the score used under DegradeOnError: nothing is claimed and a human decides.
func Degraded(reason string) *Result {
	return &Result{
		MissingSkills:       []string{},
		ApplyRecommendation: HumanReview,
		Reason:              reason,
	}
}

// Scorer rates a job against a résumé on three axes and recommends an action.
type Scorer struct {
	generator ai.Generator
	profile   ai.CandidateProfile
	policy    ai.FailurePolicy
	logger    *zap.Logger
	maxLogLen int
}

// New returns a scorer with the SurfaceOnError policy.
func New(generator ai.Generator, profile ai.CandidateProfile, logger *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scorer{
		generator: generator,
		profile:   profile.WithDefaults(),
		policy:    ai.SurfaceOnError,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (s *Scorer) SetPolicy(policy ai.FailurePolicy) { s.policy = policy }

func (s *Scorer) Policy() ai.FailurePolicy { return s.policy }

// Score never returns a nil Outcome. Failures become an ErrorRecord, or a
// Degraded result when the policy is DegradeOnError.
func (s *Scorer) Score(ctx context.Context, req Request) *Outcome {
	result, err := s.score(ctx, req)
	if err == nil {
		return &Outcome{Result: result}
	}

	s.logger.Warn("scoring failed", zap.Error(err))

	if s.policy == ai.DegradeOnError {
		return &Outcome{Result: Degraded(fmt.Sprintf("Scoring error: %s", err))}
	}

	return &Outcome{Failure: failureRecord(err)}
}

func failureRecord(err error) *ErrorRecord {
	var perr *ai.ParseError
	if errors.As(err, &perr) {
		raw := utils.Truncate(perr.Raw, MaxRawResponseLength)
		return &ErrorRecord{
			Error:       ErrParseFailed,
			Details:     err.Error(),
			RawResponse: &raw,
		}
	}

	return &ErrorRecord{Error: ErrScoringFailed, Details: err.Error()}
}

func (s *Scorer) score(ctx context.Context, req Request) (*Result, error) {
	if s.generator == nil {
		return nil, ai.NewConfigError("scorer has no provider", nil)
	}

	prompt, err := BuildPrompt(s.profile, req)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("scoring request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.Generate(ctx, ai.Request{
		System:      strings.TrimSpace(systemPrompt),
		Prompt:      prompt,
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("scoring response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	result, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	s.logger.Info("scored job",
		zap.Int("skill_match", result.SkillMatch),
		zap.Int("role_stretch", result.RoleStretch),
		zap.Int("risk_reward", result.RiskReward),
		zap.String("apply_recommendation", string(result.ApplyRecommendation)),
	)

	return result, nil
}

func parseResponse(raw string) (*Result, error) {
	data, err := ai.DecodeObject(raw)
	if err != nil {
		return nil, err
	}

	if err := responseSchema.Validate(data); err != nil {
		return nil, err
	}

	var result Result
	if err := ai.Decode(data, &result); err != nil {
		return nil, err
	}

	recommendation, err := ParseRecommendation(string(result.ApplyRecommendation))
	if err != nil {
		return nil, &ai.ValidationError{Problems: []string{err.Error()}}
	}
	result.ApplyRecommendation = recommendation

	result.SkillMatch = clamp(result.SkillMatch)
	result.RoleStretch = clamp(result.RoleStretch)
	result.RiskReward = clamp(result.RiskReward)
	if result.MissingSkills == nil {
		result.MissingSkills = []string{}
	}
	result.AutoApply = nil

	return &result, nil
}

// BuildPrompt renders the user prompt. The résumé is re-indented with two spaces.
func BuildPrompt(profile ai.CandidateProfile, req Request) (string, error) {
	resume := req.Resume
	if len(bytes.TrimSpace(resume)) == 0 {
		resume = json.RawMessage("{}")
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, resume, "", "  "); err != nil {
		return "", fmt.Errorf("format resume: %w", err)
	}

	values := profile.WithDefaults().Placeholders()
	values["{{RESUME_JSON}}"] = indented.String()
	values["{{JOB_DESCRIPTION}}"] = req.JobDescription

	return ai.Render(strings.TrimRight(promptTemplate, "\n"), values), nil
}

// SystemPrompt returns the fixed instructions sent ahead of every scoring prompt.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
