package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/job-scorer/internal/ai"
	"github.com/spigell/job-scorer/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const (
	// SystemPrompt is sent to providers that accept a separate system message.
	SystemPrompt = "You are a job relevance classifier. Return only JSON."

	Temperature = 0.1
	MaxTokens   = 200

	// MaxDescriptionLength caps the description placed in the prompt, in characters.
	MaxDescriptionLength = 1000

	DegradedConfidence = 50

	defaultMaxLogLength = 200
)

var responseSchema = ai.MustSchema("relevant")

// Request is a job posting to classify. All fields are optional.
type Request struct {
	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description"`
	Company        string `json:"company"`
}

// Result is the relevance verdict printed by the classifier.
type Result struct {
	Relevant   bool   `json:"relevant"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

// Degraded is the result returned when classification cannot be trusted.
// Dropping a relevant job is costlier than scoring an irrelevant one, so it keeps the job.
func Degraded(reason string) *Result {
	return &Result{Relevant: true, Confidence: DegradedConfidence, Reason: reason}
}

// DecodeRequest parses the job payload passed on the command line.
func DecodeRequest(payload string) (Request, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return Request{}, fmt.Errorf("decode job payload: %w", err)
	}
	if data == nil {
		return Request{}, fmt.Errorf("job payload must be a JSON object")
	}

	var req Request
	if err := ai.Decode(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode job payload: %w", err)
	}

	return req, nil
}

// Classifier decides whether a job is worth a full scoring pass.
type Classifier struct {
	generator ai.Generator
	profile   ai.CandidateProfile
	policy    ai.FailurePolicy
	logger    *zap.Logger
	maxLogLen int
}

// New returns a classifier with the DegradeOnError policy.
func New(generator ai.Generator, profile ai.CandidateProfile, logger *zap.Logger, maxLogLength int) *Classifier {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Classifier{
		generator: generator,
		profile:   profile.WithDefaults(),
		policy:    ai.DegradeOnError,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (c *Classifier) SetPolicy(policy ai.FailurePolicy) { c.policy = policy }

func (c *Classifier) Policy() ai.FailurePolicy { return c.policy }

// Classify asks the provider for a verdict. With DegradeOnError the error is
// always nil and failures come back as a Degraded result.
func (c *Classifier) Classify(ctx context.Context, req Request) (*Result, error) {
	result, err := c.classify(ctx, req)
	if err == nil {
		return result, nil
	}

	if c.policy == ai.SurfaceOnError {
		return nil, err
	}

	c.logger.Warn("classification failed, keeping the job",
		zap.String("job_title", req.JobTitle),
		zap.Error(err),
	)

	return Degraded(fmt.Sprintf("Classification error: %s", err)), nil
}

func (c *Classifier) classify(ctx context.Context, req Request) (*Result, error) {
	if c.generator == nil {
		return nil, ai.NewConfigError("classifier has no provider", nil)
	}

	prompt := BuildPrompt(c.profile, req)

	c.logger.Debug("classification request",
		zap.String("job_title", req.JobTitle),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
	)

	raw, err := c.generator.Generate(ctx, ai.Request{
		System:      SystemPrompt,
		Prompt:      prompt,
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("classification response",
		zap.String("job_title", req.JobTitle),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	return parseResponse(raw)
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

	result.Confidence = clamp(result.Confidence)

	return &result, nil
}

// BuildPrompt renders the classification prompt. The description is cut to
// MaxDescriptionLength characters.
func BuildPrompt(profile ai.CandidateProfile, req Request) string {
	values := profile.WithDefaults().Placeholders()
	values["{{JOB_TITLE}}"] = req.JobTitle
	values["{{COMPANY}}"] = req.Company
	values["{{JOB_DESCRIPTION}}"] = utils.Truncate(req.JobDescription, MaxDescriptionLength)

	return ai.Render(strings.TrimRight(promptTemplate, "\n"), values)
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
