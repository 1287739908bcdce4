package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/job-scorer/internal/ai"
)

type stubGenerator struct {
	response string
	err      error
	last     ai.Request
	calls    int
}

func (s *stubGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

var testResume = json.RawMessage(`{"name": "Test", "skills": ["Kubernetes", "Terraform"]}`)

const fullResponse = `{
  "skill_match": 82,
  "role_stretch": 70,
  "risk_reward": 65,
  "missing_skills": ["Go", "Istio"],
  "apply_recommendation": "auto_apply",
  "reason": "Strong infra overlap"
}`

func decodeOutcome(t *testing.T, outcome *Outcome) map[string]any {
	t.Helper()
	data, err := json.Marshal(outcome)
	if err != nil {
		t.Fatalf("marshal outcome: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal outcome: %v", err)
	}
	return decoded
}

func TestScoreSuccess(t *testing.T) {
	stub := &stubGenerator{response: "```json\n" + fullResponse + "\n```"}
	s := New(stub, ai.DefaultProfile(), zap.NewNop(), 0)

	outcome := s.Score(context.Background(), Request{Resume: testResume, JobDescription: "Platform Engineer, EKS"})
	if outcome.Failed() {
		t.Fatalf("unexpected failure: %+v", outcome.Failure)
	}

	result := outcome.Result
	if result.SkillMatch != 82 || result.RoleStretch != 70 || result.RiskReward != 65 {
		t.Fatalf("unexpected scores: %+v", result)
	}
	if result.ApplyRecommendation != AutoApply {
		t.Fatalf("unexpected recommendation: %q", result.ApplyRecommendation)
	}
	if len(result.MissingSkills) != 2 || result.MissingSkills[0] != "Go" {
		t.Fatalf("unexpected missing skills: %v", result.MissingSkills)
	}

	decoded := decodeOutcome(t, outcome)
	if _, ok := decoded["auto_apply"]; ok {
		t.Fatal("auto_apply must be omitted unless requested")
	}

	if stub.last.System != SystemPrompt() {
		t.Fatalf("unexpected system prompt: %q", stub.last.System)
	}
	if stub.last.Temperature != Temperature || stub.last.MaxTokens != MaxTokens {
		t.Fatalf("unexpected sampling settings: %v / %d", stub.last.Temperature, stub.last.MaxTokens)
	}
}

func TestScoreMissingFieldSurfacesError(t *testing.T) {
	fields := []string{"skill_match", "role_stretch", "risk_reward", "apply_recommendation"}

	for _, field := range fields {
		t.Run(field, func(t *testing.T) {
			var data map[string]any
			if err := json.Unmarshal([]byte(fullResponse), &data); err != nil {
				t.Fatal(err)
			}
			delete(data, field)
			raw, _ := json.Marshal(data)

			s := New(&stubGenerator{response: string(raw)}, ai.DefaultProfile(), zap.NewNop(), 0)
			outcome := s.Score(context.Background(), Request{Resume: testResume, JobDescription: "x"})

			decoded := decodeOutcome(t, outcome)
			if decoded["error"] != ErrScoringFailed {
				t.Fatalf("expected scoring failure, got %v", decoded)
			}
			if _, ok := decoded["skill_match"]; ok {
				t.Fatalf("error record must not carry skill_match: %v", decoded)
			}
			if !strings.Contains(decoded["details"].(string), field) {
				t.Fatalf("details must name %s: %v", field, decoded["details"])
			}
			if _, ok := decoded["raw_response"]; ok {
				t.Fatal("raw_response is only set for parse failures")
			}
		})
	}
}

func TestScoreParseFailureKeepsRawResponse(t *testing.T) {
	long := "not json " + strings.Repeat("x", 600)
	s := New(&stubGenerator{response: long}, ai.DefaultProfile(), zap.NewNop(), 0)

	outcome := s.Score(context.Background(), Request{Resume: testResume, JobDescription: "x"})
	if !outcome.Failed() {
		t.Fatal("expected failure")
	}
	if outcome.Failure.Error != ErrParseFailed {
		t.Fatalf("unexpected error: %q", outcome.Failure.Error)
	}
	if outcome.Failure.RawResponse == nil {
		t.Fatal("expected raw response")
	}
	raw := *outcome.Failure.RawResponse
	if len([]rune(raw)) != MaxRawResponseLength {
		t.Fatalf("expected raw response cut to %d, got %d", MaxRawResponseLength, len([]rune(raw)))
	}
	if !strings.HasPrefix(raw, "not json") {
		t.Fatalf("unexpected raw response: %q", raw)
	}
	if outcome.Failure.Details == "" {
		t.Fatal("expected parse details")
	}
}

func TestScoreParseFailureOnEmptyFenceKeepsRawResponseKey(t *testing.T) {
	s := New(&stubGenerator{response: "```json\n```"}, ai.DefaultProfile(), zap.NewNop(), 0)

	outcome := s.Score(context.Background(), Request{Resume: testResume, JobDescription: "x"})

	decoded := decodeOutcome(t, outcome)
	if decoded["error"] != ErrParseFailed {
		t.Fatalf("expected parse failure, got %v", decoded)
	}
	raw, ok := decoded["raw_response"]
	if !ok {
		t.Fatalf("raw_response must be present on parse failures: %v", decoded)
	}
	if raw != "" {
		t.Fatalf("expected empty raw response, got %q", raw)
	}
}

func TestScoreNonObjectJSONIsAScoringFailure(t *testing.T) {
	for _, response := range []string{"[1, 2]", "null", "```json\n\"ok\"\n```"} {
		t.Run(response, func(t *testing.T) {
			s := New(&stubGenerator{response: response}, ai.DefaultProfile(), zap.NewNop(), 0)

			outcome := s.Score(context.Background(), Request{Resume: testResume, JobDescription: "x"})
			if !outcome.Failed() {
				t.Fatal("expected failure")
			}
			if outcome.Failure.Error != ErrScoringFailed {
				t.Fatalf("expected %q, got %q", ErrScoringFailed, outcome.Failure.Error)
			}
			if outcome.Failure.RawResponse != nil {
				t.Fatalf("raw_response is only set for parse failures, got %q", *outcome.Failure.RawResponse)
			}
		})
	}
}

func TestScoreProviderErrorSurfaces(t *testing.T) {
	s := New(&stubGenerator{err: errors.New("deadline exceeded")}, ai.DefaultProfile(), zap.NewNop(), 0)

	outcome := s.Score(context.Background(), Request{Resume: testResume, JobDescription: "x"})
	if !outcome.Failed() || outcome.Failure.Error != ErrScoringFailed {
		t.Fatalf("expected scoring failure, got %+v", outcome)
	}
	if outcome.Failure.Details != "deadline exceeded" {
		t.Fatalf("unexpected details: %q", outcome.Failure.Details)
	}
}

func TestScoreRejectsUnknownRecommendation(t *testing.T) {
	response := strings.Replace(fullResponse, `"auto_apply"`, `"maybe later"`, 1)
	s := New(&stubGenerator{response: response}, ai.DefaultProfile(), zap.NewNop(), 0)

	outcome := s.Score(context.Background(), Request{Resume: testResume, JobDescription: "x"})
	if !outcome.Failed() || !strings.Contains(outcome.Failure.Details, "apply_recommendation") {
		t.Fatalf("expected recommendation failure, got %+v", outcome)
	}
}

func TestScoreDegradeOnError(t *testing.T) {
	s := New(&stubGenerator{response: "not json"}, ai.DefaultProfile(), zap.NewNop(), 0)
	s.SetPolicy(ai.DegradeOnError)

	outcome := s.Score(context.Background(), Request{Resume: testResume, JobDescription: "x"})
	if outcome.Failed() {
		t.Fatalf("degrade policy must not produce error records: %+v", outcome.Failure)
	}
	if outcome.Result.ApplyRecommendation != HumanReview {
		t.Fatalf("expected human review, got %q", outcome.Result.ApplyRecommendation)
	}
	if !strings.HasPrefix(outcome.Result.Reason, "Scoring error: ") {
		t.Fatalf("unexpected reason: %q", outcome.Result.Reason)
	}
}

func TestBuildPromptKeepsResumeOrder(t *testing.T) {
	prompt, err := BuildPrompt(ai.DefaultProfile(), Request{
		Resume:         json.RawMessage(`{"zeta":1,"alpha":{"b":2}}`),
		JobDescription: strings.Repeat("long ", 400),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedResume := "{\n  \"zeta\": 1,\n  \"alpha\": {\n    \"b\": 2\n  }\n}"
	if !strings.Contains(prompt, "Resume Profile:\n"+expectedResume+"\n") {
		t.Fatalf("resume not indented in order: %s", prompt)
	}
	if !strings.Contains(prompt, strings.Repeat("long ", 400)) {
		t.Fatal("job description must not be truncated")
	}
	if !strings.Contains(prompt, "Candidate Experience: 1.5 years (Dev / DevOps)") {
		t.Fatalf("profile not rendered: %s", prompt)
	}
	if strings.Contains(prompt, "{{") {
		t.Fatalf("unreplaced placeholder: %s", prompt)
	}
}

func TestDecodeResume(t *testing.T) {
	if _, err := DecodeResume(`{"skills": ["Go"]}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := DecodeResume(`{"skills": `); err == nil {
		t.Fatal("expected error for invalid resume")
	}
}

func TestParseRecommendation(t *testing.T) {
	cases := map[string]Recommendation{
		"auto_apply":     AutoApply,
		" Human Review ": HumanReview,
		"Auto-Apply":     AutoApply,
		"SKIP":           Skip,
	}
	for input, expected := range cases {
		got, err := ParseRecommendation(input)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", input, err)
		}
		if got != expected {
			t.Fatalf("%q: expected %q, got %q", input, expected, got)
		}
	}

	if _, err := ParseRecommendation("apply"); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuildPromptMatchesGolden(t *testing.T) {
	prompt, err := BuildPrompt(ai.DefaultProfile(), Request{
		Resume:         json.RawMessage(`{"name":"Test","skills":["Kubernetes","Terraform"]}`),
		JobDescription: "Platform Engineer, EKS and ArgoCD.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	golden, err := os.ReadFile(filepath.Join("testdata", "default_prompt.golden"))
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	if prompt != string(golden) {
		t.Fatalf("prompt differs from golden:\n--- got ---\n%s\n--- want ---\n%s", prompt, golden)
	}

	system, err := os.ReadFile(filepath.Join("testdata", "system_prompt.golden"))
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	if SystemPrompt() != string(system) {
		t.Fatalf("system prompt differs from golden:\n%s", SystemPrompt())
	}
}
