package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/job-scorer/internal/ai"
)

func titleEcho(req ai.Request) (string, error) {
	for _, line := range strings.Split(req.Prompt, "\n") {
		title, ok := strings.CutPrefix(line, "Title: ")
		if !ok {
			continue
		}
		if title == "broken" {
			return "", errors.New("provider unavailable")
		}
		return fmt.Sprintf(`{"relevant": false, "confidence": 90, "reason": %q}`, title), nil
	}
	return "", errors.New("no title")
}

func TestClassifyBatchKeepsInputOrder(t *testing.T) {
	stub := &stubGenerator{respond: titleEcho}
	c := New(stub, ai.DefaultProfile(), zap.NewNop(), 0)

	reqs := make([]Request, 12)
	for i := range reqs {
		reqs[i] = Request{JobTitle: fmt.Sprintf("job-%02d", i)}
	}

	results, err := c.ClassifyBatch(context.Background(), reqs, BatchOptions{Size: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	for i, result := range results {
		if result.Reason != reqs[i].JobTitle {
			t.Fatalf("result %d out of order: %+v", i, result)
		}
	}
	if len(stub.requests) != len(reqs) {
		t.Fatalf("expected %d provider calls, got %d", len(reqs), len(stub.requests))
	}
}

func TestClassifyBatchDegradesItemsIndependently(t *testing.T) {
	stub := &stubGenerator{respond: titleEcho}
	c := New(stub, ai.DefaultProfile(), zap.NewNop(), 0)

	reqs := []Request{{JobTitle: "ok-1"}, {JobTitle: "broken"}, {JobTitle: "ok-2"}}

	results, err := c.ClassifyBatch(context.Background(), reqs, DefaultBatchOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if results[0].Relevant || results[2].Relevant {
		t.Fatalf("healthy items must keep provider verdicts: %+v %+v", results[0], results[2])
	}
	if !results[1].Relevant || results[1].Confidence != DegradedConfidence {
		t.Fatalf("failing item must degrade: %+v", results[1])
	}
}

func TestClassifyBatchSurfacesFirstFailure(t *testing.T) {
	stub := &stubGenerator{respond: titleEcho}
	c := New(stub, ai.DefaultProfile(), zap.NewNop(), 0)
	c.SetPolicy(ai.SurfaceOnError)

	_, err := c.ClassifyBatch(context.Background(), []Request{{JobTitle: "ok"}, {JobTitle: "broken"}}, BatchOptions{Size: 2})
	if err == nil || !strings.Contains(err.Error(), "job 1") {
		t.Fatalf("expected failure for job 1, got %v", err)
	}
}

func TestClassifyBatchEmpty(t *testing.T) {
	c := New(&stubGenerator{}, ai.DefaultProfile(), zap.NewNop(), 0)

	results, err := c.ClassifyBatch(context.Background(), nil, DefaultBatchOptions())
	if err != nil || len(results) != 0 {
		t.Fatalf("expected empty result, got %v, %v", results, err)
	}
}
