package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-scorer/internal/ai"
	"github.com/spigell/job-scorer/internal/classifier"
	"github.com/spigell/job-scorer/internal/logger"
)

const classifyUsage = "quick-classifier <provider> <job_json>"

func newClassifyCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Short: "Decide whether a job posting is worth a full scoring pass",
		Long: `Classify one job posting. The job is a JSON object with optional
job_title, job_description and company fields. The verdict is printed as a single JSON line.
Failures keep the job: the answer is {"relevant":true,"confidence":50,...} and the exit code is 0,
unless --on-error=surface is given.

Exit codes: 0 for every verdict, degraded ones included. The exceptions are fewer than two
arguments, which prints {"error":"Invalid arguments","usage":...}, and failures under
--on-error=surface. Both exit with 1.`,
		Args: cobra.ArbitraryArgs,
		Run:  s.runClassify,
	}

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().String("on-error", ai.DegradeOnError.String(), "failure policy: degrade or surface")

	return cmd
}

func (s *session) runClassify(cmd *cobra.Command, args []string) {
	s.setup()

	if len(args) < 2 {
		s.writeJSON(usageError(classifyUsage), false)
		s.exitCode = 1
		return
	}

	policy, err := parsePolicyFlag(cmd, ai.DegradeOnError)
	if err != nil {
		s.writeJSON(errorRecord{Error: "Invalid arguments", Details: err.Error()}, false)
		s.exitCode = 1
		return
	}

	ctx, cancel := s.context(cmd)
	defer cancel()

	start := time.Now()
	result, err := s.classify(ctx, args[0], args[1], policy)
	if err != nil {
		s.logger.Warn("classification did not complete", zap.Error(err), elapsed(start))

		if policy == ai.SurfaceOnError {
			s.writeJSON(errorRecord{Error: "Classification failed", Details: err.Error()}, false)
			s.exitCode = 1
			return
		}

		s.writeJSON(classifier.Degraded(fmt.Sprintf("Error: %s", err)), false)
		return
	}

	s.logger.Info("classified job",
		zap.Bool("relevant", result.Relevant),
		zap.Int("confidence", result.Confidence),
		elapsed(start),
	)

	s.writeJSON(result, false)
}

// classify returns an error only for setup failures, or for any failure under SurfaceOnError.
func (s *session) classify(ctx context.Context, provider, payload string, policy ai.FailurePolicy) (*classifier.Result, error) {
	req, err := classifier.DecodeRequest(payload)
	if err != nil {
		return nil, err
	}

	c, err := s.newClassifier(ctx, provider, policy, ai.BreakerSettings{})
	if err != nil {
		return nil, err
	}

	return c.Classify(ctx, req)
}

func (s *session) newClassifier(ctx context.Context, provider string, policy ai.FailurePolicy, breaker ai.BreakerSettings) (*classifier.Classifier, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	generator, err := s.buildGenerator(ctx, provider, cfg)
	if err != nil {
		return nil, err
	}

	lg := logger.WithComponent(s.logger, "classifier", policy.String())
	generator = ai.WithBreaker(generator, breaker, lg)

	c := classifier.New(generator, cfg.Profile, lg, cfg.MaxLogLength)
	c.SetPolicy(policy)

	return c, nil
}
