package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-scorer/internal/ai"
	"github.com/spigell/job-scorer/internal/logger"
	"github.com/spigell/job-scorer/internal/scorer"
)

const scoreUsage = "job-scorer <provider> <resume_json> <job_description>"

func newScoreCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Short: "Score a job description against a résumé",
		Long: `Score one job against a résumé. The result is printed as indented JSON.
Any failure produces an error record and exit code 1.`,
		Args: cobra.ArbitraryArgs,
		Run:  s.runScore,
	}

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().String("on-error", ai.SurfaceOnError.String(), "failure policy: degrade or surface")
	cmd.Flags().Bool("with-decision", false, "add auto_apply computed from scoring.auto-apply-thresholds")

	return cmd
}

func (s *session) runScore(cmd *cobra.Command, args []string) {
	s.setup()

	if len(args) < 3 {
		s.writeJSON(usageError(scoreUsage), false)
		s.exitCode = 1
		return
	}

	policy, err := parsePolicyFlag(cmd, ai.SurfaceOnError)
	if err != nil {
		s.writeJSON(errorRecord{Error: "Invalid arguments", Details: err.Error()}, false)
		s.exitCode = 1
		return
	}
	withDecision, _ := cmd.Flags().GetBool("with-decision")

	ctx, cancel := s.context(cmd)
	defer cancel()

	start := time.Now()

	resume, err := scorer.DecodeResume(args[1])
	if err != nil {
		s.scoringError(err)
		return
	}

	cfg, err := s.loadConfig()
	if err != nil {
		s.scoringError(err)
		return
	}

	sc, err := s.newScorer(ctx, args[0], cfg, policy)
	if err != nil {
		s.scoringError(err)
		return
	}

	outcome := sc.Score(ctx, scorer.Request{Resume: resume, JobDescription: args[2]})
	s.logger.Debug("scoring finished", zap.Bool("failed", outcome.Failed()), elapsed(start))

	if outcome.Failed() {
		s.writeJSON(outcome, true)
		s.exitCode = 1
		return
	}

	if withDecision {
		cfg.Scoring.AutoApplyThresholds.Decide(outcome.Result)
	}

	if outcome.Result.AutoApply != nil {
		s.logger.Info("auto-apply decision", zap.Bool("auto_apply", *outcome.Result.AutoApply))
	}

	s.writeJSON(outcome, true)
}

func (s *session) scoringError(err error) {
	s.logger.Warn("scoring did not start", zap.Error(err))
	s.writeJSON(errorRecord{Error: "Scoring error", Details: err.Error()}, false)
	s.exitCode = 1
}

func (s *session) newScorer(ctx context.Context, provider string, cfg *Config, policy ai.FailurePolicy) (*scorer.Scorer, error) {
	generator, err := s.buildGenerator(ctx, provider, cfg)
	if err != nil {
		return nil, err
	}

	lg := logger.WithComponent(s.logger, "scorer", policy.String())

	sc := scorer.New(generator, cfg.Profile, lg, cfg.MaxLogLength)
	sc.SetPolicy(policy)

	return sc, nil
}
