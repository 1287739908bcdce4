package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-scorer/internal/ai"
	"github.com/spigell/job-scorer/internal/classifier"
)

const (
	defaultBreakerFailures = 3
	defaultBreakerTimeout  = time.Minute
)

func newClassifyBatchCommand(s *session) *cobra.Command {
	defaults := classifier.DefaultBatchOptions()

	cmd := &cobra.Command{
		Use:   "classify-batch",
		Short: "Classify a JSON array of job postings",
		Long: `Classify many job postings read from --file or stdin. Jobs are sent in windows of
--batch-size concurrent requests and a new window starts at most once per --pause.
The verdicts are printed as a JSON array in input order.`,
		Args: cobra.NoArgs,
		Run:  s.runClassifyBatch,
	}

	flags := cmd.Flags()
	flags.StringP("provider", "p", "", "provider to use (default from config or AI_PROVIDER)")
	flags.StringP("file", "f", "", "file with a JSON array of jobs (default stdin)")
	flags.Int("batch-size", defaults.Size, "jobs classified concurrently")
	flags.Duration("pause", defaults.Pause, "minimum interval between batch windows")
	flags.String("on-error", ai.DegradeOnError.String(), "failure policy: degrade or surface")
	flags.Uint32("breaker-failures", defaultBreakerFailures, "consecutive provider failures that stop further requests (0 disables)")
	flags.Duration("breaker-timeout", defaultBreakerTimeout, "how long an open breaker rejects requests")

	return cmd
}

func (s *session) runClassifyBatch(cmd *cobra.Command, _ []string) {
	s.setup()

	policy, err := parsePolicyFlag(cmd, ai.DegradeOnError)
	if err != nil {
		s.writeJSON(errorRecord{Error: "Invalid arguments", Details: err.Error()}, false)
		s.exitCode = 1
		return
	}

	payloads, err := readBatch(cmd)
	if err != nil {
		s.writeJSON(errorRecord{Error: "Invalid input", Details: err.Error()}, false)
		s.exitCode = 1
		return
	}

	start := time.Now()
	results, err := s.classifyBatch(cmd, payloads, policy)
	if err != nil {
		s.logger.Warn("batch classification did not complete", zap.Error(err), elapsed(start))

		if policy == ai.SurfaceOnError {
			s.writeJSON(errorRecord{Error: "Classification failed", Details: err.Error()}, false)
			s.exitCode = 1
			return
		}

		results = make([]*classifier.Result, len(payloads))
		for i := range results {
			results[i] = classifier.Degraded(fmt.Sprintf("Error: %s", err))
		}
	}

	s.logger.Info("classified batch", zap.Int("jobs", len(results)), elapsed(start))

	s.writeJSON(results, false)
}

func (s *session) classifyBatch(cmd *cobra.Command, payloads []json.RawMessage, policy ai.FailurePolicy) ([]*classifier.Result, error) {
	ctx, cancel := s.context(cmd)
	defer cancel()

	results := make([]*classifier.Result, len(payloads))

	// Jobs that fail to decode are answered up front; the rest go to the provider.
	var (
		reqs  []classifier.Request
		index []int
	)
	for i, payload := range payloads {
		req, err := classifier.DecodeRequest(string(payload))
		if err != nil {
			if policy == ai.SurfaceOnError {
				return nil, fmt.Errorf("job %d: %w", i, err)
			}
			results[i] = classifier.Degraded(fmt.Sprintf("Error: %s", err))
			continue
		}
		reqs = append(reqs, req)
		index = append(index, i)
	}

	if len(reqs) == 0 {
		return results, nil
	}

	provider, _ := cmd.Flags().GetString("provider")
	if strings.TrimSpace(provider) == "" {
		provider = s.v.GetString("provider")
	}

	failures, _ := cmd.Flags().GetUint32("breaker-failures")
	timeout, _ := cmd.Flags().GetDuration("breaker-timeout")

	c, err := s.newClassifier(ctx, provider, policy, ai.BreakerSettings{
		Name:                "classify-batch",
		ConsecutiveFailures: failures,
		Timeout:             timeout,
	})
	if err != nil {
		return nil, err
	}

	size, _ := cmd.Flags().GetInt("batch-size")
	pause, _ := cmd.Flags().GetDuration("pause")

	classified, err := c.ClassifyBatch(ctx, reqs, classifier.BatchOptions{Size: size, Pause: pause})
	if err != nil {
		return nil, err
	}

	for i, result := range classified {
		results[index[i]] = result
	}

	return results, nil
}

func readBatch(cmd *cobra.Command) ([]json.RawMessage, error) {
	var in io.Reader = cmd.InOrStdin()

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening jobs file: %w", err)
		}
		defer f.Close()
		in = f
	}

	var payloads []json.RawMessage
	if err := json.NewDecoder(in).Decode(&payloads); err != nil {
		return nil, fmt.Errorf("decode jobs: expected a JSON array: %w", err)
	}

	return payloads, nil
}
