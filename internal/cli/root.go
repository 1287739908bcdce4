package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-scorer/internal/ai"
	"github.com/spigell/job-scorer/internal/ai/gemini"
	"github.com/spigell/job-scorer/internal/ai/openai"
	"github.com/spigell/job-scorer/internal/logger"
	"github.com/spigell/job-scorer/internal/scorer"
)

const (
	app = "job-scorer"

	defaultEnvFile      = ".env"
	defaultMaxLogLength = 200
)

type Config struct {
	Provider     string              `mapstructure:"provider"`
	MaxLogLength int                 `mapstructure:"max-log-length"`
	Profile      ai.CandidateProfile `mapstructure:"profile"`
	Gemini       GeminiConfig        `mapstructure:"gemini"`
	OpenAI       OpenAIConfig        `mapstructure:"openai"`
	Scoring      ScoringConfig       `mapstructure:"scoring"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type OpenAIConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base-url"`
}

type ScoringConfig struct {
	AutoApplyThresholds scorer.Thresholds `mapstructure:"auto-apply-thresholds"`
}

// errorRecord is printed for failures that happen before a component runs.
type errorRecord struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Usage   string `json:"usage,omitempty"`
}

// session holds the state of one process invocation.
type session struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
	logger *zap.Logger

	newGenerator generatorFactory
	exitCode     int
}

func newSession(stdout, stderr io.Writer, factory generatorFactory) *session {
	v := viper.New()

	v.SetDefault("provider", string(ai.ProviderGemini))
	v.SetDefault("max-log-length", defaultMaxLogLength)
	v.SetDefault("gemini.model", gemini.DefaultModel)
	v.SetDefault("gemini.max-retries", 1)
	v.SetDefault("openai.model", openai.DefaultModel)

	profile := ai.DefaultProfile()
	v.SetDefault("profile.experience-years", profile.ExperienceYears)
	v.SetDefault("profile.role", profile.Role)
	v.SetDefault("profile.target-level", profile.TargetLevel)
	v.SetDefault("profile.scorer-role", profile.ScorerRole)

	envBindings := map[string]string{
		"provider":            "AI_PROVIDER",
		"gemini.api-key":      "GEMINI_API_KEY",
		"gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"gemini.model":        "GEMINI_MODEL",
		"openai.api-key":      "OPENAI_API_KEY",
		"openai.api-key-file": "OPENAI_API_KEY_FILE",
		"openai.model":        "OPENAI_MODEL",
		"openai.base-url":     "OPENAI_BASE_URL",
	}
	for key, env := range envBindings {
		// BindEnv only fails when no key is given.
		_ = v.BindEnv(key, env)
	}

	if factory == nil {
		factory = newGenerator
	}

	return &session{
		v:            v,
		out:          stdout,
		errOut:       stderr,
		newGenerator: factory,
	}
}

// execute runs the command built by build and returns the process exit code.
func execute(build func(*session) *cobra.Command, args []string, stdin io.Reader, stdout, stderr io.Writer, factory generatorFactory) int {
	s := newSession(stdout, stderr, factory)

	cmd := build(s)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}

	return s.exitCode
}

// Execute runs the bundled jobscore command.
func Execute(args []string) int {
	return execute(newJobscoreCommand, args, os.Stdin, os.Stdout, os.Stderr, nil)
}

// ExecuteClassifier runs the standalone quick-classifier command.
func ExecuteClassifier(args []string) int {
	return execute(newClassifierCommand, args, os.Stdin, os.Stdout, os.Stderr, nil)
}

// ExecuteScorer runs the standalone job-scorer command.
func ExecuteScorer(args []string) int {
	return execute(newScorerCommand, args, os.Stdin, os.Stdout, os.Stderr, nil)
}

func newJobscoreCommand(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:           "jobscore",
		Short:         "jobscore classifies and scores job postings against a résumé with Gemini or OpenAI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	s.addPersistentFlags(root)

	classify := newClassifyCommand(s)
	classify.Use = "classify <provider> <job_json>"

	score := newScoreCommand(s)
	score.Use = "score <provider> <resume_json> <job_description>"

	root.AddCommand(classify, score, newClassifyBatchCommand(s), newVersionCommand())

	return root
}

func newClassifierCommand(s *session) *cobra.Command {
	cmd := newClassifyCommand(s)
	cmd.Use = "quick-classifier <provider> <job_json>"
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	s.addPersistentFlags(cmd)
	return cmd
}

func newScorerCommand(s *session) *cobra.Command {
	cmd := newScoreCommand(s)
	cmd.Use = "job-scorer <provider> <resume_json> <job_description>"
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	s.addPersistentFlags(cmd)
	return cmd
}

func (s *session) addPersistentFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "a config file (default is job-scorer.yaml in current directory)")
	flags.String("env-file", defaultEnvFile, "dotenv file loaded before reading the environment; empty disables it")
	flags.BoolP("debug", "d", false, "verbose/debug output")
	flags.BoolP("json", "j", false, "json format for logging")
	flags.Duration("timeout", 0, "provider call timeout (0 keeps the client default)")

	for _, name := range []string{"config", "env-file", "debug", "json", "timeout"} {
		_ = s.v.BindPFlag(name, flags.Lookup(name))
	}
}

// setup prepares the logger. It never fails: a broken logger falls back to a no-op one
// so the command can still print its JSON answer.
func (s *session) setup() {
	if s.logger != nil {
		return
	}

	lg, err := logger.New(s.v.GetBool("json"), s.v.GetBool("debug"))
	if err != nil {
		fmt.Fprintf(s.errOut, "creating a logger: %s\n", err)
		lg = zap.NewNop()
	}
	s.logger = logger.WithFields(lg, zap.String(logger.FieldRunID, uuid.NewString()))
}

// loadConfig reads the dotenv and config files and returns the merged configuration.
func (s *session) loadConfig() (*Config, error) {
	if envFile := strings.TrimSpace(s.v.GetString("env-file")); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, ai.NewConfigError(fmt.Sprintf("loading env file %s", envFile), err)
			}
		} else {
			s.logger.Debug("loaded env file", zap.String("path", envFile))
		}
	}

	if cfgFile := strings.TrimSpace(s.v.GetString("config")); cfgFile != "" {
		s.v.SetConfigFile(cfgFile)
		if err := s.v.ReadInConfig(); err != nil {
			return nil, ai.NewConfigError("reading config file", err)
		}
	} else {
		s.v.AddConfigPath(".")
		s.v.SetConfigName(app)
		if err := s.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, ai.NewConfigError("reading config file", err)
			}
		}
	}

	var config Config
	if err := s.v.Unmarshal(&config); err != nil {
		return nil, ai.NewConfigError("parsing config", err)
	}

	config.Profile = config.Profile.WithDefaults()
	if len(config.Scoring.AutoApplyThresholds) == 0 {
		config.Scoring.AutoApplyThresholds = scorer.DefaultThresholds()
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redact(config), "", "  ")
	s.logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return &config, nil
}

// context returns the command context bounded by --timeout.
func (s *session) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := s.v.GetDuration("timeout"); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// writeJSON prints v as a single line, or indented with two spaces.
func (s *session) writeJSON(v any, indent bool) {
	enc := json.NewEncoder(s.out)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}

	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(s.errOut, "encoding output: %s\n", err)
		s.exitCode = 1
	}
}

func redact(config Config) Config {
	if config.Gemini.APIKey != "" {
		config.Gemini.APIKey = "***"
	}
	if config.OpenAI.APIKey != "" {
		config.OpenAI.APIKey = "***"
	}
	return config
}

func usageError(usage string) errorRecord {
	return errorRecord{Error: "Invalid arguments", Usage: usage}
}

// parsePolicyFlag reads --on-error, falling back to def when the flag is absent.
func parsePolicyFlag(cmd *cobra.Command, def ai.FailurePolicy) (ai.FailurePolicy, error) {
	flag := cmd.Flags().Lookup("on-error")
	if flag == nil || !flag.Changed {
		return def, nil
	}
	return ai.ParseFailurePolicy(flag.Value.String())
}

func elapsed(start time.Time) zap.Field {
	return zap.Duration("elapsed", time.Since(start))
}
