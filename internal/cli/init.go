package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/repoforge/repoforge/internal/branding"
	"github.com/repoforge/repoforge/internal/codegen"
	"github.com/repoforge/repoforge/internal/config"
	"github.com/repoforge/repoforge/internal/history"
	"github.com/repoforge/repoforge/internal/llm"
	"github.com/repoforge/repoforge/internal/logging"
	"github.com/repoforge/repoforge/internal/metrics"
	"github.com/repoforge/repoforge/internal/pipeline"
	"github.com/repoforge/repoforge/internal/project"
	"github.com/repoforge/repoforge/internal/prompt"
	"github.com/repoforge/repoforge/internal/standards"
	"github.com/repoforge/repoforge/internal/validate"
)

var (
	initConfigFile string
	initDir        string
	initType       string
	initLanguage   string
	initFramework  string
	initFeatures   []string
	initAuth       string
	initAuthz      string
	initControls   []string
	initCompliance []string
	initCI         string
	initStandards  string
	initWorkers    int
	initNoHistory  bool
)

func init() {
	f := initCmd.Flags()
	f.StringVarP(&initConfigFile, "config", "c", "", "Read the project configuration from a YAML file")
	f.StringVarP(&initDir, "dir", "d", ".", "Parent directory the project is created in")
	f.StringVarP(&initType, "type", "t", "", "Project type ("+joinValues(project.Types)+")")
	f.StringVarP(&initLanguage, "language", "l", "", "Language ("+joinValues(project.Languages)+")")
	f.StringVarP(&initFramework, "framework", "f", "", "Framework compatible with the language and type")
	f.StringSliceVar(&initFeatures, "features", nil, "Comma-separated features, generated in the given order")
	f.StringVar(&initAuth, "auth", "", "Authentication mode ("+strings.Join(project.AuthModes, ", ")+")")
	f.StringVar(&initAuthz, "authz", "", "Authorization model ("+strings.Join(project.AuthzModels, ", ")+")")
	f.StringSliceVar(&initCompliance, "compliance", nil, "Compliance frameworks ("+strings.Join(project.ComplianceFrameworks, ", ")+")")
	f.StringSliceVar(&initControls, "controls", nil, "Compliance control ids the generated code must reference")
	f.StringVar(&initCI, "ci", "", "CI system ("+strings.Join(project.CISystems, ", ")+")")
	f.StringVar(&initStandards, "standards", "", "Standards location (URL or directory); overrides the standards.source setting")
	f.IntVar(&initWorkers, "workers", 0, "Concurrent feature generations; overrides the pipeline.feature_workers setting")
	f.BoolVar(&initNoHistory, "no-history", false, "Do not record this run in the history database")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Generate a new project",
	Long: `Generate a new project by running the full generation pipeline.

The configuration comes from --config, from flags (a name plus --type and
--language at minimum), or, on a terminal with neither, from an interactive
questionnaire. The project is written to <dir>/<name>.

Feature generation failures are reported but do not stop the run. Any other
stage failure, or any failed validation check, aborts the run before the git
commit and exits with status 1; the partial project is left for inspection.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := resolveProjectConfig(cmd, args)
	if err != nil {
		return err
	}

	settings, err := config.Resolve()
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}
	if initStandards != "" {
		settings.StandardsSource = initStandards
	}
	if initWorkers > 0 {
		settings.FeatureWorkers = initWorkers
	}

	logger, err := logging.New(settings.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	provider, err := llm.New(settings.LLM)
	if err != nil {
		return fmt.Errorf("configuring %s provider (set %s or run `config set api_key`): %w",
			settings.LLM.Provider, branding.EnvVar("API_KEY"), err)
	}

	recorder := metrics.NewRecorder()
	client := codegen.NewClient(provider,
		codegen.WithRetryPolicy(settings.Retry),
		codegen.WithRequestsPerMinute(settings.RequestsPerMin),
		codegen.WithMaxTokens(settings.MaxTokens),
		codegen.WithLogger(logger),
		codegen.WithObserver(recorder.ObserveAttempt),
	)

	deps := pipeline.Deps{
		Standards:      standards.NewSource(settings.StandardsSource),
		Generator:      client,
		Validator:      validate.New(),
		Finalizer:      pipeline.GitFinalizer{},
		Observer:       newProgress(cmd.ErrOrStderr()),
		Metrics:        recorder,
		Logger:         logger,
		FeatureWorkers: settings.FeatureWorkers,
		ExcerptChars:   settings.ExcerptChars,
	}

	var store *history.Store
	if !initNoHistory && settings.HistoryPath != "" {
		store, err = history.Open(settings.HistoryPath)
		if err != nil {
			logger.Warn("run history disabled", zap.Error(err))
		} else {
			defer store.Close()
			deps.RunLog = store
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	projectDir := filepath.Join(initDir, cfg.Name)
	fmt.Fprintf(cmd.ErrOrStderr(), "Generating %s in %s (model %s)\n", cfg.Name, projectDir, provider.Model())

	out, err := pipeline.New(deps).Run(ctx, cfg, projectDir)
	if err != nil {
		return err
	}
	renderOutcome(cmd.OutOrStdout(), out)

	if settings.MetricsTextfile != "" {
		if err := recorder.WriteTextfile(settings.MetricsTextfile); err != nil {
			logger.Warn("writing metrics textfile", zap.String("path", settings.MetricsTextfile), zap.Error(err))
		}
	}
	if store != nil && settings.HistoryKeep > 0 {
		if _, err := store.Prune(cmd.Context(), settings.HistoryKeep); err != nil {
			logger.Warn("pruning run history", zap.Error(err))
		}
	}

	if !out.Completed() {
		return errReported
	}
	return nil
}

// resolveProjectConfig picks the configuration source: --config, flags, or
// the interactive questionnaire.
func resolveProjectConfig(cmd *cobra.Command, args []string) (*project.Config, error) {
	name := ""
	if len(args) == 1 {
		name = args[0]
	}

	if initConfigFile != "" {
		if projectFlagsSet(cmd) {
			return nil, fmt.Errorf("--config cannot be combined with project flags")
		}
		cfg, err := project.LoadFile(initConfigFile)
		if err != nil {
			return nil, err
		}
		if name != "" && name != cfg.Name {
			return nil, fmt.Errorf("name %q does not match %q in %s", name, cfg.Name, initConfigFile)
		}
		return cfg, nil
	}

	if projectFlagsSet(cmd) || name != "" && !prompt.IsInteractive(os.Stdin) {
		return configFromFlags(name)
	}

	if !prompt.IsInteractive(os.Stdin) {
		return nil, fmt.Errorf("no project configuration: pass --config, or a name with --type and --language")
	}
	return prompt.New(cmd.InOrStdin(), cmd.ErrOrStderr()).Run(name)
}

func projectFlagsSet(cmd *cobra.Command) bool {
	for _, flag := range []string{"type", "language", "framework", "features", "auth", "authz", "compliance", "controls", "ci"} {
		if cmd.Flags().Changed(flag) {
			return true
		}
	}
	return false
}

// configFromFlags builds a config from command-line flags.
func configFromFlags(name string) (*project.Config, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: a project name argument is required", project.ErrInvalidConfig)
	}
	cfg := &project.Config{
		Name:      name,
		Type:      project.Type(initType),
		Language:  project.Language(initLanguage),
		Framework: initFramework,
	}
	for _, raw := range initFeatures {
		f, err := project.ParseFeature(raw)
		if err != nil {
			return nil, err
		}
		cfg.Features = append(cfg.Features, f)
	}
	cfg.Security.Authentication = initAuth
	cfg.Security.Authorization = initAuthz
	cfg.Security.Controls = initControls
	cfg.Compliance.Frameworks = initCompliance
	cfg.Deployment.CI = initCI

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
