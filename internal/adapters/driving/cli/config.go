package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	coreservices "github.com/custodia-labs/deep-researcher/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change configuration",
	Long: `View and configure the data directory, AI providers, index metric,
research loop bounds and chunker.

Without a subcommand, prints the current settings.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting key with its effective value",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Long: `Changes one setting. API keys may be omitted from the command line, in
which case they are read from the terminal without echo.

Run 'deep-researcher config list' for the available keys.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider interactively",
	Args:  cobra.NoArgs,
	RunE:  runConfigEmbedding,
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure the LLM provider interactively",
	Args:  cobra.NoArgs,
	RunE:  runConfigLLM,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check settings and ping configured providers",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configLLMCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

// setting maps a config key onto AppSettings.
type setting struct {
	get    func(s *domain.AppSettings) string
	set    func(s *domain.AppSettings, raw string) (any, error)
	secret bool
}

var settingFields = map[string]setting{
	coreservices.KeyDataDir: {
		get: func(s *domain.AppSettings) string { return s.DataDir },
		set: func(s *domain.AppSettings, raw string) (any, error) {
			if raw == "" {
				return nil, errors.New("data directory cannot be empty")
			}
			s.DataDir = raw
			return raw, nil
		},
	},
	coreservices.KeyEmbedProvider: {
		get: func(s *domain.AppSettings) string { return s.Embedding.Provider.String() },
		set: func(s *domain.AppSettings, raw string) (any, error) {
			p := domain.AIProvider(raw)
			if !p.IsValid() || p == domain.AIProviderAnthropic {
				return nil, fmt.Errorf("unsupported embedding provider %q", raw)
			}
			s.Embedding.Provider = p
			return raw, nil
		},
	},
	coreservices.KeyEmbedModel: {
		get: func(s *domain.AppSettings) string { return s.Embedding.Model },
		set: func(s *domain.AppSettings, raw string) (any, error) { s.Embedding.Model = raw; return raw, nil },
	},
	coreservices.KeyEmbedBaseURL: {
		get: func(s *domain.AppSettings) string { return s.Embedding.BaseURL },
		set: func(s *domain.AppSettings, raw string) (any, error) { s.Embedding.BaseURL = raw; return raw, nil },
	},
	coreservices.KeyEmbedAPIKey: {
		get:    func(s *domain.AppSettings) string { return s.Embedding.APIKey },
		set:    func(s *domain.AppSettings, raw string) (any, error) { s.Embedding.APIKey = raw; return raw, nil },
		secret: true,
	},
	coreservices.KeyEmbedDimensions: {
		get: func(s *domain.AppSettings) string { return strconv.Itoa(s.Embedding.Dimensions) },
		set: positiveInt(func(s *domain.AppSettings, v int) { s.Embedding.Dimensions = v }),
	},
	coreservices.KeyEmbedBatchSize: {
		get: func(s *domain.AppSettings) string { return strconv.Itoa(s.Embedding.BatchSize) },
		set: positiveInt(func(s *domain.AppSettings, v int) { s.Embedding.BatchSize = v }),
	},
	coreservices.KeyEmbedRateLimit: {
		get: func(s *domain.AppSettings) string { return formatFloat(s.Embedding.RateLimit) },
		set: func(s *domain.AppSettings, raw string) (any, error) {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("rate limit must be a non-negative number, got %q", raw)
			}
			s.Embedding.RateLimit = v
			return v, nil
		},
	},
	coreservices.KeyLLMProvider: {
		get: func(s *domain.AppSettings) string { return s.LLM.Provider.String() },
		set: func(s *domain.AppSettings, raw string) (any, error) {
			p := domain.AIProvider(raw)
			if raw != "" && (!p.IsValid() || p == domain.AIProviderLocal) {
				return nil, fmt.Errorf("unsupported LLM provider %q", raw)
			}
			s.LLM.Provider = p
			return raw, nil
		},
	},
	coreservices.KeyLLMModel: {
		get: func(s *domain.AppSettings) string { return s.LLM.Model },
		set: func(s *domain.AppSettings, raw string) (any, error) { s.LLM.Model = raw; return raw, nil },
	},
	coreservices.KeyLLMBaseURL: {
		get: func(s *domain.AppSettings) string { return s.LLM.BaseURL },
		set: func(s *domain.AppSettings, raw string) (any, error) { s.LLM.BaseURL = raw; return raw, nil },
	},
	coreservices.KeyLLMAPIKey: {
		get:    func(s *domain.AppSettings) string { return s.LLM.APIKey },
		set:    func(s *domain.AppSettings, raw string) (any, error) { s.LLM.APIKey = raw; return raw, nil },
		secret: true,
	},
	coreservices.KeyIndexMetric: {
		get: func(s *domain.AppSettings) string { return s.Index.Metric.String() },
		set: func(s *domain.AppSettings, raw string) (any, error) {
			m := domain.Metric(raw)
			if !m.IsValid() {
				return nil, fmt.Errorf("unknown metric %q (want one of %v)", raw, domain.AllMetrics())
			}
			s.Index.Metric = m
			return raw, nil
		},
	},
	coreservices.KeyResearchMaxSteps: {
		get: func(s *domain.AppSettings) string { return strconv.Itoa(s.Research.MaxSteps) },
		set: positiveInt(func(s *domain.AppSettings, v int) { s.Research.MaxSteps = v }),
	},
	coreservices.KeyResearchKPerStep: {
		get: func(s *domain.AppSettings) string { return strconv.Itoa(s.Research.KPerStep) },
		set: positiveInt(func(s *domain.AppSettings, v int) { s.Research.KPerStep = v }),
	},
	coreservices.KeyResearchThreshold: {
		get: func(s *domain.AppSettings) string { return formatFloat(s.Research.SimilarityThreshold) },
		set: func(s *domain.AppSettings, raw string) (any, error) {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("threshold must be a number, got %q", raw)
			}
			s.Research.SimilarityThreshold = v
			return v, nil
		},
	},
	coreservices.KeyChunkerChunkSize: {
		get: func(s *domain.AppSettings) string { return strconv.Itoa(s.Chunker.ChunkSize) },
		set: positiveInt(func(s *domain.AppSettings, v int) { s.Chunker.ChunkSize = v }),
	},
	coreservices.KeyChunkerOverlap: {
		get: func(s *domain.AppSettings) string { return strconv.Itoa(s.Chunker.Overlap) },
		set: func(s *domain.AppSettings, raw string) (any, error) {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("overlap must be a non-negative integer, got %q", raw)
			}
			s.Chunker.Overlap = v
			return v, nil
		},
	},
}

func positiveInt(apply func(s *domain.AppSettings, v int)) func(*domain.AppSettings, string) (any, error) {
	return func(s *domain.AppSettings, raw string) (any, error) {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("expected a positive integer, got %q", raw)
		}
		apply(s, v)
		return v, nil
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func lookupSetting(key string) (setting, error) {
	f, ok := settingFields[key]
	if !ok {
		return setting{}, fmt.Errorf("%w: unknown key %q", domain.ErrInvalidConfig, key)
	}
	return f, nil
}

func displayValue(f setting, settings *domain.AppSettings) string {
	v := f.get(settings)
	switch {
	case f.secret && v != "":
		return maskAPIKey(v)
	case v == "":
		return "(not set)"
	default:
		return v
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	out := cmd.OutOrStdout()
	st := newStyles(out)

	fmt.Fprintln(out, st.Title.Render("[Data]"))
	fmt.Fprintf(out, "  Directory: %s\n\n", settings.DataDir)

	fmt.Fprintln(out, st.Title.Render("[Embedding]"))
	fmt.Fprintf(out, "  Provider: %s\n", settings.Embedding.Provider.Description())
	fmt.Fprintf(out, "  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		fmt.Fprintf(out, "  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		fmt.Fprintf(out, "  API Key: %s\n", displayValue(settingFields[coreservices.KeyEmbedAPIKey], settings))
	}
	fmt.Fprintf(out, "  Status: %s\n\n", configuredLabel(settings.Embedding.IsConfigured()))

	fmt.Fprintln(out, st.Title.Render("[LLM]"))
	if settings.LLM.Provider == "" {
		fmt.Fprintln(out, "  Provider: none (heuristic reasoning)")
	} else {
		fmt.Fprintf(out, "  Provider: %s\n", settings.LLM.Provider.Description())
		fmt.Fprintf(out, "  Model: %s\n", settings.LLM.Model)
		if settings.LLM.BaseURL != "" {
			fmt.Fprintf(out, "  Base URL: %s\n", settings.LLM.BaseURL)
		}
		if settings.LLM.Provider.RequiresAPIKey() {
			fmt.Fprintf(out, "  API Key: %s\n", displayValue(settingFields[coreservices.KeyLLMAPIKey], settings))
		}
		fmt.Fprintf(out, "  Status: %s\n", configuredLabel(settings.LLM.IsConfigured()))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, st.Title.Render("[Index]"))
	fmt.Fprintf(out, "  Metric: %s\n\n", settings.Index.Metric.Description())

	fmt.Fprintln(out, st.Title.Render("[Research]"))
	fmt.Fprintf(out, "  Max steps: %d\n", settings.Research.MaxSteps)
	fmt.Fprintf(out, "  Chunks per step: %d\n", settings.Research.KPerStep)
	fmt.Fprintf(out, "  Similarity threshold: %s\n\n", formatFloat(settings.Research.SimilarityThreshold))

	fmt.Fprintln(out, st.Title.Render("[Chunker]"))
	fmt.Fprintf(out, "  Chunk size: %d words\n", settings.Chunker.ChunkSize)
	fmt.Fprintf(out, "  Overlap: %d words\n\n", settings.Chunker.Overlap)

	if err := svc.Validate(); err != nil {
		fmt.Fprintln(out, st.Warning.Render(fmt.Sprintf("Warning: %v", err)))
		fmt.Fprintln(out, "Run 'deep-researcher config embedding' to fix provider settings.")
	} else {
		fmt.Fprintln(out, st.Success.Render("Configuration is valid."))
	}
	return nil
}

func configuredLabel(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, key := range coreservices.SettingKeys() {
		f, ok := settingFields[key]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "%-30s %s\n", key, displayValue(f, settings))
	}
	if configStore != nil {
		fmt.Fprintf(out, "\nConfig file: %s\n", configStore.Path())
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	f, err := lookupSetting(args[0])
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), displayValue(f, settings))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key := args[0]
	f, err := lookupSetting(key)
	if err != nil {
		return err
	}

	var raw string
	switch {
	case len(args) == 2:
		raw = args[1]
	case f.secret:
		fmt.Fprint(cmd.OutOrStdout(), "Enter value: ")
		raw = readPassword(cmd.InOrStdin(), bufio.NewReader(cmd.InOrStdin()))
		fmt.Fprintln(cmd.OutOrStdout())
	default:
		return fmt.Errorf("missing value for %s", key)
	}
	raw = strings.TrimSpace(raw)

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	value, err := f.set(settings, raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, key, err)
	}
	if err := validateBounds(settings); err != nil {
		return err
	}

	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}

	shown := raw
	if f.secret {
		shown = maskAPIKey(raw)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, shown)

	if key == coreservices.KeyIndexMetric || strings.HasPrefix(key, "embedding.") || strings.HasPrefix(key, "chunker.") {
		fmt.Fprintln(cmd.OutOrStdout(), "Run 'deep-researcher index build' for the change to take effect.")
	}
	return nil
}

// validateBounds rejects combinations a single-key check cannot see.
func validateBounds(settings *domain.AppSettings) error {
	if err := settings.Research.Validate(); err != nil {
		return err
	}
	if settings.Chunker.Overlap >= settings.Chunker.ChunkSize {
		return fmt.Errorf("%w: chunker overlap %d must be below chunk size %d",
			domain.ErrInvalidConfig, settings.Chunker.Overlap, settings.Chunker.ChunkSize)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if err := svc.Validate(); err != nil {
		return err
	}

	fmt.Fprint(out, "Embedding provider... ")
	if err := svc.ValidateEmbeddingConfig(commandContext(cmd)); err != nil {
		fmt.Fprintln(out, "FAILED")
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	fmt.Fprintln(out, "OK")

	settings, err := svc.Get()
	if err != nil {
		return err
	}
	if settings.LLM.Provider != "" {
		fmt.Fprint(out, "LLM provider... ")
		if err := svc.ValidateLLMConfig(commandContext(cmd)); err != nil {
			fmt.Fprintln(out, "FAILED")
			return fmt.Errorf("LLM configuration validation failed: %w", err)
		}
		fmt.Fprintln(out, "OK")
	}
	return nil
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	reader := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	provider, model, apiKey, err := promptProvider(cmd, reader, "Embedding",
		domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels())
	if err != nil {
		return err
	}
	if err := svc.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	fmt.Fprint(out, "Validating configuration... ")
	if err := svc.ValidateEmbeddingConfig(commandContext(cmd)); err != nil {
		fmt.Fprintf(out, "FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	fmt.Fprintln(out, "OK")

	fmt.Fprintf(out, "Embedding provider configured: %s (%s)\n", provider.Description(), model)
	fmt.Fprintln(out, "Run 'deep-researcher index build' to re-embed the corpus.")
	return nil
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	reader := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	provider, model, apiKey, err := promptProvider(cmd, reader, "LLM",
		domain.AllLLMProviders(), domain.DefaultLLMModels())
	if err != nil {
		return err
	}
	if err := svc.SetLLMProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	fmt.Fprint(out, "Validating configuration... ")
	if err := svc.ValidateLLMConfig(commandContext(cmd)); err != nil {
		fmt.Fprintf(out, "FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	fmt.Fprintln(out, "OK")

	fmt.Fprintf(out, "LLM provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

func promptProvider(
	cmd *cobra.Command,
	reader *bufio.Reader,
	label string,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
) (domain.AIProvider, string, string, error) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Select %s Provider\n", label)
	for i, p := range providers {
		fmt.Fprintf(out, "  %d. %s\n", i+1, p.Description())
	}
	fmt.Fprint(out, "\nEnter choice [1]: ")
	provider := providers[parseChoice(readLine(reader), len(providers), 1)-1]

	defaultModel := defaults[provider]
	fmt.Fprintf(out, "Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		fmt.Fprint(out, "Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		fmt.Fprintln(out)
		if apiKey == "" {
			return "", "", "", errors.New("API key is required for this provider")
		}
	}
	return provider, model, apiKey, nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
