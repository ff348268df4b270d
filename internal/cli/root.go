package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/coinsight/internal/model"
)

// Version is overridden at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	envFile string
	verbose bool
	dataDir string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "coinsight",
	Short: "Coinsight - company background and annual report insight",
	Long: `Coinsight collects what a company says about itself and turns its annual
report into a line-itemised financial analysis.

It scrapes the company homepage, searches recent news, downloads the latest
annual report, extracts its layout, locates the primary financial statements
and asks a text-generation service for a fixed-format insight.

Results are available from the command line or the web dashboard (coinsight serve).`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Coinsight.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("coinsight %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.coinsight/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with API credentials")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for snapshots and reports (overrides data_dir)")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in the dotenv file, config file and ENV variables
func initConfig() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", envFile, err)
		}
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.coinsight")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match COINSIGHT_*, e.g.
	// COINSIGHT_LLM_PROVIDER for llm.provider
	viper.SetEnvPrefix("COINSIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	registerDefaults()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults tells viper about every key so that environment
// variables override keys absent from the config file
func registerDefaults() {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	setDefaults("", tree)

	// credentials and empty optional keys are absent from the YAML tree
	for _, key := range []string{
		"llm.api_key", "llm.base_url", "llm.api_version",
		"layout.api_key", "layout.endpoint",
		"news.api_key", "news.language",
		"history.database_url",
		"http.http_proxy", "http.https_proxy",
	} {
		_ = viper.BindEnv(key)
	}
}

func setDefaults(prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			setDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// loadConfig builds the single configuration object: defaults, then the
// config file and COINSIGHT_* variables, then credentials from the
// environment
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyEnv(cfg, os.Getenv)
	return cfg, nil
}

// applyEnv fills credentials the config file leaves empty. The variable
// names match the .env files used with the dashboard.
func applyEnv(cfg *model.Config, getenv func(string) string) {
	setIfEmpty := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}

	switch strings.ToLower(cfg.Layout.Provider) {
	case "azure", "azure-di", "document-intelligence":
		setIfEmpty(&cfg.Layout.Endpoint, "AZURE_DI_ENDPOINT")
		setIfEmpty(&cfg.Layout.APIKey, "AZURE_DI_API_KEY", "AZURE_DI_KEY")
	case "mistral", "mistral-ocr":
		setIfEmpty(&cfg.Layout.APIKey, "MISTRAL_API_KEY")
	}

	switch strings.ToLower(cfg.LLM.Provider) {
	case "azure", "azure-openai":
		setIfEmpty(&cfg.LLM.APIKey, "AZURE_GPT_API_KEY")
		setIfEmpty(&cfg.LLM.BaseURL, "AZURE_GPT_API_BASE")
		setIfEmpty(&cfg.LLM.APIVersion, "AZURE_GPT_API_VERSION")
		setIfEmpty(&cfg.LLM.Model, "AZURE_GPT_ENGINE")
	case "openai":
		setIfEmpty(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	case "anthropic", "claude":
		setIfEmpty(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
	case "gemini", "google":
		setIfEmpty(&cfg.LLM.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	case "ollama":
		setIfEmpty(&cfg.LLM.BaseURL, "OLLAMA_BASE_URL")
	}

	setIfEmpty(&cfg.News.APIKey, "NEWS_API_KEY")
	setIfEmpty(&cfg.History.DatabaseURL, "DATABASE_URL")
	setIfEmpty(&cfg.HTTP.HTTPProxy, "HTTP_PROXY")
	setIfEmpty(&cfg.HTTP.HTTPSProxy, "HTTPS_PROXY")
}

// newLogger returns a development logger with --verbose and a
// production JSON logger at warn level otherwise, keeping stderr
// readable for the status lines
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
