package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/coinsight/internal/llm"
	"github.com/ppiankov/coinsight/internal/model"
)

var checkProvider bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Coinsight configuration",
	Long: `Manage Coinsight configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (COINSIGHT_*, then the service credentials in .env)
3. Config file (~/.coinsight/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration after merging defaults, config file, environment and flags. Credentials are reported as set or missing, never printed.

With --check the configured text-generation provider is contacted once to confirm it is reachable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println("  Current Configuration")
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println()

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Println(string(yamlData))

		fmt.Println("Credentials:")
		for _, c := range credentialStatus(cfg) {
			fmt.Printf("  %-22s %s\n", c[0], c[1])
		}
		if checkProvider {
			var provider llm.Provider
			if p, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP)); err == nil {
				provider = p
			} else {
				fmt.Fprintf(os.Stderr, "Provider not created: %v\n", err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			fmt.Println()
			fmt.Println("Connectivity:")
			fmt.Printf("  %-22s %s\n", "llm ("+cfg.LLM.Provider+")", providerStatus(ctx, provider))
		}
		fmt.Println()
		fmt.Println("═══════════════════════════════════════════════════════════")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.coinsight/config.yaml with all available options.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configDir := filepath.Join(home, ".coinsight")
		configPath := filepath.Join(configDir, "config.yaml")

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'coinsight config show' to view it, or delete it first to recreate", configPath)
		}
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close config file: %w", closeErr)
			}
		}()

		if err := writeDefaultConfig(f); err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the configuration:\n")
		fmt.Printf("  coinsight config show\n")
		fmt.Printf("\nTo customize, edit the file with your preferred editor:\n")
		fmt.Printf("  $EDITOR %s\n\n", configPath)
		return nil
	},
}

func writeDefaultConfig(f *os.File) (err error) {
	printf := func(format string, a ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(f, format, a...)
	}

	printf("# Coinsight Configuration File\n")
	printf("#\n")
	printf("# Configuration hierarchy (highest to lowest priority):\n")
	printf("#   1. CLI flags\n")
	printf("#   2. Environment variables (COINSIGHT_*, e.g. COINSIGHT_LLM_PROVIDER)\n")
	printf("#   3. This config file\n")
	printf("#   4. Built-in defaults\n\n")

	yamlData, mErr := yaml.Marshal(model.DefaultConfig())
	if mErr != nil {
		return fmt.Errorf("error marshaling config: %w", mErr)
	}
	printf("%s", yamlData)

	printf("\n# Credentials are read from the environment or a .env file:\n")
	printf("#   AZURE_DI_ENDPOINT, AZURE_DI_API_KEY      layout.provider: azure\n")
	printf("#   MISTRAL_API_KEY                          layout.provider: mistral\n")
	printf("#   AZURE_GPT_API_KEY, AZURE_GPT_API_BASE,\n")
	printf("#   AZURE_GPT_API_VERSION, AZURE_GPT_ENGINE  llm.provider: azure\n")
	printf("#   OPENAI_API_KEY, ANTHROPIC_API_KEY,\n")
	printf("#   GEMINI_API_KEY, OLLAMA_BASE_URL          other llm providers\n")
	printf("#   NEWS_API_KEY                             news search\n")
	printf("#   DATABASE_URL                             history.driver: postgres\n")
	return err
}

func credentialStatus(cfg *model.Config) [][2]string {
	state := func(v string) string {
		if v == "" {
			return "missing"
		}
		return "set"
	}
	return [][2]string{
		{"layout (" + cfg.Layout.Provider + ")", state(cfg.Layout.APIKey)},
		{"llm (" + cfg.LLM.Provider + ")", state(cfg.LLM.APIKey)},
		{"news", state(cfg.News.APIKey)},
		{"history database", state(cfg.History.DatabaseURL)},
	}
}

// providerStatus reports whether p answers a minimal request
func providerStatus(ctx context.Context, p llm.Provider) string {
	if p == nil {
		return "not configured"
	}
	if p.IsAvailable(ctx) {
		return "reachable"
	}
	return "unreachable"
}

func init() {
	configShowCmd.Flags().BoolVar(&checkProvider, "check", false, "contact the text-generation provider to confirm it is reachable")
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
