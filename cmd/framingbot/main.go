// Package main is the entry point for the framingbot CLI.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/framingbot/internal/notion"
	"github.com/pdiddy/framingbot/internal/secrets"
	"github.com/pdiddy/framingbot/internal/skills"
	"github.com/pdiddy/framingbot/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the framingbot CLI.
var rootCmd = &cobra.Command{
	Use:   "framingbot",
	Short: "Research framing pipeline and guided chat",
	Long: `framingbot turns a raw research idea into a structured framing artifact:
background, purpose, research question, method, expected result, and
contribution, shaped by a keyword-derived epistemic profile.

Run the whole pipeline at once with frame, work through it conversationally
with chat, or expose both over HTTP with serve. The notion commands sync the
keyword library and framing records with Notion databases.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./framingbot.yaml or ~/.config/framingbot/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("framingbot")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "framingbot"))
		}
	}

	viper.SetEnvPrefix("FRAMINGBOT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// aiBackend builds the OpenAI backend from flags, config, and secrets.
func aiBackend(cmd *cobra.Command) (*skills.OpenAIBackend, int, error) {
	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("ai.model")
	}
	if model == "" {
		model = "gpt-4o"
	}

	apiKey := secretDefault(secrets.KeyOpenAI, viper.GetString("ai.api_key"))
	if apiKey == "" {
		return nil, 0, fmt.Errorf("OpenAI API key required: add .secrets/openai-api-key or set ai.api_key")
	}

	maxRetries := viper.GetInt("ai.max_retries")
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &skills.OpenAIBackend{
		APIKey: apiKey,
		Model:  model,
		Client: &http.Client{Timeout: 120 * time.Second},
	}, maxRetries, nil
}

// notionClient builds the Notion client from config and secrets.
func notionClient() (*notion.Client, error) {
	token := secretDefault(secrets.KeyNotionToken, viper.GetString("notion.token"))
	if token == "" {
		return nil, fmt.Errorf("Notion token required: add .secrets/notion-api-key or set notion.token")
	}

	cfg := types.NotionConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout: 30 * time.Second,
		},
		Token:       token,
		FramingDBID: secretDefault(secrets.KeyNotionFramingDB, viper.GetString("notion.framing_db_id")),
		KeywordDBID: secretDefault(secrets.KeyNotionKeywordDB, viper.GetString("notion.keyword_db_id")),
	}
	return notion.NewClient(cfg), nil
}

// storeConfig reads the session store settings.
func storeConfig(cmd *cobra.Command) types.StoreConfig {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = viper.GetString("store.data_dir")
	}
	if dataDir == "" {
		dataDir = "data"
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")
	return types.StoreConfig{DataDir: dataDir, MaxResults: maxResults}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
