package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"resume-analyzer/internal/analysis"
	"resume-analyzer/internal/bootstrap"
	"resume-analyzer/internal/shared/config"
	"resume-analyzer/internal/shared/storage/object"
	"resume-analyzer/internal/shared/telemetry"
)

const app = "resumectl"

type cliConfig struct {
	Debug bool        `mapstructure:"debug"`
	JSON  bool        `mapstructure:"json"`
	LLM   llmConfig   `mapstructure:"llm"`
	Store storeConfig `mapstructure:"store"`
}

type llmConfig struct {
	Provider     string `mapstructure:"provider"`
	Model        string `mapstructure:"model"`
	GeminiAPIKey string `mapstructure:"gemini-api-key"`
	OpenAIAPIKey string `mapstructure:"openai-api-key"`
}

type storeConfig struct {
	Type      string `mapstructure:"type"`
	LocalDir  string `mapstructure:"local-dir"`
	PublicURL string `mapstructure:"public-url"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	KMSKeyID  string `mapstructure:"kms-key-id"`
}

// appConfig maps the CLI settings onto the service configuration so the
// same constructors build the store and the model client.
func (c cliConfig) appConfig() config.Config {
	return config.Config{
		Env:                 "dev",
		ObjectStoreType:     c.Store.Type,
		LocalStoreDir:       c.Store.LocalDir,
		LocalStorePublicURL: c.Store.PublicURL,
		AWSRegion:           c.Store.Region,
		S3Bucket:            c.Store.Bucket,
		S3Prefix:            c.Store.Prefix,
		SSEKMSKeyID:         c.Store.KMSKeyID,
		LLMProvider:         strings.ToLower(strings.TrimSpace(c.LLM.Provider)),
		LLMModel:            c.LLM.Model,
		GeminiAPIKey:        c.LLM.GeminiAPIKey,
		OpenAIAPIKey:        c.LLM.OpenAIAPIKey,
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("RESUMECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("debug", false)
	v.SetDefault("json", false)
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.gemini-api-key", "")
	v.SetDefault("llm.openai-api-key", "")
	v.SetDefault("store.type", "local")
	v.SetDefault("store.local-dir", "./data")
	v.SetDefault("store.public-url", "")
	v.SetDefault("store.region", "")
	v.SetDefault("store.bucket", "")
	v.SetDefault("store.prefix", "")
	v.SetDefault("store.kms-key-id", "")
	return v
}

func loadConfig(v *viper.Viper, cfgFile string) (cliConfig, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return cliConfig{}, err
		}
	}
	var cfg cliConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

// deps are built per command; extract needs neither the store nor the model.
type deps struct {
	cfg cliConfig
}

func (d *deps) analyzer(ctx context.Context) (*analysis.Analyzer, error) {
	gen, err := bootstrap.NewGenerator(ctx, d.cfg.appConfig())
	if err != nil {
		return nil, err
	}
	return analysis.NewAnalyzer(gen), nil
}

func (d *deps) store(ctx context.Context) (object.ObjectStore, error) {
	return bootstrap.NewStore(ctx, d.cfg.appConfig())
}

func newRootCmd() *cobra.Command {
	v := newViper()
	d := &deps{}
	var cfgFile string

	root := &cobra.Command{
		Use:           app,
		Short:         "resumectl extracts and analyzes resume PDFs from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cfgFile)
			if err != nil {
				return err
			}
			d.cfg = cfg
			opts := telemetry.Options{Level: "info", Format: "console"}
			if cfg.Debug {
				opts.Level = "debug"
			}
			if cfg.JSON {
				opts.Format = "json"
			}
			return telemetry.Configure(opts)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (yaml, json or toml)")
	root.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	root.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	root.PersistentFlags().String("provider", "", "model provider (gemini|openai|none)")
	root.PersistentFlags().String("model", "", "model name")
	_ = v.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))
	_ = v.BindPFlag("json", root.PersistentFlags().Lookup("json"))
	_ = v.BindPFlag("llm.provider", root.PersistentFlags().Lookup("provider"))
	_ = v.BindPFlag("llm.model", root.PersistentFlags().Lookup("model"))

	root.AddCommand(
		newExtractCmd(),
		newAnalyzeCmd(d),
		newPingCmd(d),
		newFilesCmd(d, v),
	)
	return root
}
