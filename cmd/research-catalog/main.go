// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-catalog CLI.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/research-catalog/internal/secrets"
	"github.com/pdiddy/research-catalog/internal/store"
	"github.com/pdiddy/research-catalog/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "research-catalog/0.1"
)

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, else the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the research-catalog CLI.
var rootCmd = &cobra.Command{
	Use:   "research-catalog",
	Short: "Local catalog for papers, patent certificates, and software registrations",
	Long: `research-catalog keeps a directory of research artifacts cataloged in a
local SQLite database. A scan pass discovers PDFs and certificate scans,
hashes them, and drives each file through text extraction, online
bibliographic resolution or OCR certificate parsing, and full-text
indexing. The catalog commands manage the resulting records, links, and
tags.`,
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// .env is optional; absence is not an error.
		godotenv.Load()

		s, err := secrets.Load(".secrets/", newLogger())
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
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./research-catalog.yaml or ~/.config/research-catalog/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log stage internals to stderr")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-catalog")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "research-catalog"))
		}
	}

	viper.SetEnvPrefix("RESEARCH_CATALOG")
	viper.AutomaticEnv()

	viper.SetDefault("library_dir", ".")
	viper.SetDefault("database_file", "catalog.db")
	viper.SetDefault("extract.pdftotext_path", "pdftotext")
	viper.SetDefault("extract.max_pages", 5)
	viper.SetDefault("acquire.download_dir", "downloads")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// buildConfig assembles the stage configurations from viper and secrets.
func buildConfig() types.PipelineConfig {
	httpCfg := types.HTTPConfig{Timeout: defaultTimeout, UserAgent: defaultUserAgent}
	return types.PipelineConfig{
		Catalog: types.CatalogConfig{
			LibraryDir:   viper.GetString("library_dir"),
			DatabaseFile: viper.GetString("database_file"),
		},
		Scan: types.ScanConfig{
			ExcludedFolders: viper.GetStringSlice("scan.excluded_folders"),
			HashWorkers:     viper.GetInt("scan.hash_workers"),
		},
		Extract: types.ExtractConfig{
			PdftotextPath: viper.GetString("extract.pdftotext_path"),
			MaxPages:      viper.GetInt("extract.max_pages"),
		},
		Resolver: types.ResolverConfig{
			HTTPConfig:    httpCfg,
			Mailto:        secretDefault("crossref-mailto", viper.GetString("resolver.mailto")),
			MaxRetries:    viper.GetInt("resolver.max_retries"),
			MaxCandidates: viper.GetInt("resolver.max_candidates"),
		},
		OCR: types.OCRConfig{
			HTTPConfig:      httpCfg,
			APIURL:          viper.GetString("ocr.api_url"),
			APIKey:          secretDefault("ocr-api-key", viper.GetString("ocr.api_key")),
			LocalEnginePath: viper.GetString("ocr.local_engine_path"),
		},
		Acquire: types.AcquireConfig{
			HTTPConfig:  httpCfg,
			DownloadDir: viper.GetString("acquire.download_dir"),
		},
	}
}

func openStore(cfg types.PipelineConfig) (*store.Store, error) {
	return store.Open(cfg.Catalog)
}

func newLogger() *zap.Logger {
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	if !verbose {
		return zap.NewNop()
	}
	logCfg := zap.NewDevelopmentConfig()
	logCfg.OutputPaths = []string{"stderr"}
	log, err := logCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func newHTTPClient(cfg types.HTTPConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
