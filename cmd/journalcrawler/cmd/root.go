package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LouYuanbo1/journalcrawler/internal/config"
	"github.com/LouYuanbo1/journalcrawler/internal/logging"
)

var (
	configPath    string
	logLevel      string
	defaultConfig []byte
	appcfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "journalcrawler",
	Short: "Harvest article metadata and figures from a journal archive",
	Long: `journalcrawler walks a journal's issue archive (decade, year, issue,
article), extracts bibliographic and figure metadata from every article and
writes one spreadsheet row per article. Referenced images are downloaded
under <image_root>/<year>/<title>/.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logging.Setup(os.Stderr, cfg.Log.Level)
		appcfg = cfg
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("解析配置失败: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.ParseConfig(defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("解析内嵌配置失败: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command. embedded is used when --config is not given.
func Execute(embedded []byte) {
	defaultConfig = embedded
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a .json/.json5/.yaml config file (default: embedded appconfig.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}
