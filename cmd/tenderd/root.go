package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tender-checklist/internal/common"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	envFile    string
}

var (
	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tenderd",
	Short: "Tender checklist worker",
	Long: "tenderd turns tender PDF bundles into a requirements checklist and answers\n" +
		"checklist prompts against the same documents.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	PersistentPreRunE: loadRuntime,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", os.Getenv("TENDERD_CONFIG"), "YAML config file (env overrides it)")
	f.StringVar(&rootFlags.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(healthcheckCmd)
	rootCmd.Version = version
}

func loadRuntime(cmd *cobra.Command, _ []string) error {
	if rootFlags.envFile != "" {
		if err := godotenv.Load(rootFlags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", rootFlags.envFile, err)
		}
	}
	c, err := common.LoadConfig(rootFlags.configPath)
	if err != nil {
		return err
	}
	cfg = c
	logger = common.NewLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
