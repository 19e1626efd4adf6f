package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"tenantsync/cmd/synctl/wire"
	"tenantsync/pkg/config"
	"tenantsync/pkg/log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	envFile    string
	jsonOutput bool

	svc     *wire.Services
	cleanup = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "synctl",
	Short: "Tenant synchronization admin CLI",
	Long: `synctl drives the tenant synchronization engine by hand: project global users and
courses into tenants, merge tenant data back, run bidirectional passes, inspect the
sync ledger, retry failures, clean up old entries and validate cross-partition integrity.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute 返回进程退出码
func Execute() int {
	defer func() { cleanup() }()
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var r reportedError
	if !errors.As(err, &r) {
		if jsonOutput {
			writeJSON(err, nil)
		} else {
			errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return exitCode(err)
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", envFile, err)
	}
	path := cfgFile
	if env := os.Getenv("APP_CONF"); env != "" && !cmd.Flags().Changed("conf") {
		path = env
	}
	conf, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	// stdout 只留给命令输出
	conf.Set("log.output", "stderr")

	svc, cleanup, err = wire.NewWire(conf, log.NewLog(conf))
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "conf", "config/local.yml", "config path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(syncCmd, statusCmd, retryCmd, cleanupCmd, validateCmd, cancelCmd, resolveCmd)
}
