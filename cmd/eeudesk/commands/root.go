// Package commands implements the eeudesk CLI.
package commands

import (
	"context"
	"io"
	"os"

	"github.com/IsaacDSC/eeudesk/internal/cfg"
	"github.com/IsaacDSC/eeudesk/pkg/logs"
	"github.com/spf13/cobra"
)

type CLI struct {
	rootCmd *cobra.Command
	// config is resolved lazily so tests can install one with cfg.SetConfig.
	config func() cfg.Config
}

func New() *CLI {
	rootCmd := &cobra.Command{
		Use:           "eeudesk",
		Short:         "Offline-tolerant agent for the EEU complaint desk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("offline", false, "Start offline: writes are queued until a drain")
	rootCmd.PersistentFlags().String("log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	c := &CLI{
		rootCmd: rootCmd,
		config:  cfg.Get,
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		conf := c.config()
		level := conf.Log.Level
		if flag, _ := cmd.Flags().GetString("log-level"); flag != "" {
			level = flag
		}
		logs.SetDefault(logs.New(
			logs.WithLevel(logs.ParseLevel(level)),
			logs.WithJSONFormat(conf.Log.JSON),
			logs.WithOutput(os.Stderr),
			logs.WithAttrs("app", "eeudesk"),
		))
		return nil
	}

	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newQueueCmd())
	rootCmd.AddCommand(c.newLoadtestCmd())
	rootCmd.AddCommand(c.newEnvCmd())

	return c
}

func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects command output. Used for testing.
func (c *CLI) SetOutput(w io.Writer) {
	c.rootCmd.SetOut(w)
	c.rootCmd.SetErr(w)
}

func (c *CLI) newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Describe the supported environment variables",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = io.WriteString(cmd.OutOrStdout(), cfg.Usage()+"\n")
		},
	}
}
