package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	user    string
	noColor bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ainoter",
		Short: "Notes, reminders and short AI answers for a local account",
		Long: `ainoter keeps notes, reminders and AI questions for local accounts.

Data commands log in on every run. Select the account with --user or
AINOTER_USER; the password is read from AINOTER_PASSWORD or prompted for.
Reminders are only delivered while "ainoter start" is running.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor || os.Getenv("NO_COLOR") != "" {
				color.NoColor = true
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.user, "user", "u", "", "account username (default $AINOTER_USER)")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newRegisterCmd(opts),
		newNotesCmd(opts),
		newRemindersCmd(opts),
		newAICmd(opts),
		newConfigCmd(),
		newStartCmd(opts),
		newStopCmd(),
		newStatusCmd(),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
