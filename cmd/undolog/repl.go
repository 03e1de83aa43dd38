package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aretw0/undolog"
	"github.com/aretw0/undolog/internal/cli"
	"github.com/aretw0/undolog/internal/demo"
	"github.com/aretw0/undolog/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Greet people and undo it, interactively",
	Long: `Starts an interactive shell over one greeting board.
Every greeting is a transaction; type 'help' for the commands.
Whatever is left in the log is purged on exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if _, err := a.sessions.Create(ctx, sessionID); err != nil {
			return err
		}

		interactive := term.IsTerminal(int(os.Stdin.Fd()))
		color := term.IsTerminal(int(os.Stdout.Fd()))
		out := tui.NewOutput(os.Stdout, color)
		if interactive {
			tui.PrintBanner(out, strings.TrimSpace(undolog.Version))
		}

		err = a.sessions.WithLock(ctx, sessionID, func(ctx context.Context, sess *demo.Session) error {
			shell := cli.NewShell(sess, out,
				cli.WithPrompt(interactive),
				cli.WithRenderer(tui.NewRenderer(color)),
				cli.WithLogger(a.logger),
			)
			return shell.Run(ctx, os.Stdin)
		})
		if err != nil {
			return err
		}

		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("failed to finalize session: %w", err)
		}
		if interactive {
			fmt.Fprintln(out, "Bye!")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
	replCmd.Flags().StringP("session", "s", "repl", "Name of the session (used in logs, metrics and the journal)")
}
