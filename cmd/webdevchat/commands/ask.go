package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/webdevchat/chat"
)

// errRunFailed makes the process exit non-zero after the failure text was printed.
var errRunFailed = errors.New("the request failed")

func newAskCommand(flags *rootFlags) *cobra.Command {
	var persona string

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Ask a single question and print the answer",
		Long: `Ask sends one message to the triage agent (or --persona) and prints the
persona that answered followed by the answer.

Examples:
  webdevchat ask "How do I center a div with flexbox?"
  webdevchat ask --persona "Security Architect" "How should I store passwords?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = a.Close(shutdownCtx)
			}()

			message := strings.Join(args, " ")
			reply, err := askOnce(ctx, a, persona, message)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "[%s]\n%s\n", reply.Persona, reply.Text)
			if reply.Failed {
				return errRunFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&persona, "persona", "p", "", "Ask this persona directly instead of the triage agent")
	return cmd
}

// askOnce routes message to the entry persona, or to persona when set.
func askOnce(ctx context.Context, a *app, persona, message string) (chat.Reply, error) {
	if persona != "" {
		return a.service.AskPersona(ctx, "", persona, message)
	}
	return a.service.Ask(ctx, "", message)
}
