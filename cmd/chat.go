package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/tailortalk/internal/conversation"
)

func newChatCmd() *cobra.Command {
	var showState bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Book an appointment interactively",
		Long: `Start an interactive conversation in the terminal.

Describe when you would like to meet, for example "book a meeting tomorrow
between 3 and 5pm". tailortalk looks up free slots, lets you pick one and
asks for confirmation before it books. Type "quit" to leave.

Use --calendar-backend memory to try it without a Google account.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cmd.Flags(), appOptions{logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			return chatLoop(ctx, a.service, cmd.InOrStdin(), cmd.OutOrStdout(), showState)
		},
	}

	cmd.Flags().BoolVar(&showState, "show-state", true, "Print the conversation state after every reply")

	return cmd
}

// chatLoop reads one message per line and prints the replies. A new
// session starts whenever the previous one has finished.
func chatLoop(ctx context.Context, svc *conversation.Service, in io.Reader, out io.Writer, showState bool) error {
	var (
		prompt = color.New(color.FgGreen, color.Bold)
		state  = color.New(color.FgCyan)
		failed = color.New(color.FgRed)
	)

	fmt.Fprintln(out, "Hi! When would you like to meet? (type \"quit\" to exit)")

	sessionID := uuid.NewString()
	scanner := bufio.NewScanner(in)
	for {
		prompt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "bye":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		reply, err := svc.HandleTurn(ctx, sessionID, line)
		if err != nil && !errors.Is(err, conversation.ErrInvariantViolation) {
			return err
		}

		if reply.Text != "" {
			fmt.Fprintln(out, reply.Text)
		}
		if err != nil {
			failed.Fprintf(out, "Something went wrong: %v\n", err)
		}
		if showState {
			state.Fprintf(out, "[%s]\n", reply.State)
		}

		if reply.State.IsTerminal() {
			sessionID = uuid.NewString()
			fmt.Fprintln(out, "Anything else you would like to book?")
		}

		if ctx.Err() != nil {
			return nil
		}
	}
	fmt.Fprintln(out)
	return scanner.Err()
}
