package main

import (
	"fmt"
	"strings"
	"time"

	"savesmith/internal/readiness"

	"github.com/spf13/cobra"
)

// statusCmd performs a single readiness check
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the backend initialization status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

// waitCmd polls until the backend is ready
var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait until the backend has finished loading game data",
	Long: `Polls the backend initialization status with exponential backoff
(500ms, growing 1.5x per attempt up to 5s) until it reports ready.
Exits non-zero if the backend is not ready within readiness.max_wait.`,
	Args: cobra.NoArgs,
	RunE: runWait,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	client, err := newClient()
	if err != nil {
		return err
	}
	status, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("backend unreachable at %s: %w", client.BaseURL(), err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backend:  %s\n", client.BaseURL())
	fmt.Fprintf(out, "Stage:    %s\n", status.Stage)
	fmt.Fprintf(out, "Progress: %s %.0f%%\n", progressBar(status.Progress, 20), status.Progress)
	msg := status.Message
	if msg == "" {
		msg = status.Stage.Message()
	}
	fmt.Fprintf(out, "Message:  %s\n", msg)
	return nil
}

func runWait(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	client, err := newClient()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	err = waitReady(ctx, client, func(u readiness.Update) {
		if u.Err != nil {
			fmt.Fprintf(out, "[%2d] %6s  waiting for backend (%v)\n", u.Attempt, u.Elapsed.Truncate(time.Millisecond), u.Err)
			return
		}
		fmt.Fprintf(out, "[%2d] %6s  %s %3.0f%%  %s\n",
			u.Attempt, u.Elapsed.Truncate(time.Millisecond), progressBar(u.Progress(), 20), u.Progress(), u.Message())
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Backend ready.")
	return nil
}

func progressBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
