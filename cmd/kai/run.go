package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/kai/internal/events"
	"github.com/ShayCichocki/kai/pkg/models"
)

var (
	runSession string
	runQuiet   bool
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Run one request through the agents",
	Long: `Run a request through the meta-controller.

The request is planned into steps assigned to agent roles. Independent
steps run in parallel; steps that produce code are verified and, when
verification fails, handed to the fixer. Progress is streamed as it
happens and the synthesized answer is printed at the end.

Use --session to continue an earlier conversation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRequest,
}

func init() {
	runCmd.Flags().StringVar(&runSession, "session", "", "Session ID (default: a new one)")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Only print the final answer")
}

// signalContext is cancelled on interrupt or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// stream returns the app's sinks plus a printer fed through a buffered
// channel. The returned function drains and closes it.
func (a *app) stream(out io.Writer, quiet bool) (events.Sink, func()) {
	if quiet {
		return a.sinks, func() {}
	}
	ch := events.NewChannel(a.cfg.Events.BufferSize, a.logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p := printer(out)
		for e := range ch.Events() {
			p.Emit(e)
		}
	}()
	sinks := append(events.Multi{}, a.sinks...)
	return append(sinks, ch), func() {
		ch.Close()
		<-done
		if n := ch.DroppedCount(); n > 0 {
			printStatus(out, "⚠", fmt.Sprintf("%d events dropped (raise events.buffer_size)", n), color.FgYellow)
		}
	}
}

func runRequest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	session := runSession
	if session == "" {
		session = uuid.NewString()
	}
	out := cmd.OutOrStdout()
	sink, wait := a.stream(out, runQuiet)

	resp, err := a.controller.Process(ctx, strings.Join(args, " "), session, sink)
	wait()
	if err != nil {
		return err
	}

	printResponse(out, resp)
	if !runQuiet {
		fmt.Fprintf(out, "\nSession: %s\n", session)
	}
	return nil
}

func printResponse(w io.Writer, resp *models.AgentResponse) {
	fmt.Fprintln(w)
	for _, s := range resp.PlanSteps {
		switch s.Status {
		case models.StepCompleted:
			printStatus(w, "✓", fmt.Sprintf("%s (%s)", s.StepID, s.Role), color.FgGreen)
		case models.StepFailed:
			printStatus(w, "✗", fmt.Sprintf("%s (%s): %s", s.StepID, s.Role, s.Output), color.FgRed)
		default:
			printStatus(w, "⚠", fmt.Sprintf("%s (%s) %s", s.StepID, s.Role, s.Status), color.FgYellow)
		}
	}
	fmt.Fprintf(w, "\n%s\n", resp.Answer)
	for _, art := range resp.Artifacts {
		fmt.Fprintf(w, "\n--- %s\n%s\n", art.Filename, art.Content)
	}
	m := resp.Metadata
	fmt.Fprintf(w, "\n%d steps, %s, agents: %s\n", m.TotalSteps, m.TotalDuration.Round(time.Millisecond), joinRoles(m.AgentsInvolved))
}

func joinRoles(roles []models.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.DisplayName()
	}
	return strings.Join(names, ", ")
}
