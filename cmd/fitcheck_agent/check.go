package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/fitcheck/internal/observability"
	"github.com/jonathan/fitcheck/internal/pipeline"
)

var (
	checkConfigPath string
	checkConfigType string
	checkModelID    string
	checkThoughts   bool
	checkVerbose    bool
)

var checkCmd = &cobra.Command{
	Use:   "check [query]",
	Short: "Run one fit check from the command line",
	Long: `Evaluates the candidate profile against an employer or job description and prints the assessment.

The query can be a company name ("Acme Robotics"), a role at a company, or pasted job description text.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkConfigPath, "config", "", "Path to config.json file")
	checkCmd.Flags().StringVar(&checkConfigType, "config-type", "standard", "Model configuration: reasoning or standard")
	checkCmd.Flags().StringVar(&checkModelID, "model", "", "Override the model for this run")
	checkCmd.Flags().BoolVar(&checkThoughts, "thoughts", false, "Print the agent's intermediate reasoning steps")
	checkCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "Print phase outputs after the run")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, args []string) error {
	if checkConfigType != "reasoning" && checkConfigType != "standard" {
		return fmt.Errorf("--config-type must be reasoning or standard")
	}

	cfg, err := loadConfig(checkConfigPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	orch, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer cleanup()

	query := strings.Join(args, " ")
	opts := pipeline.Options{
		ConfigType:      checkConfigType,
		ModelID:         checkModelID,
		IncludeThoughts: checkThoughts,
	}

	em := pipeline.NewEmitter(pipeline.DefaultEventBuffer, checkThoughts)
	done := make(chan *pipeline.State, 1)
	go func() {
		done <- orch.Run(ctx, query, opts, em)
	}()

	for ev := range em.Events() {
		printEvent(ev)
	}
	state := <-done

	if checkVerbose || cfg.Verbose {
		fmt.Println()
		observability.NewPrinter(os.Stdout).PrintState(state)
	}

	if state.CurrentPhase == pipeline.PhaseError {
		return fmt.Errorf("fit check did not complete")
	}
	return nil
}

// printEvent renders one pipeline event for the terminal. Response chunks
// stream raw; everything else gets a prefixed line.
func printEvent(ev pipeline.Event) {
	switch ev.Type {
	case pipeline.EventStatus:
		p := ev.Data.(pipeline.StatusPayload)
		fmt.Printf("== %s\n", p.Message)
	case pipeline.EventPhase:
		p := ev.Data.(pipeline.PhasePayload)
		fmt.Printf("-- [%s] %s\n", p.Phase, p.Message)
	case pipeline.EventThought:
		p := ev.Data.(pipeline.ThoughtPayload)
		line := fmt.Sprintf("   (%d) %s", p.Step, p.Content)
		if p.Tool != "" {
			line += fmt.Sprintf(" [%s]", p.Tool)
		}
		fmt.Println(line)
	case pipeline.EventPhaseComplete:
		p := ev.Data.(pipeline.PhaseCompletePayload)
		fmt.Printf("-- [%s] done: %s\n", p.Phase, p.Summary)
	case pipeline.EventResponse:
		fmt.Print(ev.Data.(pipeline.ResponsePayload).Chunk)
	case pipeline.EventComplete:
		p := ev.Data.(pipeline.CompletePayload)
		fmt.Printf("\n\n== Completed %d phases in %dms\n", p.PhasesCompleted, p.DurationMs)
	case pipeline.EventError:
		p := ev.Data.(pipeline.ErrorPayload)
		fmt.Fprintf(os.Stderr, "\n!! %s: %s\n", p.Code, p.Message)
	}
}
