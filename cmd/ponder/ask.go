package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ponderhq/ponder/internal/config"
	"github.com/ponderhq/ponder/internal/llm"
	"github.com/ponderhq/ponder/internal/persona"
	"github.com/ponderhq/ponder/internal/session"
	"github.com/ponderhq/ponder/internal/tui"
	"github.com/ponderhq/ponder/internal/usage"
	"github.com/ponderhq/ponder/pkg/models"
)

var (
	askDeep    bool
	askPersona string
	askDepth   int
	askNoTUI   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question with deliberate reasoning",
	Long: `Ask answers a single question. The engine selector decides whether the
question gets a flat deliberation pass or a recursive decomposition tree;
--deep forces the tree.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().BoolVar(&askDeep, "deep", false, "Force recursive decomposition")
	askCmd.Flags().StringVar(&askPersona, "persona", "", "Persona to reason with")
	askCmd.Flags().IntVar(&askDepth, "depth", 0, "Override the decomposition depth budget")
	askCmd.Flags().BoolVar(&askNoTUI, "no-tui", false, "Disable the live progress view")
}

func runAsk(ctx context.Context, question string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var apiKey string
	if !cfg.Anthropic.UseBedrock {
		apiKey, err = config.GetAPIKey(cfg)
		if err != nil {
			return fmt.Errorf("%w\n\nSet ANTHROPIC_API_KEY or run: ponder config anthropic.api_key <key>", err)
		}
	}

	var onUsage llm.UsageFunc
	var ledger *usage.Ledger
	if cfg.Usage.Enabled {
		path := cfg.Usage.Path
		if path == "" {
			path = usage.DefaultPath()
		}
		ledger, err = usage.Open(path)
		if err != nil {
			log.Printf("[ask] usage ledger unavailable: %v", err)
		} else {
			defer ledger.Close()
			onUsage = func(delta models.UsageDelta) {
				if err := ledger.Record(delta); err != nil {
					log.Printf("[ask] record usage: %v", err)
				}
			}
		}
	}

	client, err := llm.NewClient(llm.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		OnUsage:       onUsage,
	})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	registry := persona.NewRegistry(cfg.Personas.Dir)
	if err := registry.Load(); err != nil {
		log.Printf("[ask] persona load: %v", err)
	}
	if cfg.Personas.Watch {
		go func() {
			if err := registry.Watch(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[ask] persona watch: %v", err)
			}
		}()
	}
	personaName := askPersona
	if personaName == "" {
		personaName = cfg.Personas.Default
	}
	prompts := registry.Get(personaName)

	opts := session.Options{
		MaxDepth:          cfg.Engine.MaxDepth,
		ForceDeep:         askDeep || cfg.Engine.ForceDeep,
		CritiqueBatchSize: cfg.Engine.CritiqueBatchSize,
		CritiqueCooldown:  cfg.Engine.CritiqueCooldown,
	}
	if askDepth > 0 {
		opts.MaxDepth = askDepth
	}

	runner := session.NewRunner(client, prompts, opts)

	if cfg.TUI.Enabled && !askNoTUI {
		return runAskWithTUI(ctx, runner, prompts, client, question, opts)
	}

	out, err := runner.Run(ctx, question, nil)
	if err != nil {
		return err
	}
	printOutcome(out, client)
	return nil
}

// runAskWithTUI runs the session behind a live progress view and prints the
// answer after the view exits.
func runAskWithTUI(ctx context.Context, runner *session.Runner, prompts *persona.Prompts, client *llm.Client, question string, opts session.Options) error {
	monitor := tui.NewMonitor(question)
	opts.TreeObserver = monitor.TreeObserver()
	opts.PipelineObserver = monitor.PipelineObserver()
	runner = session.NewRunner(client, prompts, opts)

	var out *session.Outcome
	var runErr error
	go func() {
		out, runErr = runner.Run(ctx, question, nil)
		monitor.Done(runErr)
	}()

	if err := monitor.Run(); err != nil {
		return fmt.Errorf("progress view: %w", err)
	}
	if runErr != nil {
		return runErr
	}
	printOutcome(out, client)
	return nil
}

func printOutcome(out *session.Outcome, client *llm.Client) {
	fmt.Println(out.Answer)

	dim := color.New(color.Faint)
	input, output := client.Tracker().Totals()
	note := fmt.Sprintf("engine=%s requests=%d tokens=%d/%d", out.Engine, client.Tracker().Requests(), input, output)
	if out.Degraded {
		note += " (degraded)"
	}
	dim.Fprintln(os.Stderr, note)
}
