package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ponderhq/ponder/internal/config"
	"github.com/ponderhq/ponder/internal/persona"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List available personas",
	Long: `List the personas Ponder can reason with. The built-in "general"
persona is always available; others are loaded from YAML files in the
personas directory (personas.dir).`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		registry := persona.NewRegistry(cfg.Personas.Dir)
		if err := registry.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading personas: %v\n", err)
			os.Exit(1)
		}

		bold := color.New(color.Bold)
		for _, name := range registry.Names() {
			p := registry.Get(name)
			marker := " "
			if name == cfg.Personas.Default {
				marker = "*"
			}
			bold.Printf("%s %s", marker, name)
			if p.DomainHint != "" {
				fmt.Printf("  (%s)", p.DomainHint)
			}
			fmt.Println()
		}
		fmt.Printf("\npersona directory: %s\n", cfg.Personas.Dir)
	},
}
