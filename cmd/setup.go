package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/config"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/state"
	"github.com/ACNet-AI/OpenPersona-sub000/internal/tui/theme"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	reader := bufio.NewReader(os.Stdin)

	// Edit the file itself so environment overrides are not baked in.
	cfg, err := config.LoadFile(config.ConfigPath())
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("  Persona economy setup")
	fmt.Println()

	// 1. Persona
	fmt.Println("  1. Persona slug")
	if cfg.General.PersonaSlug != "" {
		fmt.Printf("     Current: %s\n", cfg.General.PersonaSlug)
	}
	fmt.Print("     > ")
	slug := readLine(reader)
	if slug != "" {
		if err := (state.Location{Slug: slug}).Validate(); err != nil {
			return err
		}
		cfg.General.PersonaSlug = slug
	}
	fmt.Println()

	// 2. Data directory
	fmt.Println("  2. Data directory")
	fmt.Printf("     Current: %s\n", cfg.Location().Dir)
	fmt.Print("     > ")
	if dir := readLine(reader); dir != "" {
		cfg.General.DataDir = dir
	}
	fmt.Println()

	// 3. ACN endpoint
	fmt.Println("  3. ACN balance endpoint (optional)")
	if cfg.Providers.ACN.Endpoint != "" {
		fmt.Printf("     Current: %s\n", cfg.Providers.ACN.Endpoint)
	}
	fmt.Print("     > ")
	if endpoint := readLine(reader); endpoint != "" {
		cfg.Providers.ACN.Endpoint = endpoint
	}
	fmt.Println()

	// 4. Theme
	fmt.Println("  4. Color theme")
	for i, name := range theme.Names() {
		def := ""
		if name == cfg.Appearance.Theme {
			def = " [current]"
		}
		fmt.Printf("     (%d) %s%s\n", i+1, name, def)
	}
	fmt.Print("     > ")
	choice := readLine(reader)
	for i, name := range theme.Names() {
		if choice == fmt.Sprint(i+1) {
			cfg.Appearance.Theme = name
		}
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `economy wallet-init` to create the persona's wallet.")
	fmt.Println()
	return nil
}

func readLine(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
