package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/bus"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/provider"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/settings"
)

// selectCmd represents the select command
var selectCmd = &cobra.Command{
	Use:   "select [ocr|parse] [provider] [model]",
	Short: "Choose the provider and model for a pipeline step",
	Long: `Persist the provider and model used for one of the two pipeline
steps.

Examples:
  text2cal select ocr claude-vision claude-sonnet-4-20250514
  text2cal select parse openai gpt-4o-mini`,
	Args: cobra.ExactArgs(3),
	RunE: runSelect,
}

// settingsCmd represents the settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the stored, non-secret settings",
	Args:  cobra.NoArgs,
	RunE:  runSettings,
}

func init() {
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSelect(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	var capability provider.Capability
	switch args[0] {
	case "ocr":
		capability = provider.CapabilityOCR
	case "parse":
		capability = provider.CapabilityParse
	default:
		return fmt.Errorf("step must be ocr or parse, got %q", args[0])
	}

	id, err := parseProviderID(args[1])
	if err != nil {
		return err
	}
	if id.Capability() != capability {
		return fmt.Errorf("provider %s does not offer %s", id, capability)
	}

	a.store.SetSelection(capability, settings.Selection{Provider: id, Model: args[2]})
	if err := a.store.Save(); err != nil {
		return fmt.Errorf("failed to persist selection: %w", err)
	}
	fmt.Printf("Selected %s / %s for %s\n", id, args[2], capability)
	return nil
}

func runSettings(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := a.router.Handle(ctx, bus.Envelope{
		Type:      bus.MsgGetSettings,
		RequestID: bus.NewRequestID(),
	})
	if !result.OK || result.Settings == nil {
		return fmt.Errorf("failed to read settings: %s", result.Error)
	}

	out, err := json.MarshalIndent(result.Settings, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
