package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/bus"
)

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "Discover the usable models of a provider",
	Long: `Fetch and filter the model list for a provider. The result is cached
in the settings store; its first entry becomes the default model for the
provider.

Providers: openai, openai-vision, gemini, gemini-vision, claude,
claude-vision, google-vision

Examples:
  text2cal models openai-vision
  text2cal models gemini`,
	Args: cobra.ExactArgs(1),
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	id, err := parseProviderID(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPTimeout+10*time.Second)
	defer cancel()

	result := a.router.Handle(ctx, bus.Envelope{
		Type:      bus.MsgListModels,
		RequestID: bus.NewRequestID(),
		Provider:  string(id),
	})
	if !result.OK {
		return fmt.Errorf("model discovery failed: %s", result.Error)
	}

	if len(result.Models) == 0 {
		fmt.Printf("No usable models for %s\n", id)
		return nil
	}
	fmt.Printf("Models for %s (%s):\n", id, id.Capability())
	for i, m := range result.Models {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		fmt.Printf("  %s %s\n", marker, m)
	}
	return nil
}
