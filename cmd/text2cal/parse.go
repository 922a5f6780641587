package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/bus"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/calendar"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/router"
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse [text]",
	Short: "Extract a calendar event from text",
	Long: `Extract the event described by a piece of text and print it along
with a prefilled Google Calendar link.

Examples:
  text2cal parse "Dentist appointment Tuesday at 2:30 PM"

  # Force a specific provider
  text2cal parse --provider gemini "Team offsite Sep 12-14 in Lisbon"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().String("provider", "", "override the selected parse provider")
	parseCmd.Flags().String("model", "", "override the selected model")
	parseCmd.Flags().Bool("debug", false, "print the redacted request payload")
}

func runParse(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	providerFlag, _ := cmd.Flags().GetString("provider")
	modelFlag, _ := cmd.Flags().GetString("model")
	debugFlag, _ := cmd.Flags().GetBool("debug")
	text := strings.Join(args, " ")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPTimeout+10*time.Second)
	defer cancel()

	result := a.router.Handle(ctx, bus.Envelope{
		Type:      bus.MsgRunParse,
		RequestID: bus.NewRequestID(),
		Provider:  providerFlag,
		Model:     modelFlag,
		Payload:   router.ParseRequest{Text: text},
	})

	if debugFlag && result.Debug != nil {
		printDebug(result.Debug.Endpoint, result.Debug.Model, result.Debug.Payload)
	}
	if !result.OK {
		return fmt.Errorf("parse failed: %s", result.Error)
	}
	if result.Event == nil {
		return fmt.Errorf("parse returned no event")
	}

	fmt.Printf("Title:    %s\n", result.Event.Title)
	fmt.Printf("Start:    %s\n", result.Event.Start)
	if result.Event.End != "" {
		fmt.Printf("End:      %s\n", result.Event.End)
	}
	if result.Event.Location != "" {
		fmt.Printf("Location: %s\n", result.Event.Location)
	}
	fmt.Printf("All-day:  %t\n", !result.Event.HasTime)

	url, err := calendar.EventURL(result.Event)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(url)
	return nil
}
