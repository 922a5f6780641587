package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/bus"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/router"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [vendor]",
	Short: "Check a stored API key against its vendor",
	Long: `Make a minimal authenticated call to a vendor to check whether the
stored API key works.

Vendors: openai, gemini, claude, google

Examples:
  text2cal validate openai
  text2cal validate google`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	vendor, err := parseVendor(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPTimeout+10*time.Second)
	defer cancel()

	result := a.router.Handle(ctx, bus.Envelope{
		Type:      bus.MsgValidateKey,
		RequestID: bus.NewRequestID(),
		Payload:   router.ValidateKeyRequest{Vendor: vendor},
	})
	if !result.OK {
		return fmt.Errorf("validation failed: %s", result.Error)
	}
	if !result.Valid {
		return fmt.Errorf("key for %s failed validation", vendor)
	}
	fmt.Printf("Key for %s is valid\n", vendor)
	return nil
}
