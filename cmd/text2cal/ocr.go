package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/bus"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/router"
)

// ocrCmd represents the ocr command
var ocrCmd = &cobra.Command{
	Use:   "ocr",
	Short: "Recognize text in an image",
	Long: `Recognize the text in an image using the selected OCR method, or an
explicitly named provider.

Examples:
  # Use the persisted OCR selection
  text2cal ocr --image note.png

  # Force a specific provider and model
  text2cal ocr --image note.png --provider claude-vision --model claude-sonnet-4-20250514`,
	RunE: runOCR,
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().String("image", "", "PNG image to recognize (required)")
	ocrCmd.Flags().String("provider", "", "override the selected OCR provider")
	ocrCmd.Flags().String("model", "", "override the selected model")
	ocrCmd.Flags().Bool("debug", false, "print the redacted request payload")
	_ = ocrCmd.MarkFlagRequired("image")
}

func runOCR(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	imagePath, _ := cmd.Flags().GetString("image")
	providerFlag, _ := cmd.Flags().GetString("provider")
	modelFlag, _ := cmd.Flags().GetString("model")
	debugFlag, _ := cmd.Flags().GetBool("debug")

	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPTimeout+10*time.Second)
	defer cancel()

	result := a.router.Handle(ctx, bus.Envelope{
		Type:      bus.MsgRunOCR,
		RequestID: bus.NewRequestID(),
		Provider:  providerFlag,
		Model:     modelFlag,
		Payload:   router.OCRRequest{ImageBase64: base64.StdEncoding.EncodeToString(raw)},
	})

	if debugFlag && result.Debug != nil {
		printDebug(result.Debug.Endpoint, result.Debug.Model, result.Debug.Payload)
	}
	if !result.OK {
		return fmt.Errorf("ocr failed: %s", result.Error)
	}
	fmt.Println(result.Text)
	return nil
}

func printDebug(endpoint, model string, payload json.RawMessage) {
	fmt.Fprintf(os.Stderr, "Endpoint: %s\n", endpoint)
	fmt.Fprintf(os.Stderr, "Model:    %s\n", model)
	if len(payload) > 0 {
		var pretty map[string]any
		if err := json.Unmarshal(payload, &pretty); err == nil {
			if out, err := json.MarshalIndent(pretty, "", "  "); err == nil {
				fmt.Fprintf(os.Stderr, "Payload:\n%s\n", out)
				return
			}
		}
		fmt.Fprintf(os.Stderr, "Payload: %s\n", payload)
	}
}
