package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/bus"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/calendar"
	"github.com/jbird-nerd/CalendarCaptureExtension/internal/capture"
)

// eventCmd represents the event command
var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Run the full capture pipeline on an image file",
	Long: `Run the complete pipeline against an image file: select a region,
recognize its text, extract the event, and print a prefilled Google
Calendar link.

The image file stands in for the screen; the selection defaults to the
whole image.

Examples:
  # Process a whole screenshot
  text2cal event --image screenshot.png

  # Process a region (x,y,width,height in pixels)
  text2cal event --image screenshot.png --select 120,80,600,200`,
	RunE: runEvent,
}

func init() {
	rootCmd.AddCommand(eventCmd)

	eventCmd.Flags().String("image", "", "PNG image to process (required)")
	eventCmd.Flags().String("select", "", "selection rectangle as x,y,width,height (default: whole image)")
	eventCmd.Flags().Float64("dpr", 1.0, "device pixel ratio applied to the selection")
	_ = eventCmd.MarkFlagRequired("image")
}

// fileCapturer serves an image file as the captured viewport.
type fileCapturer struct {
	path string
}

func (c fileCapturer) CaptureViewport(_ context.Context) ([]byte, error) {
	return os.ReadFile(c.path)
}

func runEvent(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	imagePath, _ := cmd.Flags().GetString("image")
	selectArg, _ := cmd.Flags().GetString("select")
	dpr, _ := cmd.Flags().GetFloat64("dpr")

	sel, err := resolveSelection(imagePath, selectArg, dpr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	b := bus.New(a.log)
	session := capture.NewSession(capture.SessionConfig{
		Bus:              b,
		DevicePixelRatio: dpr,
		Logger:           a.log,
	})

	outcomes := make(chan *capture.PopupOutcome, 1)
	background := capture.NewBackground(capture.BackgroundConfig{
		Bus:      b,
		Router:   a.router,
		Capturer: fileCapturer{path: imagePath},
		OpenPopup: func(ctx context.Context) (func(), error) {
			popupCtx, cancelPopup := context.WithCancel(ctx)
			popup := capture.NewPopup(b, session.Progress(), a.log)
			go func() {
				outcome, err := popup.Run(popupCtx)
				if err != nil {
					a.log.WithError(err).Error("Popup terminated abnormally")
					session.Progress() <- capture.StageEvent{Stage: capture.StateFailed, Err: err.Error()}
				}
				outcomes <- outcome
			}()
			return cancelPopup, nil
		},
		OpenOptions: func() {
			fmt.Fprintln(os.Stderr, "Configuration incomplete: store API keys (OPENAI_API_KEY, GEMINI_API_KEY, ANTHROPIC_API_KEY, GOOGLE_VISION_API_KEY) and pick methods with 'text2cal select'.")
		},
		Logger: a.log,
	})
	go background.Run(ctx)

	if err := session.Begin(ctx); err != nil {
		return err
	}
	if err := session.CompleteSelection(ctx, sel); err != nil {
		return err
	}
	if session.State() == capture.StateIdle {
		return fmt.Errorf("selection %dx%d is below the %d pixel minimum", sel.Width, sel.Height, capture.MinSelectionSize)
	}
	if err := session.OpenPopup(ctx); err != nil {
		return err
	}

	final, err := session.Track(ctx)
	if err != nil {
		return fmt.Errorf("pipeline did not finish: %w", err)
	}
	if final == capture.StateFailed {
		return fmt.Errorf("pipeline failed: %s", session.LastError())
	}

	outcome := <-outcomes
	if outcome == nil || outcome.Event == nil {
		return fmt.Errorf("pipeline finished without an event")
	}

	url, err := calendar.EventURL(outcome.Event)
	if err != nil {
		return err
	}

	fmt.Println("=== Recognized Text ===")
	fmt.Println(outcome.Text)
	fmt.Println()
	fmt.Println("=== Event ===")
	fmt.Printf("Title:    %s\n", outcome.Event.Title)
	fmt.Printf("Start:    %s\n", outcome.Event.Start)
	if outcome.Event.End != "" {
		fmt.Printf("End:      %s\n", outcome.Event.End)
	}
	if outcome.Event.Location != "" {
		fmt.Printf("Location: %s\n", outcome.Event.Location)
	}
	fmt.Printf("All-day:  %t\n", !outcome.Event.HasTime)
	fmt.Println()
	fmt.Println(url)
	return nil
}

// resolveSelection parses the --select flag, defaulting to the full image.
func resolveSelection(imagePath, selectArg string, dpr float64) (capture.Rect, error) {
	if selectArg != "" {
		parts := strings.Split(selectArg, ",")
		if len(parts) != 4 {
			return capture.Rect{}, fmt.Errorf("--select must be x,y,width,height")
		}
		nums := make([]int, 4)
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return capture.Rect{}, fmt.Errorf("--select component %q is not a number", p)
			}
			nums[i] = n
		}
		return capture.Rect{X: nums[0], Y: nums[1], Width: nums[2], Height: nums[3]}, nil
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return capture.Rect{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return capture.Rect{}, fmt.Errorf("failed to read PNG header: %w", err)
	}
	if dpr <= 0 {
		dpr = 1
	}
	return capture.Rect{
		Width:  int(float64(cfg.Width) / dpr),
		Height: int(float64(cfg.Height) / dpr),
	}, nil
}
