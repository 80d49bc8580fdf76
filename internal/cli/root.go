package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eleven-am/smart-selfie/internal/vision"
	"github.com/spf13/cobra"
)

const Version = "1.0.0"

type options struct {
	analysisURL string
	timeout     time.Duration
}

func (o *options) client() *vision.Client {
	return vision.NewClient(vision.Config{BaseURL: o.analysisURL, Timeout: o.timeout})
}

func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "smartcam",
		Short:         "Smile-triggered selfie camera daemon",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	defaultURL := os.Getenv("ANALYSIS_URL")
	if defaultURL == "" {
		defaultURL = vision.DefaultBaseURL
	}
	root.PersistentFlags().StringVar(&opts.analysisURL, "analysis-url", defaultURL, "analysis backend base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout for backend calls")

	root.AddCommand(
		newServeCommand(),
		newProbeCommand(opts),
		newGalleryCommand(opts),
	)
	return root
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
