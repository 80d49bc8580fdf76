package cli

import (
	"github.com/eleven-am/smart-selfie/internal/bootstrap"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the camera daemon and control API",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			bootstrap.Run()
		},
	}
}
