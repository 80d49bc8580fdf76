package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/eleven-am/smart-selfie/internal/shared"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newGalleryCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Manage photos stored by the analysis backend",
	}
	cmd.AddCommand(
		newGalleryListCommand(opts),
		newGalleryDeleteCommand(opts),
		newGalleryClearCommand(opts),
		newGalleryExportCommand(opts),
	)
	return cmd
}

func newGalleryListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List captured photos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().Gallery(cmd.Context())
			if err != nil {
				return fmt.Errorf("list gallery: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(resp.Photos) == 0 {
				fmt.Fprintln(out, "No photos in gallery.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "FILENAME\tTIMESTAMP\tSMILE\tEMOTION\tAGE\tGENDER")
			fmt.Fprintln(w, "--------\t---------\t-----\t-------\t---\t------")
			for _, p := range resp.Photos {
				m := p.Metadata
				fmt.Fprintf(w, "%s\t%s\t%.0f%%\t%s\t%s\t%s\n",
					p.Filename, p.Timestamp, m.SmileProb*100, m.EmotionLabel, m.AgeLabel, m.GenderLabel)
			}
			return w.Flush()
		},
	}
}

func newGalleryDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <filename>",
		Short: "Delete one photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().DeletePhoto(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newGalleryClearCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every photo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().ClearGallery(cmd.Context()); err != nil {
				return fmt.Errorf("clear gallery: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Gallery cleared.")
			return nil
		},
	}
}

func newGalleryExportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Download every photo into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}

			resp, err := opts.client().Gallery(cmd.Context())
			if err != nil {
				return fmt.Errorf("list gallery: %w", err)
			}

			bar := progressbar.NewOptions(len(resp.Photos),
				progressbar.OptionSetDescription("Exporting"),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionShowCount(),
			)

			var skipped int
			for _, p := range resp.Photos {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				data, err := shared.DecodeDataURL(p.Image)
				if err != nil || p.Filename == "" {
					skipped++
					_ = bar.Add(1)
					continue
				}
				path := filepath.Join(dir, filepath.Base(p.Filename))
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			fmt.Fprintf(cmd.OutOrStdout(), "\nExported %d photo(s) to %s", len(resp.Photos)-skipped, dir)
			if skipped > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d skipped)", skipped)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}
