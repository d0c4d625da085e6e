package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wardrobeapi/services"
)

func whitenCmd() *cobra.Command {
	var (
		settings  = services.DefaultWhitening
		feather   float64
		threshold uint8
	)

	cmd := &cobra.Command{
		Use:   "whiten <input> <output.png>",
		Short: "Whiten the background of a garment photo",
		Long: `Push light background pixels towards white, leaving the centre of the
photo untouched, and write the result as PNG. Accepts JPEG, PNG and WebP.

With --feather the whole photo is cleaned through a blurred mask of the
pixels at or above --threshold instead.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			var whitened []byte
			if feather > 0 {
				whitened, err = services.FeatherBackgroundBytes(raw, threshold, feather)
			} else {
				whitened, err = services.WhitenBackgroundBytes(raw, settings)
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], whitened, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", args[1], len(whitened))
			return nil
		},
	}

	cmd.Flags().Uint8Var(&settings.Lower, "lower", settings.Lower, "luminance where blending towards white starts")
	cmd.Flags().Uint8Var(&settings.Upper, "upper", settings.Upper, "luminance from which pixels become white")
	cmd.Flags().Float64Var(&settings.ProtectedRatio, "protected", settings.ProtectedRatio, "share of the centre left untouched")
	cmd.Flags().Float64Var(&feather, "feather", 0, "blur sigma of the feathered mask, 0 disables feathering")
	cmd.Flags().Uint8Var(&threshold, "threshold", 240, "luminance treated as background when feathering")
	return cmd
}
