// Command outfitctl runs the outfit engine and colour tools against local files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "outfitctl",
		Short: "Generate outfits and inspect colours offline",
		Long: `Offline tools over the wardrobe engine.

Examples:
  # Generate an outfit for cold weather from an exported wardrobe
  outfitctl generate --wardrobe wardrobe.json --climate cold --seed 42

  # Classify the harmony of two colours
  outfitctl harmony "#1f3a93" "#e67e22"

  # Whiten the background of a garment photo
  outfitctl whiten shirt.jpg shirt.png`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(generateCmd(), harmonyCmd(), whitenCmd())
	return root
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
