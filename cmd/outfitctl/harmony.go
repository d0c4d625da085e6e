package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"wardrobeapi/colorharmony"
)

type harmonyOutput struct {
	Color1   colorharmony.HSL     `json:"color1"`
	Color2   colorharmony.HSL     `json:"color2"`
	Distance float64              `json:"distance"`
	Harmony  colorharmony.Harmony `json:"harmony"`
}

func harmonyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harmony <hex1> <hex2>",
		Short: "Classify the harmony of two colours",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			first, err := colorharmony.HexToHSL(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			second, err := colorharmony.HexToHSL(args[1])
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(harmonyOutput{
				Color1:   first,
				Color2:   second,
				Distance: colorharmony.AngularDistance(first.H, second.H),
				Harmony:  colorharmony.EvaluateHarmony(first.H, second.H),
			})
		},
	}
}
