package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"alfredoptarigan/resumeiq/internal/services"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "List the available analysis features",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := services.NewTemplateStore()
		if err != nil {
			return err
		}

		fmt.Printf("%-22s %-28s %s\n", "ID", "Feature", "Backends")
		fmt.Println(strings.Repeat("─", 64))

		offline := 0
		for _, f := range store.Features() {
			backends := color.CyanString("cloud")
			if f.Offline {
				backends = color.CyanString("cloud") + ", " + color.GreenString("local")
				offline++
			}
			fmt.Printf("%-22s %-28s %s\n", f.ID, f.Label, backends)
		}

		fmt.Printf("\nTotal: %d features (%d available offline)\n", len(store.Features()), offline)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(featuresCmd)
}
