package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"alfredoptarigan/resumeiq/internal/services"
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Print the plain text of a PDF or DOCX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		text, err := services.NewTextExtractor().Extract(filepath.Base(args[0]), "", data)
		if err != nil {
			return err
		}

		fmt.Println(text)
		color.New(color.FgHiBlack).Fprintf(os.Stderr, "\n%d characters extracted\n", len([]rune(text)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
