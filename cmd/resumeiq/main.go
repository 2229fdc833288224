package main

import (
	"os"

	"github.com/fatih/color"

	"alfredoptarigan/resumeiq/internal/models"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "❌ %v\n", err)
		if kind := models.ErrorKind(err); kind != "internal" {
			color.New(color.FgHiBlack).Fprintf(os.Stderr, "   (%s)\n", kind)
		}
		os.Exit(1)
	}
}
