package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nasmcore",
	Short: "Line parser and instruction table compiler",
	Long:  `nasmcore parses assembly source lines and compiles insns.dat-format instruction databases into bytecode and disassembly tables.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core operations",
	})

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(gentablesCmd)
}
