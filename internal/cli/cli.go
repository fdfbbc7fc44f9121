// Package cli provides the command-line interface for Itzana
package cli

import (
	"os"
	"runtime"

	"github.com/injoyai/logs"
)

// Run starts the CLI application
func Run() {
	logs.SetFormatter(logs.TimeFormatter)
	logs.SetShowColor(runtime.GOOS != "windows")

	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
