package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mlconsole",
	Short: "MLConsole — ML monitoring console",
	Long:  "MLConsole is a terminal console for an ML monitoring platform: projects, pipelines, model versions, deployments, drift monitors, and report schedules, with a local-first session and audit trail that keep working when the backend does not.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/mlconsole.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
