package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bitprint",
	Short: "BitPrint drives a stepper machine from G-code files",
	Long: `BitPrint translates G-code into per-axis step counts, caches the
translation next to the source file and plays it back through a coordinated
stepping engine.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Machine configuration file (YAML or JSON)")
	flags.StringVar(&opts.dir, "dir", "", "Directory holding G-code and translated files (overrides storage.dir)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every executed line")
	flags.BoolVar(&opts.realtime, "realtime", false, "Pace pulses against the wall clock instead of a virtual one")
	flags.StringVar(&opts.serialDevice, "serial", "", "Use this serial device as the operator console")
	flags.IntVar(&opts.baud, "baud", 0, "Console baud rate (overrides console.baud)")
}
