package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bitprint/standalone"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the G-code files in storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		con, closer, err := s.console()
		if err != nil {
			return err
		}
		defer closer.Close()

		files, err := con.List()
		if err != nil {
			return err
		}
		con.PrintList(files)
		return nil
	},
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Pick a file by number on the console and run it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, "")
	},
}

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a G-code file, translating it first when its cache is stale",
	Long: `Run prepares the translated file of the given G-code file and plays it
back. Without an argument the file is picked interactively, as with select.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var file string
		if len(args) > 0 {
			file = args[0]
		}
		return runJob(cmd, file)
	},
}

var translateCmd = &cobra.Command{
	Use:   "translate <file>",
	Short: "Bring the translated file of a G-code file up to date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		status, err := s.mgr.Translate(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: translation %s\n", args[0], status)
		return nil
	},
}

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Home X, Y and Z against their limit switches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.mgr.EnableAll(); err != nil {
			return err
		}
		if err := s.mgr.HomeAll(); err != nil {
			return err
		}
		s.printPulses(cmd.OutOrStdout())
		s.printPosition(cmd.OutOrStdout())
		return nil
	},
}

var jogOpts struct {
	axis  string
	to    float64
	delay int
}

var jogCmd = &cobra.Command{
	Use:   "jog",
	Short: "Move a single axis to a position",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ok := standalone.AxisFromName(jogOpts.axis)
		if !ok {
			return fmt.Errorf("unknown axis %q", jogOpts.axis)
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		delay := jogOpts.delay
		if delay == 0 {
			delay = s.cfg.DefaultDelayMicros
		}

		if err := s.mgr.EnableAll(); err != nil {
			return err
		}
		if err := s.mgr.Jog(a, jogOpts.to, delay); err != nil {
			return err
		}
		s.printPulses(cmd.OutOrStdout())
		s.printPosition(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	jogCmd.Flags().StringVar(&jogOpts.axis, "axis", "x", "Axis to move (x, y, z or e)")
	jogCmd.Flags().Float64Var(&jogOpts.to, "to", 0, "Target position (mm)")
	jogCmd.Flags().IntVar(&jogOpts.delay, "delay", 0, "Pulse delay (us); defaults to default_delay_us")

	rootCmd.AddCommand(listCmd, selectCmd, runCmd, translateCmd, homeCmd, jogCmd)
}

// runJob plays file, asking on the console when file is empty
func runJob(cmd *cobra.Command, file string) error {
	s, err := openSession()
	if err != nil {
		return err
	}

	if file == "" {
		con, closer, err := s.console()
		if err != nil {
			return err
		}
		file, err = con.Select()
		closer.Close()
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, status, err := s.mgr.Run(ctx, file)
	if err != nil {
		s.log.Error("print aborted", zap.String("file", file), zap.Error(err))
		return err
	}
	s.log.Info("print finished", zap.String("file", file), zap.Stringer("cache", status))

	s.printSummary(cmd.OutOrStdout(), rep)
	return s.mgr.DisableAll()
}
