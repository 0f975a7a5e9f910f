package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"recmon/internal/recmon"
	"recmon/internal/timeline"
)

var parseCmd = &cobra.Command{
	Use:   "parse FILENAME...",
	Short: "Show the capture time each recording name maps to",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	loc := time.Local
	if timezoneFlag != "" {
		l, err := time.LoadLocation(timezoneFlag)
		if err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
		loc = l
	}
	now := recmon.Civil(time.Now(), loc)

	out := cmd.OutOrStdout()
	invalid := 0
	for _, arg := range args {
		name := filepath.Base(arg)
		rec, ok := timeline.Parse(name, now)
		if !ok {
			invalid++
			fmt.Fprintf(out, "%s\tnot a recording name\n", name)
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", name, rec.Timestamp.Format(recmon.CivilLayout))
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d names not recognized", invalid, len(args))
	}
	return nil
}
