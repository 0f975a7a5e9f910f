package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"recmon/internal/recmon"
	"recmon/internal/viewmodels"
)

var errNoRecordings = errors.New("no recordings found")

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the monitoring report as JSON followed by a summary",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

var (
	reportStrict   bool
	reportJSONOnly bool
)

func init() {
	reportCmd.Flags().BoolVar(&reportStrict, "strict", false, "Exit 1 when no recordings are found")
	reportCmd.Flags().BoolVar(&reportJSONOnly, "json", false, "Print only the JSON report")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	asm, err := newAssembler(cfg, resolveBoardID(cfg))
	if err != nil {
		return err
	}

	r := asm.Build(cmd.Context())
	if err := writeReport(cmd, r, !reportJSONOnly); err != nil {
		return err
	}

	if reportStrict && r.TotalVideos == 0 {
		return errNoRecordings
	}
	return nil
}

func writeReport(cmd *cobra.Command, r *recmon.Report, summary bool) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, string(data)); err != nil {
		return err
	}
	if summary {
		if _, err := fmt.Fprint(out, "\n"+viewmodels.BuildSummary(r).Render()); err != nil {
			return err
		}
	}
	return nil
}
