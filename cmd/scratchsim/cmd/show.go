package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/scratchsim/scratchsim/datarecording"
	"github.com/scratchsim/scratchsim/flowmon"
)

var showCmd = &cobra.Command{
	Use:   "show <recording.sqlite3>",
	Short: "Print the flow statistics stored in a recording as YAML.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, err := cmd.Flags().GetString("run")
		if err != nil {
			return err
		}

		return showRecording(args[0], runID, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().String("run", "",
		"Only show the flows of this run ID.")
}

func showRecording(path, runID string, out io.Writer) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	reader, err := datarecording.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	reader.MapTable(flowmon.FlowTable, flowmon.FlowRow{})

	params := datarecording.QueryParams{OrderBy: "RunID, Flow"}
	if runID != "" {
		params.Where = "RunID = ?"
		params.Args = []any{runID}
	}

	results, total, err := reader.Query(context.Background(),
		flowmon.FlowTable, params)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if total == 0 {
		return fmt.Errorf("no flows recorded in %s", path)
	}

	rows := make([]*flowmon.FlowRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, r.(*flowmon.FlowRow))
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)

	if err := enc.Encode(rows); err != nil {
		return err
	}

	return enc.Close()
}
