package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/scratchsim/scratchsim/scenario"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenario.yaml>...",
	Short: "Check scenario files without running them.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0

		for _, path := range args {
			if err := validateScenario(path, cmd.OutOrStdout()); err != nil {
				logger.Error().Str("file", path).Err(err).Msg("invalid scenario")
				failed++
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d scenarios are invalid", failed, len(args))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// validateScenario loads a scenario and builds it on a scratch scheduler so
// that unreachable flows are caught too.
func validateScenario(path string, out io.Writer) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	s := sc.SchedulerBuilder().Build()
	defer s.Destroy()

	if _, err := sc.Build(s); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: ok (%s, %d nodes, %d links, %d flows)\n",
		path, sc.Name, len(sc.Nodes), len(sc.Links), len(sc.Flows))

	return nil
}
