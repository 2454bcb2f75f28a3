package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/repoforge/repoforge/internal/config"
	"github.com/repoforge/repoforge/internal/history"
)

var (
	historyLimit int
	historyJSON  bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print as JSON")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs or show one run's stages",
	Long: `Without arguments, list the most recent pipeline runs. With a run id (or a
unique prefix of one), show every stage result of that run in order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Resolve()
		if err != nil {
			return fmt.Errorf("reading settings: %w", err)
		}
		store, err := history.Open(settings.HistoryPath)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if historyJSON {
				return printJSON(out, run)
			}
			printRun(out, run)
			return nil
		}

		runs, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if historyJSON {
			return printJSON(out, runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tPROJECT\tSTATE\tFAILED AT\tSTARTED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", shortID(r.ID), r.ProjectName, r.State,
				orDash(r.FailedStage), r.Started.Local().Format(time.DateTime))
		}
		return tw.Flush()
	},
}

func printRun(w io.Writer, run *history.Run) {
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "Project: %s (%s)\n", run.ProjectName, run.ProjectDir)
	fmt.Fprintf(w, "State:   %s\n", run.State)
	if run.FailedStage != "" {
		fmt.Fprintf(w, "Failed:  %s\n", run.FailedStage)
	}
	if run.Summary != "" {
		fmt.Fprintf(w, "Checks:  %s\n", run.Summary)
	}
	if run.CommitHash != "" {
		fmt.Fprintf(w, "Commit:  %s\n", run.CommitHash)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTAGE\tSTATUS\tREASON\tDURATION")
	for _, st := range run.Stages {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", st.Seq, st.Name, st.Status, orDash(st.Reason), st.Duration)
	}
	_ = tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
