package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/repoforge/repoforge/internal/project"
	"github.com/repoforge/repoforge/internal/validate"
)

var validateJSON bool

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Run the validation checks against a generated project",
	Long: `Re-run the validation checks against an existing project using its persisted
configuration. Exits with status 1 when any check fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		if _, err := os.Stat(project.ConfigPath(dir)); err != nil {
			return fmt.Errorf("%s is not a generated project: %w", dir, err)
		}
		cfg, err := project.Load(dir)
		if err != nil {
			return err
		}

		report, err := validate.New().Validate(dir, cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if validateJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling report: %w", err)
			}
			fmt.Fprintln(out, string(data))
		} else {
			renderReport(out, report)
		}

		if !report.Passed() {
			return errReported
		}
		return nil
	},
}
