package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/repoforge/repoforge/internal/branding"
	"github.com/repoforge/repoforge/internal/config"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

// errReported marks failures whose details were already printed, so Execute
// only sets the exit status.
var errReported = errors.New("failure already reported")

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` scaffolds new software projects by running a fixed pipeline of
generation stages (structure, AI-assisted code, workflows, security, tests, documentation)
and commits the result only after every validation check passes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
	},
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}
