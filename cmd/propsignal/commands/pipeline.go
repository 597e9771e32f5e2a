package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// pipelineCmd runs the pipeline once and exits.
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the signal pipeline once",
	Long: `Runs the full pipeline (snapshots, detection, mapping, notifications)
once and prints the run report as JSON.

All writes are idempotent; re-running on unchanged data creates nothing new.

Example:
  go run ./cmd/propsignal pipeline --org org-1
  go run ./cmd/propsignal pipeline --all`,
	RunE: runPipeline,
}

var (
	pipelineOrg string
	pipelineAll bool
)

func init() {
	rootCmd.AddCommand(pipelineCmd)

	pipelineCmd.Flags().StringVar(&pipelineOrg, "org", "", "org ID to run for")
	pipelineCmd.Flags().BoolVar(&pipelineAll, "all", false, "run for every active org")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if pipelineOrg == "" && !pipelineAll {
		return fmt.Errorf("either --org or --all is required")
	}

	d, err := buildDeps()
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer d.close()

	ctx := context.Background()

	orgIDs := []string{pipelineOrg}
	if pipelineAll {
		orgIDs, err = d.orgs.ListActiveOrgs(ctx)
		if err != nil {
			return fmt.Errorf("list active orgs: %w", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	hadErrors := false
	for _, orgID := range orgIDs {
		res := d.orchestrator.Run(ctx, orgID)
		if len(res.Errors) > 0 {
			hadErrors = true
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
	}

	if hadErrors {
		return fmt.Errorf("pipeline completed with stage errors")
	}
	return nil
}
