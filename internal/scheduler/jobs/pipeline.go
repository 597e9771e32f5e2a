package jobs

import (
	"context"
	"fmt"

	"github.com/dxbintel/propsignal/internal/contracts"
	"github.com/dxbintel/propsignal/internal/pipeline"
	"github.com/dxbintel/propsignal/pkg/logger"
)

// PipelineJob runs the full signal pipeline for every active org.
type PipelineJob struct {
	orchestrator *pipeline.Orchestrator
	orgs         contracts.OrgReader
	schedule     string
	logger       *logger.Logger
}

// NewPipelineJob creates a pipeline job. schedule is a cron expression with
// a seconds field.
func NewPipelineJob(orchestrator *pipeline.Orchestrator, orgs contracts.OrgReader, schedule string, log *logger.Logger) *PipelineJob {
	return &PipelineJob{
		orchestrator: orchestrator,
		orgs:         orgs,
		schedule:     schedule,
		logger:       log,
	}
}

// Name returns the job name.
func (j *PipelineJob) Name() string {
	return "signal_pipeline"
}

// Schedule returns the configured cron expression.
func (j *PipelineJob) Schedule() string {
	return j.schedule
}

// Run executes the pipeline for each active org in turn. One org's stage
// failures never block the others; only an org-listing failure aborts.
func (j *PipelineJob) Run(ctx context.Context) error {
	orgIDs, err := j.orgs.ListActiveOrgs(ctx)
	if err != nil {
		return fmt.Errorf("list active orgs: %w", err)
	}

	j.logger.WithField("orgs", len(orgIDs)).Info("Starting scheduled pipeline run")

	failed := 0
	for _, orgID := range orgIDs {
		res := j.orchestrator.Run(ctx, orgID)
		if len(res.Errors) > 0 {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("pipeline run had stage errors in %d of %d orgs", failed, len(orgIDs))
	}
	return nil
}
