package worker

import (
	"context"

	"github.com/dfarias/chessinsight/internal/lichess"
	"github.com/dfarias/chessinsight/internal/models"
)

// BatchRunnerInterface is the slice of the batch service a background job
// needs. Declared here to avoid importing the service package.
type BatchRunnerInterface interface {
	AnalyzeBatch(ctx context.Context, filters lichess.Filters) (*models.BatchReport, error)
}

// AnalyzeBatchJob fetches and analyzes a batch of games in the background and
// hands the finished report to OnComplete.
type AnalyzeBatchJob struct {
	Runner     BatchRunnerInterface
	Filters    lichess.Filters
	OnComplete func(*models.BatchReport)
}

func (j *AnalyzeBatchJob) Name() string { return "analyze_batch" }

func (j *AnalyzeBatchJob) Run(ctx context.Context) error {
	report, err := j.Runner.AnalyzeBatch(ctx, j.Filters)
	if err != nil {
		return err
	}
	if j.OnComplete != nil {
		j.OnComplete(report)
	}
	return nil
}
