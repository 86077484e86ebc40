package application

import (
	"context"

	analysis "qorsense-cloud/internal/analysis/domain"
	readings "qorsense-cloud/internal/readings/domain"
)

// Progress reports batch advancement after each sensor finishes.
type Progress func(done, total int, sensorID string, err error)

// BatchResult summarizes one batch run.
type BatchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Records   []*analysis.AssessmentRecord
	Errors    map[string]string
}

// AnalyzeBatch assesses each sensor in turn. Per-sensor failures are
// recorded and the batch continues; only context cancellation aborts the
// run early.
func (s *Service) AnalyzeBatch(ctx context.Context, tenantID string, sensorIDs []string, query readings.SeriesQuery, progress Progress) (BatchResult, error) {
	result := BatchResult{
		Total:  len(sensorIDs),
		Errors: map[string]string{},
	}

	for i, sensorID := range sensorIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		record, err := s.AnalyzeSensor(ctx, AnalyzeRequest{
			TenantID: tenantID,
			SensorID: sensorID,
			Query:    query,
		})
		if err != nil {
			result.Failed++
			result.Errors[sensorID] = err.Error()
			s.logger.Printf("analysis batch: sensor=%s err=%v", sensorID, err)
		} else {
			result.Succeeded++
			result.Records = append(result.Records, record)
		}

		if progress != nil {
			progress(i+1, result.Total, sensorID, err)
		}
	}
	return result, nil
}
