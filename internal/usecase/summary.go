package usecase

import (
	"context"

	"github.com/example/viewlulu/internal/repository"
)

// HistorySummary aggregates recent detections.
type HistorySummary struct {
	Total           int            `json:"total" yaml:"total"`
	BySource        map[string]int `json:"by_source" yaml:"by_source"`
	AverageDistance float64        `json:"average_distance" yaml:"average_distance"`
	Distinct        int            `json:"distinct_products" yaml:"distinct_products"`
}

// Summarize aggregates the last limit detections.
func (uc *DetectUseCase) Summarize(ctx context.Context, limit int) (*HistorySummary, error) {
	logs, err := uc.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return summarize(logs), nil
}

func summarize(logs []repository.DetectionLog) *HistorySummary {
	summary := &HistorySummary{Total: len(logs), BySource: make(map[string]int)}
	products := make(map[string]struct{})

	var distanceSum float64
	var distanceCount int
	for _, log := range logs {
		source := log.Source
		if source == "" {
			source = "unknown"
		}
		summary.BySource[source]++
		products[log.DetectedID] = struct{}{}
		if log.BestDistance != nil {
			distanceSum += *log.BestDistance
			distanceCount++
		}
	}
	if distanceCount > 0 {
		summary.AverageDistance = distanceSum / float64(distanceCount)
	}
	summary.Distinct = len(products)
	return summary
}
