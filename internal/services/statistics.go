package services

import (
	"context"
	"fmt"
	"time"

	"github.com/samrato/QMMMUST/internal/store"
)

type StatisticsService struct {
	store *store.Store
}

func NewStatisticsService(st *store.Store) *StatisticsService {
	return &StatisticsService{store: st}
}

type TimeSeriesData struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
}

// GateUsageStats returns approved entries/exits and denials per gate.
func (ss *StatisticsService) GateUsageStats(ctx context.Context, start, end time.Time) ([]store.GateUsage, error) {
	stats, err := ss.store.GateUsage(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("gate usage: %w", err)
	}
	return stats, nil
}

// MovementTimeSeries buckets approved movements by hour, day, week or month.
// Unknown intervals fall back to hourly buckets.
func (ss *StatisticsService) MovementTimeSeries(ctx context.Context, gateName, interval string, start, end time.Time) ([]TimeSeriesData, error) {
	times, err := ss.store.MovementTimes(ctx, gateName, start, end)
	if err != nil {
		return nil, fmt.Errorf("movement time series: %w", err)
	}

	var data []TimeSeriesData
	for _, t := range times {
		bucket := truncate(t.In(start.Location()), interval)
		if n := len(data); n > 0 && data[n-1].Timestamp.Equal(bucket) {
			data[n-1].Count++
			continue
		}
		data = append(data, TimeSeriesData{Timestamp: bucket, Count: 1})
	}
	return data, nil
}

func truncate(t time.Time, interval string) time.Time {
	y, m, d := t.Date()
	switch interval {
	case "day":
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case "week":
		day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case "month":
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, t.Location())
	}
}
