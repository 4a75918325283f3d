package evidence

import (
	"context"
	"errors"
	"strings"
	"time"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) CreateEntry(ctx context.Context, entry Entry) (int64, error) {
	if entry.EmployeeID <= 0 || entry.AuthorID <= 0 {
		return 0, errors.New("employee and author ids must be positive")
	}
	if entry.Rating < 1 || entry.Rating > 5 {
		return 0, errors.New("rating must be between 1 and 5")
	}
	if _, err := ParseDimension(string(entry.Dimension)); err != nil {
		return 0, err
	}
	if entry.EntryDate.IsZero() {
		entry.EntryDate = time.Now().UTC()
	}
	entry.Content = strings.TrimSpace(entry.Content)
	return s.store.CreateEntry(ctx, entry)
}

func (s *Service) ListEntries(ctx context.Context, employeeID int64, start, end time.Time, limit, offset int) ([]Entry, error) {
	return s.store.ListEntries(ctx, employeeID, start, end, limit, offset)
}

func (s *Service) DimensionSummaries(ctx context.Context, employeeID int64, start, end time.Time) ([]DimensionSummary, error) {
	return s.store.DimensionSummaries(ctx, employeeID, start, end)
}

// RecencyWeightedRating is the decayed-average retrieval primitive reserved
// for future recency-aware scoring.
func (s *Service) RecencyWeightedRating(ctx context.Context, employeeID int64, dimension Dimension, start, end time.Time, halfLifeDays float64) (float64, error) {
	entries, err := s.store.EntriesForDimension(ctx, employeeID, dimension, start, end)
	if err != nil {
		return 0, err
	}
	return RecencyWeightedAverage(entries, end, halfLifeDays), nil
}
