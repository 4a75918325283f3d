package evidence

import (
	"context"
	"time"
)

type StoreAPI interface {
	CreateEntry(ctx context.Context, entry Entry) (int64, error)
	ListEntries(ctx context.Context, employeeID int64, start, end time.Time, limit, offset int) ([]Entry, error)
	DimensionSummaries(ctx context.Context, employeeID int64, start, end time.Time) ([]DimensionSummary, error)
	EntriesForDimension(ctx context.Context, employeeID int64, dimension Dimension, start, end time.Time) ([]Entry, error)
}
