package evidence

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateEntry(ctx context.Context, entry Entry) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO evidence_entries (employee_id, author_id, dimension, rating, content, entry_date)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, entry.EmployeeID, entry.AuthorID, string(entry.Dimension), entry.Rating, entry.Content, entry.EntryDate).Scan(&id)
	return id, err
}

func (s *Store) ListEntries(ctx context.Context, employeeID int64, start, end time.Time, limit, offset int) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, author_id, dimension, rating, content, entry_date, created_at
    FROM evidence_entries
    WHERE employee_id = $1 AND entry_date BETWEEN $2 AND $3
    ORDER BY entry_date DESC, id DESC
    LIMIT $4 OFFSET $5
  `, employeeID, start, end, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var entry Entry
		var dimension string
		if err := rows.Scan(&entry.ID, &entry.EmployeeID, &entry.AuthorID, &dimension, &entry.Rating, &entry.Content, &entry.EntryDate, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Dimension = Dimension(dimension)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Store) DimensionSummaries(ctx context.Context, employeeID int64, start, end time.Time) ([]DimensionSummary, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT dimension,
           COUNT(1),
           AVG(rating)::float8,
           COUNT(1) FILTER (WHERE rating >= 4),
           COUNT(1) FILTER (WHERE rating <= 2),
           MIN(rating),
           MAX(rating)
    FROM evidence_entries
    WHERE employee_id = $1 AND entry_date BETWEEN $2 AND $3
    GROUP BY dimension
  `, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDimension := map[Dimension]DimensionSummary{}
	for rows.Next() {
		var summary DimensionSummary
		var dimension string
		if err := rows.Scan(&dimension, &summary.EntryCount, &summary.AvgRating, &summary.PositiveCount, &summary.NegativeCount, &summary.MinRating, &summary.MaxRating); err != nil {
			return nil, err
		}
		parsed, err := ParseDimension(dimension)
		if err != nil {
			// Rows filed under a retired dimension name are skipped, not fatal.
			continue
		}
		summary.Dimension = parsed
		byDimension[parsed] = summary
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []DimensionSummary
	for _, dimension := range Dimensions() {
		if summary, ok := byDimension[dimension]; ok {
			out = append(out, summary)
		}
	}
	return out, nil
}

func (s *Store) EntriesForDimension(ctx context.Context, employeeID int64, dimension Dimension, start, end time.Time) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, author_id, dimension, rating, content, entry_date, created_at
    FROM evidence_entries
    WHERE employee_id = $1 AND dimension = $2 AND entry_date BETWEEN $3 AND $4
    ORDER BY entry_date DESC
  `, employeeID, string(dimension), start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var entry Entry
		var raw string
		if err := rows.Scan(&entry.ID, &entry.EmployeeID, &entry.AuthorID, &raw, &entry.Rating, &entry.Content, &entry.EntryDate, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Dimension = Dimension(raw)
		out = append(out, entry)
	}
	return out, rows.Err()
}
