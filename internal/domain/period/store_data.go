package period

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrPeriodNotFound = errors.New("period not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Get(ctx context.Context, periodID int64) (Period, error) {
	var p Period
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, start_date, end_date, status
    FROM periods
    WHERE id = $1
  `, periodID).Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, ErrPeriodNotFound
	}
	return p, err
}

func (s *Store) Create(ctx context.Context, p Period) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO periods (name, start_date, end_date, status)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, p.Name, p.StartDate, p.EndDate, p.Status).Scan(&id)
	return id, err
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]Period, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, start_date, end_date, status
    FROM periods
    ORDER BY start_date DESC
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
