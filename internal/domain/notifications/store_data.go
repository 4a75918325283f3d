package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Notification struct {
	ID         string     `json:"id"`
	EmployeeID int64      `json:"employeeId"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateNotification(ctx context.Context, employeeID int64, notificationType, title, body string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (id, employee_id, notification_type, title, body)
    VALUES ($1,$2,$3,$4,$5)
  `, uuid.NewString(), employeeID, notificationType, title, body)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, employeeID int64, limit, offset int) ([]Notification, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, notification_type, title, body, read_at, created_at
    FROM notifications
    WHERE employee_id = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, employeeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.EmployeeID, &n.Type, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountNotifications(ctx context.Context, employeeID int64) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx,
		"SELECT COUNT(1) FROM notifications WHERE employee_id = $1 AND read_at IS NULL", employeeID).Scan(&count)
	return count, err
}

func (s *Store) MarkRead(ctx context.Context, employeeID int64, notificationID string) error {
	_, err := s.DB.Exec(ctx,
		"UPDATE notifications SET read_at = now() WHERE id = $1 AND employee_id = $2 AND read_at IS NULL",
		notificationID, employeeID)
	return err
}

func (s *Store) EmployeeEmail(ctx context.Context, employeeID int64) (string, error) {
	var email string
	err := s.DB.QueryRow(ctx, "SELECT email FROM employees WHERE id = $1", employeeID).Scan(&email)
	return email, err
}
