package notifications

import "context"

type StoreAPI interface {
	CreateNotification(ctx context.Context, employeeID int64, notificationType, title, body string) error
	ListNotifications(ctx context.Context, employeeID int64, limit, offset int) ([]Notification, error)
	CountNotifications(ctx context.Context, employeeID int64) (int, error)
	MarkRead(ctx context.Context, employeeID int64, notificationID string) error
	EmployeeEmail(ctx context.Context, employeeID int64) (string, error)
}
