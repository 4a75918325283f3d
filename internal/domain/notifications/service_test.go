package notifications

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeStore struct {
	items  []Notification
	emails map[int64]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{emails: map[int64]string{}}
}

func (f *fakeStore) CreateNotification(ctx context.Context, employeeID int64, notificationType, title, body string) error {
	f.items = append(f.items, Notification{
		ID:         fmt.Sprintf("n-%d", len(f.items)+1),
		EmployeeID: employeeID,
		Type:       notificationType,
		Title:      title,
		Body:       body,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (f *fakeStore) ListNotifications(ctx context.Context, employeeID int64, limit, offset int) ([]Notification, error) {
	var out []Notification
	for _, n := range f.items {
		if n.EmployeeID == employeeID {
			out = append(out, n)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) CountNotifications(ctx context.Context, employeeID int64) (int, error) {
	count := 0
	for _, n := range f.items {
		if n.EmployeeID == employeeID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) MarkRead(ctx context.Context, employeeID int64, notificationID string) error {
	for i := range f.items {
		if f.items[i].ID == notificationID && f.items[i].EmployeeID == employeeID && f.items[i].ReadAt == nil {
			now := time.Now()
			f.items[i].ReadAt = &now
		}
	}
	return nil
}

func (f *fakeStore) EmployeeEmail(ctx context.Context, employeeID int64) (string, error) {
	email, ok := f.emails[employeeID]
	if !ok {
		return "", errors.New("employee not found")
	}
	return email, nil
}

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, from, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to+": "+subject)
	return nil
}

func TestCreateStoresAndEmails(t *testing.T) {
	store := newFakeStore()
	store.emails[7] = "sam@example.com"
	mailer := &fakeMailer{}
	svc := New(store, mailer, "engine@example.com")

	if err := svc.Create(context.Background(), 7, TypeSelfSubmitted, "Self evaluation submitted", "details"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(store.items) != 1 {
		t.Fatalf("expected 1 stored notification, got %d", len(store.items))
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "sam@example.com: Self evaluation submitted" {
		t.Fatalf("unexpected email deliveries: %v", mailer.sent)
	}
}

func TestCreateSurvivesEmailFailures(t *testing.T) {
	store := newFakeStore()
	store.emails[7] = "sam@example.com"
	mailer := &fakeMailer{err: errors.New("smtp down")}
	svc := New(store, mailer, "engine@example.com")

	if err := svc.Create(context.Background(), 7, TypeFinalDelivered, "Final evaluation delivered", "details"); err != nil {
		t.Fatalf("create should swallow mailer errors, got %v", err)
	}
	if len(store.items) != 1 {
		t.Fatalf("notification not stored despite mailer failure")
	}

	// Missing email address is equally non-fatal.
	if err := svc.Create(context.Background(), 99, TypeFinalDelivered, "Final evaluation delivered", "details"); err != nil {
		t.Fatalf("create should swallow lookup errors, got %v", err)
	}
	if len(store.items) != 2 {
		t.Fatalf("notification not stored despite lookup failure")
	}
}

func TestListUnreadCountAndMarkRead(t *testing.T) {
	store := newFakeStore()
	svc := New(store, nil, "")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.Create(ctx, 7, TypeManagerSubmitted, "Manager evaluation submitted", "details"); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := svc.Create(ctx, 8, TypeManagerSubmitted, "Manager evaluation submitted", "details"); err != nil {
		t.Fatalf("create: %v", err)
	}

	items, err := svc.List(ctx, 7, 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 notifications for employee 7, got %d", len(items))
	}

	count, err := svc.UnreadCount(ctx, 7)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 unread, got %d", count)
	}

	if err := svc.MarkRead(ctx, 7, items[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	count, err = svc.UnreadCount(ctx, 7)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread after mark read, got %d", count)
	}

	// Marking a notification that belongs to someone else is a no-op.
	if err := svc.MarkRead(ctx, 8, items[1].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	count, _ = svc.UnreadCount(ctx, 7)
	if count != 2 {
		t.Fatalf("cross-employee mark read must not change unread count, got %d", count)
	}
}
