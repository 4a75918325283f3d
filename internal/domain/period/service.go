package period

import (
	"context"
	"errors"
)

type StoreAPI interface {
	Get(ctx context.Context, periodID int64) (Period, error)
	Create(ctx context.Context, p Period) (int64, error)
	List(ctx context.Context, limit, offset int) ([]Period, error)
}

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) Get(ctx context.Context, periodID int64) (Period, error) {
	return s.store.Get(ctx, periodID)
}

func (s *Service) Create(ctx context.Context, p Period) (int64, error) {
	if p.EndDate.Before(p.StartDate) {
		return 0, errors.New("end date before start date")
	}
	if p.Status == "" {
		p.Status = StatusOpen
	}
	return s.store.Create(ctx, p)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Period, error) {
	return s.store.List(ctx, limit, offset)
}
