package supplier

import (
	"context"

	"consigna/internal/core/clock"
	"consigna/internal/core/entity"
	"consigna/internal/core/id"
	"consigna/internal/domain"
	"consigna/pkg/logger"
)

// Service provides business operations for the supplier catalog.
type Service struct {
	repo  Repository
	clock clock.Clock
}

// NewService creates a new supplier service.
func NewService(repo Repository, clk clock.Clock) *Service {
	return &Service{repo: repo, clock: clk}
}

// Create registers a new supplier.
func (s *Service) Create(ctx context.Context, sup *Supplier) error {
	sup.Base = entity.NewBase(s.clock.Now())

	if err := sup.Validate(ctx); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, sup); err != nil {
		return err
	}

	logger.Info(ctx, "supplier created", "id", sup.ID, "name", sup.Name)
	return nil
}

// Update changes supplier data. Percentage changes apply to future accruals
// only; existing credits keep their snapshot.
func (s *Service) Update(ctx context.Context, sup *Supplier) error {
	if err := sup.Validate(ctx); err != nil {
		return err
	}
	sup.Touch(s.clock.Now())
	return s.repo.Update(ctx, sup)
}

// Deactivate flags a supplier as inactive. Their unsold consigned products
// stay on the floor and pending credits still mature.
func (s *Service) Deactivate(ctx context.Context, supplierID id.ID) error {
	sup, err := s.repo.GetByID(ctx, supplierID)
	if err != nil {
		return err
	}
	if !sup.Active {
		return nil
	}
	sup.Active = false
	sup.Touch(s.clock.Now())
	return s.repo.Update(ctx, sup)
}

// GetByID retrieves a supplier.
func (s *Service) GetByID(ctx context.Context, supplierID id.ID) (*Supplier, error) {
	return s.repo.GetByID(ctx, supplierID)
}

// List retrieves suppliers with filtering.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Supplier], error) {
	return s.repo.List(ctx, filter)
}
