package fleet

import (
	"context"
	"fmt"
	"sync"

	"firstcall/internal/models"

	"github.com/labstack/gommon/log"
)

// ServiceInterface describes business logic for the ambulance roster.
type ServiceInterface interface {
	// Assign picks the first available ambulance and marks it busy.
	Assign(ctx context.Context) (*models.Ambulance, error)
	// Reserve marks a specific ambulance busy for a dispatch.
	Reserve(ctx context.Context, vehicleID string) (*models.Ambulance, error)
	// Release makes an ambulance available again.
	Release(ctx context.Context, vehicleID string) error
	// SetStatus applies an operator status change.
	SetStatus(ctx context.Context, vehicleID string, req models.AmbulanceStatusUpdateRequest) error
	// List returns the whole roster.
	List(ctx context.Context) ([]*models.Ambulance, error)
}

// Service implements ServiceInterface.
type Service struct {
	repo   RepositoryInterface
	logger *log.Logger
	// mu serialises the read-then-update of Assign and Reserve.
	mu sync.Mutex
}

// NewService creates a service with the given repository.
func NewService(repo RepositoryInterface, logger *log.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Assign selects an ambulance for a new dispatch.
func (s *Service) Assign(ctx context.Context) (*models.Ambulance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Step 1: Get all available ambulances.
	free, err := s.repo.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.Assign: %w", err)
	}
	if len(free) == 0 {
		return nil, models.ErrNoAvailableVehicle
	}

	// Step 2: Take the one that has been idle longest and mark it busy.
	chosen := free[0]
	if err := s.repo.UpdateStatus(ctx, chosen.VehicleID, models.AmbulanceBusy); err != nil {
		return nil, fmt.Errorf("service.Assign: %w", err)
	}
	chosen.Status = models.AmbulanceBusy
	s.logger.Infof("assigned ambulance %s (%s)", chosen.VehicleID, chosen.DriverName)
	return chosen, nil
}

// Reserve marks vehicleID busy. It fails with models.ErrNoAvailableVehicle if
// the ambulance is already on a dispatch.
func (s *Service) Reserve(ctx context.Context, vehicleID string) (*models.Ambulance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.repo.FindByVehicleID(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("service.Reserve: %w", err)
	}
	if a.Status != models.AmbulanceAvailable {
		return nil, fmt.Errorf("service.Reserve %s: %w", vehicleID, models.ErrNoAvailableVehicle)
	}
	if err := s.repo.UpdateStatus(ctx, vehicleID, models.AmbulanceBusy); err != nil {
		return nil, fmt.Errorf("service.Reserve: %w", err)
	}
	a.Status = models.AmbulanceBusy
	s.logger.Infof("reserved ambulance %s (%s)", a.VehicleID, a.DriverName)
	return a, nil
}

// Release marks an ambulance available once its dispatch has ended.
func (s *Service) Release(ctx context.Context, vehicleID string) error {
	if err := s.repo.UpdateStatus(ctx, vehicleID, models.AmbulanceAvailable); err != nil {
		return fmt.Errorf("service.Release: %w", err)
	}
	s.logger.Infof("released ambulance %s", vehicleID)
	return nil
}

// SetStatus validates and persists a status change.
func (s *Service) SetStatus(ctx context.Context, vehicleID string, req models.AmbulanceStatusUpdateRequest) error {
	if err := s.repo.UpdateStatus(ctx, vehicleID, req.Status); err != nil {
		return fmt.Errorf("service.SetStatus: %w", err)
	}
	return nil
}

// List delegates to the repository.
func (s *Service) List(ctx context.Context) ([]*models.Ambulance, error) {
	vehicles, err := s.repo.ListVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.List: %w", err)
	}
	return vehicles, nil
}
