package fleet

import (
	"context"
	"sort"
	"sync"
	"time"

	"firstcall/internal/models"
)

// StaticRepository is an in-memory roster loaded from configuration. It is
// used when no database is configured.
type StaticRepository struct {
	mu       sync.RWMutex
	vehicles map[string]*models.Ambulance
	now      func() time.Time
}

// NewStaticRepository copies vehicles into a new roster. Vehicles without a
// status start available.
func NewStaticRepository(vehicles []models.Ambulance) *StaticRepository {
	r := &StaticRepository{
		vehicles: make(map[string]*models.Ambulance, len(vehicles)),
		now:      time.Now,
	}
	now := r.now()
	for _, v := range vehicles {
		a := v
		if a.Status == "" {
			a.Status = models.AmbulanceAvailable
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
		r.vehicles[a.VehicleID] = &a
	}
	return r
}

// FindByVehicleID returns a copy of the ambulance record.
func (r *StaticRepository) FindByVehicleID(ctx context.Context, vehicleID string) (*models.Ambulance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.vehicles[vehicleID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// ListVehicles returns the roster ordered by vehicle id.
func (r *StaticRepository) ListVehicles(ctx context.Context) ([]*models.Ambulance, error) {
	all := r.filter(func(*models.Ambulance) bool { return true })
	sort.Slice(all, func(i, j int) bool { return all[i].VehicleID < all[j].VehicleID })
	return all, nil
}

// ListAvailable returns available ambulances, least recently updated first.
func (r *StaticRepository) ListAvailable(ctx context.Context) ([]*models.Ambulance, error) {
	free := r.filter(func(a *models.Ambulance) bool { return a.Status == models.AmbulanceAvailable })
	sort.Slice(free, func(i, j int) bool {
		if !free[i].UpdatedAt.Equal(free[j].UpdatedAt) {
			return free[i].UpdatedAt.Before(free[j].UpdatedAt)
		}
		return free[i].VehicleID < free[j].VehicleID
	})
	return free, nil
}

func (r *StaticRepository) filter(keep func(*models.Ambulance) bool) []*models.Ambulance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Ambulance, 0, len(r.vehicles))
	for _, a := range r.vehicles {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

// UpdateStatus changes the status of an ambulance.
func (r *StaticRepository) UpdateStatus(ctx context.Context, vehicleID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.vehicles[vehicleID]
	if !ok {
		return models.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = r.now()
	return nil
}
