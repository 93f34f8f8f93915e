// Package fleet manages the ambulance roster: which vehicles exist, who crews
// them and whether they are free to take a dispatch.
package fleet

import (
	"context"
	"errors"
	"fmt"

	"firstcall/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface declares storage operations for ambulance records.
type RepositoryInterface interface {
	// FindByVehicleID returns one ambulance or models.ErrNotFound.
	FindByVehicleID(ctx context.Context, vehicleID string) (*models.Ambulance, error)
	// ListVehicles returns the whole roster.
	ListVehicles(ctx context.Context) ([]*models.Ambulance, error)
	// ListAvailable returns the ambulances currently marked available.
	ListAvailable(ctx context.Context) ([]*models.Ambulance, error)
	// UpdateStatus sets the status of one ambulance.
	UpdateStatus(ctx context.Context, vehicleID, status string) error
}

// Repository implements RepositoryInterface on PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a Repository instance.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const ambulanceColumns = `
        vehicle_id, driver_name, driver_phone,
        COALESCE(facility_name, ''), COALESCE(facility_address, ''), COALESCE(facility_email, ''),
        status, updated_at`

func scanAmbulance(row pgx.Row) (*models.Ambulance, error) {
	a := &models.Ambulance{}
	err := row.Scan(&a.VehicleID, &a.DriverName, &a.DriverPhone,
		&a.FacilityName, &a.FacilityAddress, &a.FacilityEmail,
		&a.Status, &a.UpdatedAt)
	return a, err
}

// FindByVehicleID fetches a single ambulance.
func (r *Repository) FindByVehicleID(ctx context.Context, vehicleID string) (*models.Ambulance, error) {
	query := `SELECT` + ambulanceColumns + `
        FROM ambulances WHERE vehicle_id = $1`
	a, err := scanAmbulance(r.db.QueryRow(ctx, query, vehicleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByVehicleID: %w", err)
	}
	return a, nil
}

// ListVehicles retrieves every ambulance ordered by vehicle id.
func (r *Repository) ListVehicles(ctx context.Context) ([]*models.Ambulance, error) {
	query := `SELECT` + ambulanceColumns + `
        FROM ambulances ORDER BY vehicle_id`
	return r.list(ctx, "ListVehicles", query)
}

// ListAvailable retrieves the ambulances with status 'available', least
// recently updated first.
func (r *Repository) ListAvailable(ctx context.Context) ([]*models.Ambulance, error) {
	query := `SELECT` + ambulanceColumns + `
        FROM ambulances
        WHERE status = $1
        ORDER BY updated_at, vehicle_id`
	return r.list(ctx, "ListAvailable", query, models.AmbulanceAvailable)
}

func (r *Repository) list(ctx context.Context, op, query string, args ...any) ([]*models.Ambulance, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.%s: %w", op, err)
	}
	defer rows.Close()

	var ambulances []*models.Ambulance
	for rows.Next() {
		a, err := scanAmbulance(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.%s scan: %w", op, err)
		}
		ambulances = append(ambulances, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.%s rows: %w", op, err)
	}
	return ambulances, nil
}

// UpdateStatus changes the status of an ambulance.
func (r *Repository) UpdateStatus(ctx context.Context, vehicleID, status string) error {
	query := `
        UPDATE ambulances
        SET status = $2,
            updated_at = now()
        WHERE vehicle_id = $1`
	cmd, err := r.db.Exec(ctx, query, vehicleID, status)
	if err != nil {
		return fmt.Errorf("repository.UpdateStatus: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
