package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"firstcall/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

func roster() []models.Ambulance {
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	return []models.Ambulance{
		{VehicleID: "TN-01-AB-1234", DriverName: "Ravi Kumar", DriverPhone: "+919876543210", FacilityName: "Apollo Hospital", UpdatedAt: base.Add(time.Minute)},
		{VehicleID: "TN-02-CD-5678", DriverName: "Priya S", DriverPhone: "+919812345678", FacilityName: "MIOT International", UpdatedAt: base},
		{VehicleID: "TN-03-EF-9012", DriverName: "Arun M", DriverPhone: "+919800000000", Status: models.AmbulanceBusy, UpdatedAt: base},
	}
}

func newTestService() *Service {
	logger := log.New("fleet")
	logger.SetLevel(log.OFF)
	return NewService(NewStaticRepository(roster()), logger)
}

func TestAssignPicksLongestIdle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, err := svc.Assign(ctx)
	if err != nil {
		t.Fatalf("Assign = %v", err)
	}
	if first.VehicleID != "TN-02-CD-5678" {
		t.Errorf("assigned %s, want the longest idle TN-02-CD-5678", first.VehicleID)
	}
	second, err := svc.Assign(ctx)
	if err != nil {
		t.Fatalf("second Assign = %v", err)
	}
	if second.VehicleID != "TN-01-AB-1234" {
		t.Errorf("assigned %s, want TN-01-AB-1234", second.VehicleID)
	}
	if _, err := svc.Assign(ctx); !errors.Is(err, models.ErrNoAvailableVehicle) {
		t.Fatalf("Assign on an empty roster = %v, want ErrNoAvailableVehicle", err)
	}

	if err := svc.Release(ctx, first.VehicleID); err != nil {
		t.Fatalf("Release = %v", err)
	}
	again, err := svc.Assign(ctx)
	if err != nil || again.VehicleID != first.VehicleID {
		t.Errorf("Assign after release = (%v, %v), want %s", again, err, first.VehicleID)
	}
}

func TestReserve(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.Reserve(ctx, "TN-01-AB-1234")
	if err != nil {
		t.Fatalf("Reserve = %v", err)
	}
	if d := a.Driver(); d.Name != "Ravi Kumar" || d.OriginFacilityName != "Apollo Hospital" {
		t.Errorf("Driver() = %+v", d)
	}
	if _, err := svc.Reserve(ctx, "TN-01-AB-1234"); !errors.Is(err, models.ErrNoAvailableVehicle) {
		t.Errorf("second Reserve = %v, want ErrNoAvailableVehicle", err)
	}
	if _, err := svc.Reserve(ctx, "KA-99"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Reserve unknown = %v, want ErrNotFound", err)
	}
}

func newTestServer() *echo.Echo {
	e := echo.New()
	RegisterRoutes(e.Group("/fleet"), NewHandler(newTestService()))
	return e
}

func TestGetFleet(t *testing.T) {
	e := newTestServer()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fleet", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var vehicles []models.Ambulance
	if err := json.Unmarshal(rec.Body.Bytes(), &vehicles); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(vehicles) != 3 || vehicles[0].VehicleID != "TN-01-AB-1234" {
		t.Errorf("vehicles = %+v", vehicles)
	}
	if vehicles[0].Status != models.AmbulanceAvailable {
		t.Errorf("default status = %q, want available", vehicles[0].Status)
	}
}

func TestSetVehicleStatus(t *testing.T) {
	testCases := []struct {
		name    string
		vehicle string
		body    string
		want    int
	}{
		{"mark busy", "TN-01-AB-1234", `{"status":"busy"}`, http.StatusNoContent},
		{"unknown status", "TN-01-AB-1234", `{"status":"parked"}`, http.StatusBadRequest},
		{"malformed body", "TN-01-AB-1234", `{"status":`, http.StatusBadRequest},
		{"unknown vehicle", "KA-99", `{"status":"available"}`, http.StatusNotFound},
	}

	e := newTestServer()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/fleet/"+tc.vehicle+"/status", strings.NewReader(tc.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}
