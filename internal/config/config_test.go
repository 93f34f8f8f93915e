package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"firstcall/internal/models"

	"github.com/labstack/gommon/log"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig = %v", err)
	}
	if cfg.Tracking.StaleAfter != 10*time.Second {
		t.Errorf("stale_after = %s, want 10s", cfg.Tracking.StaleAfter)
	}
	if cfg.Tracking.DefaultETAMinutes != 15 || cfg.Tracking.ArrivalThresholdMeters != 50 || cfg.Tracking.ArrivalConsecutiveUpdates != 2 {
		t.Errorf("tracking = %+v", cfg.Tracking)
	}
	if cfg.Feed.Mode != "simulated" || cfg.Feed.Interval != 3*time.Second || cfg.Feed.JitterDegrees != 0.005 {
		t.Errorf("feed = %+v", cfg.Feed)
	}
	if cfg.Sessions.RetainedSnapshots != 256 {
		t.Errorf("retained_snapshots = %d", cfg.Sessions.RetainedSnapshots)
	}
	if cfg.Level() != log.INFO {
		t.Errorf("Level = %v, want INFO", cfg.Level())
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server_port: "9090"
log_level: debug
tracking:
  stale_after: 20s
feed:
  interval: 1s
fleet:
  vehicles:
    - vehicle_id: TN-01-AB-1234
      driver_name: Ravi Kumar
      driver_phone: "+919876543210"
      facility_name: Apollo Hospital
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRACKING_STALE_AFTER", "30s")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig = %v", err)
	}
	if cfg.ServerPort != "9090" || cfg.Level() != log.DEBUG {
		t.Errorf("server_port = %s, level = %v", cfg.ServerPort, cfg.Level())
	}
	if cfg.Tracking.StaleAfter != 30*time.Second {
		t.Errorf("stale_after = %s, want the environment override", cfg.Tracking.StaleAfter)
	}
	if cfg.Feed.Interval != time.Second {
		t.Errorf("feed.interval = %s", cfg.Feed.Interval)
	}
	want := models.Ambulance{VehicleID: "TN-01-AB-1234", DriverName: "Ravi Kumar", DriverPhone: "+919876543210", FacilityName: "Apollo Hospital"}
	if len(cfg.Fleet.Vehicles) != 1 || cfg.Fleet.Vehicles[0] != want {
		t.Errorf("fleet = %+v", cfg.Fleet.Vehicles)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown feed mode", map[string]string{"FEED_MODE": "carrier-pigeon"}},
		{"network without url", map[string]string{"FEED_MODE": "network"}},
		{"zero stale window", map[string]string{"TRACKING_STALE_AFTER": "0s"}},
		{"region without sender", map[string]string{"NOTIFY_REGION": "ap-south-1"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(t.TempDir()); err == nil {
				t.Error("LoadConfig accepted an invalid configuration")
			}
		})
	}
}
