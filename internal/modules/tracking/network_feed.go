package tracking

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"firstcall/internal/models"

	"github.com/gorilla/websocket"
	"github.com/labstack/gommon/log"
)

// vehicleMessage is the wire format pushed by the dispatch backend.
type vehicleMessage struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ObservedAt time.Time `json:"observed_at"`
}

// NetworkFeed reads vehicle positions from a dispatch backend over WebSocket
// at <baseURL>/vehicles/<vehicleID>. Connection failures are reported as
// models.ErrVehicleFeedFailure and retried after backoff.
type NetworkFeed struct {
	baseURL string
	backoff time.Duration
	dialer  *websocket.Dialer
	logger  *log.Logger
}

// NewNetworkFeed creates a feed against baseURL (ws:// or wss://).
func NewNetworkFeed(baseURL string, backoff time.Duration, logger *log.Logger) *NetworkFeed {
	return &NetworkFeed{
		baseURL: strings.TrimRight(baseURL, "/"),
		backoff: backoff,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:  logger,
	}
}

// Observe keeps a connection open for the lifetime of ctx.
func (f *NetworkFeed) Observe(ctx context.Context, session FeedSession) <-chan models.VehicleFix {
	out := make(chan models.VehicleFix, 8)
	go func() {
		defer close(out)
		var last time.Time
		for {
			err := f.stream(ctx, session, out, &last)
			if ctx.Err() != nil {
				return
			}
			f.logger.Warnf("vehicle %s feed failed: %v", session.VehicleID, err)
			if !send(ctx, out, models.VehicleFix{Err: fmt.Errorf("%w: %v", models.ErrVehicleFeedFailure, err)}) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.backoff):
			}
		}
	}()
	return out
}

func (f *NetworkFeed) stream(ctx context.Context, session FeedSession, out chan<- models.VehicleFix, last *time.Time) error {
	endpoint := f.baseURL + "/vehicles/" + url.PathEscape(session.VehicleID)
	conn, _, err := f.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	f.logger.Debugf("vehicle %s feed connected", session.VehicleID)
	for {
		var msg vehicleMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if msg.Latitude < -90 || msg.Latitude > 90 || msg.Longitude < -180 || msg.Longitude > 180 {
			f.logger.Warnf("vehicle %s: dropping out of range position %.6f,%.6f", session.VehicleID, msg.Latitude, msg.Longitude)
			continue
		}
		if msg.ObservedAt.IsZero() {
			msg.ObservedAt = time.Now()
		}
		if msg.ObservedAt.Before(*last) {
			continue
		}
		*last = msg.ObservedAt
		fix := models.VehicleFix{Coordinate: models.Coordinate{
			Latitude:   msg.Latitude,
			Longitude:  msg.Longitude,
			ObservedAt: msg.ObservedAt,
		}}
		if !send(ctx, out, fix) {
			return ctx.Err()
		}
	}
}
