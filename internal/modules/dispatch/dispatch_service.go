// Package dispatch runs the live dispatch sessions behind the tracking view:
// it creates a coordinator per emergency request, relays device reports into
// it and fans its snapshots out to displays.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"firstcall/internal/models"
	"firstcall/internal/modules/fleet"
	"firstcall/internal/modules/tracking"
	"firstcall/pkg/email"

	"github.com/golang/groupcache/lru"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

// ServiceInterface defines the dispatch session operations.
type ServiceInterface interface {
	CreateSession(ctx context.Context, req models.CreateSessionRequest) (models.Snapshot, error)
	GetSnapshot(ctx context.Context, sessionID string) (models.Snapshot, error)
	ReportPosition(ctx context.Context, sessionID string, req models.PositionReport) error
	ReportPositionFailure(ctx context.Context, sessionID string, req models.PositionFailureReport) error
	SetPermission(ctx context.Context, sessionID string, req models.PermissionRequest) error
	Recover(ctx context.Context, sessionID string, req models.RecoverRequest) (models.Snapshot, error)
	Cancel(ctx context.Context, sessionID string) (models.Snapshot, error)
	CallDriver(ctx context.Context, sessionID string) error
	Dismiss(ctx context.Context, sessionID string) error
	Subscribe(sessionID string) (<-chan models.Snapshot, func(), error)
}

// Config tunes session creation.
type Config struct {
	Tracking   tracking.Config
	FixTimeout time.Duration
	// FacilityEmail receives notifications for ambulances without their own address.
	FacilityEmail     string
	RetainedSnapshots int
}

type session struct {
	coord         *tracking.Coordinator
	platform      *tracking.DevicePlatform
	hub           *hub
	viewID        string
	reserved      string
	facilityEmail string
}

// Service implements ServiceInterface.
type Service struct {
	cfg       Config
	fleet     fleet.ServiceInterface
	feed      tracking.VehicleFeed
	estimator *tracking.Estimator
	mailer    email.ServiceInterface
	templates *email.TemplateManager
	dialer    Dialer
	logger    *log.Logger
	newID     func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session
	byView   map[string]string
	retained *lru.Cache
}

// NewService creates a dispatch service. Sessions outlive the request that
// created them and run until they end or Shutdown is called.
func NewService(cfg Config, fleetSvc fleet.ServiceInterface, feed tracking.VehicleFeed, estimator *tracking.Estimator,
	mailer email.ServiceInterface, templates *email.TemplateManager, dialer Dialer, logger *log.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:       cfg,
		fleet:     fleetSvc,
		feed:      feed,
		estimator: estimator,
		mailer:    mailer,
		templates: templates,
		dialer:    dialer,
		logger:    logger,
		newID:     uuid.NewString,
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[string]*session),
		byView:    make(map[string]string),
		retained:  lru.New(cfg.RetainedSnapshots),
	}
}

// CreateSession starts tracking a confirmed emergency request. Without a
// driver record an ambulance is taken from the fleet roster. An active
// session on the same tracking view is dismissed.
func (s *Service) CreateSession(ctx context.Context, req models.CreateSessionRequest) (models.Snapshot, error) {
	if !req.Confirmed {
		return models.Snapshot{}, models.ErrNotConfirmed
	}

	// Step 1: Resolve the responding crew.
	sess := &session{viewID: req.TrackingViewID, facilityEmail: s.cfg.FacilityEmail}
	var driver models.Driver
	switch {
	case req.Driver != nil:
		driver = *req.Driver
	default:
		var (
			amb *models.Ambulance
			err error
		)
		if req.VehicleID != "" {
			amb, err = s.fleet.Reserve(ctx, req.VehicleID)
		} else {
			amb, err = s.fleet.Assign(ctx)
		}
		if err != nil {
			return models.Snapshot{}, fmt.Errorf("service.CreateSession: %w", err)
		}
		driver = amb.Driver()
		sess.reserved = amb.VehicleID
		if amb.FacilityEmail != "" {
			sess.facilityEmail = amb.FacilityEmail
		}
	}

	// Step 2: Wire the device platform and the coordinator.
	sess.platform = tracking.NewDevicePlatform(req.PermissionGranted, s.cfg.Tracking.StaleAfter)
	params := tracking.SessionParams{
		ID:             s.newID(),
		TrackingViewID: req.TrackingViewID,
		Driver:         driver,
	}
	if req.Requester != nil {
		at := time.Now()
		params.Requester = &models.Coordinate{Latitude: req.Requester.Latitude, Longitude: req.Requester.Longitude, ObservedAt: at}
		sess.platform.Report(*params.Requester)
	}
	source := tracking.NewCoordinateSource(sess.platform, s.cfg.FixTimeout)
	sess.coord = tracking.NewCoordinator(s.cfg.Tracking, params, source, s.feed, s.estimator, s.logger)

	// Step 3: Register it, replacing whatever the view was showing.
	s.mu.Lock()
	if err := s.ctx.Err(); err != nil {
		s.mu.Unlock()
		s.release(sess)
		return models.Snapshot{}, fmt.Errorf("service.CreateSession: %w", err)
	}
	previous := s.detachLocked(s.byView[req.TrackingViewID])
	snaps := sess.coord.Start(s.ctx)
	first := <-snaps
	sess.hub = newHub(first, s.logger)
	s.sessions[params.ID] = sess
	s.byView[req.TrackingViewID] = params.ID
	s.wg.Add(1)
	s.mu.Unlock()

	if previous != nil {
		s.logger.Infof("view %s: replacing session %s", req.TrackingViewID, previous.coord.ID())
		previous.coord.Stop()
	}
	go s.pump(sess, snaps)

	s.logger.Infof("session %s created for view %s, ambulance %s", params.ID, req.TrackingViewID, driver.VehicleID)
	return first, nil
}

// pump relays coordinator snapshots to the hub and tears the session down
// once the coordinator is done.
func (s *Service) pump(sess *session, snaps <-chan models.Snapshot) {
	defer s.wg.Done()
	for snap := range snaps {
		sess.hub.publish(snap)
	}

	final := sess.coord.Snapshot()
	s.mu.Lock()
	s.detachLocked(final.SessionID)
	s.retained.Add(final.SessionID, final)
	s.mu.Unlock()
	sess.hub.close()

	s.release(sess)
	if final.Status.Terminal() {
		s.notify(sess, final)
	}
}

// detachLocked moves a session from the registry to the retained snapshots.
// s.mu must be held.
func (s *Service) detachLocked(sessionID string) *session {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(s.sessions, sessionID)
	if s.byView[sess.viewID] == sessionID {
		delete(s.byView, sess.viewID)
	}
	s.retained.Add(sessionID, sess.coord.Snapshot())
	return sess
}

func (s *Service) release(sess *session) {
	if sess.reserved == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.fleet.Release(ctx, sess.reserved); err != nil {
		s.logger.Errorf("release ambulance %s: %v", sess.reserved, err)
	}
}

func (s *Service) notify(sess *session, final models.Snapshot) {
	if sess.facilityEmail == "" {
		return
	}
	data := email.TemplateData{
		SessionID:    final.SessionID,
		VehicleID:    final.Driver.VehicleID,
		DriverName:   final.Driver.Name,
		FacilityName: final.Driver.OriginFacilityName,
		At:           final.UpdatedAt,
	}
	if p := final.RequesterPosition; p != nil {
		data.Latitude, data.Longitude, data.HasPosition = p.Latitude, p.Longitude, true
	}

	var (
		subject, plain, html string
		err                  error
	)
	switch final.Status {
	case models.StatusArrived:
		subject = fmt.Sprintf("Ambulance %s arrived", data.VehicleID)
		plain = fmt.Sprintf("Ambulance %s (%s) reached the patient at %s.", data.VehicleID, data.DriverName, data.At.Format(time.Kitchen))
		html, err = s.templates.GenerateArrivedEmailHTML(data)
	case models.StatusCancelled:
		subject = fmt.Sprintf("Dispatch %s cancelled", data.SessionID)
		plain = fmt.Sprintf("The request for ambulance %s (%s) was cancelled at %s.", data.VehicleID, data.DriverName, data.At.Format(time.Kitchen))
		html, err = s.templates.GenerateCancelledEmailHTML(data)
	default:
		return
	}
	if err != nil {
		s.logger.Errorf("session %s: render notification: %v", final.SessionID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.mailer.SendEmail(ctx, sess.facilityEmail, subject, plain, html); err != nil {
		s.logger.Errorf("session %s: notify %s: %v", final.SessionID, sess.facilityEmail, err)
	}
}

// lookup returns the active session, models.ErrSessionTerminal for a retained
// one and models.ErrSessionNotFound otherwise.
func (s *Service) lookup(sessionID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess, nil
	}
	if _, ok := s.retained.Get(sessionID); ok {
		return nil, models.ErrSessionTerminal
	}
	return nil, models.ErrSessionNotFound
}

func (s *Service) retainedSnapshot(sessionID string) (models.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.retained.Get(sessionID)
	if !ok {
		return models.Snapshot{}, false
	}
	return v.(models.Snapshot), true
}

// GetSnapshot returns the latest snapshot of an active session or the final
// snapshot of a recently ended one.
func (s *Service) GetSnapshot(ctx context.Context, sessionID string) (models.Snapshot, error) {
	sess, err := s.lookup(sessionID)
	if err == nil {
		return sess.coord.Snapshot(), nil
	}
	if snap, ok := s.retainedSnapshot(sessionID); ok {
		return snap, nil
	}
	return models.Snapshot{}, fmt.Errorf("service.GetSnapshot: %w", err)
}

// ReportPosition relays a device fix to the session's coordinate source.
func (s *Service) ReportPosition(ctx context.Context, sessionID string, req models.PositionReport) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return fmt.Errorf("service.ReportPosition: %w", err)
	}
	sess.platform.Report(models.Coordinate{
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		ObservedAt: req.ObservedAt,
	})
	return nil
}

// ReportPositionFailure relays a device positioning failure.
func (s *Service) ReportPositionFailure(ctx context.Context, sessionID string, req models.PositionFailureReport) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return fmt.Errorf("service.ReportPositionFailure: %w", err)
	}
	reason := req.Reason
	if reason == "" {
		reason = "device reported no fix"
	}
	sess.platform.ReportFailure(reason)
	return nil
}

// SetPermission records the outcome of the device permission prompt. It
// takes effect on the next access request, e.g. a recovery.
func (s *Service) SetPermission(ctx context.Context, sessionID string, req models.PermissionRequest) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return fmt.Errorf("service.SetPermission: %w", err)
	}
	sess.platform.SetPermission(req.Granted)
	return nil
}

// Recover retries positioning when the requester confirmed the retry prompt.
// An unconfirmed request leaves the session untouched.
func (s *Service) Recover(ctx context.Context, sessionID string, req models.RecoverRequest) (models.Snapshot, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("service.Recover: %w", err)
	}
	if req.Confirmed {
		if err := sess.coord.Recover(ctx); err != nil {
			return models.Snapshot{}, fmt.Errorf("service.Recover: %w", err)
		}
	}
	return sess.coord.Snapshot(), nil
}

// Cancel cancels an active dispatch.
func (s *Service) Cancel(ctx context.Context, sessionID string) (models.Snapshot, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("service.Cancel: %w", err)
	}
	if err := sess.coord.Cancel(ctx); err != nil {
		return models.Snapshot{}, fmt.Errorf("service.Cancel: %w", err)
	}
	return sess.coord.Snapshot(), nil
}

// CallDriver dials the driver of an active or recently ended session.
func (s *Service) CallDriver(ctx context.Context, sessionID string) error {
	snap, err := s.GetSnapshot(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("service.CallDriver: %w", err)
	}
	s.dialer.Dial(snap.Driver.Phone)
	return nil
}

// Dismiss closes the tracking view of a session. Dismissing an ended session
// is a no-op.
func (s *Service) Dismiss(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	_, retained := s.retained.Get(sessionID)
	sess := s.detachLocked(sessionID)
	s.mu.Unlock()

	if sess == nil {
		if retained {
			return nil
		}
		return fmt.Errorf("service.Dismiss: %w", models.ErrSessionNotFound)
	}
	sess.coord.Stop()
	s.logger.Infof("session %s dismissed", sessionID)
	return nil
}

// Subscribe streams snapshots of a session. The channel starts with the
// latest snapshot and is closed when the session ends; for an ended session
// it holds only the final snapshot.
func (s *Service) Subscribe(sessionID string) (<-chan models.Snapshot, func(), error) {
	sess, err := s.lookup(sessionID)
	if err == nil {
		ch, unsubscribe := sess.hub.subscribe()
		return ch, unsubscribe, nil
	}
	if snap, ok := s.retainedSnapshot(sessionID); ok {
		ch := make(chan models.Snapshot, 1)
		ch <- snap
		close(ch)
		return ch, func() {}, nil
	}
	return nil, nil, fmt.Errorf("service.Subscribe: %w", err)
}

// Shutdown dismisses every session and waits for their teardown.
func (s *Service) Shutdown() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}
