package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"firstcall/internal/models"
	"firstcall/pkg/utils"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	// Time allowed to write a message to the client.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the client.
	pongWait = 60 * time.Second

	// Send pings to client with this period. Must be less than pongWait.
	pingPeriod = 15 * time.Second

	// Maximum size of a position report from the client.
	maxMessageSize = 512
)

// StreamSession upgrades to a WebSocket that pushes every snapshot of the
// session. Text messages from the client are position reports.
func (h *Handler) StreamSession(c echo.Context) error {
	sessionID := c.Param("sessionId")
	snaps, unsubscribe, err := h.svc.Subscribe(sessionID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already replied.
		return nil
	}

	s := &stream{
		conn:      conn,
		sessionID: sessionID,
		snapshots: snaps,
		svc:       h.svc,
		logger:    c.Logger(),
	}
	s.run(c.Request().Context())
	return nil
}

type stream struct {
	conn      *websocket.Conn
	sessionID string
	snapshots <-chan models.Snapshot
	svc       ServiceInterface
	logger    echo.Logger
}

func (s *stream) run(ctx context.Context) {
	defer s.conn.Close()

	stopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go s.writeLoop(stopCtx, cancel, &wg)
	go s.readLoop(stopCtx, cancel, &wg)
	wg.Wait()
}

func (s *stream) readLoop(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup) {
	defer func() {
		cancel()
		wg.Done()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error { return s.conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warnf("session %s stream: %v", s.sessionID, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var report models.PositionReport
		if err := json.Unmarshal(msg, &report); err != nil {
			s.logger.Debugf("session %s stream: ignoring malformed report: %v", s.sessionID, err)
			continue
		}
		if err := utils.GetValidator().Validate(report); err != nil {
			s.logger.Debugf("session %s stream: ignoring invalid report: %v", s.sessionID, err)
			continue
		}
		if err := s.svc.ReportPosition(ctx, s.sessionID, report); err != nil {
			s.logger.Debugf("session %s stream: %v", s.sessionID, err)
		}
	}
}

func (s *stream) writeLoop(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup) {
	defer func() {
		// Unblocks ReadMessage in the read loop.
		s.conn.Close()
		cancel()
		wg.Done()
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case snap, ok := <-s.snapshots:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				return
			}
			if err := s.conn.WriteJSON(snap); err != nil {
				return
			}
		}
	}
}
