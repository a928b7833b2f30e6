package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kurumart/kurumart-backend/internal/bidding"
	"github.com/kurumart/kurumart-backend/pkg/config"
	"github.com/kurumart/kurumart-backend/pkg/enums"
	pkgerrors "github.com/kurumart/kurumart-backend/pkg/errors"
	"github.com/kurumart/kurumart-backend/pkg/logger"
	"github.com/kurumart/kurumart-backend/pkg/metrics"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

// feedConn is the subset of *websocket.Conn the feed uses; tests inject fakes.
type feedConn interface {
	ReadMessage() (int, []byte, error)
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Dialer establishes the websocket channel to the auction feed.
type Dialer func(ctx context.Context, url string, header http.Header) (feedConn, error)

func gorillaDialer(timeout time.Duration) Dialer {
	return func(ctx context.Context, url string, header http.Header) (feedConn, error) {
		dialer := websocket.Dialer{HandshakeTimeout: timeout}
		conn, _, err := dialer.DialContext(ctx, url, header)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// FeedParams groups dependencies for the auction feed connection.
type FeedParams struct {
	Config    config.UpstreamConfig
	Logger    *logger.Logger
	Metrics   *metrics.BiddingMetrics
	OnMessage func(bidding.InboundMessage)
	OnStatus  func(enums.ConnectionStatus)
	Dial      Dialer
}

// Feed maintains the single logical live channel to the bidding server:
// it dials, reads broadcasts, reports connectivity, and schedules
// exponential-backoff reconnects. Connection errors are never fatal; they
// always resolve into a scheduled retry until Disconnect is called.
type Feed struct {
	cfg       config.UpstreamConfig
	logg      *logger.Logger
	metrics   *metrics.BiddingMetrics
	onMessage func(bidding.InboundMessage)
	onStatus  func(enums.ConnectionStatus)
	dial      Dialer

	mu        sync.Mutex
	status    enums.ConnectionStatus
	conn      feedConn
	attempt   int
	retry     *time.Timer
	closed    bool
	pingStop  chan struct{}
	sessionID int
}

// NewFeed constructs a feed client; Connect starts the session.
func NewFeed(params FeedParams) (*Feed, error) {
	if params.Config.FeedURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "feed url is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	if params.OnMessage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message handler is required")
	}
	dial := params.Dial
	if dial == nil {
		dial = gorillaDialer(params.Config.DialTimeout)
	}
	return &Feed{
		cfg:       params.Config,
		logg:      params.Logger,
		metrics:   params.Metrics,
		onMessage: params.OnMessage,
		onStatus:  params.OnStatus,
		dial:      dial,
		status:    enums.ConnectionStatusDisconnected,
	}, nil
}

// Status returns the last observed connectivity.
func (f *Feed) Status() enums.ConnectionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Connect starts a connection attempt. It is idempotent: calling it while
// already connected or connecting is a no-op. A failed attempt schedules a
// retry rather than returning an error.
func (f *Feed) Connect(ctx context.Context) {
	f.mu.Lock()
	if f.closed || f.status != enums.ConnectionStatusDisconnected {
		f.mu.Unlock()
		return
	}
	f.setStatusLocked(enums.ConnectionStatusConnecting)
	session := f.sessionID
	f.mu.Unlock()

	go f.attemptConnect(ctx, session)
}

func (f *Feed) attemptConnect(ctx context.Context, session int) {
	conn, err := f.dial(ctx, f.cfg.FeedURL, f.authHeader())

	f.mu.Lock()
	if f.closed || f.sessionID != session {
		f.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		f.logg.Warn(f.logg.WithField(ctx, "error", err.Error()), "auction feed dial failed")
		f.setStatusLocked(enums.ConnectionStatusDisconnected)
		f.scheduleReconnectLocked(ctx)
		f.mu.Unlock()
		return
	}

	f.conn = conn
	f.attempt = 0
	f.pingStop = make(chan struct{})
	f.setStatusLocked(enums.ConnectionStatusConnected)
	pingStop := f.pingStop
	f.mu.Unlock()

	f.logg.Info(ctx, "auction feed connected")

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go f.pingLoop(conn, pingStop)
	f.readLoop(ctx, conn, session)
}

func (f *Feed) readLoop(ctx context.Context, conn feedConn, session int) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			f.handleReadFailure(ctx, err, session)
			return
		}
		var msg bidding.InboundMessage
		if unmarshalErr := json.Unmarshal(payload, &msg); unmarshalErr != nil {
			f.logg.Debug(ctx, "dropping malformed feed frame")
			continue
		}
		if !msg.Type.IsValid() {
			f.logg.Debug(ctx, "dropping feed frame with unknown type")
			continue
		}
		f.onMessage(msg)
	}
}

func (f *Feed) handleReadFailure(ctx context.Context, err error, session int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.sessionID != session {
		return
	}
	f.teardownConnLocked()
	f.logg.Warn(f.logg.WithField(ctx, "error", err.Error()), "auction feed read failed")
	f.setStatusLocked(enums.ConnectionStatusDisconnected)
	f.scheduleReconnectLocked(ctx)
}

func (f *Feed) pingLoop(conn feedConn, stop chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

// scheduleReconnectLocked arms a one-shot retry timer with exponential
// backoff: min(base * 2^attempt, ceiling). Callers must hold f.mu.
func (f *Feed) scheduleReconnectLocked(ctx context.Context) {
	delay := backoffDelay(f.cfg.ReconnectBase, f.cfg.ReconnectCeiling, f.attempt)
	f.attempt++
	f.metrics.IncReconnect()

	logCtx := f.logg.WithFields(ctx, map[string]any{"attempt": f.attempt, "delay": delay.String()})
	f.logg.Info(logCtx, "scheduling auction feed reconnect")

	f.retry = time.AfterFunc(delay, func() {
		f.Connect(ctx)
	})
}

// Disconnect tears down the channel and cancels any pending reconnect.
// Terminal for the instance's current session.
func (f *Feed) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.sessionID++
	if f.retry != nil {
		f.retry.Stop()
		f.retry = nil
	}
	f.teardownConnLocked()
	f.setStatusLocked(enums.ConnectionStatusDisconnected)
}

func (f *Feed) teardownConnLocked() {
	if f.pingStop != nil {
		close(f.pingStop)
		f.pingStop = nil
	}
	if f.conn != nil {
		_ = f.conn.Close()
		f.conn = nil
	}
}

func (f *Feed) setStatusLocked(status enums.ConnectionStatus) {
	if f.status == status {
		return
	}
	f.status = status
	if f.onStatus != nil {
		f.onStatus(status)
	}
}

func (f *Feed) authHeader() http.Header {
	if f.cfg.APIToken == "" {
		return nil
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+f.cfg.APIToken)
	return header
}

// backoffDelay computes min(base * 2^attempt, ceiling). The delay is
// non-decreasing in attempt until the ceiling is hit.
func backoffDelay(base, ceiling time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if ceiling <= 0 {
		ceiling = 30 * time.Second
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	if delay > ceiling {
		return ceiling
	}
	return delay
}
