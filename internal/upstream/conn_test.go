package upstream

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurumart/kurumart-backend/internal/bidding"
	"github.com/kurumart/kurumart-backend/pkg/config"
	"github.com/kurumart/kurumart-backend/pkg/enums"
	"github.com/kurumart/kurumart-backend/pkg/logger"
)

type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case frame := <-f.frames:
		return 1, frame, nil
	case <-f.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (f *fakeConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

func (f *fakeConn) SetReadDeadline(t time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(h func(string) error) {}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []enums.ConnectionStatus
}

func (s *statusRecorder) record(status enums.ConnectionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

func (s *statusRecorder) last() enums.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return ""
	}
	return s.statuses[len(s.statuses)-1]
}

func testFeedConfig() config.UpstreamConfig {
	return config.UpstreamConfig{
		FeedURL:          "ws://feed.test/live",
		APIURL:           "http://api.test",
		ReconnectBase:    time.Millisecond,
		ReconnectCeiling: 8 * time.Millisecond,
	}
}

func waitFor(t *testing.T, timeout time.Duration, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestBackoffDelayBoundedAndNonDecreasing(t *testing.T) {
	base := time.Second
	ceiling := 30 * time.Second

	var previous time.Duration
	for attempt := 0; attempt < 12; attempt++ {
		delay := backoffDelay(base, ceiling, attempt)
		assert.LessOrEqual(t, delay, ceiling)
		assert.GreaterOrEqual(t, delay, previous)
		previous = delay
	}
	assert.Equal(t, time.Second, backoffDelay(base, ceiling, 0))
	assert.Equal(t, 2*time.Second, backoffDelay(base, ceiling, 1))
	assert.Equal(t, ceiling, backoffDelay(base, ceiling, 10))
}

func TestConnectDeliversMessagesAndIsIdempotent(t *testing.T) {
	conn := newFakeConn()
	var dials int
	var dialMu sync.Mutex

	received := make(chan bidding.InboundMessage, 4)
	statuses := &statusRecorder{}

	feed, err := NewFeed(FeedParams{
		Config:    testFeedConfig(),
		Logger:    logger.New(logger.Options{ServiceName: "feed-test", Level: zerolog.ErrorLevel}),
		OnMessage: func(msg bidding.InboundMessage) { received <- msg },
		OnStatus:  statuses.record,
		Dial: func(ctx context.Context, url string, header http.Header) (feedConn, error) {
			dialMu.Lock()
			dials++
			dialMu.Unlock()
			return conn, nil
		},
	})
	require.NoError(t, err)
	defer feed.Disconnect()

	ctx := context.Background()
	feed.Connect(ctx)
	waitFor(t, time.Second, func() bool { return feed.Status() == enums.ConnectionStatusConnected })

	// second connect while connected is a no-op
	feed.Connect(ctx)
	dialMu.Lock()
	assert.Equal(t, 1, dials)
	dialMu.Unlock()

	conn.frames <- []byte(`{"type":"bid_update","groupId":"group-a","vehicleId":"v1","data":{"highestBid":"2600000"}}`)
	select {
	case msg := <-received:
		assert.Equal(t, enums.FeedMessageBidUpdate, msg.Type)
		assert.Equal(t, "group-a", msg.GroupID)
		assert.Equal(t, "v1", msg.VehicleID)
		require.NotNil(t, msg.Data.HighestBid)
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}

	// malformed and unknown-type frames are dropped without closing
	conn.frames <- []byte(`{{{`)
	conn.frames <- []byte(`{"type":"mystery","groupId":"group-a"}`)
	conn.frames <- []byte(`{"type":"auction_end","groupId":"group-a"}`)
	select {
	case msg := <-received:
		assert.Equal(t, enums.FeedMessageAuctionEnd, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("survivor message never delivered")
	}
}

func TestDialFailureSchedulesReconnect(t *testing.T) {
	var dialMu sync.Mutex
	dials := 0
	conn := newFakeConn()

	feed, err := NewFeed(FeedParams{
		Config:    testFeedConfig(),
		Logger:    logger.New(logger.Options{ServiceName: "feed-test", Level: zerolog.ErrorLevel}),
		OnMessage: func(bidding.InboundMessage) {},
		Dial: func(ctx context.Context, url string, header http.Header) (feedConn, error) {
			dialMu.Lock()
			defer dialMu.Unlock()
			dials++
			if dials < 3 {
				return nil, errors.New("dial refused")
			}
			return conn, nil
		},
	})
	require.NoError(t, err)
	defer feed.Disconnect()

	feed.Connect(context.Background())
	waitFor(t, time.Second, func() bool { return feed.Status() == enums.ConnectionStatusConnected })

	dialMu.Lock()
	assert.Equal(t, 3, dials)
	dialMu.Unlock()
}

func TestReadFailureReconnectsAndResetsAttempts(t *testing.T) {
	var dialMu sync.Mutex
	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	dials := 0
	statuses := &statusRecorder{}

	feed, err := NewFeed(FeedParams{
		Config:    testFeedConfig(),
		Logger:    logger.New(logger.Options{ServiceName: "feed-test", Level: zerolog.ErrorLevel}),
		OnMessage: func(bidding.InboundMessage) {},
		OnStatus:  statuses.record,
		Dial: func(ctx context.Context, url string, header http.Header) (feedConn, error) {
			dialMu.Lock()
			defer dialMu.Unlock()
			conn := conns[dials%len(conns)]
			dials++
			return conn, nil
		},
	})
	require.NoError(t, err)
	defer feed.Disconnect()

	feed.Connect(context.Background())
	waitFor(t, time.Second, func() bool { return feed.Status() == enums.ConnectionStatusConnected })

	// dropping the live connection downgrades status then reconnects
	conns[0].Close()
	waitFor(t, time.Second, func() bool {
		dialMu.Lock()
		defer dialMu.Unlock()
		return dials >= 2 && feed.Status() == enums.ConnectionStatusConnected
	})

	feed.mu.Lock()
	attempt := feed.attempt
	feed.mu.Unlock()
	assert.Equal(t, 0, attempt)
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	var dialMu sync.Mutex
	dials := 0

	feed, err := NewFeed(FeedParams{
		Config: config.UpstreamConfig{
			FeedURL:          "ws://feed.test/live",
			ReconnectBase:    50 * time.Millisecond,
			ReconnectCeiling: time.Second,
		},
		Logger:    logger.New(logger.Options{ServiceName: "feed-test", Level: zerolog.ErrorLevel}),
		OnMessage: func(bidding.InboundMessage) {},
		Dial: func(ctx context.Context, url string, header http.Header) (feedConn, error) {
			dialMu.Lock()
			defer dialMu.Unlock()
			dials++
			return nil, errors.New("dial refused")
		},
	})
	require.NoError(t, err)

	feed.Connect(context.Background())
	waitFor(t, time.Second, func() bool {
		dialMu.Lock()
		defer dialMu.Unlock()
		return dials == 1
	})

	feed.Disconnect()
	time.Sleep(120 * time.Millisecond)

	dialMu.Lock()
	assert.Equal(t, 1, dials)
	dialMu.Unlock()
	assert.Equal(t, enums.ConnectionStatusDisconnected, feed.Status())
}
