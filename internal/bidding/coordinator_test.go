package bidding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurumart/kurumart-backend/pkg/config"
	"github.com/kurumart/kurumart-backend/pkg/enums"
	pkgerrors "github.com/kurumart/kurumart-backend/pkg/errors"
	"github.com/kurumart/kurumart-backend/pkg/logger"
)

type fakeTransport struct {
	mu         sync.Mutex
	submitErr  error
	cancelErr  error
	serverBid  string
	submits    []SubmitRequest
	cancels    []CancelRequest
	onSubmit   func()
	submitWait chan struct{}
}

func (f *fakeTransport) SubmitBid(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	f.mu.Lock()
	f.submits = append(f.submits, req)
	onSubmit := f.onSubmit
	f.mu.Unlock()
	if onSubmit != nil {
		onSubmit()
	}
	if f.submitWait != nil {
		<-f.submitWait
	}
	if f.submitErr != nil {
		return SubmitResult{}, f.submitErr
	}
	return SubmitResult{BidID: f.serverBid}, nil
}

func (f *fakeTransport) CancelBid(ctx context.Context, req CancelRequest) error {
	f.mu.Lock()
	f.cancels = append(f.cancels, req)
	f.mu.Unlock()
	return f.cancelErr
}

type recordedEvent struct {
	eventType     enums.OutboxEventType
	aggregateType enums.OutboxAggregateType
	aggregateID   string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeRecorder) Record(ctx context.Context, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{eventType: eventType, aggregateType: aggregateType, aggregateID: aggregateID})
}

func (f *fakeRecorder) types() []enums.OutboxEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]enums.OutboxEventType, 0, len(f.events))
	for _, event := range f.events {
		out = append(out, event.eventType)
	}
	return out
}

func newTestCoordinator(t *testing.T, transport Transport, recorder Recorder) *Coordinator {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "bidding-test", Level: zerolog.ErrorLevel})
	coordinator, err := NewCoordinator(CoordinatorParams{
		Config:    config.BiddingConfig{EventBuffer: 32, SubscriberSeed: 8},
		Logger:    logg,
		Transport: transport,
		Recorder:  recorder,
		Now:       func() time.Time { return testTime },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go coordinator.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-coordinator.done
	})
	return coordinator
}

func registerGroupA(t *testing.T, coordinator *Coordinator) {
	t.Helper()
	err := coordinator.RegisterGroup(context.Background(), GroupSeed{
		Info: GroupInfo{
			GroupID:      "group-a",
			Title:        "Kansai Session 12",
			RequiredWins: 2,
			EndTime:      testTime.Add(3 * time.Hour),
		},
		Vehicles: []VehicleSeed{
			{VehicleID: "v1", StartingBid: yen(2_000_000), MinIncrement: yen(50_000), AuctionEndTime: testTime.Add(2 * time.Hour)},
			{VehicleID: "v2", StartingBid: yen(8_000_000), MinIncrement: yen(100_000), AuctionEndTime: testTime.Add(2 * time.Hour)},
			{VehicleID: "v3", StartingBid: yen(1_000_000), MinIncrement: yen(50_000), AuctionEndTime: testTime.Add(2 * time.Hour)},
		},
	})
	require.NoError(t, err)
}

func TestSubmitBidHappyPathReconcilesServerID(t *testing.T) {
	transport := &fakeTransport{serverBid: "srv-777"}
	recorder := &fakeRecorder{}
	coordinator := newTestCoordinator(t, transport, recorder)
	registerGroupA(t, coordinator)

	state, err := coordinator.SubmitBid(context.Background(), "group-a", "v1", yen(2_500_000))
	require.NoError(t, err)
	require.NotNil(t, state.YourBid)
	assert.Equal(t, "srv-777", state.YourBid.ID)
	assert.Equal(t, enums.BidStatusWinning, state.BidStatus())

	require.Len(t, transport.submits, 1)
	assert.Equal(t, "group-a", transport.submits[0].GroupID)
	assert.Equal(t, "v1", transport.submits[0].VehicleID)
	assert.True(t, transport.submits[0].BidAmount.Equal(yen(2_500_000)))

	assert.Contains(t, recorder.types(), enums.EventBidPlaced)
	assert.Contains(t, recorder.types(), enums.EventBidReconciled)

	// the reconciled id is addressable for later operations
	groupID, vehicleID, err := coordinator.UpdateBid(context.Background(), "srv-777")
	require.NoError(t, err)
	assert.Equal(t, "group-a", groupID)
	assert.Equal(t, "v1", vehicleID)
}

func TestSubmitBidTransportFailureRollsBack(t *testing.T) {
	transport := &fakeTransport{submitErr: errors.New("upstream 502")}
	coordinator := newTestCoordinator(t, transport, nil)
	registerGroupA(t, coordinator)

	ctx := context.Background()
	_, before, err := coordinator.GroupSnapshot(ctx, "group-a")
	require.NoError(t, err)

	_, err = coordinator.SubmitBid(ctx, "group-a", "v1", yen(2_500_000))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())

	_, after, err := coordinator.GroupSnapshot(ctx, "group-a")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSubmitBidValidationFailureSkipsTransport(t *testing.T) {
	transport := &fakeTransport{}
	coordinator := newTestCoordinator(t, transport, nil)
	registerGroupA(t, coordinator)

	_, err := coordinator.SubmitBid(context.Background(), "group-a", "v1", yen(2_000_000))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Empty(t, transport.submits)
}

func TestCancelBidHappyPathAndRollback(t *testing.T) {
	transport := &fakeTransport{serverBid: "srv-1"}
	coordinator := newTestCoordinator(t, transport, nil)
	registerGroupA(t, coordinator)

	ctx := context.Background()
	_, err := coordinator.SubmitBid(ctx, "group-a", "v1", yen(2_500_000))
	require.NoError(t, err)

	require.NoError(t, coordinator.CancelBid(ctx, "srv-1"))
	_, vehicles, err := coordinator.GroupSnapshot(ctx, "group-a")
	require.NoError(t, err)
	assert.Equal(t, enums.BidStatusNone, vehicles[0].BidStatus())

	// now a failing cancel restores the bid
	transport.serverBid = "srv-2"
	_, err = coordinator.SubmitBid(ctx, "group-a", "v2", yen(8_200_000))
	require.NoError(t, err)
	transport.cancelErr = errors.New("upstream timeout")

	err = coordinator.CancelBid(ctx, "srv-2")
	require.Error(t, err)
	_, vehicles, err = coordinator.GroupSnapshot(ctx, "group-a")
	require.NoError(t, err)
	assert.Equal(t, enums.BidStatusWinning, vehicles[1].BidStatus())
}

func TestHandleMessageOutbidAndGroupRecompute(t *testing.T) {
	transport := &fakeTransport{serverBid: "srv-1"}
	recorder := &fakeRecorder{}
	coordinator := newTestCoordinator(t, transport, recorder)
	registerGroupA(t, coordinator)

	ctx := context.Background()
	_, err := coordinator.SubmitBid(ctx, "group-a", "v1", yen(2_500_000))
	require.NoError(t, err)

	higher := yen(2_600_000)
	coordinator.HandleMessage(InboundMessage{
		Type:      enums.FeedMessageBidUpdate,
		GroupID:   "group-a",
		VehicleID: "v1",
		Data:      MessageData{HighestBid: &higher},
	})

	// the coordinator loop applies messages in order; a snapshot issued
	// afterwards observes the transition
	group, vehicles, err := coordinator.GroupSnapshot(ctx, "group-a")
	require.NoError(t, err)
	assert.Equal(t, enums.BidStatusOutbid, vehicles[0].BidStatus())
	assert.Equal(t, 0, group.CurrentWins)
	assert.Contains(t, recorder.types(), enums.EventBidOutbid)

	// stale duplicate: no regression
	stale := yen(2_400_000)
	coordinator.HandleMessage(InboundMessage{
		Type:      enums.FeedMessageBidUpdate,
		GroupID:   "group-a",
		VehicleID: "v1",
		Data:      MessageData{HighestBid: &stale},
	})
	_, vehicles, err = coordinator.GroupSnapshot(ctx, "group-a")
	require.NoError(t, err)
	assert.Equal(t, enums.BidStatusOutbid, vehicles[0].BidStatus())
	assert.True(t, vehicles[0].CurrentHighestBid.Equal(higher))
}

func TestAuctionEndMessageClosesGroup(t *testing.T) {
	transport := &fakeTransport{serverBid: "srv-1"}
	coordinator := newTestCoordinator(t, transport, nil)
	registerGroupA(t, coordinator)

	ctx := context.Background()
	_, err := coordinator.SubmitBid(ctx, "group-a", "v1", yen(2_500_000))
	require.NoError(t, err)

	coordinator.HandleMessage(InboundMessage{
		Type:    enums.FeedMessageAuctionEnd,
		GroupID: "group-a",
	})

	_, vehicles, err := coordinator.GroupSnapshot(ctx, "group-a")
	require.NoError(t, err)
	assert.Equal(t, enums.BidStatusWon, vehicles[0].BidStatus())
	for _, vehicle := range vehicles {
		assert.True(t, vehicle.Closed)
	}
}

func TestSubscribeReceivesVehicleAndGroupEvents(t *testing.T) {
	transport := &fakeTransport{serverBid: "srv-1"}
	coordinator := newTestCoordinator(t, transport, nil)
	registerGroupA(t, coordinator)

	ctx := context.Background()
	events, cancel, err := coordinator.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	_, err = coordinator.SubmitBid(ctx, "group-a", "v1", yen(2_500_000))
	require.NoError(t, err)

	seen := map[EventKind]bool{}
	deadline := time.After(2 * time.Second)
	for !(seen[EventVehicleChanged] && seen[EventGroupChanged]) {
		select {
		case event := <-events:
			seen[event.Kind] = true
		case <-deadline:
			t.Fatalf("timed out waiting for events, saw %v", seen)
		}
	}
}

func TestConnectionStatusTransitions(t *testing.T) {
	transport := &fakeTransport{}
	coordinator := newTestCoordinator(t, transport, nil)

	ctx := context.Background()
	status, err := coordinator.ConnectionStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, enums.ConnectionStatusDisconnected, status)

	coordinator.SetConnectionStatus(enums.ConnectionStatusConnecting)
	coordinator.SetConnectionStatus(enums.ConnectionStatusConnected)

	status, err = coordinator.ConnectionStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, enums.ConnectionStatusConnected, status)
}

func TestSelectGroupAndUnknownLookups(t *testing.T) {
	transport := &fakeTransport{}
	coordinator := newTestCoordinator(t, transport, nil)
	registerGroupA(t, coordinator)

	ctx := context.Background()
	require.NoError(t, coordinator.SelectGroup(ctx, "group-a"))
	selected, err := coordinator.SelectedGroup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "group-a", selected)

	err = coordinator.SelectGroup(ctx, "group-zz")
	require.Error(t, err)

	_, err = coordinator.SubmitBid(ctx, "group-zz", "v1", yen(2_500_000))
	require.Error(t, err)

	err = coordinator.CancelBid(ctx, "no-such-bid")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCancelDuringInFlightSubmissionKeepsLoopAlive(t *testing.T) {
	release := make(chan struct{})
	cancelled := make(chan error, 1)
	transport := &fakeTransport{serverBid: "srv-9", submitWait: release}
	coordinator := newTestCoordinator(t, transport, nil)
	registerGroupA(t, coordinator)

	ctx := context.Background()
	transport.onSubmit = func() {
		_, vehicles, err := coordinator.GroupSnapshot(ctx, "group-a")
		if err != nil || vehicles[0].YourBid == nil {
			cancelled <- errors.New("no in-flight bid to cancel")
		} else {
			cancelled <- coordinator.CancelBid(ctx, vehicles[0].YourBid.ID)
		}
		close(release)
	}

	state, err := coordinator.SubmitBid(ctx, "group-a", "v1", yen(2_500_000))
	require.NoError(t, err)
	require.NoError(t, <-cancelled)
	assert.Nil(t, state.YourBid)

	// the loop survived and the acknowledged server id never entered the index
	_, _, err = coordinator.UpdateBid(ctx, "srv-9")
	require.Error(t, err)
	_, vehicles, err := coordinator.GroupSnapshot(ctx, "group-a")
	require.NoError(t, err)
	assert.Nil(t, vehicles[0].YourBid)
}

func TestRegisterGroupRefreshesCatalogFactsOnKeptVehicles(t *testing.T) {
	transport := &fakeTransport{serverBid: "srv-1"}
	coordinator := newTestCoordinator(t, transport, nil)
	registerGroupA(t, coordinator)

	ctx := context.Background()
	_, err := coordinator.SubmitBid(ctx, "group-a", "v1", yen(2_500_000))
	require.NoError(t, err)

	higher := yen(2_500_000)
	coordinator.HandleMessage(InboundMessage{
		Type:      enums.FeedMessageBidUpdate,
		GroupID:   "group-a",
		VehicleID: "v1",
		Data:      MessageData{HighestBid: &higher},
	})

	extended := testTime.Add(6 * time.Hour)
	err = coordinator.RegisterGroup(ctx, GroupSeed{
		Info: GroupInfo{
			GroupID:      "group-a",
			Title:        "Kansai Session 12",
			RequiredWins: 1,
			EndTime:      testTime.Add(7 * time.Hour),
		},
		Vehicles: []VehicleSeed{
			{VehicleID: "v1", StartingBid: yen(2_000_000), MinIncrement: yen(200_000), AuctionEndTime: extended},
		},
	})
	require.NoError(t, err)

	_, vehicles, err := coordinator.GroupSnapshot(ctx, "group-a")
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	require.NotNil(t, vehicles[0].YourBid)
	assert.True(t, vehicles[0].MinIncrement.Equal(yen(200_000)))
	assert.True(t, extended.Equal(vehicles[0].AuctionEndTime))

	// raises now validate against the re-imported increment
	_, err = coordinator.SubmitBid(ctx, "group-a", "v1", yen(2_600_000))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestOptimisticStateVisibleDuringSubmission(t *testing.T) {
	release := make(chan struct{})
	observed := make(chan enums.BidStatus, 1)
	transport := &fakeTransport{serverBid: "srv-1", submitWait: release}
	coordinator := newTestCoordinator(t, transport, nil)
	registerGroupA(t, coordinator)

	ctx := context.Background()
	transport.onSubmit = func() {
		_, vehicles, err := coordinator.GroupSnapshot(ctx, "group-a")
		if err == nil && len(vehicles) > 0 {
			observed <- vehicles[0].BidStatus()
		}
		close(release)
	}

	_, err := coordinator.SubmitBid(ctx, "group-a", "v1", yen(2_500_000))
	require.NoError(t, err)

	select {
	case status := <-observed:
		assert.Equal(t, enums.BidStatusWinning, status)
	case <-time.After(2 * time.Second):
		t.Fatal("never observed in-flight optimistic state")
	}
}
