package bidding

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallnest/chanx"

	"github.com/kurumart/kurumart-backend/pkg/config"
	"github.com/kurumart/kurumart-backend/pkg/enums"
	pkgerrors "github.com/kurumart/kurumart-backend/pkg/errors"
	"github.com/kurumart/kurumart-backend/pkg/logger"
	"github.com/kurumart/kurumart-backend/pkg/metrics"
)

// ErrCoordinatorClosed is returned once the coordinator loop has stopped.
var ErrCoordinatorClosed = errors.New("bid coordinator is closed")

// Transport performs the upstream auction API calls on behalf of the
// coordinator. Implementations must be safe for concurrent use.
type Transport interface {
	SubmitBid(ctx context.Context, req SubmitRequest) (SubmitResult, error)
	CancelBid(ctx context.Context, req CancelRequest) error
}

// Recorder persists durable bid events; the coordinator calls it from the
// event loop, so implementations should return quickly.
type Recorder interface {
	Record(ctx context.Context, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID string, data any)
}

// EventKind discriminates coordinator change notifications.
type EventKind string

const (
	EventVehicleChanged    EventKind = "vehicle_changed"
	EventGroupChanged      EventKind = "group_changed"
	EventConnectionChanged EventKind = "connection_changed"
)

// Event is a change notification pushed to subscribers.
type Event struct {
	Kind       EventKind              `json:"kind"`
	Vehicle    *VehicleState          `json:"vehicle,omitempty"`
	Group      *GroupState            `json:"group,omitempty"`
	Connection enums.ConnectionStatus `json:"connection,omitempty"`
}

// CoordinatorParams groups dependencies for the bid coordinator.
type CoordinatorParams struct {
	Config    config.BiddingConfig
	Logger    *logger.Logger
	Metrics   *metrics.BiddingMetrics
	Transport Transport
	Recorder  Recorder
	Now       func() time.Time
}

type groupEntry struct {
	info     GroupInfo
	machines map[string]*Machine
	order    []string
	state    GroupState
}

type bidLocation struct {
	groupID   string
	vehicleID string
}

// Coordinator is the single entry point for bid mutations. All state lives
// behind one event loop goroutine; public methods post closures onto the
// loop so no two mutations of the same vehicle ever run concurrently.
type Coordinator struct {
	cfg       config.BiddingConfig
	logg      *logger.Logger
	metrics   *metrics.BiddingMetrics
	transport Transport
	recorder  Recorder
	now       func() time.Time

	commands chan func()
	done     chan struct{}

	// loop-owned state, never touched outside the event loop
	groups        map[string]*groupEntry
	bidIndex      map[string]bidLocation
	selectedGroup string
	connStatus    enums.ConnectionStatus
	subscribers   map[int]*chanx.UnboundedChan[Event]
	nextSubID     int
}

// NewCoordinator builds a coordinator; Run must be started before use.
func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	if params.Transport == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transport is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	buffer := params.Config.EventBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &Coordinator{
		cfg:         params.Config,
		logg:        params.Logger,
		metrics:     params.Metrics,
		transport:   params.Transport,
		recorder:    params.Recorder,
		now:         now,
		commands:    make(chan func(), buffer),
		done:        make(chan struct{}),
		groups:      make(map[string]*groupEntry),
		bidIndex:    make(map[string]bidLocation),
		connStatus:  enums.ConnectionStatusDisconnected,
		subscribers: make(map[int]*chanx.UnboundedChan[Event]),
	}, nil
}

// Run drives the event loop until the context is cancelled. It must be
// called exactly once.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	defer c.closeSubscribers()
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-c.commands:
			fn()
		}
	}
}

// do executes fn on the event loop and waits for it to finish.
func (c *Coordinator) do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	wrapped := func() {
		defer close(ran)
		fn()
	}
	select {
	case c.commands <- wrapped:
	case <-c.done:
		return ErrCoordinatorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-c.done:
		return ErrCoordinatorClosed
	}
}

// post executes fn on the event loop without waiting.
func (c *Coordinator) post(fn func()) {
	select {
	case c.commands <- fn:
	case <-c.done:
	}
}

// RegisterGroup installs a group and its vehicles from the catalog feed.
// Re-registering an existing group replaces its catalog facts but keeps
// live bid state for vehicles that are still present.
func (c *Coordinator) RegisterGroup(ctx context.Context, seed GroupSeed) error {
	if seed.Info.GroupID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "group id is required")
	}
	if seed.Info.RequiredWins < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "required wins must be at least 1")
	}
	if seed.Info.RequiredWins > len(seed.Vehicles) {
		return pkgerrors.New(pkgerrors.CodeValidation, "required wins cannot exceed vehicle count")
	}
	return c.do(ctx, func() {
		entry, exists := c.groups[seed.Info.GroupID]
		if !exists {
			entry = &groupEntry{machines: make(map[string]*Machine)}
			c.groups[seed.Info.GroupID] = entry
		}
		entry.info = seed.Info
		entry.info.TotalVehicles = len(seed.Vehicles)
		entry.order = entry.order[:0]
		kept := make(map[string]*Machine, len(seed.Vehicles))
		for _, vehicle := range seed.Vehicles {
			entry.order = append(entry.order, vehicle.VehicleID)
			if machine, ok := entry.machines[vehicle.VehicleID]; ok {
				machine.RefreshSeed(vehicle)
				kept[vehicle.VehicleID] = machine
				continue
			}
			kept[vehicle.VehicleID] = NewMachine(seed.Info.GroupID, vehicle)
		}
		entry.machines = kept
		c.recomputeGroup(ctx, entry)
	})
}

// SelectGroup records the caller's active group. Pure bookkeeping, no
// bidding side effect.
func (c *Coordinator) SelectGroup(ctx context.Context, groupID string) error {
	var selectErr error
	err := c.do(ctx, func() {
		if _, ok := c.groups[groupID]; !ok {
			selectErr = pkgerrors.New(pkgerrors.CodeNotFound, "unknown auction group")
			return
		}
		c.selectedGroup = groupID
	})
	if err != nil {
		return err
	}
	return selectErr
}

// SelectedGroup returns the currently selected group id.
func (c *Coordinator) SelectedGroup(ctx context.Context) (string, error) {
	var selected string
	err := c.do(ctx, func() { selected = c.selectedGroup })
	return selected, err
}

// SubmitBid validates and optimistically applies a bid, then submits it
// upstream. On upstream failure the optimistic state is rolled back to the
// exact pre-call snapshot and the failure is returned to the caller.
func (c *Coordinator) SubmitBid(ctx context.Context, groupID, vehicleID string, amount decimal.Decimal) (VehicleState, error) {
	var (
		machine  *Machine
		entry    *groupEntry
		prior    VehicleState
		priorIdx string
		applied  VehicleState
		applyErr error
	)
	err := c.do(ctx, func() {
		entry, machine, applyErr = c.lookupVehicle(groupID, vehicleID)
		if applyErr != nil {
			return
		}
		prior = machine.Snapshot()
		if prior.YourBid != nil {
			priorIdx = prior.YourBid.ID
		}
		applied, applyErr = machine.Submit(amount, c.now())
		if applyErr != nil {
			return
		}
		if priorIdx != "" {
			delete(c.bidIndex, priorIdx)
		}
		c.bidIndex[applied.YourBid.ID] = bidLocation{groupID: groupID, vehicleID: vehicleID}
		c.publishVehicle(applied)
		c.recomputeGroup(ctx, entry)
	})
	if err != nil {
		return VehicleState{}, err
	}
	if applyErr != nil {
		c.metrics.IncSubmission("rejected")
		return VehicleState{}, applyErr
	}

	// The optimistic state is already visible to readers while we wait.
	started := c.now()
	result, submitErr := c.transport.SubmitBid(ctx, SubmitRequest{
		GroupID:   groupID,
		VehicleID: vehicleID,
		BidAmount: amount,
	})
	elapsed := c.now().Sub(started)

	if submitErr != nil {
		rollbackErr := c.do(context.WithoutCancel(ctx), func() {
			delete(c.bidIndex, applied.YourBid.ID)
			if priorIdx != "" {
				c.bidIndex[priorIdx] = bidLocation{groupID: groupID, vehicleID: vehicleID}
			}
			machine.Restore(prior)
			c.publishVehicle(machine.Snapshot())
			c.recomputeGroup(ctx, entry)
		})
		c.metrics.IncSubmission("failed")
		c.metrics.IncRollback("submit_transport_failure")
		c.metrics.ObserveSubmitDuration("failed", elapsed)
		if rollbackErr != nil {
			return VehicleState{}, rollbackErr
		}
		c.logg.Warn(c.logg.WithField(ctx, "error", submitErr.Error()), "bid submission failed, optimistic state rolled back")
		return VehicleState{}, pkgerrors.Wrap(pkgerrors.CodeDependency, submitErr, "bid submission failed")
	}

	var reconciled VehicleState
	err = c.do(context.WithoutCancel(ctx), func() {
		localID := applied.YourBid.ID
		if _, live := c.bidIndex[localID]; !live {
			// the bid was cancelled or superseded while the submission was
			// in flight; the machine no longer holds it, so there is nothing
			// to reconcile and no index entry to move
			reconciled = machine.Snapshot()
			return
		}
		reconciled = machine.Reconcile(result.BidID, c.now())
		if result.BidID != "" && result.BidID != localID {
			delete(c.bidIndex, localID)
			c.bidIndex[result.BidID] = bidLocation{groupID: groupID, vehicleID: vehicleID}
			c.record(ctx, enums.EventBidReconciled, enums.AggregateBid, result.BidID, map[string]string{
				"localBidId":  localID,
				"serverBidId": result.BidID,
			})
		}
		c.publishVehicle(reconciled)
		c.record(ctx, enums.EventBidPlaced, enums.AggregateBid, reconciled.YourBid.ID, reconciled)
	})
	if err != nil {
		return VehicleState{}, err
	}
	c.metrics.IncSubmission("accepted")
	c.metrics.ObserveSubmitDuration("accepted", elapsed)
	return reconciled, nil
}

// CancelBid optimistically removes a pending or winning bid, then confirms
// the cancellation upstream with the same rollback discipline as SubmitBid.
func (c *Coordinator) CancelBid(ctx context.Context, bidID string) error {
	var (
		machine   *Machine
		entry     *groupEntry
		loc       bidLocation
		prior     VehicleState
		applyErr  error
		cancelled VehicleState
	)
	err := c.do(ctx, func() {
		var ok bool
		loc, ok = c.bidIndex[bidID]
		if !ok {
			applyErr = pkgerrors.New(pkgerrors.CodeNotFound, "unknown bid id")
			return
		}
		entry, machine, applyErr = c.lookupVehicle(loc.groupID, loc.vehicleID)
		if applyErr != nil {
			return
		}
		prior = machine.Snapshot()
		cancelled, applyErr = machine.Cancel(c.now())
		if applyErr != nil {
			return
		}
		delete(c.bidIndex, bidID)
		c.publishVehicle(cancelled)
		c.recomputeGroup(ctx, entry)
	})
	if err != nil {
		return err
	}
	if applyErr != nil {
		return applyErr
	}

	cancelErr := c.transport.CancelBid(ctx, CancelRequest{
		GroupID:   loc.groupID,
		VehicleID: loc.vehicleID,
		BidID:     bidID,
	})
	if cancelErr != nil {
		rollbackErr := c.do(context.WithoutCancel(ctx), func() {
			machine.Restore(prior)
			c.bidIndex[bidID] = loc
			c.publishVehicle(machine.Snapshot())
			c.recomputeGroup(ctx, entry)
		})
		c.metrics.IncRollback("cancel_transport_failure")
		if rollbackErr != nil {
			return rollbackErr
		}
		c.logg.Warn(c.logg.WithField(ctx, "error", cancelErr.Error()), "bid cancellation failed, state rolled back")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cancelErr, "bid cancellation failed")
	}

	return c.do(context.WithoutCancel(ctx), func() {
		c.record(ctx, enums.EventBidCanceled, enums.AggregateBid, bidID, cancelled)
	})
}

// UpdateBid re-selects the bid's group so the caller can resubmit a raised
// amount. It mutates no bid state.
func (c *Coordinator) UpdateBid(ctx context.Context, bidID string) (string, string, error) {
	var (
		loc bidLocation
		err error
	)
	doErr := c.do(ctx, func() {
		var ok bool
		loc, ok = c.bidIndex[bidID]
		if !ok {
			err = pkgerrors.New(pkgerrors.CodeNotFound, "unknown bid id")
			return
		}
		c.selectedGroup = loc.groupID
	})
	if doErr != nil {
		return "", "", doErr
	}
	if err != nil {
		return "", "", err
	}
	return loc.groupID, loc.vehicleID, nil
}

// HandleMessage applies an inbound feed broadcast. Unknown groups and stale
// payloads are absorbed silently; protocol anomalies are not errors.
func (c *Coordinator) HandleMessage(msg InboundMessage) {
	c.post(func() {
		ctx := context.Background()
		c.metrics.IncFeedMessage(msg.Type.String())
		entry, ok := c.groups[msg.GroupID]
		if !ok {
			return
		}
		switch msg.Type {
		case enums.FeedMessageBidUpdate:
			c.applyBidUpdate(ctx, entry, msg)
		case enums.FeedMessageStatusChange:
			c.applyStatusChange(ctx, entry, msg)
		case enums.FeedMessageAuctionEnd:
			c.applyAuctionEnd(ctx, entry, msg)
		case enums.FeedMessageGroupUpdate:
			c.recomputeGroup(ctx, entry)
		}
	})
}

// SetConnectionStatus records feed connectivity and notifies subscribers.
// Previously known bid state is never discarded on a drop.
func (c *Coordinator) SetConnectionStatus(status enums.ConnectionStatus) {
	c.post(func() {
		if status == c.connStatus {
			return
		}
		c.connStatus = status
		c.publish(Event{Kind: EventConnectionChanged, Connection: status})
		c.record(context.Background(), enums.EventFeedConnectivity, enums.AggregateGroup, "feed", map[string]string{
			"status": status.String(),
		})
	})
}

// ConnectionStatus returns the last observed feed connectivity.
func (c *Coordinator) ConnectionStatus(ctx context.Context) (enums.ConnectionStatus, error) {
	var status enums.ConnectionStatus
	err := c.do(ctx, func() { status = c.connStatus })
	return status, err
}

// GroupSnapshot returns the group's derived state plus per-vehicle snapshots.
func (c *Coordinator) GroupSnapshot(ctx context.Context, groupID string) (GroupState, []VehicleState, error) {
	var (
		group    GroupState
		vehicles []VehicleState
		lookup   error
	)
	err := c.do(ctx, func() {
		entry, ok := c.groups[groupID]
		if !ok {
			lookup = pkgerrors.New(pkgerrors.CodeNotFound, "unknown auction group")
			return
		}
		group = entry.state
		vehicles = make([]VehicleState, 0, len(entry.order))
		for _, id := range entry.order {
			vehicles = append(vehicles, entry.machines[id].Snapshot())
		}
	})
	if err != nil {
		return GroupState{}, nil, err
	}
	if lookup != nil {
		return GroupState{}, nil, lookup
	}
	return group, vehicles, nil
}

// Groups returns the derived state of every registered group.
func (c *Coordinator) Groups(ctx context.Context) ([]GroupState, error) {
	var out []GroupState
	err := c.do(ctx, func() {
		out = make([]GroupState, 0, len(c.groups))
		for _, entry := range c.groups {
			out = append(out, entry.state)
		}
	})
	return out, err
}

// Subscribe registers a change-notification channel. The returned cancel
// function must be called to release the subscription.
func (c *Coordinator) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	var (
		sub *chanx.UnboundedChan[Event]
		id  int
	)
	err := c.do(ctx, func() {
		seed := c.cfg.SubscriberSeed
		if seed <= 0 {
			seed = 64
		}
		sub = chanx.NewUnboundedChan[Event](context.Background(), seed)
		id = c.nextSubID
		c.nextSubID++
		c.subscribers[id] = sub
	})
	if err != nil {
		return nil, nil, err
	}
	cancel := func() {
		c.post(func() {
			if existing, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(existing.In)
			}
		})
	}
	return sub.Out, cancel, nil
}

func (c *Coordinator) applyBidUpdate(ctx context.Context, entry *groupEntry, msg InboundMessage) {
	machine, ok := entry.machines[msg.VehicleID]
	if !ok || msg.Data.HighestBid == nil {
		return
	}
	before := machine.Snapshot()
	after, advanced := machine.ApplyHighestBid(*msg.Data.HighestBid, msg.Data.TotalBidders, c.now())
	if !advanced {
		c.metrics.IncDuplicateDropped()
		if before.TotalBidders != after.TotalBidders {
			c.publishVehicle(after)
		}
		return
	}
	c.publishVehicle(after)
	if before.BidStatus() != enums.BidStatusOutbid && after.BidStatus() == enums.BidStatusOutbid {
		c.record(ctx, enums.EventBidOutbid, enums.AggregateBid, after.YourBid.ID, after)
	}
	c.recomputeGroup(ctx, entry)
}

func (c *Coordinator) applyStatusChange(ctx context.Context, entry *groupEntry, msg InboundMessage) {
	machine, ok := entry.machines[msg.VehicleID]
	if !ok || msg.Data.Status == nil {
		return
	}
	status, err := enums.ParseBidStatus(*msg.Data.Status)
	if err != nil {
		c.logg.Debug(ctx, "dropping status change with unknown status")
		return
	}
	after, changed := machine.ApplyStatusChange(status, c.now())
	if !changed {
		c.metrics.IncDuplicateDropped()
		return
	}
	c.publishVehicle(after)
	c.recomputeGroup(ctx, entry)
}

func (c *Coordinator) applyAuctionEnd(ctx context.Context, entry *groupEntry, msg InboundMessage) {
	targets := entry.order
	if msg.VehicleID != "" {
		targets = []string{msg.VehicleID}
	}
	var changed bool
	for _, vehicleID := range targets {
		machine, ok := entry.machines[vehicleID]
		if !ok {
			continue
		}
		after, applied := machine.ApplyAuctionEnd(c.now())
		if !applied {
			continue
		}
		changed = true
		c.publishVehicle(after)
		c.record(ctx, enums.EventAuctionClosed, enums.AggregateVehicle, vehicleID, after)
	}
	if changed {
		c.recomputeGroup(ctx, entry)
	}
}

// recomputeGroup re-derives the group standing and publishes when it moved.
func (c *Coordinator) recomputeGroup(ctx context.Context, entry *groupEntry) {
	vehicles := make([]VehicleState, 0, len(entry.order))
	for _, id := range entry.order {
		vehicles = append(vehicles, entry.machines[id].Snapshot())
	}
	previous := entry.state
	entry.state = EvaluateGroup(entry.info, vehicles, c.now())
	if previous.Equal(entry.state) {
		return
	}
	state := entry.state
	c.publish(Event{Kind: EventGroupChanged, Group: &state})
	if previous.Status != state.Status && previous.Status != "" {
		c.record(ctx, enums.EventGroupStatusMoved, enums.AggregateGroup, state.GroupID, state)
	}
}

func (c *Coordinator) lookupVehicle(groupID, vehicleID string) (*groupEntry, *Machine, error) {
	entry, ok := c.groups[groupID]
	if !ok {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown auction group")
	}
	machine, ok := entry.machines[vehicleID]
	if !ok {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown vehicle")
	}
	return entry, machine, nil
}

func (c *Coordinator) publishVehicle(state VehicleState) {
	snapshot := state.Clone()
	c.publish(Event{Kind: EventVehicleChanged, Vehicle: &snapshot})
}

func (c *Coordinator) publish(event Event) {
	for _, sub := range c.subscribers {
		sub.In <- event
	}
}

func (c *Coordinator) record(ctx context.Context, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID string, data any) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(ctx, eventType, aggregateType, aggregateID, data)
}

func (c *Coordinator) closeSubscribers() {
	for id, sub := range c.subscribers {
		delete(c.subscribers, id)
		close(sub.In)
	}
}
