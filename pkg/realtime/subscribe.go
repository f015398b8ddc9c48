package realtime

import (
	"github.com/kadirpekel/orchestrator/pkg/orcherr"
)

// Subscribe registers sink to receive events matching filter (nil matches
// everything). Events are delivered in emit order per-session off a
// dedicated per-subscriber goroutine; a slow subscriber's bounded channel
// (cap 256) drops the oldest entries on overflow and emits a lagged marker
// (spec §4.7 fan-out policy), and never blocks the emitting caller.
func (t *Tracker) Subscribe(subscriberID string, filter func(Event) bool, sink Sink) error {
	if subscriberID == "" {
		return orcherr.New(orcherr.InvalidInput, "subscriberID cannot be empty")
	}
	sub := &subscription{
		id:        subscriberID,
		filter:    filter,
		sink:      sink,
		ch:        make(chan Event, subscriberQueueCap),
		lastAckOK: t.clock.Now(),
		closed:    make(chan struct{}),
	}

	t.mu.Lock()
	t.subscriptions[subscriberID] = sub
	t.mu.Unlock()

	go t.dispatch(sub)
	return nil
}

// Unsubscribe removes subscriberID from the broadcast list.
func (t *Tracker) Unsubscribe(subscriberID string) {
	t.mu.Lock()
	sub, ok := t.subscriptions[subscriberID]
	delete(t.subscriptions, subscriberID)
	t.mu.Unlock()
	if ok {
		sub.closeOnce.Do(func() { close(sub.closed) })
	}
}

// broadcast hands evt to every subscriber whose filter accepts it. This only
// ever enqueues onto each subscriber's own channel (see enqueue) and never
// calls into a Sink directly, so one slow or stuck subscriber can't stall
// delivery to any other subscriber, let alone the tracker's own callers
// (spec §4.7 "slow subscribers cannot stall the tracker", §5 "backpressure
// is drop-oldest, never block emitters", property P8).
func (t *Tracker) broadcast(evt Event) {
	t.mu.RLock()
	subs := make([]*subscription, 0, len(t.subscriptions))
	for _, s := range t.subscriptions {
		subs = append(subs, s)
	}
	t.mu.RUnlock()

	for _, sub := range subs {
		t.enqueue(sub, evt)
	}
}

// enqueue hands evt to sub's buffered channel. It never blocks for longer
// than it takes to swap items already sitting in the channel: a full
// channel means the dispatch goroutine is behind, never broadcast itself,
// so the oldest queued events are dropped to make room for a lagged marker
// (queued ahead of evt on a best-effort basis) and for evt: up to two
// queued events are lost per overflow.
func (t *Tracker) enqueue(sub *subscription, evt Event) {
	if sub.filter != nil && !sub.filter(evt) {
		return
	}

	sub.enqueueMu.Lock()
	defer sub.enqueueMu.Unlock()

	select {
	case sub.ch <- evt:
		return
	default:
	}

	sub.dropOldest()
	select {
	case sub.ch <- Event{Type: EventLagged, SessionID: evt.SessionID, Timestamp: t.clock.Now()}:
	default:
	}
	sub.dropOldest()
	sub.ch <- evt
}

func (sub *subscription) dropOldest() {
	select {
	case <-sub.ch:
	default:
	}
}

// dispatch is the sole reader of sub.ch and the only goroutine that ever
// calls sub.sink.Send; it runs for the lifetime of the subscription.
func (t *Tracker) dispatch(sub *subscription) {
	for {
		select {
		case evt := <-sub.ch:
			if err := sub.sink.Send(evt); err == nil {
				sub.mu.Lock()
				sub.lastAckOK = t.clock.Now()
				sub.mu.Unlock()
			}
		case <-sub.closed:
			return
		}
	}
}

// Heartbeat sends a heartbeat event to every subscriber and closes any
// subscription that hasn't acknowledged (sink.Send succeeded) within the
// 90s ack timeout. Each call sends one round of heartbeats; nothing in this
// module calls it on a timer (heartbeatInterval is unused), so heartbeats
// and ack-timeout eviction happen only when a caller invokes it.
func (t *Tracker) Heartbeat() {
	now := t.clock.Now()

	t.mu.Lock()
	var expired []*subscription
	for id, sub := range t.subscriptions {
		sub.mu.Lock()
		if now.Sub(sub.lastAckOK) > ackTimeout {
			expired = append(expired, sub)
			sub.mu.Unlock()
			delete(t.subscriptions, id)
			continue
		}
		if err := sub.sink.Send(Event{Type: EventHeartbeat, Timestamp: now}); err == nil {
			sub.lastAckOK = now
		}
		sub.mu.Unlock()
	}
	t.mu.Unlock()

	for _, sub := range expired {
		sub.closeOnce.Do(func() { close(sub.closed) })
	}
}
