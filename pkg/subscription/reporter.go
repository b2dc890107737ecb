package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/mash-protocol/mash-sensor/pkg/model"
	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

// DefaultTick is how often the reporter looks for changes without a wake-up.
const DefaultTick = 250 * time.Millisecond

// AttributeSource reads the current values of a cluster on behalf of a
// session. Implemented by the interaction server.
type AttributeSource interface {
	ReadAttributes(ctx context.Context, sessionID string, endpointID uint16, clusterID uint32, attrIDs []uint16) (map[uint16]wire.AttributeData, error)
}

// Sender delivers a report to the session that owns the subscription.
type Sender interface {
	SendNotification(sessionID string, n *wire.Notification) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(sessionID string, n *wire.Notification) error

// SendNotification calls f.
func (f SenderFunc) SendNotification(sessionID string, n *wire.Notification) error {
	return f(sessionID, n)
}

// ReporterConfig configures a Reporter.
type ReporterConfig struct {
	// Tick is the polling period (default 250ms).
	Tick time.Duration

	// Logger for debug output (optional).
	Logger *slog.Logger
}

// Reporter turns cluster change flags into subscription reports.
type Reporter struct {
	manager   *Manager
	notifiers []model.NotifierEntry
	source    AttributeSource
	sender    Sender
	tick      time.Duration
	logger    *slog.Logger
	wake      chan struct{}
}

// NewReporter creates a reporter draining notifiers into manager.
func NewReporter(manager *Manager, notifiers []model.NotifierEntry, source AttributeSource, sender Sender, config ReporterConfig) *Reporter {
	if config.Tick <= 0 {
		config.Tick = DefaultTick
	}
	return &Reporter{
		manager:   manager,
		notifiers: notifiers,
		source:    source,
		sender:    sender,
		tick:      config.Tick,
		logger:    config.Logger,
		wake:      make(chan struct{}, 1),
	}
}

// NotifyChanged wakes the reporter before its next tick. It never blocks;
// wake-ups that arrive while one is pending collapse into it.
func (r *Reporter) NotifyChanged() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run processes changes until ctx is cancelled. It returns nil on
// cancellation.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-r.wake:
		}
		r.Poll(ctx, time.Now())
	}
}

// Poll drains every change notifier once, then sends the reports and
// heartbeats that are due at now.
func (r *Reporter) Poll(ctx context.Context, now time.Time) {
	for _, n := range r.notifiers {
		if n.Notifier.ConsumeChange() {
			opened := r.manager.MarkChanged(n.EndpointID, n.ClusterID, now)
			r.debugLog("cluster changed", "endpoint", n.EndpointID, "cluster", n.ClusterID, "windows", opened)
		}
	}

	suppress := r.manager.Config().SuppressBounceBack
	for _, sub := range r.manager.All() {
		switch {
		case sub.ReportDue(now):
			values, err := r.source.ReadAttributes(ctx, sub.SessionID, sub.EndpointID, sub.ClusterID, sub.AttributeIDs)
			if err != nil {
				r.debugLog("report read failed", "subscription", sub.ID, "error", err)
				continue
			}
			if attrs := sub.TakeReport(values, suppress, now); attrs != nil {
				r.send(sub, attrs)
			}
		case !sub.HasPending() && sub.NeedsHeartbeat(now):
			r.heartbeat(ctx, sub, now)
		}
	}
}

func (r *Reporter) heartbeat(ctx context.Context, sub *Subscription, now time.Time) {
	var values map[uint16]wire.AttributeData
	if r.manager.Config().HeartbeatMode == HeartbeatFull {
		var err error
		values, err = r.source.ReadAttributes(ctx, sub.SessionID, sub.EndpointID, sub.ClusterID, sub.AttributeIDs)
		if err != nil {
			r.debugLog("heartbeat read failed", "subscription", sub.ID, "error", err)
			values = nil
		}
	}
	sub.RecordHeartbeat(values, now)
	r.send(sub, values)
}

func (r *Reporter) send(sub *Subscription, attrs map[uint16]wire.AttributeData) {
	n := &wire.Notification{
		SubscriptionID: sub.ID,
		EndpointID:     sub.EndpointID,
		ClusterID:      sub.ClusterID,
		Attributes:     attrs,
	}
	if err := r.sender.SendNotification(sub.SessionID, n); err != nil {
		r.debugLog("report send failed", "subscription", sub.ID, "session", sub.SessionID, "error", err)
	}
}

func (r *Reporter) debugLog(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
