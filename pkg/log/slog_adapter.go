package log

import (
	"context"
	"log/slog"
)

// SlogAdapter prints events through an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session", event.SessionID))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Message != nil:
		m := event.Message
		attrs = append(attrs,
			slog.Uint64("msg_id", uint64(m.MessageID)),
			slog.String("msg_type", m.Type.String()),
		)
		if m.Operation != nil {
			attrs = append(attrs, slog.String("operation", m.Operation.String()))
		}
		if m.EndpointID != nil {
			attrs = append(attrs, slog.Uint64("endpoint", uint64(*m.EndpointID)))
		}
		if m.ClusterID != nil {
			attrs = append(attrs, slog.Uint64("cluster", uint64(*m.ClusterID)))
		}
		if m.Status != nil {
			attrs = append(attrs, slog.String("status", m.Status.String()))
		}
		if m.SubscriptionID != nil {
			attrs = append(attrs, slog.Uint64("subscription", uint64(*m.SubscriptionID)))
		}
		if m.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *m.ProcessingTime))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Sample != nil:
		s := event.Sample
		if s.Temperature != nil {
			attrs = append(attrs, slog.Float64("temperature", float64(*s.Temperature)))
		}
		if s.Humidity != nil {
			attrs = append(attrs, slog.Float64("humidity", float64(*s.Humidity)))
		}
		attrs = append(attrs, slog.Bool("on_off", s.OnOff))
		if s.ButtonEdge {
			attrs = append(attrs, slog.Bool("button", true))
		}
		if s.BusError != "" {
			attrs = append(attrs, slog.String("bus_error", s.BusError))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
