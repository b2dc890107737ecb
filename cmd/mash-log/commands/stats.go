package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/mash-protocol/mash-sensor/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Sessions          map[string]*SessionStats
	Errors            int

	// Device samples.
	Samples      int
	ButtonEdges  int
	BusErrors    int
	Temperature  Range
	Humidity     Range
	LastOnOff    bool
	sampledOnOff bool

	TimeRange struct {
		Start time.Time
		End   time.Time
	}
}

// Range tracks the spread of a reading.
type Range struct {
	Count    int
	Min, Max float32
}

func (r *Range) add(v float32) {
	if r.Count == 0 || v < r.Min {
		r.Min = v
	}
	if r.Count == 0 || v > r.Max {
		r.Max = v
	}
	r.Count++
}

// SessionStats holds statistics for a single controller session.
type SessionStats struct {
	FirstSeen     time.Time
	LastSeen      time.Time
	Events        int
	Requests      int
	Notifications int
}

// CollectStats reads path and aggregates every event.
func CollectStats(path string) (*Stats, error) {
	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Sessions:          make(map[string]*SessionStats),
	}
	err := forEach(path, log.Filter{}, func(event log.Event) error {
		stats.add(event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.Error != nil {
		s.Errors++
	}

	if sample := event.Sample; sample != nil {
		s.Samples++
		if sample.ButtonEdge {
			s.ButtonEdges++
		}
		if sample.BusError != "" {
			s.BusErrors++
		}
		if sample.Temperature != nil {
			s.Temperature.add(*sample.Temperature)
		}
		if sample.Humidity != nil {
			s.Humidity.add(*sample.Humidity)
		}
		s.LastOnOff = sample.OnOff
		s.sampledOnOff = true
	}

	if event.SessionID == "" {
		return
	}
	sess, ok := s.Sessions[event.SessionID]
	if !ok {
		sess = &SessionStats{FirstSeen: event.Timestamp}
		s.Sessions[event.SessionID] = sess
	}
	sess.Events++
	if event.Timestamp.After(sess.LastSeen) {
		sess.LastSeen = event.Timestamp
	}
	if msg := event.Message; msg != nil {
		switch {
		case msg.Operation != nil:
			sess.Requests++
		case msg.SubscriptionID != nil:
			sess.Notifications++
		}
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintf(w, "Total events: %d\n", stats.TotalEvents)
	if stats.TotalEvents == 0 {
		return
	}
	fmt.Fprintf(w, "Time range:   %s - %s (%s)\n",
		stats.TimeRange.Start.UTC().Format(time.RFC3339),
		stats.TimeRange.End.UTC().Format(time.RFC3339),
		stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
	fmt.Fprintf(w, "Errors:       %d\n", stats.Errors)

	fmt.Fprintln(w, "\nBy layer:")
	for _, l := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerService, log.LayerDevice} {
		if n := stats.EventsByLayer[l]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", l, n)
		}
	}

	fmt.Fprintln(w, "\nBy category:")
	for _, c := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategorySample, log.CategoryError} {
		if n := stats.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", c, n)
		}
	}

	if stats.Samples > 0 {
		fmt.Fprintln(w, "\nDevice:")
		fmt.Fprintf(w, "  Samples:      %d\n", stats.Samples)
		fmt.Fprintf(w, "  Button edges: %d\n", stats.ButtonEdges)
		fmt.Fprintf(w, "  Bus errors:   %d\n", stats.BusErrors)
		if stats.Temperature.Count > 0 {
			fmt.Fprintf(w, "  Temperature:  %.2f .. %.2f °C\n", stats.Temperature.Min, stats.Temperature.Max)
		}
		if stats.Humidity.Count > 0 {
			fmt.Fprintf(w, "  Humidity:     %.2f .. %.2f %%RH\n", stats.Humidity.Min, stats.Humidity.Max)
		}
		if stats.sampledOnOff {
			fmt.Fprintf(w, "  Light:        %t\n", stats.LastOnOff)
		}
	}

	if len(stats.Sessions) == 0 {
		return
	}
	ids := make([]string, 0, len(stats.Sessions))
	for id := range stats.Sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return stats.Sessions[ids[i]].FirstSeen.Before(stats.Sessions[ids[j]].FirstSeen)
	})

	fmt.Fprintf(w, "\nSessions (%d):\n", len(ids))
	for _, id := range ids {
		sess := stats.Sessions[id]
		fmt.Fprintf(w, "  %s  events=%d requests=%d notifications=%d duration=%s\n",
			shortenSessionID(id), sess.Events, sess.Requests, sess.Notifications,
			sess.LastSeen.Sub(sess.FirstSeen).Round(time.Millisecond))
	}
}
