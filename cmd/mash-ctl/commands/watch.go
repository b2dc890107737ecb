package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mash-protocol/mash-sensor/pkg/interaction"
)

// WatchOptions configures RunWatch.
type WatchOptions struct {
	Names       []string
	MinInterval time.Duration
	MaxInterval time.Duration
}

// RunWatch subscribes to the named values (all when empty), prints the
// priming values and then every report until ctx is done.
func RunWatch(ctx context.Context, s *Session, opts WatchOptions, w io.Writer) error {
	names := opts.Names
	if len(names) == 0 {
		for _, p := range Points {
			names = append(names, p.Name)
		}
	}

	var subIDs []uint32
	defer func() {
		unsubCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		for _, id := range subIDs {
			_ = s.client.Unsubscribe(unsubCtx, id)
		}
	}()

	for _, name := range names {
		p, err := FindPoint(name)
		if err != nil {
			return err
		}
		id, priming, err := s.client.Subscribe(ctx, p.EndpointID, p.ClusterID, &interaction.SubscribeOptions{
			AttributeIDs: []uint16{p.AttrID},
			MinInterval:  opts.MinInterval,
			MaxInterval:  opts.MaxInterval,
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", p.Name, err)
		}
		subIDs = append(subIDs, id)
		if data, ok := priming[p.AttrID]; ok {
			text, err := p.Format(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s %-12s %s (subscription %d)\n", timestamp(), p.Name, text, id)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-s.Notifications():
			p, ok := pointAt(n.EndpointID, n.ClusterID)
			if !ok {
				continue
			}
			data, ok := n.Attributes[p.AttrID]
			if !ok {
				// Empty heartbeat.
				continue
			}
			text, err := p.Format(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s %-12s %s (dataver %d)\n", timestamp(), p.Name, text, data.DataVersion)
		}
	}
}

func timestamp() string {
	return time.Now().Format("15:04:05.000")
}
