// Package commands implements the mash-ctl CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/mash-protocol/mash-sensor/pkg/discovery"
	"github.com/mash-protocol/mash-sensor/pkg/interaction"
	"github.com/mash-protocol/mash-sensor/pkg/transport"
	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 5 * time.Second

// ErrNoAddress is returned when a browsed node carries no usable address.
var ErrNoAddress = errors.New("node has no address")

// Session is one controller connection to a node.
type Session struct {
	conn   *transport.ClientConn
	client *interaction.Client

	notify chan *wire.Notification
	cancel context.CancelFunc
	done   chan struct{}
}

// Dial connects to the node at addr.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Session, error) {
	conn, err := transport.NewClient(transport.ClientConfig{}).Connect(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	s := &Session{
		conn:   conn,
		client: interaction.NewClient(conn),
		notify: make(chan *wire.Notification, 64),
		done:   make(chan struct{}),
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s.client.SetTimeout(timeout)
	s.client.SetNotificationHandler(func(n *wire.Notification) {
		select {
		case s.notify <- n:
		default:
		}
	})

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.done)
		_ = s.client.Run(runCtx, conn)
	}()
	return s, nil
}

// Close ends the session.
func (s *Session) Close() error {
	s.cancel()
	err := s.conn.Close()
	<-s.done
	return err
}

// Notifications delivers subscription reports. Reports arriving while the
// buffer is full are dropped.
func (s *Session) Notifications() <-chan *wire.Notification {
	return s.notify
}

// Resolve finds the node advertising serial and returns its address.
func Resolve(ctx context.Context, browser discovery.Browser, serial string) (string, error) {
	node, err := browser.FindBySerial(ctx, serial)
	if err != nil {
		return "", err
	}
	return NodeAddress(node)
}

// NodeAddress picks the dial address of a browsed node. IPv4 addresses are
// preferred over IPv6 and the host name.
func NodeAddress(node *discovery.NodeService) (string, error) {
	host := ""
	for _, a := range node.Addresses {
		ip := net.ParseIP(a)
		if ip == nil {
			continue
		}
		if ip.To4() != nil {
			host = a
			break
		}
		if host == "" {
			host = a
		}
	}
	if host == "" {
		host = node.Host
	}
	if host == "" || node.Port == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoAddress, node.InstanceName)
	}
	return net.JoinHostPort(host, strconv.Itoa(int(node.Port))), nil
}
