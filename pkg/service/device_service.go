package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mash-protocol/mash-sensor/pkg/clusters"
	"github.com/mash-protocol/mash-sensor/pkg/discovery"
	"github.com/mash-protocol/mash-sensor/pkg/interaction"
	"github.com/mash-protocol/mash-sensor/pkg/log"
	"github.com/mash-protocol/mash-sensor/pkg/model"
	"github.com/mash-protocol/mash-sensor/pkg/mqtt"
	"github.com/mash-protocol/mash-sensor/pkg/subscription"
	"github.com/mash-protocol/mash-sensor/pkg/transport"
	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

// DeviceService serves the attribute model of a device to controllers.
type DeviceService struct {
	mu sync.RWMutex

	config DeviceConfig
	device *clusters.Device
	logger *slog.Logger

	state ServiceState

	server      *transport.Server
	interaction *interaction.Server
	subs        *subscription.Manager
	reporter    *subscription.Reporter
	sessions    *sessionTable

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDeviceService creates a service for device.
func NewDeviceService(device *clusters.Device, config DeviceConfig) (*DeviceService, error) {
	if device == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("device is required"))
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Subscriptions.MaxSubscriptions == 0 {
		config.Subscriptions = subscription.DefaultConfig()
	}

	s := &DeviceService{
		config:   config,
		device:   device,
		logger:   config.Logger,
		state:    StateIdle,
		subs:     subscription.NewManagerWithConfig(config.Subscriptions),
		sessions: newSessionTable(),
	}

	s.interaction = interaction.NewServer(device.Node, s.subs, interaction.Config{
		Logger:   config.Logger,
		OnChange: s.NotifyChanged,
	})
	s.reporter = subscription.NewReporter(s.subs, device.Node.Notifiers(), s.interaction, s, subscription.ReporterConfig{
		Tick:   config.ReportTick,
		Logger: config.Logger,
	})
	s.server = transport.NewServer(transport.ServerConfig{
		Address:        config.ListenAddress,
		MaxMessageSize: config.MaxMessageSize,
		IdleTimeout:    config.IdleTimeout,
		Logger:         config.ProtocolLogger,
		OnConnect:      s.handleConnect,
		OnDisconnect:   s.handleDisconnect,
		OnMessage:      s.handleMessage,
		OnError:        s.handleError,
	})

	return s, nil
}

// State returns the current service state.
func (s *DeviceService) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Device returns the served device.
func (s *DeviceService) Device() *clusters.Device {
	return s.device
}

// Subscriptions returns the subscription manager.
func (s *DeviceService) Subscriptions() *subscription.Manager {
	return s.subs
}

// Addr returns the listen address, or nil before Start.
func (s *DeviceService) Addr() net.Addr {
	return s.server.Addr()
}

// SessionCount returns the number of connected controllers.
func (s *DeviceService) SessionCount() int {
	return s.sessions.Len()
}

// NotifyChanged wakes the reporter. It never blocks.
func (s *DeviceService) NotifyChanged() {
	s.reporter.NotifyChanged()
}

// Run starts the service and serves until ctx is cancelled. Cancellation is
// a clean shutdown and returns nil.
func (s *DeviceService) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	if err := s.Stop(); err != nil && !errors.Is(err, ErrNotStarted) {
		return err
	}
	return nil
}

// Start listens for controllers and starts the reporter.
func (s *DeviceService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateStopped {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateStarting
	s.mu.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.server.Start(s.ctx); err != nil {
		s.cancel()
		s.setState(StateIdle)
		return fmt.Errorf("start transport: %w", err)
	}

	if m := s.config.Mirror; m != nil {
		if err := m.Attach(s.ctx, s.subs, s.interaction); err != nil {
			s.warnLog("mqtt mirror disabled", "error", err)
		} else {
			m.PublishAvailability(mqtt.Online)
		}
	}

	if adv := s.config.Advertiser; adv != nil {
		if err := adv.Advertise(s.ctx, s.NodeInfo()); err != nil {
			s.warnLog("mDNS advertising failed", "error", err)
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.reporter.Run(s.ctx)
	}()

	s.setState(StateRunning)
	s.logProtocol(log.StateEvent("", log.StateEntityActivity, StateStarting.String(), StateRunning.String(), s.Addr().String()))
	s.debugLog("service started", "addr", s.Addr().String())
	return nil
}

// Stop closes every connection and withdraws advertisements.
func (s *DeviceService) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateStopping
	s.mu.Unlock()

	s.cancel()
	err := s.server.Stop()
	s.wg.Wait()
	s.sessions.CloseAll()

	if adv := s.config.Advertiser; adv != nil {
		if stopErr := adv.Stop(); stopErr != nil {
			s.warnLog("mDNS stop failed", "error", stopErr)
		}
	}
	if m := s.config.Mirror; m != nil {
		m.Detach(s.subs)
		m.PublishAvailability(mqtt.Offline)
	}

	s.setState(StateStopped)
	s.logProtocol(log.StateEvent("", log.StateEntityActivity, StateStopping.String(), StateStopped.String(), ""))
	s.debugLog("service stopped")

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("stop transport: %w", err)
	}
	return nil
}

// NodeInfo returns what the node advertises over mDNS.
func (s *DeviceService) NodeInfo() *discovery.NodeInfo {
	cfg := s.device.BasicInfo.Config()
	info := &discovery.NodeInfo{
		VendorID:        cfg.VendorID,
		ProductID:       cfg.ProductID,
		SerialNumber:    cfg.SerialNumber,
		DeviceName:      cfg.DeviceName,
		SoftwareVersion: cfg.SoftwareVersionString,
		EndpointCount:   uint8(len(s.device.Node.EndpointIDs())),
	}
	for _, ep := range s.device.Node.Endpoints() {
		for _, dt := range ep.DeviceTypes() {
			if dt.ID != model.DeviceTypeRootNode {
				info.DeviceTypes = append(info.DeviceTypes, uint16(dt.ID))
			}
		}
	}
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		info.Port = uint16(tcp.Port)
	}
	return info
}

// SendNotification delivers a subscription report. Reports of the MQTT
// mirror session go to the mirror, all others to the controller connection.
func (s *DeviceService) SendNotification(sessionID string, n *wire.Notification) error {
	if m := s.config.Mirror; m != nil && sessionID == mqtt.SessionID {
		return m.SendNotification(sessionID, n)
	}

	conn, ok := s.sessions.Get(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionClosed, sessionID)
	}
	data, err := wire.EncodeNotification(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := conn.Send(data); err != nil {
		return err
	}
	s.logProtocol(log.NotificationEvent(sessionID, n))
	return nil
}

func (s *DeviceService) handleConnect(conn *transport.ServerConn) {
	s.sessions.Add(conn)
	s.debugLog("controller connected", "session", conn.SessionID(), "remote", conn.RemoteAddr().String())
}

func (s *DeviceService) handleDisconnect(conn *transport.ServerConn) {
	id := conn.SessionID()
	s.sessions.Remove(id)
	if n := s.subs.RemoveSession(id); n > 0 {
		s.logProtocol(log.StateEvent(id, log.StateEntitySubscription, "ACTIVE", "REMOVED", fmt.Sprintf("%d dropped on disconnect", n)))
	}
	s.debugLog("controller disconnected", "session", id)
}

// handleMessage runs on the read goroutine of conn, so requests of one
// controller are answered in order.
func (s *DeviceService) handleMessage(conn *transport.ServerConn, data []byte) {
	start := time.Now()
	id := conn.SessionID()

	req, err := wire.DecodeRequest(data)
	if err != nil {
		s.debugLog("dropping undecodable request", "session", id, "error", err)
		s.logProtocol(log.ErrorEvent(id, log.LayerWire, err, "decode request"))
		return
	}
	s.logProtocol(log.RequestEvent(id, req))

	resp := s.interaction.HandleRequest(s.ctx, id, req)

	out, err := wire.EncodeResponse(resp)
	if err != nil {
		s.logProtocol(log.ErrorEvent(id, log.LayerWire, err, "encode response"))
		return
	}
	if err := conn.Send(out); err != nil {
		s.debugLog("response send failed", "session", id, "error", err)
		return
	}
	s.logProtocol(log.ResponseEvent(id, resp, time.Since(start)))
}

func (s *DeviceService) handleError(conn *transport.ServerConn, err error) {
	id := ""
	if conn != nil {
		id = conn.SessionID()
	}
	s.logProtocol(log.ErrorEvent(id, log.LayerTransport, err, "connection"))
	s.debugLog("transport error", "session", id, "error", err)
}

func (s *DeviceService) setState(state ServiceState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *DeviceService) logProtocol(e log.Event) {
	if s.config.ProtocolLogger != nil {
		s.config.ProtocolLogger.Log(e)
	}
}

func (s *DeviceService) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *DeviceService) warnLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

var _ subscription.Sender = (*DeviceService)(nil)
