package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mash-protocol/mash-sensor/pkg/model"
	"github.com/mash-protocol/mash-sensor/pkg/subscription"
	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

// Subscription interval defaults applied when a request leaves them out.
const (
	DefaultMinInterval = 1000 * time.Millisecond
	DefaultMaxInterval = 60000 * time.Millisecond
)

// Config configures a Server.
type Config struct {
	// Logger for debug output (optional).
	Logger *slog.Logger

	// OnChange is called after a command changed state, so reports go out
	// without waiting for the next reporter tick (optional).
	OnChange func()
}

// Server dispatches requests to the cluster instances of a node.
type Server struct {
	node   *model.Node
	subs   *subscription.Manager
	config Config
}

// NewServer creates a server over node. subs may be nil, in which case
// Subscribe requests fail with Unsupported.
func NewServer(node *model.Node, subs *subscription.Manager, config Config) *Server {
	return &Server{node: node, subs: subs, config: config}
}

// Node returns the served node.
func (s *Server) Node() *model.Node {
	return s.node
}

// HandleRequest processes one request on behalf of sessionID.
func (s *Server) HandleRequest(ctx context.Context, sessionID string, req *wire.Request) *wire.Response {
	if err := req.Validate(); err != nil {
		return errorResponse(req.MessageID, wire.StatusInvalidParameter, err.Error())
	}

	ex := model.NewExchange(ctx, sessionID)
	switch req.Operation {
	case wire.OpRead:
		return s.handleRead(ex, req)
	case wire.OpWrite:
		return s.handleWrite(req)
	case wire.OpSubscribe:
		if req.IsUnsubscribe() {
			return s.handleUnsubscribe(ex, req)
		}
		return s.handleSubscribe(ex, req)
	case wire.OpInvoke:
		return s.handleInvoke(ex, req)
	default:
		return errorResponse(req.MessageID, wire.StatusUnsupported, "unknown operation")
	}
}

func (s *Server) handleRead(ex *model.Exchange, req *wire.Request) *wire.Response {
	var p wire.ReadPayload
	if err := req.DecodePayload(&p); err != nil {
		return errorResponse(req.MessageID, wire.StatusInvalidParameter, "invalid read payload")
	}

	h, err := s.node.Handler(req.EndpointID, req.ClusterID)
	if err != nil {
		return errorFromErr(req.MessageID, err)
	}

	attrs, statuses := s.readCluster(ex, h, req.EndpointID, p.AttributeIDs, p.DataVersion)
	if len(p.AttributeIDs) == 1 {
		if st, failed := statuses[p.AttributeIDs[0]]; failed {
			return errorResponse(req.MessageID, st, fmt.Sprintf("attribute 0x%04X: %s", p.AttributeIDs[0], st))
		}
	}

	return successResponse(req.MessageID, &wire.ReadResponsePayload{
		Attributes: attrs,
		Statuses:   statuses,
	})
}

// readCluster reads attrIDs (all declared attributes when empty) from h.
// Attributes suppressed by the data version filter appear in neither map.
func (s *Server) readCluster(ex *model.Exchange, h model.Handler, endpointID uint16, attrIDs []uint16, filter *uint32) (map[uint16]wire.AttributeData, map[uint16]wire.Status) {
	if len(attrIDs) == 0 {
		attrIDs = h.Cluster().AttributeIDs()
	}

	attrs := make(map[uint16]wire.AttributeData, len(attrIDs))
	var statuses map[uint16]wire.Status
	for _, id := range attrIDs {
		details := &model.AttrDetails{EndpointID: endpointID, ClusterID: h.Cluster().ID, AttrID: id}
		enc := model.NewAttrEncoder(filter)

		err := h.Read(ex, details, enc)
		if err == nil {
			if data, ok := enc.Data(); ok {
				attrs[id] = data
				continue
			}
			if enc.Skipped() {
				continue
			}
			err = fmt.Errorf("no value encoded for %s", details)
		}

		s.debugLog("attribute read failed", "session", ex.SessionID(), "attr", details.String(), "error", err)
		if statuses == nil {
			statuses = make(map[uint16]wire.Status)
		}
		statuses[id] = statusFor(err)
	}
	return attrs, statuses
}

// ReadAttributes reads the current values of a cluster for the reporter.
// Failing attributes are left out.
func (s *Server) ReadAttributes(ctx context.Context, sessionID string, endpointID uint16, clusterID uint32, attrIDs []uint16) (map[uint16]wire.AttributeData, error) {
	h, err := s.node.Handler(endpointID, clusterID)
	if err != nil {
		return nil, err
	}
	attrs, _ := s.readCluster(model.NewExchange(ctx, sessionID), h, endpointID, attrIDs, nil)
	return attrs, nil
}

func (s *Server) handleWrite(req *wire.Request) *wire.Response {
	if _, err := s.node.Handler(req.EndpointID, req.ClusterID); err != nil {
		return errorFromErr(req.MessageID, err)
	}
	return errorResponse(req.MessageID, wire.StatusReadOnly, "attributes are read-only")
}

func (s *Server) handleSubscribe(ex *model.Exchange, req *wire.Request) *wire.Response {
	if s.subs == nil {
		return errorResponse(req.MessageID, wire.StatusUnsupported, "subscriptions not available")
	}

	var p wire.SubscribePayload
	if err := req.DecodePayload(&p); err != nil {
		return errorResponse(req.MessageID, wire.StatusInvalidParameter, "invalid subscribe payload")
	}

	h, err := s.node.Handler(req.EndpointID, req.ClusterID)
	if err != nil {
		return errorFromErr(req.MessageID, err)
	}
	for _, id := range p.AttributeIDs {
		attr, ok := h.Cluster().Attribute(id)
		if !ok {
			return errorResponse(req.MessageID, wire.StatusUnsupportedAttribute, fmt.Sprintf("attribute 0x%04X not found", id))
		}
		if !attr.Access.CanSubscribe() {
			return errorResponse(req.MessageID, wire.StatusUnsupported, fmt.Sprintf("attribute 0x%04X is not subscribable", id))
		}
	}

	minInterval := time.Duration(p.MinInterval) * time.Millisecond
	if p.MinInterval == 0 {
		minInterval = DefaultMinInterval
	}
	maxInterval := time.Duration(p.MaxInterval) * time.Millisecond
	if p.MaxInterval == 0 {
		maxInterval = DefaultMaxInterval
	}

	sub, err := s.subs.Subscribe(ex.SessionID(), req.EndpointID, req.ClusterID, p.AttributeIDs, minInterval, maxInterval)
	if err != nil {
		return errorFromErr(req.MessageID, err)
	}

	priming, _ := s.readCluster(ex, h, req.EndpointID, p.AttributeIDs, nil)
	sub.SetPrimingValues(priming, time.Now())

	s.debugLog("subscribed", "session", ex.SessionID(), "subscription", sub.ID,
		"endpoint", req.EndpointID, "cluster", req.ClusterID,
		"min", minInterval, "max", maxInterval)

	return successResponse(req.MessageID, &wire.SubscribeResponsePayload{
		SubscriptionID: sub.ID,
		Priming:        priming,
	})
}

func (s *Server) handleUnsubscribe(ex *model.Exchange, req *wire.Request) *wire.Response {
	if s.subs == nil {
		return errorResponse(req.MessageID, wire.StatusUnsupported, "subscriptions not available")
	}

	var p wire.UnsubscribePayload
	if len(req.Payload) == 0 || req.DecodePayload(&p) != nil {
		return errorResponse(req.MessageID, wire.StatusInvalidParameter, "invalid unsubscribe payload")
	}
	if err := s.subs.Unsubscribe(ex.SessionID(), p.SubscriptionID); err != nil {
		return errorFromErr(req.MessageID, err)
	}
	s.debugLog("unsubscribed", "session", ex.SessionID(), "subscription", p.SubscriptionID)
	return successResponse(req.MessageID, nil)
}

func (s *Server) handleInvoke(ex *model.Exchange, req *wire.Request) *wire.Response {
	var p wire.InvokePayload
	if len(req.Payload) == 0 || req.DecodePayload(&p) != nil {
		return errorResponse(req.MessageID, wire.StatusInvalidParameter, "invalid invoke payload")
	}

	cmd := &model.CmdDetails{EndpointID: req.EndpointID, ClusterID: req.ClusterID, CommandID: p.CommandID}
	result, err := s.node.Invoke(ex, cmd, p.Fields)
	if err != nil {
		s.debugLog("invoke failed", "session", ex.SessionID(), "cmd", cmd.String(), "error", err)
		return errorFromErr(req.MessageID, err)
	}

	if s.config.OnChange != nil {
		s.config.OnChange()
	}
	return successResponse(req.MessageID, result)
}

func (s *Server) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

// statusFor maps model and subscription errors to a wire status.
func statusFor(err error) wire.Status {
	switch {
	case errors.Is(err, model.ErrUnsupportedEndpoint):
		return wire.StatusInvalidEndpoint
	case errors.Is(err, model.ErrUnsupportedCluster):
		return wire.StatusInvalidCluster
	case errors.Is(err, model.ErrUnsupportedAttribute):
		return wire.StatusUnsupportedAttribute
	case errors.Is(err, model.ErrUnsupportedCommand):
		return wire.StatusInvalidCommand
	case errors.Is(err, model.ErrInvalidCommand):
		return wire.StatusInvalidParameter
	case errors.Is(err, model.ErrUnsupportedAccess):
		return wire.StatusUnsupported
	case errors.Is(err, subscription.ErrResourceExhausted):
		return wire.StatusResourceExhausted
	case errors.Is(err, subscription.ErrInvalidInterval),
		errors.Is(err, subscription.ErrInvalidAttributeID),
		errors.Is(err, subscription.ErrSubscriptionNotFound):
		return wire.StatusInvalidParameter
	default:
		return wire.StatusFailure
	}
}

func successResponse(msgID uint32, payload any) *wire.Response {
	resp, err := wire.NewResponse(msgID, wire.StatusSuccess, payload)
	if err != nil {
		return errorResponse(msgID, wire.StatusFailure, err.Error())
	}
	return resp
}

func errorFromErr(msgID uint32, err error) *wire.Response {
	return errorResponse(msgID, statusFor(err), err.Error())
}

func errorResponse(msgID uint32, status wire.Status, message string) *wire.Response {
	resp, err := wire.NewResponse(msgID, status, &wire.ErrorPayload{Message: message})
	if err != nil {
		return &wire.Response{MessageID: msgID, Status: status}
	}
	return resp
}
