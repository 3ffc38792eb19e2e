package interaction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/paramtree/paramtree-go/pkg/log"
	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/wire"
)

// Server handles management requests against a parameter tree.
type Server struct {
	tree     *model.Tree
	keyPath  string
	recorder *log.Recorder
	logger   *slog.Logger
	remote   string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRecorder captures requests, responses and faults.
func WithRecorder(rec *log.Recorder) ServerOption {
	return func(s *Server) { s.recorder = rec }
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithParameterKeyPath overrides where the ParameterKey of SetParameterValues,
// AddObject and DeleteObject is stored. An empty path disables storing it.
func WithParameterKeyPath(path string) ServerOption {
	return func(s *Server) { s.keyPath = path }
}

// WithRemoteAddr labels captured events with the management peer.
func WithRemoteAddr(addr string) ServerOption {
	return func(s *Server) { s.remote = addr }
}

type remoteKey struct{}

// ContextWithRemote labels the requests handled with ctx with the
// management peer. It takes precedence over WithRemoteAddr, so one Server
// can serve several connections.
func ContextWithRemote(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, remoteKey{}, addr)
}

func (s *Server) remoteOf(ctx context.Context) string {
	if addr, ok := ctx.Value(remoteKey{}).(string); ok && addr != "" {
		return addr
	}
	return s.remote
}

// NewServer creates a server for tree. If the schema has
// <root>.ManagementServer.ParameterKey, request parameter keys are written
// there atomically with the operation.
func NewServer(tree *model.Tree, opts ...ServerOption) *Server {
	s := &Server{
		tree:    tree,
		keyPath: DefaultKeyPath(tree.Def()),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultKeyPath returns the ParameterKey path of def, or "" if the schema
// has none.
func DefaultKeyPath(def *model.ObjectDef) string {
	ms, ok := def.Find(def.Name + ".ManagementServer.")
	if !ok {
		return ""
	}
	if _, ok := ms.Parameter("ParameterKey"); !ok {
		return ""
	}
	return def.Name + ".ManagementServer.ParameterKey"
}

// KeyPath returns the path parameter keys are written to.
func (s *Server) KeyPath() string {
	return s.keyPath
}

// HandleMessage decodes a request, handles it and returns the encoded
// response. Only undecodable input is reported as an error.
func (s *Server) HandleMessage(ctx context.Context, data []byte) ([]byte, error) {
	req, err := wire.DecodeRequest(data)
	if err != nil {
		return nil, err
	}
	return wire.EncodeResponse(s.HandleRequest(ctx, req))
}

// HandleRequest processes an incoming request and returns a response.
func (s *Server) HandleRequest(ctx context.Context, req *wire.Request) *wire.Response {
	start := time.Now()
	remote := s.remoteOf(ctx)
	if s.recorder != nil {
		s.recorder.Request(remote, req, requestPaths(req))
	}

	resp := s.dispatch(ctx, req)

	if s.recorder != nil {
		s.recorder.Response(remote, resp, time.Since(start))
	}
	s.logger.Debug("request handled",
		"msg_id", req.MessageID, "operation", req.Operation, "session", req.SessionID, "status", uint16(resp.Status))
	return resp
}

func (s *Server) dispatch(ctx context.Context, req *wire.Request) *wire.Response {
	if err := ctx.Err(); err != nil {
		return s.errorResponse(req, fmt.Errorf("%w: %v", model.ErrInvalidArguments, err))
	}
	if err := req.Validate(); err != nil {
		if !req.Operation.IsValid() {
			return statusResponse(req.MessageID, wire.StatusMethodNotSupported, err.Error())
		}
		return statusResponse(req.MessageID, wire.StatusInvalidArguments, err.Error())
	}

	switch req.Operation {
	case wire.OpGetParameterValues:
		return s.handleGetValues(req)
	case wire.OpSetParameterValues:
		return s.handleSetValues(req)
	case wire.OpGetParameterNames:
		return s.handleGetNames(req)
	case wire.OpGetParameterAttributes:
		return s.handleGetAttributes(req)
	case wire.OpSetParameterAttributes:
		return s.handleSetAttributes(req)
	case wire.OpAddObject:
		return s.handleAddObject(req)
	case wire.OpDeleteObject:
		return s.handleDeleteObject(req)
	default:
		return statusResponse(req.MessageID, wire.StatusMethodNotSupported, "unknown operation")
	}
}

func (s *Server) handleGetValues(req *wire.Request) *wire.Response {
	var p wire.GetValuesPayload
	if err := req.DecodePayload(&p); err != nil {
		return s.payloadError(req, err)
	}
	values, err := s.tree.GetValues(p.Paths...)
	if err != nil {
		return s.errorResponse(req, err)
	}
	return s.result(req, wire.GetValuesResult{Values: wire.FromModelValues(values)})
}

func (s *Server) handleSetValues(req *wire.Request) *wire.Response {
	var p wire.SetValuesPayload
	if err := req.DecodePayload(&p); err != nil {
		return s.payloadError(req, err)
	}

	values := make([]model.ParameterValue, 0, len(p.Values))
	var faults []*model.Fault
	for _, v := range p.Values {
		pv, err := v.ToModel()
		if err != nil {
			faults = append(faults, &model.Fault{Path: v.Path, Code: model.FaultCodeOf(err), Err: err})
			continue
		}
		values = append(values, pv)
	}
	if len(faults) > 0 {
		return s.errorResponse(req, &model.BatchError{Faults: faults})
	}

	var err error
	if s.keyPath != "" {
		err = s.tree.SetValuesKeyed(values, model.ParameterValue{Path: s.keyPath, Value: p.ParameterKey})
	} else {
		err = s.tree.SetValues(values)
	}
	if err != nil {
		return s.errorResponse(req, err)
	}
	return s.result(req, wire.ApplyResult{})
}

func (s *Server) handleGetNames(req *wire.Request) *wire.Response {
	var p wire.GetNamesPayload
	if err := req.DecodePayload(&p); err != nil {
		return s.payloadError(req, err)
	}
	path := p.Path
	if path == "" {
		path = s.tree.Def().Name + "."
	}
	names, err := s.tree.Names(path, p.NextLevel)
	if err != nil {
		return s.errorResponse(req, err)
	}
	entries := make([]wire.NameEntry, len(names))
	for i, n := range names {
		entries[i] = wire.NameEntry{Path: n.Path, Writable: n.Writable}
	}
	return s.result(req, wire.GetNamesResult{Names: entries})
}

func (s *Server) handleGetAttributes(req *wire.Request) *wire.Response {
	var p wire.GetAttributesPayload
	if err := req.DecodePayload(&p); err != nil {
		return s.payloadError(req, err)
	}
	attrs, err := s.tree.Attributes(p.Paths...)
	if err != nil {
		return s.errorResponse(req, err)
	}
	out := make([]wire.Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = wire.Attribute{Path: a.Path, Notification: uint8(a.Notification)}
	}
	return s.result(req, wire.GetAttributesResult{Attributes: out})
}

func (s *Server) handleSetAttributes(req *wire.Request) *wire.Response {
	var p wire.SetAttributesPayload
	if err := req.DecodePayload(&p); err != nil {
		return s.payloadError(req, err)
	}
	attrs := make([]model.ParameterAttribute, 0, len(p.Attributes))
	for _, a := range p.Attributes {
		if !a.NotificationChange {
			continue
		}
		attrs = append(attrs, model.ParameterAttribute{Path: a.Path, Notification: model.Notification(a.Notification)})
	}
	if err := s.tree.SetNotifications(attrs); err != nil {
		return s.errorResponse(req, err)
	}
	return s.result(req, nil)
}

func (s *Server) handleAddObject(req *wire.Request) *wire.Response {
	var p wire.ObjectPayload
	if err := req.DecodePayload(&p); err != nil {
		return s.payloadError(req, err)
	}
	var (
		id  uint32
		err error
	)
	if s.keyPath != "" {
		id, err = s.tree.AddObjectKeyed(p.Path, model.ParameterValue{Path: s.keyPath, Value: p.ParameterKey})
	} else {
		id, err = s.tree.AddObject(p.Path)
	}
	if err != nil {
		return s.errorResponse(req, err)
	}
	return s.result(req, wire.AddObjectResult{InstanceNumber: id})
}

func (s *Server) handleDeleteObject(req *wire.Request) *wire.Response {
	var p wire.ObjectPayload
	if err := req.DecodePayload(&p); err != nil {
		return s.payloadError(req, err)
	}
	var err error
	if s.keyPath != "" {
		err = s.tree.DeleteObjectKeyed(p.Path, model.ParameterValue{Path: s.keyPath, Value: p.ParameterKey})
	} else {
		err = s.tree.DeleteObject(p.Path)
	}
	if err != nil {
		return s.errorResponse(req, err)
	}
	return s.result(req, wire.ApplyResult{})
}

func (s *Server) result(req *wire.Request, v any) *wire.Response {
	resp, err := wire.NewResponse(req.MessageID, v)
	if err != nil {
		return statusResponse(req.MessageID, wire.StatusInternalError, err.Error())
	}
	return resp
}

func (s *Server) payloadError(req *wire.Request, err error) *wire.Response {
	return s.errorResponse(req, fmt.Errorf("%w: %s payload: %v", model.ErrInvalidArguments, req.Operation, err))
}

// errorResponse maps err to a fault response. A BatchError is reported as
// 9003 with one FaultDetail per failing entry.
func (s *Server) errorResponse(req *wire.Request, err error) *wire.Response {
	if s.recorder != nil {
		s.recorder.Fault(req.Operation.String(), err)
	}
	resp := &wire.Response{MessageID: req.MessageID, Status: wire.StatusOf(err)}

	var batch *model.BatchError
	var fault *model.Fault
	switch {
	case errors.As(err, &batch):
		for _, f := range batch.Faults {
			resp.Faults = append(resp.Faults, wire.FaultDetail{Path: f.Path, Code: wire.Status(f.Code), Message: f.Err.Error()})
		}
	case errors.As(err, &fault):
		resp.Faults = []wire.FaultDetail{{Path: fault.Path, Code: wire.Status(fault.Code), Message: fault.Err.Error()}}
	default:
		resp.Faults = []wire.FaultDetail{{Code: resp.Status, Message: err.Error()}}
	}
	return resp
}

func statusResponse(msgID uint32, status wire.Status, message string) *wire.Response {
	return &wire.Response{
		MessageID: msgID,
		Status:    status,
		Faults:    []wire.FaultDetail{{Code: status, Message: message}},
	}
}

// requestPaths extracts the paths a request targets, for event capture.
func requestPaths(req *wire.Request) []string {
	switch req.Operation {
	case wire.OpGetParameterValues:
		var p wire.GetValuesPayload
		if req.DecodePayload(&p) == nil {
			return p.Paths
		}
	case wire.OpSetParameterValues:
		var p wire.SetValuesPayload
		if req.DecodePayload(&p) == nil {
			paths := make([]string, len(p.Values))
			for i, v := range p.Values {
				paths[i] = v.Path
			}
			return paths
		}
	case wire.OpGetParameterNames:
		var p wire.GetNamesPayload
		if req.DecodePayload(&p) == nil {
			return []string{p.Path}
		}
	case wire.OpGetParameterAttributes:
		var p wire.GetAttributesPayload
		if req.DecodePayload(&p) == nil {
			return p.Paths
		}
	case wire.OpSetParameterAttributes:
		var p wire.SetAttributesPayload
		if req.DecodePayload(&p) == nil {
			paths := make([]string, len(p.Attributes))
			for i, a := range p.Attributes {
				paths[i] = a.Path
			}
			return paths
		}
	case wire.OpAddObject, wire.OpDeleteObject:
		var p wire.ObjectPayload
		if req.DecodePayload(&p) == nil {
			return []string{p.Path}
		}
	}
	return nil
}
