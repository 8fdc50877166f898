// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package toolkit

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/unifai-network/unifai-sdk-go/pkg/api"
	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
	"github.com/unifai-network/unifai-sdk-go/pkg/resilience"
	"github.com/unifai-network/unifai-sdk-go/pkg/telemetry"
)

// ToolkitInfo is the public name and description of a toolkit.
type ToolkitInfo = api.ToolkitInfo

// Service connects a toolkit to the platform, announces its actions and
// serves the calls routed to it.
type Service struct {
	apiKey     string
	settings   settings
	client     *api.Client
	registry   *Registry
	dispatcher *Dispatcher
	logger     *slog.Logger

	mu      sync.Mutex
	started bool
	backlog []CallResult
}

// NewService creates a toolkit service authenticated with apiKey.
func NewService(apiKey string, opts ...Option) *Service {
	s := applyOptions(opts)

	apiOpts := []api.Option{api.WithLogger(s.logger), api.WithMetrics(s.metrics)}
	if s.endpoints != nil {
		apiOpts = append(apiOpts, api.WithEndpoints(*s.endpoints))
	}
	if s.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(s.httpClient))
	}
	apiOpts = append(apiOpts, s.apiOptions...)
	client := api.New(apiKey, apiOpts...)

	if s.tx == nil {
		s.tx = client
	}
	if s.dialer == nil {
		s.dialer = WebSocketDialer(s.httpClient)
	}

	registry := NewRegistry()
	return &Service{
		apiKey:     apiKey,
		settings:   s,
		client:     client,
		registry:   registry,
		dispatcher: newDispatcher(registry, s),
		logger:     s.logger.With("component", "toolkit"),
	}
}

// Registry returns the service's action registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Dispatcher returns the dispatcher serving the registry.
func (s *Service) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Client returns the platform client the service uses.
func (s *Service) Client() *api.Client {
	return s.client
}

// UpdateInfo sets the toolkit's public name and description.
func (s *Service) UpdateInfo(ctx context.Context, info ToolkitInfo) error {
	if err := s.client.UpdateToolkitInfo(ctx, info); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "toolkit info updated", "name", info.Name)
	return nil
}

// AddAction registers an action. It fails once the service has started.
func (s *Service) AddAction(action Action) error {
	return s.registry.Register(action)
}

// Run starts the service and blocks until it stops.
func (s *Service) Run(ctx context.Context) error {
	runner, err := s.Start(ctx)
	if err != nil {
		return err
	}
	return runner.Wait()
}

// Start connects, freezes the registry, registers the actions and serves
// calls in the background until ctx is cancelled, the platform closes the
// connection, or reconnecting gives up.
func (s *Service) Start(ctx context.Context) (*Runner, error) {
	if strings.TrimSpace(s.apiKey) == "" {
		return nil, errors.New(errors.CodeConfiguration, "toolkit api key is required", nil)
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, errors.New(errors.CodeConfiguration, "toolkit service already started", nil)
	}
	s.started = true
	s.mu.Unlock()

	if err := s.registry.Freeze(); err != nil {
		return nil, err
	}
	if s.registry.Len() == 0 {
		s.logger.WarnContext(ctx, "starting toolkit without actions")
	}

	runCtx, cancel := context.WithCancel(ctx)
	conn, err := s.connect(runCtx)
	if err != nil {
		cancel()
		s.registry.Stop()
		return nil, err
	}

	r := &Runner{cancel: cancel, done: make(chan struct{})}
	go s.serve(runCtx, cancel, conn, r)
	return r, nil
}

func (s *Service) connect(ctx context.Context) (Conn, error) {
	ctx, span := otel.Tracer("unifai/toolkit").Start(ctx, "toolkit.register",
		trace.WithAttributes(telemetry.ToolkitAttributes(s.registry.Names())...))
	defer span.End()

	endpoint := s.client.Endpoints().WebSocket
	target, err := toolkitURL(endpoint, s.apiKey)
	if err != nil {
		return nil, errors.New(errors.CodeConfiguration, "invalid websocket endpoint", err)
	}

	conn, err := s.settings.dialer(ctx, target)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	msg, err := EncodeMessage(MessageRegisterActions, s.registry.registration())
	if err != nil {
		conn.Close()
		return nil, errors.New(errors.CodeConfiguration, "action definitions are not serializable", err)
	}
	if err := conn.Write(ctx, msg); err != nil {
		conn.Close()
		return nil, errors.New(errors.CodeTransport, "register actions", err).WithRecoverable(true)
	}

	s.logger.InfoContext(ctx, "toolkit connected", "actions", s.registry.Len())
	return conn, nil
}

func (s *Service) reconnect(ctx context.Context) (Conn, error) {
	rc := s.settings.reconnect.WithOnRetry(func(attempt int, delay time.Duration, err error) {
		s.logger.WarnContext(ctx, "toolkit reconnect failed", "attempt", attempt, "retry_in", delay, "error", err)
	})
	return resilience.DoWithResult(ctx, rc, func() (Conn, error) {
		return s.connect(ctx)
	})
}

func (s *Service) serve(ctx context.Context, cancel context.CancelFunc, conn Conn, r *Runner) {
	defer close(r.done)

	results := make(chan CallResult, 64)
	var calls sync.WaitGroup

	for {
		err := s.session(ctx, conn, results, &calls)
		conn.Close()

		if ctx.Err() != nil {
			s.logger.Info("toolkit stopping")
			break
		}
		if stderrors.Is(err, ErrConnClosed) {
			s.logger.Info("platform closed the toolkit connection")
			break
		}

		s.logger.Warn("toolkit connection lost", "error", err)
		conn, err = s.reconnect(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.err = err
				s.logger.Error("toolkit reconnect gave up", "error", err)
			}
			break
		}
	}

	cancel()
	calls.Wait()
	s.registry.Stop()
}

// session serves one connection until it fails or ctx ends.
func (s *Service) session(ctx context.Context, conn Conn, results chan CallResult, calls *sync.WaitGroup) error {
	sessCtx, stop := context.WithCancel(ctx)
	defer stop()

	var workers sync.WaitGroup
	writeErr := make(chan error, 1)

	workers.Add(1)
	go func() {
		defer workers.Done()
		if err := s.writeResults(sessCtx, conn, results); err != nil {
			writeErr <- err
			stop()
		}
	}()

	if s.settings.pingInterval > 0 {
		workers.Add(1)
		go func() {
			defer workers.Done()
			s.keepAlive(sessCtx, conn)
		}()
	}

	err := s.readLoop(sessCtx, ctx, conn, results, calls)
	stop()
	workers.Wait()

	select {
	case werr := <-writeErr:
		return werr
	default:
		return err
	}
}

func (s *Service) readLoop(sessCtx, ctx context.Context, conn Conn, results chan<- CallResult, calls *sync.WaitGroup) error {
	for {
		data, err := conn.Read(sessCtx)
		if err != nil {
			return err
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("dropping malformed message", "error", err)
			continue
		}

		switch msg.Type {
		case MessageAction:
			var req CallRequest
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				reject, ok := rejectMalformedCall(msg.Data, err)
				if !ok {
					s.logger.Warn("dropping malformed action call", "error", err)
					continue
				}
				s.logger.Warn("rejecting malformed action call", "action", reject.Action, "action_id", reject.ActionID.String(), "error", err)
				select {
				case results <- reject:
				case <-ctx.Done():
				}
				continue
			}
			calls.Add(1)
			go func() {
				defer calls.Done()
				result := s.dispatcher.Dispatch(ctx, req)
				select {
				case results <- result:
				case <-ctx.Done():
					s.logger.Warn("dropping action result, toolkit stopped", "action", req.Action, "action_id", req.ActionID.String())
				}
			}()
		default:
			s.logger.Debug("ignoring message", "type", msg.Type)
		}
	}
}

// writeResults is the only writer of action results on conn. A result whose
// write fails is kept for the next connection.
func (s *Service) writeResults(ctx context.Context, conn Conn, results <-chan CallResult) error {
	s.mu.Lock()
	pending := s.backlog
	s.backlog = nil
	s.mu.Unlock()

	for i, result := range pending {
		if err := s.writeResult(ctx, conn, result); err != nil {
			s.keep(pending[i:]...)
			return sendError(ctx, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case result := <-results:
			if err := s.writeResult(ctx, conn, result); err != nil {
				s.keep(result)
				return sendError(ctx, err)
			}
		}
	}
}

// writeResult sends result. A result that cannot be encoded is replaced by
// an InternalError result for the same call rather than dropped.
func (s *Service) writeResult(ctx context.Context, conn Conn, result CallResult) error {
	msg, err := EncodeMessage(MessageActionResult, result)
	if err != nil {
		s.logger.Error("action result is not encodable", "action", result.Action, "action_id", result.ActionID.String(), "error", err)
		fallback := failed(CallResult{Action: result.Action, ActionID: result.ActionID, AgentID: result.AgentID},
			KindInternalError, "action result could not be encoded")
		if msg, err = EncodeMessage(MessageActionResult, fallback); err != nil {
			s.logger.Error("dropping unencodable action result", "action", result.Action, "error", err)
			return nil
		}
	}
	return conn.Write(ctx, msg)
}

func sendError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return errors.New(errors.CodeTransport, "send action result", err).WithRecoverable(true)
}

func (s *Service) keep(results ...CallResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backlog = append(s.backlog, results...)
}

func (s *Service) keepAlive(ctx context.Context, conn Conn) {
	ticker := time.NewTicker(s.settings.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, s.settings.pingInterval)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil && ctx.Err() == nil {
				s.logger.Warn("toolkit ping failed", "error", err)
			}
		}
	}
}

// Runner controls a started Service.
type Runner struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Wait blocks until the service stops. It returns nil after a normal stop and
// the last connection error when reconnecting gave up.
func (r *Runner) Wait() error {
	<-r.done
	return r.err
}

// Stop cancels in-flight calls, closes the connection and waits.
func (r *Runner) Stop() error {
	r.cancel()
	return r.Wait()
}

// Done is closed once the service has stopped.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}
