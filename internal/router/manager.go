package router

import (
	"context"
	"errors"
	"sync"
	"time"

	"bergbridge/internal/logger"
	"bergbridge/internal/types"
)

var (
	ErrStopped       = errors.New("router stopped")
	ErrUnknownDevice = errors.New("no handler registered for device type")
	ErrQueueFull     = errors.New("device queue full")
)

// Handler is a device class. Handle must always return a response.
type Handler interface {
	Handle(ctx context.Context, env *types.CommandEnvelope) types.Response
}

type device struct {
	handler Handler
	queue   chan types.RequestContext
}

// Manager routes envelopes to device handlers. Each device type has one
// worker, so envelopes for a device are handled one at a time in arrival order.
type Manager struct {
	Requests chan types.RequestContext

	timeout   time.Duration
	queueSize int
	devices   map[types.DeviceType]*device

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewManager(queueSize int, timeout time.Duration) *Manager {
	return &Manager{
		Requests:  make(chan types.RequestContext, queueSize),
		timeout:   timeout,
		queueSize: queueSize,
		devices:   make(map[types.DeviceType]*device),
		done:      make(chan struct{}),
	}
}

// Register binds a handler to a device type. Call before Start.
func (m *Manager) Register(dt types.DeviceType, h Handler) {
	m.devices[dt] = &device{
		handler: h,
		queue:   make(chan types.RequestContext, m.queueSize),
	}
}

func (m *Manager) Start() {
	for _, d := range m.devices {
		m.wg.Add(1)
		go m.work(d)
	}
	go m.dispatch()
}

// Stop ends dispatching and waits for in-flight handlers to return.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}

// Submit hands an envelope to its device and waits for the response. The
// router deadline covers both queueing and handling.
func (m *Manager) Submit(ctx context.Context, env *types.CommandEnvelope) types.Response {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req := types.RequestContext{
		Ctx:      ctx,
		Envelope: env,
		RespChan: make(chan types.ResponseContext, 1),
	}

	select {
	case m.Requests <- req:
	case <-m.done:
		return m.stopped(env)
	case <-ctx.Done():
		return types.NewResponse(types.RespTimeout, env)
	}

	select {
	case resp := <-req.RespChan:
		return m.finish(env, resp)
	case <-ctx.Done():
		logger.Warn("command %s (id %d) timed out: %v", env.Header.Command, env.Header.CommandID, ctx.Err())
		return types.NewResponse(types.RespTimeout, env)
	case <-m.done:
		select {
		case resp := <-req.RespChan:
			return m.finish(env, resp)
		default:
		}
		return m.stopped(env)
	}
}

func (m *Manager) stopped(env *types.CommandEnvelope) types.Response {
	return m.finish(env, types.ResponseContext{
		Response: types.NewResponse(types.RespTransportError, env),
		Error:    ErrStopped,
	})
}

func (m *Manager) finish(env *types.CommandEnvelope, resp types.ResponseContext) types.Response {
	if resp.Error != nil {
		logger.Error("command %s (id %d) on device %s: %v", env.Header.Command, env.Header.CommandID, env.Header.DeviceType, resp.Error)
	}
	return resp.Response
}

func (m *Manager) dispatch() {
	for {
		select {
		case req := <-m.Requests:
			m.route(req)
		case <-m.done:
			return
		}
	}
}

func (m *Manager) route(req types.RequestContext) {
	dt := req.Envelope.Header.DeviceType
	d, ok := m.devices[dt]
	if !ok {
		reply(req, types.RespTransportError, ErrUnknownDevice)
		return
	}

	select {
	case d.queue <- req:
	default:
		reply(req, types.RespBusy, ErrQueueFull)
	}
}

func (m *Manager) work(d *device) {
	defer m.wg.Done()
	for {
		select {
		case req := <-d.queue:
			m.handle(d, req)
		case <-m.done:
			return
		}
	}
}

func (m *Manager) handle(d *device, req types.RequestContext) {
	if err := req.Ctx.Err(); err != nil {
		reply(req, types.RespTimeout, err)
		return
	}

	env := req.Envelope
	logger.Info("handling %s command %s (id %d, %d byte payload)", env.Header.DeviceType, env.Header.Command, env.Header.CommandID, len(env.Payload))

	resp := d.handler.Handle(req.Ctx, env)
	resp.CommandID = env.Header.CommandID
	req.RespChan <- types.ResponseContext{Response: resp}
}

func reply(req types.RequestContext, code types.ResponseCode, err error) {
	req.RespChan <- types.ResponseContext{
		Response: types.NewResponse(code, req.Envelope),
		Error:    err,
	}
}
