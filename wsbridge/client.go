// Package wsbridge connects an instance to a remote dashboard over a
// websocket. The dashboard can start and cancel runs; the instance streams
// every run event back as it happens.
package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"taskweave/streamers"
	"taskweave/workflow"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	requestTimeout = 30 * time.Second
)

// ErrClosed is returned when sending on a closed connection.
var ErrClosed = errors.New("bridge connection closed")

// RunFunc executes one request with events going to handler.
type RunFunc func(ctx context.Context, request string, handler streamers.RunHandler) workflow.Report

// Options configures a Client.
type Options struct {
	URL          string
	InstanceName string
	Version      string
	Solvers      []SolverInfo
	Logger       hclog.Logger
	// Run serves start_run requests. Without it they are rejected.
	Run RunFunc
}

// RequestHandler processes an incoming request and returns the response.
type RequestHandler func(env *Envelope) (*Envelope, error)

// Client manages the websocket connection to the dashboard.
type Client struct {
	opts   Options
	logger hclog.Logger

	ws   *websocket.Conn
	send chan []byte

	mu         sync.Mutex
	pending    map[string]chan *Envelope
	instanceID string

	handlers map[MessageType]RequestHandler

	runsMu sync.Mutex
	runs   map[string]context.CancelFunc

	done      chan struct{}
	closeOnce sync.Once
	ctx       context.Context
	stop      context.CancelFunc
}

// NewClient creates a client. Call Connect to dial.
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	ctx, stop := context.WithCancel(context.Background())
	c := &Client{
		opts:     opts,
		logger:   logger.Named("wsbridge"),
		send:     make(chan []byte, 256),
		pending:  make(map[string]chan *Envelope),
		handlers: make(map[MessageType]RequestHandler),
		runs:     make(map[string]context.CancelFunc),
		done:     make(chan struct{}),
		ctx:      ctx,
		stop:     stop,
	}
	c.handlers[TypeStartRun] = c.handleStartRun
	c.handlers[TypeCancelRun] = c.handleCancelRun
	return c
}

// Connect dials the endpoint, starts the pumps and registers.
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info("connecting", "url", c.opts.URL)

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("dial bridge: %w", err)
	}
	c.ws = ws

	// register needs both pumps running
	go c.readPump()
	go c.writePump()

	if err := c.register(); err != nil {
		c.Close()
		return fmt.Errorf("register: %w", err)
	}

	c.logger.Info("registered", "instance_id", c.InstanceID())
	return nil
}

// Run blocks until the connection drops or ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	select {
	case <-c.done:
		return fmt.Errorf("connection closed")
	case <-c.ctx.Done():
		return nil
	case <-ctx.Done():
		return nil
	}
}

// Close cancels active runs and shuts the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.runsMu.Lock()
		for _, cancel := range c.runs {
			cancel()
		}
		c.runsMu.Unlock()

		c.stop()
		if c.ws != nil {
			c.ws.Close()
		}
	})
}

// InstanceID returns the id assigned at registration.
func (c *Client) InstanceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instanceID
}

func (c *Client) register() error {
	req, err := NewRequest(TypeRegister, &RegisterPayload{
		InstanceName: c.opts.InstanceName,
		Version:      c.opts.Version,
		Solvers:      c.opts.Solvers,
	})
	if err != nil {
		return err
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if resp.Type == TypeError {
		return decodeError(resp)
	}

	var ack RegisterAckPayload
	if err := DecodePayload(resp, &ack); err != nil {
		return fmt.Errorf("decode register ack: %w", err)
	}
	if !ack.Accepted {
		return fmt.Errorf("registration rejected: %s", ack.Reason)
	}

	c.mu.Lock()
	c.instanceID = ack.InstanceID
	c.mu.Unlock()
	return nil
}

func decodeError(env *Envelope) error {
	var p ErrorPayload
	if err := DecodePayload(env, &p); err != nil {
		return fmt.Errorf("remote error")
	}
	return fmt.Errorf("remote error %s: %s", p.Code, p.Message)
}

func (c *Client) readPump() {
	defer func() {
		close(c.done)
		c.ws.Close()
	}()

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read failed", "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.logger.Warn("invalid message", "error", err)
			continue
		}
		c.dispatch(&env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-c.done:
			return
		}
	}
}

func (c *Client) dispatch(env *Envelope) {
	if env.RequestID != "" {
		c.mu.Lock()
		ch, ok := c.pending[env.RequestID]
		c.mu.Unlock()
		if ok {
			ch <- env
			return
		}
	}

	if env.Type == TypeHeartbeat {
		ack, _ := NewResponse(env.RequestID, TypeHeartbeatAck, nil)
		c.sendEnvelope(ack)
		return
	}

	handler, ok := c.handlers[env.Type]
	if !ok {
		c.logger.Debug("unhandled message", "type", env.Type)
		return
	}
	resp, err := handler(env)
	if err != nil {
		errResp, _ := NewError(env.RequestID, "handler_error", err.Error())
		c.sendEnvelope(errResp)
		return
	}
	if resp != nil {
		c.sendEnvelope(resp)
	}
}

func (c *Client) sendEnvelope(env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	case <-c.done:
		return ErrClosed
	}
}

// SendEvent sends a one-way envelope.
func (c *Client) SendEvent(env *Envelope) error {
	return c.sendEnvelope(env)
}

func (c *Client) sendRequest(env *Envelope) (*Envelope, error) {
	ch := make(chan *Envelope, 1)

	c.mu.Lock()
	c.pending[env.RequestID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, env.RequestID)
		c.mu.Unlock()
	}()

	if err := c.sendEnvelope(env); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-c.done:
		return nil, ErrClosed
	case <-time.After(requestTimeout):
		return nil, fmt.Errorf("request timed out")
	}
}

func (c *Client) handleStartRun(env *Envelope) (*Envelope, error) {
	if c.opts.Run == nil {
		return nil, fmt.Errorf("this instance does not accept remote runs")
	}
	var p StartRunPayload
	if err := DecodePayload(env, &p); err != nil {
		return nil, fmt.Errorf("decode start_run: %w", err)
	}
	if p.Request == "" {
		return nil, fmt.Errorf("start_run needs a request")
	}

	runID := uuid.New().String()
	ctx, cancel := context.WithCancel(c.ctx)
	c.runsMu.Lock()
	c.runs[runID] = cancel
	c.runsMu.Unlock()

	go func() {
		defer c.untrack(runID)
		report := c.opts.Run(ctx, p.Request, c.Handler(runID))
		if err := c.Completed(runID, report); err != nil {
			c.logger.Warn("completion not sent", "run", runID, "error", err)
		}
	}()

	return NewResponse(env.RequestID, TypeAck, &StartRunAckPayload{RunID: runID})
}

func (c *Client) handleCancelRun(env *Envelope) (*Envelope, error) {
	var p CancelRunPayload
	if err := DecodePayload(env, &p); err != nil {
		return nil, fmt.Errorf("decode cancel_run: %w", err)
	}
	c.runsMu.Lock()
	cancel, ok := c.runs[p.RunID]
	c.runsMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("run %s is not active", p.RunID)
	}
	cancel()
	c.logger.Info("run cancelled remotely", "run", p.RunID)
	return NewResponse(env.RequestID, TypeAck, nil)
}

func (c *Client) untrack(runID string) {
	c.runsMu.Lock()
	if cancel, ok := c.runs[runID]; ok {
		cancel()
		delete(c.runs, runID)
	}
	c.runsMu.Unlock()
}
