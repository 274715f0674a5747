package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"identity-dna/internal/domain"
	"identity-dna/internal/platform/config"
	id "identity-dna/pkg/domain"
)

// ErrMessageTimeout reports a correlated request that received no
// response within the ack window.
var ErrMessageTimeout = errors.New("bus: message acknowledgement timeout")

// ErrNotConnected reports a send attempted with no live connection.
var ErrNotConnected = errors.New("bus: not connected")

// Handler consumes inbound source events. The orchestrator satisfies
// this.
type Handler func(domain.Event) error

// SyncResponder answers inbound DNA_SYNC requests with the current
// profile.
type SyncResponder func(ctx context.Context, userID id.UserID) (domain.Profile, error)

// Dialer opens the transport connection.
type Dialer func(ctx context.Context, addr string) (net.Conn, error)

func defaultDialer(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// StreamAdapter keeps one framed duplex connection to the bus peer:
// outbound change notifications, inbound events, heartbeats, and
// correlated request/response.
type StreamAdapter struct {
	cfg       config.Bus
	dial      Dialer
	handler   Handler
	responder SyncResponder
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	conn    net.Conn
	enc     *Encoder
	waiters map[string]chan Message

	stop chan struct{}
	done chan struct{}
}

// StreamOption configures a StreamAdapter.
type StreamOption func(*StreamAdapter)

func WithStreamLogger(logger *slog.Logger) StreamOption {
	return func(a *StreamAdapter) { a.logger = logger }
}

func WithDialer(dial Dialer) StreamOption {
	return func(a *StreamAdapter) { a.dial = dial }
}

func WithSyncResponder(r SyncResponder) StreamOption {
	return func(a *StreamAdapter) { a.responder = r }
}

func WithStreamClock(now func() time.Time) StreamOption {
	return func(a *StreamAdapter) { a.now = now }
}

// NewStreamAdapter constructs the adapter; Start opens the connection.
func NewStreamAdapter(cfg config.Bus, handler Handler, opts ...StreamOption) (*StreamAdapter, error) {
	if handler == nil {
		return nil, fmt.Errorf("bus event handler is required")
	}
	a := &StreamAdapter{
		cfg:     cfg,
		dial:    defaultDialer,
		handler: handler,
		logger:  slog.Default(),
		now:     time.Now,
		waiters: make(map[string]chan Message),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Start runs the connect/read loop until Stop. Reconnects use a fixed
// delay and give up after the configured attempt budget.
func (a *StreamAdapter) Start() {
	go func() {
		defer close(a.done)
		attempts := 0
		for {
			select {
			case <-a.stop:
				return
			default:
			}

			conn, err := a.dial(context.Background(), a.cfg.StreamAddr)
			if err != nil {
				attempts++
				if a.cfg.MaxReconnects > 0 && attempts > a.cfg.MaxReconnects {
					a.logger.Error("bus reconnect budget exhausted",
						"addr", a.cfg.StreamAddr,
						"attempts", attempts-1,
					)
					return
				}
				a.logger.Warn("bus dial failed, retrying",
					"addr", a.cfg.StreamAddr,
					"attempt", attempts,
					"error", err,
				)
				select {
				case <-a.stop:
					return
				case <-time.After(a.cfg.ReconnectDelay):
				}
				continue
			}

			attempts = 0
			a.logger.Info("bus connected", "addr", a.cfg.StreamAddr)
			a.serve(conn)
		}
	}()
}

// serve owns one connection until it fails or the adapter stops.
func (a *StreamAdapter) serve(conn net.Conn) {
	a.mu.Lock()
	a.conn = conn
	a.enc = NewEncoder(conn)
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.conn = nil
		a.enc = nil
		a.mu.Unlock()
		conn.Close()
	}()

	hbStop := make(chan struct{})
	defer close(hbStop)
	go a.heartbeat(hbStop)

	dec := NewDecoder(conn)
	for {
		msg, err := dec.Decode()
		if err != nil {
			select {
			case <-a.stop:
			default:
				a.logger.Warn("bus connection lost", "error", err)
			}
			return
		}
		a.dispatch(msg)
	}
}

func (a *StreamAdapter) heartbeat(stop chan struct{}) {
	if a.cfg.HeartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(a.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-a.stop:
			return
		case <-ticker.C:
			if err := a.send(a.newMessage(TypePing, "", nil)); err != nil {
				a.logger.Debug("heartbeat send failed", "error", err)
			}
		}
	}
}

// dispatch routes one inbound message: correlated responses to their
// waiters, control frames to their replies, events to the handler.
func (a *StreamAdapter) dispatch(msg Message) {
	if msg.CorrelationID != "" {
		a.mu.Lock()
		waiter, ok := a.waiters[msg.CorrelationID]
		if ok {
			delete(a.waiters, msg.CorrelationID)
		}
		a.mu.Unlock()
		if ok {
			waiter <- msg
			return
		}
		// A late response past its timeout window lands here.
		if msg.Type == TypeAck || msg.Type == TypePong {
			return
		}
	}

	switch msg.Type {
	case TypePing:
		reply := a.newMessage(TypePong, "", nil)
		reply.CorrelationID = msg.ID
		if err := a.send(reply); err != nil {
			a.logger.Debug("pong send failed", "error", err)
		}
	case TypePong, TypeAck:
		// Uncorrelated control noise.
	case TypeDNASync:
		a.handleSyncRequest(msg)
	default:
		a.handleEvent(msg)
	}
}

func (a *StreamAdapter) handleEvent(msg Message) {
	event, ok := msg.Event()
	if !ok {
		a.logger.Warn("unrecognized bus message dropped", "type", msg.Type, "id", msg.ID)
		return
	}
	if err := a.handler(event); err != nil {
		a.logger.Warn("inbound event rejected", "type", msg.Type, "user_id", msg.UserID, "error", err)
		return
	}
	if msg.ID != "" {
		ack := a.newMessage(TypeAck, msg.UserID, nil)
		ack.CorrelationID = msg.ID
		if err := a.send(ack); err != nil {
			a.logger.Debug("ack send failed", "error", err)
		}
	}
}

func (a *StreamAdapter) handleSyncRequest(msg Message) {
	if a.responder == nil || msg.UserID == "" {
		return
	}
	p, err := a.responder(context.Background(), id.UserID(msg.UserID))
	if err != nil {
		a.logger.Warn("sync request failed", "user_id", msg.UserID, "error", err)
		return
	}
	reply := a.newMessage(TypeProfileUpdate, msg.UserID, p)
	reply.CorrelationID = msg.ID
	if err := a.send(reply); err != nil {
		a.logger.Warn("sync response send failed", "user_id", msg.UserID, "error", err)
	}
}

func (a *StreamAdapter) newMessage(msgType, userID string, payload any) Message {
	m := Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Source:    SourceName,
		Timestamp: a.now(),
		UserID:    userID,
		Broadcast: true,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			a.logger.Error("bus payload encode failed", "type", msgType, "error", err)
			return m
		}
		m.Payload = data
	}
	return m
}

func (a *StreamAdapter) send(m Message) error {
	a.mu.Lock()
	enc := a.enc
	a.mu.Unlock()
	if enc == nil {
		return ErrNotConnected
	}
	return enc.Encode(m)
}

// Request sends a correlated message and waits for its response within
// the ack window.
func (a *StreamAdapter) Request(ctx context.Context, m Message) (Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	waiter := make(chan Message, 1)
	a.mu.Lock()
	a.waiters[m.ID] = waiter
	a.mu.Unlock()

	cleanup := func() {
		a.mu.Lock()
		delete(a.waiters, m.ID)
		a.mu.Unlock()
	}

	if err := a.send(m); err != nil {
		cleanup()
		return Message{}, err
	}

	timer := time.NewTimer(a.cfg.AckTimeout)
	defer timer.Stop()
	select {
	case resp := <-waiter:
		return resp, nil
	case <-timer.C:
		cleanup()
		return Message{}, ErrMessageTimeout
	case <-ctx.Done():
		cleanup()
		return Message{}, ctx.Err()
	}
}

// Stop closes the connection and waits for the loop to exit.
func (a *StreamAdapter) Stop(ctx context.Context) error {
	close(a.stop)
	a.mu.Lock()
	if a.conn != nil {
		a.conn.Close()
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProfileUpdated broadcasts the committed profile.
func (a *StreamAdapter) ProfileUpdated(_ context.Context, p domain.Profile) {
	if err := a.send(a.newMessage(TypeProfileUpdate, p.UserID.String(), p)); err != nil {
		a.logger.Debug("profile update publish skipped", "user_id", p.UserID, "error", err)
	}
}

// TierChanged broadcasts a committed tier transition.
func (a *StreamAdapter) TierChanged(_ context.Context, userID id.UserID, oldTier, newTier int) {
	payload := map[string]int{"oldTier": oldTier, "newTier": newTier}
	if err := a.send(a.newMessage(TypeTierChanged, userID.String(), payload)); err != nil {
		a.logger.Debug("tier change publish skipped", "user_id", userID, "error", err)
	}
}

// TrustUpdated broadcasts a committed trust score.
func (a *StreamAdapter) TrustUpdated(_ context.Context, userID id.UserID, score float64) {
	payload := map[string]float64{"trustScore": score}
	if err := a.send(a.newMessage(TypeTrustUpdate, userID.String(), payload)); err != nil {
		a.logger.Debug("trust update publish skipped", "user_id", userID, "error", err)
	}
}
