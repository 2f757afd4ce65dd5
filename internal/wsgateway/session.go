package wsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/chainstream/streams/internal/apikey"
	"github.com/chainstream/streams/internal/config"
	"github.com/chainstream/streams/internal/stream"
)

// State names one node of the session state machine (spec §4.I.1).
type State string

const (
	StateOpening       State = "opening"
	StateAuthenticated State = "authenticated"
	StateActive        State = "active"
	StateClosing       State = "closing"
	StateClosed        State = "closed"
)

// ErrDuplicateSubscription is returned (tracked in metrics per spec
// §4.I.2) when a client subscribes to a stream it already owns.
var ErrDuplicateSubscription = fmt.Errorf("wsgateway: duplicate subscription")

// Session is one authenticated WebSocket connection, generalized from
// pkg/websocket.Client's single-goroutine read-pump-plus-select-loop
// shape: one goroutine reads frames and feeds a channel, one goroutine
// owns the connection's writes (outbound frames and every owned
// stream.Subscription's packets, fanned into one send channel) and
// drives state transitions.
type Session struct {
	conn *websocket.Conn
	key  apikey.Key
	role apikey.Role

	apikeys *apikey.Manager
	engine  *stream.Engine
	cfg     config.WebSocket
	logger  zerolog.Logger
	metrics Metrics

	send chan []byte

	mu    sync.Mutex
	state State
	subs  map[string]*ownedSub // keyed by the raw "stream" string the client used
}

type ownedSub struct {
	sub    *stream.Subscription
	cancel context.CancelFunc
}

// NewSession constructs a Session in Authenticated state — the caller
// (Gateway.Upgrade) has already resolved and validated the API key
// before the socket is handed off (spec §4.I.1: "extract API key from
// request... before upgrade when possible").
func NewSession(conn *websocket.Conn, key apikey.Key, role apikey.Role, apikeys *apikey.Manager, engine *stream.Engine, cfg config.WebSocket, logger zerolog.Logger, metrics Metrics) *Session {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Session{
		conn:    conn,
		key:     key,
		role:    role,
		apikeys: apikeys,
		engine:  engine,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		send:    make(chan []byte, cfg.ChannelCapacity),
		state:   StateAuthenticated,
		subs:    make(map[string]*ownedSub),
	}
}

// Run drives the session until the connection closes or ctx is
// cancelled (process shutdown). It owns conn's reads and writes for
// its entire lifetime.
func (s *Session) Run(ctx context.Context) {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.closeAll()

	s.setState(StateActive)

	s.conn.SetReadLimit(s.cfg.MaxFrameBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ClientTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.ClientTimeout))
	})

	frames := make(chan []byte, 16)
	readErrs := make(chan error, 1)
	go s.readPump(frames, readErrs)

	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-sctx.Done():
			s.writeClose(websocket.CloseNormalClosure, "server shutdown")
			return

		case err := <-readErrs:
			if err != nil {
				s.logger.Debug().Err(err).Msg("wsgateway: read pump closed")
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					s.writeClose(websocket.CloseInternalServerErr, "heartbeat timeout")
				}
			}
			return

		case frame := <-frames:
			s.handleFrame(sctx, frame)

		case <-heartbeat.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case msg, ok := <-s.send:
			if !ok {
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		}
	}
}

const writeWait = 10 * time.Second

func (s *Session) readPump(frames chan<- []byte, errs chan<- error) {
	defer close(errs)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			errs <- err
			return
		}
		select {
		case frames <- data:
		default:
			s.logger.Warn().Str("key", s.key.UserName).Msg("wsgateway: inbound frame dropped, backlog full")
		}
	}
}

func (s *Session) handleFrame(ctx context.Context, frame []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		s.sendJSON(errorMsg("", "malformed message"))
		return
	}
	switch {
	case msg.Subscribe != nil:
		s.handleSubscribe(ctx, *msg.Subscribe)
	case msg.Unsubscribe != nil:
		s.handleUnsubscribe(*msg.Unsubscribe)
	default:
		s.sendJSON(errorMsg("", "message carries neither subscribe nor unsubscribe"))
	}
}

// handleSubscribe implements spec §4.I.2: scope check, subscription-
// limit check, duplicate rejection, then opens an engine subscription
// and forwards its output until cancelled.
func (s *Session) handleSubscribe(ctx context.Context, topic Topic) {
	s.mu.Lock()
	if _, dup := s.subs[topic.Stream]; dup {
		s.mu.Unlock()
		s.metrics.IncDuplicateSubscription()
		s.sendJSON(errorMsg(topic.Stream, ErrDuplicateSubscription.Error()))
		return
	}
	s.mu.Unlock()

	if err := s.apikeys.CheckScope(s.role, topic.Stream); err != nil {
		s.sendJSON(errorMsg(topic.Stream, err.Error()))
		return
	}
	if !s.apikeys.Subs.TryAcquire(s.key.Value, s.role.SubscriptionLimit()) {
		s.sendJSON(errorMsg(topic.Stream, apikey.ErrSubscriptionLimit.Error()))
		return
	}

	policy := stream.NewPolicy()
	switch {
	case topic.FromBlock != nil:
		policy = stream.FromBlockPolicy(*topic.FromBlock)
	case topic.Latest:
		policy = stream.LatestPolicy()
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub, err := s.engine.Subscribe(subCtx, topic.Stream, policy, s.role)
	if err != nil {
		cancel()
		s.apikeys.Subs.Release(s.key.Value)
		s.sendJSON(errorMsg(topic.Stream, err.Error()))
		return
	}

	s.mu.Lock()
	s.subs[topic.Stream] = &ownedSub{sub: sub, cancel: cancel}
	s.mu.Unlock()

	s.metrics.IncSubscribed()
	s.sendJSON(subscribedMsg(topic.Stream))
	go s.pump(topic.Stream, sub)
}

func (s *Session) handleUnsubscribe(topic Topic) {
	s.mu.Lock()
	owned, ok := s.subs[topic.Stream]
	if ok {
		delete(s.subs, topic.Stream)
	}
	s.mu.Unlock()
	if !ok {
		s.sendJSON(errorMsg(topic.Stream, "not subscribed"))
		return
	}
	owned.cancel()
	owned.sub.Close()
	s.apikeys.Subs.Release(s.key.Value)
	s.metrics.IncUnsubscribed()
	s.sendJSON(unsubscribedMsg(topic.Stream))
}

// pump forwards one engine subscription's packets/errors onto the
// session's shared send channel until the subscription closes (spec
// §4.I.3). When that channel is full, the update is dropped (see
// sendJSONNonBlocking); the subscription stays open and the client
// receives no BackpressureExceeded error.
func (s *Session) pump(streamName string, sub *stream.Subscription) {
	for {
		select {
		case pkt, ok := <-sub.Packets:
			if !ok {
				return
			}
			s.sendJSONNonBlocking(streamName, ServerMessage{
				Type:    TypeUpdate,
				Stream:  streamName,
				Entity:  pkt.Entity,
				Payload: json.RawMessage(pkt.Value),
			})
		case err, ok := <-sub.Errs:
			if !ok {
				continue
			}
			if err != nil {
				s.sendJSON(errorMsg(streamName, err.Error()))
			}
		}
	}
}

func (s *Session) sendJSON(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("wsgateway: marshal outbound message")
		return
	}
	select {
	case s.send <- data:
	default:
		s.logger.Warn().Str("key", s.key.UserName).Msg("wsgateway: outbound backlog full, dropping message")
	}
}

// sendJSONNonBlocking is sendJSON specialized for per-subscription
// update delivery: on backlog overflow it drops the update, counts it via
// IncBackpressureDropped and logs BackpressureExceeded with the stream
// name (spec §4.I.3).
func (s *Session) sendJSONNonBlocking(streamName string, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case s.send <- data:
	default:
		s.metrics.IncBackpressureDropped()
		s.logger.Warn().Str("stream", streamName).Msg("wsgateway: BackpressureExceeded")
	}
}

func (s *Session) writeClose(code int, text string) {
	deadline := time.Now().Add(writeWait)
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// closeAll tears down every subscription this session owned (spec
// §4.I.2: "On session close, all owned subscriptions are cancelled and
// active-key-sub counters decremented") and closes the connection.
func (s *Session) closeAll() {
	s.setState(StateClosing)
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[string]*ownedSub)
	s.mu.Unlock()

	for _, owned := range subs {
		owned.cancel()
		owned.sub.Close()
		s.apikeys.Subs.Release(s.key.Value)
	}
	_ = s.conn.Close()
	s.setState(StateClosed)
}
