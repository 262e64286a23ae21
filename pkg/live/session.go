package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxlate/voxlate/pkg/media"
)

const (
	// DefaultEndpoint is the bidirectional streaming endpoint.
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// DefaultHandshakeTimeout bounds the dial plus setup acknowledgment.
	DefaultHandshakeTimeout = 15 * time.Second
)

// State is the session lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ConnectConfig describes the session to establish. It is carried in
// the setup message sent right after the dial.
type ConnectConfig struct {
	// Model is the backend model id, e.g. "models/gemini-2.0-flash-exp".
	Model string

	// SystemInstruction primes the model for the whole session.
	SystemInstruction string

	// ResponseModalities selects the output kinds, e.g. "AUDIO".
	ResponseModalities []string

	// Voice picks the prebuilt output voice.
	Voice string

	// LanguageCode sets the speech language, e.g. "en-US".
	LanguageCode string

	// Tools are the function declarations the model may call.
	Tools []FunctionDeclaration

	// TranscribeInput and TranscribeOutput request streamed speech
	// transcriptions for the respective side.
	TranscribeInput  bool
	TranscribeOutput bool
}

// Session is one bidirectional streaming connection. A Session is
// restartable: after StateClosed or StateFailed, Connect may be called
// again. At most one connection is live at a time.
type Session struct {
	config  *sessionConfig
	emitter *Emitter

	mu    sync.Mutex
	state State
	conn  *websocket.Conn
	cur   *connState
}

// connState tracks one connection attempt so that a Disconnect aimed at
// it cannot leak into a later reconnect.
type connState struct {
	aborted atomic.Bool
}

type sessionConfig struct {
	apiKey           string
	endpoint         string
	handshakeTimeout time.Duration
}

// Option configures a Session.
type Option func(*sessionConfig)

// WithEndpoint overrides the WebSocket endpoint.
func WithEndpoint(url string) Option {
	return func(c *sessionConfig) { c.endpoint = url }
}

// WithHandshakeTimeout bounds the connect handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *sessionConfig) { c.handshakeTimeout = d }
}

// New creates an unconnected Session.
func New(apiKey string, opts ...Option) *Session {
	cfg := &sessionConfig{
		apiKey:           apiKey,
		endpoint:         DefaultEndpoint,
		handshakeTimeout: DefaultHandshakeTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Session{
		config:  cfg,
		emitter: NewEmitter(),
		state:   StateIdle,
	}
}

// Events returns the session's event bus.
func (s *Session) Events() *Emitter {
	return s.emitter
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect dials the endpoint, sends the setup message and waits for the
// acknowledgment. On success the session is StateOpen and inbound
// events start flowing on the bus. On failure the session is
// StateFailed and the returned error is a *ConnectError, except when
// Disconnect aborted the attempt, in which case it is ErrSessionClosed.
func (s *Session) Connect(ctx context.Context, cfg *ConnectConfig) error {
	if cfg == nil {
		cfg = &ConnectConfig{}
	}

	s.mu.Lock()
	if s.state == StateConnecting || s.state == StateOpen {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	cs := &connState{}
	s.cur = cs
	s.conn = nil
	s.state = StateConnecting
	s.mu.Unlock()

	conn, err := s.handshake(ctx, cfg, cs)
	if err != nil {
		s.mu.Lock()
		if cs.aborted.Load() {
			// Disconnect won; it already moved the state to Closed.
			s.mu.Unlock()
			return ErrSessionClosed
		}
		s.state = StateFailed
		s.mu.Unlock()
		return err
	}

	if !s.commitOpen(conn, cs) {
		return ErrSessionClosed
	}

	s.emitter.Emit(OpenEvent{})
	go s.readLoop(conn, cs)
	return nil
}

// commitOpen publishes the handshake's connection. When Disconnect
// landed between the ack and this commit, the attempt is abandoned and
// the session stays StateClosed.
func (s *Session) commitOpen(conn *websocket.Conn, cs *connState) bool {
	s.mu.Lock()
	if cs.aborted.Load() {
		s.conn = nil
		s.state = StateClosed
		s.mu.Unlock()
		conn.Close()
		return false
	}
	s.state = StateOpen
	s.mu.Unlock()
	return true
}

// handshake performs dial, setup and acknowledgment. It returns a
// classified *ConnectError on failure and leaves no dangling
// connection behind.
func (s *Session) handshake(ctx context.Context, cfg *ConnectConfig, cs *connState) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.config.handshakeTimeout,
	}
	url := s.config.endpoint + "?key=" + s.config.apiKey

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, classifyDialError(err, resp)
	}

	s.mu.Lock()
	if cs.aborted.Load() {
		s.mu.Unlock()
		conn.Close()
		return nil, connectError(KindHandshake, ErrSessionClosed)
	}
	// Published so Disconnect can abort the ack wait below.
	s.conn = conn
	s.mu.Unlock()

	// A canceled context must also unblock the ack read.
	dialDone := make(chan struct{})
	defer close(dialDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-dialDone:
		}
	}()

	if err := writeJSON(conn, setupMessage{Setup: buildSetup(cfg)}); err != nil {
		conn.Close()
		return nil, connectError(KindHandshake, fmt.Errorf("send setup: %w", err))
	}

	conn.SetReadDeadline(time.Now().Add(s.config.handshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, connectError(KindTimeout, fmt.Errorf("setup not acknowledged within %s", s.config.handshakeTimeout))
		}
		return nil, connectError(KindNetwork, fmt.Errorf("read setup ack: %w", err))
	}
	conn.SetReadDeadline(time.Time{})

	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.SetupComplete == nil {
		conn.Close()
		if err == nil {
			err = fmt.Errorf("unexpected first message %q", truncate(string(data), 200))
		}
		return nil, connectError(KindHandshake, err)
	}
	return conn, nil
}

func buildSetup(cfg *ConnectConfig) setupPayload {
	p := setupPayload{Model: cfg.Model}
	if cfg.SystemInstruction != "" {
		p.SystemInstruction = &wireContent{
			Parts: []wirePart{{Text: cfg.SystemInstruction}},
		}
	}
	gen := &generationConfig{ResponseModalities: cfg.ResponseModalities}
	if cfg.Voice != "" || cfg.LanguageCode != "" {
		gen.SpeechConfig = &speechConfig{LanguageCode: cfg.LanguageCode}
		if cfg.Voice != "" {
			gen.SpeechConfig.VoiceConfig = &voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice},
			}
		}
	}
	if len(gen.ResponseModalities) > 0 || gen.SpeechConfig != nil {
		p.GenerationConfig = gen
	}
	if len(cfg.Tools) > 0 {
		p.Tools = []wireTool{{FunctionDeclarations: cfg.Tools}}
	}
	if cfg.TranscribeInput {
		p.InputTranscript = &transcriptionConfig{}
	}
	if cfg.TranscribeOutput {
		p.OutputTranscript = &transcriptionConfig{}
	}
	return p
}

func classifyDialError(err error, resp *http.Response) *ConnectError {
	if resp != nil {
		kind := KindNetwork
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = KindAuth
		}
		return &ConnectError{Kind: kind, HTTPStatus: resp.StatusCode, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return connectError(KindTimeout, err)
	}
	return connectError(KindNetwork, err)
}

// SendRealtimeInput transmits a batch of media parts, preserving their
// order. Valid only while open; during StateConnecting the batch is
// silently dropped.
func (s *Session) SendRealtimeInput(parts []media.Part) error {
	return s.send(realtimeInputMessage{
		RealtimeInput: realtimeInputPayload{MediaChunks: parts},
	})
}

// SendText submits a complete user text turn.
func (s *Session) SendText(text string) error {
	return s.send(clientContentMessage{
		ClientContent: clientContentPayload{
			Turns: []wireContent{{
				Role:  "user",
				Parts: []wirePart{{Text: text}},
			}},
			TurnComplete: true,
		},
	})
}

// SendToolResponse answers one or more pending tool calls.
func (s *Session) SendToolResponse(responses ...FunctionResponse) error {
	return s.send(toolResponseMessage{
		ToolResponse: toolResponsePayload{FunctionResponses: responses},
	})
}

func (s *Session) send(msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateOpen:
	case StateConnecting:
		// Input races the handshake; dropping is the chosen policy.
		return nil
	default:
		return ErrNotConnected
	}
	return writeJSON(s.conn, msg)
}

// Disconnect tears the connection down. It is idempotent, safe from any
// state and any goroutine, and aborts an in-flight Connect. The session
// always ends up StateClosed.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.cur != nil {
		s.cur.aborted.Store(true)
	}
	conn := s.conn
	s.conn = nil
	s.state = StateClosed
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// readLoop decodes inbound messages and publishes them as events until
// the connection ends. It owns the terminal CloseEvent for connections
// that reached StateOpen.
func (s *Session) readLoop(conn *websocket.Conn, cs *connState) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if cs.aborted.Load() {
				s.emitter.Emit(CloseEvent{})
				return
			}
			err = fmt.Errorf("live: read: %w", err)
			s.mu.Lock()
			if s.cur == cs {
				s.state = StateFailed
				s.conn = nil
			}
			s.mu.Unlock()
			conn.Close()
			s.emitter.Emit(ErrorEvent{Err: err})
			s.emitter.Emit(CloseEvent{Err: err})
			return
		}

		if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
			slog.Debug("received message", "len", len(data), "content", truncate(string(data), 1000))
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("dropping malformed message", "error", err, "len", len(data))
			continue
		}
		s.dispatch(&msg, data)
	}
}

// dispatch publishes the events of one server message in wire order.
func (s *Session) dispatch(msg *serverMessage, raw []byte) {
	switch {
	case msg.ToolCall != nil:
		for _, fc := range msg.ToolCall.FunctionCalls {
			s.emitter.Emit(ToolCallEvent{ID: fc.ID, Name: fc.Name, Args: fc.Args})
		}

	case msg.ServerContent != nil:
		sc := msg.ServerContent
		if sc.Interrupted {
			s.emitter.Emit(InterruptedEvent{})
			return
		}
		if t := sc.InputTranscription; t != nil && t.Text != "" {
			s.emitter.Emit(TranscriptEvent{Text: t.Text, Final: t.Finished, Input: true})
		}
		if t := sc.OutputTranscription; t != nil && t.Text != "" {
			s.emitter.Emit(TranscriptEvent{Text: t.Text, Final: t.Finished})
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				s.emitPart(part)
			}
		}
		if sc.TurnComplete {
			s.emitter.Emit(TurnCompleteEvent{})
		}

	case msg.SetupComplete != nil:
		// Duplicate ack after the handshake; nothing to do.

	case msg.GoAway != nil:
		slog.Info("server announced shutdown")

	default:
		slog.Warn("dropping unrecognized message", "content", truncate(string(raw), 200))
	}
}

func (s *Session) emitPart(part wirePart) {
	if part.Text != "" {
		s.emitter.Emit(TextEvent{Text: part.Text})
		return
	}
	if d := part.InlineData; d != nil && strings.HasPrefix(d.MIMEType, "audio/pcm") {
		pcm, err := base64.StdEncoding.DecodeString(d.Data)
		if err != nil {
			slog.Warn("dropping undecodable audio part", "error", err)
			return
		}
		s.emitter.Emit(AudioEvent{Data: pcm})
	}
}

func writeJSON(conn *websocket.Conn, msg any) error {
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		if data, err := json.Marshal(msg); err == nil {
			slog.Debug("sending message", "content", truncate(string(data), 500))
		}
	}
	return conn.WriteJSON(msg)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
