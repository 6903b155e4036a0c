package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/leonardotrapani/hyprscribe/internal/logging"
)

const voskReadTimeout = 10 * time.Second

type voskConfigMessage struct {
	Config voskConfig `json:"config"`
}

type voskConfig struct {
	SampleRate int `json:"sample_rate"`
	Words      int `json:"words"`
}

// VoskServerAdapter speaks the vosk-server websocket protocol: a config message, binary
// PCM frames each answered by one JSON result, and {"eof": 1} for the final result.
type VoskServerAdapter struct {
	url    string
	logger zerolog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	eofSent bool
	closed  bool
}

var _ Adapter = (*VoskServerAdapter)(nil)

// DialVoskServer connects to a running vosk-server and sends the stream configuration.
func DialVoskServer(ctx context.Context, serverURL string, sampleRate int) (*VoskServerAdapter, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("vosk-server: no server url configured")
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	logger := logging.WithComponent("vosk-server")
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		if resp != nil {
			logger.Error().Int("status", resp.StatusCode).Msg("dial failed")
		}
		return nil, fmt.Errorf("vosk-server: websocket dial: %w", err)
	}

	msg := voskConfigMessage{Config: voskConfig{SampleRate: sampleRate, Words: 1}}
	if err := conn.WriteJSON(msg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("vosk-server: send config: %w", err)
	}

	logger.Info().Str("url", serverURL).Int("sample_rate", sampleRate).Msg("connected")
	return &VoskServerAdapter{url: serverURL, conn: conn, logger: logger}, nil
}

func (a *VoskServerAdapter) Feed(chunk []byte) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.eofSent {
		return Result{}, fmt.Errorf("vosk-server: stream finished")
	}
	if err := a.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return Result{}, fmt.Errorf("vosk-server: write: %w", err)
	}
	return a.readResultLocked()
}

func (a *VoskServerAdapter) Flush() (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.eofSent {
		return Result{}, nil
	}
	a.eofSent = true
	if err := a.conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		return Result{}, fmt.Errorf("vosk-server: write eof: %w", err)
	}
	return a.readResultLocked()
}

func (a *VoskServerAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	_ = a.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := a.conn.Close()
	a.logger.Info().Msg("closed")
	return err
}

func (a *VoskServerAdapter) readResultLocked() (Result, error) {
	_ = a.conn.SetReadDeadline(time.Now().Add(voskReadTimeout))
	_, message, err := a.conn.ReadMessage()
	if err != nil {
		return Result{}, fmt.Errorf("vosk-server: read: %w", err)
	}
	var res Result
	if err := json.Unmarshal(message, &res); err != nil {
		return Result{}, fmt.Errorf("vosk-server: parse result: %w", err)
	}
	return res, nil
}
