package vosk

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/audio"
	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/transcribe"

	"github.com/gorilla/websocket"
)

const (
	chunkSizeDefault   = 8000
	readTimeoutDefault = 30 * time.Second
)

type Config struct {
	// The websocket URL of the Vosk server (e.g. ws://localhost:2700).
	ServerURL string
	// The language of the model loaded by the server. Vosk does not detect it.
	Language string
	// The size in bytes of each audio frame sent to the server.
	ChunkSize int
	// How long to wait for a message from the server.
	ReadTimeout time.Duration
}

func (c *Config) SetDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = chunkSizeDefault
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = readTimeoutDefault
	}
}

func (c Config) IsValid() error {
	if c.ServerURL == "" {
		return fmt.Errorf("invalid ServerURL: should not be empty")
	}

	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid ServerURL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid ServerURL: unsupported scheme %q", u.Scheme)
	}

	if c.ChunkSize <= 0 || c.ChunkSize%2 != 0 {
		return fmt.Errorf("invalid ChunkSize: should be a positive even number")
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("invalid ReadTimeout: should be positive")
	}

	return nil
}

type result struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
}

type Transcriber struct {
	cfg    Config
	dialer *websocket.Dialer
}

func NewTranscriber(cfg Config) (*Transcriber, error) {
	cfg.SetDefaults()
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return &Transcriber{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.ReadTimeout,
		},
	}, nil
}

// Transcribe streams the clip over a dedicated connection and joins the final
// results sent back by the server.
func (t *Transcriber) Transcribe(samples []float32) (transcribe.Result, error) {
	if len(samples) == 0 {
		return transcribe.Result{}, fmt.Errorf("samples should not be empty")
	}

	u := fmt.Sprintf("%s/ws?sample_rate=%d", strings.TrimSuffix(t.cfg.ServerURL, "/"), audio.SampleRate)
	conn, _, err := t.dialer.Dial(u, nil)
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("failed to connect to Vosk server: %w", err)
	}
	defer conn.Close()

	resCh := make(chan []string, 1)
	errCh := make(chan error, 1)
	go func() {
		texts, err := t.readResults(conn)
		if err != nil {
			errCh <- err
			return
		}
		resCh <- texts
	}()

	data := pcmBytes(samples)
	for off := 0; off < len(data); off += t.cfg.ChunkSize {
		end := min(off+t.cfg.ChunkSize, len(data))
		if err := conn.WriteMessage(websocket.BinaryMessage, data[off:end]); err != nil {
			return transcribe.Result{}, fmt.Errorf("failed to send audio to Vosk: %w", err)
		}
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"eof": 1}`)); err != nil {
		return transcribe.Result{}, fmt.Errorf("failed to send EOF to Vosk: %w", err)
	}

	select {
	case texts := <-resCh:
		return transcribe.Result{
			Text:     strings.Join(texts, " "),
			Language: t.cfg.Language,
		}, nil
	case err := <-errCh:
		return transcribe.Result{}, err
	}
}

// readResults reads messages until the server closes the connection after
// the end of stream.
func (t *Transcriber) readResults(conn *websocket.Conn) ([]string, error) {
	var texts []string
	for {
		if err := conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout)); err != nil {
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return texts, nil
			}
			return nil, fmt.Errorf("failed to read from Vosk server: %w", err)
		}

		var res result
		if err := json.Unmarshal(msg, &res); err != nil {
			slog.Warn("failed to parse Vosk result", slog.String("err", err.Error()))
			continue
		}

		if text := strings.TrimSpace(res.Text); text != "" {
			texts = append(texts, text)
		}
	}
}

func (t *Transcriber) Destroy() error {
	return nil
}

// pcmBytes converts samples to 16-bit little endian PCM.
func pcmBytes(samples []float32) []byte {
	pcm := audio.Buffer{Samples: samples, SampleRate: audio.SampleRate}.PCM16()
	data := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(s)))
	}
	return data
}
