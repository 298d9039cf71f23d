// Package metrics is a non-blocking client for a Metricon telemetry server.
//
// Events are buffered in memory and shipped in batches from a background
// goroutine; a second goroutine posts periodic heartbeats with process
// CPU and memory figures. Delivery failures are logged and the batch is
// dropped. Telemetry never blocks a handler and never fails the bot: a nil
// *Client is a valid no-op client, which is what New returns when the
// server URL or API key are not configured.
package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"
	tele "gopkg.in/telebot.v3"
)

const (
	heartbeatInterval = 30 * time.Second
	batchInterval     = 5 * time.Second
	maxBatchSize      = 50 // force-flush threshold

	defaultTimeout = 5 * time.Second
)

// Config identifies the bot to a Metricon server.
type Config struct {
	ServerURL string
	APIKey    string
	BotName   string
	Timeout   time.Duration
}

// Event is a single telemetry record.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"` // "request", "error" or "metric"
	Command    string    `json:"command,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Success    bool      `json:"success"`
	Name       string    `json:"name,omitempty"`
	Value      float64   `json:"value,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Client batches events and sends them to the server. All methods are safe
// on a nil receiver.
type Client struct {
	cfg  Config
	http *http.Client
	proc *process.Process

	mu    sync.Mutex
	batch []Event

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// New builds a client, or nil (disabled telemetry) when the server URL or
// API key are empty.
func New(cfg Config) *Client {
	if cfg.ServerURL == "" || cfg.APIKey == "" {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		slog.Warn("metrics: process stats unavailable", "error", err)
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		proc: proc,
		stop: make(chan struct{}),
	}
}

// Start launches the heartbeat and flush loops.
func (c *Client) Start() {
	if c == nil {
		return
	}
	c.wg.Add(2)
	go c.loop(heartbeatInterval, c.heartbeat)
	go c.loop(batchInterval, c.flush)
	slog.Info("metrics: client started", "server", c.cfg.ServerURL, "bot", c.cfg.BotName)
}

// Stop halts both loops and flushes whatever is still buffered.
func (c *Client) Stop() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.stop) })
	c.wg.Wait()
	c.flush()
}

// TrackRequest records one handled update.
func (c *Client) TrackRequest(command string, durationMS int64, userID string, success bool) {
	if c == nil {
		return
	}
	c.add(Event{
		Type:       "request",
		Command:    command,
		UserID:     userID,
		DurationMS: durationMS,
		Success:    success,
	})
}

// TrackError records a handler failure.
func (c *Client) TrackError(err error, command string) {
	if c == nil || err == nil {
		return
	}
	c.add(Event{
		Type:    "error",
		Command: command,
		Error:   err.Error(),
	})
}

// TrackMetric records an arbitrary named value.
func (c *Client) TrackMetric(name string, value float64) {
	if c == nil {
		return
	}
	c.add(Event{
		Type:    "metric",
		Name:    name,
		Value:   value,
		Success: true,
	})
}

// Track wraps a telebot handler, timing it and recording its outcome under
// the given command label.
func (c *Client) Track(command string, next tele.HandlerFunc) tele.HandlerFunc {
	if c == nil {
		return next
	}
	return func(tc tele.Context) error {
		start := time.Now()
		err := next(tc)

		var userID string
		if sender := tc.Sender(); sender != nil {
			userID = strconv.FormatInt(sender.ID, 10)
		}
		c.TrackRequest(command, time.Since(start).Milliseconds(), userID, err == nil)
		if err != nil {
			c.TrackError(err, command)
		}
		return err
	}
}

func (c *Client) add(ev Event) {
	ev.ID = uuid.NewString()
	ev.Timestamp = time.Now().UTC()

	c.mu.Lock()
	c.batch = append(c.batch, ev)
	full := len(c.batch) >= maxBatchSize
	c.mu.Unlock()

	if full {
		go c.flush()
	}
}

func (c *Client) loop(interval time.Duration, fn func()) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn()
		case <-c.stop:
			return
		}
	}
}

func (c *Client) flush() {
	c.mu.Lock()
	if len(c.batch) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.batch
	c.batch = nil
	c.mu.Unlock()

	payload := struct {
		BotName string  `json:"bot_name"`
		Events  []Event `json:"events"`
	}{BotName: c.cfg.BotName, Events: batch}

	if err := c.post("/api/events/batch", payload); err != nil {
		slog.Warn("metrics: batch dropped", "events", len(batch), "error", err)
	}
}

func (c *Client) heartbeat() {
	hb := struct {
		BotName    string    `json:"bot_name"`
		CPUPercent float64   `json:"cpu_percent"`
		RSSBytes   uint64    `json:"rss_bytes"`
		Timestamp  time.Time `json:"timestamp"`
	}{BotName: c.cfg.BotName, Timestamp: time.Now().UTC()}

	if c.proc != nil {
		if cpu, err := c.proc.CPUPercent(); err == nil {
			hb.CPUPercent = cpu
		}
		if mem, err := c.proc.MemoryInfo(); err == nil {
			hb.RSSBytes = mem.RSS
		}
	}

	if err := c.post("/api/heartbeat", hb); err != nil {
		slog.Warn("metrics: heartbeat failed", "error", err)
	}
}

func (c *Client) post(path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.cfg.ServerURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
