// Package bot dispatches Telegram updates: it stores incoming serial
// numbers, renders them as QR/Code128 labels on demand, and hands off to
// the print page Mini App.
package bot

import (
	"log/slog"
	"time"

	"github.com/metricon/labelbot/internal/config"
	"github.com/metricon/labelbot/internal/encoder"
	"github.com/metricon/labelbot/internal/metrics"
	"github.com/metricon/labelbot/internal/session"
	tele "gopkg.in/telebot.v3"
)

type Bot struct {
	api      *tele.Bot
	sessions *session.Store
	pool     *encoder.Pool
	metrics  *metrics.Client
	cfg      *config.Config
}

var (
	btnSendToChat = tele.Btn{Text: "Send to chat", Unique: "send_chat"}
	btnPrint      = tele.Btn{Text: "Print", Unique: "print"}
)

func New(cfg *config.Config, sessions *session.Store, pool *encoder.Pool, mc *metrics.Client) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.BotToken,
		Poller: newPoller(cfg),
	}

	api, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	b := &Bot{api: api, sessions: sessions, pool: pool, metrics: mc, cfg: cfg}
	b.register()
	return b, nil
}

// newPoller picks the transport: webhook when a public URL and port are
// configured, long-polling otherwise.
func newPoller(cfg *config.Config) tele.Poller {
	if cfg.WebhookMode() {
		return &tele.Webhook{
			Listen:   ":" + cfg.Port,
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	}
	return &tele.LongPoller{Timeout: 10 * time.Second}
}

func (b *Bot) Start() {
	slog.Info("bot online", "username", b.api.Me.Username, "webhook", b.cfg.WebhookMode())
	b.api.Start()
}

func (b *Bot) Stop() {
	b.api.Stop()
}

func (b *Bot) register() {
	b.api.Handle("/start", b.track("/start", b.handleStart))
	b.api.Handle(tele.OnText, b.track("serial", b.handleSerial))
	b.api.Handle(&btnSendToChat, b.track("send_chat", b.handleSendToChat))
	b.api.Handle(&btnPrint, b.track("print", b.handlePrint))
}

func (b *Bot) track(command string, h tele.HandlerFunc) tele.HandlerFunc {
	return b.metrics.Track(command, h)
}
