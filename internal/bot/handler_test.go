package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/metricon/labelbot/internal/config"
	"github.com/metricon/labelbot/internal/encoder"
	"github.com/metricon/labelbot/internal/session"
	tele "gopkg.in/telebot.v3"
)

// MockContext definition for internal use
type MockContext struct {
	tele.Context
	TextVal   string
	SenderVal *tele.User

	Sent      []interface{}
	SentOpts  [][]interface{}
	Responses []*tele.CallbackResponse
}

func (m *MockContext) Text() string       { return m.TextVal }
func (m *MockContext) Sender() *tele.User { return m.SenderVal }

func (m *MockContext) Send(what interface{}, opts ...interface{}) error {
	m.Sent = append(m.Sent, what)
	m.SentOpts = append(m.SentOpts, opts)
	return nil
}

func (m *MockContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) > 0 {
		m.Responses = append(m.Responses, resp[0])
	} else {
		m.Responses = append(m.Responses, &tele.CallbackResponse{})
	}
	return nil
}

func newTestBot(t *testing.T) *Bot {
	t.Helper()

	sessions := session.NewStore(time.Minute)
	t.Cleanup(sessions.Close)

	pool := encoder.NewPool(2, 4)
	t.Cleanup(pool.Close)

	return &Bot{
		sessions: sessions,
		pool:     pool,
		cfg:      &config.Config{WebAppURL: "https://labels.example.com/print"},
	}
}

func TestBotHandlers(t *testing.T) {
	user := &tele.User{ID: 100}

	t.Run("Serial Stored With Keyboard", func(t *testing.T) {
		b := newTestBot(t)
		ctx := &MockContext{TextVal: "  SN-001  ", SenderVal: user}
		if err := b.handleSerial(ctx); err != nil {
			t.Fatal(err)
		}

		serial, err := b.sessions.Get(user.ID)
		if err != nil {
			t.Fatal(err)
		}
		if serial != "SN-001" {
			t.Errorf("stored %q, want trimmed %q", serial, "SN-001")
		}

		msg := ctx.Sent[0].(string)
		if !strings.Contains(msg, "SN-001") {
			t.Errorf("reply should echo the serial, got: %s", msg)
		}

		if len(ctx.SentOpts[0]) == 0 {
			t.Fatal("expected a reply markup")
		}
		markup := ctx.SentOpts[0][0].(*tele.ReplyMarkup)
		if len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 2 {
			t.Errorf("expected one row of two buttons, got %v", markup.InlineKeyboard)
		}
	})

	t.Run("Empty Serial Rejected", func(t *testing.T) {
		b := newTestBot(t)
		ctx := &MockContext{TextVal: "   ", SenderVal: user}
		if err := b.handleSerial(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := b.sessions.Get(user.ID); err == nil {
			t.Error("whitespace-only serial should not be stored")
		}
	})

	t.Run("Command Not Stored As Serial", func(t *testing.T) {
		b := newTestBot(t)
		ctx := &MockContext{TextVal: "/help", SenderVal: user}
		if err := b.handleSerial(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := b.sessions.Get(user.ID); err == nil {
			t.Error("commands must not be stored as serials")
		}
		msg := ctx.Sent[0].(string)
		if !strings.Contains(msg, "Unknown command") {
			t.Errorf("expected unknown-command reply, got: %s", msg)
		}
	})

	t.Run("Send To Chat Without Serial", func(t *testing.T) {
		b := newTestBot(t)
		ctx := &MockContext{SenderVal: user}
		if err := b.handleSendToChat(ctx); err != nil {
			t.Fatal(err)
		}

		if len(ctx.Sent) != 0 {
			t.Errorf("no images should be sent without a session serial, got %d sends", len(ctx.Sent))
		}
		if len(ctx.Responses) != 1 || !strings.Contains(ctx.Responses[0].Text, "again") {
			t.Errorf("expected an expiry alert, got %+v", ctx.Responses)
		}
	})

	t.Run("Send To Chat Uploads Both Images", func(t *testing.T) {
		b := newTestBot(t)
		b.sessions.Put(user.ID, "SN-001")

		ctx := &MockContext{SenderVal: user}
		if err := b.handleSendToChat(ctx); err != nil {
			t.Fatal(err)
		}

		if len(ctx.Sent) != 2 {
			t.Fatalf("expected two documents, got %d", len(ctx.Sent))
		}
		qr := ctx.Sent[0].(*tele.Document)
		bar := ctx.Sent[1].(*tele.Document)
		if qr.FileName != "SN-001_qr.png" {
			t.Errorf("qr filename = %q", qr.FileName)
		}
		if bar.FileName != "SN-001_barcode.png" {
			t.Errorf("barcode filename = %q", bar.FileName)
		}
	})

	t.Run("Send To Chat Encode Failure Sends Nothing", func(t *testing.T) {
		b := newTestBot(t)
		// QR accepts this, Code128 does not; neither image may be sent.
		b.sessions.Put(user.ID, "серийный")

		ctx := &MockContext{SenderVal: user}
		if err := b.handleSendToChat(ctx); err != nil {
			t.Fatal(err)
		}

		if len(ctx.Sent) != 0 {
			t.Errorf("partial results must not be sent, got %d sends", len(ctx.Sent))
		}
		if len(ctx.Responses) != 1 {
			t.Errorf("expected a failure alert, got %+v", ctx.Responses)
		}
	})

	t.Run("Print Replies With WebApp URL", func(t *testing.T) {
		b := newTestBot(t)
		b.sessions.Put(user.ID, "AB 12")

		ctx := &MockContext{SenderVal: user}
		if err := b.handlePrint(ctx); err != nil {
			t.Fatal(err)
		}

		if len(ctx.SentOpts) != 1 || len(ctx.SentOpts[0]) == 0 {
			t.Fatal("expected a reply with markup")
		}
		markup := ctx.SentOpts[0][0].(*tele.ReplyMarkup)
		btn := markup.InlineKeyboard[0][0]
		if btn.WebApp == nil {
			t.Fatal("expected a WebApp button")
		}
		want := "https://labels.example.com/print?data=AB+12"
		if btn.WebApp.URL != want {
			t.Errorf("webapp url = %q, want %q", btn.WebApp.URL, want)
		}
	})

	t.Run("Print Without Serial", func(t *testing.T) {
		b := newTestBot(t)
		ctx := &MockContext{SenderVal: user}
		if err := b.handlePrint(ctx); err != nil {
			t.Fatal(err)
		}
		if len(ctx.Sent) != 0 {
			t.Error("no reply should be sent without a session serial")
		}
		if len(ctx.Responses) != 1 || !strings.Contains(ctx.Responses[0].Text, "again") {
			t.Errorf("expected an expiry alert, got %+v", ctx.Responses)
		}
	})
}
