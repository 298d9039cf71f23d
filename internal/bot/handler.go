package bot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/metricon/labelbot/internal/encoder"
	"golang.org/x/sync/errgroup"
	tele "gopkg.in/telebot.v3"
)

const renderTimeout = 30 * time.Second

func (b *Bot) handleStart(c tele.Context) error {
	return c.Send("Send a serial number to get its QR code and barcode.\n" +
		"The Print button opens the label page for printing.")
}

// handleSerial stores the incoming text as the sender's current serial and
// offers the two actions.
func (b *Bot) handleSerial(c tele.Context) error {
	serial := strings.TrimSpace(c.Text())
	if serial == "" {
		return c.Send("Send a non-empty serial number.")
	}
	// Unregistered commands fall through to OnText; they are not serials.
	if strings.HasPrefix(serial, "/") {
		return c.Send("Unknown command. Send a serial number to encode it.")
	}

	b.sessions.Put(c.Sender().ID, serial)

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(btnSendToChat, btnPrint))
	return c.Send(fmt.Sprintf("Serial: %s", serial), markup)
}

// handleSendToChat renders both symbologies concurrently and uploads the
// two PNGs. If either render fails, nothing is sent.
func (b *Bot) handleSendToChat(c tele.Context) error {
	serial, err := b.sessions.Get(c.Sender().ID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{
			Text:      "Session expired. Send the serial number again.",
			ShowAlert: true,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
	defer cancel()

	var qrPNG, barPNG []byte
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		qrPNG, err = b.pool.Render(ctx, func() ([]byte, error) { return encoder.QRPNG(serial) })
		return err
	})
	g.Go(func() error {
		var err error
		barPNG, err = b.pool.Render(ctx, func() ([]byte, error) { return encoder.BarcodePNG(serial) })
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Error("label render failed", "serial", serial, "error", err)
		return c.Respond(&tele.CallbackResponse{
			Text:      "Could not encode that serial number.",
			ShowAlert: true,
		})
	}

	if err := c.Send(document(qrPNG, serial+"_qr.png")); err != nil {
		return err
	}
	if err := c.Send(document(barPNG, serial+"_barcode.png")); err != nil {
		return err
	}
	return c.Respond()
}

// handlePrint replies with a Mini App button opening the print page with
// the serial in the query string. The encoder is not involved; the page
// renders the code client-side.
func (b *Bot) handlePrint(c tele.Context) error {
	serial, err := b.sessions.Get(c.Sender().ID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{
			Text:      "Session expired. Send the serial number again.",
			ShowAlert: true,
		})
	}

	if b.cfg.WebAppURL == "" {
		return c.Respond(&tele.CallbackResponse{Text: "Print page is not configured."})
	}

	q := url.Values{}
	q.Set("data", serial)

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.WebApp("Open for printing", &tele.WebApp{
		URL: b.cfg.WebAppURL + "?" + q.Encode(),
	})))

	if err := c.Send("Print:", markup); err != nil {
		return err
	}
	return c.Respond()
}

func document(png []byte, name string) *tele.Document {
	return &tele.Document{
		File:     tele.FromReader(bytes.NewReader(png)),
		FileName: name,
	}
}
