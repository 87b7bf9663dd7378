package notify

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"clinic-booking-api/internal/metrics"
	"clinic-booking-api/internal/model"
)

type Options struct {
	Attempts int
	Timeout  time.Duration
	Backoff  time.Duration
}

// Notifier sends booking confirmations off the request path. Failures are
// logged and dropped after a bounded number of attempts.
type Notifier struct {
	sender  EmailSender
	log     zerolog.Logger
	metrics *metrics.Metrics
	opts    Options
	wg      sync.WaitGroup
}

func NewNotifier(sender EmailSender, opts Options, log zerolog.Logger, m *metrics.Metrics) *Notifier {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	return &Notifier{sender: sender, log: log, metrics: m, opts: opts}
}

// BookingConfirmed returns immediately; delivery happens on its own goroutine.
func (n *Notifier) BookingConfirmed(b model.Booking) {
	msg := ConfirmationEmail(b)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliver(msg, b.ID)
	}()
}

// Wait blocks until in-flight deliveries finish. Used on shutdown.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) deliver(msg EmailMessage, bookingID string) {
	var err error
	for attempt := 1; attempt <= n.opts.Attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), n.opts.Timeout)
		err = n.sender.Send(ctx, msg)
		cancel()
		if err == nil {
			n.metrics.ObserveNotification("sent")
			return
		}
		n.log.Warn().Err(err).Str("booking_id", bookingID).Int("attempt", attempt).Msg("booking email failed")
		if attempt < n.opts.Attempts {
			time.Sleep(time.Duration(attempt) * n.opts.Backoff)
		}
	}
	n.metrics.ObserveNotification("failed")
	n.log.Error().Err(err).Str("booking_id", bookingID).Str("to", msg.To).Msg("booking email dropped")
}

func ConfirmationEmail(b model.Booking) EmailMessage {
	name := b.PatientName
	if name == "" {
		name = b.Patient
	}
	return EmailMessage{
		To:      b.Patient,
		ToName:  b.PatientName,
		Subject: fmt.Sprintf("Your appointment for %s is confirmed", b.Treatment),
		Body: fmt.Sprintf("Hello %s,\n\nYour appointment for %s on %s at %s is confirmed.\n\nSee you soon.",
			name, b.Treatment, b.Date, b.Slot),
		HTML: fmt.Sprintf(`<p>Hello %s,</p><p>Your appointment for <strong>%s</strong> on %s at %s is confirmed.</p><p>See you soon.</p>`,
			html.EscapeString(name), html.EscapeString(b.Treatment), html.EscapeString(b.Date), html.EscapeString(b.Slot)),
	}
}
