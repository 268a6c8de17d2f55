package notification

import (
	"context"
	"log"
	"os"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/fx"
)

// InboundEmail is one message fetched from the portal mailbox.
type InboundEmail struct {
	MessageID string
	Subject   string
	From      string
	To        string
	Body      string
	Timestamp time.Time
}

// MailboxSource fetches unprocessed messages from the portal mailbox.
// The concrete IMAP transport lives outside this module; tests use an
// in-memory source.
type MailboxSource interface {
	Fetch(ctx context.Context) ([]InboundEmail, error)
}

// ThreadAppender files a matched reply into a grievance's email thread
// and comment list. The grievance repository satisfies it.
type ThreadAppender interface {
	AppendReply(ctx context.Context, trackingID, messageID, subject, from, to, body string, ts time.Time) error
}

var trackingIDInSubject = regexp.MustCompile(`GR-\d{4}`)

// ExtractTrackingID pulls a tracking ID out of an email subject line.
// Matching by subject is best-effort: replies that lose the ID are
// dropped by the listener.
func ExtractTrackingID(subject string) (string, bool) {
	id := trackingIDInSubject.FindString(subject)
	return id, id != ""
}

// InboundListener polls the mailbox and appends matched replies to their
// grievances. Unmatched messages are dropped.
type InboundListener struct {
	source   MailboxSource
	appender ThreadAppender
	interval time.Duration
}

func NewInboundListener(appender ThreadAppender) *InboundListener {
	interval := time.Minute
	if v, err := strconv.Atoi(os.Getenv("INBOUND_POLL_MINUTES")); err == nil && v > 0 {
		interval = time.Duration(v) * time.Minute
	}
	return &InboundListener{appender: appender, interval: interval}
}

// SetSource installs the mailbox transport. Without one the listener
// stays idle.
func (l *InboundListener) SetSource(source MailboxSource) {
	l.source = source
}

func (l *InboundListener) pollOnce(ctx context.Context) {
	emails, err := l.source.Fetch(ctx)
	if err != nil {
		log.Println("Failed to fetch inbound email:", err)
		return
	}
	for _, email := range emails {
		trackingID, ok := ExtractTrackingID(email.Subject)
		if !ok {
			continue
		}
		err := l.appender.AppendReply(ctx, trackingID, email.MessageID, email.Subject,
			email.From, email.To, email.Body, email.Timestamp)
		if err != nil {
			log.Printf("Failed to file reply for %s: %v", trackingID, err)
		}
	}
}

// Start runs the polling goroutine under the fx lifecycle. The listener
// runs in production mode only and needs a configured mailbox source.
func (l *InboundListener) Start(lc fx.Lifecycle) {
	if os.Getenv("APP_ENV") != "production" {
		log.Println("Inbound email listener disabled outside production")
		return
	}
	if l.source == nil {
		log.Println("Inbound email listener disabled: no mailbox source configured")
		return
	}

	ticker := time.NewTicker(l.interval)
	done := make(chan bool)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Printf("Starting inbound email listener (polling every %v)...", l.interval)
			go func() {
				pollCtx := context.Background()
				for {
					select {
					case <-ticker.C:
						l.pollOnce(pollCtx)
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping inbound email listener...")
			ticker.Stop()
			done <- true
			return nil
		},
	})
}
