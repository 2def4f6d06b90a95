// Package listener polls the dispatch mailbox and feeds unseen messages
// into the inbound pipeline. One goroutine, one connection; messages
// are marked seen only after their derived rows are committed.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"gcd-backend/usecase"
)

type Config struct {
	Host              string
	Port              int
	Username          string
	Password          string
	Mailbox           string
	PollInterval      time.Duration
	ReconnectInterval time.Duration
	// DialTimeout bounds the TLS connect; CommandTimeout bounds every
	// IMAP round trip so a stalled server cannot wedge the poll loop.
	DialTimeout    time.Duration
	CommandTimeout time.Duration
}

func (c Config) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type Listener struct {
	cfg     Config
	inbound *usecase.InboundUsecase
	log     *slog.Logger
	client  *client.Client
}

func New(cfg Config, inbound *usecase.InboundUsecase, log *slog.Logger) *Listener {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = 5 * time.Second
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 30 * time.Second
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 60 * time.Second
	}
	return &Listener{cfg: cfg, inbound: inbound, log: log}
}

// Run loops until the context is cancelled. Connection failures drop
// the client, wait out the reconnect interval and try again; the loop
// never terminates on a transport error.
func (l *Listener) Run(ctx context.Context) error {
	defer l.disconnect()

	l.log.Info("inbound listener started", "host", l.cfg.Host, "mailbox", l.cfg.Mailbox)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if l.client == nil {
			if err := l.connect(); err != nil {
				l.log.Warn("imap connect failed", "error", err)
				if !sleepCtx(ctx, l.cfg.ReconnectInterval) {
					return nil
				}
				continue
			}
		}
		if err := l.poll(ctx); err != nil {
			l.log.Warn("imap poll failed, reconnecting", "error", err)
			l.disconnect()
			if !sleepCtx(ctx, l.cfg.ReconnectInterval) {
				return nil
			}
			continue
		}
		if !sleepCtx(ctx, l.cfg.PollInterval) {
			return nil
		}
	}
}

func (l *Listener) connect() error {
	dialer := &net.Dialer{Timeout: l.cfg.DialTimeout}
	c, err := client.DialWithDialerTLS(dialer, l.cfg.addr(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.cfg.addr(), err)
	}
	c.Timeout = l.cfg.CommandTimeout
	if err := c.Login(l.cfg.Username, l.cfg.Password); err != nil {
		c.Logout()
		return fmt.Errorf("login %s: %w", l.cfg.Username, err)
	}
	if _, err := c.Select(l.cfg.Mailbox, false); err != nil {
		c.Logout()
		return fmt.Errorf("select %s: %w", l.cfg.Mailbox, err)
	}
	l.client = c
	l.log.Info("imap connected", "mailbox", l.cfg.Mailbox)
	return nil
}

func (l *Listener) disconnect() {
	if l.client == nil {
		return
	}
	// Best effort; the server drops the session either way.
	_ = l.client.Logout()
	l.client = nil
}

// poll fetches every unseen message and routes it. A message is marked
// seen when ProcessInbound returned cleanly, or when it could not even
// be parsed; a processing error leaves it unseen for the next cycle.
func (l *Listener) poll(ctx context.Context) error {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := l.client.Search(criteria)
	if err != nil {
		return fmt.Errorf("search unseen: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem()}

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- l.client.Fetch(seqset, items, messages)
	}()

	for msg := range messages {
		if ctx.Err() != nil {
			break
		}
		body := msg.GetBody(section)
		if body == nil {
			l.log.Warn("fetched message without body section", "seq", msg.SeqNum)
			l.markSeen(msg.SeqNum)
			continue
		}
		in, err := ParseMessage(body)
		if err != nil {
			l.log.Warn("unparseable inbound message", "seq", msg.SeqNum, "error", err)
			l.markSeen(msg.SeqNum)
			continue
		}
		if err := l.inbound.ProcessInbound(ctx, in); err != nil {
			l.log.Error("inbound processing failed", "seq", msg.SeqNum, "error", err)
			continue
		}
		l.markSeen(msg.SeqNum)
	}
	return <-done
}

func (l *Listener) markSeen(seqNum uint32) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(seqNum)
	op := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := l.client.Store(seqset, op, []interface{}{imap.SeenFlag}, nil); err != nil {
		l.log.Warn("mark seen failed", "seq", seqNum, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
