package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Fetcher returns inbound messages received since a point in time.
type Fetcher interface {
	Recent(ctx context.Context, since time.Time) ([]*Message, error)
}

// IMAP reads the INBOX over implicit TLS.
type IMAP struct {
	addr     string
	account  string
	password string
	logger   *slog.Logger
}

// NewIMAP connects to server, which may omit the port (993 is assumed).
func NewIMAP(server, account, password string, logger *slog.Logger) *IMAP {
	addr := server
	if _, _, err := net.SplitHostPort(server); err != nil {
		addr = net.JoinHostPort(server, "993")
	}
	return &IMAP{addr: addr, account: account, password: password, logger: logger}
}

// Recent searches INBOX with SINCE and fetches the full messages. IMAP SINCE
// has day granularity; Processor drops messages dated before since.
// Fetching marks the messages seen.
func (m *IMAP) Recent(ctx context.Context, since time.Time) ([]*Message, error) {
	c, err := client.DialTLS(m.addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial imap %s: %w", m.addr, err)
	}
	defer c.Logout()

	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	defer stop()

	if err := c.Login(m.account, m.password); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("select inbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	m.logger.Info("imap search complete", "since", since.Format("02-Jan-2006"), "matches", len(uids))
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{}

	fetched := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, []imap.FetchItem{section.FetchItem()}, fetched)
	}()

	var out []*Message
	for msg := range fetched {
		body := msg.GetBody(section)
		if body == nil {
			m.logger.Warn("imap message without body", "uid", msg.Uid)
			continue
		}
		parsed, err := Parse(body)
		if err != nil {
			m.logger.Warn("skipping unparseable message", "uid", msg.Uid, "error", err)
			continue
		}
		out = append(out, parsed)
	}
	if err := <-done; err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("imap fetch: %w", err)
	}
	return out, nil
}
