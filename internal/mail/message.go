// Package mail answers worries that arrive by email: it reads the inbox over
// IMAP, runs matching messages through the counselor and replies over SMTP.
package mail

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomessagemail "github.com/emersion/go-message/mail"
)

// Message is the part of an inbound email the counselor needs.
type Message struct {
	ID      string // Message-ID without angle brackets, may be empty
	From    string // bare sender address
	Subject string // decoded
	Date    time.Time
	Body    string // first inline text/plain or text/html part
}

// Key identifies the message in the processed state. Messages without a
// Message-ID fall back to sender, date and subject.
func (m *Message) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return fmt.Sprintf("%s|%s|%s", m.From, m.Date.UTC().Format(time.RFC3339), m.Subject)
}

var errStopWalk = errors.New("stop walk")

// Parse reads a raw RFC 822 message. Unknown charsets are tolerated; the
// affected text is kept undecoded.
func Parse(r io.Reader) (*Message, error) {
	e, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("read message: %w", err)
	}

	h := gomessagemail.Header{Header: e.Header}
	m := &Message{}

	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		m.From = from[0].Address
	} else {
		m.From = strings.TrimSpace(h.Get("From"))
	}
	if subject, err := h.Subject(); err == nil {
		m.Subject = subject
	} else {
		m.Subject = h.Get("Subject")
	}
	if id, err := h.MessageID(); err == nil {
		m.ID = id
	}
	if date, err := h.Date(); err == nil {
		m.Date = date
	}

	body, err := firstTextPart(e)
	if err != nil {
		return nil, err
	}
	m.Body = strings.TrimSpace(body)
	return m, nil
}

func firstTextPart(e *message.Entity) (string, error) {
	var body string
	err := e.Walk(func(_ []int, part *message.Entity, err error) error {
		if err != nil {
			if message.IsUnknownCharset(err) {
				return nil
			}
			return err
		}
		mediaType, _, _ := part.Header.ContentType()
		if mediaType != "text/plain" && mediaType != "text/html" {
			return nil
		}
		if disp, _, _ := part.Header.ContentDisposition(); disp == "attachment" {
			return nil
		}
		b, err := io.ReadAll(part.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		body = string(b)
		return errStopWalk
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return "", fmt.Errorf("walk message: %w", err)
	}
	return body, nil
}

// ReplySubject prefixes the original subject. A subject that already starts
// with "Re:" is kept as is.
func ReplySubject(subject string) string {
	if len(subject) >= 3 && strings.EqualFold(subject[:3], "re:") {
		return subject
	}
	return "Re: " + subject
}
