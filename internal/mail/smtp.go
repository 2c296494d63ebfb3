package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Sender delivers an HTML reply to one recipient.
type Sender interface {
	Send(reply Reply) error
}

// Reply is an outbound answer to an inbound Message.
type Reply struct {
	To        string
	Subject   string
	HTML      string
	InReplyTo string // Message-ID of the worry, optional
}

// NewReply addresses a reply to m.
func NewReply(m *Message, html string) Reply {
	return Reply{
		To:        m.From,
		Subject:   ReplySubject(m.Subject),
		HTML:      html,
		InReplyTo: m.ID,
	}
}

// SMTP sends through a submission server; gomail upgrades to STARTTLS when
// the server offers it.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTP(host string, port int, account, password string) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(host, port, account, password),
		from:   account,
	}
}

func (s *SMTP) Send(reply Reply) error {
	if err := s.dialer.DialAndSend(buildMessage(s.from, reply)); err != nil {
		return fmt.Errorf("send reply to %s: %w", reply.To, err)
	}
	return nil
}

func buildMessage(from string, reply Reply) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", reply.To)
	m.SetHeader("Subject", reply.Subject)
	if reply.InReplyTo != "" {
		ref := "<" + reply.InReplyTo + ">"
		m.SetHeader("In-Reply-To", ref)
		m.SetHeader("References", ref)
	}
	m.SetBody("text/html", reply.HTML)
	return m
}
