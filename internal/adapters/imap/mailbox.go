package imap

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// MailboxClient is an IMAP implementation of the core MailboxClient interface.
// It is strictly read-only: bodies are fetched with BODY.PEEK so messages are
// never marked as read.
type MailboxClient struct {
	address  string
	username string
	password string
	folder   string
	logger   *zap.Logger
}

// NewMailboxClient creates a new IMAP mailbox client
func NewMailboxClient(address, username, password, folder string, logger *zap.Logger) *MailboxClient {
	if folder == "" {
		folder = "INBOX"
	}
	return &MailboxClient{
		address:  address,
		username: username,
		password: password,
		folder:   folder,
		logger:   logger,
	}
}

// FetchUnread returns up to maxCount unread messages in mailbox order.
// A fresh connection is dialed per call; the go-imap client carries no
// context, so cancellation is honored between protocol steps.
func (m *MailboxClient) FetchUnread(ctx context.Context, maxCount int) ([]*core.Email, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMailboxTransport, err)
	}

	c, err := client.DialTLS(m.address, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to dial %s: %v", core.ErrMailboxTransport, m.address, err)
	}
	defer func() {
		if err := c.Logout(); err != nil {
			m.logger.Debug("IMAP logout failed", zap.Error(err))
		}
	}()

	if err := c.Login(m.username, m.password); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMailboxAuth, err)
	}

	if _, err := c.Select(m.folder, true); err != nil {
		return nil, fmt.Errorf("%w: failed to select %s: %v", core.ErrMailboxTransport, m.folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %v", core.ErrMailboxTransport, err)
	}

	if len(uids) == 0 {
		m.logger.Info("No unread messages", zap.String("folder", m.folder))
		return []*core.Email{}, nil
	}

	// Keep the most recent maxCount messages, preserving mailbox order
	if maxCount > 0 && len(uids) > maxCount {
		uids = uids[len(uids)-maxCount:]
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMailboxTransport, err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	emails := make([]*core.Email, 0, len(uids))
	for msg := range messages {
		email := m.toEmail(msg, section)
		if email != nil {
			emails = append(emails, email)
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: fetch failed: %v", core.ErrMailboxTransport, err)
	}

	m.logger.Info("Fetched unread messages",
		zap.String("folder", m.folder),
		zap.Int("count", len(emails)))

	return emails, nil
}

// toEmail converts one IMAP message into the core representation. Messages
// whose body cannot be decoded still come back with envelope data so the
// pipeline can analyze subject and sender.
func (m *MailboxClient) toEmail(msg *imap.Message, section *imap.BodySectionName) *core.Email {
	if msg == nil {
		return nil
	}

	email := &core.Email{
		ID:          strconv.FormatUint(uint64(msg.Uid), 10),
		Attachments: []string{},
		ReceivedAt:  msg.InternalDate,
	}

	if msg.Envelope != nil {
		email.Subject = msg.Envelope.Subject
		if len(msg.Envelope.From) > 0 {
			email.From = msg.Envelope.From[0].Address()
		}
	}

	body := msg.GetBody(section)
	if body == nil {
		return email
	}

	mr, err := mail.CreateReader(body)
	if err != nil {
		m.logger.Warn("Failed to parse message body",
			zap.String("uid", email.ID),
			zap.Error(err))
		return email
	}

	var plainBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			m.logger.Debug("Skipping unreadable message part",
				zap.String("uid", email.ID),
				zap.Error(err))
			break
		}

		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := header.ContentType()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				plainBody += string(data)
			case strings.HasPrefix(contentType, "text/html"):
				htmlBody += string(data)
			}
		case *mail.AttachmentHeader:
			if filename, err := header.Filename(); err == nil && filename != "" {
				email.Attachments = append(email.Attachments, filename)
			}
		}
	}

	// Prefer the plain-text part; the normalizer strips markup from HTML
	if plainBody != "" {
		email.Body = plainBody
	} else {
		email.Body = htmlBody
	}

	return email
}
