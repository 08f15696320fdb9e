package factory

import (
	"fmt"

	"github.com/mikey/llm-mail-triage/internal/adapters/imap"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// MailboxFactory creates mailbox clients
type MailboxFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailboxFactory creates a new mailbox factory
func NewMailboxFactory(cfg *config.Config, logger *zap.Logger) *MailboxFactory {
	return &MailboxFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailboxClient creates a new IMAP mailbox client
func (f *MailboxFactory) CreateMailboxClient() (core.MailboxClient, error) {
	mailboxCfg := f.cfg.GetMailbox()

	if mailboxCfg.Address == "" {
		return nil, fmt.Errorf("mailbox.address is not configured")
	}
	if mailboxCfg.Username == "" || mailboxCfg.Password == "" {
		return nil, fmt.Errorf("mailbox credentials are not configured")
	}

	return imap.NewMailboxClient(
		mailboxCfg.Address,
		mailboxCfg.Username,
		mailboxCfg.Password,
		mailboxCfg.Folder,
		f.logger,
	), nil
}
