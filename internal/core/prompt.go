package core

import (
	"fmt"
)

// promptFormat instructs the model to answer in labeled fields so the parser
// can validate structurally. The tier enumeration is closed; anything else is
// rejected downstream.
const promptFormat = `You are an email triage assistant. Classify the following email and respond using exactly this labeled format:

TIER: <one of VERY_IMPORTANT, IMPORTANT, UNIMPORTANT, SPAM>
SUMMARY: <one or two sentences limited to actionable content: dates, amounts, IDs, required actions>
DEADLINES: <comma-separated explicit date/time strings, or "none">
LINKS: <comma-separated important URLs (meeting, booking or action links), or "none">

Classification rules:
- VERY_IMPORTANT: has a specific deadline AND requires critical action from the recipient.
- IMPORTANT: useful information needed later (meeting invitations, confirmations, assignments, invoices not due immediately).
- UNIMPORTANT: informational only, no action needed (newsletters, notifications, casual mail).
- SPAM: marketing or promotional content, regardless of sender.

Email:
From: %s
Subject: %s
Has attachment: %t
Contains links: %t
Body:
%s

Respond only with the labeled fields and nothing else.`

// PromptBuilder renders normalized emails into model instructions.
// Build is pure and deterministic for a fixed template.
type PromptBuilder struct{}

// NewPromptBuilder creates a new PromptBuilder
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// Build renders the instruction prompt for one normalized email
func (b *PromptBuilder) Build(unit *NormalizedEmail) string {
	return fmt.Sprintf(promptFormat,
		unit.Sender,
		unit.Subject,
		unit.HasAttachment,
		unit.HasLink,
		unit.Body,
	)
}
