package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdictLabeledResponse(t *testing.T) {
	verdict, err := ParseVerdict("TIER: IMPORTANT\nSUMMARY: Pay invoice\nDEADLINE: 2024-05-01\nLINKS: none")
	require.NoError(t, err)

	assert.Equal(t, TierImportant, verdict.Tier)
	assert.Equal(t, "Pay invoice", verdict.Summary)
	assert.Equal(t, []string{"2024-05-01"}, verdict.Deadlines)
	assert.Equal(t, []string{}, verdict.Links)
}

func TestParseVerdictTierVariants(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Tier
	}{
		{
			name: "lowercase tier",
			text: "tier: spam\nsummary: Discount offer",
			want: TierSpam,
		},
		{
			name: "extra whitespace",
			text: "TIER:    UNIMPORTANT   \nSUMMARY: Newsletter",
			want: TierUnimportant,
		},
		{
			name: "trailing period",
			text: "TIER: VERY_IMPORTANT.\nSUMMARY: Server down",
			want: TierVeryImportant,
		},
		{
			name: "space instead of underscore",
			text: "TIER: very important\nSUMMARY: Meeting at 2PM today",
			want: TierVeryImportant,
		},
		{
			name: "hyphenated",
			text: "TIER: VERY-IMPORTANT\nSUMMARY: Payment due tomorrow",
			want: TierVeryImportant,
		},
		{
			name: "markdown bold label",
			text: "**TIER**: IMPORTANT\nSUMMARY: Flight confirmation",
			want: TierImportant,
		},
		{
			name: "importance_level label variant",
			text: "IMPORTANCE_LEVEL: SPAM\nSUMMARY: Promotion",
			want: TierSpam,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := ParseVerdict(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, verdict.Tier)
		})
	}
}

func TestParseVerdictMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "unrecognized tier",
			text: "TIER: URGENT\nSUMMARY: Do something",
		},
		{
			name: "missing tier field",
			text: "SUMMARY: Pay invoice\nDEADLINES: none",
		},
		{
			name: "empty tier value",
			text: "TIER:\nSUMMARY: Pay invoice",
		},
		{
			name: "free prose without labels",
			text: "This email looks important, you should read it soon.",
		},
		{
			name: "empty response",
			text: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVerdict(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse))
		})
	}
}

func TestParseVerdictLists(t *testing.T) {
	verdict, err := ParseVerdict(
		"TIER: IMPORTANT\n" +
			"SUMMARY: Submit report and book travel\n" +
			"DEADLINES: 2024-05-01, 2024-05-15 17:00\n" +
			"LINKS: https://example.com/report; https://example.com/booking")
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-05-01", "2024-05-15 17:00"}, verdict.Deadlines)
	assert.Equal(t, []string{"https://example.com/report", "https://example.com/booking"}, verdict.Links)
}

func TestParseVerdictMissingListsAreEmpty(t *testing.T) {
	verdict, err := ParseVerdict("TIER: UNIMPORTANT\nSUMMARY: Weekly newsletter")
	require.NoError(t, err)

	assert.NotNil(t, verdict.Deadlines)
	assert.NotNil(t, verdict.Links)
	assert.Empty(t, verdict.Deadlines)
	assert.Empty(t, verdict.Links)
}

func TestParseVerdictNonePlaceholders(t *testing.T) {
	for _, placeholder := range []string{"none", "None", "NONE", "n/a", "-", "No deadlines"} {
		verdict, err := ParseVerdict("TIER: SPAM\nSUMMARY: Sale\nDEADLINES: " + placeholder + "\nLINKS: none")
		require.NoError(t, err, "placeholder %q", placeholder)
		assert.Empty(t, verdict.Deadlines, "placeholder %q", placeholder)
	}
}

func TestParseVerdictMultilineSummary(t *testing.T) {
	verdict, err := ParseVerdict(
		"TIER: IMPORTANT\n" +
			"SUMMARY: Invoice #1042 for $350 is attached.\n" +
			"Payment is expected within 30 days.\n" +
			"DEADLINES: 2024-06-30")
	require.NoError(t, err)

	assert.Equal(t, "Invoice #1042 for $350 is attached. Payment is expected within 30 days.", verdict.Summary)
	assert.Equal(t, []string{"2024-06-30"}, verdict.Deadlines)
}

func TestParseVerdictIgnoresSurroundingChatter(t *testing.T) {
	verdict, err := ParseVerdict(
		"Here is my analysis of the email.\n\n" +
			"TIER: SPAM\n" +
			"SUMMARY: Promotional discount offer\n" +
			"DEADLINES: none\n" +
			"LINKS: none\n\n" +
			"Let me know if you need anything else.")
	require.NoError(t, err)
	assert.Equal(t, TierSpam, verdict.Tier)
	assert.Equal(t, "Promotional discount offer", verdict.Summary)
}
