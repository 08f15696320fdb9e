package core

import (
	"fmt"
	"strings"
)

// ParseVerdict parses raw model text into a structured verdict.
//
// The parser is lenient on formatting noise (label case, whitespace, trailing
// punctuation, singular/plural label variants) but strict on the tier
// enumeration: an unrecognized tier fails with ErrMalformedResponse rather
// than silently defaulting, so model drift stays visible to callers.
// Deadline and link extraction are best-effort; a missing field yields an
// empty list.
func ParseVerdict(text string) (*Verdict, error) {
	verdict := &Verdict{
		Deadlines: []string{},
		Links:     []string{},
	}

	var (
		labeledFields int
		tierSeen      bool
		tierRaw       string
		continuation  string
	)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continuation = ""
			continue
		}

		label, value, ok := splitLabeledLine(line)
		if !ok {
			// Unlabeled lines directly after SUMMARY belong to the summary.
			if continuation == "summary" && verdict.Summary != "" {
				verdict.Summary += " " + line
			}
			continue
		}

		continuation = ""
		switch label {
		case "tier", "importance", "importance_level":
			labeledFields++
			tierSeen = true
			tierRaw = value
		case "summary":
			labeledFields++
			verdict.Summary = value
			continuation = "summary"
		case "deadline", "deadlines":
			labeledFields++
			verdict.Deadlines = parseListField(value)
		case "link", "links", "important_links":
			labeledFields++
			verdict.Links = parseListField(value)
		}
	}

	if labeledFields == 0 {
		return nil, fmt.Errorf("%w: no labeled fields found", ErrMalformedResponse)
	}
	if !tierSeen {
		return nil, fmt.Errorf("%w: missing TIER field", ErrMalformedResponse)
	}

	tier, ok := parseTier(tierRaw)
	if !ok {
		return nil, fmt.Errorf("%w: unrecognized tier %q", ErrMalformedResponse, tierRaw)
	}
	verdict.Tier = tier

	return verdict, nil
}

// splitLabeledLine splits "LABEL: value" lines, reporting ok=false for lines
// that do not look like a field label
func splitLabeledLine(line string) (label string, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}

	label = strings.ToLower(strings.TrimSpace(strings.Trim(line[:idx], "*#- ")))
	if label == "" || strings.ContainsAny(label, " \t") {
		return "", "", false
	}

	return label, strings.TrimSpace(line[idx+1:]), true
}

// parseTier maps a raw tier value onto the closed enumeration
func parseTier(raw string) (Tier, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.Trim(s, " .,;:!*\"'`")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")

	tier := Tier(s)
	if !tier.IsValid() {
		return "", false
	}
	return tier, true
}

// parseListField splits a comma or semicolon separated field into entries,
// treating "none" placeholders as empty
func parseListField(value string) []string {
	entries := []string{}

	switch strings.ToLower(strings.Trim(value, " .")) {
	case "", "none", "n/a", "-", "no deadlines", "no links":
		return entries
	}

	for _, part := range strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';'
	}) {
		part = strings.TrimSpace(part)
		if part == "" || strings.EqualFold(part, "none") {
			continue
		}
		entries = append(entries, part)
	}

	return entries
}
