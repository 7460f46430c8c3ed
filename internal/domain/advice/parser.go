package advice

import (
	"strings"

	"github.com/yanqian/meteo-burkina/internal/domain/plan"
)

const sectionDelimiter = "**"

// Parse turns generated text into a payload. It reads the delimited
// sections first and falls back to positional assignment when neither
// general nor health advice was recognised.
func Parse(text string, tier plan.Tier) Payload {
	payload := parseSections(text)
	if payload.Items(plan.CategoryGeneral) == nil && payload.Items(plan.CategoryHealth) == nil {
		return parsePositional(text, tier)
	}
	return payload
}

// parseSections splits on the delimiter: odd fragments are headers and the
// fragment after each header is its body. An odd fragment that is not a
// known header stays part of the current body, as does a keyword set in
// bold inside a bullet item.
func parseSections(text string) Payload {
	payload := Payload{}
	fragments := strings.Split(text, sectionDelimiter)

	var (
		current plan.Category
		body    strings.Builder
	)
	flush := func() {
		if current != "" {
			for _, item := range bulletItems(body.String()) {
				payload.add(current, item)
			}
		}
		body.Reset()
	}

	for i, frag := range fragments {
		if i%2 == 1 && !inlineEmphasis(fragments, i) {
			if c, ok := matchHeader(frag); ok {
				flush()
				current = c
				continue
			}
		}
		body.WriteString(frag)
	}
	flush()
	return payload
}

// parsePositional assigns bullet lines by position: 1-2 general, 3-4 health,
// 5-6 activities for paid tiers and 7-8 enterprise for the enterprise tier.
func parsePositional(text string, tier plan.Tier) Payload {
	lines := bulletItems(strings.ReplaceAll(text, sectionDelimiter, ""))
	payload := Payload{}
	assign := func(c plan.Category, from, to int) {
		for i := from; i < to && i < len(lines); i++ {
			payload.add(c, lines[i])
		}
	}
	assign(plan.CategoryGeneral, 0, 2)
	assign(plan.CategoryHealth, 2, 4)
	if tier != plan.TierFree {
		assign(plan.CategoryActivities, 4, 6)
	}
	if tier == plan.TierEnterprise {
		assign(plan.CategoryEnterprise, 6, 8)
	}
	return payload
}

func matchHeader(fragment string) (plan.Category, bool) {
	lower := strings.ToLower(strings.TrimSpace(fragment))
	if lower == "" || strings.Contains(lower, "\n") {
		return "", false
	}
	for _, sec := range sections {
		for _, kw := range sec.keywords {
			if strings.Contains(lower, kw) {
				return sec.category, true
			}
		}
	}
	return "", false
}

// inlineEmphasis reports whether the bold fragment at index i sits inside a
// bullet item with more text after it on the same line. Anything else, lead-in
// prose, list numbering or an emoji included, may carry a header.
func inlineEmphasis(fragments []string, i int) bool {
	line := fragments[i-1]
	if idx := strings.LastIndex(line, "\n"); idx >= 0 {
		line = line[idx+1:]
	}
	if _, bullet := stripBullet(line + "x"); !bullet {
		return false
	}
	return !endsLine(fragments, i+1)
}

// endsLine reports whether fragment i starts with the end of a line, ignoring
// a trailing colon after the header.
func endsLine(fragments []string, i int) bool {
	if i >= len(fragments) {
		return true
	}
	rest := strings.TrimLeft(fragments[i], " \t:")
	return rest == "" || rest[0] == '\n' || rest[0] == '\r'
}

func bulletItems(body string) []string {
	var items []string
	for _, line := range strings.Split(body, "\n") {
		item, ok := stripBullet(line)
		if !ok || item == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

func stripBullet(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, marker := range []string{"-", "•", "*"} {
		if strings.HasPrefix(trimmed, marker) {
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
			if strings.Trim(rest, "-*_ ") == "" {
				return "", false
			}
			return rest, true
		}
	}
	return "", false
}
