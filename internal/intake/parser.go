package intake

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var orderPattern = regexp.MustCompile(`^order\s+(.+?)\s+(\d+)$`)

// Normalize folds an inbound message into the canonical form the grammar
// matches against: NFKC-normalized, lower-cased, inner whitespace
// collapsed to single spaces.
func Normalize(body string) string {
	folded := norm.NFKC.String(body)
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Parse classifies one message in a single pass over its normalized
// form. Every message parses to exactly one intent; text outside the
// grammar becomes UnknownIntent.
func Parse(body string) Intent {
	text := Normalize(body)

	switch text {
	case "help", "menu", "commands":
		return HelpIntent{}
	case "categories":
		return CategoriesIntent{}
	}

	if term, ok := strings.CutPrefix(text, "search "); ok {
		term = strings.TrimSpace(term)
		if term != "" {
			return SearchIntent{Term: term}
		}
		return UnknownIntent{Raw: text}
	}

	if name, ok := strings.CutPrefix(text, "price "); ok {
		name = strings.TrimSpace(name)
		if name != "" {
			return PriceIntent{Name: name}
		}
		return UnknownIntent{Raw: text}
	}

	if m := orderPattern.FindStringSubmatch(text); m != nil {
		qty, err := strconv.Atoi(m[2])
		if err != nil {
			return UnknownIntent{Raw: text}
		}
		return OrderIntent{Name: m[1], Quantity: qty}
	}

	return UnknownIntent{Raw: text}
}
