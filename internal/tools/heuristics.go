package tools

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/avvvet/staybuddy/internal/config"
)

var dateRangePatterns = []*regexp.Regexp{
	// "15 de dezembro a 20 de dezembro", "28 de dezembro até 3 de janeiro"
	regexp.MustCompile(`(\d{1,2}\s+de\s+\p{L}+)\s*(?:a|até|ao|-)\s*(\d{1,2}\s+de\s+\p{L}+)`),
	// "de 15 a 20 de dezembro"
	regexp.MustCompile(`(\d{1,2})\s*(?:a|até|ao|-)\s*(\d{1,2})\s+de\s+(\p{L}+)`),
	// "15/12 a 20/12"
	regexp.MustCompile(`(\d{1,2}/\d{1,2}(?:/\d{4})?)\s*(?:a|até|ao|-)\s*(\d{1,2}/\d{1,2}(?:/\d{4})?)`),
}

// Heuristics recognizes intents in raw guest text when the model answered
// without calling a tool.
type Heuristics struct {
	reactivation []string
	escalation   []string
	confirmation []*regexp.Regexp
}

// NewHeuristics compiles the configured vocabularies. Keywords match whole
// words, case-insensitively; patterns are regular expressions.
func NewHeuristics(cfg config.Heuristics) (*Heuristics, error) {
	h := &Heuristics{
		reactivation: lowerAll(cfg.ReactivationKeywords),
		escalation:   lowerAll(cfg.EscalationKeywords),
	}
	for _, kw := range cfg.ConfirmationKeywords {
		if kw = strings.TrimSpace(kw); kw == "" {
			continue
		}
		h.confirmation = append(h.confirmation, wordPattern(kw))
	}
	for _, p := range cfg.ConfirmationPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid confirmation pattern %q: %w", p, err)
		}
		h.confirmation = append(h.confirmation, re)
	}
	return h, nil
}

func wordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(strings.ToLower(keyword)) + `(?:[^\p{L}\p{N}]|$)`)
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// IsReactivation reports whether text asks to resume automated handling.
func (h *Heuristics) IsReactivation(text string) bool {
	return containsAny(text, h.reactivation)
}

// IsEscalation reports whether text asks for a human.
func (h *Heuristics) IsEscalation(text string) bool {
	return containsAny(text, h.escalation)
}

// IsConfirmation reports whether text reads as agreeing to book.
func (h *Heuristics) IsConfirmation(text string) bool {
	for _, re := range h.confirmation {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// DateRange extracts a stay range written as free text. The returned values
// still need normalizing.
func (h *Heuristics) DateRange(text string) (checkIn, checkOut string, ok bool) {
	lower := strings.ToLower(text)
	for i, re := range dateRangePatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if i == 1 {
			return m[1] + " de " + m[3], m[2] + " de " + m[3], true
		}
		return m[1], m[2], true
	}
	return "", "", false
}

// Infer picks the intent for a plain-text model reply, if any: escalation
// first, then a stated date range, then a booking confirmation when rooms
// have already been quoted.
func (h *Heuristics) Infer(text string, hasAvailability bool) (Intent, bool) {
	if h.IsEscalation(text) {
		return HumanAgent{}, true
	}
	if in, out, ok := h.DateRange(text); ok {
		return ExtractReservation{CheckIn: in, CheckOut: out}, true
	}
	if hasAvailability && h.IsConfirmation(text) {
		return CreateBooking{}, true
	}
	return nil, false
}
