// Package classify infers the input semantics of a question from its
// free-text response hint.
package classify

import (
	"strings"

	"github.com/sanctuari/rfq-cli/internal/model"
)

// PhonePlaceholder is shown for phone fields whose hint yields no placeholder.
const PhonePlaceholder = "+91 9876543210"

var (
	numberMarkers   = []string{"number", "amount", "₹", "count", "percentage", "%"}
	phoneMarkers    = []string{"phone", "mobile", "contact number"}
	textareaMarkers = []string{"details", "description", "explain"}
	dateMarkers     = []string{"date", "dd/mm/yyyy", "dob"}
)

// Classify maps a response hint and question text to a field type. Rules are
// checked in order and the first match wins; text is the fallback. The
// option-list, multi-entry and date-range markers are matched case-sensitively,
// the remaining keywords against the lowercased hint.
func Classify(hint, question string) model.FieldInfo {
	lower := strings.ToLower(hint)
	info := model.FieldInfo{Type: classifyType(hint, lower, question)}

	switch info.Type {
	case model.FieldDropdown:
		if opts, ok := selectOptions(hint); ok {
			info.Options = opts
		} else {
			info.Options, _ = slashOptions(hint, lower)
		}
	case model.FieldMultiEntry, model.FieldNumber, model.FieldEmail, model.FieldTextarea, model.FieldText:
		info.Placeholder = Placeholder(hint)
	case model.FieldPhone:
		info.Placeholder = Placeholder(hint)
		if info.Placeholder == "" {
			info.Placeholder = PhonePlaceholder
		}
	}
	return info
}

func classifyType(hint, lower, question string) model.FieldType {
	if _, ok := selectOptions(hint); ok {
		return model.FieldDropdown
	}
	if _, ok := slashOptions(hint, lower); ok {
		return model.FieldDropdown
	}
	if strings.Contains(hint, "Enter for each:") || strings.Contains(hint, "for each") {
		return model.FieldMultiEntry
	}
	if strings.Contains(hint, "From To") || (strings.Contains(hint, "From:") && strings.Contains(hint, "To:")) {
		return model.FieldDateRange
	}
	if containsAny(lower, dateMarkers) || containsAny(strings.ToLower(question), dateMarkers) {
		return model.FieldDate
	}
	if strings.Contains(lower, "yes/no") || strings.Contains(lower, "yes or no") {
		return model.FieldYesNo
	}
	if containsAny(lower, numberMarkers) {
		return model.FieldNumber
	}
	if strings.Contains(lower, "email") {
		return model.FieldEmail
	}
	if containsAny(lower, phoneMarkers) {
		return model.FieldPhone
	}
	if containsAny(lower, textareaMarkers) || strings.Contains(strings.ToLower(question), "additional") {
		return model.FieldTextarea
	}
	return model.FieldText
}

// selectOptions handles "[Select: a, b]" and "Select from a, b]" hints. The
// options are the comma-separated tokens between the marker and the first
// closing bracket that follows it.
func selectOptions(hint string) ([]string, bool) {
	rest, ok := afterMarker(hint, "[Select:")
	if !ok {
		rest, ok = afterMarker(hint, "Select from")
	}
	if !ok {
		return nil, false
	}
	if i := strings.Index(rest, "]"); i >= 0 {
		rest = rest[:i]
	}
	return splitTokens(rest, ","), true
}

func afterMarker(s, marker string) (string, bool) {
	i := strings.Index(s, marker)
	if i < 0 {
		return "", false
	}
	return s[i+len(marker):], true
}

// slashOptions handles short "a/b/c" choice lists. Hints mentioning yes, no
// or mm/yyyy are excluded so yes/no and month-year prompts fall through.
func slashOptions(hint, lower string) ([]string, bool) {
	if !strings.Contains(hint, "/") {
		return nil, false
	}
	if strings.Contains(lower, "yes") || strings.Contains(lower, "no") || strings.Contains(lower, "mm/yyyy") {
		return nil, false
	}
	opts := splitTokens(stripBrackets(hint), "/")
	if len(opts) < 2 || len(opts) > 5 {
		return nil, false
	}
	return opts, true
}

// Placeholder derives input placeholder text from a hint by removing the
// first opening and first closing square bracket.
func Placeholder(hint string) string {
	return stripBrackets(hint)
}

func stripBrackets(s string) string {
	s = strings.Replace(s, "[", "", 1)
	return strings.Replace(s, "]", "", 1)
}

func splitTokens(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Question classifies q and attaches its answer key.
func Question(q model.Question) model.ClassifiedQuestion {
	return model.ClassifiedQuestion{
		Question: q,
		Key:      q.Key(),
		Field:    Classify(q.ResponseHint, q.Text),
	}
}

// Section classifies every question in s.
func Section(s model.Section) []model.ClassifiedQuestion {
	out := make([]model.ClassifiedQuestion, len(s.Fields))
	for i, q := range s.Fields {
		out[i] = Question(q)
	}
	return out
}
