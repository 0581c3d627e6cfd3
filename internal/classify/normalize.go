package classify

import (
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sanctuari/rfq-cli/internal/model"
)

// ErrInvalidValue is returned when a value cannot be held by a field's control.
var ErrInvalidValue = eris.New("classify: invalid value")

// ISODate is the layout dates are stored in.
const ISODate = "2006-01-02"

var dateLayouts = []string{ISODate, "02/01/2006", "02-01-2006"}

// YesNoValue maps user input to the stored "yes"/"no" literal.
func YesNoValue(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y":
		return "yes", true
	case "no", "n":
		return "no", true
	}
	return "", false
}

// ParseDate accepts ISO or DD/MM/YYYY input and returns the ISO form.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISODate), nil
		}
	}
	return "", eris.Wrapf(ErrInvalidValue, "classify: %q is not a date", s)
}

// Normalize coerces a into the shape and canonical form the field stores.
// Empty values pass through so required-field checks stay with the wizard.
func Normalize(info model.FieldInfo, a model.Answer) (model.Answer, error) {
	switch info.Type {
	case model.FieldMultiEntry:
		return normalizeList(a)
	case model.FieldDateRange:
		return normalizeRange(a)
	}

	if !info.Type.Accepts(a) {
		return model.Answer{}, eris.Wrapf(ErrInvalidValue, "classify: %s field takes a single value", info.Type)
	}
	s := strings.TrimSpace(a.Text)
	if s == "" {
		return model.TextAnswer(""), nil
	}

	switch info.Type {
	case model.FieldYesNo:
		v, ok := YesNoValue(s)
		if !ok {
			return model.Answer{}, eris.Wrapf(ErrInvalidValue, "classify: %q is not yes or no", s)
		}
		return model.TextAnswer(v), nil
	case model.FieldDate:
		d, err := ParseDate(s)
		if err != nil {
			return model.Answer{}, err
		}
		return model.TextAnswer(d), nil
	case model.FieldDropdown:
		if len(info.Options) > 0 && !slices.Contains(info.Options, s) {
			return model.Answer{}, eris.Wrapf(ErrInvalidValue, "classify: %q is not one of the options", s)
		}
	case model.FieldEmail:
		if _, err := mail.ParseAddress(s); err != nil {
			return model.Answer{}, eris.Wrapf(ErrInvalidValue, "classify: %q is not an email address", s)
		}
	case model.FieldTextarea:
		return model.TextAnswer(a.Text), nil
	}
	return model.TextAnswer(s), nil
}

func normalizeList(a model.Answer) (model.Answer, error) {
	switch a.Kind {
	case model.AnswerList:
		items := make([]string, 0, len(a.List))
		for _, item := range a.List {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return model.ListAnswer(items...), nil
	case model.AnswerText:
		if s := strings.TrimSpace(a.Text); s != "" {
			return model.ListAnswer(s), nil
		}
		return model.ListAnswer(), nil
	}
	return model.Answer{}, eris.Wrap(ErrInvalidValue, "classify: multi-entry field takes a list")
}

func normalizeRange(a model.Answer) (model.Answer, error) {
	if !model.FieldDateRange.Accepts(a) {
		return model.Answer{}, eris.Wrap(ErrInvalidValue, "classify: date-range field takes from/to")
	}
	out := model.RangeAnswer("", "")
	if a.Range.From != "" {
		d, err := ParseDate(a.Range.From)
		if err != nil {
			return model.Answer{}, err
		}
		out.Range.From = d
	}
	if a.Range.To != "" {
		d, err := ParseDate(a.Range.To)
		if err != nil {
			return model.Answer{}, err
		}
		out.Range.To = d
	}
	if out.Range.From != "" && out.Range.To != "" && out.Range.To < out.Range.From {
		return model.Answer{}, eris.Wrap(ErrInvalidValue, "classify: date range ends before it starts")
	}
	return out, nil
}
