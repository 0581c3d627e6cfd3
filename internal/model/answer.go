package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// AnswerKind discriminates the shape of an Answer.
type AnswerKind string

const (
	AnswerText  AnswerKind = "text"
	AnswerList  AnswerKind = "list"
	AnswerRange AnswerKind = "range"
)

// DateRange holds two ISO dates; either side may be unset.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Answer is a tagged union over the value shapes a field can hold.
// Text covers every scalar field, List the multi-entry tag lists and
// Range the from/to date pairs.
type Answer struct {
	Kind  AnswerKind
	Text  string
	List  []string
	Range DateRange
}

// TextAnswer returns a scalar answer.
func TextAnswer(s string) Answer {
	return Answer{Kind: AnswerText, Text: s}
}

// ListAnswer returns a multi-entry answer holding a copy of items.
func ListAnswer(items ...string) Answer {
	list := make([]string, len(items))
	copy(list, items)
	return Answer{Kind: AnswerList, List: list}
}

// RangeAnswer returns a date-range answer.
func RangeAnswer(from, to string) Answer {
	return Answer{Kind: AnswerRange, Range: DateRange{From: from, To: to}}
}

// IsEmpty reports whether the answer counts as missing for required-field checks.
func (a Answer) IsEmpty() bool {
	switch a.Kind {
	case AnswerText:
		return strings.TrimSpace(a.Text) == ""
	case AnswerList:
		return len(a.List) == 0
	case AnswerRange:
		return a.Range.From == "" && a.Range.To == ""
	default:
		return true
	}
}

// MarshalJSON writes text answers as strings, lists as arrays and ranges as
// {"from","to"} objects.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerList:
		if a.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.List)
	case AnswerRange:
		return json.Marshal(a.Range)
	default:
		return json.Marshal(a.Text)
	}
}

// UnmarshalJSON infers the kind from the JSON value type.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = TextAnswer("")
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: decode text answer")
		}
		*a = TextAnswer(s)
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return eris.Wrap(err, "model: decode list answer")
		}
		*a = ListAnswer(list...)
	case '{':
		var r DateRange
		if err := json.Unmarshal(data, &r); err != nil {
			return eris.Wrap(err, "model: decode range answer")
		}
		*a = Answer{Kind: AnswerRange, Range: r}
	default:
		// Numbers and booleans are kept verbatim as text.
		*a = TextAnswer(string(data))
	}
	return nil
}

// AnswerMap maps field keys to answers.
type AnswerMap map[string]Answer

// Clone returns a deep copy of the map.
func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		if v.Kind == AnswerList {
			v = ListAnswer(v.List...)
		}
		out[k] = v
	}
	return out
}
