package model

// FieldType is the input semantics inferred for a question.
type FieldType string

const (
	FieldDropdown   FieldType = "dropdown"
	FieldMultiEntry FieldType = "multi-entry"
	FieldDateRange  FieldType = "date-range"
	FieldDate       FieldType = "date"
	FieldYesNo      FieldType = "yes-no"
	FieldNumber     FieldType = "number"
	FieldEmail      FieldType = "email"
	FieldPhone      FieldType = "phone"
	FieldTextarea   FieldType = "textarea"
	FieldText       FieldType = "text"
)

// AllFieldTypes lists every field type in classifier rule order.
var AllFieldTypes = []FieldType{
	FieldDropdown,
	FieldMultiEntry,
	FieldDateRange,
	FieldDate,
	FieldYesNo,
	FieldNumber,
	FieldEmail,
	FieldPhone,
	FieldTextarea,
	FieldText,
}

// FieldInfo is the classifier output for a question.
type FieldInfo struct {
	Type        FieldType `json:"type"`
	Options     []string  `json:"options,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
}

// AnswerKind returns the value shape stored for the field type.
func (t FieldType) AnswerKind() AnswerKind {
	switch t {
	case FieldMultiEntry:
		return AnswerList
	case FieldDateRange:
		return AnswerRange
	default:
		return AnswerText
	}
}

// Accepts reports whether the answer has the shape this field type stores.
func (t FieldType) Accepts(a Answer) bool {
	return a.Kind == t.AnswerKind()
}

// ClassifiedQuestion pairs a question with its inferred field info.
type ClassifiedQuestion struct {
	Question
	Key   string    `json:"key"`
	Field FieldInfo `json:"field"`
}
