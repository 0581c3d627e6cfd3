// Package model defines the domain types shared across the RFQ service.
package model

// DefaultSectionName is assigned to questions whose section label is blank.
const DefaultSectionName = "General Information"

// Product identifies an insurance product and where its question table lives.
type Product struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"name" yaml:"name"`
	SourceRef   string `json:"source_ref" yaml:"file"`
}

// Question is one row of a product's question table.
type Question struct {
	Section      string `json:"section"`
	Number       string `json:"question_number"`
	Text         string `json:"question"`
	ResponseHint string `json:"response_field"`
	Notes        string `json:"notes,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Required     bool   `json:"required"`
}

// Key returns the answer-map key for the question.
func (q Question) Key() string {
	return FieldKeyFor(q.Section, q.Number)
}

// Section is an ordered group of questions sharing a section label.
type Section struct {
	Name   string     `json:"name"`
	Fields []Question `json:"fields"`
}

// FieldKeyFor builds the composite answer key for a section and question number.
func FieldKeyFor(section, number string) string {
	return section + "_" + number
}

// CountQuestions returns the total number of questions across sections.
func CountQuestions(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += len(s.Fields)
	}
	return n
}
