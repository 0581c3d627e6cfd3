package registry

import (
	"strings"

	"github.com/sanctuari/rfq-cli/internal/model"
)

// Column positions in a question table row.
const (
	colSection = iota
	colNumber
	colQuestion
	colResponse
	colNotes
	colInstructions

	minColumns = colResponse + 1
)

// ParseRows converts data rows (header already removed) into questions.
// Rows with fewer than four columns or a blank question are dropped.
func ParseRows(rows [][]string) []model.Question {
	questions := make([]model.Question, 0, len(rows))
	for _, row := range rows {
		q, ok := parseRow(row)
		if !ok {
			continue
		}
		questions = append(questions, q)
	}
	return questions
}

func parseRow(row []string) (model.Question, bool) {
	if len(row) < minColumns {
		return model.Question{}, false
	}
	q := model.Question{
		Section:      strings.TrimSpace(row[colSection]),
		Number:       strings.TrimSpace(row[colNumber]),
		Text:         strings.TrimSpace(row[colQuestion]),
		ResponseHint: strings.TrimSpace(row[colResponse]),
		Notes:        cell(row, colNotes),
		Instructions: cell(row, colInstructions),
	}
	if q.Text == "" {
		return model.Question{}, false
	}
	if q.Section == "" {
		q.Section = model.DefaultSectionName
	}
	q.Required = isRequired(row[colQuestion], row[colResponse])
	return q, true
}

// isRequired reports whether a question is mandatory: an asterisk in the
// question or hint, or a hint asking the user to "Enter" a value.
func isRequired(question, hint string) bool {
	return strings.Contains(question, "*") ||
		strings.Contains(hint, "*") ||
		strings.Contains(hint, "Enter")
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// dropHeader removes the first non-blank row.
func dropHeader(rows [][]string) [][]string {
	for i, row := range rows {
		if !blankRow(row) {
			return rows[i+1:]
		}
	}
	return nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
