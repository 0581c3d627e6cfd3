package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanctuari/rfq-cli/internal/model"
)

func TestParseRows_Exclusions(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"General", "1", "Company Name", "[Enter text]"},
		{"General", "2", "Too short"},
		{"General", "3", "   ", "[Enter text]"},
		{"", "4", "Website", "URL", "optional", "include https"},
	}
	qs := ParseRows(rows)
	require.Len(t, qs, 2)
	assert.Equal(t, "Company Name", qs[0].Text)
	assert.Equal(t, model.DefaultSectionName, qs[1].Section)
	assert.Equal(t, "optional", qs[1].Notes)
	assert.Equal(t, "include https", qs[1].Instructions)
	for _, q := range qs {
		assert.NotEmpty(t, q.Text)
	}
}

func TestParseRows_Required(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		question string
		hint     string
		want     bool
	}{
		{"asterisk in question", "Insured name*", "text", true},
		{"asterisk in hint", "Insured name", "Text*", true},
		{"enter hint", "Turnover", "Enter amount", true},
		{"lowercase enter is not a marker", "Turnover", "enter amount", false},
		{"plain", "Remarks", "Free text", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			qs := ParseRows([][]string{{"S", "1", tt.question, tt.hint}})
			require.Len(t, qs, 1)
			assert.Equal(t, tt.want, qs[0].Required)
		})
	}
}

func TestParseRows_TrimsCells(t *testing.T) {
	t.Parallel()

	qs := ParseRows([][]string{{"  Cover ", " 2.1 ", "  Sum insured ", " Enter amount "}})
	require.Len(t, qs, 1)
	assert.Equal(t, model.Question{
		Section:      "Cover",
		Number:       "2.1",
		Text:         "Sum insured",
		ResponseHint: "Enter amount",
		Required:     true,
	}, qs[0])
}

func TestDropHeader(t *testing.T) {
	t.Parallel()

	rows := [][]string{{"", " "}, {"Section", "No"}, {"A", "1"}}
	assert.Equal(t, [][]string{{"A", "1"}}, dropHeader(rows))
	assert.Nil(t, dropHeader([][]string{{""}}))
}
