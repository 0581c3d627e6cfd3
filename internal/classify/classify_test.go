package classify

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sanctuari/rfq-cli/internal/model"
)

func TestClassify_Rules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		hint     string
		question string
		want     model.FieldType
		options  []string
	}{
		{"select marker", "[Select: Annual, Monthly, Quarterly]", "Premium frequency", model.FieldDropdown, []string{"Annual", "Monthly", "Quarterly"}},
		{"select from", "Select from Owned, Leased]", "Premises", model.FieldDropdown, []string{"Owned", "Leased"}},
		{"select drops blanks", "[Select: A,, B ,]", "q", model.FieldDropdown, []string{"A", "B"}},
		{"select is case-sensitive", "[select: A, B]", "q", model.FieldText, nil},
		{"slash list", "[Proprietorship/Partnership/Company]", "Constitution", model.FieldDropdown, []string{"Proprietorship", "Partnership", "Company"}},
		{"slash list too long", "A/B/C/D/E/F", "q", model.FieldText, nil},
		{"slash list single token", "Owned/", "q", model.FieldText, nil},
		{"slash list excluded by no substring", "Nominal/Actual", "q", model.FieldText, nil},
		{"yes/no", "Yes/No", "Any claims?", model.FieldYesNo, nil},
		{"yes or no", "Answer yes or no", "q", model.FieldYesNo, nil},
		{"dd/mm/yyyy", "DD/MM/YYYY", "Inception", model.FieldDate, nil},
		{"month year is not a dropdown", "MM/YYYY", "Since", model.FieldText, nil},
		{"enter for each", "Enter for each: location, sum insured", "Locations", model.FieldMultiEntry, nil},
		{"for each beats details", "Provide details for each vehicle", "Fleet", model.FieldMultiEntry, nil},
		{"from to phrase", "From To", "Policy period", model.FieldDateRange, nil},
		{"from and to markers", "From: DD/MM/YYYY To: DD/MM/YYYY", "Period", model.FieldDateRange, nil},
		{"date in hint", "Enter date", "Inception", model.FieldDate, nil},
		{"date in question", "[Enter text]", "Date of incorporation", model.FieldDate, nil},
		{"dob", "DOB", "Proposer", model.FieldDate, nil},
		{"amount", "Enter amount", "Sum insured", model.FieldNumber, nil},
		{"rupee glyph", "In ₹ lakhs", "Turnover", model.FieldNumber, nil},
		{"percent", "Enter %", "Share", model.FieldNumber, nil},
		{"contact number is a number", "Contact number", "Office", model.FieldNumber, nil},
		{"email", "Email address", "Contact", model.FieldEmail, nil},
		{"mobile", "[Mobile]", "Contact", model.FieldPhone, nil},
		{"details", "Provide details", "Past losses", model.FieldTextarea, nil},
		{"additional question", "Text", "Any additional information", model.FieldTextarea, nil},
		{"fallback", "[Enter text]", "Company Name", model.FieldText, nil},
		{"empty", "", "", model.FieldText, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.hint, tt.question)
			assert.Equal(t, tt.want, got.Type)
			if tt.options != nil {
				assert.Equal(t, tt.options, got.Options)
			}
		})
	}
}

func TestClassify_Placeholders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Enter text", Classify("[Enter text]", "Company Name").Placeholder)
	assert.Equal(t, "Mobile", Classify("[Mobile]", "Contact").Placeholder)
	assert.Equal(t, "Enter a [b]", Classify("[Enter a [b]]", "q").Placeholder)
	assert.Empty(t, Classify("Yes/No", "q").Placeholder)
}

func TestClassify_DeterministicAndTotal(t *testing.T) {
	t.Parallel()

	hints := []string{
		"", "/", "[", "]", "[]", "[Select:", "Select from", "yes", "no/yes", "a/b",
		"From:", "To:", "From: To:", "₹", "%", "Enter for each:", "[Select: ]", "x/y/z/w/v",
		" ", "日期", "DATE", "Email/Phone", "Phone/Email/Fax",
	}
	for _, h := range hints {
		for _, q := range []string{"", "additional", "Date"} {
			first := Classify(h, q)
			assert.True(t, slices.Contains(model.AllFieldTypes, first.Type), "hint %q", h)
			assert.Equal(t, first, Classify(h, q), "hint %q", h)
		}
	}
}

func TestQuestionAndSection(t *testing.T) {
	t.Parallel()

	s := model.Section{Name: "Cover", Fields: []model.Question{
		{Section: "Cover", Number: "1", Text: "Sum insured", ResponseHint: "Enter amount"},
		{Section: "Cover", Number: "2", Text: "Claims", ResponseHint: "Yes/No"},
	}}
	got := Section(s)
	assert.Len(t, got, 2)
	assert.Equal(t, "Cover_1", got[0].Key)
	assert.Equal(t, model.FieldNumber, got[0].Field.Type)
	assert.Equal(t, model.FieldYesNo, got[1].Field.Type)
}
