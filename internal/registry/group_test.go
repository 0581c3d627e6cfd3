package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanctuari/rfq-cli/internal/model"
)

func TestGroup_FirstSeenOrder(t *testing.T) {
	t.Parallel()

	qs := []model.Question{
		{Section: "Proposer", Number: "1", Text: "a"},
		{Section: "Risk", Number: "1", Text: "b"},
		{Section: " Proposer ", Number: "2", Text: "c"},
		{Section: "", Number: "1", Text: "d"},
		{Section: "Risk", Number: "2", Text: "e"},
	}
	sections := Group(qs)
	require.Len(t, sections, 3)

	assert.Equal(t, "Proposer", sections[0].Name)
	assert.Equal(t, "Risk", sections[1].Name)
	assert.Equal(t, model.DefaultSectionName, sections[2].Name)

	assert.Equal(t, []string{"a", "c"}, texts(sections[0]))
	assert.Equal(t, []string{"b", "e"}, texts(sections[1]))
	assert.Equal(t, []string{"d"}, texts(sections[2]))
	assert.Equal(t, "Proposer", sections[0].Fields[1].Section)
}

func TestGroup_PreservesTotal(t *testing.T) {
	t.Parallel()

	qs := make([]model.Question, 0, 30)
	labels := []string{"C", "A", "B", ""}
	for i := range 30 {
		qs = append(qs, model.Question{Section: labels[i%len(labels)], Text: "q"})
	}
	assert.Equal(t, len(qs), model.CountQuestions(Group(qs)))
}

func TestGroup_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Group(nil))
}

func texts(s model.Section) []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Text
	}
	return out
}
