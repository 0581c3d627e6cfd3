package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldKeyFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Proposer Details_1.2", FieldKeyFor("Proposer Details", "1.2"))
	q := Question{Section: "Cover", Number: "3"}
	assert.Equal(t, "Cover_3", q.Key())
}

func TestCountQuestions(t *testing.T) {
	t.Parallel()

	sections := []Section{
		{Name: "A", Fields: []Question{{Text: "q1"}, {Text: "q2"}}},
		{Name: "B"},
		{Name: "C", Fields: []Question{{Text: "q3"}}},
	}
	assert.Equal(t, 3, CountQuestions(sections))
	assert.Zero(t, CountQuestions(nil))
}
