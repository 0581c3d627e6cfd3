package registry

import (
	"strings"

	"github.com/sanctuari/rfq-cli/internal/model"
)

// Group partitions questions into sections keyed by trimmed section label.
// Sections appear in order of first occurrence and keep their questions in
// input order. A blank label maps to model.DefaultSectionName.
func Group(questions []model.Question) []model.Section {
	var sections []model.Section
	index := make(map[string]int)

	for _, q := range questions {
		name := strings.TrimSpace(q.Section)
		if name == "" {
			name = model.DefaultSectionName
		}
		q.Section = name

		i, ok := index[name]
		if !ok {
			i = len(sections)
			index[name] = i
			sections = append(sections, model.Section{Name: name})
		}
		sections[i].Fields = append(sections[i].Fields, q)
	}
	return sections
}
