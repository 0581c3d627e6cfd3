package wizard

import (
	"github.com/sanctuari/rfq-cli/internal/classify"
	"github.com/sanctuari/rfq-cli/internal/model"
	"github.com/sanctuari/rfq-cli/internal/submission"
)

// View is a point-in-time snapshot of a wizard for rendering.
type View struct {
	ID           string                     `json:"id"`
	State        State                      `json:"state"`
	ProductID    string                     `json:"product_id,omitempty"`
	SectionIndex int                        `json:"section_index"`
	SectionCount int                        `json:"section_count"`
	SectionNames []string                   `json:"section_names,omitempty"`
	Section      string                     `json:"section,omitempty"`
	Fields       []model.ClassifiedQuestion `json:"fields,omitempty"`
	Answers      model.AnswerMap            `json:"answers"`
	LoadError    string                     `json:"load_error,omitempty"`
	Result       *submission.Result         `json:"result,omitempty"`
}

// Snapshot returns the wizard's current view, with the active section's
// questions classified.
func (w *Wizard) Snapshot() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{
		ID:           w.id,
		State:        w.state,
		ProductID:    w.productID,
		SectionIndex: w.index,
		SectionCount: len(w.sections),
		Answers:      w.answers.Clone(),
		Result:       w.result,
	}
	for _, s := range w.sections {
		v.SectionNames = append(v.SectionNames, s.Name)
	}
	if w.loadErr != nil {
		v.LoadError = w.loadErr.Error()
	}
	if w.state == StateSectionActive && w.index < len(w.sections) {
		v.Section = w.sections[w.index].Name
		v.Fields = classify.Section(w.sections[w.index])
	}
	return v
}
