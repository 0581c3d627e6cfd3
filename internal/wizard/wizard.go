// Package wizard drives a user through a product's question sections and
// hands the collected answers to the submission dispatcher.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/classify"
	"github.com/sanctuari/rfq-cli/internal/model"
	"github.com/sanctuari/rfq-cli/internal/submission"
)

// State is a wizard's position in its lifecycle.
type State string

const (
	StateProductUnselected State = "product_unselected"
	StateLoading           State = "loading"
	StateLoadFailed        State = "load_failed"
	StateSectionActive     State = "section_active"
	StateSubmitting        State = "submitting"
	StateSubmittedFree     State = "submitted_free"
	StateAwaitingPayment   State = "awaiting_payment"
)

var (
	// ErrAtFirstSection is returned by Retreat on the first section.
	ErrAtFirstSection = eris.New("wizard: already at first section")
	// ErrInvalidState is returned when an operation is not allowed in the current state.
	ErrInvalidState = eris.New("wizard: operation not allowed in current state")
	// ErrSuperseded is returned to a load whose product selection was replaced.
	ErrSuperseded = eris.New("wizard: product selection superseded")
	// ErrEmptyQuestionSet is recorded when a product's table has no questions.
	ErrEmptyQuestionSet = eris.New("wizard: product has no questions")
	// ErrEmptyEntry is returned by AddEntry for blank text.
	ErrEmptyEntry = eris.New("wizard: entry is empty")
	// ErrEntryIndex is returned by RemoveEntry for an index out of range.
	ErrEntryIndex = eris.New("wizard: entry index out of range")
	// ErrUnknownField is returned when a key names no question of the loaded product.
	ErrUnknownField = eris.New("wizard: unknown field")
)

// ValidationError lists the required fields that are still unanswered.
type ValidationError struct {
	Section string
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("wizard: %d required field(s) missing in %s", len(e.Missing), e.Section)
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Loader returns the sections for a product.
type Loader interface {
	Load(ctx context.Context, productID string) ([]model.Section, error)
}

// Dispatcher persists or bills a completed questionnaire.
type Dispatcher interface {
	Dispatch(ctx context.Context, req submission.Request) (*submission.Result, error)
}

// Owner identifies who a wizard belongs to.
type Owner struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
}

// Wizard is one user's questionnaire session. It is safe for concurrent use;
// product loads run without holding the lock so a newer selection can
// supersede an older one.
type Wizard struct {
	id         string
	owner      Owner
	loader     Loader
	dispatcher Dispatcher

	mu         sync.Mutex
	state      State
	productID  string
	sections   []model.Section
	index      int
	answers    model.AnswerMap
	loadErr    error
	generation uint64
	cancelLoad context.CancelFunc
	result     *submission.Result
}

// New creates a wizard in StateProductUnselected.
func New(owner Owner, loader Loader, dispatcher Dispatcher) *Wizard {
	return &Wizard{
		id:         uuid.NewString(),
		owner:      owner,
		loader:     loader,
		dispatcher: dispatcher,
		state:      StateProductUnselected,
		answers:    model.AnswerMap{},
	}
}

// ID returns the wizard's identifier.
func (w *Wizard) ID() string { return w.id }

// Owner returns the wizard's owner.
func (w *Wizard) Owner() Owner { return w.owner }

// State returns the current state.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// SelectProduct discards all answers and loads productID's sections. On
// failure the wizard enters StateLoadFailed with the error recorded. If
// another selection starts before this one completes, this call returns
// ErrSuperseded and its result is dropped.
func (w *Wizard) SelectProduct(ctx context.Context, productID string) error {
	w.mu.Lock()
	if w.state == StateSubmitting || w.state == StateSubmittedFree || w.state == StateAwaitingPayment {
		w.mu.Unlock()
		return eris.Wrapf(ErrInvalidState, "wizard: select product in %s", w.state)
	}
	if w.cancelLoad != nil {
		w.cancelLoad()
	}
	w.generation++
	gen := w.generation
	loadCtx, cancel := context.WithCancel(ctx)
	w.cancelLoad = cancel
	w.state = StateLoading
	w.productID = productID
	w.sections = nil
	w.index = 0
	w.answers = model.AnswerMap{}
	w.loadErr = nil
	w.mu.Unlock()

	sections, err := w.loader.Load(loadCtx, productID)
	cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.generation {
		zap.L().Debug("wizard: discarding stale load",
			zap.String("wizard", w.id),
			zap.String("product", productID),
		)
		return ErrSuperseded
	}
	w.cancelLoad = nil

	if err == nil && len(sections) == 0 {
		err = eris.Wrapf(ErrEmptyQuestionSet, "wizard: product %q", productID)
	}
	if err != nil {
		w.state = StateLoadFailed
		w.loadErr = err
		zap.L().Warn("wizard: product load failed",
			zap.String("wizard", w.id),
			zap.String("product", productID),
			zap.Error(err),
		)
		return err
	}

	w.sections = sections
	w.state = StateSectionActive
	return nil
}

// Reset returns the wizard to StateProductUnselected, discarding everything.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelLoad != nil {
		w.cancelLoad()
		w.cancelLoad = nil
	}
	w.generation++
	w.state = StateProductUnselected
	w.productID = ""
	w.sections = nil
	w.index = 0
	w.answers = model.AnswerMap{}
	w.loadErr = nil
	w.result = nil
}

// Answer normalizes a for the field stored under key and records it. Values
// the field cannot hold fail with classify.ErrInvalidValue. Required checks
// happen on Advance.
func (w *Wizard) Answer(key string, a model.Answer) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSectionActive {
		return eris.Wrapf(ErrInvalidState, "wizard: answer in %s", w.state)
	}
	info, ok := w.fieldInfo(key)
	if !ok {
		return eris.Wrapf(ErrUnknownField, "wizard: %s", key)
	}
	v, err := classify.Normalize(info, a)
	if err != nil {
		return eris.Wrapf(err, "wizard: answer %s", key)
	}
	w.answers[key] = v
	return nil
}

// AddEntry appends trimmed text to a multi-entry answer.
func (w *Wizard) AddEntry(key, text string) error {
	entry := strings.TrimSpace(text)
	if entry == "" {
		return ErrEmptyEntry
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSectionActive {
		return eris.Wrapf(ErrInvalidState, "wizard: add entry in %s", w.state)
	}
	if err := w.requireMultiEntry(key); err != nil {
		return err
	}
	var list []string
	if cur, ok := w.answers[key]; ok && cur.Kind == model.AnswerList {
		list = cur.List
	}
	w.answers[key] = model.ListAnswer(append(list, entry)...)
	return nil
}

// RemoveEntry deletes the entry at index from a multi-entry answer.
func (w *Wizard) RemoveEntry(key string, index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSectionActive {
		return eris.Wrapf(ErrInvalidState, "wizard: remove entry in %s", w.state)
	}
	if err := w.requireMultiEntry(key); err != nil {
		return err
	}
	cur, ok := w.answers[key]
	if !ok || cur.Kind != model.AnswerList || index < 0 || index >= len(cur.List) {
		return eris.Wrapf(ErrEntryIndex, "wizard: %s[%d]", key, index)
	}
	list := make([]string, 0, len(cur.List)-1)
	list = append(list, cur.List[:index]...)
	list = append(list, cur.List[index+1:]...)
	w.answers[key] = model.ListAnswer(list...)
	return nil
}

func (w *Wizard) requireMultiEntry(key string) error {
	info, ok := w.fieldInfo(key)
	if !ok {
		return eris.Wrapf(ErrUnknownField, "wizard: %s", key)
	}
	if info.Type != model.FieldMultiEntry {
		return eris.Wrapf(classify.ErrInvalidValue, "wizard: %s is a %s field, not multi-entry", key, info.Type)
	}
	return nil
}

// Advance moves to the next section, or to StateSubmitting from the last
// one, provided every required field of the active section is answered.
func (w *Wizard) Advance() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSectionActive {
		return eris.Wrapf(ErrInvalidState, "wizard: advance in %s", w.state)
	}
	if err := w.validateSection(w.index); err != nil {
		return err
	}
	if w.index == len(w.sections)-1 {
		w.state = StateSubmitting
		return nil
	}
	w.index++
	return nil
}

// Retreat moves to the previous section. From StateSubmitting it returns to
// the last section.
func (w *Wizard) Retreat() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case StateSubmitting:
		w.state = StateSectionActive
		return nil
	case StateSectionActive:
		if w.index == 0 {
			return ErrAtFirstSection
		}
		w.index--
		return nil
	default:
		return eris.Wrapf(ErrInvalidState, "wizard: retreat in %s", w.state)
	}
}

// Submit hands the answers to the dispatcher. A free submission ends in
// StateSubmittedFree, a paid one in StateAwaitingPayment. On failure the
// wizard stays in StateSubmitting so the user can retry.
func (w *Wizard) Submit(ctx context.Context, isFirstRFQ bool) (*submission.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSubmitting {
		return nil, eris.Wrapf(ErrInvalidState, "wizard: submit in %s", w.state)
	}
	for i := range w.sections {
		if err := w.validateSection(i); err != nil {
			return nil, err
		}
	}

	res, err := w.dispatcher.Dispatch(ctx, submission.Request{
		CompanyID:  w.owner.CompanyID,
		UserID:     w.owner.UserID,
		UserEmail:  w.owner.Email,
		UserName:   w.owner.Name,
		ProductID:  w.productID,
		Answers:    w.answers.Clone(),
		IsFirstRFQ: isFirstRFQ,
	})
	if err != nil {
		zap.L().Error("wizard: submission failed",
			zap.String("wizard", w.id),
			zap.String("product", w.productID),
			zap.Error(err),
		)
		return nil, err
	}

	w.result = res
	if res.AwaitingPayment() {
		w.state = StateAwaitingPayment
	} else {
		w.state = StateSubmittedFree
	}
	return res, nil
}

// FieldInfo classifies the question stored under key in the loaded sections.
func (w *Wizard) FieldInfo(key string) (model.FieldInfo, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fieldInfo(key)
}

func (w *Wizard) fieldInfo(key string) (model.FieldInfo, bool) {
	for _, s := range w.sections {
		for _, q := range s.Fields {
			if q.Key() == key {
				return classify.Classify(q.ResponseHint, q.Text), true
			}
		}
	}
	return model.FieldInfo{}, false
}

func (w *Wizard) validateSection(i int) error {
	s := w.sections[i]
	var missing []string
	for _, q := range s.Fields {
		if !q.Required {
			continue
		}
		if a, ok := w.answers[q.Key()]; !ok || a.IsEmpty() {
			missing = append(missing, q.Key())
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Section: s.Name, Missing: missing}
	}
	return nil
}
