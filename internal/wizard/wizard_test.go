package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/classify"
	"github.com/sanctuari/rfq-cli/internal/model"
	"github.com/sanctuari/rfq-cli/internal/payment"
	"github.com/sanctuari/rfq-cli/internal/submission"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type staticLoader map[string][]model.Section

func (l staticLoader) Load(_ context.Context, productID string) ([]model.Section, error) {
	s, ok := l[productID]
	if !ok {
		return nil, errors.New("no such product")
	}
	return s, nil
}

// blockingLoader holds each load until its product's channel is closed.
type blockingLoader struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string
	data    staticLoader
}

func (l *blockingLoader) Load(ctx context.Context, productID string) ([]model.Section, error) {
	l.mu.Lock()
	gate := l.gates[productID]
	l.mu.Unlock()
	l.started <- productID
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}
	return l.data.Load(ctx, productID)
}

type fakeDispatcher struct {
	res  *submission.Result
	err  error
	reqs []submission.Request
}

func (d *fakeDispatcher) Dispatch(_ context.Context, req submission.Request) (*submission.Result, error) {
	d.reqs = append(d.reqs, req)
	return d.res, d.err
}

func twoSections() []model.Section {
	return []model.Section{
		{Name: "General", Fields: []model.Question{
			{Section: "General", Number: "1", Text: "Company Name", ResponseHint: "[Enter text]", Required: true},
			{Section: "General", Number: "2", Text: "Locations", ResponseHint: "[Enter for each: location]"},
		}},
		{Name: "Cover", Fields: []model.Question{
			{Section: "Cover", Number: "1", Text: "Sum insured", ResponseHint: "[Enter amount]", Required: true},
		}},
	}
}

func loaded(t *testing.T, d Dispatcher) *Wizard {
	t.Helper()
	w := New(Owner{UserID: "u-1", CompanyID: "co-1", Email: "a@b.in", Name: "Asha"},
		staticLoader{"fire": twoSections(), "empty": {}}, d)
	require.NoError(t, w.SelectProduct(context.Background(), "fire"))
	return w
}

func TestAdvance_RequiredFieldBlocks(t *testing.T) {
	t.Parallel()
	w := loaded(t, &fakeDispatcher{})

	err := w.Advance()
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"General_1"}, ve.Missing)
	assert.Equal(t, "General", ve.Section)
	assert.True(t, IsValidation(err))

	v := w.Snapshot()
	assert.Equal(t, 0, v.SectionIndex)
	assert.Equal(t, StateSectionActive, v.State)
}

func TestAdvance_WhitespaceIsUnanswered(t *testing.T) {
	t.Parallel()
	w := loaded(t, &fakeDispatcher{})
	require.NoError(t, w.Answer("General_1", model.TextAnswer("   ")))
	assert.True(t, IsValidation(w.Advance()))
}

func TestWalkThroughAndRetreat(t *testing.T) {
	t.Parallel()
	w := loaded(t, &fakeDispatcher{})

	assert.ErrorIs(t, w.Retreat(), ErrAtFirstSection)

	require.NoError(t, w.Answer("General_1", model.TextAnswer("Acme")))
	require.NoError(t, w.Advance())
	assert.Equal(t, 1, w.Snapshot().SectionIndex)
	assert.Equal(t, "Cover", w.Snapshot().Section)

	require.NoError(t, w.Answer("Cover_1", model.TextAnswer("5000000")))
	require.NoError(t, w.Advance())
	assert.Equal(t, StateSubmitting, w.State())

	require.NoError(t, w.Retreat())
	assert.Equal(t, StateSectionActive, w.State())
	assert.Equal(t, 1, w.Snapshot().SectionIndex)

	require.NoError(t, w.Retreat())
	assert.Equal(t, 0, w.Snapshot().SectionIndex)
	assert.Equal(t, "Acme", w.Snapshot().Answers["General_1"].Text)
}

func TestSelectProduct_ResetsAnswers(t *testing.T) {
	t.Parallel()
	w := loaded(t, &fakeDispatcher{})
	require.NoError(t, w.Answer("General_1", model.TextAnswer("Acme")))
	require.NoError(t, w.Advance())

	require.NoError(t, w.SelectProduct(context.Background(), "fire"))
	v := w.Snapshot()
	assert.Empty(t, v.Answers)
	assert.Equal(t, 0, v.SectionIndex)
	assert.Equal(t, []string{"General", "Cover"}, v.SectionNames)
	require.Len(t, v.Fields, 2)
	assert.Equal(t, model.FieldText, v.Fields[0].Field.Type)
	assert.Equal(t, model.FieldMultiEntry, v.Fields[1].Field.Type)
}

func TestSelectProduct_Failures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		product string
		wantErr error
	}{
		{"unknown product", "missing", nil},
		{"no questions", "empty", ErrEmptyQuestionSet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := New(Owner{}, staticLoader{"empty": {}}, &fakeDispatcher{})

			err := w.SelectProduct(context.Background(), tt.product)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			v := w.Snapshot()
			assert.Equal(t, StateLoadFailed, v.State)
			assert.NotEmpty(t, v.LoadError)
			assert.ErrorIs(t, w.Answer("k", model.TextAnswer("v")), ErrInvalidState)
		})
	}
}

func TestSelectProduct_StaleLoadIsDropped(t *testing.T) {
	t.Parallel()
	slow := make(chan struct{})
	l := &blockingLoader{
		gates:   map[string]chan struct{}{"slow": slow},
		started: make(chan string, 2),
		data: staticLoader{
			"slow": {{Name: "Slow", Fields: []model.Question{{Section: "Slow", Number: "1", Text: "Q"}}}},
			"fast": twoSections(),
		},
	}
	w := New(Owner{}, l, &fakeDispatcher{})

	errc := make(chan error, 1)
	go func() { errc <- w.SelectProduct(context.Background(), "slow") }()
	assert.Equal(t, "slow", <-l.started)

	require.NoError(t, w.SelectProduct(context.Background(), "fast"))
	<-l.started
	close(slow)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("stale load did not return")
	}
	v := w.Snapshot()
	assert.Equal(t, "fast", v.ProductID)
	assert.Equal(t, []string{"General", "Cover"}, v.SectionNames)
}

func TestEntries(t *testing.T) {
	t.Parallel()
	w := loaded(t, &fakeDispatcher{})

	assert.ErrorIs(t, w.AddEntry("General_2", "   "), ErrEmptyEntry)
	require.NoError(t, w.AddEntry("General_2", " Pune "))
	require.NoError(t, w.AddEntry("General_2", "Mumbai"))
	require.NoError(t, w.AddEntry("General_2", "Delhi"))
	assert.Equal(t, []string{"Pune", "Mumbai", "Delhi"}, w.Snapshot().Answers["General_2"].List)

	require.NoError(t, w.RemoveEntry("General_2", 1))
	assert.Equal(t, []string{"Pune", "Delhi"}, w.Snapshot().Answers["General_2"].List)

	assert.ErrorIs(t, w.RemoveEntry("General_2", 5), ErrEntryIndex)
	assert.ErrorIs(t, w.RemoveEntry("General_9", 0), ErrUnknownField)
}

func TestEntries_OnlyOnMultiEntryFields(t *testing.T) {
	t.Parallel()
	w := loaded(t, &fakeDispatcher{})

	assert.ErrorIs(t, w.AddEntry("General_1", "Pune"), classify.ErrInvalidValue)
	assert.ErrorIs(t, w.RemoveEntry("General_1", 0), classify.ErrInvalidValue)
	assert.ErrorIs(t, w.AddEntry("Nope_1", "Pune"), ErrUnknownField)
	assert.NotContains(t, w.Snapshot().Answers, "General_1")
}

func typedSections() []model.Section {
	return []model.Section{{Name: "Risk", Fields: []model.Question{
		{Section: "Risk", Number: "1", Text: "Any claims?", ResponseHint: "[Yes/No]"},
		{Section: "Risk", Number: "2", Text: "Policy start", ResponseHint: "[DD/MM/YYYY]"},
		{Section: "Risk", Number: "3", Text: "Sites", ResponseHint: "[Enter for each: site]"},
		{Section: "Risk", Number: "4", Text: "Construction", ResponseHint: "[Select: RCC, Steel, Wood]"},
		{Section: "Risk", Number: "5", Text: "Period", ResponseHint: "[From To]"},
	}}}
}

func TestAnswer_NormalizesByFieldType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     string
		in      model.Answer
		want    model.Answer
		wantErr error
	}{
		{"yes-no literal", "Risk_1", model.TextAnswer(" Y "), model.TextAnswer("yes"), nil},
		{"yes-no rejects other text", "Risk_1", model.TextAnswer("maybe"), model.Answer{}, classify.ErrInvalidValue},
		{"date to iso", "Risk_2", model.TextAnswer("15/01/2024"), model.TextAnswer("2024-01-15"), nil},
		{"bad date", "Risk_2", model.TextAnswer("31/02/2024"), model.Answer{}, classify.ErrInvalidValue},
		{"scalar into multi-entry", "Risk_3", model.TextAnswer(" Pune "), model.ListAnswer("Pune"), nil},
		{"dropdown option", "Risk_4", model.TextAnswer("Steel"), model.TextAnswer("Steel"), nil},
		{"dropdown outsider", "Risk_4", model.TextAnswer("Glass"), model.Answer{}, classify.ErrInvalidValue},
		{"list into dropdown", "Risk_4", model.ListAnswer("Steel"), model.Answer{}, classify.ErrInvalidValue},
		{"range dates", "Risk_5", model.RangeAnswer("01-04-2024", "2025-03-31"), model.RangeAnswer("2024-04-01", "2025-03-31"), nil},
		{"text into range", "Risk_5", model.TextAnswer("next year"), model.Answer{}, classify.ErrInvalidValue},
		{"unknown key", "Risk_9", model.TextAnswer("x"), model.Answer{}, ErrUnknownField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := New(Owner{}, staticLoader{"risk": typedSections()}, &fakeDispatcher{})
			require.NoError(t, w.SelectProduct(context.Background(), "risk"))

			err := w.Answer(tt.key, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.NotContains(t, w.Snapshot().Answers, tt.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.Snapshot().Answers[tt.key])
		})
	}
}

func TestAdvance_EmptySection(t *testing.T) {
	t.Parallel()
	sections := []model.Section{
		{Name: "General", Fields: []model.Question{
			{Section: "General", Number: "1", Text: "Company Name", ResponseHint: "[Enter text]", Required: true},
		}},
		{Name: "Empty"},
		{Name: "Cover", Fields: []model.Question{
			{Section: "Cover", Number: "1", Text: "Sum insured", ResponseHint: "[Enter amount]"},
		}},
		{Name: "Empty"},
	}
	w := New(Owner{}, staticLoader{"p": sections}, &fakeDispatcher{})
	require.NoError(t, w.SelectProduct(context.Background(), "p"))

	require.NoError(t, w.Answer("General_1", model.TextAnswer("Acme")))
	require.NoError(t, w.Advance())
	assert.Equal(t, "Empty", w.Snapshot().Section)
	require.NoError(t, w.Advance())
	assert.Equal(t, "Cover", w.Snapshot().Section)
	require.NoError(t, w.Advance())
	assert.Equal(t, 3, w.Snapshot().SectionIndex)
	require.NoError(t, w.Advance())
	assert.Equal(t, StateSubmitting, w.State())
}

func completed(t *testing.T, d Dispatcher) *Wizard {
	t.Helper()
	w := loaded(t, d)
	require.NoError(t, w.Answer("General_1", model.TextAnswer("Acme")))
	require.NoError(t, w.Advance())
	require.NoError(t, w.Answer("Cover_1", model.TextAnswer("100")))
	require.NoError(t, w.Advance())
	return w
}

func TestSubmit_Free(t *testing.T) {
	t.Parallel()
	d := &fakeDispatcher{res: &submission.Result{RFQ: &model.RFQ{ID: "r-1"}}}
	w := completed(t, d)

	res, err := w.Submit(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "r-1", res.RFQ.ID)
	assert.Equal(t, StateSubmittedFree, w.State())

	require.Len(t, d.reqs, 1)
	req := d.reqs[0]
	assert.True(t, req.IsFirstRFQ)
	assert.Equal(t, "fire", req.ProductID)
	assert.Equal(t, "co-1", req.CompanyID)
	assert.Equal(t, "a@b.in", req.UserEmail)
	assert.Equal(t, "Acme", req.Answers["General_1"].Text)

	assert.ErrorIs(t, w.SelectProduct(context.Background(), "fire"), ErrInvalidState)
}

func TestSubmit_Paid(t *testing.T) {
	t.Parallel()
	d := &fakeDispatcher{res: &submission.Result{Payment: &payment.Handle{Token: "tok"}}}
	w := completed(t, d)

	_, err := w.Submit(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingPayment, w.State())
	assert.NotNil(t, w.Snapshot().Result.Payment)
}

func TestSubmit_FailureStaysSubmitting(t *testing.T) {
	t.Parallel()
	d := &fakeDispatcher{err: payment.ErrPaymentFailed}
	w := completed(t, d)

	_, err := w.Submit(context.Background(), false)
	assert.ErrorIs(t, err, payment.ErrPaymentFailed)
	assert.Equal(t, StateSubmitting, w.State())
}

func TestSubmit_WrongState(t *testing.T) {
	t.Parallel()
	w := loaded(t, &fakeDispatcher{})
	_, err := w.Submit(context.Background(), true)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestReset(t *testing.T) {
	t.Parallel()
	w := loaded(t, &fakeDispatcher{})
	require.NoError(t, w.Answer("General_1", model.TextAnswer("Acme")))
	w.Reset()

	v := w.Snapshot()
	assert.Equal(t, StateProductUnselected, v.State)
	assert.Empty(t, v.Answers)
	assert.Zero(t, v.SectionCount)
}

func TestFieldInfo(t *testing.T) {
	t.Parallel()
	w := loaded(t, &fakeDispatcher{})

	info, ok := w.FieldInfo("Cover_1")
	require.True(t, ok)
	assert.Equal(t, model.FieldNumber, info.Type)

	_, ok = w.FieldInfo("Nope_1")
	assert.False(t, ok)
}
