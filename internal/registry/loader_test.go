package registry

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/catalog"
	"github.com/sanctuari/rfq-cli/internal/fetcher"
	"github.com/sanctuari/rfq-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const fireCSV = "Section,No,Question,Response,Notes,Instructions\n" +
	"Proposer,1,Insured Name*,[Enter text],,\n" +
	"\n" +
	"Risk,1,\"Location, address\",Text,\"He said \"\"two\"\"\",\n" +
	"Proposer,2,Contact email,Email,,\n" +
	"Risk,2,,Text,,\n"

func testCatalog(t *testing.T, products ...model.Product) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(products)
	require.NoError(t, err)
	return c
}

func TestLoader_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fire.csv"), []byte(fireCSV), 0o644))
	l := NewLoader(testCatalog(t, model.Product{ID: "fire", DisplayName: "Fire", SourceRef: "fire.csv"}), dir)

	sections, err := l.Load(context.Background(), "fire")
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "Proposer", sections[0].Name)
	require.Len(t, sections[0].Fields, 2)
	assert.True(t, sections[0].Fields[0].Required)
	assert.Equal(t, "Risk", sections[1].Name)
	require.Len(t, sections[1].Fields, 1)
	assert.Equal(t, "Location, address", sections[1].Fields[0].Text)
	assert.Equal(t, `He said "two"`, sections[1].Fields[0].Notes)
}

func TestLoader_ScenarioA(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csv := "Section,No,Question,Response\nGeneral,1,Company Name,[Enter text]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte(csv), 0o644))
	l := NewLoader(testCatalog(t, model.Product{ID: "a", SourceRef: "a.csv"}), dir)

	sections, err := l.Load(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "General", sections[0].Name)
	assert.Len(t, sections[0].Fields, 1)
}

func TestLoader_ProductNotFound(t *testing.T) {
	t.Parallel()

	l := NewLoader(testCatalog(t, model.Product{ID: "fire", SourceRef: "fire.csv"}), t.TempDir())
	_, err := l.Load(context.Background(), "marine")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductNotFound))
	assert.False(t, errors.Is(err, ErrSourceUnavailable))
}

func TestLoader_MissingFileIsUnavailable(t *testing.T) {
	t.Parallel()

	l := NewLoader(testCatalog(t, model.Product{ID: "fire", SourceRef: "fire.csv"}), t.TempDir())
	sections, err := l.Load(context.Background(), "fire")
	require.Error(t, err)
	assert.Nil(t, sections)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestLoader_NoSourceForScheme(t *testing.T) {
	t.Parallel()

	l := NewLoader(testCatalog(t, model.Product{ID: "n", SourceRef: "notion://db"}), "")
	_, err := l.Load(context.Background(), "n")
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestLoader_HTTPWithETag(t *testing.T) {
	t.Parallel()

	var full, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		full.Add(1)
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(fireCSV))
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{BaseBackoff: time.Millisecond, DefaultRate: 1000})
	l := NewLoader(
		testCatalog(t, model.Product{ID: "fire", SourceRef: "fire.csv"}),
		srv.URL+"/rfq-data/",
		WithHTTPSource(NewHTTPSource(f)),
	)

	for range 2 {
		sections, err := l.Load(context.Background(), "fire")
		require.NoError(t, err)
		assert.Len(t, sections, 2)
	}
	assert.Equal(t, int32(1), full.Load())
	assert.Equal(t, int32(1), notModified.Load())
}

func TestLoader_HTTPServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{BaseBackoff: time.Millisecond, DefaultRate: 1000})
	l := NewLoader(
		testCatalog(t, model.Product{ID: "fire", SourceRef: srv.URL + "/fire.csv"}),
		"",
		WithHTTPSource(NewHTTPSource(f)),
	)
	_, err := l.Load(context.Background(), "fire")
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestLoader_XLSX(t *testing.T) {
	t.Parallel()

	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("Questions")
	require.NoError(t, err)
	for _, r := range [][]string{
		{"Section", "No", "Question", "Response"},
		{"Cover", "1", "Sum insured", "Enter amount in ₹"},
	} {
		row := sheet.AddRow()
		for _, c := range r {
			row.AddCell().SetString(c)
		}
	}
	dir := t.TempDir()
	require.NoError(t, wb.Save(filepath.Join(dir, "cover.xlsx")))

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{DefaultRate: 1000})
	l := NewLoader(
		testCatalog(t,
			model.Product{ID: "local", SourceRef: "cover.xlsx"},
			model.Product{ID: "remote", SourceRef: srv.URL + "/cover.xlsx?dl=1"},
		),
		dir,
		WithHTTPSource(NewHTTPSource(f)),
	)

	for _, id := range []string{"local", "remote"} {
		sections, err := l.Load(context.Background(), id)
		require.NoError(t, err, id)
		require.Len(t, sections, 1)
		assert.Equal(t, "Sum insured", sections[0].Fields[0].Text)
	}
}

type mockNotionClient struct {
	mock.Mock
}

func (m *mockNotionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func questionPage(section, no, question, response string) notionapi.Page {
	rt := func(s string) *notionapi.RichTextProperty {
		return &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: s}}}
	}
	return notionapi.Page{Properties: notionapi.Properties{
		"Section":  &notionapi.SelectProperty{Select: notionapi.Option{Name: section}},
		"No":       rt(no),
		"Question": &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: question}}},
		"Response": rt(response),
	}}
}

func TestLoader_Notion(t *testing.T) {
	t.Parallel()

	mc := new(mockNotionClient)
	mc.On("QueryDatabase", mock.Anything, "db-42", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{
			questionPage("Cover", "1", "Sum insured", "Enter amount"),
			questionPage("", "2", "Remarks", "Details"),
			questionPage("Cover", "3", "", "Text"),
		}}, nil).Once()

	l := NewLoader(
		testCatalog(t, model.Product{ID: "cyber", SourceRef: "notion://db-42"}),
		"",
		WithNotionSource(NewNotionSource(mc)),
	)
	sections, err := l.Load(context.Background(), "cyber")
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "Cover", sections[0].Name)
	assert.Equal(t, model.DefaultSectionName, sections[1].Name)
	mc.AssertExpectations(t)
}

func TestLoader_NotionError(t *testing.T) {
	t.Parallel()

	mc := new(mockNotionClient)
	mc.On("QueryDatabase", mock.Anything, "db-1", mock.Anything).Return(nil, assert.AnError)

	l := NewLoader(
		testCatalog(t, model.Product{ID: "cyber", SourceRef: "notion://db-1"}),
		"",
		WithNotionSource(NewNotionSource(mc)),
	)
	_, err := l.Load(context.Background(), "cyber")
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestResolveRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base, ref, want string
	}{
		{"data", "fire.csv", filepath.Join("data", "fire.csv")},
		{"https://cdn.example.com/rfq-data/", "fire.csv", "https://cdn.example.com/rfq-data/fire.csv"},
		{"https://cdn.example.com/rfq-data", "/fire.csv", "https://cdn.example.com/rfq-data/fire.csv"},
		{"data", "https://x.example.com/a.csv", "https://x.example.com/a.csv"},
		{"data", "notion://abc", "notion://abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveRef(tt.base, tt.ref))
	}
}
