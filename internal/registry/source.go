package registry

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sanctuari/rfq-cli/internal/fetcher"
	"github.com/sanctuari/rfq-cli/pkg/notion"
)

// NotionScheme prefixes source refs that name a Notion database.
const NotionScheme = "notion://"

// Source returns the data rows of a question table, header removed.
type Source interface {
	Rows(ctx context.Context, ref string) ([][]string, error)
}

// FileSource reads CSV or XLSX question tables from local files.
type FileSource struct{}

// Rows implements Source.
func (FileSource) Rows(ctx context.Context, ref string) ([][]string, error) {
	if isXLSX(ref) {
		rows, err := fetcher.ReadXLSX(ref, fetcher.XLSXOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "registry: read workbook %s", ref)
		}
		return dropHeader(rows), nil
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: open %s", ref)
	}
	defer f.Close() //nolint:errcheck

	return readCSV(ctx, f)
}

// HTTPSource downloads question tables and revalidates them with ETags, so an
// unchanged table is served from memory.
type HTTPSource struct {
	fetcher fetcher.Fetcher

	mu    sync.Mutex
	cache map[string]cachedBody
}

type cachedBody struct {
	etag string
	body []byte
}

// NewHTTPSource creates an HTTPSource backed by f.
func NewHTTPSource(f fetcher.Fetcher) *HTTPSource {
	return &HTTPSource{fetcher: f, cache: make(map[string]cachedBody)}
}

// Rows implements Source.
func (s *HTTPSource) Rows(ctx context.Context, ref string) ([][]string, error) {
	data, err := s.download(ctx, ref)
	if err != nil {
		return nil, err
	}
	if isXLSX(ref) {
		rows, err := fetcher.ReadXLSXBytes(data, fetcher.XLSXOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "registry: parse workbook %s", ref)
		}
		return dropHeader(rows), nil
	}
	return readCSV(ctx, bytes.NewReader(data))
}

func (s *HTTPSource) download(ctx context.Context, ref string) ([]byte, error) {
	s.mu.Lock()
	prev, hit := s.cache[ref]
	s.mu.Unlock()

	body, etag, changed, err := s.fetcher.DownloadIfChanged(ctx, ref, prev.etag)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: download %s", ref)
	}
	if !changed && hit {
		zap.L().Debug("registry: question set not modified", zap.String("ref", ref))
		return prev.body, nil
	}
	if body == nil {
		return nil, eris.Errorf("registry: empty response for %s", ref)
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read body %s", ref)
	}

	if etag != "" {
		s.mu.Lock()
		s.cache[ref] = cachedBody{etag: etag, body: data}
		s.mu.Unlock()
	}
	return data, nil
}

// NotionSource reads question tables from a Notion database whose pages carry
// the properties Section, No, Question, Response, Notes and Instructions.
// Pages are read in creation order; there is no header row.
type NotionSource struct {
	client notion.Client
}

// NewNotionSource creates a NotionSource.
func NewNotionSource(c notion.Client) *NotionSource {
	return &NotionSource{client: c}
}

// Rows implements Source. ref may carry the notion:// prefix.
func (s *NotionSource) Rows(ctx context.Context, ref string) ([][]string, error) {
	dbID := strings.TrimPrefix(ref, NotionScheme)
	pages, err := notion.QueryInCreationOrder(ctx, s.client, dbID)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: query notion database %s", dbID)
	}

	rows := make([][]string, 0, len(pages))
	for _, p := range pages {
		rows = append(rows, []string{
			notion.PropertyText(p, "Section"),
			notion.PropertyText(p, "No"),
			notion.PropertyText(p, "Question"),
			notion.PropertyText(p, "Response"),
			notion.PropertyText(p, "Notes"),
			notion.PropertyText(p, "Instructions"),
		})
	}
	return rows, nil
}

func readCSV(ctx context.Context, r io.Reader) ([][]string, error) {
	rows, err := fetcher.ReadCSV(ctx, r, fetcher.CSVOptions{LazyQuotes: true})
	if err != nil {
		return nil, eris.Wrap(err, "registry: parse csv")
	}
	return dropHeader(rows), nil
}

func isXLSX(ref string) bool {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	return strings.EqualFold(path.Ext(ref), ".xlsx")
}

func isHTTP(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// resolveRef turns a catalog SourceRef into an absolute file path or URL.
// Relative names are joined onto base, which may itself be a directory or
// an http(s) URL prefix.
func resolveRef(base, ref string) string {
	if isHTTP(ref) || strings.HasPrefix(ref, NotionScheme) || filepath.IsAbs(ref) {
		return ref
	}
	if isHTTP(base) {
		return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(ref, "/")
	}
	return filepath.Join(base, ref)
}
