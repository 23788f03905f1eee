package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
	"github.com/akolanti/DocChat/internal/rag/embedding/placeholderEmbedding"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

// --- Mocks ---

type mockRegistry struct {
	nextId     int64
	rows       map[int64]commonModels.Document
	insertFunc func(ctx context.Context, filename string) (commonModels.Document, error)
	deleteFunc func(ctx context.Context, id int64) (bool, error)
	inserts    int
	deletes    int
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{rows: map[int64]commonModels.Document{}}
}

func (m *mockRegistry) InsertDocument(ctx context.Context, filename string) (commonModels.Document, error) {
	m.inserts++
	if m.insertFunc != nil {
		return m.insertFunc(ctx, filename)
	}
	m.nextId++
	doc := commonModels.Document{FileId: m.nextId, Filename: filename, UploadTimestamp: time.Now()}
	m.rows[doc.FileId] = doc
	return doc, nil
}

func (m *mockRegistry) DeleteDocument(ctx context.Context, id int64) (bool, error) {
	m.deletes++
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	_, ok := m.rows[id]
	delete(m.rows, id)
	return ok, nil
}

type mockIndex struct {
	vectorDB.Index
	onAdd    func(ctx context.Context, entries []vectorDB.Entry) error
	onDelete func(ctx context.Context, filter vectorDB.Filter) error
	deleted  []vectorDB.Filter
}

func (m *mockIndex) Add(ctx context.Context, entries []vectorDB.Entry) error {
	return m.onAdd(ctx, entries)
}

func (m *mockIndex) DeleteByMetadata(ctx context.Context, filter vectorDB.Filter) error {
	m.deleted = append(m.deleted, filter)
	if m.onDelete != nil {
		return m.onDelete(ctx, filter)
	}
	return nil
}

func textLoader(pages ...string) Loader {
	return func(ctx context.Context, path string, log *logger_i.Logger) ([]Page, error) {
		out := make([]Page, len(pages))
		for i, p := range pages {
			out[i] = Page{Number: i + 1, Content: p}
		}
		return out, nil
	}
}

var chunking = config.ChunkingConfig{ChunkSize: 200, ChunkOverlap: 40}

// --- Unit Tests ---

func TestGetDocType(t *testing.T) {
	tests := []struct {
		path     string
		expected commonModels.DocType
	}{
		{"test.pdf", commonModels.PDF},
		{"DOC.DOCX", commonModels.DOCX},
		{"page.HTML", commonModels.HTML},
		{"notes.txt", commonModels.Unsupported},
		{"page.htm", commonModels.Unsupported},
		{"noext", commonModels.Unsupported},
	}

	for _, tt := range tests {
		if got := GetDocType(tt.path); got != tt.expected {
			t.Errorf("GetDocType(%s) = %v; want %v", tt.path, got, tt.expected)
		}
	}
}

func TestSplitText_Properties(t *testing.T) {
	paragraph := "Revenue rose eleven percent in the quarter. Costs were flat.\nHeadcount grew by four.\n\n"
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{"paragraphs", strings.Repeat(paragraph, 40), 1000, 200},
		{"small chunks", strings.Repeat(paragraph, 5), 30, 5},
		{"no separators", strings.Repeat("x", 2500), 1000, 200},
		{"multibyte hard cut", strings.Repeat("é", 700), 100, 10},
		{"zero overlap", strings.Repeat("word ", 500), 64, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := SplitText(tt.text, tt.size, tt.overlap)
			if len(segments) < 2 {
				t.Fatalf("expected multiple segments, got %d", len(segments))
			}

			var rebuilt strings.Builder
			for i, s := range segments {
				if len(s.Text) > tt.size {
					t.Errorf("segment %d has %d bytes, limit %d", i, len(s.Text), tt.size)
				}
				if s.Overlap > tt.overlap {
					t.Errorf("segment %d overlaps %d bytes, limit %d", i, s.Overlap, tt.overlap)
				}
				if i == 0 && s.Overlap != 0 {
					t.Errorf("first segment cannot overlap")
				}
				if tt.text[s.Offset:s.Offset+len(s.Text)] != s.Text {
					t.Errorf("segment %d offset %d does not point at its text", i, s.Offset)
				}
				rebuilt.WriteString(s.Text[s.Overlap:])
			}
			if rebuilt.String() != tt.text {
				t.Error("dropping overlaps and concatenating must give the original text")
			}
		})
	}
}

func TestSplitText_EdgeCases(t *testing.T) {
	if got := SplitText("", 1000, 200); len(got) != 0 {
		t.Errorf("empty text should give no segments, got %d", len(got))
	}

	short := "short text"
	got := SplitText(short, 1000, 200)
	if len(got) != 1 || got[0].Text != short {
		t.Errorf("short text should be one segment, got %+v", got)
	}

	a := SplitText(strings.Repeat("deterministic output. ", 200), 100, 20)
	b := SplitText(strings.Repeat("deterministic output. ", 200), 100, 20)
	if len(a) != len(b) {
		t.Fatal("splitter is not deterministic")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("segment %d differs between runs", i)
		}
	}
}

func TestSplitText_ClampsBadParams(t *testing.T) {
	text := strings.Repeat("abc ", 100)
	for _, s := range SplitText(text, 10, 50) {
		if len(s.Text) > 10 || s.Overlap >= 10 {
			t.Fatalf("overlap >= size was not clamped: %+v", s)
		}
	}
	if got := SplitText(text, 0, -1); len(got) != 1 {
		t.Errorf("non-positive size should fall back to the default, got %d segments", len(got))
	}
}

func TestPrepareChunks(t *testing.T) {
	pages := []Page{
		{Number: 1, Content: "Page one content."},
		{Number: 2, Content: "   "},
		{Number: 3, Content: "Page three content."},
	}
	doc := commonModels.Document{FileId: 12, Filename: "report.pdf"}

	chunks := PrepareChunks(pages, doc, commonModels.PDF, 1000, 200)

	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks (blank page skipped), got %d", len(chunks))
	}
	if chunks[0].Doc.FileId != 12 || chunks[0].PageNum != 1 || chunks[0].ChunkOrder != 0 {
		t.Errorf("Metadata mismatch in chunk 0: %+v", chunks[0])
	}
	if chunks[1].PageNum != 3 || chunks[1].ChunkOrder != 1 {
		t.Errorf("Metadata mismatch in chunk 1: %+v", chunks[1])
	}
	if chunks[0].ChunkId == chunks[1].ChunkId {
		t.Error("chunk ids must be unique")
	}
	if md := chunks[1].Metadata(); md[commonModels.MetaFileId] != "12" || md[commonModels.MetaFilename] != "report.pdf" {
		t.Errorf("unexpected metadata %v", md)
	}
}

func TestIngest_Success(t *testing.T) {
	reg := newMockRegistry()
	idx := memoryDB.New(placeholderEmbedding.New(64))
	p := NewPipeline(reg, idx, chunking, WithLoader(commonModels.PDF, textLoader(strings.Repeat("Quarterly numbers look strong. ", 30))))

	id, err := p.Ingest(context.Background(), "/tmp/whatever.pdf", "doc.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := reg.rows[id]; !ok {
		t.Fatalf("file_id %d not registered", id)
	}

	entries, _ := idx.QueryByMetadata(context.Background(), vectorDB.Filter{commonModels.MetaFileId: commonModels.FormatFileId(id)})
	if len(entries) < 2 {
		t.Errorf("expected several chunks for file %d, got %d", id, len(entries))
	}
	for _, e := range entries {
		if e.Metadata[commonModels.MetaFilename] != "doc.pdf" {
			t.Errorf("chunk missing filename metadata: %v", e.Metadata)
		}
	}
}

func TestIngest_UnsupportedExtensionTouchesNothing(t *testing.T) {
	reg := newMockRegistry()
	idx := &mockIndex{onAdd: func(context.Context, []vectorDB.Entry) error {
		t.Fatal("index must not be called")
		return nil
	}}
	p := NewPipeline(reg, idx, chunking)

	_, err := p.Ingest(context.Background(), "/tmp/x.txt", "notes.txt")

	if !ragErrors.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !errors.Is(err, ragErrors.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat in chain, got %v", err)
	}
	if reg.inserts != 0 || reg.deletes != 0 {
		t.Errorf("registry touched: inserts=%d deletes=%d", reg.inserts, reg.deletes)
	}
}

func TestIngest_FailuresRollBack(t *testing.T) {
	loadErr := errors.New("corrupt file")
	indexErr := ragErrors.NewIndexError("add", errors.New("qdrant down"))

	tests := []struct {
		name      string
		loader    Loader
		addErr    error
		wantStage string
		wantCause error
	}{
		{
			name: "loader fails",
			loader: func(context.Context, string, *logger_i.Logger) ([]Page, error) {
				return nil, loadErr
			},
			wantStage: StageLoad,
			wantCause: loadErr,
		},
		{
			name:      "document has no text",
			loader:    textLoader("  ", "\n"),
			wantStage: StageChunk,
			wantCause: ragErrors.ErrEmptyDocument,
		},
		{
			name:      "index add fails",
			loader:    textLoader("some text"),
			addErr:    indexErr,
			wantStage: StageIndex,
			wantCause: indexErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newMockRegistry()
			idx := &mockIndex{onAdd: func(context.Context, []vectorDB.Entry) error { return tt.addErr }}
			p := NewPipeline(reg, idx, chunking, WithLoader(commonModels.DOCX, tt.loader))

			_, err := p.Ingest(context.Background(), "/tmp/a.docx", "a.docx")

			var ie *ragErrors.IngestionError
			if !errors.As(err, &ie) {
				t.Fatalf("expected IngestionError, got %v", err)
			}
			if ie.Stage != tt.wantStage {
				t.Errorf("stage = %s, want %s", ie.Stage, tt.wantStage)
			}
			if !errors.Is(err, tt.wantCause) {
				t.Errorf("cause not in chain: %v", err)
			}
			if ie.RollbackErr != nil {
				t.Errorf("unexpected rollback error %v", ie.RollbackErr)
			}
			if len(reg.rows) != 0 {
				t.Errorf("registry row left behind: %v", reg.rows)
			}
			if tt.wantStage == StageIndex && len(idx.deleted) != 1 {
				t.Errorf("expected partial chunks to be cleaned up, got %v", idx.deleted)
			}
		})
	}
}

func TestIngest_RollbackFailureIsReported(t *testing.T) {
	rollbackErr := errors.New("database is locked")
	reg := newMockRegistry()
	reg.deleteFunc = func(context.Context, int64) (bool, error) { return false, rollbackErr }
	idx := &mockIndex{onAdd: func(context.Context, []vectorDB.Entry) error { return errors.New("boom") }}
	p := NewPipeline(reg, idx, chunking, WithLoader(commonModels.HTML, textLoader("content")))

	_, err := p.Ingest(context.Background(), "/tmp/a.html", "a.html")

	var ie *ragErrors.IngestionError
	if !errors.As(err, &ie) || ie.RollbackErr == nil {
		t.Fatalf("expected rollback error to be reported, got %v", err)
	}
	if !errors.Is(err, rollbackErr) {
		t.Error("rollback cause should be reachable with errors.Is")
	}
}

func TestIngest_RollbackSurvivesCancelledContext(t *testing.T) {
	reg := newMockRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	reg.deleteFunc = func(rctx context.Context, id int64) (bool, error) {
		if rctx.Err() != nil {
			return false, rctx.Err()
		}
		delete(reg.rows, id)
		return true, nil
	}
	idx := &mockIndex{onAdd: func(context.Context, []vectorDB.Entry) error {
		cancel()
		return ragErrors.NewIndexError("add", context.Canceled)
	}}
	p := NewPipeline(reg, idx, chunking, WithLoader(commonModels.PDF, textLoader("content")))

	_, err := p.Ingest(ctx, "/tmp/a.pdf", "a.pdf")

	var ie *ragErrors.IngestionError
	if !errors.As(err, &ie) || ie.RollbackErr != nil {
		t.Fatalf("rollback should run on a detached context, got %v", err)
	}
	if len(reg.rows) != 0 {
		t.Error("registry row left behind")
	}
}

func TestIngest_RegisterFailure(t *testing.T) {
	reg := newMockRegistry()
	reg.insertFunc = func(context.Context, string) (commonModels.Document, error) {
		return commonModels.Document{}, ragErrors.NewStoreError("insert document", "a.pdf", errors.New("disk full"))
	}
	p := NewPipeline(reg, &mockIndex{}, chunking)

	_, err := p.Ingest(context.Background(), "/tmp/a.pdf", "a.pdf")

	var ie *ragErrors.IngestionError
	if !errors.As(err, &ie) || ie.Stage != StageRegister {
		t.Fatalf("expected register stage failure, got %v", err)
	}
	if reg.deletes != 0 {
		t.Error("nothing to roll back when registration fails")
	}
}

func TestExtractHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	body := `<html><head><title>Policy</title><style>p{color:red}</style></head>
<body><article><h1>Leave policy</h1>
<p>Employees accrue two days of paid leave per month of service. Unused leave carries over to the next year up to a limit of ten days.</p>
<p>Requests must be filed at least one week in advance through the HR portal, except in emergencies.</p>
</article><script>var tracking = true;</script></body></html>`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	pages, err := extractHTML(context.Background(), path, logger_i.NewLogger("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 || !strings.Contains(pages[0].Content, "paid leave") {
		t.Fatalf("expected article text, got %+v", pages)
	}
	if strings.Contains(pages[0].Content, "tracking") {
		t.Error("script content leaked into text")
	}
}

func TestHTMLText_Fallback(t *testing.T) {
	text, err := htmlText(strings.NewReader(`<div>one</div><script>skip()</script><p>two <b>three</b></p>`))
	if err != nil {
		t.Fatal(err)
	}
	if text != "one\ntwo three" {
		t.Errorf("unexpected text %q", text)
	}
}
