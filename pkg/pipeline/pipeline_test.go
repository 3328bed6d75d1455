package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsense/aicore/pkg/events"
	"github.com/docsense/aicore/pkg/gateway"
	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/store"
	"github.com/docsense/aicore/pkg/vectordb"
)

type fakeRepo struct {
	mu            sync.Mutex
	doc           *store.Document
	statusHistory []store.DocumentStatus
	chunks        []store.Chunk
	chunkStatus   map[uuid.UUID]store.ChunkStatus
	textRows      []*store.TextEmbedding
	visualRows    []*store.VisualEmbedding
	jobs          []*store.ProcessingJob
}

func newFakeRepo(doc *store.Document) *fakeRepo {
	return &fakeRepo{doc: doc, chunkStatus: map[uuid.UUID]store.ChunkStatus{}}
}

func (f *fakeRepo) GetDocument(ctx context.Context, id uuid.UUID) (*store.Document, error) {
	if f.doc == nil || f.doc.ID != id {
		return nil, errors.New("record not found")
	}
	d := *f.doc
	return &d, nil
}

func (f *fakeRepo) SetDocumentStatus(ctx context.Context, id uuid.UUID, status store.DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc.Status = status
	f.statusHistory = append(f.statusHistory, status)
	return nil
}

func (f *fakeRepo) ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []store.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = chunks
	return nil
}

func (f *fakeRepo) SetChunkStatus(ctx context.Context, chunkID uuid.UUID, status store.ChunkStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunkStatus[chunkID] = status
	return nil
}

func (f *fakeRepo) InsertTextEmbedding(ctx context.Context, e *store.TextEmbedding) error {
	if err := e.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textRows = append(f.textRows, e)
	return nil
}

func (f *fakeRepo) InsertVisualEmbedding(ctx context.Context, e *store.VisualEmbedding) error {
	if err := e.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visualRows = append(f.visualRows, e)
	return nil
}

func (f *fakeRepo) CreateProcessingJob(ctx context.Context, job *store.ProcessingJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeContent struct {
	data []byte
	err  error
}

func (f *fakeContent) ReadDocument(ctx context.Context, storageRef string) ([]byte, error) {
	return f.data, f.err
}

type fakeVectors struct {
	mu      sync.Mutex
	upserts map[string][]vectordb.Point
}

func newFakeVectors() *fakeVectors {
	return &fakeVectors{upserts: map[string][]vectordb.Point{}}
}

func (f *fakeVectors) Upsert(ctx context.Context, collection string, points []vectordb.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts[collection] = append(f.upserts[collection], points...)
	return nil
}

type fakeGate struct {
	mu     sync.Mutex
	calls  []gateway.Action
	invoke func(action gateway.Action, payload map[string]any) (*gateway.Result, error)
}

func (f *fakeGate) Invoke(ctx context.Context, action gateway.Action, payload map[string]any, owner string) (*gateway.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, action)
	f.mu.Unlock()
	return f.invoke(action, payload)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []events.DocumentProcessed
}

func (f *fakeEvents) Publish(ctx context.Context, e events.DocumentProcessed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func textVector() []any {
	v := make([]any, store.TextEmbeddingDim)
	for i := range v {
		v[i] = 0.25
	}
	return v
}

func newTestProcessor(repo *fakeRepo, content *fakeContent, vectors *fakeVectors, gate *fakeGate, pub *fakeEvents) *Processor {
	l := logger.NewLogger(logger.Config{Level: logger.Error, ServiceName: "pipeline-test"})
	cfg := Config{FanoutLimit: 2, ChunkMaxChars: 1200, ChunkOverlapRatio: 0.15}
	return NewProcessor(cfg, repo, content, vectors, gate, pub, l)
}

func textDocument() *store.Document {
	return &store.Document{
		ID:          uuid.New(),
		OwnerID:     "owner-1",
		Title:       "notes",
		StorageRef:  "documents/notes.txt",
		ContentType: "text/plain",
		Status:      store.DocumentPending,
	}
}

func TestProcess_PartialSuccessCompletes(t *testing.T) {
	doc := textDocument()
	repo := newFakeRepo(doc)
	gate := &fakeGate{invoke: func(action gateway.Action, payload map[string]any) (*gateway.Result, error) {
		if text, _ := payload["text"].(string); strings.Contains(text, "beta") {
			return nil, gateway.ErrRemoteUnavailable
		}
		return &gateway.Result{Data: map[string]any{"embedding": textVector(), "model": "embed-1"}}, nil
	}}
	vectors := newFakeVectors()
	pub := &fakeEvents{}
	p := newTestProcessor(repo, &fakeContent{data: []byte("alpha\n\nbeta\n\ngamma")}, vectors, gate, pub)

	report, err := p.Process(context.Background(), doc.ID, false)
	require.NoError(t, err)

	assert.Equal(t, store.DocumentCompleted, report.Status)
	assert.Equal(t, 3, report.ChunksTotal)
	assert.Equal(t, 2, report.ChunksEmbedded)
	assert.Equal(t, 1, report.ChunksFailed)

	// The failing chunk is marked, the rest embedded.
	var failedCount, embeddedCount int
	for _, c := range repo.chunks {
		switch repo.chunkStatus[c.ID] {
		case store.ChunkEmbeddingFailed:
			failedCount++
			assert.Equal(t, "beta", c.Content)
		case store.ChunkEmbedded:
			embeddedCount++
		}
	}
	assert.Equal(t, 1, failedCount)
	assert.Equal(t, 2, embeddedCount)

	assert.Len(t, vectors.upserts[store.CollectionTextChunks], 2)
	assert.Len(t, repo.textRows, 2)

	require.Len(t, repo.jobs, 1)
	assert.Equal(t, string(store.DocumentCompleted), repo.jobs[0].Status)
	assert.Equal(t, 1, repo.jobs[0].ChunksFailed)

	require.Len(t, pub.events, 1)
	assert.Equal(t, doc.ID, pub.events[0].DocumentID)
	assert.Equal(t, 2, pub.events[0].ChunksEmbedded)
}

func TestProcess_AllChunksFailedFailsDocument(t *testing.T) {
	doc := textDocument()
	repo := newFakeRepo(doc)
	gate := &fakeGate{invoke: func(action gateway.Action, payload map[string]any) (*gateway.Result, error) {
		return nil, gateway.ErrTimeout
	}}
	p := newTestProcessor(repo, &fakeContent{data: []byte("alpha\n\nbeta")}, newFakeVectors(), gate, &fakeEvents{})

	report, err := p.Process(context.Background(), doc.ID, false)
	require.NoError(t, err)

	assert.Equal(t, store.DocumentFailed, report.Status)
	assert.Equal(t, 2, report.ChunksTotal)
	assert.Equal(t, 0, report.ChunksEmbedded)
	assert.Equal(t, store.DocumentFailed, repo.doc.Status)
}

func TestProcess_CompletedDocumentIsNoOpUnlessForced(t *testing.T) {
	doc := textDocument()
	doc.Status = store.DocumentCompleted
	repo := newFakeRepo(doc)
	gate := &fakeGate{invoke: func(action gateway.Action, payload map[string]any) (*gateway.Result, error) {
		return &gateway.Result{Data: map[string]any{"embedding": textVector()}}, nil
	}}
	p := newTestProcessor(repo, &fakeContent{data: []byte("alpha")}, newFakeVectors(), gate, &fakeEvents{})

	report, err := p.Process(context.Background(), doc.ID, false)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Empty(t, gate.calls)

	report, err = p.Process(context.Background(), doc.ID, true)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.NotEmpty(t, gate.calls)
}

func TestProcess_ContentReadFailureFailsRun(t *testing.T) {
	doc := textDocument()
	repo := newFakeRepo(doc)
	gate := &fakeGate{invoke: func(action gateway.Action, payload map[string]any) (*gateway.Result, error) {
		t.Fatal("gateway must not be called when content is unreadable")
		return nil, nil
	}}
	pub := &fakeEvents{}
	p := newTestProcessor(repo, &fakeContent{err: errors.New("object missing")}, newFakeVectors(), gate, pub)

	_, err := p.Process(context.Background(), doc.ID, false)
	require.Error(t, err)

	assert.Equal(t, store.DocumentFailed, repo.doc.Status)
	require.Len(t, repo.jobs, 1)
	assert.Contains(t, repo.jobs[0].LastError, "object missing")
	assert.Len(t, pub.events, 1)
}

func TestProcess_NonTextContentGoesThroughExtraction(t *testing.T) {
	doc := textDocument()
	doc.ContentType = "application/pdf"
	repo := newFakeRepo(doc)

	visualVec := make([]any, store.VisualEmbeddingDim)
	for i := range visualVec {
		visualVec[i] = 0.5
	}

	gate := &fakeGate{}
	gate.invoke = func(action gateway.Action, payload map[string]any) (*gateway.Result, error) {
		switch action {
		case gateway.ActionExtractText:
			return &gateway.Result{Data: map[string]any{
				"text": "extracted paragraph",
				"images": []any{
					map[string]any{"ref": "page-1/img-0", "image_data": "aGk="},
				},
			}}, nil
		case gateway.ActionTextEmbedding:
			return &gateway.Result{Data: map[string]any{"embedding": textVector()}}, nil
		case gateway.ActionVisualEmbedding:
			return &gateway.Result{Data: map[string]any{"embedding": visualVec}}, nil
		}
		return nil, gateway.ErrUnknownAction
	}

	vectors := newFakeVectors()
	p := newTestProcessor(repo, &fakeContent{data: []byte{0x25, 0x50}}, vectors, gate, &fakeEvents{})

	report, err := p.Process(context.Background(), doc.ID, false)
	require.NoError(t, err)

	assert.Equal(t, store.DocumentCompleted, report.Status)
	assert.Equal(t, 1, report.ChunksEmbedded)
	assert.Equal(t, 1, report.ImagesEmbedded)
	assert.Equal(t, gateway.ActionExtractText, gate.calls[0])
	assert.Len(t, vectors.upserts[store.CollectionVisualEmbeddings], 1)
	require.Len(t, repo.visualRows, 1)
	assert.Equal(t, "page-1/img-0", repo.visualRows[0].ImageRef)
}

func TestProcess_CancelledContextStopsNewWork(t *testing.T) {
	doc := textDocument()
	repo := newFakeRepo(doc)

	ctx, cancel := context.WithCancel(context.Background())
	gate := &fakeGate{invoke: func(action gateway.Action, payload map[string]any) (*gateway.Result, error) {
		// First call cancels the pipeline context; it still completes.
		cancel()
		time.Sleep(10 * time.Millisecond)
		return &gateway.Result{Data: map[string]any{"embedding": textVector()}}, nil
	}}

	text := strings.Repeat("para\n\n", 20)
	cfg := Config{FanoutLimit: 1, ChunkMaxChars: 1200, ChunkOverlapRatio: 0.15}
	l := logger.NewLogger(logger.Config{Level: logger.Error, ServiceName: "pipeline-test"})
	p := NewProcessor(cfg, repo, &fakeContent{data: []byte(text)}, newFakeVectors(), gate, &fakeEvents{}, l)

	report, err := p.Process(ctx, doc.ID, false)
	require.NoError(t, err)

	// In-flight calls finished and persisted; no new calls were issued
	// after cancellation.
	assert.Less(t, len(gate.calls), report.ChunksTotal)
	assert.GreaterOrEqual(t, report.ChunksEmbedded, 1)
}

func TestParseVector(t *testing.T) {
	_, err := parseVector("nope", 3)
	assert.Error(t, err)

	_, err = parseVector([]any{0.1, 0.2}, 3)
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)

	v, err := parseVector([]any{0.1, 0.2, 0.3}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, v)
}
