package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/docsense/aicore/pkg/events"
	"github.com/docsense/aicore/pkg/gateway"
	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/store"
	"github.com/docsense/aicore/pkg/vectordb"
)

// documentStore is the slice of the repository the pipeline writes through.
type documentStore interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*store.Document, error)
	SetDocumentStatus(ctx context.Context, id uuid.UUID, status store.DocumentStatus) error
	ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []store.Chunk) error
	SetChunkStatus(ctx context.Context, chunkID uuid.UUID, status store.ChunkStatus) error
	InsertTextEmbedding(ctx context.Context, e *store.TextEmbedding) error
	InsertVisualEmbedding(ctx context.Context, e *store.VisualEmbedding) error
	CreateProcessingJob(ctx context.Context, job *store.ProcessingJob) error
}

// contentReader resolves a document's storage reference to raw bytes.
type contentReader interface {
	ReadDocument(ctx context.Context, storageRef string) ([]byte, error)
}

// vectorWriter mirrors embedding vectors into the vector store.
type vectorWriter interface {
	Upsert(ctx context.Context, collection string, points []vectordb.Point) error
}

// eventPublisher announces finished runs.
type eventPublisher interface {
	Publish(ctx context.Context, event events.DocumentProcessed) error
}

// Report summarizes one pipeline run.
type Report struct {
	DocumentID     uuid.UUID
	Status         store.DocumentStatus
	Skipped        bool
	ChunksTotal    int
	ChunksEmbedded int
	ChunksFailed   int
	ImagesEmbedded int
	Duration       time.Duration
}

// Processor turns a document's raw content into chunks and embeddings.
type Processor struct {
	cfg     Config
	repo    documentStore
	content contentReader
	vectors vectorWriter
	gate    Invoker
	events  eventPublisher
	logger  *logger.Logger
	now     func() time.Time
}

func NewProcessor(
	cfg Config,
	repo documentStore,
	content contentReader,
	vectors vectorWriter,
	gate Invoker,
	publisher eventPublisher,
	l *logger.Logger,
) *Processor {
	return &Processor{
		cfg:     cfg,
		repo:    repo,
		content: content,
		vectors: vectors,
		gate:    gate,
		events:  publisher,
		logger:  l,
		now:     time.Now,
	}
}

// Process runs the full chunk-and-embed pipeline for one document.
//
// Re-running on a completed document is a no-op unless force is set. Chunk
// failures are partial: a chunk whose embedding fails is marked
// embedding_failed and the rest continue; the document fails only when zero
// chunks embed. Context cancellation stops issuing new embedding calls
// while in-flight ones finish and persist.
func (p *Processor) Process(ctx context.Context, documentID uuid.UUID, force bool) (*Report, error) {
	started := p.now()

	doc, err := p.repo.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", documentID, err)
	}

	if doc.Status == store.DocumentCompleted && !force {
		p.logger.Info("skipping completed document", nil, map[string]interface{}{
			"document_id": documentID.String(),
		})
		return &Report{DocumentID: documentID, Status: doc.Status, Skipped: true}, nil
	}

	if err := p.repo.SetDocumentStatus(ctx, documentID, store.DocumentProcessing); err != nil {
		return nil, fmt.Errorf("mark document processing: %w", err)
	}

	report, err := p.run(ctx, doc)
	if err != nil {
		p.finish(ctx, doc, &Report{
			DocumentID: documentID,
			Status:     store.DocumentFailed,
			Duration:   p.now().Sub(started),
		}, err)
		return nil, err
	}

	report.Duration = p.now().Sub(started)
	p.finish(ctx, doc, report, nil)
	return report, nil
}

// run performs content resolution, chunking, and the embedding fan-out.
func (p *Processor) run(ctx context.Context, doc *store.Document) (*Report, error) {
	report := &Report{DocumentID: doc.ID}

	raw, err := p.content.ReadDocument(ctx, doc.StorageRef)
	if err != nil {
		return nil, fmt.Errorf("read content %q: %w", doc.StorageRef, err)
	}

	text, images, err := p.extract(ctx, doc, raw)
	if err != nil {
		return nil, err
	}

	spans := ChunkText(text, p.cfg.ChunkMaxChars, p.cfg.ChunkOverlapRatio)
	report.ChunksTotal = len(spans)

	chunks := make([]store.Chunk, len(spans))
	for i, s := range spans {
		chunks[i] = store.Chunk{
			ID:          uuid.New(),
			DocumentID:  doc.ID,
			OwnerID:     doc.OwnerID,
			SeqIndex:    s.SeqIndex,
			Content:     s.Content,
			StartOffset: s.Start,
			EndOffset:   s.End,
			OverlapPrev: s.OverlapPrev,
			Status:      store.ChunkPending,
		}
	}
	if err := p.repo.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return nil, fmt.Errorf("persist chunks: %w", err)
	}

	report.ChunksEmbedded, report.ChunksFailed = p.embedChunks(ctx, doc, chunks)
	report.ImagesEmbedded = p.embedImages(ctx, doc, images)

	if report.ChunksEmbedded > 0 {
		report.Status = store.DocumentCompleted
	} else {
		report.Status = store.DocumentFailed
	}
	return report, nil
}

// extract resolves raw bytes into text plus extracted image refs. Textual
// content types skip the provider round-trip.
func (p *Processor) extract(ctx context.Context, doc *store.Document, raw []byte) (string, []extractedImage, error) {
	if strings.HasPrefix(doc.ContentType, "text/") {
		return string(raw), nil, nil
	}

	result, err := p.gate.Invoke(ctx, gateway.ActionExtractText, map[string]any{
		"content":      base64.StdEncoding.EncodeToString(raw),
		"content_type": doc.ContentType,
	}, doc.OwnerID)
	if err != nil {
		return "", nil, fmt.Errorf("extract text: %w", err)
	}

	text, _ := result.Data["text"].(string)
	return text, parseImages(result.Data["images"]), nil
}

// extractedImage is one image the provider pulled out of a document.
type extractedImage struct {
	Ref  string
	Data string
}

func parseImages(v any) []extractedImage {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	images := make([]extractedImage, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		data, _ := m["image_data"].(string)
		if data == "" {
			continue
		}
		ref, _ := m["ref"].(string)
		if ref == "" {
			ref = fmt.Sprintf("img-%d", i)
		}
		images = append(images, extractedImage{Ref: ref, Data: data})
	}
	return images
}

// embedChunks fans out text embedding requests up to the configured limit.
// Every request passes budget and breaker gating independently. A cancelled
// context stops new requests; started ones run to completion and persist.
func (p *Processor) embedChunks(ctx context.Context, doc *store.Document, chunks []store.Chunk) (embedded, failed int) {
	sem := semaphore.NewWeighted(int64(p.cfg.FanoutLimit))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := range chunks {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled: remaining chunks stay pending.
			break
		}

		chunk := chunks[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			ok := p.embedChunk(chunk)
			mu.Lock()
			if ok {
				embedded++
			} else {
				failed++
			}
			mu.Unlock()
		}()
	}

	wg.Wait()
	return embedded, failed
}

// embedChunk requests, mirrors, and records one chunk embedding. It uses a
// background-derived context so an in-flight call outlives pipeline
// cancellation and persists its result.
func (p *Processor) embedChunk(chunk store.Chunk) bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := p.gate.Invoke(ctx, gateway.ActionTextEmbedding, map[string]any{
		"text": chunk.Content,
	}, chunk.OwnerID)
	if err != nil {
		p.failChunk(ctx, chunk, err)
		return false
	}

	vector, err := parseVector(result.Data["embedding"], store.TextEmbeddingDim)
	if err != nil {
		p.failChunk(ctx, chunk, err)
		return false
	}

	pointID := uuid.New()
	err = p.vectors.Upsert(ctx, store.CollectionTextChunks, []vectordb.Point{{
		ID:     pointID.String(),
		Vector: vector,
		Payload: map[string]any{
			"owner_id":    chunk.OwnerID,
			"document_id": chunk.DocumentID.String(),
			"chunk_id":    chunk.ID.String(),
			"seq_index":   int64(chunk.SeqIndex),
			"created_at":  p.now().UTC().Format(time.RFC3339),
		},
	}})
	if err != nil {
		p.failChunk(ctx, chunk, err)
		return false
	}

	model, _ := result.Data["model"].(string)
	err = p.repo.InsertTextEmbedding(ctx, &store.TextEmbedding{
		EmbeddingRecord: store.EmbeddingRecord{
			OwnerID:    chunk.OwnerID,
			DocumentID: chunk.DocumentID,
			PointID:    pointID,
			Model:      model,
			Dimension:  len(vector),
		},
		ChunkID: chunk.ID,
	})
	if err != nil {
		p.failChunk(ctx, chunk, err)
		return false
	}

	if err := p.repo.SetChunkStatus(ctx, chunk.ID, store.ChunkEmbedded); err != nil {
		p.logger.Error("failed to mark chunk embedded", err, map[string]interface{}{
			"chunk_id": chunk.ID.String(),
		})
	}
	return true
}

func (p *Processor) failChunk(ctx context.Context, chunk store.Chunk, cause error) {
	p.logger.Warn("chunk embedding failed", cause, map[string]interface{}{
		"document_id": chunk.DocumentID.String(),
		"chunk_id":    chunk.ID.String(),
		"seq_index":   chunk.SeqIndex,
	})
	if err := p.repo.SetChunkStatus(ctx, chunk.ID, store.ChunkEmbeddingFailed); err != nil {
		p.logger.Error("failed to mark chunk embedding_failed", err, map[string]interface{}{
			"chunk_id": chunk.ID.String(),
		})
	}
}

// embedImages requests visual embeddings for extracted images, gated the
// same way as text. Image failures never fail the document.
func (p *Processor) embedImages(ctx context.Context, doc *store.Document, images []extractedImage) int {
	embedded := 0
	for _, img := range images {
		if ctx.Err() != nil {
			break
		}
		if p.embedImage(doc, img) {
			embedded++
		}
	}
	return embedded
}

func (p *Processor) embedImage(doc *store.Document, img extractedImage) bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := p.gate.Invoke(ctx, gateway.ActionVisualEmbedding, map[string]any{
		"image_data": img.Data,
	}, doc.OwnerID)
	if err != nil {
		p.logger.Warn("image embedding failed", err, map[string]interface{}{
			"document_id": doc.ID.String(),
			"image_ref":   img.Ref,
		})
		return false
	}

	vector, err := parseVector(result.Data["embedding"], store.VisualEmbeddingDim)
	if err != nil {
		p.logger.Warn("image embedding failed", err, map[string]interface{}{
			"document_id": doc.ID.String(),
			"image_ref":   img.Ref,
		})
		return false
	}

	pointID := uuid.New()
	err = p.vectors.Upsert(ctx, store.CollectionVisualEmbeddings, []vectordb.Point{{
		ID:     pointID.String(),
		Vector: vector,
		Payload: map[string]any{
			"owner_id":    doc.OwnerID,
			"document_id": doc.ID.String(),
			"image_ref":   img.Ref,
			"created_at":  p.now().UTC().Format(time.RFC3339),
		},
	}})
	if err != nil {
		p.logger.Error("failed to mirror visual embedding", err, map[string]interface{}{
			"document_id": doc.ID.String(),
			"image_ref":   img.Ref,
		})
		return false
	}

	model, _ := result.Data["model"].(string)
	err = p.repo.InsertVisualEmbedding(ctx, &store.VisualEmbedding{
		EmbeddingRecord: store.EmbeddingRecord{
			OwnerID:    doc.OwnerID,
			DocumentID: doc.ID,
			PointID:    pointID,
			Model:      model,
			Dimension:  len(vector),
		},
		ImageRef: img.Ref,
	})
	if err != nil {
		p.logger.Error("failed to record visual embedding", err, map[string]interface{}{
			"document_id": doc.ID.String(),
			"image_ref":   img.Ref,
		})
		return false
	}
	return true
}

// finish records the final document status, the processing job row, and the
// processed event. Bookkeeping failures are logged, not propagated.
func (p *Processor) finish(ctx context.Context, doc *store.Document, report *Report, cause error) {
	// Use a fresh context so bookkeeping survives cancellation.
	bg, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.repo.SetDocumentStatus(bg, doc.ID, report.Status); err != nil {
		p.logger.Error("failed to set final document status", err, map[string]interface{}{
			"document_id": doc.ID.String(),
			"status":      string(report.Status),
		})
	}

	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}
	job := &store.ProcessingJob{
		DocumentID:     doc.ID,
		OwnerID:        doc.OwnerID,
		Status:         string(report.Status),
		ChunksTotal:    report.ChunksTotal,
		ChunksEmbedded: report.ChunksEmbedded,
		ChunksFailed:   report.ChunksFailed,
		ImagesEmbedded: report.ImagesEmbedded,
		DurationMS:     report.Duration.Milliseconds(),
		LastError:      lastError,
	}
	if err := p.repo.CreateProcessingJob(bg, job); err != nil {
		p.logger.Error("failed to record processing job", err, map[string]interface{}{
			"document_id": doc.ID.String(),
		})
	}

	event := events.DocumentProcessed{
		DocumentID:     doc.ID,
		OwnerID:        doc.OwnerID,
		Status:         string(report.Status),
		ChunksTotal:    report.ChunksTotal,
		ChunksEmbedded: report.ChunksEmbedded,
		ChunksFailed:   report.ChunksFailed,
		ImagesEmbedded: report.ImagesEmbedded,
		DurationMS:     report.Duration.Milliseconds(),
		ProcessedAt:    p.now().UTC(),
	}
	if err := p.events.Publish(bg, event); err != nil {
		p.logger.Error("failed to publish processed event", err, map[string]interface{}{
			"document_id": doc.ID.String(),
		})
	}

	p.logger.Info("pipeline run finished", nil, map[string]interface{}{
		"document_id":     doc.ID.String(),
		"status":          string(report.Status),
		"chunks_total":    report.ChunksTotal,
		"chunks_embedded": report.ChunksEmbedded,
		"chunks_failed":   report.ChunksFailed,
		"images_embedded": report.ImagesEmbedded,
		"duration_ms":     report.Duration.Milliseconds(),
	})
}

// parseVector decodes a provider embedding payload and checks its fixed
// dimension.
func parseVector(v any, wantDim int) ([]float32, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("embedding payload is not an array")
	}
	if len(items) != wantDim {
		return nil, fmt.Errorf("%w: got %d, want %d", store.ErrDimensionMismatch, len(items), wantDim)
	}

	vector := make([]float32, len(items))
	for i, item := range items {
		f, ok := item.(float64)
		if !ok {
			return nil, fmt.Errorf("embedding element %d is not a number", i)
		}
		vector[i] = float32(f)
	}
	return vector, nil
}
