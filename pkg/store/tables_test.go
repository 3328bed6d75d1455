package store

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestLookupTable_AllowList(t *testing.T) {
	allowed := []string{
		"recognition_results",
		"semantic_analysis_results",
		"document_chunks",
		"text_embeddings",
		"visual_embeddings",
		"processing_jobs",
	}
	for _, name := range allowed {
		if _, ok := LookupTable(name); !ok {
			t.Errorf("expected %q to be allow-listed", name)
		}
	}

	for _, name := range []string{"users", "documents", "", "document_chunks; DROP TABLE"} {
		if _, ok := LookupTable(name); ok {
			t.Errorf("expected %q to be rejected", name)
		}
	}

	if got := len(TableNames()); got != len(allowed) {
		t.Errorf("expected %d table kinds, got %d", len(allowed), got)
	}
}

func TestTableSpec_Collections(t *testing.T) {
	chunks, _ := LookupTable("document_chunks")
	if !chunks.HasEmbeddings || chunks.Collection != CollectionTextChunks {
		t.Errorf("document_chunks should map to collection %q, got %q", CollectionTextChunks, chunks.Collection)
	}

	visual, _ := LookupTable("visual_embeddings")
	if !visual.HasEmbeddings || visual.Collection != CollectionVisualEmbeddings {
		t.Errorf("visual_embeddings should map to collection %q, got %q", CollectionVisualEmbeddings, visual.Collection)
	}

	jobs, _ := LookupTable("processing_jobs")
	if jobs.HasEmbeddings {
		t.Error("processing_jobs must not claim embeddings")
	}
}

func TestTableSpec_SortAllowed(t *testing.T) {
	spec, _ := LookupTable("recognition_results")

	if !spec.SortAllowed("created_at") {
		t.Error("created_at must be sortable")
	}
	if !spec.SortAllowed("confidence") {
		t.Error("confidence must be sortable for result tables")
	}
	if spec.SortAllowed("owner_id") {
		t.Error("owner_id must not be sortable")
	}
	if spec.SortAllowed("created_at; --") {
		t.Error("injection-shaped sort fields must be rejected")
	}
}

func TestEmbeddingValidate_Dimensions(t *testing.T) {
	text := &TextEmbedding{
		EmbeddingRecord: EmbeddingRecord{Dimension: TextEmbeddingDim},
		ChunkID:         uuid.New(),
	}
	if err := text.Validate(); err != nil {
		t.Errorf("valid text dimension rejected: %v", err)
	}

	text.Dimension = 512
	if err := text.Validate(); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	visual := &VisualEmbedding{
		EmbeddingRecord: EmbeddingRecord{Dimension: VisualEmbeddingDim},
		ImageRef:        "doc/page-1/img-0",
	}
	if err := visual.Validate(); err != nil {
		t.Errorf("valid visual dimension rejected: %v", err)
	}

	visual.Dimension = VisualEmbeddingDim + 1
	if err := visual.Validate(); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}
