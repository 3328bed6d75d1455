package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fixed embedding dimensions, one per embedding kind. Validated before any
// row is written.
const (
	TextEmbeddingDim   = 1536
	VisualEmbeddingDim = 512
)

// DocumentStatus is the processing lifecycle of a Document.
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed"
	DocumentFailed     DocumentStatus = "failed"
)

// Document is an opaque source unit. Created on upload, mutated only by
// pipeline stages, never by retrieval consumers.
type Document struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	OwnerID     string         `gorm:"index;not null"`
	Title       string         `gorm:"not null"`
	StorageRef  string         `gorm:"uniqueIndex;not null"`
	ContentType string         `gorm:"not null"`
	Status      DocumentStatus `gorm:"index;not null;default:pending"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// ChunkStatus tracks the embedding outcome of a single chunk.
type ChunkStatus string

const (
	ChunkPending         ChunkStatus = "pending"
	ChunkEmbedded        ChunkStatus = "embedded"
	ChunkEmbeddingFailed ChunkStatus = "embedding_failed"
)

// Chunk is an ordered sub-unit of a Document. Sequence indices within a
// document are contiguous and zero-based; the char span refers to the
// normalized source text.
type Chunk struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey"`
	DocumentID  uuid.UUID   `gorm:"type:uuid;index;not null"`
	OwnerID     string      `gorm:"index;not null"`
	SeqIndex    int         `gorm:"not null"`
	Content     string      `gorm:"not null"`
	StartOffset int         `gorm:"not null"`
	EndOffset   int         `gorm:"not null"`
	OverlapPrev int         `gorm:"not null;default:0"`
	Status      ChunkStatus `gorm:"index;not null;default:pending"`
	CreatedAt   time.Time
}

func (Chunk) TableName() string { return "document_chunks" }

func (c *Chunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// EmbeddingRecord carries the provenance shared by both embedding kinds.
// The vector itself lives in the vector store under PointID; the relational
// row records dimension, model, and the supersede chain. Rows are immutable
// once written except for the SupersededBy pointer.
type EmbeddingRecord struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OwnerID      string     `gorm:"index;not null"`
	DocumentID   uuid.UUID  `gorm:"type:uuid;index;not null"`
	PointID      uuid.UUID  `gorm:"type:uuid;not null"`
	Model        string     `gorm:"not null"`
	Dimension    int        `gorm:"not null"`
	SupersededBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt    time.Time
}

// TextEmbedding is the provenance row for one chunk's text embedding.
type TextEmbedding struct {
	EmbeddingRecord
	ChunkID uuid.UUID `gorm:"type:uuid;index;not null"`
}

func (TextEmbedding) TableName() string { return "text_embeddings" }

func (e *TextEmbedding) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// VisualEmbedding is the provenance row for one extracted image's embedding.
type VisualEmbedding struct {
	EmbeddingRecord
	ImageRef string `gorm:"index;not null"`
}

func (VisualEmbedding) TableName() string { return "visual_embeddings" }

func (e *VisualEmbedding) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// AnalysisResult is the generic shape shared by the concrete result table
// kinds. Confidence is optional; rows without one are skipped by
// confidence_min filters rather than treated as zero.
type AnalysisResult struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID       string    `gorm:"index;not null"`
	InputPayload  []byte    `gorm:"type:jsonb"`
	ResultPayload []byte    `gorm:"type:jsonb"`
	Summary       string    `gorm:"not null;default:''"`
	Confidence    *float64
	ProcessingMS  int64 `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RecognitionResult holds provider recognition output for one input.
type RecognitionResult struct {
	AnalysisResult
}

func (RecognitionResult) TableName() string { return "recognition_results" }

func (r *RecognitionResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// SemanticAnalysisResult holds provider semantic analysis output.
type SemanticAnalysisResult struct {
	AnalysisResult
}

func (SemanticAnalysisResult) TableName() string { return "semantic_analysis_results" }

func (r *SemanticAnalysisResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ProcessingJob is the bookkeeping row written for every pipeline run.
type ProcessingJob struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocumentID     uuid.UUID `gorm:"type:uuid;index;not null"`
	OwnerID        string    `gorm:"index;not null"`
	Status         string    `gorm:"index;not null"`
	ChunksTotal    int       `gorm:"not null;default:0"`
	ChunksEmbedded int       `gorm:"not null;default:0"`
	ChunksFailed   int       `gorm:"not null;default:0"`
	ImagesEmbedded int       `gorm:"not null;default:0"`
	DurationMS     int64     `gorm:"not null;default:0"`
	LastError      string    `gorm:"not null;default:''"`
	CreatedAt      time.Time
}

func (ProcessingJob) TableName() string { return "processing_jobs" }

func (j *ProcessingJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
