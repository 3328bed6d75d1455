package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/postgres"
)

// ErrDimensionMismatch is returned when an embedding row's dimension does
// not match the fixed dimension for its kind.
var ErrDimensionMismatch = errors.New("store: embedding dimension mismatch")

// Validate checks the fixed text embedding dimension.
func (e *TextEmbedding) Validate() error {
	if e.Dimension != TextEmbeddingDim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, e.Dimension, TextEmbeddingDim)
	}
	return nil
}

// Validate checks the fixed visual embedding dimension.
func (e *VisualEmbedding) Validate() error {
	if e.Dimension != VisualEmbeddingDim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, e.Dimension, VisualEmbeddingDim)
	}
	return nil
}

// Repository is the relational persistence layer for documents, chunks,
// embedding provenance rows, and processing jobs.
type Repository struct {
	cfg    Config
	db     *postgres.Postgres
	logger *logger.Logger
}

func NewRepository(cfg Config, db *postgres.Postgres, l *logger.Logger) *Repository {
	return &Repository{
		cfg:    cfg,
		db:     db,
		logger: l,
	}
}

// Migrate creates or updates the schema for every model this repository
// owns.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.DB().WithContext(ctx).AutoMigrate(
		&Document{},
		&Chunk{},
		&TextEmbedding{},
		&VisualEmbedding{},
		&RecognitionResult{},
		&SemanticAnalysisResult{},
		&ProcessingJob{},
	)
}

// GetDocument loads one document row.
func (r *Repository) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	var doc Document
	if err := r.db.First(ctx, &doc, "id = ?", id); err != nil {
		return nil, postgres.TranslateError(err)
	}
	return &doc, nil
}

// SetDocumentStatus moves a document through its processing lifecycle.
func (r *Repository) SetDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error {
	err := r.db.UpdateWhere(ctx, &Document{}, map[string]interface{}{"status": status}, "id = ?", id)
	return postgres.TranslateError(err)
}

// ReplaceChunks atomically swaps a document's chunk set. Re-chunking a
// document replaces its prior chunks wholesale so sequence indices stay
// contiguous from zero.
func (r *Repository) ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []Chunk) error {
	err := r.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&Chunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.Create(&chunks).Error
	})
	return postgres.TranslateError(err)
}

// SetChunkStatus records the embedding outcome of one chunk.
func (r *Repository) SetChunkStatus(ctx context.Context, chunkID uuid.UUID, status ChunkStatus) error {
	err := r.db.UpdateWhere(ctx, &Chunk{}, map[string]interface{}{"status": status}, "id = ?", chunkID)
	return postgres.TranslateError(err)
}

// InsertTextEmbedding writes a text embedding provenance row, superseding
// any live row for the same chunk. Superseded rows are retained or deleted
// per configuration.
func (r *Repository) InsertTextEmbedding(ctx context.Context, e *TextEmbedding) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	err := r.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prior := tx.Model(&TextEmbedding{}).
			Where("chunk_id = ? AND superseded_by IS NULL", e.ChunkID)
		if r.cfg.RetainSuperseded {
			if err := prior.Update("superseded_by", e.ID).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("chunk_id = ? AND superseded_by IS NULL", e.ChunkID).
				Delete(&TextEmbedding{}).Error; err != nil {
				return err
			}
		}
		return tx.Create(e).Error
	})
	return postgres.TranslateError(err)
}

// InsertVisualEmbedding writes a visual embedding provenance row,
// superseding any live row for the same document image.
func (r *Repository) InsertVisualEmbedding(ctx context.Context, e *VisualEmbedding) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	err := r.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cond := "document_id = ? AND image_ref = ? AND superseded_by IS NULL"
		if r.cfg.RetainSuperseded {
			if err := tx.Model(&VisualEmbedding{}).
				Where(cond, e.DocumentID, e.ImageRef).
				Update("superseded_by", e.ID).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where(cond, e.DocumentID, e.ImageRef).
				Delete(&VisualEmbedding{}).Error; err != nil {
				return err
			}
		}
		return tx.Create(e).Error
	})
	return postgres.TranslateError(err)
}

// CreateProcessingJob writes the bookkeeping row for one pipeline run.
func (r *Repository) CreateProcessingJob(ctx context.Context, job *ProcessingJob) error {
	return postgres.TranslateError(r.db.Create(ctx, job))
}
