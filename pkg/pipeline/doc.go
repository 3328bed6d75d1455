// Package pipeline turns stored documents into searchable chunks and
// embeddings. It reads raw content from object storage, splits it into
// paragraph-aligned chunks, requests embeddings through the gated provider
// client, and mirrors the vectors into the vector store while recording
// provenance rows in Postgres.
package pipeline
