// Package vectordb wraps the official Qdrant Go client for the embedding
// collections used by the search and ingestion subsystems.
//
// Responsibilities:
//   - Establish and validate connectivity with Qdrant.
//   - Ensure the per-kind collections exist with their fixed dimensions.
//   - Upsert, search (with score threshold and payload filters), and delete
//     points.
//   - Offer a safe API suitable for Fx dependency injection.
//
// Vectors live only here; the relational store keeps provenance rows that
// reference points by id.
package vectordb
