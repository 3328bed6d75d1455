// Package retrieval is the table-whitelisted, ownership-scoped read/delete
// surface over the analysis-result tables. Every operation rejects table
// kinds outside the allow-list before touching storage, and owner mismatches
// surface as not-found so record existence never leaks across owners.
package retrieval
