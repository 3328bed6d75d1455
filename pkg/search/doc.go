// Package search implements hybrid retrieval over the allow-listed table
// kinds: a vector similarity leg against the vector store, a keyword leg
// against the table's indexed text columns, and a deterministic merge that
// boosts records found by both. Filters, owner scoping and the confidence
// floor apply as hard post-filters on every leg.
package search
