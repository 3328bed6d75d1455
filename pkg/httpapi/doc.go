// Package httpapi exposes the retrieval service over HTTP: get, list,
// search and delete per allow-listed table kind, all wrapped in a uniform
// response envelope with per-caller rate limiting and interactive request
// deadlines.
package httpapi
