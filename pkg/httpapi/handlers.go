package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/docsense/aicore/pkg/logger"
	"github.com/docsense/aicore/pkg/retrieval"
	"github.com/docsense/aicore/pkg/search"
)

// Retriever is the retrieval surface the handlers serve.
type Retriever interface {
	Get(ctx context.Context, table string, id uuid.UUID, owner string) (map[string]any, error)
	List(ctx context.Context, table string, opts retrieval.ListOptions) ([]map[string]any, retrieval.Pagination, error)
	Search(ctx context.Context, table string, req retrieval.SearchRequest) ([]search.Result, error)
	Delete(ctx context.Context, table string, id uuid.UUID, owner string) error
}

// handlers maps the route surface onto the retrieval service.
type handlers struct {
	retriever Retriever
	logger    *logger.Logger
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, started, http.StatusBadRequest, CodeValidationError, "id must be a UUID")
		return
	}

	record, err := h.retriever.Get(r.Context(), r.PathValue("table"), id, r.URL.Query().Get("owner_id"))
	if err != nil {
		h.writeServiceError(w, r, started, err)
		return
	}
	writeData(w, started, record, nil)
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"), 0)
	if err != nil {
		writeError(w, started, http.StatusBadRequest, CodeValidationError, "limit must be an integer")
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		writeError(w, started, http.StatusBadRequest, CodeValidationError, "offset must be an integer")
		return
	}

	records, page, err := h.retriever.List(r.Context(), r.PathValue("table"), retrieval.ListOptions{
		Owner:     q.Get("owner_id"),
		Limit:     limit,
		Offset:    offset,
		SortField: q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	})
	if err != nil {
		h.writeServiceError(w, r, started, err)
		return
	}
	writeData(w, started, records, &page)
}

// searchBody is the POST /{table}/search request shape.
type searchBody struct {
	OwnerID       string         `json:"owner_id"`
	Filters       search.Filters `json:"filters"`
	SearchText    string         `json:"search_text"`
	ConfidenceMin *float64       `json:"confidence_min"`
	Limit         int            `json:"limit"`
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var body searchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, started, http.StatusBadRequest, CodeValidationError, "malformed request body")
		return
	}

	results, err := h.retriever.Search(r.Context(), r.PathValue("table"), retrieval.SearchRequest{
		Owner:         body.OwnerID,
		Text:          body.SearchText,
		Filters:       body.Filters,
		ConfidenceMin: body.ConfidenceMin,
		Limit:         body.Limit,
	})
	if err != nil {
		h.writeServiceError(w, r, started, err)
		return
	}

	payload := make([]map[string]any, 0, len(results))
	for _, res := range results {
		payload = append(payload, map[string]any{
			"id":            res.ID,
			"score":         res.Score,
			"vector_score":  res.VectorScore,
			"keyword_score": res.KeywordScore,
			"record":        res.Record,
		})
	}
	writeData(w, started, payload, nil)
}

func (h *handlers) delete(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, started, http.StatusBadRequest, CodeValidationError, "id must be a UUID")
		return
	}

	err = h.retriever.Delete(r.Context(), r.PathValue("table"), id, r.URL.Query().Get("owner_id"))
	if err != nil {
		h.writeServiceError(w, r, started, err)
		return
	}
	writeData(w, started, map[string]any{"deleted": true}, nil)
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	writeData(w, time.Now(), map[string]any{"status": "ok"}, nil)
}

// writeServiceError maps service errors onto the fixed public error codes.
// Unclassified errors are logged with full detail but surface generically.
func (h *handlers) writeServiceError(w http.ResponseWriter, r *http.Request, started time.Time, err error) {
	switch {
	case errors.Is(err, retrieval.ErrInvalidTable), errors.Is(err, search.ErrUnknownTable):
		writeError(w, started, http.StatusForbidden, CodeInvalidTable, "table kind is not allow-listed")
	case errors.Is(err, retrieval.ErrValidation), errors.Is(err, search.ErrInvalidFilter):
		writeError(w, started, http.StatusBadRequest, CodeValidationError, err.Error())
	case errors.Is(err, retrieval.ErrNotFound):
		writeError(w, started, http.StatusNotFound, CodeNotFound, "record not found")
	default:
		h.logger.Error("retrieval request failed", err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		writeError(w, started, http.StatusInternalServerError, CodeInternalError, "internal error")
	}
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
