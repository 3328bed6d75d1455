package store

// Vector store collection names, one per embedding kind.
const (
	CollectionTextChunks       = "text_chunks"
	CollectionVisualEmbeddings = "visual_embeddings"
)

// TableSpec describes one member of the fixed table-kind allow-list: which
// columns keyword search may touch, which fields listing may sort by, and
// where its vectors live when it carries embeddings.
type TableSpec struct {
	Name             string
	HasEmbeddings    bool
	Collection       string
	SearchColumns    []string
	SortFields       []string
	ConfidenceColumn string
}

// SortAllowed reports whether field is a whitelisted sort field for this
// table kind.
func (s TableSpec) SortAllowed(field string) bool {
	for _, f := range s.SortFields {
		if f == field {
			return true
		}
	}
	return false
}

// tableRegistry is the allow-list, fixed at service start. Table names
// outside this set are rejected before any query executes.
var tableRegistry = map[string]TableSpec{
	"recognition_results": {
		Name:             "recognition_results",
		SearchColumns:    []string{"summary"},
		SortFields:       []string{"created_at", "updated_at", "confidence"},
		ConfidenceColumn: "confidence",
	},
	"semantic_analysis_results": {
		Name:             "semantic_analysis_results",
		SearchColumns:    []string{"summary"},
		SortFields:       []string{"created_at", "updated_at", "confidence"},
		ConfidenceColumn: "confidence",
	},
	"document_chunks": {
		Name:          "document_chunks",
		HasEmbeddings: true,
		Collection:    CollectionTextChunks,
		SearchColumns: []string{"content"},
		SortFields:    []string{"created_at", "seq_index"},
	},
	"text_embeddings": {
		Name:          "text_embeddings",
		SearchColumns: []string{"model"},
		SortFields:    []string{"created_at"},
	},
	"visual_embeddings": {
		Name:          "visual_embeddings",
		HasEmbeddings: true,
		Collection:    CollectionVisualEmbeddings,
		SearchColumns: []string{"image_ref", "model"},
		SortFields:    []string{"created_at"},
	},
	"processing_jobs": {
		Name:          "processing_jobs",
		SearchColumns: []string{"status", "last_error"},
		SortFields:    []string{"created_at", "status"},
	},
}

// LookupTable returns the spec for a table kind, reporting whether the kind
// is allow-listed.
func LookupTable(name string) (TableSpec, bool) {
	spec, ok := tableRegistry[name]
	return spec, ok
}

// TableNames returns the members of the allow-list.
func TableNames() []string {
	names := make([]string, 0, len(tableRegistry))
	for name := range tableRegistry {
		names = append(names, name)
	}
	return names
}
