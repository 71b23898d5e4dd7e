package types

// MaxSearchLimit is the hard ceiling on documents returned per search.
const MaxSearchLimit = 5

// DefaultIncludeFields are projected when a caller does not name any fields.
var DefaultIncludeFields = []string{"_id", "content"}

// SearchMethod identifies which aggregation produced a result set
type SearchMethod string

const (
	SearchMethodHybrid SearchMethod = "hybrid"
	SearchMethodVector SearchMethod = "vector"
	SearchMethodNone   SearchMethod = "none"
)

// SearchQuery contains the parameters of a single hybrid search invocation
type SearchQuery struct {
	Text          string   `json:"search_content"`
	Limit         int      `json:"limit"`
	IncludeFields []string `json:"include_fields,omitempty"`
}
