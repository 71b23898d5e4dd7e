package search

import (
	"encoding/json"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	// DefaultMaxSizeKB keeps tool output safely below the agent service's 512KB ceiling.
	DefaultMaxSizeKB = 400.0
	// DefaultCleanFieldLength is the per-string limit applied to every aggregation result.
	DefaultCleanFieldLength = 500

	shapedMaxDocuments   = 2
	shapedStringLength   = 200
	shapedFallbackLength = 100
	truncationSuffix     = "..."
	sizeEstimationFailed = "Size estimation failed"
)

// truncateRunes cuts s to limit characters and appends "..." when it is longer
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + truncationSuffix
}

func prefixRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// CleanLargeFields truncates top-level string values longer than maxLen characters.
// Input documents are not modified.
func CleanLargeFields(docs []bson.D, maxLen int) []bson.D {
	if maxLen <= 0 {
		maxLen = DefaultCleanFieldLength
	}
	cleaned := make([]bson.D, 0, len(docs))
	for _, doc := range docs {
		out := make(bson.D, 0, len(doc))
		for _, e := range doc {
			if s, ok := e.Value.(string); ok {
				out = append(out, bson.E{Key: e.Key, Value: truncateRunes(s, maxLen)})
				continue
			}
			out = append(out, e)
		}
		cleaned = append(cleaned, out)
	}
	return cleaned
}

// EncodeDocuments serializes documents as a JSON array, preserving field order
func EncodeDocuments(docs []bson.D) ([]byte, error) {
	if docs == nil {
		docs = []bson.D{}
	}
	return json.Marshal(docs)
}

// Shaper fits a result batch under a serialized size ceiling
type Shaper struct {
	MaxSizeKB float64
	logger    *log.Logger
}

// NewShaper creates a shaper with the given ceiling in kilobytes
func NewShaper(maxSizeKB float64, logger *log.Logger) *Shaper {
	if maxSizeKB <= 0 {
		maxSizeKB = DefaultMaxSizeKB
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Shaper{MaxSizeKB: maxSizeKB, logger: logger}
}

// Shape returns docs unchanged when they serialize within the ceiling. Otherwise it keeps
// the first two documents and truncates their fields in a single pass; the result is not
// re-checked against the ceiling. When serialization fails a minimal marker document is
// returned for each of the first two inputs.
func (s *Shaper) Shape(docs []bson.D) []bson.D {
	encoded, err := EncodeDocuments(docs)
	if err != nil {
		s.logger.Printf("Error estimating size: %v", err)
		return sizeFailureDocuments(docs)
	}

	sizeKB := float64(len(encoded)) / 1024
	if sizeKB <= s.MaxSizeKB {
		return docs
	}

	s.logger.Printf("Results are %.1fKB, truncating to fit under %.0fKB limit...", sizeKB, s.MaxSizeKB)

	keep := min(len(docs), shapedMaxDocuments)
	truncated := make([]bson.D, 0, keep)
	for _, doc := range docs[:keep] {
		truncated = append(truncated, truncateDocument(doc))
	}

	encoded, err = EncodeDocuments(truncated)
	if err != nil {
		s.logger.Printf("Error estimating size: %v", err)
		return sizeFailureDocuments(docs)
	}
	s.logger.Printf("Truncated to %.1fKB with %d results", float64(len(encoded))/1024, len(truncated))

	return truncated
}

func truncateDocument(doc bson.D) bson.D {
	out := make(bson.D, 0, len(doc))
	for _, e := range doc {
		out = append(out, bson.E{Key: e.Key, Value: truncateValue(e.Key, e.Value)})
	}
	return out
}

func truncateValue(key string, value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return truncateRunes(v, shapedStringLength)
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	}
	switch key {
	case "_id", "score", "_score":
		return value
	}
	return truncateRunes(renderValue(value), shapedFallbackLength)
}

// renderValue flattens a non-scalar field to text. Documents and arrays become JSON so
// nested field order survives.
func renderValue(value any) string {
	switch v := value.(type) {
	case bson.ObjectID:
		return v.Hex()
	case bson.D, bson.A, bson.M, map[string]any, []any:
		if encoded, err := json.Marshal(v); err == nil {
			return string(encoded)
		}
	}
	return fmt.Sprint(value)
}

func sizeFailureDocuments(docs []bson.D) []bson.D {
	keep := min(len(docs), shapedMaxDocuments)
	out := make([]bson.D, 0, keep)
	for _, doc := range docs[:keep] {
		var id any = ""
		var title any = ""
		for _, e := range doc {
			switch e.Key {
			case "_id":
				id = e.Value
			case "title":
				title = e.Value
			}
		}
		out = append(out, bson.D{
			{Key: "_id", Value: id},
			{Key: "title", Value: prefixRunes(fmt.Sprint(title), shapedFallbackLength)},
			{Key: "error", Value: sizeEstimationFailed},
		})
	}
	return out
}
