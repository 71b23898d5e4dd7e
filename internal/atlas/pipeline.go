package atlas

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const (
	vectorPipelineName   = "vectorPipeline"
	fullTextPipelineName = "fullTextPipeline"
)

// PipelineParams describes one hybrid or vector-only query against the collection
type PipelineParams struct {
	VectorIndex    string
	VectorPath     string
	FullTextIndex  string
	FullTextPath   string
	QueryText      string
	QueryVector    []float64
	NumCandidates  int
	Limit          int
	VectorWeight   float64
	FullTextWeight float64
	Fields         []string
}

// Validate checks the parameters shared by both pipelines
func (p *PipelineParams) Validate() error {
	if p.VectorIndex == "" {
		return fmt.Errorf("vector index name is required")
	}
	if p.VectorPath == "" {
		return fmt.Errorf("vector index path is required")
	}
	if len(p.QueryVector) == 0 {
		return fmt.Errorf("query vector cannot be empty")
	}
	if p.Limit < 1 {
		return fmt.Errorf("limit must be positive, got %d", p.Limit)
	}
	if p.NumCandidates < p.Limit {
		return fmt.Errorf("numCandidates (%d) must be at least limit (%d)", p.NumCandidates, p.Limit)
	}
	return nil
}

func (p *PipelineParams) vectorSearchStage() bson.D {
	return bson.D{{Key: "$vectorSearch", Value: bson.D{
		{Key: "index", Value: p.VectorIndex},
		{Key: "path", Value: p.VectorPath},
		{Key: "queryVector", Value: p.QueryVector},
		{Key: "numCandidates", Value: p.NumCandidates},
		{Key: "limit", Value: p.Limit},
	}}}
}

func (p *PipelineParams) fullTextSearchStage() bson.D {
	return bson.D{{Key: "$search", Value: bson.D{
		{Key: "index", Value: p.FullTextIndex},
		{Key: "phrase", Value: bson.D{
			{Key: "query", Value: p.QueryText},
			{Key: "path", Value: p.FullTextPath},
		}},
	}}}
}

// projection keeps the requested fields once each, in order, then appends scoreField
func (p *PipelineParams) projection(scoreField string, scoreValue any) bson.D {
	projection := make(bson.D, 0, len(p.Fields)+1)
	seen := make(map[string]struct{}, len(p.Fields))
	for _, field := range p.Fields {
		if field == "" || field == scoreField {
			continue
		}
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		projection = append(projection, bson.E{Key: field, Value: 1})
	}
	return append(projection, bson.E{Key: scoreField, Value: scoreValue})
}

// HybridPipeline fuses a $vectorSearch and a full-text $search phrase query with
// weighted $rankFusion, then limits and projects the requested fields plus _score.
func HybridPipeline(p PipelineParams) (mongo.Pipeline, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.FullTextIndex == "" || p.FullTextPath == "" {
		return nil, fmt.Errorf("full-text index name and path are required")
	}
	if p.QueryText == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}

	rankFusion := bson.D{
		{Key: "input", Value: bson.D{
			{Key: "pipelines", Value: bson.D{
				{Key: vectorPipelineName, Value: bson.A{p.vectorSearchStage()}},
				{Key: fullTextPipelineName, Value: bson.A{
					p.fullTextSearchStage(),
					bson.D{{Key: "$limit", Value: p.Limit}},
				}},
			}},
		}},
		{Key: "combination", Value: bson.D{
			{Key: "weights", Value: bson.D{
				{Key: vectorPipelineName, Value: p.VectorWeight},
				{Key: fullTextPipelineName, Value: p.FullTextWeight},
			}},
		}},
		{Key: "scoreDetails", Value: false},
	}

	return mongo.Pipeline{
		{{Key: "$rankFusion", Value: rankFusion}},
		{{Key: "$limit", Value: p.Limit}},
		{{Key: "$project", Value: p.projection("_score", 1)}},
	}, nil
}

// VectorPipeline is the vector-only fallback: $vectorSearch then a projection that
// surfaces the vectorSearchScore metadata as score.
func VectorPipeline(p PipelineParams) (mongo.Pipeline, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return mongo.Pipeline{
		p.vectorSearchStage(),
		{{Key: "$project", Value: p.projection("score", bson.D{{Key: "$meta", Value: "vectorSearchScore"}})}},
	}, nil
}
