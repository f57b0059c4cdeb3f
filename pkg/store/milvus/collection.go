package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// DefaultCollectionPrefix prefixes every descriptor collection
	DefaultCollectionPrefix = "motif_descriptors"

	// MinDimension is the smallest vector dimension Milvus accepts
	MinDimension = 2

	embeddingField = "embedding"
)

// CollectionName returns the collection holding descriptors of dimension dim
func CollectionName(prefix string, dim int) string {
	if prefix == "" {
		prefix = DefaultCollectionPrefix
	}
	return fmt.Sprintf("%s_d%d", prefix, dim)
}

// CollectionConfig holds configuration for creating a collection
type CollectionConfig struct {
	Name      string
	Dimension int // Descriptor length (the embedding dimension)
	Shards    int
}

// CreateCollection creates a descriptor collection if it does not exist yet
func (c *Client) CreateCollection(ctx context.Context, cfg CollectionConfig) error {
	if cfg.Dimension < MinDimension {
		return fmt.Errorf("descriptor dimension %d below %d", cfg.Dimension, MinDimension)
	}

	exists, err := c.HasCollection(ctx, cfg.Name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: cfg.Name,
		Description:    "Eigenvalue descriptors of matched windows",
		Fields: []*entity.Field{
			{
				Name:       "match_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     embeddingField,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", cfg.Dimension),
				},
			},
			{
				Name:     "run_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "sample",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "data",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "start_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "score",
				DataType: entity.FieldTypeFloat,
			},
		},
	}

	shards := cfg.Shards
	if shards <= 0 {
		shards = 1
	}
	if err := c.conn.CreateCollection(ctx, schema, int32(shards)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := c.CreateIndex(ctx, cfg.Name, embeddingField); err != nil {
		return err
	}

	return c.LoadCollection(ctx, cfg.Name)
}

// Descriptor is one matched window's eigenvalue vector
type Descriptor struct {
	MatchID    string
	Embedding  []float32
	RunID      string
	Sample     string
	Data       string
	StartIndex int64
	Score      float32
}

// InsertBatch inserts descriptors that all share one dimension
func (c *Client) InsertBatch(ctx context.Context, collectionName string, rows []*Descriptor) error {
	if len(rows) == 0 {
		return nil
	}

	columns, err := descriptorColumns(rows)
	if err != nil {
		return err
	}

	if _, err := c.conn.Insert(ctx, collectionName, "", columns...); err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	return nil
}

func descriptorColumns(rows []*Descriptor) ([]entity.Column, error) {
	dim := len(rows[0].Embedding)

	matchIDs := make([]string, len(rows))
	embeddings := make([][]float32, len(rows))
	runIDs := make([]string, len(rows))
	samples := make([]string, len(rows))
	datas := make([]string, len(rows))
	starts := make([]int64, len(rows))
	scores := make([]float32, len(rows))

	for i, d := range rows {
		if len(d.Embedding) != dim {
			return nil, fmt.Errorf("descriptor %s has dimension %d, want %d", d.MatchID, len(d.Embedding), dim)
		}
		matchIDs[i] = d.MatchID
		embeddings[i] = d.Embedding
		runIDs[i] = d.RunID
		samples[i] = d.Sample
		datas[i] = d.Data
		starts[i] = d.StartIndex
		scores[i] = d.Score
	}

	return []entity.Column{
		entity.NewColumnVarChar("match_id", matchIDs),
		entity.NewColumnFloatVector(embeddingField, dim, embeddings),
		entity.NewColumnVarChar("run_id", runIDs),
		entity.NewColumnVarChar("sample", samples),
		entity.NewColumnVarChar("data", datas),
		entity.NewColumnInt64("start_index", starts),
		entity.NewColumnFloat("score", scores),
	}, nil
}

// SearchResult represents a single search result
type SearchResult struct {
	MatchID    string
	Similarity float32
	RunID      string
	Sample     string
	Data       string
	StartIndex int64
}

// Search returns the stored descriptors closest to embedding by cosine
func (c *Client) Search(ctx context.Context, collectionName string, embedding []float32, filter string, topK int) ([]SearchResult, error) {
	vectors := []entity.Vector{entity.FloatVector(embedding)}

	sp, err := entity.NewIndexFlatSearchParam()
	if err != nil {
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	outputFields := []string{"match_id", "run_id", "sample", "data", "start_index"}

	results, err := c.conn.Search(
		ctx,
		collectionName,
		nil,          // partitions
		filter,       // expression filter
		outputFields, // output fields
		vectors,
		embeddingField,
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	searchResults := make([]SearchResult, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		result := SearchResult{
			Similarity: results[0].Scores[i],
		}

		for _, field := range results[0].Fields {
			switch col := field.(type) {
			case *entity.ColumnVarChar:
				val, _ := col.ValueByIdx(i)
				switch col.Name() {
				case "match_id":
					result.MatchID = val
				case "run_id":
					result.RunID = val
				case "sample":
					result.Sample = val
				case "data":
					result.Data = val
				}
			case *entity.ColumnInt64:
				if col.Name() == "start_index" {
					result.StartIndex, _ = col.ValueByIdx(i)
				}
			}
		}

		searchResults = append(searchResults, result)
	}

	return searchResults, nil
}
