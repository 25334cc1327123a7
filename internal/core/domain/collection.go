package domain

import (
	"encoding/json"
	"time"
)

// Fixed collection names.
const (
	TicketCollectionName   = "ticketData"
	DocumentCollectionName = "documentation"
)

// Metadata keys persisted on a collection.
const (
	MetadataKeySpace          = "hnsw:space"
	MetadataKeySyncThreshold  = "sync_threshold"
	MetadataKeyBatchSize      = "batch_size"
	MetadataKeyLastUpdateTime = "last_update_time"
)

// SimilaritySpace is the distance function a collection is indexed with.
type SimilaritySpace string

const (
	SpaceCosine SimilaritySpace = "cosine"
	SpaceL2     SimilaritySpace = "l2"
	SpaceIP     SimilaritySpace = "ip"
)

// CollectionConfig is the creation-time configuration of a collection.
// It is applied once when the collection is created and never updated.
type CollectionConfig struct {
	Space         SimilaritySpace `json:"space"`
	SyncThreshold int             `json:"sync_threshold,omitempty"`
	BatchSize     int             `json:"batch_size,omitempty"`
}

// TicketCollectionConfig returns the defaults for the ticket collection.
func TicketCollectionConfig() CollectionConfig {
	return CollectionConfig{
		Space:         SpaceCosine,
		SyncThreshold: 1000,
		BatchSize:     100,
	}
}

// DocumentCollectionConfig returns the defaults for document collections.
func DocumentCollectionConfig() CollectionConfig {
	return CollectionConfig{Space: SpaceCosine}
}

// Metadata serialises the config into the collection metadata map.
// Zero-valued hints are omitted.
func (c CollectionConfig) Metadata() map[string]any {
	space := c.Space
	if space == "" {
		space = SpaceCosine
	}
	md := map[string]any{MetadataKeySpace: string(space)}
	if c.SyncThreshold > 0 {
		md[MetadataKeySyncThreshold] = c.SyncThreshold
	}
	if c.BatchSize > 0 {
		md[MetadataKeyBatchSize] = c.BatchSize
	}
	return md
}

// Collection is a named container of retrievable units.
type Collection struct {
	Name       string           `json:"name"`
	Config     CollectionConfig `json:"config"`
	Checkpoint Checkpoint       `json:"last_update_time,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// CollectionFromMetadata rebuilds a collection from its stored metadata map.
// Unknown keys are ignored.
func CollectionFromMetadata(name string, md map[string]any, createdAt time.Time) *Collection {
	c := &Collection{Name: name, CreatedAt: createdAt}
	if s, ok := md[MetadataKeySpace].(string); ok {
		c.Config.Space = SimilaritySpace(s)
	}
	c.Config.SyncThreshold = metadataInt(md[MetadataKeySyncThreshold])
	c.Config.BatchSize = metadataInt(md[MetadataKeyBatchSize])
	if s, ok := md[MetadataKeyLastUpdateTime].(string); ok {
		c.Checkpoint = Checkpoint(s)
	}
	return c
}

// metadataInt accepts the numeric shapes a decoded metadata value can take.
func metadataInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return int(i)
	default:
		return 0
	}
}
