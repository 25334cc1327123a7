package driven

import (
	"context"
)

// EmbeddingService turns unit text into vectors for the collection store.
// Services never see vectors.
type EmbeddingService interface {
	// Embed returns one vector per text, in input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions must match the vector column of the units table
	Dimensions() int

	Model() string

	HealthCheck(ctx context.Context) error

	Close() error
}
