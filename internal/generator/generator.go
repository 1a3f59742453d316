package generator

import "context"

// Generator defines the interface contract for lesson text generation
// services. Implementations return the raw text payload, which is
// expected to contain a JSON lesson structure.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelName() string
}
