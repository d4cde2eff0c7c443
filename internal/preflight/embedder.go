package preflight

import (
	"context"
	"fmt"
)

// CheckEmbedder probes the embedding provider. A failure is a warning:
// searches still run, ranked by keywords only.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: false,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if !c.embedder.Available(ctx) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s unreachable; searches will be keyword-ranked", c.embedder.ModelName())
		result.Details = "Check embeddings.provider and the provider host or API key"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s ready", c.embedder.ModelName())
	return result
}
