package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/store"
)

// CheckCatalog verifies the catalog exists and holds documents. The catalog
// is written by the external loader; without it there is no corpus.
func (c *Checker) CheckCatalog(ctx context.Context, path string) CheckResult {
	result := CheckResult{
		Name:     "catalog",
		Required: true,
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("not found at %s", path)
		result.Details = "Run the loader to populate the catalog, or set store.catalog_path"
		return result
	}
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot stat %s: %v", path, err)
		return result
	}

	catalog, err := store.OpenCatalog(path)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot open: %v", err)
		return result
	}
	defer func() { _ = catalog.Close() }()

	n, err := catalog.Count(ctx)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read documents: %v", err)
		return result
	}

	result.Details = fmt.Sprintf("%s (%s)", path, formatBytes(uint64(info.Size())))
	if n == 0 {
		result.Status = StatusWarn
		result.Message = "catalog is empty; every search will return no results"
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d documents", n)
	return result
}

// CheckVectorStore pings the configured vector store.
func (c *Checker) CheckVectorStore(ctx context.Context, backend string) CheckResult {
	result := CheckResult{
		Name:     "vector_store",
		Required: true,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.vectorStore.Ping(ctx); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s unreachable: %v", backend, err)
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s reachable", backend)
	return result
}
