//go:build ignore

// Package main seeds a synthetic catalog for local runs and benchmarks.
// Usage: go run scripts/seed-catalog.go -docs 2000 -output /tmp/catalog.db -dims 256
//
// Vectors come from the static embedder, so serve the result with
// LOADERMCP_EMBEDDINGS_PROVIDER=static and the same -dims.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/embed"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/store"
)

var (
	numDocs = flag.Int("docs", 1000, "Number of documents to generate")
	output  = flag.String("output", "testdata/catalog.db", "Catalog path")
	dims    = flag.Int("dims", embed.DefaultStaticDimensions, "Vector dimensions")
	seed    = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var (
	nouns = []string{
		"Gateway", "Router", "Scheduler", "Monitor", "Session",
		"Token", "Config", "Pipeline", "Release", "Cache",
	}
	verbs = []string{
		"configure", "deploy", "rotate", "debug", "migrate",
		"validate", "monitor", "scale", "restore", "audit",
	}
	domains = []string{
		"authentication", "authorization", "caching", "logging", "monitoring",
		"messaging", "scheduling", "routing", "encryption", "indexing",
	}
	repos = []string{"gateway", "billing", "platform", "search"}
)

func randomWord(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

// document builds one synthetic document. Source types rotate so every
// filter has matches: 40% wiki, 30% code, 20% issue, 10% doc.
func document(rng *rand.Rand, i int) store.Document {
	noun := randomWord(rng, nouns)
	verb := randomWord(rng, verbs)
	domain := randomWord(rng, domains)

	switch bucket := i % 10; {
	case bucket < 4:
		return store.Document{
			ID:          fmt.Sprintf("wiki-%d", i),
			Text:        fmt.Sprintf("How to %s the %s. This page covers %s for the %s service and its rollout checklist.", verb, strings.ToLower(noun), domain, strings.ToLower(noun)),
			SourceType:  store.SourceWiki,
			SourceTitle: fmt.Sprintf("%s %s guide", noun, domain),
			SourceURL:   fmt.Sprintf("https://wiki.example.com/%s/%d", domain, i),
		}
	case bucket < 7:
		repo := randomWord(rng, repos)
		return store.Document{
			ID:          fmt.Sprintf("code-%d", i),
			Text:        fmt.Sprintf("func %s%s(ctx context.Context) error { // %s for %s\n\treturn nil\n}", strings.Title(verb), noun, domain, strings.ToLower(noun)),
			SourceType:  store.SourceCode,
			SourceTitle: fmt.Sprintf("%s_%s.go", strings.ToLower(noun), domain),
			FilePath:    fmt.Sprintf("internal/%s/%s.go", domain, strings.ToLower(noun)),
			RepoName:    repo,
		}
	case bucket < 9:
		return store.Document{
			ID:          fmt.Sprintf("issue-%d", i),
			Text:        fmt.Sprintf("Cannot %s %s after upgrade. %s errors appear in the %s logs.", verb, strings.ToLower(noun), strings.Title(domain), strings.ToLower(noun)),
			SourceType:  store.SourceIssue,
			SourceTitle: fmt.Sprintf("%s fails to %s", noun, verb),
			SourceURL:   fmt.Sprintf("https://issues.example.com/browse/OPS-%d", i),
		}
	default:
		return store.Document{
			ID:          fmt.Sprintf("doc-%d", i),
			Text:        fmt.Sprintf("%s reference. The %s component handles %s; operators %s it through the admin console.", noun, strings.ToLower(noun), domain, verb),
			SourceType:  store.SourceDoc,
			SourceTitle: fmt.Sprintf("%s reference", noun),
			FilePath:    fmt.Sprintf("docs/%s.md", strings.ToLower(noun)),
		}
	}
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))
	ctx := context.Background()

	catalog, err := store.OpenCatalog(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening catalog: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = catalog.Close() }()

	emb := embed.NewStaticEmbedder(*dims)
	fmt.Printf("Seeding %d documents into %s...\n", *numDocs, *output)

	for i := 0; i < *numDocs; i++ {
		doc := document(rng, i)
		vec, err := emb.Embed(ctx, doc.Text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error embedding %s: %v\n", doc.ID, err)
			os.Exit(1)
		}
		if err := catalog.Put(ctx, doc, vec); err != nil {
			fmt.Fprintf(os.Stderr, "Error storing %s: %v\n", doc.ID, err)
			os.Exit(1)
		}
	}

	n, err := catalog.Count(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error counting documents: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Catalog holds %d documents.\n", n)
}
