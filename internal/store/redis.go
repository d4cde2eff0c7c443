package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"
)

// Hash fields written by the loader for each document.
const (
	fieldID          = "id"
	fieldText        = "text"
	fieldSourceType  = "source_type"
	fieldSourceTitle = "source_title"
	fieldSourceURL   = "source_url"
	fieldFilePath    = "file_path"
	fieldRepoName    = "repo_name"
	fieldVector      = "vector"
	fieldVectorScore = "__vector_score"

	documentPageSize = 500
)

var returnFields = []string{
	fieldID, fieldText, fieldSourceType, fieldSourceTitle,
	fieldSourceURL, fieldFilePath, fieldRepoName,
}

// RedisConfig holds connection parameters for a Redis Stack / Valkey store.
type RedisConfig struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	Index    string
}

// RedisStore is a VectorStore backed by an RediSearch index with a VECTOR
// field (cosine), a TAG field source_type and a TEXT field text.
type RedisStore struct {
	client rueidis.Client
	index  string
}

// NewRedisStore connects to Redis.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // result parsing expects the RESP2 FT.SEARCH array layout
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &RedisStore{client: client, index: cfg.Index}, nil
}

// NewRedisStoreForTest wraps an existing client, typically a rueidis mock.
func NewRedisStoreForTest(c rueidis.Client, index string) *RedisStore {
	return &RedisStore{client: c, index: index}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *RedisStore) Close() error {
	s.client.Close()
	return nil
}

// Query runs a filtered KNN search.
func (s *RedisStore) Query(ctx context.Context, vector []float32, filter Filter, count int) ([]Candidate, error) {
	if count <= 0 {
		return []Candidate{}, nil
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}

	pre := "*"
	if tag := tagFilter(filter); tag != "" {
		pre = "(" + tag + ")"
	}
	query := fmt.Sprintf("%s=>[KNN %d @%s $BLOB]", pre, count, fieldVector)

	args := []string{s.index, query, "RETURN", strconv.Itoa(len(returnFields) + 1)}
	args = append(args, returnFields...)
	args = append(args, fieldVectorScore,
		"SORTBY", fieldVectorScore,
		"LIMIT", "0", strconv.Itoa(count),
		"PARAMS", "2", "BLOB", string(encodeVector(vector)),
		"DIALECT", "2")

	raw, err := s.client.Do(ctx, s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	entries, _, err := parseSearchReply(raw)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		score := 0.0
		if v, ok := e.fields[fieldVectorScore]; ok {
			if d, err := strconv.ParseFloat(v, 64); err == nil {
				score = similarityFromCosineDistance(d)
			}
		}
		out = append(out, Candidate{Document: e.document(), SemanticScore: score})
	}
	sortCandidates(out)
	return out, nil
}

// Scroll runs a full-text match on any of terms under filter.
func (s *RedisStore) Scroll(ctx context.Context, terms []string, filter Filter, count int) ([]Document, error) {
	if count <= 0 {
		return []Document{}, nil
	}

	var parts []string
	if tag := tagFilter(filter); tag != "" {
		parts = append(parts, tag)
	}
	if len(terms) > 0 {
		escaped := make([]string, len(terms))
		for i, t := range terms {
			escaped[i] = queryEscaper.Replace(t)
		}
		parts = append(parts, fmt.Sprintf("@%s:(%s)", fieldText, strings.Join(escaped, "|")))
	}
	query := "*"
	if len(parts) > 0 {
		query = strings.Join(parts, " ")
	}

	docs, _, err := s.page(ctx, query, 0, count)
	return docs, err
}

// Documents pages through every document in the index.
func (s *RedisStore) Documents(ctx context.Context, fn func(Document) error) error {
	for offset := 0; ; offset += documentPageSize {
		docs, total, err := s.page(ctx, "*", offset, documentPageSize)
		if err != nil {
			return err
		}
		for _, d := range docs {
			if err := fn(d); err != nil {
				return err
			}
		}
		if len(docs) == 0 || offset+documentPageSize >= total {
			return nil
		}
	}
}

func (s *RedisStore) page(ctx context.Context, query string, offset, limit int) ([]Document, int, error) {
	args := []string{s.index, query, "RETURN", strconv.Itoa(len(returnFields))}
	args = append(args, returnFields...)
	args = append(args,
		"LIMIT", strconv.Itoa(offset), strconv.Itoa(limit),
		"DIALECT", "2")

	raw, err := s.client.Do(ctx, s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}
	entries, total, err := parseSearchReply(raw)
	if err != nil {
		return nil, 0, err
	}
	docs := make([]Document, len(entries))
	for i, e := range entries {
		docs[i] = e.document()
	}
	return docs, total, nil
}

type searchEntry struct {
	key    string
	fields map[string]string
}

func (e searchEntry) document() Document {
	id := e.fields[fieldID]
	if id == "" {
		id = e.key
	}
	return Document{
		ID:          id,
		Text:        e.fields[fieldText],
		SourceType:  SourceType(e.fields[fieldSourceType]),
		SourceTitle: e.fields[fieldSourceTitle],
		SourceURL:   e.fields[fieldSourceURL],
		FilePath:    e.fields[fieldFilePath],
		RepoName:    e.fields[fieldRepoName],
	}
}

// parseSearchReply reads the RESP2 layout [total, key1, fields1, key2, ...].
func parseSearchReply(raw []rueidis.RedisMessage) ([]searchEntry, int, error) {
	if len(raw) == 0 {
		return nil, 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, 0, fmt.Errorf("parse total: %w", err)
	}

	entries := make([]searchEntry, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		fields := make(map[string]string, len(pairs)/2)
		for j := 0; j+1 < len(pairs); j += 2 {
			name, err := pairs[j].ToString()
			if err != nil {
				continue
			}
			value, err := pairs[j+1].ToString()
			if err != nil {
				continue
			}
			fields[name] = value
		}
		entries = append(entries, searchEntry{key: key, fields: fields})
	}
	return entries, int(total), nil
}

func tagFilter(f Filter) string {
	if f.IsEmpty() {
		return ""
	}
	vals := make([]string, len(f.SourceTypes))
	for i, st := range f.SourceTypes {
		vals[i] = tagEscaper.Replace(string(st))
	}
	return fmt.Sprintf("@%s:{%s}", fieldSourceType, strings.Join(vals, " | "))
}

var tagEscaper = strings.NewReplacer(
	",", `\,`, ".", `\.`, "<", `\<`, ">", `\>`, "{", `\{`, "}", `\}`,
	`"`, `\"`, "'", `\'`, ":", `\:`, ";", `\;`, "!", `\!`, "@", `\@`,
	"#", `\#`, "$", `\$`, "%", `\%`, "^", `\^`, "&", `\&`, "*", `\*`,
	"(", `\(`, ")", `\)`, "-", `\-`, "+", `\+`, "=", `\=`, "~", `\~`,
	" ", `\ `, "|", `\|`,
)

var queryEscaper = strings.NewReplacer(
	`\`, `\\`, `'`, `\'`, `"`, `\"`, `@`, `\@`, `{`, `\{`, `}`, `\}`,
	`(`, `\(`, `)`, `\)`, `|`, `\|`, `-`, `\-`, `~`, `\~`, `*`, `\*`,
	`[`, `\[`, `]`, `\]`, `!`, `\!`, `%`, `\%`, `^`, `\^`, `$`, `\$`,
	`<`, `\<`, `>`, `\>`, `=`, `\=`, `;`, `\;`, `+`, `\+`, `:`, `\:`,
)

var (
	_ VectorStore    = (*RedisStore)(nil)
	_ DocumentSource = (*RedisStore)(nil)
	_ DocumentSource = (*Catalog)(nil)
	_ DocumentSource = (*HNSWStore)(nil)
)
