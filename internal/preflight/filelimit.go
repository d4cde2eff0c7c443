package preflight

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/config"
)

const (
	// fdBase covers stdio, the log file, the catalog with its WAL and the
	// listener.
	fdBase = 64

	// fdPerSearch is the embedder request plus the vector store round trip
	// each in-flight search can hold open.
	fdPerSearch = 2

	// fdPerRedisNode is the pipelined connections plus one dedicated
	// connection the client keeps per node.
	fdPerRedisNode = 5

	// fdHeadroom scales the sum so a limit at exactly the need still fails.
	fdHeadroom = 2
)

// fdNeed is one descriptor consumer and its share.
type fdNeed struct {
	label string
	count uint64
}

// fdNeeds lists the descriptor consumers of a server configured by cfg.
func fdNeeds(cfg *config.Config) []fdNeed {
	needs := []fdNeed{
		{label: "base", count: fdBase},
		{label: fmt.Sprintf("%d concurrent searches", cfg.Server.MaxConcurrency),
			count: uint64(max(cfg.Server.MaxConcurrency, 1)) * fdPerSearch},
	}
	if cfg.Store.Backend == "redis" {
		needs = append(needs, fdNeed{
			label: fmt.Sprintf("%d redis nodes", len(cfg.Store.RedisAddrs)),
			count: uint64(len(cfg.Store.RedisAddrs)) * fdPerRedisNode,
		})
	}
	return needs
}

// fdRequirement is the soft limit a server configured by cfg needs.
func fdRequirement(cfg *config.Config) uint64 {
	var total uint64
	for _, n := range fdNeeds(cfg) {
		total += n.count
	}
	return total * fdHeadroom
}

// CheckFileDescriptors checks the soft RLIMIT_NOFILE against what the
// configured concurrency and vector store connections hold open.
func (c *Checker) CheckFileDescriptors(cfg *config.Config) CheckResult {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return CheckResult{
			Name:     "file_descriptors",
			Status:   StatusFail,
			Message:  fmt.Sprintf("failed to check file descriptor limit: %v", err),
			Required: true,
		}
	}
	return checkFileLimit(cfg, uint64(rLimit.Cur))
}

func checkFileLimit(cfg *config.Config, limit uint64) CheckResult {
	result := CheckResult{
		Name:     "file_descriptors",
		Required: true,
	}

	need := fdRequirement(cfg)
	result.Message = fmt.Sprintf("%d (needed: %d)", limit, need)
	if limit >= need {
		result.Status = StatusPass
		return result
	}

	parts := make([]string, 0, 3)
	for _, n := range fdNeeds(cfg) {
		parts = append(parts, fmt.Sprintf("%s %d", n.label, n.count))
	}
	result.Status = StatusFail
	result.Details = fmt.Sprintf("Run 'ulimit -n %d' or lower server.max_concurrency (%s)",
		need, strings.Join(parts, ", "))
	return result
}
