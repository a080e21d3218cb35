package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/justrnr500/pathfilter/internal/config"
	"github.com/justrnr500/pathfilter/internal/filter"
	"github.com/justrnr500/pathfilter/internal/repo"
	"github.com/justrnr500/pathfilter/internal/storage"
)

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Compute repository fingerprints per filter",
	Long: `Fingerprint every file in the repository that a filter covers.

For each filter the changed flag FILTER_<NAME> (written by 'pathfilter match')
decides what happens:
  true       recompute from the repository and update the cache
  otherwise  reuse the cached fingerprint from --hash-dir, computing it only
             when none is cached

Outputs hash_<name>=<sha1> to GITHUB_OUTPUT and GITHUB_ENV.

Examples:
  pathfilter hash
  pathfilter hash --all            # Ignore flags and cache, recompute everything
  pathfilter hash --exclude 'node_modules/**'`,
	RunE: runHash,
}

var (
	hashAll  bool
	hashJSON bool
)

func init() {
	rootCmd.AddCommand(hashCmd)
	addHashFlags(hashCmd)
	hashCmd.Flags().BoolVar(&hashAll, "all", false, "Recompute every fingerprint without reading FILTER_<NAME> flags")
	hashCmd.Flags().BoolVar(&hashJSON, "json", false, "Print results as JSON instead of writing GitHub outputs")
}

// hashResult is the fingerprint of one filter over the repository.
type hashResult struct {
	Name     string        `json:"name"`
	Hash     string        `json:"hash"`
	Cached   bool          `json:"cached"`
	Duration time.Duration `json:"duration_ns"`
}

func runHash(cmd *cobra.Command, args []string) error {
	set, err := loadFilters(cfg)
	if err != nil {
		return err
	}

	h := &hasher{
		root:     root,
		excludes: cfg.Exclude,
		cache:    openCache(cfg),
	}
	results, err := h.hashFilters(set, hashAll, lookupEnv)
	if err != nil {
		return err
	}

	if hashJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	s := newSinks(cfg, true)
	for _, r := range results {
		key := "hash_" + r.Name
		if err := s.output.Set(key, r.Hash); err != nil {
			return err
		}
		if err := s.env.Set(key, r.Hash); err != nil {
			return err
		}
	}
	printHashes(cmd.OutOrStdout(), results)
	return nil
}

// hasher fingerprints filters over the repository, consulting the cache.
// The repository is walked at most once.
type hasher struct {
	root     string
	excludes []string
	cache    *storage.Cache

	files  []string
	listed bool
}

func (h *hasher) repoFiles() ([]string, error) {
	if !h.listed {
		files, err := repo.ListFiles(h.root, h.excludes)
		if err != nil {
			return nil, err
		}
		log.Debug("Listed repository files", "root", h.root, "files", len(files))
		h.files = files
		h.listed = true
	}
	return h.files, nil
}

// compute fingerprints f over the whole repository.
func (h *hasher) compute(f *filter.Filter) (string, error) {
	files, err := h.repoFiles()
	if err != nil {
		return "", err
	}
	fp := &filter.Fingerprinter{Root: h.root, Missing: filter.MissingFail}
	return fp.Fingerprint(f, files)
}

func (h *hasher) hashFilters(set *filter.Set, all bool, lookup config.LookupFunc) ([]hashResult, error) {
	var results []hashResult

	for _, f := range set.Filters {
		changed := true
		if !all {
			flag := config.FlagKey(f.Key())
			v, ok := lookup(flag)
			if !ok {
				return nil, fmt.Errorf("%w: %s (run 'pathfilter match' first or pass --all)", config.ErrMissing, flag)
			}
			changed = strings.EqualFold(strings.TrimSpace(v), "true")
		}

		if !changed {
			hash, ok, err := h.cache.Get(f.Name)
			if err != nil {
				return nil, err
			}
			if ok {
				log.Info("Using cached fingerprint", "filter", f.Name, "hash", hash)
				results = append(results, hashResult{Name: f.Name, Hash: hash, Cached: true})
				continue
			}
			log.Info("No cached fingerprint, computing", "filter", f.Name)
		}

		start := time.Now()
		hash, err := h.compute(f)
		if err != nil {
			return nil, err
		}
		if err := h.cache.Put(f.Name, hash); err != nil {
			return nil, err
		}
		elapsed := time.Since(start)
		log.Info("Computed fingerprint", "filter", f.Name, "hash", hash, "took", elapsed.Round(time.Millisecond))
		results = append(results, hashResult{Name: f.Name, Hash: hash, Duration: elapsed})
	}

	return results, nil
}

func printHashes(w io.Writer, results []hashResult) {
	for _, r := range results {
		if r.Cached {
			fmt.Fprintf(w, "✓ %s  %s (cached)\n", r.Name, r.Hash)
		} else {
			fmt.Fprintf(w, "✓ %s  %s (%s)\n", r.Name, r.Hash, r.Duration.Round(time.Millisecond))
		}
	}
}
