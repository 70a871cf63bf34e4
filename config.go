package bcomp

import "regexp"

// Config is the parameter set for StartComparison.
type Config struct {
	// FileA, FileB are the paths of the two files to compare.
	FileA, FileB string

	// UseExternalSort selects the external-partitioned or sort-merge
	// mode over the in-memory mode. Leave false for files that fit
	// comfortably in RAM as hash maps.
	UseExternalSort bool

	// SortMerge selects the sort-merge external variant over the
	// partitioned one. Ignored when UseExternalSort is false.
	SortMerge bool

	// Partitions overrides N_PARTITIONS for external partitioned
	// mode. Zero uses partition.DefaultCount.
	Partitions int

	// IgnoreOccurrences treats a hash present (at any count) on both
	// sides as fully cancelled, regardless of the count difference.
	// It applies to the in-memory and partitioned modes; the sort-merge
	// mode does not consult it and always reports count differences.
	IgnoreOccurrences bool

	// UseSingleThread processes the two files sequentially - scanning,
	// then fingerprinting - instead of concurrently, and also lowers
	// each file's intra-file chunk worker count to 1.
	UseSingleThread bool

	// IgnoreLineNumber skips line-number resolution and, in external
	// partitioned mode, persisting the newline index; every
	// UniqueLineEvent reports LineNumber 0.
	IgnoreLineNumber bool

	// PrimaryKeyRegex is reserved for future use (hashing a
	// sub-field rather than the whole line). Accepted and validated
	// as a syntactically well-formed regex, but not otherwise
	// consulted by any mode.
	PrimaryKeyRegex string

	// TempDir is the base directory under which bcomp_<nonce> is
	// created for external/sort-merge mode. Empty uses os.TempDir().
	TempDir string
}

// validate checks the parts of Config that can be rejected before any
// I/O happens.
func (c Config) validate() error {
	if c.FileA == "" || c.FileB == "" {
		return errConfig("file_a_path and file_b_path are required")
	}
	if c.PrimaryKeyRegex != "" {
		if _, err := regexp.Compile(c.PrimaryKeyRegex); err != nil {
			return errConfig("primary_key_regex: " + err.Error())
		}
	}
	return nil
}

type errConfig string

func (e errConfig) Error() string { return "bcomp: invalid config: " + string(e) }
