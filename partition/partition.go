// Package partition implements the external partitioned comparison
// mode: each side's (hash, offset) records are bucketed into
// N_PARTITIONS on-disk shard files by hash, then each shard is sorted
// in memory and rewritten in hash order so the reduce phase can
// process one partition pair at a time without holding a whole side
// in RAM.
//
// The shape - a mutex-protected buffered writer per shard, flushed
// then sorted-and-rewritten at Build time - keeps every occurrence
// grouped by key, since a multiset diff needs every occurrence of a
// hash rather than just the most recent one.
package partition

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"k8s.io/klog/v2"

	"github.com/bcomp/bcomp/linehash"
	"github.com/bcomp/bcomp/record"
)

// DefaultCount is the default number of partitions (N_PARTITIONS).
const DefaultCount = 256

type shardBuf struct {
	mu   sync.Mutex
	wr   *bufio.Writer
	file *os.File
}

// Writer buckets records into on-disk partitions by hash.
type Writer struct {
	dir    string
	count  int
	mu     sync.Mutex // protects shards map structure
	shards map[int]*shardBuf
	closed bool
}

// NewWriter creates a Writer that places partition files under dir.
// dir is created if it does not exist.
func NewWriter(dir string, count int) (*Writer, error) {
	if count <= 0 {
		count = DefaultCount
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("partition: create dir %q: %w", dir, err)
	}
	return &Writer{dir: dir, count: count, shards: make(map[int]*shardBuf, count)}, nil
}

// PartitionID returns the partition a hash belongs to.
func PartitionID(h linehash.Hash, count int) int {
	return int(uint64(h) % uint64(count))
}

func (w *Writer) path(id int) string {
	return filepath.Join(w.dir, fmt.Sprintf("partition-%04d.dat", id))
}

// Push appends a single record to its partition's buffer.
func (w *Writer) Push(ho record.HashOffset) error {
	id := PartitionID(ho.Hash, w.count)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("partition: writer closed")
	}
	sb, ok := w.shards[id]
	if !ok {
		f, err := os.OpenFile(w.path(id), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			w.mu.Unlock()
			return fmt.Errorf("partition: open shard %d: %w", id, err)
		}
		sb = &shardBuf{wr: bufio.NewWriterSize(f, 1<<20), file: f}
		w.shards[id] = sb
	}
	w.mu.Unlock()

	var buf [record.Size]byte
	record.Encode(buf[:], ho)

	sb.mu.Lock()
	_, err := sb.wr.Write(buf[:])
	sb.mu.Unlock()
	if err != nil {
		return fmt.Errorf("partition: write shard %d: %w", id, err)
	}
	return nil
}

// Build flushes every partition buffer, then sorts each partition file
// in place by (hash, offset) so the reduce phase can stream it in
// ascending hash order.
func (w *Writer) Build() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("partition: writer closed")
	}
	w.closed = true
	shards := w.shards
	w.shards = nil
	w.mu.Unlock()

	for id, sb := range shards {
		if err := sb.wr.Flush(); err != nil {
			return fmt.Errorf("partition: flush shard %d: %w", id, err)
		}
		if err := sb.file.Close(); err != nil {
			return fmt.Errorf("partition: close shard %d: %w", id, err)
		}
		if err := sortPartitionFile(w.path(id)); err != nil {
			return fmt.Errorf("partition: sort shard %d: %w", id, err)
		}
	}
	return nil
}

func sortPartitionFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if len(data)%record.Size != 0 {
		return fmt.Errorf("partition file %s corrupt: size %d not a multiple of %d", path, len(data), record.Size)
	}

	n := len(data) / record.Size
	recs := make([]record.HashOffset, n)
	for i := 0; i < n; i++ {
		recs[i] = record.Decode(data[i*record.Size : (i+1)*record.Size])
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Hash != recs[j].Hash {
			return recs[i].Hash < recs[j].Hash
		}
		return recs[i].Offset < recs[j].Offset
	})

	out := make([]byte, len(data))
	for i, r := range recs {
		record.Encode(out[i*record.Size:(i+1)*record.Size], r)
	}

	tmp := path + ".sorting"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Count returns the configured number of partitions.
func (w *Writer) Count() int { return w.count }

// Path exposes a partition file's path so the reduce phase can open it
// directly (e.g. for a memory-mapped or buffered read).
func Path(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("partition-%04d.dat", id))
}

// Load reads and decodes a whole partition file. Sides whose partition
// never received a Push leave no file on disk; Load reports that as
// an empty, not missing, partition. A truncated trailing record is
// logged and dropped rather than failing the load.
func Load(dir string, id int) ([]record.HashOffset, error) {
	path := Path(dir, id)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("partition: load %d: %w", id, err)
	}
	defer f.Close()

	out, err := record.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("partition: load %d: %w", id, err)
	}
	if fi, statErr := f.Stat(); statErr == nil && fi.Size()%int64(record.Size) != 0 {
		klog.Warningf("partition: %s has a truncated trailing record (size %d not a multiple of %d); tail ignored", path, fi.Size(), record.Size)
	}
	return out, nil
}

// VerifySorted reports whether recs are in the (hash, offset) order
// Build establishes on disk; used by tests to assert that invariant.
func VerifySorted(recs []record.HashOffset) bool {
	return sort.SliceIsSorted(recs, func(i, j int) bool {
		if recs[i].Hash != recs[j].Hash {
			return recs[i].Hash < recs[j].Hash
		}
		return recs[i].Offset < recs[j].Offset
	})
}
