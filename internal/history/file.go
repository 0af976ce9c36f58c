package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bakkerme/jobwatch/internal/core"
)

// FileStore keeps one identifier per line in a plain text file, compatible
// with the sent_jobs.log files written by earlier versions.
//
// Every Append is a single write followed by fsync. A crash mid-write can
// leave a final line without its newline. Load ignores such a line and the
// next Append truncates it away before writing, so a torn write can lose
// identifiers but never turn into a spurious one.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("history file path is required")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Load(ctx context.Context) (Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("%w: read history %s: %w", core.ErrPersistence, s.path, err)
	}
	if idx := bytes.LastIndexByte(data, '\n'); idx+1 < len(data) {
		data = data[:idx+1]
	}
	set := Set{}
	for _, line := range strings.Split(string(data), "\n") {
		set.Add(line)
	}
	return set, nil
}

func (s *FileStore) Append(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ids = cleanIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	if err := ensureParentDir(s.path); err != nil {
		return fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open history %s: %w", core.ErrPersistence, s.path, err)
	}
	defer f.Close()

	if err := dropPartialLine(f); err != nil {
		return fmt.Errorf("%w: repair history %s: %w", core.ErrPersistence, s.path, err)
	}
	var buf bytes.Buffer
	for _, id := range ids {
		buf.WriteString(id)
		buf.WriteByte('\n')
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: write history %s: %w", core.ErrPersistence, s.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync history %s: %w", core.ErrPersistence, s.path, err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// dropPartialLine truncates f after its last newline. Writes through an
// O_APPEND handle then land directly after the last complete line.
func dropPartialLine(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	end, err := lastLineEnd(f, size)
	if err != nil {
		return err
	}
	if end == size {
		return nil
	}
	return f.Truncate(end)
}

// lastLineEnd returns the offset just past the last newline in the first
// size bytes of f, or 0 when there is none.
func lastLineEnd(f *os.File, size int64) (int64, error) {
	const chunk = 4096
	buf := make([]byte, chunk)
	for end := size; end > 0; {
		start := max(end-chunk, 0)
		part := buf[:end-start]
		if _, err := f.ReadAt(part, start); err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if idx := bytes.LastIndexByte(part, '\n'); idx >= 0 {
			return start + int64(idx) + 1, nil
		}
		end = start
	}
	return 0, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}
	return nil
}
