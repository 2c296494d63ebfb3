// Package sink persists completed counseling sessions.
package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/counsel"
)

// DefaultDir is where monthly logs are written when no directory is configured.
const DefaultDir = "txtfiles"

// CSV appends rows to a monthly file counseling_log_YYYYMM.csv. The header is
// written only when the file is created.
type CSV struct {
	dir string
	mu  sync.Mutex
}

func NewCSV(dir string) *CSV {
	if dir == "" {
		dir = DefaultDir
	}
	return &CSV{dir: dir}
}

// Path returns the file a row stamped with the given month lands in.
func (s *CSV) Path(row counsel.LogRow) string {
	return filepath.Join(s.dir, fmt.Sprintf("counseling_log_%s.csv", row.Timestamp.Format("200601")))
}

func (s *CSV) Append(_ context.Context, row counsel.LogRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	path := s.Path(row)
	_, err := os.Stat(path)
	isNew := errors.Is(err, os.ErrNotExist)
	if err != nil && !isNew {
		return fmt.Errorf("stat log file: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(counsel.LogColumns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(row.Values()); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush log file: %w", err)
	}
	return f.Sync()
}
