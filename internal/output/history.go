package output

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
)

const historyLockRetry = 50 * time.Millisecond

// AppendHistory appends rep as one JSON line to path. A sibling ".lock" file
// serializes writers, so concurrent runs sharing a history file never
// interleave their lines.
func AppendHistory(ctx context.Context, path string, rep Report) error {
	line, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, historyLockRetry)
	if err != nil {
		return fmt.Errorf("lock history file: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock history file %s: not acquired", path)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("write history file: %w", err)
	}
	return f.Close()
}

// ReadHistory loads every entry from a history file, oldest first. A missing
// file yields no entries.
func ReadHistory(path string) ([]Report, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Report
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rep Report
		if err := json.Unmarshal(sc.Bytes(), &rep); err != nil {
			return nil, fmt.Errorf("history %s line %d: %w", path, line, err)
		}
		out = append(out, rep)
	}
	return out, sc.Err()
}
