package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Separator follows every order log entry.
const Separator = "-------------------------"

// OrderLog appends order summaries to a text file. Entries are never
// rewritten; concurrent appends are serialised.
type OrderLog struct {
	mu   sync.Mutex
	path string
}

func NewOrderLog(path string) *OrderLog {
	return &OrderLog{path: path}
}

func (l *OrderLog) Path() string {
	return l.path
}

// Append writes entry followed by the separator line.
func (l *OrderLog) Append(entry string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create order log dir: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open order log: %w", err)
	}

	if _, err := fmt.Fprintf(f, "%s\n%s\n", entry, Separator); err != nil {
		f.Close()
		return fmt.Errorf("append order log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close order log: %w", err)
	}
	return nil
}
