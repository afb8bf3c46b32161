package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SequentialRotator is an io.Writer that moves the active file aside as
// <name>.<seq>.log once it grows past the size limit.
type SequentialRotator struct {
	mu sync.Mutex

	path       string
	maxSize    int64
	maxAge     time.Duration
	maxBackups int

	file *os.File
	size int64
}

type backup struct {
	path    string
	seq     int
	modTime time.Time
}

// NewSequentialRotator returns a rotator for path. Zero limits disable the matching rule.
func NewSequentialRotator(path string, maxSizeMB, maxAgeDays, maxBackups int) *SequentialRotator {
	return &SequentialRotator{
		path:       path,
		maxSize:    int64(maxSizeMB) << 20,
		maxAge:     time.Duration(maxAgeDays) * 24 * time.Hour,
		maxBackups: maxBackups,
	}
}

func (r *SequentialRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}
	if r.maxSize > 0 && r.size+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *SequentialRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeFile()
}

func (r *SequentialRotator) closeFile() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *SequentialRotator) open() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	r.file, r.size = f, info.Size()
	return nil
}

func (r *SequentialRotator) rotate() error {
	if err := r.closeFile(); err != nil {
		return err
	}

	backups := r.backups()
	next := 1
	if len(backups) > 0 {
		next = backups[0].seq + 1
	}
	target := fmt.Sprintf("%s.%d.log", strings.TrimSuffix(r.path, ".log"), next)
	if err := os.Rename(r.path, target); err != nil {
		return err
	}

	r.prune(append([]backup{{path: target, seq: next, modTime: time.Now()}}, backups...))
	return r.open()
}

// backups lists rotated files, highest sequence first
func (r *SequentialRotator) backups() []backup {
	prefix := strings.TrimSuffix(r.path, ".log") + "."
	matches, err := filepath.Glob(prefix + "*.log")
	if err != nil {
		return nil
	}

	var out []backup
	for _, m := range matches {
		seq, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(m, prefix), ".log"))
		if err != nil {
			continue
		}
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		out = append(out, backup{path: m, seq: seq, modTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq > out[j].seq })
	return out
}

func (r *SequentialRotator) prune(backups []backup) {
	cutoff := time.Now().Add(-r.maxAge)
	for i, b := range backups {
		overCount := r.maxBackups > 0 && i >= r.maxBackups
		tooOld := r.maxAge > 0 && b.modTime.Before(cutoff)
		if overCount || tooOld {
			if err := os.Remove(b.path); err != nil {
				fmt.Fprintf(os.Stderr, "failed to remove rotated log %s: %v\n", b.path, err)
			}
		}
	}
}
