package staging

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Sweeper periodically removes staged files left behind by crashed or
// interrupted runs. Normal cleanup is per-job; the sweeper only catches
// orphans older than maxAge.
type Sweeper struct {
	dir      string
	interval time.Duration
	maxAge   time.Duration
	stopChan chan struct{}
}

// NewSweeper creates a sweeper over the given staging directory
func NewSweeper(dir string, interval, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		dir:      dir,
		interval: interval,
		maxAge:   maxAge,
		stopChan: make(chan struct{}),
	}
}

// Start runs an initial sweep and then sweeps on the configured interval
func (s *Sweeper) Start() {
	s.sweep()

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Staging sweeper started (interval: %s, max age: %s)", s.interval, s.maxAge)
}

// Stop stops the sweeper
func (s *Sweeper) Stop() {
	close(s.stopChan)
}

// sweep removes files older than maxAge from the staging directory
func (s *Sweeper) sweep() {
	now := time.Now()
	var deleted int

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Printf("Sweeper failed to read %s: %v", s.dir, err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > s.maxAge {
			path := filepath.Join(s.dir, entry.Name())
			if err := os.Remove(path); err != nil {
				log.Printf("Sweeper failed to delete %s: %v", path, err)
			} else {
				deleted++
				log.Printf("Swept orphaned staged file: %s", entry.Name())
			}
		}
	}

	if deleted > 0 {
		log.Printf("Sweep complete: %d orphaned files deleted", deleted)
	}
}
