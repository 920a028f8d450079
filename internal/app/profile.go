package app

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// profiler appends per-section timings of each unit of work to a CSV file.
// A nil profiler is valid and records nothing.
type profiler struct {
	mu    sync.Mutex
	file  *os.File
	start time.Time
	last  time.Time
	unit  string
}

func newProfiler(path string, logger *zap.Logger) *profiler {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Warn("profiler disabled", zap.String("path", path), zap.Error(err))
		return nil
	}
	fmt.Fprintln(f, "timestamp,unit,section,delta_ms")
	return &profiler{file: f}
}

func (p *profiler) begin(unit string) {
	if p == nil {
		return
	}
	now := time.Now()
	p.mu.Lock()
	p.start = now
	p.last = now
	p.unit = unit
	p.mu.Unlock()
}

func (p *profiler) mark(section string) {
	if p == nil {
		return
	}
	now := time.Now()
	p.mu.Lock()
	delta := now.Sub(p.last).Seconds() * 1000
	p.last = now
	p.write(section, delta)
	p.mu.Unlock()
}

func (p *profiler) end() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.write("total", time.Since(p.start).Seconds()*1000)
	p.mu.Unlock()
}

func (p *profiler) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return err
}

// write expects p.mu to be held.
func (p *profiler) write(section string, deltaMs float64) {
	if p.file == nil {
		return
	}
	fmt.Fprintf(p.file, "%s,%s,%s,%.3f\n", time.Now().Format(time.RFC3339Nano), p.unit, section, deltaMs)
}
