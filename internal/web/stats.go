package web

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"go.uber.org/zap"
)

// Stats reports process and host load next to the frame counter.
type Stats struct {
	Uptime        string  `json:"uptime"`
	Seq           uint64  `json:"seq"`
	Clients       int     `json:"clients"`
	Goroutines    int     `json:"goroutines"`
	HeapBytes     uint64  `json:"heapBytes"`
	CPUPercent    float64 `json:"cpuPercent"`
	MemUsedPct    float64 `json:"memUsedPercent"`
	DroughtLoaded int     `json:"droughtRecords"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats())
}

func (s *Server) stats() Stats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s.mu.RLock()
	clients := len(s.clients)
	s.mu.RUnlock()

	st := Stats{
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		Seq:           s.app.Frame().Seq,
		Clients:       clients,
		Goroutines:    runtime.NumGoroutine(),
		HeapBytes:     ms.HeapAlloc,
		DroughtLoaded: len(s.records),
	}
	// zero interval compares against the previous call instead of blocking
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		st.CPUPercent = pct[0]
	} else if err != nil {
		s.log.Debug("cpu stats unavailable", zap.Error(err))
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		st.MemUsedPct = vm.UsedPercent
	} else {
		s.log.Debug("memory stats unavailable", zap.Error(err))
	}
	return st
}
