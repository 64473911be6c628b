package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/quantfolio/internal/database"
)

// SystemHandlers serves monitoring endpoints: process and host resource
// usage plus database statistics.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases []*database.DB
	startTime time.Time
}

// NewSystemHandlers creates a system handlers instance.
func NewSystemHandlers(log zerolog.Logger, dataDir string, databases ...*database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		dataDir:   dataDir,
		databases: databases,
		startTime: time.Now(),
	}
}

// DatabaseStatus is the per-database slice of the status response.
type DatabaseStatus struct {
	Name         string `json:"name"`
	SizeBytes    int64  `json:"size_bytes"`
	WALSizeBytes int64  `json:"wal_size_bytes"`
	PageCount    int64  `json:"page_count"`
}

// SystemStatusResponse is the response for GET /api/system/status.
type SystemStatusResponse struct {
	UptimeSeconds int64            `json:"uptime_seconds"`
	CPUPercent    float64          `json:"cpu_percent"`
	MemoryPercent float64          `json:"memory_percent"`
	Goroutines    int              `json:"goroutines"`
	DataDirSizeMB float64          `json:"data_dir_size_mb"`
	Databases     []DatabaseStatus `json:"databases"`
	Timestamp     string           `json:"timestamp"`
}

// HandleStatus handles GET /api/system/status.
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.resourceUsage()

	response := SystemStatusResponse{
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		DataDirSizeMB: h.dirSizeMB(h.dataDir),
		Databases:     h.databaseStatuses(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}

	writeJSON(w, http.StatusOK, response)
}

// resourceUsage samples host CPU and memory usage. A short sampling window
// keeps the endpoint responsive for pollers.
func (h *SystemHandlers) resourceUsage() (float64, float64) {
	cpuAvg := 0.0
	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		cpuAvg = percents[0]
	} else if err != nil {
		h.log.Warn().Err(err).Msg("Failed to sample CPU usage")
	}

	memPercent := 0.0
	if memStat, err := mem.VirtualMemory(); err == nil {
		memPercent = memStat.UsedPercent
	} else {
		h.log.Warn().Err(err).Msg("Failed to read memory statistics")
	}

	return cpuAvg, memPercent
}

func (h *SystemHandlers) databaseStatuses() []DatabaseStatus {
	statuses := make([]DatabaseStatus, 0, len(h.databases))
	for _, db := range h.databases {
		if db == nil {
			continue
		}
		status := DatabaseStatus{Name: db.Name()}
		if stats, err := db.GetStats(); err == nil {
			status.SizeBytes = stats.SizeBytes
			status.WALSizeBytes = stats.WALSizeBytes
			status.PageCount = stats.PageCount
		} else {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to read database stats")
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func (h *SystemHandlers) dirSizeMB(dirPath string) float64 {
	var totalSize int64
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}
	return float64(totalSize) / 1024 / 1024
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
