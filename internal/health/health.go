// Package health reports process and host status for the /health endpoint.
package health

import (
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Counter is anything that can report how many items it holds.
type Counter interface {
	Len() int
}

type Service struct {
	startTime time.Time
	sessions  Counter
	sockets   Counter
	mode      string
	apiReady  bool
}

func NewService(mode string, apiReady bool, sessions, sockets Counter) *Service {
	return &Service{
		startTime: time.Now(),
		sessions:  sessions,
		sockets:   sockets,
		mode:      mode,
		apiReady:  apiReady,
	}
}

// Health returns a flat status map. Host metrics that cannot be read are
// left out rather than failing the check.
func (s *Service) Health() map[string]string {
	stats := map[string]string{
		"status":        "up",
		"uptime":        time.Since(s.startTime).Round(time.Second).String(),
		"start_time":    s.startTime.Format(time.RFC3339),
		"response_mode": s.mode,
		"inference_key": strconv.FormatBool(s.apiReady),
		"goroutines":    strconv.Itoa(runtime.NumGoroutine()),
	}
	if s.sessions != nil {
		stats["sessions"] = strconv.Itoa(s.sessions.Len())
	}
	if s.sockets != nil {
		stats["open_sockets"] = strconv.Itoa(s.sockets.Len())
	}

	if v, err := mem.VirtualMemory(); err == nil {
		stats["ram_usage"] = fmt.Sprintf("%.1f%%", v.UsedPercent)
	} else {
		log.Debug().Err(err).Msg("health: memory stats unavailable")
	}

	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		stats["cpu_load"] = fmt.Sprintf("%.1f%%", cpuPercent[0])
	}

	if hInfo, err := host.Info(); err == nil {
		stats["os"] = hInfo.OS
		stats["platform"] = hInfo.Platform
		stats["hostname"] = hInfo.Hostname
	}

	if !s.apiReady && s.mode != "keyword" {
		stats["message"] = "No inference API key is configured; model answers will fail."
	}

	return stats
}
