// Package telemetry periodically logs CPU and memory use of the process.
// It reads OS counters only and never touches duel state.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

type Sample struct {
	ProcessCPUPercent float64
	ProcessRSS        uint64
	SystemMemPercent  float64
}

type Sampler interface {
	Sample(ctx context.Context) (Sample, error)
}

// ProcSampler samples the current process through gopsutil.
type ProcSampler struct {
	proc *process.Process
}

func NewProcSampler(ctx context.Context) (*ProcSampler, error) {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open own process: %w", err)
	}
	return &ProcSampler{proc: p}, nil
}

func (s *ProcSampler) Sample(ctx context.Context) (Sample, error) {
	cpu, err := s.proc.CPUPercentWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("process cpu: %w", err)
	}
	mi, err := s.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("process memory: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("system memory: %w", err)
	}
	return Sample{ProcessCPUPercent: cpu, ProcessRSS: mi.RSS, SystemMemPercent: vm.UsedPercent}, nil
}

type Reporter struct {
	log      *slog.Logger
	interval time.Duration
	sampler  Sampler
}

func NewReporter(log *slog.Logger, interval time.Duration, sampler Sampler) *Reporter {
	return &Reporter{log: log, interval: interval, sampler: sampler}
}

// Run logs one sample per interval until ctx is done. A non-positive
// interval disables reporting.
func (r *Reporter) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s, err := r.sampler.Sample(ctx)
			if err != nil {
				r.log.Warn("telemetry sample failed", "err", err)
				continue
			}
			r.log.Info("telemetry",
				"cpu_percent", s.ProcessCPUPercent,
				"rss_bytes", s.ProcessRSS,
				"system_mem_percent", s.SystemMemPercent,
			)
		}
	}
}
