package metrics

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Kind identifies one telemetry value the display can show.
type Kind string

const (
	CPUUsage   Kind = "cpu_usage"
	CPUTemp    Kind = "cpu_temp"
	CPUFreq    Kind = "cpu_freq"
	CPUName    Kind = "cpu_name"
	GPUUsage   Kind = "gpu_usage"
	GPUTemp    Kind = "gpu_temp"
	GPUFreq    Kind = "gpu_freq"
	GPUName    Kind = "gpu_name"
	GPUMemory  Kind = "gpu_memory"
	RAMPercent Kind = "ram_percent"
	RAMUsed    Kind = "ram_used"
)

// ErrUnavailable reports that a telemetry kind could not be read. It is
// per-kind and never fatal; the widget renders its placeholder instead.
var ErrUnavailable = errors.New("metric unavailable")

// Sample is one observed telemetry value. Textual kinds (cpu_name,
// gpu_name) carry Text; numeric kinds carry Value. Samples are recomputed
// every tick and never persisted.
type Sample struct {
	Kind        Kind
	Value       float64
	Text        string
	Unit        string
	Unavailable bool
}

// IsText reports whether the kind carries a string rather than a number.
func (k Kind) IsText() bool {
	return k == CPUName || k == GPUName
}

// Provider reads a set of related telemetry kinds. Sample may block;
// the loop tolerates the added latency rather than parallelizing.
type Provider interface {
	Kinds() []Kind
	Sample(kind Kind) (Sample, error)
}

// Registry routes kinds to providers and isolates their failures.
type Registry struct {
	providers map[Kind]Provider
	log       *zap.Logger
}

// NewRegistry builds a registry over the given providers. A later
// provider claiming an already-registered kind is ignored.
func NewRegistry(log *zap.Logger, providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[Kind]Provider),
		log:       log,
	}
	for _, p := range providers {
		for _, k := range p.Kinds() {
			if _, ok := r.providers[k]; !ok {
				r.providers[k] = p
			}
		}
	}
	return r
}

// DefaultRegistry wires the system and GPU providers.
func DefaultRegistry(log *zap.Logger) *Registry {
	return NewRegistry(log, NewSystemProvider(), NewGPUProvider(log))
}

// Collect samples each requested kind exactly once. A provider failure
// yields an unavailable sample for that kind only.
func (r *Registry) Collect(kinds []Kind) map[Kind]Sample {
	out := make(map[Kind]Sample, len(kinds))
	for _, k := range kinds {
		if _, done := out[k]; done {
			continue
		}
		p, ok := r.providers[k]
		if !ok {
			r.log.Warn("no provider for metric kind", zap.String("kind", string(k)))
			out[k] = Sample{Kind: k, Unavailable: true}
			continue
		}
		s, err := p.Sample(k)
		if err != nil {
			r.log.Debug("metric sample failed",
				zap.String("kind", string(k)), zap.Error(err))
			out[k] = Sample{Kind: k, Unavailable: true}
			continue
		}
		s.Kind = k
		out[k] = s
	}
	return out
}

// ParseKinds converts config kind strings, rejecting unknown ones.
func ParseKinds(names []string) ([]Kind, error) {
	known := map[Kind]bool{
		CPUUsage: true, CPUTemp: true, CPUFreq: true, CPUName: true,
		GPUUsage: true, GPUTemp: true, GPUFreq: true, GPUName: true,
		GPUMemory: true, RAMPercent: true, RAMUsed: true,
	}
	kinds := make([]Kind, 0, len(names))
	for _, n := range names {
		k := Kind(n)
		if !known[k] {
			return nil, fmt.Errorf("unknown metric kind %q", n)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
