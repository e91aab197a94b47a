package metrics

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// cpuTempSensors are hwmon sensor names known to report package or die
// temperature, in order of preference.
var cpuTempSensors = []string{"coretemp", "k10temp", "zenpower", "cpu_thermal", "acpitz"}

// SystemProvider reads CPU and RAM telemetry through gopsutil.
type SystemProvider struct {
	modelName string // cached, static per boot
}

func NewSystemProvider() *SystemProvider {
	return &SystemProvider{}
}

func (p *SystemProvider) Kinds() []Kind {
	return []Kind{CPUUsage, CPUTemp, CPUFreq, CPUName, RAMPercent, RAMUsed}
}

func (p *SystemProvider) Sample(kind Kind) (Sample, error) {
	switch kind {
	case CPUUsage:
		percents, err := cpu.Percent(0, false)
		if err != nil {
			return Sample{}, fmt.Errorf("cpu usage: %w", err)
		}
		if len(percents) == 0 {
			return Sample{}, fmt.Errorf("cpu usage: %w", ErrUnavailable)
		}
		return Sample{Value: percents[0], Unit: "%"}, nil

	case CPUTemp:
		return p.cpuTemperature()

	case CPUFreq:
		infos, err := cpu.Info()
		if err != nil {
			return Sample{}, fmt.Errorf("cpu frequency: %w", err)
		}
		if len(infos) == 0 || infos[0].Mhz <= 0 {
			return Sample{}, fmt.Errorf("cpu frequency: %w", ErrUnavailable)
		}
		return Sample{Value: infos[0].Mhz, Unit: "MHz"}, nil

	case CPUName:
		if p.modelName == "" {
			infos, err := cpu.Info()
			if err != nil {
				return Sample{}, fmt.Errorf("cpu name: %w", err)
			}
			if len(infos) == 0 || infos[0].ModelName == "" {
				return Sample{}, fmt.Errorf("cpu name: %w", ErrUnavailable)
			}
			p.modelName = strings.TrimSpace(infos[0].ModelName)
		}
		return Sample{Text: p.modelName}, nil

	case RAMPercent:
		vm, err := mem.VirtualMemory()
		if err != nil {
			return Sample{}, fmt.Errorf("ram percent: %w", err)
		}
		return Sample{Value: vm.UsedPercent, Unit: "%"}, nil

	case RAMUsed:
		vm, err := mem.VirtualMemory()
		if err != nil {
			return Sample{}, fmt.Errorf("ram used: %w", err)
		}
		return Sample{Value: float64(vm.Used) / (1 << 30), Unit: "GB"}, nil
	}
	return Sample{}, fmt.Errorf("kind %q: %w", kind, ErrUnavailable)
}

func (p *SystemProvider) cpuTemperature() (Sample, error) {
	temps, err := host.SensorsTemperatures()
	if err != nil && len(temps) == 0 {
		return Sample{}, fmt.Errorf("cpu temperature: %w", err)
	}
	for _, name := range cpuTempSensors {
		for _, t := range temps {
			if strings.Contains(t.SensorKey, name) && t.Temperature > 0 {
				return Sample{Value: t.Temperature, Unit: "°C"}, nil
			}
		}
	}
	return Sample{}, fmt.Errorf("cpu temperature: %w", ErrUnavailable)
}
