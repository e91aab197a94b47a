package metrics

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	gpuVendorNvidia = "nvidia"
	gpuVendorAMD    = "amd"
	gpuVendorNone   = ""

	amdVendorID = "0x1002"

	nvidiaSmiTimeout = 3 * time.Second
)

// GPUProvider reads GPU telemetry. NVIDIA cards go through nvidia-smi;
// AMD cards are read from the amdgpu sysfs/hwmon files of the first
// discrete card found. Detection runs once, on first sample.
type GPUProvider struct {
	log *zap.Logger

	detectOnce sync.Once
	vendor     string
	cardPath   string // /sys/class/drm/cardX/device, AMD only
	hwmonPath  string // hwmon dir bound to the card, AMD only
	name       string
}

func NewGPUProvider(log *zap.Logger) *GPUProvider {
	return &GPUProvider{log: log}
}

func (p *GPUProvider) Kinds() []Kind {
	return []Kind{GPUUsage, GPUTemp, GPUFreq, GPUName, GPUMemory}
}

func (p *GPUProvider) Sample(kind Kind) (Sample, error) {
	p.detectOnce.Do(p.detect)

	switch p.vendor {
	case gpuVendorNvidia:
		return p.sampleNvidia(kind)
	case gpuVendorAMD:
		return p.sampleAMD(kind)
	}
	return Sample{}, fmt.Errorf("no gpu detected: %w", ErrUnavailable)
}

func (p *GPUProvider) detect() {
	if out, err := nvidiaSmi("name"); err == nil && out != "" {
		p.vendor = gpuVendorNvidia
		p.name = out
		p.log.Info("gpu detected", zap.String("vendor", "nvidia"), zap.String("name", out))
		return
	}

	cards, _ := filepath.Glob("/sys/class/drm/card*/device/vendor")
	for _, vendorFile := range cards {
		data, err := os.ReadFile(vendorFile)
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) != amdVendorID {
			continue
		}
		p.vendor = gpuVendorAMD
		p.cardPath = filepath.Dir(vendorFile)
		if hwmons, _ := filepath.Glob(filepath.Join(p.cardPath, "hwmon", "hwmon*")); len(hwmons) > 0 {
			p.hwmonPath = hwmons[0]
		}
		p.name = "AMD GPU"
		p.log.Info("gpu detected", zap.String("vendor", "amd"), zap.String("card", p.cardPath))
		return
	}

	p.vendor = gpuVendorNone
	p.log.Warn("no supported gpu found, gpu metrics unavailable")
}

func (p *GPUProvider) sampleNvidia(kind Kind) (Sample, error) {
	switch kind {
	case GPUName:
		return Sample{Text: p.name}, nil
	case GPUUsage:
		v, err := nvidiaSmiFloat("utilization.gpu")
		return Sample{Value: v, Unit: "%"}, err
	case GPUTemp:
		v, err := nvidiaSmiFloat("temperature.gpu")
		return Sample{Value: v, Unit: "°C"}, err
	case GPUFreq:
		v, err := nvidiaSmiFloat("clocks.sm")
		return Sample{Value: v, Unit: "MHz"}, err
	case GPUMemory:
		v, err := nvidiaSmiFloat("memory.used") // MiB
		return Sample{Value: v / 1024, Unit: "GB"}, err
	}
	return Sample{}, fmt.Errorf("kind %q: %w", kind, ErrUnavailable)
}

func (p *GPUProvider) sampleAMD(kind Kind) (Sample, error) {
	switch kind {
	case GPUName:
		return Sample{Text: p.name}, nil

	case GPUUsage:
		v, err := readSysfsFloat(filepath.Join(p.cardPath, "gpu_busy_percent"))
		if err != nil {
			return Sample{}, fmt.Errorf("gpu usage: %w", err)
		}
		return Sample{Value: v, Unit: "%"}, nil

	case GPUTemp:
		if p.hwmonPath == "" {
			return Sample{}, fmt.Errorf("gpu temperature: %w", ErrUnavailable)
		}
		// junction sensor when present, edge otherwise
		for _, f := range []string{"temp2_input", "temp1_input"} {
			if v, err := readSysfsFloat(filepath.Join(p.hwmonPath, f)); err == nil {
				return Sample{Value: v / 1000, Unit: "°C"}, nil
			}
		}
		return Sample{}, fmt.Errorf("gpu temperature: %w", ErrUnavailable)

	case GPUFreq:
		if p.hwmonPath != "" {
			if v, err := readSysfsFloat(filepath.Join(p.hwmonPath, "freq1_input")); err == nil {
				return Sample{Value: v / 1e6, Unit: "MHz"}, nil
			}
		}
		if v, err := amdActiveClock(filepath.Join(p.cardPath, "pp_dpm_sclk")); err == nil {
			return Sample{Value: v, Unit: "MHz"}, nil
		}
		return Sample{}, fmt.Errorf("gpu frequency: %w", ErrUnavailable)

	case GPUMemory:
		v, err := readSysfsFloat(filepath.Join(p.cardPath, "mem_info_vram_used"))
		if err != nil {
			return Sample{}, fmt.Errorf("gpu memory: %w", err)
		}
		return Sample{Value: v / (1 << 30), Unit: "GB"}, nil
	}
	return Sample{}, fmt.Errorf("kind %q: %w", kind, ErrUnavailable)
}

func nvidiaSmi(field string) (string, error) {
	cmd := exec.Command("nvidia-smi",
		"--query-gpu="+field, "--format=csv,noheader,nounits")
	done := make(chan struct{})
	var out []byte
	var err error
	go func() {
		out, err = cmd.Output()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(nvidiaSmiTimeout):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return "", fmt.Errorf("nvidia-smi timed out")
	}
	if err != nil {
		return "", fmt.Errorf("nvidia-smi: %w", err)
	}
	// first GPU only
	line := strings.SplitN(strings.TrimSpace(string(out)), "\n", 2)[0]
	return strings.TrimSpace(line), nil
}

func nvidiaSmiFloat(field string) (float64, error) {
	s, err := nvidiaSmi(field)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("nvidia-smi %s: parse %q: %w", field, s, err)
	}
	return v, nil
}

func readSysfsFloat(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// amdActiveClock parses pp_dpm_sclk, whose active level line ends with
// an asterisk, e.g. "2: 1800Mhz *".
func amdActiveClock(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasSuffix(strings.TrimSpace(line), "*") {
			continue
		}
		fields := strings.Fields(line)
		for _, f := range fields {
			lower := strings.ToLower(f)
			if strings.HasSuffix(lower, "mhz") {
				v, err := strconv.ParseFloat(strings.TrimSuffix(lower, "mhz"), 64)
				if err == nil {
					return v, nil
				}
			}
		}
	}
	return 0, fmt.Errorf("no active clock level in %s", path)
}
