package probe

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// defaultStrategies is the real adapter cascade, most specific first.
func defaultStrategies() []adapterStrategy {
	return []adapterStrategy{
		{name: "nvidia-smi", tool: "nvidia-smi", run: describeNvidia},
		{name: "rocm-smi", tool: "rocm-smi", run: describeAMD},
		{name: "metal", tool: "sysctl", run: describeApple},
		{name: "lspci", tool: "lspci", run: describePCI},
	}
}

// describeNvidia queries nvidia-smi for name and driver in CSV form.
func describeNvidia(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=name,driver_version", "--format=csv,noheader").Output()
	if err != nil {
		return "", err
	}
	line := firstLine(string(out))
	parts := strings.Split(line, ", ")
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return "", nil
	}
	desc := "NVIDIA " + strings.TrimSpace(parts[0])
	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		desc += " (driver " + strings.TrimSpace(parts[1]) + ")"
	}
	return desc, nil
}

// describeAMD parses rocm-smi product name output. The tool prints
// "Card series:" / "Card model:" lines per device.
func describeAMD(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "rocm-smi", "--showproductname").Output()
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "card series") || strings.Contains(lower, "card model") {
			if i := strings.LastIndex(line, ":"); i >= 0 {
				if name := strings.TrimSpace(line[i+1:]); name != "" {
					return "AMD " + name, nil
				}
			}
		}
	}
	return "", nil
}

// describeApple reports the Apple Silicon chip on darwin; elsewhere the
// strategy does not apply.
func describeApple(ctx context.Context) (string, error) {
	if runtime.GOOS != "darwin" {
		return "", nil
	}
	out, err := exec.CommandContext(ctx, "sysctl", "-n", "machdep.cpu.brand_string").Output()
	if err != nil {
		return "", err
	}
	brand := firstLine(string(out))
	if brand == "" {
		return "", nil
	}
	return brand + " (Metal)", nil
}

// describePCI scans lspci output for a VGA/3D controller line. Weakest
// strategy, last in the cascade.
func describePCI(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "lspci").Output()
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "vga compatible controller") && !strings.Contains(lower, "3d controller") {
			continue
		}
		if i := strings.Index(line, ": "); i >= 0 {
			if name := strings.TrimSpace(line[i+2:]); name != "" {
				return name, nil
			}
		}
	}
	return "", nil
}

// readSystemMemoryGB estimates total system memory. Returns 0 when the
// host exposes no reading.
func readSystemMemoryGB(ctx context.Context) float64 {
	switch runtime.GOOS {
	case "darwin":
		out, err := exec.CommandContext(ctx, "sysctl", "-n", "hw.memsize").Output()
		if err != nil {
			return 0
		}
		bytes, err := strconv.ParseUint(firstLine(string(out)), 10, 64)
		if err != nil {
			return 0
		}
		return float64(bytes) / (1024 * 1024 * 1024)
	default:
		data, err := os.ReadFile("/proc/meminfo")
		if err != nil {
			return 0
		}
		return memTotalGB(string(data))
	}
}

// memTotalGB extracts MemTotal from /proc/meminfo content (kB units).
func memTotalGB(meminfo string) float64 {
	for _, line := range strings.Split(meminfo, "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0
		}
		return float64(kb) / (1024 * 1024)
	}
	return 0
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
