// Command configgen renders one judge-worker config per isolate box from a
// shared base config, so a host can run a fleet of single-box workers.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Profile struct {
	OutputDir string       `yaml:"outputDir"`
	Base      string       `yaml:"base"`
	Fleet     FleetProfile `yaml:"fleet"`
	// Overrides apply to every worker.
	Overrides map[string]interface{} `yaml:"overrides"`
	// PerBox overrides apply to one box id.
	PerBox map[int]map[string]interface{} `yaml:"perBox"`
}

type FleetProfile struct {
	Workers    int    `yaml:"workers"`
	FirstBoxID int    `yaml:"firstBoxId"`
	Host       string `yaml:"host"`
	BasePort   int    `yaml:"basePort"`
	// Output may reference the box id once via %d.
	Output string `yaml:"output"`
}

func main() {
	profilePath := flag.String("profile", "configs/fleet-profile.yaml", "Path to fleet profile")
	outputDir := flag.String("output-dir", "", "Override output directory")
	flag.Parse()

	profilePathAbs, err := filepath.Abs(*profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve profile path failed: %v\n", err)
		os.Exit(1)
	}

	profile, err := loadProfile(profilePathAbs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load profile failed: %v\n", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		profile.OutputDir = *outputDir
	}
	if profile.OutputDir == "" {
		fmt.Fprintln(os.Stderr, "output directory is required")
		os.Exit(1)
	}
	profileDir := filepath.Dir(profilePathAbs)
	if !filepath.IsAbs(profile.OutputDir) {
		profile.OutputDir = filepath.Join(profileDir, profile.OutputDir)
	}
	if !filepath.IsAbs(profile.Base) {
		profile.Base = filepath.Join(profileDir, profile.Base)
	}

	base, err := loadYAML(profile.Base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load base config failed: %v\n", err)
		os.Exit(1)
	}

	configs, err := renderFleet(profile, normalizeValue(base))
	if err != nil {
		fmt.Fprintf(os.Stderr, "render fleet failed: %v\n", err)
		os.Exit(1)
	}
	for path, cfg := range configs {
		if err := writeYAML(path, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "write %s failed: %v\n", path, err)
			os.Exit(1)
		}
	}
	fmt.Printf("wrote %d worker configs to %s\n", len(configs), profile.OutputDir)
}

// renderFleet returns output path -> config for every box in the fleet.
func renderFleet(profile *Profile, base interface{}) (map[string]interface{}, error) {
	fleet := profile.Fleet
	if fleet.Workers <= 0 {
		return nil, errors.New("fleet.workers must be positive")
	}
	if fleet.FirstBoxID < 0 {
		return nil, errors.New("fleet.firstBoxId must not be negative")
	}
	if fleet.Host == "" {
		fleet.Host = "0.0.0.0"
	}
	if fleet.Output == "" {
		fleet.Output = "judge_worker_box%d.yaml"
	}

	shared := base
	if len(profile.Overrides) > 0 {
		merged, err := mergeMap(shared, normalizeValue(profile.Overrides))
		if err != nil {
			return nil, fmt.Errorf("merge overrides failed: %w", err)
		}
		shared = merged
	}

	out := make(map[string]interface{}, fleet.Workers)
	for i := 0; i < fleet.Workers; i++ {
		boxID := fleet.FirstBoxID + i
		slot := map[string]interface{}{
			"sandbox": map[string]interface{}{
				"isolate": map[string]interface{}{"boxId": boxID},
			},
		}
		if fleet.BasePort > 0 {
			addr := net.JoinHostPort(fleet.Host, strconv.Itoa(fleet.BasePort+i))
			slot["server"] = map[string]interface{}{"addr": addr}
		}
		cfg, err := mergeMap(shared, slot)
		if err != nil {
			return nil, fmt.Errorf("box %d: %w", boxID, err)
		}
		if extra, ok := profile.PerBox[boxID]; ok {
			cfg, err = mergeMap(cfg, normalizeValue(extra))
			if err != nil {
				return nil, fmt.Errorf("box %d overrides: %w", boxID, err)
			}
		}
		out[filepath.Join(profile.OutputDir, fmt.Sprintf(fleet.Output, boxID))] = cfg
	}
	return out, nil
}

func loadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile failed: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile failed: %w", err)
	}
	if profile.Base == "" {
		return nil, errors.New("profile has no base config")
	}
	return &profile, nil
}

func loadYAML(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read yaml failed: %w", err)
	}

	var value interface{}
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("parse yaml failed: %w", err)
	}
	return value, nil
}

func writeYAML(path string, value interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir failed: %w", err)
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal yaml failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write yaml failed: %w", err)
	}
	return nil
}

func normalizeValue(value interface{}) interface{} {
	switch typed := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			out[k] = normalizeValue(v)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			key, ok := k.(string)
			if !ok {
				key = fmt.Sprintf("%v", k)
			}
			out[key] = normalizeValue(v)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(typed))
		for _, item := range typed {
			out = append(out, normalizeValue(item))
		}
		return out
	default:
		return value
	}
}

// mergeMap deep-merges override into a copy of base. Only maps merge;
// any other override value replaces the base value.
func mergeMap(base interface{}, override interface{}) (map[string]interface{}, error) {
	baseMap, ok := base.(map[string]interface{})
	if !ok {
		return nil, errors.New("base config is not a map")
	}
	overrideMap, ok := override.(map[string]interface{})
	if !ok {
		return nil, errors.New("override config is not a map")
	}

	merged := make(map[string]interface{}, len(baseMap))
	for k, v := range baseMap {
		merged[k] = v
	}
	for key, overrideValue := range overrideMap {
		baseChild, baseIsMap := merged[key].(map[string]interface{})
		overrideChild, overrideIsMap := overrideValue.(map[string]interface{})
		if baseIsMap && overrideIsMap {
			combined, err := mergeMap(baseChild, overrideChild)
			if err != nil {
				return nil, err
			}
			merged[key] = combined
			continue
		}
		merged[key] = overrideValue
	}
	return merged, nil
}
