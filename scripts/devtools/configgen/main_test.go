package main

import (
	"path/filepath"
	"testing"
)

func baseConfig() interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{"addr": "0.0.0.0:8085", "readTimeout": "5s"},
		"sandbox": map[string]interface{}{
			"isolate": map[string]interface{}{"boxId": 0, "disableCgroup": false},
		},
		"logger": map[string]interface{}{"level": "info"},
	}
}

func dig(t *testing.T, cfg interface{}, keys ...string) interface{} {
	t.Helper()
	cur := cfg
	for _, k := range keys {
		m, ok := cur.(map[string]interface{})
		if !ok {
			t.Fatalf("%s is not a map in %v", k, cur)
		}
		cur = m[k]
	}
	return cur
}

func TestRenderFleetAssignsBoxesAndPorts(t *testing.T) {
	profile := &Profile{
		OutputDir: "/out",
		Fleet:     FleetProfile{Workers: 3, FirstBoxID: 2, BasePort: 9100},
		Overrides: map[string]interface{}{"logger": map[string]interface{}{"level": "debug"}},
		PerBox:    map[int]map[string]interface{}{3: {"logger": map[string]interface{}{"level": "warn"}}},
	}
	configs, err := renderFleet(profile, baseConfig())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(configs) != 3 {
		t.Fatalf("expected 3 configs, got %d", len(configs))
	}

	box2 := configs[filepath.Join("/out", "judge_worker_box2.yaml")]
	if box2 == nil {
		t.Fatalf("missing box 2 config, got %v", configs)
	}
	if got := dig(t, box2, "sandbox", "isolate", "boxId"); got != 2 {
		t.Fatalf("expected box 2, got %v", got)
	}
	if got := dig(t, box2, "sandbox", "isolate", "disableCgroup"); got != false {
		t.Fatalf("expected base fields kept, got %v", got)
	}
	if got := dig(t, box2, "server", "addr"); got != "0.0.0.0:9100" {
		t.Fatalf("unexpected addr %v", got)
	}
	if got := dig(t, box2, "server", "readTimeout"); got != "5s" {
		t.Fatalf("expected sibling server fields kept, got %v", got)
	}
	if got := dig(t, box2, "logger", "level"); got != "debug" {
		t.Fatalf("expected shared override, got %v", got)
	}

	box3 := configs[filepath.Join("/out", "judge_worker_box3.yaml")]
	if got := dig(t, box3, "logger", "level"); got != "warn" {
		t.Fatalf("expected per-box override, got %v", got)
	}
}

func TestRenderFleetRejectsEmptyFleet(t *testing.T) {
	if _, err := renderFleet(&Profile{OutputDir: "/out"}, baseConfig()); err == nil {
		t.Fatalf("expected error for zero workers")
	}
}

func TestMergeMapDoesNotMutateBase(t *testing.T) {
	base := baseConfig()
	_, err := mergeMap(base, map[string]interface{}{"server": map[string]interface{}{"addr": "x"}})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got := dig(t, base, "server", "addr"); got != "0.0.0.0:8085" {
		t.Fatalf("base mutated: %v", got)
	}
}

func TestNormalizeValueStringifiesKeys(t *testing.T) {
	in := map[interface{}]interface{}{1: map[interface{}]interface{}{"a": []interface{}{map[interface{}]interface{}{"b": 2}}}}
	out, ok := normalizeValue(in).(map[string]interface{})
	if !ok {
		t.Fatalf("expected string-keyed map")
	}
	if _, ok := out["1"].(map[string]interface{}); !ok {
		t.Fatalf("expected nested map under \"1\", got %v", out)
	}
}
