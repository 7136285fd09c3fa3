package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
environment: dev
source:
  type: stream
monitor:
  interval: 3s
  ratio: 0.0012
gateway:
  token: t0ken
  blocks: [main-board]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadValid(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Monitor.Ratio != 0.0012 {
		t.Fatalf("ratio = %v, want 0.0012", c.Monitor.Ratio)
	}
	if c.Source.Type != "stream" {
		t.Fatalf("source = %q", c.Source.Type)
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing environment", `
source: {type: stream}
gateway: {token: t, blocks: [b]}
`},
		{"bad source type", `
environment: dev
source: {type: carrier-pigeon}
gateway: {token: t, blocks: [b]}
`},
		{"negative ratio", `
environment: dev
source: {type: stream}
monitor: {ratio: -0.1}
gateway: {token: t, blocks: [b]}
`},
		{"negative interval", `
environment: dev
source: {type: stream}
monitor: {interval: -1s}
gateway: {token: t, blocks: [b]}
`},
		{"no universe", `
environment: dev
source: {type: stream}
gateway: {token: t}
`},
		{"kafka source without brokers", `
environment: dev
source: {type: kafka}
gateway: {token: t, blocks: [b]}
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("GATEWAY_TOKEN", "from-env")
	t.Setenv("CODES", "000001,000002")

	c, err := LoadWithEnv(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Gateway.Token != "from-env" {
		t.Fatalf("token = %q", c.Gateway.Token)
	}
	if len(c.Gateway.Codes) != 2 || c.Gateway.Codes[0] != "000001" {
		t.Fatalf("codes = %v", c.Gateway.Codes)
	}
}
