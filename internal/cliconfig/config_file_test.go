package cliconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Transport:    "quic",
				Address:      "10.0.0.2:9300",
				Listen:       &trueVal,
				ChunkSize:    512,
				StallTimeout: "5s",
				Display:      "ssd1306",
				I2CBus:       "/dev/i2c-1",
				Watch:        &trueVal,
				ICEServers:   []string{"stun:example.org:3478"},
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Transport:    "quic",
				Address:      "10.0.0.2:9300",
				Listen:       true,
				ChunkSize:    512,
				StallTimeout: 5 * time.Second,
				Display:      "ssd1306",
				I2CBus:       "/dev/i2c-1",
				Watch:        true,
				ICEServers:   []string{"stun:example.org:3478"},
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Transport: "tcp",
				Address:   "10.0.0.2:9300",
			},
			changed: map[string]bool{"transport": true},
			initial: Config{
				Transport: "udp",
			},
			expected: Config{
				Transport: "udp", // unchanged because flag was set
				Address:   "10.0.0.2:9300",
			},
		},
		{
			name:       "zero values leave config alone",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial: Config{
				ChunkSize: 1500,
				Listen:    true,
			},
			expected: Config{
				ChunkSize: 1500,
				Listen:    true,
			},
		},
		{
			name: "returns error for invalid duration",
			fileConfig: FileConfig{
				Interval: "often",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `transport = "tcp"
address = "0.0.0.0:9400"
listen = true
chunk_size = 1024
stall_timeout = "10s"
image = "/srv/frame.png"
ice_servers = ["stun:a:1", "stun:b:2"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Transport != "tcp" || fc.Address != "0.0.0.0:9400" {
		t.Errorf("Transport, Address = %q, %q", fc.Transport, fc.Address)
	}
	if fc.Listen == nil || !*fc.Listen {
		t.Errorf("Listen = %v, want true", fc.Listen)
	}
	if fc.ChunkSize != 1024 {
		t.Errorf("ChunkSize = %d, want 1024", fc.ChunkSize)
	}
	if fc.StallTimeout != "10s" {
		t.Errorf("StallTimeout = %q, want 10s", fc.StallTimeout)
	}
	if len(fc.ICEServers) != 2 {
		t.Errorf("ICEServers = %q, want 2 entries", fc.ICEServers)
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("LoadFileConfig() of missing file succeeded")
	}

	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("transport = [unterminated"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadFileConfig(path); err == nil {
		t.Errorf("LoadFileConfig() of invalid TOML succeeded")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x")
	if FileExists(path) {
		t.Errorf("FileExists(%q) = true before creation", path)
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if !FileExists(path) {
		t.Errorf("FileExists(%q) = false after creation", path)
	}
}
