package cliconfig

import (
	"reflect"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"IMGSTREAM_TRANSPORT":     "tcp",
				"IMGSTREAM_ADDRESS":       "192.168.1.5:9300",
				"IMGSTREAM_CHUNK_SIZE":    "700",
				"IMGSTREAM_STALL_TIMEOUT": "1m",
				"IMGSTREAM_LISTEN":        "true",
				"IMGSTREAM_ICE_SERVERS":   "stun:a:1,stun:b:2",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Transport:    "tcp",
				Address:      "192.168.1.5:9300",
				ChunkSize:    700,
				StallTimeout: time.Minute,
				Listen:       true,
				ICEServers:   []string{"stun:a:1", "stun:b:2"},
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"IMGSTREAM_TRANSPORT": "tcp",
				"IMGSTREAM_DISPLAY":   "window",
			},
			changed: map[string]bool{"transport": true},
			initial: Config{Transport: "udp"},
			expected: Config{
				Transport: "udp",
				Display:   "window",
			},
		},
		{
			name: "handles bool '1' as true",
			envVars: map[string]string{
				"IMGSTREAM_WATCH": "1",
			},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{Watch: true},
		},
		{
			name: "handles bool 'false' as false",
			envVars: map[string]string{
				"IMGSTREAM_FRAME_DEBUG": "false",
			},
			changed:  map[string]bool{},
			initial:  Config{FrameDebug: true},
			expected: Config{FrameDebug: false},
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"IMGSTREAM_INTERVAL": "not-a-duration",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"IMGSTREAM_BUFFER_CAPACITY": "big",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}
