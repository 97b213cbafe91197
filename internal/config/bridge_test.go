package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestEmptyBridgeConfig_Defaults(t *testing.T) {
	cfg := EmptyBridgeConfig()

	if got := cfg.GetUDPListen(); got != ":5700" {
		t.Errorf("GetUDPListen() = %q, want :5700", got)
	}
	if got := cfg.GetGRPCListen(); got != "localhost:50061" {
		t.Errorf("GetGRPCListen() = %q", got)
	}
	if got := cfg.GetTickInterval(); got != 16*time.Millisecond {
		t.Errorf("GetTickInterval() = %v, want 16ms", got)
	}
	if got := cfg.GetStatsInterval(); got != 30*time.Second {
		t.Errorf("GetStatsInterval() = %v, want 30s", got)
	}
	if !cfg.GetStartEnabled() {
		t.Error("GetStartEnabled() = false, want true")
	}
	if got := cfg.GetDefaultColor(); got != [4]float32{1, 1, 1, 1} {
		t.Errorf("GetDefaultColor() = %v, want opaque white", got)
	}
	if got := cfg.GetAnchorMode(); got != AnchorStatic {
		t.Errorf("GetAnchorMode() = %q", got)
	}
	if got := cfg.GetAnchorOrientation(); got != [4]float64{1, 0, 0, 0} {
		t.Errorf("GetAnchorOrientation() = %v, want identity", got)
	}
	if got := cfg.GetStatsDBPath(); got != "" {
		t.Errorf("GetStatsDBPath() = %q, want empty", got)
	}
	if got := cfg.GetClientBuffer(); got != 4 {
		t.Errorf("GetClientBuffer() = %d, want 4", got)
	}
	if got := cfg.GetStatsRecordInterval(); got != 10*time.Second {
		t.Errorf("GetStatsRecordInterval() = %v, want 10s", got)
	}
	if got := cfg.GetStatsRetention(); got != 24*time.Hour {
		t.Errorf("GetStatsRetention() = %v, want 24h", got)
	}
}

func TestLoadBridgeConfig_ZeroRetentionKeepsRows(t *testing.T) {
	cfg, err := LoadBridgeConfig(writeConfig(t, "bridge.json", `{"stats_retention": "0s", "stats_record_interval": "1s"}`))
	if err != nil {
		t.Fatalf("LoadBridgeConfig: %v", err)
	}
	if got := cfg.GetStatsRetention(); got != 0 {
		t.Errorf("GetStatsRetention() = %v, want 0", got)
	}
	if got := cfg.GetStatsRecordInterval(); got != time.Second {
		t.Errorf("GetStatsRecordInterval() = %v, want 1s", got)
	}
}

func TestLoadBridgeConfig(t *testing.T) {
	path := writeConfig(t, "bridge.json", `{
  "udp_listen": "127.0.0.1:6000",
  "tick_interval": "5ms",
  "start_enabled": false,
  "default_color": [0.5, 0.5, 0.5, 1],
  "anchor_mode": "tracked",
  "anchor_position": [1, 2, 3],
  "stats_db_path": "/tmp/diag.db"
}`)

	cfg, err := LoadBridgeConfig(path)
	if err != nil {
		t.Fatalf("LoadBridgeConfig: %v", err)
	}
	if got := cfg.GetUDPListen(); got != "127.0.0.1:6000" {
		t.Errorf("GetUDPListen() = %q", got)
	}
	if got := cfg.GetTickInterval(); got != 5*time.Millisecond {
		t.Errorf("GetTickInterval() = %v", got)
	}
	if cfg.GetStartEnabled() {
		t.Error("GetStartEnabled() = true, want false")
	}
	if got := cfg.GetDefaultColor(); got != [4]float32{0.5, 0.5, 0.5, 1} {
		t.Errorf("GetDefaultColor() = %v", got)
	}
	if got := cfg.GetAnchorMode(); got != AnchorTracked {
		t.Errorf("GetAnchorMode() = %q", got)
	}
	if got := cfg.GetAnchorPosition(); got != [3]float64{1, 2, 3} {
		t.Errorf("GetAnchorPosition() = %v", got)
	}
	// Unset fields keep defaults.
	if got := cfg.GetGRPCListen(); got != "localhost:50061" {
		t.Errorf("GetGRPCListen() = %q", got)
	}
}

func TestLoadBridgeConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{name: "wrong extension", file: "bridge.yaml", body: `{}`, wantErr: ".json extension"},
		{name: "bad json", file: "bridge.json", body: `{`, wantErr: "failed to parse"},
		{name: "bad duration", file: "bridge.json", body: `{"tick_interval": "soon"}`, wantErr: "invalid tick_interval"},
		{name: "zero tick", file: "bridge.json", body: `{"tick_interval": "0s"}`, wantErr: "tick_interval must be positive"},
		{name: "zero record interval", file: "bridge.json", body: `{"stats_db_path": "x.db", "stats_record_interval": "0s"}`, wantErr: "stats_record_interval must be positive"},
		{name: "negative retention", file: "bridge.json", body: `{"stats_retention": "-1h"}`, wantErr: "stats_retention must be non-negative"},
		{name: "transparent default color", file: "bridge.json", body: `{"default_color": [0, 0, 0, 0]}`, wantErr: "default_color alpha"},
		{name: "negative stats", file: "bridge.json", body: `{"stats_interval": "-1s"}`, wantErr: "stats_interval must be non-negative"},
		{name: "color out of range", file: "bridge.json", body: `{"default_color": [1, 2, 0, 1]}`, wantErr: "default_color[1]"},
		{name: "unknown anchor", file: "bridge.json", body: `{"anchor_mode": "orbit"}`, wantErr: "anchor_mode"},
		{name: "zero quaternion", file: "bridge.json", body: `{"anchor_orientation": [0, 0, 0, 0]}`, wantErr: "non-zero quaternion"},
		{name: "client buffer", file: "bridge.json", body: `{"client_buffer": 0}`, wantErr: "client_buffer"},
		{name: "negative rcvbuf", file: "bridge.json", body: `{"udp_rcvbuf": -1}`, wantErr: "udp_rcvbuf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBridgeConfig(writeConfig(t, tt.file, tt.body))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadBridgeConfig_Missing(t *testing.T) {
	if _, err := LoadBridgeConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if got := cfg.GetTickInterval(); got != 16*time.Millisecond {
		t.Errorf("defaults file tick_interval = %v, want 16ms", got)
	}
	if cfg.GetAnchorMode() != AnchorStatic {
		t.Errorf("defaults file anchor_mode = %q", cfg.GetAnchorMode())
	}
}
