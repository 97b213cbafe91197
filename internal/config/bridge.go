package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical bridge defaults file.
const DefaultConfigPath = "config/bridge.defaults.json"

// Anchor modes.
const (
	AnchorStatic  = "static"
	AnchorTracked = "tracked"
)

// BridgeConfig is the daemon configuration. Every field is optional; the
// Get* accessors supply defaults for fields left out of the JSON.
type BridgeConfig struct {
	// Network
	UDPListen   *string `json:"udp_listen,omitempty"`
	UDPRcvBuf   *int    `json:"udp_rcvbuf,omitempty"`
	GRPCListen  *string `json:"grpc_listen,omitempty"`
	DebugListen *string `json:"debug_listen,omitempty"`

	// Consumer
	TickInterval  *string     `json:"tick_interval,omitempty"`  // duration string like "16ms"
	StatsInterval *string     `json:"stats_interval,omitempty"` // duration string like "30s"
	StartEnabled  *bool       `json:"start_enabled,omitempty"`
	DefaultColor  *[4]float32 `json:"default_color,omitempty"` // r, g, b, a in [0,1]
	PoolBuffers   *bool       `json:"pool_buffers,omitempty"`
	ClientBuffer  *int        `json:"client_buffer,omitempty"`

	// Anchor
	AnchorMode        *string     `json:"anchor_mode,omitempty"`
	AnchorPosition    *[3]float64 `json:"anchor_position,omitempty"`    // x, y, z
	AnchorOrientation *[4]float64 `json:"anchor_orientation,omitempty"` // w, x, y, z

	// Diagnostics
	StatsDBPath         *string `json:"stats_db_path,omitempty"`
	StatsRecordInterval *string `json:"stats_record_interval,omitempty"`
	StatsRetention      *string `json:"stats_retention,omitempty"` // "0s" keeps every row
}

// EmptyBridgeConfig returns a BridgeConfig with every field nil.
func EmptyBridgeConfig() *BridgeConfig {
	return &BridgeConfig{}
}

// LoadBridgeConfig loads a BridgeConfig from a JSON file. Omitted fields
// keep their defaults, so partial configs are safe.
func LoadBridgeConfig(path string) (*BridgeConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyBridgeConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or a parent. Panics if it cannot be found; intended for tests.
func MustLoadDefaultConfig() *BridgeConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadBridgeConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *BridgeConfig) Validate() error {
	for name, v := range map[string]*string{
		"tick_interval":         c.TickInterval,
		"stats_interval":        c.StatsInterval,
		"stats_record_interval": c.StatsRecordInterval,
		"stats_retention":       c.StatsRetention,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, *v)
		}
	}

	// Both drive tickers, which reject a zero period.
	for name, v := range map[string]*string{
		"tick_interval":         c.TickInterval,
		"stats_record_interval": c.StatsRecordInterval,
	} {
		if v == nil || *v == "" {
			continue
		}
		if d, _ := time.ParseDuration(*v); d == 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.UDPRcvBuf != nil && *c.UDPRcvBuf < 0 {
		return fmt.Errorf("udp_rcvbuf must be non-negative, got %d", *c.UDPRcvBuf)
	}
	if c.ClientBuffer != nil && *c.ClientBuffer < 1 {
		return fmt.Errorf("client_buffer must be at least 1, got %d", *c.ClientBuffer)
	}

	if c.DefaultColor != nil {
		for i, ch := range c.DefaultColor {
			if ch < 0 || ch > 1 {
				return fmt.Errorf("default_color[%d] must be between 0 and 1, got %f", i, ch)
			}
		}
		if c.DefaultColor[3] == 0 {
			return fmt.Errorf("default_color alpha must be positive")
		}
	}

	if c.AnchorMode != nil {
		switch *c.AnchorMode {
		case "", AnchorStatic, AnchorTracked:
		default:
			return fmt.Errorf("anchor_mode must be %q or %q, got %q", AnchorStatic, AnchorTracked, *c.AnchorMode)
		}
	}

	if c.AnchorOrientation != nil {
		q := c.AnchorOrientation
		if n := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3]); n == 0 || math.IsNaN(n) {
			return fmt.Errorf("anchor_orientation must be a non-zero quaternion")
		}
	}
	return nil
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetUDPListen returns the frame datagram listen address.
func (c *BridgeConfig) GetUDPListen() string {
	if c.UDPListen == nil || *c.UDPListen == "" {
		return ":5700"
	}
	return *c.UDPListen
}

// GetUDPRcvBuf returns the requested socket receive buffer in bytes.
func (c *BridgeConfig) GetUDPRcvBuf() int {
	if c.UDPRcvBuf == nil {
		return 4 << 20
	}
	return *c.UDPRcvBuf
}

// GetGRPCListen returns the render stream listen address.
func (c *BridgeConfig) GetGRPCListen() string {
	if c.GRPCListen == nil || *c.GRPCListen == "" {
		return "localhost:50061"
	}
	return *c.GRPCListen
}

// GetDebugListen returns the debug HTTP listen address.
func (c *BridgeConfig) GetDebugListen() string {
	if c.DebugListen == nil || *c.DebugListen == "" {
		return "localhost:8091"
	}
	return *c.DebugListen
}

// GetTickInterval returns the consumer tick cadence.
func (c *BridgeConfig) GetTickInterval() time.Duration {
	return parseDurationOr(c.TickInterval, 16*time.Millisecond)
}

// GetStatsInterval returns the stats log cadence. Zero disables stats logging.
func (c *BridgeConfig) GetStatsInterval() time.Duration {
	return parseDurationOr(c.StatsInterval, 30*time.Second)
}

// GetStartEnabled reports whether the consumer starts open.
func (c *BridgeConfig) GetStartEnabled() bool {
	if c.StartEnabled == nil {
		return true
	}
	return *c.StartEnabled
}

// GetDefaultColor returns the colour used when frames carry no rgb field.
func (c *BridgeConfig) GetDefaultColor() [4]float32 {
	if c.DefaultColor == nil {
		return [4]float32{1, 1, 1, 1}
	}
	return *c.DefaultColor
}

// GetPoolBuffers reports whether assembly buffers are pooled.
func (c *BridgeConfig) GetPoolBuffers() bool {
	if c.PoolBuffers == nil {
		return true
	}
	return *c.PoolBuffers
}

// GetClientBuffer returns the per-subscriber render stream depth.
func (c *BridgeConfig) GetClientBuffer() int {
	if c.ClientBuffer == nil {
		return 4
	}
	return *c.ClientBuffer
}

// GetAnchorMode returns the anchor provider mode.
func (c *BridgeConfig) GetAnchorMode() string {
	if c.AnchorMode == nil || *c.AnchorMode == "" {
		return AnchorStatic
	}
	return *c.AnchorMode
}

// GetAnchorPosition returns the initial anchor position.
func (c *BridgeConfig) GetAnchorPosition() [3]float64 {
	if c.AnchorPosition == nil {
		return [3]float64{}
	}
	return *c.AnchorPosition
}

// GetAnchorOrientation returns the initial anchor orientation as w, x, y, z.
func (c *BridgeConfig) GetAnchorOrientation() [4]float64 {
	if c.AnchorOrientation == nil {
		return [4]float64{1, 0, 0, 0}
	}
	return *c.AnchorOrientation
}

// GetStatsDBPath returns the diagnostics database path. Empty disables it.
func (c *BridgeConfig) GetStatsDBPath() string {
	if c.StatsDBPath == nil {
		return ""
	}
	return *c.StatsDBPath
}

// GetStatsRecordInterval returns how often counters are written to the
// diagnostics database.
func (c *BridgeConfig) GetStatsRecordInterval() time.Duration {
	return parseDurationOr(c.StatsRecordInterval, 10*time.Second)
}

// GetStatsRetention returns how long diagnostics rows are kept. Zero keeps
// every row.
func (c *BridgeConfig) GetStatsRetention() time.Duration {
	return parseDurationOr(c.StatsRetention, 24*time.Hour)
}
