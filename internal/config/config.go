package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Server 服务器身份与资源上限
type Server struct {
	DeviceName              string `toml:"device_name" validate:"required"`
	Version                 string `toml:"version"`
	DeviceID                string `toml:"device_id"`
	MaxSessions             int    `toml:"max_sessions" validate:"gte=1"`
	MaxOperationsPerSession int    `toml:"max_operations_per_session" validate:"gte=1"`
	MaxContentSize          int    `toml:"max_content_size" validate:"gte=256"`
	SessionTimeoutMs        int64  `toml:"session_timeout_ms" validate:"gte=0"`
	OperationTimeoutMs      int64  `toml:"operation_timeout_ms" validate:"gte=0"`
	CloseGraceMs            int64  `toml:"close_grace_ms"`
	MaxTools                int    `toml:"max_tools" validate:"gte=1"`
	MaxDrivers              int    `toml:"max_drivers" validate:"gte=0"`
	InitialOpenAccess       bool   `toml:"initial_open_access"`
	ParseErrorBudget        int    `toml:"parse_error_budget" validate:"gte=1"`
}

// TCP 以太网传输配置
type TCP struct {
	Enabled       bool   `toml:"enabled"`
	Mode          string `toml:"mode" validate:"omitempty,oneof=dhcp static auto"`
	Addr          string `toml:"addr"`
	MaxConns      int    `toml:"max_conns"`
	ConnTimeoutMs int64  `toml:"conn_timeout_ms"`
	MAC           string `toml:"mac"`
	StaticIP      string `toml:"static_ip"`
	StaticMask    string `toml:"static_mask"`
	StaticGateway string `toml:"static_gateway"`
	StaticDNS     string `toml:"static_dns"`
	MDNS          bool   `toml:"mdns"`
	MDNSService   string `toml:"mdns_service"`
}

// WebSocket 传输配置
type WebSocket struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
	Path    string `toml:"path"`
}

// Serial 串口传输配置
type Serial struct {
	Enabled  bool   `toml:"enabled"`
	Device   string `toml:"device"`
	Baud     int    `toml:"baud"`
	DataBits int    `toml:"data_bits"`
	StopBits int    `toml:"stop_bits"`
	Parity   string `toml:"parity" validate:"omitempty,oneof=none odd even"`
}

// USB USB-CDC 传输配置。宿主侧 CDC 设备呈现为串口，
// 其余字段用于设备识别与枚举日志。
type USB struct {
	Enabled      bool   `toml:"enabled"`
	Device       string `toml:"device"`
	VendorID     uint16 `toml:"vendor_id"`
	ProductID    uint16 `toml:"product_id"`
	DeviceClass  uint8  `toml:"device_class"` // CDC 0x02 / HID 0x03 / vendor 0xFF
	SerialNumber string `toml:"serial_number"`
	Manufacturer string `toml:"manufacturer"`
	Product      string `toml:"product"`
}

// Relay Redis 事件外发配置
type Relay struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
	DB      int    `toml:"db"`
	Stream  string `toml:"stream"`
}

// Storage 持久化工具库配置
type Storage struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Observe 运维 HTTP
type Observe struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// Transports 各介质的开关与参数
type Transports struct {
	TCP       TCP       `toml:"tcp"`
	WebSocket WebSocket `toml:"websocket"`
	Serial    Serial    `toml:"serial"`
	USB       USB       `toml:"usb"`
}

type Config struct {
	Server     Server     `toml:"server"`
	Transports Transports `toml:"transports"`
	Relay      Relay      `toml:"relay"`
	Storage    Storage    `toml:"storage"`
	Observe    Observe    `toml:"observe"`
}

// Default 未给配置文件时的缺省值
func Default() *Config {
	return &Config{
		Server: Server{
			DeviceName:              "mcpd",
			Version:                 "1.0.0",
			DeviceID:                "mcpd-0",
			MaxSessions:             16,
			MaxOperationsPerSession: 8,
			MaxContentSize:          1 << 20,
			SessionTimeoutMs:        60_000,
			OperationTimeoutMs:      30_000,
			CloseGraceMs:            1_000,
			MaxTools:                64,
			MaxDrivers:              32,
			InitialOpenAccess:       true,
			ParseErrorBudget:        8,
		},
		Transports: Transports{
			TCP:       TCP{Enabled: true, Mode: "dhcp", Addr: ":9180", MaxConns: 16, MDNSService: "_mcp._tcp"},
			WebSocket: WebSocket{Addr: ":9181", Path: "/mcp"},
			Serial:    Serial{Device: "/dev/ttyUSB0", Baud: 115200, DataBits: 8, StopBits: 1, Parity: "none"},
		},
		Relay:   Relay{Addr: "127.0.0.1:6379", Stream: "mcpd:events"},
		Storage: Storage{Path: "./data/tools"},
		Observe: Observe{Enabled: true, Addr: ":9182"},
	}
}

// Load 读取 TOML 配置（path 为空用缺省），套用环境变量覆盖并校验
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(cfg)
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnv 少量高频项的环境变量覆盖
func applyEnv(cfg *Config) {
	cfg.Server.DeviceName = getEnv("MCPD_DEVICE_NAME", cfg.Server.DeviceName)
	cfg.Transports.TCP.Addr = getEnv("MCPD_TCP_ADDR", cfg.Transports.TCP.Addr)
	cfg.Observe.Addr = getEnv("MCPD_OBSERVE_ADDR", cfg.Observe.Addr)
	if v := os.Getenv("MCPD_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.MaxSessions = n
		}
	}
	if v := os.Getenv("MCPD_SESSION_TIMEOUT_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.Server.SessionTimeoutMs = n
		}
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
