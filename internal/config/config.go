// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Device() DeviceConfig
	Activity() ActivityConfig
	Ad() AdConfig
	Surface() SurfaceConfig
	Browser() BrowserConfig

	// Ad Setters
	SetAdPlacement(string)
	SetAdCreative(string)

	// Surface Setters
	SetSurfaceKind(string)

	// Browser Setters
	SetBrowserHeadless(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	DeviceCfg   DeviceConfig   `mapstructure:"device" yaml:"device"`
	ActivityCfg ActivityConfig `mapstructure:"activity" yaml:"activity"`
	AdCfg       AdConfig       `mapstructure:"ad" yaml:"ad"`
	SurfaceCfg  SurfaceConfig  `mapstructure:"surface" yaml:"surface"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Device() DeviceConfig     { return c.DeviceCfg }
func (c *Config) Activity() ActivityConfig { return c.ActivityCfg }
func (c *Config) Ad() AdConfig             { return c.AdCfg }
func (c *Config) Surface() SurfaceConfig   { return c.SurfaceCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetAdPlacement(p string)   { c.AdCfg.Placement = p }
func (c *Config) SetAdCreative(path string) { c.AdCfg.Creative = path }
func (c *Config) SetSurfaceKind(k string)   { c.SurfaceCfg.Kind = k }
func (c *Config) SetBrowserHeadless(b bool) { c.BrowserCfg.Headless = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DeviceConfig describes the simulated display.
type DeviceConfig struct {
	WidthPx             int            `mapstructure:"width_px" yaml:"width_px"`
	HeightPx            int            `mapstructure:"height_px" yaml:"height_px"`
	Density             float64        `mapstructure:"density" yaml:"density"`
	Rotation            int            `mapstructure:"rotation" yaml:"rotation"`
	StatusBarPx         int            `mapstructure:"status_bar_px" yaml:"status_bar_px"`
	HardwareAccelerated bool           `mapstructure:"hardware_accelerated" yaml:"hardware_accelerated"`
	Supports            SupportsConfig `mapstructure:"supports" yaml:"supports"`
}

// SupportsConfig lists the device features reported to the creative.
type SupportsConfig struct {
	SMS          bool `mapstructure:"sms" yaml:"sms"`
	Tel          bool `mapstructure:"tel" yaml:"tel"`
	Calendar     bool `mapstructure:"calendar" yaml:"calendar"`
	StorePicture bool `mapstructure:"store_picture" yaml:"store_picture"`
}

// ActivityConfig is the host screen's static declaration.
type ActivityConfig struct {
	ScreenOrientation  string `mapstructure:"screen_orientation" yaml:"screen_orientation"`
	HandlesOrientation bool   `mapstructure:"handles_orientation" yaml:"handles_orientation"`
	HandlesScreenSize  bool   `mapstructure:"handles_screen_size" yaml:"handles_screen_size"`
}

// SlotConfig places the inline ad container, in dips.
type SlotConfig struct {
	X      int `mapstructure:"x" yaml:"x"`
	Y      int `mapstructure:"y" yaml:"y"`
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// AdConfig describes the ad unit under test.
type AdConfig struct {
	Placement       string     `mapstructure:"placement" yaml:"placement"`
	Slot            SlotConfig `mapstructure:"slot" yaml:"slot"`
	CloseRegionDips int        `mapstructure:"close_region_dips" yaml:"close_region_dips"`
	// Creative is a file path or an http(s) URL.
	Creative string `mapstructure:"creative" yaml:"creative"`
}

// SurfaceConfig selects the rendering surface.
type SurfaceConfig struct {
	Kind          string        `mapstructure:"kind" yaml:"kind"`
	ScriptTimeout time.Duration `mapstructure:"script_timeout" yaml:"script_timeout"`
}

// BrowserConfig holds settings for the chrome surface.
type BrowserConfig struct {
	Headless    bool          `mapstructure:"headless" yaml:"headless"`
	NoSandbox   bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	ExecPath    string        `mapstructure:"exec_path" yaml:"exec_path"`
	Args        []string      `mapstructure:"args" yaml:"args"`
	SettleTime  time.Duration `mapstructure:"settle_time" yaml:"settle_time"`
	LoadTimeout time.Duration `mapstructure:"load_timeout" yaml:"load_timeout"`
}

// Surface kinds.
const (
	SurfaceScripted = "scripted"
	SurfaceChrome   = "chrome"
)

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "mraidhost")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Device -- (a 1080x1920 xxhdpi phone)
	v.SetDefault("device.width_px", 1080)
	v.SetDefault("device.height_px", 1920)
	v.SetDefault("device.density", 3.0)
	v.SetDefault("device.rotation", 0)
	v.SetDefault("device.status_bar_px", 72)
	v.SetDefault("device.hardware_accelerated", true)
	v.SetDefault("device.supports.sms", true)
	v.SetDefault("device.supports.tel", true)
	v.SetDefault("device.supports.calendar", false)
	v.SetDefault("device.supports.store_picture", false)

	// -- Activity --
	v.SetDefault("activity.screen_orientation", "unspecified")
	v.SetDefault("activity.handles_orientation", true)
	v.SetDefault("activity.handles_screen_size", true)

	// -- Ad --
	v.SetDefault("ad.placement", "inline")
	v.SetDefault("ad.slot.x", 0)
	v.SetDefault("ad.slot.y", 0)
	v.SetDefault("ad.slot.width", 320)
	v.SetDefault("ad.slot.height", 50)
	v.SetDefault("ad.close_region_dips", 50)
	v.SetDefault("ad.creative", "")

	// -- Surface --
	v.SetDefault("surface.kind", SurfaceScripted)
	v.SetDefault("surface.script_timeout", "5s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.settle_time", "500ms")
	v.SetDefault("browser.load_timeout", "30s")
}

// EnvPrefix namespaces environment overrides, e.g. MRAIDHOST_DEVICE_DENSITY.
const EnvPrefix = "MRAIDHOST"

// BindEnv makes every key with a default overridable from the environment.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.DeviceCfg.Validate(); err != nil {
		return fmt.Errorf("device configuration invalid: %w", err)
	}
	switch c.ActivityCfg.ScreenOrientation {
	case "", "unspecified", "portrait", "landscape", "reverse_portrait", "reverse_landscape":
	default:
		return fmt.Errorf("activity.screen_orientation %q is not a known orientation", c.ActivityCfg.ScreenOrientation)
	}
	switch c.AdCfg.Placement {
	case "inline", "interstitial":
	default:
		return fmt.Errorf("ad.placement must be inline or interstitial, got %q", c.AdCfg.Placement)
	}
	if c.AdCfg.CloseRegionDips < 0 {
		return fmt.Errorf("ad.close_region_dips must not be negative")
	}
	switch c.SurfaceCfg.Kind {
	case SurfaceScripted, SurfaceChrome:
	default:
		return fmt.Errorf("surface.kind must be %s or %s, got %q", SurfaceScripted, SurfaceChrome, c.SurfaceCfg.Kind)
	}
	if c.SurfaceCfg.ScriptTimeout < 0 {
		return fmt.Errorf("surface.script_timeout must not be negative")
	}
	return nil
}

// Validate checks the device geometry.
func (d *DeviceConfig) Validate() error {
	if d.WidthPx <= 0 || d.HeightPx <= 0 {
		return fmt.Errorf("width_px and height_px must be positive integers")
	}
	if d.Density <= 0 {
		return fmt.Errorf("density must be greater than 0")
	}
	if d.Rotation < 0 || d.Rotation > 3 {
		return fmt.Errorf("rotation must be between 0 and 3")
	}
	if d.StatusBarPx < 0 || d.StatusBarPx >= d.HeightPx {
		return fmt.Errorf("status_bar_px must be between 0 and height_px")
	}
	return nil
}
