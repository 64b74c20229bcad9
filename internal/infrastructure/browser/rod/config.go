package rod

import "time"

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxElements = 500
	defaultShotWidth   = 1280
	defaultShotQuality = 80
)

type BrowserConfig struct {
	Headless   bool          `mapstructure:"headless"`
	SlowMotion time.Duration `mapstructure:"slow_motion"`
	// Timeout bounds each element lookup and page interaction.
	Timeout    time.Duration `mapstructure:"timeout"`
	NoSandbox  bool          `mapstructure:"no_sandbox"`
	DevTools   bool          `mapstructure:"devtools"`
	BrowserBin string        `mapstructure:"browser_bin"`

	MaxElements       int `mapstructure:"max_elements"`
	ScreenshotWidth   int `mapstructure:"screenshot_width"`
	ScreenshotQuality int `mapstructure:"screenshot_quality"`
	MaxTextChars      int `mapstructure:"max_text_chars"`
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          true,
		Timeout:           defaultTimeout,
		MaxElements:       defaultMaxElements,
		ScreenshotWidth:   defaultShotWidth,
		ScreenshotQuality: defaultShotQuality,
		MaxTextChars:      defaultMaxTextChars,
	}
}

func (c BrowserConfig) withDefaults() BrowserConfig {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxElements <= 0 {
		c.MaxElements = d.MaxElements
	}
	if c.ScreenshotWidth <= 0 {
		c.ScreenshotWidth = d.ScreenshotWidth
	}
	if c.ScreenshotQuality <= 0 || c.ScreenshotQuality > 100 {
		c.ScreenshotQuality = d.ScreenshotQuality
	}
	if c.MaxTextChars <= 0 {
		c.MaxTextChars = d.MaxTextChars
	}
	return c
}
