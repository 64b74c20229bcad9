package executor

import "time"

// Settle holds the pauses applied after an action so the page can react.
type Settle struct {
	Navigate time.Duration `mapstructure:"navigate"`
	Click    time.Duration `mapstructure:"click"`
	Input    time.Duration `mapstructure:"input"`
	Scroll   time.Duration `mapstructure:"scroll"`
}

type Config struct {
	// SaveScreenshots appends a screenshot after every successful
	// non-screenshot step.
	SaveScreenshots   bool          `mapstructure:"save_screenshots"`
	ScreenshotOnError bool          `mapstructure:"screenshot_on_error"`
	RetryOnError      bool          `mapstructure:"retry_on_error"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	Timeout           time.Duration `mapstructure:"timeout"`
	// StrictParams rejects a run whose required parameters are not all
	// supplied. Otherwise unresolved placeholders are typed literally.
	StrictParams   bool   `mapstructure:"strict_params"`
	PreferSemantic bool   `mapstructure:"prefer_semantic"`
	Settle         Settle `mapstructure:"settle"`
}

func DefaultConfig() Config {
	return Config{
		SaveScreenshots:   true,
		ScreenshotOnError: true,
		RetryOnError:      true,
		RetryDelay:        time.Second,
		Timeout:           60 * time.Second,
		Settle: Settle{
			Navigate: 2 * time.Second,
			Click:    time.Second,
			Input:    500 * time.Millisecond,
			Scroll:   500 * time.Millisecond,
		},
	}
}
