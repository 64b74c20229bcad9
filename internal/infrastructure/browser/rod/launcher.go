package rod

import (
	"context"
	"fmt"

	"browser-replay/internal/application/port/output"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

var _ output.PageFactory = (*Launcher)(nil)

// Launcher starts a dedicated browser for every page it opens, so runs never
// share state.
type Launcher struct {
	cfg    BrowserConfig
	logger output.LoggerPort
}

func NewLauncher(cfg BrowserConfig, logger output.LoggerPort) *Launcher {
	return &Launcher{
		cfg:    cfg.withDefaults(),
		logger: logger.Named("browser"),
	}
}

func (l *Launcher) Open(ctx context.Context) (output.PagePort, error) {
	ln := launcher.New().
		Context(ctx).
		Headless(l.cfg.Headless).
		Devtools(l.cfg.DevTools).
		NoSandbox(l.cfg.NoSandbox).
		Delete("use-mock-keychain")
	if l.cfg.BrowserBin != "" {
		ln = ln.Bin(l.cfg.BrowserBin)
	}

	url, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(url).
		SlowMotion(l.cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		ln.Kill()
		ln.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		ln.Kill()
		ln.Cleanup()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	l.logger.Debug("Browser started", "headless", l.cfg.Headless, "control_url", url)
	return &Page{
		browser:  browser,
		launcher: ln,
		page:     page,
		cfg:      l.cfg,
		logger:   l.logger,
	}, nil
}
