package rod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
	"sync"
	"time"

	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var _ output.PagePort = (*Page)(nil)

// Page owns one browser process and its single tab.
type Page struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	cfg      BrowserConfig
	logger   output.LoggerPort

	closeOnce sync.Once
	closeErr  error
}

func (p *Page) bind(ctx context.Context) *rod.Page {
	return p.page.Context(ctx).Timeout(p.cfg.Timeout)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.Timeout(p.cfg.Timeout * 3).WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	if err := page.WaitIdle(5 * time.Second); err != nil {
		p.logger.Debug("Page did not go idle", "url", url, "error", err)
	}
	return nil
}

func (p *Page) Elements(ctx context.Context) (entity.ElementMap, error) {
	res, err := p.bind(ctx).Eval(elementsJS, p.cfg.MaxElements)
	if err != nil {
		return nil, fmt.Errorf("enumerate elements: %w", err)
	}
	return decodeElements(res.Value.Str())
}

func (p *Page) element(ctx context.Context, el entity.ElementDescriptor) (*rod.Element, error) {
	if el.XPath == "" {
		return nil, fmt.Errorf("element #%d has no xpath", el.Index)
	}
	found, err := p.bind(ctx).ElementX(el.XPath)
	if err != nil {
		return nil, fmt.Errorf("element not found: %s: %w", el.XPath, err)
	}
	return found, nil
}

func (p *Page) Click(ctx context.Context, el entity.ElementDescriptor) error {
	found, err := p.element(ctx, el)
	if err != nil {
		return err
	}
	if err := found.ScrollIntoView(); err != nil {
		p.logger.Debug("Scroll into view failed", "xpath", el.XPath, "error", err)
	}
	if err := found.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (p *Page) Type(ctx context.Context, el entity.ElementDescriptor, text string) error {
	found, err := p.element(ctx, el)
	if err != nil {
		return err
	}
	if err := found.SelectAllText(); err == nil {
		_ = found.Input("")
	}
	if err := found.Input(text); err != nil {
		return fmt.Errorf("input failed: %w", err)
	}
	return nil
}

func (p *Page) Select(ctx context.Context, el entity.ElementDescriptor, value string) error {
	found, err := p.element(ctx, el)
	if err != nil {
		return err
	}
	if err := found.Select([]string{value}, true, rod.SelectorTypeText); err == nil {
		return nil
	}
	_, err = found.Eval(`(v) => {
		this.value = v;
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`, value)
	if err != nil {
		return fmt.Errorf("select %q failed: %w", value, err)
	}
	return nil
}

func (p *Page) Scroll(ctx context.Context, direction string, amount int) error {
	if amount <= 0 {
		amount = 500
	}
	page := p.bind(ctx)

	var err error
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "down", "":
		_, err = page.Eval(`(dy) => window.scrollBy(0, dy)`, amount)
	case "up":
		_, err = page.Eval(`(dy) => window.scrollBy(0, -dy)`, amount)
	case "top":
		_, err = page.Eval(`() => window.scrollTo(0, 0)`)
	case "bottom":
		_, err = page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	default:
		return fmt.Errorf("unknown scroll direction: %s", direction)
	}
	if err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

func (p *Page) Screenshot(ctx context.Context, fullPage bool) (*entity.Screenshot, error) {
	imgBytes, err := p.bind(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(p.cfg.ScreenshotQuality),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return downscale(imgBytes, p.cfg.ScreenshotWidth, p.cfg.ScreenshotQuality)
}

func downscale(imgBytes []byte, maxWidth, quality int) (*entity.Screenshot, error) {
	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}

	return &entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

func (p *Page) Text(ctx context.Context) (string, error) {
	res, err := p.bind(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return PageText(res.Value.Str(), p.cfg.MaxTextChars), nil
}

func (p *Page) ElementText(ctx context.Context, el entity.ElementDescriptor) (string, error) {
	found, err := p.element(ctx, el)
	if err != nil {
		return "", err
	}
	text, err := found.Text()
	if err != nil {
		return "", fmt.Errorf("element text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (p *Page) CurrentURL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Close stops the browser process. Only the first call does anything.
func (p *Page) Close() error {
	p.closeOnce.Do(func() {
		var errs []error
		if p.browser != nil {
			if err := p.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
		}
		if p.launcher != nil {
			p.launcher.Kill()
			p.launcher.Cleanup()
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}
