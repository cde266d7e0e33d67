package browser

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// DefaultUserAgent mimics a desktop Chrome so portals serve the full UI
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures a browser session
type Options struct {
	Headless      bool
	ExecPath      string
	UserAgent     string
	DownloadDir   string
	ScreenshotDir string
}

// Session is one headless Chrome instance driven over the DevTools protocol
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opts        Options
	log         *logrus.Entry
}

// NewSession starts Chrome. The caller must Close the session
func NewSession(ctx context.Context, opts Options, log *logrus.Entry) (*Session, error) {
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.IgnoreCertErrors,
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(ua),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Debugf), chromedp.WithErrorf(log.Debugf))

	s := &Session{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		opts:        opts,
		log:         log,
	}

	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	if opts.DownloadDir != "" {
		err := chromedp.Run(browserCtx, cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(opts.DownloadDir).
			WithEventsEnabled(true))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to set download directory: %w", err)
		}
	}

	log.Debug("Browser started")
	return s, nil
}

// Run executes actions against the session
func (s *Session) Run(actions ...chromedp.Action) error {
	return chromedp.Run(s.ctx, actions...)
}

// RunWithin executes actions, giving up after d
func (s *Session) RunWithin(d time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, d)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Context is the browser context, for callers building their own actions
func (s *Session) Context() context.Context {
	return s.ctx
}

// Pause sleeps for d unless the session is cancelled first
func (s *Session) Pause(d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	case <-t.C:
		return nil
	}
}

// TypeSlowly sends text one key at a time with a short random delay between keys
func (s *Session) TypeSlowly(sel string, text string, opts ...chromedp.QueryOption) error {
	for _, r := range text {
		if err := s.Run(chromedp.SendKeys(sel, string(r), opts...)); err != nil {
			return err
		}
		if err := s.Pause(100*time.Millisecond + rand.N(200*time.Millisecond)); err != nil {
			return err
		}
	}
	return nil
}

// URL returns the current page location
func (s *Session) URL() string {
	var u string
	if err := s.RunWithin(5*time.Second, chromedp.Location(&u)); err != nil {
		return ""
	}
	return u
}

// Screenshot saves a full-page PNG when a screenshot directory is configured
func (s *Session) Screenshot(name string) {
	if s.opts.ScreenshotDir == "" {
		return
	}
	var buf []byte
	if err := s.RunWithin(10*time.Second, chromedp.FullScreenshot(&buf, 90)); err != nil {
		s.log.Warnf("Failed to capture screenshot %s: %v", name, err)
		return
	}
	if err := os.MkdirAll(s.opts.ScreenshotDir, 0o755); err != nil {
		s.log.Warnf("Failed to create screenshot dir: %v", err)
		return
	}
	path := filepath.Join(s.opts.ScreenshotDir, fmt.Sprintf("%s_%s.png", name, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		s.log.Warnf("Failed to write screenshot %s: %v", path, err)
		return
	}
	s.log.Infof("Saved screenshot: %s", path)
}

// Close shuts Chrome down. Safe to call more than once
func (s *Session) Close() {
	if err := chromedp.Cancel(s.ctx); err != nil && err != context.Canceled {
		s.log.Debugf("Browser close: %v", err)
	}
	s.cancel()
	s.allocCancel()
	s.log.Debug("Browser closed")
}
