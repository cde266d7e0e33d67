// Package v2 reads the E-Money balance from the V2 agent portal
package v2

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/float-report/internal/config"
	"github.com/Dan9191/float-report/internal/integrations/browser"
	"github.com/Dan9191/float-report/internal/utils"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Name identifies the portal in logs and reports
const Name = "V2"

const (
	loginFormWait = 15 * time.Second
	dashboardWait = 30 * time.Second
	strategyWait  = 5 * time.Second
)

// dashboardAny matches any element that only exists once logged in
const dashboardAny = "//a[contains(., 'Logout')]|//div[contains(@class, 'sidebar')]|//div[contains(text(), 'E-Money')]|//div[contains(text(), 'Balance')]"

var loginErrorKeywords = []string{"invalid", "incorrect", "failed", "error", "bot", "captcha", "automated"}

// Scraper logs in to V2 and reads the E-Money balance
type Scraper struct {
	portal config.Portal
	opts   browser.Options
	log    *logrus.Entry
}

// New returns the V2 balance source
func New(portal config.Portal, opts browser.Options, log *logrus.Logger) *browser.Source {
	s := &Scraper{
		portal: portal,
		opts:   opts,
		log:    log.WithField("portal", Name),
	}
	return browser.NewSource(Name, s.Scrape, log)
}

// Scrape returns the balance text, e.g. "12,345.67"
func (s *Scraper) Scrape(ctx context.Context) (string, error) {
	if s.portal.Username == "" || s.portal.Password == "" {
		return "", errors.New("V2 credentials are not configured")
	}

	sess, err := browser.NewSession(ctx, s.opts, s.log)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	if err := s.login(sess); err != nil {
		return "", err
	}
	s.waitDashboard(sess)

	s.log.Info("Attempting to extract E-Money balance...")
	name, text, err := browser.FirstMatch(sess.Context(), s.log, s.strategies(sess), hasAmount)
	if err != nil {
		return "", errors.Wrap(err, "all extraction strategies failed")
	}
	amount, _ := utils.FirstAmount(text)
	s.log.WithField("status", "success").Infof("Extracted E-Money Balance: %s THB using %s", amount, name)
	return amount, nil
}

func (s *Scraper) login(sess *browser.Session) error {
	s.log.Info("Navigating to login page...")
	if err := sess.Run(chromedp.Navigate(s.portal.LoginURL)); err != nil {
		return errors.Wrap(err, "failed to open V2 login page")
	}
	if err := sess.RunWithin(loginFormWait, chromedp.WaitVisible("#email", chromedp.ByQuery)); err != nil {
		return errors.Wrap(err, "login form did not load")
	}
	if err := sess.Pause(1500 * time.Millisecond); err != nil {
		return err
	}

	s.log.Info("Filling in login credentials...")
	if err := sess.TypeSlowly("#email", s.portal.Username, chromedp.ByQuery); err != nil {
		return errors.Wrap(err, "failed to type username")
	}
	if err := sess.TypeSlowly(`input[type="password"]`, s.portal.Password, chromedp.ByQuery); err != nil {
		return errors.Wrap(err, "failed to type password")
	}
	if err := sess.Pause(time.Second); err != nil {
		return err
	}

	const submit = "//button[@type='submit' and contains(., 'Login')]"
	err := sess.RunWithin(loginFormWait,
		chromedp.ScrollIntoView(submit, chromedp.BySearch),
		chromedp.Click(submit, chromedp.BySearch),
	)
	if err != nil {
		return errors.Wrap(err, "failed to submit login form")
	}

	if err := sess.Pause(2 * time.Second); err != nil {
		return err
	}
	s.reportAlerts(sess)
	return nil
}

// reportAlerts logs popup and inline error messages shown after login
func (s *Scraper) reportAlerts(sess *browser.Session) {
	var alerts []string
	err := sess.RunWithin(5*time.Second, chromedp.Evaluate(alertsJS, &alerts))
	if err != nil {
		s.log.Debugf("Error checking for alerts: %v", err)
		return
	}
	for _, a := range alerts {
		if msg, bad := loginError(a); bad {
			s.log.Errorf("Login error detected: %s", msg)
		} else {
			s.log.Warnf("Alert on page: %s", msg)
		}
	}
}

// waitDashboard logs whether the dashboard appeared. Extraction is attempted
// either way
func (s *Scraper) waitDashboard(sess *browser.Session) {
	s.log.Infof("Current URL after login attempt: %s", sess.URL())

	indicators := []browser.Strategy{
		{Name: "URL contains 'dashboard'", Run: func(context.Context) (string, error) {
			if strings.Contains(strings.ToLower(sess.URL()), "dashboard") {
				return "yes", nil
			}
			return "", nil
		}},
		sess.Eval("Logout link present", existsJS("//a[contains(., 'Logout')]|//a[contains(@href, 'logout')]|//button[contains(., 'Logout')]")),
		sess.Eval("Sidebar present", existsJS("//div[contains(@class, 'sidebar')]|//aside|//nav")),
		sess.Eval("E-Money text present", existsJS("//div[contains(text(), 'E-Money')]")),
		sess.Eval("Not on login page", notLoginJS),
	}
	name, _, err := browser.FirstMatch(sess.Context(), s.log, indicators, nil)
	if err == nil {
		s.log.Infof("Dashboard detected via %s", name)
		return
	}

	s.log.Info("No immediate dashboard indicators found, waiting for any to appear...")
	if err := sess.RunWithin(dashboardWait, chromedp.WaitReady(dashboardAny, chromedp.BySearch)); err != nil {
		s.log.Warn("Could not verify dashboard loaded, attempting to continue")
		sess.Screenshot("v2_dashboard")
		return
	}
	s.log.Info("Dashboard eventually loaded after waiting")
}

func (s *Scraper) strategies(sess *browser.Session) []browser.Strategy {
	return []browser.Strategy{
		sess.TextOf(browser.XPath("//div[contains(@class, 'd-flex') and .//div[text()='E-Money']]//div[contains(text(), 'Balance:')]"), strategyWait),
		sess.TextOf(browser.XPath("//div[contains(text(), 'E-Money')]/following::div[contains(text(), 'Balance')]"), strategyWait),
		sess.Eval("Balance text with currency", balanceWithCurrencyJS),
		sess.Eval("Number with currency", numberWithCurrencyJS),
		sess.Eval("Any short number", anyNumberJS),
	}
}

func hasAmount(text string) bool {
	_, ok := utils.FirstAmount(text)
	return ok
}

// loginError trims an alert and reports whether it reads like a failed login
func loginError(alert string) (string, bool) {
	msg := strings.Join(strings.Fields(alert), " ")
	lower := strings.ToLower(msg)
	for _, k := range loginErrorKeywords {
		if strings.Contains(lower, k) {
			return msg, true
		}
	}
	return msg, false
}

func existsJS(xpath string) string {
	return fmt.Sprintf(`document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue ? "yes" : ""`, xpath)
}

const notLoginJS = `(!location.href.toLowerCase().includes("login") && !document.getElementById("email")) ? "yes" : ""`

const alertsJS = `(() => {
	const out = [];
	document.querySelectorAll(".swal2-popup").forEach(e => { if (e.innerText.trim()) out.push(e.innerText); });
	document.querySelectorAll("[class*='error'], [class*='alert']").forEach(e => {
		if (e.offsetParent !== null && e.innerText.trim()) out.push(e.innerText);
	});
	return out;
})()`

const balanceWithCurrencyJS = `(() => {
	const r = document.evaluate("//div[contains(text(), 'Balance')]", document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	for (let i = 0; i < r.snapshotLength; i++) {
		const t = r.snapshotItem(i).innerText || "";
		if (t.includes("THB") || t.includes("฿")) return t;
	}
	return "";
})()`

const numberWithCurrencyJS = `(() => {
	const r = document.evaluate("//*[contains(text(), 'THB') or contains(text(), '฿')]", document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	for (let i = 0; i < r.snapshotLength; i++) {
		const t = r.snapshotItem(i).innerText || "";
		if (/\d/.test(t)) return t;
	}
	return "";
})()`

const anyNumberJS = `(() => {
	for (const e of document.querySelectorAll("body *")) {
		const t = e.innerText || "";
		if (t.length < 50 && /[\d,]+\.?\d+/.test(t)) return t;
	}
	return "";
})()`
