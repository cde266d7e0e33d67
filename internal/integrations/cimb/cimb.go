// Package cimb reads the available balance of the float account from CIMB
// BizChannel
package cimb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/float-report/internal/config"
	"github.com/Dan9191/float-report/internal/integrations/browser"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Name identifies the portal in logs and reports
const Name = "CIMB"

const (
	dashboardWait = 60 * time.Second
	balanceWait   = 60 * time.Second
	logoutWait    = 5 * time.Second
	loginPageWait = 10 * time.Second

	menuFrame = "menuFrame"
	mainFrame = "mainFrame"
	topFrame  = "topFrame"
)

// Scraper logs in to BizChannel and reads one account's available balance
type Scraper struct {
	portal config.Portal
	opts   browser.Options
	log    *logrus.Entry
}

// New returns the CIMB balance source
func New(portal config.Portal, opts browser.Options, log *logrus.Logger) *browser.Source {
	s := &Scraper{
		portal: portal,
		opts:   opts,
		log:    log.WithField("portal", Name),
	}
	return browser.NewSource(Name, s.Scrape, log)
}

// Scrape returns the balance text shown next to the configured account
func (s *Scraper) Scrape(ctx context.Context) (string, error) {
	if s.portal.CompanyID == "" || s.portal.Username == "" || s.portal.Password == "" {
		return "", errors.New("CIMB credentials are not configured")
	}

	sess, err := browser.NewSession(ctx, s.opts, s.log)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	if err := s.login(sess); err != nil {
		return "", err
	}
	// a session that reached the dashboard is always logged out
	defer s.logout(sess)

	if err := s.openAccountSummary(sess); err != nil {
		s.log.Errorf("Could not find or click the menu or Account Summary in menuFrame: %v", err)
	}

	balance, err := s.readBalance(sess)
	if err != nil {
		return "", err
	}
	s.log.WithField("status", "success").Infof("Extracted CIMB Available Balance for %s: %s THB", s.portal.Account, balance)
	return balance, nil
}

func (s *Scraper) login(sess *browser.Session) error {
	s.log.Info("Navigating to CIMB login page...")
	err := sess.Run(
		chromedp.Navigate(s.portal.LoginURL),
		chromedp.WaitVisible("#corpId", chromedp.ByQuery),
	)
	if err != nil {
		return errors.Wrap(err, "could not find company ID field (corpId)")
	}

	s.log.Info("Filling login credentials...")
	err = sess.Run(
		chromedp.SendKeys("#corpId", s.portal.CompanyID, chromedp.ByQuery),
		chromedp.SendKeys("#userName", s.portal.Username, chromedp.ByQuery),
		chromedp.SendKeys("#passwordEncryption", s.portal.Password, chromedp.ByQuery),
		chromedp.Click(`[name="submit1"]`, chromedp.ByQuery),
	)
	if err != nil {
		return errors.Wrap(err, "failed to submit login form")
	}

	s.log.Info("Login submitted, waiting for dashboard to load...")
	var ok bool
	err = sess.RunWithin(dashboardWait,
		chromedp.Poll(`location.href.includes("returnMain")`, &ok, chromedp.WithPollingTimeout(dashboardWait)),
		chromedp.Poll(fmt.Sprintf(`!!window.frames[%q]`, menuFrame), &ok, chromedp.WithPollingTimeout(dashboardWait)),
	)
	if err != nil {
		sess.Screenshot("cimb_dashboard")
		return errors.Wrap(err, "dashboard did not load after login")
	}
	s.log.Info("Frameset loaded, proceeding to frame navigation")
	return sess.Pause(5 * time.Second)
}

func (s *Scraper) openAccountSummary(sess *browser.Session) error {
	var clicked bool
	if err := sess.Run(chromedp.Evaluate(inFrame(menuFrame, clickAccountServiceJS), &clicked)); err != nil {
		return err
	}
	if !clicked {
		return errors.New("account service menu not found")
	}
	s.log.Info("Clicked 'Account Service & Information Management' menu")
	if err := sess.Pause(5 * time.Second); err != nil {
		return err
	}

	if err := sess.Run(chromedp.Evaluate(inFrame(menuFrame, clickAccountSummaryJS), &clicked)); err != nil {
		return err
	}
	if !clicked {
		return errors.New("account summary link (subs8) not found")
	}
	s.log.WithField("status", "success").Info("Clicked 'Account Summary' link")
	return sess.Pause(10 * time.Second)
}

func (s *Scraper) readBalance(sess *browser.Session) (string, error) {
	s.log.Infof("Waiting up to %s for balance element...", balanceWait)
	var ok bool
	wait := inFrame(mainFrame, fmt.Sprintf(`return Array.from(doc.querySelectorAll("a")).some(a => a.innerText.includes(%q));`, s.portal.Account))
	if err := sess.RunWithin(balanceWait, chromedp.Poll(wait, &ok, chromedp.WithPollingTimeout(balanceWait))); err != nil {
		s.log.Warnf("Account %s did not appear in mainFrame: %v", s.portal.Account, err)
	}

	var texts []string
	if err := sess.Run(chromedp.Evaluate(inFrame(mainFrame, anchorTextsJS), &texts)); err != nil {
		return "", errors.Wrap(err, "could not read links in mainFrame")
	}
	for i, t := range texts {
		s.log.Debugf("Link %d: %s", i, t)
	}
	return balanceAfterAccount(texts, s.portal.Account)
}

// logout tries the top frame, then the page itself, and confirms by waiting
// for the login form
func (s *Scraper) logout(sess *browser.Session) {
	for _, frame := range []string{topFrame, ""} {
		where := frame
		if where == "" {
			where = "default content"
		}

		var clicked bool
		var ok bool
		err := sess.RunWithin(logoutWait,
			chromedp.Poll(inFrame(frame, clickLogoutJS), &clicked, chromedp.WithPollingTimeout(logoutWait)),
		)
		if err != nil {
			s.log.Warnf("Could not find/click logout link in %s: %v", where, err)
			continue
		}
		s.log.WithField("status", "success").Infof("Clicked logout link in %s", where)

		err = sess.RunWithin(loginPageWait,
			chromedp.Poll(`!!document.getElementById("corpId")`, &ok, chromedp.WithPollingTimeout(loginPageWait)),
		)
		if err != nil {
			s.log.Warnf("Logout not confirmed after clicking in %s: %v", where, err)
			continue
		}
		s.log.WithField("status", "success").Info("Logout confirmed: Login page detected")
		return
	}
	s.log.Warn("Logout could not be confirmed. Please check your session manually.")
}

// balanceAfterAccount picks the anchor following the one that names account
func balanceAfterAccount(texts []string, account string) (string, error) {
	for i, t := range texts {
		if !strings.Contains(t, account) {
			continue
		}
		if i+1 >= len(texts) {
			return "", errors.Errorf("no balance link after account %s", account)
		}
		return strings.TrimSpace(texts[i+1]), nil
	}
	return "", errors.Errorf("could not find account %s", account)
}

// inFrame wraps body so that doc refers to the named frame's document, or to
// the page itself when frame is empty
func inFrame(frame, body string) string {
	if frame == "" {
		return fmt.Sprintf("(() => { const doc = document; %s })()", body)
	}
	return fmt.Sprintf(`(() => {
	const f = window.frames[%q];
	if (!f) throw new Error("frame %s not found");
	const doc = f.document;
	%s
})()`, frame, frame, body)
}

const clickAccountServiceJS = `const r = doc.evaluate("//div[contains(text(), 'Account Service')]", doc, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!r) return false;
	r.click();
	return true;`

const clickAccountSummaryJS = `const a = doc.getElementById("subs8");
	if (!a) return false;
	a.click();
	return true;`

const anchorTextsJS = `return Array.from(doc.querySelectorAll("a")).map(a => (a.innerText || "").trim());`

const clickLogoutJS = `const a = doc.evaluate("//a[contains(@href, 'action=logout') or @onclick='logout()']", doc, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!a) return false;
	a.click();
	return true;`
