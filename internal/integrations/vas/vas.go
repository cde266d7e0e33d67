// Package vas downloads the daily account statement from the VAS back office
// and reads the balance out of it
package vas

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/float-report/internal/config"
	"github.com/Dan9191/float-report/internal/integrations/browser"
	"github.com/Dan9191/float-report/internal/utils/xlsx"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Name identifies the portal in logs and reports
const Name = "VAS"

const (
	// reportPrefix is spelled the way the portal spells it
	reportPrefix = "UserAcccountStatReport"
	balanceCell  = "B15"

	candidateWait = 3 * time.Second
	resultWait    = 10 * time.Second
	downloadWait  = 30 * time.Second
	downloadPoll  = time.Second
)

// Downloads is where the browser saves the report
type Downloads interface {
	Dir() string
	Ensure() error
	WaitFor(ctx context.Context, name string, timeout, poll time.Duration) (string, error)
}

// Scraper logs in to VAS and reads the previous day's closing balance
type Scraper struct {
	portal    config.Portal
	opts      browser.Options
	downloads Downloads
	loc       *time.Location
	now       func() time.Time
	log       *logrus.Entry
}

// New returns the VAS balance source
func New(portal config.Portal, opts browser.Options, downloads Downloads, loc *time.Location, log *logrus.Logger) *browser.Source {
	s := &Scraper{
		portal:    portal,
		opts:      opts,
		downloads: downloads,
		loc:       loc,
		now:       time.Now,
		log:       log.WithField("portal", Name),
	}
	return browser.NewSource(Name, s.Scrape, log)
}

var dateCandidates = []browser.Candidate{
	browser.ID("businessDate"),
	browser.Name("businessDate"),
	browser.XPath("//input[contains(@id, 'Date') or contains(@name, 'Date')]"),
	browser.XPath("//input[@type='date' or @type='text'][contains(@placeholder, 'date') or contains(@class, 'date')]"),
	browser.CSS("input.form-control[type='text']"),
}

var searchCandidates = []browser.Candidate{
	browser.XPath("//button[contains(text(), 'Search')]"),
	browser.XPath("//input[@type='submit' and (contains(@value, 'Search') or contains(@value, 'search'))]"),
	browser.XPath("//button[contains(@class, 'search') or contains(@id, 'search')]"),
	browser.CSS("button.btn-search, button.search-btn"),
	browser.XPath("//button[contains(@onclick, 'search')]"),
	browser.XPath("//a[contains(text(), 'Search')]"),
	browser.XPath("//span[contains(text(), 'Search')]/parent::button"),
	browser.XPath("//i[contains(@class, 'search')]/parent::button"),
}

var resultCandidates = []browser.Candidate{
	browser.XPath("//td[contains(text(), '.csv') or contains(text(), 'Report')]"),
	browser.XPath("//table//tr[position() > 1]"),
	browser.XPath("//div[contains(@class, 'result') or contains(@id, 'result')]"),
	browser.XPath("//div[contains(@class, 'table')]"),
	browser.XPath("//a[contains(@href, '.csv') or contains(@href, '.xlsx')]"),
}

// Scrape returns the raw content of the balance cell
func (s *Scraper) Scrape(ctx context.Context) (string, error) {
	if s.portal.Username == "" || s.portal.Password == "" {
		return "", errors.New("VAS credentials are not configured")
	}
	if err := s.downloads.Ensure(); err != nil {
		return "", err
	}

	opts := s.opts
	opts.DownloadDir = s.downloads.Dir()
	sess, err := browser.NewSession(ctx, opts, s.log)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	if err := s.login(sess); err != nil {
		return "", err
	}

	display, stamp := businessDate(s.now().In(s.location()))
	if err := s.search(sess, display); err != nil {
		return "", err
	}

	name := reportFile(stamp)
	if err := s.download(sess, stamp); err != nil {
		return "", errors.Wrapf(err, "could not find report row for %s", name)
	}

	path, err := s.downloads.WaitFor(ctx, name, downloadWait, downloadPoll)
	if err != nil {
		return "", err
	}
	s.log.WithField("status", "success").Infof("Download complete: %s", path)

	value, err := xlsx.ReadCell(path, balanceCell)
	if err != nil {
		return "", errors.Wrap(err, "error parsing Excel file")
	}
	s.log.WithField("status", "success").Infof("Extracted VAS Balance: %s THB", value)
	return value, nil
}

func (s *Scraper) login(sess *browser.Session) error {
	s.log.Info("Navigating to VAS login...")
	err := sess.Run(
		chromedp.Navigate(s.portal.LoginURL),
		chromedp.WaitVisible("#usernameforshow", chromedp.ByQuery),
	)
	if err != nil {
		return errors.Wrap(err, "failed to open VAS login page")
	}

	s.log.Info("Entering login credentials...")
	err = sess.Run(
		chromedp.SendKeys("#usernameforshow", s.portal.Username, chromedp.ByQuery),
		chromedp.SendKeys("#passwordforshow", s.portal.Password, chromedp.ByQuery),
		chromedp.Click("#buttonforshow", chromedp.ByQuery),
	)
	if err != nil {
		return errors.Wrap(err, "failed to submit VAS login")
	}
	return sess.Pause(3 * time.Second)
}

func (s *Scraper) search(sess *browser.Session, date string) error {
	s.log.Info("Redirecting to report page...")
	if err := sess.Run(chromedp.Navigate(s.portal.ReportURL)); err != nil {
		return errors.Wrap(err, "failed to open report page")
	}
	if err := sess.Pause(5 * time.Second); err != nil {
		return err
	}

	s.log.Infof("Selecting report date: %s", date)
	input, err := sess.FirstPresent(dateCandidates, candidateWait)
	if err != nil {
		sess.Screenshot("vas_report_page")
		return errors.Wrap(err, "could not find date input field")
	}
	if err := sess.Run(chromedp.SetValue(input.Sel, date, input.By)); err != nil {
		return errors.Wrap(err, "failed to set report date")
	}

	sess.Screenshot("vas_before_search")
	if err := s.clickSearch(sess); err != nil {
		return err
	}
	if err := sess.Pause(time.Second); err != nil {
		return err
	}
	sess.Screenshot("vas_after_search")

	s.log.Info("Waiting for report results to appear...")
	if _, err := sess.FirstPresent(resultCandidates, resultWait); err != nil {
		s.log.Warn("Could not detect results with standard selectors, but proceeding anyway")
	}
	sess.Screenshot("vas_search_results")
	return sess.Pause(2 * time.Second)
}

func (s *Scraper) clickSearch(sess *browser.Session) error {
	button, err := sess.FirstPresent(searchCandidates, candidateWait)
	if err == nil {
		if err := sess.Run(chromedp.Click(button.Sel, button.By)); err != nil {
			return errors.Wrap(err, "failed to click search")
		}
		s.log.WithField("status", "success").Info("Search action triggered")
		return nil
	}

	s.log.Warn("Could not find search button by standard selectors, falling back to page buttons")
	var used string
	if err := sess.Run(chromedp.Evaluate(searchFallbackJS, &used)); err != nil {
		return errors.Wrap(err, "search fallback failed")
	}
	if used == "" {
		return errors.New("no search button found")
	}
	s.log.Warnf("Using %s", used)
	return nil
}

func (s *Scraper) download(sess *browser.Session, stamp string) error {
	var rows []string
	if err := sess.Run(chromedp.Evaluate(rowTextsJS, &rows)); err != nil {
		return err
	}
	for i, r := range rows {
		if i == 10 {
			break
		}
		s.log.Debugf("Row %d: %s", i, r)
	}
	sess.Screenshot("vas_report_table")

	idx := matchRow(rows, stamp)
	if idx < 0 {
		return errors.New("no matching row")
	}
	s.log.WithField("status", "success").Infof("Found row with report: %s", rows[idx])

	icon := fmt.Sprintf("(//table//tr)[%d]//i[contains(@class, 'fa-file-o')]", idx+1)
	if err := sess.RunWithin(resultWait, chromedp.Click(icon, chromedp.BySearch)); err != nil {
		return errors.Wrap(err, "failed to click download icon")
	}
	s.log.Info("Downloading report...")
	return nil
}

func (s *Scraper) location() *time.Location {
	if s.loc == nil {
		return time.Local
	}
	return s.loc
}

// businessDate returns the previous day as the portal's date field expects it
// (dd/mm/yyyy) and as it appears in report names (yyyymmdd)
func businessDate(now time.Time) (string, string) {
	d := now.AddDate(0, 0, -1)
	return d.Format("02/01/2006"), d.Format("20060102")
}

func reportFile(stamp string) string {
	return fmt.Sprintf("%s_%s.xlsx", reportPrefix, stamp)
}

// matchRow returns the index of the first row naming the report for stamp, or -1
func matchRow(rows []string, stamp string) int {
	for i, r := range rows {
		if strings.Contains(r, reportPrefix) && strings.Contains(r, stamp) {
			return i
		}
	}
	return -1
}

const rowTextsJS = `(() => {
	const r = document.evaluate("//table//tr", document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	const out = [];
	for (let i = 0; i < r.snapshotLength; i++) out.push(r.snapshotItem(i).innerText || "");
	return out;
})()`

const searchFallbackJS = `(() => {
	const text = e => (e.tagName === "INPUT" ? e.value : e.innerText) || "";
	const buttons = Array.from(document.querySelectorAll("button"));
	let pick = buttons.find(b => text(b).toLowerCase().includes("search"));
	if (!pick) pick = Array.from(document.querySelectorAll("a, input[type=submit], input[type=button]"))
		.find(e => text(e).toLowerCase().includes("search"));
	if (!pick) pick = buttons.find(b => /primary|submit|search/.test((b.className || "").toLowerCase()));
	if (!pick) pick = buttons[0];
	if (!pick) return "";
	pick.click();
	return pick.tagName.toLowerCase() + " '" + text(pick).trim() + "'";
})()`
