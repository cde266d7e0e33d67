package browser

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrNoMatch is returned when every strategy in a list failed
var ErrNoMatch = errors.New("no strategy matched")

// Strategy is one named way of reading a value from the page
type Strategy struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

// FirstMatch tries strategies in order and returns the name and value of the
// first one whose trimmed result is non-empty and accepted. A nil accept takes
// any non-empty value
func FirstMatch(ctx context.Context, log logrus.FieldLogger, strategies []Strategy, accept func(string) bool) (string, string, error) {
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}
		log.Debugf("Trying %s strategy...", s.Name)

		v, err := s.Run(ctx)
		if err != nil {
			log.Debugf("%s failed: %v", s.Name, err)
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" || (accept != nil && !accept(v)) {
			log.Debugf("%s found nothing usable in %q", s.Name, v)
			continue
		}
		return s.Name, v, nil
	}
	return "", "", ErrNoMatch
}

// Candidate is a selector that may locate an element
type Candidate struct {
	Desc string
	Sel  string
	By   chromedp.QueryOption
}

// ID locates an element by id
func ID(id string) Candidate {
	return Candidate{Desc: "id " + id, Sel: "#" + id, By: chromedp.ByQuery}
}

// Name locates an element by its name attribute
func Name(name string) Candidate {
	return Candidate{Desc: "name " + name, Sel: `[name="` + name + `"]`, By: chromedp.ByQuery}
}

// CSS locates an element by CSS selector
func CSS(sel string) Candidate {
	return Candidate{Desc: "css " + sel, Sel: sel, By: chromedp.ByQuery}
}

// XPath locates an element by XPath expression
func XPath(expr string) Candidate {
	return Candidate{Desc: "xpath " + expr, Sel: expr, By: chromedp.BySearch}
}

// FirstPresent returns the first candidate whose element becomes ready within
// wait. Candidates are tried in order
func (s *Session) FirstPresent(candidates []Candidate, wait time.Duration) (Candidate, error) {
	strategies := make([]Strategy, len(candidates))
	for i, c := range candidates {
		strategies[i] = Strategy{
			Name: c.Desc,
			Run: func(ctx context.Context) (string, error) {
				tctx, cancel := context.WithTimeout(ctx, wait)
				defer cancel()
				if err := chromedp.Run(tctx, chromedp.WaitReady(c.Sel, c.By)); err != nil {
					return "", err
				}
				return c.Desc, nil
			},
		}
	}

	name, _, err := FirstMatch(s.ctx, s.log, strategies, nil)
	if err != nil {
		return Candidate{}, err
	}
	for _, c := range candidates {
		if c.Desc == name {
			s.log.Infof("Found element with %s", name)
			return c, nil
		}
	}
	return Candidate{}, ErrNoMatch
}

// TextOf reads the text of the element c locates, waiting at most wait
func (s *Session) TextOf(c Candidate, wait time.Duration) Strategy {
	return Strategy{
		Name: c.Desc,
		Run: func(ctx context.Context) (string, error) {
			tctx, cancel := context.WithTimeout(ctx, wait)
			defer cancel()
			var text string
			err := chromedp.Run(tctx, chromedp.Text(c.Sel, &text, c.By))
			return text, err
		},
	}
}

// Eval runs a JavaScript expression that yields a string
func (s *Session) Eval(name, js string) Strategy {
	return Strategy{
		Name: name,
		Run: func(ctx context.Context) (string, error) {
			var out string
			err := chromedp.Run(ctx, chromedp.Evaluate(js, &out))
			return out, err
		},
	}
}
