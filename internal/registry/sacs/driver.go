// Package sacs implements the health-professional registry flow: a single
// scripted consultation that fills the public search form, reads the result
// tables, and classifies the registered professions for eligibility.
package sacs

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"regverify/internal/browser"
	"regverify/internal/platform/config"
	"regverify/internal/proxy"
)

const (
	// The registry backend is slow to populate the result tables after the
	// basic table appears, hence the generous settle pauses.
	resultsTimeout     = 20 * time.Second
	professionsTimeout = 5 * time.Second
	tablesSettle       = 3 * time.Second
	postgradSettle     = 4 * time.Second
	selectSettle       = 500 * time.Millisecond
)

// PageData is the raw material the parser works on: the result tables as
// rendered, captured before the browser context is torn down.
type PageData struct {
	// Found is false when the portal rendered no result for the query.
	Found bool
	// BasicHTML is the personal-data table (name, document number).
	BasicHTML string
	// ProfessionsHTML is the registered-professions table.
	ProfessionsHTML string
	// PostgraduatesHTML is the expanded postgraduate table, empty when the
	// first profession row carries no expansion button.
	PostgraduatesHTML string
}

// Driver runs the browser-level consultation. The scraper owns retries and
// record building on top of it; tests swap in a counting fake.
type Driver interface {
	Lookup(ctx context.Context, documentType, cedula string) (*PageData, error)
}

// ChromeDriver drives a real Chrome against the registry portal.
type ChromeDriver struct {
	cfg    config.Portal
	egress proxy.Egress
}

// NewChromeDriver constructs a ChromeDriver.
func NewChromeDriver(cfg config.Portal, egress proxy.Egress) *ChromeDriver {
	return &ChromeDriver{cfg: cfg, egress: egress}
}

// selectOption sets a <select> value and fires the change event the portal's
// scripts listen for. chromedp.SetValue alone does not dispatch it.
func selectOption(sel, value string) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.SetValue(sel, value, chromedp.ByQuery),
		chromedp.Evaluate(
			fmt.Sprintf(`document.querySelector(%q).dispatchEvent(new Event('change', {bubbles: true}))`, sel),
			nil,
		),
	}
}

// outerHTMLIfPresent reads an element's rendered HTML without blocking when
// the element never appears.
func outerHTMLIfPresent(sel string, out *string) chromedp.Action {
	return chromedp.Evaluate(
		fmt.Sprintf(`(() => { const el = document.querySelector(%q); return el ? el.outerHTML : ''; })()`, sel),
		out,
	)
}

func (d *ChromeDriver) Lookup(ctx context.Context, documentType, cedula string) (*PageData, error) {
	// Detached from the request context: a caller disconnect must not abort
	// the consultation mid-flight. The nav timeout still bounds it.
	bctx, cancel := browser.NewContext(context.WithoutCancel(ctx), browser.Config{
		UserAgent: d.cfg.UserAgent,
		Headless:  d.cfg.Headless,
		Egress:    d.egress,
	})
	defer cancel()

	if err := browser.EnableProxyAuth(bctx, d.egress); err != nil {
		return nil, fmt.Errorf("enable proxy auth: %w", err)
	}

	navCtx, navCancel := context.WithTimeout(bctx, d.cfg.NavTimeout)
	defer navCancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(d.cfg.ProfessionalURL),
		chromedp.WaitVisible(`#tipo`, chromedp.ByQuery),
		selectOption(`#tipo`, "1"),
		chromedp.Sleep(selectSettle),
		chromedp.WaitVisible(`#datajs`, chromedp.ByQuery),
		selectOption(`#datajs`, documentType),
		chromedp.Sleep(selectSettle),
		chromedp.Clear(`#cedula_matricula`, chromedp.ByQuery),
		chromedp.SendKeys(`#cedula_matricula`, cedula, chromedp.ByQuery),
		chromedp.Click(`a.btn.btn-lg.btn-primary`, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("submit consultation form: %w", err)
	}

	// The portal renders results in place. No basic table within the window
	// means no record, not a navigation failure.
	waitCtx, waitCancel := context.WithTimeout(navCtx, resultsTimeout)
	err = chromedp.Run(waitCtx, chromedp.WaitVisible(`#tableUser table`, chromedp.ByQuery))
	waitCancel()
	if err != nil {
		if navCtx.Err() != nil {
			return nil, fmt.Errorf("await results: %w", navCtx.Err())
		}
		return &PageData{Found: false}, nil
	}

	if err := chromedp.Run(navCtx, chromedp.Sleep(tablesSettle)); err != nil {
		return nil, fmt.Errorf("settle result tables: %w", err)
	}

	// The professions table loads separately and may legitimately stay empty.
	profCtx, profCancel := context.WithTimeout(navCtx, professionsTimeout)
	_ = chromedp.Run(profCtx, chromedp.WaitVisible(`#profesional tbody tr`, chromedp.ByQuery))
	profCancel()

	data := &PageData{Found: true}
	var hasPostgradButton bool
	err = chromedp.Run(navCtx,
		outerHTMLIfPresent(`#tableUser`, &data.BasicHTML),
		outerHTMLIfPresent(`#profesional`, &data.ProfessionsHTML),
		chromedp.Evaluate(
			`document.querySelector('#profesional tbody tr:first-child button') !== null`,
			&hasPostgradButton,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("read result tables: %w", err)
	}

	if hasPostgradButton {
		err = chromedp.Run(navCtx,
			chromedp.Click(`#profesional tbody tr:first-child button`, chromedp.ByQuery),
			chromedp.Sleep(postgradSettle),
			chromedp.Evaluate(
				`(() => {
					const div = document.querySelector('#divTablaProfesiones');
					if (!div || div.style.display === 'none') return '';
					const table = div.querySelector('#grd_prof');
					return table ? table.outerHTML : '';
				})()`,
				&data.PostgraduatesHTML,
			),
		)
		if err != nil {
			// A record without its postgraduate expansion is still usable.
			data.PostgraduatesHTML = ""
		}
	}

	return data, nil
}
