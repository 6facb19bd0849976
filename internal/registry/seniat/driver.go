// Package seniat implements the two-phase taxpayer registry flow: obtain a
// challenge bound to a fresh portal session, then replay that session's
// cookies to submit the registry number together with the human-supplied
// answer.
package seniat

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/chromedp"

	"regverify/internal/browser"
	"regverify/internal/platform/config"
	"regverify/internal/proxy"
	"regverify/internal/retry"
	"regverify/internal/session"
)

const sessionCookieName = "JSESSIONID"

// ErrNoSessionCookie means the entry page loaded but the portal never issued
// its session cookie: it is down or blocking automation.
var ErrNoSessionCookie = errors.New("portal did not issue a session cookie")

// Driver runs the browser-level steps against the portal. The orchestrator
// and executor own session bookkeeping and retries on top of it; tests swap in
// a counting fake.
type Driver interface {
	// FetchChallenge establishes a fresh portal session and captures the
	// challenge image. The browser context is torn down before returning;
	// only the cookies carry the session forward.
	FetchChallenge(ctx context.Context) (cookies []session.Cookie, captchaPNG []byte, err error)
	// SubmitQuery replays the session cookies, fills the form, submits, and
	// returns the resulting document.
	SubmitQuery(ctx context.Context, cookies []session.Cookie, registryNumber, answer string) (pageHTML string, err error)
}

// ChromeDriver drives a real Chrome against the portal.
type ChromeDriver struct {
	cfg    config.Portal
	egress proxy.Egress
}

// NewChromeDriver constructs a ChromeDriver.
func NewChromeDriver(cfg config.Portal, egress proxy.Egress) *ChromeDriver {
	return &ChromeDriver{cfg: cfg, egress: egress}
}

func (d *ChromeDriver) browserConfig() browser.Config {
	return browser.Config{
		UserAgent: d.cfg.UserAgent,
		Headless:  d.cfg.Headless,
		Egress:    d.egress,
	}
}

func (d *ChromeDriver) FetchChallenge(ctx context.Context) ([]session.Cookie, []byte, error) {
	// Detached from the request context: a caller disconnect must not abort
	// the portal round trip mid-flight. The nav timeout still bounds it.
	bctx, cancel := browser.NewContext(context.WithoutCancel(ctx), d.browserConfig())
	defer cancel()

	if err := browser.EnableProxyAuth(bctx, d.egress); err != nil {
		return nil, nil, fmt.Errorf("enable proxy auth: %w", err)
	}

	navCtx, navCancel := context.WithTimeout(bctx, d.cfg.NavTimeout)
	defer navCancel()

	var cookies []session.Cookie
	var captcha []byte
	err := chromedp.Run(navCtx,
		chromedp.Navigate(d.cfg.TaxpayerURL),
		browser.CaptureCookies(&cookies),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("navigate to portal: %w", err)
	}

	if _, ok := browser.FindCookie(cookies, sessionCookieName); !ok {
		// Retryable: the portal may only be flapping.
		return nil, nil, retry.MarkTransient(ErrNoSessionCookie)
	}

	err = chromedp.Run(navCtx,
		chromedp.WaitVisible(`img[src="Captcha.jpg"]`, chromedp.ByQuery),
		chromedp.Screenshot(`img[src="Captcha.jpg"]`, &captcha, chromedp.ByQuery),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("capture challenge image: %w", err)
	}

	return cookies, captcha, nil
}

func (d *ChromeDriver) SubmitQuery(ctx context.Context, cookies []session.Cookie, registryNumber, answer string) (string, error) {
	bctx, cancel := browser.NewContext(context.WithoutCancel(ctx), d.browserConfig())
	defer cancel()

	if err := browser.EnableProxyAuth(bctx, d.egress); err != nil {
		return "", fmt.Errorf("enable proxy auth: %w", err)
	}

	navCtx, navCancel := context.WithTimeout(bctx, d.cfg.NavTimeout)
	defer navCancel()

	err := chromedp.Run(navCtx,
		browser.RestoreCookies(cookies),
		chromedp.Navigate(d.cfg.TaxpayerURL),
		chromedp.WaitVisible(`#p_rif`, chromedp.ByQuery),
		chromedp.SendKeys(`#p_rif`, registryNumber, chromedp.ByQuery),
		chromedp.SendKeys(`#codigo`, answer, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("fill query form: %w", err)
	}

	// Click submits the form; RunResponse waits out the resulting navigation.
	if _, err := chromedp.RunResponse(navCtx, chromedp.Click(`input[name="busca"]`, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("submit query: %w", err)
	}

	var pageHTML string
	if err := chromedp.Run(navCtx, chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read result page: %w", err)
	}
	return pageHTML, nil
}
