// Package browser owns the chromedp plumbing shared by the portal drivers:
// allocator flags, client identity, proxy wiring, the out-of-band proxy
// authentication hook, and cookie capture/restore. Every call site gets an
// isolated browser context and must cancel it before returning; cookies, not
// live browsers, carry state between calls.
package browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"regverify/internal/proxy"
	"regverify/internal/session"
)

// Config controls how a browser context is launched.
type Config struct {
	UserAgent string
	Headless  bool
	Egress    proxy.Egress
}

// NewContext launches an isolated browser context. The returned cancel tears
// down the whole allocator, so the Chrome process never outlives the call.
// The context chain starts from parent; pass context.Background() derived
// contexts when the automation must survive caller disconnects.
func NewContext(parent context.Context, cfg Config) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("ignore-certificate-errors", true),
	)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.Egress.Enabled() {
		opts = append(opts, chromedp.ProxyServer(cfg.Egress.Server))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	cancel := func() {
		cancelCtx()
		cancelAlloc()
	}
	return ctx, cancel
}

// EnableProxyAuth installs the authentication hook that answers the proxy's
// credential challenge. Must run before the first navigation; a no-op when the
// egress carries no credentials.
func EnableProxyAuth(ctx context.Context, egress proxy.Egress) error {
	if !egress.Authenticated() {
		return nil
	}

	c := chromedp.FromContext(ctx)

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev := ev.(type) {
		case *fetch.EventAuthRequired:
			go func() {
				exec := cdp.WithExecutor(ctx, c.Target)
				_ = fetch.ContinueWithAuth(ev.RequestID, &fetch.AuthChallengeResponse{
					Response: fetch.AuthChallengeResponseResponseProvideCredentials,
					Username: egress.Username,
					Password: egress.Password,
				}).Do(exec)
			}()
		case *fetch.EventRequestPaused:
			go func() {
				exec := cdp.WithExecutor(ctx, c.Target)
				_ = fetch.ContinueRequest(ev.RequestID).Do(exec)
			}()
		}
	})

	return chromedp.Run(ctx, fetch.Enable().WithHandleAuthRequests(true))
}

// CaptureCookies reads all cookies from the browser into out.
func CaptureCookies(out *[]session.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		cookies := make([]session.Cookie, 0, len(raw))
		for _, c := range raw {
			cookie := session.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
			}
			if c.Expires > 0 {
				cookie.Expires = time.Unix(int64(c.Expires), 0)
			}
			cookies = append(cookies, cookie)
		}
		*out = cookies
		return nil
	})
}

// RestoreCookies injects stored cookies into a fresh browser context, which is
// what reattaches the run to the portal's server-side session.
func RestoreCookies(cookies []session.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			p := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if !c.Expires.IsZero() {
				expires := cdp.TimeSinceEpoch(c.Expires)
				p = p.WithExpires(&expires)
			}
			if err := p.Do(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindCookie returns the named cookie, if present.
func FindCookie(cookies []session.Cookie, name string) (session.Cookie, bool) {
	for _, c := range cookies {
		if c.Name == name {
			return c, true
		}
	}
	return session.Cookie{}, false
}
