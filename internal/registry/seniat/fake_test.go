package seniat

import (
	"context"
	"sync"

	"regverify/internal/session"
)

// fakeDriver counts calls and replays scripted failures so the tests can pin
// down exactly how many portal round trips each path costs.
type fakeDriver struct {
	mu sync.Mutex

	cookies  []session.Cookie
	captcha  []byte
	pageHTML string

	// Per-call errors, consumed in order. Calls beyond the slice succeed.
	fetchErrs  []error
	submitErrs []error

	fetchCalls  int
	submitCalls int

	lastRegistryNumber string
	lastAnswer         string
	lastCookies        []session.Cookie
}

func (d *fakeDriver) FetchChallenge(context.Context) ([]session.Cookie, []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	call := d.fetchCalls
	d.fetchCalls++
	if call < len(d.fetchErrs) && d.fetchErrs[call] != nil {
		return nil, nil, d.fetchErrs[call]
	}
	return d.cookies, d.captcha, nil
}

func (d *fakeDriver) SubmitQuery(_ context.Context, cookies []session.Cookie, registryNumber, answer string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	call := d.submitCalls
	d.submitCalls++
	d.lastCookies = cookies
	d.lastRegistryNumber = registryNumber
	d.lastAnswer = answer
	if call < len(d.submitErrs) && d.submitErrs[call] != nil {
		return "", d.submitErrs[call]
	}
	return d.pageHTML, nil
}
