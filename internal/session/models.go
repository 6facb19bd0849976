package session

import "time"

// Cookie is the serializable subset of a browser cookie that reattaches a
// later automation run to the portal-side state of an earlier one.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitempty"`
	HTTPOnly bool      `json:"httpOnly"`
	Secure   bool      `json:"secure"`
}

// VerificationSession is the intermediate state between the challenge phase
// and the submission phase. Created by the orchestrator, consumed exactly once
// by the executor, garbage-collected by the store after the TTL.
type VerificationSession struct {
	ID        string    `json:"id"`
	Cookies   []Cookie  `json:"cookies"`
	CreatedAt time.Time `json:"createdAt"`
}
