package siga

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

const (
	report_authenticator_authenticate = "authenticator.authenticate"
)

const (
	selector_login_user     = "#vSIS_USUARIOID"
	selector_login_password = "#vSIS_USUARIOSENHA"
	selector_login_submit   = "[name=BTCONFIRMA]"
)

// AuthState is a state of the login state machine:
// NotStarted -> FormFilled -> Submitted -> {Authenticated, Rejected}.
type AuthState int

const (
	AuthNotStarted AuthState = iota
	AuthFormFilled
	AuthSubmitted
	AuthAuthenticated
	AuthRejected
)

func (s AuthState) String() string {
	switch s {
	case AuthNotStarted:
		return "not-started"
	case AuthFormFilled:
		return "form-filled"
	case AuthSubmitted:
		return "submitted"
	case AuthAuthenticated:
		return "authenticated"
	case AuthRejected:
		return "rejected"
	}
	return "unknown"
}

// Authenticate logs page in with creds. It returns ErrInvalidCredentials when
// the portal keeps the page on the login form and a *TransportError when the
// login form could not be reached or filled.
func (s Scraper) Authenticate(ctx context.Context, page Page, creds Credentials) error {
	_, err := s.authenticate(ctx, page, creds)
	return err
}

func (s Scraper) authenticate(ctx context.Context, page Page, creds Credentials) (state AuthState, err error) {
	ctx, span := tracer.Start(ctx, "Authenticate")
	defer func() {
		span.SetAttributes(attribute.String("auth.state", state.String()))
		span.End()
	}()

	state = AuthNotStarted
	if creds.User == "" || creds.Password == "" {
		return state, ErrMissingCredentials
	}

	loginUrl := s.opts.pageUrl(login_page)
	err = page.Navigate(ctx, loginUrl)
	if err != nil {
		s.tel.ReportBroken(report_authenticator_authenticate, err, state.String())
		return state, transportError("navigate", loginUrl, err)
	}
	for _, selector := range []string{selector_login_user, selector_login_password} {
		_, err = page.WaitFor(ctx, selector, s.opts.WaitTimeout)
		if err != nil {
			s.tel.ReportBroken(report_authenticator_authenticate, err, selector)
			return state, transportError("wait for "+selector, loginUrl, err)
		}
	}

	// the form runs client side initialization after it appears
	err = sleep(ctx, s.opts.SettleDelay)
	if err != nil {
		return state, err
	}

	err = page.Type(ctx, selector_login_user, creds.User)
	if err != nil {
		return state, transportError("type "+selector_login_user, loginUrl, err)
	}
	err = page.Type(ctx, selector_login_password, creds.Password)
	if err != nil {
		return state, transportError("type "+selector_login_password, loginUrl, err)
	}
	state = AuthFormFilled

	_, err = page.WaitFor(ctx, selector_login_submit, s.opts.WaitTimeout)
	if err != nil {
		s.tel.ReportBroken(report_authenticator_authenticate, err, selector_login_submit)
		return state, transportError("wait for "+selector_login_submit, loginUrl, err)
	}
	err = page.Click(ctx, selector_login_submit)
	if err != nil {
		s.tel.ReportBroken(report_authenticator_authenticate, err, selector_login_submit)
		return state, transportError("click "+selector_login_submit, loginUrl, err)
	}
	state = AuthSubmitted

	left, err := waitUntil(ctx, s.opts.SubmitTimeout, s.opts.PollInterval, func() bool {
		return !isLoginPage(page.URL())
	})
	if err != nil {
		return state, err
	}
	if !left {
		// a login that is still navigating when the deadline passes lands
		// here too, there is no other signal to tell them apart
		state = AuthRejected
		s.tel.ReportDebug(report_authenticator_authenticate, state.String(), page.URL())
		return state, ErrInvalidCredentials
	}

	state = AuthAuthenticated
	return state, nil
}

func isLoginPage(url string) bool {
	return strings.Contains(url, login_page)
}

// waitUntil checks cond immediately and then every interval until it holds
// or timeout elapses, reporting whether it held.
func waitUntil(ctx context.Context, timeout, interval time.Duration, cond func() bool) (bool, error) {
	if cond() {
		return true, nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return cond(), nil
		case <-ticker.C:
			if cond() {
				return true, nil
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
