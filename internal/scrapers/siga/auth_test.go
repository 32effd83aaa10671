package siga

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitUntil(t *testing.T) {
	ctx := context.Background()

	held, err := waitUntil(ctx, time.Second, time.Millisecond, func() bool { return true })
	require.NoError(t, err)
	require.True(t, held)

	var calls int32
	held, err = waitUntil(ctx, time.Second, time.Millisecond, func() bool {
		return atomic.AddInt32(&calls, 1) >= 3
	})
	require.NoError(t, err)
	require.True(t, held)

	start := time.Now()
	held, err = waitUntil(ctx, 30*time.Millisecond, 5*time.Millisecond, func() bool { return false })
	require.NoError(t, err)
	require.False(t, held)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = waitUntil(canceled, time.Second, time.Millisecond, func() bool { return false })
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsLoginPage(t *testing.T) {
	require.True(t, isLoginPage("https://siga.cps.sp.gov.br/aluno/login.aspx"))
	require.True(t, isLoginPage("https://siga.cps.sp.gov.br/aluno/login.aspx?erro=1"))
	require.False(t, isLoginPage("https://siga.cps.sp.gov.br/aluno/home.aspx"))
}

func TestAuthStateString(t *testing.T) {
	require.Equal(t, "not-started", AuthNotStarted.String())
	require.Equal(t, "form-filled", AuthFormFilled.String())
	require.Equal(t, "submitted", AuthSubmitted.String())
	require.Equal(t, "authenticated", AuthAuthenticated.String())
	require.Equal(t, "rejected", AuthRejected.String())
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{BaseUrl: "http://localhost:8080/aluno"}.withDefaults()
	require.Equal(t, "http://localhost:8080/aluno/", opts.BaseUrl)
	require.Equal(t, "http://localhost:8080/aluno/login.aspx", opts.pageUrl(login_page))
	require.Equal(t, 300*time.Millisecond, opts.SettleDelay)
	require.Equal(t, 400*time.Millisecond, opts.SubmitTimeout)
	require.Equal(t, DefaultGradeLayout, opts.GradeLayout)
}
