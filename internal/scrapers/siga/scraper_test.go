package siga_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"siga-backend/internal/browser"
	"siga-backend/internal/components/telemetry"
	"siga-backend/internal/scrapers/siga"
	"siga-backend/internal/scrapers/siga/sigatest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var validCreds = siga.Credentials{User: sigatest.User, Password: sigatest.Password}

func newScraper(t *testing.T) (siga.Scraper, *sigatest.Portal, telemetry.TestAPI) {
	portal := sigatest.NewPortal(t)
	tel := telemetry.NewTestAPI()
	scraper := siga.NewScraper(
		browser.NewFactory(browser.Options{}, tel),
		siga.Options{
			BaseUrl:       portal.BaseUrl(),
			SettleDelay:   time.Millisecond,
			SubmitTimeout: 100 * time.Millisecond,
			PollInterval:  10 * time.Millisecond,
			WaitTimeout:   time.Second,
		},
		tel,
	)
	return scraper, portal, tel
}

func newPage(t *testing.T) siga.Page {
	page, err := browser.New(browser.Options{}, telemetry.NewTestAPI())
	require.NoError(t, err)
	t.Cleanup(func() { page.Close() })
	return page
}

func golden(t *testing.T) siga.Report {
	var report siga.Report
	require.NoError(t, json.Unmarshal(sigatest.Golden(), &report))
	return report
}

func TestScrape(t *testing.T) {
	scraper, portal, _ := newScraper(t)
	ctx := context.Background()

	report, err := scraper.Scrape(ctx, validCreds)
	require.NoError(t, err)
	require.Equal(t, 1, portal.Logins())

	out, err := json.Marshal(report)
	require.NoError(t, err)
	require.JSONEq(t, string(sigatest.Golden()), string(out))

	if diff := cmp.Diff(golden(t), report); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}

	// every scrape logs in again on a fresh page
	again, err := scraper.Scrape(ctx, validCreds)
	require.NoError(t, err)
	require.Equal(t, 2, portal.Logins())
	if diff := cmp.Diff(report, again); diff != "" {
		t.Fatalf("scrape is not deterministic (-first +second):\n%s", diff)
	}
}

func TestScrapeErrors(t *testing.T) {
	scraper, portal, _ := newScraper(t)
	ctx := context.Background()

	_, err := scraper.Scrape(ctx, siga.Credentials{User: sigatest.User})
	require.ErrorIs(t, err, siga.ErrMissingCredentials)
	require.Equal(t, "Usuário não autorizado.", err.Error())

	_, err = scraper.Scrape(ctx, siga.Credentials{User: sigatest.User, Password: "wrong"})
	require.ErrorIs(t, err, siga.ErrInvalidCredentials)
	require.Equal(t, "Usuário ou senha inválidos.", err.Error())

	require.Equal(t, 0, portal.Logins())
	require.Equal(t, 1, portal.Rejected())
}

func TestAuthenticate(t *testing.T) {
	scraper, portal, _ := newScraper(t)
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		page := newPage(t)
		require.NoError(t, scraper.Authenticate(ctx, page, validCreds))
		require.NotContains(t, page.URL(), "login.aspx")
		require.True(t, strings.HasSuffix(page.URL(), "/aluno/home.aspx"))
	})

	t.Run("invalid", func(t *testing.T) {
		page := newPage(t)
		err := scraper.Authenticate(ctx, page, siga.Credentials{User: sigatest.User, Password: "wrong"})
		require.ErrorIs(t, err, siga.ErrInvalidCredentials)
		require.Contains(t, page.URL(), "login.aspx")
		require.Equal(t, 1, portal.Rejected())
	})

	t.Run("missing", func(t *testing.T) {
		page := newPage(t)
		err := scraper.Authenticate(ctx, page, siga.Credentials{Password: sigatest.Password})
		require.ErrorIs(t, err, siga.ErrMissingCredentials)
		require.Equal(t, "", page.URL())
	})

	t.Run("unreachable", func(t *testing.T) {
		offline := siga.NewScraper(nil, siga.Options{BaseUrl: "http://127.0.0.1:1/aluno/"}, telemetry.NewTestAPI())
		err := offline.Authenticate(ctx, newPage(t), validCreds)

		var transportErr *siga.TransportError
		require.True(t, errors.As(err, &transportErr))
		require.Equal(t, "navigate", transportErr.Op)
	})
}

func TestExtractProfile(t *testing.T) {
	scraper, _, _ := newScraper(t)
	ctx := context.Background()
	page := newPage(t)
	require.NoError(t, scraper.Authenticate(ctx, page, validCreds))

	first, err := scraper.ExtractProfile(ctx, page)
	require.NoError(t, err)
	require.Equal(t, golden(t).User, first)

	second, err := scraper.ExtractProfile(ctx, page)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

const profileTemplate = `<html><body>
<div id="MPW0041FOTO"><img src="/image/foto.jpg"></div>
<span id="span_MPW0041vPRO_PESSOALNOME">JOÃO</span>
<span id="span_MPW0041vACD_ALUNOCURSOREGISTROACADEMICOCURSO">42</span>
<span id="span_MPW0041vACD_ALUNOCURSOCICLOATUAL">%SEMESTER%</span>
%EMAIL%
</body></html>`

func offlineProfile(semester, email string) string {
	body := strings.Replace(profileTemplate, "%SEMESTER%", semester, 1)
	return strings.Replace(body, "%EMAIL%", email, 1)
}

func TestExtractProfileOffline(t *testing.T) {
	ctx := context.Background()
	const emailSpan = `<span id="span_MPW0041vINSTITUCIONALFATEC">joao@fatec.sp.gov.br</span>`

	t.Run("semester is not a number", func(t *testing.T) {
		tel := telemetry.NewTestAPI()
		scraper := siga.NewScraper(nil, siga.Options{}, tel)
		page, err := browser.FromReader("https://siga.cps.sp.gov.br/aluno/home.aspx", strings.NewReader(offlineProfile("abc", emailSpan)))
		require.NoError(t, err)

		user, err := scraper.ExtractProfile(ctx, page)
		require.NoError(t, err)
		require.True(t, user.Semester.IsNaN())
		require.Equal(t, "https://siga.cps.sp.gov.br/image/foto.jpg", user.Image)
		require.True(t, tel.HasReport("warning", "profile.extract"))

		out, err := json.Marshal(user)
		require.NoError(t, err)
		require.Contains(t, string(out), `"semester":null`)
	})

	t.Run("missing field", func(t *testing.T) {
		tel := telemetry.NewTestAPI()
		scraper := siga.NewScraper(nil, siga.Options{WaitTimeout: time.Millisecond}, tel)
		page, err := browser.FromReader("https://siga.cps.sp.gov.br/aluno/home.aspx", strings.NewReader(offlineProfile("3", "")))
		require.NoError(t, err)

		_, err = scraper.ExtractProfile(ctx, page)
		var extractionErr *siga.ExtractionError
		require.True(t, errors.As(err, &extractionErr))
		require.Equal(t, "profile", extractionErr.Component)
		require.ErrorIs(t, err, siga.ErrElementNotFound)
		require.True(t, tel.HasReport("broken", "profile.extract"))
	})
}

func TestExtractAttendance(t *testing.T) {
	scraper, _, _ := newScraper(t)
	ctx := context.Background()
	page := newPage(t)
	require.NoError(t, scraper.Authenticate(ctx, page, validCreds))

	records, err := scraper.ExtractAttendance(ctx, page)
	require.NoError(t, err)
	require.Equal(t, golden(t).Attendance, records)
	require.True(t, strings.HasSuffix(page.URL(), "/aluno/faltasparciais.aspx"))
}

func TestExtractGrades(t *testing.T) {
	scraper, _, _ := newScraper(t)
	ctx := context.Background()
	page := newPage(t)
	require.NoError(t, scraper.Authenticate(ctx, page, validCreds))

	grades, err := scraper.ExtractGrades(ctx, page)
	require.NoError(t, err)
	require.Equal(t, golden(t).Grades, grades)
}

func TestExtractWithoutSession(t *testing.T) {
	scraper, _, tel := newScraper(t)
	ctx := context.Background()
	page := newPage(t)

	// the portal sends pages without a session back to the login form
	_, err := scraper.ExtractAttendance(ctx, page)
	var transportErr *siga.TransportError
	require.True(t, errors.As(err, &transportErr))
	require.ErrorIs(t, err, siga.ErrElementNotFound)
	require.Contains(t, page.URL(), "login.aspx")
	require.True(t, tel.HasReport("broken", "attendance.extract"))

	_, err = scraper.ExtractGrades(ctx, page)
	require.True(t, errors.As(err, &transportErr))
}

func TestReadOffline(t *testing.T) {
	scraper := siga.NewScraper(nil, siga.Options{}, telemetry.NewTestAPI())
	ctx := context.Background()
	expected := golden(t)

	page, err := browser.FromReader(
		"https://siga.cps.sp.gov.br/aluno/notasparciais.aspx",
		bytes.NewReader(sigatest.Fixture("notasparciais.html")),
	)
	require.NoError(t, err)
	grades, err := scraper.ReadGrades(ctx, page)
	require.NoError(t, err)
	require.Equal(t, expected.Grades, grades)

	page, err = browser.FromReader(
		"https://siga.cps.sp.gov.br/aluno/faltasparciais.aspx",
		bytes.NewReader(sigatest.Fixture("faltasparciais.html")),
	)
	require.NoError(t, err)
	records, err := scraper.ReadAttendance(ctx, page)
	require.NoError(t, err)
	require.Equal(t, expected.Attendance, records)
}

func TestReadAttendanceShortRow(t *testing.T) {
	scraper := siga.NewScraper(nil, siga.Options{}, telemetry.NewTestAPI())
	page, err := browser.FromReader("https://siga.cps.sp.gov.br/aluno/faltasparciais.aspx", strings.NewReader(`
<table id="Grid1ContainerTbl"><tbody>
<tr class="GridClearOdd"><th>Sigla</th></tr>
<tr class="GridClearOdd"><td>ESI001</td><td>Engenharia de Software I</td><td>20</td></tr>
</tbody></table>`))
	require.NoError(t, err)

	records, err := scraper.ReadAttendance(context.Background(), page)
	require.Nil(t, records)
	var extractionErr *siga.ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	require.Contains(t, extractionErr.Reason, "row 1")
}
