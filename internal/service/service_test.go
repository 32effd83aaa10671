package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"siga-backend/internal/browser"
	"siga-backend/internal/components/telemetry"
	"siga-backend/internal/scrapers/siga"
	"siga-backend/internal/scrapers/siga/sigatest"

	"github.com/stretchr/testify/require"
)

type fakeScraper struct {
	report siga.Report
	err    error
	calls  []siga.Credentials
}

func (f *fakeScraper) Scrape(ctx context.Context, creds siga.Credentials) (siga.Report, error) {
	f.calls = append(f.calls, creds)
	return f.report, f.err
}

func request(t *testing.T, handler http.Handler, method, user, password string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/info", nil)
	if user != "" || password != "" {
		req.SetBasicAuth(user, password)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestInfo(t *testing.T) {
	table := []struct {
		name     string
		user     string
		password string
		err      error
		status   int
		body     string
		scraped  bool
	}{
		{
			name:   "no credentials",
			status: http.StatusUnauthorized,
			body:   `{"error":"Usuário não autorizado."}`,
		},
		{
			name:   "empty password",
			user:   "user",
			status: http.StatusUnauthorized,
			body:   `{"error":"Usuário não autorizado."}`,
		},
		{
			name:     "rejected",
			user:     "user",
			password: "wrong",
			err:      siga.ErrInvalidCredentials,
			status:   http.StatusUnauthorized,
			body:     `{"error":"Usuário ou senha inválidos."}`,
			scraped:  true,
		},
		{
			name:     "portal failure",
			user:     "user",
			password: "pass",
			err:      &siga.TransportError{Op: "navigate", Url: "https://siga", Err: errors.New("timeout")},
			status:   http.StatusInternalServerError,
			body:     `{"error":"siga: navigate https://siga: timeout"}`,
			scraped:  true,
		},
		{
			name:     "success",
			user:     "user",
			password: "pass:with:colons",
			status:   http.StatusOK,
			body:     `{"userInfo":{"RA":"1","name":"","semester":null,"email":"","image":""},"attendanceState":[],"grades":[]}`,
			scraped:  true,
		},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			scraper := &fakeScraper{
				err: test.err,
				report: siga.Report{
					User:       siga.User{RA: "1", Semester: siga.ParseSemester("")},
					Attendance: []siga.AttendanceRecord{},
					Grades:     []siga.GradeSubject{},
				},
			}
			tel := telemetry.NewTestAPI()
			handler := NewService(scraper, time.Second, tel).Router()

			rec := request(t, handler, http.MethodGet, test.user, test.password)
			require.Equal(t, test.status, rec.Code)
			require.JSONEq(t, test.body, rec.Body.String())
			require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Headers"))

			if !test.scraped {
				require.Empty(t, scraper.calls)
				return
			}
			require.Equal(t, []siga.Credentials{{User: test.user, Password: test.password}}, scraper.calls)
			require.Equal(t, test.status == http.StatusInternalServerError, tel.HasReport("broken", "service.info"))
		})
	}
}

func TestPreflight(t *testing.T) {
	handler := NewService(&fakeScraper{}, 0, telemetry.NewTestAPI()).Router()

	rec := request(t, handler, http.MethodOptions, "", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestInfoAgainstPortal(t *testing.T) {
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
	server := httptest.NewServer(NewService(scraper, 10*time.Second, tel).Router())
	defer server.Close()

	get := func(user, password string) (int, []byte) {
		req, err := http.NewRequest(http.MethodGet, server.URL+"/info", nil)
		require.NoError(t, err)
		req.SetBasicAuth(user, password)
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer res.Body.Close()

		var body json.RawMessage
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		return res.StatusCode, body
	}

	status, body := get(sigatest.User, sigatest.Password)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, string(sigatest.Golden()), string(body))

	status, body = get(sigatest.User, "wrong")
	require.Equal(t, http.StatusUnauthorized, status)
	require.JSONEq(t, `{"error":"Usuário ou senha inválidos."}`, string(body))

	require.Equal(t, 1, portal.Logins())
	require.Equal(t, 1, portal.Rejected())
}
