package siga

import (
	"context"
	"fmt"
	"strings"
	"time"

	"siga-backend/internal/components/assert"
	"siga-backend/internal/components/telemetry"
	"siga-backend/pkg/htmlutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("siga-backend/scrapers/siga")

const DefaultBaseUrl = "https://siga.cps.sp.gov.br/aluno/"

const (
	report_scraper_new_page   = "scraper.new-page"
	report_scraper_close_page = "scraper.close-page"
	report_scraper_scrape     = "scraper.scrape"
)

const (
	login_page      = "login.aspx"
	attendance_page = "faltasparciais.aspx"
	grades_page     = "notasparciais.aspx"
)

type Options struct {
	// BaseUrl is the portal's student area, the pages are resolved relative to it.
	BaseUrl string
	// SettleDelay is how long the login form is left to initialize before
	// typing into it.
	SettleDelay time.Duration
	// SubmitTimeout bounds how long the login waits to leave the login page
	// after submitting.
	SubmitTimeout time.Duration
	// PollInterval is how often the URL is checked while waiting on SubmitTimeout.
	PollInterval time.Duration
	// WaitTimeout bounds every wait for an element.
	WaitTimeout time.Duration
	GradeLayout GradeLayout
}

func (o Options) withDefaults() Options {
	if o.BaseUrl == "" {
		o.BaseUrl = DefaultBaseUrl
	}
	if !strings.HasSuffix(o.BaseUrl, "/") {
		o.BaseUrl += "/"
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = 300 * time.Millisecond
	}
	if o.SubmitTimeout == 0 {
		o.SubmitTimeout = 400 * time.Millisecond
	}
	if o.PollInterval == 0 {
		o.PollInterval = 50 * time.Millisecond
	}
	if o.WaitTimeout == 0 {
		o.WaitTimeout = 30 * time.Second
	}
	if o.GradeLayout == (GradeLayout{}) {
		o.GradeLayout = DefaultGradeLayout
	}
	return o
}

func (o Options) pageUrl(name string) string {
	return htmlutil.ResolveUrl(o.BaseUrl, name)
}

// Scraper drives one page through login and extraction of a student's
// profile, attendance and grades.
type Scraper struct {
	opts  Options
	pages PageFactory
	tel   telemetry.API
}

// NewScraper creates a Scraper, pages may be nil if Scrape is never called.
func NewScraper(pages PageFactory, opts Options, tel telemetry.API) Scraper {
	assert.NotNil(tel)
	return Scraper{
		opts:  opts.withDefaults(),
		pages: pages,
		tel:   telemetry.NewScopedAPI("siga", tel),
	}
}

func (s Scraper) Options() Options {
	return s.opts
}

// Scrape creates a fresh page, logs in with creds and extracts everything in
// order. The page is closed before returning, the first error aborts the
// remaining steps.
func (s Scraper) Scrape(ctx context.Context, creds Credentials) (Report, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()

	fail := func(step string, err error) (Report, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, step)
		return Report{}, err
	}

	if creds.User == "" || creds.Password == "" {
		return fail("credentials", ErrMissingCredentials)
	}
	assert.NotNil(s.pages)

	page, err := s.pages.NewPage(ctx)
	if err != nil {
		s.tel.ReportBroken(report_scraper_new_page, err)
		return fail("new page", fmt.Errorf("new page: %w", err))
	}
	defer func() {
		err := page.Close()
		if err != nil {
			s.tel.ReportWarning(report_scraper_close_page, err)
		}
	}()

	err = s.Authenticate(ctx, page, creds)
	if err != nil {
		return fail("authenticate", err)
	}
	user, err := s.ExtractProfile(ctx, page)
	if err != nil {
		return fail("profile", err)
	}
	attendance, err := s.ExtractAttendance(ctx, page)
	if err != nil {
		return fail("attendance", err)
	}
	grades, err := s.ExtractGrades(ctx, page)
	if err != nil {
		return fail("grades", err)
	}

	span.SetAttributes(
		attribute.Int("attendance.count", len(attendance)),
		attribute.Int("grades.count", len(grades)),
	)
	s.tel.ReportDebug(report_scraper_scrape, user.RA, len(attendance), len(grades))

	return Report{
		User:       user,
		Attendance: attendance,
		Grades:     grades,
	}, nil
}
