// Package service exposes the scraper over HTTP.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"siga-backend/internal/components/assert"
	"siga-backend/internal/components/telemetry"
	"siga-backend/internal/scrapers/siga"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("siga-backend/service")
var meter = otel.Meter("siga-backend/service")
var scrapeCounter, _ = meter.Int64Counter(
	"siga_scrapes",
	metric.WithDescription("Scrapes requested through /info, by outcome."),
)

const (
	report_service_info     = "service.info"
	report_service_encode   = "service.encode"
	report_service_requests = "service.requests"
)

// Scraper runs a full scrape for one set of credentials.
type Scraper interface {
	Scrape(ctx context.Context, creds siga.Credentials) (siga.Report, error)
}

type Service struct {
	scraper Scraper
	timeout time.Duration
	tel     telemetry.API
	served  *atomic.Int64
}

// NewService creates the service, timeout bounds a single scrape (0 for none).
func NewService(scraper Scraper, timeout time.Duration, tel telemetry.API) Service {
	assert.NotNil(scraper)
	assert.NotNil(tel)
	return Service{
		scraper: scraper,
		timeout: timeout,
		tel:     telemetry.NewScopedAPI("service", tel),
		served:  &atomic.Int64{},
	}
}

func (s Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/info", s.Info)
	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

// Info scrapes the student identified by the request's basic auth
// credentials. Credentials only live for the duration of the request.
func (s Service) Info(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "Info")
	defer span.End()

	user, password, ok := r.BasicAuth()
	if !ok || user == "" || password == "" {
		span.SetStatus(codes.Error, "unauthorized")
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: siga.ErrMissingCredentials.Error()})
		return
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	report, err := s.scraper.Scrape(ctx, siga.Credentials{User: user, Password: password})
	span.SetAttributes(attribute.String("duration", time.Since(start).String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		switch {
		case errors.Is(err, siga.ErrInvalidCredentials), errors.Is(err, siga.ErrMissingCredentials):
			countScrape(ctx, "rejected")
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		default:
			countScrape(ctx, "failed")
			s.tel.ReportBroken(report_service_info, err)
			s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}
		return
	}

	countScrape(ctx, "ok")
	s.tel.ReportCount(report_service_requests, s.served.Add(1))
	s.writeJSON(w, http.StatusOK, report)
}

func countScrape(ctx context.Context, outcome string) {
	scrapeCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (s Service) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		s.tel.ReportBroken(report_service_encode, err)
	}
}
