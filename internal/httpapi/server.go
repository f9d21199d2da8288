// Package httpapi serves the ops endpoints and the storefront gift hook.
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"giftshop-bot/internal/metrics"
	"giftshop-bot/internal/model"
	"giftshop-bot/internal/service"
)

// GiftSender delivers a catalog gift to a recipient.
type GiftSender interface {
	Deliver(ctx context.Context, d service.GiftDelivery) (*model.Gift, error)
}

// Deps are the collaborators of the router. Nil Gifts or an empty token leaves the gift hook unmounted.
type Deps struct {
	Log             logrus.FieldLogger
	Metrics         *metrics.Metrics
	Health          func(ctx context.Context) error
	Gifts           GiftSender
	StorefrontToken string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(d.Log),
		middleware.Recoverer,
	)

	r.Get("/healthz", healthHandler(d.Health))
	if d.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	if d.Gifts != nil && d.StorefrontToken != "" {
		r.Route("/api", func(r chi.Router) {
			r.Use(bearerAuth(d.StorefrontToken))
			r.Post("/gifts/send", newGiftHandler(d.Log, d.Gifts).ServeHTTP)
		})
	}
	return r
}

// Run serves h on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("http server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, Error("storage unavailable"))
				return
			}
		}
		render.JSON(w, r, Response{Status: StatusOK})
	}
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	want := []byte("Bearer " + token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(strings.TrimSpace(r.Header.Get("Authorization")))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, Error("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
			}).Debug("http request")
		})
	}
}

type giftHandler struct {
	log      logrus.FieldLogger
	gifts    GiftSender
	validate *validator.Validate
}

func newGiftHandler(log logrus.FieldLogger, gifts GiftSender) *giftHandler {
	return &giftHandler{log: log, gifts: gifts, validate: validator.New()}
}

func (h *giftHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.WithField("request_id", middleware.GetReqID(r.Context()))

	var req service.GiftDelivery
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.WithError(err).Debug("decode gift request")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		render.Status(r, http.StatusBadRequest)
		if errors.As(err, &verrs) {
			render.JSON(w, r, ValidationError(verrs))
			return
		}
		render.JSON(w, r, Error("invalid request body"))
		return
	}

	gift, err := h.gifts.Deliver(r.Context(), req)
	if err != nil {
		status, msg := giftErrorStatus(err)
		if status >= http.StatusInternalServerError {
			log.WithError(err).WithField("gift_id", req.GiftID).Error("deliver gift")
		}
		render.Status(r, status)
		render.JSON(w, r, Error(msg))
		return
	}

	render.JSON(w, r, OKWithData(map[string]any{
		"gift_id":      gift.ID,
		"title":        gift.Title,
		"recipient_id": req.RecipientID,
	}))
}

func giftErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "gift not found"
	case errors.Is(err, service.ErrRecipientUnavailable):
		return http.StatusConflict, "recipient unavailable"
	}
	return http.StatusBadGateway, "delivery failed"
}
