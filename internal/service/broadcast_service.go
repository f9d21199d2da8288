package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"giftshop-bot/internal/metrics"
)

type targetLister interface {
	ListBroadcastTargets(ctx context.Context) ([]int64, error)
}

// TextSender delivers a plain message. It returns ErrRecipientUnavailable
// (possibly wrapped) when the recipient cannot be reached for expected reasons.
type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// BroadcastResult is the tally of one broadcast run. Sent+Failed always equals Targets.
type BroadcastResult struct {
	JobID       string
	Targets     int
	Sent        int
	Failed      int
	Unavailable int
}

// BroadcastService fans an admin message out to every non-banned user.
type BroadcastService struct {
	users   targetLister
	sender  TextSender
	limiter *rate.Limiter
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewBroadcastService spaces sends by interval across all runs. A non-positive interval disables the delay.
func NewBroadcastService(users targetLister, sender TextSender, interval time.Duration, log logrus.FieldLogger, m *metrics.Metrics) *BroadcastService {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &BroadcastService{
		users:   users,
		sender:  sender,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
		metrics: m,
	}
}

// Targets lists the identities a broadcast would reach.
func (s *BroadcastService) Targets(ctx context.Context) ([]int64, error) {
	ids, err := s.users.ListBroadcastTargets(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list broadcast targets", Err: err}
	}
	return ids, nil
}

// Broadcast resolves the targets and delivers body to each of them.
func (s *BroadcastService) Broadcast(ctx context.Context, body string) (BroadcastResult, error) {
	if strings.TrimSpace(body) == "" {
		return BroadcastResult{}, invalidf("empty broadcast body")
	}
	targets, err := s.Targets(ctx)
	if err != nil {
		return BroadcastResult{}, err
	}
	return s.Deliver(ctx, uuid.NewString(), targets, body), nil
}

// Deliver sends body to targets one by one. A failed send is counted and skipped.
// When ctx is cancelled the remaining targets are counted as failed.
func (s *BroadcastService) Deliver(ctx context.Context, jobID string, targets []int64, body string) BroadcastResult {
	res := BroadcastResult{JobID: jobID, Targets: len(targets)}
	logger := s.log.WithField("job_id", jobID)

	for i, id := range targets {
		if err := s.limiter.Wait(ctx); err != nil {
			rest := len(targets) - i
			res.Failed += rest
			logger.WithError(err).WithField("skipped", rest).Warn("broadcast interrupted")
			break
		}

		err := s.sender.SendText(ctx, id, body)
		switch {
		case err == nil:
			res.Sent++
			s.metrics.BroadcastDelivery("sent")
		case errors.Is(err, ErrRecipientUnavailable):
			res.Failed++
			res.Unavailable++
			s.metrics.BroadcastDelivery("unavailable")
			logger.WithError(err).WithField("user_id", id).Debug("broadcast recipient unavailable")
		default:
			res.Failed++
			s.metrics.BroadcastDelivery("failed")
			logger.WithError(err).WithField("user_id", id).Warn("broadcast send failed")
		}
	}

	logger.WithFields(logrus.Fields{"targets": res.Targets, "sent": res.Sent, "failed": res.Failed}).Info("broadcast finished")
	return res
}
