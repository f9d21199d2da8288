package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"giftshop-bot/internal/metrics"
)

// Decision is the outcome of the access gate.
type Decision int

const (
	// DecisionAllow lets the event through to the handlers.
	DecisionAllow Decision = iota
	// DecisionAdmin lets the event through and marks the sender as admin.
	DecisionAdmin
	// DecisionBlocked stops the event; the sender gets the block notice.
	DecisionBlocked
	// DecisionUnavailable stops the event because the ban list could not be read.
	DecisionUnavailable
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionAdmin:
		return "admin"
	case DecisionBlocked:
		return "blocked"
	case DecisionUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Permitted reports whether handlers may run.
func (d Decision) Permitted() bool {
	return d == DecisionAllow || d == DecisionAdmin
}

type userRecorder interface {
	Upsert(ctx context.Context, platformID int64, handle string) error
}

type banChecker interface {
	IsBanned(ctx context.Context, platformID int64) (bool, error)
}

// AccessGate runs before every handler: it records the sender, applies the
// admin override and enforces the ban list.
type AccessGate struct {
	users   userRecorder
	bans    banChecker
	admin   AdminIdentity
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

func NewAccessGate(users userRecorder, bans banChecker, admin AdminIdentity, log logrus.FieldLogger, m *metrics.Metrics) *AccessGate {
	return &AccessGate{users: users, bans: bans, admin: admin, log: log, metrics: m}
}

// Check decides whether the event from who may proceed.
func (g *AccessGate) Check(ctx context.Context, who Identity) Decision {
	decision := g.check(ctx, who)
	g.metrics.GateDecision(decision.String())
	return decision
}

func (g *AccessGate) check(ctx context.Context, who Identity) Decision {
	// the directory must grow even when storage is flaky
	if err := g.users.Upsert(ctx, who.ID, who.Handle); err != nil {
		g.log.WithError(err).WithField("user_id", who.ID).Warn("record user")
	}

	if g.admin.Matches(who) {
		return DecisionAdmin
	}

	banned, err := g.bans.IsBanned(ctx, who.ID)
	if err != nil {
		g.log.WithError(err).WithField("user_id", who.ID).Error("ban lookup failed, dropping event")
		return DecisionUnavailable
	}
	if banned {
		return DecisionBlocked
	}
	return DecisionAllow
}

// IsAdmin reports whether who is the configured administrator.
func (g *AccessGate) IsAdmin(who Identity) bool {
	return g.admin.Matches(who)
}
