package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"giftshop-bot/internal/model"
	"giftshop-bot/internal/repository"
)

const (
	DefaultLogLimit  = 20
	MaxLogLimit      = 100
	DefaultUserLimit = 50
	MaxUserLimit     = 500
)

type eventStore interface {
	Append(ctx context.Context, event *model.LogEvent) error
	List(ctx context.Context, filter repository.EventFilter) ([]model.LogEvent, error)
}

type userDirectory interface {
	FindByPlatformID(ctx context.Context, platformID int64) (*model.User, error)
	List(ctx context.Context, limit, offset int) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
	CountValidSubscribers(ctx context.Context, now time.Time) (int64, error)
}

type banLookup interface {
	Find(ctx context.Context, platformID int64) (*model.Ban, error)
	Count(ctx context.Context) (int64, error)
}

// UserRow is one line of the user directory listing.
type UserRow struct {
	PlatformID int64
	Handle     string
	Valid      bool
	Until      *time.Time
}

// UserInfo is the admin view of a single identity.
type UserInfo struct {
	PlatformID int64
	Known      bool
	Handle     string
	Valid      bool
	Until      *time.Time
	Banned     bool
	BanReason  string
	BannedAt   time.Time
}

// Stats summarizes the directory.
type Stats struct {
	Users       int64
	Subscribers int64
	Banned      int64
}

// AuditService keeps the append-only event log and answers the admin read queries.
type AuditService struct {
	events eventStore
	users  userDirectory
	bans   banLookup
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewAuditService(events eventStore, users userDirectory, bans banLookup, log logrus.FieldLogger) *AuditService {
	return &AuditService{events: events, users: users, bans: bans, log: log, now: time.Now}
}

// Record appends an event. A zero actor is stored as a system event.
// Failures are logged and never reach the caller.
func (a *AuditService) Record(ctx context.Context, actor int64, action, details string) {
	event := &model.LogEvent{Action: action, Details: details}
	if actor != 0 {
		id := actor
		event.PlatformID = &id
	}
	if err := a.events.Append(ctx, event); err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{"action": action, "actor": actor}).Warn("append audit event")
	}
}

// Logs returns the newest events first, optionally for a single identity.
func (a *AuditService) Logs(ctx context.Context, target *int64, limit int) ([]model.LogEvent, error) {
	events, err := a.events.List(ctx, repository.EventFilter{
		PlatformID: target,
		Limit:      clamp(limit, DefaultLogLimit, MaxLogLimit),
	})
	if err != nil {
		return nil, &PersistenceError{Op: "list events", Err: err}
	}
	return events, nil
}

// Users pages through the directory, newest platform ids first.
func (a *AuditService) Users(ctx context.Context, limit, offset int) ([]UserRow, error) {
	if offset < 0 {
		offset = 0
	}
	users, err := a.users.List(ctx, clamp(limit, DefaultUserLimit, MaxUserLimit), offset)
	if err != nil {
		return nil, &PersistenceError{Op: "list users", Err: err}
	}

	now := a.now()
	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, UserRow{
			PlatformID: u.PlatformID,
			Handle:     u.Handle,
			Valid:      u.SubscriptionValid(now),
			Until:      u.SubscriptionUntil,
		})
	}
	return rows, nil
}

func (a *AuditService) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	var err error
	if stats.Users, err = a.users.Count(ctx); err != nil {
		return Stats{}, &PersistenceError{Op: "count users", Err: err}
	}
	if stats.Subscribers, err = a.users.CountValidSubscribers(ctx, a.now()); err != nil {
		return Stats{}, &PersistenceError{Op: "count subscribers", Err: err}
	}
	if stats.Banned, err = a.bans.Count(ctx); err != nil {
		return Stats{}, &PersistenceError{Op: "count bans", Err: err}
	}
	return stats, nil
}

// UserInfo reports an identity even when it has never written to the bot.
func (a *AuditService) UserInfo(ctx context.Context, platformID int64) (*UserInfo, error) {
	info := &UserInfo{PlatformID: platformID}

	user, err := a.users.FindByPlatformID(ctx, platformID)
	switch {
	case err == nil:
		info.Known = true
		info.Handle = user.Handle
		info.Valid = user.SubscriptionValid(a.now())
		info.Until = user.SubscriptionUntil
	case !repository.IsNotFound(err):
		return nil, &PersistenceError{Op: "find user", Err: err}
	}

	ban, err := a.bans.Find(ctx, platformID)
	switch {
	case err == nil:
		info.Banned = true
		info.BanReason = ban.Reason
		info.BannedAt = ban.BannedAt
	case !repository.IsNotFound(err):
		return nil, &PersistenceError{Op: "find ban", Err: err}
	}
	return info, nil
}

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
