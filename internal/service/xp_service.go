package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"smart-planner/internal/deadline"
	"smart-planner/internal/metrics"
	"smart-planner/internal/model"
	"smart-planner/internal/repository"
)

const baseTaskXP = 2

var priorityBonus = map[string]int{
	model.PriorityLow:    0,
	model.PriorityMedium: 2,
	model.PriorityHigh:   4,
}

// TaskXP is the XP a task is worth when completed, before the daily cap.
func TaskXP(task model.Task) int {
	xp := baseTaskXP + priorityBonus[task.Priority]
	for _, tag := range repository.SplitTags(task.Tags) {
		if strings.EqualFold(tag, "study") {
			xp++
			break
		}
	}
	return xp
}

// XPService grants XP through a per-user daily bucket.
type XPService struct {
	users  *repository.UserRepository
	zone   deadline.Zone
	cap    int
	logger *zap.Logger
}

func NewXPService(users *repository.UserRepository, zone deadline.Zone, dailyCap int, logger *zap.Logger) *XPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &XPService{users: users, zone: zone, cap: dailyCap, logger: logger}
}

// DailyCap is the configured per-day XP limit.
func (s *XPService) DailyCap() int {
	return s.cap
}

// AwardWithCap adds up to requestedXP to the user's XP without letting the
// amount granted on the current bot-local day exceed dailyCap. The bucket is
// rolled over lazily: a bucket dated another day counts as empty. Completed
// tasks are always counted in full. It returns the XP actually applied.
func (s *XPService) AwardWithCap(ctx context.Context, userID uint, requestedXP, completedDelta, dailyCap int, now time.Time) (int, error) {
	today := s.zone.Date(now)
	requested := max(0, requestedXP)
	applied := 0

	_, err := s.users.UpdateBucket(ctx, userID, func(user *model.User) error {
		if user.XPBucketDate != today {
			user.XPBucketDate = today
			user.XPBucketUsed = 0
		}

		allowed := max(0, dailyCap-user.XPBucketUsed)
		applied = min(requested, allowed)

		user.XP += applied
		user.XPBucketUsed += applied
		user.Completed += max(0, completedDelta)
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.XPApplied.Add(float64(applied))
	metrics.XPOverCap.Add(float64(requested - applied))
	if applied < requested {
		s.logger.Info("xp capped",
			zap.Uint("user_id", userID),
			zap.Int("requested", requested),
			zap.Int("applied", applied),
			zap.String("day", today),
		)
	}
	return applied, nil
}

const leaderboardSize = 10

// Leaderboard lists the users with the most XP.
func (s *XPService) Leaderboard(ctx context.Context) ([]model.User, error) {
	return s.users.Top(ctx, leaderboardSize)
}

// UsedToday reports how much of the daily cap the user has used on the day of now.
func (s *XPService) UsedToday(user model.User, now time.Time) int {
	if user.XPBucketDate != s.zone.Date(now) {
		return 0
	}
	return user.XPBucketUsed
}
