// Package stats derives aggregate numbers - overview counts, DAU/MAU and the
// rolling point histogram - entirely from the repository contract. Day
// boundaries follow the local calendar, and every sub-metric degrades to
// zero on failure rather than aborting the whole response.
package stats

import (
	"context"
	"time"

	"github.com/chaoting1995/point-lab-sub000/internal/store"
)

const histogramDays = 28

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// Overview is the site-wide snapshot: total entity counts plus active-user
// figures.
type Overview struct {
	Users    int `json:"users"`
	Guests   int `json:"guests"`
	Topics   int `json:"topics"`
	Points   int `json:"points"`
	Comments int `json:"comments"`
	Reports  int `json:"reports"`
	DAU      int `json:"dau"`
	MAU      int `json:"mau"`
}

// DayCount is one histogram bucket. Date is the local calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// UserSums are a user's live activity totals, never cached.
type UserSums struct {
	PointUpvotes   int `json:"point_upvotes"`
	CommentUpvotes int `json:"comment_upvotes"`
	TopicScore     int `json:"topic_score"`
}

// Overview never fails as a whole: each count that cannot be computed is
// reported as zero.
func (s *Service) Overview(ctx context.Context) *Overview {
	return &Overview{
		Users:    zeroOnError(s.store.CountUsers(ctx)),
		Guests:   zeroOnError(s.store.CountGuests(ctx)),
		Topics:   zeroOnError(s.store.CountTopics(ctx)),
		Points:   zeroOnError(s.store.CountPoints(ctx)),
		Comments: zeroOnError(s.store.CountComments(ctx)),
		Reports:  zeroOnError(s.store.CountReports(ctx)),
		DAU:      s.activeSince(ctx, s.startOfDay(0)),
		MAU:      s.activeSince(ctx, s.startOfDay(-29)), // today plus the previous 29 days
	}
}

// activeSince counts distinct users with a session seen at or after the
// cutoff, plus guests seen in the same window.
func (s *Service) activeSince(ctx context.Context, since time.Time) int {
	active := 0

	sessions, err := s.store.SessionsSeenSince(ctx, since)
	if err == nil {
		seen := map[string]bool{}
		for _, sess := range sessions {
			if !seen[sess.UserID] {
				seen[sess.UserID] = true
				active++
			}
		}
	}

	guests, err := s.store.GuestsSeenSince(ctx, since)
	if err == nil {
		active += len(guests)
	}
	return active
}

// PointHistogram returns one bucket per trailing local calendar day, oldest
// first, zero-filled: a day with no activity still appears with count 0.
func (s *Service) PointHistogram(ctx context.Context) []DayCount {
	start := s.startOfDay(-(histogramDays - 1))

	buckets := map[string]int{}
	times, err := s.store.PointTimesSince(ctx, start)
	if err == nil {
		for _, t := range times {
			buckets[localDay(t)]++
		}
	}

	out := make([]DayCount, 0, histogramDays)
	for i := 0; i < histogramDays; i++ {
		day := localDay(start.AddDate(0, 0, i))
		out = append(out, DayCount{Date: day, Count: buckets[day]})
	}
	return out
}

// UserStats computes a user's totals live from their authored content.
func (s *Service) UserStats(ctx context.Context, userID string) *UserSums {
	return &UserSums{
		PointUpvotes:   zeroOnError(s.store.UserPointUpvotes(ctx, userID)),
		CommentUpvotes: zeroOnError(s.store.UserCommentUpvotes(ctx, userID)),
		TopicScore:     zeroOnError(s.store.UserTopicScore(ctx, userID)),
	}
}

// startOfDay returns local midnight of today shifted by offset days.
func (s *Service) startOfDay(offset int) time.Time {
	now := s.now().Local()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	return midnight.AddDate(0, 0, offset)
}

func localDay(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

func zeroOnError(n int, err error) int {
	if err != nil {
		return 0
	}
	return n
}
