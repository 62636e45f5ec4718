package store

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClampDelta(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		want int
	}{
		{"plain upvote", 1, 1},
		{"plain downvote", -1, -1},
		{"double up", 2, 2},
		{"double down", -2, -2},
		{"above range", 5, 2},
		{"below range", -9, -2},
		{"huge positive", 1e18, 2},
		{"huge negative", -1e18, -2},
		{"fraction truncates", 1.9, 1},
		{"negative fraction truncates toward zero", -1.9, -1},
		{"sub-unit truncates to zero", 0.5, 0},
		{"negative sub-unit truncates to zero", -0.5, 0},
		{"zero", 0, 0},
		{"NaN counts as upvote", math.NaN(), 1},
		{"positive infinity counts as upvote", math.Inf(1), 1},
		{"negative infinity counts as upvote", math.Inf(-1), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampDelta(tt.raw); got != tt.want {
				t.Errorf("ClampDelta(%v) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

// eachBackend runs fn once per storage backend so behavior stays uniform
// across them.
func eachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()

	t.Run("sqlite", func(t *testing.T) {
		tmpFile, err := os.CreateTemp("", "pointlab-contract-*.db")
		require.NoError(t, err)
		tmpFile.Close()
		defer os.Remove(tmpFile.Name())

		s, err := NewSQLiteStore(tmpFile.Name())
		require.NoError(t, err)
		defer s.Close()

		fn(t, s)
	})

	t.Run("json", func(t *testing.T) {
		s, err := NewJSONStore(t.TempDir())
		require.NoError(t, err)
		defer s.Close()

		fn(t, s)
	})
}

func TestBackendsVoteScenario(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		topic := &Topic{Name: "T1"}
		require.NoError(t, s.CreateTopic(ctx, topic))

		point := &Point{TopicID: topic.ID, Description: "P1"}
		require.NoError(t, s.CreatePoint(ctx, point))

		comment := &Comment{PointID: point.ID, Content: "C1"}
		require.NoError(t, s.CreateComment(ctx, comment))

		// Two upvotes on the point.
		_, err := s.VotePoint(ctx, point.ID, 1)
		require.NoError(t, err)
		voted, err := s.VotePoint(ctx, point.ID, 1)
		require.NoError(t, err)
		require.Equal(t, 2, voted.Upvotes)

		fetchedTopic, err := s.GetTopic(ctx, topic.ID)
		require.NoError(t, err)
		require.Equal(t, 1, fetchedTopic.Count)

		fetchedPoint, err := s.GetPoint(ctx, point.ID)
		require.NoError(t, err)
		require.Equal(t, 1, fetchedPoint.Comments)
	})
}

func TestBackendsVoteClamping(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		topic := &Topic{Name: "Clamped"}
		require.NoError(t, s.CreateTopic(ctx, topic))

		// An absurd delta applies at most +2.
		voted, err := s.VoteTopic(ctx, topic.ID, 9000)
		require.NoError(t, err)
		require.Equal(t, 2, voted.Score)

		// NaN counts as a single upvote.
		voted, err = s.VoteTopic(ctx, topic.ID, math.NaN())
		require.NoError(t, err)
		require.Equal(t, 3, voted.Score)

		// Scores may go negative; there is no floor on the aggregate.
		for i := 0; i < 3; i++ {
			voted, err = s.VoteTopic(ctx, topic.ID, -2)
			require.NoError(t, err)
		}
		require.Equal(t, -3, voted.Score)

		// Voting on a missing entity is a not-found, not an error.
		missing, err := s.VoteTopic(ctx, "no-such-topic", 1)
		require.NoError(t, err)
		require.Nil(t, missing)
	})
}

func TestBackendsNotFoundConvention(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		topic, err := s.GetTopic(ctx, "missing")
		require.NoError(t, err)
		require.Nil(t, topic)

		point, err := s.GetPoint(ctx, "missing")
		require.NoError(t, err)
		require.Nil(t, point)

		comment, err := s.GetComment(ctx, "missing")
		require.NoError(t, err)
		require.Nil(t, comment)

		user, err := s.GetUser(ctx, "missing")
		require.NoError(t, err)
		require.Nil(t, user)

		guest, err := s.GetGuest(ctx, "missing")
		require.NoError(t, err)
		require.Nil(t, guest)

		session, err := s.GetSession(ctx, "missing")
		require.NoError(t, err)
		require.Nil(t, session)

		report, err := s.GetReport(ctx, "missing")
		require.NoError(t, err)
		require.Nil(t, report)
	})
}

func TestBackendsDuplicateEmailRefusal(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		first := &User{Provider: ProviderLocal, Email: "dup@example.com"}
		require.NoError(t, s.CreateUser(ctx, first))
		require.NotEmpty(t, first.ID)

		second := &User{Provider: ProviderLocal, Email: "dup@example.com"}
		require.NoError(t, s.CreateUser(ctx, second))
		require.Empty(t, second.ID)
	})
}
