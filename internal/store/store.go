package store

import (
	"context"
	"time"
)

// Store is the uniform repository contract served by both storage backends.
// Business logic never learns which backend is active: the choice is made
// once, in Open, and everything above it talks to this interface.
//
// Not-found is reported as a nil entity with a nil error. Refused creations
// (duplicate user email) follow the same convention.
type Store interface {
	// Topics
	CreateTopic(ctx context.Context, topic *Topic) error
	GetTopic(ctx context.Context, id string) (*Topic, error)
	ListTopics(ctx context.Context, opts ListOptions) ([]*Topic, int, error) // items plus total count
	UpdateTopic(ctx context.Context, topic *Topic) error
	DeleteTopic(ctx context.Context, id string) error // cascades to points and their comments
	VoteTopic(ctx context.Context, id string, delta float64) (*Topic, error)

	// Points
	CreatePoint(ctx context.Context, point *Point) error // bumps the parent topic count
	GetPoint(ctx context.Context, id string) (*Point, error)
	ListPoints(ctx context.Context, topicID string, opts ListOptions) ([]*Point, int, error)
	UpdatePoint(ctx context.Context, point *Point) error
	DeletePoint(ctx context.Context, id string) error // cascades to comments, decrements topic count
	VotePoint(ctx context.Context, id string, delta float64) (*Point, error)
	SharePoint(ctx context.Context, id string) (*Point, error) // increments the share counter

	// Comments. An empty parentID lists top-level comments enriched with a
	// live ChildCount; a parentID lists that thread's direct replies.
	CreateComment(ctx context.Context, comment *Comment) error // bumps the parent point's comment count
	GetComment(ctx context.Context, id string) (*Comment, error)
	ListComments(ctx context.Context, pointID, parentID string, opts ListOptions) ([]*Comment, int, error)
	UpdateComment(ctx context.Context, comment *Comment) error
	DeleteComment(ctx context.Context, id string) error
	VoteComment(ctx context.Context, id string, delta float64) (*Comment, error)

	// Users. CreateUser returns a nil error and leaves user.ID empty when the
	// email is already taken; DeleteUser clears ownership on authored content,
	// defaults missing author snapshots and invalidates the user's sessions.
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByProvider(ctx context.Context, provider Provider, subject string) (*User, error)
	ListUsers(ctx context.Context, opts ListOptions) ([]*User, int, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error

	// Guests
	GetGuest(ctx context.Context, id string) (*Guest, error)
	PutGuest(ctx context.Context, guest *Guest) error // insert or replace
	BumpGuestCounter(ctx context.Context, id string, kind PostKind) error

	// Sessions
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, token string) (*Session, error)
	TouchSession(ctx context.Context, token string, at time.Time) error
	DeleteSession(ctx context.Context, token string) error
	DeleteUserSessions(ctx context.Context, userID string) error

	// Reports
	CreateReport(ctx context.Context, report *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	ListReports(ctx context.Context, status ReportStatus, opts ListOptions) ([]*Report, int, error)
	UpdateReport(ctx context.Context, report *Report) error
	DeleteReport(ctx context.Context, id string) error

	// Aggregation reads. The stats engine is built entirely on these.
	CountTopics(ctx context.Context) (int, error)
	CountPoints(ctx context.Context) (int, error)
	CountComments(ctx context.Context) (int, error)
	CountUsers(ctx context.Context) (int, error)
	CountGuests(ctx context.Context) (int, error)
	CountReports(ctx context.Context) (int, error)
	SessionsSeenSince(ctx context.Context, since time.Time) ([]*Session, error)
	GuestsSeenSince(ctx context.Context, since time.Time) ([]*Guest, error)
	PointTimesSince(ctx context.Context, since time.Time) ([]time.Time, error)
	UserPointUpvotes(ctx context.Context, userID string) (int, error)
	UserCommentUpvotes(ctx context.Context, userID string) (int, error)
	UserTopicScore(ctx context.Context, userID string) (int, error)

	// Lifecycle
	Close() error
}
