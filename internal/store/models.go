package store

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// TopicMode controls how points attach to a topic. In duel mode every point
// declares a position for side-by-side comparison.
type TopicMode string

const (
	ModeOpen TopicMode = "open"
	ModeDuel TopicMode = "duel"
)

// Position is a point's declared side within a duel-mode topic.
type Position string

const (
	PositionAgree  Position = "agree"
	PositionOthers Position = "others"
	PositionNone   Position = "none"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
	RoleGuest      Role = "guest"
)

// Provider identifies how a user account came to exist.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderLocal  Provider = "local"
	ProviderGuest  Provider = "guest"
)

// PostKind names the three user-generated content kinds. It doubles as the
// guest per-kind counter key and the report target type.
type PostKind string

const (
	KindTopic   PostKind = "topic"
	KindPoint   PostKind = "point"
	KindComment PostKind = "comment"
)

type ReportStatus string

const (
	ReportOpen     ReportStatus = "open"
	ReportResolved ReportStatus = "resolved"
)

// AnonymousName labels content whose author snapshot is missing after the
// owning account was deleted.
const AnonymousName = "Guest"

type Topic struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description,omitempty"`
	Mode           TopicMode `db:"mode" json:"mode"`
	Score          int       `db:"score" json:"score"`
	Count          int       `db:"count" json:"count"` // mirrors live non-deleted point count
	CreatedBy      string    `db:"created_by" json:"created_by,omitempty"`
	CreatedByGuest string    `db:"created_by_guest" json:"created_by_guest,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type Point struct {
	ID          string    `db:"id" json:"id"`
	TopicID     string    `db:"topic_id" json:"topic_id,omitempty"`
	UserID      string    `db:"user_id" json:"user_id,omitempty"`
	GuestID     string    `db:"guest_id" json:"guest_id,omitempty"`
	Description string    `db:"description" json:"description"`
	AuthorName  string    `db:"author_name" json:"author_name"`
	AuthorRole  Role      `db:"author_role" json:"author_role"`
	Position    Position  `db:"position" json:"position"`
	Upvotes     int       `db:"upvotes" json:"upvotes"`
	Comments    int       `db:"comments" json:"comments"` // mirrors live comment count
	Shares      int       `db:"shares" json:"shares"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Comment struct {
	ID         string    `db:"id" json:"id"`
	PointID    string    `db:"point_id" json:"point_id"`
	ParentID   string    `db:"parent_id" json:"parent_id,omitempty"` // one nesting level only
	UserID     string    `db:"user_id" json:"user_id,omitempty"`
	GuestID    string    `db:"guest_id" json:"guest_id,omitempty"`
	AuthorName string    `db:"author_name" json:"author_name"`
	AuthorRole Role      `db:"author_role" json:"author_role"`
	Content    string    `db:"content" json:"content"`
	Upvotes    int       `db:"upvotes" json:"upvotes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	// ChildCount is derived from a live count of direct replies. Populated
	// on top-level listings only, never stored.
	ChildCount int `db:"-" json:"child_count"`
}

type User struct {
	ID             string    `db:"id" json:"id"`
	Provider       Provider  `db:"provider" json:"provider"`
	ProviderUserID string    `db:"provider_user_id" json:"provider_user_id,omitempty"`
	Email          string    `db:"email" json:"email,omitempty"`
	Name           string    `db:"name" json:"name,omitempty"`
	Picture        string    `db:"picture" json:"picture,omitempty"`
	Bio            string    `db:"bio" json:"bio,omitempty"`
	Role           Role      `db:"role" json:"role"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Guest is an unauthenticated client identified by a client-generated
// pseudo-id. Guests mirror into a guest-role User row so they participate in
// aggregates uniformly.
type Guest struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name,omitempty"`
	TopicCount   int       `db:"topic_count" json:"topic_count"`
	PointCount   int       `db:"point_count" json:"point_count"`
	CommentCount int       `db:"comment_count" json:"comment_count"`
	LastSeen     time.Time `db:"last_seen" json:"last_seen"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Session struct {
	Token     string    `db:"token" json:"token"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	LastSeen  time.Time `db:"last_seen" json:"last_seen"`
}

type Report struct {
	ID         string       `db:"id" json:"id"`
	Type       PostKind     `db:"type" json:"type"`
	TargetID   string       `db:"target_id" json:"target_id"`
	ReporterID string       `db:"reporter_id" json:"reporter_id,omitempty"`
	Reason     string       `db:"reason" json:"reason,omitempty"`
	Status     ReportStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// Sort options

type SortOrder string

const (
	SortNew SortOrder = "new" // created_at desc
	SortOld SortOrder = "old" // created_at asc
	SortHot SortOrder = "hot" // score/upvotes desc, older wins ties
	SortTop SortOrder = "top" // insertion order (points only)
)

const (
	defaultPageSize = 30
	maxPageSize     = 100
)

// ListOptions paginates entity listings. Page is 1-based.
type ListOptions struct {
	Sort SortOrder
	Page int
	Size int
}

// clamp normalizes out-of-range paging values in place.
func (o *ListOptions) clamp() {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Size <= 0 {
		o.Size = defaultPageSize
	}
	if o.Size > maxPageSize {
		o.Size = maxPageSize
	}
}

func (o ListOptions) offset() int {
	return (o.Page - 1) * o.Size
}

// ClampDelta converts a raw vote delta into the increment that is actually
// applied: finite values are truncated toward zero and clamped to [-2, 2],
// anything else counts as a single upvote. Callers that mean a downvote pass
// a literal -1 instead of relying on the fallback.
func ClampDelta(raw float64) int {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 1
	}
	if raw <= -2 {
		return -2
	}
	if raw >= 2 {
		return 2
	}
	return int(raw) // truncates toward zero
}

// newID returns a time-ordered id so that default "new" listings follow
// insertion order without a separate sort key.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
