package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the relational backend. WAL mode keeps reads concurrent
// while SQLite serializes writes; multi-step mutations run in one
// transaction.
type SQLiteStore struct {
	db *sqlx.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS topics (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL DEFAULT 'open',
		score INTEGER NOT NULL DEFAULT 0,
		count INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL DEFAULT '',
		created_by_guest TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_topics_created_at ON topics(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_topics_hot ON topics(score DESC, created_at ASC);

	CREATE TABLE IF NOT EXISTS points (
		id TEXT PRIMARY KEY,
		topic_id TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		guest_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		author_name TEXT NOT NULL DEFAULT '',
		author_role TEXT NOT NULL DEFAULT '',
		position TEXT NOT NULL DEFAULT 'none',
		upvotes INTEGER NOT NULL DEFAULT 0,
		comments INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_points_topic ON points(topic_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_points_topic_position ON points(topic_id, position, created_at DESC);

	CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		point_id TEXT NOT NULL,
		parent_id TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		guest_id TEXT NOT NULL DEFAULT '',
		author_name TEXT NOT NULL DEFAULT '',
		author_role TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		upvotes INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_comments_point ON comments(point_id, created_at ASC);
	CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_id, created_at ASC);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL DEFAULT 'local',
		provider_user_id TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		password_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_provider ON users(provider, provider_user_id) WHERE provider_user_id != '';
	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email) WHERE email != '';

	CREATE TABLE IF NOT EXISTS guests (
		id TEXT PRIMARY KEY,
		topic_count INTEGER NOT NULL DEFAULT 0,
		point_count INTEGER NOT NULL DEFAULT 0,
		comment_count INTEGER NOT NULL DEFAULT 0,
		last_seen DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		last_seen DATETIME NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		reporter_id TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'open',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	return s.applyMigrations()
}

type migration struct {
	version int
	stmt    string
}

// Additive column migrations, ordered by version. Columns that predate the
// versioning scheme may already exist in old databases, so a "duplicate
// column" failure is swallowed; any other failure is logged and skipped.
// Startup never aborts on a migration.
var migrations = []migration{
	{1, `ALTER TABLE points ADD COLUMN shares INTEGER NOT NULL DEFAULT 0`},
	{2, `ALTER TABLE users ADD COLUMN picture TEXT NOT NULL DEFAULT ''`},
	{3, `ALTER TABLE users ADD COLUMN bio TEXT NOT NULL DEFAULT ''`},
	{4, `ALTER TABLE guests ADD COLUMN name TEXT NOT NULL DEFAULT ''`},
}

func (s *SQLiteStore) applyMigrations() error {
	var current int
	err := s.db.Get(&current, `SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := s.db.Exec(m.stmt); err != nil {
			if !strings.Contains(err.Error(), "duplicate column") {
				log.Printf("migration %d failed, skipping: %v", m.version, err)
			}
		}
		current = m.version
	}

	if _, err := s.db.Exec(`DELETE FROM schema_version`); err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, current)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Topics

func (s *SQLiteStore) CreateTopic(ctx context.Context, topic *Topic) error {
	if topic.ID == "" {
		topic.ID = newID()
	}
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now().UTC()
	}
	if topic.Mode == "" {
		topic.Mode = ModeOpen
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO topics (id, name, description, mode, score, count, created_by, created_by_guest, created_at)
		VALUES (:id, :name, :description, :mode, :score, :count, :created_by, :created_by_guest, :created_at)
	`, topic)
	return err
}

func (s *SQLiteStore) GetTopic(ctx context.Context, id string) (*Topic, error) {
	var topic Topic
	err := s.db.GetContext(ctx, &topic, `SELECT * FROM topics WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func topicOrder(sort SortOrder) string {
	switch sort {
	case SortOld:
		return "created_at ASC"
	case SortHot:
		// Older wins ties on equal score.
		return "score DESC, created_at ASC"
	default: // SortNew
		return "created_at DESC"
	}
}

func (s *SQLiteStore) ListTopics(ctx context.Context, opts ListOptions) ([]*Topic, int, error) {
	opts.clamp()

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM topics`); err != nil {
		return nil, 0, err
	}

	topics := []*Topic{}
	query := fmt.Sprintf(`SELECT * FROM topics ORDER BY %s LIMIT ? OFFSET ?`, topicOrder(opts.Sort))
	if err := s.db.SelectContext(ctx, &topics, query, opts.Size, opts.offset()); err != nil {
		return nil, 0, err
	}
	return topics, total, nil
}

func (s *SQLiteStore) UpdateTopic(ctx context.Context, topic *Topic) error {
	_, err := s.db.NamedExecContext(ctx, `
		UPDATE topics SET name = :name, description = :description, mode = :mode,
			score = :score, count = :count, created_by = :created_by, created_by_guest = :created_by_guest
		WHERE id = :id
	`, topic)
	return err
}

func (s *SQLiteStore) DeleteTopic(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE point_id IN (SELECT id FROM points WHERE topic_id = ?)`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE topic_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM topics WHERE id = ?`, id)
		return err
	})
}

func (s *SQLiteStore) VoteTopic(ctx context.Context, id string, delta float64) (*Topic, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE topics SET score = score + ? WHERE id = ?`, ClampDelta(delta), id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetTopic(ctx, id)
}

// Points

func (s *SQLiteStore) CreatePoint(ctx context.Context, point *Point) error {
	if point.ID == "" {
		point.ID = newID()
	}
	if point.CreatedAt.IsZero() {
		point.CreatedAt = time.Now().UTC()
	}
	if point.Position == "" {
		point.Position = PositionNone
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO points (id, topic_id, user_id, guest_id, description, author_name, author_role,
				position, upvotes, comments, shares, created_at)
			VALUES (:id, :topic_id, :user_id, :guest_id, :description, :author_name, :author_role,
				:position, :upvotes, :comments, :shares, :created_at)
		`, point)
		if err != nil {
			return err
		}
		if point.TopicID != "" {
			_, err = tx.ExecContext(ctx, `UPDATE topics SET count = count + 1 WHERE id = ?`, point.TopicID)
		}
		return err
	})
}

func (s *SQLiteStore) GetPoint(ctx context.Context, id string) (*Point, error) {
	var point Point
	err := s.db.GetContext(ctx, &point, `SELECT * FROM points WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &point, nil
}

func pointOrder(sort SortOrder) string {
	switch sort {
	case SortOld:
		return "created_at ASC"
	case SortTop:
		// Insertion order; ids are time-ordered.
		return "id ASC"
	case SortHot:
		return "upvotes DESC, created_at ASC"
	default: // SortNew
		return "created_at DESC"
	}
}

func (s *SQLiteStore) ListPoints(ctx context.Context, topicID string, opts ListOptions) ([]*Point, int, error) {
	opts.clamp()

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM points WHERE topic_id = ?`, topicID); err != nil {
		return nil, 0, err
	}

	points := []*Point{}
	query := fmt.Sprintf(`SELECT * FROM points WHERE topic_id = ? ORDER BY %s LIMIT ? OFFSET ?`, pointOrder(opts.Sort))
	if err := s.db.SelectContext(ctx, &points, query, topicID, opts.Size, opts.offset()); err != nil {
		return nil, 0, err
	}
	return points, total, nil
}

func (s *SQLiteStore) UpdatePoint(ctx context.Context, point *Point) error {
	_, err := s.db.NamedExecContext(ctx, `
		UPDATE points SET description = :description, position = :position, upvotes = :upvotes,
			comments = :comments, shares = :shares
		WHERE id = :id
	`, point)
	return err
}

func (s *SQLiteStore) DeletePoint(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var topicID string
		err := tx.GetContext(ctx, &topicID, `SELECT topic_id FROM points WHERE id = ?`, id)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE point_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE id = ?`, id); err != nil {
			return err
		}
		if topicID != "" {
			// Floored at zero so over-deletion never drives the count negative.
			_, err = tx.ExecContext(ctx, `UPDATE topics SET count = max(count - 1, 0) WHERE id = ?`, topicID)
		}
		return err
	})
}

func (s *SQLiteStore) VotePoint(ctx context.Context, id string, delta float64) (*Point, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE points SET upvotes = upvotes + ? WHERE id = ?`, ClampDelta(delta), id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetPoint(ctx, id)
}

func (s *SQLiteStore) SharePoint(ctx context.Context, id string) (*Point, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE points SET shares = shares + 1 WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetPoint(ctx, id)
}

// Comments

func (s *SQLiteStore) CreateComment(ctx context.Context, comment *Comment) error {
	if comment.ID == "" {
		comment.ID = newID()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO comments (id, point_id, parent_id, user_id, guest_id, author_name, author_role,
				content, upvotes, created_at)
			VALUES (:id, :point_id, :parent_id, :user_id, :guest_id, :author_name, :author_role,
				:content, :upvotes, :created_at)
		`, comment)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE points SET comments = comments + 1 WHERE id = ?`, comment.PointID)
		return err
	})
}

func (s *SQLiteStore) GetComment(ctx context.Context, id string) (*Comment, error) {
	var comment Comment
	err := s.db.GetContext(ctx, &comment, `SELECT * FROM comments WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func commentOrder(sort SortOrder) string {
	switch sort {
	case SortNew:
		return "created_at DESC"
	case SortHot:
		return "upvotes DESC, created_at ASC"
	default: // SortOld, conversation order
		return "created_at ASC"
	}
}

func (s *SQLiteStore) ListComments(ctx context.Context, pointID, parentID string, opts ListOptions) ([]*Comment, int, error) {
	opts.clamp()

	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM comments WHERE point_id = ? AND parent_id = ?`, pointID, parentID); err != nil {
		return nil, 0, err
	}

	comments := []*Comment{}
	query := fmt.Sprintf(`SELECT * FROM comments WHERE point_id = ? AND parent_id = ? ORDER BY %s LIMIT ? OFFSET ?`,
		commentOrder(opts.Sort))
	if err := s.db.SelectContext(ctx, &comments, query, pointID, parentID, opts.Size, opts.offset()); err != nil {
		return nil, 0, err
	}

	// Top-level listings carry a live reply count per thread.
	if parentID == "" && len(comments) > 0 {
		rows, err := s.db.QueryContext(ctx,
			`SELECT parent_id, COUNT(*) FROM comments WHERE point_id = ? AND parent_id != '' GROUP BY parent_id`, pointID)
		if err != nil {
			return nil, 0, err
		}
		defer rows.Close()

		children := map[string]int{}
		for rows.Next() {
			var id string
			var n int
			if err := rows.Scan(&id, &n); err != nil {
				return nil, 0, err
			}
			children[id] = n
		}
		for _, c := range comments {
			c.ChildCount = children[c.ID]
		}
	}

	return comments, total, nil
}

func (s *SQLiteStore) UpdateComment(ctx context.Context, comment *Comment) error {
	_, err := s.db.NamedExecContext(ctx, `
		UPDATE comments SET content = :content, upvotes = :upvotes WHERE id = :id
	`, comment)
	return err
}

func (s *SQLiteStore) DeleteComment(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var pointID string
		err := tx.GetContext(ctx, &pointID, `SELECT point_id FROM comments WHERE id = ?`, id)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = ? OR parent_id = ?`, id, id)
		if err != nil {
			return err
		}
		removed, _ := res.RowsAffected()
		_, err = tx.ExecContext(ctx, `UPDATE points SET comments = max(comments - ?, 0) WHERE id = ?`, removed, pointID)
		return err
	})
}

func (s *SQLiteStore) VoteComment(ctx context.Context, id string, delta float64) (*Comment, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE comments SET upvotes = upvotes + ? WHERE id = ?`, ClampDelta(delta), id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetComment(ctx, id)
}

// Users

func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	assigned := false
	if user.ID == "" {
		user.ID = newID()
		assigned = true
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Role == "" {
		user.Role = RoleUser
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, provider, provider_user_id, email, name, picture, bio, role, password_hash, created_at)
		VALUES (:id, :provider, :provider_user_id, :email, :name, :picture, :bio, :role, :password_hash, :created_at)
	`, user)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
		// Creation refused, not an error.
		if assigned {
			user.ID = ""
		}
		return nil
	}
	return err
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, nil
	}
	var user User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLiteStore) GetUserByProvider(ctx context.Context, provider Provider, subject string) (*User, error) {
	if subject == "" {
		return nil, nil
	}
	var user User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE provider = ? AND provider_user_id = ?`, provider, subject)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context, opts ListOptions) ([]*User, int, error) {
	opts.clamp()

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, 0, err
	}

	users := []*User{}
	order := "created_at DESC"
	if opts.Sort == SortOld {
		order = "created_at ASC"
	}
	query := fmt.Sprintf(`SELECT * FROM users ORDER BY %s LIMIT ? OFFSET ?`, order)
	if err := s.db.SelectContext(ctx, &users, query, opts.Size, opts.offset()); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, user *User) error {
	_, err := s.db.NamedExecContext(ctx, `
		UPDATE users SET email = :email, name = :name, picture = :picture, bio = :bio,
			role = :role, password_hash = :password_hash
		WHERE id = :id
	`, user)
	return err
}

// DeleteUser clears ownership on the user's authored content, defaults
// missing author snapshots to the anonymous label, invalidates every session
// and removes the user row, all in one transaction.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE topics SET created_by = '' WHERE created_by = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE points SET user_id = '',
				author_name = CASE WHEN author_name = '' THEN ? ELSE author_name END,
				author_role = CASE WHEN author_role = '' THEN ? ELSE author_role END
			WHERE user_id = ?
		`, AnonymousName, RoleGuest, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE comments SET user_id = '',
				author_name = CASE WHEN author_name = '' THEN ? ELSE author_name END,
				author_role = CASE WHEN author_role = '' THEN ? ELSE author_role END
			WHERE user_id = ?
		`, AnonymousName, RoleGuest, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, id); err != nil {
			return err
		}
		// Guest-born accounts share their id with a guests row.
		if _, err := tx.ExecContext(ctx, `DELETE FROM guests WHERE id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		return err
	})
}

// Guests

func (s *SQLiteStore) GetGuest(ctx context.Context, id string) (*Guest, error) {
	var guest Guest
	err := s.db.GetContext(ctx, &guest, `SELECT * FROM guests WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

func (s *SQLiteStore) PutGuest(ctx context.Context, guest *Guest) error {
	if guest.CreatedAt.IsZero() {
		guest.CreatedAt = time.Now().UTC()
	}
	if guest.LastSeen.IsZero() {
		guest.LastSeen = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO guests (id, name, topic_count, point_count, comment_count, last_seen, created_at)
		VALUES (:id, :name, :topic_count, :point_count, :comment_count, :last_seen, :created_at)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			topic_count = excluded.topic_count, point_count = excluded.point_count,
			comment_count = excluded.comment_count, last_seen = excluded.last_seen
	`, guest)
	return err
}

func (s *SQLiteStore) BumpGuestCounter(ctx context.Context, id string, kind PostKind) error {
	var column string
	switch kind {
	case KindTopic:
		column = "topic_count"
	case KindPoint:
		column = "point_count"
	case KindComment:
		column = "comment_count"
	default:
		return fmt.Errorf("unknown post kind %q", kind)
	}
	query := fmt.Sprintf(`UPDATE guests SET %s = %s + 1 WHERE id = ?`, column, column)
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

// Sessions

func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.LastSeen.IsZero() {
		session.LastSeen = session.CreatedAt
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at, last_seen)
		VALUES (:token, :user_id, :created_at, :expires_at, :last_seen)
	`, session)
	return err
}

func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*Session, error) {
	var session Session
	err := s.db.GetContext(ctx, &session, `SELECT * FROM sessions WHERE token = ?`, token)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SQLiteStore) TouchSession(ctx context.Context, token string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET last_seen = ? WHERE token = ?`, at.UTC(), token)
	return err
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func (s *SQLiteStore) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

// Reports

func (s *SQLiteStore) CreateReport(ctx context.Context, report *Report) error {
	if report.ID == "" {
		report.ID = newID()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	if report.Status == "" {
		report.Status = ReportOpen
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO reports (id, type, target_id, reporter_id, reason, status, created_at)
		VALUES (:id, :type, :target_id, :reporter_id, :reason, :status, :created_at)
	`, report)
	return err
}

func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*Report, error) {
	var report Report
	err := s.db.GetContext(ctx, &report, `SELECT * FROM reports WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, status ReportStatus, opts ListOptions) ([]*Report, int, error) {
	opts.clamp()

	where := ""
	args := []interface{}{}
	if status != "" {
		where = "WHERE status = ?"
		args = append(args, status)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, fmt.Sprintf(`SELECT COUNT(*) FROM reports %s`, where), args...); err != nil {
		return nil, 0, err
	}

	reports := []*Report{}
	order := "created_at DESC"
	if opts.Sort == SortOld {
		order = "created_at ASC"
	}
	query := fmt.Sprintf(`SELECT * FROM reports %s ORDER BY %s LIMIT ? OFFSET ?`, where, order)
	args = append(args, opts.Size, opts.offset())
	if err := s.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (s *SQLiteStore) UpdateReport(ctx context.Context, report *Report) error {
	_, err := s.db.NamedExecContext(ctx, `
		UPDATE reports SET status = :status, reason = :reason WHERE id = :id
	`, report)
	return err
}

func (s *SQLiteStore) DeleteReport(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	return err
}

// Aggregation reads

func (s *SQLiteStore) countRows(ctx context.Context, table string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table))
	return n, err
}

func (s *SQLiteStore) CountTopics(ctx context.Context) (int, error)   { return s.countRows(ctx, "topics") }
func (s *SQLiteStore) CountPoints(ctx context.Context) (int, error)   { return s.countRows(ctx, "points") }
func (s *SQLiteStore) CountComments(ctx context.Context) (int, error) { return s.countRows(ctx, "comments") }
func (s *SQLiteStore) CountUsers(ctx context.Context) (int, error)    { return s.countRows(ctx, "users") }
func (s *SQLiteStore) CountGuests(ctx context.Context) (int, error)   { return s.countRows(ctx, "guests") }
func (s *SQLiteStore) CountReports(ctx context.Context) (int, error)  { return s.countRows(ctx, "reports") }

func (s *SQLiteStore) SessionsSeenSince(ctx context.Context, since time.Time) ([]*Session, error) {
	sessions := []*Session{}
	err := s.db.SelectContext(ctx, &sessions, `SELECT * FROM sessions WHERE last_seen >= ?`, since.UTC())
	return sessions, err
}

func (s *SQLiteStore) GuestsSeenSince(ctx context.Context, since time.Time) ([]*Guest, error) {
	guests := []*Guest{}
	err := s.db.SelectContext(ctx, &guests, `SELECT * FROM guests WHERE last_seen >= ?`, since.UTC())
	return guests, err
}

func (s *SQLiteStore) PointTimesSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	times := []time.Time{}
	err := s.db.SelectContext(ctx, &times, `SELECT created_at FROM points WHERE created_at >= ? ORDER BY created_at ASC`, since.UTC())
	return times, err
}

func (s *SQLiteStore) UserPointUpvotes(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COALESCE(SUM(upvotes), 0) FROM points WHERE user_id = ?`, userID)
	return n, err
}

func (s *SQLiteStore) UserCommentUpvotes(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COALESCE(SUM(upvotes), 0) FROM comments WHERE user_id = ?`, userID)
	return n, err
}

func (s *SQLiteStore) UserTopicScore(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COALESCE(SUM(score), 0) FROM topics WHERE created_by = ?`, userID)
	return n, err
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
