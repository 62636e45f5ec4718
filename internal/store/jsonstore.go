package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// JSONStore is the flat-file fallback backend: one JSON array per entity
// under the data directory, each record mirroring the relational row shape.
// A process-local mutex keeps this instance consistent, but there is no
// cross-process concurrency control: two processes writing the same file can
// silently clobber each other's last write. That is a documented limitation
// of the fallback, not something this backend attempts to fix.
type JSONStore struct {
	mu  sync.Mutex
	dir string

	topics   []*Topic
	points   []*Point
	comments []*Comment
	users    []*User
	guests   []*Guest
	sessions []*Session
	reports  []*Report
}

func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &JSONStore{dir: dir}
	for name, target := range map[string]interface{}{
		"topics.json":   &s.topics,
		"points.json":   &s.points,
		"comments.json": &s.comments,
		"users.json":    &s.users,
		"guests.json":   &s.guests,
		"sessions.json": &s.sessions,
		"reports.json":  &s.reports,
	} {
		if err := s.loadFile(name, target); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *JSONStore) loadFile(name string, target interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}

// saveFile rewrites one entity file in full. Last write wins.
func (s *JSONStore) saveFile(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, name), data, 0o644)
}

func (s *JSONStore) Close() error {
	return nil
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

func cloneAll[T any](in []*T) []*T {
	out := make([]*T, len(in))
	for i, v := range in {
		out[i] = clone(v)
	}
	return out
}

// pageBounds returns the slice bounds for one page of n items.
func pageBounds(n int, opts ListOptions) (int, int) {
	lo := opts.offset()
	if lo > n {
		lo = n
	}
	hi := lo + opts.Size
	if hi > n {
		hi = n
	}
	return lo, hi
}

// Topics

func (s *JSONStore) CreateTopic(ctx context.Context, topic *Topic) error {
	if topic.ID == "" {
		topic.ID = newID()
	}
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now().UTC()
	}
	if topic.Mode == "" {
		topic.Mode = ModeOpen
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, clone(topic))
	return s.saveFile("topics.json", s.topics)
}

func (s *JSONStore) findTopic(id string) *Topic {
	for _, t := range s.topics {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s *JSONStore) GetTopic(ctx context.Context, id string) (*Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.findTopic(id)
	if t == nil {
		return nil, nil
	}
	return clone(t), nil
}

func sortTopics(topics []*Topic, order SortOrder) {
	switch order {
	case SortOld:
		sort.SliceStable(topics, func(i, j int) bool { return topics[i].CreatedAt.Before(topics[j].CreatedAt) })
	case SortHot:
		sort.SliceStable(topics, func(i, j int) bool {
			if topics[i].Score != topics[j].Score {
				return topics[i].Score > topics[j].Score
			}
			return topics[i].CreatedAt.Before(topics[j].CreatedAt) // older wins ties
		})
	default: // SortNew
		sort.SliceStable(topics, func(i, j int) bool { return topics[i].CreatedAt.After(topics[j].CreatedAt) })
	}
}

func (s *JSONStore) ListTopics(ctx context.Context, opts ListOptions) ([]*Topic, int, error) {
	opts.clamp()

	s.mu.Lock()
	defer s.mu.Unlock()

	all := cloneAll(s.topics)
	sortTopics(all, opts.Sort)
	lo, hi := pageBounds(len(all), opts)
	return all[lo:hi], len(s.topics), nil
}

func (s *JSONStore) UpdateTopic(ctx context.Context, topic *Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.findTopic(topic.ID)
	if t == nil {
		return nil
	}
	t.Name = topic.Name
	t.Description = topic.Description
	t.Mode = topic.Mode
	t.Score = topic.Score
	t.Count = topic.Count
	t.CreatedBy = topic.CreatedBy
	t.CreatedByGuest = topic.CreatedByGuest
	return s.saveFile("topics.json", s.topics)
}

func (s *JSONStore) DeleteTopic(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doomed := map[string]bool{}
	points := s.points[:0:0]
	for _, p := range s.points {
		if p.TopicID == id {
			doomed[p.ID] = true
			continue
		}
		points = append(points, p)
	}
	comments := s.comments[:0:0]
	for _, c := range s.comments {
		if !doomed[c.PointID] {
			comments = append(comments, c)
		}
	}
	topics := s.topics[:0:0]
	for _, t := range s.topics {
		if t.ID != id {
			topics = append(topics, t)
		}
	}

	s.topics, s.points, s.comments = topics, points, comments
	if err := s.saveFile("comments.json", s.comments); err != nil {
		return err
	}
	if err := s.saveFile("points.json", s.points); err != nil {
		return err
	}
	return s.saveFile("topics.json", s.topics)
}

func (s *JSONStore) VoteTopic(ctx context.Context, id string, delta float64) (*Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.findTopic(id)
	if t == nil {
		return nil, nil
	}
	t.Score += ClampDelta(delta)
	if err := s.saveFile("topics.json", s.topics); err != nil {
		return nil, err
	}
	return clone(t), nil
}

// Points

func (s *JSONStore) CreatePoint(ctx context.Context, point *Point) error {
	if point.ID == "" {
		point.ID = newID()
	}
	if point.CreatedAt.IsZero() {
		point.CreatedAt = time.Now().UTC()
	}
	if point.Position == "" {
		point.Position = PositionNone
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.points = append(s.points, clone(point))
	if err := s.saveFile("points.json", s.points); err != nil {
		return err
	}
	if t := s.findTopic(point.TopicID); t != nil {
		t.Count++
		return s.saveFile("topics.json", s.topics)
	}
	return nil
}

func (s *JSONStore) findPoint(id string) *Point {
	for _, p := range s.points {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *JSONStore) GetPoint(ctx context.Context, id string) (*Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPoint(id)
	if p == nil {
		return nil, nil
	}
	return clone(p), nil
}

func sortPoints(points []*Point, order SortOrder) {
	switch order {
	case SortOld:
		sort.SliceStable(points, func(i, j int) bool { return points[i].CreatedAt.Before(points[j].CreatedAt) })
	case SortTop:
		// Insertion order; the backing slice already is.
	case SortHot:
		sort.SliceStable(points, func(i, j int) bool {
			if points[i].Upvotes != points[j].Upvotes {
				return points[i].Upvotes > points[j].Upvotes
			}
			return points[i].CreatedAt.Before(points[j].CreatedAt)
		})
	default: // SortNew
		sort.SliceStable(points, func(i, j int) bool { return points[i].CreatedAt.After(points[j].CreatedAt) })
	}
}

func (s *JSONStore) ListPoints(ctx context.Context, topicID string, opts ListOptions) ([]*Point, int, error) {
	opts.clamp()

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []*Point{}
	for _, p := range s.points {
		if p.TopicID == topicID {
			matched = append(matched, clone(p))
		}
	}
	sortPoints(matched, opts.Sort)
	lo, hi := pageBounds(len(matched), opts)
	return matched[lo:hi], len(matched), nil
}

func (s *JSONStore) UpdatePoint(ctx context.Context, point *Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findPoint(point.ID)
	if p == nil {
		return nil
	}
	p.Description = point.Description
	p.Position = point.Position
	p.Upvotes = point.Upvotes
	p.Comments = point.Comments
	p.Shares = point.Shares
	return s.saveFile("points.json", s.points)
}

func (s *JSONStore) DeletePoint(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findPoint(id)
	if p == nil {
		return nil
	}

	points := s.points[:0:0]
	for _, q := range s.points {
		if q.ID != id {
			points = append(points, q)
		}
	}
	comments := s.comments[:0:0]
	for _, c := range s.comments {
		if c.PointID != id {
			comments = append(comments, c)
		}
	}
	s.points, s.comments = points, comments

	if err := s.saveFile("comments.json", s.comments); err != nil {
		return err
	}
	if err := s.saveFile("points.json", s.points); err != nil {
		return err
	}
	if t := s.findTopic(p.TopicID); t != nil {
		if t.Count > 0 {
			t.Count--
		}
		return s.saveFile("topics.json", s.topics)
	}
	return nil
}

func (s *JSONStore) VotePoint(ctx context.Context, id string, delta float64) (*Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findPoint(id)
	if p == nil {
		return nil, nil
	}
	p.Upvotes += ClampDelta(delta)
	if err := s.saveFile("points.json", s.points); err != nil {
		return nil, err
	}
	return clone(p), nil
}

func (s *JSONStore) SharePoint(ctx context.Context, id string) (*Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findPoint(id)
	if p == nil {
		return nil, nil
	}
	p.Shares++
	if err := s.saveFile("points.json", s.points); err != nil {
		return nil, err
	}
	return clone(p), nil
}

// Comments

func (s *JSONStore) CreateComment(ctx context.Context, comment *Comment) error {
	if comment.ID == "" {
		comment.ID = newID()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := clone(comment)
	stored.ChildCount = 0
	s.comments = append(s.comments, stored)
	if err := s.saveFile("comments.json", s.comments); err != nil {
		return err
	}
	if p := s.findPoint(comment.PointID); p != nil {
		p.Comments++
		return s.saveFile("points.json", s.points)
	}
	return nil
}

func (s *JSONStore) findComment(id string) *Comment {
	for _, c := range s.comments {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *JSONStore) GetComment(ctx context.Context, id string) (*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findComment(id)
	if c == nil {
		return nil, nil
	}
	return clone(c), nil
}

func sortComments(comments []*Comment, order SortOrder) {
	switch order {
	case SortNew:
		sort.SliceStable(comments, func(i, j int) bool { return comments[i].CreatedAt.After(comments[j].CreatedAt) })
	case SortHot:
		sort.SliceStable(comments, func(i, j int) bool {
			if comments[i].Upvotes != comments[j].Upvotes {
				return comments[i].Upvotes > comments[j].Upvotes
			}
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		})
	default: // SortOld, conversation order
		sort.SliceStable(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	}
}

func (s *JSONStore) ListComments(ctx context.Context, pointID, parentID string, opts ListOptions) ([]*Comment, int, error) {
	opts.clamp()

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []*Comment{}
	children := map[string]int{}
	for _, c := range s.comments {
		if c.PointID != pointID {
			continue
		}
		if c.ParentID != "" {
			children[c.ParentID]++
		}
		if c.ParentID == parentID {
			matched = append(matched, clone(c))
		}
	}
	if parentID == "" {
		for _, c := range matched {
			c.ChildCount = children[c.ID]
		}
	}
	sortComments(matched, opts.Sort)
	lo, hi := pageBounds(len(matched), opts)
	return matched[lo:hi], len(matched), nil
}

func (s *JSONStore) UpdateComment(ctx context.Context, comment *Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findComment(comment.ID)
	if c == nil {
		return nil
	}
	c.Content = comment.Content
	c.Upvotes = comment.Upvotes
	return s.saveFile("comments.json", s.comments)
}

func (s *JSONStore) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.findComment(id)
	if target == nil {
		return nil
	}

	removed := 0
	comments := s.comments[:0:0]
	for _, c := range s.comments {
		if c.ID == id || c.ParentID == id {
			removed++
			continue
		}
		comments = append(comments, c)
	}
	s.comments = comments

	if err := s.saveFile("comments.json", s.comments); err != nil {
		return err
	}
	if p := s.findPoint(target.PointID); p != nil {
		p.Comments -= removed
		if p.Comments < 0 {
			p.Comments = 0
		}
		return s.saveFile("points.json", s.points)
	}
	return nil
}

func (s *JSONStore) VoteComment(ctx context.Context, id string, delta float64) (*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findComment(id)
	if c == nil {
		return nil, nil
	}
	c.Upvotes += ClampDelta(delta)
	if err := s.saveFile("comments.json", s.comments); err != nil {
		return nil, err
	}
	return clone(c), nil
}

// Users

func (s *JSONStore) CreateUser(ctx context.Context, user *User) error {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Email != "" {
		for _, u := range s.users {
			if strings.EqualFold(u.Email, user.Email) {
				// Creation refused, not an error.
				if assigned {
					user.ID = ""
				}
				return nil
			}
		}
	}

	s.users = append(s.users, clone(user))
	return s.saveFile("users.json", s.users)
}

func (s *JSONStore) findUser(id string) *User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *JSONStore) GetUser(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findUser(id)
	if u == nil {
		return nil, nil
	}
	return clone(u), nil
}

func (s *JSONStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return clone(u), nil
		}
	}
	return nil, nil
}

func (s *JSONStore) GetUserByProvider(ctx context.Context, provider Provider, subject string) (*User, error) {
	if subject == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Provider == provider && u.ProviderUserID == subject {
			return clone(u), nil
		}
	}
	return nil, nil
}

func (s *JSONStore) ListUsers(ctx context.Context, opts ListOptions) ([]*User, int, error) {
	opts.clamp()

	s.mu.Lock()
	defer s.mu.Unlock()

	all := cloneAll(s.users)
	if opts.Sort == SortOld {
		sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	} else {
		sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	}
	lo, hi := pageBounds(len(all), opts)
	return all[lo:hi], len(s.users), nil
}

func (s *JSONStore) UpdateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findUser(user.ID)
	if u == nil {
		return nil
	}
	u.Email = user.Email
	u.Name = user.Name
	u.Picture = user.Picture
	u.Bio = user.Bio
	u.Role = user.Role
	u.PasswordHash = user.PasswordHash
	return s.saveFile("users.json", s.users)
}

func (s *JSONStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.topics {
		if t.CreatedBy == id {
			t.CreatedBy = ""
		}
	}
	for _, p := range s.points {
		if p.UserID == id {
			p.UserID = ""
			if p.AuthorName == "" {
				p.AuthorName = AnonymousName
			}
			if p.AuthorRole == "" {
				p.AuthorRole = RoleGuest
			}
		}
	}
	for _, c := range s.comments {
		if c.UserID == id {
			c.UserID = ""
			if c.AuthorName == "" {
				c.AuthorName = AnonymousName
			}
			if c.AuthorRole == "" {
				c.AuthorRole = RoleGuest
			}
		}
	}

	sessions := s.sessions[:0:0]
	for _, sess := range s.sessions {
		if sess.UserID != id {
			sessions = append(sessions, sess)
		}
	}
	s.sessions = sessions

	// Guest-born accounts share their id with a guest record.
	guests := s.guests[:0:0]
	for _, g := range s.guests {
		if g.ID != id {
			guests = append(guests, g)
		}
	}
	s.guests = guests

	users := s.users[:0:0]
	for _, u := range s.users {
		if u.ID != id {
			users = append(users, u)
		}
	}
	s.users = users

	if err := s.saveFile("topics.json", s.topics); err != nil {
		return err
	}
	if err := s.saveFile("points.json", s.points); err != nil {
		return err
	}
	if err := s.saveFile("comments.json", s.comments); err != nil {
		return err
	}
	if err := s.saveFile("sessions.json", s.sessions); err != nil {
		return err
	}
	if err := s.saveFile("guests.json", s.guests); err != nil {
		return err
	}
	return s.saveFile("users.json", s.users)
}

// Guests

func (s *JSONStore) GetGuest(ctx context.Context, id string) (*Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.guests {
		if g.ID == id {
			return clone(g), nil
		}
	}
	return nil, nil
}

func (s *JSONStore) PutGuest(ctx context.Context, guest *Guest) error {
	if guest.CreatedAt.IsZero() {
		guest.CreatedAt = time.Now().UTC()
	}
	if guest.LastSeen.IsZero() {
		guest.LastSeen = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, g := range s.guests {
		if g.ID == guest.ID {
			stored := clone(guest)
			stored.CreatedAt = g.CreatedAt
			s.guests[i] = stored
			return s.saveFile("guests.json", s.guests)
		}
	}
	s.guests = append(s.guests, clone(guest))
	return s.saveFile("guests.json", s.guests)
}

func (s *JSONStore) BumpGuestCounter(ctx context.Context, id string, kind PostKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.guests {
		if g.ID != id {
			continue
		}
		switch kind {
		case KindTopic:
			g.TopicCount++
		case KindPoint:
			g.PointCount++
		case KindComment:
			g.CommentCount++
		default:
			return fmt.Errorf("unknown post kind %q", kind)
		}
		return s.saveFile("guests.json", s.guests)
	}
	return nil
}

// Sessions

func (s *JSONStore) CreateSession(ctx context.Context, session *Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.LastSeen.IsZero() {
		session.LastSeen = session.CreatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, clone(session))
	return s.saveFile("sessions.json", s.sessions)
}

func (s *JSONStore) GetSession(ctx context.Context, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.Token == token {
			return clone(sess), nil
		}
	}
	return nil, nil
}

func (s *JSONStore) TouchSession(ctx context.Context, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.Token == token {
			sess.LastSeen = at.UTC()
			return s.saveFile("sessions.json", s.sessions)
		}
	}
	return nil
}

func (s *JSONStore) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions[:0:0]
	for _, sess := range s.sessions {
		if sess.Token != token {
			sessions = append(sessions, sess)
		}
	}
	s.sessions = sessions
	return s.saveFile("sessions.json", s.sessions)
}

func (s *JSONStore) DeleteUserSessions(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions[:0:0]
	for _, sess := range s.sessions {
		if sess.UserID != userID {
			sessions = append(sessions, sess)
		}
	}
	s.sessions = sessions
	return s.saveFile("sessions.json", s.sessions)
}

// Reports

func (s *JSONStore) CreateReport(ctx context.Context, report *Report) error {
	if report.ID == "" {
		report.ID = newID()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	if report.Status == "" {
		report.Status = ReportOpen
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, clone(report))
	return s.saveFile("reports.json", s.reports)
}

func (s *JSONStore) GetReport(ctx context.Context, id string) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ID == id {
			return clone(r), nil
		}
	}
	return nil, nil
}

func (s *JSONStore) ListReports(ctx context.Context, status ReportStatus, opts ListOptions) ([]*Report, int, error) {
	opts.clamp()

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []*Report{}
	for _, r := range s.reports {
		if status == "" || r.Status == status {
			matched = append(matched, clone(r))
		}
	}
	if opts.Sort == SortOld {
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	} else {
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	}
	lo, hi := pageBounds(len(matched), opts)
	return matched[lo:hi], len(matched), nil
}

func (s *JSONStore) UpdateReport(ctx context.Context, report *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ID == report.ID {
			r.Status = report.Status
			r.Reason = report.Reason
			return s.saveFile("reports.json", s.reports)
		}
	}
	return nil
}

func (s *JSONStore) DeleteReport(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports := s.reports[:0:0]
	for _, r := range s.reports {
		if r.ID != id {
			reports = append(reports, r)
		}
	}
	s.reports = reports
	return s.saveFile("reports.json", s.reports)
}

// Aggregation reads

func (s *JSONStore) CountTopics(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.topics), nil
}

func (s *JSONStore) CountPoints(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points), nil
}

func (s *JSONStore) CountComments(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.comments), nil
}

func (s *JSONStore) CountUsers(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

func (s *JSONStore) CountGuests(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.guests), nil
}

func (s *JSONStore) CountReports(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports), nil
}

func (s *JSONStore) SessionsSeenSince(ctx context.Context, since time.Time) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []*Session{}
	for _, sess := range s.sessions {
		if !sess.LastSeen.Before(since) {
			matched = append(matched, clone(sess))
		}
	}
	return matched, nil
}

func (s *JSONStore) GuestsSeenSince(ctx context.Context, since time.Time) ([]*Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []*Guest{}
	for _, g := range s.guests {
		if !g.LastSeen.Before(since) {
			matched = append(matched, clone(g))
		}
	}
	return matched, nil
}

func (s *JSONStore) PointTimesSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	times := []time.Time{}
	for _, p := range s.points {
		if !p.CreatedAt.Before(since) {
			times = append(times, p.CreatedAt)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times, nil
}

func (s *JSONStore) UserPointUpvotes(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := 0
	for _, p := range s.points {
		if p.UserID == userID {
			sum += p.Upvotes
		}
	}
	return sum, nil
}

func (s *JSONStore) UserCommentUpvotes(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := 0
	for _, c := range s.comments {
		if c.UserID == userID {
			sum += c.Upvotes
		}
	}
	return sum, nil
}

func (s *JSONStore) UserTopicScore(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := 0
	for _, t := range s.topics {
		if t.CreatedBy == userID {
			sum += t.Score
		}
	}
	return sum, nil
}

// Ensure JSONStore implements Store
var _ Store = (*JSONStore)(nil)
