// Package identity reconciles the platform's two identity shapes: ephemeral
// guests, known only by a client-generated pseudo-id, and registered users.
// It is the sole place allowed to mirror a guest into a user row, upsert
// OAuth identities, and tear an account down.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/chaoting1995/point-lab-sub000/internal/store"
)

type Service struct {
	store      store.Store
	sessionTTL time.Duration
}

func NewService(s store.Store, sessionTTL time.Duration) *Service {
	return &Service{store: s, sessionTTL: sessionTTL}
}

// TouchGuest records a sighting of a guest pseudo-id. The first sighting
// inserts the guest and a mirrored guest-role user row, so guests participate
// uniformly in aggregates; later sightings update last_seen and fill in a
// missing name, never overwriting an existing one.
func (s *Service) TouchGuest(ctx context.Context, id, name string) (*store.Guest, error) {
	if id == "" {
		return nil, nil
	}

	guest, err := s.store.GetGuest(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	if guest == nil {
		guest = &store.Guest{ID: id, Name: name, LastSeen: now}
		if err := s.store.PutGuest(ctx, guest); err != nil {
			return nil, err
		}

		mirror, err := s.store.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		if mirror == nil {
			user := &store.User{
				ID:       id,
				Provider: store.ProviderGuest,
				Role:     store.RoleGuest,
				Name:     name,
			}
			if err := s.store.CreateUser(ctx, user); err != nil {
				return nil, err
			}
		}
		return guest, nil
	}

	guest.LastSeen = now
	if guest.Name == "" && name != "" {
		guest.Name = name
	}
	return guest, s.store.PutGuest(ctx, guest)
}

// RecordGuestPost bumps the guest's per-kind counter after a successful
// creation attributed to them.
func (s *Service) RecordGuestPost(ctx context.Context, id string, kind store.PostKind) error {
	if id == "" {
		return nil
	}
	return s.store.BumpGuestCounter(ctx, id, kind)
}

// UpsertOAuthUser inserts or refreshes a user keyed by the provider's stable
// subject id. Email and picture follow the provider; a non-empty stored name
// is never overwritten with an empty one.
func (s *Service) UpsertOAuthUser(ctx context.Context, provider store.Provider, subject, email, name, picture string) (*store.User, error) {
	user, err := s.store.GetUserByProvider(ctx, provider, subject)
	if err != nil {
		return nil, err
	}

	if user == nil {
		user = &store.User{
			Provider:       provider,
			ProviderUserID: subject,
			Email:          email,
			Name:           name,
			Picture:        picture,
			Role:           store.RoleUser,
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}

	user.Email = email
	user.Picture = picture
	if name != "" {
		user.Name = name
	}
	return user, s.store.UpdateUser(ctx, user)
}

// RegisterLocal creates a password-backed account. A taken email refuses the
// signup: the return is (nil, nil), not an error.
func (s *Service) RegisterLocal(ctx context.Context, email, name, password string) (*store.User, error) {
	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &store.User{
		Provider:     store.ProviderLocal,
		Email:        email,
		Name:         name,
		Role:         store.RoleUser,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		// Lost a race on the email uniqueness check.
		return nil, nil
	}
	return user, nil
}

// Authenticate checks a local login. Unknown email or a wrong password both
// come back as (nil, nil).
func (s *Service) Authenticate(ctx context.Context, email, password string) (*store.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Provider != store.ProviderLocal {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return user, nil
}

// StartSession issues a bearer session for the user.
func (s *Service) StartSession(ctx context.Context, userID string) (*store.Session, error) {
	now := time.Now().UTC()
	session := &store.Session{
		Token:     newToken(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
		LastSeen:  now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ValidateSession resolves a bearer token to its user, touching the
// session's last_seen on the way. Unknown and expired tokens return
// (nil, nil); expired ones are dropped.
func (s *Service) ValidateSession(ctx context.Context, token string) (*store.User, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if time.Now().After(session.ExpiresAt) {
		s.store.DeleteSession(ctx, token)
		return nil, nil
	}

	if err := s.store.TouchSession(ctx, token, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.store.GetUser(ctx, session.UserID)
}

// EndSession invalidates one bearer token.
func (s *Service) EndSession(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// DeleteAccount removes a user. Authored content survives anonymized and
// every session of theirs becomes invalid; the store does the whole teardown
// atomically on the relational backend.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	return s.store.DeleteUser(ctx, userID)
}

func newToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand failure is unrecoverable
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
