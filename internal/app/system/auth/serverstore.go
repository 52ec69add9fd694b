package auth

import (
	"context"
	"encoding/base32"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/campusdesk/internal/app/system/timeouts"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// ErrSessionNotFound is returned by a SessionBackend when no live session
// exists for an id.
var ErrSessionNotFound = errors.New("session not found")

// SessionBackend persists encoded session data by id.
// Implementations: store/sessions (MongoDB) and store/sessions.Redis.
type SessionBackend interface {
	Load(ctx context.Context, id string) (string, error)
	Save(ctx context.Context, id, data string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// ServerStore is a gorilla sessions.Store that keeps session values in a
// SessionBackend. The cookie holds only the signed session id.
type ServerStore struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options
	backend SessionBackend
}

var _ sessions.Store = (*ServerStore)(nil)

// NewServerStore creates a store signing with the given key pairs.
func NewServerStore(backend SessionBackend, opts *sessions.Options, keyPairs ...[]byte) *ServerStore {
	codecs := securecookie.CodecsFromPairs(keyPairs...)
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(opts.MaxAge)
		}
	}
	return &ServerStore{Codecs: codecs, Options: opts, backend: backend}
}

// Get returns a cached session for the request or loads it.
func (s *ServerStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New returns the session named by the request cookie, or a fresh one.
func (s *ServerStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	if err := securecookie.DecodeMulti(name, c.Value, &session.ID, s.Codecs...); err != nil {
		return session, err
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	data, err := s.backend.Load(ctx, session.ID)
	if errors.Is(err, ErrSessionNotFound) {
		session.ID = ""
		return session, nil
	}
	if err != nil {
		return session, err
	}
	if err := securecookie.DecodeMulti(name, data, &session.Values, s.Codecs...); err != nil {
		session.ID = ""
		return session, err
	}
	session.IsNew = false
	return session, nil
}

// Save persists the session, or deletes it when Options.MaxAge < 0.
func (s *ServerStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.backend.Delete(ctx, session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = newSessionID()
	}

	data, err := securecookie.EncodeMulti(session.Name(), session.Values, s.Codecs...)
	if err != nil {
		return err
	}
	expiresAt := time.Now().UTC().Add(time.Duration(session.Options.MaxAge) * time.Second)
	if err := s.backend.Save(ctx, session.ID, data, expiresAt); err != nil {
		return err
	}

	encodedID, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encodedID, session.Options))
	return nil
}

func newSessionID() string {
	return strings.TrimRight(base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)), "=")
}
