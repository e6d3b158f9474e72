package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const (
	defaultSessionCookie = "BRIGHT_SESSION"
	defaultSessionMaxAge = 30 * 24 * time.Hour
)

// ErrInvalidSessionConfig indicates the session codec could not be built.
var ErrInvalidSessionConfig = errors.New("session: invalid config")

// SessionData is the payload of the signed session cookie. Cart contents live server side,
// keyed by ID.
type SessionData struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale,omitempty"`
	CSRFToken string    `json:"csrf,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	dirty     bool
}

// MarkDirty flags the session for writing before the response is sent.
func (s *SessionData) MarkDirty() { s.dirty = true; s.UpdatedAt = time.Now().UTC() }

// SessionConfig controls cookie encoding.
type SessionConfig struct {
	CookieName string
	// HashKey signs the cookie. An empty key generates a process-ephemeral one (dev only).
	HashKey []byte
	// BlockKey optionally encrypts the cookie (16, 24 or 32 bytes).
	BlockKey []byte
	Secure   bool
	MaxAge   time.Duration
}

// Sessions loads and persists SessionData through a securecookie codec.
type Sessions struct {
	cfg   SessionConfig
	codec *securecookie.SecureCookie
	// Ephemeral is true when no hash key was configured.
	Ephemeral bool
}

// NewSessions builds the session middleware provider.
func NewSessions(cfg SessionConfig) (*Sessions, error) {
	s := &Sessions{cfg: cfg}
	if cfg.CookieName == "" {
		s.cfg.CookieName = defaultSessionCookie
	}
	if cfg.MaxAge <= 0 {
		s.cfg.MaxAge = defaultSessionMaxAge
	}
	if len(cfg.HashKey) == 0 {
		s.cfg.HashKey = securecookie.GenerateRandomKey(32)
		if s.cfg.HashKey == nil {
			return nil, ErrInvalidSessionConfig
		}
		s.Ephemeral = true
	}
	if n := len(cfg.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return nil, ErrInvalidSessionConfig
	}
	s.codec = securecookie.New(s.cfg.HashKey, cfg.BlockKey)
	s.codec.SetSerializer(securecookie.JSONEncoder{})
	s.codec.MaxAge(int(s.cfg.MaxAge / time.Second))
	return s, nil
}

// CookieName returns the configured cookie name.
func (s *Sessions) CookieName() string { return s.cfg.CookieName }

// Middleware loads or initializes a session and stores it in request context. The cookie is
// (re)written just before the first byte of the response when the session changed.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, fromCookie := s.read(r)
		if sd.ID == "" {
			now := time.Now().UTC()
			sd = &SessionData{
				ID:        uuid.NewString(),
				CSRFToken: newCSRFToken(),
				CreatedAt: now,
				UpdatedAt: now,
				dirty:     true,
			}
		}

		rw := NewResponseRecorder(w)
		rw.SetBeforeWrite(func(w http.ResponseWriter) {
			if sd.dirty || !fromCookie {
				s.write(w, sd)
			}
		})
		next.ServeHTTP(rw, r.WithContext(WithSession(r.Context(), sd)))
		// nothing written (e.g. HEAD)
		if !rw.Wrote() && (sd.dirty || !fromCookie) {
			s.write(w, sd)
		}
	})
}

// GetSession returns session data from context
func GetSession(r *http.Request) *SessionData {
	if sd, ok := r.Context().Value(ctxKeySession).(*SessionData); ok && sd != nil {
		return sd
	}
	return &SessionData{}
}

// PeekID decodes the session id carried by the request cookie without creating a
// session. Loggers running outside Middleware use it.
func (s *Sessions) PeekID(r *http.Request) string {
	sd, ok := s.read(r)
	if !ok {
		return ""
	}
	return sd.ID
}

func (s *Sessions) read(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(s.cfg.CookieName)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := s.codec.Decode(s.cfg.CookieName, c.Value, &sd); err != nil {
		return &SessionData{}, false
	}
	if _, err := uuid.Parse(sd.ID); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func (s *Sessions) write(w http.ResponseWriter, sd *SessionData) {
	encoded, err := s.codec.Encode(s.cfg.CookieName, sd)
	if err != nil {
		return
	}
	sd.dirty = false
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.MaxAge / time.Second),
	})
}

func newCSRFToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
