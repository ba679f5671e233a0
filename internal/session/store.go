// Package session implementa la sesion sellada que vive completa en una cookie.
// No hay tabla de sesiones: la cookie cifrada y firmada es la sesion.
package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"

	"veinwise/internal/domain"
)

const (
	CookieName = "veinwise_session"
	TTL        = 7 * 24 * time.Hour

	minSecretLen = 32
)

var ErrSecretTooShort = fmt.Errorf("session secret must be at least %d characters", minSecretLen)

// Record es el contenido sellado de la sesion. Los tiempos van en milisegundos unix.
type Record struct {
	UserID     string `json:"userId,omitempty"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	IsLoggedIn bool   `json:"isLoggedIn"`
	CreatedAt  int64  `json:"createdAt,omitempty"`
	ExpiresAt  int64  `json:"expiresAt,omitempty"`
}

// Identity devuelve la instantanea de identidad guardada en la sesion.
func (r Record) Identity() domain.Identity {
	return domain.Identity{ID: r.UserID, Email: r.Email, Name: r.Name}
}

// Options controla los atributos de la cookie de sesion.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	// OnExpired se invoca cada vez que Read descarta una sesion expirada.
	OnExpired func()
}

// Store sella, lee y destruye la sesion sobre el Jar de la peticion.
type Store struct {
	codec  *securecookie.SecureCookie
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(secret string, opts Options, logger *zap.Logger) (*Store, error) {
	if len(secret) < minSecretLen {
		return nil, ErrSecretTooShort
	}
	if opts.CookieName == "" {
		opts.CookieName = CookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = TTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	hashKey, blockKey, err := deriveKeys(secret)
	if err != nil {
		return nil, err
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	// Sin MaxAge en el codec: la expiracion la decide expiresAt en Read.
	codec.MaxAge(0)

	return &Store{
		codec:  codec,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}, nil
}

// deriveKeys obtiene la clave HMAC (64 bytes) y la de cifrado AES-256 (32 bytes) desde el secreto.
func deriveKeys(secret string) ([]byte, []byte, error) {
	hashKey := make([]byte, 64)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("veinwise session hmac")), hashKey); err != nil {
		return nil, nil, err
	}
	blockKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("veinwise session aes")), blockKey); err != nil {
		return nil, nil, err
	}
	return hashKey, blockKey, nil
}

// Read devuelve la sesion vigente. Una cookie expirada o que no abre se destruye y se devuelve como no logueada.
func (s *Store) Read(jar *Jar) Record {
	raw, ok := jar.Get(s.opts.CookieName)
	if !ok {
		return Record{}
	}
	var rec Record
	if err := s.codec.Decode(s.opts.CookieName, raw, &rec); err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			s.logger.Debug("session cookie rejected", zap.Error(err))
		} else {
			s.logger.Warn("session cookie decode failed", zap.Error(err))
		}
		s.Destroy(jar)
		return Record{}
	}
	if rec.ExpiresAt != 0 && rec.ExpiresAt < s.now().UnixMilli() {
		s.logger.Debug("session expired", zap.String("user_id", rec.UserID))
		s.Destroy(jar)
		if s.opts.OnExpired != nil {
			s.opts.OnExpired()
		}
		return Record{}
	}
	return rec
}

// Create inicia una sesion nueva para la identidad y escribe la cookie sellada.
func (s *Store) Create(jar *Jar, identity domain.Identity) (Record, error) {
	now := s.now()
	rec := Record{
		UserID:     identity.ID,
		Email:      identity.Email,
		Name:       identity.Name,
		IsLoggedIn: true,
		CreatedAt:  now.UnixMilli(),
		ExpiresAt:  now.Add(s.opts.TTL).UnixMilli(),
	}
	if err := s.save(jar, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Destroy borra la cookie de sesion.
func (s *Store) Destroy(jar *Jar) {
	jar.Set(&http.Cookie{
		Name:     s.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Extend renueva expiresAt si la sesion esta logueada; si no, no hace nada.
func (s *Store) Extend(jar *Jar) (Record, error) {
	rec := s.Read(jar)
	if !rec.IsLoggedIn {
		return rec, nil
	}
	rec.ExpiresAt = s.now().Add(s.opts.TTL).UnixMilli()
	if err := s.save(jar, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Store) save(jar *Jar, rec Record) error {
	encoded, err := s.codec.Encode(s.opts.CookieName, rec)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}
	jar.Set(&http.Cookie{
		Name:     s.opts.CookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(s.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
