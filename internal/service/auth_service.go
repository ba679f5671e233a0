package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"veinwise/internal/domain"
	"veinwise/internal/metrics"
	"veinwise/internal/repository"
	"veinwise/internal/session"
)

const (
	// AuthCookieName es la cookie HTTP-only que transporta el bearer token.
	AuthCookieName = "auth_token"

	authCookieMaxAge = int(TokenTTL / time.Second)
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailInUse         = errors.New("email already in use")
	ErrMissingFields      = errors.New("missing required fields")
	ErrLoginRateLimited   = errors.New("login rate limited")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
	ErrNoCookieJar        = errors.New("no cookie jar in context")
)

// RegisterInput son los datos de alta de un medico.
type RegisterInput struct {
	Name     string
	Phone    string
	Gender   string
	Age      int
	Email    string
	Password string
}

// AuthService es la fachada de autenticacion: login, registro, logout y usuario actual.
// Los fallos normales de auth se resuelven en nil/false o errores centinela; solo los
// fallos del almacen de credenciales se propagan envueltos en ErrStoreUnavailable.
type AuthService struct {
	logger       *zap.Logger
	users        repository.UserRepository
	hasher       PasswordHasher
	tokens       *JWTService
	sessions     *session.Store
	limiter      LoginLimiter
	metrics      *metrics.AuthMetrics
	secureCookie bool
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserRepository,
	tokens *JWTService,
	sessions *session.Store,
	limiter LoginLimiter,
	authMetrics *metrics.AuthMetrics,
	secureCookie bool,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		logger:       logger,
		users:        users,
		hasher:       NewPasswordHasher(),
		tokens:       tokens,
		sessions:     sessions,
		limiter:      limiter,
		metrics:      authMetrics,
		secureCookie: secureCookie,
	}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	return s.hasher.Hash(password)
}

func (s *AuthService) ComparePassword(password, hash string) bool {
	return s.hasher.Verify(password, hash)
}

// GenerateToken firma un token con {id, email, name}; phone, gender y age no viajan en el token.
func (s *AuthService) GenerateToken(user domain.User) (string, error) {
	return s.tokens.Issue(user.Identity())
}

// VerifyToken devuelve nil ante cualquier fallo y deja el motivo en el log.
func (s *AuthService) VerifyToken(token string) *Claims {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		reason := "invalid"
		switch {
		case errors.Is(err, ErrJWTExpired):
			reason = "expired"
		case errors.Is(err, ErrJWTRevoked):
			reason = "revoked"
		}
		s.logger.Debug("token verification failed", zap.String("reason", reason), zap.Error(err))
		s.metrics.ObserveTokenRejected(reason)
		return nil
	}
	return &claims
}

// GetCurrentUser resuelve el usuario desde la cookie auth_token de la peticion.
func (s *AuthService) GetCurrentUser(r *http.Request) *domain.User {
	if r == nil {
		return nil
	}
	c, err := r.Cookie(AuthCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	claims := s.VerifyToken(c.Value)
	if claims == nil {
		return nil
	}
	user := domain.UserFromIdentity(claims.Identity())
	return &user
}

// IsAuthenticated equivale a GetCurrentUser(r) != nil.
func (s *AuthService) IsAuthenticated(r *http.Request) bool {
	return s.GetCurrentUser(r) != nil
}

// GetServerUser resuelve el usuario desde la sesion sellada, para paginas renderizadas en servidor.
func (s *AuthService) GetServerUser(ctx context.Context) *domain.User {
	jar, ok := session.JarFromContext(ctx)
	if !ok {
		s.logger.Warn("server user lookup without cookie jar")
		return nil
	}
	rec := s.sessions.Read(jar)
	if !rec.IsLoggedIn {
		return nil
	}
	user := domain.UserFromIdentity(rec.Identity())
	return &user
}

// SetAuthCookie adjunta el token como cookie HTTP-only, SameSite=Lax, 7 dias.
func (s *AuthService) SetAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   authCookieMaxAge,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookie sobrescribe la cookie con valor vacio y Max-Age=0.
func (s *AuthService) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, expiredAuthCookie(s.secureCookie))
}

func expiredAuthCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *AuthService) CreateUserSession(ctx context.Context, user domain.User) (session.Record, error) {
	return s.createSession(ctx, user.Identity())
}

func (s *AuthService) createSession(ctx context.Context, identity domain.Identity) (session.Record, error) {
	jar, ok := session.JarFromContext(ctx)
	if !ok {
		return session.Record{}, ErrNoCookieJar
	}
	return s.sessions.Create(jar, identity)
}

func (s *AuthService) DestroyUserSession(ctx context.Context) error {
	jar, ok := session.JarFromContext(ctx)
	if !ok {
		return ErrNoCookieJar
	}
	s.sessions.Destroy(jar)
	return nil
}

// ExtendUserSession es la primitiva de expiracion deslizante; quien la invoca decide cuando.
func (s *AuthService) ExtendUserSession(ctx context.Context) (session.Record, error) {
	jar, ok := session.JarFromContext(ctx)
	if !ok {
		return session.Record{}, ErrNoCookieJar
	}
	return s.sessions.Extend(jar)
}

// Login valida credenciales y abre token + sesion desde la misma instantanea de identidad.
// Solo los fallos de credenciales cuentan para el limite, por email + IP del cliente.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (domain.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.metrics.ObserveLogin("invalid_request")
		return domain.User{}, "", ErrMissingFields
	}
	key := LoginKey(email, clientIP)
	if s.limiter != nil && s.limiter.Locked(key) {
		s.metrics.ObserveLogin("rate_limited")
		return domain.User{}, "", ErrLoginRateLimited
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.loginFailed(key)
			return domain.User{}, "", ErrInvalidCredentials
		}
		s.metrics.ObserveLogin("store_unavailable")
		return domain.User{}, "", fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.loginFailed(key)
		return domain.User{}, "", ErrInvalidCredentials
	}

	token, err := s.startSession(ctx, user)
	if err != nil {
		return domain.User{}, "", err
	}
	if s.limiter != nil {
		s.limiter.Reset(key)
	}
	s.metrics.ObserveLogin("success")
	return user, token, nil
}

func (s *AuthService) loginFailed(key string) {
	if s.limiter != nil {
		s.limiter.RecordFailure(key)
	}
	s.metrics.ObserveLogin("invalid_credentials")
}

// Register crea el usuario; el email duplicado se detecta antes de insertar y tambien por la restriccion unica.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (domain.User, string, error) {
	user, err := s.CreateUser(ctx, input)
	if err != nil {
		return domain.User{}, "", err
	}
	token, err := s.startSession(ctx, user)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// CreateUser persiste un usuario nuevo sin abrir sesion.
func (s *AuthService) CreateUser(ctx context.Context, input RegisterInput) (domain.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Gender = strings.TrimSpace(input.Gender)
	if input.Name == "" || input.Email == "" || input.Password == "" || input.Phone == "" || input.Gender == "" || input.Age <= 0 {
		s.metrics.ObserveRegistration("invalid_request")
		return domain.User{}, ErrMissingFields
	}

	_, err := s.users.FindByEmail(ctx, input.Email)
	switch {
	case err == nil:
		s.metrics.ObserveRegistration("email_in_use")
		return domain.User{}, ErrEmailInUse
	case !errors.Is(err, repository.ErrUserNotFound):
		s.metrics.ObserveRegistration("store_unavailable")
		return domain.User{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Phone:        input.Phone,
		Gender:       input.Gender,
		Age:          input.Age,
		CreatedAt:    time.Now().UTC(),
	}
	id, err := s.users.Insert(ctx, user)
	if err != nil {
		if repository.IsConstraintViolation(err, repository.EmailUniqueConstraint) {
			s.metrics.ObserveRegistration("email_in_use")
			return domain.User{}, ErrEmailInUse
		}
		s.metrics.ObserveRegistration("store_unavailable")
		return domain.User{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if id != "" {
		user.ID = id
	}
	s.metrics.ObserveRegistration("success")
	return user, nil
}

// Logout revoca el token presentado (si hay revocacion configurada) y destruye la sesion.
func (s *AuthService) Logout(ctx context.Context, r *http.Request) error {
	if r != nil && s.tokens.RevocationEnabled() {
		if c, err := r.Cookie(AuthCookieName); err == nil && c.Value != "" {
			if err := s.tokens.Revoke(c.Value); err != nil {
				s.logger.Debug("token revocation skipped", zap.Error(err))
			}
		}
	}
	return s.DestroyUserSession(ctx)
}

// CheckStore verifica que el almacen de credenciales responda.
func (s *AuthService) CheckStore(ctx context.Context) error {
	if err := s.users.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *AuthService) startSession(ctx context.Context, user domain.User) (string, error) {
	identity := user.Identity()
	token, err := s.tokens.Issue(identity)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	if _, err := s.createSession(ctx, identity); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}
