package session

import (
	"context"
	"net/http"
	"sync"
)

// Jar es el cookie jar de una peticion: lee de la request y escribe Set-Cookie en la respuesta.
// Las escrituras pendientes se ven en lecturas posteriores de la misma peticion.
type Jar struct {
	w       http.ResponseWriter
	r       *http.Request
	mu      sync.Mutex
	pending map[string]*http.Cookie
}

func NewJar(w http.ResponseWriter, r *http.Request) *Jar {
	return &Jar{w: w, r: r, pending: make(map[string]*http.Cookie)}
}

// Get devuelve el valor vigente de la cookie.
func (j *Jar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if c, ok := j.pending[name]; ok {
		if c.MaxAge < 0 || c.Value == "" {
			return "", false
		}
		return c.Value, true
	}
	if j.r == nil {
		return "", false
	}
	c, err := j.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Set escribe la cookie en la respuesta y la registra como pendiente.
func (j *Jar) Set(c *http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pending[c.Name] = c
	if j.w != nil {
		http.SetCookie(j.w, c)
	}
}

type jarKey struct{}

// WithJar adjunta el jar al contexto de la peticion.
func WithJar(ctx context.Context, jar *Jar) context.Context {
	return context.WithValue(ctx, jarKey{}, jar)
}

// JarFromContext recupera el jar adjuntado por WithJar.
func JarFromContext(ctx context.Context) (*Jar, bool) {
	jar, ok := ctx.Value(jarKey{}).(*Jar)
	return jar, ok && jar != nil
}
