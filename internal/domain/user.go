package domain

import "time"

// User es el registro de credenciales de un medico.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone,omitempty"`
	Gender       string    `json:"gender,omitempty"`
	Age          int       `json:"age,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// Identity es la instantanea de identidad que comparten el token y la sesion.
// Se produce una sola vez en login/registro; no se sincroniza si el usuario cambia despues.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Identity devuelve la instantanea {id, email, name} del usuario.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Name: u.Name}
}

// UserFromIdentity reconstruye un User parcial; phone, gender y age quedan en cero.
func UserFromIdentity(id Identity) User {
	return User{ID: id.ID, Name: id.Name, Email: id.Email}
}

// Summary es la vista publica minima que devuelven los endpoints de auth.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email}
}
