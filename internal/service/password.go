package service

import "golang.org/x/crypto/bcrypt"

const (
	// PasswordCost es el factor de trabajo fijo de bcrypt.
	PasswordCost = 10
	// maxPasswordBytes es el limite de entrada de bcrypt; lo que exceda se ignora.
	maxPasswordBytes = 72
)

// PasswordHasher aplica hash adaptativo con sal a contraseñas.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher() PasswordHasher {
	return PasswordHasher{cost: PasswordCost}
}

// Hash devuelve el hash bcrypt de la contraseña.
func (h PasswordHasher) Hash(password string) (string, error) {
	cost := h.cost
	if cost == 0 {
		cost = PasswordCost
	}
	hashed, err := bcrypt.GenerateFromPassword(truncatePassword(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify compara en tiempo constante; un hash malformado devuelve false.
func (h PasswordHasher) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(password)) == nil
}

func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
