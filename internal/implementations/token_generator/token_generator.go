package tokengenerator

import (
	"crypto/rand"
	"encoding/base64"
	"usermanager/internal/core/domain/user"
)

const DefaultTokenBytes = 32

// Generator produces URL safe tokens from the operating system CSPRNG.
type Generator struct {
	size int
}

func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = DefaultTokenBytes
	}
	return &Generator{size: size}
}

func (g *Generator) GeneratePasswordResetToken() (user.PasswordResetToken, error) {
	b := make([]byte, g.size)
	if _, err := rand.Read(b); err != nil {
		return user.PasswordResetToken(""), err
	}
	return user.PasswordResetToken(base64.RawURLEncoding.EncodeToString(b)), nil
}
