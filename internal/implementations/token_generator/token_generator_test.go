package tokengenerator

import (
	"encoding/base64"
	"testing"
	"usermanager/internal/core/domain/user"
)

func TestPasswordResetTokenGenerator(t *testing.T) {
	generator := NewGenerator(0)
	tokens := make(map[user.PasswordResetToken]struct{})
	for i := 0; i < 100; i++ {
		token, err := generator.GeneratePasswordResetToken()
		if err != nil {
			t.Fatalf("could not generate token: %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(string(token))
		if err != nil {
			t.Fatalf("token %v is not url safe: %v", token, err)
		}
		if len(raw) != DefaultTokenBytes {
			t.Fatalf("token %v has %d bytes of entropy", token, len(raw))
		}
		if _, ok := tokens[token]; ok {
			t.Fatalf("token %v already exists", token)
		}
		tokens[token] = struct{}{}
	}
}
