package identity

import (
	"usermanager/internal/core/domain/user"

	"github.com/google/uuid"
)

type UUID struct{}

func NewUUID() *UUID {
	return &UUID{}
}

func (g *UUID) GenerateUserID() user.ID {
	return user.ID(uuid.New().String())
}
