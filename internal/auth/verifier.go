package auth

import (
	"github.com/knowledgebase/kb-backend/internal/utils"
)

// BearerVerifier adapts the token service to the middleware's TokenVerifier
// interface.
type BearerVerifier struct {
	Tokens *TokenService
}

func (v BearerVerifier) VerifyBearer(token string) (utils.Identity, error) {
	claims, err := v.Tokens.VerifyAccessToken(token)
	if err != nil {
		return utils.Identity{}, err
	}
	return utils.Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
