package identity

import (
	"context"
	"strconv"
)

// IssueAccessToken loads a stored user and signs an access token for it.
func (s *Service) IssueAccessToken(ctx context.Context, userID int64) (string, error) {
	const action = "identity.issue_token"

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.audit(ctx, action, map[string]string{
			"user_id":    strconv.FormatInt(userID, 10),
			"result":     "error",
			"error_code": domainCode(err),
		})
		return "", err
	}

	tok, err := s.issuer.IssueAccessToken(u)
	if err != nil {
		s.audit(ctx, action, map[string]string{
			"user_id":    strconv.FormatInt(userID, 10),
			"result":     "error",
			"error_code": domainCode(err),
		})
		return "", err
	}

	s.audit(ctx, action, map[string]string{
		"user_id": strconv.FormatInt(u.ID, 10),
		"result":  "ok",
	})
	return tok, nil
}
