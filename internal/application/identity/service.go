package identity

import (
	"context"
	"errors"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

type AuditFunc func(ctx context.Context, action string, fields map[string]string)

type Service struct {
	users   UserRepo
	roles   RoleStore
	issuer  TokenIssuer
	pub     EventPublisher
	granter RoleGranter

	audit AuditFunc
}

func NewService(users UserRepo, roles RoleStore, issuer TokenIssuer, pub EventPublisher) *Service {
	return &Service{
		users:  users,
		roles:  roles,
		issuer: issuer,
		pub:    pub,
		audit:  func(context.Context, string, map[string]string) {},
	}
}

func (s *Service) WithAudit(fn AuditFunc) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

func (s *Service) WithRoleGranter(g RoleGranter) *Service {
	s.granter = g
	return s
}

func domainCode(err error) string {
	if err == nil {
		return ""
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "non_domain_error"
}
