// Package service implements the authority's account and role logic on top
// of the credential store and the session issuer.
package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/filecove/filecove/internal/api/metrics"
	"github.com/filecove/filecove/internal/auth"
	"github.com/filecove/filecove/internal/core/domain"
	"github.com/filecove/filecove/internal/infrastructure/config"
	"github.com/filecove/filecove/internal/infrastructure/db/jsonfile"
)

// AccountService owns registration, login, and the role-based
// authorization model.
type AccountService struct {
	store  *jsonfile.CredentialStore
	issuer *auth.Issuer
	policy *config.Authenticator
	log    zerolog.Logger
}

// NewAccountService wires the store, issuer, and role policy together.
func NewAccountService(store *jsonfile.CredentialStore, issuer *auth.Issuer, policy *config.Authenticator, log zerolog.Logger) *AccountService {
	return &AccountService{store: store, issuer: issuer, policy: policy, log: log}
}

// Login exchanges username+password for a fresh session.
func (s *AccountService) Login(username domain.Username, password string) (*auth.Session, error) {
	rec, ok := s.store.GetUserFromCredentials(username, password)
	if !ok {
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	session, err := s.createSession(rec.User.Name)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return session, nil
}

// Register creates an account and returns its first session. The very
// first account ever registered becomes the bootstrap operator: it gets
// the admin role plus every other built-in role, regardless of the
// configured defaults. Later registrations get the defaults only.
func (s *AccountService) Register(username domain.Username, password string) (*auth.Session, error) {
	roles := s.policy.DefaultRoleSet()
	if s.store.Len() == 0 {
		for _, role := range domain.BuiltinRoles() {
			roles.Add(role)
		}
	}

	if err := auth.CheckPasswordStrength(password, username.String()); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("weak_password").Inc()
		return nil, err
	}

	rec, err := jsonfile.NewUserRecord(username, password, roles)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to hash password")
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	added, err := s.store.AddUser(rec)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if !added {
		metrics.RegistrationsTotal.WithLabelValues("taken").Inc()
		return nil, domain.ErrUserExists
	}

	session, err := s.createSession(username)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	s.log.Info().Str("user", username.String()).Msg("registered user")
	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
	return session, nil
}

// UserHasRole answers the service-to-service membership query.
func (s *AccountService) UserHasRole(username domain.Username, role domain.Role) (bool, error) {
	rec, ok := s.store.GetUser(username)
	if !ok {
		return false, domain.ErrUserNotFound
	}
	return rec.User.Roles.Contains(role), nil
}

// GrantRole adds a role to the target user. The caller must hold the admin
// role and the role must be on the configured allowlist.
func (s *AccountService) GrantRole(caller, target domain.Username, role domain.Role) error {
	callerRec, ok := s.store.GetUser(caller)
	if !ok {
		metrics.RoleMutationsTotal.WithLabelValues("grant", "rejected").Inc()
		return domain.ErrUnknownCaller
	}
	if !callerRec.User.Roles.Contains(domain.RoleAdmin) {
		metrics.RoleMutationsTotal.WithLabelValues("grant", "rejected").Inc()
		return domain.ErrNotAuthorized
	}
	if !s.policy.RoleIsAllowed(role) {
		metrics.RoleMutationsTotal.WithLabelValues("grant", "rejected").Inc()
		return domain.ErrRoleNotAllowed
	}

	found, err := s.store.AddRole(target, role)
	if err != nil {
		metrics.RoleMutationsTotal.WithLabelValues("grant", "error").Inc()
		return err
	}
	if !found {
		metrics.RoleMutationsTotal.WithLabelValues("grant", "rejected").Inc()
		return domain.ErrUserNotFound
	}

	s.log.Info().Str("user", target.String()).Str("role", role.String()).Msg("added role to user")
	metrics.RoleMutationsTotal.WithLabelValues("grant", "ok").Inc()
	return nil
}

// RevokeRole removes a role from the target user. The caller must be an
// admin or the target user themselves.
func (s *AccountService) RevokeRole(caller, target domain.Username, role domain.Role) error {
	callerRec, ok := s.store.GetUser(caller)
	if !ok {
		metrics.RoleMutationsTotal.WithLabelValues("revoke", "rejected").Inc()
		return domain.ErrUnknownCaller
	}
	if !callerRec.User.Roles.Contains(domain.RoleAdmin) && caller != target {
		metrics.RoleMutationsTotal.WithLabelValues("revoke", "rejected").Inc()
		return domain.ErrNotAuthorized
	}

	found, err := s.store.RemoveRole(target, role)
	if err != nil {
		metrics.RoleMutationsTotal.WithLabelValues("revoke", "error").Inc()
		return err
	}
	if !found {
		metrics.RoleMutationsTotal.WithLabelValues("revoke", "rejected").Inc()
		return domain.ErrUserNotFound
	}

	s.log.Info().Str("user", target.String()).Str("role", role.String()).Msg("removed role from user")
	metrics.RoleMutationsTotal.WithLabelValues("revoke", "ok").Inc()
	return nil
}

func (s *AccountService) createSession(username domain.Username) (*auth.Session, error) {
	start := time.Now()
	session, err := s.issuer.CreateSession(username)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create session")
		return nil, err
	}
	metrics.SessionKeygenDuration.Observe(time.Since(start).Seconds())
	return session, nil
}
