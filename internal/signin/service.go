// Package signin runs the identity pipeline for sign-in and token refresh events
// and serves it over HTTP.
package signin

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"docklytask/internal/claims"
	"docklytask/internal/identity"
	"docklytask/internal/session"
)

const (
	EventSignIn  = "signin"
	EventRefresh = "refresh"
)

// Event is what the provider integration layer posts after authenticating a user.
// Tokens missing at the top level are taken from the account object.
type Event struct {
	Kind        string         `json:"event"`
	Account     map[string]any `json:"account"`
	Profile     map[string]any `json:"profile"`
	IDToken     string         `json:"idToken"`
	AccessToken string         `json:"accessToken"`
}

func (e Event) credentials() claims.Credentials {
	c := claims.Credentials{IDToken: e.IDToken, AccessToken: e.AccessToken, Profile: e.Profile}
	if c.IDToken == "" {
		c.IDToken, _ = e.Account["id_token"].(string)
	}
	if c.AccessToken == "" {
		c.AccessToken, _ = e.Account["access_token"].(string)
	}
	return c
}

// Result is the issued session. Outcome says how far persistence got.
type Result struct {
	Session session.Session
	Token   string
	Outcome string
}

type Service struct {
	resolver *identity.Resolver
	repo     *identity.Repository // nil disables persistence
	signer   *session.Signer
	log      *zap.SugaredLogger
}

func NewService(resolver *identity.Resolver, repo *identity.Repository, signer *session.Signer, log *zap.SugaredLogger) *Service {
	return &Service{resolver: resolver, repo: repo, signer: signer, log: log}
}

// Handle resolves, persists and projects one event. It never fails: dependency
// problems only degrade the returned session.
func (s *Service) Handle(ctx context.Context, ev Event) Result {
	kind := ev.Kind
	if kind != EventRefresh {
		kind = EventSignIn
	}
	creds := ev.credentials()

	res, err := s.resolver.Resolve(ctx, creds)
	tenantSourceTotal.WithLabelValues(string(res.Identity.Source)).Inc()

	var link identity.Link
	outcome := OutcomeLinked
	switch {
	case errors.Is(err, identity.ErrMissingEmail):
		outcome = OutcomeNoEmail
		s.log.Warnw("sign-in without email, session not linked", "event", kind, "tenant", res.Identity.TenantID)
	case s.repo == nil:
		outcome = OutcomeNoStore
	default:
		link, err = s.repo.Persist(ctx, res.Identity)
		if err != nil {
			outcome = OutcomeStoreFailure
			s.log.Errorw("persisting identity failed, session not linked",
				"event", kind, "tenant", res.Identity.TenantID, "email", res.Identity.Email, "err", err)
		}
	}
	eventsTotal.WithLabelValues(kind, outcome).Inc()

	sess := session.Project(res, link, creds.AccessToken)
	token, err := s.signer.Sign(sess)
	if err != nil {
		s.log.Errorw("signing session failed", "err", err)
	}
	s.log.Infow("sign-in handled", "event", kind, "outcome", outcome,
		"tenant", sess.User.TenantID, "user_id", sess.User.ID, "source", res.Identity.Source)
	return Result{Session: sess, Token: token, Outcome: outcome}
}
