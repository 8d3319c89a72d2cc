package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/irsalhamdi/course-market/api/web"
	"github.com/irsalhamdi/course-market/api/weberr"
	"github.com/irsalhamdi/course-market/core/claims"
	"github.com/irsalhamdi/course-market/core/user"
	"github.com/irsalhamdi/course-market/database"
	"github.com/irsalhamdi/course-market/events"
	"github.com/irsalhamdi/course-market/random"
	"github.com/irsalhamdi/course-market/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

type ProviderConfig struct {
	Name        string
	Client      string
	Secret      string
	URL         string
	RedirectURL string
}

type Provider struct {
	oauth2.Config
	Verifier *oidc.IDTokenVerifier
}

// MakeProviders runs oidc discovery for every configured provider. Entries
// without a client id are skipped so local setups run without oauth.
func MakeProviders(ctx context.Context, cfgs []ProviderConfig) (map[string]Provider, error) {
	provs := make(map[string]Provider, len(cfgs))
	for _, c := range cfgs {
		if c.Client == "" {
			continue
		}

		p, err := oidc.NewProvider(ctx, c.URL)
		if err != nil {
			return nil, fmt.Errorf("discovering provider[%s]: %w", c.Name, err)
		}

		provs[c.Name] = Provider{
			Config: oauth2.Config{
				ClientID:     c.Client,
				ClientSecret: c.Secret,
				RedirectURL:  c.RedirectURL,
				Endpoint:     p.Endpoint(),
				Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			},
			Verifier: p.Verifier(&oidc.Config{ClientID: c.Client}),
		}
	}
	return provs, nil
}

type idClaims struct {
	Email      string `json:"email"`
	Verified   bool   `json:"email_verified"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

func HandleOauthLogin(sm *scs.SessionManager, provs map[string]Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")
		prov, ok := provs[name]
		if !ok {
			return weberr.NotFound(fmt.Errorf("unknown oauth provider %q", name))
		}

		state, err := random.StringSecure(32)
		if err != nil {
			return fmt.Errorf("generating oauth state: %w", err)
		}
		sm.Put(ctx, stateKey, state)

		http.Redirect(w, r, prov.AuthCodeURL(state), http.StatusFound)
		return nil
	}
}

func HandleOauthCallback(db *sqlx.DB, sm *scs.SessionManager, pub events.Publisher, log logrus.FieldLogger, provs map[string]Provider, redirectURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")
		prov, ok := provs[name]
		if !ok {
			return weberr.NotFound(fmt.Errorf("unknown oauth provider %q", name))
		}

		state := sm.PopString(ctx, stateKey)
		if state == "" || state != r.URL.Query().Get("state") {
			return weberr.BadRequest(errors.New("oauth state mismatch"))
		}

		tok, err := prov.Exchange(ctx, r.URL.Query().Get("code"))
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("exchanging oauth code: %w", err))
		}

		raw, ok := tok.Extra("id_token").(string)
		if !ok {
			return weberr.BadRequest(errors.New("oauth token carries no id_token"))
		}

		idt, err := prov.Verifier.Verify(ctx, raw)
		if err != nil {
			return weberr.NotAuthorized(fmt.Errorf("verifying id_token: %w", err))
		}

		var ic idClaims
		if err := idt.Claims(&ic); err != nil {
			return fmt.Errorf("decoding id_token claims: %w", err)
		}
		if ic.Email == "" || !ic.Verified {
			return weberr.NotAuthorized(errors.New("oauth account email is not verified"))
		}

		u, err := findOrCreate(ctx, db, ic)
		if err != nil {
			return err
		}

		if err := login(ctx, sm, pub, log, u); err != nil {
			return fmt.Errorf("starting session: %w", err)
		}

		http.Redirect(w, r, redirectURL, http.StatusFound)
		return nil
	}
}

func findOrCreate(ctx context.Context, db *sqlx.DB, ic idClaims) (user.User, error) {
	email := strings.ToLower(ic.Email)

	u, err := user.FetchByEmail(ctx, db, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return user.User{}, fmt.Errorf("fetching oauth user: %w", err)
	}

	now := time.Now().UTC()
	u = user.User{
		ID:        validate.GenerateID(),
		Email:     email,
		Role:      claims.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p := user.Profile{
		ID:        u.ID,
		FirstName: ic.GivenName,
		LastName:  ic.FamilyName,
		AvatarURL: ic.Picture,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = database.Transaction(ctx, db, func(tx sqlx.ExtContext) error {
		if err := user.Create(ctx, tx, u); err != nil {
			return err
		}
		return user.CreateProfile(ctx, tx, p)
	})
	if err != nil {
		return user.User{}, fmt.Errorf("creating oauth user: %w", err)
	}
	return u, nil
}
