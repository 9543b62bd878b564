package claims

import (
	"context"

	"go.uber.org/zap"
)

// Credentials is the raw material handed over by the provider integration on sign-in or refresh.
type Credentials struct {
	IDToken     string
	AccessToken string
	Profile     map[string]any
}

// Harvester turns Credentials into a ClaimBag.
type Harvester struct {
	userinfo *UserInfoClient // nil disables the userinfo fetch
	log      *zap.SugaredLogger
}

func NewHarvester(userinfo *UserInfoClient, log *zap.SugaredLogger) *Harvester {
	return &Harvester{userinfo: userinfo, log: log}
}

// Harvest merges ID token < access token < userinfo < profile. Sources that cannot be
// decoded or fetched are dropped; Harvest never fails.
func (h *Harvester) Harvest(ctx context.Context, creds Credentials) ClaimBag {
	idClaims, ok := Decode(ctx, creds.IDToken)
	if !ok && creds.IDToken != "" {
		h.log.Debugw("id token not decodable, ignored")
	}
	accessClaims, ok := Decode(ctx, creds.AccessToken)
	if !ok && creds.AccessToken != "" {
		h.log.Debugw("access token not decodable, ignored")
	}
	var info map[string]any
	if h.userinfo != nil {
		info = h.userinfo.Fetch(ctx, creds.AccessToken)
	}
	return Merge(idClaims, accessClaims, info, creds.Profile)
}
