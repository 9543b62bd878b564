package claims

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// UserInfoClient calls {issuer}/protocol/openid-connect/userinfo with the user's access token.
type UserInfoClient struct {
	http *resty.Client
	url  string
	log  *zap.SugaredLogger
}

func NewUserInfoClient(issuer string, timeout time.Duration, log *zap.SugaredLogger) *UserInfoClient {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &UserInfoClient{http: client, url: issuer + "/protocol/openid-connect/userinfo", log: log}
}

// Fetch is best effort: any transport error, non-2xx status or undecodable body yields nil.
func (c *UserInfoClient) Fetch(ctx context.Context, accessToken string) map[string]any {
	if c == nil || accessToken == "" {
		return nil
	}
	resp, err := c.http.R().SetContext(ctx).SetAuthToken(accessToken).Get(c.url)
	if err != nil {
		c.log.Debugw("userinfo request failed", "url", c.url, "err", err)
		return nil
	}
	if !resp.IsSuccess() {
		c.log.Debugw("userinfo rejected", "url", c.url, "status", resp.StatusCode())
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		c.log.Debugw("userinfo body not json", "err", err)
		return nil
	}
	return out
}
