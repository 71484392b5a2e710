package ordercloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ordercloud-storefront/internal/domain"
)

// Token is an access token issued by the authorization server.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// PasswordGrant exchanges shopper credentials for an access token.
func (c *Client) PasswordGrant(ctx context.Context, username, password string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.clientID)
	form.Set("username", username)
	form.Set("password", password)
	if c.scope != "" {
		form.Set("scope", c.scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var out tokenResponse
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, errors.New("token response missing access_token")
	}
	tok := &Token{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
	if out.ExpiresIn > 0 {
		tok.ExpiresAt = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	return tok, nil
}

type meUser struct {
	ID        string `json:"ID"`
	Username  string `json:"Username"`
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	Email     string `json:"Email"`
	CompanyID string `json:"CompanyID"`
	Buyer     *struct {
		ID string `json:"ID"`
	} `json:"Buyer"`
}

// CurrentUser returns the authenticated shopper, or domain.ErrIdentityUnavailable
// when the request carries no usable credential.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	if _, ok := AccessTokenFrom(ctx); !ok {
		return nil, domain.ErrIdentityUnavailable
	}
	var me meUser
	if err := c.doJSON(ctx, http.MethodGet, "/v1/me", nil, nil, &me); err != nil {
		if domain.IsRemoteKind(err, domain.KindUnauthorized) {
			return nil, fmt.Errorf("%w: %w", domain.ErrIdentityUnavailable, err)
		}
		return nil, err
	}
	companyID := me.CompanyID
	if companyID == "" && me.Buyer != nil {
		companyID = me.Buyer.ID
	}
	return &domain.User{
		ID:        me.ID,
		Username:  me.Username,
		CompanyID: companyID,
		FirstName: me.FirstName,
		LastName:  me.LastName,
		Email:     me.Email,
	}, nil
}
