// Package identity реализует клиент EVE XML API: поиск идентификатора персонажа по имени
// и загрузку профиля по идентификатору.
package identity

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	opCharacterID   = "CharacterID"
	opCharacterInfo = "CharacterInfo"

	maxResponseBytes = 1 << 20
	defaultTimeout   = 10 * time.Second
)

// Profile данные персонажа из CharacterInfo
type Profile struct {
	Name      string
	Race      string
	Bloodline string
}

// Client клиент EVE identity API. Повторных попыток не делает.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создает клиента. timeout <= 0 заменяется значением по умолчанию.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP создает клиента с готовым http.Client
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// LookupID возвращает characterID по имени персонажа
func (c *Client) LookupID(ctx context.Context, name string) (string, error) {
	query := url.Values{"names": {name}}
	var resp eveAPIResponse
	if err := c.fetch(ctx, opCharacterID, "/eve/CharacterID.xml.aspx?"+query.Encode(), &resp); err != nil {
		return "", err
	}

	id, ok := resp.firstCharacterID()
	if !ok {
		return "", parseError(opCharacterID, "no character id for %q", name)
	}
	return id, nil
}

// LookupProfile возвращает имя, расу и родословную персонажа
func (c *Client) LookupProfile(ctx context.Context, characterID string) (Profile, error) {
	query := url.Values{"characterID": {characterID}}
	var resp eveAPIResponse
	if err := c.fetch(ctx, opCharacterInfo, "/eve/CharacterInfo.xml.aspx?"+query.Encode(), &resp); err != nil {
		return Profile{}, err
	}

	profile, ok := resp.profile()
	if !ok {
		return Profile{}, parseError(opCharacterInfo, "incomplete profile for character %s", characterID)
	}
	return profile, nil
}

func (c *Client) fetch(ctx context.Context, op, path string, dest *eveAPIResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &LookupError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op, "%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transportError(op, "status=%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(op, "read body: %v", err)
	}

	if err := xml.Unmarshal(body, dest); err != nil {
		return parseError(op, "%v", err)
	}
	if dest.Error != nil {
		return parseError(op, "api error %s: %s", dest.Error.Code, strings.TrimSpace(dest.Error.Message))
	}
	return nil
}
