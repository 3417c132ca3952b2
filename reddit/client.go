package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultOAuthBaseURL = "https://oauth.reddit.com"
	defaultAuthBaseURL  = "https://www.reddit.com"
)

type Client struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	userAgent    string
	oauthBaseURL string
	authBaseURL  string
}

// NewClient creates a Reddit API client with an injectable http.Client.
// If nil is passed, a default client with a sensible timeout is used.
func NewClient(clientID, clientSecret, userAgent string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient:   client,
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		oauthBaseURL: defaultOAuthBaseURL,
		authBaseURL:  defaultAuthBaseURL,
	}
}

// SetBaseURLs overrides the API endpoints. Used by tests.
func (c *Client) SetBaseURLs(oauthBase, authBase string) {
	c.oauthBaseURL = oauthBase
	c.authBaseURL = authBase
}

type SubmitRequest struct {
	Subreddit string
	Kind      string // "self" or "link"
	Title     string
	Text      string
	URL       string
}

type SubmitResult struct {
	ID       string
	Fullname string
	URL      string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

type PostInfo struct {
	Ups         int
	NumComments int
	UpvoteRatio float64
	ViewCount   int
}

// Submit publishes a post via POST /api/submit. The success shape is
// {json:{data:{id,name,url}}}; the failure shape is {json:{errors:[[...]]}}.
func (c *Client) Submit(ctx context.Context, accessToken string, req SubmitRequest) (*SubmitResult, error) {
	form := url.Values{}
	form.Set("sr", req.Subreddit)
	form.Set("kind", req.Kind)
	form.Set("title", req.Title)
	form.Set("api_type", "json")
	form.Set("resubmit", "true")
	if req.Kind == "link" {
		form.Set("url", req.URL)
	} else {
		form.Set("text", req.Text)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.oauthBaseURL+"/api/submit", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("submitting post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading submit response: %w", err)
	}

	var submitResp struct {
		JSON struct {
			Errors [][]interface{} `json:"errors"`
			Data   struct {
				ID   string `json:"id"`
				Name string `json:"name"`
				URL  string `json:"url"`
			} `json:"data"`
		} `json:"json"`
	}

	if err := json.Unmarshal(body, &submitResp); err != nil {
		return nil, &SubmitError{
			StatusCode: resp.StatusCode,
			Messages:   []string{fmt.Sprintf("unexpected response (%s)", resp.Status)},
		}
	}

	if len(submitResp.JSON.Errors) > 0 {
		return nil, &SubmitError{
			StatusCode: resp.StatusCode,
			Messages:   flattenErrors(submitResp.JSON.Errors),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SubmitError{
			StatusCode: resp.StatusCode,
			Messages:   []string{resp.Status},
		}
	}

	return &SubmitResult{
		ID:       submitResp.JSON.Data.ID,
		Fullname: submitResp.JSON.Data.Name,
		URL:      submitResp.JSON.Data.URL,
	}, nil
}

// RefreshToken exchanges a refresh token for a fresh access token. Reddit may
// omit the refresh token from the response, in which case the old one is
// still valid and RefreshToken is left empty.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authBaseURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(c.clientID, c.clientSecret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return nil, &AuthError{Reason: errorField(body, resp.Status)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("refreshing token: %s", resp.Status)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Error        string `json:"error"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if tokenResp.Error != "" {
		return nil, &AuthError{Reason: tokenResp.Error}
	}
	if tokenResp.AccessToken == "" {
		return nil, &AuthError{Reason: "empty access token in response"}
	}

	return &TokenPair{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}

// PostInfo fetches current engagement counters via GET /api/info?id=t3_xxx.
func (c *Client) PostInfo(ctx context.Context, accessToken, fullname string) (*PostInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.oauthBaseURL+"/api/info?id="+url.QueryEscape(fullname), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetching post info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching post info: %s", resp.Status)
	}

	var infoResp struct {
		Data struct {
			Children []struct {
				Data struct {
					Ups         int     `json:"ups"`
					NumComments int     `json:"num_comments"`
					UpvoteRatio float64 `json:"upvote_ratio"`
					ViewCount   *int    `json:"view_count"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&infoResp); err != nil {
		return nil, fmt.Errorf("parsing post info: %w", err)
	}
	if len(infoResp.Data.Children) == 0 {
		return nil, fmt.Errorf("post %s not found", fullname)
	}

	data := infoResp.Data.Children[0].Data
	info := &PostInfo{
		Ups:         data.Ups,
		NumComments: data.NumComments,
		UpvoteRatio: data.UpvoteRatio,
	}
	// view_count is null unless the authenticated user owns the post
	if data.ViewCount != nil {
		info.ViewCount = *data.ViewCount
	}
	return info, nil
}

// flattenErrors joins the string elements of each [code, message, field]
// error triple into one line per error.
func flattenErrors(errs [][]interface{}) []string {
	messages := make([]string, 0, len(errs))
	for _, entry := range errs {
		parts := make([]string, 0, len(entry))
		for _, v := range entry {
			if s, ok := v.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			messages = append(messages, strings.Join(parts, ": "))
		}
	}
	return messages
}

func errorField(body []byte, fallback string) string {
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return errResp.Error
	}
	return fallback
}
