package cms

// Package cms implements a typed HTTP client for the hosted CMS content API
// (tributes and funeral homes). All persistence lives in the CMS; this client
// only reads and forwards.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/lumastream/lumastream/internal/domain/auth"
	"github.com/lumastream/lumastream/internal/domain/content"
	apperrors "github.com/lumastream/lumastream/internal/errors"
)

// Config holds configuration for the content API client.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// Client is the content API client.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient constructs a content API client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("cms: BaseURL is required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: baseURL, client: client}, nil
}

// tributeRecord is the CMS wire shape for a tribute.
type tributeRecord struct {
	ID               json.Number `json:"id"`
	Slug             string      `json:"slug"`
	LovedOneName     string      `json:"lovedOneName"`
	Headline         string      `json:"headline"`
	Description      string      `json:"description"`
	StreamURL        string      `json:"streamUrl"`
	ScheduledAt      time.Time   `json:"scheduledAt"`
	FuneralHomeID    json.Number `json:"funeralHome"`
	ContactSubjectID json.Number `json:"contact"`
	Published        bool        `json:"published"`
}

func (r tributeRecord) toDomain() content.Tribute {
	return content.Tribute{
		ID:               r.ID.String(),
		Slug:             r.Slug,
		LovedOneName:     r.LovedOneName,
		Headline:         r.Headline,
		Description:      r.Description,
		StreamURL:        r.StreamURL,
		ScheduledAt:      r.ScheduledAt,
		FuneralHomeID:    r.FuneralHomeID.String(),
		ContactSubjectID: r.ContactSubjectID.String(),
		Published:        r.Published,
	}
}

// funeralHomeRecord is the CMS wire shape for a funeral home.
type funeralHomeRecord struct {
	ID      json.Number `json:"id"`
	Slug    string      `json:"slug"`
	Name    string      `json:"name"`
	City    string      `json:"city"`
	Region  string      `json:"region"`
	Phone   string      `json:"phone"`
	Website string      `json:"website"`
}

func (r funeralHomeRecord) toDomain() content.FuneralHome {
	return content.FuneralHome{
		ID:      r.ID.String(),
		Slug:    r.Slug,
		Name:    r.Name,
		City:    r.City,
		Region:  r.Region,
		Phone:   r.Phone,
		Website: r.Website,
	}
}

// ListTributes returns published tributes, newest service first.
func (c *Client) ListTributes(ctx context.Context) ([]content.Tribute, error) {
	var records []tributeRecord
	if err := c.get(ctx, "/tributes?published=true&_sort=scheduledAt:DESC", "", &records); err != nil {
		return nil, err
	}
	tributes := make([]content.Tribute, 0, len(records))
	for _, r := range records {
		tributes = append(tributes, r.toDomain())
	}
	return tributes, nil
}

// GetTributeBySlug returns one published tribute.
func (c *Client) GetTributeBySlug(ctx context.Context, slug string) (content.Tribute, error) {
	if slug == "" {
		return content.Tribute{}, apperrors.NotFound("tribute slug is empty")
	}
	var records []tributeRecord
	if err := c.get(ctx, "/tributes?slug="+url.QueryEscape(slug), "", &records); err != nil {
		return content.Tribute{}, err
	}
	if len(records) == 0 {
		return content.Tribute{}, apperrors.NotFound("tribute not found")
	}
	return records[0].toDomain(), nil
}

// ListTributesForContact returns the tributes owned by a family contact.
func (c *Client) ListTributesForContact(ctx context.Context, cred domainauth.Credential, subjectID string) ([]content.Tribute, error) {
	var records []tributeRecord
	path := "/tributes?contact=" + url.QueryEscape(subjectID)
	if err := c.get(ctx, path, string(cred), &records); err != nil {
		return nil, err
	}
	tributes := make([]content.Tribute, 0, len(records))
	for _, r := range records {
		tributes = append(tributes, r.toDomain())
	}
	return tributes, nil
}

// ListTributesForFuneralHome returns a funeral home's scheduled tributes.
func (c *Client) ListTributesForFuneralHome(ctx context.Context, cred domainauth.Credential, funeralHomeID string) ([]content.Tribute, error) {
	var records []tributeRecord
	path := "/tributes?funeralHome=" + url.QueryEscape(funeralHomeID)
	if err := c.get(ctx, path, string(cred), &records); err != nil {
		return nil, err
	}
	tributes := make([]content.Tribute, 0, len(records))
	for _, r := range records {
		tributes = append(tributes, r.toDomain())
	}
	return tributes, nil
}

// CreateTribute forwards a scheduling request to the CMS.
func (c *Client) CreateTribute(ctx context.Context, cred domainauth.Credential, req content.ScheduleRequest) (content.Tribute, error) {
	body := map[string]any{
		"lovedOneName": req.LovedOneName,
		"headline":     req.Headline,
		"description":  req.Description,
		"scheduledAt":  req.ScheduledAt.Format(time.RFC3339),
		"contact":      req.ContactSubjectID,
	}
	if req.FuneralHomeID != "" {
		body["funeralHome"] = req.FuneralHomeID
	}

	var record tributeRecord
	if err := c.post(ctx, "/tributes", string(cred), body, &record); err != nil {
		return content.Tribute{}, err
	}
	return record.toDomain(), nil
}

// ListFuneralHomes returns partner funeral homes ordered by name.
func (c *Client) ListFuneralHomes(ctx context.Context) ([]content.FuneralHome, error) {
	var records []funeralHomeRecord
	if err := c.get(ctx, "/funeral-homes?_sort=name:ASC", "", &records); err != nil {
		return nil, err
	}
	homes := make([]content.FuneralHome, 0, len(records))
	for _, r := range records {
		homes = append(homes, r.toDomain())
	}
	return homes, nil
}

// GetFuneralHomeBySlug returns one funeral home profile.
func (c *Client) GetFuneralHomeBySlug(ctx context.Context, slug string) (content.FuneralHome, error) {
	if slug == "" {
		return content.FuneralHome{}, apperrors.NotFound("funeral home slug is empty")
	}
	var records []funeralHomeRecord
	if err := c.get(ctx, "/funeral-homes?slug="+url.QueryEscape(slug), "", &records); err != nil {
		return content.FuneralHome{}, err
	}
	if len(records) == 0 {
		return content.FuneralHome{}, apperrors.NotFound("funeral home not found")
	}
	return records[0].toDomain(), nil
}

func (c *Client) get(ctx context.Context, path, bearer string, out any) error {
	return c.do(ctx, http.MethodGet, path, bearer, nil, out)
}

func (c *Client) post(ctx context.Context, path, bearer string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, bearer, body, out)
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.Wrap(err, apperrors.ErrCodeProviderTimeout, "content API timed out")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeProviderUnavailable, "content API unreachable")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound("content API: resource not found")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.InvalidCredentials("content API rejected credential")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return apperrors.ProviderUnavailable(fmt.Sprintf("content API returned %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode content API response")
	}
	return nil
}
