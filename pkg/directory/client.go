package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "clinicdesk/internal/errors"
	"clinicdesk/internal/retry"
)

// Client talks to the external directory service. Every method is a single
// logical call; contact and profile lookups retry once on a server-side
// failure, media fetches do not.
type Client interface {
	GetContactByID(ctx context.Context, jid string) (*Contact, error)
	FindContacts(ctx context.Context, jid string) ([]Contact, error)
	FetchProfilePictureURL(ctx context.Context, phone string) (string, error)
	FetchMediaBase64(ctx context.Context, remoteJID, messageID string) (*MediaPayload, error)
	HasCredentials() bool
}

type ClientConfig struct {
	BaseURL  string
	Instance string
	APIKey   string
	Timeout  time.Duration
}

type apiClient struct {
	baseURL  string
	instance string
	apiKey   string

	// client enforces the per-call timeout for directory lookups.
	// mediaClient has no timeout: media payloads can be large and the
	// caller already treats a failure here as non-fatal.
	client      *http.Client
	mediaClient *http.Client
	backoff     *retry.Backoff
}

func NewClient(cfg ClientConfig, maxAttempts int) Client {
	return &apiClient{
		baseURL:     cfg.BaseURL,
		instance:    cfg.Instance,
		apiKey:      cfg.APIKey,
		client:      &http.Client{Timeout: cfg.Timeout},
		mediaClient: &http.Client{},
		backoff: retry.NewBackoff(retry.BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
			MaxAttempts:  maxAttempts,
			Jitter:       true,
		}),
	}
}

func (c *apiClient) HasCredentials() bool {
	return c.baseURL != "" && c.instance != "" && c.apiKey != ""
}

func (c *apiClient) GetContactByID(ctx context.Context, jid string) (*Contact, error) {
	payload := map[string]interface{}{"id": jid}

	var body []byte
	err := c.backoff.RetryWithPredicate(ctx, func() error {
		var callErr error
		body, callErr = c.postJSON(ctx, c.client, "/chat/getContactById/", payload)
		return callErr
	}, apperrors.IsRetryable)
	if err != nil {
		return nil, err
	}

	return decodeContact(body)
}

func (c *apiClient) FindContacts(ctx context.Context, jid string) ([]Contact, error) {
	payload := map[string]interface{}{
		"where": map[string]interface{}{"id": jid},
	}

	var body []byte
	err := c.backoff.RetryWithPredicate(ctx, func() error {
		var callErr error
		body, callErr = c.postJSON(ctx, c.client, "/chat/findContacts/", payload)
		return callErr
	}, apperrors.IsRetryable)
	if err != nil {
		return nil, err
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode contact list: %w", err)
	}

	contacts := make([]Contact, 0, len(entries))
	for _, entry := range entries {
		contact, err := contactFromMap(entry)
		if err != nil {
			continue
		}
		contacts = append(contacts, contact)
	}
	return contacts, nil
}

func (c *apiClient) FetchProfilePictureURL(ctx context.Context, phone string) (string, error) {
	payload := map[string]interface{}{"number": phone}

	var body []byte
	err := c.backoff.RetryWithPredicate(ctx, func() error {
		var callErr error
		body, callErr = c.postJSON(ctx, c.client, "/chat/fetchProfilePictureUrl/", payload)
		return callErr
	}, apperrors.IsRetryable)
	if err != nil {
		return "", err
	}

	var pic ProfilePicture
	if err := json.Unmarshal(body, &pic); err != nil {
		return "", fmt.Errorf("failed to decode profile picture response: %w", err)
	}
	return pic.ProfilePictureURL, nil
}

// FetchMediaBase64 downloads media content through the directory service.
// Single attempt, no client timeout: payloads can be tens of megabytes and
// a retry would re-transfer the whole body.
func (c *apiClient) FetchMediaBase64(ctx context.Context, remoteJID, messageID string) (*MediaPayload, error) {
	payload := map[string]interface{}{
		"message": map[string]interface{}{
			"key": map[string]interface{}{
				"remoteJid": remoteJID,
				"id":        messageID,
			},
		},
		"convertToMp4": false,
	}

	body, err := c.postJSON(ctx, c.mediaClient, "/chat/getBase64FromMediaMessage/", payload)
	if err != nil {
		return nil, err
	}

	var media MediaPayload
	if err := json.Unmarshal(body, &media); err != nil {
		return nil, fmt.Errorf("failed to decode media response: %w", err)
	}
	return &media, nil
}

func (c *apiClient) postJSON(ctx context.Context, client *http.Client, endpoint string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := c.baseURL + endpoint + c.instance
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.WrapRetryable(err, apperrors.ErrCodeDirectoryAPI, "directory request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, apperrors.WrapRetryable(
			fmt.Errorf("directory returned status %d", resp.StatusCode),
			apperrors.ErrCodeDirectoryAPI, "directory server error")
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.Wrap(
			fmt.Errorf("directory returned status %d", resp.StatusCode),
			apperrors.ErrCodeDirectoryAPI, "directory request rejected")
	}

	return body, nil
}

func decodeContact(body []byte) (*Contact, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode contact: %w", err)
	}
	contact, err := contactFromMap(raw)
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func contactFromMap(raw map[string]interface{}) (Contact, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return Contact{}, fmt.Errorf("failed to re-encode contact: %w", err)
	}
	var contact Contact
	if err := json.Unmarshal(data, &contact); err != nil {
		return Contact{}, fmt.Errorf("failed to decode contact fields: %w", err)
	}
	contact.Raw = raw
	return contact, nil
}
