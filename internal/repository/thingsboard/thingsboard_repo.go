package thingsboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/entity"
	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/usecase"
)

// Client talks to the ThingsBoard REST API: tenant-side device management
// with a JWT session, and device-side telemetry ingestion with per-device
// access tokens.
type Client struct {
	baseURL  string
	username string
	password string
	httpc    *http.Client

	mu  sync.Mutex
	jwt string
}

func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpc:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Login obtains the tenant JWT. It must succeed before any device
// management call; telemetry pushes use device tokens and do not need it.
func (c *Client) Login(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("thingsboard login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("thingsboard login: unexpected status %s", resp.Status)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if body.Token == "" {
		return fmt.Errorf("thingsboard login: empty token")
	}

	c.mu.Lock()
	c.jwt = body.Token
	c.mu.Unlock()
	return nil
}

func (c *Client) authHeader() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return "Bearer " + c.jwt
}

type deviceInfo struct {
	ID struct {
		ID string `json:"id"`
	} `json:"id"`
	Name string `json:"name"`
}

func (d deviceInfo) toEntity() *entity.Device {
	return &entity.Device{ID: d.ID.ID, Name: d.Name}
}

// FindDevice scans the tenant device page matching the name and returns
// the exact match, or (nil, nil) when none exists.
func (c *Client) FindDevice(ctx context.Context, name string) (*entity.Device, error) {
	endpoint := fmt.Sprintf("%s/api/tenant/devices?pageSize=100&page=0&textSearch=%s", c.baseURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Authorization", c.authHeader())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("find device %q: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("find device %q: unexpected status %s", name, resp.Status)
	}

	var body struct {
		Data []deviceInfo `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode device page: %w", err)
	}

	for _, device := range body.Data {
		if device.Name == name {
			return device.toEntity(), nil
		}
	}
	return nil, nil
}

// CreateDevice registers a new device. A 400 response usually means the
// device appeared between lookup and create, so the name is re-resolved
// once before giving up.
func (c *Client) CreateDevice(ctx context.Context, name, deviceType, label string) (*entity.Device, error) {
	payload, err := json.Marshal(map[string]string{
		"name":  name,
		"type":  deviceType,
		"label": label,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/device", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Authorization", c.authHeader())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create device %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		existing, ferr := c.FindDevice(ctx, name)
		if ferr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create device %q: rejected and not found on re-lookup", name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("create device %q: unexpected status %s", name, resp.Status)
	}

	var body deviceInfo
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode created device: %w", err)
	}
	return body.toEntity(), nil
}

// GetDeviceToken fetches the device access credential (credentialsId).
func (c *Client) GetDeviceToken(ctx context.Context, deviceID string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/device/%s/credentials", c.baseURL, url.PathEscape(deviceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Authorization", c.authHeader())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("credentials for %s: %w", deviceID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("credentials for %s: unexpected status %s", deviceID, resp.Status)
	}

	var body struct {
		CredentialsID string `json:"credentialsId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode credentials: %w", err)
	}
	return body.CredentialsID, nil
}

// PushTimeseries POSTs one batch to the device telemetry endpoint as a
// JSON array of {ts, values} objects. An auth-level rejection maps to
// usecase.ErrInvalidToken so the delivery engine can abort the run.
func (c *Client) PushTimeseries(ctx context.Context, token string, batch []entity.TelemetryRecord) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/api/v1/%s/telemetry", c.baseURL, url.PathEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("push telemetry: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		// The gateway answers 404 for unknown device tokens.
		return fmt.Errorf("%w: status %s", usecase.ErrInvalidToken, resp.Status)
	default:
		return fmt.Errorf("push telemetry: unexpected status %s", resp.Status)
	}
}
