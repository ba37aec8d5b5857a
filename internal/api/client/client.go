package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/alerteye/internal/alert"
	"github.com/alerteye/internal/models"
	"github.com/alerteye/internal/notify"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient() (*Client, error) {
	baseURL := os.Getenv("ALERTEYE_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	token := os.Getenv("ALERTEYE_API_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("ALERTEYE_API_TOKEN environment variable is not set")
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

type alertList struct {
	Alerts []models.SerializedAlert `json:"alerts"`
	Count  int                      `json:"count"`
}

func (c *Client) ListAlerts(status, level, source string) ([]models.SerializedAlert, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if level != "" {
		query.Set("level", level)
	}
	if source != "" {
		query.Set("source", source)
	}

	var list alertList
	if err := c.get("/api/v1/alerts?"+query.Encode(), &list); err != nil {
		return nil, err
	}
	return list.Alerts, nil
}

func (c *Client) ListActiveAlerts() ([]models.SerializedAlert, error) {
	var list alertList
	if err := c.get("/api/v1/alerts/active", &list); err != nil {
		return nil, err
	}
	return list.Alerts, nil
}

func (c *Client) GetAlert(alertID string) (*models.SerializedAlert, error) {
	var a models.SerializedAlert
	if err := c.get(fmt.Sprintf("/api/v1/alerts/%s", alertID), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) AcknowledgeAlert(alertID, user string) error {
	return c.put(fmt.Sprintf("/api/v1/alerts/%s/acknowledge", alertID),
		map[string]string{"user": user}, nil)
}

func (c *Client) ResolveAlert(alertID, user string) error {
	return c.put(fmt.Sprintf("/api/v1/alerts/%s/resolve", alertID),
		map[string]string{"user": user}, nil)
}

func (c *Client) SuppressAlert(alertID, reason string) error {
	return c.put(fmt.Sprintf("/api/v1/alerts/%s/suppress", alertID),
		map[string]string{"reason": reason}, nil)
}

func (c *Client) GetSummary() (*alert.Summary, error) {
	var summary alert.Summary
	if err := c.get("/api/v1/alerts/summary", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) GetStatistics() (*alert.Statistics, error) {
	var stats alert.Statistics
	if err := c.get("/api/v1/alerts/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) GetNotificationStats() (*notify.Stats, error) {
	var stats notify.Stats
	if err := c.get("/api/v1/notifications/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) SendNotification(title, message, channel, priority string) (string, error) {
	var resp struct {
		NotificationID string `json:"notification_id"`
	}
	err := c.post("/api/v1/notifications", map[string]string{
		"title":    title,
		"message":  message,
		"channel":  channel,
		"priority": priority,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.NotificationID, nil
}

func (c *Client) get(endpoint string, v interface{}) error {
	resp, err := c.doRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) post(endpoint string, data, v interface{}) error {
	return c.send(http.MethodPost, endpoint, data, v)
}

func (c *Client) put(endpoint string, data, v interface{}) error {
	return c.send(http.MethodPut, endpoint, data, v)
}

func (c *Client) send(method, endpoint string, data, v interface{}) error {
	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %v", err)
		}
		body = bytes.NewReader(jsonData)
	}

	resp, err := c.doRequest(method, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if v != nil {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

func (c *Client) doRequest(method, endpoint string, body io.Reader) (*http.Response, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %v", err)
	}
	parts, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %v", err)
	}
	u.Path = path.Join(u.Path, parts.Path)
	u.RawQuery = parts.RawQuery

	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("API error: %s", errResp.Error)
		}
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return resp, nil
}
