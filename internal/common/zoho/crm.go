// internal/common/zoho/crm.go
package zoho

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

	httpclient "tulipai-funnel/internal/common/http"
)

const DefaultBaseURL = "https://www.zohoapis.com/crm/v3"

var ErrCRMRequestFailed = errors.New("CRM_REQUEST_FAILED")

type CRMClient struct {
	oauthToken string
	baseURL    string
	http       *httpclient.Client
}

// Lead mirrors the Zoho Leads module fields the funnel fills in.
type Lead struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"Email"`
	FirstName   string `json:"First_Name,omitempty"`
	LastName    string `json:"Last_Name"`
	Company     string `json:"Company"`
	Designation string `json:"Designation,omitempty"`
	Phone       string `json:"Phone,omitempty"`
	Website     string `json:"Website,omitempty"`
	Industry    string `json:"Industry,omitempty"`
	Source      string `json:"Lead_Source,omitempty"`
	Status      string `json:"Lead_Status,omitempty"`
	Description string `json:"Description,omitempty"`
	Budget      int64  `json:"Annual_Revenue,omitempty"`
}

type writeResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewCRMClient(baseURL, oauthToken string, timeout time.Duration) *CRMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CRMClient{
		oauthToken: oauthToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       httpclient.NewClient(timeout).WithRetries(2),
	}
}

// SearchLeadsByEmail returns the leads registered under email. Zoho answers
// 204 when nothing matches.
func (c *CRMClient) SearchLeadsByEmail(ctx context.Context, email string) ([]Lead, error) {
	endpoint := fmt.Sprintf("%s/Leads/search?email=%s", c.baseURL, url.QueryEscape(email))

	resp, err := c.http.DoWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search leads: %v", ErrCRMRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return []Lead{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: search leads (status %d): %s", ErrCRMRequestFailed, resp.StatusCode, string(body))
	}

	var result struct {
		Data []Lead `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", ErrCRMRequestFailed, err)
	}
	if result.Data == nil {
		result.Data = []Lead{}
	}
	return result.Data, nil
}

func (c *CRMClient) CreateLead(ctx context.Context, lead *Lead) (string, error) {
	return c.write(ctx, http.MethodPost, c.baseURL+"/Leads", lead)
}

func (c *CRMClient) UpdateLead(ctx context.Context, leadID string, lead *Lead) error {
	_, err := c.write(ctx, http.MethodPut, fmt.Sprintf("%s/Leads/%s", c.baseURL, url.PathEscape(leadID)), lead)
	return err
}

func (c *CRMClient) write(ctx context.Context, method, endpoint string, lead *Lead) (string, error) {
	record := *lead
	record.ID = ""
	payload, err := json.Marshal(map[string]interface{}{"data": []Lead{record}})
	if err != nil {
		return "", fmt.Errorf("%w: marshal lead: %v", ErrCRMRequestFailed, err)
	}

	resp, err := c.http.DoWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		return c.newRequest(ctx, method, endpoint, payload)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCRMRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrCRMRequestFailed, err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrCRMRequestFailed, resp.StatusCode, string(body))
	}

	var wr writeResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrCRMRequestFailed, err)
	}
	if len(wr.Data) == 0 {
		return "", fmt.Errorf("%w: no data in response", ErrCRMRequestFailed)
	}
	if wr.Data[0].Status != "success" {
		return "", fmt.Errorf("%w: %s: %s", ErrCRMRequestFailed, wr.Data[0].Code, wr.Data[0].Message)
	}
	return wr.Data[0].Details.ID, nil
}

func (c *CRMClient) newRequest(ctx context.Context, method, endpoint string, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)
	return req, nil
}
