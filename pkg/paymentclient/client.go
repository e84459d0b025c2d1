/**
 * @description
 * This package provides a client for the external payment gateway that authorises
 * donations. It encapsulates request construction, the API key header and response
 * parsing, and reports declines as a normal result rather than an error.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package paymentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Result is the outcome of a payment authorisation.
type Result struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// Client is a client for the payment gateway HTTP API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new payment gateway client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type paymentRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ProcessPayment asks the gateway to authorise amount (in cents). A decline comes back
// as a Result with Success=false; transport and decoding problems come back as errors.
func (c *Client) ProcessPayment(ctx context.Context, amount int64, description string) (*Result, error) {
	body, err := json.Marshal(paymentRequest{Amount: amount, Currency: "USD", Description: description})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/payments", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute payment request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment response: %w", err)
	}

	if resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity {
		var declined Result
		if err := json.Unmarshal(bodyBytes, &declined); err != nil || declined.ErrorMessage == "" {
			declined.ErrorMessage = "payment declined"
		}
		declined.Success = false
		if declined.Status == "" {
			declined.Status = "declined"
		}
		log.Printf("level=info component=payment_client op=process_payment status=%d msg=\"payment declined\" reason=%q", resp.StatusCode, declined.ErrorMessage)
		return &declined, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=payment_client op=process_payment status=%d msg=\"non-2xx response (unparsable error body)\"", resp.StatusCode)
			return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
		}
		detail := errResp.Message
		if detail == "" {
			detail = errResp.Error
		}
		log.Printf("level=warn component=payment_client op=process_payment status=%d detail=%q", resp.StatusCode, detail)
		return nil, fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, detail)
	}

	var result Result
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}
	if result.Success && strings.TrimSpace(result.TransactionID) == "" {
		return nil, fmt.Errorf("payment gateway reported success without a transaction id")
	}
	return &result, nil
}
