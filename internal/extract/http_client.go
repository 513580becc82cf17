package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/book-expert/narration-service/internal/core"
)

// API endpoints and paths.
const (
	apiExtract = "/v1/extract"
	apiHealth  = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
)

// Form field names.
const formFieldFile = "file"

// documentResponse is the JSON payload returned by the extraction service.
type documentResponse struct {
	Title    string            `json:"title"`
	Abstract string            `json:"abstract"`
	Sections []sectionResponse `json:"sections"`
}

type sectionResponse struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Client talks to the standalone document-extraction HTTP service.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for the extraction service. The baseURL
// should include the protocol and port (e.g. "http://localhost:9000").
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Extract uploads the raw document bytes and returns the structured
// content the service produced.
func (c *Client) Extract(ctx context.Context, data []byte) (*core.Document, error) {
	var requestBody bytes.Buffer

	writer := multipart.NewWriter(&requestBody)

	part, err := writer.CreateFormFile(formFieldFile, "document")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	_, err = part.Write(data)
	if err != nil {
		return nil, fmt.Errorf("failed to write document data: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := c.baseURL + apiExtract

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, writer.FormDataContentType())
	httpReq.Header.Set(headerAccept, contentTypeJSON)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: request to extraction service at %s failed: %w",
			core.ErrExtraction, c.baseURL, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return nil, fmt.Errorf("%w: extraction service returned %s: %s",
			core.ErrExtraction, resp.Status, string(body))
	}

	var decoded documentResponse

	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode extraction response: %w",
			core.ErrExtraction, err)
	}

	doc := &core.Document{
		Title:    decoded.Title,
		Abstract: decoded.Abstract,
		Sections: make([]core.Section, 0, len(decoded.Sections)),
	}

	for _, section := range decoded.Sections {
		doc.Sections = append(doc.Sections, core.Section{
			Heading: section.Heading,
			Body:    section.Body,
		})
	}

	return doc, nil
}

// HealthCheck verifies that the extraction service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := c.baseURL + apiHealth

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", c.baseURL, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}
