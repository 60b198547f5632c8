package images

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client talks to the image-hosting HTTP API. Uploaded images are addressed
// by the public id embedded in the returned URL's last path segment.
type Client struct {
	uploadURL  string
	deleteURL  string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(uploadURL, deleteURL, apiKey string, logger *logrus.Logger) *Client {
	return &Client{
		uploadURL:  uploadURL,
		deleteURL:  deleteURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Upload submits the image as multipart form data and returns its public URL.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("failed to copy image content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.WithField("status", resp.StatusCode).Error("Image upload rejected")
		return "", fmt.Errorf("image host returned status %d", resp.StatusCode)
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if parsed.URL == "" {
		return "", fmt.Errorf("image host returned no url")
	}

	return parsed.URL, nil
}

// Delete removes a hosted image given its public URL.
func (c *Client) Delete(ctx context.Context, imageURL string) error {
	publicID, err := PublicID(imageURL)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.deleteURL+"/"+publicID, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("image host returned status %d", resp.StatusCode)
	}

	return nil
}

// PublicID extracts the hosting id from a stored URL: the last path segment
// with its extension stripped.
func PublicID(imageURL string) (string, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("invalid image url: %w", err)
	}

	segment := path.Base(parsed.Path)
	if segment == "." || segment == "/" || segment == "" {
		return "", fmt.Errorf("image url has no path segment")
	}

	if ext := path.Ext(segment); ext != "" {
		segment = strings.TrimSuffix(segment, ext)
	}
	if segment == "" {
		return "", fmt.Errorf("image url has no public id")
	}

	return segment, nil
}
