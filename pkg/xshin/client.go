package xshin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the public xshin endpoint
const DefaultBaseURL = "https://xshin.fi"

// MaxBlobSize bounds how much of a response body is read
const MaxBlobSize = 64 << 20

// BlobKind names one of the binary files published per pool
type BlobKind string

const (
	BlobOverview      BlobKind = "overview"
	BlobPool          BlobKind = "pool"
	BlobNonPoolVoters BlobKind = "non_pool_voters"
)

// BlobKinds lists every blob published for a pool
var BlobKinds = []BlobKind{BlobOverview, BlobPool, BlobNonPoolVoters}

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrEmptyPoolID      = errors.New("empty pool id")
	ErrBlobTooLarge     = errors.New("blob too large")
)

// Client represents an xshin data API client
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new xshin client with a custom HTTP client and base URL
func NewClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// NewestPoolID returns the identifier of the most recently published pool
func (c *Client) NewestPoolID(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/data/pool/newest")
	if err != nil {
		return "", err
	}

	id := strings.TrimSpace(string(body))
	if id == "" {
		return "", ErrEmptyPoolID
	}
	return id, nil
}

// FetchBlob downloads one binary blob of the given pool
func (c *Client) FetchBlob(ctx context.Context, poolID string, kind BlobKind) ([]byte, error) {
	if poolID == "" {
		return nil, ErrEmptyPoolID
	}
	return c.get(ctx, fmt.Sprintf("/data/pool/%s/%s.bin", url.PathEscape(poolID), kind))
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBlobSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(body) > MaxBlobSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBlobTooLarge, path, MaxBlobSize)
	}
	return body, nil
}
