package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultURL     = "https://proverkacheka.com/api/v1/check/get"
	DefaultTimeout = 20 * time.Second

	maxResponseSize = 4 << 20
)

// Status codes returned in the "code" field.
const (
	codeIncorrect   = 0
	codeOK          = 1
	codeNotReady    = 2
	codeRateLimited = 3
	codeWaiting     = 4
)

// Client calls a proverkacheka-style API: the image goes up as the
// multipart field "qrfile" next to the API token.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
}

var _ Recognizer = (*Client)(nil)

// The shape of "data" depends on "code": an object on success, a
// message string otherwise.
type checkResponse struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

type checkData struct {
	JSON struct {
		RetailPlace string `json:"retailPlace"`
		User        string `json:"user"`
		Items       []struct {
			Name     string  `json:"name"`
			Quantity float64 `json:"quantity"`
			Sum      int64   `json:"sum"`
		} `json:"items"`
	} `json:"json"`
}

// NewClient creates a Client. Empty url and zero timeout select the defaults.
func NewClient(token, url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		token:   token,
		baseURL: url,
		client:  &http.Client{Timeout: timeout},
	}
}

// Recognize uploads the image and maps the answer to a Receipt.
func (c *Client) Recognize(ctx context.Context, image []byte) (*Receipt, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrRecognitionFailed)
	}

	body, contentType, err := c.encode(image)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrTransient, err)
	}

	slog.Debug("Receipt service answered",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrRecognitionFailed, resp.StatusCode)
	}

	var parsed checkResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrTransient, err)
	}

	switch parsed.Code {
	case codeOK:
	case codeNotReady, codeRateLimited, codeWaiting:
		return nil, fmt.Errorf("%w: service code %d", ErrTransient, parsed.Code)
	default:
		return nil, fmt.Errorf("%w: service code %d", ErrRecognitionFailed, parsed.Code)
	}

	var data checkData
	if err := json.Unmarshal(parsed.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: failed to decode receipt: %v", ErrTransient, err)
	}

	return toReceipt(&data), nil
}

func (c *Client) encode(image []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("token", c.token); err != nil {
		return nil, "", fmt.Errorf("failed to write token field: %w", err)
	}
	part, err := w.CreateFormFile("qrfile", "receipt.jpg")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file field: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// toReceipt converts kopecks to roubles. Weighed goods come with a
// fractional quantity; they count as a single unit at the printed sum.
func toReceipt(data *checkData) *Receipt {
	doc := data.JSON
	shop := strings.TrimSpace(doc.RetailPlace)
	if shop == "" {
		shop = strings.TrimSpace(doc.User)
	}

	r := &Receipt{ShopName: shop}
	for _, it := range doc.Items {
		qty := 1
		if it.Quantity >= 1 && it.Quantity == math.Trunc(it.Quantity) {
			qty = int(it.Quantity)
		}
		r.Items = append(r.Items, Item{
			Name:       strings.TrimSpace(it.Name),
			Quantity:   qty,
			TotalPrice: float64(it.Sum) / 100,
		})
	}
	return r
}
