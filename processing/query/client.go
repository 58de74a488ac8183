package query

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"time"

	"robovision/internal/models"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	// ErrTransport covers network failures and non-2xx responses.
	ErrTransport = errors.New("transport error")
	// ErrMalformedResponse means the backend answered with an unexpected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

const maxBodySize = 32 << 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client talks to the vision backend.
type Client struct {
	serverURL string
	http      *http.Client
	validate  *validator.Validate
}

// NewClient returns a client for serverURL. A zero timeout means requests
// wait until the backend answers.
func NewClient(serverURL string, timeout time.Duration) *Client {
	return &Client{
		serverURL: serverURL,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		validate: validator.New(),
	}
}

// Query uploads one JPEG frame with the operator's text.
func (c *Client) Query(ctx context.Context, frameJPEG []byte, text string) (*models.QueryResponse, error) {
	body, contentType, err := buildQueryForm(frameJPEG, text)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp models.QueryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := c.validate.Struct(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if _, ok := resp.Triple(); !ok {
		return nil, fmt.Errorf("%w: coordinates must be three numbers", ErrMalformedResponse)
	}

	return &resp, nil
}

// FetchImage downloads and decodes the masked image.
func (c *Client) FetchImage(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", ErrMalformedResponse, err)
	}

	return img, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s: status %d: %s", ErrTransport, req.Method, req.URL, resp.StatusCode, snippet(data))
	}

	return data, nil
}

func buildQueryForm(frameJPEG []byte, text string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(frameJPEG); err != nil {
		return nil, "", err
	}

	if err := w.WriteField("query", text); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

func snippet(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
