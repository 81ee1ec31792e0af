package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"checkout-service/models"
)

// ProofFormField is the multipart field the Order API reads the proof from.
const ProofFormField = "proof"

// APIError is a non-2xx answer from the Order API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("order api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("order api returned status %d: %s", e.StatusCode, e.Message)
}

// OrderClient talks to the Order API.
type OrderClient struct {
	baseURL string
	client  *http.Client
}

func NewOrderClient(baseURL string, timeout time.Duration) *OrderClient {
	return &OrderClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *OrderClient) Do(ctx context.Context, method, path string, query url.Values, headers http.Header, body io.Reader) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}

	for k, v := range headers {
		for _, vv := range v {
			req.Header.Add(k, vv)
		}
	}

	return c.client.Do(req)
}

// ListDeliveryLocations fetches every delivery location. The Order API has
// answered with a bare array as well as wrapped in an object, both are accepted.
func (c *OrderClient) ListDeliveryLocations(ctx context.Context) ([]models.DeliveryLocation, error) {
	resp, err := c.Do(ctx, http.MethodGet, "/delivery-locations", nil, jsonHeaders(""), nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := DecodeJSON(resp, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var locations []models.DeliveryLocation
		if err := json.Unmarshal(trimmed, &locations); err != nil {
			return nil, fmt.Errorf("decode delivery locations: %w", err)
		}
		return locations, nil
	}

	var wrapped struct {
		Locations         []models.DeliveryLocation `json:"locations"`
		DeliveryLocations []models.DeliveryLocation `json:"deliveryLocations"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode delivery locations: %w", err)
	}
	if wrapped.DeliveryLocations != nil {
		return wrapped.DeliveryLocations, nil
	}
	if wrapped.Locations == nil {
		return []models.DeliveryLocation{}, nil
	}
	return wrapped.Locations, nil
}

// CreateOrder posts draft and returns the created order's id and number.
func (c *OrderClient) CreateOrder(ctx context.Context, token string, draft models.OrderDraft) (*models.CreatedOrder, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, "/orders", nil, jsonHeaders(token), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var out struct {
		Order models.CreatedOrder `json:"order"`
	}
	if err := DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	if out.Order.ID == "" {
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: "order api response has no order id"}
	}
	return &out.Order, nil
}

// UploadPaymentProof attaches file to an existing order as multipart field
// "proof".
func (c *OrderClient) UploadPaymentProof(ctx context.Context, token, orderID string, file models.ProofFile) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreatePart(proofPartHeader(file))
	if err != nil {
		return err
	}
	if _, err := part.Write(file.Data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	headers := http.Header{}
	headers.Set("Content-Type", mw.FormDataContentType())
	setBearer(headers, token)

	path := "/orders/" + url.PathEscape(orderID) + "/upload-payment-proof"
	resp, err := c.Do(ctx, http.MethodPost, path, nil, headers, &buf)
	if err != nil {
		return err
	}
	return DecodeJSON(resp, nil)
}

// DecodeJSON closes resp.Body and decodes it into out. A non-2xx status
// becomes an *APIError carrying the server's message or error field.
func DecodeJSON(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func jsonHeaders(token string) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json")
	setBearer(h, token)
	return h
}

func setBearer(h http.Header, token string) {
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
}

func proofPartHeader(file models.ProofFile) textproto.MIMEHeader {
	name := file.Name
	if name == "" {
		name = "proof"
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, ProofFormField, escapeQuotes(name)))
	h.Set("Content-Type", contentType)
	return h
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
