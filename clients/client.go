package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const headerKeyCorrelationID = "Correlation-ID"

type client struct {
	baseURL    string
	httpClient *http.Client
}

func newClient(baseURL string) client {
	return client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// postJSON sends body to path and decodes a 2xx response into out.
func (c client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerKeyCorrelationID, log.CorrelationIDFromContext(ctx))

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return responseError(res.StatusCode, resBody)
	}

	if err := json.Unmarshal(resBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

func responseError(statusCode int, body []byte) error {
	var errRes errorResponse
	if err := json.Unmarshal(body, &errRes); err == nil {
		if errRes.Message != "" {
			return errors.New(errRes.Message)
		}
		if errRes.Error != "" {
			return errors.New(errRes.Error)
		}
	}

	return fmt.Errorf("unexpected status code: %d %s", statusCode, http.StatusText(statusCode))
}
