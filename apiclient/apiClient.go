// Package apiclient to provide methods to send HTTP requests
// to the fraud dashboard server.
package apiclient

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
)

const (
	// DefaultBasePath is the default base path for the API client.
	DefaultBasePath = "/api"
)

// httpUnexpectedStatusCodeError is a custom error.
var errHTTPUnexpectedStatusCode = errors.New("unexpected http status code")
var errHTTPBasePathFormatting = errors.New("error formatting HTTP base path")
var errHTTPBodyUnmarshall = errors.New("error unmarshalling HTTP response body")
var errHTTPDashboardAPI = errors.New("error returned from dashboard api")

// APIClient manages all endpoints of the dashboard API.
type APIClient struct {
	// a pointer to the http client to use.
	HTTPClient *http.Client
	// a pointer to the url to be used as a base url for all requests.
	BasePath *url.URL
}

// HTTPUnexpectedStatusCodeError is a error wrapper.
func HTTPUnexpectedStatusCodeError(statusCode int) error {
	return fmt.Errorf("%w, %d", errHTTPUnexpectedStatusCode, statusCode)
}

func HTPBasePathFormattingError(basePath string) error {
	return fmt.Errorf("%w, %s", errHTTPBasePathFormatting, basePath)
}

func HTTPBodyUnmarshallError(baseErr error) error {
	return fmt.Errorf("%w, %w", errHTTPBodyUnmarshall, baseErr)
}

func HTTPDashboardAPIError(errorMsg string) error {
	return fmt.Errorf("%w, %s", errHTTPDashboardAPI, errorMsg)
}

// NewAPIClient creates a new APIClient.
func NewAPIClient(httpClient *http.Client, basePath string) (*APIClient, error) {
	// Use a default http client if none is provided.
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	// Parse the base path URL.
	basePathURL, err := url.Parse(strings.TrimRight(basePath, "/"))
	if err != nil || basePathURL.Scheme == "" || basePathURL.Host == "" {
		return nil, HTPBasePathFormattingError(basePath)
	}

	// Return a new APIClient instance.
	return &APIClient{
		HTTPClient: httpClient,
		BasePath:   basePathURL,
	}, nil
}

// EchoResponse represents the response from the Echo endpoint.
type EchoResponse struct {
	// The value that was echoed back.
	EchoedValue string `json:"value,omitempty"`
}

// DebugMessageResponse represents a debug message attached to an HTTP response.
type DebugMessageResponse struct {
	// A message attached to an HTTP response for debugging purposes.
	Message string `json:"message,omitempty"`
}

// ReportTransaction is one flagged transaction in a published report.
type ReportTransaction struct {
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	DebtorName    string  `json:"debtorName"`
	CreditorName  string  `json:"creditorName"`
	AnomalyScore  float64 `json:"anomalyScore"`
}

// AnomalyReportRequest is the body of PUT /reports/anomalies.
type AnomalyReportRequest struct {
	// Identifier of the processed batch.
	BatchID string `json:"batchId"`
	// Name of the source document.
	Source string `json:"source"`
	// PACS.008 or PACS.001.
	FileType string `json:"fileType"`
	// Number of transactions in the batch.
	Transactions int `json:"transactions"`
	// One of ok, no_anomalies or error.
	Status          string              `json:"status"`
	Info            string              `json:"info,omitempty"`
	Error           string              `json:"error,omitempty"`
	Count           int                 `json:"count"`
	MeanAmount      float64             `json:"meanAmount"`
	MaxAmount       float64             `json:"maxAmount"`
	MinScore        float64             `json:"minScore"`
	TopTransactions []ReportTransaction `json:"topTransactions,omitempty"`
}

// AnomalyReportPutResponse response body from PUT report.
type AnomalyReportPutResponse struct {
	ReportID string `json:"reportId"`
}

// DoEcho sends a GET request to the /echo endpoint.
func (c *APIClient) DoEcho(ctx context.Context, inputVal string) (*http.Response, *EchoResponse, error) {
	// Construct the full URL by combining the base path with the endpoint path.
	localVarPath := c.BasePath.String() + "/echo"

	// Create the request.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, localVarPath, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}

	// Add query parameters.
	q := req.URL.Query()
	q.Add("inputVal", inputVal)
	req.URL.RawQuery = q.Encode()

	// Add Content-Type header.
	req.Header.Add("Content-Type", "application/json")

	// Send the request.
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return resp, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var result EchoResponse
		if err = decodeBody(resp, &result); err != nil {
			return resp, nil, err
		}
		return resp, &result, nil
	}

	return resp, nil, errorFromResponse(resp)
}

// PublishReport sends a PUT request to the /reports/anomalies endpoint.
func (c *APIClient) PublishReport(
	ctx context.Context,
	report AnomalyReportRequest) (*http.Response, *AnomalyReportPutResponse, error) {
	// Marshal the request body.
	bodyBytes, err := json.Marshal(report)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling request body: %w", err)
	}

	// Construct the full URL by combining the base path with the endpoint path.
	localVarPath := c.BasePath.String() + "/reports/anomalies"

	// Create the request.
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, localVarPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}

	// Add Content-Type header.
	req.Header.Add("Content-Type", "application/json")

	// Send the request.
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return resp, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	// Handle response based on status code.
	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK {
		var result AnomalyReportPutResponse
		if err = decodeBody(resp, &result); err != nil {
			return resp, nil, err
		}
		return resp, &result, nil
	}

	return resp, nil, errorFromResponse(resp)
}

// decodeBody reads the response body into out.
func decodeBody(resp *http.Response, out any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if err = json.Unmarshal(body, out); err != nil {
		return HTTPBodyUnmarshallError(err)
	}

	return nil
}

// errorFromResponse turns a non-success response into an error, using the
// debug message the server attaches to 4xx and 5xx responses.
func errorFromResponse(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return HTTPUnexpectedStatusCodeError(resp.StatusCode)
	}

	var debugMsg DebugMessageResponse
	if err := decodeBody(resp, &debugMsg); err != nil {
		return err
	}

	return HTTPDashboardAPIError(debugMsg.Message)
}
