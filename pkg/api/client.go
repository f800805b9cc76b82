package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dotmac/internal/common"
)

const DefaultTimeout = 10 * time.Second

type NewClientOpts struct {
	BaseUrl    string
	BearerAuth *NewClientBearerAuthOpts
	HttpClient *http.Client

	// Id will be included in the user-agent for identification
	Id string

	// ServiceLogs receives one entry per failed request
	ServiceLogs chan<- common.ServiceLog
}

type NewClientBearerAuthOpts struct {
	Token string
}

func NewClient(opts NewClientOpts) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse provided baseUrl[%s]: %w", opts.BaseUrl, err)
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("failed to determine scheme and host of baseUrl[%s]: %w", opts.BaseUrl, ErrorInvalidBaseUrl)
	}
	httpClient := opts.HttpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	var serviceLogs chan<- common.ServiceLog = common.GetNoopServiceLog()
	if opts.ServiceLogs != nil {
		serviceLogs = opts.ServiceLogs
	}
	return &Client{
		BaseUrl:     baseUrl,
		BearerAuth:  opts.BearerAuth,
		HttpClient:  httpClient,
		Id:          opts.Id,
		serviceLogs: serviceLogs,
	}, nil
}

// Client is a JSON client for the platform backend
type Client struct {
	BaseUrl    *url.URL
	BearerAuth *NewClientBearerAuthOpts
	HttpClient *http.Client
	Id         string

	serviceLogs chan<- common.ServiceLog
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Do executes the request and decodes a successful JSON response into
// out when it is non-nil. Responses wrapped in the common.HttpResponse
// envelope are unwrapped
func (c *Client) Do(ctx context.Context, request Request, out any) error {
	// Path is treated as already escaped, callers escape ids with
	// url.PathEscape
	target := *c.BaseUrl
	if request.Path != "" {
		target = *c.BaseUrl.JoinPath(request.Path)
	}
	if len(request.Query) > 0 {
		target.RawQuery = request.Query.Encode()
	}

	var body io.Reader
	if request.Body != nil {
		requestBodyData, err := json.Marshal(request.Body)
		if err != nil {
			return fmt.Errorf("failed to marshal data: %w", err)
		}
		body = bytes.NewReader(requestBodyData)
	}
	httpRequest, err := http.NewRequestWithContext(ctx, request.Method, target.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create http request[%s %s]: %w", request.Method, request.Path, err)
	}
	for key, values := range request.Header {
		for _, value := range values {
			httpRequest.Header.Add(key, value)
		}
	}
	httpRequest.Header.Set("Accept", "application/json")
	if body != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	httpRequest.Header.Set("User-Agent", fmt.Sprintf("dotmac/api-sdk/client-%s", c.Id))
	if c.BearerAuth != nil && c.BearerAuth.Token != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+c.BearerAuth.Token)
	}

	httpResponse, err := c.HttpClient.Do(httpRequest)
	if err != nil {
		c.serviceLogs <- common.ServiceLogf(common.LogLevelError, "request[%s %s] failed: %s", request.Method, target.Path, err)
		return fmt.Errorf("failed to execute http request[%s %s]: %w", request.Method, request.Path, err)
	}
	defer httpResponse.Body.Close()
	responseBody, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		apiErr := parseError(httpResponse.StatusCode, responseBody)
		c.serviceLogs <- common.ServiceLogf(errorLevel(apiErr.StatusCode), "request[%s %s] returned %s", request.Method, target.Path, apiErr)
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(responseBody)) == 0 {
		return nil
	}
	return decode(responseBody, out)
}

// errorLevel keeps expected lookups quiet, 404 is how the backend reports
// an absent subscription or branding
func errorLevel(statusCode int) common.LogLevel {
	switch {
	case statusCode == http.StatusNotFound:
		return common.LogLevelDebug
	case statusCode >= http.StatusInternalServerError:
		return common.LogLevelError
	}
	return common.LogLevelWarn
}

func decode(responseBody []byte, out any) error {
	var envelope struct {
		Data    json.RawMessage `json:"data"`
		Success *bool           `json:"success"`
	}
	if err := json.Unmarshal(responseBody, &envelope); err == nil && envelope.Success != nil && envelope.Data != nil {
		responseBody = envelope.Data
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// parseError reads the backend error shapes: the common.HttpResponse
// envelope and {"detail": ...} bodies
func parseError(statusCode int, responseBody []byte) *Error {
	output := &Error{StatusCode: statusCode}
	var parsed struct {
		common.HttpResponse
		Detail any    `json:"detail"`
		Error  string `json:"error"`
		Code   string `json:"code"`
	}
	if err := json.Unmarshal(responseBody, &parsed); err == nil {
		output.Code = parsed.Code
		switch detail := parsed.Detail.(type) {
		case string:
			output.Message = detail
		case nil:
		default:
			if encoded, err := json.Marshal(detail); err == nil {
				output.Message = string(encoded)
			}
		}
		if output.Message == "" {
			output.Message = parsed.Message
		}
		if output.Message == "" {
			output.Message = parsed.Error
		}
	}
	if output.Message == "" {
		output.Message = strings.TrimSpace(string(responseBody))
	}
	if output.Message == "" {
		output.Message = http.StatusText(statusCode)
	}
	return output
}

func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (*T, error) {
	var output T
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, &output); err != nil {
		return nil, err
	}
	return &output, nil
}

func Post[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	var output T
	if err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, &output); err != nil {
		return nil, err
	}
	return &output, nil
}

func Patch[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	var output T
	if err := c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, &output); err != nil {
		return nil, err
	}
	return &output, nil
}

func Delete(ctx context.Context, c *Client, path string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, nil)
}
