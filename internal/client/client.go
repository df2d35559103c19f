// Package client calls the formation HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/enfinlibre/formation/internal/api"
	"github.com/enfinlibre/formation/internal/store"
)

// ErrIncompatible is returned by CheckCompatible when client and server
// major versions differ.
var ErrIncompatible = errors.New("incompatible server version")

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("HTTP %d: %s (%s)", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// NotFound reports whether the server answered 404.
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// API is the set of server calls made by the terminal client.
type API interface {
	Submit(ctx context.Context, req api.SubmitQuizRequest) (*api.SubmitQuizResponse, error)
	Analyze(ctx context.Context, submissionID string) (*api.AnalyzeQuizResponse, error)
	ListSubmissions(ctx context.Context, limit int) ([]api.SubmissionDTO, error)
	GetSubmission(ctx context.Context, id string) (*api.SubmissionResponse, error)
	Health(ctx context.Context) (*api.HealthResponse, error)
}

var _ API = (*Client)(nil)

// Client talks to one server.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for baseURL. The timeout bounds each request and
// must exceed the server's analysis timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Submit sends a quiz submission.
func (c *Client) Submit(ctx context.Context, req api.SubmitQuizRequest) (*api.SubmitQuizResponse, error) {
	var out api.SubmitQuizResponse
	if err := c.do(ctx, http.MethodPost, api.PathSubmitQuiz, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze requests the analysis of a stored submission.
func (c *Client) Analyze(ctx context.Context, submissionID string) (*api.AnalyzeQuizResponse, error) {
	var out api.AnalyzeQuizResponse
	body := api.AnalyzeQuizRequest{SubmissionID: submissionID}
	if err := c.do(ctx, http.MethodPost, api.PathAnalyzeQuiz, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeAnswers requests an analysis of answers that are not stored.
func (c *Client) AnalyzeAnswers(ctx context.Context, answers store.Answers) (*api.AnalyzeQuizResponse, error) {
	var out api.AnalyzeQuizResponse
	body := api.AnalyzeQuizRequest{Answers: ToAnswersDTO(answers)}
	if err := c.do(ctx, http.MethodPost, api.PathAnalyzeQuiz, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSubmissions returns stored submissions, newest first. A limit of 0
// returns all of them.
func (c *Client) ListSubmissions(ctx context.Context, limit int) ([]api.SubmissionDTO, error) {
	path := api.PathSubmissions
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out api.SubmissionListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetSubmission returns one submission with its parsed analysis.
func (c *Client) GetSubmission(ctx context.Context, id string) (*api.SubmissionResponse, error) {
	var out api.SubmissionResponse
	if err := c.do(ctx, http.MethodGet, api.PathSubmissions+"/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the server status.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var out api.HealthResponse
	if err := c.do(ctx, http.MethodGet, api.PathHealth, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckCompatible compares major versions. Development builds, which carry
// no semantic version, are always compatible.
func CheckCompatible(clientVersion, serverVersion string) error {
	cv, sv := canonical(clientVersion), canonical(serverVersion)
	if cv == "" || sv == "" {
		return nil
	}
	if semver.Major(cv) != semver.Major(sv) {
		return fmt.Errorf("%w: client %s, server %s", ErrIncompatible, cv, sv)
	}
	return nil
}

func canonical(v string) string {
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}

// ToAnswersDTO converts answers to their wire form.
func ToAnswersDTO(answers store.Answers) api.AnswersDTO {
	out := make(api.AnswersDTO, len(answers))
	for i, a := range answers {
		out[strconv.Itoa(i)] = a
	}
	return out
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e api.ErrorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
			apiErr.Details = e.Details
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
