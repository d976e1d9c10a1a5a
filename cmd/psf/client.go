package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"psfd/internal/api"
)

// client is a thin HTTP wrapper over the daemon's API.
type client struct {
	base string
	http *http.Client
}

func newClient(addr string) *client {
	base := strings.TrimSpace(addr)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var failure api.ErrorResponse
		if err := json.Unmarshal(data, &failure); err == nil && failure.Error != "" {
			return fmt.Errorf("%s", failure.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *client) CreateSession(ctx context.Context) (*api.SessionCreated, error) {
	var created api.SessionCreated
	if err := c.do(ctx, http.MethodPost, "/api/sessions", nil, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *client) GetSession(ctx context.Context, id string) (*api.SessionView, error) {
	var view api.SessionView
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+id, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *client) Transition(ctx context.Context, id, target string) (*api.TransitionResult, error) {
	var result api.TransitionResult
	body := map[string]string{"targetState": target}
	if err := c.do(ctx, http.MethodPatch, "/api/sessions/"+id, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *client) GetInputs(ctx context.Context, id string) (*api.CVPFields, error) {
	var fields api.CVPFields
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+id+"/inputs", nil, &fields); err != nil {
		return nil, err
	}
	return &fields, nil
}

func (c *client) SaveInputs(ctx context.Context, id string, fields api.CVPFields) (*api.CVPFields, error) {
	var saved api.CVPFields
	if err := c.do(ctx, http.MethodPut, "/api/sessions/"+id+"/inputs", fields, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *client) GetJob(ctx context.Context, id string) (*api.JobView, error) {
	var view api.JobView
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+id, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *client) SessionJobs(ctx context.Context, id string) ([]api.JobView, error) {
	var list struct {
		Jobs []api.JobView `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+id+"/jobs", nil, &list); err != nil {
		return nil, err
	}
	return list.Jobs, nil
}

func (c *client) Artifacts(ctx context.Context, id string) (*api.ArtifactListResponse, error) {
	var list api.ArtifactListResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+id+"/artifacts", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var status api.DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *client) Export(ctx context.Context, token string) (*api.ExportView, error) {
	var export api.ExportView
	if err := c.do(ctx, http.MethodGet, "/api/export/"+token, nil, &export); err != nil {
		return nil, err
	}
	return &export, nil
}
