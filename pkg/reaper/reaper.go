// Package reaper tears down workspace compute through the runtime manager API.
package reaper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
	"github.com/ogulcanaydogan/credit-guardian/pkg/upstream"
)

// HTTPReaper deletes every runtime in a workspace's cloud project. Disks are
// kept so users can recover their files after attaching a new billing account.
type HTTPReaper struct {
	client  *upstream.Client
	baseURL string
	token   string
	logger  *slog.Logger
}

// New creates a reaper for the runtime manager at baseURL.
func New(client *upstream.Client, baseURL, token string, logger *slog.Logger) *HTTPReaper {
	return &HTTPReaper{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		logger:  logger,
	}
}

// DeleteAllResources requests deletion of all runtimes in ws. A project the
// runtime manager does not know is treated as already clean.
func (r *HTTPReaper) DeleteAllResources(ctx context.Context, ws model.Workspace) error {
	if ws.GoogleProject == "" {
		return fmt.Errorf("workspace %d has no google project", ws.ID)
	}

	endpoint := fmt.Sprintf("%s/api/google/v1/resources/%s?deleteDisk=false",
		r.baseURL, url.PathEscape(ws.GoogleProject))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create teardown request: %w", err)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("teardown %s: %w", ws.GoogleProject, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		r.logger.Debug("no runtimes to delete", "workspace_id", ws.ID, "google_project", ws.GoogleProject)
		return nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		r.logger.Debug("runtimes deleted", "workspace_id", ws.ID, "google_project", ws.GoogleProject)
		return nil
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("teardown %s: status %d: %s", ws.GoogleProject, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}
