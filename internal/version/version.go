// Package version reports the build version and checks for newer releases.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	goversion "github.com/hashicorp/go-version"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X .../internal/version.Version=v1.2.3".
var Version = "v0.0.0"

type release struct {
	TagName string `json:"tag_name"`
}

// Checker compares the running version with the latest published release.
type Checker struct {
	URL     string
	Current string
	Client  *http.Client
	Logger  *zap.Logger
}

// Latest fetches the newest release tag and reports whether it is ahead of
// the running version.
func (c *Checker) Latest(ctx context.Context) (string, bool, error) {
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("release check returned %d", resp.StatusCode)
	}

	var r release
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", false, err
	}

	current, err := goversion.NewVersion(c.Current)
	if err != nil {
		return "", false, fmt.Errorf("current version %q: %w", c.Current, err)
	}
	latest, err := goversion.NewVersion(r.TagName)
	if err != nil {
		return "", false, fmt.Errorf("release tag %q: %w", r.TagName, err)
	}

	return r.TagName, current.LessThan(latest), nil
}

// Check logs a warning when a newer release exists. Failures are logged at
// debug and otherwise ignored.
func (c *Checker) Check(ctx context.Context) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	latest, outdated, err := c.Latest(ctx)
	if err != nil {
		logger.Debug("update check failed", zap.Error(err))
		return
	}
	if outdated {
		logger.Warn("a newer release is available",
			zap.String("current", c.Current),
			zap.String("latest", latest),
		)
	}
}
