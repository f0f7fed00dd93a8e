package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func releaseServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLatest(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		tag      string
		outdated bool
	}{
		{"newer release", "v1.0.0", "v1.1.0", true},
		{"same release", "v1.1.0", "v1.1.0", false},
		{"running ahead", "v2.0.0", "v1.9.9", false},
		{"prerelease is older", "v1.0.0", "v1.0.0-rc1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := releaseServer(t, http.StatusOK, `{"tag_name":"`+tt.tag+`"}`)
			c := &Checker{URL: srv.URL, Current: tt.current}

			latest, outdated, err := c.Latest(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.tag, latest)
			assert.Equal(t, tt.outdated, outdated)
		})
	}
}

func TestLatestErrors(t *testing.T) {
	srv := releaseServer(t, http.StatusNotFound, "")
	_, _, err := (&Checker{URL: srv.URL, Current: "v1.0.0"}).Latest(context.Background())
	assert.Error(t, err)

	srv = releaseServer(t, http.StatusOK, `{"tag_name":"not-a-version"}`)
	_, _, err = (&Checker{URL: srv.URL, Current: "v1.0.0"}).Latest(context.Background())
	assert.Error(t, err)
}

func TestCheckLogsOutdated(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	srv := releaseServer(t, http.StatusOK, `{"tag_name":"v9.0.0"}`)

	c := &Checker{URL: srv.URL, Current: "v1.0.0", Logger: zap.New(core)}
	c.Check(context.Background())

	warnings := logs.FilterMessage("a newer release is available").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "v9.0.0", warnings[0].ContextMap()["latest"])
}
