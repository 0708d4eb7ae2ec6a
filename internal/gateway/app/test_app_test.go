package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tutorui/internal/gateway/config"
	"tutorui/internal/llm"
)

func localConfig() *config.Config {
	return &config.Config{
		Port:     ":0",
		Env:      "local",
		LogLevel: "info",
		LLM:      llm.Config{Provider: llm.ProviderFake, Timeout: time.Second},
		Activity: config.ActivityConfig{RecentLimit: 5, CacheEntries: 16},
	}
}

func TestNewWithConfigServesPages(t *testing.T) {
	a, err := NewWithConfig(context.Background(), localConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/pages", strings.NewReader(`{"utterance":"teach me fractions","context":{"userId":"u1"}}`))
	a.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dialogue"`)
	assert.NotEmpty(t, rec.Header().Get("X-Page-Archive-Key"))
}

func TestNewWithConfigLoadsCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("components:\n  - type: guidingQuestion\n  - type: conceptCard\n"), 0o644))
	cfg := localConfig()
	cfg.CatalogPath = path

	a, err := NewWithConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/catalog", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "conceptCard")
	assert.NotContains(t, rec.Body.String(), "dynamicLedger")
}

func TestNewWithConfigErrors(t *testing.T) {
	cfg := localConfig()
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := NewWithConfig(context.Background(), cfg, nil)
	require.Error(t, err)

	cfg = localConfig()
	cfg.LLM.Provider = "carrier-pigeon"
	_, err = NewWithConfig(context.Background(), cfg, nil)
	require.Error(t, err)

	cfg = localConfig()
	cfg.Archive = config.ArchiveConfig{Enabled: true, Endpoint: "localhost:9000", Bucket: "pages"}
	_, err = NewWithConfig(context.Background(), cfg, nil)
	require.Error(t, err, "s3 archive without credentials")
}

func TestNewWithConfigWarnsWhenFakeModelIsDefaulted(t *testing.T) {
	for name, defaulted := range map[string]bool{"defaulted": true, "explicit": false} {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			cfg := localConfig()
			cfg.FakeModelDefaulted = defaulted

			a, err := NewWithConfig(context.Background(), cfg, zap.New(core))
			require.NoError(t, err)
			t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

			warned := logs.FilterMessageSnippet("serving pages from the fake model").Len()
			if defaulted {
				assert.Equal(t, 1, warned)
			} else {
				assert.Zero(t, warned)
			}
		})
	}
}
