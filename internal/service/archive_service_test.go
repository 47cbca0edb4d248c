package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"payme-bot/pkg/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type dropboxStub struct {
	tokenRequests  int32
	uploadRequests int32
	uploadedPath   string
	uploadStatus   int
	linkStatus     int
	existingLinks  []string
}

func newDropboxStub() *dropboxStub {
	return &dropboxStub{uploadStatus: http.StatusOK, linkStatus: http.StatusOK}
}

func (d *dropboxStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&d.tokenRequests, 1)
		if r.FormValue("grant_type") != "refresh_token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh-token",
			"expires_in":   14400,
		})
	})

	mux.HandleFunc("/2/files/upload", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&d.uploadRequests, 1)
		var arg struct {
			Path string `json:"path"`
		}
		json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg)
		d.uploadedPath = arg.Path
		w.WriteHeader(d.uploadStatus)
	})

	mux.HandleFunc("/2/sharing/create_shared_link_with_settings", func(w http.ResponseWriter, r *http.Request) {
		if d.linkStatus != http.StatusOK {
			w.WriteHeader(d.linkStatus)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"url": "https://www.dropbox.com/s/new"})
	})

	mux.HandleFunc("/2/sharing/list_shared_links", func(w http.ResponseWriter, r *http.Request) {
		links := make([]map[string]string, 0, len(d.existingLinks))
		for _, url := range d.existingLinks {
			links = append(links, map[string]string{"url": url})
		}
		json.NewEncoder(w).Encode(map[string]any{"links": links})
	})

	return mux
}

func newArchiveFixture(t *testing.T, stub *dropboxStub) (*ArchiveService, string) {
	t.Helper()
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	cfg := config.DropboxConfig{
		AppKey:         "app-key",
		AppSecret:      "app-secret",
		RefreshToken:   "refresh-token",
		APIBaseURL:     server.URL,
		ContentBaseURL: server.URL,
		TokenURL:       server.URL + "/oauth2/token",
		UploadTimeout:  5 * time.Second,
	}

	svc := NewArchiveService(cfg, zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2026, time.March, 7, 14, 30, 5, 0, time.UTC)
	}

	localPath := filepath.Join(t.TempDir(), "receipt.jpg")
	require.NoError(t, os.WriteFile(localPath, []byte("jpeg bytes"), 0o644))
	return svc, localPath
}

func TestArchiveUploadsAndSharesLink(t *testing.T) {
	stub := newDropboxStub()
	svc, localPath := newArchiveFixture(t, stub)

	recordID := uuid.New()
	url := svc.Archive(context.Background(), localPath, "JVK", "JVK_RENT", recordID)

	assert.Equal(t, "https://www.dropbox.com/s/new", url)
	expected := "/PayMe/JVK/2026/03/" + recordID.String() + "_20260307_143005.jpg"
	assert.Equal(t, expected, stub.uploadedPath)
}

func TestArchiveReusesExistingLinkOnConflict(t *testing.T) {
	stub := newDropboxStub()
	stub.linkStatus = http.StatusConflict
	stub.existingLinks = []string{"https://www.dropbox.com/s/existing"}
	svc, localPath := newArchiveFixture(t, stub)

	url := svc.Archive(context.Background(), localPath, "HQ", "", uuid.New())
	assert.Equal(t, "https://www.dropbox.com/s/existing", url)
}

func TestArchiveUploadFailureReturnsEmpty(t *testing.T) {
	stub := newDropboxStub()
	stub.uploadStatus = http.StatusInternalServerError
	svc, localPath := newArchiveFixture(t, stub)

	url := svc.Archive(context.Background(), localPath, "FS", "", uuid.New())
	assert.Empty(t, url)
}

func TestArchiveMissingFileReturnsEmpty(t *testing.T) {
	stub := newDropboxStub()
	svc, _ := newArchiveFixture(t, stub)

	url := svc.Archive(context.Background(), "/nonexistent/receipt.jpg", "FS", "", uuid.New())
	assert.Empty(t, url)
	assert.Zero(t, atomic.LoadInt32(&stub.uploadRequests))
}

func TestArchiveCachesAccessToken(t *testing.T) {
	stub := newDropboxStub()
	svc, localPath := newArchiveFixture(t, stub)
	ctx := context.Background()

	svc.Archive(ctx, localPath, "JVK", "", uuid.New())
	svc.Archive(ctx, localPath, "JVK", "", uuid.New())

	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.tokenRequests))
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.uploadRequests))
}

func TestTokenProviderLegacyStaticToken(t *testing.T) {
	provider := newTokenProvider(config.DropboxConfig{AccessToken: "legacy"}, http.DefaultClient, zap.NewNop())

	token, err := provider.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "legacy", token)
}

func TestTokenProviderNoCredentials(t *testing.T) {
	provider := newTokenProvider(config.DropboxConfig{}, http.DefaultClient, zap.NewNop())

	_, err := provider.AccessToken(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "credentials"))
}
