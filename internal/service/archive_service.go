package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"payme-bot/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tokenExpiryMargin = 5 * time.Minute

// tokenProvider exchanges a long-lived refresh token for short-lived access
// tokens and caches the current one until shortly before expiry.
type tokenProvider struct {
	cfg        config.DropboxConfig
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newTokenProvider(cfg config.DropboxConfig, httpClient *http.Client, logger *zap.Logger) *tokenProvider {
	return &tokenProvider{cfg: cfg, httpClient: httpClient, logger: logger}
}

// AccessToken returns a valid access token, refreshing when the cached one
// is within the expiry margin. Without a refresh token it falls back to the
// static legacy token from config.
func (p *tokenProvider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.RefreshToken == "" {
		if p.cfg.AccessToken == "" {
			return "", fmt.Errorf("no dropbox credentials configured")
		}
		return p.cfg.AccessToken, nil
	}

	if p.token != "" && time.Now().Before(p.expiresAt.Add(-tokenExpiryMargin)) {
		return p.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", p.cfg.RefreshToken)
	form.Set("client_id", p.cfg.AppKey)
	form.Set("client_secret", p.cfg.AppSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token refresh returned status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response contains no access token")
	}
	if tokenResp.ExpiresIn <= 0 {
		tokenResp.ExpiresIn = 14400
	}

	p.token = tokenResp.AccessToken
	p.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	p.logger.Info("Refreshed dropbox access token",
		zap.Time("expires_at", p.expiresAt),
	)
	return p.token, nil
}

// ArchiveService uploads confirmed source files to Dropbox and returns a
// shared link for the record. Every failure is logged and reported as an
// empty URL; archiving never blocks confirmation.
type ArchiveService struct {
	cfg        config.DropboxConfig
	tokens     *tokenProvider
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

func NewArchiveService(cfg config.DropboxConfig, logger *zap.Logger) *ArchiveService {
	httpClient := &http.Client{Timeout: cfg.UploadTimeout}
	return &ArchiveService{
		cfg:        cfg,
		tokens:     newTokenProvider(cfg, httpClient, logger),
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// Archive uploads localPath under /PayMe/<category>/<year>/<month>/ with a
// record-scoped file name and returns a shared link, or "" on any failure.
func (s *ArchiveService) Archive(ctx context.Context, localPath, categoryCode, subcategoryCode string, recordID uuid.UUID) string {
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		s.logger.Error("Archive skipped, no access token", zap.Error(err))
		return ""
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		s.logger.Error("Archive skipped, cannot read file",
			zap.String("path", localPath),
			zap.Error(err),
		)
		return ""
	}

	remotePath := s.remotePath(localPath, categoryCode, recordID)
	if err := s.upload(ctx, token, remotePath, data); err != nil {
		s.logger.Error("Archive upload failed",
			zap.String("remote_path", remotePath),
			zap.Error(err),
		)
		return ""
	}

	link, err := s.sharedLink(ctx, token, remotePath)
	if err != nil {
		s.logger.Error("Failed to create shared link",
			zap.String("remote_path", remotePath),
			zap.Error(err),
		)
		return ""
	}
	return link
}

// remotePath builds /PayMe/<categoryCode>/<YYYY>/<MM>/<recordID>_<timestamp><ext>.
func (s *ArchiveService) remotePath(localPath, categoryCode string, recordID uuid.UUID) string {
	now := s.now().UTC()
	ext := filepath.Ext(localPath)
	fileName := fmt.Sprintf("%s_%s%s", recordID.String(), now.Format("20060102_150405"), ext)
	return fmt.Sprintf("/PayMe/%s/%04d/%02d/%s", categoryCode, now.Year(), int(now.Month()), fileName)
}

func (s *ArchiveService) upload(ctx context.Context, token, remotePath string, data []byte) error {
	arg, err := json.Marshal(map[string]any{
		"path":       remotePath,
		"mode":       "add",
		"autorename": true,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ContentBaseURL+"/2/files/upload", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// sharedLink creates a shared link for the uploaded file. Dropbox answers
// 409 when a link already exists for the path; the existing one is reused.
func (s *ArchiveService) sharedLink(ctx context.Context, token, remotePath string) (string, error) {
	status, body, err := s.rpc(ctx, token, "/2/sharing/create_shared_link_with_settings", map[string]any{
		"path": remotePath,
	})
	if err != nil {
		return "", err
	}

	if status == http.StatusOK {
		var created struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(body, &created); err != nil {
			return "", fmt.Errorf("failed to parse shared link response: %w", err)
		}
		return created.URL, nil
	}

	if status == http.StatusConflict {
		return s.existingSharedLink(ctx, token, remotePath)
	}
	return "", fmt.Errorf("create shared link returned status %d: %s", status, string(body))
}

func (s *ArchiveService) existingSharedLink(ctx context.Context, token, remotePath string) (string, error) {
	status, body, err := s.rpc(ctx, token, "/2/sharing/list_shared_links", map[string]any{
		"path":        remotePath,
		"direct_only": true,
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("list shared links returned status %d: %s", status, string(body))
	}

	var listed struct {
		Links []struct {
			URL string `json:"url"`
		} `json:"links"`
	}
	if err := json.Unmarshal(body, &listed); err != nil {
		return "", fmt.Errorf("failed to parse shared links response: %w", err)
	}
	if len(listed.Links) == 0 {
		return "", fmt.Errorf("no existing shared link for %s", remotePath)
	}
	return listed.Links[0].URL, nil
}

func (s *ArchiveService) rpc(ctx context.Context, token, endpoint string, payload map[string]any) (int, []byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIBaseURL+endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body, nil
}
