package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"payme-bot/pkg/config"

	"go.uber.org/zap"
)

// SpeechService transcribes voice messages through an OpenAI-compatible
// transcription endpoint. One blocking call, no retries; the caller reports
// a failed transcription to the user.
type SpeechService struct {
	cfg        *config.SpeechConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewSpeechService(cfg *config.SpeechConfig, logger *zap.Logger) *SpeechService {
	return &SpeechService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Transcribe sends the audio file and returns the plain transcript.
func (s *SpeechService) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if s.cfg.APIKey == "" {
		return "", fmt.Errorf("speech API key is not configured")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy audio: %w", err)
	}

	_ = writer.WriteField("model", "whisper-1")
	_ = writer.WriteField("language", s.cfg.Language)
	_ = writer.WriteField("response_format", "text")

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.cfg.Endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("Transcription API error",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(respBody)),
		)
		return "", fmt.Errorf("transcription failed with status %d", resp.StatusCode)
	}

	transcript := strings.TrimSpace(string(respBody))
	s.logger.Info("Voice transcribed", zap.Int("length", len(transcript)))

	return transcript, nil
}
