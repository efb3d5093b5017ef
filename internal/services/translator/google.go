package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/gunther-tgbot-go/internal/config"
	"github.com/sirupsen/logrus"
)

// GoogleProvider calls the Google Cloud Translation v2 REST API
type GoogleProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewGoogleProvider creates the Google translation provider
func NewGoogleProvider(cfg *config.GoogleConfig, logger *logrus.Logger) *GoogleProvider {
	return &GoogleProvider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// Translate translates text and returns exactly one translation
func (g *GoogleProvider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	reqBody := map[string]interface{}{
		"q":      text,
		"source": sourceLang,
		"target": targetLang,
		"format": "text",
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", g.baseURL, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	g.logger.WithFields(logrus.Fields{
		"source": sourceLang,
		"target": targetLang,
	}).Debug("Sending translation request")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.WithField("status", resp.StatusCode).Error("Translation request failed")
		return "", fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var result struct {
		Data struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", ErrProviderUnavailable, err)
	}

	if len(result.Data.Translations) == 0 || result.Data.Translations[0].TranslatedText == "" {
		return "", ErrNoTranslation
	}

	// The API HTML-escapes entities even in text mode
	return html.UnescapeString(result.Data.Translations[0].TranslatedText), nil
}
