package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bastien98/dobby-backend-poc/internal/models"
	"github.com/bastien98/dobby-backend-poc/pkg/config"

	"go.uber.org/zap"
)

// visionPrompt instructs the model to return strict JSON against the closed
// store and category sets.
const visionPrompt = `Extract the receipt data from these images with high precision.
1. Identify the store (strictly ALDI or COLLRUYT).
2. Extract the final total amount paid.
3. Extract the timestamp (date & time, format: YYYY-MM-DD HH:MM; if the time is missing, use 00:00).
4. Extract EVERY single line item visible. Do not summarize or group items.
   - For each item, extract the exact price (e.g. 2.99).
   - Categorize strictly using these tags:
     Alcohol, Tobacco, Fresh Produce, Meat & Fish, Dairy & Eggs, Bakery,
     Pantry, Ready Meals, Snacks & Sweets, Drinks (Soft/Soda), Drinks (Water),
     Household, Personal Care, Pets, Unknown.

Return ONLY a JSON object in this exact shape, with no markdown and no commentary:
{
  "store_name": "ALDI",
  "total_paid": 0.00,
  "timestamp": "YYYY-MM-DD HH:MM",
  "line_items": [{"name": "...", "price": 0.00, "category": "..."}]
}`

// VisionService calls an OpenAI-compatible chat-completions endpoint with the
// receipt page images attached and parses the structured result.
type VisionService struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	logger     *zap.Logger
}

func NewVisionService(cfg *config.OpenAIConfig, logger *zap.Logger) *VisionService {
	return &VisionService{
		httpClient: &http.Client{},
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		logger:     logger,
	}
}

// AnalyzeReceipt sends the prompt plus every page image and returns the
// validated extraction. The call can take several seconds; the caller bounds
// it through ctx.
func (s *VisionService) AnalyzeReceipt(ctx context.Context, pages [][]byte) (*models.ReceiptExtraction, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to analyze")
	}

	content := []map[string]interface{}{
		{"type": "text", "text": visionPrompt},
	}
	for _, page := range pages {
		encoded := base64.StdEncoding.EncodeToString(page)
		content = append(content, map[string]interface{}{
			"type": "image_url",
			"image_url": map[string]string{
				"url": "data:image/jpeg;base64," + encoded,
			},
		})
	}

	requestBody := map[string]interface{}{
		"model": s.model,
		"messages": []map[string]interface{}{
			{"role": "user", "content": content},
		},
		"temperature":     0,
		"response_format": map[string]string{"type": "json_object"},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vision API failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var visionResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&visionResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(visionResp.Choices) == 0 {
		return nil, fmt.Errorf("no response from vision API")
	}

	extraction, err := parseExtraction(visionResp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	s.logger.Info("receipt extraction returned",
		zap.String("store", extraction.StoreName),
		zap.Int("line_items", len(extraction.LineItems)),
	)
	return extraction, nil
}

// parseExtraction pulls the JSON object out of the model answer (tolerating
// markdown fences and surrounding chatter) and validates it against the
// extraction contract before anything reaches the database.
func parseExtraction(text string) (*models.ReceiptExtraction, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	text = text[start : end+1]

	var extraction models.ReceiptExtraction
	if err := json.Unmarshal([]byte(text), &extraction); err != nil {
		return nil, fmt.Errorf("unmarshal extraction: %w", err)
	}

	if !models.KnownStore(extraction.StoreName) {
		return nil, fmt.Errorf("unknown store %q in extraction", extraction.StoreName)
	}
	for _, item := range extraction.LineItems {
		if item.Price < 0 {
			return nil, fmt.Errorf("negative price %.2f for item %q", item.Price, item.Name)
		}
	}

	return &extraction, nil
}
