// Package nutrition looks up nutrition facts for natural-language food
// queries. The primary backend is the Nutritionix natural-language
// endpoint, with USDA FoodData Central as a fallback when Nutritionix
// is unconfigured or unavailable.
package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nourishlabs/mealpland/internal/config"
)

const (
	nutritionixURL = "https://trackapi.nutritionix.com/v2/natural/nutrients"
	usdaSearchURL  = "https://api.nal.usda.gov/fdc/v1/foods/search"

	defaultTimeout = 10 * time.Second
	// Nutritionix free tier allows 2 requests/sec.
	requestsPerSecond = 2
)

// Sentinel errors for nutrition lookups.
var (
	ErrNotConfigured = errors.New("no nutrition API credentials configured")
	ErrEmptyQuery    = errors.New("query cannot be empty")
	ErrNoData        = errors.New("no nutrition data found")
)

// Client queries nutrition APIs with rate limiting.
type Client struct {
	httpClient *http.Client
	appID      string
	apiKey     string
	usdaKey    string
	limiter    *rate.Limiter
	logger     *zap.Logger

	// endpoint overrides for tests
	nutritionixEndpoint string
	usdaEndpoint        string
}

// NewClient creates a nutrition Client from configuration. Either
// Nutritionix credentials or a USDA key must be present.
func NewClient(cfg config.NutritionConfig, logger *zap.Logger) (*Client, error) {
	if cfg.NutritionixAppID.Value() == "" && cfg.USDAAPIKey.Value() == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout.Duration()
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient:          &http.Client{Timeout: timeout},
		appID:               cfg.NutritionixAppID.Value(),
		apiKey:              cfg.NutritionixAPIKey.Value(),
		usdaKey:             cfg.USDAAPIKey.Value(),
		limiter:             rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:              logger,
		nutritionixEndpoint: nutritionixURL,
		usdaEndpoint:        usdaSearchURL,
	}, nil
}

// Lookup returns a human-readable nutrition summary for the query.
// Tries Nutritionix first, falling back to USDA when Nutritionix is
// unconfigured or fails.
func (c *Client) Lookup(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	if c.appID != "" {
		summary, err := c.lookupNutritionix(ctx, query)
		if err == nil {
			return summary, nil
		}
		c.logger.Warn("nutritionix lookup failed, trying USDA",
			zap.String("query", query),
			zap.Error(err),
		)
	}

	if c.usdaKey != "" {
		return c.lookupUSDA(ctx, query)
	}
	return "", ErrNoData
}

type nutritionixResponse struct {
	Foods []struct {
		FoodName string  `json:"food_name"`
		Calories float64 `json:"nf_calories"`
		Protein  float64 `json:"nf_protein"`
		Carbs    float64 `json:"nf_total_carbohydrate"`
		Fat      float64 `json:"nf_total_fat"`
	} `json:"foods"`
}

func (c *Client) lookupNutritionix(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.nutritionixEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("x-app-id", c.appID)
	req.Header.Set("x-app-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("nutritionix request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nutritionix returned status %d", resp.StatusCode)
	}

	var parsed nutritionixResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding nutritionix response: %w", err)
	}
	if len(parsed.Foods) == 0 {
		return "", ErrNoData
	}

	lines := make([]string, len(parsed.Foods))
	for i, food := range parsed.Foods {
		lines[i] = fmt.Sprintf("%s: %.0f kcal, protein %.1fg, carbs %.1fg, fat %.1fg",
			food.FoodName, food.Calories, food.Protein, food.Carbs, food.Fat)
	}
	return strings.Join(lines, "\n"), nil
}

type usdaResponse struct {
	Foods []struct {
		Description string `json:"description"`
	} `json:"foods"`
}

func (c *Client) lookupUSDA(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("pageSize", "3")
	params.Set("api_key", c.usdaKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.usdaEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("usda request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("usda returned status %d", resp.StatusCode)
	}

	var parsed usdaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding usda response: %w", err)
	}
	if len(parsed.Foods) == 0 {
		return "", ErrNoData
	}

	lines := make([]string, len(parsed.Foods))
	for i, food := range parsed.Foods {
		lines[i] = "- " + food.Description
	}
	return strings.Join(lines, "\n"), nil
}
