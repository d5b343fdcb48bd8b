package nutrition

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nourishlabs/mealpland/internal/config"
)

func testConfig() config.NutritionConfig {
	var cfg config.NutritionConfig
	_ = cfg.NutritionixAppID.UnmarshalText([]byte("app-id"))
	_ = cfg.NutritionixAPIKey.UnmarshalText([]byte("api-key"))
	_ = cfg.USDAAPIKey.UnmarshalText([]byte("usda-key"))
	return cfg
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(config.NutritionConfig{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestLookup_Nutritionix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "app-id", r.Header.Get("x-app-id"))
		assert.Equal(t, "api-key", r.Header.Get("x-app-key"))
		_, _ = w.Write([]byte(`{"foods":[{"food_name":"chicken breast","nf_calories":165,"nf_protein":31,"nf_total_carbohydrate":0,"nf_total_fat":3.6}]}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(), nil)
	require.NoError(t, err)
	client.nutritionixEndpoint = server.URL

	got, err := client.Lookup(context.Background(), "chicken breast")
	require.NoError(t, err)
	assert.Contains(t, got, "chicken breast")
	assert.Contains(t, got, "165 kcal")
	assert.Contains(t, got, "protein 31.0g")
}

func TestLookup_FallsBackToUSDA(t *testing.T) {
	nix := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer nix.Close()

	usda := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "usda-key", r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"foods":[{"description":"Chicken, broilers or fryers, breast"}]}`))
	}))
	defer usda.Close()

	client, err := NewClient(testConfig(), nil)
	require.NoError(t, err)
	client.nutritionixEndpoint = nix.URL
	client.usdaEndpoint = usda.URL

	got, err := client.Lookup(context.Background(), "chicken")
	require.NoError(t, err)
	assert.Contains(t, got, "Chicken, broilers or fryers, breast")
}

func TestLookup_NoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"foods":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(), nil)
	require.NoError(t, err)
	client.nutritionixEndpoint = server.URL
	client.usdaEndpoint = server.URL

	_, err = client.Lookup(context.Background(), "unobtainium")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestLookup_EmptyQuery(t *testing.T) {
	client, err := NewClient(testConfig(), nil)
	require.NoError(t, err)

	_, err = client.Lookup(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestLookup_CanceledContext(t *testing.T) {
	client, err := NewClient(testConfig(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Lookup(ctx, "chicken")
	assert.Error(t, err)
}
