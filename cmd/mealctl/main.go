// Package main implements the mealctl CLI for manual operations against
// the mealpland HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the mealpland HTTP server
	serverURL string
	// plan command flags
	planUserID   string
	planNumMeals int
	planSession  string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mealctl",
	Short: "CLI for mealpland HTTP server operations",
	Long: `mealctl is a command-line interface for interacting with the mealpland
HTTP server. It provides commands for requesting meal plans and checking
server health.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "mealpland server URL")

	planCmd.Flags().StringVar(&planUserID, "user", "", "user ID (required)")
	planCmd.Flags().IntVar(&planNumMeals, "meals", 0, "minimum number of meal options (0 uses the server default)")
	planCmd.Flags().StringVar(&planSession, "session", "", "explicit session ID")
	_ = planCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(healthCmd)
}

// planCmd requests a meal plan from raw input
var planCmd = &cobra.Command{
	Use:   "plan [input]",
	Short: "Request meal options from a raw message",
	Long: `Request meal options from the mealpland server. The input is a single
free-form message; profile details found in it update the stored profile
before planning.

Examples:
  # Plan from an argument
  mealctl plan --user alice "I'm vegetarian, plan my dinners"

  # Plan from stdin
  echo "high protein lunches" | mealctl plan --user alice -

  # Ask for more options
  mealctl plan --user alice --meals 7 "family dinners for the week"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check mealpland server health",
	Long: `Check the health status of the mealpland HTTP server.

Examples:
  # Check health
  mealctl health

  # Check health on a different server
  mealctl health --server http://localhost:9090`,
	RunE: runHealth,
}

// MealPlanRequest matches internal/http/server.go MealPlanRequest
type MealPlanRequest struct {
	UserID    string `json:"user_id"`
	UserInput string `json:"user_input"`
	SessionID string `json:"session_id,omitempty"`
	NumMeals  int    `json:"num_meals,omitempty"`
}

// MealPlanResponse matches internal/http/server.go MealPlanResponse
type MealPlanResponse struct {
	UserID         string `json:"user_id"`
	SessionID      string `json:"session_id"`
	Response       string `json:"response"`
	ProfileUpdated bool   `json:"profile_updated"`
	Status         string `json:"status"`
}

// HealthResponse matches internal/http/server.go HealthResponse
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// runPlan handles the plan command
func runPlan(cmd *cobra.Command, args []string) error {
	var input string

	if len(args) == 0 || args[0] == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
		input = string(content)
	} else {
		input = args[0]
	}

	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("no input to plan from")
	}

	reqBody := MealPlanRequest{
		UserID:    planUserID,
		UserInput: input,
		SessionID: planSession,
		NumMeals:  planNumMeals,
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/meal-plan", serverURL)
	httpReq, err := http.NewRequest("POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// Planning waits on model calls, so the timeout is generous.
	client := &http.Client{
		Timeout: 5 * time.Minute,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var planResp MealPlanResponse
	if err := json.NewDecoder(resp.Body).Decode(&planResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Println(planResp.Response)

	if planResp.ProfileUpdated {
		fmt.Fprintf(os.Stderr, "\n[mealctl] Profile updated for %s\n", planResp.UserID)
	}
	fmt.Fprintf(os.Stderr, "[mealctl] Session: %s\n", planResp.SessionID)

	return nil
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", url, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	return nil
}
