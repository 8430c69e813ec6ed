package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const version = "1.0.0"

var (
	serverURL    string
	authToken    string
	outputFormat string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "revintelctl",
		Short: "RevIntel CLI - interact with your revenue intelligence server",
		Long: `revintelctl is a command-line interface for the RevIntel server.
All output is structured JSON by default (pipe through jq for human-readable formatting).`,
		Version: version,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", getDefaultServer(), "RevIntel server URL")
	rootCmd.PersistentFlags().StringVarP(&authToken, "token", "t", os.Getenv("REVINTEL_TOKEN"), "Bearer token for authenticated servers")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "Output format: json")

	// Add subcommands
	rootCmd.AddCommand(newLoginCommand())
	rootCmd.AddCommand(newSessionCommand())
	rootCmd.AddCommand(newICPCommand())
	rootCmd.AddCommand(newCalculatorCommand())
	rootCmd.AddCommand(newAgentCommand())
	rootCmd.AddCommand(newDashboardCommand())
	rootCmd.AddCommand(newPerformanceCommand())
	rootCmd.AddCommand(newOptimizationCommand())
	rootCmd.AddCommand(newResourceCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newEventCommand())
	rootCmd.AddCommand(newStatusCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getDefaultServer() string {
	if server := os.Getenv("REVINTEL_SERVER"); server != "" {
		return server
	}
	return "http://localhost:8585"
}

// --- HTTP client ---

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func newClient() *Client {
	return &Client{
		BaseURL: serverURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(method, path string, params url.Values, data interface{}) ([]byte, error) {
	u := fmt.Sprintf("%s%s", c.BaseURL, path)
	if params != nil {
		u += "?" + params.Encode()
	}

	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data: %w", err)
		}
		body = strings.NewReader(string(jsonData))
	}

	req, err := http.NewRequest(method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

func (c *Client) get(path string, params url.Values) ([]byte, error) {
	return c.do("GET", path, params, nil)
}

func (c *Client) post(path string, data interface{}) ([]byte, error) {
	return c.do("POST", path, nil, data)
}

func (c *Client) put(path string, data interface{}) ([]byte, error) {
	return c.do("PUT", path, nil, data)
}

func (c *Client) delete(path string) ([]byte, error) {
	return c.do("DELETE", path, nil, nil)
}

// streamSSE reads an SSE stream and prints each event's data field as JSON.
func (c *Client) streamSSE(path string, params url.Values) error {
	u := fmt.Sprintf("%s%s", c.BaseURL, path)
	if params != nil {
		u += "?" + params.Encode()
	}
	resp, err := c.HTTP.Get(u)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			fmt.Println(line[6:])
		}
	}
	return scanner.Err()
}

// outputJSON prints raw JSON data. All commands use this as the primary output path.
func outputJSON(data []byte) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		fmt.Println(string(data))
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// --- Login ---

func newLoginCommand() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Authenticate and print a bearer token",
		Example: `  export REVINTEL_TOKEN=$(revintelctl login -u admin | jq -r .token)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(os.Stderr, "Password: ")
			passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			client := newClient()
			data, err := client.post("/api/v1/auth/login", map[string]string{
				"username": username,
				"password": string(passwordBytes),
			})
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "admin", "Username")
	return cmd
}

// --- Session commands ---

func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage customer sessions",
	}
	cmd.AddCommand(newSessionCreateCommand())
	cmd.AddCommand(newSessionShowCommand())
	cmd.AddCommand(newSessionDeleteCommand())
	return cmd
}

func newSessionCreateCommand() *cobra.Command {
	var customerID string
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a session",
		Example: `  revintelctl session create --customer=acme-inc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			data, err := client.post("/api/v1/sessions", map[string]string{
				"customer_id": customerID,
			})
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVarP(&customerID, "customer", "c", "", "Customer ID (required)")
	cmd.MarkFlagRequired("customer")
	return cmd
}

func newSessionShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			data, err := client.get("/api/v1/sessions/"+args[0], nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
}

func newSessionDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			data, err := client.delete("/api/v1/sessions/" + args[0])
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
}

// --- ICP commands ---

func newICPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "icp",
		Short: "Ideal customer profile analysis",
	}
	cmd.AddCommand(newICPAnalyzeCommand())
	cmd.AddCommand(newICPLatestCommand())
	cmd.AddCommand(newICPListCommand())
	cmd.AddCommand(newICPResearchCommand())
	return cmd
}

func newICPAnalyzeCommand() *cobra.Command {
	var (
		customerID string
		inputFile  string
	)
	cmd := &cobra.Command{
		Use:     "analyze",
		Short:   "Score a prospect against the ideal customer profile",
		Example: `  revintelctl icp analyze --customer=acme-inc --input=prospect.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(inputFile)
			if err != nil {
				return fmt.Errorf("failed to read input file: %w", err)
			}
			var input map[string]interface{}
			if err := json.Unmarshal(raw, &input); err != nil {
				return fmt.Errorf("invalid input JSON: %w", err)
			}
			body := map[string]interface{}{
				"customer_id": customerID,
				"input":       input,
			}
			client := newClient()
			data, err := client.post("/api/v1/icp/analyze", body)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVarP(&customerID, "customer", "c", "", "Customer ID (required)")
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Path to a JSON file with the prospect profile (required)")
	cmd.MarkFlagRequired("customer")
	cmd.MarkFlagRequired("input")
	return cmd
}

func newICPLatestCommand() *cobra.Command {
	var customerID string
	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the latest analysis for a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("customer_id", customerID)
			client := newClient()
			data, err := client.get("/api/v1/icp/latest", params)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVarP(&customerID, "customer", "c", "", "Customer ID (required)")
	cmd.MarkFlagRequired("customer")
	return cmd
}

func newICPListCommand() *cobra.Command {
	var (
		customerID string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analyses for a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("customer_id", customerID)
			if limit > 0 {
				params.Set("limit", fmt.Sprintf("%d", limit))
			}
			client := newClient()
			data, err := client.get("/api/v1/icp/analyses", params)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVarP(&customerID, "customer", "c", "", "Customer ID (required)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of analyses")
	cmd.MarkFlagRequired("customer")
	return cmd
}

func newICPResearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research",
		Short: "Manage research records",
	}

	var customerID string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List research records for a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("customer_id", customerID)
			client := newClient()
			data, err := client.get("/api/v1/icp/research", params)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	listCmd.Flags().StringVarP(&customerID, "customer", "c", "", "Customer ID (required)")
	listCmd.MarkFlagRequired("customer")

	var validateCustomer string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check research completeness for a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("customer_id", validateCustomer)
			client := newClient()
			data, err := client.get("/api/v1/icp/research/validate", params)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&validateCustomer, "customer", "c", "", "Customer ID (required)")
	validateCmd.MarkFlagRequired("customer")

	cmd.AddCommand(listCmd)
	cmd.AddCommand(validateCmd)
	return cmd
}

// --- Calculator commands ---

func newCalculatorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calculator",
		Short: "Cost of inaction calculator",
	}
	cmd.AddCommand(newCalculatorCostCommand())
	cmd.AddCommand(newCalculatorScenariosCommand())
	return cmd
}

func newCalculatorCostCommand() *cobra.Command {
	var (
		customerID      string
		dealSize        float64
		dealsPerQuarter int
		liftPct         float64
		delayMonths     int
		teamSize        int
		hourlyCost      float64
	)
	cmd := &cobra.Command{
		Use:     "cost",
		Short:   "Calculate the cost of a delayed rollout",
		Example: `  revintelctl calculator cost -c acme-inc --deal-size=50000 --deals=12 --lift=10 --delay=6 --team=5 --hourly=75`,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{
				"customer_id": customerID,
				"input": map[string]interface{}{
					"avg_deal_size_usd":   dealSize,
					"deals_per_quarter":   dealsPerQuarter,
					"conversion_lift_pct": liftPct,
					"delay_months":        delayMonths,
					"team_size":           teamSize,
					"hourly_cost_usd":     hourlyCost,
				},
			}
			client := newClient()
			data, err := client.post("/api/v1/calculator/cost", body)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVarP(&customerID, "customer", "c", "", "Customer ID (required)")
	cmd.Flags().Float64Var(&dealSize, "deal-size", 0, "Average deal size in USD")
	cmd.Flags().IntVar(&dealsPerQuarter, "deals", 0, "Deals closed per quarter")
	cmd.Flags().Float64Var(&liftPct, "lift", 0, "Expected conversion lift percent")
	cmd.Flags().IntVar(&delayMonths, "delay", 0, "Months of delay")
	cmd.Flags().IntVar(&teamSize, "team", 0, "Revenue team size")
	cmd.Flags().Float64Var(&hourlyCost, "hourly", 0, "Loaded hourly cost in USD")
	cmd.MarkFlagRequired("customer")
	return cmd
}

func newCalculatorScenariosCommand() *cobra.Command {
	var customerID string
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List saved cost scenarios for a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("customer_id", customerID)
			client := newClient()
			data, err := client.get("/api/v1/calculator/scenarios", params)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVarP(&customerID, "customer", "c", "", "Customer ID (required)")
	cmd.MarkFlagRequired("customer")
	return cmd
}

// --- Agent commands ---

func newAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage analysis agents",
	}
	cmd.AddCommand(newAgentListCommand())
	cmd.AddCommand(newAgentExecuteCommand())
	cmd.AddCommand(newAgentExecutionsCommand())
	return cmd
}

func newAgentListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered agents and their operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			data, err := client.get("/api/v1/agents", nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
}

func newAgentExecuteCommand() *cobra.Command {
	var (
		agentName  string
		operation  string
		customerID string
		paramsJSON string
	)
	cmd := &cobra.Command{
		Use:     "execute",
		Short:   "Execute an agent operation",
		Example: `  revintelctl agent execute --agent=customer-value --op=dashboard-optimization -c acme-inc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{
				"agent":       agentName,
				"operation":   operation,
				"customer_id": customerID,
			}
			if paramsJSON != "" {
				var p map[string]interface{}
				if err := json.Unmarshal([]byte(paramsJSON), &p); err != nil {
					return fmt.Errorf("invalid params JSON: %w", err)
				}
				body["params"] = p
			}
			client := newClient()
			data, err := client.post("/api/v1/agents/execute", body)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "Agent name (required)")
	cmd.Flags().StringVar(&operation, "op", "", "Operation name (required)")
	cmd.Flags().StringVarP(&customerID, "customer", "c", "", "Customer ID")
	cmd.Flags().StringVar(&paramsJSON, "params", "", "Operation parameters as a JSON object")
	cmd.MarkFlagRequired("agent")
	cmd.MarkFlagRequired("op")
	return cmd
}

func newAgentExecutionsCommand() *cobra.Command {
	var (
		agentName  string
		customerID string
		status     string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "executions",
		Short: "List past agent executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if agentName != "" {
				params.Set("agent", agentName)
			}
			if customerID != "" {
				params.Set("customer_id", customerID)
			}
			if status != "" {
				params.Set("status", status)
			}
			if limit > 0 {
				params.Set("limit", fmt.Sprintf("%d", limit))
			}
			client := newClient()
			data, err := client.get("/api/v1/agents/executions", params)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "Filter by agent")
	cmd.Flags().StringVarP(&customerID, "customer", "c", "", "Filter by customer")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of executions")
	return cmd
}

// --- Dashboard / performance / optimizations ---

func newDashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard <customer-id>",
		Short: "Show the aggregated customer dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			data, err := client.get("/api/v1/dashboard/"+args[0], nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
}

func newPerformanceCommand() *cobra.Command {
	var (
		customerID string
		name       string
		latest     bool
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "performance",
		Short: "List performance metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("customer_id", customerID)
			if name != "" {
				params.Set("name", name)
			}
			if latest {
				params.Set("latest", "true")
			}
			if limit > 0 {
				params.Set("limit", fmt.Sprintf("%d", limit))
			}
			client := newClient()
			data, err := client.get("/api/v1/performance", params)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVarP(&customerID, "customer", "c", "", "Customer ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "Filter by metric name")
	cmd.Flags().BoolVar(&latest, "latest", false, "Only the latest value per metric")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of metrics")
	cmd.MarkFlagRequired("customer")
	return cmd
}

func newOptimizationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimization",
		Short: "Manage optimization recommendations",
	}

	var (
		customerID string
		status     string
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List optimization events",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("customer_id", customerID)
			if status != "" {
				params.Set("status", status)
			}
			client := newClient()
			data, err := client.get("/api/v1/optimizations", params)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	listCmd.Flags().StringVarP(&customerID, "customer", "c", "", "Customer ID (required)")
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status: open, applied, dismissed")
	listCmd.MarkFlagRequired("customer")

	var newStatus string
	statusCmd := &cobra.Command{
		Use:   "status <event-id>",
		Short: "Update an optimization event's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			data, err := client.put("/api/v1/optimizations/"+args[0]+"/status", map[string]string{
				"status": newStatus,
			})
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	statusCmd.Flags().StringVar(&newStatus, "set", "", "New status: open, applied, dismissed (required)")
	statusCmd.MarkFlagRequired("set")

	cmd.AddCommand(listCmd)
	cmd.AddCommand(statusCmd)
	return cmd
}

// --- Resource commands ---

func newResourceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Browse the resource library",
	}

	var customerID string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List resources unlocked for a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if customerID != "" {
				params.Set("customer_id", customerID)
			}
			client := newClient()
			data, err := client.get("/api/v1/resources", params)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	listCmd.Flags().StringVarP(&customerID, "customer", "c", "", "Customer ID for tier gating")

	showCmd := &cobra.Command{
		Use:   "show <resource-id>",
		Short: "Show a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			data, err := client.get("/api/v1/resources/"+args[0], nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(showCmd)
	return cmd
}

// --- Export commands ---

func newExportCommand() *cobra.Command {
	var (
		customerID string
		format     string
	)
	cmd := &cobra.Command{
		Use:       "export <metrics|executions>",
		Short:     "Export data as CSV or JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"metrics", "executions"},
		Example:   `  revintelctl export metrics -c acme-inc --format=csv > metrics.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if customerID != "" {
				params.Set("customer_id", customerID)
			}
			path := fmt.Sprintf("/api/v1/export/%s.%s", args[0], format)
			client := newClient()
			data, err := client.get(path, params)
			if err != nil {
				return err
			}
			if format == "csv" {
				fmt.Print(string(data))
				return nil
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVarP(&customerID, "customer", "c", "", "Filter by customer")
	cmd.Flags().StringVar(&format, "format", "json", "Export format: csv, json")
	return cmd
}

// --- Event commands ---

func newEventCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Inspect and stream platform events",
	}

	var historyLimit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if historyLimit > 0 {
				params.Set("limit", fmt.Sprintf("%d", historyLimit))
			}
			client := newClient()
			data, err := client.get("/api/v1/events", params)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Maximum number of events")

	var (
		customerID string
		eventType  string
	)
	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream events as they happen (SSE)",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if customerID != "" {
				params.Set("customer_id", customerID)
			}
			if eventType != "" {
				params.Set("type", eventType)
			}
			client := newClient()
			return client.streamSSE("/api/v1/events/stream", params)
		},
	}
	streamCmd.Flags().StringVarP(&customerID, "customer", "c", "", "Filter by customer")
	streamCmd.Flags().StringVar(&eventType, "type", "", "Filter by event type")

	cmd.AddCommand(historyCmd)
	cmd.AddCommand(streamCmd)
	return cmd
}

// --- Status ---

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			data, err := client.get("/api/v1/health", nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
}
