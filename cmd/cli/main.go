package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	apiKey    string
	timeout   time.Duration
	outcome   string
	limit     int
)

func main() {
	root := &cobra.Command{
		Use:   "hammer-cli",
		Short: "CLI client for hammer-relay",
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "Server URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("HAMMER_API_KEY"), "API key for the history endpoints")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 70*time.Second, "Request timeout")

	// Verify a proof
	root.AddCommand(&cobra.Command{
		Use:   "verify [code]",
		Short: "Submit a Coq proof for verification (reads stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runVerify,
	})

	// Verify from file
	root.AddCommand(&cobra.Command{
		Use:   "verify-file [file]",
		Short: "Submit a .v file for verification",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerifyFile,
	})

	root.AddCommand(&cobra.Command{
		Use:   "learn",
		Short: "Print the CoqHammer primer",
		RunE:  runLearn,
	})

	// Health check
	root.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE:  runHealth,
	})

	historyCmd := &cobra.Command{
		Use:   "history [id]",
		Short: "List recent verifications, or show one by ID",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().StringVar(&outcome, "outcome", "", "Filter by outcome")
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of records")
	root.AddCommand(historyCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runVerify(_ *cobra.Command, args []string) error {
	var code string

	if len(args) > 0 {
		code = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		code = string(data)
	}

	return verifyCode(code)
}

func runVerifyFile(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	return verifyCode(string(data))
}

func verifyCode(code string) error {
	form := url.Values{"v": {code}}
	req, err := http.NewRequest(http.MethodPost, serverURL+"/verify/", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result map[string]any
	if err := do(req, &result); err != nil {
		return err
	}
	printJSON(result)

	// Anything but {"status":"ok"} is a failed proof.
	if result["status"] != "ok" {
		os.Exit(1)
	}
	return nil
}

func runLearn(_ *cobra.Command, _ []string) error {
	req, err := http.NewRequest(http.MethodGet, serverURL+"/learnhammer/", nil)
	if err != nil {
		return err
	}

	var result struct {
		About []string `json:"about"`
	}
	if err := do(req, &result); err != nil {
		return err
	}
	fmt.Print(strings.Join(result.About, ""))
	return nil
}

func runHealth(_ *cobra.Command, _ []string) error {
	req, err := http.NewRequest(http.MethodGet, serverURL+"/health", nil)
	if err != nil {
		return err
	}

	var result map[string]any
	if err := do(req, &result); err != nil {
		return err
	}
	printJSON(result)
	return nil
}

func runHistory(_ *cobra.Command, args []string) error {
	path := "/verifications"
	if len(args) > 0 {
		path += "/" + url.PathEscape(args[0])
	} else {
		q := url.Values{"limit": {strconv.Itoa(limit)}}
		if outcome != "" {
			q.Set("outcome", outcome)
		}
		path += "?" + q.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, serverURL+path, nil)
	if err != nil {
		return err
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	var result any
	if err := do(req, &result); err != nil {
		return err
	}
	printJSON(result)
	return nil
}

func do(req *http.Request, out any) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func printJSON(v any) {
	formatted, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(formatted))
}
