package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	serverURL   string
	configPath  string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "vidgrab",
		Short: "vidgrab CLI - fetch or trim videos through the vidgrab server",
		Long:  `A command-line interface for requesting video downloads, optionally trimmed, and following their progress.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			serverURL = resolveServerURL(serverURL, cmd.Flags().Changed("server"), configPath)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL, "Server URL (default from VIDGRAB_SERVER or the server config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Server config file, also passed to an auto-started server")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(signinCmd)
	rootCmd.AddCommand(signoutCmd)

	getCmd.Flags().StringP("title", "t", "", "Display title used for the saved filename")
	getCmd.Flags().StringP("mode", "m", "video", "Media mode (video, image)")
	getCmd.Flags().Float64("start", 0, "Trim start in seconds")
	getCmd.Flags().Float64("end", 0, "Trim end in seconds")
	getCmd.Flags().String("return-path", "", "Where to return after sign-in")
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := newServerLauncher(serverURL, configPath).ensure(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// call performs a request and decodes a JSON body into out. It returns the status code.
func call(method, path string, payload interface{}, out interface{}) int {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			fail(err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, serverURL+path, body)
	if err != nil {
		fail(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fail(err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnauthorized {
		fmt.Fprintf(os.Stderr, "Error: %s\n", string(data))
		os.Exit(1)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			fail(fmt.Errorf("decode response: %w", err))
		}
	}
	return resp.StatusCode
}

var getCmd = &cobra.Command{
	Use:   "get [url]",
	Short: "Request a download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		title, _ := cmd.Flags().GetString("title")
		mode, _ := cmd.Flags().GetString("mode")
		start, _ := cmd.Flags().GetFloat64("start")
		end, _ := cmd.Flags().GetFloat64("end")
		returnPath, _ := cmd.Flags().GetString("return-path")

		payload := map[string]interface{}{
			"url":  args[0],
			"mode": mode,
		}
		if title != "" {
			payload["title"] = title
		}
		if returnPath != "" {
			payload["return_path"] = returnPath
		}
		if cmd.Flags().Changed("start") || cmd.Flags().Changed("end") {
			payload["trim"] = map[string]float64{"start": start, "end": end}
		}

		var result map[string]interface{}
		code := call(http.MethodPost, "/api/v1/downloads", payload, &result)
		if code == http.StatusUnauthorized {
			fmt.Println("Sign-in required; the download will start after you sign in.")
			fmt.Printf("ID: %s\n", result["id"])
			if result["redirect_to"] != nil {
				fmt.Printf("Sign in at: %s\n", result["redirect_to"])
			}
			return
		}

		fmt.Printf("Download started!\n")
		fmt.Printf("ID: %s\n", result["id"])
		fmt.Printf("Status: %s\n", result["status"])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List download history",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		status, _ := cmd.Flags().GetString("status")

		path := "/api/v1/downloads"
		if status != "" {
			path += "?status=" + url.QueryEscape(status)
		}

		var downloads []map[string]interface{}
		call(http.MethodGet, path, nil, &downloads)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTRATEGY\tSTATUS\tCREATED")
		for _, d := range downloads {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				truncate(stringField(d, "id"), 8),
				truncate(stringField(d, "title"), 30),
				stringField(d, "strategy"),
				stringField(d, "status"),
				relative(stringField(d, "created_at")))
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		var stats map[string]interface{}
		call(http.MethodGet, "/api/v1/downloads/stats", nil, &stats)

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:         %v\n", stats["total"])
		fmt.Printf("  Awaiting auth: %v\n", stats["awaiting_auth"])
		fmt.Printf("  Processing:    %v\n", stats["processing"])
		fmt.Printf("  Completed:     %v\n", stats["completed"])
		fmt.Printf("  Failed:        %v\n", stats["failed"])
		fmt.Printf("  Superseded:    %v\n", stats["superseded"])
	},
}

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show download details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		var d map[string]interface{}
		call(http.MethodGet, "/api/v1/downloads/"+url.PathEscape(args[0]), nil, &d)

		fmt.Printf("Download Details:\n")
		fmt.Printf("  ID:       %s\n", stringField(d, "id"))
		fmt.Printf("  URL:      %s\n", stringField(d, "url"))
		fmt.Printf("  Title:    %s\n", stringField(d, "title"))
		fmt.Printf("  Status:   %s\n", stringField(d, "status"))
		fmt.Printf("  Strategy: %s\n", stringField(d, "strategy"))
		fmt.Printf("  Created:  %s\n", stringField(d, "created_at"))
		if p, ok := d["progress"].(float64); ok {
			fmt.Printf("  Progress: %d%%\n", int(p))
		}
		if f := stringField(d, "filename"); f != "" {
			fmt.Printf("  File:     %s\n", f)
		}
		if size, ok := d["size_bytes"].(float64); ok && size > 0 {
			fmt.Printf("  Size:     %s\n", humanize.Bytes(uint64(size)))
		}
		if loc := stringField(d, "location"); loc != "" {
			fmt.Printf("  Location: %s\n", loc)
		}
		if msg := stringField(d, "error_message"); msg != "" {
			fmt.Printf("  Error:    %s\n", msg)
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a download is running or parked for sign-in",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		var status map[string]interface{}
		call(http.MethodGet, "/api/v1/status", nil, &status)

		fmt.Printf("Loading: %v\n", status["loading"])
		if pending := stringField(status, "pending"); pending != "" {
			fmt.Printf("Pending: %s\n", pending)
		}
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Show recent notifications",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		var feed []map[string]interface{}
		call(http.MethodGet, "/api/v1/notifications", nil, &feed)

		if len(feed) == 0 {
			fmt.Println("No notifications")
			return
		}
		for _, n := range feed {
			fmt.Printf("[%s] %s: %s\n", relative(stringField(n, "created_at")), stringField(n, "title"), stringField(n, "message"))
			if action, ok := n["action"].(map[string]interface{}); ok {
				fmt.Printf("    %s: %s\n", stringField(action, "label"), stringField(action, "url"))
			}
		}
	},
}

var signinCmd = &cobra.Command{
	Use:   "signin [user-id]",
	Short: "Sign in; a parked download resumes automatically",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		call(http.MethodPost, "/api/v1/auth/signin", map[string]string{"user_id": args[0]}, nil)
		fmt.Printf("Signed in as %s\n", args[0])
	},
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		call(http.MethodPost, "/api/v1/auth/signout", nil, nil)
		fmt.Println("Signed out")
	},
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func relative(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
