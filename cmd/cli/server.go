package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/yourusername/vidgrab-go/internal/app"
)

const (
	defaultServerURL   = "http://localhost:8080"
	serverBinaryName   = "vidgrab-server"
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
)

// resolveServerURL picks the API base URL: an explicit --server flag, then
// VIDGRAB_SERVER, then host and port from the server's own config file.
func resolveServerURL(flagValue string, flagSet bool, configPath string) string {
	if flagSet {
		return flagValue
	}
	if env := os.Getenv("VIDGRAB_SERVER"); env != "" {
		return env
	}
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return defaultServerURL
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(config.Server.Host, fmt.Sprint(config.Server.Port)))
}

// serverLauncher starts vidgrab-server on demand so that it listens where
// the CLI is about to send requests
type serverLauncher struct {
	baseURL    string
	configPath string // forwarded as -config when set
	binary     string // VIDGRAB_SERVER_BIN; searched for when empty

	client       *http.Client
	startTimeout time.Duration
	pollInterval time.Duration
}

func newServerLauncher(baseURL, configPath string) *serverLauncher {
	return &serverLauncher{
		baseURL:      baseURL,
		configPath:   configPath,
		binary:       os.Getenv("VIDGRAB_SERVER_BIN"),
		client:       &http.Client{Timeout: time.Second},
		startTimeout: serverStartTimeout,
		pollInterval: serverPollInterval,
	}
}

// ready reports whether the server answers /health and is watching auth
// changes. Until then a download parked for sign-in could never resume.
func (l *serverLauncher) ready() bool {
	resp, err := l.client.Get(l.baseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var health struct {
		Status       string `json:"status"`
		AuthWatching bool   `json:"auth_watching"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false
	}
	return health.Status == "ok" && health.AuthWatching
}

// findBinary looks at VIDGRAB_SERVER_BIN, next to the CLI, then on PATH
func (l *serverLauncher) findBinary() (string, error) {
	if l.binary != "" {
		if _, err := os.Stat(l.binary); err != nil {
			return "", fmt.Errorf("VIDGRAB_SERVER_BIN: %w", err)
		}
		return l.binary, nil
	}

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), serverBinaryName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(serverBinaryName); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%s binary not found (set VIDGRAB_SERVER_BIN)", serverBinaryName)
}

// command builds the detached server process. The listen address taken
// from baseURL is passed through VIDGRAB_SERVER_HOST and VIDGRAB_SERVER_PORT,
// which override whatever the config file says.
func (l *serverLauncher) command() (*exec.Cmd, error) {
	binary, err := l.findBinary()
	if err != nil {
		return nil, err
	}

	var args []string
	if l.configPath != "" {
		args = append(args, "-config", l.configPath)
	}

	cmd := exec.Command(binary, args...)
	cmd.Env = os.Environ()
	if u, err := url.Parse(l.baseURL); err == nil && u.Hostname() != "" {
		cmd.Env = append(cmd.Env, "VIDGRAB_SERVER_HOST="+u.Hostname())
		if port := u.Port(); port != "" {
			cmd.Env = append(cmd.Env, "VIDGRAB_SERVER_PORT="+port)
		}
	}
	setSysProcAttr(cmd)
	return cmd, nil
}

func (l *serverLauncher) waitReady() error {
	deadline := time.Now().Add(l.startTimeout)
	for time.Now().Before(deadline) {
		if l.ready() {
			return nil
		}
		time.Sleep(l.pollInterval)
	}
	return fmt.Errorf("server at %s not ready within %v", l.baseURL, l.startTimeout)
}

// ensure starts the server unless it is already ready
func (l *serverLauncher) ensure(out io.Writer) error {
	if l.ready() {
		return nil
	}

	cmd, err := l.command()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Starting %s for %s...\n", filepath.Base(cmd.Path), l.baseURL)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	go cmd.Wait()

	if err := l.waitReady(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Server started")
	return nil
}
