package solvers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"taskweave/schema"
)

const userAgent = "taskweave"

// maxBodyBytes caps how much of an HTTP response becomes a result.
const maxBodyBytes = 1 << 20

var httpClient = &http.Client{
	Timeout: 30 * time.Second,
}

// NewShellSolver runs its input as a bash command and returns the combined output.
func NewShellSolver() *FuncSolver {
	return NewFuncSolver("shell",
		"Executes a bash command and returns the output. The input is the command line.",
		runShell,
	).WithInputSchema(schema.Object(schema.PropertyMap{
		"command": {Type: schema.TypeString, Description: "The bash command to execute"},
	}, "command"))
}

func runShell(ctx context.Context, command string) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("command is required")
	}
	output, err := exec.CommandContext(ctx, "bash", "-c", command).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return strings.TrimRight(string(output), "\n"), nil
}

// NewCommandSolver runs a fixed bash command with the task input on stdin.
func NewCommandSolver(name, description, command string) *FuncSolver {
	if description == "" {
		description = fmt.Sprintf("Pipes the input through `%s`", command)
	}
	return NewFuncSolver(name, description, func(ctx context.Context, input string) (string, error) {
		cmd := exec.CommandContext(ctx, "bash", "-c", command)
		cmd.Stdin = strings.NewReader(input)
		output, err := cmd.CombinedOutput()
		if err != nil {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
		}
		return strings.TrimRight(string(output), "\n"), nil
	})
}

// NewHTTPGetSolver fetches the URL given as its input and returns the body.
func NewHTTPGetSolver() *FuncSolver {
	return NewFuncSolver("http_get",
		"Performs an HTTP GET request to the URL given as input and returns the response body.",
		httpGet,
	).WithInputSchema(schema.Object(schema.PropertyMap{
		"url": {Type: schema.TypeString, Description: "The URL to send the GET request to"},
	}, "url"))
}

func httpGet(ctx context.Context, input string) (string, error) {
	url := strings.TrimSpace(input)
	if url == "" {
		return "", fmt.Errorf("url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}
