// Command autologin-mcp exposes the autologin API as MCP tools over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// apiError mirrors the error object of API responses.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

type link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// loginResponse mirrors the API login response.
type loginResponse struct {
	Success        bool   `json:"success"`
	SessionID      string `json:"session_id"`
	URL            string `json:"url"`
	FormFound      bool   `json:"form_found"`
	UsernameMapped bool   `json:"username_mapped"`
	Submit         *struct {
		FinalURL   string `json:"final_url"`
		StatusCode int    `json:"status_code"`
	} `json:"submit"`
	Links   []link    `json:"links"`
	Cookies []cookie  `json:"cookies"`
	Error   *apiError `json:"error"`
}

// linksResponse mirrors the API links response.
type linksResponse struct {
	Success bool      `json:"success"`
	URL     string    `json:"url"`
	Links   []link    `json:"links"`
	Error   *apiError `json:"error"`
}

// previewResponse mirrors the API session preview response.
type previewResponse struct {
	Success    bool      `json:"success"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	Title      string    `json:"title"`
	Markdown   string    `json:"markdown"`
	Error      *apiError `json:"error"`
}

func main() {
	apiURL := os.Getenv("AUTOLOGIN_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("AUTOLOGIN_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "AUTOLOGIN_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"autologin",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	autoLoginTool := mcp.NewTool("auto_login",
		mcp.WithDescription("Log into a web site through its own login form. Returns a session id and the cookies the site set. Credentials come from the arguments or from a saved keychain item."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The page that holds the login form"),
		),
		mcp.WithString("username",
			mcp.Description("Username or email"),
		),
		mcp.WithString("password",
			mcp.Description("Password; omit to use keychain_key"),
		),
		mcp.WithString("keychain_key",
			mcp.Description("Name of a saved keychain item to load credentials from"),
		),
		mcp.WithString("session_id",
			mcp.Description("Continue an existing session, starting from its cookies"),
		),
	)
	s.AddTool(autoLoginTool, handleAutoLogin(apiURL, apiKey))

	findLinksTool := mcp.NewTool("find_login_links",
		mcp.WithDescription("List links on a page that look like they lead to a login form. Useful when auto_login reports no form."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The page to search"),
		),
	)
	s.AddTool(findLinksTool, handleFindLoginLinks(apiURL, apiKey))

	previewTool := mcp.NewTool("preview_session",
		mcp.WithDescription("Fetch a page with a session's cookies and return it as Markdown, to check whether the login worked."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by auto_login"),
		),
		mcp.WithString("url",
			mcp.Description("Page to fetch (default: the session's login page)"),
		),
	)
	s.AddTool(previewTool, handlePreviewSession(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the autologin API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func errorText(fallback string, e *apiError) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func handleAutoLogin(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]any{"url": url}
		for _, name := range []string{"username", "password", "keychain_key", "session_id"} {
			if v := request.GetString(name, ""); v != "" {
				payload[name] = v
			}
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/login", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("login request failed: %v", err)), nil
		}

		var lr loginResponse
		if err := json.Unmarshal(respBody, &lr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse login response: %v", err)), nil
		}
		if !lr.Success {
			return mcp.NewToolResultError(errorText("login failed", lr.Error)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Session: %s\nPage: %s\n", lr.SessionID, lr.URL)
		if !lr.FormFound {
			sb.WriteString("No login form found on the page.\n")
			if len(lr.Links) > 0 {
				sb.WriteString("\nCandidate login links:\n")
				for _, l := range lr.Links {
					fmt.Fprintf(&sb, "- %s (%s)\n", l.Href, l.Text)
				}
			}
			return mcp.NewToolResultText(sb.String()), nil
		}

		if !lr.UsernameMapped {
			sb.WriteString("Warning: no username field was identified; only the password was filled.\n")
		}
		if lr.Submit != nil {
			fmt.Fprintf(&sb, "Submitted: HTTP %d, landed on %s\n", lr.Submit.StatusCode, lr.Submit.FinalURL)
		}
		fmt.Fprintf(&sb, "\nCookies (%d):\n", len(lr.Cookies))
		for _, c := range lr.Cookies {
			fmt.Fprintf(&sb, "- %s=%s; domain=%s; path=%s\n", c.Name, c.Value, c.Domain, c.Path)
		}
		sb.WriteString("\nCookies are a hint, not proof: use preview_session to check a protected page.")

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleFindLoginLinks(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/links", map[string]string{"url": url})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("links request failed: %v", err)), nil
		}

		var lr linksResponse
		if err := json.Unmarshal(respBody, &lr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse links response: %v", err)), nil
		}
		if !lr.Success {
			return mcp.NewToolResultError(errorText("links failed", lr.Error)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Found %d login links on %s:\n\n", len(lr.Links), lr.URL)
		for _, l := range lr.Links {
			fmt.Fprintf(&sb, "%s\t%s\n", l.Href, l.Text)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handlePreviewSession(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError("session_id is required"), nil
		}

		payload := map[string]string{}
		if u := request.GetString("url", ""); u != "" {
			payload["url"] = u
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/sessions/"+id+"/preview", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("preview request failed: %v", err)), nil
		}

		var pr previewResponse
		if err := json.Unmarshal(respBody, &pr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse preview response: %v", err)), nil
		}
		if !pr.Success {
			return mcp.NewToolResultError(errorText("preview failed", pr.Error)), nil
		}

		result := fmt.Sprintf("Title: %s\nSource: %s\nStatus: %d\n\n%s", pr.Title, pr.URL, pr.StatusCode, pr.Markdown)
		return mcp.NewToolResultText(result), nil
	}
}
