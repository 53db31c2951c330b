package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	apierrors "github.com/diogo/manualqa/internal/errors"
)

// Cookie names issued by the server's session framework
const (
	CookieSessionID = "sessionid"
	CookieCSRFToken = "csrftoken"
)

// Cookies represents the session cookies of a logged-in user
type Cookies struct {
	mu        sync.RWMutex `json:"-"`
	SessionID string       `json:"sessionid"`
	CSRFToken string       `json:"csrftoken,omitempty"`
}

// Snapshot returns both cookies atomically
func (c *Cookies) Snapshot() (sessionID, csrfToken string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SessionID, c.CSRFToken
}

// SetBoth updates both cookies atomically
func (c *Cookies) SetBoth(sessionID, csrfToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SessionID = sessionID
	c.CSRFToken = csrfToken
}

// ToMap converts cookies to a name/value map
func (c *Cookies) ToMap() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := map[string]string{
		CookieSessionID: c.SessionID,
	}
	if c.CSRFToken != "" {
		m[CookieCSRFToken] = c.CSRFToken
	}
	return m
}

// CookieListItem represents a cookie in browser export format
type CookieListItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LoadCookies loads cookies from the cookies file
func LoadCookies() (*Cookies, error) {
	cookiesPath, err := GetCookiesPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cookiesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: import them with 'manualqa import-cookies <file>' or 'manualqa auto-login'", apierrors.ErrNoCookies)
		}
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}

	return parseCookies(data)
}

// parseCookies accepts a list [{name, value}] or a dict {name: value}
func parseCookies(data []byte) (*Cookies, error) {
	var dictFormat map[string]string
	if err := json.Unmarshal(data, &dictFormat); err == nil {
		sessionID, ok := dictFormat[CookieSessionID]
		if !ok || sessionID == "" {
			return nil, fmt.Errorf("missing required cookie: %s", CookieSessionID)
		}
		return &Cookies{
			SessionID: sessionID,
			CSRFToken: dictFormat[CookieCSRFToken],
		}, nil
	}

	var listFormat []CookieListItem
	if err := json.Unmarshal(data, &listFormat); err == nil {
		cookies := &Cookies{}
		for _, item := range listFormat {
			switch item.Name {
			case CookieSessionID:
				cookies.SessionID = item.Value
			case CookieCSRFToken:
				cookies.CSRFToken = item.Value
			}
		}

		if cookies.SessionID == "" {
			return nil, fmt.Errorf("missing required cookie: %s", CookieSessionID)
		}
		return cookies, nil
	}

	return nil, fmt.Errorf("invalid cookies format: expected list [{name, value}] or dict {name: value}")
}

// SaveCookies saves cookies to the cookies file
func SaveCookies(cookies *Cookies) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	sessionID, csrfToken := cookies.Snapshot()
	listFormat := []CookieListItem{
		{Name: CookieSessionID, Value: sessionID},
	}
	if csrfToken != "" {
		listFormat = append(listFormat, CookieListItem{Name: CookieCSRFToken, Value: csrfToken})
	}

	data, err := json.MarshalIndent(listFormat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if err := os.WriteFile(filepath.Join(configDir, "cookies.json"), data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookies file: %w", err)
	}

	return nil
}

// ImportCookies imports cookies from a source file
func ImportCookies(sourcePath string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source file not found: %s", sourcePath)
		}
		return fmt.Errorf("could not read file: %w", err)
	}

	cookies, err := parseCookies(data)
	if err != nil {
		return err
	}

	return SaveCookies(cookies)
}

// ValidateCookies checks if cookies are usable for authenticated requests
func ValidateCookies(cookies *Cookies) error {
	if cookies == nil {
		return fmt.Errorf("cookies are nil")
	}
	if sessionID, _ := cookies.Snapshot(); sessionID == "" {
		return fmt.Errorf("missing required cookie: %s", CookieSessionID)
	}
	return nil
}

// DeleteCookies removes the stored cookies, returning the session to anonymous mode
func DeleteCookies() error {
	cookiesPath, err := GetCookiesPath()
	if err != nil {
		return err
	}
	if err := os.Remove(cookiesPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cookies file: %w", err)
	}
	return nil
}
