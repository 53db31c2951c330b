// Package browser provides functionality to extract cookies from web browsers.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/chrome"
	_ "github.com/browserutils/kooky/browser/chromium"
	_ "github.com/browserutils/kooky/browser/edge"
	_ "github.com/browserutils/kooky/browser/firefox"
	_ "github.com/browserutils/kooky/browser/opera"

	"github.com/diogo/manualqa/internal/config"
)

// SupportedBrowser represents a supported browser type
type SupportedBrowser string

const (
	BrowserAuto     SupportedBrowser = "auto"
	BrowserChrome   SupportedBrowser = "chrome"
	BrowserChromium SupportedBrowser = "chromium"
	BrowserFirefox  SupportedBrowser = "firefox"
	BrowserEdge     SupportedBrowser = "edge"
	BrowserOpera    SupportedBrowser = "opera"
)

// AllSupportedBrowsers returns a list of all supported browsers
func AllSupportedBrowsers() []SupportedBrowser {
	return []SupportedBrowser{
		BrowserChrome,
		BrowserChromium,
		BrowserFirefox,
		BrowserEdge,
		BrowserOpera,
	}
}

// String returns the string representation of the browser
func (b SupportedBrowser) String() string {
	return string(b)
}

// ParseBrowser parses a browser string into a SupportedBrowser
func ParseBrowser(s string) (SupportedBrowser, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return BrowserAuto, nil
	case "chrome", "google-chrome":
		return BrowserChrome, nil
	case "chromium":
		return BrowserChromium, nil
	case "firefox", "mozilla", "mozilla-firefox":
		return BrowserFirefox, nil
	case "edge", "microsoft-edge", "msedge":
		return BrowserEdge, nil
	case "opera":
		return BrowserOpera, nil
	default:
		return "", fmt.Errorf("unsupported browser: %s. Supported: chrome, chromium, firefox, edge, opera", s)
	}
}

// ExtractResult contains the result of cookie extraction
type ExtractResult struct {
	Cookies     *config.Cookies
	BrowserName string
	Host        string
}

// HostFromURL returns the cookie host for a server base URL
func HostFromURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", serverURL, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("server URL %q has no host", serverURL)
	}
	return u.Hostname(), nil
}

// ExtractSessionCookies finds the server's sessionid and csrftoken cookies
// in the given browser, or in every supported browser when browser is auto.
func ExtractSessionCookies(ctx context.Context, browser SupportedBrowser, host string) (*ExtractResult, error) {
	if browser == BrowserAuto {
		return extractFromAllBrowsers(ctx, host)
	}
	return extractFromBrowser(ctx, browser, host)
}

func extractFromAllBrowsers(ctx context.Context, host string) (*ExtractResult, error) {
	browsers := []SupportedBrowser{
		BrowserChrome,
		BrowserFirefox,
		BrowserEdge,
		BrowserChromium,
		BrowserOpera,
	}

	var lastErr error
	for _, browser := range browsers {
		result, err := extractFromBrowser(ctx, browser, host)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("could not find session cookies for %s in any browser: %w", host, lastErr)
	}
	return nil, fmt.Errorf("could not find session cookies for %s in any supported browser", host)
}

// extractFromBrowser tries every profile of the browser until one holds a session
func extractFromBrowser(ctx context.Context, browser SupportedBrowser, host string) (*ExtractResult, error) {
	stores := kooky.FindAllCookieStores(ctx)

	var matchingStores []kooky.CookieStore
	var browserName string

	for _, store := range stores {
		name := store.Browser()
		if matchesBrowser(name, browser) {
			matchingStores = append(matchingStores, store)
			if browserName == "" {
				browserName = name
			}
		} else {
			_ = store.Close()
		}
	}

	if len(matchingStores) == 0 {
		return nil, fmt.Errorf("browser %s not found or no cookie store available", browser)
	}
	defer func() {
		for _, s := range matchingStores {
			_ = s.Close()
		}
	}()

	var lastErr error
	for _, store := range matchingStores {
		result, err := extractCookiesFromStore(ctx, store, browserName, store.Profile(), host)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// matchesBrowser checks if a browser name matches the target browser
func matchesBrowser(browserName string, target SupportedBrowser) bool {
	browserName = strings.ToLower(browserName)

	switch target {
	case BrowserChrome:
		return strings.Contains(browserName, "chrome") && !strings.Contains(browserName, "chromium")
	case BrowserChromium:
		return strings.Contains(browserName, "chromium")
	case BrowserFirefox:
		return strings.Contains(browserName, "firefox")
	case BrowserEdge:
		return strings.Contains(browserName, "edge")
	case BrowserOpera:
		return strings.Contains(browserName, "opera")
	default:
		return false
	}
}

// extractCookiesFromStore reads the session cookies for host from one store
func extractCookiesFromStore(ctx context.Context, store kooky.CookieStore, browserName, profile, host string) (*ExtractResult, error) {
	var found []*kooky.Cookie
	for cookie := range store.TraverseCookies(kooky.Valid, kooky.DomainContains(host)).OnlyCookies() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found = append(found, cookie)
	}

	displayName := browserName
	if profile != "" {
		displayName = fmt.Sprintf("%s (profile: %s)", browserName, profile)
	}

	cookies, err := pickSessionCookies(found, host)
	if err != nil {
		return nil, fmt.Errorf("%w in %s. Please log in to %s in that browser", err, displayName, host)
	}

	return &ExtractResult{
		Cookies:     cookies,
		BrowserName: displayName,
		Host:        host,
	}, nil
}

// pickSessionCookies selects sessionid and csrftoken, preferring cookies set
// on the exact host over parent or sibling domains.
func pickSessionCookies(cookies []*kooky.Cookie, host string) (*config.Cookies, error) {
	var sessionID, csrfToken string
	var sessionExact, csrfExact bool

	for _, cookie := range cookies {
		exact := strings.TrimPrefix(cookie.Domain, ".") == host
		switch cookie.Name {
		case config.CookieSessionID:
			if sessionID == "" || (exact && !sessionExact) {
				sessionID = cookie.Value
				sessionExact = exact
			}
		case config.CookieCSRFToken:
			if csrfToken == "" || (exact && !csrfExact) {
				csrfToken = cookie.Value
				csrfExact = exact
			}
		}
	}

	if sessionID == "" {
		return nil, fmt.Errorf("cookie %s not found", config.CookieSessionID)
	}
	return &config.Cookies{SessionID: sessionID, CSRFToken: csrfToken}, nil
}

// ListAvailableBrowsers returns a list of browsers that have cookie stores
func ListAvailableBrowsers() []string {
	ctx := context.Background()
	stores := kooky.FindAllCookieStores(ctx)
	var browsers []string

	seen := make(map[string]bool)
	for _, store := range stores {
		name := store.Browser()
		if !seen[name] {
			browsers = append(browsers, name)
			seen[name] = true
		}
		store.Close()
	}

	return browsers
}
