package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/diogo/manualqa/internal/api"
	"github.com/diogo/manualqa/internal/config"
	apierrors "github.com/diogo/manualqa/internal/errors"
)

func TestSpinnerLifecycle(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, "Connecting")
	s.start()
	time.Sleep(50 * time.Millisecond)
	s.stopWithSuccess("done")
	// A second stop must not panic on the closed channel
	s.stopOnce()

	if !strings.Contains(buf.String(), "done") {
		t.Errorf("success message missing: %q", buf.String())
	}

	s = newSpinner(&buf, "Connecting")
	s.start()
	time.Sleep(30 * time.Millisecond)
	s.stopWithError()
}

func TestProgressRawIsSilent(t *testing.T) {
	var buf bytes.Buffer
	p := &progress{w: &buf, raw: true}
	p.begin("working")
	p.success("done")
	p.fail(errors.New("boom"), "Failed")
	if buf.Len() != 0 {
		t.Errorf("raw progress wrote %q", buf.String())
	}
}

func TestFormatErrorMessage(t *testing.T) {
	if got := formatErrorMessage(nil, "ctx"); got != "" {
		t.Fatalf("expected empty for nil error, got %s", got)
	}

	tests := []struct {
		name  string
		err   error
		wants []string
	}{
		{
			name:  "api error",
			err:   apierrors.NewAPIError(500, "/api/chat/", "failure"),
			wants: []string{"HTTP Status: 500", "Endpoint: /api/chat/"},
		},
		{
			name:  "auth error",
			err:   fmt.Errorf("send: %w", apierrors.NewAuthError("expired")),
			wants: []string{"auto-login"},
		},
		{
			name:  "network error",
			err:   apierrors.NewNetworkError("/api/conversations/", errors.New("refused")),
			wants: []string{"reachable", "Endpoint: /api/conversations/"},
		},
		{
			name:  "not found",
			err:   fmt.Errorf("load: %w", apierrors.ErrNotFound),
			wants: []string{"conversations list"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := formatErrorMessage(tt.err, "Failed")
			if !strings.Contains(out, "Failed") {
				t.Errorf("context missing: %s", out)
			}
			for _, want := range tt.wants {
				if !strings.Contains(out, want) {
					t.Errorf("missing %q in %s", want, out)
				}
			}
		})
	}
}

func TestStreamNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := streamNotifier{w: &buf}
	n.Notice("notice text")
	n.Alert("alert text")

	out := buf.String()
	if !strings.Contains(out, "notice text") || !strings.Contains(out, "alert text") {
		t.Errorf("output = %q", out)
	}
}

func TestTruncateValue(t *testing.T) {
	if got := truncateValue("short", 10); got != "short" {
		t.Fatalf("expected unchanged, got %s", got)
	}
	if got := truncateValue("abcdefghijklmnopqrstuvwxyz", 5); got != "abcde" {
		t.Fatalf("expected truncated, got %s", got)
	}
}

func TestSupportedBrowsersHelp(t *testing.T) {
	help := SupportedBrowsersHelp()
	for _, b := range []string{"chrome", "firefox", "edge"} {
		if !strings.Contains(help, b) {
			t.Errorf("help %q missing %s", help, b)
		}
	}
}

func TestAutoLogin_InvalidBrowser(t *testing.T) {
	if _, _, err := runCmd(t, testDeps(&api.MockClient{}, nil), "", "auto-login", "-b", "netscape"); err == nil {
		t.Fatal("expected error for unsupported browser")
	}
}

func TestImportCookiesAndLogout(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	src := filepath.Join(t.TempDir(), "cookies.json")
	data := `[{"name": "sessionid", "value": "s3cr3t"}, {"name": "csrftoken", "value": "tok"}]`
	if err := os.WriteFile(src, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCmd(t, testDeps(&api.MockClient{}, nil), "", "import-cookies", src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "imported successfully") {
		t.Errorf("output = %q", out)
	}

	cookies, err := config.LoadCookies()
	if err != nil {
		t.Fatalf("LoadCookies: %v", err)
	}
	if sid, csrf := cookies.Snapshot(); sid != "s3cr3t" || csrf != "tok" {
		t.Errorf("cookies = %s, %s", sid, csrf)
	}

	if _, _, err := runCmd(t, testDeps(&api.MockClient{}, nil), "", "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := config.LoadCookies(); !errors.Is(err, apierrors.ErrNoCookies) {
		t.Errorf("cookies should be gone, err = %v", err)
	}

	if _, _, err := runCmd(t, testDeps(&api.MockClient{}, nil), "", "import-cookies", filepath.Join(home, "missing.json")); err == nil {
		t.Error("missing source should fail")
	}
}
