package api

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestSafeURL(t *testing.T) {
	v := validator.New()
	if err := v.RegisterValidation("safe_url", safeURL); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		url  string
		safe bool
	}{
		{"https://example.com/page", true},
		{"http://example.com", true},
		{"https://8.8.8.8/path", true},
		{"https://sub.domain.example.com/a?q=1", true},

		{"javascript:alert(1)", false},
		{"JavaScript:alert(1)", false},
		{"data:text/html,<h1>x</h1>", false},
		{"file:///etc/passwd", false},
		{"vbscript:msgbox(1)", false},
		{"about:blank", false},
		{"chrome://settings", false},
		{"ftp://example.com/file", false},

		{"https://example.com/<script>alert(1)</script>", false},
		{"https://example.com/?q=%3Cscript%3E", false},
		{"https://example.com/img?onerror=alert(1)", false},

		{"https://localhost/admin", false},
		{"https://app.localhost/", false},
		{"https://printer.local/", false},
		{"http://127.0.0.1:8000/", false},
		{"http://10.0.0.5/", false},
		{"http://192.168.1.1/", false},
		{"http://172.16.0.1/", false},
		{"http://169.254.169.254/latest/meta-data", false},
		{"http://0.0.0.0/", false},
		{"http://[::1]/", false},

		{"", false},
		{"not a url", false},
		{"https://", false},
	}

	for _, tt := range tests {
		err := v.Var(tt.url, "safe_url")
		if tt.safe && err != nil {
			t.Errorf("%q rejected, want accepted", tt.url)
		}
		if !tt.safe && err == nil {
			t.Errorf("%q accepted, want rejected", tt.url)
		}
	}
}
