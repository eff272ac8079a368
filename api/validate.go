package api

import (
	"net"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// dangerousSchemes can smuggle script execution or local file reads
// through the rendering engine.
var dangerousSchemes = []string{"javascript", "data", "file", "vbscript", "about", "chrome"}

// dangerousFragments are rejected anywhere in the URL.
var dangerousFragments = []string{"<script", "%3cscript", "onerror=", "onload="}

// RegisterValidators installs the custom binding rules on gin's
// validator. Must run once before the router handles requests.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_url", safeURL)
	}
}

// safeURL accepts only http(s) URLs pointing at public hosts: no
// script-bearing schemes, no loopback, link-local or private targets.
func safeURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	lower := strings.ToLower(strings.TrimSpace(raw))

	for _, scheme := range dangerousSchemes {
		if strings.HasPrefix(lower, scheme+":") {
			return false
		}
	}
	for _, frag := range dangerousFragments {
		if strings.Contains(lower, frag) {
			return false
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return false
		}
	}
	return true
}
