package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type role int

const (
	roleRead role = iota
	roleWrite
)

func parseRole(input string) (role, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "read", "r":
		return roleRead, nil
	case "write", "w":
		return roleWrite, nil
	default:
		return roleRead, fmt.Errorf("unknown role %q", input)
	}
}

// requiredRole is the role a request needs without ACL rules: reads and
// the side-effect free evaluate and check endpoints need read access.
func requiredRole(r *http.Request) role {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return roleRead
	}
	switch r.URL.Path {
	case "/v1/evaluate", "/v1/check":
		return roleRead
	}
	return roleWrite
}

type tokenAuth struct {
	disabled bool
	tokens   map[string]role
}

// newTokenAuth registers write and read tokens from comma-separated lists.
// Without any token a write token is generated and returned.
func newTokenAuth(mode, writeTokens, readTokens string) (tokenAuth, string, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "disabled":
		return tokenAuth{disabled: true}, "", nil
	case "", "token":
	default:
		return tokenAuth{}, "", fmt.Errorf("unknown api auth mode %q (token, disabled)", mode)
	}

	auth := tokenAuth{tokens: make(map[string]role)}
	for _, token := range splitCommaList(writeTokens) {
		auth.tokens[token] = roleWrite
	}
	for _, token := range splitCommaList(readTokens) {
		auth.tokens[token] = roleRead
	}
	if len(auth.tokens) > 0 {
		return auth, "", nil
	}

	buffer := make([]byte, 24)
	if _, err := rand.Read(buffer); err != nil {
		return tokenAuth{}, "", err
	}
	generated := hex.EncodeToString(buffer)
	auth.tokens[generated] = roleWrite
	return auth, generated, nil
}

// authorize reports whether the request may proceed and whether it carried
// a known token.
func (a tokenAuth) authorize(r *http.Request, required role) (ok, known bool) {
	if a.disabled {
		return true, true
	}
	token := extractToken(r)
	if token == "" {
		return false, false
	}
	granted, found := a.tokens[token]
	if !found {
		return false, false
	}
	return granted == roleWrite || required == roleRead, true
}

func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	for _, scheme := range []string{"Bearer ", "Token "} {
		if strings.HasPrefix(auth, scheme) {
			return strings.TrimSpace(strings.TrimPrefix(auth, scheme))
		}
	}
	return strings.TrimSpace(r.Header.Get("X-PDDL-Token"))
}

// rateLimiter is a token bucket per client.
type rateLimiter struct {
	mu      sync.Mutex
	rate    float64
	burst   float64
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// newRateLimiter returns nil, allowing everything, for a zero rate.
func newRateLimiter(perMinute, burst int) *rateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &rateLimiter{
		rate:    float64(perMinute) / 60,
		burst:   float64(burst),
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (rl *rateLimiter) allow(key string) bool {
	if rl == nil {
		return true
	}
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &bucket{tokens: rl.burst - 1, last: now}
		return true
	}
	b.tokens = min(rl.burst, b.tokens+now.Sub(b.last).Seconds()*rl.rate)
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func clientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// acl overrides the required role per path and method. Paths ending in "*"
// match as prefixes; the first matching rule wins.
type acl struct {
	defaultRole *role
	rules       []aclRule
}

type aclRule struct {
	path    string
	prefix  bool
	methods map[string]struct{}
	role    role
}

type aclFile struct {
	DefaultRole string `yaml:"default_role" json:"default_role"`
	Rules       []struct {
		Path    string   `yaml:"path" json:"path"`
		Methods []string `yaml:"methods" json:"methods"`
		Role    string   `yaml:"role" json:"role"`
	} `yaml:"rules" json:"rules"`
}

func loadACL(path string) (*acl, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, errors.New("acl file is empty")
	}
	var file aclFile
	if err := yaml.Unmarshal(payload, &file); err != nil {
		return nil, err
	}
	return compileACL(file)
}

func compileACL(file aclFile) (*acl, error) {
	out := &acl{}
	if file.DefaultRole != "" {
		r, err := parseRole(file.DefaultRole)
		if err != nil {
			return nil, fmt.Errorf("default_role: %w", err)
		}
		out.defaultRole = &r
	}
	for _, rule := range file.Rules {
		path := strings.TrimSpace(rule.Path)
		if path == "" {
			continue
		}
		r, err := parseRole(rule.Role)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", path, err)
		}
		methods := make(map[string]struct{})
		for _, method := range rule.Methods {
			if method = strings.ToUpper(strings.TrimSpace(method)); method != "" {
				methods[method] = struct{}{}
			}
		}
		compiled := aclRule{path: path, methods: methods, role: r}
		if strings.HasSuffix(path, "*") {
			compiled.path, compiled.prefix = strings.TrimSuffix(path, "*"), true
		}
		out.rules = append(out.rules, compiled)
	}
	return out, nil
}

func (a *acl) required(r *http.Request, fallback role) role {
	if a == nil {
		return fallback
	}
	for _, rule := range a.rules {
		if rule.prefix && !strings.HasPrefix(r.URL.Path, rule.path) {
			continue
		}
		if !rule.prefix && r.URL.Path != rule.path {
			continue
		}
		if len(rule.methods) > 0 {
			if _, ok := rule.methods[strings.ToUpper(r.Method)]; !ok {
				continue
			}
		}
		return rule.role
	}
	if a.defaultRole != nil {
		return *a.defaultRole
	}
	return fallback
}
