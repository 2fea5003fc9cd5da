package config

import (
	"os"
	"sort"
	"strings"
)

const corsOriginsVar = "CORS_ALLOWED_ORIGINS"

type Cors struct{}

var _ CorsConfig = Cors{}

// AllowedOrigins holds exact origins plus "*.suffix" patterns, e.g. "*.vercel.app".
type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	if _, ok := a[origin]; ok {
		return true
	}
	for pattern := range a {
		suffix, ok := strings.CutPrefix(pattern, "*.")
		if !ok {
			continue
		}
		if strings.HasSuffix(origin, "."+suffix) {
			return true
		}
	}
	return false
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	sort.Strings(origins)
	return strings.Join(origins, ", ")
}

var defaultOrigins = []string{
	"http://localhost:3000",
	"https://localhost:3000",
	"*.vercel.app",
}

func (Cors) GetAllowedOrigins() AllowedOrigins {
	allowed := AllowedOrigins{}
	for _, o := range defaultOrigins {
		allowed[o] = nullValue{}
	}
	if base := publicBaseURL(); base != "" {
		allowed[base] = nullValue{}
	}
	for _, o := range strings.Split(os.Getenv(corsOriginsVar), ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[strings.TrimRight(o, "/")] = nullValue{}
		}
	}
	return allowed
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, OPTIONS"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization, X-Admin-Key"
}
