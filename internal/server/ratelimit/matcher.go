package ratelimit

import "strings"

// unlimitedPrefixes are never rate limited, nor are GET .../stream routes.
var unlimitedPrefixes = []string{"/health", "/output/"}

// MatchEndpoint returns the configuration for a request, or nil when the
// default limit applies. Exact paths win over prefixes.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if method == "GET" {
		for _, prefix := range unlimitedPrefixes {
			if strings.HasPrefix(path, prefix) {
				return &EndpointConfig{Path: prefix, Method: method}
			}
		}
		if strings.HasSuffix(path, "/stream") {
			return &EndpointConfig{Path: path, Method: method}
		}
	}

	for i := range configs {
		if configs[i].Path == path && configs[i].Method == method {
			return &configs[i]
		}
	}
	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			return c
		}
	}
	return nil
}
