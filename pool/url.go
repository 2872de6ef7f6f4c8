package pool

import (
	"net/url"
	"strings"
	"sync"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"go.uber.org/zap"
)

// URL cache for parsed source URLs to avoid repeated parsing
var (
	urlCache     = make(map[string]*url.URL)
	urlCacheMux  sync.RWMutex
	urlCacheSize = 1000
)

// ValidateUrl parses urlStr and checks its host against the allowed origins.
// An empty origin list allows every source.
func ValidateUrl(logger *zap.Logger, urlStr string, origins []string) (valid bool, hostname string) {
	urlCacheMux.RLock()
	parsedUrl, exists := urlCache[urlStr]
	urlCacheMux.RUnlock()

	if !exists {
		var err error
		parsedUrl, err = url.Parse(urlStr)
		if err != nil {
			return false, ""
		}

		urlCacheMux.Lock()
		if len(urlCache) >= urlCacheSize {
			urlCache = make(map[string]*url.URL)
		}
		urlCache[urlStr] = parsedUrl
		urlCacheMux.Unlock()
	}

	return ValidateHostname(parsedUrl, origins, logger)
}

func ValidateHostname(parsedUrl *url.URL, origins []string, logger *zap.Logger) (valid bool, hostname string) {
	if parsedUrl.Scheme != "http" && parsedUrl.Scheme != "https" {
		return false, ""
	}

	hostname = strings.ToLower(parsedUrl.Hostname())
	if hostname == "" {
		return false, ""
	}

	if len(origins) == 0 {
		return true, hostname
	}

	// Early return for exact matches
	for _, origin := range origins {
		if strings.EqualFold(origin, hostname) {
			logger.Debug("origin matched", zap.String("origin", origin), zap.String("hostname", hostname))
			return true, hostname
		}
	}

	for _, origin := range origins {
		if strings.Contains(origin, "*") && wildcard.Match(strings.ToLower(origin), hostname) {
			logger.Debug("origin matched", zap.String("origin", origin), zap.String("hostname", hostname))
			return true, hostname
		}
	}

	return false, ""
}
