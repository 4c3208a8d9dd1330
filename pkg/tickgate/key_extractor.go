package tickgate

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// KeyExtractor derives the rate limit key identifying a client from an
// HTTP request.
type KeyExtractor func(*http.Request) (string, error)

// ExtractIP keys clients by the connection's remote IP address.
func ExtractIP() KeyExtractor {
	return func(r *http.Request) (string, error) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if ip == "" {
			return "", fmt.Errorf("%w: empty IP address", ErrKeyExtractionFailed)
		}
		return "ip:" + ip, nil
	}
}

// ExtractIPWithProxy keys clients by IP, honoring X-Forwarded-For and
// X-Real-IP before falling back to the remote address. Use behind a
// trusted reverse proxy.
func ExtractIPWithProxy() KeyExtractor {
	plain := ExtractIP()
	return func(r *http.Request) (string, error) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// First entry is the original client.
			if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
				return "ip:" + ip, nil
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return "ip:" + xri, nil
		}
		return plain(r)
	}
}

// ExtractHeader keys clients by the value of a specific header, e.g. an
// API key.
func ExtractHeader(name string) KeyExtractor {
	return func(r *http.Request) (string, error) {
		value := r.Header.Get(name)
		if value == "" {
			return "", fmt.Errorf("%w: header %s not found or empty", ErrKeyExtractionFailed, name)
		}
		return fmt.Sprintf("header:%s:%s", name, value), nil
	}
}

// ExtractStatic returns the same key for every request, giving all clients
// one shared limit.
func ExtractStatic(key string) KeyExtractor {
	return func(r *http.Request) (string, error) {
		if key == "" {
			return "", fmt.Errorf("%w: static key is empty", ErrKeyExtractionFailed)
		}
		return key, nil
	}
}

// ExtractComposite tries the given extractors in order and returns the
// first key produced, enabling fallback chains such as API key then IP.
func ExtractComposite(extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) (string, error) {
		var lastErr error
		for _, extract := range extractors {
			key, err := extract(r)
			if err == nil && key != "" {
				return key, nil
			}
			lastErr = err
		}
		if lastErr != nil {
			return "", fmt.Errorf("%w: all extractors failed: %v", ErrKeyExtractionFailed, lastErr)
		}
		return "", fmt.Errorf("%w: no extractors provided", ErrKeyExtractionFailed)
	}
}

// ParseKeyExtractorSpec builds a KeyExtractor from a configuration string:
//
//	"ip"                -> ExtractIP()
//	"ip-proxy"          -> ExtractIPWithProxy()
//	"header:X-API-Key"  -> ExtractHeader("X-API-Key")
//	"static:global"     -> ExtractStatic("global")
func ParseKeyExtractorSpec(spec string) (KeyExtractor, error) {
	kind, arg, hasArg := strings.Cut(spec, ":")

	switch kind {
	case "ip":
		return ExtractIP(), nil
	case "ip-proxy":
		return ExtractIPWithProxy(), nil
	case "header":
		if !hasArg || arg == "" {
			return nil, fmt.Errorf("%w: header extractor requires format 'header:HeaderName'", ErrInvalidConfig)
		}
		return ExtractHeader(arg), nil
	case "static":
		if !hasArg || arg == "" {
			return nil, fmt.Errorf("%w: static extractor requires format 'static:key'", ErrInvalidConfig)
		}
		return ExtractStatic(arg), nil
	default:
		return nil, fmt.Errorf("%w: unknown key extractor type: %s", ErrInvalidConfig, kind)
	}
}
