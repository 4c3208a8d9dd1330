package tickgate

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestExtractIP(t *testing.T) {
	extract := ExtractIP()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:51234"
	key, err := extract(r)
	if err != nil {
		t.Fatalf("extract() = %v", err)
	}
	if key != "ip:203.0.113.9" {
		t.Errorf("key = %q, want ip:203.0.113.9", key)
	}

	// RemoteAddr without a port still works.
	r.RemoteAddr = "203.0.113.9"
	if key, _ = extract(r); key != "ip:203.0.113.9" {
		t.Errorf("key = %q, want ip:203.0.113.9", key)
	}

	r.RemoteAddr = ""
	if _, err = extract(r); !errors.Is(err, ErrKeyExtractionFailed) {
		t.Errorf("error = %v, want ErrKeyExtractionFailed", err)
	}
}

func TestExtractIPWithProxy(t *testing.T) {
	extract := ExtractIPWithProxy()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "x-forwarded-for single",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.7"},
			remote:  "10.0.0.1:1234",
			want:    "ip:198.51.100.7",
		},
		{
			name:    "x-forwarded-for chain uses first",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.2, 10.0.0.3"},
			remote:  "10.0.0.1:1234",
			want:    "ip:198.51.100.7",
		},
		{
			name:    "x-real-ip",
			headers: map[string]string{"X-Real-IP": "198.51.100.8"},
			remote:  "10.0.0.1:1234",
			want:    "ip:198.51.100.8",
		},
		{
			name:   "fallback to remote addr",
			remote: "203.0.113.9:443",
			want:   "ip:203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			key, err := extract(r)
			if err != nil {
				t.Fatalf("extract() = %v", err)
			}
			if key != tt.want {
				t.Errorf("key = %q, want %q", key, tt.want)
			}
		})
	}
}

func TestExtractHeader(t *testing.T) {
	extract := ExtractHeader("X-API-Key")

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-API-Key", "abc123")
	key, err := extract(r)
	if err != nil {
		t.Fatalf("extract() = %v", err)
	}
	if key != "header:X-API-Key:abc123" {
		t.Errorf("key = %q", key)
	}

	r = httptest.NewRequest("GET", "/", nil)
	if _, err = extract(r); !errors.Is(err, ErrKeyExtractionFailed) {
		t.Errorf("error = %v, want ErrKeyExtractionFailed", err)
	}
}

func TestExtractStatic(t *testing.T) {
	extract := ExtractStatic("global")
	key, err := extract(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("extract() = %v", err)
	}
	if key != "global" {
		t.Errorf("key = %q, want global", key)
	}

	extract = ExtractStatic("")
	if _, err = extract(httptest.NewRequest("GET", "/", nil)); !errors.Is(err, ErrKeyExtractionFailed) {
		t.Errorf("error = %v, want ErrKeyExtractionFailed", err)
	}
}

func TestExtractComposite(t *testing.T) {
	extract := ExtractComposite(
		ExtractHeader("X-API-Key"),
		ExtractIPWithProxy(),
	)

	// Header present: first extractor wins.
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:443"
	r.Header.Set("X-API-Key", "abc123")
	key, err := extract(r)
	if err != nil {
		t.Fatalf("extract() = %v", err)
	}
	if key != "header:X-API-Key:abc123" {
		t.Errorf("key = %q", key)
	}

	// Header absent: falls back to IP.
	r = httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:443"
	if key, _ = extract(r); key != "ip:203.0.113.9" {
		t.Errorf("fallback key = %q, want ip:203.0.113.9", key)
	}

	// No extractors at all.
	extract = ExtractComposite()
	if _, err = extract(r); !errors.Is(err, ErrKeyExtractionFailed) {
		t.Errorf("error = %v, want ErrKeyExtractionFailed", err)
	}
}

func TestParseKeyExtractorSpec(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{spec: "ip"},
		{spec: "ip-proxy"},
		{spec: "header:X-API-Key"},
		{spec: "static:global"},
		{spec: "header", wantErr: true},
		{spec: "static", wantErr: true},
		{spec: "cookie:session", wantErr: true},
		{spec: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			extract, err := ParseKeyExtractorSpec(tt.spec)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("ParseKeyExtractorSpec(%q) error = %v, want ErrInvalidConfig", tt.spec, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKeyExtractorSpec(%q) = %v", tt.spec, err)
			}
			if extract == nil {
				t.Fatal("nil extractor")
			}
		})
	}
}
