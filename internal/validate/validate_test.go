package validate

import "testing"

func TestIsValidURL_Accepts(t *testing.T) {
	valid := []string{
		"https://www.example.com",
		"http://example.com",
		"https://sub.domain.example.com",
		"http://example.com:8080",
		"https://example.com/path",
		"http://example.com/path?param=value",
		"https://localhost",
		"https://localhost:3000/health",
		"http://127.0.0.1",
		"http://127.0.0.1:8080/status",
		"example.com", // scheme assumed
		"www.example.com/path",
	}
	for _, u := range valid {
		if !IsValidURL(u) {
			t.Fatalf("want valid: %q", u)
		}
	}
}

func TestIsValidURL_Rejects(t *testing.T) {
	invalid := []string{
		"",
		" ",
		"not_a_url",
		"ftp://example.com", // prefixing makes it https://ftp://... which fails
		"//example.com",
		"https://",
		"https://.com",
		"https://example.",
		"http:/example.com",
		"https://exa mple.com",
	}
	for _, u := range invalid {
		if IsValidURL(u) {
			t.Fatalf("want invalid: %q", u)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"https://example.com", "https://example.com"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Fatalf("Normalize(%q): want %q, got %q", c.in, c.want, got)
		}
	}
}

func TestInfo(t *testing.T) {
	info, err := Info("https://example.com:8080/path?query=value#fragment")
	if err != nil {
		t.Fatal(err)
	}
	if info.Scheme != "https" {
		t.Fatalf("scheme: %q", info.Scheme)
	}
	if info.Host != "example.com:8080" {
		t.Fatalf("host: %q", info.Host)
	}
	if info.Path != "/path" {
		t.Fatalf("path: %q", info.Path)
	}
	if info.Query != "query=value" {
		t.Fatalf("query: %q", info.Query)
	}
	if info.Fragment != "fragment" {
		t.Fatalf("fragment: %q", info.Fragment)
	}
	if info.Port != "8080" {
		t.Fatalf("port: %q", info.Port)
	}
}

func TestInfo_DefaultPorts(t *testing.T) {
	https, err := Info("https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if https.Port != "443" {
		t.Fatalf("want 443, got %q", https.Port)
	}
	http, err := Info("http://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if http.Port != "80" {
		t.Fatalf("want 80, got %q", http.Port)
	}
}

func TestInfo_InvalidURL(t *testing.T) {
	if _, err := Info("not_a_url"); err == nil {
		t.Fatal("want error for invalid url")
	}
}

func TestIsSecure(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"https://example.com", true},
		{"http://example.com", false},
		{"invalid_url", false},
	}
	for _, c := range cases {
		got, reason := IsSecure(c.in)
		if got != c.want {
			t.Fatalf("IsSecure(%q): want %v, got %v (%s)", c.in, c.want, got, reason)
		}
	}
}
