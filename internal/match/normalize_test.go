package match

import "testing"

func TestNameKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane Doe", "jane doe"},
		{"  jane   DOE ", "jane doe"},
		{"“Jane” Doe", "jane doe"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := NameKey(tc.in); got != tc.want {
				t.Fatalf("expected %q got %q", tc.want, got)
			}
		})
	}
}

func TestHostOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.acme.com/about/leadership", "acme.com"},
		{"http://user:pw@investors.acme.com:8443/team?x=1", "investors.acme.com"},
		{"acme.com", "acme.com"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := HostOf(tc.in); got != tc.want {
				t.Fatalf("expected %q got %q", tc.want, got)
			}
		})
	}
}

func TestRegistrableDomain(t *testing.T) {
	if got := RegistrableDomain("https://investors.acme.com/team"); got != "acme.com" {
		t.Fatalf("expected acme.com got %q", got)
	}
	if got := RegistrableDomain("www.acme.co.uk"); got != "acme.co.uk" {
		t.Fatalf("expected acme.co.uk got %q", got)
	}
}

func TestFoldASCII(t *testing.T) {
	if got := FoldASCII("José Núñez"); got != "Jose Nunez" {
		t.Fatalf("expected Jose Nunez got %q", got)
	}
}
