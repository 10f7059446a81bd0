package resolve

import "testing"

func TestLiteral(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{"relative file", "https://example.com", "cat.png", "https://example.com/cat.png"},
		{"base with trailing slash", "https://example.com/", "cat.png", "https://example.com/cat.png"},
		{"base with many trailing slashes", "https://example.com///", "img/cat.png", "https://example.com/img/cat.png"},
		{"absolute https unchanged", "https://example.com", "https://cdn.other.com/a b.jpg", "https://cdn.other.com/a b.jpg"},
		{"absolute http unchanged", "https://example.com", "http://cdn.other.com/x.gif", "http://cdn.other.com/x.gif"},
		{"root relative is appended", "https://example.com/blog", "/static/x.png", "https://example.com/blog//static/x.png"},
		{"parent relative is appended", "https://example.com/blog/", "../x.png", "https://example.com/blog/../x.png"},
		{"protocol relative is appended", "https://example.com", "//cdn.com/x.png", "https://example.com///cdn.com/x.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Literal(tt.base, tt.ref); got != tt.want {
				t.Errorf("Literal(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
			}
		})
	}
}

func TestStandard(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{"relative file", "https://example.com", "cat.png", "https://example.com/cat.png"},
		{"relative to page dir", "https://example.com/blog/post.html", "cat.png", "https://example.com/blog/cat.png"},
		{"root relative", "https://example.com/blog/post.html", "/static/x.png", "https://example.com/static/x.png"},
		{"parent relative", "https://example.com/blog/2024/", "../x.png", "https://example.com/blog/x.png"},
		{"protocol relative", "https://example.com", "//cdn.com/x.png", "https://cdn.com/x.png"},
		{"absolute unchanged", "https://example.com", "https://cdn.other.com/a b.jpg", "https://cdn.other.com/a b.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Standard(tt.base, tt.ref)
			if err != nil {
				t.Fatalf("Standard() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Standard(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
			}
		})
	}
}

func TestStandard_RelativeBase(t *testing.T) {
	if _, err := Standard("example.com/page", "cat.png"); err == nil {
		t.Error("Standard() should fail for a base without scheme")
	}
}

func TestResolver_Modes(t *testing.T) {
	literal, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if literal.Mode() != ModeLiteral {
		t.Errorf("default Mode() = %q, want %q", literal.Mode(), ModeLiteral)
	}

	got, err := literal.Resolve("https://example.com/a/", "/x.png")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "https://example.com/a//x.png" {
		t.Errorf("literal Resolve() = %q", got)
	}

	standard, err := New(ModeStandard)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got, err = standard.Resolve("https://example.com/a/", "/x.png")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "https://example.com/x.png" {
		t.Errorf("standard Resolve() = %q", got)
	}

	if _, err := New("fancy"); err == nil {
		t.Error("New() should reject unknown modes")
	}
}
