package downloader

import (
	"strings"
	"testing"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"cat.png", "cat.png"},
		{"img/cat.png", "cat.png"},
		{"https://cdn.other.com/a b.jpg", "a b.jpg"},
		{"/static/x.png?v=2", "x.png?v=2"},
		{"", UnknownImage},
		{"gallery/", UnknownImage},
		{"https://example.com/", UnknownImage},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			if got := FileName(tt.ref); got != tt.want {
				t.Errorf("FileName(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"cat.png", "cat.png"},
		{"a b.jpg", "a_b.jpg"},
		{"x.png?v=2", "x.png_v_2"},
		{"my-photo(1).JPG", "my_photo_1_.JPG"},
		{"snake_case.gif", "snake_case.gif"},
		{"café.png", "caf_.png"},
		{"猫.png", "_.png"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.name); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"a b.jpg",
		"weird%20name&size=large.webp",
		"ünïcödé ☃.png",
		"tab\there.png",
		"already_safe.png",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
		if strings.Trim(once, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789._") != "" {
			t.Errorf("Sanitize(%q) = %q contains characters outside the allowed set", in, once)
		}
	}
}

func TestLocalName(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"https://cdn.other.com/a b.jpg", "a_b.jpg"},
		{"..", UnknownImage},
		{"img/.", UnknownImage},
		{"", UnknownImage},
		{"...", "..."},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			if got := LocalName(tt.ref); got != tt.want {
				t.Errorf("LocalName(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}
