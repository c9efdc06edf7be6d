package util

import "testing"

func TestAbsoluteURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://f.wishabi.net/milk.jpg", "https://f.wishabi.net/milk.jpg"},
		{" http://img.example.com/a.png ", "http://img.example.com/a.png"},
		{"//f.wishabi.net/milk.jpg", "https://f.wishabi.net/milk.jpg"},
		{"/images/milk.jpg", ""},
		{"milk.jpg", ""},
		{"not a url", ""},
		{"ftp://files.example.com/a.png", ""},
		{"https://", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := AbsoluteURL(tt.in); got != tt.want {
				t.Errorf("AbsoluteURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
