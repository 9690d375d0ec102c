package configurator

import (
	"path/filepath"
	"testing"
)

func TestExpandAddr(t *testing.T) {
	cwd, err := filepath.Abs(".")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		addr    string
		want    string
		wantErr bool
	}{
		{"8080", "0.0.0.0:8080", false},
		{":8080", "0.0.0.0:8080", false},
		{"127.0.0.1:80", "127.0.0.1:80", false},
		{"localhost:3000", "localhost:3000", false},
		{"[::1]:80", "[::1]:80", false},
		{"unix:/tmp/app.sock", "/tmp/app.sock", false},
		{"/tmp/app.sock", "/tmp/app.sock", false},
		{"./app.sock", filepath.Join(cwd, "app.sock"), false},
		{"", "", true},
		{"localhost", "", true},
		{"host:http", "", true},
		{"host:70000", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			got, err := ExpandAddr(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExpandAddr(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExpandAddr(%q) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}
