package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCookieFromCurl(t *testing.T) {
	tt := []struct {
		name    string
		curlCmd string
		want    string
		wantErr bool
	}{
		{
			name:    "cookie header with single quotes",
			curlCmd: `curl 'https://music.163.com/api' -H 'Cookie: MUSIC_U=abc; __csrf=xyz'`,
			want:    "MUSIC_U=abc; __csrf=xyz",
		},
		{
			name:    "lowercase header with double quotes",
			curlCmd: `curl "https://music.163.com/api" -H "cookie: MUSIC_U=abc"`,
			want:    "MUSIC_U=abc",
		},
		{
			name:    "-b flag",
			curlCmd: `curl -b 'MUSIC_U=abc' https://music.163.com/api`,
			want:    "MUSIC_U=abc",
		},
		{
			name:    "-b takes precedence over header",
			curlCmd: `curl -H 'Cookie: MUSIC_U=old' -b 'MUSIC_U=new' https://music.163.com/api`,
			want:    "MUSIC_U=new",
		},
		{
			name: "multiline copy from the browser",
			curlCmd: `curl 'https://music.163.com/weapi/cloud/get' \
  -H 'accept: */*' \
  -H 'content-type: application/x-www-form-urlencoded' \
  -H 'cookie: NMTID=00O; MUSIC_U=token_here' \
  --data-raw 'params=x'`,
			want: "NMTID=00O; MUSIC_U=token_here",
		},
		{
			name:    "no cookie",
			curlCmd: `curl -H 'accept: */*' https://music.163.com/api`,
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CookieFromCurl(tc.curlCmd)
			if (err != nil) != tc.wantErr {
				t.Fatalf("CookieFromCurl() error = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("CookieFromCurl() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveCookie(t *testing.T) {
	t.Run("Raw Cookie", func(t *testing.T) {
		got, err := ResolveCookie("  MUSIC_U=abc; os=pc ")
		if err != nil || got != "MUSIC_U=abc; os=pc" {
			t.Errorf("ResolveCookie() = %q, %v", got, err)
		}
	})

	t.Run("Curl Command", func(t *testing.T) {
		got, err := ResolveCookie(`curl https://music.163.com -H 'Cookie: MUSIC_U=abc'`)
		if err != nil || got != "MUSIC_U=abc" {
			t.Errorf("ResolveCookie() = %q, %v", got, err)
		}
	})

	t.Run("From File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "curl.sh")
		if err := os.WriteFile(path, []byte("curl -b 'MUSIC_U=file' https://music.163.com\n"), 0644); err != nil {
			t.Fatalf("failed to write cookie file: %v", err)
		}

		got, err := ResolveCookie("@" + path)
		if err != nil || got != "MUSIC_U=file" {
			t.Errorf("ResolveCookie() = %q, %v", got, err)
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		if _, err := ResolveCookie("@/nonexistent/cookie.txt"); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("Without Session Cookie", func(t *testing.T) {
		for _, in := range []string{"", "NMTID=1", "MUSIC_U=", "XMUSIC_U=abc"} {
			if _, err := ResolveCookie(in); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ResolveCookie(%q): expected ErrInvalidInput, got %v", in, err)
			}
		}
	})
}
