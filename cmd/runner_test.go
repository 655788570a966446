package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/desertthunder/cloudmatch/internal/formatter"
	"github.com/desertthunder/cloudmatch/internal/services"
	"github.com/desertthunder/cloudmatch/internal/shared"
	tu "github.com/desertthunder/cloudmatch/internal/testing"
)

const (
	testCookie = "MUSIC_U=ok"

	cloudSongsFixture = `[
  {"songId": 1001, "songName": "qingtian.mp3", "fileName": "qingtian.mp3", "fileSize": 8400000, "addTime": 1700000300000,
   "simpleSong": {"id": 1001, "name": "晴天", "ar": [{"name": "周杰伦"}], "al": {"name": "叶惠美"}, "dt": 269000}},
  {"songId": 1002, "songName": "yellow.flac", "fileName": "yellow.flac", "fileSize": 52000000, "addTime": 1700000200000,
   "simpleSong": {"id": 1002, "name": "Yellow", "ar": [{"name": "Coldplay"}], "al": {"name": "Parachutes"}, "dt": 266000}},
  {"songId": 1003, "songName": "daoxiang.mp3", "fileName": "daoxiang.mp3", "fileSize": 4000000, "addTime": 1700000100000,
   "simpleSong": {"id": 1003, "name": "稻香", "ar": [{"name": "周杰伦"}], "al": {"name": "魔杰座"}, "dt": 223000}}
]`
)

// fakeProxy answers the NeteaseCloudMusicApi endpoints the commands use.
type fakeProxy struct {
	mu      sync.Mutex
	matches []string
}

func (p *fakeProxy) Matches() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.matches...)
}

func (p *fakeProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	authed := q.Get("cookie") == testCookie
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/user/account":
		if !authed {
			w.Write([]byte(`{"code":200,"profile":null}`))
			return
		}
		w.Write([]byte(`{"code":200,"profile":{"userId":42,"nickname":"listener","avatarUrl":""}}`))
	case "/user/cloud":
		if !authed {
			w.Write([]byte(`{"code":301,"msg":"需要登录"}`))
			return
		}
		fmt.Fprintf(w, `{"code":200,"count":3,"size":"64424509","maxSize":"64424509440","hasMore":false,"data":%s}`, cloudSongsFixture)
	case "/cloud/match":
		p.mu.Lock()
		p.matches = append(p.matches, q.Get("sid")+"->"+q.Get("asid"))
		p.mu.Unlock()
		if q.Get("asid") == "0" {
			w.Write([]byte(`{"code":400,"message":"歌曲不存在"}`))
			return
		}
		w.Write([]byte(`{"code":200,"data":{}}`))
	case "/logout":
		w.Write([]byte(`{"code":200}`))
	case "/echo":
		if r.Method == http.MethodPost {
			body, _ := io.ReadAll(r.Body)
			fmt.Fprintf(w, `{"code":200,"received":%s}`, body)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("plain text"))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":404,"msg":"not found"}`))
	}
}

func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer, *fakeProxy) {
	t.Helper()
	proxy := &fakeProxy{}
	server := httptest.NewServer(proxy)
	t.Cleanup(server.Close)

	config := shared.DefaultConfig()
	config.API.BaseURL = server.URL
	config.API.RateLimit = 1000

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: defaultConfigPath,
		Output:     output,
		Logger:     shared.NewLogger(io.Discard),
	})
	return runner, output, proxy
}

func run(r *Runner, args ...string) error {
	return r.app().Run(context.Background(), append([]string{"cloudmatch"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			api := services.NewAPIService("http://localhost:3000", httpClient, services.APIOptions{})

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				API:        api,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
			if _, ok := runner.cloud.(*services.NetEaseService); !ok {
				t.Errorf("expected NetEase service by default, got %T", runner.cloud)
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.session == nil || runner.store == nil || runner.matcher == nil || runner.images == nil {
				t.Error("expected engine to be wired")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "hello world" {
			t.Errorf("expected 'hello world', got %q", output.String())
		}

		failing := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := failing.writePlain("test"); err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "login", "songs", "match", "api", "tui"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("health", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)

		if h := runner.health(); h.Authenticated || h.Songs != 0 {
			t.Errorf("expected empty health before login, got %+v", h)
		}

		if err := run(runner, "login", "--cookie", testCookie); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		h := runner.health()
		if !h.Authenticated || h.User != "listener" || h.Songs != 3 || h.Page != 1 || h.TotalPages != 1 {
			t.Errorf("unexpected health %+v", h)
		}
	})
}

func TestCommands(t *testing.T) {
	t.Run("Login", func(t *testing.T) {
		t.Run("With Cookie", func(t *testing.T) {
			runner, output, _ := newTestRunner(t)

			if err := run(runner, "login", "--cookie", testCookie); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			out := output.String()
			for _, want := range []string{"Logged in", "listener (42)", "Songs:    3"} {
				if !strings.Contains(out, want) {
					t.Errorf("expected %q in output:\n%s", want, out)
				}
			}
		})

		t.Run("With Curl Command", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)

			curl := `curl 'https://music.163.com/api' -H 'cookie: ` + testCookie + `'`
			if err := run(runner, "login", "--cookie", curl); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !runner.session.Authenticated() {
				t.Error("expected session to be authenticated")
			}
		})

		t.Run("JSON", func(t *testing.T) {
			runner, output, _ := newTestRunner(t)

			if err := run(runner, "login", "--cookie", testCookie, "--json"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var id struct {
				UserID   int64  `json:"user_id"`
				Nickname string `json:"nickname"`
			}
			if err := json.Unmarshal(output.Bytes(), &id); err != nil {
				t.Fatalf("invalid JSON: %v\n%s", err, output.String())
			}
			if id.UserID != 42 || id.Nickname != "listener" {
				t.Errorf("unexpected identity %+v", id)
			}
		})

		t.Run("Rejected Cookie", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)

			err := run(runner, "login", "--cookie", "MUSIC_U=stale")
			if !errors.Is(err, shared.ErrAuth) {
				t.Errorf("expected ErrAuth, got %v", err)
			}
		})

		t.Run("Cookie Without Session", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)

			err := run(runner, "login", "--cookie", "NMTID=1")
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	})

	t.Run("Songs", func(t *testing.T) {
		decode := func(t *testing.T, data []byte) formatter.SongPage {
			t.Helper()
			var page formatter.SongPage
			if err := json.Unmarshal(data, &page); err != nil {
				t.Fatalf("invalid JSON: %v\n%s", err, data)
			}
			return page
		}

		t.Run("Text", func(t *testing.T) {
			runner, output, _ := newTestRunner(t)

			if err := run(runner, "songs", "--cookie", testCookie); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			out := output.String()
			for _, want := range []string{"晴天", "Coldplay", "4:29", "Page 1/1", "3 songs"} {
				if !strings.Contains(out, want) {
					t.Errorf("expected %q in output:\n%s", want, out)
				}
			}
		})

		t.Run("JSON Newest First", func(t *testing.T) {
			runner, output, _ := newTestRunner(t)

			if err := run(runner, "songs", "--cookie", testCookie, "--json"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			page := decode(t, output.Bytes())
			if page.Total != 3 || len(page.Songs) != 3 {
				t.Fatalf("unexpected page %+v", page)
			}
			if page.Songs[0].ID != "1001" || page.Songs[2].ID != "1003" {
				t.Errorf("expected newest upload first, got %s..%s", page.Songs[0].ID, page.Songs[2].ID)
			}
		})

		t.Run("Sort", func(t *testing.T) {
			runner, output, _ := newTestRunner(t)

			if err := run(runner, "songs", "--cookie", testCookie, "--json", "--sort", "size:desc"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			page := decode(t, output.Bytes())
			if page.Songs[0].ID != "1002" || page.Songs[2].ID != "1003" {
				t.Errorf("expected largest file first, got %+v", page.Songs)
			}
		})

		t.Run("Invalid Sort", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)

			err := run(runner, "songs", "--cookie", testCookie, "--sort", "mood")
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("Search", func(t *testing.T) {
			runner, output, _ := newTestRunner(t)

			if err := run(runner, "songs", "--cookie", testCookie, "--json", "--search", "周杰伦"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			page := decode(t, output.Bytes())
			if len(page.Songs) != 2 || page.Total != 3 {
				t.Errorf("expected 2 of 3 songs, got %d of %d", len(page.Songs), page.Total)
			}
		})

		t.Run("Export CSV", func(t *testing.T) {
			runner, output, _ := newTestRunner(t)
			path := filepath.Join(t.TempDir(), "out", "songs.csv")

			if err := run(runner, "songs", "--cookie", testCookie, "--csv", "--output", path); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			tu.AssertFileExists(t, path)
			content := tu.MustReadFile(t, path)
			if !strings.HasPrefix(content, "ID,Name,Artist,Album,Duration,Size,Added,Status\n") {
				t.Errorf("unexpected CSV header:\n%s", content)
			}
			if strings.Count(content, "\n") != 4 {
				t.Errorf("expected header and 3 rows:\n%s", content)
			}
			if !strings.Contains(output.String(), "✓ Wrote 3 songs to") {
				t.Errorf("expected confirmation, got %q", output.String())
			}
		})

		t.Run("Conflicting Formats", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)

			err := run(runner, "songs", "--json", "--csv")
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
			if runner.session.Authenticated() {
				t.Error("expected format errors to fail before login")
			}
		})
	})

	t.Run("Match", func(t *testing.T) {
		t.Run("Single", func(t *testing.T) {
			runner, output, proxy := newTestRunner(t)

			err := run(runner, "match", "--cookie", testCookie, "--song", "1001", "--target", "186016")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if got := proxy.Matches(); len(got) != 1 || got[0] != "1001->186016" {
				t.Errorf("unexpected match requests %v", got)
			}
			out := output.String()
			if !strings.Contains(out, `✓ matched "晴天" to 186016`) {
				t.Errorf("expected success line, got:\n%s", out)
			}
			if !strings.Contains(out, "(1001 -> 186016)") {
				t.Errorf("expected log entry, got:\n%s", out)
			}
			if _, _, ok := runner.store.Lookup("186016"); !ok {
				t.Error("expected song id to be rewritten in place")
			}
		})

		t.Run("Rejected", func(t *testing.T) {
			runner, output, _ := newTestRunner(t)

			err := run(runner, "match", "--cookie", testCookie, "--song", "1001", "--target", "0")
			if !errors.Is(err, shared.ErrMatchRejected) {
				t.Fatalf("expected ErrMatchRejected, got %v", err)
			}

			out := output.String()
			if !strings.Contains(out, "✗ match failed: 歌曲不存在") {
				t.Errorf("expected rejection line, got:\n%s", out)
			}
			if !strings.Contains(out, "(1001 -> 0) 歌曲不存在") {
				t.Errorf("expected failed log entry, got:\n%s", out)
			}
		})

		t.Run("Unknown Song", func(t *testing.T) {
			runner, _, proxy := newTestRunner(t)

			err := run(runner, "match", "--cookie", testCookie, "--song", "9999", "--target", "1")
			if !errors.Is(err, shared.ErrSongNotFound) {
				t.Errorf("expected ErrSongNotFound, got %v", err)
			}
			if len(proxy.Matches()) != 0 {
				t.Error("expected no match request")
			}
		})

		t.Run("Missing Arguments", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)

			err := run(runner, "match", "--song", "1001")
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("Batch", func(t *testing.T) {
			runner, output, proxy := newTestRunner(t)
			path := filepath.Join(t.TempDir(), "jobs.csv")
			jobs := "song_id,target_id\n1001,186016\n# skipped\n1002,0\n"
			if err := os.WriteFile(path, []byte(jobs), 0644); err != nil {
				t.Fatalf("failed to write jobs: %v", err)
			}

			err := run(runner, "match", "--cookie", testCookie, "--batch", path, "--rate", "100", "--format", "csv")
			if err == nil || !strings.Contains(err.Error(), "1 of 2 matches failed") {
				t.Fatalf("expected partial failure, got %v", err)
			}

			if len(proxy.Matches()) != 2 {
				t.Errorf("expected 2 match requests, got %v", proxy.Matches())
			}
			out := output.String()
			for _, want := range []string{"Bulk Match Complete!", "Succeeded: 1/2", "1002 -> 0", "ID,Time,Status,Song"} {
				if !strings.Contains(out, want) {
					t.Errorf("expected %q in output:\n%s", want, out)
				}
			}
			if runner.history.Len() != 2 {
				t.Errorf("expected 2 log entries, got %d", runner.history.Len())
			}
		})

		t.Run("Batch Bad File", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)
			path := filepath.Join(t.TempDir(), "jobs.csv")
			if err := os.WriteFile(path, []byte("1001\n"), 0644); err != nil {
				t.Fatalf("failed to write jobs: %v", err)
			}

			err := run(runner, "match", "--cookie", testCookie, "--batch", path)
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	})

	t.Run("API", func(t *testing.T) {
		t.Run("Get JSON", func(t *testing.T) {
			runner, output, _ := newTestRunner(t)

			if err := run(runner, "api", "get", "--cookie", testCookie, "/user/account"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), `"nickname": "listener"`) {
				t.Errorf("expected pretty JSON, got %s", output.String())
			}
			if runner.session.Authenticated() {
				t.Error("raw requests must not log in")
			}
		})

		t.Run("Get Plain", func(t *testing.T) {
			runner, output, _ := newTestRunner(t)

			if err := run(runner, "api", "get", "/echo"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "plain text\n" {
				t.Errorf("expected raw body, got %q", output.String())
			}
		})

		t.Run("Get Error Status", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)

			err := run(runner, "api", "get", "/missing")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Post", func(t *testing.T) {
			runner, output, _ := newTestRunner(t)

			if err := run(runner, "api", "post", "--data", `{"a":1}`, "/echo"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), `"a": 1`) {
				t.Errorf("expected echoed body, got %s", output.String())
			}
		})

		t.Run("Post Invalid JSON", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)

			err := run(runner, "api", "post", "--data", "{nope", "/echo")
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	})

	t.Run("Setup Config", func(t *testing.T) {
		runner, output, _ := newTestRunner(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := run(runner, "setup", "config", "--output", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, path)
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("expected written config to load, got %v", err)
		}
		if !strings.Contains(output.String(), "Next steps:") {
			t.Errorf("expected next steps, got %s", output.String())
		}
	})

	t.Run("Config Flag", func(t *testing.T) {
		t.Run("Loads File", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)
			baseURL := runner.config.API.BaseURL
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := shared.CreateConfigFile(path); err != nil {
				t.Fatalf("failed to create config: %v", err)
			}
			data := strings.Replace(tu.MustReadFile(t, path), "http://localhost:3000", baseURL, 1)
			data = strings.Replace(data, "rate_limit = 5.0", "rate_limit = 1000.0", 1)
			if err := os.WriteFile(path, []byte(data), 0644); err != nil {
				t.Fatalf("failed to rewrite config: %v", err)
			}

			if err := run(runner, "--config", path, "login", "--cookie", testCookie); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.configPath != path {
				t.Errorf("expected config path %s, got %s", path, runner.configPath)
			}
			if runner.config.API.RateLimit != 1000 {
				t.Errorf("expected config to be reloaded, got %+v", runner.config.API)
			}
		})

		t.Run("Missing File", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)

			err := run(runner, "--config", filepath.Join(t.TempDir(), "nope.toml"), "songs")
			if !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})
	})

	t.Run("Diagnostics Server", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)
		runner.config.Metrics.Enabled = true
		runner.config.Metrics.Addr = "127.0.0.1:0"

		if err := run(runner, "setup", "config", "--output", filepath.Join(t.TempDir(), "c.toml")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if runner.diagnostics != nil {
			t.Error("expected diagnostics server to be stopped after the command")
		}
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{shared.ErrNotImplemented, 0},
		{fmt.Errorf("wrapped: %w", shared.ErrMissingArgument), 2},
		{shared.ErrInvalidArgument, 2},
		{shared.ErrInvalidConfig, 2},
		{shared.ErrInvalidInput, 2},
		{shared.ErrAuth, 1},
		{errors.New("boom"), 1},
	}

	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
