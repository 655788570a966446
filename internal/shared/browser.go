package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

const catalogSearchURL = "https://music.163.com/#/search/m/"

// CatalogSearchURL returns the web player search page for query, used to look up a catalog id by hand.
func CatalogSearchURL(query string) string {
	return catalogSearchURL + "?s=" + url.QueryEscape(query) + "&type=1"
}

// CatalogSongURL returns the web player page for a catalog song id.
func CatalogSongURL(id string) string {
	return "https://music.163.com/#/song?id=" + url.QueryEscape(id)
}

// OpenBrowser opens the default system browser to the specified URL.
//
// Supports macOS, Linux, and Windows platforms.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	rt := getRuntime()
	switch rt {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
