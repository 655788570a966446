package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/shared"
)

// thumbnailParam asks the image CDN for a small cover.
const thumbnailParam = "param=200y200"

// songColumns sizes the table columns to width. Name, artist and album share
// what the fixed columns leave.
func songColumns(width int) []table.Column {
	fixed := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Duration", Width: 8},
		{Title: "Size", Width: 9},
		{Title: "Added", Width: 16},
		{Title: "Status", Width: 14},
	}
	used := 0
	for _, c := range fixed {
		used += c.Width + 2
	}
	flex := max((width-used-6)/3, 10)

	return []table.Column{
		fixed[0],
		{Title: "Name", Width: flex},
		{Title: "Artist", Width: flex},
		{Title: "Album", Width: flex},
		fixed[1], fixed[2], fixed[3], fixed[4],
	}
}

// songRows numbers rows from offset+1 so the index matches the drive position.
func songRows(songs []models.CloudSong, offset int) []table.Row {
	rows := make([]table.Row, len(songs))
	for i, s := range songs {
		rows[i] = table.Row{
			strconv.Itoa(offset + i + 1),
			s.Name,
			s.Artist,
			s.Album,
			shared.FormatDuration(s.Duration),
			shared.FormatFileSize(s.FileSize),
			shared.FormatDate(s.AddedAt),
			s.Status.String(),
		}
	}
	return rows
}

// thumbnail rewrites a cover url to its small variant.
func thumbnail(url string) string {
	if url == "" || strings.Contains(url, "param=") {
		return url
	}
	if strings.Contains(url, "?") {
		return url + "&" + thumbnailParam
	}
	return url + "?" + thumbnailParam
}

// coverURLs collects distinct thumbnail urls in page order.
func coverURLs(songs []models.CloudSong) []string {
	seen := make(map[string]struct{}, len(songs))
	urls := make([]string, 0, len(songs))
	for _, s := range songs {
		u := thumbnail(s.CoverURL)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}
