// package formatter renders cloud songs and match log entries as tables, CSV, Markdown and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/shared"
)

// Format selects an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts the names of [Format] plus "md" and "txt".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

var songHeaders = []string{"ID", "Name", "Artist", "Album", "Duration", "Size", "Added", "Status"}

func songRecord(s models.CloudSong) []string {
	return []string{
		s.ID,
		s.Name,
		s.Artist,
		s.Album,
		shared.FormatDuration(s.Duration),
		shared.FormatFileSize(s.FileSize),
		shared.FormatDate(s.AddedAt),
		s.Status.String(),
	}
}

// SongPage is the JSON shape of one page of the drive.
type SongPage struct {
	Page       int                `json:"page"`
	TotalPages int                `json:"total_pages"`
	Total      int                `json:"total"`
	Usage      models.Usage       `json:"usage"`
	Songs      []models.CloudSong `json:"songs"`
}

// NewSongPage builds a [SongPage]; songs may be a filtered subset of the page.
func NewSongPage(page models.Page, usage models.Usage, songs []models.CloudSong) SongPage {
	if songs == nil {
		songs = []models.CloudSong{}
	}
	return SongPage{
		Page:       page.Number,
		TotalPages: page.TotalPages(),
		Total:      page.Total,
		Usage:      usage,
		Songs:      songs,
	}
}

// SongsToCSV writes one row per song with the columns of the song table.
func SongsToCSV(songs []models.CloudSong) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(songHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, s := range songs {
		if err := writer.Write(songRecord(s)); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// SongsToTable renders songs as a bordered terminal table.
func SongsToTable(songs []models.CloudSong) []byte {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(songHeaders...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, s := range songs {
		t.Row(songRecord(s)...)
	}
	return []byte(t.String() + "\n")
}

// SongsToMarkdown renders a page summary followed by a Markdown table.
func SongsToMarkdown(p SongPage) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Cloud Songs (page %d/%d)\n\n", p.Page, p.TotalPages)
	fmt.Fprintf(&buf, "**Songs**: %d\n", p.Total)
	fmt.Fprintf(&buf, "**Storage**: %s / %s\n\n",
		shared.FormatCapacity(p.Usage.UsedBytes), shared.FormatCapacity(p.Usage.CapacityBytes))

	buf.WriteString("| " + strings.Join(songHeaders, " | ") + " |\n")
	buf.WriteString("|" + strings.Repeat(" --- |", len(songHeaders)) + "\n")
	for _, s := range p.Songs {
		cells := songRecord(s)
		for i, c := range cells {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		buf.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return buf.Bytes()
}

// SongsToJSON encodes p.
func SongsToJSON(p SongPage, pretty bool) ([]byte, error) {
	data, err := shared.MarshalJSON(p, pretty)
	if err != nil {
		return nil, fmt.Errorf("failed to encode songs: %w", err)
	}
	return data, nil
}

// RenderSongs encodes p in format.
func RenderSongs(p SongPage, format Format, pretty bool) ([]byte, error) {
	switch format {
	case FormatJSON:
		return SongsToJSON(p, pretty)
	case FormatCSV:
		return SongsToCSV(p.Songs)
	case FormatMarkdown:
		return SongsToMarkdown(p), nil
	default:
		return SongsToTable(p.Songs), nil
	}
}

func logMarker(s models.LogStatus) string {
	switch s {
	case models.LogSuccess:
		return "✓"
	case models.LogFailed:
		return "✗"
	default:
		return "•"
	}
}

// LogEntryLine renders one entry as "15:04:05 ✓ name (A -> T) message".
func LogEntryLine(e models.MatchLogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", shared.FormatTimestamp(e.Timestamp), logMarker(e.Status), e.SongName)
	if e.MatchSongID != "" {
		fmt.Fprintf(&b, " (%s -> %s)", e.CloudSongID, e.MatchSongID)
	}
	if e.Message != "" {
		b.WriteString(" " + e.Message)
	}
	return b.String()
}

// LogToText renders entries one per line, oldest first.
func LogToText(entries []models.MatchLogEntry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString(LogEntryLine(e))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// LogToCSV writes one row per entry.
func LogToCSV(entries []models.MatchLogEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Time", "Status", "Song", "CloudSongID", "MatchSongID", "Message"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.ID,
			e.Timestamp.Format(shared.DateLayout + ":05"),
			string(e.Status),
			e.SongName,
			e.CloudSongID,
			e.MatchSongID,
			e.Message,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderLog encodes entries in format. Markdown falls back to text.
func RenderLog(entries []models.MatchLogEntry, format Format, pretty bool) ([]byte, error) {
	switch format {
	case FormatJSON:
		if entries == nil {
			entries = []models.MatchLogEntry{}
		}
		return shared.MarshalJSON(entries, pretty)
	case FormatCSV:
		return LogToCSV(entries)
	default:
		return LogToText(entries), nil
	}
}

// WriteExport writes data to path, creating parent directories.
func WriteExport(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SongCount formats a song count for status lines.
func SongCount(n int) string {
	if n == 1 {
		return "1 song"
	}
	return strconv.Itoa(n) + " songs"
}
