// package formatter provides functions to export generated playlists to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ecwilsonaz/plexsage/internal/models"
)

// Format identifies an export encoding accepted by [Export].
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat maps a user-supplied format name to a [Format].
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (want csv, markdown or text)", name)
	}
}

// Export renders the playlist in the requested format.
func Export(playlist *models.GeneratedPlaylist, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(playlist)
	case FormatMarkdown:
		return ExportToMarkdown(playlist)
	case FormatText:
		return ExportToText(playlist)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// ExportToCSV converts a playlist to CSV with columns: Rating Key, Title, Artist, Album, Year, Duration, Reason
func ExportToCSV(playlist *models.GeneratedPlaylist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rating Key", "Title", "Artist", "Album", "Year", "Duration", "Reason"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range playlist.Tracks {
		year := ""
		if track.Year != nil {
			year = strconv.Itoa(*track.Year)
		}
		record := []string{
			track.RatingKey,
			track.Title,
			track.Artist,
			track.Album,
			year,
			formatDuration(track.DurationMS),
			playlist.TrackReasons[track.RatingKey],
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

// ExportToMarkdown converts a playlist to Markdown with the narrative as a blockquote
func ExportToMarkdown(playlist *models.GeneratedPlaylist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", playlist.Title))

	if playlist.Narrative != "" {
		buf.WriteString(fmt.Sprintf("> %s\n\n", playlist.Narrative))
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(playlist.Tracks)))
	if playlist.Unresolved > 0 {
		buf.WriteString(fmt.Sprintf("**Unresolved suggestions**: %d\n", playlist.Unresolved))
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, track := range playlist.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Title, albumPart, formatDuration(track.DurationMS)))
		if reason := playlist.TrackReasons[track.RatingKey]; reason != "" {
			buf.WriteString(fmt.Sprintf("   - %s\n", reason))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text format
func ExportToText(playlist *models.GeneratedPlaylist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", playlist.Title))
	if playlist.Narrative != "" {
		buf.WriteString(fmt.Sprintf("Narrative: %s\n", playlist.Narrative))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(playlist.Tracks)))

	for i, track := range playlist.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Title))
	}

	return buf.Bytes(), nil
}

// WriteExport renders the playlist and writes it to path.
func WriteExport(playlist *models.GeneratedPlaylist, format Format, path string) error {
	data, err := Export(playlist, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// formatDuration renders milliseconds as m:ss.
func formatDuration(ms int) string {
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
