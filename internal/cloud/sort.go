package cloud

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/shared"
)

// SortField names a sortable column of the song table.
type SortField string

const (
	SortName     SortField = "name"
	SortArtist   SortField = "artist"
	SortAlbum    SortField = "album"
	SortAdded    SortField = "added"
	SortSize     SortField = "size"
	SortDuration SortField = "duration"
	SortStatus   SortField = "status"
)

// SortFields lists every field in the order the TUI cycles through them.
var SortFields = []SortField{SortAdded, SortName, SortArtist, SortAlbum, SortSize, SortDuration, SortStatus}

// SortKey is one column of a multi-key sort.
type SortKey struct {
	Field SortField
	Desc  bool
}

func (k SortKey) String() string {
	if k.Desc {
		return string(k.Field) + ":desc"
	}
	return string(k.Field)
}

// DefaultSort orders songs newest upload first.
var DefaultSort = []SortKey{{Field: SortAdded, Desc: true}}

// ParseSortKeys parses a comma separated list such as "added:desc,name".
//
// Each key is a field optionally followed by ":asc" or ":desc".
func ParseSortKeys(spec string) ([]SortKey, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var keys []SortKey
	for part := range strings.SplitSeq(spec, ",") {
		field, dir, _ := strings.Cut(strings.TrimSpace(part), ":")
		key := SortKey{Field: SortField(strings.ToLower(strings.TrimSpace(field)))}
		if !slices.Contains(SortFields, key.Field) {
			return nil, fmt.Errorf("%w: unknown sort field %q", shared.ErrInvalidArgument, field)
		}

		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			key.Desc = true
		default:
			return nil, fmt.Errorf("%w: unknown sort direction %q", shared.ErrInvalidArgument, dir)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// FormatSortKeys is the inverse of [ParseSortKeys].
func FormatSortKeys(keys []SortKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ",")
}

// sortSongs stably orders songs by keys, left to right.
//
// Text columns use a Chinese collation so titles group by pinyin rather than
// by code point.
func sortSongs(songs []models.CloudSong, keys []SortKey) {
	if len(keys) == 0 {
		return
	}
	col := collate.New(language.Chinese, collate.IgnoreCase)

	slices.SortStableFunc(songs, func(a, b models.CloudSong) int {
		for _, k := range keys {
			c := compareField(col, k.Field, a, b)
			if k.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareField(col *collate.Collator, f SortField, a, b models.CloudSong) int {
	switch f {
	case SortName:
		return col.CompareString(a.Name, b.Name)
	case SortArtist:
		return col.CompareString(a.Artist, b.Artist)
	case SortAlbum:
		return col.CompareString(a.Album, b.Album)
	case SortAdded:
		return a.AddedAt.Compare(b.AddedAt)
	case SortSize:
		return cmp.Compare(a.FileSize, b.FileSize)
	case SortDuration:
		return cmp.Compare(a.Duration, b.Duration)
	case SortStatus:
		return cmp.Compare(a.Status.Kind, b.Status.Kind)
	default:
		return 0
	}
}
