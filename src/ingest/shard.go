package ingest

import (
	"net/url"
	"path"
	"path/filepath"
	"time"
)

// ShardSegments returns the year and zero-padded month for now
func ShardSegments(now time.Time) (year, month string) {
	return now.Format("2006"), now.Format("01")
}

// ComposeDirectory returns projectRoot/imageRoot/YYYY/MM. It is a pure
// function; callers read the clock once and pass the same now everywhere.
func ComposeDirectory(projectRoot, imageRoot string, now time.Time) string {
	year, month := ShardSegments(now)
	return filepath.Join(projectRoot, imageRoot, year, month)
}

// PublicPath returns the URL path of filename under publicRoot/YYYY/MM.
// It never contains the project's filesystem root.
func PublicPath(publicRoot string, now time.Time, filename string) string {
	year, month := ShardSegments(now)
	p := path.Join("/", filepath.ToSlash(publicRoot), year, month, filename)
	return (&url.URL{Path: p}).EscapedPath()
}
