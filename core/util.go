package core

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/volatiletech/null/v8"
)

// DateLayout is the layout of date-only columns (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// NowFunc is mockable.
var NowFunc = time.Now

var (
	codeMu   sync.Mutex
	lastCode int64
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ContainsFold reports whether substr is within s, case-insensitively.
// An empty substr always matches.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Today returns the current date as YYYY-MM-DD.
func Today() string {
	return NowFunc().Format(DateLayout)
}

// Getwd tries to find the project root: the closest parent directory holding a go.mod or a config dir.
// go-test changes the working directory to the test package being run during tests,
// the current working directory is returned when no root is found.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	currDir := wd
	for {
		for _, marker := range []string{"go.mod", "config"} {
			if _, err := os.Stat(filepath.Join(currDir, marker)); err == nil {
				return currDir
			}
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}

// NullString maps blank strings to NULL.
func NullString(s string) null.String {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

// NullDate maps blank strings to NULL; others must be YYYY-MM-DD.
func NullDate(s string) (null.String, error) {
	ns := NullString(s)
	if !ns.Valid {
		return ns, nil
	}
	if _, err := time.Parse(DateLayout, ns.String); err != nil {
		return null.String{}, err
	}
	return ns, nil
}

// NewCode returns a human readable identifier: prefix + "-" + upper(base36(unix millis)), e.g. STU-LXK3J2A1.
// Codes issued within the same millisecond are bumped so that they stay unique.
func NewCode(prefix string) string {
	codeMu.Lock()
	ms := NowFunc().UnixMilli()
	if ms <= lastCode {
		ms = lastCode + 1
	}
	lastCode = ms
	codeMu.Unlock()
	return prefix + "-" + strings.ToUpper(strconv.FormatInt(ms, 36))
}
