package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strconv"
	"strings"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// Validate checks every .sql file in migrations: the name must be
// <YYYYMMDDHHMMSS>_<slug>.sql with a unique version, both goose sections must
// be present, and StatementBegin/StatementEnd markers must pair up.
func Validate(migrations fs.FS) error {
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	var last int64
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		m := migrationName.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", name)
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		if version == last {
			return fmt.Errorf("%s: duplicate version %d", name, version)
		}
		last = version

		body, err := fs.ReadFile(migrations, name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := checkSections(string(body)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func checkSections(sql string) error {
	up := strings.Index(sql, "-- +goose Up")
	down := strings.Index(sql, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf(`missing "-- +goose Up"`)
	case down < 0:
		return fmt.Errorf(`missing "-- +goose Down"`)
	case down < up:
		return fmt.Errorf("down section precedes up section")
	}

	open := 0
	for _, line := range strings.Split(sql, "\n") {
		switch strings.TrimSpace(line) {
		case "-- +goose StatementBegin":
			open++
			if open > 1 {
				return fmt.Errorf("nested StatementBegin")
			}
		case "-- +goose StatementEnd":
			open--
			if open < 0 {
				return fmt.Errorf("StatementEnd without StatementBegin")
			}
		}
	}
	if open != 0 {
		return fmt.Errorf("unterminated StatementBegin")
	}
	return nil
}
