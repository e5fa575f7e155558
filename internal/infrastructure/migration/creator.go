package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const versionLayout = "20060102150405"

const upTemplate = `-- Migration: {{.Name}}
-- Description: {{.Description}}

`

const downTemplate = `-- Migration: {{.Name}} (Rollback)

`

// MigrationFile is an up/down pair sharing one version
type MigrationFile struct {
	Version     uint64
	Name        string
	Description string
	UpPath      string
	DownPath    string
}

// CreateMigration writes an empty up/down pair versioned by now
func CreateMigration(dir, name, description string, now time.Time) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}

	stamp := now.UTC().Format(versionLayout)
	version, _ := strconv.ParseUint(stamp, 10, 64)
	base := filepath.Join(dir, stamp+"_"+slug)
	mf := &MigrationFile{
		Version:     version,
		Name:        slug,
		Description: description,
		UpPath:      base + ".up.sql",
		DownPath:    base + ".down.sql",
	}

	if err := writeTemplate(mf.UpPath, upTemplate, mf); err != nil {
		return nil, err
	}
	if err := writeTemplate(mf.DownPath, downTemplate, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func writeTemplate(path, text string, mf *MigrationFile) error {
	tmpl := template.Must(template.New(filepath.Base(path)).Parse(text))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := tmpl.Execute(f, mf); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return nil
}

// sanitizeName lower-cases name and collapses separators into single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// ListMigrations returns the up migrations in dir ordered by version
func ListMigrations(dir string) ([]MigrationFile, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var files []MigrationFile
	for _, e := range entries {
		base, ok := strings.CutSuffix(e.Name(), ".up.sql")
		if e.IsDir() || !ok {
			continue
		}
		stamp, name, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		version, err := strconv.ParseUint(stamp, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, MigrationFile{
			Version:  version,
			Name:     name,
			UpPath:   filepath.Join(dir, e.Name()),
			DownPath: filepath.Join(dir, base+".down.sql"),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}
