// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package verification answers membership queries against an external,
// operator-maintained list of pre-issued verification codes.
package verification

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// ErrCodeNotFound is returned when a code is not on the list. A missing
// list file yields the same error: no code is valid then, but the engine
// must not crash over an absent resource.
var ErrCodeNotFound = errors.New("verification code not found")

// Code maps a pre-issued code to the one page it authorizes.
type Code struct {
	Code string
	Page string
}

// Lookup answers verification code queries.
type Lookup interface {
	GetVerificationCode(ctx context.Context, code string) (*Code, error)
}

// FileLookup reads codes from a delimited file with code and page columns.
// The file is small and changes rarely, so it is reloaded on every lookup
// instead of being cached.
type FileLookup struct {
	path      string
	delimiter rune
}

// NewFileLookup creates a lookup over the given file. An empty delimiter
// defaults to a comma.
func NewFileLookup(path string, delimiter rune) *FileLookup {
	if delimiter == 0 {
		delimiter = ','
	}
	return &FileLookup{path: path, delimiter: delimiter}
}

// GetVerificationCode returns the matching code/page pair or ErrCodeNotFound.
func (l *FileLookup) GetVerificationCode(ctx context.Context, code string) (*Code, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	codes, err := l.load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("verification code list missing, rejecting all codes", "path", l.path)
			return nil, ErrCodeNotFound
		}
		return nil, err
	}

	for _, entry := range codes {
		if entry.Code == code {
			return &entry, nil
		}
	}
	return nil, ErrCodeNotFound
}

func (l *FileLookup) load() ([]Code, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	reader := csv.NewReader(file)
	reader.Comma = l.delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var codes []Code
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading verification code list %s: %w", l.path, err)
		}
		if len(record) < 2 {
			continue
		}
		// Skip an optional header row.
		if strings.EqualFold(record[0], "code") && strings.EqualFold(record[1], "page") {
			continue
		}
		codes = append(codes, Code{Code: record[0], Page: record[1]})
	}
	return codes, nil
}
