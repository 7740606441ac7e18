// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package persistence saves and loads calculation history as CSV.
//
// # File Format
//
//	operation,operand_a,operand_b,result,timestamp
//	add,1,2,3,2025-03-14T15:09:26.123456789Z
//
// Numbers use the shortest representation that parses back to the same
// float64 and timestamps are RFC 3339 with nanoseconds, so Save followed by
// Load reproduces the records exactly.
//
// # Encoding
//
// The file is written and read in a configurable text encoding identified
// by its WHATWG label ("utf-8", "windows-1252", "utf-16le", ...).
//
// # Atomicity
//
// Save writes to a temporary file in the target directory and renames it
// over the destination, so a failed save never leaves a truncated file.
package persistence

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calcerr"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/history"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/operations"
)

// Sentinel errors for persistence.
var (
	ErrFileNotFound    = errors.New("history file not found")
	ErrMalformedHeader = errors.New("malformed header")
	ErrMalformedRow    = errors.New("malformed row")
	ErrUnknownEncoding = errors.New("unknown text encoding")
	ErrWriteFailed     = errors.New("failed to write history file")
	ErrReadFailed      = errors.New("failed to read history file")
	ErrCreateDirFailed = errors.New("failed to create history directory")
	ErrEmptyPath       = errors.New("history file path is empty")
)

// Header is the fixed column order of the history file.
var Header = []string{"operation", "operand_a", "operand_b", "result", "timestamp"}

const (
	timestampLayout = time.RFC3339Nano
	dirPerm         = 0o750
	filePerm        = 0o640
)

// CSVStore reads and writes history files on an afero filesystem.
type CSVStore struct {
	fs           afero.Fs
	enc          encoding.Encoding
	encodingName string
}

// NewCSVStore creates a store on fs using the named text encoding. An empty
// name means UTF-8.
func NewCSVStore(fs afero.Fs, encodingName string) (*CSVStore, error) {
	if encodingName == "" {
		encodingName = "utf-8"
	}
	enc, err := LookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	return &CSVStore{fs: fs, enc: enc, encodingName: encodingName}, nil
}

// LookupEncoding resolves a WHATWG encoding label.
func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, calcerr.Newf(calcerr.KindConfig, "encoding", "%w: %q", ErrUnknownEncoding, name)
	}
	return enc, nil
}

// Encoding returns the configured encoding label.
func (s *CSVStore) Encoding() string {
	return s.encodingName
}

// Save writes records to path, replacing any existing file.
func (s *CSVStore) Save(path string, records []history.Calculation) (err error) {
	if path == "" {
		return calcerr.New(calcerr.KindPersistence, "save", ErrEmptyPath)
	}

	dir := filepath.Dir(path)
	if mkErr := s.fs.MkdirAll(dir, dirPerm); mkErr != nil {
		return calcerr.Newf(calcerr.KindPersistence, "save", "%w: %s: %v", ErrCreateDirFailed, dir, mkErr)
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return calcerr.Newf(calcerr.KindPersistence, "save", "%w: %v", ErrWriteFailed, err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = s.fs.Remove(tmpName)
		}
	}()

	writeErr := s.writeRecords(tmp, records)
	closeErr := tmp.Close()
	if writeErr != nil {
		return calcerr.Newf(calcerr.KindPersistence, "save", "%w: %v", ErrWriteFailed, writeErr)
	}
	if closeErr != nil {
		return calcerr.Newf(calcerr.KindPersistence, "save", "%w: %v", ErrWriteFailed, closeErr)
	}

	if chErr := s.fs.Chmod(tmpName, filePerm); chErr != nil {
		return calcerr.Newf(calcerr.KindPersistence, "save", "%w: %v", ErrWriteFailed, chErr)
	}
	if mvErr := s.fs.Rename(tmpName, path); mvErr != nil {
		return calcerr.Newf(calcerr.KindPersistence, "save", "%w: %v", ErrWriteFailed, mvErr)
	}
	return nil
}

func (s *CSVStore) writeRecords(w io.Writer, records []history.Calculation) error {
	encoded := transform.NewWriter(w, s.enc.NewEncoder())
	cw := csv.NewWriter(encoded)

	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, c := range records {
		if err := cw.Write(formatRow(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return encoded.Close()
}

// Load reads every record from path. Any malformed row fails the whole
// load; nothing is returned partially.
func (s *CSVStore) Load(path string) ([]history.Calculation, error) {
	if path == "" {
		return nil, calcerr.New(calcerr.KindPersistence, "load", ErrEmptyPath)
	}

	f, err := s.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, calcerr.Newf(calcerr.KindPersistence, "load", "%w: %s", ErrFileNotFound, path)
		}
		return nil, calcerr.Newf(calcerr.KindPersistence, "load", "%w: %v", ErrReadFailed, err)
	}
	defer f.Close()

	cr := csv.NewReader(transform.NewReader(f, s.enc.NewDecoder()))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, calcerr.Newf(calcerr.KindPersistence, "load", "%w: file is empty", ErrMalformedHeader)
		}
		return nil, calcerr.Newf(calcerr.KindPersistence, "load", "%w: %v", ErrMalformedHeader, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, calcerr.New(calcerr.KindPersistence, "load", err)
	}

	records := make([]history.Calculation, 0)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, calcerr.Newf(calcerr.KindPersistence, "load", "%w: %v", ErrMalformedRow, err)
		}
		line, _ := cr.FieldPos(0)
		c, err := parseRow(row)
		if err != nil {
			return nil, calcerr.Newf(calcerr.KindPersistence, "load", "line %d: %w", line, err)
		}
		records = append(records, c)
	}
	return records, nil
}

// =============================================================================
// Row codec
// =============================================================================

func formatRow(c history.Calculation) []string {
	return []string{
		string(c.Operation),
		strconv.FormatFloat(c.OperandA, 'g', -1, 64),
		strconv.FormatFloat(c.OperandB, 'g', -1, 64),
		strconv.FormatFloat(c.Result, 'g', -1, 64),
		c.Timestamp.Format(timestampLayout),
	}
}

func checkHeader(row []string) error {
	if len(row) != len(Header) {
		return fmt.Errorf("%w: want %d columns, got %d", ErrMalformedHeader, len(Header), len(row))
	}
	for i, col := range row {
		// A UTF-8 BOM may precede the first column when the file came from
		// a spreadsheet export.
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\uFEFF")))
		if name != Header[i] {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrMalformedHeader, i+1, col, Header[i])
		}
	}
	return nil
}

func parseRow(row []string) (history.Calculation, error) {
	if len(row) != len(Header) {
		return history.Calculation{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedRow, len(Header), len(row))
	}

	op := operations.Operation(strings.ToLower(strings.TrimSpace(row[0])))
	if !op.IsValid() {
		return history.Calculation{}, fmt.Errorf("%w: unknown operation %q", ErrMalformedRow, row[0])
	}

	nums := make([]float64, 3)
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return history.Calculation{}, fmt.Errorf("%w: %s %q is not a number", ErrMalformedRow, Header[i+1], row[i+1])
		}
		nums[i] = v
	}

	ts, err := time.Parse(timestampLayout, strings.TrimSpace(row[4]))
	if err != nil {
		return history.Calculation{}, fmt.Errorf("%w: timestamp %q: %v", ErrMalformedRow, row[4], err)
	}

	return history.NewCalculation(op, nums[0], nums[1], nums[2], ts), nil
}
