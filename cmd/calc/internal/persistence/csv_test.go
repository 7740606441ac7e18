// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package persistence

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/calcrepl/cmd/calc/internal/calcerr"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/history"
	"github.com/AleutianAI/calcrepl/cmd/calc/internal/operations"
)

const testPath = "/data/history/calc_history.csv"

func newStore(t *testing.T, fs afero.Fs, enc string) *CSVStore {
	t.Helper()
	s, err := NewCSVStore(fs, enc)
	require.NoError(t, err)
	return s
}

func sampleRecords() []history.Calculation {
	at := time.Date(2025, 3, 14, 15, 9, 26, 123456789, time.UTC)
	return []history.Calculation{
		history.NewCalculation(operations.Add, 1, 2, 3, at),
		history.NewCalculation(operations.Divide, 1, 3, 0.33, at.Add(time.Second)),
		history.NewCalculation(operations.Power, -2.5, 3, -15.63, at.Add(2*time.Second)),
		history.NewCalculation(operations.AbsDiff, 1e-9, 123456.789, 123456.79, at.Add(3*time.Second)),
	}
}

func assertSameRecords(t *testing.T, want, got []history.Calculation) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "record %d: want %v, got %v", i, want[i], got[i])
	}
}

// =============================================================================
// Save / Load Tests
// =============================================================================

func TestCSVStore_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newStore(t, fs, "")
	records := sampleRecords()

	require.NoError(t, s.Save(testPath, records))

	got, err := s.Load(testPath)
	require.NoError(t, err)
	assertSameRecords(t, records, got)
}

func TestCSVStore_SaveWritesHeaderAndRows(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newStore(t, fs, "utf-8")
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.Save(testPath, []history.Calculation{
		history.NewCalculation(operations.Add, 1, 2, 3, at),
	}))

	data, err := afero.ReadFile(fs, testPath)
	require.NoError(t, err)
	assert.Equal(t,
		"operation,operand_a,operand_b,result,timestamp\n"+
			"add,1,2,3,2025-01-02T03:04:05Z\n",
		string(data))
}

func TestCSVStore_SaveEmptyWritesHeaderOnly(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newStore(t, fs, "")

	require.NoError(t, s.Save(testPath, nil))

	data, err := afero.ReadFile(fs, testPath)
	require.NoError(t, err)
	assert.Equal(t, "operation,operand_a,operand_b,result,timestamp\n", string(data))

	got, err := s.Load(testPath)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCSVStore_SaveReplacesExistingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newStore(t, fs, "")
	records := sampleRecords()

	require.NoError(t, s.Save(testPath, records))
	require.NoError(t, s.Save(testPath, records[:1]))

	got, err := s.Load(testPath)
	require.NoError(t, err)
	assertSameRecords(t, records[:1], got)

	entries, err := afero.ReadDir(fs, "/data/history")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestCSVStore_SaveUnwritableDirectory(t *testing.T) {
	s := newStore(t, afero.NewReadOnlyFs(afero.NewMemMapFs()), "")

	err := s.Save(testPath, sampleRecords())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCreateDirFailed)
	assert.Equal(t, calcerr.KindPersistence, calcerr.KindOf(err))
}

func TestCSVStore_EmptyPath(t *testing.T) {
	s := newStore(t, afero.NewMemMapFs(), "")

	assert.ErrorIs(t, s.Save("", nil), ErrEmptyPath)
	_, err := s.Load("")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestCSVStore_LoadMissingFile(t *testing.T) {
	s := newStore(t, afero.NewMemMapFs(), "")

	got, err := s.Load("/nope.csv")

	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, calcerr.KindPersistence, calcerr.KindOf(err))
}

func TestCSVStore_LoadMalformed(t *testing.T) {
	const header = "operation,operand_a,operand_b,result,timestamp\n"
	const ts = "2025-01-02T03:04:05Z"

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"empty file", "", ErrMalformedHeader},
		{"wrong header", "op,a,b,r,t\n", ErrMalformedHeader},
		{"short header", "operation,operand_a\n", ErrMalformedHeader},
		{"missing field", header + "add,1,2,3\n", ErrMalformedRow},
		{"extra field", header + "add,1,2,3," + ts + ",x\n", ErrMalformedRow},
		{"unknown operation", header + "sqrt,1,2,3," + ts + "\n", ErrMalformedRow},
		{"bad operand", header + "add,one,2,3," + ts + "\n", ErrMalformedRow},
		{"bad result", header + "add,1,2,," + ts + "\n", ErrMalformedRow},
		{"bad timestamp", header + "add,1,2,3,yesterday\n", ErrMalformedRow},
		{"unterminated quote", header + "\"add,1,2,3," + ts + "\n", ErrMalformedRow},
		{"bad row after good row", header + "add,1,2,3," + ts + "\nadd,1\n", ErrMalformedRow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, testPath, []byte(tt.content), 0o644))
			s := newStore(t, fs, "")

			got, err := s.Load(testPath)

			require.Error(t, err)
			assert.Nil(t, got, "a failed load must not return partial records")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, calcerr.KindPersistence, calcerr.KindOf(err))
		})
	}
}

func TestCSVStore_LoadReportsLineNumber(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "operation,operand_a,operand_b,result,timestamp\n" +
		"add,1,2,3,2025-01-02T03:04:05Z\n" +
		"add,x,2,3,2025-01-02T03:04:05Z\n"
	require.NoError(t, afero.WriteFile(fs, testPath, []byte(content), 0o644))

	_, err := newStore(t, fs, "").Load(testPath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestCSVStore_LoadToleratesCaseAndBOM(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "\uFEFFOperation, Operand_A, Operand_B, Result, Timestamp\n" +
		"ADD, 1, 2, 3, 2025-01-02T03:04:05Z\n"
	require.NoError(t, afero.WriteFile(fs, testPath, []byte(content), 0o644))

	got, err := newStore(t, fs, "").Load(testPath)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, operations.Add, got[0].Operation)
	assert.Equal(t, 3.0, got[0].Result)
}

// =============================================================================
// Encoding Tests
// =============================================================================

func TestCSVStore_Encodings(t *testing.T) {
	for _, enc := range []string{"utf-8", "windows-1252", "utf-16le", "iso-8859-15"} {
		t.Run(enc, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			s := newStore(t, fs, enc)
			records := sampleRecords()

			require.NoError(t, s.Save(testPath, records))
			got, err := s.Load(testPath)

			require.NoError(t, err)
			assertSameRecords(t, records, got)
			assert.Equal(t, enc, s.Encoding())
		})
	}
}

func TestCSVStore_UTF16IsActuallyEncoded(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newStore(t, fs, "utf-16le")

	require.NoError(t, s.Save(testPath, nil))

	data, err := afero.ReadFile(fs, testPath)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 2)
	assert.Equal(t, []byte{'o', 0}, data[:2])
}

func TestNewCSVStore_UnknownEncoding(t *testing.T) {
	s, err := NewCSVStore(afero.NewMemMapFs(), "klingon-8")

	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrUnknownEncoding)
	assert.Equal(t, calcerr.KindConfig, calcerr.KindOf(err))
}
