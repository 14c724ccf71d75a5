// Copyright (C) 2021-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

//nolint:gochecknoglobals // shared immutable config
var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// DumpSdistListing renders a table of the entries of a gzipped tar archive:
// mode, ownership, size, and name per row.
func DumpSdistListing(filename string) (str string, err error) {
	maybeSetErr := func(_err error) {
		if _err != nil && err == nil {
			str = ""
			err = _err
		}
	}

	fileReader, _err := os.Open(filename)
	if _err != nil {
		return "", _err
	}
	defer func() {
		maybeSetErr(fileReader.Close())
	}()
	gzReader, _err := gzip.NewReader(fileReader)
	if _err != nil {
		return "", _err
	}
	defer func() {
		maybeSetErr(gzReader.Close())
	}()

	ret := new(strings.Builder)
	table := tabwriter.NewWriter(
		ret, // output
		0,   // minwidth
		1,   // tabwidth
		1,   // padding
		' ', // padchar
		0)   // flags
	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", err
		}
		if _, err := fmt.Fprintln(table, strings.Join([]string{
			"",
			header.FileInfo().Mode().String(),
			fmt.Sprintf("%d=%q", header.Uid, header.Uname),
			fmt.Sprintf("%d=%q", header.Gid, header.Gname),
			fmt.Sprintf("% 10d", header.Size),
			header.Name,
		}, "\t")); err != nil {
			return "", err
		}
		if _, err := io.ReadAll(tarReader); err != nil {
			return "", err
		}
	}
	if err := table.Flush(); err != nil {
		return "", err
	}

	return ret.String(), nil
}

// DumpSdistFull renders the headers and full contents of a gzipped tar
// archive, for byte-level diffing.
func DumpSdistFull(filename string) (str string, err error) {
	maybeSetErr := func(_err error) {
		if _err != nil && err == nil {
			str = ""
			err = _err
		}
	}

	fileReader, _err := os.Open(filename)
	if _err != nil {
		return "", _err
	}
	defer func() {
		maybeSetErr(fileReader.Close())
	}()
	gzReader, _err := gzip.NewReader(fileReader)
	if _err != nil {
		return "", _err
	}
	defer func() {
		maybeSetErr(gzReader.Close())
	}()

	ret := new(strings.Builder)
	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", err
		}
		fmt.Fprintf(ret, "tarHeader = %s", spewConfig.Sdump(header))
		content, err := io.ReadAll(tarReader)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(ret, "tarContent = %s", spewConfig.Sdump(content))
	}

	return ret.String(), nil
}

// DumpWheelListing renders a table of the entries of a zip archive: mode,
// size, and name per row.
func DumpWheelListing(filename string) (str string, err error) {
	maybeSetErr := func(_err error) {
		if _err != nil && err == nil {
			str = ""
			err = _err
		}
	}

	zipReader, _err := zip.OpenReader(filename)
	if _err != nil {
		return "", _err
	}
	defer func() {
		maybeSetErr(zipReader.Close())
	}()

	ret := new(strings.Builder)
	table := tabwriter.NewWriter(ret, 0, 1, 1, ' ', 0)
	for _, file := range zipReader.File {
		if _, err := fmt.Fprintln(table, strings.Join([]string{
			"",
			file.Mode().String(),
			fmt.Sprintf("% 10d", file.UncompressedSize64),
			file.Name,
		}, "\t")); err != nil {
			return "", err
		}
	}
	if err := table.Flush(); err != nil {
		return "", err
	}

	return ret.String(), nil
}

// ReadWheelFile returns the contents of one named entry of a zip archive.
func ReadWheelFile(t *testing.T, filename, entry string) []byte {
	t.Helper()
	zipReader, err := zip.OpenReader(filename)
	if err != nil {
		t.Fatalf("open wheel %q: %v", filename, err)
	}
	defer func() {
		_ = zipReader.Close()
	}()
	for _, file := range zipReader.File {
		if file.Name != entry {
			continue
		}
		reader, err := file.Open()
		if err != nil {
			t.Fatalf("open wheel entry %q: %v", entry, err)
		}
		defer func() {
			_ = reader.Close()
		}()
		content, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("read wheel entry %q: %v", entry, err)
		}
		return content
	}
	t.Fatalf("wheel %q has no entry %q", filename, entry)
	return nil
}

// AssertIdenticalFiles asserts that two files are byte-for-byte identical,
// rendering a listing diff (via the supplied dumper) when they are not.
func AssertIdenticalFiles(t *testing.T, dump func(string) (string, error), exp, act string) bool {
	t.Helper()

	expBytes, err := os.ReadFile(exp)
	if err != nil {
		t.Errorf("error reading expected file: %v", err)
		return false
	}
	actBytes, err := os.ReadFile(act)
	if err != nil {
		t.Errorf("error reading actual file: %v", err)
		return false
	}
	if string(expBytes) == string(actBytes) {
		return true
	}

	expStr, err := dump(exp)
	if err != nil {
		t.Errorf("error dumping expected file: %v", err)
		return false
	}
	actStr, err := dump(act)
	if err != nil {
		t.Errorf("error dumping actual file: %v", err)
		return false
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expStr),
		B:        difflib.SplitLines(actStr),
		FromFile: "Expected",
		FromDate: "",
		ToFile:   "Actual",
		ToDate:   "",
		Context:  1,
	})
	if diff == "" {
		diff = "(listings agree; archives differ at the byte level)"
	}
	t.Errorf("archives differ:\n%s", diff)
	return false
}
