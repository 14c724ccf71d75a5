// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package masonry

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/datawire/masonry/pkg/python"
	"github.com/datawire/masonry/pkg/reproducible"
)

// writeAtomically writes an output artifact via a temporary file in the same
// directory, renaming on success; a partial output never survives an error.
func writeAtomically(outFile string, write func(*os.File) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(outFile), "."+filepath.Base(outFile)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), outFile)
}

// storedSuffixes are entry names that get STORE instead of DEFLATE: inputs
// that are already compressed.
//
//nolint:gochecknoglobals // Would be 'const'.
var storedSuffixes = map[string]struct{}{
	".bz2": {}, ".gif": {}, ".gz": {}, ".jpeg": {}, ".jpg": {}, ".png": {},
	".tgz": {}, ".whl": {}, ".woff": {}, ".woff2": {}, ".xz": {}, ".zip": {},
}

// deflateLevel is the fixed compression level for DEFLATE entries; pinning it
// keeps wheel bytes identical across runs and Go releases.
const deflateLevel = 6

type recordRow struct {
	archivePath string
	digest      string
	size        int64
}

// A zipBuilder writes deterministic wheel entries: fixed timestamp, fixed
// external attributes, and no data-descriptor flag (entries are
// precompressed, so sizes and CRC land in the local header).  Every entry
// gets a RECORD row.
type zipBuilder struct {
	zw      *zip.Writer
	records []recordRow
}

func newZipBuilder(zw *zip.Writer) *zipBuilder {
	return &zipBuilder{zw: zw}
}

func (b *zipBuilder) rawWrite(archivePath string, data []byte, mode fs.FileMode) error {
	method := zip.Deflate
	if _, stored := storedSuffixes[strings.ToLower(path.Ext(archivePath))]; stored {
		method = zip.Store
	}

	payload := data
	if method == zip.Deflate {
		var buf bytes.Buffer
		fw, err := flate.NewWriter(&buf, deflateLevel)
		if err != nil {
			return err
		}
		if _, err := fw.Write(data); err != nil {
			return err
		}
		if err := fw.Close(); err != nil {
			return err
		}
		payload = buf.Bytes()
	}

	header := &zip.FileHeader{
		Name:               archivePath,
		Method:             method,
		Modified:           reproducible.Now(),
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   uint64(len(payload)),
		UncompressedSize64: uint64(len(data)),
		ExternalAttrs:      python.ZIPExternalAttributes{UNIX: python.ModeFromGo(mode)}.Raw(),
		CreatorVersion:     3 << 8, // UNIX, so the external attributes are honored
	}
	writer, err := b.zw.CreateRaw(header)
	if err != nil {
		return err
	}
	_, err = writer.Write(payload)
	return err
}

func (b *zipBuilder) add(archivePath string, data []byte, executable bool) error {
	mode := fs.FileMode(0o644)
	if executable {
		mode = 0o755
	}
	if err := b.rawWrite(archivePath, data, mode); err != nil {
		return err
	}
	digest, err := python.RecordDigest("sha256", data)
	if err != nil {
		return err
	}
	b.records = append(b.records, recordRow{
		archivePath: archivePath,
		digest:      digest,
		size:        int64(len(data)),
	})
	return nil
}

// writeRecord emits the RECORD CSV: one row per archive entry sorted by
// path, with RECORD's own row carrying empty hash and size fields.
func (b *zipBuilder) writeRecord(distInfoDir string) error {
	recordPath := path.Join(distInfoDir, "RECORD")
	rows := append([]recordRow{}, b.records...)
	rows = append(rows, recordRow{archivePath: recordPath})
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].archivePath < rows[j].archivePath
	})

	var buf bytes.Buffer
	for _, row := range rows {
		size := ""
		if row.archivePath != recordPath {
			size = strconv.FormatInt(row.size, 10)
		}
		fmt.Fprintf(&buf, "%s,%s,%s\n", row.archivePath, row.digest, size)
	}
	return b.rawWrite(recordPath, buf.Bytes(), 0o644)
}
