// This file mimics the slice of `zipfile.py` a wheel emitter needs.

package python

// A ZIPExternalAttributes represents Python's view of a ZIP file's "external
// file attributes" field.
//
// The ZIP file format specification[1] specifies a 4-byte "external file
// attributes" field for each file, the meaning of which depends on the
// platform that (claims to have) created the ZIP file.  On the "UNIX" (0x03)
// platform the upper 2 bytes hold the `st_mode` bits; Python's `zipfile`
// reads them from there without checking the "version made by" field.  Wheels
// are always written as UNIX-flavored archives, so only the UNIX half is
// modeled; the low 16 bits (the MS-DOS attribute byte) stay zero.
//
// [1]: https://www.pkware.com/appnote
type ZIPExternalAttributes struct {
	UNIX StatMode
}

// Raw turns the structured attributes in to the unstructured 32-bit unsigned
// integer the zip headers carry.
func (ea ZIPExternalAttributes) Raw() uint32 {
	return uint32(ea.UNIX) << 16
}

// ParseZIPExternalAttributes turns an unstructured 32-bit unsigned integer in
// to structured attributes.
func ParseZIPExternalAttributes(raw uint32) ZIPExternalAttributes {
	return ZIPExternalAttributes{
		UNIX: StatMode(raw >> 16),
	}
}
