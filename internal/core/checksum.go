package core

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"obsctl/internal/types"
)

// FileDigest is the MD5 and size of a piece of content.
type FileDigest struct {
	MD5  string
	Size int64
}

// DigestReader streams r through MD5 and returns the lowercase hex digest
// together with the number of bytes read.
func DigestReader(r io.Reader) (FileDigest, error) {
	h := md5.New()
	size, err := io.Copy(h, r)
	if err != nil {
		return FileDigest{}, err
	}
	return FileDigest{MD5: hex.EncodeToString(h.Sum(nil)), Size: size}, nil
}

// VerifyingReader hashes everything read through it and reports a checksum
// error instead of io.EOF when the content does not match the expectation.
type VerifyingReader struct {
	r            io.Reader
	hash         hash.Hash
	expectedMD5  string
	expectedSize int64
	read         int64
	err          error
}

// NewVerifyingReader wraps r. An empty expectedMD5 skips the digest check
// and a negative expectedSize skips the size check.
func NewVerifyingReader(r io.Reader, expectedMD5 string, expectedSize int64) *VerifyingReader {
	return &VerifyingReader{
		r:            r,
		hash:         md5.New(),
		expectedMD5:  strings.ToLower(strings.TrimSpace(expectedMD5)),
		expectedSize: expectedSize,
	}
}

func (v *VerifyingReader) Read(p []byte) (int, error) {
	if v.err != nil {
		return 0, v.err
	}
	n, err := v.r.Read(p)
	if n > 0 {
		v.hash.Write(p[:n])
		v.read += int64(n)
	}
	if err == io.EOF {
		if verr := v.verify(); verr != nil {
			v.err = verr
			return n, verr
		}
	}
	if err != nil {
		v.err = err
	}
	return n, err
}

// Sum returns the hex digest of the bytes read so far.
func (v *VerifyingReader) Sum() string {
	return hex.EncodeToString(v.hash.Sum(nil))
}

func (v *VerifyingReader) verify() error {
	if v.expectedSize >= 0 && v.read != v.expectedSize {
		return types.NewChecksumError(
			fmt.Sprintf("%d bytes", v.expectedSize),
			fmt.Sprintf("%d bytes", v.read),
		)
	}
	if v.expectedMD5 != "" {
		actual := v.Sum()
		if actual != v.expectedMD5 {
			return types.NewChecksumError(v.expectedMD5, actual)
		}
	}
	return nil
}
