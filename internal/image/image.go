// Package image reads and writes module images: the on-disk form of one
// assembly's metadata.
//
// Layout:
//
//	magic "WMOD" | schema u16 | reserved u16 | highwayhash-64 u64 | zstd(msgpack(moduleRecord))
//
// All integers are little-endian. The checksum covers the compressed payload.
package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/minio/highwayhash"
	"github.com/vmihailenco/msgpack/v5"

	"weld/internal/diag"
	"weld/internal/metadata"
)

// Ext is the file extension of module images.
const Ext = ".wmod"

// Schema is bumped whenever moduleRecord changes incompatibly.
const Schema uint16 = 1

const headerSize = 16

var magic = [4]byte{'W', 'M', 'O', 'D'}

// hashKey keys the payload checksum. It is not a secret.
var hashKey = []byte("weld/module-image/checksum-key/1")

// Image is a decoded module image not yet registered in an arena. Decoding
// touches no shared state, so images may be decoded concurrently.
type Image struct {
	Path string
	rec  *moduleRecord
}

// Identity returns the assembly identity stored in the image.
func (img *Image) Identity() metadata.Identity {
	return identityFrom(img.rec.Identity)
}

// References returns the identities of the assemblies the image refers to.
func (img *Image) References() []metadata.Identity {
	out := make([]metadata.Identity, len(img.rec.References))
	for i, r := range img.rec.References {
		out[i] = identityFrom(r)
	}
	return out
}

// Encode writes one module of the arena to w.
func Encode(w io.Writer, a *metadata.Arena, mod metadata.ModuleID) error {
	rec, err := snapshot(a, mod)
	if err != nil {
		return err
	}
	raw, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("image: encode %s: %w", rec.Identity.Name, err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	payload := enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))
	if err := enc.Close(); err != nil {
		return err
	}

	var header [headerSize]byte
	copy(header[:4], magic[:])
	binary.LittleEndian.PutUint16(header[4:6], Schema)
	binary.LittleEndian.PutUint64(header[8:16], highwayhash.Sum64(payload, hashKey))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// Decode reads an image from r. Every failure is a *diag.Fatal with an
// IMG code.
func Decode(r io.Reader, subject string) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, diag.Fatalf(diag.ImgIO, subject, "%v", err)
	}
	if len(data) < headerSize || !bytes.Equal(data[:4], magic[:]) {
		return nil, diag.Fatalf(diag.ImgBadMagic, subject, "missing %q header", string(magic[:]))
	}
	if schema := binary.LittleEndian.Uint16(data[4:6]); schema != Schema {
		return nil, diag.Fatalf(diag.ImgSchemaMismatch, subject, "schema %d, want %d", schema, Schema)
	}
	payload := data[headerSize:]
	if want, got := binary.LittleEndian.Uint64(data[8:16]), highwayhash.Sum64(payload, hashKey); want != got {
		return nil, diag.Fatalf(diag.ImgChecksum, subject, "checksum %016x, header says %016x", got, want)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, diag.Fatalf(diag.ImgDecode, subject, "decompress: %v", err)
	}
	rec := &moduleRecord{}
	if err := msgpack.Unmarshal(raw, rec); err != nil {
		return nil, diag.Fatalf(diag.ImgDecode, subject, "%v", err)
	}
	if err := rec.check(); err != nil {
		return nil, diag.Fatalf(diag.ImgDecode, subject, "%v", err)
	}
	return &Image{Path: subject, rec: rec}, nil
}

// ReadFile decodes the image stored at path.
func ReadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, diag.Fatalf(diag.ImgIO, path, "%v", err)
	}
	defer f.Close()
	return Decode(f, path)
}

// WriteFile stores one module of the arena at path. The file is replaced
// atomically: readers see either the old image or the new one.
func WriteFile(path string, a *metadata.Arena, mod metadata.ModuleID) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return diag.Fatalf(diag.ImgIO, path, "%v", err)
	}
	f, err := os.CreateTemp(dir, ".tmp-*"+Ext)
	if err != nil {
		return diag.Fatalf(diag.ImgIO, path, "%v", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	if err = Encode(f, a, mod); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return diag.Fatalf(diag.ImgIO, path, "%v", err)
	}
	// атомарная замена
	if err = os.Rename(f.Name(), path); err != nil {
		return diag.Fatalf(diag.ImgIO, path, "%v", err)
	}
	return nil
}

// check validates every local index so that registration never panics on
// a damaged but well-formed payload.
func (rec *moduleRecord) check() error {
	nt, nm := int32(len(rec.Types)), int32(len(rec.Members))
	if nt == 0 || rec.Types[0].Declaring != -1 {
		return fmt.Errorf("missing global type")
	}
	inType := func(i int32) bool { return i >= -1 && i < nt }
	inMember := func(i int32) bool { return i >= -1 && i < nm }
	// owner[m] is the type listing member m, -1 while unlisted
	owner := make([]int32, nm)
	for i := range owner {
		owner[i] = -1
	}
	for i, t := range rec.Types {
		if !inType(t.Base.Local) || !inType(t.Declaring) || t.Declaring >= int32(i) {
			return fmt.Errorf("type %d: bad link", i)
		}
		for _, m := range t.Members {
			if m < 0 || m >= nm {
				return fmt.Errorf("type %d: bad member index %d", i, m)
			}
			if owner[m] != -1 {
				return fmt.Errorf("type %d: member %d already listed by type %d", i, m, owner[m])
			}
			owner[m] = int32(i)
		}
	}
	for i, m := range rec.Members {
		if !inMember(m.Getter) || !inMember(m.Setter) || !inMember(m.Add) || !inMember(m.Remove) ||
			!inMember(m.Overrides.Local) || !inType(m.Nested) {
			return fmt.Errorf("member %d: bad link", i)
		}
		if metadata.MemberKind(m.Kind) != metadata.MemberNestedType {
			continue
		}
		if m.Nested <= 0 {
			return fmt.Errorf("member %d: nested type without target", i)
		}
		// иначе вложенность может замкнуться в цикл
		if owner[i] == -1 || rec.Types[m.Nested].Declaring != owner[i] {
			return fmt.Errorf("member %d: nested type %d is not declared by its owner", i, m.Nested)
		}
	}
	if !inMember(rec.EntryPoint) {
		return fmt.Errorf("bad entry point index %d", rec.EntryPoint)
	}
	return nil
}
