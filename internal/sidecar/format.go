package sidecar

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/codesearch/hybridcore/internal/chunker"
	"github.com/codesearch/hybridcore/internal/coreerr"
)

// magic identifies a sidecar file to distinguish it from a truncated or
// foreign file before the schema-version check even runs.
var magic = [4]byte{'C', 'S', 'C', '1'}

// encodeEntry serializes an Entry to its on-disk binary layout: header
// (magic, schema version, embedding dim, chunk count, content hash)
// followed by the chunk table.
func encodeEntry(e *Entry) []byte {
	var buf bytes.Buffer

	buf.Write(magic[:])
	writeUint32(&buf, SchemaVersion)
	writeUint32(&buf, uint32(e.EmbeddingDim))
	writeUint32(&buf, uint32(len(e.Chunks)))
	writeString(&buf, e.ContentHash)
	writeString(&buf, e.Language)
	writeBool(&buf, e.IsText)
	writeString(&buf, e.ContentCachePath)

	for _, c := range e.Chunks {
		writeInt32(&buf, int32(c.Span.ByteStart))
		writeInt32(&buf, int32(c.Span.ByteEnd))
		writeInt32(&buf, int32(c.Span.LineStart))
		writeInt32(&buf, int32(c.Span.LineEnd))
		writeString(&buf, string(c.Kind))
		writeString(&buf, c.Breadcrumb)
		writeString(&buf, c.Text)
		writeUint32(&buf, uint32(c.TokenCount))
		writeUint64(&buf, c.ChunkHash)
		writeFloats(&buf, c.Embedding)
	}

	return buf.Bytes()
}

// decodeEntry parses bytes previously produced by encodeEntry. It
// returns a typed SchemaIncompatible or CorruptSidecar error rather than
// panicking or silently misinterpreting truncated data.
func decodeEntry(path string, data []byte) (*Entry, error) {
	r := bytes.NewReader(data)

	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, coreerr.CorruptSidecar(path, err)
	}
	if gotMagic != magic {
		return nil, coreerr.CorruptSidecar(path, fmt.Errorf("bad magic"))
	}

	version, err := readUint32(r)
	if err != nil {
		return nil, coreerr.CorruptSidecar(path, err)
	}
	if version != SchemaVersion {
		return nil, coreerr.SchemaIncompatible(path, version, SchemaVersion)
	}

	dim, err := readUint32(r)
	if err != nil {
		return nil, coreerr.CorruptSidecar(path, err)
	}
	chunkCount, err := readUint32(r)
	if err != nil {
		return nil, coreerr.CorruptSidecar(path, err)
	}

	e := &Entry{Path: path, EmbeddingDim: int(dim)}
	if e.ContentHash, err = readString(r); err != nil {
		return nil, coreerr.CorruptSidecar(path, err)
	}
	if e.Language, err = readString(r); err != nil {
		return nil, coreerr.CorruptSidecar(path, err)
	}
	if e.IsText, err = readBool(r); err != nil {
		return nil, coreerr.CorruptSidecar(path, err)
	}
	if e.ContentCachePath, err = readString(r); err != nil {
		return nil, coreerr.CorruptSidecar(path, err)
	}

	e.Chunks = make([]ChunkRecord, 0, chunkCount)
	for i := uint32(0); i < chunkCount; i++ {
		var c ChunkRecord
		bs, err1 := readInt32(r)
		be, err2 := readInt32(r)
		ls, err3 := readInt32(r)
		le, err4 := readInt32(r)
		if err := firstErr(err1, err2, err3, err4); err != nil {
			return nil, coreerr.CorruptSidecar(path, err)
		}
		c.Span = chunker.Span{ByteStart: int(bs), ByteEnd: int(be), LineStart: int(ls), LineEnd: int(le)}

		kind, err := readString(r)
		if err != nil {
			return nil, coreerr.CorruptSidecar(path, err)
		}
		c.Kind = chunker.Kind(kind)

		if c.Breadcrumb, err = readString(r); err != nil {
			return nil, coreerr.CorruptSidecar(path, err)
		}
		if c.Text, err = readString(r); err != nil {
			return nil, coreerr.CorruptSidecar(path, err)
		}
		tok, err := readUint32(r)
		if err != nil {
			return nil, coreerr.CorruptSidecar(path, err)
		}
		c.TokenCount = int(tok)
		if c.ChunkHash, err = readUint64(r); err != nil {
			return nil, coreerr.CorruptSidecar(path, err)
		}
		if c.Embedding, err = readFloats(r); err != nil {
			return nil, coreerr.CorruptSidecar(path, err)
		}

		e.Chunks = append(e.Chunks, c)
	}

	return e, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeInt32(buf *bytes.Buffer, v int32) { writeUint32(buf, uint32(v)) }

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

// writeFloats packs an embedding as little-endian IEEE 754 float32s.
func writeFloats(buf *bytes.Buffer, vec []float32) {
	writeUint32(buf, uint32(len(vec)))
	for _, f := range vec {
		writeUint32(buf, math.Float32bits(f))
	}
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readInt32(r io.Reader) (int32, error) {
	v, err := readUint32(r)
	return int32(v), err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readBool(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func readFloats(r io.Reader) ([]float32, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]float32, n)
	for i := range out {
		bits, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}
