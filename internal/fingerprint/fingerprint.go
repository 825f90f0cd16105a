// Package fingerprint computes deterministic content digests over
// structured literal data.
//
// Values canonicalize to an unambiguous byte encoding before hashing:
// every element carries a type tag and a length prefix, and map fields
// are sorted by key. Structurally equal values therefore digest
// identically regardless of construction order, across runs and
// processes. No whitespace normalization is applied here; cosmetic
// spacing edits inside strings register as content changes.
package fingerprint

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Value is a node in a canonical content tree: a string, an integer, an
// ordered sequence, or an ordered field mapping.
type Value interface {
	appendCanonical(buf *bytes.Buffer)
}

// String is a literal text node
type String string

// Int is a literal integer node
type Int int

// Sequence is an ordered list of values
type Sequence []Value

// Field is one key/value pair of a Map
type Field struct {
	Key   string
	Value Value
}

// Map is a field mapping. Field order does not affect the digest: fields
// are sorted by key during canonicalization.
type Map []Field

func (s String) appendCanonical(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "s%d:", len(s))
	buf.WriteString(string(s))
}

func (i Int) appendCanonical(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "i%d;", int(i))
}

func (seq Sequence) appendCanonical(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "l%d:", len(seq))
	for _, v := range seq {
		canonicalize(v, buf)
	}
}

func (m Map) appendCanonical(buf *bytes.Buffer) {
	sorted := make(Map, len(m))
	copy(sorted, m)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	fmt.Fprintf(buf, "m%d:", len(sorted))
	for _, f := range sorted {
		fmt.Fprintf(buf, "k%d:", len(f.Key))
		buf.WriteString(f.Key)
		canonicalize(f.Value, buf)
	}
}

// canonicalize writes the canonical encoding of v; a nil value encodes
// as an explicit empty marker so absent and empty fields differ.
func canonicalize(v Value, buf *bytes.Buffer) {
	if v == nil {
		buf.WriteString("n;")
		return
	}
	v.appendCanonical(buf)
}

// Canonical returns the canonical byte encoding of a value
func Canonical(v Value) []byte {
	var buf bytes.Buffer
	canonicalize(v, &buf)
	return buf.Bytes()
}

// Sum computes the fixed-size content digest of a value as a hex string
func Sum(v Value) string {
	digest := blake2b.Sum256(Canonical(v))
	return hex.EncodeToString(digest[:])
}

// Strings converts a string slice into a Sequence
func Strings(items []string) Sequence {
	seq := make(Sequence, len(items))
	for i, s := range items {
		seq[i] = String(s)
	}
	return seq
}
