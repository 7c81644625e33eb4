// Package canon implements the canonical JSON serialization used to derive
// content-addressed ids: envelope ids and reputation record ids are the
// hex-encoded SHA-256 digest of a value's canonical bytes.
//
// Canonical bytes are produced the way encoding/json already produces them
// for map values — keys sorted lexicographically, no HTML escaping, no
// indentation — with one addition: MarshalChecked (which Hash uses) runs
// the marshaled bytes through Validate, which rejects duplicate object keys
// and non-finite numbers that encoding/json would otherwise accept or
// silently collapse. Marshal alone does not validate.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
)

// Marshal produces the canonical JSON encoding of v: object keys sorted
// lexicographically, no whitespace, no HTML escaping, no trailing newline.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "")

	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canon: encode: %w", err)
	}

	out := buf.Bytes()
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return out, nil
}

// MarshalChecked canonicalizes v and then Validates the result, returning
// an error if v round-trips through an intermediate representation that
// would itself fail Validate (this can only happen for values containing
// math.Inf/math.NaN, since encoding/json already rejects those at encode
// time with its own error — MarshalChecked exists so callers have a single
// entry point that never produces bytes Validate would reject).
func MarshalChecked(v interface{}) ([]byte, error) {
	out, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate walks raw as a JSON token stream and rejects anything JCS
// canonicalization cannot tolerate: duplicate keys within a single object
// and non-finite numbers (NaN, +/-Inf have no JSON representation, but a
// hand-built io.Reader of bytes masquerading as JSON numbers could still
// smuggle one through a lenient parser — this guards the boundary).
func Validate(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return validateValue(dec)
}

func validateValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("canon: %w", err)
	}
	return validateToken(dec, tok)
}

func validateToken(dec *json.Decoder, tok json.Token) error {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return validateObject(dec)
		case '[':
			return validateArray(dec)
		}
	case json.Number:
		return validateNumber(t)
	}
	return nil
}

func validateObject(dec *json.Decoder) error {
	seen := make(map[string]struct{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("canon: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("canon: object key is not a string: %v", keyTok)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("canon: duplicate object key %q", key)
		}
		seen[key] = struct{}{}

		if err := validateValue(dec); err != nil {
			return err
		}
	}
	// consume the closing '}'
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("canon: %w", err)
	}
	return nil
}

func validateArray(dec *json.Decoder) error {
	for dec.More() {
		if err := validateValue(dec); err != nil {
			return err
		}
	}
	// consume the closing ']'
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("canon: %w", err)
	}
	return nil
}

func validateNumber(n json.Number) error {
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("canon: invalid number %q: %w", n, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("canon: non-finite number %q", n)
	}
	return nil
}

// Hash returns the hex-encoded SHA-256 digest of v's canonical encoding.
// This is the content-addressing function used for envelope ids and
// reputation record ids.
func Hash(v interface{}) (string, error) {
	raw, err := MarshalChecked(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// HashBytes returns the hex-encoded SHA-256 digest of already-canonical
// bytes, validating them first.
func HashBytes(raw []byte) (string, error) {
	if err := Validate(raw); err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
