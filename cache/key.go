package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// KeyInputs are the caller-supplied identity components of a parse
// request. The engine does not resolve any of them itself.
type KeyInputs struct {
	Model         string
	PromptVersion string
	Query         string
	DocumentIDs   []string
	RawText       string
}

// Key derives the canonical cache key: a deterministic hash over the
// order-independent combination of the inputs. Document IDs are sorted
// before hashing, so identical logical inputs yield the identical key
// regardless of incidental ordering; every component is length-framed by a
// NUL separator so no two distinct input sets can collide by
// concatenation.
func (in KeyInputs) Key() string {
	ids := make([]string, len(in.DocumentIDs))
	copy(ids, in.DocumentIDs)
	sort.Strings(ids)

	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(in.Model)
	write(in.PromptVersion)
	write(in.Query)
	for _, id := range ids {
		write(id)
	}
	h.Write([]byte{0})
	write(in.RawText)

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
