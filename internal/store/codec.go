package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"

	"github.com/utafrali/storefront/internal/domain"
)

// ParseIDs decodes a persisted collection. Anything other than a JSON array
// of integral numbers decodes to an empty slice: malformed or foreign data is
// treated as absent, never as an error. Integral numbers that are not valid
// product ids (zero, negative) are skipped.
func ParseIDs(raw []byte) []domain.ProductID {
	ids, _ := parseIDs(raw)
	return ids
}

// parseIDs is ParseIDs that also reports whether raw was well formed.
func parseIDs(raw []byte) ([]domain.ProductID, bool) {
	empty := []domain.ProductID{}
	if !json.Valid(raw) {
		return empty, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var values []any
	if err := dec.Decode(&values); err != nil || values == nil {
		return empty, false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return empty, false
	}

	ids := make([]domain.ProductID, 0, len(values))
	for _, v := range values {
		n, ok := v.(json.Number)
		if !ok {
			return empty, false
		}
		id, ok := integral(n)
		if !ok {
			return empty, false
		}
		if id.Valid() {
			ids = append(ids, id)
		}
	}
	return ids, true
}

// integral accepts 3 and 3.0 but not 3.5.
func integral(n json.Number) (domain.ProductID, bool) {
	if i, err := n.Int64(); err == nil {
		return domain.ProductID(i), true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return domain.ProductID(f), true
}

// EncodeIDs renders ids as a JSON array of integers. A nil slice encodes as [].
func EncodeIDs(ids []domain.ProductID) []byte {
	if ids == nil {
		ids = []domain.ProductID{}
	}
	b, _ := json.Marshal(ids)
	return b
}
