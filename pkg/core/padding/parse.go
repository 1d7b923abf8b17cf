// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package padding

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/gomlx/pooling/pkg/support/poolerr"
)

// FromAny converts a loosely typed padding value to a Raw padding, for a pooling over numDims spatial dimensions.
//
// Accepted values:
//
//   - Raw: returned as is.
//   - string: a Mode. It is validated only by Normalize.
//   - int, int32, int64: a Scalar.
//   - []int: a PerDim if it has numDims values, or a PerDimFlat if it has 2*numDims values.
//   - [][2]int or [][]int (of pairs): a PerAxisPairs.
//
// Anything else returns an error wrapping poolerr.ErrInvalidArgument.
func FromAny(value any, numDims int) (Raw, error) {
	switch v := value.(type) {
	case nil:
		return nil, poolerr.InvalidArgumentf("padding not given (nil)")
	case Raw:
		return v, nil
	case string:
		return Mode(v), nil
	case int:
		return Scalar(v), nil
	case int32:
		return Scalar(v), nil
	case int64:
		return Scalar(v), nil
	case []int:
		return fromList(v, numDims)
	case [][2]int:
		return PerAxisPairs(v), nil
	case [][]int:
		pairs := make(PerAxisPairs, len(v))
		for ii, pair := range v {
			if len(pair) != 2 {
				return nil, poolerr.InvalidArgumentf("padding %v: element #%d should be a [before, after] pair, got %v",
					v, ii, pair)
			}
			pairs[ii] = [2]int{pair[0], pair[1]}
		}
		return pairs, nil
	}
	return nil, poolerr.InvalidArgumentf("padding of type %T is not supported: %#v", value, value)
}

func fromList(values []int, numDims int) (Raw, error) {
	switch len(values) {
	case numDims:
		return PerDim(values), nil
	case 2 * numDims:
		return PerDimFlat(values), nil
	}
	return nil, poolerr.InvalidArgumentf(
		"padding %v: expected either %d values (one per spatial dimension) or %d values (a [before, after] pair "+
			"per spatial dimension), got %d", values, numDims, 2*numDims, len(values))
}

// Parse a textual padding configuration, as used in command line flags. Spaces are ignored.
//
// Examples for numDims=2:
//
//   - "same", "VALID": a Mode.
//   - "1": a Scalar.
//   - "1,2": a PerDim.
//   - "1,0,2,0": a PerDimFlat.
//   - "[0,0],[0,0],[1,1],[2,2]" or "[[0,0],[0,0],[1,1],[2,2]]": a PerAxisPairs.
func Parse(text string, numDims int) (Raw, error) {
	text = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	if text == "" {
		return nil, poolerr.InvalidArgumentf("empty padding")
	}
	if unicode.IsLetter(rune(text[0])) {
		return Mode(text), nil
	}
	if strings.HasPrefix(text, "[") {
		return parsePairs(text)
	}
	values, err := parseInts(text, text)
	if err != nil {
		return nil, err
	}
	if len(values) == 1 {
		return Scalar(values[0]), nil
	}
	return fromList(values, numDims)
}

func parsePairs(text string) (Raw, error) {
	inner := text
	if strings.HasPrefix(inner, "[[") && strings.HasSuffix(inner, "]]") {
		inner = inner[1 : len(inner)-1]
	}
	if !strings.HasPrefix(inner, "[") || !strings.HasSuffix(inner, "]") {
		return nil, poolerr.InvalidArgumentf("padding %q: malformed list of [before, after] pairs", text)
	}
	parts := strings.Split(inner[1:len(inner)-1], "],[")
	pairs := make(PerAxisPairs, 0, len(parts))
	for _, part := range parts {
		values, err := parseInts(text, part)
		if err != nil {
			return nil, err
		}
		if len(values) != 2 {
			return nil, poolerr.InvalidArgumentf("padding %q: %q is not a [before, after] pair", text, part)
		}
		pairs = append(pairs, [2]int{values[0], values[1]})
	}
	return pairs, nil
}

func parseInts(text, list string) ([]int, error) {
	parts := strings.Split(list, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, poolerr.InvalidArgumentf("padding %q: %q is not an integer", text, part)
		}
		values = append(values, v)
	}
	return values, nil
}
