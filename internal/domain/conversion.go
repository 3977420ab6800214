package domain

import "strings"

// ConversionHop is one leg of a configured conversion path. A reversed hop
// divides by the leg's rate instead of multiplying.
type ConversionHop struct {
	BaseCurrencyID  string
	QuoteCurrencyID string
	Reversed        bool
}

// ConversionPaths maps "base/quote" currency pairs to the ordered hops used
// to derive a rate when no direct market exists.
type ConversionPaths map[string][]ConversionHop

// PairKey builds the lookup key for a currency pair.
func PairKey(baseCurrencyID, quoteCurrencyID string) string {
	return baseCurrencyID + "/" + quoteCurrencyID
}

// ParseConversionPaths parses the conversion-path grammar
// "A/B:X/Y,_Y/Z;C/D:...". Each path maps a currency pair to comma-separated
// legs; a leading underscore marks a reversed leg. Malformed input returns a
// ConfigParseError.
func ParseConversionPaths(s string) (ConversionPaths, error) {
	paths := ConversionPaths{}
	if s == "" {
		return paths, nil
	}

	for _, path := range strings.Split(s, ";") {
		if strings.Count(path, ":") != 1 {
			return nil, &ConfigParseError{Input: path, Reason: "path must contain exactly one ':'"}
		}

		pair, legs, _ := strings.Cut(path, ":")
		if pair == "" || strings.Count(pair, "/") != 1 {
			return nil, &ConfigParseError{Input: path, Reason: "pair must be of the form base/quote"}
		}

		var hops []ConversionHop
		for _, leg := range strings.Split(legs, ",") {
			operands := strings.Split(leg, "/")
			if len(operands) != 2 {
				return nil, &ConfigParseError{Input: leg, Reason: "leg must be of the form base/quote"}
			}

			base, quote := operands[0], operands[1]
			reversed := false
			if strings.HasPrefix(base, "_") {
				reversed = true
				base = base[1:]
			}
			if base == "" || quote == "" {
				return nil, &ConfigParseError{Input: leg, Reason: "leg operands must be non-empty"}
			}

			hops = append(hops, ConversionHop{BaseCurrencyID: base, QuoteCurrencyID: quote, Reversed: reversed})
		}

		paths[pair] = hops
	}

	return paths, nil
}
