package staging

// SplitSKU splits a raw product code into its base SKU and variant suffix.
//
// The split point is the first run of alphabetic characters. The run is
// accepted as a suffix only when it extends to the end of the string, so the
// base concatenated with the suffix always reconstructs the input:
//
//	SplitSKU("92504")   = ("92504", "")
//	SplitSKU("92504A")  = ("92504", "A")
//	SplitSKU("92504A1") = ("92504A1", "")
//
// Callers uppercase the base; SplitSKU itself performs no case folding.
func SplitSKU(raw string) (base, suffix string) {
	start := -1
	for i, r := range raw {
		if isAlpha(r) {
			start = i
			break
		}
	}
	if start < 0 {
		return raw, ""
	}
	for _, r := range raw[start:] {
		if !isAlpha(r) {
			// Letters followed by more non-letters: not a trailing
			// suffix, the whole string is the base.
			return raw, ""
		}
	}
	return raw[:start], raw[start:]
}

// isAlpha reports whether r is an ASCII letter. SKUs are ASCII in both
// schemas; no locale-sensitive classification is wanted here.
func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
