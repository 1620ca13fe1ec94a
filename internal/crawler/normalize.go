package crawler

// trailingChars are the characters stripped from the end of a URL.
const trailingChars = "/#?"

// NormalizeURL strips exactly one trailing '/', '#' or '?' from a URL.
//
// Design decision: We deliberately do nothing else. Case, query parameter
// order and fragments are left alone, so two URLs are the same page only if
// they are byte-for-byte equal after this single strip. Smarter
// canonicalization would change which pages the crawler considers distinct.
func NormalizeURL(raw string) string {
	n := len(raw)
	if n == 0 {
		return raw
	}
	for i := 0; i < len(trailingChars); i++ {
		if raw[n-1] == trailingChars[i] {
			return raw[:n-1]
		}
	}
	return raw
}
