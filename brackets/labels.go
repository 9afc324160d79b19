package brackets

// Label converts a zero-based bracket position into its display label:
// A..Z, then AA, AB, ... in spreadsheet column order.
func Label(position int) string {
	if position < 0 {
		return ""
	}
	var buf []byte
	for n := position + 1; n > 0; n = (n - 1) / 26 {
		buf = append([]byte{byte('A' + (n-1)%26)}, buf...)
	}
	return string(buf)
}
