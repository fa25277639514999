package ntv

// Display text is stored for external inspection as three fixed 32-byte
// segments plus the total encoded length. Segments past the used length
// read as zero bytes.
const (
	textSegments    = 3
	textSegmentSize = 32
	textCapacity    = textSegments * textSegmentSize
)

// packText splits s into three 32-byte segments and returns them together
// with the encoded byte length. Inputs longer than the capacity are
// truncated; callers enforce the configured limit before storing.
func packText(s string) ([textSegments][textSegmentSize]byte, int) {
	var segs [textSegments][textSegmentSize]byte

	b := []byte(s)
	n := len(b)
	if n > textCapacity {
		n = textCapacity
	}
	for i := 0; i < n; i += textSegmentSize {
		end := i + textSegmentSize
		if end > n {
			end = n
		}
		copy(segs[i/textSegmentSize][:], b[i:end])
	}
	return segs, len(s)
}
