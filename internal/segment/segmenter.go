package segment

// Segmenter splits extracted text into overlapping chunks bounded by a
// maximum character length. Cut points prefer natural boundaries, tried in
// order: paragraph break, line break, sentence end, word gap, hard cut.
// Splitting is deterministic: the same text always yields the same chunks.
type Segmenter struct {
	chunkSize int
	overlap   int
}

var separators = []string{"\n\n", "\n", ". ", " "}

func New(chunkSize, overlap int) *Segmenter {
	if chunkSize <= 0 {
		chunkSize = 1500
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Segmenter{chunkSize: chunkSize, overlap: overlap}
}

// Split returns the chunk sequence for text. Text no longer than the chunk
// size comes back as a single chunk. Consecutive chunks share exactly
// `overlap` characters, so concatenating chunk[0] with each subsequent
// chunk minus its first `overlap` characters reconstructs the input.
func (s *Segmenter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.chunkSize {
		return []string{text}
	}
	var chunks []string
	start := 0
	for len(runes)-start > s.chunkSize {
		window := runes[start : start+s.chunkSize]
		cut := s.findCut(window)
		chunks = append(chunks, string(runes[start:start+cut]))
		start += cut - s.overlap
	}
	chunks = append(chunks, string(runes[start:]))
	return chunks
}

// findCut picks the split position inside a full-size window. The cut must
// land beyond the overlap so the next chunk makes progress.
func (s *Segmenter) findCut(window []rune) int {
	for _, sep := range separators {
		if at := lastIndexRunes(window, []rune(sep)); at > 0 {
			cut := at + len([]rune(sep))
			if cut > s.overlap {
				return cut
			}
		}
	}
	return len(window)
}

func lastIndexRunes(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
outer:
	for i := len(haystack) - len(needle); i >= 0; i-- {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
