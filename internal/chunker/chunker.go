package chunker

import (
	"fmt"
	"strings"

	"docchat/internal/util"
)

// Piece is one chunk of source text together with its rune offsets
// [Start, End) into the original document.
type Piece struct {
	Text  string
	Start int
	End   int
}

// separators in preference order: paragraph, line, sentence, word.
// A hard character cut is the final fallback.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune(" "),
}

// Split cuts text into consecutive windows of at most chunkSize runes where
// adjacent windows share overlap runes. Cuts land after the largest natural
// separator available inside the window. Same input always yields the same
// pieces.
func Split(text string, chunkSize, overlap int) ([]Piece, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", util.ErrInvalidArgument, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, chunk size), got %d", util.ErrInvalidArgument, overlap)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	pieces := make([]Piece, 0, len(runes)/chunkSize+1)
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			appendPiece(&pieces, runes, start, len(runes))
			break
		}

		cut := end
		for _, sep := range separators {
			if idx := lastSeparator(runes[start:end], sep); idx >= 0 {
				candidate := start + idx + len(sep)
				// The cut must clear the overlap region or the next
				// window would not advance.
				if candidate-start > overlap {
					cut = candidate
					break
				}
			}
		}

		appendPiece(&pieces, runes, start, cut)
		start = cut - overlap
	}
	return pieces, nil
}

func appendPiece(pieces *[]Piece, runes []rune, start, end int) {
	text := string(runes[start:end])
	if strings.TrimSpace(text) == "" {
		return
	}
	*pieces = append(*pieces, Piece{Text: text, Start: start, End: end})
}

// lastSeparator returns the rune index of the last occurrence of sep in
// window such that sep fits entirely inside it, or -1.
func lastSeparator(window, sep []rune) int {
	for i := len(window) - len(sep); i >= 0; i-- {
		match := true
		for j := range sep {
			if window[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
