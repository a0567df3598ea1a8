package research

import "strings"

// Chunking parameters for fetched page bodies. Tokens are approximated as
// whitespace-delimited words.
const (
	ChunkTokens  = 900
	ChunkOverlap = 120
	MaxChunks    = 8
)

// ChunkText splits body text into overlapping windows. Returns at most
// MaxChunks chunks; short texts yield a single chunk.
func ChunkText(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= ChunkTokens {
		return []string{strings.Join(words, " ")}
	}

	stride := ChunkTokens - ChunkOverlap
	var chunks []string
	for start := 0; start < len(words) && len(chunks) < MaxChunks; start += stride {
		end := start + ChunkTokens
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
