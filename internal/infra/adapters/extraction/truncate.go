package extraction

import (
	"github.com/pkoukk/tiktoken-go"
)

// Truncate bounds document content to maxTokens before it is submitted
// for extraction, counting with the model's tokenizer. The extraction
// prompt tells the model to tolerate a torn tail. Returns the (possibly
// shortened) text and whether anything was cut.
func Truncate(text, model string, maxTokens int) (string, bool) {
	if maxTokens <= 0 {
		return text, false
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			// No tokenizer available: fall back to a generous byte cap
			// (~4 bytes per token).
			limit := maxTokens * 4
			if len(text) <= limit {
				return text, false
			}
			return text[:limit], true
		}
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, false
	}
	return enc.Decode(tokens[:maxTokens]), true
}
