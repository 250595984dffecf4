// Package tokens estimates prompt token counts for diagnostics. Estimates
// are logged next to the backend's reported usage; they never gate a
// request.
package tokens

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Estimator counts tokens with a tiktoken codec. The codec is loaded
// lazily and cached; loading involves parsing the BPE vocabulary.
type Estimator struct {
	encoding tokenizer.Encoding

	mu    sync.Mutex
	codec tokenizer.Codec
}

// NewEstimator creates an estimator over the cl100k_base encoding, a
// reasonable proxy across current chat models.
func NewEstimator() *Estimator {
	return &Estimator{encoding: tokenizer.Cl100kBase}
}

// Estimate returns the token count of text.
func (e *Estimator) Estimate(text string) (int, error) {
	codec, err := e.getCodec()
	if err != nil {
		return 0, err
	}

	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("failed to encode text: %w", err)
	}
	return len(ids), nil
}

func (e *Estimator) getCodec() (tokenizer.Codec, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.codec != nil {
		return e.codec, nil
	}

	codec, err := tokenizer.Get(e.encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer encoding: %w", err)
	}
	e.codec = codec
	return codec, nil
}
