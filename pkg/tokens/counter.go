package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used when no model-specific encoding can be resolved.
const DefaultEncoding = "cl100k_base"

// Counter maps text to a token count. Implementations must be pure and
// deterministic: the same text always yields the same count.
type Counter interface {
	Count(text string) int
	Name() string
}

// TiktokenCounter counts tokens with a real BPE encoding. Initialization
// can fail (the encoding tables are loaded lazily), so construction
// returns an error and callers fall back to EstimatingCounter.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTiktokenCounter resolves the encoding for the given model, falling
// back to the default encoding for unknown models.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		fallback, fallbackErr := tiktoken.GetEncoding(DefaultEncoding)
		if fallbackErr != nil {
			return nil, fmt.Errorf("get encoding: %w", fallbackErr)
		}
		encoding = fallback
	}

	return &TiktokenCounter{encoding: encoding, name: "tiktoken/" + model}, nil
}

// NewEncodingCounter builds a counter for an explicit encoding name such
// as cl100k_base or o200k_base.
func NewEncodingCounter(encodingName string) (*TiktokenCounter, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("get encoding %s: %w", encodingName, err)
	}
	return &TiktokenCounter{encoding: encoding, name: "tiktoken/" + encodingName}, nil
}

// Count implements Counter
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// Name implements Counter
func (c *TiktokenCounter) Name() string {
	return c.name
}

// EstimatingCounter approximates tokens from byte length. English text
// and source code average roughly four bytes per token, which is close
// enough for planning when no real encoding is available.
type EstimatingCounter struct {
	BytesPerToken int
}

// NewEstimatingCounter creates an estimating counter with the standard ratio
func NewEstimatingCounter() *EstimatingCounter {
	return &EstimatingCounter{BytesPerToken: 4}
}

// Count implements Counter with a ceiling division so short non-empty
// strings never count as zero.
func (c *EstimatingCounter) Count(text string) int {
	if len(text) == 0 {
		return 0
	}
	per := c.BytesPerToken
	if per <= 0 {
		per = 4
	}
	return (len(text) + per - 1) / per
}

// Name implements Counter
func (c *EstimatingCounter) Name() string {
	return "estimate"
}

var (
	_ Counter = (*TiktokenCounter)(nil)
	_ Counter = (*EstimatingCounter)(nil)
)

// NewCounter returns the best available counter for the model: tiktoken
// when its tables load, estimation otherwise.
func NewCounter(model string) Counter {
	if counter, err := NewTiktokenCounter(model); err == nil {
		return counter
	}
	return NewEstimatingCounter()
}
