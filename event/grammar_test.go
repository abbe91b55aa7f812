package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	s, tok, md := NewStatus("s"), NewToken("t"), NewMetadata(map[string]any{})
	done, fail := NewDone("d"), NewError(CodeInternal, "e", nil)

	valid := map[string][]Event{
		"done only":             {done},
		"error only":            {fail},
		"full":                  {s, s, tok, tok, md, done},
		"no metadata":           {s, tok, done},
		"metadata without text": {s, md, done},
		"status then error":     {s, s, fail},
	}
	for name, seq := range valid {
		t.Run("valid/"+name, func(t *testing.T) {
			assert.NoError(t, Validate(seq))
		})
	}

	invalid := map[string][]Event{
		"empty":                {},
		"no terminal":          {s, tok},
		"status after token":   {tok, s, done},
		"token after metadata": {md, tok, done},
		"duplicate metadata":   {tok, md, md, done},
		"both terminals":       {tok, done, fail},
		"event after done":     {done, tok},
		"unknown kind":         {{Kind: "bogus"}, done},
	}
	for name, seq := range invalid {
		t.Run("invalid/"+name, func(t *testing.T) {
			assert.ErrorIs(t, Validate(seq), ErrGrammar)
		})
	}
}
