package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultStatusPredicates(t *testing.T) {
	ok := Result{Status: StatusSuccess}
	assert.True(t, ok.IsSuccess())
	assert.False(t, ok.IsError())
	assert.False(t, ok.IsSkipped())
	assert.True(t, ok.Cacheable())

	errRes := ErrorResult("foto.jpg", "abc", "timeout")
	assert.Equal(t, "Erro: timeout", errRes.Status)
	assert.True(t, errRes.IsError())
	assert.False(t, errRes.Cacheable())

	skipped := SkippedResult("foto.jpg", "abc", SkipReasonCreditLimit)
	assert.Equal(t, "Ignorado: limite de créditos", skipped.Status)
	assert.True(t, skipped.IsSkipped())
	assert.False(t, skipped.Cacheable())
}

func TestResultRebind(t *testing.T) {
	orig := Result{Filename: "a.jpg", Hash: "h1", Status: StatusSuccess, Discipline: "DRENAGEM"}
	bound := orig.Rebind("b.jpg")

	assert.Equal(t, "b.jpg", bound.Filename)
	assert.Equal(t, "h1", bound.Hash)
	assert.Equal(t, "DRENAGEM", bound.Discipline)
	// Original untouched.
	assert.Equal(t, "a.jpg", orig.Filename)
}
