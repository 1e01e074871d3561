package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	e := New(ErrCodeCorpusEmpty, "no historical datasets loaded")
	assert.Equal(t, "[CORPUS_002] no historical datasets loaded", e.Error())

	withDetail := e.WithDetail("datasets=[]")
	assert.Equal(t, "[CORPUS_002] no historical datasets loaded: datasets=[]", withDetail.Error())
	// Original untouched.
	assert.Empty(t, e.Detail)
}

func TestAppError_NilReceivers(t *testing.T) {
	var e *AppError
	assert.Nil(t, e.WithDetail("x"))
	assert.Nil(t, e.WithCause(stderrors.New("boom")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeDatabaseError, "never happens"))

	cause := stderrors.New("connection refused")
	e := Wrap(cause, ErrCodeDatabaseError, "failed to load corpus")
	require.NotNil(t, e)
	assert.Equal(t, ErrCodeDatabaseError, e.Code)
	assert.True(t, stderrors.Is(e, cause))
}

func TestWrap_PreservesOriginalCode(t *testing.T) {
	inner := New(ErrCodeEngineWeightsInvalid, "weights sum to 0.9")
	outer := Wrap(inner, ErrCodeInternal, "engine construction failed")
	assert.Equal(t, ErrCodeEngineWeightsInvalid, outer.Code)
}

func TestIsCode(t *testing.T) {
	e := fmt.Errorf("handler: %w", New(ErrCodeEngineQueryEmpty, "all query fields empty"))
	assert.True(t, IsCode(e, ErrCodeEngineQueryEmpty))
	assert.False(t, IsCode(e, ErrCodeNotFound))
	assert.False(t, IsCode(nil, ErrCodeNotFound))
}

func TestIsConfiguration(t *testing.T) {
	assert.True(t, IsConfiguration(New(ErrCodeEngineWeightsInvalid, "bad weights")))
	assert.True(t, IsConfiguration(New(ErrCodeEngineThresholdInvalid, "bad threshold")))
	assert.True(t, IsConfiguration(New(ErrCodeConfigInvalid, "bad config")))
	assert.False(t, IsConfiguration(New(ErrCodeValidation, "empty query")))
	assert.False(t, IsConfiguration(stderrors.New("plain")))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(New(ErrCodeValidation, "x")))
	assert.True(t, IsValidation(New(ErrCodeEngineQueryEmpty, "x")))
	assert.False(t, IsValidation(New(ErrCodeDatabaseError, "x")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrorCode("OK"), GetCode(nil))
	assert.Equal(t, ErrCodeCacheError, GetCode(New(ErrCodeCacheError, "x")))
	assert.Equal(t, ErrCodeInternal, GetCode(stderrors.New("plain")))
}

func TestErrorCode_IsConfiguration(t *testing.T) {
	assert.True(t, ErrCodeConfigInvalid.IsConfiguration())
	assert.False(t, ErrCodeCorpusLoadFailed.IsConfiguration())
}
