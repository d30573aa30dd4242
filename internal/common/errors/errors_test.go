package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name            string
		err             *StandardError
		expectedCode    string
		expectedRetries int
	}{
		{
			name:            "configuration invalid is thrown without retries",
			err:             NewConfigurationInvalidError(fmt.Errorf("weights sum to 0.9")),
			expectedCode:    "RANKING_CONFIGURATION_INVALID",
			expectedRetries: 0,
		},
		{
			name:            "commit failure retries",
			err:             NewSnapshotCommitFailedError(fmt.Errorf("connection reset")),
			expectedCode:    "SNAPSHOT_COMMIT_FAILED",
			expectedRetries: 3,
		},
		{
			name:            "ranking inconsistent carries region",
			err:             NewRankingInconsistentError("region-1", nil),
			expectedCode:    "RANKING_INCONSISTENT",
			expectedRetries: 0,
		},
		{
			name: "unknown code falls back to itself",
			err: &StandardError{
				Code:      "SOMETHING_ELSE",
				Message:   "x",
				Timestamp: time.Now(),
			},
			expectedCode:    "SOMETHING_ELSE",
			expectedRetries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.expectedCode, bpmn.Code)
			assert.Equal(t, tt.expectedRetries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, tt.expectedCode, vars["errorCode"])
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestRankingInconsistentMetadata(t *testing.T) {
	bpmn := ConvertToBPMNError(NewRankingInconsistentError("north", nil))
	assert.Equal(t, "north", bpmn.ToErrorVariables()["regionId"])
}

func TestStandardError_UnwrapAndHasCode(t *testing.T) {
	cause := stderrors.New("pq: relation does not exist")
	wrapped := fmt.Errorf("commit: %w", NewSnapshotCommitFailedError(cause))

	assert.True(t, HasCode(wrapped, ErrCodeSnapshotCommitFailed))
	assert.False(t, HasCode(wrapped, ErrCodeGuardBlocked))
	assert.True(t, stderrors.Is(wrapped, cause))

	se, ok := AsStandard(wrapped)
	require.True(t, ok)
	assert.Equal(t, cause.Error(), se.Details)
}

func TestNormalize(t *testing.T) {
	se := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, se.Code)
	assert.Equal(t, "boom", se.Details)
	assert.False(t, se.Retryable)

	original := NewDataSourceError("postgres", stderrors.New("timeout"))
	assert.Same(t, original, Normalize(original))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CONFIGURATION", GetErrorCategory(ErrCodeConfigurationInvalid))
	assert.Equal(t, "RANKING", GetErrorCategory(ErrCodeSupplierComputationFailed))
	assert.Equal(t, "RANKING", GetErrorCategory(ErrCodeGuardBlocked))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDataSourceFailed))
	assert.Equal(t, "DOWNSTREAM", GetErrorCategory(ErrCodeIndexPublishFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidInput))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeDataSourceFailed))
	assert.True(t, IsRetryableErrorCode(ErrCodeCacheFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeConfigurationInvalid))
	assert.False(t, IsRetryableErrorCode(ErrCodeRankingInconsistent))
}

func TestIsBPMNCode(t *testing.T) {
	assert.True(t, IsBPMNCode("RANKING_CONFIGURATION_INVALID"))
	assert.True(t, IsBPMNCode("GUARD_BLOCKED"))
	assert.True(t, IsBPMNCode("INTERNAL_ERROR"))
	assert.False(t, IsBPMNCode("CONFIGURATION_INVALID"))
	assert.False(t, IsBPMNCode("TIMEOUT"))
}
