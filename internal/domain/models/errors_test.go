package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{400, false},
		{401, false},
		{403, false},
		{413, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := fmt.Errorf("upload: %w", ClassifyStatus("upload", tt.status, "x"))
			assert.Equal(t, tt.transient, errors.Is(err, ErrTransientRemote))
			assert.Equal(t, !tt.transient, errors.Is(err, ErrPermanentRemote))
		})
	}
}

func TestBatchFailedErrorUnwraps(t *testing.T) {
	err := &BatchFailedError{BatchID: "b1", Group: "ticker", Cause: ErrCancelled}
	assert.ErrorIs(t, err, ErrBatchFailed)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Contains(t, err.Error(), "b1")
}

func TestPartialAggregationError(t *testing.T) {
	var err error = &PartialAggregationError{Omitted: []string{"fiat.EUR", "erc20.OMG"}}
	assert.ErrorIs(t, err, ErrPartialAggregation)
	assert.EqualError(t, err, "partial aggregation: omitted fiat.EUR,erc20.OMG")
}
