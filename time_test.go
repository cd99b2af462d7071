package approval_test

import (
	"testing"
	"time"

	approval "github.com/goliatone/go-user-approval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOutsideThresholdPeriod(t *testing.T) {
	outside, err := approval.IsOutsideThresholdPeriod(time.Now().Add(-48*time.Hour), "24h")
	require.NoError(t, err)
	assert.True(t, outside)

	outside, err = approval.IsOutsideThresholdPeriod(time.Now().Add(-time.Hour), "24h")
	require.NoError(t, err)
	assert.False(t, outside)
}

func TestIsOutsideThresholdPeriodInvalidDuration(t *testing.T) {
	_, err := approval.IsOutsideThresholdPeriod(time.Now(), "one day")
	require.Error(t, err)
}
