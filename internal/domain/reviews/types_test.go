package reviews

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuotaExceededErrorMessage(t *testing.T) {
	err := &QuotaExceededError{Limit: 3, Window: 30 * 24 * time.Hour, Tier: "free"}

	assert.Equal(t, "review limit reached (3 reviews per 30 days on the free tier)", err.Error())
	assert.Equal(t, "Upgrade to Pro for unlimited reviews.", err.UpgradeHint())
}

func TestQuotaExceededNoHintForPaidTiers(t *testing.T) {
	err := &QuotaExceededError{Limit: 3, Window: 30 * 24 * time.Hour, Tier: "team"}

	assert.Empty(t, err.UpgradeHint())
}

func TestQueueValid(t *testing.T) {
	for _, q := range []Queue{QueuePending, QueueFlagged, QueuePublished} {
		assert.True(t, q.Valid(), string(q))
	}
	assert.False(t, Queue("rejected").Valid(), "rejected reviews have no queue")
	assert.False(t, Queue("").Valid())
}
