package observability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCollector(t *testing.T) {
	mc := NewMetricsCollector()

	mc.StartTransaction("tx_1", "sqlite3")
	mc.StartTransaction("tx_2", "sqlite3")
	mc.StartTransaction("tx_3", "sqlite3")

	active := mc.Active("tx_2")
	if assert.NotNil(t, active) {
		assert.Equal(t, "active", active.Status)
		assert.Equal(t, "sqlite3", active.Dialect)
	}

	mc.CommitTransaction("tx_1")
	mc.RollbackTransaction("tx_2", errors.New("insert failed"))
	mc.FailTransaction("tx_3", errors.New("commit failed"))

	stats := mc.Stats()
	assert.Equal(t, int64(0), stats.Active)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Committed)
	assert.Equal(t, int64(1), stats.RolledBack)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Nil(t, mc.Active("tx_2"))
}
