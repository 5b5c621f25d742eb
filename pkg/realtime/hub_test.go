package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg/views"
	"github.com/stretchr/testify/assert"
)

func TestFilterMatch(t *testing.T) {
	owner := uuid.New()
	ev := views.ChangeEvent{Table: "accounts", Action: views.ActionUpdate, RecordID: uuid.New(), UserID: owner}

	assert.True(t, Filter{UserID: owner}.Match(ev))
	assert.False(t, Filter{UserID: uuid.New()}.Match(ev))
	assert.True(t, Filter{UserID: uuid.New(), IsAdmin: true}.Match(ev))

	onlyTransfers := map[string]struct{}{"transfers": {}}
	assert.False(t, Filter{UserID: owner, Tables: onlyTransfers}.Match(ev))
	assert.False(t, Filter{IsAdmin: true, Tables: onlyTransfers}.Match(ev))
	ev.Table = "transfers"
	assert.True(t, Filter{UserID: owner, Tables: onlyTransfers}.Match(ev))
}
