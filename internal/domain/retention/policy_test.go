package retention

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy(t *testing.T) {
	tenant := uuid.New()

	tests := []struct {
		name       string
		table      string
		action     Action
		conditions map[string]string
		wantErr    bool
	}{
		{"delete audit logs", "audit_logs", ActionDelete, map[string]string{"module": "GL"}, false},
		{"anonymize audit logs", "audit_logs", ActionAnonymize, nil, false},
		{"archive outbox", "outbox_events", ActionArchive, map[string]string{"status": "SENT"}, false},
		{"unknown table", "accounts", ActionDelete, nil, true},
		{"disallowed condition column", "audit_logs", ActionDelete, map[string]string{"tenant_id": "x"}, true},
		{"unknown action", "audit_logs", Action("SHRED"), nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPolicy(tenant, "p", tc.table, "ops", 30, tc.action, tc.conditions, 0, time.Time{})
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultInterval, p.Interval())
			assert.True(t, p.IsActive)
		})
	}
}

func TestPolicy_Scheduling(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p, err := NewPolicy(uuid.New(), "p", "audit_logs", "", 90, ActionDelete, nil, 6, now)
	require.NoError(t, err)

	assert.True(t, p.IsDue(now))
	assert.Equal(t, time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC), p.Cutoff(now))

	p.MarkFailed(now, "boom")
	assert.Equal(t, now, p.NextExecution, "failure leaves next execution unchanged")
	assert.Equal(t, "boom", p.LastError)

	p.MarkSucceeded(now)
	assert.Equal(t, now.Add(6*time.Hour), p.NextExecution)
	assert.Empty(t, p.LastError)
	assert.False(t, p.IsDue(now))
}
