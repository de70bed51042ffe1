package retention

// Target describes a table the executor is allowed to touch
type Target struct {
	Table           string
	KeyColumn       string
	TenantColumn    string
	TimestampColumn string
	// PIIColumns maps each column to the value written on anonymize; nil writes NULL
	PIIColumns       map[string]any
	ConditionColumns []string
}

// AllowsCondition reports whether col may be used in policy conditions
func (t Target) AllowsCondition(col string) bool {
	for _, c := range t.ConditionColumns {
		if c == col {
			return true
		}
	}
	return false
}

var targets = map[string]Target{
	"audit_logs": {
		Table:           "audit_logs",
		KeyColumn:       "id",
		TenantColumn:    "tenant_id",
		TimestampColumn: "created_at",
		PIIColumns: map[string]any{
			"actor_id":       nil,
			"before_data":    nil,
			"after_data":     nil,
			"correlation_id": "anonymized",
		},
		ConditionColumns: []string{"module", "action", "resource_type"},
	},
	"outbox_events": {
		Table:            "outbox_events",
		KeyColumn:        "id",
		TenantColumn:     "tenant_id",
		TimestampColumn:  "created_at",
		PIIColumns:       map[string]any{"payload": "{}", "last_error": ""},
		ConditionColumns: []string{"status", "event_type", "aggregate_type"},
	},
	"retention_executions": {
		Table:            "retention_executions",
		KeyColumn:        "id",
		TenantColumn:     "tenant_id",
		TimestampColumn:  "started_at",
		PIIColumns:       map[string]any{"error": ""},
		ConditionColumns: []string{"status"},
	},
	"archived_records": {
		Table:            "archived_records",
		KeyColumn:        "id",
		TenantColumn:     "tenant_id",
		TimestampColumn:  "archived_at",
		PIIColumns:       map[string]any{"payload": "{}"},
		ConditionColumns: []string{"source_table"},
	},
}

// LookupTarget returns the registered target for table
func LookupTarget(table string) (Target, bool) {
	t, ok := targets[table]
	return t, ok
}

// Targets lists the registered table names
func Targets() []string {
	out := make([]string, 0, len(targets))
	for name := range targets {
		out = append(out, name)
	}
	return out
}
