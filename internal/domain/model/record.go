// Package model contains domain models passed between layers.
package model

import "encoding/json"

// RawRecord is a raw telemetry snapshot pushed by an upstream collector.
// Fields mirror the raw_ingest table.
type RawRecord struct {
	ID           int64           // assigned by storage
	RecordID     string          // optional client id used for batch idempotency
	Source       string          // e.g. "wb"
	Kind         string          // e.g. "ads_stats", "sales_funnel", "search_queries"
	ShopID       string          // optional shop identifier
	OccurredAtMS int64           // sender timestamp in unix ms; receive time when absent
	ReceivedAtMS int64           // server receive timestamp in unix ms
	Payload      json.RawMessage // opaque JSON object stored as JSONB
}

// ChangeEvent records a state change applied to an ad campaign.
// Fields mirror the ad_change_events table.
type ChangeEvent struct {
	ID           int64
	ShopID       string
	CampaignID   string
	Action       string // one of the Action* constants
	Actor        string // e.g. "n8n", "ui", "system"
	OccurredAtMS int64
	Meta         json.RawMessage
}

// Campaign actions accepted by the change-event endpoint.
const (
	ActionEnable   = "enable"
	ActionDisable  = "disable"
	ActionBidSet   = "bid_set"
	ActionKwAdd    = "kw_add"
	ActionKwRemove = "kw_remove"
)

// validActions is the closed set of accepted campaign actions.
var validActions = map[string]struct{}{
	ActionEnable:   {},
	ActionDisable:  {},
	ActionBidSet:   {},
	ActionKwAdd:    {},
	ActionKwRemove: {},
}

// IsValidAction reports whether action belongs to the accepted set.
func IsValidAction(action string) bool {
	_, ok := validActions[action]
	return ok
}

// Actions returns the accepted campaign actions. The slice is a copy.
func Actions() []string {
	return []string{ActionEnable, ActionDisable, ActionBidSet, ActionKwAdd, ActionKwRemove}
}
