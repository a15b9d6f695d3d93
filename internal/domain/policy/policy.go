package policy

import (
	"github.com/heraldhq/herald/internal/domain/event"
)

type Cadence string

const (
	CadenceHourly Cadence = "hourly"
	CadenceDaily  Cadence = "daily"
)

type Channels struct {
	Email bool `json:"email"`
	Chat  bool `json:"chat"`
}

// QuietHours is a per-tenant local-time window during which non-critical
// immediate sends are withheld. StartHour > EndHour wraps past midnight;
// StartHour == EndHour means the whole day is quiet.
type QuietHours struct {
	Enabled               bool `json:"enabled"`
	StartHour             int  `json:"start_hour"`
	EndHour               int  `json:"end_hour"`
	TimezoneOffsetMinutes int  `json:"timezone_offset_minutes"`
}

type Digest struct {
	Enabled        bool    `json:"enabled"`
	Cadence        Cadence `json:"cadence"`
	DailyHourLocal int     `json:"daily_hour_local"`
}

type EventRule struct {
	Immediate bool     `json:"immediate"`
	Digest    bool     `json:"digest"`
	Channels  Channels `json:"channels"`
}

// NotificationPolicy is the per-tenant delivery configuration. The engine
// loads it fresh on every dispatch so edits take effect immediately.
type NotificationPolicy struct {
	Enabled    bool                     `json:"enabled"`
	Channels   Channels                 `json:"channels"`
	QuietHours QuietHours               `json:"quiet_hours"`
	Digest     Digest                   `json:"digest"`
	Events     map[event.Type]EventRule `json:"events"`
}

// Default returns the policy applied to tenants with no stored
// configuration: everything enabled, immediate email for every event,
// digests off, no quiet hours.
func Default() *NotificationPolicy {
	return &NotificationPolicy{
		Enabled:  true,
		Channels: Channels{Email: true, Chat: true},
		Digest:   Digest{Cadence: CadenceHourly, DailyHourLocal: 9},
		Events:   map[event.Type]EventRule{},
	}
}

// Rule resolves the effective rule for an event type. Unknown types inherit
// the tenant's channel settings with immediate delivery on.
func (p *NotificationPolicy) Rule(t event.Type) EventRule {
	if r, ok := p.Events[t]; ok {
		return r
	}
	return EventRule{Immediate: true, Digest: false, Channels: p.Channels}
}
