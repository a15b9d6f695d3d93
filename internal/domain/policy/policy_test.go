package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/heraldhq/herald/internal/domain/event"
)

func TestDefault(t *testing.T) {
	p := Default()
	assert.True(t, p.Enabled)
	assert.True(t, p.Channels.Email)
	assert.True(t, p.Channels.Chat)
	assert.False(t, p.QuietHours.Enabled)
	assert.False(t, p.Digest.Enabled)
	assert.Equal(t, CadenceHourly, p.Digest.Cadence)
	assert.Equal(t, 9, p.Digest.DailyHourLocal)
}

func TestRule_UnknownTypeInheritsTenantChannels(t *testing.T) {
	p := Default()
	p.Channels = Channels{Email: true, Chat: false}

	r := p.Rule(event.SecurityAlert)
	assert.True(t, r.Immediate)
	assert.False(t, r.Digest)
	assert.Equal(t, p.Channels, r.Channels)
}

func TestRule_ConfiguredTypeWins(t *testing.T) {
	p := Default()
	p.Events[event.TicketCommented] = EventRule{Immediate: false, Digest: true, Channels: Channels{Email: true}}

	r := p.Rule(event.TicketCommented)
	assert.False(t, r.Immediate)
	assert.True(t, r.Digest)
}
