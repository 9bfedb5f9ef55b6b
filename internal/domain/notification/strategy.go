package notification

import (
	"context"
	"fmt"
	"sort"

	"github.com/FrancoVillarLaz/notifications-service/internal/common"
)

// Strategy defines the contract for a channel-specific delivery
// implementation. Implementations live in infra/channel/.
type Strategy interface {
	// Channel returns the channel this strategy serves.
	Channel() Channel

	// Validate checks the notification against channel-specific
	// preconditions. It performs no I/O.
	Validate(n *Notification) error

	// Send delivers the notification through the external provider. It may
	// block on network I/O; callers bound it with a context deadline.
	Send(ctx context.Context, n *Notification) error
}

// Registry maps channels to their strategies. It is built once during
// process initialization and read-only thereafter.
type Registry struct {
	strategies map[Channel]Strategy
}

// NewRegistry builds a registry from the available strategies. Registering
// two strategies for the same channel is a configuration error.
func NewRegistry(strategies ...Strategy) (*Registry, error) {
	m := make(map[Channel]Strategy, len(strategies))
	for _, s := range strategies {
		ch := s.Channel()
		if _, dup := m[ch]; dup {
			return nil, fmt.Errorf("duplicate strategy registered for channel %s", ch)
		}
		m[ch] = s
	}
	return &Registry{strategies: m}, nil
}

// Resolve returns the strategy for a channel, or ChannelNotSupportedError
// when none is registered.
func (r *Registry) Resolve(ch Channel) (Strategy, error) {
	s, ok := r.strategies[ch]
	if !ok {
		return nil, common.NewChannelNotSupportedError(string(ch))
	}
	return s, nil
}

// IsSupported reports whether a strategy is registered for the channel.
func (r *Registry) IsSupported(ch Channel) bool {
	_, ok := r.strategies[ch]
	return ok
}

// SupportedChannels returns the registered channels in stable order.
func (r *Registry) SupportedChannels() []Channel {
	channels := make([]Channel, 0, len(r.strategies))
	for ch := range r.strategies {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	return channels
}
