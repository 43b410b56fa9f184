package mqtt

import "github.com/sweeney/cell-charger/internal/logic"

// NopPublisher discards everything. It is used when no broker is configured.
type NopPublisher struct{}

var (
	_ Publisher        = NopPublisher{}
	_ ConnectionStatus = NopPublisher{}
)

func (NopPublisher) Publish(logic.Event) error       { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }
