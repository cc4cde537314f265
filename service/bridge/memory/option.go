package memory

import (
	"github.com/viant/steer/service/bridge"
	"github.com/viant/steer/service/messaging"
)

type Option func(*service)

// WithSignalQueue replaces the default in-memory signal queue - e.g. with
// the afs-backed one so that undelivered signals survive a restart.
func WithSignalQueue(queue messaging.Queue[bridge.Signal]) Option {
	return func(s *service) { s.signals = queue }
}
