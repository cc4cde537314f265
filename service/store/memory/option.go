package memory

import (
	"github.com/viant/steer/model/review"
	"github.com/viant/steer/service/dao"
	"github.com/viant/steer/service/messaging"
	"github.com/viant/steer/service/store"
)

type Option func(*service)

// WithRecordDAO swaps the backing record DAO - for example the afs-backed
// one from service/dao/review/fs so that in-flight reviews survive restarts.
func WithRecordDAO(records dao.Service[string, review.Record]) Option {
	return func(s *service) { s.records = records }
}

// WithEventQueue replaces the default in-memory lifecycle event queue.
func WithEventQueue(queue messaging.Queue[store.Event]) Option {
	return func(s *service) { s.events = queue }
}
