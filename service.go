package steer

import (
	"context"
	"net/http"
	"path"
	"time"

	"github.com/viant/steer/model/review"
	"github.com/viant/steer/progress"
	"github.com/viant/steer/service/bridge"
	bmemory "github.com/viant/steer/service/bridge/memory"
	"github.com/viant/steer/service/dao"
	dstore "github.com/viant/steer/service/dao/store"
	"github.com/viant/steer/service/engine"
	"github.com/viant/steer/service/event"
	"github.com/viant/steer/service/messaging"
	qfs "github.com/viant/steer/service/messaging/fs"
	"github.com/viant/steer/service/protocol"
	"github.com/viant/steer/service/store"
	smemory "github.com/viant/steer/service/store/memory"
)

// Service is the embeddable façade wiring the review store, signal bridge,
// protocol handler and the optional in-process engine.
type Service struct {
	config *Config

	store    store.Service
	bridge   bridge.Service
	handler  *protocol.Handler
	engine   *engine.Service
	events   *event.Service
	progress *progress.Progress

	planner  engine.Planner
	executor engine.Executor

	recordDAO dao.Service[string, review.Record]
	taskDAO   dao.Service[string, engine.Task]

	queueVendor   messaging.Vendor
	archiveOnDone bool
	engineOptions []engine.Option
	storeOptions  []smemory.Option
	bridgeOptions []bmemory.Option
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if err := s.ensureBaseSetup(); err != nil {
		return err
	}

	if s.store == nil {
		storeOptions := s.storeOptions
		if s.recordDAO != nil {
			storeOptions = append(storeOptions, smemory.WithRecordDAO(s.recordDAO))
		}
		s.store = smemory.New(storeOptions...)
	}
	if s.bridge == nil {
		s.bridge = bmemory.New(s.store, s.bridgeOptions...)
	}
	s.handler = protocol.New(s.store, s.bridge,
		protocol.WithFeedbackTimeout(time.Duration(s.config.Review.FeedbackTimeoutMs)*time.Millisecond))

	if s.planner != nil {
		engineOptions := append([]engine.Option{
			engine.WithBridge(s.bridge),
			engine.WithReviewStore(s.store),
			engine.WithTaskDAO(s.taskDAO),
			engine.WithPlanner(s.planner),
			engine.WithWorkers(s.config.Engine.WorkerCount),
			engine.WithProgress(s.progress),
			engine.WithEvents(s.events),
			engine.WithArchiveOnCompletion(s.archiveOnDone),
		}, s.engineOptions...)
		if s.executor != nil {
			engineOptions = append(engineOptions, engine.WithExecutor(s.executor))
		}
		var err error
		if s.engine, err = engine.New(engineOptions...); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ensureBaseSetup() error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	s.config.applyDefaults()
	if s.queueVendor == "" {
		s.queueVendor = messaging.Vendor(s.config.Review.QueueVendor)
	}
	if s.taskDAO == nil {
		s.taskDAO = dstore.NewMemoryStore[string, engine.Task](func(t *engine.Task) string { return t.ID })
	}
	if s.progress == nil {
		s.progress = progress.New()
	}
	if s.events == nil {
		var eventOptions []event.Option
		if s.queueVendor == messaging.VendorFs {
			eventOptions = append(eventOptions, event.WithNewFsQueueConfig(func(name string) qfs.Config {
				config := qfs.DefaultConfig()
				config.BaseURL = path.Join(config.BaseURL, "events", name)
				return config
			}))
		}
		var err error
		if s.events, err = event.New(s.queueVendor, eventOptions...); err != nil {
			return err
		}
	}
	return nil
}

// New creates a service.  Without a planner the façade runs store, bridge
// and handler only - the host delivers signals to its own workflow engine
// through the bridge contract.
func New(options ...Option) *Service {
	ret := &Service{}
	if err := ret.init(options); err != nil {
		panic(err) // misconfiguration is a programming error
	}
	return ret
}

// Start launches the engine signal workers (when an engine is configured).
func (s *Service) Start(ctx context.Context) error {
	if s.engine == nil {
		return nil
	}
	return s.engine.Start(ctx)
}

// Shutdown stops the engine workers.
func (s *Service) Shutdown(_ context.Context) error {
	if s.engine != nil {
		s.engine.Shutdown()
	}
	return nil
}

// Handler returns the HTTP surface ready to mount.
func (s *Service) Handler() http.Handler { return s.handler }

// Store returns the review state store.
func (s *Service) Store() store.Service { return s.store }

// Bridge returns the workflow signal bridge.
func (s *Service) Bridge() bridge.Service { return s.bridge }

// Engine returns the in-process engine or nil when the host brings its own.
func (s *Service) Engine() *engine.Service { return s.engine }

// Events returns the lifecycle event hub.
func (s *Service) Events() *event.Service { return s.events }

// Progress returns the aggregated task counters.
func (s *Service) Progress() *progress.Progress { return s.progress }

// Submit is a convenience passthrough to the in-process engine.
func (s *Service) Submit(ctx context.Context, task *engine.Task) error {
	if s.engine == nil {
		return errEngineNotConfigured
	}
	return s.engine.Submit(ctx, task)
}
