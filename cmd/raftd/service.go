package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/galdor/go-log"
	"github.com/galdor/go-program"
	"github.com/galdor/go-service/pkg/service"
	"golang.org/x/sync/errgroup"

	"github.com/quorumkv/raft/internal/driver"
	"github.com/quorumkv/raft/internal/kv"
	"github.com/quorumkv/raft/internal/publish"
	"github.com/quorumkv/raft/internal/store"
	"github.com/quorumkv/raft/internal/transport"
	"github.com/quorumkv/raft/pkg/raft"
)

// Service wires every piece of a running node into one process: a
// go-service-managed lifecycle (InitProgram/DefaultCfg/ValidateCfg/
// ServiceCfg/Init/Start/Stop/Terminate) around a raft Node and its ambient
// machinery.
type Service struct {
	Cfg     ServiceCfg
	Program *program.Program
	Service *service.Service
	Log     *log.Logger

	selfId raft.NodeId

	nodeState *store.NodeState
	node      *raft.Node
	loop      *driver.Loop

	kvStore  *kv.Store
	applier  *kv.Applier
	commits  *publish.Publisher
	events   *transport.EventBroadcaster
	client   *transport.Client
	listener net.Listener
	server   *http.Server

	// group supervises the loop-run and HTTP-serve goroutines, so a failure
	// in either reaches the service's error channel without a dedicated
	// done-channel per goroutine.
	group *errgroup.Group
}

func NewService() *Service {
	return &Service{}
}

func (s *Service) InitProgram(p *program.Program) {
	s.Program = p

	p.AddArgument("id", "the server identifier")
}

func (s *Service) DefaultCfg() interface{} {
	s.Cfg.Raft = DefaultRaftCfg()
	return &s.Cfg
}

func (s *Service) ValidateCfg() error {
	return nil
}

func (s *Service) ServiceCfg() *service.ServiceCfg {
	return &s.Cfg.Service
}

func (s *Service) Init(ss *service.Service) error {
	s.Service = ss
	s.Log = ss.Log

	s.selfId = raft.NodeId(s.Program.ArgumentValue("id"))

	selfInfo, found := s.Cfg.Raft.Servers[s.selfId]
	if !found {
		return fmt.Errorf("unknown server id %q", s.selfId)
	}

	nodeLogger := s.Log.Child("raft", log.Data{"id": string(s.selfId)})

	nodeState, err := store.Load(s.Cfg.Raft.DataDirectory)
	if err != nil {
		return fmt.Errorf("cannot load node state: %w", err)
	}
	s.nodeState = nodeState

	s.kvStore = kv.NewStore()
	s.commits = publish.NewPublisher()
	s.events = transport.NewEventBroadcaster()
	s.applier = kv.NewApplier(s.kvStore, func(coords raft.LogCoords, err error) {
		s.Log.Error("cannot apply committed entry at %v: %v", coords, err)
	})

	callbacks := driver.MultiCallbacks{s.applier, s.commits, s.events}

	peers := make([]raft.NodeId, 0, len(s.Cfg.Raft.Servers)-1)
	for id := range s.Cfg.Raft.Servers {
		if id != s.selfId {
			peers = append(peers, id)
		}
	}

	s.client = transport.NewClient(s.selfId, s.Cfg.Raft.Servers, nodeLogger)

	// The Loop and the Node each need a reference to the other: the Node's
	// timers post back onto the Loop, and the Loop dispatches inputs to the
	// Node. Construct the Loop first with a nil Node and attach the Node
	// once it exists.
	s.loop = driver.NewLoop(nil, func(value interface{}) {
		s.Log.Error("recovered panic in raft loop: %s\n%s",
			raft.RecoverValueString(value), raft.StackTrace(32))
		os.Exit(1)
	})

	s.node = raft.NewNode(raft.Cfg{
		Id:      s.selfId,
		Cluster: raft.NewClusterView(peers...),

		Log:             s.nodeState.Log,
		PersistentState: s.nodeState.PersistentState,
		Timers: raft.NewTimers(
			driver.NewSerialTimer(s.loop), driver.NewSerialTimer(s.loop),
			raft.TimeoutRange{
				Min: s.Cfg.Raft.MinElectionTimeout.Duration(),
				Max: s.Cfg.Raft.MaxElectionTimeout.Duration(),
			},
			s.Cfg.Raft.HeartbeatInterval.Duration(),
			nil,
		),
		Callbacks:  callbacks,
		Logger:     nodeLogger,
		ResultSink: s.client.Dispatch,
	})

	s.loop.SetNode(s.node)

	router := transport.NewRouter(s.loop, s.node, s.events, nodeLogger)
	kv.RegisterRoutes(router, kv.NewHandlers(s.kvStore, driver.NewAppendWaiter(s.loop, s.node), s.commits))

	s.server = &http.Server{Handler: router}

	listener, err := net.Listen("tcp", selfInfo.LocalAddress)
	if err != nil {
		return fmt.Errorf("cannot listen on %q: %w", selfInfo.LocalAddress, err)
	}
	s.listener = listener

	return nil
}

func (s *Service) Start(ss *service.Service) error {
	g := &errgroup.Group{}

	g.Go(func() error {
		s.loop.Run()
		return nil
	})

	g.Go(func() error {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("raft http server failed: %w", err)
		}
		return nil
	})

	s.group = g

	go func() {
		if err := g.Wait(); err != nil {
			ss.ErrorChan() <- err
		}
	}()

	s.loop.Post(s.node.Start)

	s.Log.Info("listening on %s", s.listener.Addr())

	return nil
}

func (s *Service) Stop(ss *service.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.server.Shutdown(ctx)
	s.loop.Stop()
	s.group.Wait()
}

func (s *Service) Terminate(ss *service.Service) {
	s.nodeState.Close()
}
