// Package runtime is the explicit service container: every shared resource
// (storage, memory store, LLM clients, channel senders, caches) is built
// once at startup and torn down at shutdown, and handed by reference into
// request handling.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fafadexs1/chatflow/agent"
	"github.com/fafadexs1/chatflow/capability"
	"github.com/fafadexs1/chatflow/channel"
	"github.com/fafadexs1/chatflow/config"
	"github.com/fafadexs1/chatflow/flow"
	"github.com/fafadexs1/chatflow/llm"
	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/memory"
	"github.com/fafadexs1/chatflow/model"
	"github.com/fafadexs1/chatflow/node"
	"github.com/fafadexs1/chatflow/persistence"
	"github.com/fafadexs1/chatflow/persistence/inmem"
	rd "github.com/fafadexs1/chatflow/persistence/redis"
	"github.com/fafadexs1/chatflow/trigger"
	"github.com/fafadexs1/chatflow/util"
	"go.uber.org/zap"
)

// purgeInterval paces the background sweep of TTL'd memory rows.
const purgeInterval = 10 * time.Minute

type Runtime struct {
	initialized bool
	conf        config.Config
	wg          *sync.WaitGroup

	storage        persistence.Storage
	memoryStore    memory.Store
	consolidator   *memory.Consolidator
	generator      llm.Generator
	embedder       llm.Embedder
	senders        map[model.ChannelType]channel.Sender
	capabilities   *capability.StaticRegistry
	capExecutor    capability.Executor
	engine         *flow.Engine
	triggerService *trigger.Service
	purgeWorker    *util.TickWorker
}

func NewRuntime(conf config.Config) *Runtime {
	return &Runtime{conf: conf, wg: &sync.WaitGroup{}}
}

func (r *Runtime) Init(ctx context.Context) error {
	defer func() { r.initialized = true }()

	switch r.conf.StorageType {
	case config.STORAGE_TYPE_REDIS:
		r.storage = newCachedStorage(rd.NewStorage(rd.Config{
			Addrs:     r.conf.RedisConfig.Addrs,
			Namespace: r.conf.RedisConfig.Namespace,
		}))
	default:
		r.storage = inmem.NewStorage()
	}

	store, err := memory.NewStore(ctx, r.conf.Memory)
	if err != nil {
		return fmt.Errorf("memory store: %w", err)
	}
	r.memoryStore = store

	switch r.conf.LLM.Provider {
	case config.LLM_PROVIDER_ANTHROPIC:
		r.generator = llm.NewAnthropicGenerator(r.conf.LLM.APIKey)
	default:
		r.generator = llm.NewOpenAIGenerator(r.conf.LLM.APIKey)
	}
	if r.conf.Memory.EmbeddingsEnabled && r.conf.LLM.Provider == config.LLM_PROVIDER_OPENAI {
		r.embedder = llm.NewOpenAIEmbedder(r.conf.LLM.APIKey)
	} else {
		r.embedder = llm.NewLocalEmbedder()
	}

	r.consolidator = memory.NewConsolidator(r.memoryStore, r.generator, r.embedder, r.conf.Memory, r.wg)

	r.senders = map[model.ChannelType]channel.Sender{
		model.CHANNEL_EVOLUTION: channel.NewEvolutionSender(r.conf.Channels.EvolutionBaseURL, r.conf.Channels.EvolutionAPIKey),
		model.CHANNEL_CHATWOOT:  channel.NewChatwootSender(r.conf.Channels.ChatwootBaseURL, r.conf.Channels.ChatwootAPIKey),
		model.CHANNEL_DIALOGY:   channel.NewDialogySender(r.conf.Channels.DialogyBaseURL, r.conf.Channels.DialogyAPIKey),
	}

	r.capabilities = capability.NewStaticRegistry()
	r.capExecutor = capability.NewHTTPExecutor()

	router := &routingSender{senders: r.senders}
	orchestrator := agent.NewOrchestrator(r.generator, r.memoryStore, r.consolidator,
		router, r.capabilities, r.capExecutor, r.conf.LLM)

	r.engine = flow.NewEngine(r.storage, node.Deps{
		Senders:      r.SenderFor,
		Capabilities: r.capabilities,
		CapExecutor:  r.capExecutor,
		Agent:        orchestrator,
	})
	r.triggerService = trigger.NewService(r.storage, r.engine, r.conf.SessionTimeoutSeconds)

	r.purgeWorker = util.NewTickWorker("memory-purge", purgeInterval, func() {
		purgeCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := r.memoryStore.DeleteExpired(purgeCtx)
		if err != nil {
			logger.Error("memory purge failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("purged expired memories", zap.Int("count", n))
		}
	}, r.wg)
	r.purgeWorker.Start()
	return nil
}

func (r *Runtime) Stop() {
	if r.purgeWorker != nil {
		r.purgeWorker.Stop()
	}
	if r.consolidator != nil {
		r.consolidator.Stop()
	}
	r.wg.Wait()
}

func (r *Runtime) TriggerService() *trigger.Service {
	if !r.initialized {
		panic("runtime not initialized")
	}
	return r.triggerService
}

func (r *Runtime) Capabilities() *capability.StaticRegistry {
	if !r.initialized {
		panic("runtime not initialized")
	}
	return r.capabilities
}

func (r *Runtime) Storage() persistence.Storage {
	if !r.initialized {
		panic("runtime not initialized")
	}
	return r.storage
}

func (r *Runtime) SenderFor(ch model.ChannelType) channel.Sender {
	return r.senders[ch]
}

// routingSender picks the concrete sender from the message's channel
// context, letting one orchestrator serve every channel.
type routingSender struct {
	senders map[model.ChannelType]channel.Sender
}

func (rs *routingSender) Send(ctx context.Context, cc channel.Context, text string) error {
	sender, ok := rs.senders[cc.Channel]
	if !ok {
		return fmt.Errorf("no sender for channel %s", cc.Channel)
	}
	return sender.Send(ctx, cc, text)
}
