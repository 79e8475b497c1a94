package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	agentsx "github.com/tanakach/callcenter/agent/agents"
	channelx "github.com/tanakach/callcenter/agent/channel"
	connectorx "github.com/tanakach/callcenter/agent/connector"
	contractx "github.com/tanakach/callcenter/agent/contract"
	guardrailx "github.com/tanakach/callcenter/agent/guardrail"
	llmx "github.com/tanakach/callcenter/agent/llm"
	promptx "github.com/tanakach/callcenter/agent/prompt"
	routerx "github.com/tanakach/callcenter/agent/router"
	statex "github.com/tanakach/callcenter/agent/state"
	configx "github.com/tanakach/callcenter/pkg/config"
	_ "github.com/tanakach/callcenter/pkg/logger/autoload"
)

type AppConfig struct {
	ListenAddr   string        `envconfig:"LISTEN_ADDR" split_words:"true" default:":8080"`
	StoreBackend string        `envconfig:"STORE_BACKEND" split_words:"true" default:"memory"`
	DataDir      string        `envconfig:"DATA_DIR" split_words:"true" default:"./data"`
	ToolTimeout  time.Duration `envconfig:"TOOL_TIMEOUT" split_words:"true" default:"10s"`
	UseModel     bool          `envconfig:"USE_MODEL" split_words:"true" default:"false"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("APP")

	store := buildStore(*appCfg)

	catalog := connectorx.DefaultCatalog()
	knowledge := connectorx.NewKnowledgeBase(catalog)

	var escalation contractx.Escalation
	if os.Getenv("NOTIFIER_URL") != "" {
		notifierCfg := configx.MustNew[connectorx.NotifierConfig]("NOTIFIER")
		escalation = connectorx.MustNewNotifier(*notifierCfg)
	} else {
		log.Warn().Msg("notifier url not set, escalations will fail as unconfigured")
	}

	guard, registry := buildPolicies(ctx, *appCfg, catalog)

	rt, err := routerx.New(store, guard, registry, knowledge, escalation, routerx.Config{
		ToolTimeout: appCfg.ToolTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	handler := channelx.NewHandler(rt)
	srv := &http.Server{
		Addr:              appCfg.ListenAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", appCfg.ListenAddr).Str("store", appCfg.StoreBackend).Msg("listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func buildStore(cfg AppConfig) statex.Store {
	switch cfg.StoreBackend {
	case "sqlite":
		store, err := statex.OpenSQLiteStore(cfg.DataDir)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open sqlite store")
		}
		return store
	case "redis":
		redisCfg := configx.MustNew[statex.RedisConfig]("REDIS")
		store, err := statex.NewRedisStore(*redisCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build redis store")
		}
		return store
	case "memory":
		return statex.NewMemoryStore()
	default:
		log.Fatal().Str("backend", cfg.StoreBackend).Msg("unknown store backend")
		return nil
	}
}

// buildPolicies returns the guardrail chain and the policy registry. With
// USE_MODEL set and an OpenRouter key configured, model-backed policies and
// the model classifier run behind the rule layer; otherwise the rule-based
// agents serve alone.
func buildPolicies(ctx context.Context, cfg AppConfig, catalog *connectorx.Catalog) (contractx.Guardrail, contractx.Registry) {
	rules, err := guardrailx.NewRuleEvaluator(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to compile guardrail rules")
	}

	if !cfg.UseModel {
		return rules, agentsx.NewRuleRegistry(catalog)
	}

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")

	registry, err := agentsx.NewModelRegistry(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build model policies")
	}

	guardCfg := llmCfg.OpenRouterForGuardrail()
	chatModel, err := guardCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build guardrail model")
	}
	classifier, err := guardrailx.NewModelEvaluator(ctx, chatModel, promptx.LoadPromptSet().Guardrail)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build guardrail classifier")
	}

	return guardrailx.Chain{rules, classifier}, registry
}

func runServer(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
