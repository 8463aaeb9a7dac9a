package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fafadexs1/chatflow/analytics"
	"github.com/fafadexs1/chatflow/config"
	"github.com/fafadexs1/chatflow/logger"
	"github.com/fafadexs1/chatflow/rest"
	"github.com/fafadexs1/chatflow/runtime"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().Int("http-port", 8080, "http port for webhook endpoints")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().String("storage-impl", "memory", "implementation of session/workspace storage")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "chatflow", "namespace used in storage")
	cmd.Flags().Int("session-timeout", 1800, "session inactivity timeout in seconds")
	cmd.Flags().String("memory-provider", "memory", "long term memory provider")
	cmd.Flags().String("memory-conn", "", "memory provider connection string")
	cmd.Flags().String("memory-cache-conn", "", "cache connection string for the hybrid memory tier")
	cmd.Flags().Int("memory-cache-ttl", 300, "cache ttl seconds for the hybrid memory tier")
	cmd.Flags().Bool("memory-cache-write-through", false, "write memory items to the cache tier synchronously")
	cmd.Flags().Int("memory-retention-days", 30, "episodic memory retention in days")
	cmd.Flags().Int("memory-max-items", 200, "max memory items per partition")
	cmd.Flags().Float64("memory-min-importance", 0.2, "importance floor for stored memories")
	cmd.Flags().Bool("embeddings-enabled", false, "enable embedding generation for memories")
	cmd.Flags().String("embedding-model", "text-embedding-3-small", "embedding model")
	cmd.Flags().String("episodic-embedding-model", "", "embedding model override for episodic memories")
	cmd.Flags().String("llm-provider", "openai", "llm provider for agents")
	cmd.Flags().String("llm-api-key", "", "llm api key")
	cmd.Flags().String("llm-model", "gpt-4o-mini", "generation model")
	cmd.Flags().String("llm-router-model", "", "intent classifier model, defaults to llm-model")
	cmd.Flags().Int("llm-max-tokens", 1024, "max generation tokens")
	cmd.Flags().String("evolution-url", "", "evolution api base url")
	cmd.Flags().String("evolution-api-key", "", "evolution api key")
	cmd.Flags().String("chatwoot-url", "", "chatwoot base url")
	cmd.Flags().String("chatwoot-api-key", "", "chatwoot access token")
	cmd.Flags().String("dialogy-url", "", "dialogy base url")
	cmd.Flags().String("dialogy-api-key", "", "dialogy api key")
	cmd.Flags().String("analytics-file", "", "file to record node outcomes and api exchanges, empty disables")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.SessionTimeoutSeconds = viper.GetInt("session-timeout")

	c.cfg.Memory.Provider = config.MemoryProviderType(viper.GetString("memory-provider"))
	c.cfg.Memory.ConnectionString = viper.GetString("memory-conn")
	c.cfg.Memory.CacheConnectionString = viper.GetString("memory-cache-conn")
	c.cfg.Memory.CacheTTLSeconds = viper.GetInt("memory-cache-ttl")
	c.cfg.Memory.CacheWriteThrough = viper.GetBool("memory-cache-write-through")
	c.cfg.Memory.RetentionDays = viper.GetInt("memory-retention-days")
	c.cfg.Memory.MaxItems = viper.GetInt("memory-max-items")
	c.cfg.Memory.MinImportance = viper.GetFloat64("memory-min-importance")
	c.cfg.Memory.EmbeddingsEnabled = viper.GetBool("embeddings-enabled")
	c.cfg.Memory.EmbeddingModel = viper.GetString("embedding-model")
	c.cfg.Memory.EpisodicEmbeddingModel = viper.GetString("episodic-embedding-model")

	c.cfg.LLM.Provider = config.LLMProviderType(viper.GetString("llm-provider"))
	c.cfg.LLM.APIKey = viper.GetString("llm-api-key")
	c.cfg.LLM.Model = viper.GetString("llm-model")
	c.cfg.LLM.RouterModel = viper.GetString("llm-router-model")
	c.cfg.LLM.MaxTokens = viper.GetInt("llm-max-tokens")

	c.cfg.Channels.EvolutionBaseURL = viper.GetString("evolution-url")
	c.cfg.Channels.EvolutionAPIKey = viper.GetString("evolution-api-key")
	c.cfg.Channels.ChatwootBaseURL = viper.GetString("chatwoot-url")
	c.cfg.Channels.ChatwootAPIKey = viper.GetString("chatwoot-api-key")
	c.cfg.Channels.DialogyBaseURL = viper.GetString("dialogy-url")
	c.cfg.Channels.DialogyAPIKey = viper.GetString("dialogy-api-key")

	c.cfg.AnalyticsConfig.CollectorType = analytics.NOOP_DATA_COLLECTOR
	if file := viper.GetString("analytics-file"); file != "" {
		c.cfg.AnalyticsConfig.FileName = file
		c.cfg.AnalyticsConfig.CollectorType = analytics.LOG_FILE_DATA_COLLECTOR
	}
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	logger.Configure(c.cfg.LogLevel)

	if err := analytics.InitDataCollector(c.cfg.AnalyticsConfig); err != nil {
		return err
	}

	rt := runtime.NewRuntime(c.cfg.Config)
	if err := rt.Init(context.Background()); err != nil {
		return err
	}

	server, err := rest.NewServer(c.cfg.HttpPort, rt.TriggerService())
	if err != nil {
		return err
	}
	go func() {
		if err := server.Start(); err != nil {
			logger.Error(err.Error())
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	server.Stop()
	rt.Stop()
	return nil
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "chatflow",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
