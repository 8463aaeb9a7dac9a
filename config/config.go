package config

import (
	"github.com/fafadexs1/chatflow/analytics"
)

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type MemoryProviderType string

const MEMORY_PROVIDER_POSTGRES MemoryProviderType = "postgres"
const MEMORY_PROVIDER_REDIS MemoryProviderType = "redis"
const MEMORY_PROVIDER_SQLITE MemoryProviderType = "sqlite"
const MEMORY_PROVIDER_INMEM MemoryProviderType = "memory"
const MEMORY_PROVIDER_HYBRID MemoryProviderType = "hybrid"

type LLMProviderType string

const LLM_PROVIDER_OPENAI LLMProviderType = "openai"
const LLM_PROVIDER_ANTHROPIC LLMProviderType = "anthropic"

type Config struct {
	HttpPort              int
	LogLevel              string
	StorageType           StorageType
	SessionTimeoutSeconds int
	RedisConfig           RedisStorageConfig
	Memory                MemoryConfig
	LLM                   LLMConfig
	Channels              ChannelConfig
	AnalyticsConfig       analytics.DataCollectorConfig
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
}

// MemoryConfig carries every provider knob for the long-term memory store.
type MemoryConfig struct {
	Provider              MemoryProviderType
	ConnectionString      string
	CacheConnectionString string
	CacheTTLSeconds       int
	CacheWriteThrough     bool
	Scope                 string
	RetentionDays         int
	MaxItems              int
	MinImportance         float64
	EmbeddingsEnabled     bool
	EmbeddingModel        string
	// EpisodicEmbeddingModel is used by the hybrid embedding policy for
	// episodic content; empty means EmbeddingModel is used for every type.
	EpisodicEmbeddingModel string
}

type LLMConfig struct {
	Provider    LLMProviderType
	APIKey      string
	Model       string
	RouterModel string
	MaxTokens   int
}

type ChannelConfig struct {
	EvolutionBaseURL string
	EvolutionAPIKey  string
	ChatwootBaseURL  string
	ChatwootAPIKey   string
	DialogyBaseURL   string
	DialogyAPIKey    string
}
