package types

import (
	"time"
)

// Config represents the sales agent configuration
type Config struct {
	// MongoDB Atlas configuration
	MongoDBAtlasURI           string        `json:"-" env:"MONGODB_ATLAS_URI"`
	MongoDBAtlasDatabase      string        `json:"mongodb_atlas_database" env:"MONGODB_ATLAS_DATABASE"`
	MongoDBAtlasCollection    string        `json:"mongodb_atlas_collection" env:"MONGODB_ATLAS_COLLECTION"`
	VectorIndexName           string        `json:"vector_index_name" env:"MONGODB_ATLAS_VECTOR_INDEXNAME,default=default"`
	FullTextIndexName         string        `json:"fulltext_index_name" env:"MONGODB_ATLAS_FULLTEXT_INDEXNAME,default=default_fulltext_search"`
	VectorIndexPath           string        `json:"vector_index_path" env:"MONGODB_ATLAS_VECTORINDEX_PATH,default=embedding"`
	FullTextIndexPath         string        `json:"fulltext_index_path" env:"MONGODB_ATLAS_FULLTEXTINDEX_PATH,default=content"`
	MongoDBAppName            string        `json:"mongodb_app_name" env:"MONGODB_APP_NAME,default=salesagent"`
	MongoDBConnectTimeout     time.Duration `json:"mongodb_connect_timeout" env:"MONGODB_CONNECT_TIMEOUT,default=10s"`
	MongoDBServerSelectTimout time.Duration `json:"mongodb_server_select_timeout" env:"MONGODB_SERVER_SELECTION_TIMEOUT,default=10s"`

	// Embedding configuration
	EmbeddingProvider         string  `json:"embedding_provider" env:"EMBEDDING_PROVIDER,default=azure-inference"`
	AzureAIEmbeddingsEndpoint string  `json:"azure_ai_embeddings_endpoint" env:"AZURE_AI_EMBEDDINGS_ENDPOINT"`
	AzureAIEmbeddingsKey      string  `json:"-" env:"AZURE_AI_EMBEDDINGS_KEY"`
	AzureAIEmbeddingsAPIVer   string  `json:"azure_ai_embeddings_api_version" env:"AZURE_AI_EMBEDDINGS_API_VERSION,default=2024-05-01-preview"`
	EmbeddingModel            string  `json:"embedding_model" env:"AZURE_FOUNDRY_EMBEDDING_MODEL"`
	EmbeddingDimensions       int     `json:"embedding_dimensions" env:"EMBEDDING_DIMENSIONS,default=0"`
	OpenAIAPIKey              string  `json:"-" env:"OPENAI_API_KEY"`
	OpenAIBaseURL             string  `json:"openai_base_url" env:"OPENAI_BASE_URL"`
	AzureOpenAIAPIVersion     string  `json:"azure_openai_api_version" env:"AZURE_OPENAI_API_VERSION,default=2024-10-21"`
	BedrockRegion             string  `json:"bedrock_region" env:"BEDROCK_REGION,default=us-east-1"`
	BedrockEmbeddingModel     string  `json:"bedrock_embedding_model" env:"BEDROCK_EMBEDDING_MODEL,default=amazon.titan-embed-text-v2:0"`
	GeminiAPIKey              string  `json:"-" env:"GEMINI_API_KEY"`
	GeminiEmbeddingModel      string  `json:"gemini_embedding_model" env:"GEMINI_EMBEDDING_MODEL,default=gemini-embedding-001"`
	EmbeddingRateLimit        float64 `json:"embedding_rate_limit" env:"EMBEDDING_RATE_LIMIT,default=0"`
	EmbeddingRateBurst        int     `json:"embedding_rate_burst" env:"EMBEDDING_RATE_BURST,default=1"`

	// Agent service configuration
	ProjectEndpoint          string        `json:"project_endpoint" env:"PROJECT_ENDPOINT"`
	ModelDeploymentName      string        `json:"model_deployment_name" env:"MODEL_DEPLOYMENT_NAME"`
	AgentsAPIVersion         string        `json:"agents_api_version" env:"AGENTS_API_VERSION,default=v1"`
	AgentName                string        `json:"agent_name" env:"AGENT_NAME,default=Contoso Sales Agent"`
	InstructionsFile         string        `json:"instructions_file" env:"INSTRUCTIONS_FILE,default=instructions/function_calling.txt"`
	FontFileID               string        `json:"font_file_id" env:"FONT_FILE_ID"`
	AgentTemperature         float64       `json:"agent_temperature" env:"AGENT_TEMPERATURE,default=0.1"`
	AgentTopP                float64       `json:"agent_top_p" env:"AGENT_TOP_P,default=0.1"`
	AgentMaxPromptTokens     int           `json:"agent_max_prompt_tokens" env:"AGENT_MAX_PROMPT_TOKENS,default=20480"`
	AgentMaxCompletionTokens int           `json:"agent_max_completion_tokens" env:"AGENT_MAX_COMPLETION_TOKENS,default=10240"`
	AgentPollInterval        time.Duration `json:"agent_poll_interval" env:"AGENT_POLL_INTERVAL,default=500ms"`
	AgentRunTimeout          time.Duration `json:"agent_run_timeout" env:"AGENT_RUN_TIMEOUT,default=5m"`
	FilesDir                 string        `json:"files_dir" env:"FILES_DIR,default=files"`

	// Search configuration
	SearchTimeout        time.Duration `json:"search_timeout" env:"SEARCH_TIMEOUT,default=30s"`
	SearchDefaultLimit   int           `json:"search_default_limit" env:"SEARCH_DEFAULT_LIMIT,default=3"`
	SearchNumCandidates  int           `json:"search_num_candidates" env:"SEARCH_NUM_CANDIDATES,default=50"`
	SearchVectorWeight   float64       `json:"search_vector_weight" env:"SEARCH_VECTOR_WEIGHT,default=0.7"`
	SearchFullTextWeight float64       `json:"search_fulltext_weight" env:"SEARCH_FULLTEXT_WEIGHT,default=0.3"`
	ResultMaxSizeKB      float64       `json:"result_max_size_kb" env:"RESULT_MAX_SIZE_KB,default=400"`
	CleanMaxFieldLength  int           `json:"clean_max_field_length" env:"CLEAN_MAX_FIELD_LENGTH,default=500"`

	// MCP server configuration
	MCPServerHost            string        `json:"mcp_server_host" env:"MCP_SERVER_HOST,default=localhost"`
	MCPServerPort            int           `json:"mcp_server_port" env:"MCP_SERVER_PORT,default=8080"`
	MCPServerReadTimeout     time.Duration `json:"mcp_server_read_timeout" env:"MCP_SERVER_READ_TIMEOUT,default=30s"`
	MCPServerWriteTimeout    time.Duration `json:"mcp_server_write_timeout" env:"MCP_SERVER_WRITE_TIMEOUT,default=60s"`
	MCPServerIdleTimeout     time.Duration `json:"mcp_server_idle_timeout" env:"MCP_SERVER_IDLE_TIMEOUT,default=120s"`
	MCPServerShutdownTimeout time.Duration `json:"mcp_server_shutdown_timeout" env:"MCP_SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	MCPRateLimit             float64       `json:"mcp_rate_limit" env:"MCP_RATE_LIMIT,default=5"`
	MCPRateBurst             int           `json:"mcp_rate_burst" env:"MCP_RATE_BURST,default=10"`

	// Invocation statistics
	StatsDBPath string `json:"stats_db_path" env:"STATS_DB_PATH"`

	// OpenTelemetry configuration
	OTelEnabled              bool          `json:"otel_enabled" env:"OTEL_ENABLED,default=false"`
	OTelServiceName          string        `json:"otel_service_name" env:"OTEL_SERVICE_NAME,default=salesagent"`
	OTelExporterOTLPEndpoint string        `json:"otel_exporter_otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterOTLPProtocol string        `json:"otel_exporter_otlp_protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	OTelResourceAttributes   string        `json:"otel_resource_attributes" env:"OTEL_RESOURCE_ATTRIBUTES"`
	OTelTracesSampler        string        `json:"otel_traces_sampler" env:"OTEL_TRACES_SAMPLER,default=always_on"`
	OTelTracesSamplerArg     float64       `json:"otel_traces_sampler_arg" env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
	OTelMetricExportInterval time.Duration `json:"otel_metric_export_interval" env:"OTEL_METRIC_EXPORT_INTERVAL,default=60s"`
}
