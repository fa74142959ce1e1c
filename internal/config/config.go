package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LLMConfig describes one OpenAI-compatible or Ollama endpoint. The same
// shape is used for the inference model and the embedding model.
type LLMConfig struct {
	Provider     string `yaml:"provider"` // "openai" or "ollama"
	BaseURL      string `yaml:"base_url"`
	Key          string `yaml:"key"`
	Model        string `yaml:"model"`
	Device       string `yaml:"device"`
	Quantization string `yaml:"quantization"`
	MaxTokens    int    `yaml:"max_tokens"`
	TimeoutSecs  int    `yaml:"timeout_secs"`
}

type RAGConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	TopK         int    `yaml:"top_k"`
	StoreBackend string `yaml:"store_backend"` // "chromem" or "pgvector"
	StorePath    string `yaml:"store_path"`
	Collection   string `yaml:"collection"`
	VectorSize   int    `yaml:"vector_size"`
}

type UploadConfig struct {
	MaxFileSizeMB int    `yaml:"max_file_size_mb"`
	DocFormats    string `yaml:"doc_formats"`
	ImageFormats  string `yaml:"image_formats"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	RAG      RAGConfig      `yaml:"rag"`
	Upload   UploadConfig   `yaml:"upload"`
	Database DatabaseConfig `yaml:"database"`
	LogLevel string         `yaml:"log_level"`
}

// LoadConfig reads the yaml config at path, then applies environment
// overrides and defaults. A missing file is not an error so the service can
// run from environment variables alone.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	envString(&c.Server.Host, "API_HOST")
	envInt(&c.Server.Port, "API_PORT")

	envString(&c.LLM.Provider, "MODEL_PROVIDER")
	envString(&c.LLM.BaseURL, "MODEL_BASE_URL")
	envString(&c.LLM.Key, "MODEL_API_KEY")
	envString(&c.LLM.Model, "MODEL_NAME")
	envString(&c.LLM.Device, "MODEL_DEVICE")
	envString(&c.LLM.Quantization, "MODEL_QUANTIZATION")
	envInt(&c.LLM.MaxTokens, "MAX_MODEL_LENGTH")
	envInt(&c.LLM.TimeoutSecs, "GENERATION_TIMEOUT_SECS")

	envString(&c.EmbedLLM.Provider, "EMBEDDING_PROVIDER")
	envString(&c.EmbedLLM.BaseURL, "EMBEDDING_BASE_URL")
	envString(&c.EmbedLLM.Key, "EMBEDDING_API_KEY")
	envString(&c.EmbedLLM.Model, "EMBEDDING_MODEL")

	envInt(&c.RAG.ChunkSize, "CHUNK_SIZE")
	envInt(&c.RAG.ChunkOverlap, "CHUNK_OVERLAP")
	envInt(&c.RAG.TopK, "TOP_K_RETRIEVAL")
	envString(&c.RAG.StoreBackend, "VECTOR_STORE_TYPE")
	envString(&c.RAG.StorePath, "VECTOR_STORE_PATH")
	envString(&c.RAG.Collection, "VECTOR_STORE_COLLECTION")
	envInt(&c.RAG.VectorSize, "VECTOR_SIZE")

	envInt(&c.Upload.MaxFileSizeMB, "MAX_FILE_SIZE_MB")
	envString(&c.Upload.DocFormats, "SUPPORTED_DOC_FORMATS")
	envString(&c.Upload.ImageFormats, "SUPPORTED_IMAGE_FORMATS")

	envString(&c.Database.URL, "DATABASE_URL")
	envString(&c.Database.Password, "DATABASE_PASSWORD")

	envString(&c.LogLevel, "LOG_LEVEL")
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.TimeoutSecs == 0 {
		c.LLM.TimeoutSecs = 120
	}
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = "ollama"
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 512
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = 50
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 5
	}
	if c.RAG.StoreBackend == "" {
		c.RAG.StoreBackend = "chromem"
	}
	if c.RAG.StorePath == "" {
		c.RAG.StorePath = "./vector_store"
	}
	if c.RAG.Collection == "" {
		c.RAG.Collection = "medical_reports"
	}
	if c.RAG.VectorSize == 0 {
		c.RAG.VectorSize = 768
	}
	if c.Upload.MaxFileSizeMB == 0 {
		c.Upload.MaxFileSizeMB = 50
	}
	if c.Upload.DocFormats == "" {
		c.Upload.DocFormats = "pdf,txt"
	}
	if c.Upload.ImageFormats == "" {
		c.Upload.ImageFormats = "jpg,jpeg,png,tiff"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// DocFormatList returns the supported document formats as a slice.
func (u *UploadConfig) DocFormatList() []string {
	return splitFormats(u.DocFormats)
}

// ImageFormatList returns the supported image formats as a slice.
func (u *UploadConfig) ImageFormatList() []string {
	return splitFormats(u.ImageFormats)
}

func splitFormats(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
