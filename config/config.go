package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Minio    MinioConfig    `yaml:"minio"`
	OCR      OCRConfig      `yaml:"ocr"`
	NER      NERConfig      `yaml:"ner"`
	MLflow   MLflowConfig   `yaml:"mlflow"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Auth     AuthConfig     `yaml:"auth"`
	Store    StoreConfig    `yaml:"store"`
	Users    []User         `yaml:"users"`
}

type ServerConfig struct {
	Port        int `yaml:"port"`
	MaxUploadMB int `yaml:"max_upload_mb"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type OCRConfig struct {
	APIURL              string `yaml:"api_url"`
	APIToken            string `yaml:"api_token"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	PollTimeoutSeconds  int    `yaml:"poll_timeout_seconds"`
}

func (c *OCRConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *OCRConfig) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutSeconds) * time.Second
}

type NERConfig struct {
	APIURL   string `yaml:"api_url"`
	APIToken string `yaml:"api_token"`
	Language string `yaml:"language"`
	MaxChars int    `yaml:"max_chars"`
}

type MLflowConfig struct {
	TrackingURL string `yaml:"tracking_url"`
	Experiment  string `yaml:"experiment"`
}

type PipelineConfig struct {
	Skills            []string `yaml:"skills"`
	ExcludeCategories []string `yaml:"exclude_categories"`
	PreviewChars      int      `yaml:"preview_chars"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type StoreConfig struct {
	MaxRuns int `yaml:"max_runs"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Tenant   string `yaml:"tenant"`
}

// DefaultSkills is the built-in skill vocabulary used when the config
// file does not provide one. Terms must be lowercase.
var DefaultSkills = []string{
	"python", "java", "c++", "sql", "aws", "azure", "gcp", "s3", "ec2",
	"lambda", "react", "angular", "vue", "django", "flask", "machine learning",
	"data science", "pandas", "numpy", "scikit-learn", "tensorflow", "pytorch",
	"docker", "kubernetes", "git", "ci/cd", "agile", "airflow", "mlflow",
}

// DefaultExcludeCategories lists entity categories dropped by the
// entity normalizer when the config file does not provide a set.
var DefaultExcludeCategories = []string{
	"PERSON", "LOCATION", "DATE", "ORGANIZATION", "QUANTITY",
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	// .env is optional; real environment always wins
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 16
	}
	if cfg.OCR.PollIntervalSeconds == 0 {
		cfg.OCR.PollIntervalSeconds = 5
	}
	if cfg.OCR.PollTimeoutSeconds == 0 {
		cfg.OCR.PollTimeoutSeconds = 300
	}
	if cfg.NER.Language == "" {
		cfg.NER.Language = "en"
	}
	if cfg.NER.MaxChars == 0 {
		cfg.NER.MaxChars = 4900
	}
	if cfg.MLflow.Experiment == "" {
		cfg.MLflow.Experiment = "Resume_Processing_API_V1"
	}
	if len(cfg.Pipeline.Skills) == 0 {
		cfg.Pipeline.Skills = DefaultSkills
	}
	if len(cfg.Pipeline.ExcludeCategories) == 0 {
		cfg.Pipeline.ExcludeCategories = DefaultExcludeCategories
	}
	if cfg.Pipeline.PreviewChars == 0 {
		cfg.Pipeline.PreviewChars = 500
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Store.MaxRuns == 0 {
		cfg.Store.MaxRuns = 100
	}

	applyEnvOverrides(&cfg)

	GlobalConfig = &cfg
	return &cfg, nil
}

// applyEnvOverrides lets secrets come from the environment instead of
// the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.Minio.SecretKey = v
	}
	if v := os.Getenv("OCR_API_TOKEN"); v != "" {
		cfg.OCR.APIToken = v
	}
	if v := os.Getenv("NER_API_TOKEN"); v != "" {
		cfg.NER.APIToken = v
	}
	if v := os.Getenv("MLFLOW_TRACKING_URI"); v != "" {
		cfg.MLflow.TrackingURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
