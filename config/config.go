package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultChartKeywords are the Spanish terms that signal a chart request.
var DefaultChartKeywords = []string{
	"grafica", "gráfico", "gráfica",
	"grafico", "visualiza", "visualización",
	"diagrama", "imagen", "representa",
}

type Config struct {
	ProjectDir string `json:"project_dir"`
	DataDir    string `json:"data_dir"`
	ResultsDir string `json:"results_dir"`

	// Relational snapshot and its spreadsheet sources
	DBPath           string `json:"db_path"`
	ReservationsFile string `json:"reservations_file"`
	AccountsFile     string `json:"accounts_file"`
	ReloadOnStart    bool   `json:"reload_on_start"`
	ReloadCron       string `json:"reload_cron"`

	LLMProvider   string   `json:"llm_provider"`
	BackendURL    string   `json:"backend_url"`
	AnalystLLM    string   `json:"analyst_llm"`
	ChartLLM      string   `json:"chart_llm"`
	MaxTokens     int      `json:"max_tokens"`
	MaxAgentSteps int      `json:"max_agent_steps"`
	AgentTimeout  Duration `json:"agent_timeout"`

	ChartKeywords []string `json:"chart_keywords"`
	QuickChartURL string   `json:"quickchart_url"`
	ChartOutput   string   `json:"chart_output"`
	ChartWidth    int      `json:"chart_width"`
	ChartHeight   int      `json:"chart_height"`
	RenderTimeout Duration `json:"render_timeout"`

	HTTPAddr       string `json:"http_addr"`
	ErrorTraceback bool   `json:"error_traceback"`
	Debug          bool   `json:"debug"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port"`

	// Secrets only ever come from the environment.
	OpenAIAPIKey   string `json:"-"`
	DeepSeekAPIKey string `json:"-"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	return DefaultConfigWithRoot(currentDir)
}

// DefaultConfigWithRoot builds defaults with every path rooted at root, then
// applies .env and environment overrides.
func DefaultConfigWithRoot(root string) *Config {
	cfg := &Config{
		ProjectDir: root,
		DataDir:    filepath.Join(root, "data"),
		ResultsDir: filepath.Join(root, "results"),

		DBPath:           filepath.Join(root, "data", "itzana.db"),
		ReservationsFile: filepath.Join(root, "data", "reservations.xlsx"),
		AccountsFile:     filepath.Join(root, "data", "grouped_accounts.xlsx"),
		ReloadOnStart:    true,

		LLMProvider:   "openai",
		BackendURL:    "https://api.openai.com/v1",
		AnalystLLM:    "gpt-4o-mini",
		ChartLLM:      "gpt-4o-mini",
		MaxTokens:     4096,
		MaxAgentSteps: 20,

		ChartKeywords: append([]string(nil), DefaultChartKeywords...),
		QuickChartURL: "https://quickchart.io",
		ChartOutput:   ChartOutputURL,
		ChartWidth:    800,
		ChartHeight:   450,
		RenderTimeout: Duration(30 * time.Second),

		HTTPAddr:       ":8000",
		ErrorTraceback: true,
		Debug:          false,

		EinoDebugEnabled: false,
		EinoDebugPort:    52538,
	}

	_ = godotenv.Load()
	cfg.loadFromEnv()
	return cfg
}

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"

	ChartOutputURL  = "url"
	ChartOutputFile = "file"
)

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("ITZANA_DB_PATH"); val != "" {
		c.DBPath = val
	}
	if val := os.Getenv("RESERVATIONS_FILE"); val != "" {
		c.ReservationsFile = val
	}
	if val := os.Getenv("ACCOUNTS_FILE"); val != "" {
		c.AccountsFile = val
	}
	if val := os.Getenv("RELOAD_ON_START"); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			c.ReloadOnStart = v
		}
	}
	if val := os.Getenv("RELOAD_CRON"); val != "" {
		c.ReloadCron = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = strings.ToLower(val)
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("ANALYST_LLM"); val != "" {
		c.AnalystLLM = val
	}
	if val := os.Getenv("CHART_LLM"); val != "" {
		c.ChartLLM = val
	}
	if val := os.Getenv("MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxTokens = v
		}
	}
	if val := os.Getenv("MAX_AGENT_STEPS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxAgentSteps = v
		}
	}
	if val := os.Getenv("AGENT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.AgentTimeout = Duration(d)
		}
	}

	if val := os.Getenv("CHART_KEYWORDS"); val != "" {
		c.ChartKeywords = splitList(val)
	}
	if val := os.Getenv("QUICKCHART_URL"); val != "" {
		c.QuickChartURL = val
	}
	if val := os.Getenv("CHART_OUTPUT"); val != "" {
		c.ChartOutput = strings.ToLower(val)
	}

	if val := os.Getenv("HTTP_ADDR"); val != "" {
		c.HTTPAddr = val
	}
	if val := os.Getenv("ERROR_TRACEBACK"); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			c.ErrorTraceback = v
		}
	}
	if val := os.Getenv("ITZANA_DEBUG"); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			c.Debug = v
		}
	}

	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.EinoDebugPort = port
		}
	}

	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	if c.LLMProvider == ProviderDeepSeek {
		return c.DeepSeekAPIKey
	}
	return c.OpenAIAPIKey
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db_path is required")
	}
	if strings.TrimSpace(c.ReservationsFile) == "" || strings.TrimSpace(c.AccountsFile) == "" {
		return fmt.Errorf("reservations_file and accounts_file are required")
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderDeepSeek:
	default:
		return fmt.Errorf("unsupported llm_provider %q", c.LLMProvider)
	}
	switch c.ChartOutput {
	case ChartOutputURL, ChartOutputFile:
	default:
		return fmt.Errorf("unsupported chart_output %q", c.ChartOutput)
	}
	if c.MaxAgentSteps < 0 {
		return fmt.Errorf("max_agent_steps must not be negative")
	}
	if c.AgentTimeout < 0 || c.RenderTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.ResultsDir, filepath.Dir(c.DBPath)}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
