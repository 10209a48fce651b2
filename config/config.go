package config

import (
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SysConfig system config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig web server config
type WebConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// DBConfig Database config. Type is one of postgres, sqlite, mongo, memory.
type DBConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	URL      string `yaml:"url"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// BusinessConfig holds the seller identity printed on invoices when the
// owner has not filled in a business profile.
type BusinessConfig struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Address  string `yaml:"address"`
	Phone    string `yaml:"phone"`
	Currency string `yaml:"currency"`
	Language string `yaml:"language"`
}

type InvoiceConfig struct {
	NumberPrefix string        `yaml:"number_prefix"`
	StoreTimeout time.Duration `yaml:"store_timeout"`
	MaxRetries   int           `yaml:"max_number_retries"`
	// LegacyDiscountAsAmount copies a legacy invoiceDiscount value into
	// directAmountReduction when no reduction is stored.
	LegacyDiscountAsAmount bool   `yaml:"legacy_discount_as_amount"`
	NormalizeCron          string `yaml:"normalize_cron"`
	NormalizeWorkers       int    `yaml:"normalize_workers"`
}

// AIConfig targets any OpenAI compatible chat completion endpoint.
type AIConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type AppConfig struct {
	System   SysConfig      `yaml:"system"`
	Web      WebConfig      `yaml:"web"`
	Database DBConfig       `yaml:"database"`
	Logger   LogConfig      `yaml:"logger"`
	Business BusinessConfig `yaml:"business"`
	Invoice  InvoiceConfig  `yaml:"invoice"`
	AI       AIConfig       `yaml:"ai"`
	SMTP     SMTPConfig     `yaml:"smtp"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) initDirs() {
	_ = os.MkdirAll(c.GetLogDir(), 0o755)
	_ = os.MkdirAll(c.GetDataDir(), 0o755)
}

// DSN returns the database connection string, preferring an explicit url.
func (d DBConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	switch d.Type {
	case "mongo":
		return "mongodb://" + d.Host + ":" + strconv.Itoa(d.Port)
	case "postgres":
		return "host=" + d.Host + " port=" + strconv.Itoa(d.Port) + " user=" + d.User +
			" password=" + d.Passwd + " dbname=" + d.Name + " sslmode=disable"
	}
	return d.Name
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "InvoiceDesk",
		Location: "Asia/Kolkata",
		Workdir:  "/var/invoicedesk",
		Debug:    true,
	},
	Web: WebConfig{
		Host:     "0.0.0.0",
		Port:     5000,
		Secret:   "9b6de5cc-0731-4bf1-8b4a-invoicedesk",
		TokenTTL: 180 * 24 * time.Hour,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "invoicedesk",
		User:     "postgres",
		Passwd:   "myroot",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/invoicedesk/logs/invoicedesk.log",
	},
	Business: BusinessConfig{
		Name:     "Cotton Stock Kid's Wear",
		Email:    "cottonstockkidswear@gmail.com",
		Address:  "Shop no M-1832 (2P) ground floor gandhi bazaar, Chembur colony, chembur 400074",
		Phone:    "8591116115",
		Currency: "₹",
		Language: "en-IN",
	},
	Invoice: InvoiceConfig{
		NumberPrefix:           "INV-",
		StoreTimeout:           5 * time.Second,
		MaxRetries:             3,
		LegacyDiscountAsAmount: true,
		NormalizeCron:          "0 30 3 * * *",
		NormalizeWorkers:       8,
	},
	AI: AIConfig{
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/",
		Model:   "gemini-2.0-flash",
		Timeout: 30 * time.Second,
	},
	SMTP: SMTPConfig{
		Port: 587,
	},
}

// LoadConfig reads cfile (or the first config found in the default
// locations), then applies environment overrides. A missing file yields
// the defaults.
func LoadConfig(cfile string) *AppConfig {
	_ = godotenv.Load()

	if cfile == "" {
		cfile = "invoicedesk.yml"
	}
	if !fileExists(cfile) {
		cfile = "/etc/invoicedesk.yml"
	}
	cfg := new(AppConfig)
	*cfg = *DefaultAppConfig
	if fileExists(cfile) {
		data, err := os.ReadFile(cfile)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				panic(err)
			}
		}
	}
	applyEnv(cfg)
	cfg.initDirs()
	return cfg
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("INVOICEDESK_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("INVOICEDESK_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("INVOICEDESK_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("INVOICEDESK_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("INVOICEDESK_WEB_PORT", &cfg.Web.Port)
	setEnvIntValue("PORT", &cfg.Web.Port)
	setEnvValue("INVOICEDESK_WEB_SECRET", &cfg.Web.Secret)
	setEnvValue("JWT_SECRET", &cfg.Web.Secret)
	setEnvDurationValue("INVOICEDESK_TOKEN_TTL", &cfg.Web.TokenTTL)

	setEnvValue("INVOICEDESK_DB_TYPE", &cfg.Database.Type)
	setEnvValue("INVOICEDESK_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("INVOICEDESK_DB_PORT", &cfg.Database.Port)
	setEnvValue("INVOICEDESK_DB_NAME", &cfg.Database.Name)
	setEnvValue("INVOICEDESK_DB_USER", &cfg.Database.User)
	setEnvValue("INVOICEDESK_DB_PWD", &cfg.Database.Passwd)
	setEnvValue("INVOICEDESK_DB_URL", &cfg.Database.URL)
	setEnvValue("MONGODB_URI", &cfg.Database.URL)
	setEnvBoolValue("INVOICEDESK_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("INVOICEDESK_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("INVOICEDESK_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvValue("INVOICEDESK_INVOICE_PREFIX", &cfg.Invoice.NumberPrefix)
	setEnvBoolValue("INVOICEDESK_LEGACY_DISCOUNT_AS_AMOUNT", &cfg.Invoice.LegacyDiscountAsAmount)
	setEnvValue("INVOICEDESK_NORMALIZE_CRON", &cfg.Invoice.NormalizeCron)

	setEnvValue("INVOICEDESK_AI_BASE_URL", &cfg.AI.BaseURL)
	setEnvValue("GEMINI_API_KEY", &cfg.AI.APIKey)
	setEnvValue("INVOICEDESK_AI_API_KEY", &cfg.AI.APIKey)
	setEnvValue("INVOICEDESK_AI_MODEL", &cfg.AI.Model)

	setEnvValue("INVOICEDESK_SMTP_HOST", &cfg.SMTP.Host)
	setEnvIntValue("INVOICEDESK_SMTP_PORT", &cfg.SMTP.Port)
	setEnvValue("INVOICEDESK_SMTP_USER", &cfg.SMTP.Username)
	setEnvValue("INVOICEDESK_SMTP_PWD", &cfg.SMTP.Password)
	setEnvValue("INVOICEDESK_SMTP_FROM", &cfg.SMTP.From)
}

func fileExists(name string) bool {
	if name == "" {
		return false
	}
	_, err := os.Stat(name)
	return err == nil
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = strings.EqualFold(evalue, "true") || evalue == "1" || strings.EqualFold(evalue, "on")
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	p, err := strconv.Atoi(evalue)
	if err == nil {
		*val = p
	}
}

func setEnvDurationValue(name string, val *time.Duration) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	d, err := time.ParseDuration(evalue)
	if err == nil {
		*val = d
	}
}
