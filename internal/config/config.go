package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the application.
// It includes the environment type, the Telegram bot credentials,
// the database and Bitrix24 webhook configuration, and the mapping
// of group chats to departments.
type Config struct {
	Env             string            `yaml:"env"`              // Env is the current environment: local, dev, prod.
	Token           string            `yaml:"token"            validate:"required"` // Token is an unique telegram bot token
	PollerTimeout   time.Duration     `yaml:"poller_timeout"`   // PollerTimeout its a time which need to close telegram bot poller
	DefaultLanguage string            `yaml:"default_language"` // DefaultLanguage is the locale used for bot replies.
	MetricsPort     int               `yaml:"metrics_port"`     // MetricsPort is the monitoring HTTP server port.
	Database        PostgresConfig    `yaml:"postgres"         validate:"required"` // Database holds the postgres database configuration
	Bitrix          BitrixConfig      `yaml:"bitrix"           validate:"required"` // Bitrix holds the CRM webhook configuration
	Departments     DepartmentsConfig `yaml:"departments"      validate:"required"` // Departments maps group chats to departments
	AdminIDs        []int64           `yaml:"admin_ids"        validate:"min=1"`    // AdminIDs are Telegram user IDs allowed to run admin commands
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"     validate:"required"` // Host is the database server address.
	Port     string `yaml:"port"`                         // Port is the database server port.
	User     string `yaml:"user"     validate:"required"` // User is the database user.
	Password string `yaml:"password" validate:"required"` // Password is the database user's password.
	Name     string `yaml:"db_name"  validate:"required"` // Name is the name of the database.
}

// BitrixConfig holds the inbound webhook endpoints of the Bitrix24 portal.
// The timeline and task-completion endpoints are derived from these two.
type BitrixConfig struct {
	ContactURL           string `yaml:"contact_url"            validate:"required,url"` // ContactURL is the crm.contact.list webhook endpoint.
	TaskURL              string `yaml:"task_url"               validate:"required,url"` // TaskURL is the task.item.add webhook endpoint.
	DefaultResponsibleID int64  `yaml:"default_responsible_id" validate:"gt=0"`         // DefaultResponsibleID is the fallback task assignee.
}

// DepartmentsConfig binds each department to its Telegram group chat.
type DepartmentsConfig struct {
	SupportChatID  int64 `yaml:"support_chat_id"   validate:"required"` // SupportChatID is the support group chat ID.
	PreTrialChatID int64 `yaml:"pre_trial_chat_id" validate:"required"` // PreTrialChatID is the pre-trial group chat ID.
}

// MustLoad loads the configuration from a YAML file and returns a Config struct.
// Secrets may be supplied through the environment (a .env file is honored);
// environment values override the file.
func MustLoad() *Config {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		panic("config path is empty")
	}

	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	viper.SetConfigFile(configPath)
	if err := viper.ReadInConfig(); err != nil {
		panic("config error: " + err.Error())
	}

	defPollerTimeout := 10
	defMetricsPort := 9091

	viper.SetDefault("postgres.port", "5432")
	viper.SetDefault("telegram.timeout", time.Duration(defPollerTimeout*int(time.Second)))
	viper.SetDefault("default_language", "uk")
	viper.SetDefault("metrics_port", defMetricsPort)

	_ = viper.BindEnv("telegram.token", "DISPATCH_TELEGRAM_TOKEN")
	_ = viper.BindEnv("postgres.password", "DB_PASSWORD")

	cfg := &Config{
		Env:             viper.GetString("env"),
		Token:           viper.GetString("telegram.token"),
		PollerTimeout:   viper.GetDuration("telegram.timeout"),
		DefaultLanguage: viper.GetString("default_language"),
		MetricsPort:     viper.GetInt("metrics_port"),
		Database: PostgresConfig{
			Host:     viper.GetString("postgres.host"),
			Port:     viper.GetString("postgres.port"),
			User:     viper.GetString("postgres.user"),
			Password: viper.GetString("postgres.password"),
			Name:     viper.GetString("postgres.db_name"),
		},
		Bitrix: BitrixConfig{
			ContactURL:           viper.GetString("bitrix.contact_url"),
			TaskURL:              viper.GetString("bitrix.task_url"),
			DefaultResponsibleID: viper.GetInt64("bitrix.default_responsible_id"),
		},
		Departments: DepartmentsConfig{
			SupportChatID:  viper.GetInt64("departments.support_chat_id"),
			PreTrialChatID: viper.GetInt64("departments.pre_trial_chat_id"),
		},
		AdminIDs: readInt64Slice("admin_ids"),
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}

	return cfg
}

func readInt64Slice(key string) []int64 {
	raw := viper.Get(key)
	if raw == nil {
		return nil
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, toInt64(item))
	}

	return out
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}
