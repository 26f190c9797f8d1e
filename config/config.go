package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// BillingConfig is the immutable parameter set consumed by the billing engine.
// It is loaded once at startup and snapshotted per run; there is no dynamic
// reload within a run.
type BillingConfig struct {
	BaseRateCentsPerHour       int64   `mapstructure:"BILLING_BASE_RATE_CENTS_PER_HOUR"`
	DailyCapHours              int     `mapstructure:"BILLING_DAILY_CAP_HOURS"`
	MinBillableMinutes         int     `mapstructure:"BILLING_MIN_BILLABLE_MINUTES"`
	MaxBillableMinutes         int     `mapstructure:"BILLING_MAX_BILLABLE_MINUTES"` // 0 means unset.
	GracePeriodMinutes         int     `mapstructure:"BILLING_GRACE_PERIOD_MINUTES"`
	RoundingGranularityMinutes int     `mapstructure:"BILLING_ROUNDING_GRANULARITY_MINUTES"`
	LatePickupThresholdHours   float64 `mapstructure:"BILLING_LATE_PICKUP_THRESHOLD_HOURS"`
	LatePickupSurchargeCents   int64   `mapstructure:"BILLING_LATE_PICKUP_SURCHARGE_CENTS"`
	LateFeeCents               int64   `mapstructure:"BILLING_LATE_FEE_CENTS"`
	LateFeeLabel               string  `mapstructure:"BILLING_LATE_FEE_LABEL"`
	TaxRate                    float64 `mapstructure:"BILLING_TAX_RATE"`
	MaxAllowedUnpaid           int     `mapstructure:"BILLING_MAX_ALLOWED_UNPAID"`
	DueInDays                  int     `mapstructure:"BILLING_DUE_IN_DAYS"`
	Currency                   string  `mapstructure:"BILLING_CURRENCY"`
}

// Validate enforces the invariants the charge calculator relies on.
func (c BillingConfig) Validate() error {
	if c.RoundingGranularityMinutes <= 0 {
		return fmt.Errorf("billing config: rounding granularity must be > 0, got %d", c.RoundingGranularityMinutes)
	}
	if c.MaxBillableMinutes > 0 && c.MinBillableMinutes > c.MaxBillableMinutes {
		return fmt.Errorf("billing config: min billable minutes %d exceeds max %d", c.MinBillableMinutes, c.MaxBillableMinutes)
	}
	if c.BaseRateCentsPerHour <= 0 {
		return fmt.Errorf("billing config: base rate must be > 0, got %d", c.BaseRateCentsPerHour)
	}
	if c.TaxRate < 0 {
		return fmt.Errorf("billing config: tax rate must not be negative, got %f", c.TaxRate)
	}
	if c.GracePeriodMinutes < 0 || c.GracePeriodMinutes >= c.RoundingGranularityMinutes {
		return fmt.Errorf("billing config: grace period %d must be within [0, granularity)", c.GracePeriodMinutes)
	}
	return nil
}

// Config holds all configuration values.
type Config struct {
	AppPort     string `mapstructure:"APP_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB   int    `mapstructure:"REDIS_CACHE_DB"`
	RedisBillingDB int    `mapstructure:"REDIS_BILLING_DB"`

	// Admin token guarding the billing trigger endpoints.
	AdminToken string `mapstructure:"ADMIN_TOKEN"`

	// Stripe payment gateway.
	StripeKey          string `mapstructure:"STRIPE_KEY"`
	CheckoutSuccessURL string `mapstructure:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL  string `mapstructure:"CHECKOUT_CANCEL_URL"`

	// Firebase Cloud Messaging credentials for the notification sink.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`

	// Cron spec for the nightly billing run (asynq scheduler).
	BillingCronSpec string `mapstructure:"BILLING_CRON_SPEC"`
	// When true the engine rehearses runs without writing to the store.
	BillingDryRun bool `mapstructure:"BILLING_DRY_RUN"`

	Billing BillingConfig `mapstructure:",squash"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_BILLING_DB", 3)
	viper.SetDefault("BILLING_CRON_SPEC", "0 2 * * *")
	viper.SetDefault("BILLING_DRY_RUN", false)

	viper.SetDefault("BILLING_BASE_RATE_CENTS_PER_HOUR", 1500)
	viper.SetDefault("BILLING_DAILY_CAP_HOURS", 10)
	viper.SetDefault("BILLING_MIN_BILLABLE_MINUTES", 120)
	viper.SetDefault("BILLING_MAX_BILLABLE_MINUTES", 0)
	viper.SetDefault("BILLING_GRACE_PERIOD_MINUTES", 5)
	viper.SetDefault("BILLING_ROUNDING_GRANULARITY_MINUTES", 15)
	viper.SetDefault("BILLING_LATE_PICKUP_THRESHOLD_HOURS", 9.0)
	viper.SetDefault("BILLING_LATE_PICKUP_SURCHARGE_CENTS", 2500)
	viper.SetDefault("BILLING_LATE_FEE_CENTS", 1000)
	viper.SetDefault("BILLING_LATE_FEE_LABEL", "Late payment fee")
	viper.SetDefault("BILLING_TAX_RATE", 0.0675)
	viper.SetDefault("BILLING_MAX_ALLOWED_UNPAID", 2)
	viper.SetDefault("BILLING_DUE_IN_DAYS", 14)
	viper.SetDefault("BILLING_CURRENCY", "usd")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := AppConfig.Billing.Validate(); err != nil {
		log.Fatalf("Invalid billing configuration: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
