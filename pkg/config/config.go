package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config groups everything the service binaries read at startup. Values come
// from environment variables with sensible local-dev defaults.
type Config struct {
	KafkaBrokers []string

	OrderHTTPAddr        string
	PaymentHTTPAddr      string
	StockHTTPAddr        string
	ShippingHTTPAddr     string
	NotificationHTTPAddr string

	OrderDSN   string
	PaymentDSN string

	RedisAddr     string
	RedisPassword string

	// Endpoints of RPC peers, keyed by service name.
	OrderServiceURL   string
	PaymentServiceURL string
	CatalogServiceURL string
	UserServiceURL    string
	RPCTimeout        time.Duration

	StockGroup        string
	ShippingGroup     string
	NotificationGroup string

	PaymentSuccessRate float64

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
}

func Load() Config {
	viper.SetDefault("KAFKA_BROKERS", "kafka:9092")

	viper.SetDefault("ORDER_SERVICE_LISTEN_ADDR", ":8080")
	viper.SetDefault("PAYMENT_SERVICE_LISTEN_ADDR", ":8081")
	viper.SetDefault("STOCK_SERVICE_LISTEN_ADDR", ":8082")
	viper.SetDefault("SHIPPING_SERVICE_LISTEN_ADDR", ":8083")
	viper.SetDefault("NOTIFICATION_SERVICE_LISTEN_ADDR", ":8084")

	viper.SetDefault("ORDER_POSTGRES_DSN", "host=localhost user=store password=store dbname=store_orders port=5432 sslmode=disable")
	viper.SetDefault("PAYMENT_POSTGRES_DSN", "host=localhost user=store password=store dbname=store_payments port=5432 sslmode=disable")

	viper.SetDefault("REDIS_ADDR", "redisdb:6379")
	viper.SetDefault("REDIS_PASSWORD", "")

	viper.SetDefault("ORDER_SERVICE_URL", "http://orderservice:8080")
	viper.SetDefault("PAYMENT_SERVICE_URL", "http://paymentservice:8081")
	viper.SetDefault("CATALOG_SERVICE_URL", "http://catalogservice:8090")
	viper.SetDefault("USER_SERVICE_URL", "http://userservice:8091")
	viper.SetDefault("RPC_TIMEOUT", "5s")

	viper.SetDefault("STOCK_SERVICE_GROUP", "stock-service-group")
	viper.SetDefault("SHIPPING_SERVICE_GROUP", "shipping-service-group")
	viper.SetDefault("NOTIFICATION_SERVICE_GROUP", "notification-service-group")

	viper.SetDefault("PAYMENT_SUCCESS_RATE", 0.8)

	viper.SetDefault("SMTP_HOST", "smtp.gmail.com")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_USER", "")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("MAIL_FROM", "store@example.com")

	viper.AutomaticEnv()

	return Config{
		KafkaBrokers: strings.Split(viper.GetString("KAFKA_BROKERS"), ","),

		OrderHTTPAddr:        viper.GetString("ORDER_SERVICE_LISTEN_ADDR"),
		PaymentHTTPAddr:      viper.GetString("PAYMENT_SERVICE_LISTEN_ADDR"),
		StockHTTPAddr:        viper.GetString("STOCK_SERVICE_LISTEN_ADDR"),
		ShippingHTTPAddr:     viper.GetString("SHIPPING_SERVICE_LISTEN_ADDR"),
		NotificationHTTPAddr: viper.GetString("NOTIFICATION_SERVICE_LISTEN_ADDR"),

		OrderDSN:   viper.GetString("ORDER_POSTGRES_DSN"),
		PaymentDSN: viper.GetString("PAYMENT_POSTGRES_DSN"),

		RedisAddr:     viper.GetString("REDIS_ADDR"),
		RedisPassword: viper.GetString("REDIS_PASSWORD"),

		OrderServiceURL:   viper.GetString("ORDER_SERVICE_URL"),
		PaymentServiceURL: viper.GetString("PAYMENT_SERVICE_URL"),
		CatalogServiceURL: viper.GetString("CATALOG_SERVICE_URL"),
		UserServiceURL:    viper.GetString("USER_SERVICE_URL"),
		RPCTimeout:        viper.GetDuration("RPC_TIMEOUT"),

		StockGroup:        viper.GetString("STOCK_SERVICE_GROUP"),
		ShippingGroup:     viper.GetString("SHIPPING_SERVICE_GROUP"),
		NotificationGroup: viper.GetString("NOTIFICATION_SERVICE_GROUP"),

		PaymentSuccessRate: viper.GetFloat64("PAYMENT_SUCCESS_RATE"),

		SMTPHost:     viper.GetString("SMTP_HOST"),
		SMTPPort:     viper.GetInt("SMTP_PORT"),
		SMTPUser:     viper.GetString("SMTP_USER"),
		SMTPPassword: viper.GetString("SMTP_PASSWORD"),
		MailFrom:     viper.GetString("MAIL_FROM"),
	}
}

// Endpoints returns the RPC endpoint table keyed by service name.
func (c Config) Endpoints() map[string]string {
	return map[string]string{
		"orders":   c.OrderServiceURL,
		"payments": c.PaymentServiceURL,
		"products": c.CatalogServiceURL,
		"users":    c.UserServiceURL,
	}
}
