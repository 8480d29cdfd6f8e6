package config

import (
	"fmt"
	"strconv"

	db "bitbucket.org/cargolink/backend/db"
	"bitbucket.org/cargolink/backend/processors"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

type Configuration struct {
	JWTSecret   string `env:"JWT_SECRET,required"`
	Port        int    `env:"PORT,default=3001"`
	Timeout     int    `env:"TIMEOUT,default=10"`
	DB          db.Storage
	SQL         database
	Stripe      stripeConf
	Square      squareConf
	Environment string `env:"ENVIRONMENT,default=development"`
	AppName     string `env:"APP_NAME,default=cargolink"`
}

type database struct {
	URL            string `env:"DATA_BASE_URL,required"`
	Name           string `env:"DATA_BASE_NAME,required"`
	User           string `env:"DATA_BASE_USER,required"`
	Port           int    `env:"DATA_BASE_PORT,default=3306"`
	Password       string `env:"DATA_BASE_PASSWORD,required"`
	OpenConnection int    `env:"DATA_BASE_MAX_OPEN_CONNECTION,default=5"`
}

type stripeConf struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	BaseURL       string `env:"STRIPE_BASE_URL"`
}

type squareConf struct {
	BaseURL         string `env:"SQUARE_BASE_URL,default=https://connect.squareup.com"`
	Token           string `env:"SQUARE_ACCESS_TOKEN"`
	Version         string `env:"SQUARE_VERSION,default=2023-05-17"`
	LocationID      string `env:"SQUARE_LOCATION_ID"`
	SignatureKey    string `env:"SQUARE_WEBHOOK_SIGNATURE_KEY"`
	NotificationURL string `env:"SQUARE_NOTIFICATION_URL"`
}

type AppContext struct {
	Config  Configuration
	SQLConn *sqlx.DB
	DB      db.Storage
	Stripe  *processors.StripeClient
	Square  *processors.SquareClient
}

func CreateConnectionSQL(conf database) (*sqlx.DB, error) {
	conn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", conf.User, conf.Password, conf.URL, strconv.Itoa(conf.Port), conf.Name)
	connection, err := sqlx.Connect("mysql", conn)
	if err != nil {
		return nil, err
	}
	return connection, nil
}

func CreateStripeIntegration(conf stripeConf) *processors.StripeClient {
	return processors.NewStripeClient(processors.StripeConfig{
		SecretKey:     conf.SecretKey,
		WebhookSecret: conf.WebhookSecret,
		BaseURL:       conf.BaseURL,
	})
}

func CreateSquareIntegration(conf squareConf) *processors.SquareClient {
	return &processors.SquareClient{
		BaseURL:         conf.BaseURL,
		Token:           conf.Token,
		Version:         conf.Version,
		LocationID:      conf.LocationID,
		SignatureKey:    conf.SignatureKey,
		NotificationURL: conf.NotificationURL,
	}
}

var logger *log.Entry

func SetLogger(newLogger *log.Entry) {
	logger = newLogger
}

func GetLogger() *log.Entry {
	if logger == nil {
		return log.NewEntry(log.StandardLogger())
	}
	return logger
}
