package config

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/aquasafe179-rgb/rapidcareBeta/models"
)

// Config holds the project config values
type Config struct {
	URL                   string
	DatabaseName          string
	BaseURL               string
	Port                  string
	JWTSecret             string
	AmbulanceOfflineAfter time.Duration
}

// New sets up all config related services
func New() *Config {

	//setup zap logger and replace default logger
	logger := zap.NewExample()
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	offlineAfter := 12 * time.Hour
	if v := os.Getenv("AMBULANCE_OFFLINE_AFTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			zap.S().Warnf("invalid AMBULANCE_OFFLINE_AFTER %q, using default of %v", v, offlineAfter)
		} else {
			offlineAfter = d
		}
	}

	return &Config{
		URL:                   os.Getenv("DB_URI"),
		DatabaseName:          os.Getenv("DB_NAME"),
		BaseURL:               os.Getenv("BASE_URL"),
		Port:                  os.Getenv("PORT"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		AmbulanceOfflineAfter: offlineAfter,
	}

}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.WriteHeader(httpStatusCode)
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{Message: message, Error: errMsg}})
	w.Write(b)
}
