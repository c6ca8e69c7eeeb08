package utils

import (
	"go.uber.org/zap"
)

var Logger *zap.Logger

// InitLogger builds the process logger. Development mode logs at debug level in a readable
// format; anything else uses the production JSON encoder.
func InitLogger(env string) {
	var err error
	if env == "development" {
		Logger, err = zap.NewDevelopment()
	} else {
		Logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
}

func GetLogger() *zap.Logger {
	if Logger == nil {
		InitLogger("")
	}
	return Logger
}
