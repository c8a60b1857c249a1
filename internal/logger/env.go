package logger

import (
	"os"
	"strconv"
)

const (
	envLogLevel  = "LOG_LEVEL"
	envLogEnable = "LOG_ENABLE"
)

func envInt(env string, def int) int {
	n, err := strconv.Atoi(os.Getenv(env))
	if err != nil {
		return def
	}

	return n
}

func envBool(env string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(env))
	if err != nil {
		return def
	}

	return b
}
