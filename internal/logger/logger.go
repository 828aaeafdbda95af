package logger

import (
	"log"

	"go.uber.org/zap"
)

var L *zap.Logger

func Init() {
	var err error
	L, err = zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
}

// InitTest swaps in a no-op logger so package tests do not need Init.
func InitTest() {
	L = zap.NewNop()
}
