package main

import "github.com/eleven-am/smart-selfie/internal/bootstrap"

// @title Smart Selfie API
// @version 1.0.0
// @description Camera daemon that captures photos when a smile is detected

// @BasePath /api/v1

func main() {
	bootstrap.Run()
}
