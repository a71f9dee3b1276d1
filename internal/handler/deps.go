package handler

import (
	"stackly/internal/app/realtime"
	"stackly/internal/configs"
)

// AppDeps bundles the shared dependencies handlers need. Everything is
// constructed once in main and passed by reference; there are no ambient
// singletons.
type AppDeps struct {
	Hub      *realtime.Hub
	Registry *realtime.Registry
	Config   *configs.AppConfig
}
