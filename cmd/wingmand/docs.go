package main

// General API documentation for swaggo. Run `swag init` to generate docs
// when building with -tags=swagger.
//
// @title           wingmand API
// @version         1.0
// @description     Control API for the local LLM workload orchestrator: model downloads, inference sessions, hardware info, and retrieval.
//
// @contact.name   wingmand maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
