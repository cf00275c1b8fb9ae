package main

// General API documentation for swaggo. Run `swag init -g cmd/intentd/docs.go`
// to regenerate the docs package.
//
// @title           intentd API
// @version         1.0
// @description     HTTP API for local model session management, chat and structured-output normalization.
//
// @contact.name   intentd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
