package main

// General API documentation for swaggo. Run `swag init -g cmd/dispatchd/docs.go`
// and build with -tags=swagger to serve it under /docs.
//
// @title           dispatchd API
// @version         1.0
// @description     HTTP API for dispatching inference requests to a worker pool with streaming responses.
//
// @contact.name   dispatchd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
