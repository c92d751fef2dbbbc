package server

// @title keepwarm API
// @version 1.0
// @description Start, inspect and stop warm worker instances

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8377
// @BasePath /api
// @schemes http
