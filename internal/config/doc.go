// Package config loads the worker configuration from the environment.
// A .env file in the working directory is read first when present.
package config
