// Package services holds the business logic of the credit transfer workflow.
//
// Services depend on the store interfaces declared in stores.go; the
// PostgreSQL implementations live in the repositories package.
package services
