// Package types provides the canonical request/response contract shared by
// every other aigate package. This package has ZERO dependencies on other
// aigate packages to avoid circular imports.
package types
