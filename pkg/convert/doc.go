// Package convert has small slice helpers shared by the collector and the CLI
package convert
