// Package testutil contains fixtures shared by package tests: a fluent story
// builder, a scripted model that answers per agent role, and a contract suite
// every core.Store implementation runs. Not intended for production usage.
package testutil
