// Package ui renders git-trunk output for people.
//
// ConsoleCommandEventLogger turns git lifecycle events into concise console
// messages, and StatusReportRenderer prints reconciler results either as a
// styled text report or as YAML for scripts.
package ui
