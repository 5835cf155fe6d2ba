// Package prompt supplies the confirmation capability injected into the trunk
// engine: IOConfirmer asks on a terminal or reads scripted answers, and
// AlwaysConfirmer affirms every question for --force runs.
package prompt
