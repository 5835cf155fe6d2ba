package hooks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/temirov/gittrunk/internal/prompt"
)

// HookName identifies a git hook file.
type HookName string

const (
	// PostCommitHook captures the store after every host commit.
	PostCommitHook HookName = "post-commit"
	// PrePushHook publishes the store whenever the host main branch is pushed.
	PrePushHook HookName = "pre-push"
)

const (
	hooksGitPathConstant            = "hooks"
	hookFilePermissions             = fs.FileMode(0o755)
	hooksDirectoryPermissions       = fs.FileMode(0o755)
	overwriteQuestionTemplate       = "Overwrite existing %s hook?"
	resolverMissingMessage          = "hooks directory resolver not configured"
	confirmerMissingMessage         = "hooks confirmer not configured"
	repositoryPathMissingMessage    = "repository path not provided"
	storeMissingMessage             = "store name not provided"
	resolveDirectoryErrorTemplate   = "unable to locate hooks directory: %w"
	createDirectoryErrorTemplate    = "unable to create hooks directory %s: %w"
	renderErrorTemplate             = "unable to render %s hook: %w"
	writeErrorTemplate              = "unable to write %s hook: %w"
	confirmErrorTemplate            = "unable to confirm %s hook replacement: %w"
	hookInstalledLogMessage         = "installed git hook"
	hookSkippedLogMessage           = "kept existing git hook"
	logFieldHookConstant            = "hook"
	logFieldPathConstant            = "path"
	shellSingleQuoteConstant        = "'"
	shellEscapedSingleQuoteConstant = `'\''`
)

const postCommitTemplate = `#!/bin/sh
# Installed by git-trunk: capture trunk store {{ quote .Store }} after each commit.
git trunk commit --force --store {{ quote .Store }}
`

const prePushTemplate = `#!/bin/sh
# Installed by git-trunk: publish trunk store {{ quote .Store }} with the main branch.
remote="$1"

while read -r local_ref local_sha remote_ref remote_sha
do
	if [ "$local_ref" = "refs/heads/main" ]; then
		git trunk push --remote "$remote" --store {{ quote .Store }} || exit 1
	fi
done
exit 0
`

var (
	// ErrResolverNotConfigured indicates NewInstaller received no DirectoryResolver.
	ErrResolverNotConfigured = errors.New(resolverMissingMessage)
	// ErrConfirmerNotConfigured indicates NewInstaller received no Confirmer.
	ErrConfirmerNotConfigured = errors.New(confirmerMissingMessage)
	// ErrRepositoryPathRequired indicates Install received an empty repository path.
	ErrRepositoryPathRequired = errors.New(repositoryPathMissingMessage)
	// ErrStoreRequired indicates Install received an empty store name.
	ErrStoreRequired = errors.New(storeMissingMessage)
)

var hookTemplates = parseHookTemplates()

func parseHookTemplates() *template.Template {
	templates := template.New(hooksGitPathConstant).Funcs(template.FuncMap{"quote": shellQuote})
	template.Must(templates.New(string(PostCommitHook)).Parse(postCommitTemplate))
	template.Must(templates.New(string(PrePushHook)).Parse(prePushTemplate))
	return templates
}

// DirectoryResolver locates paths inside a repository's git directory.
type DirectoryResolver interface {
	GitPath(executionContext context.Context, path string, name string) (string, error)
}

// InstallOptions configures Install.
type InstallOptions struct {
	RepositoryPath string
	Store          string
	Force          bool
}

// HookOutcome reports what happened to one hook.
type HookOutcome struct {
	Name      HookName
	Path      string
	Installed bool
	Replaced  bool
}

// InstallResult lists the outcome per hook in installation order.
type InstallResult struct {
	Hooks []HookOutcome
}

// Installer writes the git-trunk hooks into a host repository.
type Installer struct {
	logger    *zap.Logger
	resolver  DirectoryResolver
	confirmer prompt.Confirmer
}

// NewInstaller validates collaborators and constructs an Installer.
func NewInstaller(logger *zap.Logger, resolver DirectoryResolver, confirmer prompt.Confirmer) (*Installer, error) {
	if resolver == nil {
		return nil, ErrResolverNotConfigured
	}
	if confirmer == nil {
		return nil, ErrConfirmerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Installer{logger: logger, resolver: resolver, confirmer: confirmer}, nil
}

// Install writes the post-commit and pre-push hooks. Existing hooks are replaced only with
// Force or after confirmation; a declined replacement leaves that hook untouched.
func (installer *Installer) Install(executionContext context.Context, options InstallOptions) (InstallResult, error) {
	if len(strings.TrimSpace(options.RepositoryPath)) == 0 {
		return InstallResult{}, ErrRepositoryPathRequired
	}
	if len(strings.TrimSpace(options.Store)) == 0 {
		return InstallResult{}, ErrStoreRequired
	}

	hooksDirectory, resolveError := installer.resolver.GitPath(executionContext, options.RepositoryPath, hooksGitPathConstant)
	if resolveError != nil {
		return InstallResult{}, fmt.Errorf(resolveDirectoryErrorTemplate, resolveError)
	}
	if mkdirError := os.MkdirAll(hooksDirectory, hooksDirectoryPermissions); mkdirError != nil {
		return InstallResult{}, fmt.Errorf(createDirectoryErrorTemplate, hooksDirectory, mkdirError)
	}

	var result InstallResult
	for _, hookName := range []HookName{PostCommitHook, PrePushHook} {
		outcome, installError := installer.installHook(hooksDirectory, hookName, options)
		if installError != nil {
			return result, installError
		}
		result.Hooks = append(result.Hooks, outcome)
	}
	return result, nil
}

func (installer *Installer) installHook(hooksDirectory string, hookName HookName, options InstallOptions) (HookOutcome, error) {
	outcome := HookOutcome{Name: hookName, Path: filepath.Join(hooksDirectory, string(hookName))}

	if _, statError := os.Stat(outcome.Path); statError == nil {
		if !options.Force {
			confirmed, confirmError := installer.confirmer.Confirm(fmt.Sprintf(overwriteQuestionTemplate, hookName))
			if confirmError != nil {
				return outcome, fmt.Errorf(confirmErrorTemplate, hookName, confirmError)
			}
			if !confirmed {
				installer.logger.Info(hookSkippedLogMessage, zap.String(logFieldHookConstant, string(hookName)))
				return outcome, nil
			}
		}
		outcome.Replaced = true
	}

	content, renderError := RenderHook(hookName, options.Store)
	if renderError != nil {
		return outcome, renderError
	}
	if writeError := os.WriteFile(outcome.Path, []byte(content), hookFilePermissions); writeError != nil {
		return outcome, fmt.Errorf(writeErrorTemplate, hookName, writeError)
	}
	if chmodError := os.Chmod(outcome.Path, hookFilePermissions); chmodError != nil {
		return outcome, fmt.Errorf(writeErrorTemplate, hookName, chmodError)
	}
	outcome.Installed = true

	installer.logger.Info(hookInstalledLogMessage,
		zap.String(logFieldHookConstant, string(hookName)),
		zap.String(logFieldPathConstant, outcome.Path),
	)
	return outcome, nil
}

// RenderHook returns the script for hookName bound to store.
func RenderHook(hookName HookName, store string) (string, error) {
	var builder strings.Builder
	if executeError := hookTemplates.ExecuteTemplate(&builder, string(hookName), struct{ Store string }{Store: store}); executeError != nil {
		return "", fmt.Errorf(renderErrorTemplate, hookName, executeError)
	}
	return builder.String(), nil
}

func shellQuote(value string) string {
	return shellSingleQuoteConstant + strings.ReplaceAll(value, shellSingleQuoteConstant, shellEscapedSingleQuoteConstant) + shellSingleQuoteConstant
}
