package trunk

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/gittrunk/internal/gitrepo"
)

const (
	// InitialCommitMessage records the first commit of a new store.
	InitialCommitMessage = "Initial trunk commit"
	// InitialReadmeName is the file a new store starts with.
	InitialReadmeName = "readme.md"
	// InitialReadmeContent is written into InitialReadmeName.
	InitialReadmeContent = "# Trunk Documents\n\nThis directory stores repository-wide documents managed by git-trunk.\n"

	storeDirectoryPermissions          = fs.FileMode(0o755)
	storeFilePermissions               = fs.FileMode(0o644)
	reinitializeQuestionTemplate       = "Store '%s' already exists. Reinitialize?"
	replaceHistoryQuestionTemplate     = "Store '%s' already has history at %s. Replace it?"
	reinitializeDeclinedMessage        = "store left unchanged"
	removeStoreMessageTemplate         = "unable to remove %s"
	createStoreMessageTemplate         = "unable to create %s"
	initializeStoreMessageTemplate     = "unable to initialize repository in %s"
	commitStoreMessageTemplate         = "unable to commit in %s"
	recordReferenceMessageTemplate     = "unable to record %s"
	ignoreListMessageTemplate          = "unable to update %s"
	inspectStoreMessageTemplate        = "unable to inspect %s"
	storeInitializedLogMessageConstant = "initialized trunk store"
)

// InitializeOptions configures Initialize.
type InitializeOptions struct {
	Store StoreName
	Force bool
}

// InitializeResult describes a new store.
type InitializeResult struct {
	Store         StoreName
	Hash          string
	Reinitialized bool
}

// Initialize creates a store with a single readme commit and records it under refs/trunk/<store>.
func (service *Service) Initialize(executionContext context.Context, host HostRepository, options InitializeOptions) (InitializeResult, error) {
	if requestError := validateRequest(host, options.Store); requestError != nil {
		return InitializeResult{}, requestError
	}

	store := options.Store
	storePath := host.StorePath(store)
	result := InitializeResult{Store: store}

	storeExists, statError := directoryExists(storePath)
	if statError != nil {
		return result, newError(KindPreconditionFailed, store, fmt.Sprintf(inspectStoreMessageTemplate, storePath), statError)
	}

	if storeExists {
		if confirmError := service.confirm(store, options.Force, fmt.Sprintf(reinitializeQuestionTemplate, store), reinitializeDeclinedMessage); confirmError != nil {
			return result, confirmError
		}
		result.Reinitialized = true
	} else {
		_, historyExists, resolveError := service.repository.ResolveCommit(executionContext, host.RootPath(), store.Reference())
		if resolveError != nil {
			return result, newError(KindPreconditionFailed, store, fmt.Sprintf(inspectStoreMessageTemplate, store.Reference()), resolveError)
		}
		if historyExists {
			if confirmError := service.confirm(store, options.Force, fmt.Sprintf(replaceHistoryQuestionTemplate, store, store.Reference()), reinitializeDeclinedMessage); confirmError != nil {
				return result, confirmError
			}
			result.Reinitialized = true
		}
	}

	if storeExists {
		if removeError := os.RemoveAll(storePath); removeError != nil {
			return result, newError(KindPreconditionFailed, store, fmt.Sprintf(removeStoreMessageTemplate, storePath), removeError)
		}
	}

	hash, buildError := service.buildInitialStore(executionContext, host, store)
	if buildError != nil {
		discardPartialStore(host, store)
		return result, buildError
	}

	if updateError := service.repository.UpdateReference(executionContext, host.RootPath(), store.Reference(), hash, ""); updateError != nil {
		discardPartialStore(host, store)
		return result, newError(KindPreconditionFailed, store, fmt.Sprintf(recordReferenceMessageTemplate, store.Reference()), updateError)
	}
	result.Hash = hash

	if _, ignoreError := ensureIgnoreEntry(host); ignoreError != nil {
		return result, newError(KindPreconditionFailed, store, fmt.Sprintf(ignoreListMessageTemplate, host.IgnoreFilePath()), ignoreError)
	}

	service.logger.Info(storeInitializedLogMessageConstant,
		zap.String(logFieldStoreConstant, store.String()),
		zap.String(logFieldHashConstant, hash),
	)
	return result, nil
}

func (service *Service) buildInitialStore(executionContext context.Context, host HostRepository, store StoreName) (string, error) {
	storePath := host.StorePath(store)
	if mkdirError := os.MkdirAll(storePath, storeDirectoryPermissions); mkdirError != nil {
		return "", newError(KindPreconditionFailed, store, fmt.Sprintf(createStoreMessageTemplate, storePath), mkdirError)
	}
	if writeError := os.WriteFile(filepath.Join(storePath, InitialReadmeName), []byte(InitialReadmeContent), storeFilePermissions); writeError != nil {
		return "", newError(KindPreconditionFailed, store, fmt.Sprintf(createStoreMessageTemplate, InitialReadmeName), writeError)
	}

	if initError := service.repository.Init(executionContext, storePath); initError != nil {
		return "", newError(KindPreconditionFailed, store, fmt.Sprintf(initializeStoreMessageTemplate, storePath), initError)
	}
	if headError := service.repository.PointHead(executionContext, storePath, StoreBranchReference); headError != nil {
		return "", newError(KindPreconditionFailed, store, fmt.Sprintf(initializeStoreMessageTemplate, storePath), headError)
	}

	if commitError := service.commitAll(executionContext, host, storePath, InitialCommitMessage); commitError != nil {
		return "", newError(KindPreconditionFailed, store, fmt.Sprintf(commitStoreMessageTemplate, storePath), commitError)
	}

	return service.bridge.Transfer(executionContext, storePath, headReferenceConstant, host.RootPath())
}

func (service *Service) commitAll(executionContext context.Context, host HostRepository, storePath string, message string) error {
	if stageError := service.repository.StageAll(executionContext, storePath); stageError != nil {
		return stageError
	}
	identity, identityError := service.commitIdentity(executionContext, host, storePath)
	if identityError != nil {
		return identityError
	}
	return service.repository.Commit(executionContext, storePath, message, identity)
}

// discardPartialStore removes what a failed Initialize created. The stores root goes too when
// nothing else lives in it.
func discardPartialStore(host HostRepository, store StoreName) {
	_ = os.RemoveAll(host.StorePath(store))
	_, _ = removeEmptyStoresRoot(host)
}

var _ GitRepository = (*gitrepo.RepositoryManager)(nil)
