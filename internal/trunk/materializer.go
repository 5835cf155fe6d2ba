package trunk

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/temirov/gittrunk/internal/gitrepo"
)

// ReferenceScope names where a store history was found.
type ReferenceScope string

const (
	// ScopeLocal is the host-local refs/trunk/<store> ref.
	ScopeLocal ReferenceScope = "local"
	// ScopeRemote is the refs/trunk/<store> ref advertised by a remote.
	ScopeRemote ReferenceScope = "remote"
)

const (
	referenceMissingTemplate      = "%s not found locally or on remote '%s'"
	referenceMissingQueryTemplate = "%s not found locally and remote '%s' could not be queried"
	overwriteQuestionTemplate     = "Store '%s' already exists in the working tree. Overwrite?"
	overwriteDeclinedMessage      = "existing materialization kept"
	materializeMessageTemplate    = "unable to materialize %s into %s"
	storeMaterializedLogMessage   = "materialized trunk store"
	remoteHistoryCachedLogMessage = "cached remote store history"
	remoteCheckSkippedLogMessage  = "remote store history unavailable; using local history"
	fastForwardedLogMessage       = "fast-forwarded store history from remote"
	logFieldScopeConstant         = "scope"
)

// CheckoutOptions configures Checkout.
type CheckoutOptions struct {
	Store  StoreName
	Remote string
	Force  bool
}

// CheckoutResult describes a materialization.
type CheckoutResult struct {
	Store    StoreName
	Hash     string
	Source   ReferenceScope
	Replaced bool
}

// Checkout materializes the store history into .trunk/<store>, preferring the local ref and
// falling back to the remote. A remote-only history is cached under the local ref first.
// With Force a remote history that strictly descends from the local ref fast-forwards the local
// ref before materializing; a diverged or unreachable remote leaves the local history in use.
func (service *Service) Checkout(executionContext context.Context, host HostRepository, options CheckoutOptions) (CheckoutResult, error) {
	if requestError := validateRequest(host, options.Store); requestError != nil {
		return CheckoutResult{}, requestError
	}

	store := options.Store
	result := CheckoutResult{Store: store}

	hash, source, resolveError := service.resolveHistory(executionContext, host, store, options.Remote, options.Force)
	if resolveError != nil {
		return result, resolveError
	}
	result.Hash = hash
	result.Source = source

	storePath := host.StorePath(store)
	storeExists, statError := directoryExists(storePath)
	if statError != nil {
		return result, newError(KindPreconditionFailed, store, fmt.Sprintf(inspectStoreMessageTemplate, storePath), statError)
	}
	if storeExists {
		if confirmError := service.confirm(store, options.Force, fmt.Sprintf(overwriteQuestionTemplate, store), overwriteDeclinedMessage); confirmError != nil {
			return result, confirmError
		}
		if removeError := os.RemoveAll(storePath); removeError != nil {
			return result, newError(KindPreconditionFailed, store, fmt.Sprintf(removeStoreMessageTemplate, storePath), removeError)
		}
		result.Replaced = true
	}

	if materializeError := service.materialize(executionContext, host, store, hash); materializeError != nil {
		_ = os.RemoveAll(storePath)
		return result, materializeError
	}

	if _, ignoreError := ensureIgnoreEntry(host); ignoreError != nil {
		return result, newError(KindPreconditionFailed, store, fmt.Sprintf(ignoreListMessageTemplate, host.IgnoreFilePath()), ignoreError)
	}

	service.logger.Info(storeMaterializedLogMessage,
		zap.String(logFieldStoreConstant, store.String()),
		zap.String(logFieldHashConstant, hash),
		zap.String(logFieldScopeConstant, string(source)),
	)
	return result, nil
}

// resolveHistory finds the store history locally, then on remote. A remote-only history is
// fetched into the host and recorded under the local ref.
func (service *Service) resolveHistory(executionContext context.Context, host HostRepository, store StoreName, remote string, force bool) (string, ReferenceScope, error) {
	localHash, found, resolveError := service.repository.ResolveCommit(executionContext, host.RootPath(), store.Reference())
	if resolveError != nil {
		return "", "", newError(KindPreconditionFailed, store, fmt.Sprintf(inspectStoreMessageTemplate, store.Reference()), resolveError)
	}
	if found {
		if force {
			return service.fastForwardFromRemote(executionContext, host, store, remote, localHash)
		}
		return localHash, ScopeLocal, nil
	}

	if remoteError := validateRemote(store, remote); remoteError != nil {
		return "", "", remoteError
	}
	remoteReferences, queryError := service.repository.ListRemoteReferences(executionContext, host.RootPath(), remote, store.Reference())
	if queryError != nil {
		return "", "", newError(KindReferenceNotFound, store, fmt.Sprintf(referenceMissingQueryTemplate, store.Reference(), remote), queryError)
	}
	remoteHash, advertised := remoteReferences[store.Reference()]
	if !advertised {
		return "", "", newError(KindReferenceNotFound, store, fmt.Sprintf(referenceMissingTemplate, store.Reference(), remote), nil)
	}

	fetchedHash, transferError := service.bridge.TransferFromRemote(executionContext, remote, store.Reference(), remoteHash, host.RootPath())
	if transferError != nil {
		return "", "", transferError
	}
	if updateError := service.repository.UpdateReference(executionContext, host.RootPath(), store.Reference(), fetchedHash, gitrepo.ZeroHash); updateError != nil {
		return "", "", newError(KindTransferFailure, store, fmt.Sprintf(recordReferenceMessageTemplate, store.Reference()), updateError)
	}

	service.logger.Debug(remoteHistoryCachedLogMessage,
		zap.String(logFieldStoreConstant, store.String()),
		zap.String(logFieldRemoteConstant, remote),
		zap.String(logFieldHashConstant, fetchedHash),
	)
	return fetchedHash, ScopeRemote, nil
}

// fastForwardFromRemote moves the local ref to the remote history when the remote strictly
// descends from localHash. Every other outcome keeps localHash.
func (service *Service) fastForwardFromRemote(executionContext context.Context, host HostRepository, store StoreName, remote string, localHash string) (string, ReferenceScope, error) {
	if len(remote) == 0 {
		return localHash, ScopeLocal, nil
	}
	remoteReferences, queryError := service.repository.ListRemoteReferences(executionContext, host.RootPath(), remote, store.Reference())
	if queryError != nil {
		service.logger.Warn(remoteCheckSkippedLogMessage,
			zap.String(logFieldStoreConstant, store.String()),
			zap.String(logFieldRemoteConstant, remote),
			zap.Error(queryError),
		)
		return localHash, ScopeLocal, nil
	}
	remoteHash, advertised := remoteReferences[store.Reference()]
	if !advertised || remoteHash == localHash {
		return localHash, ScopeLocal, nil
	}

	fetchedHash, transferError := service.bridge.TransferFromRemote(executionContext, remote, store.Reference(), remoteHash, host.RootPath())
	if transferError != nil {
		return "", "", transferError
	}
	descends, ancestryError := service.repository.IsAncestor(executionContext, host.RootPath(), localHash, fetchedHash)
	if ancestryError != nil {
		return "", "", newError(KindPreconditionFailed, store, fmt.Sprintf(inspectStoreMessageTemplate, store.Reference()), ancestryError)
	}
	if !descends {
		return localHash, ScopeLocal, nil
	}
	if updateError := service.repository.UpdateReference(executionContext, host.RootPath(), store.Reference(), fetchedHash, localHash); updateError != nil {
		return "", "", newError(KindTransferFailure, store, fmt.Sprintf(recordReferenceMessageTemplate, store.Reference()), updateError)
	}

	service.logger.Info(fastForwardedLogMessage,
		zap.String(logFieldStoreConstant, store.String()),
		zap.String(logFieldRemoteConstant, remote),
		zap.String(logFieldPreviousHashConstant, localHash),
		zap.String(logFieldHashConstant, fetchedHash),
	)
	return fetchedHash, ScopeRemote, nil
}

func (service *Service) materialize(executionContext context.Context, host HostRepository, store StoreName, hash string) error {
	storePath := host.StorePath(store)
	failure := func(cause error) error {
		return newError(KindPreconditionFailed, store, fmt.Sprintf(materializeMessageTemplate, hash, storePath), cause)
	}

	if mkdirError := os.MkdirAll(storePath, storeDirectoryPermissions); mkdirError != nil {
		return failure(mkdirError)
	}
	if initError := service.repository.Init(executionContext, storePath); initError != nil {
		return failure(initError)
	}

	if _, transferError := service.bridge.Transfer(executionContext, host.RootPath(), store.Reference(), storePath); transferError != nil {
		return transferError
	}

	if updateError := service.repository.UpdateReference(executionContext, storePath, StoreBranchReference, hash, ""); updateError != nil {
		return failure(updateError)
	}
	if headError := service.repository.PointHead(executionContext, storePath, StoreBranchReference); headError != nil {
		return failure(headError)
	}
	if resetError := service.repository.ResetHard(executionContext, storePath, StoreBranchName); resetError != nil {
		return failure(resetError)
	}
	return nil
}
