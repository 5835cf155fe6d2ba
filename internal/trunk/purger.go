package trunk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

const (
	deleteQuestionTemplate      = "Delete trunk store '%s' from working tree, local refs, and remote '%s'?"
	deleteDeclinedMessage       = "store kept"
	deleteIncompleteMessage     = "store was only partially deleted"
	deleteRemoteRefspecTemplate = ":%s"
	deleteRemoteErrorTemplate   = "unable to delete %s on '%s': %w"
	deleteLocalErrorTemplate    = "unable to delete %s: %w"
	inspectScopeErrorTemplate   = "unable to inspect %s: %w"
	removeScopeErrorTemplate    = "unable to remove %s: %w"
	storeDeletedLogMessage      = "deleted trunk store"
	scopeDeleteFailedLogMessage = "unable to delete trunk store scope"
	scopeWorkingCopyConstant    = "working copy"
	logFieldScopeFailedConstant = "failed_scope"
	remoteURLConfigKeyTemplate  = "remote.%s.url"
	remoteLocationSeparators    = "/:\\"
	remoteAbsentLogMessage      = "remote is not configured; nothing to delete there"
)

// DeleteOptions configures Delete.
type DeleteOptions struct {
	Store  StoreName
	Remote string
	Force  bool
}

// DeleteResult reports which scopes were cleared.
type DeleteResult struct {
	Store                  StoreName
	RemovedWorkingCopy     bool
	RemovedLocalReference  bool
	RemovedRemoteReference bool
	StoresRootRemoved      bool
}

// Delete removes a store from the working tree, the host refs, and the remote. Each scope is
// attempted even when another fails; the failures are joined into the returned error.
// The ignore list is left as it is.
func (service *Service) Delete(executionContext context.Context, host HostRepository, options DeleteOptions) (DeleteResult, error) {
	if requestError := validateRequest(host, options.Store); requestError != nil {
		return DeleteResult{}, requestError
	}

	store := options.Store
	result := DeleteResult{Store: store}
	if remoteError := validateRemote(store, options.Remote); remoteError != nil {
		return result, remoteError
	}

	if confirmError := service.confirm(store, options.Force, fmt.Sprintf(deleteQuestionTemplate, store, options.Remote), deleteDeclinedMessage); confirmError != nil {
		return result, confirmError
	}

	var scopeErrors []error
	recordFailure := func(scope string, scopeError error) {
		service.logger.Warn(scopeDeleteFailedLogMessage,
			zap.String(logFieldStoreConstant, store.String()),
			zap.String(logFieldScopeFailedConstant, scope),
			zap.Error(scopeError),
		)
		scopeErrors = append(scopeErrors, scopeError)
	}

	removed, rootRemoved, workingCopyError := deleteWorkingCopy(host, store)
	result.RemovedWorkingCopy = removed
	result.StoresRootRemoved = rootRemoved
	if workingCopyError != nil {
		recordFailure(scopeWorkingCopyConstant, workingCopyError)
	}

	removed, localError := service.deleteLocalReference(executionContext, host, store)
	result.RemovedLocalReference = removed
	if localError != nil {
		recordFailure(string(ScopeLocal), localError)
	}

	removed, remoteError := service.deleteRemoteReference(executionContext, host, store, options.Remote)
	result.RemovedRemoteReference = removed
	if remoteError != nil {
		recordFailure(string(ScopeRemote), remoteError)
	}

	if len(scopeErrors) > 0 {
		return result, newError(KindTransferFailure, store, deleteIncompleteMessage, errors.Join(scopeErrors...))
	}

	service.logger.Info(storeDeletedLogMessage,
		zap.String(logFieldStoreConstant, store.String()),
		zap.Bool(scopeWorkingCopyConstant, result.RemovedWorkingCopy),
		zap.Bool(string(ScopeLocal), result.RemovedLocalReference),
		zap.Bool(string(ScopeRemote), result.RemovedRemoteReference),
	)
	return result, nil
}

func deleteWorkingCopy(host HostRepository, store StoreName) (bool, bool, error) {
	storePath := host.StorePath(store)
	storeExists, statError := directoryExists(storePath)
	if statError != nil {
		return false, false, fmt.Errorf(inspectScopeErrorTemplate, storePath, statError)
	}
	if storeExists {
		if removeError := os.RemoveAll(storePath); removeError != nil {
			return false, false, fmt.Errorf(removeScopeErrorTemplate, storePath, removeError)
		}
	}
	rootRemoved, rootError := removeEmptyStoresRoot(host)
	if rootError != nil {
		return storeExists, false, fmt.Errorf(removeScopeErrorTemplate, host.StoresRootPath(), rootError)
	}
	return storeExists, rootRemoved, nil
}

func (service *Service) deleteLocalReference(executionContext context.Context, host HostRepository, store StoreName) (bool, error) {
	_, found, resolveError := service.repository.ResolveCommit(executionContext, host.RootPath(), store.Reference())
	if resolveError != nil {
		return false, resolveError
	}
	if !found {
		return false, nil
	}
	if deleteError := service.repository.DeleteReference(executionContext, host.RootPath(), store.Reference()); deleteError != nil {
		return false, fmt.Errorf(deleteLocalErrorTemplate, store.Reference(), deleteError)
	}
	return true, nil
}

func (service *Service) deleteRemoteReference(executionContext context.Context, host HostRepository, store StoreName, remote string) (bool, error) {
	configured, configError := service.remoteConfigured(executionContext, host, remote)
	if configError != nil {
		return false, configError
	}
	if !configured {
		service.logger.Debug(remoteAbsentLogMessage,
			zap.String(logFieldStoreConstant, store.String()),
			zap.String(logFieldRemoteConstant, remote),
		)
		return false, nil
	}
	remoteReferences, queryError := service.repository.ListRemoteReferences(executionContext, host.RootPath(), remote, store.Reference())
	if queryError != nil {
		return false, queryError
	}
	if _, advertised := remoteReferences[store.Reference()]; !advertised {
		return false, nil
	}
	refspec := fmt.Sprintf(deleteRemoteRefspecTemplate, store.Reference())
	if pushError := service.repository.Push(executionContext, host.RootPath(), remote, refspec); pushError != nil {
		return false, fmt.Errorf(deleteRemoteErrorTemplate, store.Reference(), remote, pushError)
	}
	return true, nil
}

// remoteConfigured reports whether remote names a configured remote or a location such as a path
// or URL. Only a bare name without a remote.<name>.url entry counts as absent.
func (service *Service) remoteConfigured(executionContext context.Context, host HostRepository, remote string) (bool, error) {
	if strings.ContainsAny(remote, remoteLocationSeparators) {
		return true, nil
	}
	_, found, configError := service.repository.ConfigValue(executionContext, host.RootPath(), fmt.Sprintf(remoteURLConfigKeyTemplate, remote))
	if configError != nil {
		return false, configError
	}
	return found, nil
}
