package trunk

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

const (
	storeConcealedLogMessage       = "concealed trunk store"
	storeNotMaterializedLogMessage = "trunk store not materialized"
	logFieldRootRemovedConstant    = "stores_root_removed"
)

// ConcealOptions configures Conceal.
type ConcealOptions struct {
	Store StoreName
}

// ConcealResult describes a concealment.
type ConcealResult struct {
	Store              StoreName
	Removed            bool
	StoresRootRemoved  bool
	IgnoreEntryRemoved bool
}

// Conceal removes the working copy of a store and keeps every ref. When no store remains
// materialized the stores directory and its ignore-list line go too.
func (service *Service) Conceal(_ context.Context, host HostRepository, options ConcealOptions) (ConcealResult, error) {
	if requestError := validateRequest(host, options.Store); requestError != nil {
		return ConcealResult{}, requestError
	}

	store := options.Store
	storePath := host.StorePath(store)
	result := ConcealResult{Store: store}

	storeExists, statError := directoryExists(storePath)
	if statError != nil {
		return result, newError(KindPreconditionFailed, store, fmt.Sprintf(inspectStoreMessageTemplate, storePath), statError)
	}
	if !storeExists {
		service.logger.Info(storeNotMaterializedLogMessage, zap.String(logFieldStoreConstant, store.String()))
		return result, nil
	}

	if removeError := os.RemoveAll(storePath); removeError != nil {
		return result, newError(KindPreconditionFailed, store, fmt.Sprintf(removeStoreMessageTemplate, storePath), removeError)
	}
	result.Removed = true

	rootRemoved, rootError := removeEmptyStoresRoot(host)
	if rootError != nil {
		return result, newError(KindPreconditionFailed, store, fmt.Sprintf(removeStoreMessageTemplate, host.StoresRootPath()), rootError)
	}
	result.StoresRootRemoved = rootRemoved

	if rootRemoved {
		entryRemoved, ignoreError := removeIgnoreEntry(host)
		if ignoreError != nil {
			return result, newError(KindPreconditionFailed, store, fmt.Sprintf(ignoreListMessageTemplate, host.IgnoreFilePath()), ignoreError)
		}
		result.IgnoreEntryRemoved = entryRemoved
	}

	service.logger.Info(storeConcealedLogMessage,
		zap.String(logFieldStoreConstant, store.String()),
		zap.Bool(logFieldRootRemovedConstant, rootRemoved),
	)
	return result, nil
}
