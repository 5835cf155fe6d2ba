package trunk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gittrunk/internal/execshell"
)

const (
	publishRefspecTemplateConstant = "%s:%s"
	localHistoryMissingTemplate    = "%s does not exist locally; run init or commit first"
	publishRejectedTemplate        = "remote '%s' has history that %s does not contain; run checkout to integrate it first"
	publishFailedTemplate          = "unable to push %s to '%s'"
	storePublishedLogMessage       = "published trunk store"
)

var nonFastForwardMarkers = []string{"[rejected]", "non-fast-forward", "fetch first"}

// PushOptions configures Push.
type PushOptions struct {
	Store  StoreName
	Remote string
}

// PushResult describes a published store history.
type PushResult struct {
	Store  StoreName
	Remote string
	Hash   string
}

// Push publishes refs/trunk/<store> to the same ref on remote without forcing.
func (service *Service) Push(executionContext context.Context, host HostRepository, options PushOptions) (PushResult, error) {
	if requestError := validateRequest(host, options.Store); requestError != nil {
		return PushResult{}, requestError
	}

	store := options.Store
	result := PushResult{Store: store, Remote: options.Remote}
	if remoteError := validateRemote(store, options.Remote); remoteError != nil {
		return result, remoteError
	}

	localHash, found, resolveError := service.repository.ResolveCommit(executionContext, host.RootPath(), store.Reference())
	if resolveError != nil {
		return result, newError(KindPreconditionFailed, store, fmt.Sprintf(inspectStoreMessageTemplate, store.Reference()), resolveError)
	}
	if !found {
		return result, newError(KindReferenceNotFound, store, fmt.Sprintf(localHistoryMissingTemplate, store.Reference()), nil)
	}
	result.Hash = localHash

	refspec := fmt.Sprintf(publishRefspecTemplateConstant, store.Reference(), store.Reference())
	if pushError := service.repository.Push(executionContext, host.RootPath(), options.Remote, refspec); pushError != nil {
		if isNonFastForward(pushError) {
			return result, newError(KindNonFastForward, store, fmt.Sprintf(publishRejectedTemplate, options.Remote, store.Reference()), pushError)
		}
		return result, newError(KindTransferFailure, store, fmt.Sprintf(publishFailedTemplate, store.Reference(), options.Remote), pushError)
	}

	service.logger.Info(storePublishedLogMessage,
		zap.String(logFieldStoreConstant, store.String()),
		zap.String(logFieldRemoteConstant, options.Remote),
		zap.String(logFieldHashConstant, localHash),
	)
	return result, nil
}

func isNonFastForward(pushError error) bool {
	var failedError execshell.CommandFailedError
	if !errors.As(pushError, &failedError) {
		return false
	}
	output := failedError.Result.StandardError + failedError.Result.StandardOutput
	for _, marker := range nonFastForwardMarkers {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}
