package trunk

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	forcedRefspecTemplateConstant      = "+%s:%s"
	resolveSourceMessageTemplate       = "unable to resolve %s in %s"
	missingSourceMessageTemplate       = "%s does not name a commit in %s"
	fetchFailedMessageTemplate         = "unable to fetch %s from %s"
	verifyFailedMessageTemplate        = "unable to verify %s in %s"
	hashMismatchMessageTemplate        = "expected %s at %s but found %s"
	bridgeTransferLogMessageConstant   = "bridged commit"
	bridgeReleaseFailedLogMessage      = "unable to release temporary reference"
	logFieldSourceConstant             = "source"
	logFieldDestinationConstant        = "destination"
	logFieldTemporaryReferenceConstant = "temporary_reference"
)

// Bridge copies a commit and its history between two object databases on the same machine,
// or from a remote, through a temporary ref that never outlives the transfer.
type Bridge struct {
	repository             GitRepository
	logger                 *zap.Logger
	temporaryReferenceName func() string
}

// Transfer makes the commit named by reference in sourcePath available in destinationPath and
// returns its hash. The destination gains objects only; none of its refs change.
func (bridge *Bridge) Transfer(executionContext context.Context, sourcePath string, reference string, destinationPath string) (string, error) {
	sourceHash, found, resolveError := bridge.repository.ResolveCommit(executionContext, sourcePath, reference)
	if resolveError != nil {
		return "", &Error{Kind: KindTransferFailure, Message: fmt.Sprintf(resolveSourceMessageTemplate, reference, sourcePath), Cause: resolveError}
	}
	if !found {
		return "", &Error{Kind: KindReferenceNotFound, Message: fmt.Sprintf(missingSourceMessageTemplate, reference, sourcePath)}
	}

	if transferError := bridge.fetchVerified(executionContext, sourcePath, reference, sourceHash, destinationPath); transferError != nil {
		return "", transferError
	}
	return sourceHash, nil
}

// TransferFromRemote fetches remoteReference from remote into destinationPath and checks that it
// still resolves to expectedHash, the value the remote advertised earlier.
func (bridge *Bridge) TransferFromRemote(executionContext context.Context, remote string, remoteReference string, expectedHash string, destinationPath string) (string, error) {
	if transferError := bridge.fetchVerified(executionContext, remote, remoteReference, expectedHash, destinationPath); transferError != nil {
		return "", transferError
	}
	return expectedHash, nil
}

func (bridge *Bridge) fetchVerified(executionContext context.Context, location string, reference string, expectedHash string, destinationPath string) error {
	guard := bridge.acquire(destinationPath)
	defer guard.release(executionContext)

	refspec := fmt.Sprintf(forcedRefspecTemplateConstant, reference, guard.reference)
	if fetchError := bridge.repository.Fetch(executionContext, destinationPath, location, refspec); fetchError != nil {
		return &Error{Kind: KindTransferFailure, Message: fmt.Sprintf(fetchFailedMessageTemplate, reference, location), Cause: fetchError}
	}

	fetchedHash, found, verifyError := bridge.repository.ResolveCommit(executionContext, destinationPath, guard.reference)
	if verifyError != nil || !found {
		return &Error{Kind: KindTransferFailure, Message: fmt.Sprintf(verifyFailedMessageTemplate, guard.reference, destinationPath), Cause: verifyError}
	}
	if fetchedHash != expectedHash {
		return &Error{Kind: KindTransferFailure, Message: fmt.Sprintf(hashMismatchMessageTemplate, expectedHash, reference, fetchedHash)}
	}

	bridge.logger.Debug(bridgeTransferLogMessageConstant,
		zap.String(logFieldSourceConstant, location),
		zap.String(logFieldReferenceConstant, reference),
		zap.String(logFieldDestinationConstant, destinationPath),
		zap.String(logFieldHashConstant, fetchedHash),
	)
	return nil
}

// temporaryReference is the guard that owns one bridge ref in a destination repository.
type temporaryReference struct {
	bridge          *Bridge
	destinationPath string
	reference       string
}

func (bridge *Bridge) acquire(destinationPath string) temporaryReference {
	return temporaryReference{bridge: bridge, destinationPath: destinationPath, reference: bridge.temporaryReferenceName()}
}

// release deletes the guarded ref even when the transfer context was cancelled.
func (guard temporaryReference) release(executionContext context.Context) {
	releaseContext := context.WithoutCancel(executionContext)
	if deleteError := guard.bridge.repository.DeleteReference(releaseContext, guard.destinationPath, guard.reference); deleteError != nil {
		guard.bridge.logger.Warn(bridgeReleaseFailedLogMessage,
			zap.String(logFieldTemporaryReferenceConstant, guard.reference),
			zap.String(logFieldPathConstant, guard.destinationPath),
			zap.Error(deleteError),
		)
	}
}
