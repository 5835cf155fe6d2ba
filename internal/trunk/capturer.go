package trunk

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gittrunk/internal/gitrepo"
)

const (
	defaultCommitMessageTemplate  = "Update trunk store '%s'"
	captureQuestionTemplate       = "Commit changes to trunk store '%s'?"
	commitMessageQuestionConstant = "Commit message (leave empty for the default)"
	notMaterializedMessage        = "store is not materialized; run init or checkout first"
	noChangesMessage              = "nothing to commit"
	captureDeclinedMessage        = "changes left uncommitted"
	historyDivergedTemplate       = "nested HEAD %s does not descend from %s %s; run checkout --force to realign the store"
	storeCapturedLogMessage       = "captured trunk store"
	pendingRecordedLogMessage     = "recorded pending trunk store commit"
	logFieldPreviousHashConstant  = "previous_hash"
	logFieldChangeCountConstant   = "changes"
)

// DefaultCommitMessage is the message used when a capture gets none.
func DefaultCommitMessage(store StoreName) string {
	return fmt.Sprintf(defaultCommitMessageTemplate, store)
}

// CommitOptions configures Commit.
type CommitOptions struct {
	Store   StoreName
	Message string
	Force   bool
}

// CommitResult describes a capture.
type CommitResult struct {
	Store        StoreName
	Hash         string
	PreviousHash string
	Message      string
	ChangeCount  int
	// Recovered is set when no new commit was made and an earlier nested commit that never
	// reached refs/trunk/<store> was recorded instead.
	Recovered bool
}

// Commit records the working copy of a materialized store as a new commit and moves
// refs/trunk/<store> to it with a compare-and-swap on the previous value. A clean working copy
// whose HEAD is ahead of refs/trunk/<store> finishes the interrupted capture instead of
// reporting NoChanges.
func (service *Service) Commit(executionContext context.Context, host HostRepository, options CommitOptions) (CommitResult, error) {
	if requestError := validateRequest(host, options.Store); requestError != nil {
		return CommitResult{}, requestError
	}

	store := options.Store
	storePath := host.StorePath(store)
	result := CommitResult{Store: store}

	isRepository, inspectError := service.repository.IsRepositoryRoot(executionContext, storePath)
	if inspectError != nil {
		return result, newError(KindPreconditionFailed, store, fmt.Sprintf(inspectStoreMessageTemplate, storePath), inspectError)
	}
	if !isRepository {
		return result, newError(KindPreconditionFailed, store, notMaterializedMessage, nil)
	}

	changes, statusError := service.repository.WorkingTreeChanges(executionContext, storePath)
	if statusError != nil {
		return result, newError(KindPreconditionFailed, store, fmt.Sprintf(inspectStoreMessageTemplate, storePath), statusError)
	}
	if len(changes) == 0 {
		return service.recordPendingCommit(executionContext, host, store)
	}
	result.ChangeCount = len(changes)

	message, messageError := service.captureMessage(store, options)
	if messageError != nil {
		return result, messageError
	}
	result.Message = message

	if commitError := service.commitAll(executionContext, host, storePath, message); commitError != nil {
		return result, newError(KindPreconditionFailed, store, fmt.Sprintf(commitStoreMessageTemplate, storePath), commitError)
	}

	if recordError := service.recordNestedHead(executionContext, host, store, &result); recordError != nil {
		return result, recordError
	}

	service.logger.Info(storeCapturedLogMessage,
		zap.String(logFieldStoreConstant, store.String()),
		zap.String(logFieldHashConstant, result.Hash),
		zap.String(logFieldPreviousHashConstant, result.PreviousHash),
		zap.Int(logFieldChangeCountConstant, result.ChangeCount),
	)
	return result, nil
}

// recordPendingCommit handles a clean working copy. It reports NoChanges only when the nested
// HEAD is already recorded under refs/trunk/<store>.
func (service *Service) recordPendingCommit(executionContext context.Context, host HostRepository, store StoreName) (CommitResult, error) {
	result := CommitResult{Store: store}
	nestedHash, nestedFound, nestedError := service.repository.ResolveCommit(executionContext, host.StorePath(store), headReferenceConstant)
	if nestedError != nil {
		return result, newError(KindPreconditionFailed, store, fmt.Sprintf(inspectStoreMessageTemplate, host.StorePath(store)), nestedError)
	}
	recordedHash, _, recordedError := service.repository.ResolveCommit(executionContext, host.RootPath(), store.Reference())
	if recordedError != nil {
		return result, newError(KindPreconditionFailed, store, fmt.Sprintf(inspectStoreMessageTemplate, store.Reference()), recordedError)
	}
	if !nestedFound || nestedHash == recordedHash {
		return result, newError(KindNoChanges, store, noChangesMessage, nil)
	}

	result.Recovered = true
	if recordError := service.recordNestedHead(executionContext, host, store, &result); recordError != nil {
		return result, recordError
	}
	service.logger.Info(pendingRecordedLogMessage,
		zap.String(logFieldStoreConstant, store.String()),
		zap.String(logFieldHashConstant, result.Hash),
		zap.String(logFieldPreviousHashConstant, result.PreviousHash),
	)
	return result, nil
}

// recordNestedHead bridges the nested HEAD into the host and fast-forwards refs/trunk/<store> to it
// with a compare-and-swap. A HEAD that does not descend from the recorded history is refused.
func (service *Service) recordNestedHead(executionContext context.Context, host HostRepository, store StoreName, result *CommitResult) error {
	newHash, transferError := service.bridge.Transfer(executionContext, host.StorePath(store), headReferenceConstant, host.RootPath())
	if transferError != nil {
		return transferError
	}
	result.Hash = newHash

	previousHash, found, resolveError := service.repository.ResolveCommit(executionContext, host.RootPath(), store.Reference())
	if resolveError != nil {
		return newError(KindPreconditionFailed, store, fmt.Sprintf(inspectStoreMessageTemplate, store.Reference()), resolveError)
	}
	expectedOldHash := gitrepo.ZeroHash
	if found {
		descends, ancestryError := service.repository.IsAncestor(executionContext, host.RootPath(), previousHash, newHash)
		if ancestryError != nil {
			return newError(KindPreconditionFailed, store, fmt.Sprintf(inspectStoreMessageTemplate, store.Reference()), ancestryError)
		}
		if !descends {
			return newError(KindPreconditionFailed, store, fmt.Sprintf(historyDivergedTemplate, newHash, store.Reference(), previousHash), nil)
		}
		expectedOldHash = previousHash
		result.PreviousHash = previousHash
	}
	if updateError := service.repository.UpdateReference(executionContext, host.RootPath(), store.Reference(), newHash, expectedOldHash); updateError != nil {
		return newError(KindPreconditionFailed, store, fmt.Sprintf(recordReferenceMessageTemplate, store.Reference()), updateError)
	}
	return nil
}

// captureMessage confirms the capture and settles the commit message. Force skips both prompts.
func (service *Service) captureMessage(store StoreName, options CommitOptions) (string, error) {
	message := strings.TrimSpace(options.Message)
	if options.Force {
		if len(message) == 0 {
			return DefaultCommitMessage(store), nil
		}
		return message, nil
	}

	if confirmError := service.confirm(store, false, fmt.Sprintf(captureQuestionTemplate, store), captureDeclinedMessage); confirmError != nil {
		return "", confirmError
	}
	if len(message) > 0 {
		return message, nil
	}

	answer, readError := service.prompter.ReadMessage(commitMessageQuestionConstant)
	if readError != nil {
		return "", fmt.Errorf(promptErrorTemplateConstant, readError)
	}
	if trimmedAnswer := strings.TrimSpace(answer); len(trimmedAnswer) > 0 {
		return trimmedAnswer, nil
	}
	return DefaultCommitMessage(store), nil
}
