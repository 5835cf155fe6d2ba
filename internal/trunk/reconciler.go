package trunk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"
)

// StoreState classifies a store across its working copy, local ref and remote ref.
type StoreState string

const (
	// StateNotFound means the store exists in no scope.
	StateNotFound StoreState = "not found"
	// StateRemoteOnly means only the remote advertises the store.
	StateRemoteOnly StoreState = "remote only"
	// StateLocalOnly means the host has the ref and the remote does not.
	StateLocalOnly StoreState = "local only"
	// StateSynchronized means the local and remote refs name the same commit.
	StateSynchronized StoreState = "synchronized"
	// StateLocalAhead means the remote commit is an ancestor of the local one.
	StateLocalAhead StoreState = "local ahead"
	// StateRemoteAhead means the local commit is an ancestor of the remote one, or the remote
	// commit has not been fetched.
	StateRemoteAhead StoreState = "remote ahead"
	// StateDiverged means neither commit contains the other.
	StateDiverged StoreState = "diverged"
	// StateUntracked means only a working copy exists, with no ref recording it.
	StateUntracked StoreState = "untracked"
)

const (
	remoteReferencePatternConstant  = ReferenceNamespace + "*"
	storeStatusLogMessage           = "collected trunk store status"
	remoteQueryFailedLogMessage     = "unable to query remote trunk references"
	statusInspectionMessageTemplate = "unable to inspect %s"
	logFieldStateConstant           = "state"
)

// StoreStatus is the reconciled view of one store.
type StoreStatus struct {
	Store              string     `yaml:"store"`
	State              StoreState `yaml:"state"`
	Materialized       bool       `yaml:"materialized"`
	UncommittedChanges int        `yaml:"uncommitted_changes"`
	LocalHash          string     `yaml:"local_hash,omitempty"`
	LocalShortHash     string     `yaml:"local_short_hash,omitempty"`
	LocalCommitTime    time.Time  `yaml:"local_commit_time,omitempty"`
	Remote             string     `yaml:"remote"`
	RemoteHash         string     `yaml:"remote_hash,omitempty"`
	RemoteCheckFailed  bool       `yaml:"remote_check_failed"`
	RemoteError        string     `yaml:"remote_error,omitempty"`
}

// HasUncommittedChanges reports the UncommittedChanges overlay.
func (status StoreStatus) HasUncommittedChanges() bool {
	return status.UncommittedChanges > 0
}

// StatusOptions configures Status.
type StatusOptions struct {
	Store  StoreName
	Remote string
	All    bool
}

type remoteSnapshot struct {
	references map[string]string
	queryError error
}

// Status reconciles one store, or every store known to any scope when All is set. A remote that
// cannot be queried marks the report instead of failing it.
func (service *Service) Status(executionContext context.Context, host HostRepository, options StatusOptions) ([]StoreStatus, error) {
	if host.IsZero() {
		return nil, &Error{Kind: KindPreconditionFailed, Message: hostEmptyMessageConstant}
	}
	if !options.All && options.Store.IsZero() {
		return nil, &Error{Kind: KindPreconditionFailed, Message: storeEmptyMessageConstant}
	}

	remote := service.queryRemote(executionContext, host, options)

	stores := []StoreName{options.Store}
	if options.All {
		discovered, discoverError := service.discoverStores(executionContext, host, remote)
		if discoverError != nil {
			return nil, discoverError
		}
		stores = discovered
	}

	statuses := make([]StoreStatus, 0, len(stores))
	for _, store := range stores {
		status, statusError := service.storeStatus(executionContext, host, store, options.Remote, remote)
		if statusError != nil {
			return nil, statusError
		}
		service.logger.Debug(storeStatusLogMessage,
			zap.String(logFieldStoreConstant, store.String()),
			zap.String(logFieldStateConstant, string(status.State)),
		)
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (service *Service) queryRemote(executionContext context.Context, host HostRepository, options StatusOptions) remoteSnapshot {
	if validateRemote(options.Store, options.Remote) != nil {
		return remoteSnapshot{queryError: &Error{Kind: KindPreconditionFailed, Message: remoteEmptyMessageConstant}}
	}

	pattern := remoteReferencePatternConstant
	if !options.All {
		pattern = options.Store.Reference()
	}
	references, queryError := service.repository.ListRemoteReferences(executionContext, host.RootPath(), options.Remote, pattern)
	if queryError != nil {
		service.logger.Warn(remoteQueryFailedLogMessage,
			zap.String(logFieldRemoteConstant, options.Remote),
			zap.Error(queryError),
		)
		return remoteSnapshot{queryError: queryError}
	}
	return remoteSnapshot{references: references}
}

// discoverStores unions store names from the remote refs, the local refs, and the stores directory.
func (service *Service) discoverStores(executionContext context.Context, host HostRepository, remote remoteSnapshot) ([]StoreName, error) {
	discovered := make(map[string]StoreName)
	addReferences := func(references map[string]string) {
		for reference := range references {
			if store, valid := StoreNameFromReference(reference); valid {
				discovered[store.String()] = store
			}
		}
	}

	addReferences(remote.references)

	localReferences, listError := service.repository.ListLocalReferences(executionContext, host.RootPath(), ReferenceNamespace)
	if listError != nil {
		return nil, &Error{Kind: KindPreconditionFailed, Message: fmt.Sprintf(statusInspectionMessageTemplate, ReferenceNamespace), Cause: listError}
	}
	addReferences(localReferences)

	entries, readError := os.ReadDir(host.StoresRootPath())
	if readError != nil && !errors.Is(readError, os.ErrNotExist) {
		return nil, &Error{Kind: KindPreconditionFailed, Message: fmt.Sprintf(statusInspectionMessageTemplate, host.StoresRootPath()), Cause: readError}
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if store, nameError := NewStoreName(entry.Name()); nameError == nil {
			discovered[store.String()] = store
		}
	}

	names := make([]string, 0, len(discovered))
	for name := range discovered {
		names = append(names, name)
	}
	sort.Strings(names)

	stores := make([]StoreName, 0, len(names))
	for _, name := range names {
		stores = append(stores, discovered[name])
	}
	return stores, nil
}

func (service *Service) storeStatus(executionContext context.Context, host HostRepository, store StoreName, remoteName string, remote remoteSnapshot) (StoreStatus, error) {
	status := StoreStatus{Store: store.String(), Remote: remoteName}

	storePath := host.StorePath(store)
	materialized, statError := directoryExists(storePath)
	if statError != nil {
		return status, newError(KindPreconditionFailed, store, fmt.Sprintf(statusInspectionMessageTemplate, storePath), statError)
	}
	status.Materialized = materialized
	if materialized {
		if isRepository, _ := service.repository.IsRepositoryRoot(executionContext, storePath); isRepository {
			if changes, changesError := service.repository.WorkingTreeChanges(executionContext, storePath); changesError == nil {
				status.UncommittedChanges = len(changes)
			}
		}
	}

	localHash, localFound, resolveError := service.repository.ResolveCommit(executionContext, host.RootPath(), store.Reference())
	if resolveError != nil {
		return status, newError(KindPreconditionFailed, store, fmt.Sprintf(statusInspectionMessageTemplate, store.Reference()), resolveError)
	}
	if localFound {
		status.LocalHash = localHash
		if summary, describeError := service.repository.DescribeCommit(executionContext, host.RootPath(), store.Reference()); describeError == nil {
			status.LocalShortHash = summary.ShortHash
			status.LocalCommitTime = summary.CommitTime
		}
	}

	if remote.queryError != nil {
		status.RemoteCheckFailed = true
		status.RemoteError = remote.queryError.Error()
	} else {
		status.RemoteHash = remote.references[store.Reference()]
	}

	state, classifyError := service.classify(executionContext, host, status)
	if classifyError != nil {
		return status, newError(KindPreconditionFailed, store, fmt.Sprintf(statusInspectionMessageTemplate, store.Reference()), classifyError)
	}
	status.State = state
	return status, nil
}

// classify derives the state from the observed hashes. A failed remote query classifies on
// local data alone.
func (service *Service) classify(executionContext context.Context, host HostRepository, status StoreStatus) (StoreState, error) {
	localPresent := len(status.LocalHash) > 0
	remotePresent := len(status.RemoteHash) > 0

	switch {
	case !localPresent && !remotePresent && status.Materialized:
		return StateUntracked, nil
	case !localPresent && !remotePresent:
		return StateNotFound, nil
	case !localPresent:
		return StateRemoteOnly, nil
	case !remotePresent:
		return StateLocalOnly, nil
	case status.LocalHash == status.RemoteHash:
		return StateSynchronized, nil
	}

	remoteKnown, existsError := service.repository.ObjectExists(executionContext, host.RootPath(), status.RemoteHash)
	if existsError != nil {
		return "", existsError
	}
	if !remoteKnown {
		return StateRemoteAhead, nil
	}

	localContainsRemote, ancestryError := service.repository.IsAncestor(executionContext, host.RootPath(), status.RemoteHash, status.LocalHash)
	if ancestryError != nil {
		return "", ancestryError
	}
	if localContainsRemote {
		return StateLocalAhead, nil
	}

	remoteContainsLocal, ancestryError := service.repository.IsAncestor(executionContext, host.RootPath(), status.LocalHash, status.RemoteHash)
	if ancestryError != nil {
		return "", ancestryError
	}
	if remoteContainsLocal {
		return StateRemoteAhead, nil
	}
	return StateDiverged, nil
}
