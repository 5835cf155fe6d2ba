package trunk

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/gittrunk/internal/gitrepo"
	"github.com/temirov/gittrunk/internal/prompt"
)

const (
	repositoryMissingMessageConstant = "trunk repository manager not configured"
	prompterMissingMessageConstant   = "trunk prompter not configured"
	hostResolutionMessageConstant    = "not inside a git repository"
	hostEmptyMessageConstant         = "host repository not resolved"
	storeEmptyMessageConstant        = "store name not provided"
	remoteEmptyMessageConstant       = "remote name not provided"
	promptErrorTemplateConstant      = "unable to read answer: %w"
	logFieldStoreConstant            = "store"
	logFieldRemoteConstant           = "remote"
	logFieldHashConstant             = "hash"
	logFieldPathConstant             = "path"
	logFieldReferenceConstant        = "reference"
)

// GitRepository is the git plumbing the engine relies on. *gitrepo.RepositoryManager implements it.
type GitRepository interface {
	TopLevel(executionContext context.Context, path string) (string, error)
	IsRepositoryRoot(executionContext context.Context, path string) (bool, error)
	ResolveCommit(executionContext context.Context, path string, revision string) (string, bool, error)
	ObjectExists(executionContext context.Context, path string, hash string) (bool, error)
	UpdateReference(executionContext context.Context, path string, reference string, newHash string, expectedOldHash string) error
	DeleteReference(executionContext context.Context, path string, reference string) error
	Fetch(executionContext context.Context, path string, location string, refspec string) error
	Push(executionContext context.Context, path string, remote string, refspec string) error
	ListRemoteReferences(executionContext context.Context, path string, remote string, patterns ...string) (map[string]string, error)
	ListLocalReferences(executionContext context.Context, path string, prefix string) (map[string]string, error)
	WorkingTreeChanges(executionContext context.Context, path string) ([]string, error)
	IsAncestor(executionContext context.Context, path string, ancestor string, descendant string) (bool, error)
	Init(executionContext context.Context, path string) error
	PointHead(executionContext context.Context, path string, branchReference string) error
	ResetHard(executionContext context.Context, path string, revision string) error
	StageAll(executionContext context.Context, path string) error
	Commit(executionContext context.Context, path string, message string, identity *gitrepo.CommitIdentity) error
	ConfigValue(executionContext context.Context, path string, key string) (string, bool, error)
	DescribeCommit(executionContext context.Context, path string, revision string) (gitrepo.CommitSummary, error)
}

var (
	// ErrRepositoryNotConfigured indicates NewService received no GitRepository.
	ErrRepositoryNotConfigured = errors.New(repositoryMissingMessageConstant)
	// ErrPrompterNotConfigured indicates NewService received no Prompter.
	ErrPrompterNotConfigured = errors.New(prompterMissingMessageConstant)
)

// ServiceDependencies enumerates collaborators required by the engine.
type ServiceDependencies struct {
	Logger     *zap.Logger
	Repository GitRepository
	Prompter   prompt.Prompter
	// TemporaryReferenceName overrides the bridge guard naming; tests use it to observe the guard.
	TemporaryReferenceName func() string
}

// Service runs store operations against an explicit HostRepository.
type Service struct {
	logger     *zap.Logger
	repository GitRepository
	prompter   prompt.Prompter
	bridge     *Bridge
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Repository == nil {
		return nil, ErrRepositoryNotConfigured
	}
	if dependencies.Prompter == nil {
		return nil, ErrPrompterNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	temporaryReferenceName := dependencies.TemporaryReferenceName
	if temporaryReferenceName == nil {
		temporaryReferenceName = func() string {
			return TemporaryReferenceNamespace + uuid.NewString()
		}
	}

	return &Service{
		logger:     logger,
		repository: dependencies.Repository,
		prompter:   dependencies.Prompter,
		bridge: &Bridge{
			repository:             dependencies.Repository,
			logger:                 logger,
			temporaryReferenceName: temporaryReferenceName,
		},
	}, nil
}

// OpenHost resolves the host repository containing workingDirectory.
func (service *Service) OpenHost(executionContext context.Context, workingDirectory string) (HostRepository, error) {
	topLevel, topLevelError := service.repository.TopLevel(executionContext, workingDirectory)
	if topLevelError != nil {
		return HostRepository{}, &Error{Kind: KindPreconditionFailed, Message: hostResolutionMessageConstant, Cause: topLevelError}
	}
	return HostRepository{rootPath: topLevel}, nil
}

// Bridge exposes the object bridge used by the engine operations.
func (service *Service) Bridge() *Bridge {
	return service.bridge
}

func (service *Service) confirmer(force bool) prompt.Prompter {
	if force {
		return prompt.AlwaysConfirmer{}
	}
	return service.prompter
}

// confirm asks question unless force is set. A negative answer becomes KindConfirmationDeclined.
func (service *Service) confirm(store StoreName, force bool, question string, declinedMessage string) error {
	confirmed, confirmError := service.confirmer(force).Confirm(question)
	if confirmError != nil {
		return fmt.Errorf(promptErrorTemplateConstant, confirmError)
	}
	if !confirmed {
		return newError(KindConfirmationDeclined, store, declinedMessage, nil)
	}
	return nil
}

func validateRequest(host HostRepository, store StoreName) error {
	if host.IsZero() {
		return &Error{Kind: KindPreconditionFailed, Message: hostEmptyMessageConstant}
	}
	if store.IsZero() {
		return &Error{Kind: KindPreconditionFailed, Message: storeEmptyMessageConstant}
	}
	return nil
}

func validateRemote(store StoreName, remote string) error {
	if len(remote) == 0 {
		return newError(KindPreconditionFailed, store, remoteEmptyMessageConstant, nil)
	}
	return nil
}

func directoryExists(path string) (bool, error) {
	directoryInfo, statError := os.Stat(path)
	if statError == nil {
		return directoryInfo.IsDir(), nil
	}
	if errors.Is(statError, os.ErrNotExist) {
		return false, nil
	}
	return false, statError
}

// removeEmptyStoresRoot deletes the stores directory once the last store is gone.
func removeEmptyStoresRoot(host HostRepository) (bool, error) {
	entries, readError := os.ReadDir(host.StoresRootPath())
	if readError != nil {
		if errors.Is(readError, os.ErrNotExist) {
			return false, nil
		}
		return false, readError
	}
	if len(entries) > 0 {
		return false, nil
	}
	if removeError := os.Remove(host.StoresRootPath()); removeError != nil {
		return false, removeError
	}
	return true, nil
}
