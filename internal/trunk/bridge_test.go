package trunk_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/gittrunk/internal/prompt"
	"github.com/temirov/gittrunk/internal/trunk"
)

const (
	bridgeSourcePathConstant        = "/work/host/.trunk/docs"
	bridgeDestinationPathConstant   = "/work/host"
	bridgeTemporaryReferenceName    = "refs/trunk-temp/fixed"
	bridgeSourceHashConstant        = "1111111111111111111111111111111111111111"
	bridgeUnexpectedHashConstant    = "2222222222222222222222222222222222222222"
	bridgeReleaseFailureLogMessage  = "unable to release temporary reference"
	bridgeReleaseCaseFetchFailure   = "fetch_failure"
	bridgeReleaseCaseHashMismatch   = "hash_mismatch"
	bridgeReleaseCaseSuccess        = "success"
	bridgeReleaseCaseCancelledFetch = "cancelled_fetch"
	bridgeSourceHeadKey             = bridgeSourcePathConstant + "#HEAD"
	bridgeTemporaryKey              = bridgeDestinationPathConstant + "#" + bridgeTemporaryReferenceName
)

type bridgeResolution struct {
	hash  string
	found bool
}

// bridgeRepository implements the calls the bridge makes; any other call panics.
type bridgeRepository struct {
	trunk.GitRepository
	resolutions       map[string]bridgeResolution
	fetchError        error
	deleteError       error
	fetchedRefspecs   []string
	deletedReferences []string
	deleteContextErrs []error
}

func (repository *bridgeRepository) ResolveCommit(_ context.Context, path string, revision string) (string, bool, error) {
	resolution := repository.resolutions[path+"#"+revision]
	return resolution.hash, resolution.found, nil
}

func (repository *bridgeRepository) Fetch(executionContext context.Context, _ string, _ string, refspec string) error {
	repository.fetchedRefspecs = append(repository.fetchedRefspecs, refspec)
	if executionContext.Err() != nil {
		return executionContext.Err()
	}
	return repository.fetchError
}

func (repository *bridgeRepository) DeleteReference(executionContext context.Context, _ string, reference string) error {
	repository.deletedReferences = append(repository.deletedReferences, reference)
	repository.deleteContextErrs = append(repository.deleteContextErrs, executionContext.Err())
	return repository.deleteError
}

func TestBridgeReleasesTemporaryReferenceOnEveryPath(testInstance *testing.T) {
	testCases := []struct {
		name              string
		destinationHash   string
		fetchError        error
		cancelContext     bool
		expectedErrorKind error
	}{
		{name: bridgeReleaseCaseSuccess, destinationHash: bridgeSourceHashConstant},
		{name: bridgeReleaseCaseFetchFailure, fetchError: errors.New("fatal: unable to read"), expectedErrorKind: trunk.ErrTransferFailure},
		{name: bridgeReleaseCaseHashMismatch, destinationHash: bridgeUnexpectedHashConstant, expectedErrorKind: trunk.ErrTransferFailure},
		{name: bridgeReleaseCaseCancelledFetch, cancelContext: true, expectedErrorKind: trunk.ErrTransferFailure},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			repository := &bridgeRepository{
				resolutions: map[string]bridgeResolution{
					bridgeSourceHeadKey: {hash: bridgeSourceHashConstant, found: true},
					bridgeTemporaryKey:  {hash: testCase.destinationHash, found: len(testCase.destinationHash) > 0},
				},
				fetchError: testCase.fetchError,
			}
			service := newBridgeService(subTest, repository, zap.NewNop())

			executionContext, cancel := context.WithCancel(context.Background())
			defer cancel()
			if testCase.cancelContext {
				cancel()
			}

			hash, transferError := service.Bridge().Transfer(executionContext, bridgeSourcePathConstant, "HEAD", bridgeDestinationPathConstant)
			if testCase.expectedErrorKind != nil {
				require.ErrorIs(subTest, transferError, testCase.expectedErrorKind)
				require.Empty(subTest, hash)
			} else {
				require.NoError(subTest, transferError)
				require.Equal(subTest, bridgeSourceHashConstant, hash)
			}

			require.Equal(subTest, []string{"+HEAD:" + bridgeTemporaryReferenceName}, repository.fetchedRefspecs)
			require.Equal(subTest, []string{bridgeTemporaryReferenceName}, repository.deletedReferences)
			require.Equal(subTest, []error{nil}, repository.deleteContextErrs)
		})
	}
}

func TestBridgeReportsMissingSourceWithoutFetching(testInstance *testing.T) {
	repository := &bridgeRepository{resolutions: map[string]bridgeResolution{}}
	service := newBridgeService(testInstance, repository, zap.NewNop())

	_, transferError := service.Bridge().Transfer(context.Background(), bridgeSourcePathConstant, "refs/trunk/ghost", bridgeDestinationPathConstant)
	require.ErrorIs(testInstance, transferError, trunk.ErrReferenceNotFound)
	require.Empty(testInstance, repository.fetchedRefspecs)
	require.Empty(testInstance, repository.deletedReferences)
}

func TestBridgeReleaseFailureDoesNotMaskResult(testInstance *testing.T) {
	repository := &bridgeRepository{
		resolutions: map[string]bridgeResolution{
			bridgeSourceHeadKey: {hash: bridgeSourceHashConstant, found: true},
			bridgeTemporaryKey:  {hash: bridgeSourceHashConstant, found: true},
		},
		deleteError: errors.New("cannot lock ref"),
	}
	observedCore, observedLogs := observer.New(zap.DebugLevel)
	service := newBridgeService(testInstance, repository, zap.New(observedCore))

	hash, transferError := service.Bridge().Transfer(context.Background(), bridgeSourcePathConstant, "HEAD", bridgeDestinationPathConstant)
	require.NoError(testInstance, transferError)
	require.Equal(testInstance, bridgeSourceHashConstant, hash)

	warnings := observedLogs.FilterMessage(bridgeReleaseFailureLogMessage).All()
	require.Len(testInstance, warnings, 1)
	require.Equal(testInstance, zap.WarnLevel, warnings[0].Level)
	require.Equal(testInstance, bridgeTemporaryReferenceName, warnings[0].ContextMap()["temporary_reference"])
}

func TestBridgeGeneratesDistinctTemporaryReferences(testInstance *testing.T) {
	repository := &bridgeRepository{
		resolutions: map[string]bridgeResolution{
			bridgeSourceHeadKey: {hash: bridgeSourceHashConstant, found: true},
		},
		fetchError: errors.New("offline"),
	}
	service, serviceError := trunk.NewService(trunk.ServiceDependencies{Repository: repository, Prompter: prompt.AlwaysConfirmer{}})
	require.NoError(testInstance, serviceError)

	for attempt := 0; attempt < 2; attempt++ {
		_, transferError := service.Bridge().Transfer(context.Background(), bridgeSourcePathConstant, "HEAD", bridgeDestinationPathConstant)
		require.Error(testInstance, transferError)
	}

	require.Len(testInstance, repository.deletedReferences, 2)
	require.NotEqual(testInstance, repository.deletedReferences[0], repository.deletedReferences[1])
	for _, reference := range repository.deletedReferences {
		require.Regexp(testInstance, `^refs/trunk-temp/[0-9a-f-]{36}$`, reference)
	}
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	_, missingRepository := trunk.NewService(trunk.ServiceDependencies{Prompter: prompt.AlwaysConfirmer{}})
	require.ErrorIs(testInstance, missingRepository, trunk.ErrRepositoryNotConfigured)

	_, missingPrompter := trunk.NewService(trunk.ServiceDependencies{Repository: &bridgeRepository{}})
	require.ErrorIs(testInstance, missingPrompter, trunk.ErrPrompterNotConfigured)
}

func newBridgeService(testInstance *testing.T, repository trunk.GitRepository, logger *zap.Logger) *trunk.Service {
	testInstance.Helper()
	service, serviceError := trunk.NewService(trunk.ServiceDependencies{
		Logger:     logger,
		Repository: repository,
		Prompter:   prompt.AlwaysConfirmer{},
		TemporaryReferenceName: func() string {
			return bridgeTemporaryReferenceName
		},
	})
	require.NoError(testInstance, serviceError)
	return service
}
