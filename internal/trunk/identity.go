package trunk

import (
	"context"

	"github.com/temirov/gittrunk/internal/gitrepo"
)

const (
	userNameConfigKeyConstant  = "user.name"
	userEmailConfigKeyConstant = "user.email"
	fallbackIdentityName       = "git-trunk"
	fallbackIdentityEmail      = "git-trunk@localhost"
)

// commitIdentity picks the identity for a commit inside a store. Nested repositories do not see
// the host's local configuration, so the host identity is passed along when git would otherwise
// have none. A nil result lets git use its own configuration.
func (service *Service) commitIdentity(executionContext context.Context, host HostRepository, storePath string) (*gitrepo.CommitIdentity, error) {
	_, nameConfigured, nameError := service.repository.ConfigValue(executionContext, storePath, userNameConfigKeyConstant)
	if nameError != nil {
		return nil, nameError
	}
	_, emailConfigured, emailError := service.repository.ConfigValue(executionContext, storePath, userEmailConfigKeyConstant)
	if emailError != nil {
		return nil, emailError
	}
	if nameConfigured && emailConfigured {
		return nil, nil
	}

	identity := &gitrepo.CommitIdentity{Name: fallbackIdentityName, Email: fallbackIdentityEmail}
	if hostName, found, hostNameError := service.repository.ConfigValue(executionContext, host.RootPath(), userNameConfigKeyConstant); hostNameError == nil && found {
		identity.Name = hostName
	}
	if hostEmail, found, hostEmailError := service.repository.ConfigValue(executionContext, host.RootPath(), userEmailConfigKeyConstant); hostEmailError == nil && found {
		identity.Email = hostEmail
	}
	return identity, nil
}
