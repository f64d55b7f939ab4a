package identityfake

import (
	"context"
	"sync"

	"github.com/adultna/go-session-gateway/identity"
	gatewayerrors "github.com/adultna/go-session-gateway/internal/errors"
)

var _ identity.Service = (*FakeService)(nil)

// FakeService is an in-memory identity.Service for tests. Configure the
// user and refresh result to return, or an error, and inspect call counts.
type FakeService struct {
	lock sync.Mutex

	User         *identity.User
	MeErr        error
	MeCalls      int
	MeTokens     []string // access tokens Me was called with
	Result       *identity.RefreshResult
	RefreshErr   error
	RefreshCalls int
}

func NewFakeService() *FakeService {
	return &FakeService{}
}

func (f *FakeService) Me(ctx context.Context, accessToken string) (*identity.User, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.MeCalls++
	f.MeTokens = append(f.MeTokens, accessToken)
	if f.MeErr != nil {
		return nil, f.MeErr
	}
	if f.User == nil {
		return nil, gatewayerrors.ErrUnauthenticated
	}
	return f.User, nil
}

func (f *FakeService) Refresh(ctx context.Context, refreshToken string) (*identity.RefreshResult, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.RefreshCalls++
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}
	if f.Result == nil {
		return nil, gatewayerrors.ErrInvalidRefreshToken
	}
	return f.Result, nil
}

// SetUser swaps the configured user under the lock.
func (f *FakeService) SetUser(user *identity.User) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.User = user
}

// Calls returns how many times Me has been invoked.
func (f *FakeService) Calls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.MeCalls
}
