package authority

import (
	"context"

	"github.com/sparkyfit/authority/internal/models"
)

type mockIdentityAPI struct {
	ActiveIdentityFunc  func(ctx context.Context) (*ActiveIdentity, error)
	AccessibleUsersFunc func(ctx context.Context) ([]AccessibleUser, error)
	SwitchContextFunc   func(ctx context.Context, targetUserID string) (string, error)
}

func (m *mockIdentityAPI) ActiveIdentity(ctx context.Context) (*ActiveIdentity, error) {
	if m.ActiveIdentityFunc == nil {
		return nil, nil
	}
	return m.ActiveIdentityFunc(ctx)
}

func (m *mockIdentityAPI) AccessibleUsers(ctx context.Context) ([]AccessibleUser, error) {
	if m.AccessibleUsersFunc == nil {
		return nil, nil
	}
	return m.AccessibleUsersFunc(ctx)
}

func (m *mockIdentityAPI) SwitchContext(ctx context.Context, targetUserID string) (string, error) {
	if m.SwitchContextFunc == nil {
		return targetUserID, nil
	}
	return m.SwitchContextFunc(ctx, targetUserID)
}

type mockProvider struct {
	GetSessionFunc func(ctx context.Context) (*models.ProviderSession, error)
	SignOutFunc    func(ctx context.Context) error
}

func (m *mockProvider) GetSession(ctx context.Context) (*models.ProviderSession, error) {
	if m.GetSessionFunc == nil {
		return nil, nil
	}
	return m.GetSessionFunc(ctx)
}

func (m *mockProvider) SignOut(ctx context.Context) error {
	if m.SignOutFunc == nil {
		return nil
	}
	return m.SignOutFunc(ctx)
}
