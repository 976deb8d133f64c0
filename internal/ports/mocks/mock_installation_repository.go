package mocks

import (
	context "context"

	domain "github.com/bnema/repo-digest-notifier/internal/domain"
	mock "github.com/stretchr/testify/mock"
)

// MockInstallationRepository is a testify mock for the InstallationRepository type
type MockInstallationRepository struct {
	mock.Mock
}

type MockInstallationRepository_Expecter struct {
	mock *mock.Mock
}

func (_m *MockInstallationRepository) EXPECT() *MockInstallationRepository_Expecter {
	return &MockInstallationRepository_Expecter{mock: &_m.Mock}
}

// Get provides a mock function with given fields: ctx, workspaceKey
func (_m *MockInstallationRepository) Get(ctx context.Context, workspaceKey string) (domain.Installation, error) {
	ret := _m.Called(ctx, workspaceKey)

	if len(ret) == 0 {
		panic("no return value specified for Get")
	}

	var r0 domain.Installation
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (domain.Installation, error)); ok {
		return rf(ctx, workspaceKey)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) domain.Installation); ok {
		r0 = rf(ctx, workspaceKey)
	} else {
		r0 = ret.Get(0).(domain.Installation)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, workspaceKey)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MockInstallationRepository_Get_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Get'
type MockInstallationRepository_Get_Call struct {
	*mock.Call
}

// Get is a helper method to define mock.On call
//   - ctx context.Context
//   - workspaceKey string
func (_e *MockInstallationRepository_Expecter) Get(ctx interface{}, workspaceKey interface{}) *MockInstallationRepository_Get_Call {
	return &MockInstallationRepository_Get_Call{Call: _e.mock.On("Get", ctx, workspaceKey)}
}

func (_c *MockInstallationRepository_Get_Call) Return(_a0 domain.Installation, _a1 error) *MockInstallationRepository_Get_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

// List provides a mock function with given fields: ctx
func (_m *MockInstallationRepository) List(ctx context.Context) ([]domain.Installation, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for List")
	}

	var r0 []domain.Installation
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) ([]domain.Installation, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) []domain.Installation); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]domain.Installation)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MockInstallationRepository_List_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'List'
type MockInstallationRepository_List_Call struct {
	*mock.Call
}

// List is a helper method to define mock.On call
//   - ctx context.Context
func (_e *MockInstallationRepository_Expecter) List(ctx interface{}) *MockInstallationRepository_List_Call {
	return &MockInstallationRepository_List_Call{Call: _e.mock.On("List", ctx)}
}

func (_c *MockInstallationRepository_List_Call) Return(_a0 []domain.Installation, _a1 error) *MockInstallationRepository_List_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

// Save provides a mock function with given fields: ctx, installation
func (_m *MockInstallationRepository) Save(ctx context.Context, installation domain.Installation) error {
	ret := _m.Called(ctx, installation)

	if len(ret) == 0 {
		panic("no return value specified for Save")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, domain.Installation) error); ok {
		r0 = rf(ctx, installation)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// MockInstallationRepository_Save_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Save'
type MockInstallationRepository_Save_Call struct {
	*mock.Call
}

// Save is a helper method to define mock.On call
//   - ctx context.Context
//   - installation domain.Installation
func (_e *MockInstallationRepository_Expecter) Save(ctx interface{}, installation interface{}) *MockInstallationRepository_Save_Call {
	return &MockInstallationRepository_Save_Call{Call: _e.mock.On("Save", ctx, installation)}
}

func (_c *MockInstallationRepository_Save_Call) Run(run func(ctx context.Context, installation domain.Installation)) *MockInstallationRepository_Save_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(domain.Installation))
	})
	return _c
}

func (_c *MockInstallationRepository_Save_Call) Return(_a0 error) *MockInstallationRepository_Save_Call {
	_c.Call.Return(_a0)
	return _c
}

// NewMockInstallationRepository creates a new instance of MockInstallationRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockInstallationRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockInstallationRepository {
	mock := &MockInstallationRepository{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
