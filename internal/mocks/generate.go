// Package mocks provides mock implementations for testing the identity and
// content boundaries.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the port interfaces. The mocks are generated using go:generate directives
// and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockProvider := mocks.NewMockIdentityProvider(ctrl)
//	mockProvider.EXPECT().ResolveIdentity(gomock.Any(), gomock.Any()).Return(identity, nil)
package mocks

// Generate mock for IdentityProvider interface from internal/ports.
// This creates MockIdentityProvider with methods for all IdentityProvider interface methods:
// Authenticate, ResolveIdentity, Register, AssignRole
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_provider_mock.go github.com/lumastream/lumastream/internal/ports IdentityProvider

// Generate mock for ContentCache interface from internal/ports.
// This creates MockContentCache with methods for all ContentCache interface methods:
// Get, Set, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=content_cache_mock.go github.com/lumastream/lumastream/internal/ports ContentCache
