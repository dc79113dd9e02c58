// Package mocks provides mock implementations of the auth ports for testing.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
// Stateful in-memory implementations that enforce the storage uniqueness rules live in mocks/auth.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockGrantRepository(ctrl)
//	mockRepo.EXPECT().FindBySourceKey(gomock.Any(), "google", "sub").Return(grant, nil)
package mocks

// Generate mock for GrantRepository interface from internal/ports package.
// This creates MockGrantRepository with methods for all GrantRepository interface methods:
// FindByUserAndSource, FindByUserSourceKey, FindBySourceKey, Insert, UpdateSourceKey
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=grant_repository_mock.go github.com/target/mmk-auth/internal/ports GrantRepository

// Generate mock for ConfirmationRepository interface from internal/ports package.
// This creates MockConfirmationRepository with methods for all ConfirmationRepository interface methods:
// FindByUserAndRecipient, FindOpenByUserAndCode, CodeInUse, Insert, Reset, MarkCompleted
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=confirmation_repository_mock.go github.com/target/mmk-auth/internal/ports ConfirmationRepository

// Generate mock for SessionRepository interface from internal/ports package.
// This creates MockSessionRepository with methods for all SessionRepository interface methods:
// FindByDevice, FindByToken, TokenExists, Insert, Refresh, SetEndTime, ExpireByUser
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_repository_mock.go github.com/target/mmk-auth/internal/ports SessionRepository

// Generate mock for SessionCache interface from internal/ports package.
// This creates MockSessionCache with methods for all SessionCache interface methods:
// Get, Save, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_cache_mock.go github.com/target/mmk-auth/internal/ports SessionCache

// Generate mock for DelegatedProvider interface from internal/ports package.
// This creates MockDelegatedProvider with methods for all DelegatedProvider interface methods:
// Name, AuthLink, Exchange, FetchProfile, ProviderUserKey
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=delegated_provider_mock.go github.com/target/mmk-auth/internal/ports DelegatedProvider

// Generate mock for CodeSender interface from internal/ports package.
// This creates MockCodeSender with methods for all CodeSender interface methods:
// Send
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=code_sender_mock.go github.com/target/mmk-auth/internal/ports CodeSender
