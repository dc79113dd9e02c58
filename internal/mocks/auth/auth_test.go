package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

func TestMemoryGrantRepository_Uniqueness(t *testing.T) {
	t.Parallel()
	repo := NewMemoryGrantRepository()
	ctx := context.Background()

	_, err := repo.Insert(ctx, domainauth.Grant{UserID: "u1", Source: domainauth.SourcePassword, SourceKey: "h1"})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, domainauth.Grant{UserID: "u1", Source: domainauth.SourcePassword, SourceKey: "h2"})
	assert.True(t, apperrors.IsConflict(err), "second password grant must conflict")

	_, err = repo.Insert(ctx, domainauth.Grant{UserID: "u1", Source: domainauth.SourceCode, SourceKey: "a@b.com"})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, domainauth.Grant{UserID: "u2", Source: domainauth.SourceCode, SourceKey: "a@b.com"})
	require.NoError(t, err, "code grants are unique per user")

	_, err = repo.Insert(ctx, domainauth.Grant{UserID: "u1", Source: "google", SourceKey: "sub-1"})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, domainauth.Grant{UserID: "u2", Source: "google", SourceKey: "sub-1"})
	assert.True(t, apperrors.IsConflict(err), "a provider identity maps to one user")

	g, err := repo.FindBySourceKey(ctx, "google", "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", g.UserID)

	_, err = repo.FindByUserAndSource(ctx, "u9", domainauth.SourcePassword)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, 4, repo.Len())
}

func TestMemoryConfirmationRepository_Lifecycle(t *testing.T) {
	t.Parallel()
	repo := NewMemoryConfirmationRepository()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	c, err := repo.Insert(ctx, domainauth.Confirmation{
		UserID: "u1", Type: domainauth.RecipientEmail, To: "a@b.com", Code: "123456",
		CreateTime: now, EndTime: now.Add(time.Minute),
	})
	require.NoError(t, err)

	_, err = repo.Insert(ctx, domainauth.Confirmation{UserID: "u1", To: "a@b.com", Code: "654321"})
	assert.True(t, apperrors.IsConflict(err))

	inUse, err := repo.CodeInUse(ctx, "123456", now)
	require.NoError(t, err)
	assert.True(t, inUse)

	ok, err := repo.MarkCompleted(ctx, c.ID, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "outdated record must not complete")

	ok, err = repo.MarkCompleted(ctx, c.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkCompleted(ctx, c.ID, now)
	require.NoError(t, err)
	assert.False(t, ok, "completed record must not complete twice")

	_, err = repo.FindOpenByUserAndCode(ctx, "u1", "123456")
	assert.True(t, apperrors.IsNotFound(err))

	reset, err := repo.Reset(ctx, c.ID, ports.ConfirmationReset{Code: "999999", EndTime: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.Nil(t, reset.CompleteTime)
	assert.Equal(t, "999999", reset.Code)
	assert.Equal(t, 1, repo.Len())
}

func TestMemorySessionRepository_DeviceUniqueness(t *testing.T) {
	t.Parallel()
	repo := NewMemorySessionRepository()
	ctx := context.Background()
	now := time.Now()

	s := domainauth.Session{UserID: "u1", GrantID: "g1", Token: "t1", UserIP: "1.1.1.1", UserAgent: "ua", EndTime: now.Add(time.Hour)}
	_, err := repo.Insert(ctx, s)
	require.NoError(t, err)

	dup := s
	dup.Token = "t2"
	_, err = repo.Insert(ctx, dup)
	assert.True(t, apperrors.IsConflict(err))

	other := s
	other.UserAgent = "other"
	_, err = repo.Insert(ctx, other)
	assert.True(t, apperrors.IsConflict(err), "tokens are unique")
	assert.Equal(t, "token", apperrors.GetField(err))

	tokens, err := repo.ExpireByUser(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, tokens)

	found, err := repo.FindByToken(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, found.IsActive(now))
}

func TestMemorySessionCache_ExpiresEntries(t *testing.T) {
	t.Parallel()
	now := time.Now()
	cache := NewMemorySessionCache()
	cache.Now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, domainauth.Session{Token: "t1", EndTime: now.Add(time.Minute)}))
	_, err := cache.Get(ctx, "t1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = cache.Get(ctx, "t1")
	assert.ErrorIs(t, err, ports.ErrSessionNotCached)
	assert.Equal(t, 0, cache.Len())

	assert.Error(t, cache.Save(ctx, domainauth.Session{}))
}

func TestMemoryUserRepository_IdentityKeys(t *testing.T) {
	t.Parallel()
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	u, err := repo.Insert(ctx, ports.UserData{"email": "a@b.com", "first_name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.FirstName)
	assert.Nil(t, u.Phone)

	_, err = repo.Insert(ctx, ports.UserData{"email": "a@b.com"})
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, "email", apperrors.GetField(err))

	found, err := repo.FindByAnyIdentityKey(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = repo.FindByIdentityKey(ctx, "phone", "a@b.com")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = repo.FindByIdentityKey(ctx, "nickname", "x")
	assert.True(t, apperrors.IsValidation(err))

	assert.Equal(t, "Email", repo.IdentityKeyLabel("email"))
	assert.Equal(t, "nickname", repo.IdentityKeyLabel("nickname"))
}

func TestStubProvider(t *testing.T) {
	t.Parallel()
	p := &StubProvider{
		ProviderName: "github",
		Access:       ports.AccessData{AccessToken: "at"},
		Profile:      ports.ProfileData{Attributes: map[string]string{"id": "42"}},
	}
	ctx := context.Background()

	link, err := p.AuthLink(ctx, ports.AuthLinkInput{State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Contains(t, link, "state=s")

	access, err := p.Exchange(ctx, map[string]string{"code": "c", "nonce": "n"})
	require.NoError(t, err)
	assert.Equal(t, "n", access.Nonce)
	assert.Len(t, p.Exchanged(), 1)

	key, err := p.ProviderUserKey(p.Profile)
	require.NoError(t, err)
	assert.Equal(t, "42", key)

	_, err = p.ProviderUserKey(ports.ProfileData{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeProviderResponseInvalid))
}

func TestStaticStateCodec(t *testing.T) {
	t.Parallel()
	codec := &StaticStateCodec{}

	state, nonce, err := codec.Issue("google")
	require.NoError(t, err)

	got, err := codec.Verify("google", state)
	require.NoError(t, err)
	assert.Equal(t, nonce, got)

	_, err = codec.Verify("github", state)
	assert.Error(t, err)
	_, err = codec.Verify("google", "forged")
	assert.Error(t, err)
}

func TestFakeRequestContext_Cookies(t *testing.T) {
	t.Parallel()
	rc := NewFakeRequestContext("10.0.0.1", "ua")

	rc.SetCookie(domainauth.Cookie{Name: "token", Value: "abc"})
	v, ok := rc.Cookie("token")
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	rc.SetCookie(domainauth.Cookie{Name: "token", Expires: time.Unix(0, 0)})
	_, ok = rc.Cookie("token")
	assert.False(t, ok)

	last, ok := rc.LastCookie()
	require.True(t, ok)
	assert.Empty(t, last.Value)
}
