package auth

// Package auth contains simple hand-written test doubles for auth ports.
// The in-memory repositories enforce the same uniqueness rules as the Postgres schema,
// so orchestrator tests exercise the conflict paths without a database.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	"github.com/target/mmk-auth/internal/domain/model"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.GrantRepository             = (*MemoryGrantRepository)(nil)
	_ ports.ConfirmationRepository      = (*MemoryConfirmationRepository)(nil)
	_ ports.SessionRepository           = (*MemorySessionRepository)(nil)
	_ ports.SessionCache                = (*MemorySessionCache)(nil)
	_ ports.UserRepository[*model.User] = (*MemoryUserRepository)(nil)
	_ ports.UserDeleter                 = (*MemoryUserRepository)(nil)
	_ ports.DelegatedProvider           = (*StubProvider)(nil)
	_ ports.StateCodec                  = (*StaticStateCodec)(nil)
	_ ports.RequestContext              = (*FakeRequestContext)(nil)
	_ ports.CodeSender                  = (*RecordingCodeSender)(nil)
)

// MemoryGrantRepository stores grants in memory.
type MemoryGrantRepository struct {
	mu     sync.Mutex
	grants map[string]domainauth.Grant
}

// NewMemoryGrantRepository creates an empty grant repository.
func NewMemoryGrantRepository() *MemoryGrantRepository {
	return &MemoryGrantRepository{grants: make(map[string]domainauth.Grant)}
}

func (r *MemoryGrantRepository) find(match func(domainauth.Grant) bool) (*domainauth.Grant, error) {
	for _, g := range r.grants {
		if match(g) {
			out := g
			return &out, nil
		}
	}
	return nil, apperrors.NotFound("grant not found")
}

func (r *MemoryGrantRepository) FindByUserAndSource(_ context.Context, userID, source string) (*domainauth.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(g domainauth.Grant) bool { return g.UserID == userID && g.Source == source })
}

func (r *MemoryGrantRepository) FindByUserSourceKey(
	_ context.Context,
	userID, source, sourceKey string,
) (*domainauth.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(g domainauth.Grant) bool {
		return g.UserID == userID && g.Source == source && g.SourceKey == sourceKey
	})
}

func (r *MemoryGrantRepository) FindBySourceKey(_ context.Context, source, sourceKey string) (*domainauth.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(g domainauth.Grant) bool { return g.Source == source && g.SourceKey == sourceKey })
}

func (r *MemoryGrantRepository) Insert(_ context.Context, g domainauth.Grant) (*domainauth.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.grants {
		if conflictsGrant(existing, g) {
			return nil, apperrors.Conflict("grant already exists")
		}
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	r.grants[g.ID] = g
	out := g
	return &out, nil
}

func conflictsGrant(a, b domainauth.Grant) bool {
	if a.Source != b.Source {
		return false
	}
	switch {
	case b.Source == domainauth.SourcePassword:
		return a.UserID == b.UserID
	case b.Source == domainauth.SourceCode:
		return a.UserID == b.UserID && a.SourceKey == b.SourceKey
	default:
		return a.SourceKey == b.SourceKey
	}
}

func (r *MemoryGrantRepository) UpdateSourceKey(_ context.Context, id, sourceKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.grants[id]
	if !ok {
		return apperrors.NotFound("grant not found")
	}
	g.SourceKey = sourceKey
	r.grants[id] = g
	return nil
}

// Len returns the number of stored grants.
func (r *MemoryGrantRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.grants)
}

// MemoryConfirmationRepository stores one confirmation kind in memory.
type MemoryConfirmationRepository struct {
	mu      sync.Mutex
	records map[string]domainauth.Confirmation
}

// NewMemoryConfirmationRepository creates an empty confirmation repository.
func NewMemoryConfirmationRepository() *MemoryConfirmationRepository {
	return &MemoryConfirmationRepository{records: make(map[string]domainauth.Confirmation)}
}

func (r *MemoryConfirmationRepository) FindByUserAndRecipient(
	_ context.Context,
	userID, to string,
) (*domainauth.Confirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.records {
		if c.UserID == userID && c.To == to {
			return copyConfirmation(c), nil
		}
	}
	return nil, apperrors.NotFound("confirmation not found")
}

func (r *MemoryConfirmationRepository) FindOpenByUserAndCode(
	_ context.Context,
	userID, code string,
) (*domainauth.Confirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *domainauth.Confirmation
	for _, c := range r.records {
		if c.UserID != userID || c.Code != code || c.CompleteTime != nil {
			continue
		}
		if best == nil || c.EndTime.After(best.EndTime) {
			best = copyConfirmation(c)
		}
	}
	if best == nil {
		return nil, apperrors.NotFound("confirmation not found")
	}
	return best, nil
}

func (r *MemoryConfirmationRepository) CodeInUse(_ context.Context, code string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.records {
		if c.Code == code && c.IsActive(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryConfirmationRepository) Insert(
	_ context.Context,
	c domainauth.Confirmation,
) (*domainauth.Confirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.records {
		if existing.UserID == c.UserID && existing.To == c.To {
			return nil, apperrors.Conflict("confirmation already exists")
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.records[c.ID] = c
	return copyConfirmation(c), nil
}

func (r *MemoryConfirmationRepository) Reset(
	_ context.Context,
	id string,
	reset ports.ConfirmationReset,
) (*domainauth.Confirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.records[id]
	if !ok {
		return nil, apperrors.NotFound("confirmation not found")
	}
	c.Code = reset.Code
	c.EndTime = reset.EndTime
	c.CompleteTime = nil
	r.records[id] = c
	return copyConfirmation(c), nil
}

func (r *MemoryConfirmationRepository) MarkCompleted(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.records[id]
	if !ok || !c.IsActive(at) {
		return false, nil
	}
	done := at
	c.CompleteTime = &done
	r.records[id] = c
	return true, nil
}

// Len returns the number of stored confirmations.
func (r *MemoryConfirmationRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Expire moves the end time of the record for (userID, to) to end. Used to simulate elapsed time.
func (r *MemoryConfirmationRepository) Expire(userID, to string, end time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.records {
		if c.UserID == userID && c.To == to {
			c.EndTime = end
			r.records[id] = c
		}
	}
}

func copyConfirmation(c domainauth.Confirmation) *domainauth.Confirmation {
	out := c
	if c.CompleteTime != nil {
		t := *c.CompleteTime
		out.CompleteTime = &t
	}
	return &out
}

// MemorySessionRepository stores sessions in memory.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionRepository creates an empty session repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]domainauth.Session)}
}

func (r *MemorySessionRepository) FindByDevice(
	_ context.Context,
	userID, grantID string,
	fp domainauth.Fingerprint,
) (*domainauth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.UserID == userID && s.GrantID == grantID && s.Fingerprint() == fp {
			out := s
			return &out, nil
		}
	}
	return nil, apperrors.NotFound("session not found")
}

func (r *MemorySessionRepository) FindByToken(_ context.Context, token string) (*domainauth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.Token == token {
			out := s
			return &out, nil
		}
	}
	return nil, apperrors.NotFound("session not found")
}

func (r *MemorySessionRepository) TokenExists(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.Token == token {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemorySessionRepository) Insert(_ context.Context, s domainauth.Session) (*domainauth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.Token == s.Token {
			return nil, &apperrors.AppError{Code: apperrors.ErrCodeConflict, Message: "token already exists", Field: "token"}
		}
		if existing.UserID == s.UserID && existing.GrantID == s.GrantID && existing.Fingerprint() == s.Fingerprint() {
			return nil, apperrors.Conflict("session already exists")
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	r.sessions[s.ID] = s
	out := s
	return &out, nil
}

func (r *MemorySessionRepository) Refresh(
	_ context.Context,
	id string,
	refresh ports.SessionRefresh,
) (*domainauth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.NotFound("session not found")
	}
	s.Token = refresh.Token
	s.GrantToken = refresh.GrantToken
	s.EndTime = refresh.EndTime
	r.sessions[id] = s
	out := s
	return &out, nil
}

func (r *MemorySessionRepository) SetEndTime(_ context.Context, id string, end time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return apperrors.NotFound("session not found")
	}
	s.EndTime = end
	r.sessions[id] = s
	return nil
}

func (r *MemorySessionRepository) ExpireByUser(_ context.Context, userID string, at time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tokens []string
	for id, s := range r.sessions {
		if s.UserID == userID && s.IsActive(at) {
			s.EndTime = at
			r.sessions[id] = s
			tokens = append(tokens, s.Token)
		}
	}
	return tokens, nil
}

// Len returns the number of stored session rows.
func (r *MemorySessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// MemorySessionCache is an in-memory SessionCache keyed by token.
type MemorySessionCache struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
	// Now is used for expiry checks; defaults to time.Now.
	Now func() time.Time
}

// NewMemorySessionCache creates an empty session cache.
func NewMemorySessionCache() *MemorySessionCache {
	return &MemorySessionCache{sessions: make(map[string]domainauth.Session)}
}

func (c *MemorySessionCache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *MemorySessionCache) Get(_ context.Context, token string) (domainauth.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[token]
	if !ok || !s.IsActive(c.now()) {
		delete(c.sessions, token)
		return domainauth.Session{}, ports.ErrSessionNotCached
	}
	return s, nil
}

func (c *MemorySessionCache) Save(_ context.Context, sess domainauth.Session) error {
	if sess.Token == "" {
		return errors.New("session token cannot be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[sess.Token] = sess
	return nil
}

func (c *MemorySessionCache) Delete(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, token)
	return nil
}

// Len returns the number of cached sessions.
func (c *MemorySessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// MemoryUserRepository is an in-memory UserRepository for the reference user model.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*model.User
	// Now stamps CreatedAt; defaults to time.Now.
	Now func() time.Time
}

// NewMemoryUserRepository creates an empty user repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*model.User)}
}

var userKeyLabels = map[string]string{
	model.KeyEmail: "Email",
	model.KeyPhone: "Phone",
	model.KeyLogin: "Login",
}

func (r *MemoryUserRepository) IdentityKeys() []string {
	return []string{model.KeyEmail, model.KeyPhone, model.KeyLogin}
}

func (r *MemoryUserRepository) IdentityKeyLabel(key string) string {
	if label, ok := userKeyLabels[key]; ok {
		return label
	}
	return key
}

func (r *MemoryUserRepository) FindByAnyIdentityKey(_ context.Context, value string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if value == "" {
		return nil, apperrors.NotFound("user not found")
	}
	for _, u := range r.users {
		for _, key := range r.IdentityKeys() {
			if u.IdentityValue(key) == value {
				return copyUser(u), nil
			}
		}
	}
	return nil, apperrors.NotFound("user not found")
}

func (r *MemoryUserRepository) FindByIdentityKey(_ context.Context, key, value string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := userKeyLabels[key]; !ok {
		return nil, apperrors.Validationf("unknown identity key %q", key)
	}
	for _, u := range r.users {
		if value != "" && u.IdentityValue(key) == value {
			return copyUser(u), nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	return copyUser(u), nil
}

func (r *MemoryUserRepository) Insert(_ context.Context, data ports.UserData) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.IdentityKeys() {
		v := data[key]
		if v == "" {
			continue
		}
		for _, u := range r.users {
			if u.IdentityValue(key) == v {
				return nil, &apperrors.AppError{
					Code:    apperrors.ErrCodeConflict,
					Message: fmt.Sprintf("%s already exists", key),
					Field:   key,
				}
			}
		}
	}
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	u := &model.User{
		ID:        uuid.NewString(),
		Email:     optional(data[model.KeyEmail]),
		Phone:     optional(data[model.KeyPhone]),
		Login:     optional(data[model.KeyLogin]),
		FirstName: data["first_name"],
		LastName:  data["last_name"],
		CreatedAt: now,
	}
	r.users[u.ID] = u
	return copyUser(u), nil
}

// Delete removes the user with id.
func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

// Len returns the number of stored users.
func (r *MemoryUserRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func copyUser(u *model.User) *model.User {
	out := *u
	return &out
}

// StubProvider is a configurable DelegatedProvider.
type StubProvider struct {
	ProviderName string
	LinkBase     string
	Access       ports.AccessData
	Profile      ports.ProfileData
	// KeyAttribute selects the profile attribute used as the provider user key; defaults to "id".
	KeyAttribute string

	ExchangeErr error
	ProfileErr  error

	mu        sync.Mutex
	exchanged []map[string]string
}

func (p *StubProvider) Name() string {
	if p.ProviderName == "" {
		return "stub"
	}
	return p.ProviderName
}

func (p *StubProvider) AuthLink(_ context.Context, in ports.AuthLinkInput) (string, error) {
	base := p.LinkBase
	if base == "" {
		base = "https://idp.example/authorize"
	}
	return base + "?state=" + in.State + "&nonce=" + in.Nonce, nil
}

func (p *StubProvider) Exchange(_ context.Context, payload map[string]string) (ports.AccessData, error) {
	p.mu.Lock()
	p.exchanged = append(p.exchanged, payload)
	p.mu.Unlock()
	if p.ExchangeErr != nil {
		return ports.AccessData{}, p.ExchangeErr
	}
	access := p.Access
	access.Nonce = payload["nonce"]
	return access, nil
}

func (p *StubProvider) FetchProfile(_ context.Context, _ ports.AccessData) (ports.ProfileData, error) {
	if p.ProfileErr != nil {
		return ports.ProfileData{}, p.ProfileErr
	}
	return p.Profile, nil
}

func (p *StubProvider) ProviderUserKey(profile ports.ProfileData) (string, error) {
	attr := p.KeyAttribute
	if attr == "" {
		attr = "id"
	}
	key := strings.TrimSpace(profile.Attributes[attr])
	if key == "" {
		return "", apperrors.ProviderResponseInvalid(p.Name(), "missing user key")
	}
	return key, nil
}

// Exchanged returns the payloads passed to Exchange.
func (p *StubProvider) Exchanged() []map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]map[string]string(nil), p.exchanged...)
}

// StaticStateCodec issues "<provider>:<n>" states with nonce "nonce-<n>".
type StaticStateCodec struct {
	mu     sync.Mutex
	issued map[string]string
	count  int
}

func (c *StaticStateCodec) Issue(provider string) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.issued == nil {
		c.issued = make(map[string]string)
	}
	c.count++
	state := fmt.Sprintf("%s:%d", provider, c.count)
	nonce := fmt.Sprintf("nonce-%d", c.count)
	c.issued[state] = nonce
	return state, nonce, nil
}

func (c *StaticStateCodec) Verify(provider, state string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	nonce, ok := c.issued[state]
	if !ok || !strings.HasPrefix(state, provider+":") {
		return "", apperrors.ValidationField("state", "invalid state")
	}
	return nonce, nil
}

// FakeRequestContext records cookies set by the orchestrator.
type FakeRequestContext struct {
	IP      string
	UA      string
	Cookies map[string]string

	mu  sync.Mutex
	Set []domainauth.Cookie
}

// NewFakeRequestContext creates a request context for the given device.
func NewFakeRequestContext(ip, ua string) *FakeRequestContext {
	return &FakeRequestContext{IP: ip, UA: ua, Cookies: make(map[string]string)}
}

func (r *FakeRequestContext) ClientIP() string  { return r.IP }
func (r *FakeRequestContext) UserAgent() string { return r.UA }

func (r *FakeRequestContext) Cookie(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.Cookies[name]
	return v, ok
}

// SetCookie records c and mirrors it into Cookies. An empty value clears the cookie.
func (r *FakeRequestContext) SetCookie(c domainauth.Cookie) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Cookies == nil {
		r.Cookies = make(map[string]string)
	}
	r.Set = append(r.Set, c)
	if c.Value == "" {
		delete(r.Cookies, c.Name)
		return
	}
	r.Cookies[c.Name] = c.Value
}

// LastCookie returns the most recent cookie set, if any.
func (r *FakeRequestContext) LastCookie() (domainauth.Cookie, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Set) == 0 {
		return domainauth.Cookie{}, false
	}
	return r.Set[len(r.Set)-1], true
}

// RecordingCodeSender records deliveries instead of sending them.
type RecordingCodeSender struct {
	mu         sync.Mutex
	Deliveries []ports.CodeDelivery
	Err        error
}

func (s *RecordingCodeSender) Send(_ context.Context, d ports.CodeDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Deliveries = append(s.Deliveries, d)
	return nil
}
