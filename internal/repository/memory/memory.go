// Package memory provides in-memory implementations of the repository
// boundary. They back the engine tests and any deployment that wants a
// throwaway store; semantics match the MySQL repositories, including the
// atomic compare-and-revoke used for refresh rotation.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/membership-service/internal/auth"
	"github.com/iliyamo/membership-service/internal/model"
	"github.com/iliyamo/membership-service/internal/repository"
)

// DB is one shared in-memory data set. The stores returned by New all point
// at it and share a single mutex, which is what makes cross-store
// operations (revoke-then-lookup) linearizable.
type DB struct {
	mu sync.Mutex

	users           map[uint64]*model.User
	tokens          map[string]*model.RefreshToken // keyed by digest
	roles           map[uint64]*model.Role
	permissions     map[uint64]*model.Permission
	userRoles       map[uint64]*model.UserRole
	rolePermissions map[uint64]*model.RolePermission
	activities      []*model.UserActivity

	nextID uint64
}

// Stores bundles the individual store views over one DB.
type Stores struct {
	Users           *UserStore
	Tokens          *TokenStore
	Roles           *RoleStore
	Permissions     *PermissionStore
	UserRoles       *UserRoleStore
	RolePermissions *RolePermissionStore
	Activities      *ActivityStore
}

// New returns a fresh data set with store views over it.
func New() *Stores {
	db := &DB{
		users:           map[uint64]*model.User{},
		tokens:          map[string]*model.RefreshToken{},
		roles:           map[uint64]*model.Role{},
		permissions:     map[uint64]*model.Permission{},
		userRoles:       map[uint64]*model.UserRole{},
		rolePermissions: map[uint64]*model.RolePermission{},
	}
	return &Stores{
		Users:           &UserStore{db},
		Tokens:          &TokenStore{db},
		Roles:           &RoleStore{db},
		Permissions:     &PermissionStore{db},
		UserRoles:       &UserRoleStore{db},
		RolePermissions: &RolePermissionStore{db},
		Activities:      &ActivityStore{db},
	}
}

func (db *DB) id() uint64 {
	db.nextID++
	return db.nextID
}

// UserStore implements repository.UserStore.
type UserStore struct{ db *DB }

var _ repository.UserStore = (*UserStore)(nil)

func copyUser(u *model.User) *model.User {
	c := *u
	return &c
}

func (s *UserStore) GetByID(_ context.Context, id uint64) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *UserStore) GetByUsernameOrEmail(_ context.Context, login string) (*model.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.DeletedAt == nil && (u.Username == login || (u.Email != "" && u.Email == login)) {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *UserStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.DeletedAt == nil && u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *UserStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.DeletedAt == nil && u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *UserStore) Create(_ context.Context, u *model.User) error {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.users {
		if other.DeletedAt != nil {
			continue
		}
		if other.Username == u.Username {
			return repository.ErrUsernameExists
		}
		if u.Email != "" && other.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	u.ID = s.db.id()
	s.db.users[u.ID] = copyUser(u)
	return nil
}

func (s *UserStore) Update(_ context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.users[u.ID]
	if !ok || cur.DeletedAt != nil {
		return repository.ErrNotFound
	}
	for _, other := range s.db.users {
		if other.ID != u.ID && other.DeletedAt == nil && u.Email != "" && other.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	s.db.users[u.ID] = copyUser(u)
	return nil
}

func (s *UserStore) UpdateLastLogin(_ context.Context, id uint64, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if u, ok := s.db.users[id]; ok {
		t := at
		u.LastLoginAt = &t
	}
	return nil
}

func (s *UserStore) GetUserRoles(_ context.Context, userID uint64) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.userRoleNames(userID), nil
}

func (s *UserStore) GetUserPermissions(_ context.Context, userID uint64) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	seen := map[string]bool{}
	var names []string
	for _, ur := range s.db.userRoles {
		if ur.UserID != userID {
			continue
		}
		role, ok := s.db.roles[ur.RoleID]
		if !ok || !role.IsActive {
			continue
		}
		for _, rp := range s.db.rolePermissions {
			if rp.RoleID != role.ID {
				continue
			}
			perm, ok := s.db.permissions[rp.PermissionID]
			if !ok || !perm.IsActive || seen[perm.Name] {
				continue
			}
			seen[perm.Name] = true
			names = append(names, perm.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// userRoleNames must be called with the mutex held.
func (db *DB) userRoleNames(userID uint64) []string {
	var names []string
	for _, ur := range db.userRoles {
		if ur.UserID != userID {
			continue
		}
		if role, ok := db.roles[ur.RoleID]; ok && role.IsActive {
			names = append(names, role.Name)
		}
	}
	sort.Strings(names)
	return names
}

// TokenStore implements repository.TokenStore.
type TokenStore struct{ db *DB }

var _ repository.TokenStore = (*TokenStore)(nil)

func (s *TokenStore) Create(_ context.Context, t *model.RefreshToken) error {
	t.TokenHash = auth.DigestToken(t.TokenHash)
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t.ID = s.db.id()
	c := *t
	s.db.tokens[t.TokenHash] = &c
	return nil
}

func (s *TokenStore) GetByToken(_ context.Context, raw string) (*model.RefreshToken, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tokens[auth.DigestToken(raw)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (s *TokenStore) Revoke(_ context.Context, raw string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tokens[auth.DigestToken(raw)]
	if !ok || !t.Live(time.Now().UTC()) {
		return false, nil
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	return true, nil
}

func (s *TokenStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	now := time.Now().UTC()
	for _, t := range s.db.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			at := now
			t.RevokedAt = &at
		}
	}
	return nil
}

func (s *TokenStore) GetActiveForUser(_ context.Context, userID uint64) ([]model.RefreshToken, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	now := time.Now().UTC()
	var out []model.RefreshToken
	for _, t := range s.db.tokens {
		if t.UserID == userID && t.Live(now) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *TokenStore) DeleteForUser(_ context.Context, userID uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for k, t := range s.db.tokens {
		if t.UserID == userID {
			delete(s.db.tokens, k)
		}
	}
	return nil
}

// RoleStore implements repository.RoleStore.
type RoleStore struct{ db *DB }

var _ repository.RoleStore = (*RoleStore)(nil)

func (s *RoleStore) GetByID(_ context.Context, id uint64) (*model.Role, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *RoleStore) GetByName(_ context.Context, name string) (*model.Role, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range s.db.roles {
		if r.Name == name {
			c := *r
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *RoleStore) GetAll(_ context.Context) ([]model.Role, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Role
	for _, r := range s.db.roles {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *RoleStore) Create(_ context.Context, r *model.Role) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.roles {
		if other.Name == r.Name {
			return repository.ErrDuplicate
		}
	}
	r.ID = s.db.id()
	c := *r
	s.db.roles[r.ID] = &c
	return nil
}

func (s *RoleStore) Update(_ context.Context, r *model.Role) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.roles[r.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *r
	s.db.roles[r.ID] = &c
	return nil
}

func (s *RoleStore) Delete(_ context.Context, id uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.roles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.roles, id)
	for k, rp := range s.db.rolePermissions {
		if rp.RoleID == id {
			delete(s.db.rolePermissions, k)
		}
	}
	for k, ur := range s.db.userRoles {
		if ur.RoleID == id {
			delete(s.db.userRoles, k)
		}
	}
	return nil
}

// PermissionStore implements repository.PermissionStore.
type PermissionStore struct{ db *DB }

var _ repository.PermissionStore = (*PermissionStore)(nil)

func (s *PermissionStore) GetByID(_ context.Context, id uint64) (*model.Permission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.permissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *PermissionStore) GetByName(_ context.Context, name string) (*model.Permission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, p := range s.db.permissions {
		if p.Name == name {
			c := *p
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *PermissionStore) GetAll(_ context.Context) ([]model.Permission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Permission
	for _, p := range s.db.permissions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *PermissionStore) Create(_ context.Context, p *model.Permission) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.permissions {
		if other.Name == p.Name {
			return repository.ErrDuplicate
		}
	}
	p.ID = s.db.id()
	c := *p
	s.db.permissions[p.ID] = &c
	return nil
}

func (s *PermissionStore) Update(_ context.Context, p *model.Permission) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.permissions[p.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *p
	s.db.permissions[p.ID] = &c
	return nil
}

func (s *PermissionStore) Delete(_ context.Context, id uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.permissions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.permissions, id)
	for k, rp := range s.db.rolePermissions {
		if rp.PermissionID == id {
			delete(s.db.rolePermissions, k)
		}
	}
	return nil
}

// UserRoleStore implements repository.UserRoleStore.
type UserRoleStore struct{ db *DB }

var _ repository.UserRoleStore = (*UserRoleStore)(nil)

func (s *UserRoleStore) Exists(_ context.Context, userID, roleID uint64) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, ur := range s.db.userRoles {
		if ur.UserID == userID && ur.RoleID == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (s *UserRoleStore) Create(_ context.Context, ur *model.UserRole) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.userRoles {
		if other.UserID == ur.UserID && other.RoleID == ur.RoleID {
			return repository.ErrDuplicate
		}
	}
	ur.ID = s.db.id()
	c := *ur
	s.db.userRoles[ur.ID] = &c
	return nil
}

func (s *UserRoleStore) GetByUserID(_ context.Context, userID uint64) ([]model.UserRole, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.UserRole
	for _, ur := range s.db.userRoles {
		if ur.UserID == userID {
			out = append(out, *ur)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *UserRoleStore) Delete(_ context.Context, id uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.userRoles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.userRoles, id)
	return nil
}

func (s *UserRoleStore) DeleteForUser(_ context.Context, userID uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for k, ur := range s.db.userRoles {
		if ur.UserID == userID {
			delete(s.db.userRoles, k)
		}
	}
	return nil
}

func (s *UserRoleStore) DeleteForRole(_ context.Context, roleID uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for k, ur := range s.db.userRoles {
		if ur.RoleID == roleID {
			delete(s.db.userRoles, k)
		}
	}
	return nil
}

// RolePermissionStore implements repository.RolePermissionStore.
type RolePermissionStore struct{ db *DB }

var _ repository.RolePermissionStore = (*RolePermissionStore)(nil)

func (s *RolePermissionStore) Exists(_ context.Context, roleID, permissionID uint64) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, rp := range s.db.rolePermissions {
		if rp.RoleID == roleID && rp.PermissionID == permissionID {
			return true, nil
		}
	}
	return false, nil
}

func (s *RolePermissionStore) Create(_ context.Context, rp *model.RolePermission) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.rolePermissions {
		if other.RoleID == rp.RoleID && other.PermissionID == rp.PermissionID {
			return repository.ErrDuplicate
		}
	}
	rp.ID = s.db.id()
	c := *rp
	s.db.rolePermissions[rp.ID] = &c
	return nil
}

func (s *RolePermissionStore) GetByRoleID(_ context.Context, roleID uint64) ([]model.RolePermission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.RolePermission
	for _, rp := range s.db.rolePermissions {
		if rp.RoleID == roleID {
			out = append(out, *rp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *RolePermissionStore) Delete(_ context.Context, id uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.rolePermissions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.rolePermissions, id)
	return nil
}

func (s *RolePermissionStore) DeleteForRole(_ context.Context, roleID uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for k, rp := range s.db.rolePermissions {
		if rp.RoleID == roleID {
			delete(s.db.rolePermissions, k)
		}
	}
	return nil
}

// ActivityStore implements repository.ActivityStore.
type ActivityStore struct{ db *DB }

var _ repository.ActivityStore = (*ActivityStore)(nil)

func (s *ActivityStore) Create(_ context.Context, a *model.UserActivity) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a.ID = s.db.id()
	c := *a
	s.db.activities = append(s.db.activities, &c)
	return nil
}

func (s *ActivityStore) GetForUser(_ context.Context, userID uint64, limit int) ([]model.UserActivity, error) {
	if limit <= 0 {
		limit = 50
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.UserActivity
	for i := len(s.db.activities) - 1; i >= 0 && len(out) < limit; i-- {
		if s.db.activities[i].UserID == userID {
			out = append(out, *s.db.activities[i])
		}
	}
	return out, nil
}
