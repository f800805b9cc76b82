package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

func NewMemory() *Memory {
	return &Memory{
		users:              map[string]User{},
		verificationTokens: map[string]VerificationToken{},
		sessions:           map[string]Session{},
		pendingLogins:      map[string]PendingLogin{},
		twoFactors:         map[string]TwoFactor{},
		organizations:      map[string]Organization{},
		members:            map[string]map[string]Member{},
	}
}

// Memory is an in-process Store with the same constraints as the sql
// schema (unique emails and slugs, one membership per user and org)
type Memory struct {
	users              map[string]User
	verificationTokens map[string]VerificationToken
	sessions           map[string]Session
	pendingLogins      map[string]PendingLogin
	twoFactors         map[string]TwoFactor
	organizations      map[string]Organization
	members            map[string]map[string]Member

	mutex sync.RWMutex
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string{}, values...)
}

func (m *Memory) CreateUser(_ context.Context, user User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.users[user.Id]; ok {
		return fmt.Errorf("store.Memory.CreateUser: user[%s]: %w", user.Id, ErrorDuplicateEntry)
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return fmt.Errorf("store.Memory.CreateUser: email[%s]: %w", user.Email, ErrorDuplicateEntry)
		}
	}
	user.Roles = cloneStrings(user.Roles)
	m.users[user.Id] = user
	return nil
}

func (m *Memory) GetUserById(_ context.Context, id string) (*User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("store.Memory.GetUserById: user[%s]: %w", id, ErrorNotFound)
	}
	user.Roles = cloneStrings(user.Roles)
	return &user, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, user := range m.users {
		if user.Email == email {
			user.Roles = cloneStrings(user.Roles)
			return &user, nil
		}
	}
	return nil, fmt.Errorf("store.Memory.GetUserByEmail: email[%s]: %w", email, ErrorNotFound)
}

func (m *Memory) updateUser(fnSource, id string, update func(*User)) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	user, ok := m.users[id]
	if !ok {
		return fmt.Errorf("%s: user[%s]: %w", fnSource, id, ErrorNotFound)
	}
	update(&user)
	user.UpdatedAt = time.Now()
	m.users[id] = user
	return nil
}

func (m *Memory) SetUserEmailVerified(_ context.Context, id string) error {
	return m.updateUser("store.Memory.SetUserEmailVerified", id, func(u *User) { u.EmailVerified = true })
}

func (m *Memory) SetUserMfaEnabled(_ context.Context, id string, enabled bool) error {
	return m.updateUser("store.Memory.SetUserMfaEnabled", id, func(u *User) { u.MfaEnabled = enabled })
}

func (m *Memory) CreateVerificationToken(_ context.Context, token VerificationToken) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.verificationTokens[token.Digest]; ok {
		return fmt.Errorf("store.Memory.CreateVerificationToken: %w", ErrorDuplicateEntry)
	}
	m.verificationTokens[token.Digest] = token
	return nil
}

func (m *Memory) ConsumeVerificationToken(_ context.Context, digest string, purpose TokenPurpose, now time.Time) (*VerificationToken, error) {
	fnSource := "store.Memory.ConsumeVerificationToken"
	m.mutex.Lock()
	defer m.mutex.Unlock()
	token, ok := m.verificationTokens[digest]
	if !ok || token.Purpose != purpose {
		return nil, fmt.Errorf("%s: %w", fnSource, ErrorNotFound)
	}
	delete(m.verificationTokens, digest)
	if !now.Before(token.ExpiresAt) {
		return nil, fmt.Errorf("%s: %w", fnSource, ErrorExpired)
	}
	return &token, nil
}

func (m *Memory) CreateSession(_ context.Context, session Session) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.sessions[session.Id]; ok {
		return fmt.Errorf("store.Memory.CreateSession: session[%s]: %w", session.Id, ErrorDuplicateEntry)
	}
	m.sessions[session.Id] = session
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (*Session, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("store.Memory.GetSession: session[%s]: %w", id, ErrorNotFound)
	}
	return &session, nil
}

func (m *Memory) ListUserSessions(_ context.Context, userId string) ([]Session, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	output := []Session{}
	for _, session := range m.sessions {
		if session.UserId == userId {
			output = append(output, session)
		}
	}
	sort.Slice(output, func(i, j int) bool { return output[i].CreatedAt.Before(output[j].CreatedAt) })
	return output, nil
}

func (m *Memory) updateSession(fnSource, id string, update func(*Session)) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%s: session[%s]: %w", fnSource, id, ErrorNotFound)
	}
	update(&session)
	m.sessions[id] = session
	return nil
}

func (m *Memory) RefreshSession(_ context.Context, id string, refreshedAt, expiresAt time.Time) error {
	return m.updateSession("store.Memory.RefreshSession", id, func(s *Session) {
		s.RefreshedAt = refreshedAt
		s.ExpiresAt = expiresAt
	})
}

func (m *Memory) SetSessionActiveOrganization(_ context.Context, id string, orgId string) error {
	return m.updateSession("store.Memory.SetSessionActiveOrganization", id, func(s *Session) {
		s.ActiveOrgId = orgId
	})
}

func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *Memory) DeleteUserSessions(_ context.Context, userId string) ([]string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	ids := []string{}
	for id, session := range m.sessions {
		if session.UserId == userId {
			ids = append(ids, id)
			delete(m.sessions, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var total int64
	for id, session := range m.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(m.sessions, id)
			total++
		}
	}
	for digest, login := range m.pendingLogins {
		if !now.Before(login.ExpiresAt) {
			delete(m.pendingLogins, digest)
			total++
		}
	}
	for digest, token := range m.verificationTokens {
		if !now.Before(token.ExpiresAt) {
			delete(m.verificationTokens, digest)
			total++
		}
	}
	return total, nil
}

func (m *Memory) CreatePendingLogin(_ context.Context, login PendingLogin) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.pendingLogins[login.Digest] = login
	return nil
}

func (m *Memory) ConsumePendingLogin(_ context.Context, digest string, now time.Time) (*PendingLogin, error) {
	fnSource := "store.Memory.ConsumePendingLogin"
	m.mutex.Lock()
	defer m.mutex.Unlock()
	login, ok := m.pendingLogins[digest]
	if !ok {
		return nil, fmt.Errorf("%s: %w", fnSource, ErrorNotFound)
	}
	delete(m.pendingLogins, digest)
	if !now.Before(login.ExpiresAt) {
		return nil, fmt.Errorf("%s: %w", fnSource, ErrorExpired)
	}
	return &login, nil
}

func (m *Memory) GetTwoFactor(_ context.Context, userId string) (*TwoFactor, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	twoFactor, ok := m.twoFactors[userId]
	if !ok {
		return nil, fmt.Errorf("store.Memory.GetTwoFactor: user[%s]: %w", userId, ErrorNotFound)
	}
	twoFactor.BackupCodes = cloneStrings(twoFactor.BackupCodes)
	return &twoFactor, nil
}

func (m *Memory) UpsertTwoFactor(_ context.Context, twoFactor TwoFactor) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	twoFactor.BackupCodes = cloneStrings(twoFactor.BackupCodes)
	m.twoFactors[twoFactor.UserId] = twoFactor
	return nil
}

func (m *Memory) updateTwoFactor(fnSource, userId string, update func(*TwoFactor)) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	twoFactor, ok := m.twoFactors[userId]
	if !ok {
		return fmt.Errorf("%s: user[%s]: %w", fnSource, userId, ErrorNotFound)
	}
	update(&twoFactor)
	m.twoFactors[userId] = twoFactor
	return nil
}

func (m *Memory) ConfirmTwoFactor(_ context.Context, userId string) error {
	return m.updateTwoFactor("store.Memory.ConfirmTwoFactor", userId, func(tf *TwoFactor) { tf.Confirmed = true })
}

func (m *Memory) UpdateBackupCodes(_ context.Context, userId string, hashes []string) error {
	return m.updateTwoFactor("store.Memory.UpdateBackupCodes", userId, func(tf *TwoFactor) {
		tf.BackupCodes = cloneStrings(hashes)
	})
}

func (m *Memory) DeleteTwoFactor(_ context.Context, userId string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.twoFactors, userId)
	return nil
}

func cloneOrganization(org Organization) Organization {
	metadata := make(map[string]string, len(org.Metadata))
	for k, v := range org.Metadata {
		metadata[k] = v
	}
	org.Metadata = metadata
	return org
}

func (m *Memory) CreateOrganization(_ context.Context, org Organization, owner Member) error {
	fnSource := "store.Memory.CreateOrganization"
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.organizations[org.Id]; ok {
		return fmt.Errorf("%s: organization[%s]: %w", fnSource, org.Id, ErrorDuplicateEntry)
	}
	for _, existing := range m.organizations {
		if existing.Slug == org.Slug {
			return fmt.Errorf("%s: slug[%s]: %w", fnSource, org.Slug, ErrorDuplicateEntry)
		}
	}
	if _, ok := m.users[owner.UserId]; !ok {
		return fmt.Errorf("%s: user[%s]: %w", fnSource, owner.UserId, ErrorNotFound)
	}
	m.organizations[org.Id] = cloneOrganization(org)
	m.members[org.Id] = map[string]Member{owner.UserId: owner}
	return nil
}

func (m *Memory) GetOrganization(_ context.Context, id string) (*Organization, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	org, ok := m.organizations[id]
	if !ok {
		return nil, fmt.Errorf("store.Memory.GetOrganization: organization[%s]: %w", id, ErrorNotFound)
	}
	org = cloneOrganization(org)
	return &org, nil
}

func (m *Memory) DeleteOrganization(_ context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.organizations[id]; !ok {
		return fmt.Errorf("store.Memory.DeleteOrganization: organization[%s]: %w", id, ErrorNotFound)
	}
	delete(m.organizations, id)
	delete(m.members, id)
	for sessionId, session := range m.sessions {
		if session.ActiveOrgId == id {
			session.ActiveOrgId = ""
			m.sessions[sessionId] = session
		}
	}
	return nil
}

func (m *Memory) ListUserOrganizations(_ context.Context, userId string) ([]MemberOrganization, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	output := []MemberOrganization{}
	for orgId, members := range m.members {
		if member, ok := members[userId]; ok {
			output = append(output, MemberOrganization{
				Organization: cloneOrganization(m.organizations[orgId]),
				Role:         member.Role,
			})
		}
	}
	sort.Slice(output, func(i, j int) bool { return output[i].CreatedAt.Before(output[j].CreatedAt) })
	return output, nil
}

func (m *Memory) AddMember(_ context.Context, member Member) error {
	fnSource := "store.Memory.AddMember"
	m.mutex.Lock()
	defer m.mutex.Unlock()
	members, ok := m.members[member.OrgId]
	if !ok {
		return fmt.Errorf("%s: organization[%s]: %w", fnSource, member.OrgId, ErrorNotFound)
	}
	if _, ok := members[member.UserId]; ok {
		return fmt.Errorf("%s: member[%s/%s]: %w", fnSource, member.OrgId, member.UserId, ErrorDuplicateEntry)
	}
	members[member.UserId] = member
	return nil
}

func (m *Memory) GetMember(_ context.Context, orgId, userId string) (*Member, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	member, ok := m.members[orgId][userId]
	if !ok {
		return nil, fmt.Errorf("store.Memory.GetMember: member[%s/%s]: %w", orgId, userId, ErrorNotFound)
	}
	return &member, nil
}

func (m *Memory) ListMembers(_ context.Context, orgId string) ([]Member, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	output := []Member{}
	for _, member := range m.members[orgId] {
		output = append(output, member)
	}
	sort.Slice(output, func(i, j int) bool { return output[i].CreatedAt.Before(output[j].CreatedAt) })
	return output, nil
}

func (m *Memory) UpdateMemberRole(_ context.Context, orgId, userId, role string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	member, ok := m.members[orgId][userId]
	if !ok {
		return fmt.Errorf("store.Memory.UpdateMemberRole: member[%s/%s]: %w", orgId, userId, ErrorNotFound)
	}
	member.Role = role
	m.members[orgId][userId] = member
	return nil
}

func (m *Memory) RemoveMember(_ context.Context, orgId, userId string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.members[orgId][userId]; !ok {
		return fmt.Errorf("store.Memory.RemoveMember: member[%s/%s]: %w", orgId, userId, ErrorNotFound)
	}
	delete(m.members[orgId], userId)
	return nil
}
