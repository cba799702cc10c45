package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"oa-hub/backend/internal/model"
	"oa-hub/backend/internal/repository"
)

// ── Mock AccountRepository ──

type mockAccountRepo struct {
	accounts map[string]*model.Account
	depts    *mockDeptRepo
	seq      int
	// skipEmailLookup 模拟并发：预检查不到，唯一约束在写入时触发
	skipEmailLookup bool
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[string]*model.Account)}
}

func (m *mockAccountRepo) Create(_ context.Context, account *model.Account) error {
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if account.UID == "" {
		m.seq++
		account.UID = fmt.Sprintf("uid-%03d", m.seq)
	}
	now := time.Now()
	account.DateJoined = now
	account.UpdatedAt = now
	cp := *account
	m.accounts[account.UID] = &cp
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, uid string) (*model.Account, error) {
	a, ok := m.accounts[uid]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.withDepartment(a), nil
}

func (m *mockAccountRepo) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	if m.skipEmailLookup {
		return nil, gorm.ErrRecordNotFound
	}
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) {
			return m.withDepartment(a), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAccountRepo) Update(_ context.Context, account *model.Account) error {
	existing, ok := m.accounts[account.UID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for uid, a := range m.accounts {
		if uid != account.UID && strings.EqualFold(a.Email, account.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *account
	cp.Department = nil
	cp.DateJoined = existing.DateJoined
	cp.UpdatedAt = time.Now()
	m.accounts[account.UID] = &cp
	return nil
}

func (m *mockAccountRepo) UpdateLastLogin(_ context.Context, uid string, at time.Time) error {
	a, ok := m.accounts[uid]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.LastLogin = &at
	return nil
}

func (m *mockAccountRepo) Delete(_ context.Context, uid string) error {
	if _, ok := m.accounts[uid]; !ok {
		return gorm.ErrRecordNotFound
	}
	if m.depts != nil {
		for _, d := range m.depts.departments {
			if d.LeaderID != nil && *d.LeaderID == uid {
				d.LeaderID = nil
			}
			if d.ManagerID != nil && *d.ManagerID == uid {
				d.ManagerID = nil
			}
		}
	}
	delete(m.accounts, uid)
	return nil
}

func (m *mockAccountRepo) ListWithFilters(_ context.Context, filters *repository.AccountListFilters, offset, limit int) ([]model.Account, int64, error) {
	var matched []model.Account
	for _, a := range m.accounts {
		if filters != nil {
			if filters.DepartmentID != nil && (a.DepartmentID == nil || *a.DepartmentID != *filters.DepartmentID) {
				continue
			}
			if filters.Status != nil && a.Status != *filters.Status {
				continue
			}
			if filters.IsStaff != nil && a.IsStaff != *filters.IsStaff {
				continue
			}
			if kw := strings.ToLower(filters.Keyword); kw != "" &&
				!strings.Contains(strings.ToLower(a.Username+" "+a.Email+" "+a.FirstName+" "+a.LastName), kw) {
				continue
			}
		}
		matched = append(matched, *m.withDepartment(a))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UID < matched[j].UID })

	total := int64(len(matched))
	if offset >= len(matched) {
		return []model.Account{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *mockAccountRepo) ListByDepartment(_ context.Context, departmentID uint) ([]model.Account, error) {
	var result []model.Account
	for _, a := range m.accounts {
		if a.DepartmentID != nil && *a.DepartmentID == departmentID {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

// withDepartment 返回带部门关联的副本，模拟 Preload("Department")
func (m *mockAccountRepo) withDepartment(a *model.Account) *model.Account {
	cp := *a
	if cp.DepartmentID != nil && m.depts != nil {
		if d, ok := m.depts.departments[*cp.DepartmentID]; ok {
			dept := *d
			cp.Department = &dept
		}
	}
	return &cp
}

// ── Mock DepartmentRepository ──

type mockDeptRepo struct {
	departments map[uint]*model.Department
	accounts    *mockAccountRepo
	seq         uint
}

func newMockDeptRepo() *mockDeptRepo {
	return &mockDeptRepo{departments: make(map[uint]*model.Department)}
}

func (m *mockDeptRepo) Create(_ context.Context, dept *model.Department) error {
	if err := m.checkLeaderUnique(dept); err != nil {
		return err
	}
	m.seq++
	dept.ID = m.seq
	now := time.Now()
	dept.CreatedAt = now
	dept.UpdatedAt = now
	cp := *dept
	m.departments[dept.ID] = &cp
	return nil
}

func (m *mockDeptRepo) GetByID(_ context.Context, id uint) (*model.Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.withPeople(d), nil
}

func (m *mockDeptRepo) GetByLeader(_ context.Context, leaderID string) (*model.Department, error) {
	for _, d := range m.departments {
		if d.LeaderID != nil && *d.LeaderID == leaderID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDeptRepo) List(_ context.Context) ([]model.Department, error) {
	var result []model.Department
	for _, d := range m.departments {
		result = append(result, *m.withPeople(d))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockDeptRepo) ListByManager(_ context.Context, managerID string) ([]model.Department, error) {
	var result []model.Department
	for _, d := range m.departments {
		if d.ManagerID != nil && *d.ManagerID == managerID {
			result = append(result, *d)
		}
	}
	return result, nil
}

func (m *mockDeptRepo) Update(_ context.Context, dept *model.Department) error {
	if _, ok := m.departments[dept.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if err := m.checkLeaderUnique(dept); err != nil {
		return err
	}
	cp := *dept
	cp.Leader, cp.Manager = nil, nil
	cp.UpdatedAt = time.Now()
	m.departments[dept.ID] = &cp
	return nil
}

func (m *mockDeptRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.departments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	if m.accounts != nil {
		for _, a := range m.accounts.accounts {
			if a.DepartmentID != nil && *a.DepartmentID == id {
				a.DepartmentID = nil
			}
		}
	}
	delete(m.departments, id)
	return nil
}

func (m *mockDeptRepo) CountMembers(_ context.Context, departmentID uint) (int64, error) {
	var n int64
	if m.accounts != nil {
		for _, a := range m.accounts.accounts {
			if a.DepartmentID != nil && *a.DepartmentID == departmentID {
				n++
			}
		}
	}
	return n, nil
}

func (m *mockDeptRepo) checkLeaderUnique(dept *model.Department) error {
	if dept.LeaderID == nil {
		return nil
	}
	for id, d := range m.departments {
		if id != dept.ID && d.LeaderID != nil && *d.LeaderID == *dept.LeaderID {
			return gorm.ErrDuplicatedKey
		}
	}
	return nil
}

// withPeople 返回带 leader / manager 关联的副本，模拟 Preload
func (m *mockDeptRepo) withPeople(d *model.Department) *model.Department {
	cp := *d
	if m.accounts != nil {
		if cp.LeaderID != nil {
			if a, ok := m.accounts.accounts[*cp.LeaderID]; ok {
				leader := *a
				cp.Leader = &leader
			}
		}
		if cp.ManagerID != nil {
			if a, ok := m.accounts.accounts[*cp.ManagerID]; ok {
				manager := *a
				cp.Manager = &manager
			}
		}
	}
	return &cp
}

// ── 测试辅助 ──

// newMockRepository 构造互相关联的 mock 聚合（未绑定数据库，Transaction 直接执行）
func newMockRepository() (*repository.Repository, *mockAccountRepo, *mockDeptRepo) {
	accountRepo := newMockAccountRepo()
	deptRepo := newMockDeptRepo()
	accountRepo.depts = deptRepo
	deptRepo.accounts = accountRepo
	return &repository.Repository{Account: accountRepo, Department: deptRepo}, accountRepo, deptRepo
}

func strPtr(s string) *string { return &s }

func uintPtr(u uint) *uint { return &u }
