package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"oa-hub/backend/internal/dto"
	"oa-hub/backend/internal/model"
	"oa-hub/backend/internal/repository"
	"oa-hub/backend/pkg/email"
	"oa-hub/backend/pkg/metrics"
	"oa-hub/backend/pkg/password"
)

// ── 账号管理业务错误 ──

var (
	ErrAccountNotFound     = errors.New("账号不存在")
	ErrAccountSelfDelete   = errors.New("不能删除自己")
	ErrOldPasswordMismatch = errors.New("原密码错误")
	ErrInvalidStatus       = errors.New("账号状态不合法")
	ErrSuperuserProtected  = errors.New("仅超级用户可管理超级用户账号")
)

// Operator 发起管理操作的账号，来自认证上下文
type Operator struct {
	ID   string
	Role string
}

// IsSuperuser 操作人是否为超级用户
func (o Operator) IsSuperuser() bool {
	return o.Role == model.RoleSuperuser
}

// AccountService 账号管理业务接口
type AccountService interface {
	Create(ctx context.Context, req *dto.CreateAccountRequest, superuser bool) (*dto.AccountResponse, error)
	GetByID(ctx context.Context, uid string) (*dto.AccountResponse, error)
	List(ctx context.Context, req *dto.AccountListRequest) ([]dto.AccountResponse, int64, error)
	// Update、SetStatus、SetActive、ResetPassword 作用于超级用户账号时要求 op 为超级用户
	Update(ctx context.Context, uid string, req *dto.UpdateAccountRequest, op Operator) (*dto.AccountResponse, error)
	SetStatus(ctx context.Context, uid string, status model.AccountStatus, op Operator) error
	SetActive(ctx context.Context, uid string, active bool, op Operator) error
	ChangePassword(ctx context.Context, uid string, req *dto.ChangePasswordRequest) error
	ResetPassword(ctx context.Context, uid string, op Operator) (*dto.ResetPasswordResponse, error)
	Delete(ctx context.Context, uid, callerID string) error
	ParseImportFile(reader io.Reader) ([]ImportAccountRow, error)
	ImportAccounts(ctx context.Context, rows []ImportAccountRow) (*dto.ImportAccountResponse, error)
}

// ImportAccountRow Excel 导入解析后的单行数据
type ImportAccountRow struct {
	Row            int
	Username       string
	Email          string
	FirstName      string
	LastName       string
	Telephone      string
	DepartmentName string
}

type accountService struct {
	repo    *repository.Repository
	manager *accountManager
	hasher  *password.Hasher
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewAccountService 创建 AccountService 实例
func NewAccountService(
	repo *repository.Repository,
	manager AccountManager,
	hasher *password.Hasher,
	m *metrics.Metrics,
	logger *zap.Logger,
) AccountService {
	am, ok := manager.(*accountManager)
	if !ok {
		am = newAccountManager(repo, hasher, m, logger)
	}
	return &accountService{repo: repo, manager: am, hasher: hasher, metrics: m, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *accountService) Create(ctx context.Context, req *dto.CreateAccountRequest, superuser bool) (*dto.AccountResponse, error) {
	extra := &ExtraFields{
		FirstName:    &req.FirstName,
		LastName:     &req.LastName,
		Telephone:    &req.Telephone,
		IsStaff:      req.IsStaff,
		IsActive:     req.IsActive,
		DepartmentID: req.DepartmentID,
	}
	if req.Status != nil {
		status := model.AccountStatus(*req.Status)
		extra.Status = &status
	}

	var (
		account *model.Account
		err     error
	)
	if superuser {
		account, err = s.manager.CreateSuperuser(ctx, req.Username, req.Email, req.Password, extra)
	} else {
		account, err = s.manager.CreateUser(ctx, req.Username, req.Email, req.Password, extra)
	}
	if err != nil {
		return nil, err
	}

	// 重新加载以获取关联数据（部门等）
	created, err := s.repo.Account.GetByID(ctx, account.UID)
	if err != nil {
		return nil, err
	}
	return toAccountResponse(created), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *accountService) GetByID(ctx context.Context, uid string) (*dto.AccountResponse, error) {
	account, err := s.getAccount(ctx, uid)
	if err != nil {
		return nil, err
	}
	return toAccountResponse(account), nil
}

// ────────────────────── List ──────────────────────

func (s *accountService) List(ctx context.Context, req *dto.AccountListRequest) ([]dto.AccountResponse, int64, error) {
	accounts, total, err := s.repo.Account.ListWithFilters(ctx, toListFilters(req), req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出账号失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.AccountResponse, 0, len(accounts))
	for i := range accounts {
		result = append(result, *toAccountResponse(&accounts[i]))
	}
	return result, total, nil
}

func toListFilters(req *dto.AccountListRequest) *repository.AccountListFilters {
	filters := &repository.AccountListFilters{
		DepartmentID: req.DepartmentID,
		IsStaff:      req.IsStaff,
		Keyword:      req.Keyword,
	}
	if req.Status != nil {
		status := model.AccountStatus(*req.Status)
		filters.Status = &status
	}
	return filters
}

// ────────────────────── Update ──────────────────────

func (s *accountService) Update(ctx context.Context, uid string, req *dto.UpdateAccountRequest, op Operator) (*dto.AccountResponse, error) {
	account, err := s.getManagedAccount(ctx, uid, op)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		if strings.TrimSpace(*req.Username) == "" {
			return nil, ErrUsernameRequired
		}
		account.Username = *req.Username
	}
	if req.FirstName != nil {
		account.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		account.LastName = *req.LastName
	}
	if req.Telephone != nil {
		account.Telephone = *req.Telephone
	}
	if req.Email != nil && !email.Equal(*req.Email, account.Email) {
		existing, err := s.repo.Account.GetByEmail(ctx, email.Normalize(*req.Email))
		if err == nil && existing.UID != uid {
			return nil, ErrEmailExists
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		account.Email = *req.Email
	}

	switch {
	case req.ClearDepartment:
		account.DepartmentID = nil
		account.Department = nil
	case req.DepartmentID != nil:
		if _, err := s.repo.Department.GetByID(ctx, *req.DepartmentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrDepartmentNotFound
			}
			return nil, err
		}
		account.DepartmentID = req.DepartmentID
		account.Department = nil
	}

	account.Clean()
	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccount, err)
	}

	if err := s.repo.Account.Update(ctx, account); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		s.logger.Error("更新账号失败", zap.String("uid", uid), zap.Error(err))
		return nil, err
	}

	// 重新加载关联
	updated, err := s.repo.Account.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return toAccountResponse(updated), nil
}

// ────────────────────── SetStatus / SetActive ──────────────────────

func (s *accountService) SetStatus(ctx context.Context, uid string, status model.AccountStatus, op Operator) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	account, err := s.getManagedAccount(ctx, uid, op)
	if err != nil {
		return err
	}

	account.Status = status
	if err := s.repo.Account.Update(ctx, account); err != nil {
		s.logger.Error("设置账号状态失败", zap.String("uid", uid), zap.Error(err))
		return err
	}

	s.logger.Info("账号状态已变更", zap.String("uid", uid), zap.Stringer("status", status))
	return nil
}

func (s *accountService) SetActive(ctx context.Context, uid string, active bool, op Operator) error {
	account, err := s.getManagedAccount(ctx, uid, op)
	if err != nil {
		return err
	}

	account.IsActive = active
	if err := s.repo.Account.Update(ctx, account); err != nil {
		s.logger.Error("设置账号启用状态失败", zap.String("uid", uid), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ChangePassword ──────────────────────

func (s *accountService) ChangePassword(ctx context.Context, uid string, req *dto.ChangePasswordRequest) error {
	account, err := s.getAccount(ctx, uid)
	if err != nil {
		return err
	}

	if err := s.hasher.Check(req.OldPassword, account.Password); err != nil {
		return ErrOldPasswordMismatch
	}

	hash, err := s.hasher.Make(req.NewPassword)
	switch {
	case errors.Is(err, password.ErrTooLong):
		return fmt.Errorf("%w: %w", ErrInvalidAccount, err)
	case err != nil:
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}

	account.Password = hash
	if err := s.repo.Account.Update(ctx, account); err != nil {
		s.logger.Error("修改密码失败", zap.String("uid", uid), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ResetPassword ──────────────────────

func (s *accountService) ResetPassword(ctx context.Context, uid string, op Operator) (*dto.ResetPasswordResponse, error) {
	account, err := s.getManagedAccount(ctx, uid, op)
	if err != nil {
		return nil, err
	}

	// 生成 10 位随机密码（保证包含字母和数字）
	tempPassword, err := generateTempPassword(10)
	if err != nil {
		s.logger.Error("生成临时密码失败", zap.Error(err))
		return nil, err
	}

	hash, err := s.hasher.Make(tempPassword)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	account.Password = hash
	if err := s.repo.Account.Update(ctx, account); err != nil {
		s.logger.Error("重置密码失败", zap.String("uid", uid), zap.Error(err))
		return nil, err
	}

	return &dto.ResetPasswordResponse{TempPassword: tempPassword}, nil
}

// ────────────────────── Delete ──────────────────────

func (s *accountService) Delete(ctx context.Context, uid, callerID string) error {
	if uid == callerID {
		return ErrAccountSelfDelete
	}

	if err := s.repo.Account.Delete(ctx, uid); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		s.logger.Error("删除账号失败", zap.String("uid", uid), zap.Error(err))
		return err
	}

	s.logger.Info("账号已删除", zap.String("uid", uid), zap.String("by", callerID))
	return nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（用户名/邮箱）")
)

// ParseImportFile 解析导入 Excel 文件，返回解析后的行数据
func (s *accountService) ParseImportFile(reader io.Reader) ([]ImportAccountRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 解析表头（支持灵活列序）
	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["username"] < 0 || colIndex["email"] < 0 {
		return nil, ErrImportBadHeader
	}

	cell := func(row []string, key string) string {
		if idx := colIndex[key]; idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var rows []ImportAccountRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportAccountRow{
			Row:            i + 1,
			Username:       cell(row, "username"),
			Email:          cell(row, "email"),
			FirstName:      cell(row, "first_name"),
			LastName:       cell(row, "last_name"),
			Telephone:      cell(row, "telephone"),
			DepartmentName: cell(row, "department"),
		}

		// 跳过全空行
		if item.Username == "" && item.Email == "" && item.FirstName == "" &&
			item.LastName == "" && item.Telephone == "" && item.DepartmentName == "" {
			continue
		}

		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}

	return rows, nil
}

// parseHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"username":   -1,
		"email":      -1,
		"first_name": -1,
		"last_name":  -1,
		"telephone":  -1,
		"department": -1,
	}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		switch lower {
		case "用户名", "username":
			idx["username"] = i
		case "邮箱", "email":
			idx["email"] = i
		case "名", "first_name":
			idx["first_name"] = i
		case "姓", "last_name":
			idx["last_name"] = i
		case "电话", "telephone":
			idx["telephone"] = i
		case "部门", "department":
			idx["department"] = i
		}
	}
	return idx
}

// ────────────────────── ImportAccounts ──────────────────────

// ImportAccounts 批量创建账号。导入的账号使用不可用密码，需管理员重置后登录。
// 行级错误（必填缺失、邮箱重复、部门不存在、字段不合法）记入报告并只回滚该行的保存点；其余错误回滚全部导入。
func (s *accountService) ImportAccounts(ctx context.Context, rows []ImportAccountRow) (*dto.ImportAccountResponse, error) {
	resp := &dto.ImportAccountResponse{Total: len(rows)}

	// 预加载所有部门，便于按名称查找
	deptMap, err := s.buildDepartmentMap(ctx)
	if err != nil {
		s.logger.Error("加载部门列表失败", zap.Error(err))
		return nil, err
	}

	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportAccountError{Row: row, Reason: reason})
	}

	started := time.Now()
	seen := make(map[string]int, len(rows))

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		for _, row := range rows {
			if row.Username == "" || row.Email == "" {
				fail(row.Row, "必填字段为空")
				continue
			}

			// 文件内邮箱去重（不区分大小写）
			key := strings.ToLower(email.Normalize(row.Email))
			if first, ok := seen[key]; ok {
				fail(row.Row, fmt.Sprintf("邮箱与第 %d 行重复: %s", first, row.Email))
				continue
			}
			seen[key] = row.Row

			extra := &ExtraFields{
				FirstName: &row.FirstName,
				LastName:  &row.LastName,
				Telephone: &row.Telephone,
			}
			if row.DepartmentName != "" {
				dept, ok := deptMap[row.DepartmentName]
				if !ok {
					fail(row.Row, fmt.Sprintf("部门不存在: %s", row.DepartmentName))
					continue
				}
				extra.DepartmentID = &dept.ID
			}

			// 每行一个保存点：唯一约束冲突只回滚本行，外层事务仍可继续写入
			err := txRepo.Transaction(ctx, func(rowRepo *repository.Repository) error {
				_, err := s.manager.withRepo(rowRepo).CreateUser(ctx, row.Username, row.Email, "", extra)
				return err
			})
			switch {
			case err == nil:
				resp.Success++
			case errors.Is(err, ErrEmailExists):
				fail(row.Row, fmt.Sprintf("邮箱已存在: %s", row.Email))
			case errors.Is(err, ErrInvalidAccount), errors.Is(err, ErrUsernameRequired):
				fail(row.Row, err.Error())
			default:
				// 事务中任一写入失败则全部回滚
				s.logger.Error("导入账号写入失败，事务回滚", zap.Int("row", row.Row), zap.Error(err))
				return fmt.Errorf("第 %d 行写入数据库失败，已回滚全部导入: %w", row.Row, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("批量导入账号完成",
		zap.Int("total", resp.Total),
		zap.Int("success", resp.Success),
		zap.Int("failed", resp.Failed),
		zap.Duration("elapsed", time.Since(started)),
	)
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *accountService) getAccount(ctx context.Context, uid string) (*model.Account, error) {
	account, err := s.repo.Account.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		s.logger.Error("查询账号失败", zap.String("uid", uid), zap.Error(err))
		return nil, err
	}
	return account, nil
}

// buildDepartmentMap 构建部门名称 -> 部门实体映射
// getManagedAccount 加载被管理的账号；非超级用户不得操作超级用户账号
func (s *accountService) getManagedAccount(ctx context.Context, uid string, op Operator) (*model.Account, error) {
	account, err := s.getAccount(ctx, uid)
	if err != nil {
		return nil, err
	}
	if account.IsSuperuser && !op.IsSuperuser() {
		s.logger.Warn("拒绝操作超级用户账号",
			zap.String("uid", uid),
			zap.String("operator", op.ID),
			zap.String("role", op.Role),
		)
		return nil, ErrSuperuserProtected
	}
	return account, nil
}

func (s *accountService) buildDepartmentMap(ctx context.Context) (map[string]*model.Department, error) {
	departments, err := s.repo.Department.List(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]*model.Department, len(departments))
	for i := range departments {
		m[departments[i].Name] = &departments[i]
	}
	return m, nil
}

// toAccountResponse 将 model.Account 转换为 dto.AccountResponse
func toAccountResponse(a *model.Account) *dto.AccountResponse {
	resp := &dto.AccountResponse{
		UID:         a.UID,
		Username:    a.Username,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		FullName:    a.FullName(),
		Telephone:   a.Telephone,
		IsStaff:     a.IsStaff,
		IsSuperuser: a.IsSuperuser,
		IsActive:    a.IsActive,
		Status:      int(a.Status),
		DateJoined:  a.DateJoined.Format(time.RFC3339),
	}
	if a.LastLogin != nil {
		resp.LastLogin = a.LastLogin.Format(time.RFC3339)
	}
	if a.Department != nil {
		resp.Department = &dto.DepartmentResponse{ID: a.Department.ID, Name: a.Department.Name}
	}
	return resp
}

// toAccountBrief 将 model.Account 转换为简要信息，nil 安全
func toAccountBrief(a *model.Account) *dto.AccountBriefResp {
	if a == nil {
		return nil
	}
	return &dto.AccountBriefResp{
		UID:      a.UID,
		Username: a.Username,
		FullName: a.FullName(),
		Email:    a.Email,
	}
}

// generateTempPassword 生成指定长度的临时密码（保证包含字母和数字）
func generateTempPassword(length int) (string, error) {
	const letters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	const all = letters + digits

	if length < 8 {
		length = 8
	}

	result := make([]byte, length)

	pick := func(charset string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return 0, err
		}
		return charset[n.Int64()], nil
	}

	// 保证至少1个字母+1个数字
	var err error
	if result[0], err = pick(letters); err != nil {
		return "", err
	}
	if result[1], err = pick(digits); err != nil {
		return "", err
	}
	for i := 2; i < length; i++ {
		if result[i], err = pick(all); err != nil {
			return "", err
		}
	}

	// Fisher-Yates 洗牌
	for i := length - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		result[i], result[j.Int64()] = result[j.Int64()], result[i]
	}

	return string(result), nil
}
