package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"oa-hub/backend/internal/dto"
	"oa-hub/backend/internal/model"
	"oa-hub/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportTooManyRows  = errors.New("导出账号数量超出上限，请缩小筛选范围")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// maxExportRows 单次导出账号上限
const maxExportRows = 5000

// exportSheet 导出工作表名称
const exportSheet = "账号列表"

// exportHeader 前六列与导入模板一致，导出文件可直接回导
var exportHeader = []interface{}{
	"用户名", "邮箱", "名", "姓", "电话", "部门",
	"角色", "状态", "是否启用", "注册时间", "最近登录",
}

var statusLabels = map[model.AccountStatus]string{
	model.StatusActivated:   "已激活",
	model.StatusUnactivated: "未激活",
	model.StatusLocked:      "已锁定",
}

var roleLabels = map[string]string{
	model.RoleSuperuser: "超级用户",
	model.RoleStaff:     "管理员",
	model.RoleMember:    "成员",
}

// ExportService 导出业务接口
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入
type ExportService interface {
	// ExportAccounts 按列表筛选条件导出账号为 Excel，返回内容与建议文件名
	ExportAccounts(ctx context.Context, req *dto.AccountListRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger, now: time.Now}
}

func (s *exportService) ExportAccounts(ctx context.Context, req *dto.AccountListRequest) (*bytes.Buffer, string, error) {
	// 多取一条用于判断是否超限
	accounts, total, err := s.repo.Account.ListWithFilters(ctx, toListFilters(req), 0, maxExportRows+1)
	if err != nil {
		s.logger.Error("查询导出账号失败", zap.Error(err))
		return nil, "", err
	}
	if total > maxExportRows {
		return nil, "", ErrExportTooManyRows
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(exportSheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, "", s.generateFailed(err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeader))
	f.SetCellStyle(exportSheet, "A1", lastCol+"1", headerStyle)
	f.SetColWidth(exportSheet, "A", "A", 16)
	f.SetColWidth(exportSheet, "B", "B", 28)
	f.SetColWidth(exportSheet, "C", "I", 12)
	f.SetColWidth(exportSheet, "J", "K", 20)
	f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i := range accounts {
		row := exportRow(&accounts[i])
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, "", s.generateFailed(err)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", s.generateFailed(err)
	}

	s.logger.Info("账号导出完成", zap.Int("count", len(accounts)))

	filename := fmt.Sprintf("账号列表_%s.xlsx", s.now().Format("20060102"))
	return buf, filename, nil
}

func (s *exportService) generateFailed(err error) error {
	s.logger.Error("写入 Excel 失败", zap.Error(err))
	return ErrExportGenerateFail
}

func exportRow(a *model.Account) []interface{} {
	deptName := ""
	if a.Department != nil {
		deptName = a.Department.Name
	}
	active := "否"
	if a.IsActive {
		active = "是"
	}
	lastLogin := ""
	if a.LastLogin != nil {
		lastLogin = a.LastLogin.Format("2006-01-02 15:04")
	}

	return []interface{}{
		a.Username, a.Email, a.FirstName, a.LastName, a.Telephone, deptName,
		roleLabels[a.Role()], statusLabels[a.Status], active,
		a.DateJoined.Format("2006-01-02 15:04"), lastLogin,
	}
}
