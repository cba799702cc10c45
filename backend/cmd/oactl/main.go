// oactl 运维命令行：数据库迁移与账号初始化
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"oa-hub/backend/config"
	"oa-hub/backend/internal/model"
	"oa-hub/backend/internal/repository"
	"oa-hub/backend/internal/service"
	"oa-hub/backend/pkg/database"
	applogger "oa-hub/backend/pkg/logger"
	"oa-hub/backend/pkg/metrics"
	"oa-hub/backend/pkg/password"
)

func main() {
	app := &cli.App{
		Name:  "oactl",
		Usage: "OA 账号服务运维工具",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径",
				EnvVars: []string{"OA_CONFIG_FILE"},
			},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			createSuperuserCommand(),
			createUserCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "oactl: %v\n", err)
		os.Exit(1)
	}
}

// env 命令执行环境
type env struct {
	cfg    *config.Config
	db     *gorm.DB
	logger *zap.Logger
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	return &env{cfg: cfg, db: db, logger: logger}, nil
}

func (e *env) close() {
	database.Close(e.db)
	e.logger.Sync()
}

func (e *env) accountManager() service.AccountManager {
	return service.NewAccountManager(
		repository.NewRepository(e.db),
		password.NewHasher(e.cfg.Auth.BcryptCost),
		metrics.NewNop(),
		e.logger,
	)
}

// ────── migrate ──────

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "执行数据库迁移",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "迁移到最新版本",
				Action: func(c *cli.Context) error {
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.close()

					sqlDB, err := e.db.DB()
					if err != nil {
						return err
					}
					return database.RunMigrations(sqlDB, e.logger)
				},
			},
			{
				Name:  "down",
				Usage: "回滚迁移",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "回滚步数"},
				},
				Action: func(c *cli.Context) error {
					if c.Int("steps") <= 0 {
						return fmt.Errorf("steps 必须为正数")
					}

					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.close()

					sqlDB, err := e.db.DB()
					if err != nil {
						return err
					}
					return database.RollbackMigrations(sqlDB, c.Int("steps"), e.logger)
				},
			},
		},
	}
}

// ────── 账号 ──────

func accountFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true, Usage: "用户名"},
		&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Usage: "邮箱"},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "密码；留空则设置为不可用密码",
			EnvVars: []string{"OA_ACCOUNT_PASSWORD"},
		},
		&cli.StringFlag{Name: "first-name", Usage: "名"},
		&cli.StringFlag{Name: "last-name", Usage: "姓"},
	}
}

func extraFromFlags(c *cli.Context) *service.ExtraFields {
	extra := &service.ExtraFields{}
	if c.IsSet("first-name") {
		v := c.String("first-name")
		extra.FirstName = &v
	}
	if c.IsSet("last-name") {
		v := c.String("last-name")
		extra.LastName = &v
	}
	return extra
}

func createSuperuserCommand() *cli.Command {
	return &cli.Command{
		Name:  "createsuperuser",
		Usage: "创建超级用户",
		Flags: accountFlags(),
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			account, err := e.accountManager().CreateSuperuser(c.Context,
				c.String("username"), c.String("email"), c.String("password"), extraFromFlags(c))
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "超级用户已创建: %s (%s)\n", account.Email, account.UID)
			return nil
		},
	}
}

func userFlags() []cli.Flag {
	return append(accountFlags(),
		&cli.BoolFlag{Name: "staff", Usage: "设置为管理员（is_staff）"},
		&cli.UintFlag{Name: "department", Usage: "所属部门 ID"},
		&cli.IntFlag{Name: "status", Usage: "账号状态：1 已激活 2 未激活 3 已锁定"},
	)
}

// userExtraFromFlags 在 extraFromFlags 基础上读取 createuser 专有参数；未设置的参数保持 nil，由 AccountManager 填默认值
func userExtraFromFlags(c *cli.Context) *service.ExtraFields {
	extra := extraFromFlags(c)
	if c.Bool("staff") {
		staff := true
		extra.IsStaff = &staff
	}
	if c.IsSet("department") {
		id := c.Uint("department")
		extra.DepartmentID = &id
	}
	if c.IsSet("status") {
		status := model.AccountStatus(c.Int("status"))
		extra.Status = &status
	}
	return extra
}

func createUserCommand() *cli.Command {
	return &cli.Command{
		Name:  "createuser",
		Usage: "创建普通账号",
		Flags: userFlags(),
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			account, err := e.accountManager().CreateUser(c.Context,
				c.String("username"), c.String("email"), c.String("password"), userExtraFromFlags(c))
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "账号已创建: %s (%s)\n", account.Email, account.UID)
			return nil
		},
	}
}
