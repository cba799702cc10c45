package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"oa-hub/backend/internal/model"
	"oa-hub/backend/internal/service"
)

// runFlags 以给定参数执行一个只收集参数的命令，返回解析出的 ExtraFields 与密码
func runFlags(t *testing.T, flags []cli.Flag, read func(*cli.Context) *service.ExtraFields, args ...string) (*service.ExtraFields, string) {
	t.Helper()

	var (
		got *service.ExtraFields
		pwd string
	)
	app := &cli.App{
		Name:      "oactl",
		Writer:    io.Discard,
		ErrWriter: io.Discard,
		Commands: []*cli.Command{{
			Name:  "collect",
			Flags: flags,
			Action: func(c *cli.Context) error {
				got = read(c)
				pwd = c.String("password")
				return nil
			},
		}},
	}

	require.NoError(t, app.Run(append([]string{"oactl", "collect"}, args...)))
	require.NotNil(t, got)
	return got, pwd
}

func TestExtraFromFlags(t *testing.T) {
	extra, _ := runFlags(t, accountFlags(), extraFromFlags,
		"--username", "ada", "--email", "ada@example.com", "--first-name", "Ada", "--last-name", "Lovelace")
	require.NotNil(t, extra.FirstName)
	require.NotNil(t, extra.LastName)
	assert.Equal(t, "Ada", *extra.FirstName)
	assert.Equal(t, "Lovelace", *extra.LastName)

	// 显式传空值与未传区分开
	extra, _ = runFlags(t, accountFlags(), extraFromFlags,
		"-u", "ada", "-e", "ada@example.com", "--first-name", "")
	require.NotNil(t, extra.FirstName)
	assert.Empty(t, *extra.FirstName)
	assert.Nil(t, extra.LastName)
	assert.Nil(t, extra.IsStaff)
	assert.Nil(t, extra.IsSuperuser)
}

func TestUserExtraFromFlags(t *testing.T) {
	extra, _ := runFlags(t, userFlags(), userExtraFromFlags,
		"-u", "ada", "-e", "ada@example.com", "--staff", "--department", "7", "--status", "3")
	require.NotNil(t, extra.IsStaff)
	require.NotNil(t, extra.DepartmentID)
	require.NotNil(t, extra.Status)
	assert.True(t, *extra.IsStaff)
	assert.EqualValues(t, 7, *extra.DepartmentID)
	assert.Equal(t, model.StatusLocked, *extra.Status)
	assert.Nil(t, extra.IsSuperuser)
}

func TestUserExtraFromFlags_Defaults(t *testing.T) {
	extra, _ := runFlags(t, userFlags(), userExtraFromFlags, "-u", "ada", "-e", "ada@example.com")

	// 未设置的参数交给 AccountManager 填默认值
	assert.Nil(t, extra.IsStaff)
	assert.Nil(t, extra.DepartmentID)
	assert.Nil(t, extra.Status)
	assert.Nil(t, extra.FirstName)
}

func TestUserExtraFromFlags_ZeroStatusIsPassedThrough(t *testing.T) {
	extra, _ := runFlags(t, userFlags(), userExtraFromFlags, "-u", "ada", "-e", "ada@example.com", "--status", "0")

	// 非法状态原样传入，由 AccountManager 校验拒绝
	require.NotNil(t, extra.Status)
	assert.Equal(t, model.AccountStatus(0), *extra.Status)
}

func TestPasswordFromEnv(t *testing.T) {
	t.Setenv("OA_ACCOUNT_PASSWORD", "EnvPass123")

	_, pwd := runFlags(t, userFlags(), userExtraFromFlags, "-u", "ada", "-e", "ada@example.com")
	assert.Equal(t, "EnvPass123", pwd)

	_, pwd = runFlags(t, userFlags(), userExtraFromFlags, "-u", "ada", "-e", "ada@example.com", "-p", "FlagPass123")
	assert.Equal(t, "FlagPass123", pwd)
}

// 以下失败均发生在连接数据库之前
func TestCommands_RejectBadArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"缺少邮箱", []string{"createsuperuser", "--username", "root"}},
		{"缺少用户名", []string{"createuser", "--email", "ada@example.com"}},
		{"部门 ID 非数字", []string{"createuser", "-u", "ada", "-e", "ada@example.com", "--department", "abc"}},
		{"回滚步数非正", []string{"migrate", "down", "--steps", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Name:      "oactl",
				Writer:    io.Discard,
				ErrWriter: io.Discard,
				Commands:  []*cli.Command{migrateCommand(), createSuperuserCommand(), createUserCommand()},
			}
			assert.Error(t, app.Run(append([]string{"oactl"}, tt.args...)))
		})
	}
}
