package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Auth: AuthConfig{
			JWTSecret:  "test-secret-key-for-unit-testing",
			BcryptCost: 10,
		},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("期望校验通过，实际: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"空密钥", func(c *Config) { c.Auth.JWTSecret = "" }, "jwt_secret 不能为空"},
		{"密钥过短", func(c *Config) { c.Auth.JWTSecret = "short" }, "不能少于 16"},
		{"端口为0", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"cost过小", func(c *Config) { c.Auth.BcryptCost = 3 }, "bcrypt_cost"},
		{"cost过大", func(c *Config) { c.Auth.BcryptCost = 32 }, "bcrypt_cost"},
		{"导入上限为负", func(c *Config) { c.Account.ImportMaxBytes = -1 }, "import_max_bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("期望校验失败")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("期望错误包含 %q，实际: %v", tt.want, err)
			}
		})
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("OA_AUTH_JWT_SECRET", "env-secret-key-0123456789")
	t.Setenv("OA_SERVER_PORT", "9090")
	t.Setenv("OA_DB_NAME", "oa_test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望 port=9090，实际=%d", cfg.Server.Port)
	}
	if cfg.Database.Name != "oa_test" {
		t.Errorf("期望 db.name=oa_test，实际=%s", cfg.Database.Name)
	}
	if !cfg.Account.ImportEnabled || cfg.Account.ImportMaxBytes != 5<<20 {
		t.Errorf("账号导入默认值不符: %+v", cfg.Account)
	}
	if cfg.Auth.BcryptCost != 10 {
		t.Errorf("期望默认 bcrypt_cost=10，实际=%d", cfg.Auth.BcryptCost)
	}
	if !strings.Contains(cfg.Database.DSN(), "dbname=oa_test") {
		t.Errorf("DSN 未包含库名: %s", cfg.Database.DSN())
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("OA_AUTH_JWT_SECRET", "")

	if _, err := Load(""); err == nil {
		t.Fatal("缺少 jwt_secret 时应返回错误")
	}
}

func TestLoad_AccountSectionFromEnv(t *testing.T) {
	t.Setenv("OA_AUTH_JWT_SECRET", "env-secret-key-0123456789")
	t.Setenv("OA_ACCOUNT_IMPORT_ENABLED", "false")
	t.Setenv("OA_ACCOUNT_IMPORT_MAX_BYTES", "1048576")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Account.ImportEnabled {
		t.Error("环境变量应关闭账号导入")
	}
	if cfg.Account.ImportMaxBytes != 1<<20 {
		t.Errorf("期望 import_max_bytes=1048576，实际=%d", cfg.Account.ImportMaxBytes)
	}
}
