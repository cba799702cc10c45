package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAccountsCreatedCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.AccountsCreated.WithLabelValues("user").Inc()
	m.AccountsCreated.WithLabelValues("user").Inc()
	m.AccountsCreated.WithLabelValues("superuser").Inc()

	if got := testutil.ToFloat64(m.AccountsCreated.WithLabelValues("user")); got != 2 {
		t.Errorf("期望 user=2，实际=%v", got)
	}
	if got := testutil.ToFloat64(m.AccountsCreated.WithLabelValues("superuser")); got != 1 {
		t.Errorf("期望 superuser=1，实际=%v", got)
	}
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if recover() == nil {
			t.Error("重复注册应 panic")
		}
	}()
	New(reg)
}
