package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.True(t, cfg.Workflow.RequireApprovedProduct)
	assert.False(t, cfg.Workflow.AllowProductReReview)
	assert.Equal(t, 8, cfg.Workflow.FanOutParallelism)
	assert.Equal(t, 2*time.Second, cfg.Workflow.FanOutWait)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PRODUCT_ALLOW_REREVIEW", "true")
	t.Setenv("BID_REQUIRE_APPROVED_PRODUCT", "false")
	t.Setenv("NOTIFY_FANOUT_WAIT", "250ms")
	t.Setenv("SERVER_ENV", "production")

	cfg := Load()

	assert.True(t, cfg.Workflow.AllowProductReReview)
	assert.False(t, cfg.Workflow.RequireApprovedProduct)
	assert.Equal(t, 250*time.Millisecond, cfg.Workflow.FanOutWait)
	assert.False(t, cfg.IsDevelopment())
}
